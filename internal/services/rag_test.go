package services

import (
	"context"
	"testing"

	"github.com/revisify/backend/internal/logger"
	"github.com/revisify/backend/internal/repos"
	"github.com/revisify/backend/internal/vecindex"
)

func newRagFixture(t *testing.T) (RagService, *chainFixture, *vecindex.Store) {
	t.Helper()
	gdb := newTestDB(t)
	log := logger.NewNop()
	fx := seedChain(t, gdb)
	caps, _ := newTestCaps("An answer grounded in the passages.")
	store := vecindex.NewStore(t.TempDir(), log)
	chunkRepo := repos.NewChunkRepo(gdb, log)
	embedSvc := NewEmbedService(gdb, log, testConfig(), nil, chunkRepo)
	svc := NewRagService(gdb, log, testConfig(),
		repos.NewDocumentRepo(gdb, log),
		chunkRepo,
		store,
		embedSvc,
		caps)
	return svc, fx, store
}

func TestSearchMissingIndexIsEmpty(t *testing.T) {
	svc, fx, _ := newRagFixture(t)

	got, err := svc.Search(context.Background(), fx.doc.ID, []float32{1, 0, 0, 0, 0, 0, 0, 0}, 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("missing index: want empty, got %v", got)
	}
}

func TestSearchReturnsNearestChunks(t *testing.T) {
	svc, fx, store := newRagFixture(t)

	vectors := [][]float32{
		{1, 0, 0, 0, 0, 0, 0, 0},
		{0, 1, 0, 0, 0, 0, 0, 0},
	}
	ix, err := vecindex.New(8, vectors, []uint{101, 102})
	if err != nil {
		t.Fatalf("vecindex.New: %v", err)
	}
	if err := store.Save(fx.doc.ID, fx.doc.CurrentVersion, ix); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := svc.Search(context.Background(), fx.doc.ID, []float32{1, 0, 0, 0, 0, 0, 0, 0}, 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("results: want=2 got=%d", len(got))
	}
	if got[0].ChunkID != 101 {
		t.Fatalf("nearest chunk: want=101 got=%d", got[0].ChunkID)
	}
	if got[0].Similarity != 1.0 {
		t.Fatalf("exact match similarity: want=1.0 got=%v", got[0].Similarity)
	}
}

func TestAnswerDegradesWithoutEmbedder(t *testing.T) {
	svc, fx, _ := newRagFixture(t)

	got, err := svc.Answer(context.Background(), fx.doc.ID, "what is a derivative?")
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if got.Answer != noContextAnswer {
		t.Fatalf("unavailable embedder: want canned answer, got %q", got.Answer)
	}
	if !got.Degraded {
		t.Fatalf("degraded flag should be set")
	}
	if len(got.Citations) != 0 {
		t.Fatalf("no citations expected, got %d", len(got.Citations))
	}
}
