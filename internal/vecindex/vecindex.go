// Package vecindex is a flat, exact nearest-neighbor index over chunk
// embeddings. Each document version gets one snapshot file holding the
// vectors and a parallel array of chunk ids; search is brute-force L2,
// which stays fast at the corpus sizes a single document produces.
package vecindex

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"sort"
)

const (
	snapshotMagic   = "RVIX"
	snapshotVersion = 1
)

// Index is an in-memory snapshot of a document version's embedding space.
// Vectors[i] belongs to the chunk with IDs[i].
type Index struct {
	Dim     int
	Vectors [][]float32
	IDs     []uint
}

// Match is a single retrieval hit. Similarity is 1/(1+distance), so an exact
// match scores 1.0 and decays toward zero with distance.
type Match struct {
	ChunkID    uint
	Distance   float64
	Similarity float64
}

// New builds an index from parallel vector and id slices.
func New(dim int, vectors [][]float32, ids []uint) (*Index, error) {
	if len(vectors) != len(ids) {
		return nil, fmt.Errorf("vecindex: %d vectors for %d ids", len(vectors), len(ids))
	}
	for i, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("vecindex: vector %d has dim %d, want %d", i, len(v), dim)
		}
	}
	return &Index{Dim: dim, Vectors: vectors, IDs: ids}, nil
}

// Len reports the number of indexed vectors.
func (ix *Index) Len() int {
	if ix == nil {
		return 0
	}
	return len(ix.IDs)
}

// Search returns the k nearest chunks to the query, best first. A nil or
// empty index, a bad query dimension, or k <= 0 all yield an empty result;
// retrieval degrades to nothing rather than failing.
func (ix *Index) Search(query []float32, k int) []Match {
	if ix == nil || len(ix.IDs) == 0 || k <= 0 || len(query) != ix.Dim {
		return []Match{}
	}
	matches := make([]Match, 0, len(ix.IDs))
	for i, vec := range ix.Vectors {
		d := l2(query, vec)
		matches = append(matches, Match{
			ChunkID:    ix.IDs[i],
			Distance:   d,
			Similarity: 1.0 / (1.0 + d),
		})
	}
	sort.SliceStable(matches, func(a, b int) bool {
		return matches[a].Distance < matches[b].Distance
	})
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches
}

func l2(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

// Encode serializes the index into its snapshot blob: a fixed header, the
// vectors as little-endian float32, then the chunk ids as little-endian
// uint64.
func (ix *Index) Encode() ([]byte, error) {
	if ix == nil {
		return nil, fmt.Errorf("vecindex: encode nil index")
	}
	var buf bytes.Buffer
	buf.WriteString(snapshotMagic)
	header := make([]byte, 12)
	binary.LittleEndian.PutUint32(header[0:], snapshotVersion)
	binary.LittleEndian.PutUint32(header[4:], uint32(ix.Dim))
	binary.LittleEndian.PutUint32(header[8:], uint32(len(ix.IDs)))
	buf.Write(header)

	scratch := make([]byte, 4)
	for _, vec := range ix.Vectors {
		if len(vec) != ix.Dim {
			return nil, fmt.Errorf("vecindex: vector dim %d, want %d", len(vec), ix.Dim)
		}
		for _, v := range vec {
			binary.LittleEndian.PutUint32(scratch, math.Float32bits(v))
			buf.Write(scratch)
		}
	}
	idScratch := make([]byte, 8)
	for _, id := range ix.IDs {
		binary.LittleEndian.PutUint64(idScratch, uint64(id))
		buf.Write(idScratch)
	}
	return buf.Bytes(), nil
}

// Decode parses a snapshot blob produced by Encode.
func Decode(blob []byte) (*Index, error) {
	if len(blob) < 16 {
		return nil, fmt.Errorf("vecindex: snapshot too short: %d bytes", len(blob))
	}
	if string(blob[:4]) != snapshotMagic {
		return nil, fmt.Errorf("vecindex: bad snapshot magic %q", blob[:4])
	}
	version := binary.LittleEndian.Uint32(blob[4:])
	if version != snapshotVersion {
		return nil, fmt.Errorf("vecindex: unsupported snapshot version %d", version)
	}
	dim := int(binary.LittleEndian.Uint32(blob[8:]))
	count := int(binary.LittleEndian.Uint32(blob[12:]))

	want := 16 + count*dim*4 + count*8
	if len(blob) != want {
		return nil, fmt.Errorf("vecindex: snapshot length %d, want %d for dim=%d count=%d", len(blob), want, dim, count)
	}

	vectors := make([][]float32, count)
	off := 16
	for i := 0; i < count; i++ {
		vec := make([]float32, dim)
		for j := 0; j < dim; j++ {
			vec[j] = math.Float32frombits(binary.LittleEndian.Uint32(blob[off:]))
			off += 4
		}
		vectors[i] = vec
	}
	ids := make([]uint, count)
	for i := 0; i < count; i++ {
		ids[i] = uint(binary.LittleEndian.Uint64(blob[off:]))
		off += 8
	}
	return &Index{Dim: dim, Vectors: vectors, IDs: ids}, nil
}
