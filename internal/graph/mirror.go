// Package graph mirrors the concept dependency graph into Neo4j for
// exploration tooling. The mirror is optional: when NEO4J_URI is unset the
// engine runs without it and every sync is a no-op.
package graph

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/revisify/backend/internal/logger"
	"github.com/revisify/backend/internal/types"
)

type Mirror struct {
	driver   neo4j.DriverWithContext
	database string
	log      *logger.Logger
}

// NewFromEnv builds the mirror from NEO4J_* environment variables. A blank
// NEO4J_URI returns (nil, nil); callers treat a nil mirror as disabled.
func NewFromEnv(log *logger.Logger) (*Mirror, error) {
	if log == nil {
		return nil, fmt.Errorf("graph: logger required")
	}

	uri := strings.TrimSpace(os.Getenv("NEO4J_URI"))
	if uri == "" {
		return nil, nil
	}

	user := strings.TrimSpace(os.Getenv("NEO4J_USER"))
	if user == "" {
		user = "neo4j"
	}
	password := strings.TrimSpace(os.Getenv("NEO4J_PASSWORD"))
	database := strings.TrimSpace(os.Getenv("NEO4J_DATABASE"))

	timeoutSec := 10
	if v := strings.TrimSpace(os.Getenv("NEO4J_TIMEOUT_SECONDS")); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			timeoutSec = parsed
		}
	}

	auth := neo4j.BasicAuth(user, password, "")
	driver, err := neo4j.NewDriverWithContext(uri, auth, func(cfg *neo4j.Config) {
		cfg.SocketConnectTimeout = time.Duration(timeoutSec) * time.Second
	})
	if err != nil {
		return nil, fmt.Errorf("graph: init driver: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeoutSec)*time.Second)
	defer cancel()
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("graph: verify connectivity: %w", err)
	}

	return &Mirror{
		driver:   driver,
		database: database,
		log:      log.With("client", "ConceptGraphMirror"),
	}, nil
}

// SyncRoadmap replaces the mirrored graph for a document with the given
// concepts and prerequisite edges. Nodes from superseded versions are
// removed first so the mirror always reflects the current version only.
func (m *Mirror) SyncRoadmap(ctx context.Context, documentID uint, version int, concepts []*types.Concept, edges []*types.PrereqEdge) error {
	if m == nil {
		return nil
	}

	_, err := neo4j.ExecuteQuery(ctx, m.driver,
		`MATCH (c:Concept {document_id: $document_id}) DETACH DELETE c`,
		map[string]any{"document_id": int64(documentID)},
		neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithDatabase(m.database))
	if err != nil {
		return fmt.Errorf("graph: clear document %d: %w", documentID, err)
	}

	for _, c := range concepts {
		_, err := neo4j.ExecuteQuery(ctx, m.driver,
			`MERGE (c:Concept {concept_id: $concept_id})
			 SET c.document_id = $document_id,
			     c.version = $version,
			     c.name = $name,
			     c.description = $description`,
			map[string]any{
				"concept_id":  int64(c.ID),
				"document_id": int64(documentID),
				"version":     int64(version),
				"name":        c.Name,
				"description": c.Description,
			},
			neo4j.EagerResultTransformer,
			neo4j.ExecuteQueryWithDatabase(m.database))
		if err != nil {
			return fmt.Errorf("graph: merge concept %d: %w", c.ID, err)
		}
	}

	for _, e := range edges {
		_, err := neo4j.ExecuteQuery(ctx, m.driver,
			`MATCH (c:Concept {concept_id: $concept_id}), (p:Concept {concept_id: $prerequisite_id})
			 MERGE (c)-[:REQUIRES]->(p)`,
			map[string]any{
				"concept_id":      int64(e.ConceptID),
				"prerequisite_id": int64(e.PrerequisiteID),
			},
			neo4j.EagerResultTransformer,
			neo4j.ExecuteQueryWithDatabase(m.database))
		if err != nil {
			return fmt.Errorf("graph: merge edge %d->%d: %w", e.ConceptID, e.PrerequisiteID, err)
		}
	}

	m.log.Info("Mirrored concept graph",
		"document_id", documentID,
		"version", version,
		"concepts", len(concepts),
		"edges", len(edges))
	return nil
}

func (m *Mirror) Close(ctx context.Context) error {
	if m == nil || m.driver == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	err := m.driver.Close(ctx)
	m.driver = nil
	return err
}
