// Package graph stores semantic relationships between projects in Neo4j.
// Queries are fixed-pattern merges and lookups; there is no traversal.
package graph

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"trellis-api/domain"
)

// Store wraps a Neo4j driver scoped to project relationship queries.
type Store struct {
	driver neo4j.DriverWithContext
}

// New connects to Neo4j and verifies connectivity.
func New(ctx context.Context, uri, user, password string) (*Store, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, password, ""))
	if err != nil {
		return nil, err
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		return nil, err
	}
	return &Store{driver: driver}, nil
}

// Close releases the underlying driver.
func (s *Store) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

// linkQuery builds the MERGE statement for a relationship. The relationship
// type is interpolated into the query text because Cypher cannot parameterize
// it; t must already be a validated LinkType, never raw input.
func linkQuery(t domain.LinkType) string {
	return fmt.Sprintf(`MERGE (a:Project {id: $fromId, ownerId: $ownerId})
MERGE (b:Project {id: $toId, ownerId: $ownerId})
MERGE (a)-[r:%s]->(b)
SET r.updatedAt = datetime()`, t)
}

const linksQuery = `MATCH (a:Project {id: $projectId, ownerId: $ownerId})-[r]->(b:Project {ownerId: $ownerId})
RETURN type(r) AS type, b.id AS toProjectId`

// Link merges both project nodes and one relationship between them.
func (s *Store) Link(ctx context.Context, ownerID, fromID, toID string, linkType domain.LinkType) error {
	if !linkType.Valid() {
		return fmt.Errorf("%w: unknown link type %q", domain.ErrInvalidArgument, linkType)
	}
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return tx.Run(ctx, linkQuery(linkType), map[string]any{
			"fromId":  fromID,
			"toId":    toID,
			"ownerId": ownerID,
		})
	})
	return err
}

// Links returns the outgoing relationships of one project, scoped to the owner.
func (s *Store) Links(ctx context.Context, ownerID, projectID string) ([]domain.Link, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	records, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, linksQuery, map[string]any{
			"projectId": projectID,
			"ownerId":   ownerID,
		})
		if err != nil {
			return nil, err
		}
		return res.Collect(ctx)
	})
	if err != nil {
		return nil, err
	}

	links := []domain.Link{}
	for _, rec := range records.([]*neo4j.Record) {
		typeVal, _ := rec.Get("type")
		toVal, _ := rec.Get("toProjectId")
		linkType, ok := typeVal.(string)
		if !ok {
			continue
		}
		to, ok := toVal.(string)
		if !ok {
			continue
		}
		links = append(links, domain.Link{Type: domain.LinkType(linkType), ToProjectID: to})
	}
	return links, nil
}
