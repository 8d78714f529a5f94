// Package neo4j stores transform lineage as a property graph:
//
//	(:Session)-[:UPLOADED]->(:File)-[:WRITTEN_IN]->(:Language)
//	(:File)-[:TRANSFORMED_TO {strategy, reduction, at}]->(:Target)
package neo4j

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/efebarandurmaz/phoenix/internal/lineage"
)

const recordCypher = `
MERGE (s:Session {id: $session})
MERGE (f:File {session: $session, name: $file})
MERGE (s)-[:UPLOADED]->(f)
MERGE (l:Language {label: $source})
SET l.family = $family
MERGE (f)-[:WRITTEN_IN]->(l)
MERGE (t:Target {label: $target})
CREATE (f)-[:TRANSFORMED_TO {strategy: $strategy, reduction: $reduction, at: $at}]->(t)`

const historyCypher = `
MATCH (:Session {id: $session})-[:UPLOADED]->(f:File)-[r:TRANSFORMED_TO]->(t:Target)
MATCH (f)-[:WRITTEN_IN]->(l:Language)
RETURN f.name AS file, l.label AS source, l.family AS family, t.label AS target,
       r.strategy AS strategy, r.reduction AS reduction, r.at AS at
ORDER BY r.at`

// Repository implements lineage.Repository on Neo4j.
type Repository struct {
	driver neo4j.DriverWithContext
}

// New connects to uri and verifies connectivity.
func New(ctx context.Context, uri, username, password string) (*Repository, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, fmt.Errorf("neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, fmt.Errorf("neo4j connectivity: %w", err)
	}
	return &Repository{driver: driver}, nil
}

func (r *Repository) RecordTransform(ctx context.Context, ev lineage.Event) error {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		_, err := tx.Run(ctx, recordCypher, eventParams(ev))
		return nil, err
	})
	if err != nil {
		return fmt.Errorf("record lineage %s/%s: %w", ev.SessionID, ev.Filename, err)
	}
	return nil
}

func eventParams(ev lineage.Event) map[string]any {
	return map[string]any{
		"session":   ev.SessionID,
		"file":      ev.Filename,
		"source":    ev.SourceLanguage,
		"family":    ev.Family,
		"target":    ev.TargetLanguage,
		"strategy":  ev.Strategy,
		"reduction": int64(ev.Reduction),
		"at":        ev.At,
	}
}

func (r *Repository) History(ctx context.Context, sessionID string) ([]lineage.Event, error) {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		records, err := tx.Run(ctx, historyCypher, map[string]any{"session": sessionID})
		if err != nil {
			return nil, err
		}
		var out []lineage.Event
		for records.Next(ctx) {
			out = append(out, eventFromRecord(sessionID, records.Record()))
		}
		return out, records.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("lineage history %s: %w", sessionID, err)
	}
	return result.([]lineage.Event), nil
}

func eventFromRecord(sessionID string, rec *neo4j.Record) lineage.Event {
	ev := lineage.Event{SessionID: sessionID}
	ev.Filename, _, _ = neo4j.GetRecordValue[string](rec, "file")
	ev.SourceLanguage, _, _ = neo4j.GetRecordValue[string](rec, "source")
	ev.Family, _, _ = neo4j.GetRecordValue[string](rec, "family")
	ev.TargetLanguage, _, _ = neo4j.GetRecordValue[string](rec, "target")
	ev.Strategy, _, _ = neo4j.GetRecordValue[string](rec, "strategy")
	if n, _, err := neo4j.GetRecordValue[int64](rec, "reduction"); err == nil {
		ev.Reduction = int(n)
	}
	if at, _, err := neo4j.GetRecordValue[time.Time](rec, "at"); err == nil {
		ev.At = at
	}
	return ev
}

// Ping verifies the server is reachable.
func (r *Repository) Ping(ctx context.Context) error {
	return r.driver.VerifyConnectivity(ctx)
}

func (r *Repository) Close(ctx context.Context) error {
	return r.driver.Close(ctx)
}

var _ lineage.Repository = (*Repository)(nil)
