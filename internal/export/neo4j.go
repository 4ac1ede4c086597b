package export

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/715d/irflow/pkg/callgraph"
)

// Runner executes one Cypher statement.
type Runner func(ctx context.Context, cypher string, params map[string]any) error

// Neo4jLoader uploads call graphs using batch UNWIND queries. Nodes are
// keyed by signature; edges carry the algorithm that produced them, so
// graphs from several algorithms can live side by side.
type Neo4jLoader struct {
	driver neo4j.DriverWithContext
	run    Runner
}

// NewNeo4jLoader connects to the database at uri.
func NewNeo4jLoader(ctx context.Context, uri, user, password string) (*Neo4jLoader, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, password, ""))
	if err != nil {
		return nil, fmt.Errorf("creating neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("connecting to %s: %w", uri, err)
	}
	l := &Neo4jLoader{driver: driver}
	l.run = func(ctx context.Context, cypher string, params map[string]any) error {
		_, err := neo4j.ExecuteQuery(ctx, driver, cypher, params, neo4j.EagerResultTransformer)
		return err
	}
	return l, nil
}

// NewNeo4jLoaderWithRunner returns a loader that sends every statement to
// run instead of a database.
func NewNeo4jLoaderWithRunner(run Runner) *Neo4jLoader {
	return &Neo4jLoader{run: run}
}

// Close releases the driver.
func (l *Neo4jLoader) Close(ctx context.Context) error {
	if l.driver == nil {
		return nil
	}
	return l.driver.Close(ctx)
}

// CreateIndexes ensures the method index exists.
func (l *Neo4jLoader) CreateIndexes(ctx context.Context) error {
	return l.run(ctx, "CREATE INDEX ir_method_sig IF NOT EXISTS FOR (n:Method) ON (n.signature)", nil)
}

// Clean removes the edges previously loaded for algorithm.
func (l *Neo4jLoader) Clean(ctx context.Context, algorithm string) error {
	return l.run(ctx,
		"MATCH ()-[r:CALLS {algorithm: $algorithm}]->() DELETE r",
		map[string]any{"algorithm": algorithm},
	)
}

// Load upserts the nodes and edges of g.
func (l *Neo4jLoader) Load(ctx context.Context, g *callgraph.Graph, algorithm string) error {
	slog.Info("loading call graph into neo4j", "algorithm", algorithm, "nodes", g.NumNodes(), "edges", g.NumEdges())

	nodes := make([]map[string]any, 0, g.NumNodes())
	for _, sig := range g.Nodes() {
		nodes = append(nodes, map[string]any{
			"sig":   sig.String(),
			"class": string(sig.Class),
			"name":  sig.Name,
		})
	}
	err := l.run(ctx,
		`UNWIND $batch AS row
		 MERGE (n:Method {signature: row.sig})
		 SET n.class = row.class, n.name = row.name`,
		map[string]any{"batch": nodes},
	)
	if err != nil {
		return fmt.Errorf("loading nodes: %w", err)
	}

	edges := make([]map[string]any, 0, g.NumEdges())
	for _, e := range g.Edges() {
		edges = append(edges, map[string]any{
			"caller": e.Caller.String(),
			"callee": e.Callee.String(),
		})
	}
	if len(edges) == 0 {
		return nil
	}
	err = l.run(ctx,
		`UNWIND $batch AS row
		 MATCH (caller:Method {signature: row.caller}), (callee:Method {signature: row.callee})
		 MERGE (caller)-[:CALLS {algorithm: $algorithm}]->(callee)`,
		map[string]any{"batch": edges, "algorithm": algorithm},
	)
	if err != nil {
		return fmt.Errorf("loading edges: %w", err)
	}
	return nil
}
