package callgraph

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/715d/irflow/pkg/view"
)

// Algorithm is a call graph construction strategy.
type Algorithm interface {
	// Algorithm returns the strategy's label, e.g. "CHA".
	Algorithm() string

	// Populate adds to g every method reachable from the entry points of v
	// and the call edges between them.
	Populate(ctx context.Context, v view.View, g *Graph) error
}

// Build runs a on v into a fresh graph.
func Build(ctx context.Context, a Algorithm, v view.View) (*Graph, error) {
	start := time.Now()
	g := New()
	if err := a.Populate(ctx, v, g); err != nil {
		return nil, fmt.Errorf("%s: %w", a.Algorithm(), err)
	}
	slog.Info("call graph ready", "algo", a.Algorithm(), "nodes", g.NumNodes(), "edges", g.NumEdges(), "dur", time.Since(start))
	return g, nil
}
