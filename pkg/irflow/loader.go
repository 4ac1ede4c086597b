package irflow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/715d/irflow/pkg/callgraph"
	"github.com/715d/irflow/pkg/frontend"
	"github.com/715d/irflow/pkg/view"
)

// LoaderOptions configures program loading.
type LoaderOptions struct {
	// Paths are program files or directories of them. Defaults to the
	// current directory.
	Paths []string

	// EntryPoints override the entry points declared by the program.
	EntryPoints []string
}

// LoadProgram loads the program files named by opts into one program.
func LoadProgram(ctx context.Context, opts LoaderOptions) (*view.Program, error) {
	paths := opts.Paths
	if len(paths) == 0 {
		paths = []string{"."}
	}

	prog, err := frontend.LoadPrograms(ctx, frontend.LoaderOptions{
		Paths:       paths,
		EntryPoints: opts.EntryPoints,
	})
	if err != nil {
		return nil, fmt.Errorf("loading program: %w", err)
	}

	if len(callgraph.EntryPoints(prog)) == 0 {
		slog.Warn("program has no entry points; call graphs will be empty", "paths", paths)
	}
	return prog, nil
}
