package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/715d/irflow/internal/analysis"
	"github.com/715d/irflow/internal/export"
	"github.com/715d/irflow/pkg/callgraph"
	"github.com/715d/irflow/pkg/irflow"
	"github.com/715d/irflow/pkg/report"
)

func writeDOTFile(path string, g *callgraph.Graph, name string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := export.WriteDOT(f, g, name); err != nil {
		_ = f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}

func uploadNeo4j(ctx context.Context, g *callgraph.Graph, algorithm string) error {
	loader, err := export.NewNeo4jLoader(ctx, cfg.Neo4jURI, cfg.Neo4jUser, cfg.Neo4jPassword)
	if err != nil {
		return err
	}
	defer func() {
		if err := loader.Close(ctx); err != nil {
			slog.Warn("closing neo4j driver", "error", err)
		}
	}()

	if err := loader.CreateIndexes(ctx); err != nil {
		return err
	}
	label := strings.ToUpper(algorithm)
	if cfg.Neo4jClean {
		if err := loader.Clean(ctx, label); err != nil {
			return err
		}
	}
	return loader.Load(ctx, g, label)
}

type jOutput struct {
	Algorithm   string                     `json:"algorithm,omitempty"`
	Edges       []jEdge                    `json:"edges,omitempty"`
	Findings    []report.Finding           `json:"findings,omitempty"`
	Unreachable []irflow.UnreachableMethod `json:"unreachable,omitempty"`
	Stats       any                        `json:"stats"`
	Version     string                     `json:"version"`
	Timestamp   string                     `json:"timestamp"`
}

type jEdge struct {
	Caller string `json:"caller"`
	Callee string `json:"callee"`
}

func writeJSON(w io.Writer, out jOutput) error {
	out.Version = version
	out.Timestamp = time.Now().UTC().Format(time.RFC3339)
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling json output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func writeCallGraph(w io.Writer, algorithm string, g *callgraph.Graph, dur time.Duration) error {
	stats := struct {
		callgraph.Stats
		Duration time.Duration `json:"analysis_duration"`
	}{g.Stats(), dur}

	if cfg.JSON {
		edges := make([]jEdge, 0, g.NumEdges())
		for _, e := range g.Edges() {
			edges = append(edges, jEdge{Caller: e.Caller.String(), Callee: e.Callee.String()})
		}
		return writeJSON(w, jOutput{Algorithm: strings.ToUpper(algorithm), Edges: edges, Stats: stats})
	}

	if cfg.Verbose {
		slog.Info("",
			"algorithm", strings.ToUpper(algorithm),
			"nodes", stats.Nodes,
			"edges", stats.Edges,
			"cycles", stats.Cycles,
			"analysis_duration", dur.String())
	}

	names := analysis.NewNameCache()
	var output strings.Builder
	for _, e := range g.Edges() {
		if cfg.Verbose {
			output.WriteString(e.String())
		} else {
			output.WriteString(names.ComputeMethodName(e.Caller) + " -> " + names.ComputeMethodName(e.Callee))
		}
		output.WriteByte('\n')
	}
	_, err := io.WriteString(w, output.String())
	return err
}

func writeFindings(w io.Writer, res *irflow.CheckResult, dur time.Duration) error {
	active := res.Active()
	stats := struct {
		Methods    int           `json:"methods"`
		Findings   int           `json:"findings"`
		Suppressed int           `json:"suppressed"`
		Duration   time.Duration `json:"analysis_duration"`
	}{res.Methods, len(active), len(res.Findings) - len(active), dur}

	if cfg.JSON {
		return writeJSON(w, jOutput{Findings: res.Findings, Stats: stats})
	}

	if cfg.Verbose {
		slog.Info("",
			"methods", stats.Methods,
			"findings", stats.Findings,
			"suppressed", stats.Suppressed,
			"analysis_duration", dur.String())
	}
	if len(active) == 0 {
		slog.Info("no findings")
		return nil
	}

	var output strings.Builder
	for _, f := range active {
		output.WriteString(f.String())
		output.WriteByte('\n')
	}
	_, err := io.WriteString(w, output.String())
	return err
}

func writeUnreachable(w io.Writer, res *irflow.UnreachableResult, dur time.Duration) error {
	stats := struct {
		Methods     int           `json:"total_methods"`
		Unreachable int           `json:"unreachable_methods"`
		Suppressed  int           `json:"suppressed_methods"`
		Duration    time.Duration `json:"analysis_duration"`
	}{res.Total, len(res.Methods), res.Suppressed, dur}

	if cfg.JSON {
		return writeJSON(w, jOutput{Unreachable: res.Methods, Stats: stats})
	}

	if cfg.Verbose {
		slog.Info("",
			"total_methods", stats.Methods,
			"unreachable_methods", stats.Unreachable,
			"suppressed_methods", stats.Suppressed,
			"analysis_duration", dur.String())
	}
	if len(res.Methods) == 0 {
		slog.Info("no unreachable methods found")
		return nil
	}

	var output strings.Builder
	for _, m := range res.Methods {
		if !cfg.Verbose {
			fmt.Fprintf(&output, "%s:%d %s\n", m.Class, m.Line, m.Name)
		} else {
			fmt.Fprintf(&output, "  %s:%d %s (%s)\n", m.Signature, m.Line, m.Name, m.Reason)
		}
	}
	_, err := io.WriteString(w, output.String())
	return err
}
