package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/715d/irflow/internal/config"
	"github.com/715d/irflow/pkg/irflow"
	"github.com/715d/irflow/pkg/view"
)

func newCallGraphCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "callgraph [paths...]",
		Short: "Build the call graph of a program",
		Args:  cobra.ArbitraryArgs,
		RunE:  runCallGraph,
	}
	cmd.Flags().StringVar(&cfg.DOTFile, "dot", "", "Write the call graph in Graphviz DOT format to this file")
	cmd.Flags().StringVar(&cfg.Neo4jURI, "neo4j-uri", "", "Upload the call graph to this Neo4j bolt URI")
	cmd.Flags().StringVar(&cfg.Neo4jUser, "neo4j-user", "neo4j", "Neo4j username")
	cmd.Flags().StringVar(&cfg.Neo4jPassword, "neo4j-password", "", "Neo4j password")
	cmd.Flags().BoolVar(&cfg.Neo4jClean, "neo4j-clean", false, "Remove previously uploaded edges of the same algorithm")
	return cmd
}

func newCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check [paths...]",
		Short: "Report resource leaks and insecure cipher configurations",
		Args:  cobra.ArbitraryArgs,
		RunE:  runCheck,
	}
	cmd.Flags().StringSliceVar(&cfg.Analyses, "analyses", nil, "Analyses to run: typestate, misuse (default all)")
	return cmd
}

func newUnreachableCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unreachable [paths...]",
		Short: "Report methods the call graph never reaches",
		Args:  cobra.ArbitraryArgs,
		RunE:  runUnreachable,
	}
}

// prepare loads the configuration and the program named by args.
func prepare(cmd *cobra.Command, args []string) (*config.Config, *view.Program, *irflow.Analyzer, error) {
	c, err := settings(cmd)
	if err != nil {
		return nil, nil, nil, errWithCode(err, exitError)
	}
	cfg.Paths = args
	if len(cfg.Paths) == 0 {
		cfg.Paths = []string{"."}
	}

	slog.Info("loading program", "paths", cfg.Paths)
	prog, err := irflow.LoadProgram(cmd.Context(), irflow.LoaderOptions{
		Paths:       cfg.Paths,
		EntryPoints: c.EntryPoints,
	})
	if err != nil {
		return nil, nil, nil, errWithCode(err, exitError)
	}
	slog.Info("loaded program", "classes", len(prog.Classes()))

	analyzer := irflow.NewAnalyzer(irflow.AnalyzerOptions{
		Algorithm:       c.Algorithm,
		Workers:         c.Workers(),
		Analyses:        cfg.Analyses,
		Typestate:       c.TypestateConfig(),
		Misuse:          c.MisuseConfig(),
		LibraryPrefixes: c.LibraryPrefixes,
	})
	return c, prog, analyzer, nil
}

func runCallGraph(cmd *cobra.Command, args []string) error {
	c, prog, analyzer, err := prepare(cmd, args)
	if err != nil {
		return err
	}
	start := time.Now()
	g, err := analyzer.CallGraph(cmd.Context(), prog)
	if err != nil {
		return errWithCode(fmt.Errorf("call graph: %w", err), exitError)
	}

	if cfg.DOTFile != "" {
		if err := writeDOTFile(cfg.DOTFile, g, prog.Name); err != nil {
			return errWithCode(err, exitError)
		}
		slog.Info("wrote dot file", "file", cfg.DOTFile)
	}
	if cfg.Neo4jURI != "" {
		if err := uploadNeo4j(cmd.Context(), g, c.Algorithm); err != nil {
			return errWithCode(fmt.Errorf("neo4j: %w", err), exitError)
		}
	}

	if err := writeCallGraph(os.Stdout, c.Algorithm, g, time.Since(start)); err != nil {
		return errWithCode(fmt.Errorf("format results: %w", err), exitError)
	}
	return nil
}

func runCheck(cmd *cobra.Command, args []string) error {
	_, prog, analyzer, err := prepare(cmd, args)
	if err != nil {
		return err
	}
	slog.Info("running analyses")
	start := time.Now()
	res, err := analyzer.Check(cmd.Context(), prog)
	if err != nil {
		return errWithCode(fmt.Errorf("check: %w", err), exitError)
	}
	if err := writeFindings(os.Stdout, res, time.Since(start)); err != nil {
		return errWithCode(fmt.Errorf("format results: %w", err), exitError)
	}
	if len(res.Active()) > 0 {
		return errWithCode(nil, exitFindings)
	}
	return nil
}

func runUnreachable(cmd *cobra.Command, args []string) error {
	_, prog, analyzer, err := prepare(cmd, args)
	if err != nil {
		return err
	}
	start := time.Now()
	res, err := analyzer.Unreachable(cmd.Context(), prog)
	if err != nil {
		return errWithCode(fmt.Errorf("unreachable: %w", err), exitError)
	}
	if err := writeUnreachable(os.Stdout, res, time.Since(start)); err != nil {
		return errWithCode(fmt.Errorf("format results: %w", err), exitError)
	}
	if len(res.Methods) > 0 {
		return errWithCode(nil, exitFindings)
	}
	return nil
}
