// Package main implements the irflow command line driver.
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"runtime/pprof"

	"github.com/spf13/cobra"

	"github.com/715d/irflow/internal/config"
)

// Config holds all command-line configuration options.
type Config struct {
	Paths       []string // program files or directories
	ConfigFile  string   // YAML configuration file
	Algorithm   string   // call graph algorithm, overrides the file
	EntryPoints []string // entry point signatures, override the program
	Workers     int      // parallel method analyses, overrides the file
	Analyses    []string // analyses run by check
	Verbose     bool     // enables detailed output and statistics
	JSON        bool     // enables JSON output format
	Profile     bool     // enables CPU and memory profiling

	DOTFile       string // callgraph: write DOT here
	Neo4jURI      string // callgraph: upload to this database
	Neo4jUser     string
	Neo4jPassword string
	Neo4jClean    bool // callgraph: drop the algorithm's edges first
}

const (
	exitFindings = 1
	exitError    = 2
)

var (
	// Set via ldflags during build.
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

var cfg Config

func main() {
	var rootCmd = &cobra.Command{
		Use:   "irflow",
		Short: "Call graphs and dataflow checks over a statement-level IR",
		Long: `irflow builds whole-program call graphs (CHA, RTA, VTA) over programs
written in a Jimple-like IR and runs per-method dataflow checks on them.

Commands:
- callgraph:   build a call graph, optionally exporting it to DOT or Neo4j
- check:       report resource leaks and insecure cipher configurations
- unreachable: report methods the call graph never reaches`,
		Example: `  irflow callgraph --algorithm rta program.yaml
  irflow callgraph --dot graph.dot testdata/shapes
  irflow check -v ./programs
  irflow unreachable --json program.yaml > report.json`,
		PersistentPreRunE:  setup,
		PersistentPostRunE: teardown,
		SilenceUsage:       true,
		SilenceErrors:      true,
		Version:            version,
	}

	// Set custom version template to include build info.
	rootCmd.SetVersionTemplate(fmt.Sprintf("irflow version %s\n  commit: %s\n  built:  %s\n", version, gitCommit, buildTime))

	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&cfg.Verbose, "verbose", "v", false, "Enable verbose output")
	flags.BoolVar(&cfg.JSON, "json", false, "Output in JSON format")
	flags.BoolVar(&cfg.Profile, "profile", false, "Enable CPU and memory profiling (writes cpu.prof and mem.prof to current directory)")
	flags.StringVarP(&cfg.ConfigFile, "config", "c", "", "Configuration file")
	flags.StringVarP(&cfg.Algorithm, "algorithm", "a", "", "Call graph algorithm: cha, rta or vta")
	flags.StringSliceVar(&cfg.EntryPoints, "entry", nil, "Entry point method signatures")
	flags.IntVar(&cfg.Workers, "workers", 0, "Parallel method analyses (0 uses the configuration)")

	rootCmd.AddCommand(newCallGraphCmd(), newCheckCmd(), newUnreachableCmd())

	if err := rootCmd.Execute(); err != nil {
		_ = teardown(nil, nil)
		if err.Error() != "" {
			fmt.Fprintln(os.Stderr, err.Error())
		}
		var cErr codedError
		if errors.As(err, &cErr) {
			os.Exit(cErr.code)
		}
		os.Exit(exitError)
	}
}

// settings merges the configuration file with the command-line overrides.
func settings(cmd *cobra.Command) (*config.Config, error) {
	c, err := config.Load(cfg.ConfigFile)
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()
	if flags.Changed("algorithm") {
		c.Algorithm = cfg.Algorithm
	}
	if flags.Changed("entry") {
		c.EntryPoints = cfg.EntryPoints
	}
	if flags.Changed("workers") {
		c.Parallelism = cfg.Workers
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

var cpuProfile *os.File

func setup(_ *cobra.Command, _ []string) error {
	// Disable logger unless verbose flag is set.
	slog.SetDefault(slog.New(slog.DiscardHandler))
	if cfg.Verbose {
		opts := &slog.HandlerOptions{Level: slog.LevelDebug}
		var handler slog.Handler = slog.NewTextHandler(os.Stderr, opts)
		if cfg.JSON {
			handler = slog.NewJSONHandler(os.Stderr, opts)
		}
		slog.SetDefault(slog.New(handler))
	}

	if !cfg.Profile {
		return nil
	}

	var err error
	cpuProfile, err = os.Create("cpu.prof")
	if err != nil {
		return fmt.Errorf("creating cpu.prof: %w", err)
	}
	if err := pprof.StartCPUProfile(cpuProfile); err != nil {
		_ = cpuProfile.Close()
		cpuProfile = nil
		return fmt.Errorf("starting CPU profile: %w", err)
	}
	slog.Info("cpu profiling started", "file", "cpu.prof")
	return nil
}

func teardown(_ *cobra.Command, _ []string) error {
	if !cfg.Profile || cpuProfile == nil {
		return nil
	}

	pprof.StopCPUProfile()
	defer cpuProfile.Close()
	cpuProfile = nil
	slog.Info("cpu profiling stopped", "file", "cpu.prof")

	memFile, err := os.Create("mem.prof")
	if err != nil {
		return fmt.Errorf("creating mem.prof: %w", err)
	}
	defer memFile.Close()
	runtime.GC() // Get up-to-date statistics
	if err := pprof.WriteHeapProfile(memFile); err != nil {
		return fmt.Errorf("writing memory profile: %w", err)
	}
	slog.Info("memory profiling completed", "file", "mem.prof")
	return nil
}

func errWithCode(err error, code int) error {
	return codedError{err: err, code: code}
}

type codedError struct {
	err  error
	code int
}

func (e codedError) Error() string {
	if e.err != nil {
		return e.err.Error()
	}
	return ""
}

func (e codedError) Unwrap() error { return e.err }
