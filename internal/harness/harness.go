// Package harness runs the analyzer against the program fixtures under
// testdata and compares its output with each fixture's expected.yaml.
package harness

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/715d/irflow/internal/analysis"
	"github.com/715d/irflow/pkg/irflow"
)

// TestCase represents a single test scenario.
type TestCase struct {
	// Dir is the directory containing the program.
	Dir string `yaml:"-"`

	// Description says what the fixture exercises.
	Description string `yaml:"description"`

	// Configurations defines the runs to check.
	Configurations []Configuration `yaml:"configurations"`
}

// TestHarness manages test execution.
type TestHarness struct {
	// names computes display names for edges and findings
	names *analysis.NameCache

	// root is the root directory for test data
	root string
}

// NewHarness creates a new test harness.
func NewHarness(root string) *TestHarness {
	return &TestHarness{
		names: analysis.NewNameCache(),
		root:  root,
	}
}

// Run executes a test case with all its configurations.
func (h *TestHarness) Run(t *testing.T, tc *TestCase) *TestResult {
	t.Helper()
	require.NotEmpty(t, tc.Configurations, "test case has no configurations")

	var results []ConfigurationResult
	var allSuccess = true

	for _, cfg := range tc.Configurations {
		cfgResult := h.runConfiguration(t, tc, cfg)
		results = append(results, *cfgResult)
		if !cfgResult.Success {
			allSuccess = false
		}
	}

	var resultMsg string
	if allSuccess {
		resultMsg = fmt.Sprintf("All %d configurations passed", len(tc.Configurations))
	} else {
		failedCount := 0
		var msgs []string
		for _, cr := range results {
			if !cr.Success {
				failedCount++
				msgs = append(msgs, fmt.Sprintf("[%s] %s:\n  %s",
					cr.Configuration.Name, cr.Message, strings.Join(cr.Details, "\n  ")))
			}
		}
		resultMsg = fmt.Sprintf("%d/%d configurations failed:\n%s",
			failedCount, len(tc.Configurations), strings.Join(msgs, "\n"))
	}

	return &TestResult{
		TestCase:             tc,
		ConfigurationResults: results,
		Success:              allSuccess,
		Message:              resultMsg,
	}
}

// runConfiguration executes the analyses of a single configuration.
func (h *TestHarness) runConfiguration(t *testing.T, tc *TestCase, cfg Configuration) *ConfigurationResult {
	t.Helper()
	prog := LoadProgram(t, filepath.Join(h.root, tc.Dir), cfg.EntryPoints)
	analyzer := irflow.NewAnalyzer(irflow.AnalyzerOptions{
		Algorithm: cfg.Algorithm,
		Analyses:  cfg.Analyses,
	})

	cfgResult := &ConfigurationResult{Configuration: cfg, Success: true}
	fail := func(err error) *ConfigurationResult {
		for _, expectedErr := range cfg.ExpectedErrors {
			if strings.Contains(err.Error(), expectedErr) {
				cfgResult.Message = fmt.Sprintf("Got expected error: %v", err)
				return cfgResult
			}
		}
		require.NoError(t, err)
		return nil
	}

	g, err := analyzer.CallGraph(t.Context(), prog)
	if err != nil {
		return fail(err)
	}
	if cfg.ExpectedEdges != nil {
		var edges []string
		for _, e := range g.Edges() {
			edges = append(edges, h.names.ComputeMethodName(e.Caller)+" -> "+h.names.ComputeMethodName(e.Callee))
		}
		cfgResult.check("edge", cfg.ExpectedEdges, edges)
	}

	if cfg.ExpectedUnreachable != nil {
		res, err := analyzer.UnreachableIn(prog, g)
		if err != nil {
			return fail(err)
		}
		var expected, actual []string
		for _, m := range cfg.ExpectedUnreachable {
			expected = append(expected, m.Method)
		}
		for _, m := range res.Methods {
			actual = append(actual, m.Name)
		}
		cfgResult.check("unreachable method", expected, actual)
	}

	if cfg.ExpectedFindings != nil {
		res, err := analyzer.Check(t.Context(), prog)
		if err != nil {
			return fail(err)
		}
		var expected, actual []string
		for _, f := range cfg.ExpectedFindings {
			expected = append(expected, findingKey(f))
		}
		for _, f := range res.Findings {
			actual = append(actual, findingKey(ExpectedFinding{
				Analysis:   f.Analysis,
				Method:     h.names.ComputeMethodName(f.Method),
				Line:       f.Line,
				Suppressed: f.Suppressed,
			}))
		}
		cfgResult.check("finding", expected, actual)
	}

	if cfgResult.Success {
		cfgResult.Message = "All expectations met"
	} else {
		cfgResult.Message = fmt.Sprintf("%d mismatches", len(cfgResult.Details))
	}
	return cfgResult
}

func findingKey(f ExpectedFinding) string {
	key := fmt.Sprintf("%s:%d: %s", f.Method, f.Line, f.Analysis)
	if f.Suppressed {
		key += " (suppressed)"
	}
	return key
}

// ConfigurationResult represents the result of running a single configuration.
type ConfigurationResult struct {
	// Configuration is the configuration that was run.
	Configuration Configuration

	// Success indicates if this configuration passed.
	Success bool

	// Message provides a summary of the result for this configuration.
	Message string

	// Details lists every mismatch.
	Details []string
}

// check compares two sets of strings and records the differences.
func (r *ConfigurationResult) check(kind string, expected, actual []string) {
	expectedSet := make(map[string]struct{}, len(expected))
	for _, e := range expected {
		expectedSet[e] = struct{}{}
	}
	actualSet := make(map[string]struct{}, len(actual))
	for _, a := range actual {
		actualSet[a] = struct{}{}
	}

	var missing, unexpected []string
	for e := range expectedSet {
		if _, ok := actualSet[e]; !ok {
			missing = append(missing, e)
		}
	}
	for a := range actualSet {
		if _, ok := expectedSet[a]; !ok {
			unexpected = append(unexpected, a)
		}
	}

	// Sort for consistent output.
	sort.Strings(missing)
	sort.Strings(unexpected)

	for _, m := range missing {
		r.Details = append(r.Details, fmt.Sprintf("Missing %s: %s", kind, m))
	}
	for _, u := range unexpected {
		r.Details = append(r.Details, fmt.Sprintf("Unexpected %s: %s", kind, u))
	}
	if len(missing) > 0 || len(unexpected) > 0 {
		r.Success = false
	}
}

// TestResult represents the result of running a test case.
type TestResult struct {
	// TestCase is the test case that was run.
	TestCase *TestCase

	// ConfigurationResults contains results for each configuration.
	ConfigurationResults []ConfigurationResult

	// Success indicates if the test passed (all configurations passed)
	Success bool

	// Message provides a summary of the result.
	Message string
}
