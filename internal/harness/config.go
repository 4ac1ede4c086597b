package harness

// Configuration is one analysis run over a test case's program.
type Configuration struct {
	// Name is a descriptive name for this configuration.
	Name string `yaml:"name"`

	// Algorithm is the call graph strategy: cha, rta or vta.
	Algorithm string `yaml:"algorithm"`

	// Analyses restricts the per-method analyses; empty runs all of them.
	Analyses []string `yaml:"analyses,omitempty"`

	// EntryPoints override the program's entry points.
	EntryPoints []string `yaml:"entrypoints,omitempty"`

	// ExpectedEdges lists every call edge as "Caller.m() -> Callee.n()".
	// Nil skips the edge check.
	ExpectedEdges []string `yaml:"expected_edges"`

	// ExpectedUnreachable lists the methods expected to be reported as
	// unreachable. Nil skips the check.
	ExpectedUnreachable []ExpectedMethod `yaml:"expected_unreachable"`

	// ExpectedFindings lists the expected typestate and misuse findings,
	// suppressed ones included. Nil skips the check.
	ExpectedFindings []ExpectedFinding `yaml:"expected_findings"`

	// ExpectedErrors lists any expected error messages.
	ExpectedErrors []string `yaml:"expected_errors"`
}

// ExpectedMethod is a method expected to be reported as unreachable.
type ExpectedMethod struct {
	// Method is the display name, e.g. "Main.unused()".
	Method string `yaml:"method"`

	// Reason describes why the method is unreachable.
	Reason string `yaml:"reason"`
}

// ExpectedFinding is a statement expected to be reported.
type ExpectedFinding struct {
	Analysis   string `yaml:"analysis"`
	Method     string `yaml:"method"`
	Line       int    `yaml:"line"`
	Suppressed bool   `yaml:"suppressed,omitempty"`
}
