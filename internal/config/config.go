// Package config loads the irflow configuration file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"slices"
	"strings"

	yaml "gopkg.in/yaml.v3"

	"github.com/715d/irflow/pkg/ir"
	"github.com/715d/irflow/pkg/misuse"
	"github.com/715d/irflow/pkg/typestate"
)

// Algorithms are the accepted call graph algorithm names.
var Algorithms = []string{"cha", "rta", "vta"}

// ErrInvalid is wrapped by every validation error.
var ErrInvalid = errors.New("invalid configuration")

// Config is the complete tool configuration.
type Config struct {
	// Algorithm selects the call graph strategy: cha, rta or vta.
	Algorithm string `yaml:"algorithm"`

	// Parallelism bounds concurrent per-method analyses; 0 means NumCPU.
	Parallelism int `yaml:"parallelism"`

	Typestate Typestate `yaml:"typestate"`
	Misuse    Misuse    `yaml:"misuse"`

	// EntryPoints override the program's entry points when non-empty.
	EntryPoints []string `yaml:"entrypoints"`

	// LibraryPrefixes are class name prefixes never reported unreachable.
	LibraryPrefixes []string `yaml:"library-prefixes"`
}

// Typestate configures the resource lifecycle analysis.
type Typestate struct {
	ResourceType string `yaml:"resource-type"`
	OpenMethod   string `yaml:"open-method"`
	CloseMethod  string `yaml:"close-method"`
}

// Misuse configures the insecure factory check.
type Misuse struct {
	FactoryClass  string `yaml:"factory-class"`
	FactoryMethod string `yaml:"factory-method"`
	ApprovedValue string `yaml:"approved-value"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	ts := typestate.DefaultConfig()
	mu := misuse.DefaultConfig()
	return &Config{
		Algorithm: "vta",
		Typestate: Typestate{
			ResourceType: string(ts.ResourceType),
			OpenMethod:   ts.OpenMethod,
			CloseMethod:  ts.CloseMethod,
		},
		Misuse: Misuse{
			FactoryClass:  string(mu.FactoryClass),
			FactoryMethod: mu.FactoryMethod,
			ApprovedValue: mu.ApprovedValue,
		},
		LibraryPrefixes: []string{"java.", "javax.", "sun."},
	}
}

// Load reads the file at path over the defaults. An empty path returns the
// defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg, err := Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes a configuration document over the defaults and validates it.
func Parse(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration and normalizes the algorithm name.
func (c *Config) Validate() error {
	c.Algorithm = strings.ToLower(c.Algorithm)
	if !slices.Contains(Algorithms, c.Algorithm) {
		return fmt.Errorf("%w: unknown algorithm %q (want one of %s)", ErrInvalid, c.Algorithm, strings.Join(Algorithms, ", "))
	}
	if c.Parallelism < 0 {
		return fmt.Errorf("%w: parallelism must not be negative", ErrInvalid)
	}
	for _, f := range []struct{ name, value string }{
		{"typestate.resource-type", c.Typestate.ResourceType},
		{"typestate.open-method", c.Typestate.OpenMethod},
		{"typestate.close-method", c.Typestate.CloseMethod},
		{"misuse.factory-class", c.Misuse.FactoryClass},
		{"misuse.factory-method", c.Misuse.FactoryMethod},
	} {
		if strings.TrimSpace(f.value) == "" {
			return fmt.Errorf("%w: %s must not be empty", ErrInvalid, f.name)
		}
	}
	return nil
}

// Workers returns the effective parallelism.
func (c *Config) Workers() int {
	if c.Parallelism > 0 {
		return c.Parallelism
	}
	return runtime.NumCPU()
}

// TypestateConfig returns the typestate analysis configuration.
func (c *Config) TypestateConfig() typestate.Config {
	return typestate.Config{
		ResourceType: ir.ClassType(c.Typestate.ResourceType),
		OpenMethod:   c.Typestate.OpenMethod,
		CloseMethod:  c.Typestate.CloseMethod,
	}
}

// MisuseConfig returns the misuse analysis configuration.
func (c *Config) MisuseConfig() misuse.Config {
	return misuse.Config{
		FactoryClass:  ir.ClassType(c.Misuse.FactoryClass),
		FactoryMethod: c.Misuse.FactoryMethod,
		ApprovedValue: c.Misuse.ApprovedValue,
	}
}
