// Package frontend loads programs written as YAML class declarations whose
// method bodies use a Jimple-like statement syntax.
package frontend

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	yaml "gopkg.in/yaml.v3"

	"github.com/715d/irflow/pkg/ir"
	"github.com/715d/irflow/pkg/view"
)

const objectClass ir.ClassType = "java.lang.Object"

// ErrDuplicateClass is returned when two program files declare the same
// class.
var ErrDuplicateClass = errors.New("duplicate class")

// LoaderOptions configures program loading.
type LoaderOptions struct {
	// Paths are program files or directories. Directories contribute the
	// *.yaml and *.yml files directly inside them that declare classes.
	// Other YAML files, such as fixture expectations, are skipped.
	Paths []string

	// EntryPoints replaces the entry points declared by the files when
	// non-empty.
	EntryPoints []string
}

type programFile struct {
	EntryPoints []string    `yaml:"entrypoints"`
	Classes     []classDecl `yaml:"classes"`
}

type classDecl struct {
	Name       string       `yaml:"name"`
	Super      string       `yaml:"super"`
	Interfaces []string     `yaml:"interfaces"`
	Interface  bool         `yaml:"interface"`
	Library    bool         `yaml:"library"`
	Methods    []methodDecl `yaml:"methods"`
}

type methodDecl struct {
	Name     string            `yaml:"name"`
	Params   []string          `yaml:"params"`
	Returns  string            `yaml:"returns"`
	Static   bool              `yaml:"static"`
	Abstract bool              `yaml:"abstract"`
	Locals   map[string]string `yaml:"locals"`
	Body     string            `yaml:"body"`
}

// LoadPrograms loads and merges the program files named by opts.
func LoadPrograms(ctx context.Context, opts LoaderOptions) (*view.Program, error) {
	sources, err := expandPaths(opts.Paths)
	if err != nil {
		return nil, err
	}

	var prog *view.Program
	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := os.ReadFile(src.path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", src.path, err)
		}
		if src.scanned && !isProgramDocument(data) {
			slog.Debug("skipping non-program file", "path", src.path)
			continue
		}
		if prog == nil {
			prog = view.NewProgram(strings.TrimSuffix(filepath.Base(src.path), filepath.Ext(src.path)))
		}
		if err := decodeInto(prog, bytes.NewReader(data), src.path); err != nil {
			return nil, err
		}
		slog.Debug("loaded program file", "path", src.path, "classes", len(prog.Classes()))
	}
	if prog == nil {
		return nil, fmt.Errorf("no program files found in %v", opts.Paths)
	}

	if len(opts.EntryPoints) > 0 {
		prog.EntryPoints = nil
		for _, ep := range opts.EntryPoints {
			sig, err := ParseMethodSignature(ep)
			if err != nil {
				return nil, fmt.Errorf("entry point: %w", err)
			}
			prog.EntryPoints = append(prog.EntryPoints, sig)
		}
	}
	return prog, nil
}

// LoadFile loads a single program file.
func LoadFile(ctx context.Context, path string) (*view.Program, error) {
	return LoadPrograms(ctx, LoaderOptions{Paths: []string{path}})
}

// Load reads one program document from r. Name labels errors.
func Load(r io.Reader, name string) (*view.Program, error) {
	prog := view.NewProgram(name)
	if err := decodeInto(prog, r, name); err != nil {
		return nil, err
	}
	return prog, nil
}

// source is a file to load. Scanned files were found by listing a directory
// rather than named explicitly.
type source struct {
	path    string
	scanned bool
}

func expandPaths(paths []string) ([]source, error) {
	var files []source
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", p, err)
		}
		if !info.IsDir() {
			files = append(files, source{path: p})
			continue
		}
		entries, err := os.ReadDir(p)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", p, err)
		}
		for _, e := range entries {
			ext := filepath.Ext(e.Name())
			if !e.IsDir() && (ext == ".yaml" || ext == ".yml") {
				files = append(files, source{path: filepath.Join(p, e.Name()), scanned: true})
			}
		}
	}
	// An explicitly named file sorts ahead of, and so replaces, the same file
	// found in a directory.
	slices.SortFunc(files, func(a, b source) int {
		if c := strings.Compare(a.path, b.path); c != 0 {
			return c
		}
		switch {
		case a.scanned == b.scanned:
			return 0
		case b.scanned:
			return -1
		default:
			return 1
		}
	})
	return slices.CompactFunc(files, func(a, b source) bool {
		return a.path == b.path
	}), nil
}

// isProgramDocument reports whether data is a YAML mapping with a classes
// key. The configuration file also declares entrypoints, so that key alone
// does not mark a program. Malformed YAML counts as a program so its decode error is
// reported.
func isProgramDocument(data []byte) bool {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return true
	}
	if len(doc.Content) == 0 {
		return false
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return false
	}
	for i := 0; i+1 < len(root.Content); i += 2 {
		if root.Content[i].Value == "classes" {
			return true
		}
	}
	return false
}

func decodeInto(prog *view.Program, r io.Reader, name string) error {
	var file programFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decoding %s: %w", name, err)
	}

	for _, decl := range file.Classes {
		if decl.Name == "" {
			return fmt.Errorf("%s: class without a name", name)
		}
		if _, ok := prog.Class(ir.ClassType(decl.Name)); ok {
			return fmt.Errorf("%s: %w %s", name, ErrDuplicateClass, decl.Name)
		}
		class, err := buildClass(decl)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		prog.AddClass(class)
	}

	for _, ep := range file.EntryPoints {
		sig, err := ParseMethodSignature(ep)
		if err != nil {
			return fmt.Errorf("%s: entry point: %w", name, err)
		}
		prog.EntryPoints = append(prog.EntryPoints, sig)
	}
	return nil
}

func buildClass(decl classDecl) (*view.Class, error) {
	name := ir.ClassType(decl.Name)
	super := ir.ClassType(decl.Super)
	if super == "" && !decl.Interface && name != objectClass {
		super = objectClass
	}
	var ifaces []ir.ClassType
	for _, i := range decl.Interfaces {
		ifaces = append(ifaces, ir.ClassType(i))
	}

	class := view.NewClass(name, super, ifaces, decl.Interface)
	class.Library = decl.Library
	for _, md := range decl.Methods {
		m, err := buildMethod(name, md)
		if err != nil {
			return nil, fmt.Errorf("class %s: %w", name, err)
		}
		class.AddMethod(m)
	}
	return class, nil
}

func buildMethod(class ir.ClassType, md methodDecl) (*view.Method, error) {
	if md.Name == "" {
		return nil, errors.New("method without a name")
	}
	ret := ir.Type(md.Returns)
	if ret == "" {
		ret = ir.Void
	}
	var params []ir.Type
	for _, p := range md.Params {
		params = append(params, ir.Type(p))
	}
	sig := ir.MethodSignature{Class: class, Name: md.Name, Params: params, Return: ret}

	var body *ir.Body
	if strings.TrimSpace(md.Body) != "" {
		if md.Abstract {
			return nil, fmt.Errorf("method %s: abstract method with a body", sig.SubSignature())
		}
		locals := make(map[string]ir.Type, len(md.Locals))
		for n, t := range md.Locals {
			locals[n] = ir.Type(t)
		}
		var err error
		body, err = ParseBody(md.Body, locals)
		if err != nil {
			return nil, fmt.Errorf("method %s: %w", sig.SubSignature(), err)
		}
	}

	m := view.NewMethod(sig, md.Static, body)
	m.Abstract = md.Abstract || body == nil
	return m, nil
}
