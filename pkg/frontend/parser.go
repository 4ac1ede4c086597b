package frontend

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
	"text/scanner"
	"unicode"

	"github.com/715d/irflow/pkg/ir"
)

// ErrSyntax is wrapped by every parse error.
var ErrSyntax = errors.New("syntax error")

var invokeKinds = map[string]ir.InvokeKind{
	"specialinvoke":   ir.InvokeSpecial,
	"staticinvoke":    ir.InvokeStatic,
	"virtualinvoke":   ir.InvokeVirtual,
	"interfaceinvoke": ir.InvokeInterface,
}

type token struct {
	kind rune // scanner.Ident, scanner.Int, scanner.String or the punctuation rune
	text string
}

// line is one non-empty line of body text.
type line struct {
	num     int
	toks    []token
	comment string
}

// ParseBody parses the statement text of one method body. Locals are interned
// by name; declared holds explicit local types.
func ParseBody(text string, declared map[string]ir.Type) (*ir.Body, error) {
	lines, err := tokenize(text)
	if err != nil {
		return nil, err
	}

	// Labels name the statement that follows them.
	labels := make(map[string]int)
	var stmtLines []line
	var pending []string
	for _, l := range lines {
		if len(l.toks) == 0 {
			continue
		}
		if len(l.toks) == 2 && l.toks[0].kind == scanner.Ident && l.toks[1].kind == ':' {
			pending = append(pending, l.toks[0].text)
			continue
		}
		for _, name := range pending {
			if _, dup := labels[name]; dup {
				return nil, fmt.Errorf("%w: line %d: duplicate label %q", ErrSyntax, l.num, name)
			}
			labels[name] = len(stmtLines)
		}
		pending = pending[:0]
		stmtLines = append(stmtLines, l)
	}
	if len(pending) > 0 {
		return nil, fmt.Errorf("%w: label %q does not precede a statement", ErrSyntax, pending[0])
	}

	p := &parser{
		labels: labels,
		locals: make(map[string]*ir.Local),
	}
	for _, name := range slices.Sorted(maps.Keys(declared)) {
		l := ir.NewLocal(name, declared[name])
		p.locals[name] = l
		p.order = append(p.order, l)
	}

	stmts := make([]ir.Stmt, 0, len(stmtLines))
	for _, l := range stmtLines {
		p.toks, p.i, p.line = l.toks, 0, l.num
		s, err := p.stmt()
		if err != nil {
			return nil, err
		}
		if !p.done() {
			return nil, p.errorf("unexpected %q", p.peek().text)
		}
		ir.SetSource(s, l.num, l.comment)
		stmts = append(stmts, s)
	}
	return ir.NewBody(p.order, stmts), nil
}

func tokenize(text string) ([]line, error) {
	var out []line
	for i, raw := range strings.Split(text, "\n") {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		l := line{num: i + 1}
		var s scanner.Scanner
		s.Init(strings.NewReader(raw))
		s.Mode = scanner.ScanIdents | scanner.ScanInts | scanner.ScanStrings | scanner.ScanComments
		s.IsIdentRune = func(ch rune, i int) bool {
			return ch == '_' || ch == '$' || unicode.IsLetter(ch) || i > 0 && (unicode.IsDigit(ch) || ch == '.')
		}
		var scanErr error
		s.Error = func(_ *scanner.Scanner, msg string) {
			scanErr = fmt.Errorf("%w: line %d: %s", ErrSyntax, l.num, msg)
		}
		for tok := s.Scan(); tok != scanner.EOF; tok = s.Scan() {
			text := s.TokenText()
			switch tok {
			case scanner.Comment:
				l.comment = strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(text, "//"), "/*"))
				l.comment = strings.TrimSpace(strings.TrimSuffix(l.comment, "*/"))
			case scanner.Ident:
				// "x.<A: T f>" scans as "x." followed by '<'.
				if trimmed, ok := strings.CutSuffix(text, "."); ok {
					l.toks = append(l.toks, token{scanner.Ident, trimmed}, token{'.', "."})
					continue
				}
				l.toks = append(l.toks, token{tok, text})
			default:
				l.toks = append(l.toks, token{tok, text})
			}
		}
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, l)
	}
	return out, nil
}

type parser struct {
	toks   []token
	i      int
	line   int
	labels map[string]int
	locals map[string]*ir.Local
	order  []*ir.Local
}

func (p *parser) errorf(format string, args ...any) error {
	return fmt.Errorf("%w: line %d: %s", ErrSyntax, p.line, fmt.Sprintf(format, args...))
}

func (p *parser) done() bool { return p.i >= len(p.toks) }

func (p *parser) peek() token {
	if p.done() {
		return token{scanner.EOF, "end of line"}
	}
	return p.toks[p.i]
}

func (p *parser) peekAt(n int) token {
	if p.i+n >= len(p.toks) {
		return token{scanner.EOF, "end of line"}
	}
	return p.toks[p.i+n]
}

func (p *parser) next() token {
	t := p.peek()
	if !p.done() {
		p.i++
	}
	return t
}

func (p *parser) accept(kind rune) bool {
	if p.peek().kind == kind {
		p.i++
		return true
	}
	return false
}

func (p *parser) expect(kind rune) (token, error) {
	t := p.next()
	if t.kind != kind {
		return t, p.errorf("expected %s, found %q", scanner.TokenString(kind), t.text)
	}
	return t, nil
}

func (p *parser) ident() (string, error) {
	t, err := p.expect(scanner.Ident)
	return t.text, err
}

func (p *parser) local(name string) *ir.Local {
	if l, ok := p.locals[name]; ok {
		return l
	}
	l := ir.NewLocal(name, "")
	p.locals[name] = l
	p.order = append(p.order, l)
	return l
}

func (p *parser) target() (int, error) {
	name, err := p.ident()
	if err != nil {
		return 0, err
	}
	idx, ok := p.labels[name]
	if !ok {
		return 0, p.errorf("unknown label %q", name)
	}
	return idx, nil
}

func (p *parser) stmt() (ir.Stmt, error) {
	t := p.peek()
	if t.kind == scanner.Ident {
		switch t.text {
		case "nop":
			p.next()
			return &ir.NopStmt{}, nil
		case "return":
			p.next()
			if p.done() {
				return &ir.ReturnVoidStmt{}, nil
			}
			v, err := p.rvalue()
			if err != nil {
				return nil, err
			}
			return &ir.ReturnStmt{Op: v}, nil
		case "goto":
			p.next()
			target, err := p.target()
			if err != nil {
				return nil, err
			}
			return &ir.GotoStmt{Target: target}, nil
		case "if":
			p.next()
			cond, err := p.rvalue()
			if err != nil {
				return nil, err
			}
			if kw, err := p.ident(); err != nil || kw != "goto" {
				return nil, p.errorf("expected goto after if condition")
			}
			target, err := p.target()
			if err != nil {
				return nil, err
			}
			return &ir.IfStmt{Cond: cond, Target: target}, nil
		}
		if _, ok := invokeKinds[t.text]; ok {
			call, err := p.invoke()
			if err != nil {
				return nil, err
			}
			return &ir.InvokeStmt{Call: call}, nil
		}
	}

	left, err := p.lvalue()
	if err != nil {
		return nil, err
	}
	if p.accept(':') {
		if _, err := p.expect('='); err != nil {
			return nil, err
		}
		l, ok := left.(*ir.Local)
		if !ok {
			return nil, p.errorf("identity statement must bind a local")
		}
		right, err := p.identityRef()
		if err != nil {
			return nil, err
		}
		if l.Typ == "" {
			l.Typ = right.Type()
		}
		return &ir.IdentityStmt{Left: l, Right: right}, nil
	}
	if _, err := p.expect('='); err != nil {
		return nil, err
	}
	right, err := p.rvalue()
	if err != nil {
		return nil, err
	}
	if l, ok := left.(*ir.Local); ok && l.Typ == "" {
		if typ := right.Type(); typ != "null" {
			l.Typ = typ
		}
	}
	return &ir.AssignStmt{Left: left, Right: right}, nil
}

func (p *parser) identityRef() (ir.Value, error) {
	if _, err := p.expect('@'); err != nil {
		return nil, err
	}
	name, err := p.ident()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(':'); err != nil {
		return nil, err
	}
	typ, err := p.typ()
	if err != nil {
		return nil, err
	}
	if name == "this" {
		return &ir.ThisRef{Class: ir.ClassType(typ)}, nil
	}
	idx, ok := strings.CutPrefix(name, "parameter")
	if !ok {
		return nil, p.errorf("unknown identity reference @%s", name)
	}
	n, err := strconv.Atoi(idx)
	if err != nil {
		return nil, p.errorf("bad parameter index %q", idx)
	}
	return &ir.ParameterRef{Index: n, Typ: typ}, nil
}

func (p *parser) lvalue() (ir.Value, error) {
	if p.peek().kind == '<' {
		f, err := p.fieldSig()
		if err != nil {
			return nil, err
		}
		return &ir.StaticFieldRef{Field: f}, nil
	}
	name, err := p.ident()
	if err != nil {
		return nil, err
	}
	base := p.local(name)
	if p.accept('.') {
		f, err := p.fieldSig()
		if err != nil {
			return nil, err
		}
		return &ir.InstanceFieldRef{Base: base, Field: f}, nil
	}
	return base, nil
}

func (p *parser) rvalue() (ir.Value, error) {
	t := p.peek()
	switch {
	case t.kind == scanner.Ident && t.text == "new":
		p.next()
		typ, err := p.typ()
		if err != nil {
			return nil, err
		}
		return &ir.NewExpr{Class: ir.ClassType(typ)}, nil
	case t.kind == scanner.Ident && isInvokeKeyword(t.text):
		return p.invoke()
	case t.kind == '(':
		p.next()
		typ, err := p.typ()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(')'); err != nil {
			return nil, err
		}
		op, err := p.value()
		if err != nil {
			return nil, err
		}
		return &ir.CastExpr{Op: op, To: typ}, nil
	}

	x, err := p.value()
	if err != nil {
		return nil, err
	}
	op, ok := p.binop()
	if !ok {
		return x, nil
	}
	y, err := p.value()
	if err != nil {
		return nil, err
	}
	return &ir.BinopExpr{Op: op, X: x, Y: y}, nil
}

func isInvokeKeyword(s string) bool {
	_, ok := invokeKinds[s]
	return ok
}

func (p *parser) binop() (string, bool) {
	t := p.peek()
	switch t.kind {
	case '=', '!', '<', '>':
		p.next()
		if p.accept('=') {
			return t.text + "=", true
		}
		if t.kind == '=' || t.kind == '!' {
			p.i--
			return "", false
		}
		return t.text, true
	case '+', '-', '*', '/', '%', '&', '|', '^':
		p.next()
		return t.text, true
	}
	return "", false
}

func (p *parser) value() (ir.Value, error) {
	t := p.peek()
	switch t.kind {
	case scanner.String:
		p.next()
		s, err := strconv.Unquote(t.text)
		if err != nil {
			return nil, p.errorf("bad string literal %s", t.text)
		}
		return &ir.StringConstant{Value: s}, nil
	case scanner.Int, '-':
		neg := p.accept('-')
		n, err := p.expect(scanner.Int)
		if err != nil {
			return nil, err
		}
		v, err := strconv.ParseInt(n.text, 0, 64)
		if err != nil {
			return nil, p.errorf("bad integer %s", n.text)
		}
		if neg {
			v = -v
		}
		return &ir.IntConstant{Value: v}, nil
	case '<':
		f, err := p.fieldSig()
		if err != nil {
			return nil, err
		}
		return &ir.StaticFieldRef{Field: f}, nil
	case scanner.Ident:
		if t.text == "null" {
			p.next()
			return &ir.NullConstant{}, nil
		}
		return p.lvalue()
	}
	return nil, p.errorf("expected value, found %q", t.text)
}

func (p *parser) invoke() (*ir.InvokeExpr, error) {
	kw, err := p.ident()
	if err != nil {
		return nil, err
	}
	kind, ok := invokeKinds[kw]
	if !ok {
		return nil, p.errorf("unknown invoke kind %q", kw)
	}
	call := &ir.InvokeExpr{Kind: kind}
	if kind != ir.InvokeStatic {
		name, err := p.ident()
		if err != nil {
			return nil, err
		}
		call.Base = p.local(name)
		if _, err := p.expect('.'); err != nil {
			return nil, err
		}
	}
	if call.Method, err = p.methodSig(); err != nil {
		return nil, err
	}
	if _, err := p.expect('('); err != nil {
		return nil, err
	}
	for !p.accept(')') {
		if len(call.Args) > 0 {
			if _, err := p.expect(','); err != nil {
				return nil, err
			}
		}
		arg, err := p.value()
		if err != nil {
			return nil, err
		}
		call.Args = append(call.Args, arg)
	}
	return call, nil
}

func (p *parser) typ() (ir.Type, error) {
	name, err := p.ident()
	if err != nil {
		return "", err
	}
	for p.peek().kind == '[' && p.peekAt(1).kind == ']' {
		p.i += 2
		name += "[]"
	}
	return ir.Type(name), nil
}

// memberName accepts plain identifiers and the bracketed "<init>" and
// "<clinit>" forms.
func (p *parser) memberName() (string, error) {
	if p.accept('<') {
		name, err := p.ident()
		if err != nil {
			return "", err
		}
		if _, err := p.expect('>'); err != nil {
			return "", err
		}
		return "<" + name + ">", nil
	}
	return p.ident()
}

func (p *parser) memberHead() (ir.ClassType, ir.Type, string, error) {
	if _, err := p.expect('<'); err != nil {
		return "", "", "", err
	}
	class, err := p.typ()
	if err != nil {
		return "", "", "", err
	}
	if _, err := p.expect(':'); err != nil {
		return "", "", "", err
	}
	typ, err := p.typ()
	if err != nil {
		return "", "", "", err
	}
	name, err := p.memberName()
	if err != nil {
		return "", "", "", err
	}
	return ir.ClassType(class), typ, name, nil
}

func (p *parser) methodSig() (ir.MethodSignature, error) {
	class, ret, name, err := p.memberHead()
	if err != nil {
		return ir.MethodSignature{}, err
	}
	if _, err := p.expect('('); err != nil {
		return ir.MethodSignature{}, err
	}
	var params []ir.Type
	for !p.accept(')') {
		if len(params) > 0 {
			if _, err := p.expect(','); err != nil {
				return ir.MethodSignature{}, err
			}
		}
		typ, err := p.typ()
		if err != nil {
			return ir.MethodSignature{}, err
		}
		params = append(params, typ)
	}
	if _, err := p.expect('>'); err != nil {
		return ir.MethodSignature{}, err
	}
	return ir.MethodSignature{Class: class, Name: name, Params: params, Return: ret}, nil
}

func (p *parser) fieldSig() (ir.FieldSignature, error) {
	class, typ, name, err := p.memberHead()
	if err != nil {
		return ir.FieldSignature{}, err
	}
	if _, err := p.expect('>'); err != nil {
		return ir.FieldSignature{}, err
	}
	return ir.FieldSignature{Class: class, Type: typ, Name: name}, nil
}

// ParseMethodSignature parses "<Class: Ret name(P1,P2)>".
func ParseMethodSignature(s string) (ir.MethodSignature, error) {
	lines, err := tokenize(s)
	if err != nil {
		return ir.MethodSignature{}, err
	}
	if len(lines) != 1 {
		return ir.MethodSignature{}, fmt.Errorf("%w: method signature %q", ErrSyntax, s)
	}
	p := &parser{toks: lines[0].toks, line: 1}
	sig, err := p.methodSig()
	if err != nil {
		return ir.MethodSignature{}, fmt.Errorf("method signature %q: %w", s, err)
	}
	if !p.done() {
		return ir.MethodSignature{}, fmt.Errorf("%w: trailing text in method signature %q", ErrSyntax, s)
	}
	return sig, nil
}
