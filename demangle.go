// This file is part of cxxsym.
//
// Copyright (C) 2019-2026 GoRE Authors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

package cxxsym

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	manglingPrefix = "_Z"
	// maxDemangleDepth bounds the recursion of the parser.
	maxDemangleDepth = 256
)

// LeafKind is the kind of the final component of a demangled name.
type LeafKind int

const (
	LeafNamed LeafKind = iota
	LeafConstructor
	LeafDestructor
	LeafOperator
	LeafConversion
)

func (k LeafKind) String() string {
	switch k {
	case LeafConstructor:
		return "constructor"
	case LeafDestructor:
		return "destructor"
	case LeafOperator:
		return "operator"
	case LeafConversion:
		return "conversion"
	}
	return "named"
}

// Leaf is the final component of a demangled name.
type Leaf struct {
	Kind LeafKind
	// Name is the identifier for named leaves and the class name for
	// constructors and destructors.
	Name       string
	Operator   *Operator
	Conversion Node
	AbiTags    []string
	// TemplateArgs is non-nil when the leaf is a template instantiation.
	TemplateArgs []Node
}

// String returns the display name of the leaf, e.g. "~MyClass" or "operator+".
func (l Leaf) String() string {
	return l.render(newPrinter())
}

func (l Leaf) render(p *printer) string {
	var s string
	switch l.Kind {
	case LeafDestructor:
		s = "~" + l.Name
	case LeafOperator:
		s = "operator" + l.Operator.Symbol
	case LeafConversion:
		s = "operator " + p.decl(l.Conversion, "")
	default:
		s = l.Name
	}
	for _, tag := range l.AbiTags {
		s += "[abi:" + tag + "]"
	}
	if l.TemplateArgs != nil {
		s = p.template(s, l.TemplateArgs)
	}
	return s
}

// DemangledName is the structured form of a mangled symbol name.
type DemangledName struct {
	Mangled string
	// ScopePath holds the enclosing namespaces and classes, outermost first.
	ScopePath []string
	Leaf      Leaf
	// IsFunction is set for function encodings, Params is empty for "()".
	IsFunction bool
	Params     []Node
	// ReturnType is only encoded for function templates.
	ReturnType   Node
	Qualifiers   Qualifiers
	RefQualifier string
	// Special describes compiler generated entities, e.g. "vtable for",
	// and Target is the entity it refers to.
	Special string
	Target  string
	// Clone is the compiler clone suffix, e.g. ".constprop.0".
	Clone string
}

// QualifiedName is the scope path joined with "::".
func (d *DemangledName) QualifiedName() string {
	return strings.Join(d.ScopePath, "::")
}

// DisplayName is the leaf name.
func (d *DemangledName) DisplayName() string {
	return d.Leaf.String()
}

// ParamsString is the parenthesized parameter list followed by the method
// qualifiers, e.g. "(int, bool) const".
func (d *DemangledName) ParamsString() string {
	return d.params(newPrinter())
}

func (d *DemangledName) params(p *printer) string {
	s := "(" + p.list(d.Params) + ")" + d.Qualifiers.suffix()
	if d.RefQualifier != "" {
		s += " " + d.RefQualifier
	}
	return s
}

func (d *DemangledName) name(p *printer) string {
	leaf := d.Leaf.render(p)
	if len(d.ScopePath) == 0 {
		return leaf
	}
	return d.QualifiedName() + "::" + leaf
}

func (d *DemangledName) String() string {
	return d.render(newPrinter())
}

func (d *DemangledName) render(p *printer) string {
	var b strings.Builder
	if d.Special == "" && d.ReturnType != nil {
		b.WriteString(p.decl(d.ReturnType, "") + " ")
	}
	b.WriteString(d.signature(p))
	if d.Clone != "" {
		b.WriteString(" [clone " + d.Clone + "]")
	}
	return b.String()
}

// signature is the name with its parameter list but without the return
// type, the spelling used for an enclosing function or a function address.
func (d *DemangledName) signature(p *printer) string {
	if d.Special != "" {
		return d.Special + " " + d.Target
	}
	if d.IsFunction {
		return d.name(p) + d.params(p)
	}
	return d.name(p)
}

func (d *DemangledName) hasReturnType() bool {
	switch d.Leaf.Kind {
	case LeafConstructor, LeafDestructor, LeafConversion:
		return false
	}
	return d.Leaf.TemplateArgs != nil
}

// Demangle decodes an Itanium C++ ABI mangled name. Names without the _Z
// prefix return ErrNotMangled, names that can't be decoded return a
// *MangleError.
func Demangle(name string) (dn *DemangledName, err error) {
	if !strings.HasPrefix(name, manglingPrefix) {
		return nil, ErrNotMangled
	}
	p := &parser{in: name, pos: len(manglingPrefix)}
	defer func() {
		if r := recover(); r != nil {
			f, ok := r.(demangleFailure)
			if !ok {
				panic(r)
			}
			dn, err = nil, &MangleError{Name: name, Offset: f.offset, Reason: f.reason}
		}
	}()
	dn = p.encoding()
	if p.peek() == '.' {
		dn.Clone = p.cloneSuffix()
	}
	if p.pos != len(p.in) {
		p.fail("unexpected trailing characters")
	}
	pr := newPrinter()
	dn.render(pr)
	if pr.exhausted() {
		p.fail("demangled name too large")
	}
	dn.Mangled = name
	return dn, nil
}

type demangleFailure struct {
	offset int
	reason string
}

type nameQuals struct {
	cv  Qualifiers
	ref string
}

// parser is a recursive descent parser over a mangled name. Failures unwind
// with a demangleFailure panic that Demangle turns into a *MangleError.
type parser struct {
	in  string
	pos int
	// subs is the substitution table.
	subs []Node
	// tmpl holds the template arguments T_ refers to.
	tmpl  []Node
	depth int
	// lambdaDepth is non-zero while parsing a lambda signature, where
	// template parameters are generic lambda auto parameters.
	lambdaDepth int
}

func (p *parser) fail(reason string) {
	panic(demangleFailure{offset: p.pos, reason: reason})
}

func (p *parser) failf(format string, args ...any) {
	p.fail(fmt.Sprintf(format, args...))
}

func (p *parser) enter() {
	p.depth++
	if p.depth > maxDemangleDepth {
		p.fail("nesting too deep")
	}
}

func (p *parser) leave() {
	p.depth--
}

func (p *parser) peek() byte {
	return p.peekAt(0)
}

func (p *parser) peekAt(i int) byte {
	if p.pos+i < len(p.in) {
		return p.in[p.pos+i]
	}
	return 0
}

func (p *parser) consume(s string) bool {
	if strings.HasPrefix(p.in[p.pos:], s) {
		p.pos += len(s)
		return true
	}
	return false
}

func (p *parser) expect(c byte) {
	if p.peek() != c {
		if p.peek() == 0 {
			p.failf("expected %q, got end of name", c)
		}
		p.failf("expected %q, got %q", c, p.peek())
	}
	p.pos++
}

func (p *parser) addSub(n Node) {
	p.subs = append(p.subs, n)
}

// encoding parses <encoding>: a function name with its parameter types,
// a data name or a special name.
func (p *parser) encoding() *DemangledName {
	p.enter()
	defer p.leave()
	if c := p.peek(); c == 'T' || (c == 'G' && (p.peekAt(1) == 'V' || p.peekAt(1) == 'R')) {
		return p.specialName()
	}
	n, quals := p.name(true)
	dn := &DemangledName{Qualifiers: quals.cv, RefQualifier: quals.ref}
	p.setName(dn, n)
	if p.encodingEnd() {
		return dn
	}
	dn.IsFunction = true
	if dn.hasReturnType() {
		dn.ReturnType = p.type_()
	}
	dn.Params = p.params(p.encodingEnd)
	return dn
}

func (p *parser) encodingEnd() bool {
	c := p.peek()
	return c == 0 || c == 'E' || c == '.'
}

func (p *parser) setName(dn *DemangledName, n Node) {
	comps := flatten(n)
	for _, c := range comps[:len(comps)-1] {
		dn.ScopePath = append(dn.ScopePath, render(c))
	}
	leaf, ok := leafOf(comps[len(comps)-1])
	if !ok {
		p.fail("unsupported entity name")
	}
	dn.Leaf = leaf
}

func flatten(n Node) []Node {
	if s, ok := n.(*Scoped); ok {
		return append(flatten(s.Scope), flatten(s.Name)...)
	}
	return []Node{n}
}

func leafOf(n Node) (Leaf, bool) {
	var leaf Leaf
	if t, ok := n.(*Template); ok {
		n, leaf.TemplateArgs = t.Name, t.Args
	}
	if t, ok := n.(*AbiTagged); ok {
		n, leaf.AbiTags = t.Name, t.Tags
	}
	switch t := n.(type) {
	case *Ident:
		leaf.Kind, leaf.Name = LeafNamed, t.Name
	case *Text:
		leaf.Kind, leaf.Name = LeafNamed, t.Text
	case *CtorDtorName:
		leaf.Kind, leaf.Name = LeafConstructor, t.Class
		if t.Dtor {
			leaf.Kind = LeafDestructor
		}
	case *OperatorName:
		leaf.Kind, leaf.Operator = LeafOperator, t.Op
	case *ConversionName:
		leaf.Kind, leaf.Conversion = LeafConversion, t.To
	default:
		return leaf, false
	}
	return leaf, true
}

// params parses types until end reports true. A lone void is the empty list.
func (p *parser) params(end func() bool) []Node {
	var params []Node
	for !end() {
		params = append(params, p.type_())
	}
	if len(params) == 0 {
		p.fail("missing parameter types")
	}
	if b, ok := params[0].(*BuiltinType); ok && len(params) == 1 && b.Name == "void" {
		return nil
	}
	return params
}

// name parses <name>. When top is set the name belongs to the encoding
// being decoded and its template arguments become the targets of T_.
func (p *parser) name(top bool) (Node, nameQuals) {
	switch c := p.peek(); {
	case c == 'N':
		return p.nestedName(top)
	case c == 'Z':
		return p.localName(top)
	case c == 'S' && p.peekAt(1) == 't':
		p.pos += 2
		n := &Scoped{Scope: stdIdent(), Name: p.unqualifiedName(nil)}
		return p.templated(n, top, true), nameQuals{}
	case c == 'S':
		n := p.substitution(false)
		if p.peek() != 'I' {
			p.fail("expected template arguments after substitution")
		}
		return p.templated(n, top, false), nameQuals{}
	}
	return p.templated(p.unqualifiedName(nil), top, true), nameQuals{}
}

// templated applies the template arguments following n, if any. When
// candidate is set the template name itself is a substitution candidate.
func (p *parser) templated(n Node, top, candidate bool) Node {
	if p.peek() != 'I' {
		return n
	}
	if candidate {
		p.addSub(n)
	}
	args := p.templateArgs()
	if top {
		p.tmpl = args
	}
	return applyTemplate(n, args)
}

func applyTemplate(n Node, args []Node) Node {
	if s, ok := n.(*Scoped); ok {
		return &Scoped{Scope: s.Scope, Name: &Template{Name: s.Name, Args: args}}
	}
	return &Template{Name: n, Args: args}
}

func scoped(prefix, n Node) Node {
	if prefix == nil {
		return n
	}
	return &Scoped{Scope: prefix, Name: n}
}

func (p *parser) nestedName(top bool) (Node, nameQuals) {
	p.enter()
	defer p.leave()
	p.expect('N')
	q := nameQuals{cv: p.cvQualifiers()}
	switch p.peek() {
	case 'R':
		q.ref = "&"
		p.pos++
	case 'O':
		q.ref = "&&"
		p.pos++
	}
	var prefix Node
	for {
		c := p.peek()
		switch {
		case c == 'E':
			if prefix == nil {
				p.fail("empty nested name")
			}
			p.pos++
			return prefix, q
		case c == 0:
			p.fail("unterminated nested name")
		case c == 'S' && p.peekAt(1) == 't':
			if prefix != nil {
				p.fail("unexpected std prefix")
			}
			p.pos += 2
			prefix = stdIdent()
			continue
		case c == 'S':
			if prefix != nil {
				p.fail("unexpected substitution")
			}
			prefix = p.substitution(true)
			continue
		case c == 'I':
			if prefix == nil {
				p.fail("template arguments without a template name")
			}
			args := p.templateArgs()
			if top {
				p.tmpl = args
			}
			prefix = applyTemplate(prefix, args)
		case c == 'T':
			if prefix != nil {
				p.fail("unexpected template parameter")
			}
			prefix = p.templateParam()
		case c == 'M':
			// Closure scope in a data member initializer.
			p.pos++
			continue
		default:
			prefix = scoped(prefix, p.unqualifiedName(prefix))
		}
		if p.peek() != 'E' {
			p.addSub(prefix)
		}
	}
}

func (p *parser) localName(top bool) (Node, nameQuals) {
	p.expect('Z')
	enc := p.encoding()
	p.expect('E')
	scope := &Text{Text: enc.signature(newPrinter())}
	switch p.peek() {
	case 's':
		p.pos++
		p.discriminator()
		return &Scoped{Scope: scope, Name: &Text{Text: "string literal"}}, nameQuals{}
	case 'd':
		// Entity in a default argument.
		p.pos++
		if p.peek() != '_' {
			p.decimal()
		}
		p.expect('_')
	}
	entity, q := p.name(top)
	p.discriminator()
	return &Scoped{Scope: scope, Name: entity}, q
}

func (p *parser) discriminator() {
	if p.peek() != '_' {
		return
	}
	switch c := p.peekAt(1); {
	case isDigit(c):
		p.pos += 2
	case c == '_':
		p.pos += 2
		p.decimal()
		p.expect('_')
	}
}

// unqualifiedName parses a single name component. prefix is the enclosing
// scope, needed to name constructors and destructors.
func (p *parser) unqualifiedName(prefix Node) Node {
	var n Node
	switch c := p.peek(); {
	case isDigit(c):
		n = p.sourceName()
	case c == 'L' && isDigit(p.peekAt(1)):
		// Internal linkage name.
		p.pos++
		n = p.sourceName()
		p.discriminator()
	case c == 'C' && (isDigit(p.peekAt(1)) || p.peekAt(1) == 'I'):
		p.pos++
		inheriting := p.consume("I")
		if k := p.peek(); k < '1' || k > '5' {
			p.failf("invalid constructor kind %q", k)
		}
		p.pos++
		if inheriting {
			p.type_()
		}
		n = &CtorDtorName{Class: p.ctorName(prefix)}
	case c == 'D' && p.peekAt(1) != 0 && strings.IndexByte("01245", p.peekAt(1)) >= 0:
		p.pos += 2
		n = &CtorDtorName{Class: p.ctorName(prefix), Dtor: true}
	case c == 'U' && p.peekAt(1) == 't':
		p.pos += 2
		n = &Ident{Name: "{unnamed type#" + strconv.Itoa(p.closureIndex()) + "}"}
	case c == 'U' && p.peekAt(1) == 'l':
		p.pos += 2
		p.lambdaDepth++
		params := p.params(func() bool { c := p.peek(); return c == 0 || c == 'E' })
		p.lambdaDepth--
		p.expect('E')
		n = &Ident{Name: "{lambda(" + renderList(params) + ")#" + strconv.Itoa(p.closureIndex()) + "}"}
	case isLower(c):
		n = p.operatorName()
	case c == 0:
		p.fail("unexpected end of name")
	default:
		p.failf("unexpected character %q in name", c)
	}
	if p.peek() == 'B' {
		tagged := &AbiTagged{Name: n}
		for p.consume("B") {
			tagged.Tags = append(tagged.Tags, p.identifier())
		}
		n = tagged
	}
	return n
}

func (p *parser) closureIndex() int {
	idx := 1
	if isDigit(p.peek()) {
		idx = p.decimal() + 2
	}
	p.expect('_')
	return idx
}

// ctorName returns the name of the class a constructor or destructor in
// prefix belongs to.
func (p *parser) ctorName(prefix Node) string {
	for n := prefix; n != nil; {
		switch t := n.(type) {
		case *Scoped:
			n = t.Name
		case *Template:
			n = t.Name
		case *AbiTagged:
			n = t.Name
		case *Ident:
			if t.ctorName != "" {
				return t.ctorName
			}
			return t.Name
		default:
			n = nil
		}
	}
	p.fail("constructor or destructor outside of a class")
	return ""
}

func (p *parser) operatorName() Node {
	if p.pos+2 > len(p.in) {
		p.fail("truncated operator name")
	}
	code := p.in[p.pos : p.pos+2]
	p.pos += 2
	switch {
	case code == "cv":
		return &ConversionName{To: p.type_()}
	case code == "li":
		return &OperatorName{Op: &Operator{Code: code, Symbol: `"" ` + p.identifier(), Arity: 1}}
	case code[0] == 'v' && isDigit(code[1]):
		return &OperatorName{Op: &Operator{Code: code, Symbol: " " + p.identifier(), Arity: int(code[1] - '0')}}
	}
	op, ok := operators[code]
	if !ok {
		p.pos -= 2
		p.failf("unknown operator %q", code)
	}
	return &OperatorName{Op: op}
}

func (p *parser) specialName() *DemangledName {
	if p.pos+2 > len(p.in) {
		p.fail("truncated special name")
	}
	code := p.in[p.pos : p.pos+2]
	p.pos += 2
	dn := &DemangledName{}
	if desc, ok := specialNames[code]; ok {
		dn.Special, dn.Target = desc, render(p.type_())
		return dn
	}
	switch code {
	case "Th":
		p.signedNumber()
		p.expect('_')
		dn.Special = "non-virtual thunk to"
	case "Tv":
		p.signedNumber()
		p.expect('_')
		p.signedNumber()
		p.expect('_')
		dn.Special = "virtual thunk to"
	case "Tc":
		p.callOffset()
		p.callOffset()
		dn.Special = "covariant return thunk to"
	case "TC":
		derived := p.type_()
		p.signedNumber()
		p.expect('_')
		dn.Special, dn.Target = "construction vtable for", render(p.type_())+"-in-"+render(derived)
		return dn
	case "TH", "TW", "GV":
		n, _ := p.name(false)
		dn.Special, dn.Target = dataSpecialNames[code], render(n)
		return dn
	case "GR":
		n, _ := p.name(false)
		seq := 0
		if p.peek() != '_' {
			seq = p.seqID() + 1
		}
		p.expect('_')
		dn.Special, dn.Target = "reference temporary #"+strconv.Itoa(seq)+" for", render(n)
		return dn
	default:
		p.pos -= 2
		p.failf("unsupported special name %q", code)
	}
	dn.Target = p.encoding().String()
	return dn
}

var dataSpecialNames = map[string]string{
	"TH": "TLS init function for",
	"TW": "TLS wrapper function for",
	"GV": "guard variable for",
}

func (p *parser) callOffset() {
	switch p.peek() {
	case 'h':
		p.pos++
		p.signedNumber()
	case 'v':
		p.pos++
		p.signedNumber()
		p.expect('_')
		p.signedNumber()
	default:
		p.fail("invalid call offset")
	}
	p.expect('_')
}

func (p *parser) signedNumber() int {
	if p.consume("n") {
		return -p.decimal()
	}
	return p.decimal()
}

func (p *parser) decimal() int {
	start := p.pos
	n := 0
	for isDigit(p.peek()) {
		if n > (math.MaxInt32-9)/10 {
			p.fail("number too large")
		}
		n = n*10 + int(p.peek()-'0')
		p.pos++
	}
	if p.pos == start {
		p.fail("expected a number")
	}
	return n
}

// seqID parses a base 36 sequence number terminated by '_', which is left
// in place.
func (p *parser) seqID() int {
	id := 0
	for {
		c := p.peek()
		var d int
		switch {
		case isDigit(c):
			d = int(c - '0')
		case isUpper(c):
			d = int(c-'A') + 10
		case c == '_':
			return id
		default:
			p.fail("invalid sequence id")
		}
		if id > (math.MaxInt32-35)/36 {
			p.fail("sequence id too large")
		}
		id = id*36 + d
		p.pos++
	}
}

func (p *parser) identifier() string {
	n := p.decimal()
	if n == 0 || n > len(p.in)-p.pos {
		p.fail("invalid identifier length")
	}
	id := p.in[p.pos : p.pos+n]
	p.pos += n
	return id
}

func (p *parser) sourceName() Node {
	id := p.identifier()
	if isAnonymousNamespace(id) {
		id = "(anonymous namespace)"
	}
	return &Ident{Name: id}
}

// isAnonymousNamespace matches the _GLOBAL__N prefix compilers use for
// anonymous namespaces, with any of the allowed separators.
func isAnonymousNamespace(id string) bool {
	if len(id) < 10 || !strings.HasPrefix(id, "_GLOBAL_") {
		return false
	}
	return strings.IndexByte("._$", id[8]) >= 0 && id[9] == 'N'
}

func (p *parser) substitution(nested bool) Node {
	p.expect('S')
	c := p.peek()
	if c == '_' || isDigit(c) || isUpper(c) {
		idx := 0
		if c != '_' {
			idx = p.seqID() + 1
		}
		p.expect('_')
		if idx >= len(p.subs) {
			p.failf("substitution S%d out of range", idx)
		}
		return p.subs[idx]
	}
	abbr, ok := stdAbbreviations[c]
	if !ok {
		p.failf("unknown substitution S%c", c)
	}
	p.pos++
	a := abbr()
	// The class of a constructor or destructor is spelled in full.
	if nested && a.template != "" && (p.peek() == 'C' || p.peek() == 'D' && isDigit(p.peekAt(1))) {
		return &Scoped{Scope: stdIdent(), Name: &Template{Name: &Ident{Name: a.template}, Args: a.args}}
	}
	return &Scoped{Scope: stdIdent(), Name: &Ident{Name: a.name, ctorName: a.template}}
}

func (p *parser) templateParam() Node {
	p.expect('T')
	idx := 0
	if p.peek() != '_' {
		idx = p.decimal() + 1
	}
	p.expect('_')
	if p.lambdaDepth > 0 {
		return &Text{Text: "auto:" + strconv.Itoa(idx+1)}
	}
	if idx >= len(p.tmpl) {
		p.failf("template parameter %d out of range", idx)
	}
	return p.tmpl[idx]
}

func (p *parser) cvQualifiers() Qualifiers {
	var q Qualifiers
	if p.consume("r") {
		q |= QualRestrict
	}
	if p.consume("V") {
		q |= QualVolatile
	}
	if p.consume("K") {
		q |= QualConst
	}
	return q
}

// type_ parses <type>. Every type except builtins and plain substitutions
// becomes a substitution candidate.
func (p *parser) type_() Node {
	p.enter()
	defer p.leave()
	c := p.peek()
	if name, ok := builtinTypes[c]; ok {
		p.pos++
		return &BuiltinType{Name: name}
	}
	var t Node
	switch c {
	case 'u':
		p.pos++
		t = &BuiltinType{Name: p.identifier()}
	case 'D':
		if name, ok := extendedBuiltinTypes[p.peekAt(1)]; ok {
			p.pos += 2
			return &BuiltinType{Name: name}
		}
		switch p.peekAt(1) {
		case 'F':
			p.pos += 2
			bits := p.decimal()
			p.expect('_')
			return &BuiltinType{Name: "_Float" + strconv.Itoa(bits)}
		case 'p':
			p.pos += 2
			t = &PackExpansion{Pattern: p.type_()}
		case 'o':
			p.pos += 2
			f := p.functionType()
			f.Noexcept = true
			t = f
		case 't', 'T':
			p.pos += 2
			e := p.expression()
			p.expect('E')
			t = &Text{Text: "decltype (" + render(e) + ")"}
		default:
			p.failf("unsupported type D%c", p.peekAt(1))
		}
	case 'r', 'V', 'K':
		q := p.cvQualifiers()
		t = &QualifiedType{Elem: p.type_(), Quals: q}
	case 'P':
		p.pos++
		t = &PointerType{Elem: p.type_()}
	case 'R':
		p.pos++
		t = &ReferenceType{Elem: p.type_()}
	case 'O':
		p.pos++
		t = &ReferenceType{Elem: p.type_(), RValue: true}
	case 'C':
		p.pos++
		t = &ComplexType{Elem: p.type_()}
	case 'G':
		p.pos++
		t = &ComplexType{Elem: p.type_(), Imaginary: true}
	case 'F':
		t = p.functionType()
	case 'A':
		t = p.arrayType()
	case 'M':
		p.pos++
		cls := p.type_()
		t = &MemberPointerType{Class: cls, Member: p.type_()}
	case 'T':
		t = p.templateParam()
		if p.peek() == 'I' {
			p.addSub(t)
			t = applyTemplate(t, p.templateArgs())
		}
	case 'S':
		if p.peekAt(1) == 't' {
			p.pos += 2
			t = p.templated(&Scoped{Scope: stdIdent(), Name: p.unqualifiedName(nil)}, false, true)
			break
		}
		s := p.substitution(false)
		if p.peek() != 'I' {
			return s
		}
		t = applyTemplate(s, p.templateArgs())
	case 'N', 'Z':
		t, _ = p.name(false)
	case 0:
		p.fail("unexpected end of name")
	default:
		if !isDigit(c) {
			p.failf("unexpected character %q in type", c)
		}
		t, _ = p.name(false)
	}
	p.addSub(t)
	return t
}

func (p *parser) functionType() *FunctionType {
	p.expect('F')
	p.consume("Y")
	f := &FunctionType{Return: p.type_()}
	f.Params = p.params(func() bool {
		c := p.peek()
		return c == 0 || c == 'E' || ((c == 'R' || c == 'O') && p.peekAt(1) == 'E')
	})
	switch p.peek() {
	case 'R':
		f.RefQualifier = "&"
		p.pos++
	case 'O':
		f.RefQualifier = "&&"
		p.pos++
	}
	p.expect('E')
	return f
}

func (p *parser) arrayType() Node {
	p.expect('A')
	var dim string
	switch c := p.peek(); {
	case isDigit(c):
		dim = strconv.Itoa(p.decimal())
	case c == '_':
	default:
		dim = render(p.expression())
	}
	p.expect('_')
	return &ArrayType{Dim: dim, Elem: p.type_()}
}

func (p *parser) templateArgs() []Node {
	p.enter()
	defer p.leave()
	p.expect('I')
	args := []Node{}
	for !p.consume("E") {
		if p.peek() == 0 {
			p.fail("unterminated template arguments")
		}
		args = append(args, p.templateArg())
	}
	return args
}

func (p *parser) templateArg() Node {
	switch p.peek() {
	case 'X':
		p.pos++
		e := p.expression()
		p.expect('E')
		return e
	case 'L':
		return p.exprPrimary()
	case 'J':
		p.pos++
		pack := &ArgPack{}
		for !p.consume("E") {
			if p.peek() == 0 {
				p.fail("unterminated argument pack")
			}
			pack.Args = append(pack.Args, p.templateArg())
		}
		return pack
	}
	return p.type_()
}

// exprPrimary parses a literal, L <type> <value> E, or an external name,
// L _Z <encoding> E.
func (p *parser) exprPrimary() Node {
	p.expect('L')
	if p.consume(manglingPrefix) {
		enc := p.encoding()
		p.expect('E')
		return &Text{Text: enc.signature(newPrinter())}
	}
	t := p.type_()
	start := p.pos
	for p.peek() != 'E' {
		if p.peek() == 0 {
			p.fail("unterminated literal")
		}
		p.pos++
	}
	v := p.in[start:p.pos]
	p.pos++
	return &Literal{Type: t, Value: v}
}

// expression parses the subset of <expression> that appears in template
// arguments of exported symbols.
func (p *parser) expression() Node {
	p.enter()
	defer p.leave()
	switch p.peek() {
	case 'T':
		return p.templateParam()
	case 'L':
		return p.exprPrimary()
	}
	if p.pos+2 > len(p.in) {
		p.fail("truncated expression")
	}
	code := p.in[p.pos : p.pos+2]
	p.pos += 2
	switch code {
	case "fp":
		p.cvQualifiers()
		idx := 1
		if p.peek() != '_' {
			idx = p.decimal() + 2
		}
		p.expect('_')
		return &Text{Text: "{parm#" + strconv.Itoa(idx) + "}"}
	case "sZ":
		return &Text{Text: "sizeof...(" + render(p.expression()) + ")"}
	case "st":
		return &Text{Text: "sizeof (" + render(p.type_()) + ")"}
	case "at":
		return &Text{Text: "alignof (" + render(p.type_()) + ")"}
	case "sz":
		return &Text{Text: "sizeof (" + render(p.expression()) + ")"}
	case "az":
		return &Text{Text: "alignof (" + render(p.expression()) + ")"}
	}
	op, ok := operators[code]
	if !ok {
		p.pos -= 2
		p.failf("unsupported expression %q", code)
	}
	switch op.Arity {
	case 1:
		return &UnaryExpr{Op: op.Symbol, Arg: p.expression()}
	case 2:
		l := p.expression()
		return &BinaryExpr{Op: op.Symbol, Left: l, Right: p.expression()}
	case 3:
		cond := p.expression()
		then := p.expression()
		return &TernaryExpr{Cond: cond, Then: then, Else: p.expression()}
	}
	p.pos -= 2
	p.failf("unsupported expression %q", code)
	return nil
}

// cloneSuffix parses compiler clone suffixes such as ".cold" or
// ".constprop.0.isra.0".
func (p *parser) cloneSuffix() string {
	start := p.pos
	for p.consume(".") {
		begin := p.pos
		for c := p.peek(); isDigit(c) || isLower(c) || isUpper(c) || c == '_'; c = p.peek() {
			p.pos++
		}
		if p.pos == begin {
			p.fail("empty clone suffix")
		}
	}
	return p.in[start:p.pos]
}

func isDigit(c byte) bool { return '0' <= c && c <= '9' }
func isUpper(c byte) bool { return 'A' <= c && c <= 'Z' }
func isLower(c byte) bool { return 'a' <= c && c <= 'z' }
