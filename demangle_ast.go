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
	"strings"
)

// Node is an element of a decoded C++ name: a type, a name component, a
// template argument or an expression.
type Node interface {
	fmt.Stringer
	node()
}

// Qualifiers is a set of CV-qualifiers.
type Qualifiers uint8

const (
	QualConst Qualifiers = 1 << iota
	QualVolatile
	QualRestrict
)

// suffix returns the qualifiers as they follow a type, e.g. " const".
func (q Qualifiers) suffix() string {
	var b strings.Builder
	if q&QualConst != 0 {
		b.WriteString(" const")
	}
	if q&QualVolatile != 0 {
		b.WriteString(" volatile")
	}
	if q&QualRestrict != 0 {
		b.WriteString(" restrict")
	}
	return b.String()
}

func (q Qualifiers) String() string {
	return strings.TrimPrefix(q.suffix(), " ")
}

// Ident is a source name.
type Ident struct {
	Name string
	// ctorName is the name used for constructors when it differs from Name,
	// for example "basic_string" for std::string.
	ctorName string
}

// AbiTagged is a name with ABI tags such as [abi:cxx11].
type AbiTagged struct {
	Name Node
	Tags []string
}

// Scoped is Name inside Scope, "Scope::Name".
type Scoped struct {
	Scope Node
	Name  Node
}

// Template is a template name with its arguments.
type Template struct {
	Name Node
	Args []Node
}

// Text is a node with a fixed spelling.
type Text struct {
	Text string
}

// BuiltinType is a fundamental type such as int or bool.
type BuiltinType struct {
	Name string
}

type PointerType struct {
	Elem Node
}

type ReferenceType struct {
	Elem   Node
	RValue bool
}

type QualifiedType struct {
	Elem  Node
	Quals Qualifiers
}

// ComplexType is a C99 _Complex or _Imaginary type.
type ComplexType struct {
	Elem      Node
	Imaginary bool
}

type FunctionType struct {
	Return       Node
	Params       []Node
	Quals        Qualifiers
	RefQualifier string
	Noexcept     bool
}

type ArrayType struct {
	Dim  string
	Elem Node
}

type MemberPointerType struct {
	Class  Node
	Member Node
}

// PackExpansion is a pattern expanded over a template argument pack.
type PackExpansion struct {
	Pattern Node
}

// ArgPack is a template argument pack.
type ArgPack struct {
	Args []Node
}

// Literal is a template argument value such as 3 or true.
type Literal struct {
	Type  Node
	Value string
}

type OperatorName struct {
	Op *Operator
}

// ConversionName is a conversion operator, "operator int".
type ConversionName struct {
	To Node
}

type CtorDtorName struct {
	Class string
	Dtor  bool
}

type UnaryExpr struct {
	Op  string
	Arg Node
}

type BinaryExpr struct {
	Op          string
	Left, Right Node
}

type TernaryExpr struct {
	Cond, Then, Else Node
}

func (*Ident) node()             {}
func (*AbiTagged) node()         {}
func (*Scoped) node()            {}
func (*Template) node()          {}
func (*Text) node()              {}
func (*BuiltinType) node()       {}
func (*PointerType) node()       {}
func (*ReferenceType) node()     {}
func (*QualifiedType) node()     {}
func (*ComplexType) node()       {}
func (*FunctionType) node()      {}
func (*ArrayType) node()         {}
func (*MemberPointerType) node() {}
func (*PackExpansion) node()     {}
func (*ArgPack) node()           {}
func (*Literal) node()           {}
func (*OperatorName) node()      {}
func (*ConversionName) node()    {}
func (*CtorDtorName) node()      {}
func (*UnaryExpr) node()         {}
func (*BinaryExpr) node()        {}
func (*TernaryExpr) node()       {}

func (n *Ident) String() string             { return render(n) }
func (n *AbiTagged) String() string         { return render(n) }
func (n *Scoped) String() string            { return render(n) }
func (n *Template) String() string          { return render(n) }
func (n *Text) String() string              { return render(n) }
func (n *BuiltinType) String() string       { return render(n) }
func (n *PointerType) String() string       { return render(n) }
func (n *ReferenceType) String() string     { return render(n) }
func (n *QualifiedType) String() string     { return render(n) }
func (n *ComplexType) String() string       { return render(n) }
func (n *FunctionType) String() string      { return render(n) }
func (n *ArrayType) String() string         { return render(n) }
func (n *MemberPointerType) String() string { return render(n) }
func (n *PackExpansion) String() string     { return render(n) }
func (n *ArgPack) String() string           { return render(n) }
func (n *Literal) String() string           { return render(n) }
func (n *OperatorName) String() string      { return render(n) }
func (n *ConversionName) String() string    { return render(n) }
func (n *CtorDtorName) String() string      { return render(n) }
func (n *UnaryExpr) String() string         { return render(n) }
func (n *BinaryExpr) String() string        { return render(n) }
func (n *TernaryExpr) String() string       { return render(n) }

// maxRenderSteps bounds the work done printing a single name. Substitutions
// share nodes, so a short mangled name can describe a very large tree.
const maxRenderSteps = 1 << 16

func render(n Node) string {
	return newPrinter().decl(n, "")
}

func renderList(nodes []Node) string {
	return newPrinter().list(nodes)
}

// printer renders nodes using the c++filt spelling. Declarators are built
// inside out: inner is the part of the declaration that binds tighter than
// the node being printed, e.g. "*" when printing the pointee of a pointer.
type printer struct {
	// packIndex selects the element of an argument pack while expanding a
	// pack expansion, -1 otherwise.
	packIndex int
	budget    *int
}

func newPrinter() *printer {
	budget := maxRenderSteps
	return &printer{packIndex: -1, budget: &budget}
}

// exhausted reports whether the output was truncated.
func (p *printer) exhausted() bool {
	return *p.budget < 0
}

func (p *printer) decl(n Node, inner string) string {
	if *p.budget--; *p.budget < 0 {
		return ""
	}
	switch t := n.(type) {
	case *PointerType:
		return p.decl(t.Elem, "*"+inner)
	case *ReferenceType:
		// Reference collapsing: only && applied to && stays an rvalue reference.
		e, pr := p.resolve(t.Elem)
		if r, ok := e.(*ReferenceType); ok {
			return pr.decl(&ReferenceType{Elem: r.Elem, RValue: t.RValue && r.RValue}, inner)
		}
		if t.RValue {
			return p.decl(t.Elem, "&&"+inner)
		}
		return p.decl(t.Elem, "&"+inner)
	case *QualifiedType:
		quals, elem, pr := t.Quals, t.Elem, p
		for {
			elem, pr = pr.resolve(elem)
			q, ok := elem.(*QualifiedType)
			if !ok {
				break
			}
			quals |= q.Quals
			elem = q.Elem
		}
		switch e := elem.(type) {
		case *FunctionType:
			return pr.function(e, inner, quals)
		case *ArrayType:
			// Qualifiers of an array type apply to its elements.
			return pr.decl(&ArrayType{Dim: e.Dim, Elem: &QualifiedType{Elem: e.Elem, Quals: quals}}, inner)
		}
		return pr.decl(elem, quals.suffix()+inner)
	case *FunctionType:
		return p.function(t, inner, 0)
	case *ArrayType:
		dims := "[" + t.Dim + "]"
		elem, pr := t.Elem, p
	dimensions:
		for {
			elem, pr = pr.resolve(elem)
			switch e := elem.(type) {
			case *ArrayType:
				dims += "[" + e.Dim + "]"
				elem = e.Elem
			case *QualifiedType:
				a, ok := e.Elem.(*ArrayType)
				if !ok {
					break dimensions
				}
				dims += "[" + a.Dim + "]"
				elem = &QualifiedType{Elem: a.Elem, Quals: e.Quals}
			default:
				break dimensions
			}
		}
		if inner != "" {
			return pr.decl(elem, "") + " (" + inner + ") " + dims
		}
		return pr.decl(elem, "") + " " + dims
	case *MemberPointerType:
		cls := p.decl(t.Class, "")
		if isFunctionType(t.Member) {
			return p.decl(t.Member, cls+"::*"+inner)
		}
		return p.decl(t.Member, " "+cls+"::*"+inner)
	case *ComplexType:
		if t.Imaginary {
			return p.decl(t.Elem, "") + " _Imaginary" + inner
		}
		return p.decl(t.Elem, "") + " _Complex" + inner
	case *PackExpansion:
		return p.expansion(t, inner)
	case *ArgPack:
		if p.packIndex >= 0 && p.packIndex < len(t.Args) {
			return p.unpacked().decl(t.Args[p.packIndex], inner)
		}
		parts := make([]string, 0, len(t.Args))
		for _, a := range t.Args {
			if s := p.decl(a, inner); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	}
	return p.name(n) + inner
}

func (p *printer) name(n Node) string {
	switch t := n.(type) {
	case *Ident:
		return t.Name
	case *AbiTagged:
		s := p.decl(t.Name, "")
		for _, tag := range t.Tags {
			s += "[abi:" + tag + "]"
		}
		return s
	case *Scoped:
		if s, ok := p.stdAlias(t); ok {
			return s
		}
		return p.decl(t.Scope, "") + "::" + p.decl(t.Name, "")
	case *Template:
		return p.template(p.decl(t.Name, ""), t.Args)
	case *Text:
		return t.Text
	case *BuiltinType:
		return t.Name
	case *Literal:
		return p.literal(t)
	case *OperatorName:
		return "operator" + t.Op.Symbol
	case *ConversionName:
		return "operator " + p.decl(t.To, "")
	case *CtorDtorName:
		if t.Dtor {
			return "~" + t.Class
		}
		return t.Class
	case *UnaryExpr:
		return t.Op + "(" + p.decl(t.Arg, "") + ")"
	case *BinaryExpr:
		return "(" + p.decl(t.Left, "") + ")" + t.Op + "(" + p.decl(t.Right, "") + ")"
	case *TernaryExpr:
		return "(" + p.decl(t.Cond, "") + ")?(" + p.decl(t.Then, "") + "):(" + p.decl(t.Else, "") + ")"
	case nil:
		return ""
	}
	return fmt.Sprintf("%T", n)
}

func (p *printer) template(name string, args []Node) string {
	if strings.HasSuffix(name, "<") {
		name += " "
	}
	s := name + "<" + p.list(args)
	if strings.HasSuffix(s, ">") {
		s += " "
	}
	return s + ">"
}

func (p *printer) list(nodes []Node) string {
	parts := make([]string, 0, len(nodes))
	for _, n := range nodes {
		if s := p.decl(n, ""); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ", ")
}

func (p *printer) function(f *FunctionType, inner string, quals Qualifiers) string {
	s := p.decl(f.Return, "") + " "
	if inner != "" {
		s += "(" + inner + ")"
	}
	s += "(" + p.list(f.Params) + ")" + (f.Quals | quals).suffix()
	if f.RefQualifier != "" {
		s += " " + f.RefQualifier
	}
	if f.Noexcept {
		s += " noexcept"
	}
	return s
}

func (p *printer) expansion(t *PackExpansion, inner string) string {
	pack := findPack(t.Pattern)
	if pack == nil || p.packIndex >= 0 {
		return p.decl(t.Pattern, inner) + "..."
	}
	parts := make([]string, 0, len(pack.Args))
	for i := range pack.Args {
		q := printer{packIndex: i, budget: p.budget}
		parts = append(parts, q.decl(t.Pattern, inner))
	}
	return strings.Join(parts, ", ")
}

// resolve returns the element of a pack being expanded, or n itself, with
// the printer to render it. Packs nested in an element are not expanded
// by the outer expansion.
func (p *printer) resolve(n Node) (Node, *printer) {
	if a, ok := n.(*ArgPack); ok && p.packIndex >= 0 && p.packIndex < len(a.Args) {
		return a.Args[p.packIndex], p.unpacked()
	}
	return n, p
}

// unpacked returns a printer sharing p's budget outside of any expansion.
func (p *printer) unpacked() *printer {
	if p.packIndex < 0 {
		return p
	}
	return &printer{packIndex: -1, budget: p.budget}
}

var literalSuffixes = map[string]string{
	"int":                "",
	"unsigned int":       "u",
	"long":               "l",
	"unsigned long":      "ul",
	"long long":          "ll",
	"unsigned long long": "ull",
}

func (p *printer) literal(l *Literal) string {
	v := l.Value
	if strings.HasPrefix(v, "n") {
		v = "-" + v[1:]
	}
	if b, ok := l.Type.(*BuiltinType); ok {
		if suffix, ok := literalSuffixes[b.Name]; ok {
			return v + suffix
		}
		switch b.Name {
		case "bool":
			switch v {
			case "0":
				return "false"
			case "1":
				return "true"
			}
		case "decltype(nullptr)":
			if v == "" || v == "0" {
				return "nullptr"
			}
		}
	}
	if v == "" {
		return p.decl(l.Type, "")
	}
	return "(" + p.decl(l.Type, "") + ")" + v
}

// stdAlias spells the char instantiations of the standard string and stream
// templates the way the Ss, Si, So and Sd abbreviations are printed.
func (p *printer) stdAlias(s *Scoped) (string, bool) {
	t, ok := s.Name.(*Template)
	if !ok {
		return "", false
	}
	id, ok := t.Name.(*Ident)
	if !ok {
		return "", false
	}
	alias, ok := stdAliases[id.Name]
	if !ok || len(t.Args) != len(alias.args) {
		return "", false
	}
	if scope := p.decl(s.Scope, ""); scope != "std" && scope != "std::__cxx11" {
		return "", false
	}
	for i, a := range t.Args {
		if p.decl(a, "") != alias.args[i] {
			return "", false
		}
	}
	return alias.name, true
}

func isFunctionType(n Node) bool {
	switch t := n.(type) {
	case *FunctionType:
		return true
	case *QualifiedType:
		return isFunctionType(t.Elem)
	}
	return false
}

// findPack returns the first argument pack referenced by n.
func findPack(n Node) *ArgPack {
	switch t := n.(type) {
	case *ArgPack:
		return t
	case *PointerType:
		return findPack(t.Elem)
	case *ReferenceType:
		return findPack(t.Elem)
	case *QualifiedType:
		return findPack(t.Elem)
	case *ComplexType:
		return findPack(t.Elem)
	case *ArrayType:
		return findPack(t.Elem)
	case *MemberPointerType:
		if a := findPack(t.Class); a != nil {
			return a
		}
		return findPack(t.Member)
	case *Scoped:
		if a := findPack(t.Scope); a != nil {
			return a
		}
		return findPack(t.Name)
	case *Template:
		for _, a := range t.Args {
			if pack := findPack(a); pack != nil {
				return pack
			}
		}
	case *FunctionType:
		if a := findPack(t.Return); a != nil {
			return a
		}
		for _, a := range t.Params {
			if pack := findPack(a); pack != nil {
				return pack
			}
		}
	}
	return nil
}
