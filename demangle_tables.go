// Copyright 2019 The GoRE.tk Authors. All rights reserved.
// Use of this source code is governed by the license that
// can be found in the LICENSE file.

package cxxsym

// Operator is an overloadable operator.
type Operator struct {
	// Code is the two letter mangled code, e.g. "pl".
	Code string
	// Symbol is the spelling that follows the operator keyword, e.g. "+"
	// or " new".
	Symbol string
	// Arity is the number of operands when used in an expression.
	Arity int
}

var operators = map[string]*Operator{
	"nw": {"nw", " new", -1},
	"na": {"na", " new[]", -1},
	"dl": {"dl", " delete", 1},
	"da": {"da", " delete[]", 1},
	"aw": {"aw", " co_await", 1},
	"ps": {"ps", "+", 1},
	"ng": {"ng", "-", 1},
	"ad": {"ad", "&", 1},
	"de": {"de", "*", 1},
	"co": {"co", "~", 1},
	"pl": {"pl", "+", 2},
	"mi": {"mi", "-", 2},
	"ml": {"ml", "*", 2},
	"dv": {"dv", "/", 2},
	"rm": {"rm", "%", 2},
	"an": {"an", "&", 2},
	"or": {"or", "|", 2},
	"eo": {"eo", "^", 2},
	"aS": {"aS", "=", 2},
	"pL": {"pL", "+=", 2},
	"mI": {"mI", "-=", 2},
	"mL": {"mL", "*=", 2},
	"dV": {"dV", "/=", 2},
	"rM": {"rM", "%=", 2},
	"aN": {"aN", "&=", 2},
	"oR": {"oR", "|=", 2},
	"eO": {"eO", "^=", 2},
	"ls": {"ls", "<<", 2},
	"rs": {"rs", ">>", 2},
	"lS": {"lS", "<<=", 2},
	"rS": {"rS", ">>=", 2},
	"eq": {"eq", "==", 2},
	"ne": {"ne", "!=", 2},
	"lt": {"lt", "<", 2},
	"gt": {"gt", ">", 2},
	"le": {"le", "<=", 2},
	"ge": {"ge", ">=", 2},
	"ss": {"ss", "<=>", 2},
	"nt": {"nt", "!", 1},
	"aa": {"aa", "&&", 2},
	"oo": {"oo", "||", 2},
	"pp": {"pp", "++", 1},
	"mm": {"mm", "--", 1},
	"cm": {"cm", ",", 2},
	"pm": {"pm", "->*", 2},
	"pt": {"pt", "->", 2},
	"cl": {"cl", "()", -1},
	"ix": {"ix", "[]", 2},
	"qu": {"qu", "?", 3},
}

var builtinTypes = map[byte]string{
	'v': "void",
	'w': "wchar_t",
	'b': "bool",
	'c': "char",
	'a': "signed char",
	'h': "unsigned char",
	's': "short",
	't': "unsigned short",
	'i': "int",
	'j': "unsigned int",
	'l': "long",
	'm': "unsigned long",
	'x': "long long",
	'y': "unsigned long long",
	'n': "__int128",
	'o': "unsigned __int128",
	'f': "float",
	'd': "double",
	'e': "long double",
	'g': "__float128",
	'z': "...",
}

// extendedBuiltinTypes are the builtin types with a D prefix.
var extendedBuiltinTypes = map[byte]string{
	'd': "decimal64",
	'e': "decimal128",
	'f': "decimal32",
	'h': "half",
	'i': "char32_t",
	's': "char16_t",
	'u': "char8_t",
	'a': "auto",
	'c': "decltype(auto)",
	'n': "decltype(nullptr)",
}

type stdAbbreviation struct {
	// name is the short spelling inside std, e.g. "string".
	name string
	// template and args give the full spelling, used when the abbreviation
	// names the class of a constructor or destructor.
	template string
	args     []Node
}

func charTraits() Node {
	return &Scoped{Scope: stdIdent(), Name: &Template{Name: &Ident{Name: "char_traits"}, Args: []Node{charType()}}}
}

func charAllocator() Node {
	return &Scoped{Scope: stdIdent(), Name: &Template{Name: &Ident{Name: "allocator"}, Args: []Node{charType()}}}
}

func charType() Node { return &BuiltinType{Name: "char"} }

func stdIdent() Node { return &Ident{Name: "std"} }

var stdAbbreviations = map[byte]func() stdAbbreviation{
	'a': func() stdAbbreviation { return stdAbbreviation{name: "allocator"} },
	'b': func() stdAbbreviation { return stdAbbreviation{name: "basic_string"} },
	's': func() stdAbbreviation {
		return stdAbbreviation{"string", "basic_string", []Node{charType(), charTraits(), charAllocator()}}
	},
	'i': func() stdAbbreviation {
		return stdAbbreviation{"istream", "basic_istream", []Node{charType(), charTraits()}}
	},
	'o': func() stdAbbreviation {
		return stdAbbreviation{"ostream", "basic_ostream", []Node{charType(), charTraits()}}
	},
	'd': func() stdAbbreviation {
		return stdAbbreviation{"iostream", "basic_iostream", []Node{charType(), charTraits()}}
	},
}

type stdAlias struct {
	name string
	args []string
}

// stdAliases maps std template names to the short spelling of their char
// instantiation.
var stdAliases = map[string]stdAlias{
	"basic_string":   {"std::string", []string{"char", "std::char_traits<char>", "std::allocator<char>"}},
	"basic_istream":  {"std::istream", []string{"char", "std::char_traits<char>"}},
	"basic_ostream":  {"std::ostream", []string{"char", "std::char_traits<char>"}},
	"basic_iostream": {"std::iostream", []string{"char", "std::char_traits<char>"}},
}

// specialNames maps the two letter special name codes that take a type to
// their description.
var specialNames = map[string]string{
	"TV": "vtable for",
	"TT": "VTT for",
	"TI": "typeinfo for",
	"TS": "typeinfo name for",
}
