// Copyright 2019 The GoRE.tk Authors. All rights reserved.
// Use of this source code is governed by the license that
// can be found in the LICENSE file.

package cxxsym

import (
	"cmp"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Offset is the address of a symbol. It is encoded in JSON as a lowercase
// hex string, e.g. "0x12340".
type Offset uint64

func (o Offset) String() string {
	return "0x" + strconv.FormatUint(uint64(o), 16)
}

func (o Offset) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.String())
}

// UnmarshalJSON accepts the hex string form and, for hand written reports,
// plain numbers.
func (o *Offset) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		var n uint64
		if json.Unmarshal(data, &n) != nil {
			return fmt.Errorf("offset must be a hex string or a number: %s", data)
		}
		*o = Offset(n)
		return nil
	}
	hex := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	v, err := strconv.ParseUint(hex, 16, 64)
	if err != nil {
		return fmt.Errorf("invalid offset %q: %w", s, err)
	}
	*o = Offset(v)
	return nil
}

// MethodEntry is a member function found in the symbol table.
type MethodEntry struct {
	// Name is the display name: the method name, ~Class for a destructor
	// or operator+ for an operator.
	Name string `json:"name"`
	// Params is the rendered parameter list with the method qualifiers,
	// e.g. "(int, bool)" or "() const".
	Params string `json:"params"`
	// Offset is the symbol value, the entry address of the method.
	Offset Offset `json:"offset"`
}

// String returns the method as a line of a pseudo declaration.
func (m MethodEntry) String() string {
	return fmt.Sprintf("/* %s */ %s%s;", m.Offset, m.Name, m.Params)
}

func compareMethods(a, b MethodEntry) int {
	if c := cmp.Compare(a.Name, b.Name); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Params, b.Params); c != 0 {
		return c
	}
	return cmp.Compare(a.Offset, b.Offset)
}

// ClassGroup is a class, or namespace, and the methods found in it.
type ClassGroup struct {
	// Name is the qualified name, e.g. "MyNamespace::MyClass".
	Name    string        `json:"class_name"`
	Methods []MethodEntry `json:"methods"`
}

// Signature returns the identity of m within the class, used by the diff
// engine: "MyNamespace::MyClass::doSomething(int, bool)".
func (c *ClassGroup) Signature(m MethodEntry) string {
	return c.Name + "::" + m.Name + m.Params
}

// String produces a pseudo declaration of the class.
// The multi-line string has this format:
//
//	class MyNamespace::MyClass {
//	    /* 0x12340 */ doSomething(int, bool);
//	};
func (c *ClassGroup) String() string {
	lines := make([]string, len(c.Methods)+2)
	lines[0] = fmt.Sprintf("class %s {", c.Name)
	for i, m := range c.Methods {
		lines[i+1] = "    " + m.String()
	}
	lines[len(lines)-1] = "};"
	return strings.Join(lines, "\n")
}
