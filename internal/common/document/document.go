/*******************************************************************************
* Copyright (C) 2026 the Eclipse BaSyx Authors and Fraunhofer IESE
*
* Permission is hereby granted, free of charge, to any person obtaining
* a copy of this software and associated documentation files (the
* "Software"), to deal in the Software without restriction, including
* without limitation the rights to use, copy, modify, merge, publish,
* distribute, sublicense, and/or sell copies of the Software, and to
* permit persons to whom the Software is furnished to do so, subject to
* the following conditions:
*
* The above copyright notice and this permission notice shall be
* included in all copies or substantial portions of the Software.
*
* THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND,
* EXPRESS OR IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF
* MERCHANTABILITY, FITNESS FOR A PARTICULAR PURPOSE AND
* NONINFRINGEMENT. IN NO EVENT SHALL THE AUTHORS OR COPYRIGHT HOLDERS BE
* LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER IN AN ACTION
* OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN CONNECTION
* WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.
*
* SPDX-License-Identifier: MIT
******************************************************************************/

// Package document wraps loosely structured JSON responses (registry
// descriptors, paged envelopes, query results) whose shape varies between
// server implementations and specification versions. Instead of statically
// typed DTOs, callers probe a tagged JSON value with safe accessors.
package document

import (
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// Kind tags the JSON type held by a Node.
type Kind int

const (
	KindMissing Kind = iota
	KindNull
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "missing"
	}
}

// Node is a tagged JSON value. The zero Node is "missing".
type Node struct {
	kind Kind
	v    any
}

// Parse decodes data into a Node.
func Parse(data []byte) (Node, error) {
	var raw any
	if err := jsonAPI.Unmarshal(data, &raw); err != nil {
		return Node{}, err
	}
	return FromAny(raw), nil
}

// FromAny tags a value produced by a standard JSON decoder.
func FromAny(v any) Node {
	switch t := v.(type) {
	case nil:
		return Node{kind: KindNull}
	case bool:
		return Node{kind: KindBool, v: t}
	case float64, float32, int, int32, int64:
		return Node{kind: KindNumber, v: t}
	case string:
		return Node{kind: KindString, v: t}
	case []any:
		return Node{kind: KindArray, v: t}
	case map[string]any:
		return Node{kind: KindObject, v: t}
	default:
		return Node{}
	}
}

func (n Node) Kind() Kind { return n.kind }

func (n Node) Exists() bool { return n.kind != KindMissing }

// IsNull reports a missing or explicit null value.
func (n Node) IsNull() bool { return n.kind == KindMissing || n.kind == KindNull }

// Raw returns the untagged tree, as consumed by the aas-go-sdk jsonization.
func (n Node) Raw() any { return n.v }

// TryGetField returns the named member of an object.
func (n Node) TryGetField(name string) (Node, bool) {
	obj, ok := n.v.(map[string]any)
	if n.kind != KindObject || !ok {
		return Node{}, false
	}
	v, ok := obj[name]
	if !ok {
		return Node{}, false
	}
	return FromAny(v), true
}

// TryGetFieldFold is TryGetField with case-insensitive member names. An exact
// match is preferred.
func (n Node) TryGetFieldFold(name string) (Node, bool) {
	if f, ok := n.TryGetField(name); ok {
		return f, true
	}
	obj, ok := n.v.(map[string]any)
	if n.kind != KindObject || !ok {
		return Node{}, false
	}
	for k, v := range obj {
		if strings.EqualFold(k, name) {
			return FromAny(v), true
		}
	}
	return Node{}, false
}

// Field returns the named member or a missing Node.
func (n Node) Field(name string) Node {
	f, _ := n.TryGetField(name)
	return f
}

// Path walks nested object members.
func (n Node) Path(names ...string) (Node, bool) {
	cur := n
	for _, name := range names {
		next, ok := cur.TryGetField(name)
		if !ok {
			return Node{}, false
		}
		cur = next
	}
	return cur, true
}

// Items returns the elements of an array, or nil.
func (n Node) Items() []Node {
	arr, ok := n.v.([]any)
	if n.kind != KindArray || !ok {
		return nil
	}
	out := make([]Node, len(arr))
	for i, v := range arr {
		out[i] = FromAny(v)
	}
	return out
}

// Len returns the number of array elements or object members.
func (n Node) Len() int {
	switch t := n.v.(type) {
	case []any:
		return len(t)
	case map[string]any:
		return len(t)
	default:
		return 0
	}
}

// AsString returns the value of a string node.
func (n Node) AsString() (string, bool) {
	s, ok := n.v.(string)
	return s, ok && n.kind == KindString
}

// StringOr returns the string value or def.
func (n Node) StringOr(def string) string {
	if s, ok := n.AsString(); ok {
		return s
	}
	return def
}

// AsInt returns a number node (or a numeric string) as int.
func (n Node) AsInt() (int, bool) {
	switch t := n.v.(type) {
	case float64:
		return int(t), true
	case float32:
		return int(t), true
	case int:
		return t, true
	case int32:
		return int(t), true
	case int64:
		return int(t), true
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(t))
		return i, err == nil
	default:
		return 0, false
	}
}

// AsBool returns the value of a bool node.
func (n Node) AsBool() (bool, bool) {
	b, ok := n.v.(bool)
	return b, ok && n.kind == KindBool
}

// Marshal encodes the node back to JSON.
func (n Node) Marshal() ([]byte, error) {
	if n.kind == KindMissing {
		return []byte("null"), nil
	}
	return jsonAPI.Marshal(n.v)
}
