// Package jsonpath navigates JSON documents of unknown shape with dotted
// paths such as "data.Job.properties.Related Biosamples.items.0".
package jsonpath

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
)

// Kind is the variant held by a Node.
type Kind byte

const (
	Invalid Kind = iota
	Object
	Array
	Scalar
)

func (k Kind) String() string {
	switch k {
	case Object:
		return "object"
	case Array:
		return "array"
	case Scalar:
		return "scalar"
	}
	return "invalid"
}

// Node is one value of a parsed JSON document. Exactly one of the variant
// fields is meaningful, as indicated by Kind. Nodes are never modified after
// Parse returns them.
type Node struct {
	kind   Kind
	object map[string]Node
	array  []Node
	scalar interface{}
}

// Parse decodes a complete JSON document.
func Parse(data []byte) (Node, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw interface{}
	if err := dec.Decode(&raw); err != nil {
		return Node{}, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return Node{}, fmt.Errorf("jsonpath: trailing data after document")
	}

	return fromValue(raw), nil
}

func fromValue(v interface{}) Node {
	switch t := v.(type) {
	case map[string]interface{}:
		obj := make(map[string]Node, len(t))
		for k, child := range t {
			obj[k] = fromValue(child)
		}
		return Node{kind: Object, object: obj}
	case []interface{}:
		arr := make([]Node, len(t))
		for i, child := range t {
			arr[i] = fromValue(child)
		}
		return Node{kind: Array, array: arr}
	}
	return Node{kind: Scalar, scalar: v}
}

// Kind returns the node's variant.
func (n Node) Kind() Kind { return n.kind }

// Len is the number of children of an object or array, and 0 otherwise.
func (n Node) Len() int {
	switch n.kind {
	case Object:
		return len(n.object)
	case Array:
		return len(n.array)
	}
	return 0
}

// Keys returns an object's keys in sorted order.
func (n Node) Keys() []string {
	if n.kind != Object {
		return nil
	}
	out := make([]string, 0, len(n.object))
	for k := range n.object {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Items returns the elements of an array node, or nil for other kinds.
func (n Node) Items() []Node {
	if n.kind != Array {
		return nil
	}
	return n.array
}

// Value is the raw scalar: string, json.Number, bool or nil.
func (n Node) Value() interface{} {
	return n.scalar
}

// Text renders a scalar as a string. JSON null renders as "".
func (n Node) Text() (string, bool) {
	if n.kind != Scalar {
		return "", false
	}
	switch t := n.scalar.(type) {
	case string:
		return t, true
	case json.Number:
		return t.String(), true
	case bool:
		return fmt.Sprint(t), true
	case nil:
		return "", true
	}
	return "", false
}
