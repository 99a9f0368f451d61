package ast

import (
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/solatis/treelint/internal/types"
)

// ParseJSON builds a tree from ESTree-style JSON, as emitted by espree,
// acorn or @babel/parser with estree output.
//
// Every object carrying a string field named typeKey becomes a *Node; other
// objects stay map[string]any. A "loc" object is lifted into Node.Loc and
// also kept as a field so attribute selectors can reach it.
func ParseJSON(data []byte, typeKey string) (*Node, error) {
	if typeKey == "" {
		typeKey = types.DefaultNodeTypeKey
	}
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: malformed JSON", types.ErrInvalidTree)
	}

	root, ok := convertJSON(gjson.ParseBytes(data), typeKey).(*Node)
	if !ok {
		return nil, fmt.Errorf("%w: root value is not an object with a %q field", types.ErrInvalidTree, typeKey)
	}
	return root, nil
}

// convertJSON maps a gjson value onto the Node value model.
func convertJSON(r gjson.Result, typeKey string) any {
	switch r.Type {
	case gjson.Null:
		return nil
	case gjson.False:
		return false
	case gjson.True:
		return true
	case gjson.Number:
		return r.Float()
	case gjson.String:
		return r.String()
	}

	if r.IsArray() {
		arr := make([]any, 0)
		r.ForEach(func(_, v gjson.Result) bool {
			arr = append(arr, convertJSON(v, typeKey))
			return true
		})
		return arr
	}

	if r.Get(gjson.Escape(typeKey)).Type != gjson.String {
		obj := make(map[string]any)
		r.ForEach(func(k, v gjson.Result) bool {
			obj[k.String()] = convertJSON(v, typeKey)
			return true
		})
		return obj
	}

	n := New()
	r.ForEach(func(k, v gjson.Result) bool {
		key := k.String()
		n.Set(key, convertJSON(v, typeKey))
		if key == "loc" {
			n.Loc = parseLoc(v)
		}
		return true
	})
	return n
}

// parseLoc reads an ESTree SourceLocation; nil when start.line is missing.
func parseLoc(v gjson.Result) *Location {
	start := v.Get("start")
	if !start.Get("line").Exists() {
		return nil
	}
	end := v.Get("end")
	return &Location{
		Start: Position{Line: int(start.Get("line").Int()), Column: int(start.Get("column").Int())},
		End:   Position{Line: int(end.Get("line").Int()), Column: int(end.Get("column").Int())},
	}
}
