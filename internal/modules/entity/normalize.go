// README: Normalization of nested service responses into flat per-type tables.
package entity

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"courier/internal/types"
)

var (
	ErrShape     = errors.New("response does not match schema shape")
	ErrMissingID = errors.New("entity without id")
	ErrNoSchema  = errors.New("unknown entity schema")
)

// Normalized is a response flattened against a Shape: every embedded entity
// lives once in Entities and Result holds only references.
type Normalized struct {
	Entities Entities   `json:"entities"`
	Result   []types.ID `json:"result"`
	Many     bool       `json:"many"`
}

// ResultID returns the single top-level id of a one-entity response.
func (n *Normalized) ResultID() types.ID {
	if n == nil || len(n.Result) == 0 {
		return 0
	}
	return n.Result[0]
}

// Normalize decodes raw JSON and flattens it against shape.
func Normalize(raw []byte, shape Shape) (*Normalized, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return NormalizeValue(v, shape)
}

// NormalizeValue flattens an already decoded JSON value.
func NormalizeValue(v any, shape Shape) (*Normalized, error) {
	if !Known(shape.Key) {
		return nil, fmt.Errorf("%w: %s", ErrNoSchema, shape.Key)
	}
	n := &Normalized{Entities: Entities{}, Many: shape.Many}
	if shape.Many {
		items, ok := v.([]any)
		if !ok {
			return nil, fmt.Errorf("%w: expected array of %s", ErrShape, shape.Key)
		}
		n.Result = make([]types.ID, 0, len(items))
		for _, item := range items {
			id, err := n.visit(item, shape.Key)
			if err != nil {
				return nil, err
			}
			n.Result = append(n.Result, id)
		}
		return n, nil
	}
	id, err := n.visit(v, shape.Key)
	if err != nil {
		return nil, err
	}
	n.Result = []types.ID{id}
	return n, nil
}

func (n *Normalized) visit(v any, key Key) (types.ID, error) {
	obj, ok := v.(map[string]any)
	if !ok {
		// a bare id is already a reference
		if id, ok := toID(v); ok {
			return id, nil
		}
		return 0, fmt.Errorf("%w: %s value is %T", ErrShape, key, v)
	}
	id, ok := toID(obj["id"])
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrMissingID, key)
	}
	schema := schemas[key]
	rec := make(Record, len(obj))
	for f, val := range obj {
		rel, isRel := schema.relation(f)
		switch {
		case f == "id":
			rec[f] = id
		case !isRel || val == nil:
			rec[f] = plain(val)
		case rel.Many:
			items, ok := val.([]any)
			if !ok {
				return 0, fmt.Errorf("%w: %s.%s expected array", ErrShape, key, f)
			}
			ids := make([]types.ID, 0, len(items))
			for _, item := range items {
				child, err := n.visit(item, rel.Target)
				if err != nil {
					return 0, err
				}
				ids = append(ids, child)
			}
			rec[f] = ids
		default:
			child, err := n.visit(val, rel.Target)
			if err != nil {
				return 0, err
			}
			rec[f] = child
		}
	}
	n.add(key, id, rec)
	return id, nil
}

// add stores rec, folding in any copy of the same entity seen earlier in
// the same payload.
func (n *Normalized) add(key Key, id types.ID, rec Record) {
	t, ok := n.Entities[key]
	if !ok {
		t = Table{}
		n.Entities[key] = t
	}
	if prev, ok := t[id]; ok {
		rec = MergeRecord(prev, rec)
	}
	t[id] = rec
}

// plain converts json.Number leaves into int64 or float64.
func plain(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		f, _ := t.Float64()
		return f
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = plain(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = plain(item)
		}
		return out
	}
	return v
}
