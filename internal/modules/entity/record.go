// README: Flat entity records and the per-type tables of the cache.
package entity

import (
	"encoding/json"
	"strconv"
	"time"

	"courier/internal/types"
)

// Record is one normalized entity. Relation fields hold types.ID or
// []types.ID; every other field holds a decoded JSON scalar, list or object.
type Record map[string]any

// Table maps entity id to record for one entity type.
type Table map[types.ID]Record

// Entities is the whole cache keyed by entity type.
type Entities map[Key]Table

// NewEntities returns an empty cache with a table for every known key.
func NewEntities() Entities {
	e := make(Entities, len(schemas))
	for _, k := range Keys() {
		e[k] = Table{}
	}
	return e
}

// Clone copies the outer map only. Tables and records are shared and must be
// treated as immutable by every holder.
func (e Entities) Clone() Entities {
	out := make(Entities, len(e))
	for k, t := range e {
		out[k] = t
	}
	return out
}

// Get returns the record for id in table k.
func (e Entities) Get(k Key, id types.ID) (Record, bool) {
	r, ok := e[k][id]
	return r, ok
}

// Clone copies the table map, sharing records.
func (t Table) Clone() Table {
	out := make(Table, len(t))
	for id, r := range t {
		out[id] = r
	}
	return out
}

// MergeRecord lays incoming fields over base and returns a new record.
// Fields absent from incoming keep their base value.
func MergeRecord(base, incoming Record) Record {
	out := make(Record, len(base)+len(incoming))
	for f, v := range base {
		out[f] = v
	}
	for f, v := range incoming {
		out[f] = v
	}
	return out
}

// With returns a copy of r with field f set to v.
func (r Record) With(f string, v any) Record {
	return MergeRecord(r, Record{f: v})
}

// Without returns a copy of r lacking field f.
func (r Record) Without(f string) Record {
	out := make(Record, len(r))
	for k, v := range r {
		if k != f {
			out[k] = v
		}
	}
	return out
}

func (r Record) ID() types.ID {
	return r.Ref("id")
}

// Ref reads a single reference field.
func (r Record) Ref(f string) types.ID {
	id, _ := toID(r[f])
	return id
}

// Refs reads a list-of-references field.
func (r Record) Refs(f string) []types.ID {
	switch v := r[f].(type) {
	case []types.ID:
		out := make([]types.ID, len(v))
		copy(out, v)
		return out
	case []any:
		out := make([]types.ID, 0, len(v))
		for _, item := range v {
			if id, ok := toID(item); ok {
				out = append(out, id)
			}
		}
		return out
	}
	return nil
}

func (r Record) String(f string) string {
	switch v := r[f].(type) {
	case string:
		return v
	case nil:
		return ""
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return ""
}

func (r Record) Bool(f string) bool {
	b, _ := r[f].(bool)
	return b
}

// BoolPtr distinguishes an explicit null (or absent field) from false.
func (r Record) BoolPtr(f string) *bool {
	b, ok := r[f].(bool)
	if !ok {
		return nil
	}
	return &b
}

func (r Record) Float(f string) float64 {
	switch v := r[f].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	case types.ID:
		return float64(v)
	case json.Number:
		n, _ := v.Float64()
		return n
	}
	return 0
}

func (r Record) Int(f string) int64 {
	switch v := r[f].(type) {
	case int64:
		return v
	case float64:
		return int64(v)
	case types.ID:
		return int64(v)
	}
	return 0
}

// Time reads epoch milliseconds or an RFC 3339 string.
func (r Record) Time(f string) time.Time {
	switch v := r[f].(type) {
	case int64:
		return time.UnixMilli(v).UTC()
	case float64:
		return time.UnixMilli(int64(v)).UTC()
	case string:
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return t
		}
	}
	return time.Time{}
}

// Has reports whether f is present and non-null.
func (r Record) Has(f string) bool {
	v, ok := r[f]
	return ok && v != nil
}

func toID(v any) (types.ID, bool) {
	switch t := v.(type) {
	case types.ID:
		return t, true
	case int64:
		return types.ID(t), true
	case int:
		return types.ID(t), true
	case float64:
		if t == float64(int64(t)) {
			return types.ID(int64(t)), true
		}
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return types.ID(n), true
		}
	case string:
		if id, err := types.ParseID(t); err == nil {
			return id, true
		}
	case map[string]any:
		return toID(t["id"])
	case Record:
		return toID(t["id"])
	}
	return 0, false
}
