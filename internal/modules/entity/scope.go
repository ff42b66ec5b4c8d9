// README: Owner-scoped table replacement for bulk fetches of child collections.
package entity

import "courier/internal/types"

// Scope selects the rows of Key whose Field references Owner, e.g. the notes
// of one user. A bulk fetch of that collection replaces exactly those rows.
type Scope struct {
	Key   Key      `json:"key"`
	Field string   `json:"field"`
	Owner types.ID `json:"owner"`
}

// OwnedBy scopes the rows of k that point at owner through their "user" field.
func OwnedBy(k Key, owner types.ID) Scope {
	return Scope{Key: k, Field: "user", Owner: owner}
}

// Owns reports whether r is one of the scoped rows.
func (s Scope) Owns(r Record) bool {
	return s.Owner.Valid() && r.Ref(s.Field) == s.Owner
}

// Parent returns the owner's table and the owner relation that lists the
// scoped rows (users.notes for user notes).
func (s Scope) Parent() (Key, Relation, bool) {
	child, ok := schemas[s.Key]
	if !ok {
		return "", Relation{}, false
	}
	up, ok := child.relation(s.Field)
	if !ok {
		return "", Relation{}, false
	}
	owner, ok := schemas[up.Target]
	if !ok {
		return "", Relation{}, false
	}
	for _, r := range owner.Relations {
		if r.Target == s.Key {
			return up.Target, r, true
		}
	}
	return "", Relation{}, false
}
