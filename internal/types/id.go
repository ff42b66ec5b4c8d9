// README: Entity identifiers shared across modules.
package types

import "strconv"

// ID identifies an entity on the dispatch service. Zero means unset.
type ID int64

func (id ID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

func (id ID) Valid() bool {
	return id > 0
}

// ParseID parses a decimal id, as found in URL paths and JSON object keys.
func ParseID(s string) (ID, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, err
	}
	return ID(n), nil
}
