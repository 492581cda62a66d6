package domain

import (
	"database/sql/driver"
	"encoding/json"
)

// JSONB wraps a value for storage in a PostgreSQL jsonb column. It
// implements driver.Valuer so repositories can pass structured fields
// (attachment lists, embedded threads, reply references) straight to
// parameterized queries.
type JSONB struct {
	V any
}

// Value implements the driver.Valuer interface. The JSON text form is
// returned as a string so the server-side parameter is inferred as
// jsonb rather than bytea.
func (j JSONB) Value() (driver.Value, error) {
	if j.V == nil {
		return nil, nil
	}
	b, err := json.Marshal(j.V)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}
