package sqlite

import (
	"database/sql"
	"time"
)

// documentRow holds all columns from a document query for scanning
type documentRow struct {
	Key       string
	Value     sql.NullString
	UpdatedAt sql.NullTime
}

// scanArgs returns pointers to all fields for sql.Scan()
// MUST match documentColumns order exactly: key, value, updated_at
func (r *documentRow) scanArgs() []interface{} {
	return []interface{}{
		&r.Key,       // 1
		&r.Value,     // 2
		&r.UpdatedAt, // 3
	}
}

// documentColumns returns the SELECT column list for document queries
const documentColumns = `key, value, updated_at`

// nullToBytes converts a stored value to bytes. NULL and empty values
// read as nil.
func nullToBytes(ns sql.NullString) []byte {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	return []byte(ns.String)
}

// nullToTimePtr safely converts sql.NullTime to *time.Time
func nullToTimePtr(nt sql.NullTime) *time.Time {
	if nt.Valid {
		return &nt.Time
	}
	return nil
}

// bytesToNull converts a document to a nullable column value
func bytesToNull(b []byte) sql.NullString {
	if len(b) == 0 {
		return sql.NullString{}
	}
	return sql.NullString{String: string(b), Valid: true}
}
