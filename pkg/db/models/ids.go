package models

import "github.com/google/uuid"

// ensureID assigns a fresh id when the database default is not available
// (the SQLite test harness has no gen_random_uuid).
func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
