package domain

import (
	"time"

	"github.com/google/uuid"
)

// Category is a transaction category keyed by name within a family. Categories
// are created on demand the first time an import (or a user) references a name
// the family does not have yet, so creation must be atomic per family.
type Category struct {
	ID        uuid.UUID
	FamilyID  uuid.UUID
	Name      string
	CreatedAt time.Time
}
