package permission

import (
	"time"

	"github.com/google/uuid"
)

// Permission is an atomic named capability such as "user.read"
type Permission struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// CreatePermissionParams holds the fields of a new permission
type CreatePermissionParams struct {
	Name        string
	Description string
	Category    string
}

// UpdatePermissionParams holds optional replacements; nil fields are left unchanged
type UpdatePermissionParams struct {
	Name        *string
	Description *string
	Category    *string
}
