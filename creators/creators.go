package creators

import (
	"strings"
	"time"
)

// Creator is a registered content owner. AccessToken is the personal access
// token used to list the creator's sponsors; it never leaves the server.
type Creator struct {
	ID           string    `json:"id"`
	Name         string    `json:"name,omitempty"`
	AccessToken  string    `json:"-"`
	RegisteredAt time.Time `json:"registeredAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// NormalizeID folds a creator id for lookups. GitHub logins are case-insensitive.
func NormalizeID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}
