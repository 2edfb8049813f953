// File: model/participants.go
package model

import (
	"fmt"
	"strings"
	"time"
)

// Role is the supply-chain role a participant declares at registration.
// The zero value is the unset role and is never stored.
type Role string

const (
	RoleFarmer      Role = "Farmer"
	RoleProcessor   Role = "Processor"
	RoleDistributor Role = "Distributor"
	RoleRetailer    Role = "Retailer"
	RoleConsumer    Role = "Consumer"
)

// Roles lists every valid role in declaration order.
var Roles = []Role{RoleFarmer, RoleProcessor, RoleDistributor, RoleRetailer, RoleConsumer}

// Valid reports whether r is one of the declared roles.
func (r Role) Valid() bool {
	for _, known := range Roles {
		if r == known {
			return true
		}
	}
	return false
}

// ParseRole resolves a role name case-insensitively.
func ParseRole(s string) (Role, error) {
	trimmed := strings.TrimSpace(s)
	for _, known := range Roles {
		if strings.EqualFold(trimmed, string(known)) {
			return known, nil
		}
	}
	return "", fmt.Errorf("unknown role '%s'", s)
}

// Participant stores information about a registered identity.
type Participant struct {
	ObjectType   string    `json:"objectType"`   // Set to the composite key object type (Participant)
	Identity     string    `json:"identity"`     // Externally authenticated identity
	Name         string    `json:"name"`         // Display name
	Role         Role      `json:"role"`         // Immutable once registered
	Location     string    `json:"location"`
	Verified     bool      `json:"verified"`     // Flipped to true by the administrator, never back
	RegisteredAt time.Time `json:"registeredAt"` // Transaction timestamp of registration
}
