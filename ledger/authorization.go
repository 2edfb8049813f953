package ledger

import (
	"errors"
	"fmt"

	"agritrace/model"
)

// TransitionPolicy decides which verified participants may advance a product.
type TransitionPolicy string

const (
	// PolicyPermissive lets any verified, authorized participant append any
	// legal transition regardless of role.
	PolicyPermissive TransitionPolicy = "permissive"
	// PolicyStageRoles additionally requires the role that owns the target stage.
	PolicyStageRoles TransitionPolicy = "stage-roles"
)

// stageRoles maps each transition target to the role that owns it under PolicyStageRoles.
var stageRoles = map[model.ProductStatus]model.Role{
	model.StatusHarvested:  model.RoleFarmer,
	model.StatusProcessed:  model.RoleProcessor,
	model.StatusPackaged:   model.RoleProcessor,
	model.StatusInTransit:  model.RoleDistributor,
	model.StatusAtRetailer: model.RoleRetailer,
	model.StatusSold:       model.RoleRetailer,
}

// ParseTransitionPolicy maps "" to PolicyPermissive.
func ParseTransitionPolicy(s string) (TransitionPolicy, error) {
	switch TransitionPolicy(s) {
	case "", PolicyPermissive:
		return PolicyPermissive, nil
	case PolicyStageRoles:
		return PolicyStageRoles, nil
	}
	return "", fmt.Errorf("%w: unknown transition policy '%s'", ErrInvalidInput, s)
}

// Allows reports whether a participant holding role may move a product into next.
func (p TransitionPolicy) Allows(role model.Role, next model.ProductStatus) bool {
	if p != PolicyStageRoles {
		return true
	}
	owner, ok := stageRoles[next]
	return ok && owner == role
}

// MayRegisterProduct is the product registration rule: a verified farmer.
func MayRegisterProduct(p *model.Participant) bool {
	return p != nil && p.Role == model.RoleFarmer && p.Verified
}

// MayAppendTransition is the transition rule: verified with authorized standing.
func MayAppendTransition(p *model.Participant, authorized bool) bool {
	return p != nil && p.Verified && authorized
}

// Gate answers authorization questions from IdentityRegistry state. It holds
// no state of its own. The error result only reports state read failures.
type Gate struct {
	registry *IdentityRegistry
}

// NewGate creates a gate reading from registry.
func NewGate(registry *IdentityRegistry) *Gate {
	return &Gate{registry: registry}
}

// participant returns nil, nil for unregistered identities.
func (g *Gate) participant(identity string) (*model.Participant, error) {
	if identity == "" {
		return nil, nil
	}
	p, err := g.registry.Get(identity)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return p, err
}

// IsAdmin reports whether identity is the administrator fixed at initialization.
func (g *Gate) IsAdmin(identity string) (bool, error) {
	cfg, err := g.registry.config()
	if err != nil {
		if errors.Is(err, ErrNotInitialized) {
			return false, nil
		}
		return false, err
	}
	return identity != "" && identity == cfg.Admin, nil
}

// CanRegisterProduct reports whether identity is a verified farmer.
func (g *Gate) CanRegisterProduct(identity string) (bool, error) {
	p, err := g.participant(identity)
	if err != nil {
		return false, err
	}
	return MayRegisterProduct(p), nil
}

// CanAppendTransition reports whether identity is verified and authorized.
func (g *Gate) CanAppendTransition(identity string) (bool, error) {
	p, err := g.participant(identity)
	if err != nil || p == nil {
		return false, err
	}
	authorized, err := g.registry.IsAuthorized(identity)
	if err != nil {
		return false, err
	}
	return MayAppendTransition(p, authorized), nil
}

// CanAppendTransitionTo applies CanAppendTransition and then the configured
// transition policy for the target stage.
func (g *Gate) CanAppendTransitionTo(identity string, next model.ProductStatus) (bool, error) {
	ok, err := g.CanAppendTransition(identity)
	if err != nil || !ok {
		return false, err
	}
	cfg, err := g.registry.config()
	if err != nil {
		return false, err
	}
	p, err := g.participant(identity)
	if err != nil || p == nil {
		return false, err
	}
	return cfg.Policy.Allows(p.Role, next), nil
}
