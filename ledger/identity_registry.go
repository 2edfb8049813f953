package ledger

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"agritrace/model"

	"github.com/hyperledger/fabric/common/flogging"
)

var idLogger = flogging.MustGetLogger("agritrace.identity")

// ledgerConfig is written once by Init.
type ledgerConfig struct {
	ObjectType    string           `json:"objectType"`
	Admin         string           `json:"admin"`
	Policy        TransitionPolicy `json:"policy"`
	InitializedBy string           `json:"initializedBy"`
	InitializedAt time.Time        `json:"initializedAt"`
}

// IdentityRegistry stores registered participants, their declared role and
// verification state.
type IdentityRegistry struct {
	stub Stub
}

// NewIdentityRegistry creates a registry over the transaction stub.
func NewIdentityRegistry(stub Stub) *IdentityRegistry {
	return &IdentityRegistry{stub: stub}
}

func (r *IdentityRegistry) configKey() (string, error) {
	return r.stub.CreateCompositeKey(configObjectType, []string{"current"})
}

func (r *IdentityRegistry) participantKey(identity string) (string, error) {
	return r.stub.CreateCompositeKey(participantObjectType, []string{identity})
}

func (r *IdentityRegistry) authorizedKey(identity string) (string, error) {
	return r.stub.CreateCompositeKey(authorizedObjectType, []string{identity})
}

func (r *IdentityRegistry) config() (*ledgerConfig, error) {
	key, err := r.configKey()
	if err != nil {
		return nil, fmt.Errorf("failed to create config key: %w", err)
	}
	var cfg ledgerConfig
	found, err := getJSON(r.stub, key, &cfg)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNotInitialized
	}
	return &cfg, nil
}

// Init fixes the administrator identity and transition policy. An empty admin
// makes the caller the administrator. It succeeds once per ledger.
func (r *IdentityRegistry) Init(caller, admin string, policy TransitionPolicy) error {
	if strings.TrimSpace(admin) == "" {
		admin = caller
	}
	if err := validateIdentity(admin, "admin identity"); err != nil {
		return err
	}
	policy, err := ParseTransitionPolicy(string(policy))
	if err != nil {
		return err
	}

	_, err = r.config()
	if err == nil {
		return fmt.Errorf("%w: administrator already established", ErrAlreadyInitialized)
	}
	if !errors.Is(err, ErrNotInitialized) {
		return err
	}

	now, err := txTime(r.stub)
	if err != nil {
		return err
	}
	key, err := r.configKey()
	if err != nil {
		return fmt.Errorf("failed to create config key: %w", err)
	}
	cfg := ledgerConfig{
		ObjectType:    configObjectType,
		Admin:         admin,
		Policy:        policy,
		InitializedBy: caller,
		InitializedAt: now,
	}
	if err := putJSON(r.stub, key, cfg); err != nil {
		return err
	}
	idLogger.Infof("Ledger initialized by '%s': administrator '%s', transition policy '%s'", caller, admin, policy)
	return nil
}

// Register records identity as a new, unverified participant.
func (r *IdentityRegistry) Register(identity, name string, role model.Role, location string) error {
	if err := validateIdentity(identity, "identity"); err != nil {
		return err
	}
	if !role.Valid() {
		return fmt.Errorf("%w '%s'; valid roles are %v", ErrInvalidRole, role, model.Roles)
	}
	if err := validateRequiredString(name, "name", maxStringInputLength); err != nil {
		return err
	}
	if err := validateRequiredString(location, "location", maxStringInputLength); err != nil {
		return err
	}
	if _, err := r.config(); err != nil {
		return err
	}

	key, err := r.participantKey(identity)
	if err != nil {
		return fmt.Errorf("failed to create participant key for '%s': %w", identity, err)
	}
	existing, err := r.stub.GetState(key)
	if err != nil {
		return fmt.Errorf("failed to check registration of '%s': %w", identity, err)
	}
	if existing != nil {
		return fmt.Errorf("%w: identity '%s'", ErrAlreadyRegistered, identity)
	}

	countKey, err := r.stub.CreateCompositeKey(counterObjectType, []string{participantCounter})
	if err != nil {
		return fmt.Errorf("failed to create participant counter key: %w", err)
	}
	roleKey, err := r.stub.CreateCompositeKey(roleCountObjectType, []string{string(role)})
	if err != nil {
		return fmt.Errorf("failed to create role counter key: %w", err)
	}
	total, err := readCounter(r.stub, countKey)
	if err != nil {
		return err
	}
	roleTotal, err := readCounter(r.stub, roleKey)
	if err != nil {
		return err
	}
	now, err := txTime(r.stub)
	if err != nil {
		return err
	}

	participant := model.Participant{
		ObjectType:   participantObjectType,
		Identity:     identity,
		Name:         name,
		Role:         role,
		Location:     location,
		Verified:     false,
		RegisteredAt: now,
	}
	if err := putJSON(r.stub, key, participant); err != nil {
		return err
	}
	indexKey, err := r.stub.CreateCompositeKey(participantIndexObjectType, []string{padID(total + 1)})
	if err != nil {
		return fmt.Errorf("failed to create participant index key: %w", err)
	}
	if err := r.stub.PutState(indexKey, []byte(identity)); err != nil {
		return fmt.Errorf("failed to append '%s' to participant index: %w", identity, err)
	}
	if err := writeCounter(r.stub, countKey, total+1); err != nil {
		return err
	}
	if err := writeCounter(r.stub, roleKey, roleTotal+1); err != nil {
		return err
	}

	if err := publish(r.stub, model.Notification{
		Kind:      model.NotifyUserRegistered,
		Actor:     identity,
		Timestamp: now,
		Identity:  identity,
		Role:      role,
		Name:      name,
		Location:  location,
	}); err != nil {
		return err
	}
	idLogger.Infof("Registered participant '%s' (%s) as %s at '%s'", identity, name, role, location)
	return nil
}

// Verify marks target verified and grants it authorized standing. Only the
// administrator may call it, once per participant.
func (r *IdentityRegistry) Verify(admin, target string) error {
	cfg, err := r.config()
	if err != nil {
		return err
	}
	if admin == "" || admin != cfg.Admin {
		idLogger.Warningf("Verify rejected: caller '%s' is not the administrator", admin)
		return fmt.Errorf("%w: '%s' cannot verify participants", ErrNotAdmin, admin)
	}
	if err := validateIdentity(target, "target identity"); err != nil {
		return err
	}

	participant, err := r.Get(target)
	if err != nil {
		return err
	}
	if participant.Verified {
		return fmt.Errorf("%w: identity '%s'", ErrAlreadyVerified, target)
	}
	now, err := txTime(r.stub)
	if err != nil {
		return err
	}

	participant.Verified = true
	key, err := r.participantKey(target)
	if err != nil {
		return fmt.Errorf("failed to create participant key for '%s': %w", target, err)
	}
	if err := putJSON(r.stub, key, participant); err != nil {
		return err
	}
	authKey, err := r.authorizedKey(target)
	if err != nil {
		return fmt.Errorf("failed to create authorized key for '%s': %w", target, err)
	}
	if err := r.stub.PutState(authKey, []byte("true")); err != nil {
		return fmt.Errorf("failed to grant authorized standing to '%s': %w", target, err)
	}

	if err := publish(r.stub, model.Notification{
		Kind:      model.NotifyUserVerified,
		Actor:     admin,
		Timestamp: now,
		Identity:  target,
		Role:      participant.Role,
		Name:      participant.Name,
		Location:  participant.Location,
	}); err != nil {
		return err
	}
	idLogger.Infof("Participant '%s' (%s) verified by administrator '%s'", target, participant.Role, admin)
	return nil
}

// Get returns the participant registered under identity.
func (r *IdentityRegistry) Get(identity string) (*model.Participant, error) {
	if strings.TrimSpace(identity) == "" {
		return nil, fmt.Errorf("%w: identity cannot be empty", ErrInvalidInput)
	}
	key, err := r.participantKey(identity)
	if err != nil {
		return nil, fmt.Errorf("failed to create participant key for '%s': %w", identity, err)
	}
	var participant model.Participant
	found, err := getJSON(r.stub, key, &participant)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: '%s'", ErrNotRegistered, identity)
	}
	return &participant, nil
}

// IsAuthorized reports whether identity holds authorized standing.
func (r *IdentityRegistry) IsAuthorized(identity string) (bool, error) {
	key, err := r.authorizedKey(identity)
	if err != nil {
		return false, fmt.Errorf("failed to create authorized key for '%s': %w", identity, err)
	}
	flag, err := r.stub.GetState(key)
	if err != nil {
		return false, fmt.Errorf("failed to read authorized standing of '%s': %w", identity, err)
	}
	return string(flag) == "true", nil
}

// List returns registered identities in registration order.
func (r *IdentityRegistry) List() ([]string, error) {
	values, err := scanValues(r.stub, participantIndexObjectType)
	if err != nil {
		return nil, err
	}
	identities := make([]string, 0, len(values))
	for _, v := range values {
		identities = append(identities, string(v))
	}
	return identities, nil
}

// RoleCounts returns the number of registered participants per role. Every
// role is present, zero when nobody holds it.
func (r *IdentityRegistry) RoleCounts() (map[model.Role]uint64, error) {
	counts := make(map[model.Role]uint64, len(model.Roles))
	for _, role := range model.Roles {
		key, err := r.stub.CreateCompositeKey(roleCountObjectType, []string{string(role)})
		if err != nil {
			return nil, fmt.Errorf("failed to create role counter key: %w", err)
		}
		n, err := readCounter(r.stub, key)
		if err != nil {
			return nil, err
		}
		counts[role] = n
	}
	return counts, nil
}

// Administrator returns the administrator identity fixed at initialization.
func (r *IdentityRegistry) Administrator() (string, error) {
	cfg, err := r.config()
	if err != nil {
		return "", err
	}
	return cfg.Admin, nil
}

// Policy returns the transition policy fixed at initialization.
func (r *IdentityRegistry) Policy() (TransitionPolicy, error) {
	cfg, err := r.config()
	if err != nil {
		return "", err
	}
	return cfg.Policy, nil
}
