package contract

import (
	"errors"
	"fmt"

	"agritrace/ledger"
	"agritrace/model"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
	"github.com/hyperledger/fabric/common/flogging"
)

var logger = flogging.MustGetLogger("agritrace.contract")

// SupplyChainContract exposes the product custody ledger as chaincode
// transactions. The caller identity is the X.509 client identity of the
// submitting client and is passed explicitly into the ledger.
// @contract:SupplyChainContract
type SupplyChainContract struct {
	contractapi.Contract
}

// InitLedger fixes the administrator identity (the caller when adminIdentity
// is empty) and the transition policy ("permissive" or "stage-roles").
func (s *SupplyChainContract) InitLedger(ctx contractapi.TransactionContextInterface, adminIdentity, transitionPolicy string) error {
	caller, err := callerIdentity(ctx)
	if err != nil {
		return fmt.Errorf("InitLedger: %w", err)
	}
	logger.Infof("Chaincode Call: InitLedger by '%s' (admin '%s', policy '%s')", caller, adminIdentity, transitionPolicy)
	policy, err := ledger.ParseTransitionPolicy(transitionPolicy)
	if err != nil {
		return err
	}
	return ledger.New(ctx.GetStub()).Registry.Init(caller, adminIdentity, policy)
}

// --- Participant operations ---

// RegisterUser registers the caller as an unverified participant.
func (s *SupplyChainContract) RegisterUser(ctx contractapi.TransactionContextInterface, name, role, location string) error {
	caller, err := callerIdentity(ctx)
	if err != nil {
		return fmt.Errorf("RegisterUser: %w", err)
	}
	logger.Infof("Chaincode Call: RegisterUser '%s' as '%s' for '%s'", name, role, caller)
	parsed, err := model.ParseRole(role)
	if err != nil {
		return fmt.Errorf("%w: %v", ledger.ErrInvalidRole, err)
	}
	return ledger.New(ctx.GetStub()).Registry.Register(caller, name, parsed, location)
}

// VerifyUser verifies target and grants it authorized standing. Admin only.
func (s *SupplyChainContract) VerifyUser(ctx contractapi.TransactionContextInterface, targetIdentity string) error {
	caller, err := callerIdentity(ctx)
	if err != nil {
		return fmt.Errorf("VerifyUser: %w", err)
	}
	logger.Infof("Chaincode Call: VerifyUser '%s' by '%s'", targetIdentity, caller)
	return ledger.New(ctx.GetStub()).Registry.Verify(caller, targetIdentity)
}

// GetUserInfo returns the participant record of identity, or of the caller
// when identity is empty.
func (s *SupplyChainContract) GetUserInfo(ctx contractapi.TransactionContextInterface, identity string) (*model.Participant, error) {
	if identity == "" {
		caller, err := callerIdentity(ctx)
		if err != nil {
			return nil, fmt.Errorf("GetUserInfo: %w", err)
		}
		identity = caller
	}
	logger.Debugf("Chaincode Call: GetUserInfo for '%s'", identity)
	return ledger.New(ctx.GetStub()).Registry.Get(identity)
}

// GetAllUsers returns registered identities in registration order.
func (s *SupplyChainContract) GetAllUsers(ctx contractapi.TransactionContextInterface) ([]string, error) {
	logger.Debug("Chaincode Call: GetAllUsers")
	return ledger.New(ctx.GetStub()).Registry.List()
}

// GetRoleCounts returns the number of registered participants per role.
func (s *SupplyChainContract) GetRoleCounts(ctx contractapi.TransactionContextInterface) (map[string]uint64, error) {
	logger.Debug("Chaincode Call: GetRoleCounts")
	counts, err := ledger.New(ctx.GetStub()).Registry.RoleCounts()
	if err != nil {
		return nil, err
	}
	out := make(map[string]uint64, len(counts))
	for role, n := range counts {
		out[string(role)] = n
	}
	return out, nil
}

// callerIdentity resolves the submitting client's identity.
func callerIdentity(ctx contractapi.TransactionContextInterface) (string, error) {
	clientIdentity := ctx.GetClientIdentity()
	if clientIdentity == nil {
		return "", errors.New("client identity is nil from context")
	}
	id, err := clientIdentity.GetID()
	if err != nil {
		return "", fmt.Errorf("failed to get client identity ID from context: %w", err)
	}
	if id == "" {
		return "", errors.New("client identity ID from context is empty")
	}
	return id, nil
}
