package contract

import (
	"fmt"

	"agritrace/ledger"
	"agritrace/model"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
)

// --- Lifecycle operations ---

// RegisterProduct creates a Planted product owned by the calling farmer and
// returns its id.
func (s *SupplyChainContract) RegisterProduct(ctx contractapi.TransactionContextInterface,
	name string, variety string, farmLocation string, isOrganic bool, batchSize int64, certifications string) (uint64, error) {

	caller, err := callerIdentity(ctx)
	if err != nil {
		return 0, fmt.Errorf("RegisterProduct: %w", err)
	}
	logger.Infof("Chaincode Call: RegisterProduct '%s' (%s) by '%s'", name, variety, caller)
	return ledger.New(ctx.GetStub()).Products.RegisterProduct(caller, name, variety, farmLocation, isOrganic, batchSize, certifications)
}

// UpdateProductStatus moves a product to the next lifecycle stage.
func (s *SupplyChainContract) UpdateProductStatus(ctx contractapi.TransactionContextInterface,
	productID uint64, newStatus string, location string, action string, additionalInfo string) error {

	caller, err := callerIdentity(ctx)
	if err != nil {
		return fmt.Errorf("UpdateProductStatus: %w", err)
	}
	logger.Infof("Chaincode Call: UpdateProductStatus %d -> '%s' by '%s'", productID, newStatus, caller)
	status, err := model.ParseProductStatus(newStatus)
	if err != nil {
		return fmt.Errorf("%w: %v", ledger.ErrInvalidInput, err)
	}
	return ledger.New(ctx.GetStub()).Products.UpdateStatus(caller, productID, status, location, action, additionalInfo)
}
