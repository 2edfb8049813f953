package contract

import (
	"fmt"

	"agritrace/ledger"
	"agritrace/model"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
)

// --- Query Functions ---

// GetProductHistory returns the product and its ordered history events.
func (s *SupplyChainContract) GetProductHistory(ctx contractapi.TransactionContextInterface, productID uint64) (*model.ProductHistory, error) {
	logger.Debugf("Chaincode Call: GetProductHistory for product %d", productID)
	return ledger.New(ctx.GetStub()).Products.GetHistory(productID)
}

// GetProductsByFarmer returns the ids registered by farmer, or by the caller
// when farmer is empty.
func (s *SupplyChainContract) GetProductsByFarmer(ctx contractapi.TransactionContextInterface, farmer string) ([]uint64, error) {
	if farmer == "" {
		caller, err := callerIdentity(ctx)
		if err != nil {
			return nil, fmt.Errorf("GetProductsByFarmer: %w", err)
		}
		farmer = caller
	}
	logger.Debugf("Chaincode Call: GetProductsByFarmer for '%s'", farmer)
	return ledger.New(ctx.GetStub()).Products.GetByFarmer(farmer)
}

// GetProductsByStatus returns the ids of products currently in status.
func (s *SupplyChainContract) GetProductsByStatus(ctx contractapi.TransactionContextInterface, status string) ([]uint64, error) {
	logger.Debugf("Chaincode Call: GetProductsByStatus for '%s'", status)
	parsed, err := model.ParseProductStatus(status)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ledger.ErrInvalidInput, err)
	}
	return ledger.New(ctx.GetStub()).Products.GetByStatus(parsed)
}

// VerifyOrganic reports whether a product is organic.
func (s *SupplyChainContract) VerifyOrganic(ctx contractapi.TransactionContextInterface, productID uint64) (bool, error) {
	logger.Debugf("Chaincode Call: VerifyOrganic for product %d", productID)
	return ledger.New(ctx.GetStub()).Products.IsOrganic(productID)
}

// GetAllProducts returns every product id in creation order.
func (s *SupplyChainContract) GetAllProducts(ctx contractapi.TransactionContextInterface) ([]uint64, error) {
	logger.Debug("Chaincode Call: GetAllProducts")
	return ledger.New(ctx.GetStub()).Products.ListAll()
}
