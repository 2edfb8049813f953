package ledger

import (
	"fmt"
	"strconv"

	"agritrace/model"

	"github.com/hyperledger/fabric/common/flogging"
)

var logger = flogging.MustGetLogger("agritrace.ledger")

// Synthesized first event of every product.
const plantedAction = "Product Planted"

// ProductLedger owns product records and their lifecycle state.
type ProductLedger struct {
	stub     Stub
	registry *IdentityRegistry
	gate     *Gate
	history  *HistoryStore
}

// NewProductLedger wires a ledger to its collaborators over one transaction stub.
func NewProductLedger(stub Stub, registry *IdentityRegistry, gate *Gate, history *HistoryStore) *ProductLedger {
	return &ProductLedger{stub: stub, registry: registry, gate: gate, history: history}
}

func (l *ProductLedger) productKey(id uint64) (string, error) {
	return l.stub.CreateCompositeKey(productObjectType, []string{padID(id)})
}

func (l *ProductLedger) farmerIndexKey(farmer string, id uint64) (string, error) {
	return l.stub.CreateCompositeKey(productByFarmerObjectType, []string{farmer, padID(id)})
}

func (l *ProductLedger) statusIndexKey(status model.ProductStatus, id uint64) (string, error) {
	return l.stub.CreateCompositeKey(productByStatusObjectType, []string{string(status), padID(id)})
}

// RegisterProduct creates a product in the Planted state for a verified farmer
// and records its first history event. It returns the new product id.
func (l *ProductLedger) RegisterProduct(identity, name, variety, farmLocation string, isOrganic bool, batchSize int64, certifications string) (uint64, error) {
	allowed, err := l.gate.CanRegisterProduct(identity)
	if err != nil {
		return 0, fmt.Errorf("RegisterProduct: failed to check authorization of '%s': %w", identity, err)
	}
	if !allowed {
		logger.Warningf("RegisterProduct rejected: '%s' is not a verified farmer", identity)
		return 0, fmt.Errorf("%w: identity '%s' is not a verified farmer", ErrUnauthorized, identity)
	}

	if err := validateRequiredString(name, "name", maxStringInputLength); err != nil {
		return 0, err
	}
	if err := validateOptionalString(variety, "variety", maxStringInputLength); err != nil {
		return 0, err
	}
	if err := validateRequiredString(farmLocation, "farmLocation", maxStringInputLength); err != nil {
		return 0, err
	}
	if err := validateOptionalString(certifications, "certifications", maxDescriptionLength); err != nil {
		return 0, err
	}
	if batchSize <= 0 {
		return 0, fmt.Errorf("%w: batchSize must be positive, got %d", ErrInvalidInput, batchSize)
	}

	counterKey, err := l.stub.CreateCompositeKey(counterObjectType, []string{productCounter})
	if err != nil {
		return 0, fmt.Errorf("RegisterProduct: failed to create product counter key: %w", err)
	}
	last, err := readCounter(l.stub, counterKey)
	if err != nil {
		return 0, fmt.Errorf("RegisterProduct: %w", err)
	}
	id := last + 1
	now, err := txTime(l.stub)
	if err != nil {
		return 0, fmt.Errorf("RegisterProduct: %w", err)
	}

	product := model.Product{
		ObjectType:     productObjectType,
		ID:             id,
		Name:           name,
		Variety:        variety,
		FarmLocation:   farmLocation,
		Farmer:         identity,
		IsOrganic:      isOrganic,
		BatchSize:      batchSize,
		Certifications: certifications,
		Status:         model.StatusPlanted,
		PlantedAt:      now,
	}
	if err := l.putProduct(&product); err != nil {
		return 0, fmt.Errorf("RegisterProduct: %w", err)
	}
	farmerKey, err := l.farmerIndexKey(identity, id)
	if err != nil {
		return 0, fmt.Errorf("RegisterProduct: failed to create farmer index key: %w", err)
	}
	if err := l.stub.PutState(farmerKey, []byte(padID(id))); err != nil {
		return 0, fmt.Errorf("RegisterProduct: failed to index product %d by farmer: %w", id, err)
	}
	if err := l.indexStatus(id, model.StatusPlanted); err != nil {
		return 0, fmt.Errorf("RegisterProduct: %w", err)
	}
	if err := writeCounter(l.stub, counterKey, id); err != nil {
		return 0, fmt.Errorf("RegisterProduct: %w", err)
	}

	event := model.HistoryEvent{
		Actor:          identity,
		Role:           model.RoleFarmer,
		Status:         model.StatusPlanted,
		Timestamp:      now,
		Location:       farmLocation,
		Action:         plantedAction,
		AdditionalInfo: strconv.FormatInt(batchSize, 10),
	}
	seq, err := l.history.appendEvent(id, event)
	if err != nil {
		return 0, fmt.Errorf("RegisterProduct: %w", err)
	}

	if err := publish(l.stub,
		model.Notification{
			Kind: model.NotifyProductRegistered, Actor: identity, Timestamp: now,
			ProductID: id, ProductName: name, Status: model.StatusPlanted,
		},
		model.Notification{
			Kind: model.NotifyHistoryStepAdded, Actor: identity, Timestamp: now,
			ProductID: id, ProductName: name, Status: model.StatusPlanted, Event: &event, Sequence: seq,
		},
	); err != nil {
		return 0, fmt.Errorf("RegisterProduct: %w", err)
	}
	logger.Infof("Product %d '%s' (batch %d) registered by farmer '%s' at '%s'", id, name, batchSize, identity, farmLocation)
	return id, nil
}

// UpdateStatus advances product id to newStatus, which must be the single
// successor of its current status, and appends the matching history event.
func (l *ProductLedger) UpdateStatus(identity string, id uint64, newStatus model.ProductStatus, location, action, additionalInfo string) error {
	allowed, err := l.gate.CanAppendTransition(identity)
	if err != nil {
		return fmt.Errorf("UpdateStatus: failed to check authorization of '%s': %w", identity, err)
	}
	if !allowed {
		logger.Warningf("UpdateStatus rejected: '%s' is not verified and authorized", identity)
		return fmt.Errorf("%w: identity '%s' is not verified and authorized", ErrUnauthorized, identity)
	}

	if !newStatus.Valid() {
		return fmt.Errorf("%w: unknown status '%s'", ErrInvalidInput, newStatus)
	}
	if err := validateRequiredString(location, "location", maxStringInputLength); err != nil {
		return err
	}
	if err := validateRequiredString(action, "action", maxStringInputLength); err != nil {
		return err
	}
	if err := validateOptionalString(additionalInfo, "additionalInfo", maxDescriptionLength); err != nil {
		return err
	}

	product, err := l.Get(id)
	if err != nil {
		return err
	}
	if !product.Status.CanTransitionTo(newStatus) {
		logger.Warningf("UpdateStatus rejected: product %d cannot move from '%s' to '%s'", id, product.Status, newStatus)
		return fmt.Errorf("%w: product %d is '%s', requested '%s'", ErrInvalidTransition, id, product.Status, newStatus)
	}
	permitted, err := l.gate.CanAppendTransitionTo(identity, newStatus)
	if err != nil {
		return fmt.Errorf("UpdateStatus: failed to apply transition policy: %w", err)
	}
	if !permitted {
		return fmt.Errorf("%w: transition policy does not let '%s' move product %d to '%s'", ErrUnauthorized, identity, id, newStatus)
	}
	actor, err := l.registry.Get(identity)
	if err != nil {
		return fmt.Errorf("UpdateStatus: %w", err)
	}
	now, err := txTime(l.stub)
	if err != nil {
		return fmt.Errorf("UpdateStatus: %w", err)
	}

	previous := product.Status
	product.Status = newStatus
	if newStatus == model.StatusHarvested && product.HarvestedAt.IsZero() {
		product.HarvestedAt = now
	}
	if err := l.putProduct(product); err != nil {
		return fmt.Errorf("UpdateStatus: %w", err)
	}
	oldKey, err := l.statusIndexKey(previous, id)
	if err != nil {
		return fmt.Errorf("UpdateStatus: failed to create status index key: %w", err)
	}
	if err := l.stub.DelState(oldKey); err != nil {
		return fmt.Errorf("UpdateStatus: failed to remove product %d from '%s' index: %w", id, previous, err)
	}
	if err := l.indexStatus(id, newStatus); err != nil {
		return fmt.Errorf("UpdateStatus: %w", err)
	}

	event := model.HistoryEvent{
		Actor:          identity,
		Role:           actor.Role,
		Status:         newStatus,
		Timestamp:      now,
		Location:       location,
		Action:         action,
		AdditionalInfo: additionalInfo,
	}
	seq, err := l.history.appendEvent(id, event)
	if err != nil {
		return fmt.Errorf("UpdateStatus: %w", err)
	}

	if err := publish(l.stub,
		model.Notification{
			Kind: model.NotifyStatusUpdated, Actor: identity, Timestamp: now,
			ProductID: id, ProductName: product.Name, PreviousStatus: previous, Status: newStatus,
		},
		model.Notification{
			Kind: model.NotifyHistoryStepAdded, Actor: identity, Timestamp: now,
			ProductID: id, ProductName: product.Name, Status: newStatus, Event: &event, Sequence: seq,
		},
	); err != nil {
		return fmt.Errorf("UpdateStatus: %w", err)
	}
	logger.Infof("Product %d moved '%s' -> '%s' by '%s' (%s) at '%s'", id, previous, newStatus, identity, actor.Role, location)
	return nil
}

func (l *ProductLedger) putProduct(product *model.Product) error {
	key, err := l.productKey(product.ID)
	if err != nil {
		return fmt.Errorf("failed to create key for product %d: %w", product.ID, err)
	}
	return putJSON(l.stub, key, product)
}

func (l *ProductLedger) indexStatus(id uint64, status model.ProductStatus) error {
	key, err := l.statusIndexKey(status, id)
	if err != nil {
		return fmt.Errorf("failed to create status index key: %w", err)
	}
	if err := l.stub.PutState(key, []byte(padID(id))); err != nil {
		return fmt.Errorf("failed to index product %d by status '%s': %w", id, status, err)
	}
	return nil
}

// Get returns product id.
func (l *ProductLedger) Get(id uint64) (*model.Product, error) {
	if id == 0 {
		return nil, fmt.Errorf("%w: product 0", ErrNotFound)
	}
	key, err := l.productKey(id)
	if err != nil {
		return nil, fmt.Errorf("failed to create key for product %d: %w", id, err)
	}
	var product model.Product
	found, err := getJSON(l.stub, key, &product)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: product %d", ErrNotFound, id)
	}
	return &product, nil
}

// GetHistory returns the product and its events in insertion order.
func (l *ProductLedger) GetHistory(id uint64) (*model.ProductHistory, error) {
	product, err := l.Get(id)
	if err != nil {
		return nil, err
	}
	events, err := l.history.Get(id)
	if err != nil {
		return nil, err
	}
	return &model.ProductHistory{Product: product, Events: events}, nil
}

// GetByFarmer returns the ids of every product registered by farmer, ascending.
func (l *ProductLedger) GetByFarmer(farmer string) ([]uint64, error) {
	if err := validateIdentity(farmer, "farmer"); err != nil {
		return nil, err
	}
	return l.scanIndex(productByFarmerObjectType, farmer)
}

// GetByStatus returns the ids of every product currently in status, ascending.
func (l *ProductLedger) GetByStatus(status model.ProductStatus) ([]uint64, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status '%s'", ErrInvalidInput, status)
	}
	return l.scanIndex(productByStatusObjectType, string(status))
}

// IsOrganic reports the organic flag of product id.
func (l *ProductLedger) IsOrganic(id uint64) (bool, error) {
	product, err := l.Get(id)
	if err != nil {
		return false, err
	}
	return product.IsOrganic, nil
}

// ListAll returns every product id in creation order.
func (l *ProductLedger) ListAll() ([]uint64, error) {
	counterKey, err := l.stub.CreateCompositeKey(counterObjectType, []string{productCounter})
	if err != nil {
		return nil, fmt.Errorf("failed to create product counter key: %w", err)
	}
	last, err := readCounter(l.stub, counterKey)
	if err != nil {
		return nil, err
	}
	ids := make([]uint64, 0, last)
	for id := uint64(1); id <= last; id++ {
		ids = append(ids, id)
	}
	return ids, nil
}

func (l *ProductLedger) scanIndex(objectType, attr string) ([]uint64, error) {
	values, err := scanValues(l.stub, objectType, attr)
	if err != nil {
		return nil, err
	}
	ids := make([]uint64, 0, len(values))
	for _, v := range values {
		id, err := strconv.ParseUint(string(v), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("corrupt '%s' index entry for '%s': %w", objectType, attr, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
