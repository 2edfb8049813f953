package contract

import (
	"crypto/x509"
	"errors"
	"fmt"
	"testing"

	"agritrace/ledger"
	"agritrace/model"

	"github.com/hyperledger/fabric-chaincode-go/pkg/cid"
	"github.com/hyperledger/fabric-chaincode-go/shimtest"
	"github.com/hyperledger/fabric-contract-api-go/contractapi"
)

const (
	adminID  = "x509::CN=admin::O=Org1"
	farmerID = "x509::CN=alice::O=Org1"
	truckID  = "x509::CN=bob::O=Org2"
)

// fakeIdentity satisfies cid.ClientIdentity with a fixed id.
type fakeIdentity struct {
	id  string
	msp string
}

var _ cid.ClientIdentity = (*fakeIdentity)(nil)

func (f *fakeIdentity) GetID() (string, error)    { return f.id, nil }
func (f *fakeIdentity) GetMSPID() (string, error) { return f.msp, nil }
func (f *fakeIdentity) GetAttributeValue(string) (string, bool, error) {
	return "", false, nil
}
func (f *fakeIdentity) AssertAttributeValue(name, _ string) error {
	return errors.New("attribute " + name + " not present")
}
func (f *fakeIdentity) GetX509Certificate() (*x509.Certificate, error) { return nil, nil }

type harness struct {
	t        *testing.T
	stub     *shimtest.MockStub
	contract *SupplyChainContract
	txSeq    int
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return &harness{
		t:        t,
		stub:     shimtest.NewMockStub("agritrace", nil),
		contract: &SupplyChainContract{},
	}
}

func (h *harness) ctx(identity string) *contractapi.TransactionContext {
	ctx := &contractapi.TransactionContext{}
	ctx.SetStub(h.stub)
	ctx.SetClientIdentity(&fakeIdentity{id: identity, msp: "Org1MSP"})
	return ctx
}

// tx runs fn inside a mock transaction.
func (h *harness) tx(fn func()) {
	h.txSeq++
	txID := fmt.Sprintf("tx%d", h.txSeq)
	h.stub.MockTransactionStart(txID)
	defer h.stub.MockTransactionEnd(txID)
	fn()
}

// lastEvent returns the notifications of the most recent chaincode event.
func (h *harness) lastEvent() (string, []model.Notification) {
	h.t.Helper()
	var name string
	var payload []byte
drain:
	for {
		select {
		case ev := <-h.stub.ChaincodeEventsChannel:
			name, payload = ev.EventName, ev.Payload
		default:
			break drain
		}
	}
	if name == "" {
		h.t.Fatalf("no chaincode event emitted")
	}
	notes, err := ledger.DecodeNotifications(payload)
	if err != nil {
		h.t.Fatalf("decode event %s: %v", name, err)
	}
	return name, notes
}

func (h *harness) setup() {
	h.t.Helper()
	h.tx(func() {
		if err := h.contract.InitLedger(h.ctx(adminID), "", "permissive"); err != nil {
			h.t.Fatalf("init ledger: %v", err)
		}
	})
	for identity, role := range map[string]string{farmerID: "Farmer", truckID: "distributor"} {
		identity, role := identity, role
		h.tx(func() {
			if err := h.contract.RegisterUser(h.ctx(identity), "user", role, "Somewhere"); err != nil {
				h.t.Fatalf("register %s: %v", identity, err)
			}
		})
		h.tx(func() {
			if err := h.contract.VerifyUser(h.ctx(adminID), identity); err != nil {
				h.t.Fatalf("verify %s: %v", identity, err)
			}
		})
	}
	h.lastEvent()
}

func TestContractProductLifecycle(t *testing.T) {
	h := newHarness(t)
	h.setup()

	var id uint64
	h.tx(func() {
		var err error
		id, err = h.contract.RegisterProduct(h.ctx(farmerID), "Tomatoes", "Cherry", "Farm A", true, 1000, "EU Organic")
		if err != nil {
			t.Fatalf("register product: %v", err)
		}
	})
	if id != 1 {
		t.Fatalf("expected id 1, got %d", id)
	}
	name, notes := h.lastEvent()
	if name != string(model.NotifyProductRegistered) || len(notes) != 2 || notes[1].Kind != model.NotifyHistoryStepAdded {
		t.Fatalf("unexpected registration event %s %+v", name, notes)
	}

	h.tx(func() {
		if err := h.contract.UpdateProductStatus(h.ctx(farmerID), id, "harvested", "Farm A", "Harvested crop", ""); err != nil {
			t.Fatalf("harvest: %v", err)
		}
	})
	name, notes = h.lastEvent()
	if name != string(model.NotifyStatusUpdated) || notes[0].PreviousStatus != model.StatusPlanted || notes[0].Status != model.StatusHarvested {
		t.Fatalf("unexpected status event %s %+v", name, notes)
	}

	h.tx(func() {
		err := h.contract.UpdateProductStatus(h.ctx(truckID), id, "In Transit", "Road", "Ship", "")
		if !errors.Is(err, ledger.ErrInvalidTransition) {
			t.Fatalf("expected invalid transition, got %v", err)
		}
	})
	h.tx(func() {
		err := h.contract.UpdateProductStatus(h.ctx(truckID), id, "Spoiled", "Road", "Ship", "")
		if !errors.Is(err, ledger.ErrInvalidInput) {
			t.Fatalf("expected invalid input, got %v", err)
		}
	})

	history, err := h.contract.GetProductHistory(h.ctx(truckID), id)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if history.Product.Status != model.StatusHarvested || len(history.Events) != 2 {
		t.Fatalf("unexpected history %+v", history)
	}
	if history.Events[0].Action != "Product Planted" || history.Events[0].AdditionalInfo != "1000" {
		t.Fatalf("unexpected planted event %+v", history.Events[0])
	}

	byFarmer, err := h.contract.GetProductsByFarmer(h.ctx(farmerID), "")
	if err != nil || len(byFarmer) != 1 || byFarmer[0] != id {
		t.Fatalf("unexpected farmer products %v (%v)", byFarmer, err)
	}
	planted, err := h.contract.GetProductsByStatus(h.ctx(truckID), "Planted")
	if err != nil || planted == nil || len(planted) != 0 {
		t.Fatalf("expected empty non-nil planted set, got %#v (%v)", planted, err)
	}
	harvested, _ := h.contract.GetProductsByStatus(h.ctx(truckID), "Harvested")
	if len(harvested) != 1 || harvested[0] != id {
		t.Fatalf("unexpected harvested set %v", harvested)
	}
	organic, err := h.contract.VerifyOrganic(h.ctx(truckID), id)
	if err != nil || !organic {
		t.Fatalf("expected organic, got %v (%v)", organic, err)
	}
	all, _ := h.contract.GetAllProducts(h.ctx(truckID))
	if len(all) != 1 || all[0] != id {
		t.Fatalf("unexpected product list %v", all)
	}
}

func TestContractRejectsUnverifiedFarmer(t *testing.T) {
	h := newHarness(t)
	h.tx(func() {
		if err := h.contract.InitLedger(h.ctx(adminID), "", ""); err != nil {
			t.Fatalf("init: %v", err)
		}
	})
	h.tx(func() {
		if err := h.contract.RegisterUser(h.ctx(farmerID), "Alice", "Farmer", "Farm A"); err != nil {
			t.Fatalf("register: %v", err)
		}
	})
	h.tx(func() {
		_, err := h.contract.RegisterProduct(h.ctx(farmerID), "Tomatoes", "", "Farm A", false, 10, "")
		if !errors.Is(err, ledger.ErrUnauthorized) {
			t.Fatalf("expected unauthorized, got %v", err)
		}
	})
	h.tx(func() {
		err := h.contract.VerifyUser(h.ctx(farmerID), farmerID)
		if !errors.Is(err, ledger.ErrNotAdmin) {
			t.Fatalf("expected not admin, got %v", err)
		}
	})
	h.tx(func() {
		err := h.contract.RegisterUser(h.ctx(truckID), "Bob", "Trucker", "Road")
		if !errors.Is(err, ledger.ErrInvalidRole) {
			t.Fatalf("expected invalid role, got %v", err)
		}
	})
}

func TestContractUserQueries(t *testing.T) {
	h := newHarness(t)
	h.setup()

	me, err := h.contract.GetUserInfo(h.ctx(farmerID), "")
	if err != nil {
		t.Fatalf("user info: %v", err)
	}
	if me.Identity != farmerID || me.Role != model.RoleFarmer || !me.Verified {
		t.Fatalf("unexpected participant %+v", me)
	}
	if _, err := h.contract.GetUserInfo(h.ctx(farmerID), "x509::CN=nobody"); !errors.Is(err, ledger.ErrNotRegistered) {
		t.Fatalf("expected not registered, got %v", err)
	}

	users, err := h.contract.GetAllUsers(h.ctx(adminID))
	if err != nil || len(users) != 2 {
		t.Fatalf("unexpected users %v (%v)", users, err)
	}
	counts, err := h.contract.GetRoleCounts(h.ctx(adminID))
	if err != nil {
		t.Fatalf("role counts: %v", err)
	}
	if counts["Farmer"] != 1 || counts["Distributor"] != 1 || counts["Consumer"] != 0 {
		t.Fatalf("unexpected counts %v", counts)
	}
}

func TestCallerIdentityRequired(t *testing.T) {
	h := newHarness(t)
	h.tx(func() {
		if err := h.contract.InitLedger(h.ctx(""), "", ""); err == nil {
			t.Fatalf("expected error for empty caller identity")
		}
	})
}

func TestContractRegistersWithChaincode(t *testing.T) {
	cc, err := contractapi.NewChaincode(&SupplyChainContract{})
	if err != nil {
		t.Fatalf("contract does not satisfy contractapi: %v", err)
	}
	if cc == nil {
		t.Fatalf("nil chaincode")
	}
}
