// Package ledger implements the custody ledger for agricultural products: a
// participant registry, the authorization rules over it, the product
// lifecycle and the append-only per-product history.
//
// Components are built per transaction over a Stub. A mutating operation
// validates everything before its first write, so a rejected call leaves no
// trace; the surrounding transaction (a Fabric proposal or a memstate.Update)
// commits all writes of a successful call together.
package ledger

// Ledger bundles the components for one transaction.
type Ledger struct {
	Registry *IdentityRegistry
	Gate     *Gate
	Products *ProductLedger
	History  *HistoryStore
}

// New builds the components over stub.
func New(stub Stub) *Ledger {
	registry := NewIdentityRegistry(stub)
	gate := NewGate(registry)
	history := NewHistoryStore(stub)
	return &Ledger{
		Registry: registry,
		Gate:     gate,
		Products: NewProductLedger(stub, registry, gate, history),
		History:  history,
	}
}
