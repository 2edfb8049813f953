package ledger

import (
	"encoding/json"
	"fmt"

	"agritrace/model"
)

// HistoryStore owns the append-only event sequence of every product. It is
// written only by ProductLedger transitions.
type HistoryStore struct {
	stub Stub
}

// NewHistoryStore creates a history store over the transaction stub.
func NewHistoryStore(stub Stub) *HistoryStore {
	return &HistoryStore{stub: stub}
}

func (h *HistoryStore) lengthKey(productID uint64) (string, error) {
	return h.stub.CreateCompositeKey(counterObjectType, []string{historyCounter, padID(productID)})
}

// appendEvent adds event at the end of the product's sequence and returns its
// 1-based position. Earlier entries are never touched.
func (h *HistoryStore) appendEvent(productID uint64, event model.HistoryEvent) (int, error) {
	lenKey, err := h.lengthKey(productID)
	if err != nil {
		return 0, fmt.Errorf("failed to create history length key for product %d: %w", productID, err)
	}
	n, err := readCounter(h.stub, lenKey)
	if err != nil {
		return 0, err
	}
	seq := n + 1
	key, err := h.stub.CreateCompositeKey(historyObjectType, []string{padID(productID), padID(seq)})
	if err != nil {
		return 0, fmt.Errorf("failed to create history key for product %d: %w", productID, err)
	}
	if err := putJSON(h.stub, key, event); err != nil {
		return 0, err
	}
	if err := writeCounter(h.stub, lenKey, seq); err != nil {
		return 0, err
	}
	return int(seq), nil
}

// Get returns the product's events in insertion order. An unknown product
// yields an empty sequence; existence is the caller's concern.
func (h *HistoryStore) Get(productID uint64) ([]model.HistoryEvent, error) {
	values, err := scanValues(h.stub, historyObjectType, padID(productID))
	if err != nil {
		return nil, err
	}
	events := make([]model.HistoryEvent, 0, len(values))
	for _, raw := range values {
		var ev model.HistoryEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			return nil, fmt.Errorf("failed to unmarshal history event of product %d: %w", productID, err)
		}
		events = append(events, ev)
	}
	return events, nil
}
