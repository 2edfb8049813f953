package ledger

import (
	"encoding/json"
	"fmt"

	"agritrace/model"
)

// publish emits the notifications of one operation as a single event.
// Fabric keeps only the last event set in a transaction, so the batch is
// carried as a JSON array named after its first (primary) notification.
func publish(stub Stub, notes ...model.Notification) error {
	if len(notes) == 0 {
		return nil
	}
	payload, err := json.Marshal(notes)
	if err != nil {
		return fmt.Errorf("failed to marshal %s notification: %w", notes[0].Kind, err)
	}
	if err := stub.SetEvent(string(notes[0].Kind), payload); err != nil {
		return fmt.Errorf("failed to emit %s notification: %w", notes[0].Kind, err)
	}
	return nil
}

// DecodeNotifications parses an event payload produced by the ledger.
func DecodeNotifications(payload []byte) ([]model.Notification, error) {
	var notes []model.Notification
	if err := json.Unmarshal(payload, &notes); err != nil {
		return nil, fmt.Errorf("failed to decode notification batch: %w", err)
	}
	return notes, nil
}
