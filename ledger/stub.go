package ledger

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/hyperledger/fabric-chaincode-go/shim"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// Stub is the slice of shim.ChaincodeStubInterface the ledger components use.
// A Fabric transaction stub satisfies it directly; memstate provides an
// in-process implementation.
//
// Writes are not visible to reads within the same transaction on Fabric, so
// every operation reads all the keys it needs before it writes any of them.
type Stub interface {
	GetState(key string) ([]byte, error)
	PutState(key string, value []byte) error
	DelState(key string) error
	CreateCompositeKey(objectType string, attributes []string) (string, error)
	GetStateByPartialCompositeKey(objectType string, keys []string) (shim.StateQueryIteratorInterface, error)
	GetTxTimestamp() (*timestamppb.Timestamp, error)
	SetEvent(name string, payload []byte) error
}

// Object types for composite keys, also usable as 'docType' in CouchDB.
const (
	configObjectType           = "LedgerConfig"     // Attribute: "current"
	participantObjectType      = "Participant"      // Attribute: identity
	authorizedObjectType       = "Authorized"       // Attribute: identity. Value "true"
	participantIndexObjectType = "ParticipantIndex" // Attribute: padded sequence. Value: identity
	roleCountObjectType        = "RoleCount"        // Attribute: role. Value: decimal count
	counterObjectType          = "Counter"          // Attributes: counter name (+ product id for history)
	productObjectType          = "Product"          // Attribute: padded product id
	productByFarmerObjectType  = "ProductByFarmer"  // Attributes: farmer, padded id. Value: padded id
	productByStatusObjectType  = "ProductByStatus"  // Attributes: status, padded id. Value: padded id
	historyObjectType          = "History"          // Attributes: padded product id, padded sequence
)

const (
	participantCounter = "participants"
	productCounter     = "products"
	historyCounter     = "history"
)

// padID renders sequence numbers so lexical key order equals numeric order.
func padID(n uint64) string {
	return fmt.Sprintf("%020d", n)
}

func txTime(stub Stub) (time.Time, error) {
	ts, err := stub.GetTxTimestamp()
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to get transaction timestamp: %w", err)
	}
	if ts == nil {
		return time.Time{}, fmt.Errorf("transaction timestamp is not set")
	}
	return ts.AsTime(), nil
}

// getJSON loads key into out. It reports false when the key is absent.
func getJSON(stub Stub, key string, out interface{}) (bool, error) {
	raw, err := stub.GetState(key)
	if err != nil {
		return false, fmt.Errorf("failed to read '%s': %w", key, err)
	}
	if raw == nil {
		return false, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("failed to unmarshal '%s': %w", key, err)
	}
	return true, nil
}

func putJSON(stub Stub, key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal '%s': %w", key, err)
	}
	if err := stub.PutState(key, raw); err != nil {
		return fmt.Errorf("failed to write '%s': %w", key, err)
	}
	return nil
}

func readCounter(stub Stub, key string) (uint64, error) {
	raw, err := stub.GetState(key)
	if err != nil {
		return 0, fmt.Errorf("failed to read counter '%s': %w", key, err)
	}
	if raw == nil {
		return 0, nil
	}
	n, err := strconv.ParseUint(string(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("corrupt counter '%s': %w", key, err)
	}
	return n, nil
}

func writeCounter(stub Stub, key string, n uint64) error {
	if err := stub.PutState(key, []byte(strconv.FormatUint(n, 10))); err != nil {
		return fmt.Errorf("failed to write counter '%s': %w", key, err)
	}
	return nil
}

// scanValues returns the raw values under a partial composite key in key order.
func scanValues(stub Stub, objectType string, attrs ...string) ([][]byte, error) {
	iter, err := stub.GetStateByPartialCompositeKey(objectType, attrs)
	if err != nil {
		return nil, fmt.Errorf("failed to query '%s' records: %w", objectType, err)
	}
	defer iter.Close()

	values := [][]byte{}
	for iter.HasNext() {
		kv, err := iter.Next()
		if err != nil {
			return nil, fmt.Errorf("failed to iterate '%s' records: %w", objectType, err)
		}
		values = append(values, kv.Value)
	}
	return values, nil
}
