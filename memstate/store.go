// Package memstate is an in-process world state for the ledger. It serializes
// writers behind one exclusive lock, buffers each transaction's writes and
// commits them only when the transaction succeeds, so the multi-threaded
// service form keeps the atomicity a Fabric transaction provides.
package memstate

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"agritrace/ledger"

	"github.com/hyperledger/fabric-chaincode-go/shim"
	"github.com/hyperledger/fabric-protos-go/ledger/queryresult"
	"github.com/hyperledger/fabric/common/flogging"
	"google.golang.org/protobuf/types/known/timestamppb"
)

var logger = flogging.MustGetLogger("agritrace.memstate")

const (
	compositeKeyNamespace = "\x00"
	minUnicodeRuneValue   = 0
	maxUnicodeRuneValue   = utf8.MaxRune
)

// ErrReadOnly is returned by writes attempted inside View.
var ErrReadOnly = errors.New("memstate: write in read-only transaction")

// Event is a notification emitted by a committed transaction.
type Event struct {
	TxID    string
	Name    string
	Payload []byte
}

// Store holds committed state.
type Store struct {
	mu    sync.RWMutex
	state map[string][]byte
	now   func() time.Time
	txSeq uint64

	subsMu sync.Mutex
	subs   map[*Subscription]struct{}
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the transaction timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore returns an empty store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		state: make(map[string][]byte),
		now:   time.Now,
		subs:  make(map[*Subscription]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Update runs fn as one exclusive transaction. Writes and events become
// visible only if fn returns nil.
func (s *Store) Update(fn func(stub ledger.Stub) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.txSeq++
	tx := newTxStub(s.state, fmt.Sprintf("tx-%d", s.txSeq), s.now(), false)
	if err := fn(tx); err != nil {
		logger.Debugf("Transaction %s rolled back: %v", tx.txID, err)
		return err
	}
	tx.commit(s.state)
	s.publish(tx.events)
	logger.Debugf("Transaction %s committed %d writes, %d events", tx.txID, len(tx.writes), len(tx.events))
	return nil
}

// View runs fn against committed state. Views run concurrently with each
// other and never observe a partially applied Update.
func (s *Store) View(fn func(stub ledger.Stub) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(newTxStub(s.state, "", s.now(), true))
}

// Len returns the number of committed keys.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.state)
}

type write struct {
	value   []byte
	deleted bool
}

// txStub implements ledger.Stub over committed state plus a write overlay.
type txStub struct {
	base     map[string][]byte
	writes   map[string]write
	txID     string
	ts       *timestamppb.Timestamp
	readOnly bool
	events   []Event
}

func newTxStub(base map[string][]byte, txID string, now time.Time, readOnly bool) *txStub {
	return &txStub{
		base:     base,
		writes:   make(map[string]write),
		txID:     txID,
		ts:       timestamppb.New(now.UTC()),
		readOnly: readOnly,
	}
}

func (t *txStub) commit(base map[string][]byte) {
	for key, w := range t.writes {
		if w.deleted {
			delete(base, key)
			continue
		}
		base[key] = w.value
	}
}

func (t *txStub) GetState(key string) ([]byte, error) {
	if w, ok := t.writes[key]; ok {
		if w.deleted {
			return nil, nil
		}
		return cloneBytes(w.value), nil
	}
	if v, ok := t.base[key]; ok {
		return cloneBytes(v), nil
	}
	return nil, nil
}

func (t *txStub) PutState(key string, value []byte) error {
	if t.readOnly {
		return ErrReadOnly
	}
	if key == "" {
		return errors.New("key must not be an empty string")
	}
	t.writes[key] = write{value: cloneBytes(value)}
	return nil
}

func (t *txStub) DelState(key string) error {
	if t.readOnly {
		return ErrReadOnly
	}
	t.writes[key] = write{deleted: true}
	return nil
}

func (t *txStub) CreateCompositeKey(objectType string, attributes []string) (string, error) {
	if err := validateCompositeKeyAttribute(objectType); err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString(compositeKeyNamespace)
	b.WriteString(objectType)
	b.WriteRune(minUnicodeRuneValue)
	for _, attr := range attributes {
		if err := validateCompositeKeyAttribute(attr); err != nil {
			return "", err
		}
		b.WriteString(attr)
		b.WriteRune(minUnicodeRuneValue)
	}
	return b.String(), nil
}

func (t *txStub) GetStateByPartialCompositeKey(objectType string, keys []string) (shim.StateQueryIteratorInterface, error) {
	prefix, err := t.CreateCompositeKey(objectType, keys)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	var matched []string
	for key := range t.base {
		if strings.HasPrefix(key, prefix) {
			seen[key] = struct{}{}
			matched = append(matched, key)
		}
	}
	for key, w := range t.writes {
		if !strings.HasPrefix(key, prefix) || w.deleted {
			continue
		}
		if _, ok := seen[key]; !ok {
			matched = append(matched, key)
		}
	}
	sort.Strings(matched)

	results := make([]*queryresult.KV, 0, len(matched))
	for _, key := range matched {
		value, _ := t.GetState(key)
		if value == nil {
			continue
		}
		results = append(results, &queryresult.KV{Key: key, Value: value})
	}
	return &iterator{results: results}, nil
}

func (t *txStub) GetTxTimestamp() (*timestamppb.Timestamp, error) {
	return t.ts, nil
}

func (t *txStub) SetEvent(name string, payload []byte) error {
	if t.readOnly {
		return ErrReadOnly
	}
	if name == "" {
		return errors.New("event name can not be empty string")
	}
	t.events = append(t.events, Event{TxID: t.txID, Name: name, Payload: cloneBytes(payload)})
	return nil
}

func validateCompositeKeyAttribute(str string) error {
	if !utf8.ValidString(str) {
		return fmt.Errorf("not a valid utf8 string: [%x]", str)
	}
	for index, runeValue := range str {
		if runeValue == minUnicodeRuneValue || runeValue == maxUnicodeRuneValue {
			return fmt.Errorf(`input contains unicode %#U starting at position [%d]. %#U and %#U are not allowed in the input attribute of a composite key`,
				runeValue, index, minUnicodeRuneValue, maxUnicodeRuneValue)
		}
	}
	return nil
}

// iterator is a materialized range result.
type iterator struct {
	results []*queryresult.KV
	pos     int
	closed  bool
}

func (it *iterator) HasNext() bool {
	return !it.closed && it.pos < len(it.results)
}

func (it *iterator) Next() (*queryresult.KV, error) {
	if !it.HasNext() {
		return nil, errors.New("no more results")
	}
	kv := it.results[it.pos]
	it.pos++
	return kv, nil
}

func (it *iterator) Close() error {
	it.closed = true
	return nil
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
