package memstate

import (
	"fmt"

	"agritrace/ledger"
	"agritrace/model"
)

// Service exposes the ledger operations in-process. Every mutating call is
// one exclusive Update; every read is a View over committed state. The caller
// identity is always an explicit argument.
type Service struct {
	store *Store
}

// NewService returns a service over store.
func NewService(store *Store) *Service {
	return &Service{store: store}
}

func (s *Service) update(fn func(l *ledger.Ledger) error) error {
	return s.store.Update(func(stub ledger.Stub) error {
		return fn(ledger.New(stub))
	})
}

func (s *Service) view(fn func(l *ledger.Ledger) error) error {
	return s.store.View(func(stub ledger.Stub) error {
		return fn(ledger.New(stub))
	})
}

// InitLedger fixes the administrator (caller when admin is empty) and the
// transition policy.
func (s *Service) InitLedger(caller, admin string, policy ledger.TransitionPolicy) error {
	return s.update(func(l *ledger.Ledger) error {
		return l.Registry.Init(caller, admin, policy)
	})
}

// RegisterUser registers identity as an unverified participant.
func (s *Service) RegisterUser(identity, name string, role model.Role, location string) error {
	return s.update(func(l *ledger.Ledger) error {
		return l.Registry.Register(identity, name, role, location)
	})
}

// VerifyUser verifies target on behalf of admin.
func (s *Service) VerifyUser(admin, target string) error {
	return s.update(func(l *ledger.Ledger) error {
		return l.Registry.Verify(admin, target)
	})
}

// RegisterProduct creates a Planted product for a verified farmer.
func (s *Service) RegisterProduct(identity, name, variety, farmLocation string, isOrganic bool, batchSize int64, certifications string) (uint64, error) {
	var id uint64
	err := s.update(func(l *ledger.Ledger) error {
		var err error
		id, err = l.Products.RegisterProduct(identity, name, variety, farmLocation, isOrganic, batchSize, certifications)
		return err
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// UpdateProductStatus advances product id to status.
func (s *Service) UpdateProductStatus(identity string, id uint64, status model.ProductStatus, location, action, additionalInfo string) error {
	return s.update(func(l *ledger.Ledger) error {
		return l.Products.UpdateStatus(identity, id, status, location, action, additionalInfo)
	})
}

// GetProductHistory returns product id with its ordered events.
func (s *Service) GetProductHistory(id uint64) (*model.ProductHistory, error) {
	var history *model.ProductHistory
	err := s.view(func(l *ledger.Ledger) error {
		var err error
		history, err = l.Products.GetHistory(id)
		return err
	})
	return history, err
}

// GetProductsByFarmer returns the ids registered by farmer.
func (s *Service) GetProductsByFarmer(farmer string) ([]uint64, error) {
	var ids []uint64
	err := s.view(func(l *ledger.Ledger) error {
		var err error
		ids, err = l.Products.GetByFarmer(farmer)
		return err
	})
	return ids, err
}

// GetProductsByStatus returns the ids currently in status.
func (s *Service) GetProductsByStatus(status model.ProductStatus) ([]uint64, error) {
	var ids []uint64
	err := s.view(func(l *ledger.Ledger) error {
		var err error
		ids, err = l.Products.GetByStatus(status)
		return err
	})
	return ids, err
}

// VerifyOrganic reports the organic flag of product id.
func (s *Service) VerifyOrganic(id uint64) (bool, error) {
	var organic bool
	err := s.view(func(l *ledger.Ledger) error {
		var err error
		organic, err = l.Products.IsOrganic(id)
		return err
	})
	return organic, err
}

// GetUserInfo returns the participant registered under identity.
func (s *Service) GetUserInfo(identity string) (*model.Participant, error) {
	var p *model.Participant
	err := s.view(func(l *ledger.Ledger) error {
		var err error
		p, err = l.Registry.Get(identity)
		return err
	})
	return p, err
}

// GetAllProducts returns every product id in creation order.
func (s *Service) GetAllProducts() ([]uint64, error) {
	var ids []uint64
	err := s.view(func(l *ledger.Ledger) error {
		var err error
		ids, err = l.Products.ListAll()
		return err
	})
	return ids, err
}

// GetAllUsers returns registered identities in registration order.
func (s *Service) GetAllUsers() ([]string, error) {
	var identities []string
	err := s.view(func(l *ledger.Ledger) error {
		var err error
		identities, err = l.Registry.List()
		return err
	})
	return identities, err
}

// GetRoleCounts returns participants per role.
func (s *Service) GetRoleCounts() (map[model.Role]uint64, error) {
	var counts map[model.Role]uint64
	err := s.view(func(l *ledger.Ledger) error {
		var err error
		counts, err = l.Registry.RoleCounts()
		return err
	})
	return counts, err
}

// Feed delivers ledger notifications to one subscriber.
type Feed struct {
	sub *Subscription
}

// Subscribe starts a notification feed. Notifications for the same product
// arrive in the order of the writes that produced them.
func (s *Service) Subscribe() *Feed {
	return &Feed{sub: s.store.Subscribe()}
}

// Ready is signalled when notifications may be waiting.
func (f *Feed) Ready() <-chan struct{} { return f.sub.Ready() }

// Next returns the queued notifications, oldest first.
func (f *Feed) Next() ([]model.Notification, error) {
	var notes []model.Notification
	for _, ev := range f.sub.Drain() {
		batch, err := ledger.DecodeNotifications(ev.Payload)
		if err != nil {
			return notes, fmt.Errorf("event %s of %s: %w", ev.Name, ev.TxID, err)
		}
		notes = append(notes, batch...)
	}
	return notes, nil
}

// Close stops the feed.
func (f *Feed) Close() { f.sub.Close() }
