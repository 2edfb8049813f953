package ledger_test

import (
	"errors"
	"strings"
	"testing"

	"agritrace/ledger"
	"agritrace/memstate"
	"agritrace/model"
)

func TestRegisterRequiresInitializedLedger(t *testing.T) {
	svc := memstate.NewService(memstate.NewStore())
	if err := svc.RegisterUser(alice, "Alice", model.RoleFarmer, "Farm A"); !errors.Is(err, ledger.ErrNotInitialized) {
		t.Fatalf("expected not initialized, got %v", err)
	}
	if err := svc.VerifyUser(admin, alice); !errors.Is(err, ledger.ErrNotInitialized) {
		t.Fatalf("expected not initialized, got %v", err)
	}
}

func TestInitLedgerOnce(t *testing.T) {
	svc, store := newService(t, ledger.PolicyPermissive)
	before := store.Len()
	if err := svc.InitLedger(bob, bob, ledger.PolicyStageRoles); !errors.Is(err, ledger.ErrAlreadyInitialized) {
		t.Fatalf("expected already initialized, got %v", err)
	}
	if store.Len() != before {
		t.Fatalf("second init wrote state")
	}
	err := store.View(func(stub ledger.Stub) error {
		l := ledger.New(stub)
		got, err := l.Registry.Administrator()
		if err != nil {
			return err
		}
		if got != admin {
			t.Errorf("administrator is %q, want %q", got, admin)
		}
		policy, err := l.Registry.Policy()
		if err != nil {
			return err
		}
		if policy != ledger.PolicyPermissive {
			t.Errorf("policy is %q, want permissive", policy)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("view: %v", err)
	}
}

func TestInitLedgerRejectsUnknownPolicy(t *testing.T) {
	svc := memstate.NewService(memstate.NewStore())
	if err := svc.InitLedger(admin, "", ledger.TransitionPolicy("anything-goes")); !errors.Is(err, ledger.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if err := svc.InitLedger(admin, "", ""); err != nil {
		t.Fatalf("init with default policy: %v", err)
	}
}

func TestRegisterUser(t *testing.T) {
	svc, _ := newService(t, ledger.PolicyPermissive)
	if err := svc.RegisterUser(alice, "Alice", model.RoleFarmer, "Farm A"); err != nil {
		t.Fatalf("register: %v", err)
	}
	p, err := svc.GetUserInfo(alice)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if p.Name != "Alice" || p.Role != model.RoleFarmer || p.Location != "Farm A" || p.Verified {
		t.Fatalf("unexpected participant %+v", p)
	}
	if p.RegisteredAt.IsZero() {
		t.Fatalf("registration time not recorded")
	}

	tests := []struct {
		name     string
		identity string
		user     string
		role     model.Role
		location string
		want     error
	}{
		{"duplicate identity", alice, "Alice Again", model.RoleRetailer, "Shop", ledger.ErrAlreadyRegistered},
		{"unset role", bob, "Bob", "", "Hub", ledger.ErrInvalidRole},
		{"unknown role", bob, "Bob", model.Role("Broker"), "Hub", ledger.ErrInvalidRole},
		{"empty name", bob, "", model.RoleDistributor, "Hub", ledger.ErrInvalidInput},
		{"empty location", bob, "Bob", model.RoleDistributor, " ", ledger.ErrInvalidInput},
		{"empty identity", "", "Bob", model.RoleDistributor, "Hub", ledger.ErrInvalidInput},
		{"overlong name", bob, strings.Repeat("b", 257), model.RoleDistributor, "Hub", ledger.ErrInvalidInput},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := svc.RegisterUser(tc.identity, tc.user, tc.role, tc.location)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}

	// The duplicate attempt must not overwrite the stored role.
	p, _ = svc.GetUserInfo(alice)
	if p.Role != model.RoleFarmer || p.Name != "Alice" {
		t.Fatalf("duplicate registration changed participant: %+v", p)
	}
	if !errors.Is(ledger.ErrInvalidRole, ledger.ErrInvalidInput) {
		t.Fatalf("invalid role should be an invalid input")
	}
}

func TestVerifyUser(t *testing.T) {
	svc, _ := newService(t, ledger.PolicyPermissive)
	if err := svc.RegisterUser(alice, "Alice", model.RoleFarmer, "Farm A"); err != nil {
		t.Fatalf("register: %v", err)
	}

	err := svc.VerifyUser(bob, alice)
	if !errors.Is(err, ledger.ErrNotAdmin) || !errors.Is(err, ledger.ErrUnauthorized) {
		t.Fatalf("expected not admin, got %v", err)
	}
	err = svc.VerifyUser(admin, carol)
	if !errors.Is(err, ledger.ErrNotRegistered) || !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("expected not registered, got %v", err)
	}
	if err := svc.VerifyUser(admin, alice); err != nil {
		t.Fatalf("verify: %v", err)
	}
	if err := svc.VerifyUser(admin, alice); !errors.Is(err, ledger.ErrAlreadyVerified) {
		t.Fatalf("expected already verified, got %v", err)
	}
	p, _ := svc.GetUserInfo(alice)
	if !p.Verified {
		t.Fatalf("participant not verified")
	}
}

func TestGetUserInfoUnknown(t *testing.T) {
	svc, _ := newService(t, ledger.PolicyPermissive)
	if _, err := svc.GetUserInfo(carol); !errors.Is(err, ledger.ErrNotRegistered) {
		t.Fatalf("expected not registered, got %v", err)
	}
}

func TestListAndRoleCounts(t *testing.T) {
	svc, _ := newService(t, ledger.PolicyPermissive)
	counts, err := svc.GetRoleCounts()
	if err != nil {
		t.Fatalf("role counts: %v", err)
	}
	if len(counts) != len(model.Roles) {
		t.Fatalf("expected every role present, got %v", counts)
	}
	users, _ := svc.GetAllUsers()
	if users == nil || len(users) != 0 {
		t.Fatalf("expected empty non-nil user list, got %#v", users)
	}

	registerVerified(t, svc, alice, model.RoleFarmer)
	registerVerified(t, svc, bob, model.RoleFarmer)
	if err := svc.RegisterUser(carol, "Carol", model.RoleRetailer, "Shop"); err != nil {
		t.Fatalf("register carol: %v", err)
	}
	_ = svc.RegisterUser(carol, "Carol", model.RoleRetailer, "Shop")

	users, err = svc.GetAllUsers()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []string{alice, bob, carol}
	if len(users) != len(want) {
		t.Fatalf("expected %v, got %v", want, users)
	}
	for i := range want {
		if users[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, users)
		}
	}

	counts, _ = svc.GetRoleCounts()
	if counts[model.RoleFarmer] != 2 || counts[model.RoleRetailer] != 1 || counts[model.RoleProcessor] != 0 {
		t.Fatalf("unexpected role counts %v", counts)
	}
}

func TestGateDecisions(t *testing.T) {
	svc, store := newService(t, ledger.PolicyStageRoles)
	registerVerified(t, svc, alice, model.RoleFarmer)
	if err := svc.RegisterUser(bob, "Bob", model.RoleFarmer, "Farm B"); err != nil {
		t.Fatalf("register bob: %v", err)
	}

	err := store.View(func(stub ledger.Stub) error {
		gate := ledger.New(stub).Gate
		checks := []struct {
			name string
			fn   func() (bool, error)
			want bool
		}{
			{"admin is admin", func() (bool, error) { return gate.IsAdmin(admin) }, true},
			{"farmer is not admin", func() (bool, error) { return gate.IsAdmin(alice) }, false},
			{"verified farmer registers", func() (bool, error) { return gate.CanRegisterProduct(alice) }, true},
			{"unverified farmer cannot register", func() (bool, error) { return gate.CanRegisterProduct(bob) }, false},
			{"stranger cannot register", func() (bool, error) { return gate.CanRegisterProduct(carol) }, false},
			{"verified farmer appends", func() (bool, error) { return gate.CanAppendTransition(alice) }, true},
			{"unverified farmer cannot append", func() (bool, error) { return gate.CanAppendTransition(bob) }, false},
			{"farmer harvests", func() (bool, error) { return gate.CanAppendTransitionTo(alice, model.StatusHarvested) }, true},
			{"farmer cannot sell", func() (bool, error) { return gate.CanAppendTransitionTo(alice, model.StatusSold) }, false},
		}
		for _, c := range checks {
			got, err := c.fn()
			if err != nil {
				return err
			}
			if got != c.want {
				t.Errorf("%s: got %v, want %v", c.name, got, c.want)
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("view: %v", err)
	}
}
