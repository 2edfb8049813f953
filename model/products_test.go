package model

import "testing"

func TestLifecycleSuccessors(t *testing.T) {
	for i, s := range Lifecycle {
		next, ok := s.Next()
		if i == len(Lifecycle)-1 {
			if ok || !s.Terminal() {
				t.Errorf("%s should be terminal", s)
			}
			continue
		}
		if !ok || next != Lifecycle[i+1] {
			t.Errorf("%s.Next() = %s, %v", s, next, ok)
		}
		if s.Terminal() {
			t.Errorf("%s reported terminal", s)
		}
	}
	if _, ok := ProductStatus("Rotten").Next(); ok {
		t.Errorf("unknown status has a successor")
	}
}

func TestCanTransitionTo(t *testing.T) {
	for i, from := range Lifecycle {
		for j, to := range Lifecycle {
			want := j == i+1
			if got := from.CanTransitionTo(to); got != want {
				t.Errorf("%s -> %s: got %v, want %v", from, to, got, want)
			}
		}
	}
	if StatusPlanted.CanTransitionTo("") {
		t.Errorf("empty target accepted")
	}
}

func TestParseProductStatus(t *testing.T) {
	tests := map[string]ProductStatus{
		"Planted":     StatusPlanted,
		"harvested":   StatusHarvested,
		" PROCESSED ": StatusProcessed,
		"In Transit":  StatusInTransit,
		"at retailer": StatusAtRetailer,
		"AtRetailer":  StatusAtRetailer,
		"sold":        StatusSold,
	}
	for in, want := range tests {
		got, err := ParseProductStatus(in)
		if err != nil || got != want {
			t.Errorf("ParseProductStatus(%q) = %q, %v", in, got, err)
		}
	}
	for _, bad := range []string{"", "Rotten", "Packaged!"} {
		if _, err := ParseProductStatus(bad); err == nil {
			t.Errorf("ParseProductStatus(%q) accepted", bad)
		}
	}
}
