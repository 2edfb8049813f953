package model

import (
	"fmt"
	"strings"
	"time"
)

// ProductStatus defines the lifecycle stages of a product.
type ProductStatus string

const (
	StatusPlanted    ProductStatus = "Planted"    // Initial state, entered only by registration
	StatusHarvested  ProductStatus = "Harvested"  // Sets HarvestedAt
	StatusProcessed  ProductStatus = "Processed"
	StatusPackaged   ProductStatus = "Packaged"
	StatusInTransit  ProductStatus = "InTransit"
	StatusAtRetailer ProductStatus = "AtRetailer"
	StatusSold       ProductStatus = "Sold" // Terminal
)

// Lifecycle is the strict linear chain every product follows.
var Lifecycle = []ProductStatus{
	StatusPlanted,
	StatusHarvested,
	StatusProcessed,
	StatusPackaged,
	StatusInTransit,
	StatusAtRetailer,
	StatusSold,
}

func (s ProductStatus) index() int {
	for i, st := range Lifecycle {
		if st == s {
			return i
		}
	}
	return -1
}

// Valid reports whether s is a lifecycle stage.
func (s ProductStatus) Valid() bool { return s.index() >= 0 }

// Terminal reports whether s has no successor.
func (s ProductStatus) Terminal() bool { return s == StatusSold }

// Next returns the single legal successor of s.
func (s ProductStatus) Next() (ProductStatus, bool) {
	i := s.index()
	if i < 0 || i == len(Lifecycle)-1 {
		return "", false
	}
	return Lifecycle[i+1], true
}

// CanTransitionTo reports whether (s, next) is an edge of the lifecycle chain.
func (s ProductStatus) CanTransitionTo(next ProductStatus) bool {
	succ, ok := s.Next()
	return ok && succ == next
}

// ParseProductStatus resolves a status name case-insensitively.
// "In Transit" and "At Retailer" are accepted alongside the compact names.
func ParseProductStatus(s string) (ProductStatus, error) {
	compact := strings.ReplaceAll(strings.TrimSpace(s), " ", "")
	for _, st := range Lifecycle {
		if strings.EqualFold(compact, string(st)) {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown product status '%s'", s)
}

// Product is a batch of produce tracked from planting to sale.
type Product struct {
	ObjectType     string        `json:"objectType"` // "Product"
	ID             uint64        `json:"id"`         // Dense, starts at 1, never reused
	Name           string        `json:"name"`
	Variety        string        `json:"variety"`
	FarmLocation   string        `json:"farmLocation"`
	Farmer         string        `json:"farmer"` // Identity of the registering farmer
	IsOrganic      bool          `json:"isOrganic"`
	BatchSize      int64         `json:"batchSize"`
	Certifications string        `json:"certifications"`
	Status         ProductStatus `json:"status"`
	PlantedAt      time.Time     `json:"plantedAt"`
	HarvestedAt    time.Time     `json:"harvestedAt"` // Zero until the product first becomes Harvested
}

// HistoryEvent is one immutable, attributed record of a product's state change.
type HistoryEvent struct {
	Actor          string        `json:"actor"`
	Role           Role          `json:"role"`   // Actor's registered role at the time of the action
	Status         ProductStatus `json:"status"` // Status the product entered with this event
	Timestamp      time.Time     `json:"timestamp"`
	Location       string        `json:"location"`
	Action         string        `json:"action"`
	AdditionalInfo string        `json:"additionalInfo"`
}

// ProductHistory is returned by history queries: the product and its ordered events.
type ProductHistory struct {
	Product *Product       `json:"product"`
	Events  []HistoryEvent `json:"events"`
}
