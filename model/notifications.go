package model

import "time"

// NotificationKind names the write that produced a notification.
type NotificationKind string

const (
	NotifyProductRegistered NotificationKind = "ProductRegistered"
	NotifyStatusUpdated     NotificationKind = "StatusUpdated"
	NotifyHistoryStepAdded  NotificationKind = "HistoryStepAdded"
	NotifyUserRegistered    NotificationKind = "UserRegistered"
	NotifyUserVerified      NotificationKind = "UserVerified"
)

// Notification is the structured record published to external subscribers
// after a successful write. Product fields are empty for user notifications
// and vice versa.
type Notification struct {
	Kind      NotificationKind `json:"kind"`
	Actor     string           `json:"actor"`
	Timestamp time.Time        `json:"timestamp"`

	ProductID      uint64        `json:"productId,omitempty"`
	ProductName    string        `json:"productName,omitempty"`
	PreviousStatus ProductStatus `json:"previousStatus,omitempty"`
	Status         ProductStatus `json:"status,omitempty"`
	Event          *HistoryEvent `json:"event,omitempty"`
	Sequence       int           `json:"sequence,omitempty"` // 1-based position of Event in the product history

	Identity string `json:"identity,omitempty"`
	Role     Role   `json:"role,omitempty"`
	Name     string `json:"name,omitempty"`
	Location string `json:"location,omitempty"`
}
