package model

import "time"

type Booking struct {
	BookingID string `gorm:"primaryKey;size:64;not null"`
	EventID   string `gorm:"size:64;index;not null"`
	UserID    string `gorm:"size:64;index;not null"`
	Status    string `gorm:"size:32;index;not null"` // PENDING, CONFIRMED, CANCELLED
	// Amount in major units (rupees); legacy bookings table predates the
	// minor-unit convention, so callers convert at the boundary.
	Amount    int64  `gorm:"not null"`
	Currency  string `gorm:"size:8;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

type PaymentOrder struct {
	OrderID string `gorm:"primaryKey;size:64;not null"` // gateway order id
	Kind    string `gorm:"size:32;index;not null"`      // event, subscription
	// Booking id or plan id, depending on Kind.
	ReferenceID string `gorm:"size:64;index;not null"`
	Amount      int64  `gorm:"not null"` // minor units (paise)
	Currency    string `gorm:"size:8;not null"`
	Status      string `gorm:"size:32;index;not null"` // CREATED, PAID, FAILED
	Receipt     string `gorm:"size:64"`
	// PaymentRef is the internal reference returned to the caller as
	// paymentId and echoed back on verification.
	PaymentRef string `gorm:"size:64;index"`
	UserID     string `gorm:"size:64;index"`
	CouponID   string `gorm:"size:64"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type PaymentRecord struct {
	PaymentID string `gorm:"primaryKey;size:64;not null"`
	OrderID   string `gorm:"size:64;index;not null"`
	Signature string `gorm:"size:128"`
	Amount    int64  `gorm:"not null"` // minor units
	Currency  string `gorm:"size:8"`
	Method    string `gorm:"size:32"`
	Email     string `gorm:"size:128"`
	Contact   string `gorm:"size:32"`
	CreatedAt time.Time
}

// PaymentFailure is a best-effort record of a widget-reported failure.
type PaymentFailure struct {
	ID          uint   `gorm:"primaryKey"`
	OrderID     string `gorm:"size:64;index;not null"`
	Code        string `gorm:"size:64"`
	Description string `gorm:"size:512"`
	CreatedAt   time.Time
}

type Coupon struct {
	CouponID    string `gorm:"primaryKey;size:64;not null"`
	Code        string `gorm:"size:64;uniqueIndex;not null"`
	Description string `gorm:"size:256"`
	// EventID scopes the coupon to one event; empty means platform-wide.
	EventID       string `gorm:"size:64;index"`
	DiscountType  string `gorm:"size:16;not null"` // percentage, fixed
	DiscountValue int64  `gorm:"not null"`
	// MaxDiscount caps percentage coupons, major units; 0 means no cap.
	MaxDiscount int64
	MinSubtotal int64
	UsageLimit  int
	UsedCount   int
	Active      bool `gorm:"not null;default:true"`
	ExpiresAt   *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type SubscriptionPlan struct {
	PlanID         string `gorm:"primaryKey;size:64;not null"`
	Name           string `gorm:"size:64;uniqueIndex;not null"`
	MonthlyFee     int64  `gorm:"not null"` // minor units
	EventsPerMonth int    `gorm:"not null"`
	Description    string `gorm:"size:256"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type UserSubscription struct {
	SubscriptionID string `gorm:"primaryKey;size:64;not null"`
	UserID         string `gorm:"size:64;index;not null"`
	PlanName       string `gorm:"size:64;not null"`
	Status         string `gorm:"size:32;index;not null"` // ACTIVE, CANCELLED
	StartedAt      *time.Time
	EndedAt        *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type EventRequest struct {
	ID          string `gorm:"primaryKey;size:64;not null"`
	OrganizerID string `gorm:"size:64;index;not null"`
	Title       string `gorm:"size:256;not null"`
	Description string `gorm:"size:2048"`
	PlanName    string `gorm:"size:64;not null"`
	Status      string `gorm:"size:32;index;not null"` // PENDING, APPROVED, REJECTED
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// WebhookEvent keeps processed gateway event ids so redelivered webhooks
// are no-ops.
type WebhookEvent struct {
	EventID     string `gorm:"primaryKey;size:128;not null"`
	EventType   string `gorm:"size:64;index"`
	ProcessedAt time.Time
	CreatedAt   time.Time
}
