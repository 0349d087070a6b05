// internal/db/models.go
package db

import (
	"database/sql"
	"time"
)

// Slot lifecycle states.
const (
	SlotStateAvailable = "available"
	SlotStateHeld      = "held"
	SlotStateBooked    = "booked"
	SlotStateBlocked   = "blocked"
)

// Booking enumerations.
const (
	BookingTypeFullTurf  = "full_turf"
	BookingTypeMatchHost = "match_host"

	BookingStatusActive    = "active"
	BookingStatusCancelled = "cancelled"

	PaymentStatusPending  = "pending"
	PaymentStatusPaid     = "paid"
	PaymentStatusRefunded = "refunded"
	PaymentStatusFailed   = "failed"
)

// Match enumerations.
const (
	MatchStatusOpen      = "open"
	MatchStatusFull      = "full"
	MatchStatusCancelled = "cancelled"

	ParticipantPaymentPending   = "pending"
	ParticipantPaymentCompleted = "completed"
	ParticipantPaymentRefunded  = "refunded"
)

// User roles.
const (
	RolePlayer    = "player"
	RoleTurfOwner = "turf_owner"
	RoleAdmin     = "admin"
)

type User struct {
	ID           string         `json:"id"`
	Phone        string         `json:"phone"`
	Email        sql.NullString `json:"email"`
	PasswordHash sql.NullString `json:"-"`
	FullName     string         `json:"fullName"`
	City         sql.NullString `json:"city"`
	Role         string         `json:"role"`
	IsVerified   bool           `json:"isVerified"`
	CreatedAt    time.Time      `json:"createdAt"`
}

type RefreshToken struct {
	Token     string    `json:"token"`
	UserID    string    `json:"userId"`
	ExpiresAt time.Time `json:"expiresAt"`
	CreatedAt time.Time `json:"createdAt"`
}

type OTP struct {
	Phone     string
	Code      string
	ExpiresAt time.Time
	CreatedAt time.Time
}

type Sport struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type Turf struct {
	ID           string         `json:"id"`
	OwnerID      string         `json:"ownerId"`
	Name         string         `json:"name"`
	Description  sql.NullString `json:"description"`
	Address      string         `json:"address"`
	City         string         `json:"city"`
	ContactPhone sql.NullString `json:"contactPhone"`
	ContactEmail sql.NullString `json:"contactEmail"`
	Amenities    string         `json:"amenities"`
	IsActive     bool           `json:"isActive"`
	CreatedAt    time.Time      `json:"createdAt"`
}

type TurfSlot struct {
	ID            string         `json:"id"`
	TurfID        string         `json:"turfId"`
	SportID       int64          `json:"sportId"`
	SlotDate      string         `json:"slotDate"`
	StartTime     string         `json:"startTime"`
	EndTime       string         `json:"endTime"`
	BasePrice     int64          `json:"basePrice"`
	DynamicPrice  sql.NullInt64  `json:"dynamicPrice"`
	State         string         `json:"state"`
	HoldOwner     sql.NullString `json:"-"`
	HoldToken     sql.NullString `json:"-"`
	HoldExpiresAt sql.NullTime   `json:"-"`
	BookingID     sql.NullString `json:"bookingId"`
	CreatedAt     time.Time      `json:"createdAt"`
}

type Booking struct {
	ID                 string         `json:"id"`
	SlotID             string         `json:"slotId"`
	TurfID             string         `json:"turfId"`
	BookerID           string         `json:"bookerId"`
	BookingType        string         `json:"bookingType"`
	TotalPrice         int64          `json:"totalPrice"`
	PaymentMethod      string         `json:"paymentMethod"`
	PaymentStatus      string         `json:"paymentStatus"`
	BookingStatus      string         `json:"bookingStatus"`
	CancellationReason sql.NullString `json:"cancellationReason"`
	CancelledAt        sql.NullTime   `json:"cancelledAt"`
	CreatedAt          time.Time      `json:"createdAt"`
}

type Match struct {
	ID                 string         `json:"id"`
	BookingID          string         `json:"bookingId"`
	HostID             string         `json:"hostId"`
	SportID            int64          `json:"sportId"`
	TurfID             string         `json:"turfId"`
	SlotID             string         `json:"slotId"`
	SlotDate           string         `json:"slotDate"`
	StartTime          string         `json:"startTime"`
	EndTime            string         `json:"endTime"`
	TotalSlots         int64          `json:"totalSlots"`
	FilledSlots        int64          `json:"filledSlots"`
	PricePerPlayer     int64          `json:"pricePerPlayer"`
	SkillLevelRequired sql.NullString `json:"skillLevelRequired"`
	MatchType          sql.NullString `json:"matchType"`
	Description        sql.NullString `json:"description"`
	MatchStatus        string         `json:"matchStatus"`
	CreatedAt          time.Time      `json:"createdAt"`
}

type MatchParticipant struct {
	MatchID       string    `json:"matchId"`
	UserID        string    `json:"userId"`
	PaymentStatus string    `json:"paymentStatus"`
	JoinedAt      time.Time `json:"joinedAt"`
}
