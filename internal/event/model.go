package event

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/JG3233/babybuddy/internal/baby"
	"github.com/JG3233/babybuddy/internal/family"
)

const (
	TypeFeeding = "feeding"
	TypeDiaper  = "diaper"
	TypeSleep   = "sleep"
	TypePumping = "pumping"
)

// Types lists the event types in the order summaries report them.
var Types = []string{TypeFeeding, TypeDiaper, TypeSleep, TypePumping}

func ValidType(t string) bool {
	switch t {
	case TypeFeeding, TypeDiaper, TypeSleep, TypePumping:
		return true
	}
	return false
}

// Event is the core occurrence record. The instant is stored in UTC; the
// timezone it was entered in is kept for display. Exactly one detail row of
// the matching type hangs off each event.
type Event struct {
	ID            uuid.UUID     `gorm:"type:uuid;primaryKey"`
	FamilyID      uuid.UUID     `gorm:"type:uuid;index;not null"`
	Family        family.Family `gorm:"constraint:OnDelete:CASCADE"`
	BabyID        uuid.UUID     `gorm:"type:uuid;index;not null"`
	Baby          baby.Baby     `gorm:"constraint:OnDelete:CASCADE"`
	EventType     string        `gorm:"index;not null"`
	OccurredAtUTC time.Time     `gorm:"column:occurred_at_utc;index;not null"`
	Timezone      string        `gorm:"not null"`
	Notes         string        `gorm:"type:text;not null;default:''"`
	SchemaVersion uint          `gorm:"not null;default:1"`
	CreatedByID   uint64        `gorm:"not null"`
	UpdatedByID   *uint64
	CreatedAt     time.Time `gorm:"not null"`
	UpdatedAt     time.Time `gorm:"not null"`

	FeedingDetail *FeedingDetail `gorm:"constraint:OnDelete:CASCADE"`
	DiaperDetail  *DiaperDetail  `gorm:"constraint:OnDelete:CASCADE"`
	SleepDetail   *SleepDetail   `gorm:"constraint:OnDelete:CASCADE"`
	PumpingDetail *PumpingDetail `gorm:"constraint:OnDelete:CASCADE"`
}

func (e *Event) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.SchemaVersion == 0 {
		e.SchemaVersion = 1
	}
	return nil
}

type FeedingDetail struct {
	ID          uint64    `gorm:"primaryKey"`
	EventID     uuid.UUID `gorm:"type:uuid;uniqueIndex;not null"`
	Method      string    // breast, bottle, formula, solids, other
	AmountML    *int      `gorm:"column:amount_ml"`
	Side        string    // left, right, both
	DurationMin *int
}

type DiaperDetail struct {
	ID          uint64    `gorm:"primaryKey"`
	EventID     uuid.UUID `gorm:"type:uuid;uniqueIndex;not null"`
	DiaperType  string    `gorm:"not null"` // wet, dirty, mixed, dry
	Color       string
	Consistency string
}

type SleepDetail struct {
	ID         uint64     `gorm:"primaryKey"`
	EventID    uuid.UUID  `gorm:"type:uuid;uniqueIndex;not null"`
	StartAtUTC time.Time  `gorm:"column:start_at_utc;not null"`
	EndAtUTC   *time.Time `gorm:"column:end_at_utc"`
	Quality    string     `gorm:"not null;default:'unknown'"` // good, ok, rough, unknown
}

type PumpingDetail struct {
	ID          uint64    `gorm:"primaryKey"`
	EventID     uuid.UUID `gorm:"type:uuid;uniqueIndex;not null"`
	AmountML    *int      `gorm:"column:amount_ml"`
	DurationMin *int
	Side        string
}

// IdempotencyRecord maps (user, client key) to at most one created event.
// The row is reserved before the event exists and linked once it commits;
// the same key can never be replayed against a different family or baby.
type IdempotencyRecord struct {
	ID       uint64        `gorm:"primaryKey"`
	UserID   uint64        `gorm:"uniqueIndex:uq_idempotency_user_key;not null"`
	Key      string        `gorm:"size:128;uniqueIndex:uq_idempotency_user_key;not null"`
	FamilyID uuid.UUID     `gorm:"type:uuid;index;not null"`
	Family   family.Family `gorm:"constraint:OnDelete:CASCADE"`
	BabyID   uuid.UUID     `gorm:"type:uuid;not null"`
	Baby     baby.Baby     `gorm:"constraint:OnDelete:CASCADE"`
	EventID  *uuid.UUID    `gorm:"type:uuid;uniqueIndex"`
	Event    *Event        `gorm:"constraint:OnDelete:CASCADE"`

	CreatedAt time.Time `gorm:"not null"`
}
