package family

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RoleOwner     = "owner"
	RoleCaregiver = "caregiver"
	RoleViewer    = "viewer"
)

// Family is the tenancy boundary: it owns memberships, babies and events.
type Family struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name        string    `gorm:"not null"`
	CreatedByID uint64    `gorm:"not null"`
	CreatedAt   time.Time `gorm:"not null"`
}

func (f *Family) BeforeCreate(tx *gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return nil
}

// Membership is a user's role within a family, unique per (family, user).
// Owners and caregivers may write; viewers are read-only.
type Membership struct {
	ID       uint64    `gorm:"primaryKey"`
	FamilyID uuid.UUID `gorm:"type:uuid;uniqueIndex:uq_memberships_family_user;not null"`
	Family   Family    `gorm:"constraint:OnDelete:CASCADE"`
	UserID   uint64    `gorm:"uniqueIndex:uq_memberships_family_user;index;not null"`
	Role     string    `gorm:"not null;default:'caregiver'"`
	JoinedAt time.Time `gorm:"not null;autoCreateTime"`
}

func ValidRole(role string) bool {
	switch role {
	case RoleOwner, RoleCaregiver, RoleViewer:
		return true
	}
	return false
}
