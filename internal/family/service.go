package family

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrAccessDenied covers both "no such family" and "not a member" so that
// callers cannot probe for the existence of other tenants' data.
var ErrAccessDenied = errors.New("access denied")

var ErrInvalidRole = errors.New("invalid role")

type Service struct {
	DB *gorm.DB
}

// RequireMembership returns the caller's membership in the family, or
// ErrAccessDenied. Every baby and event path goes through this gate (or
// RequireWrite) before touching rows.
func RequireMembership(tx *gorm.DB, userID uint64, familyID uuid.UUID) (*Membership, error) {
	var m Membership
	err := tx.Where("user_id = ? AND family_id = ?", userID, familyID).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAccessDenied
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// RequireWrite is RequireMembership plus an owner-or-caregiver role check.
func RequireWrite(tx *gorm.DB, userID uint64, familyID uuid.UUID) (*Membership, error) {
	m, err := RequireMembership(tx, userID, familyID)
	if err != nil {
		return nil, err
	}
	if m.Role != RoleOwner && m.Role != RoleCaregiver {
		return nil, ErrAccessDenied
	}
	return m, nil
}

func requireOwner(tx *gorm.DB, userID uint64, familyID uuid.UUID) (*Membership, error) {
	m, err := RequireMembership(tx, userID, familyID)
	if err != nil {
		return nil, err
	}
	if m.Role != RoleOwner {
		return nil, ErrAccessDenied
	}
	return m, nil
}

// Create makes a family with the caller as its owner.
func (s *Service) Create(ctx context.Context, userID uint64, name string) (*Family, error) {
	f := Family{Name: name, CreatedByID: userID}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&f).Error; err != nil {
			return err
		}
		m := Membership{FamilyID: f.ID, UserID: userID, Role: RoleOwner}
		return tx.Omit(clause.Associations).Create(&m).Error
	})
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (s *Service) ListForUser(ctx context.Context, userID uint64) ([]Family, error) {
	var out []Family
	err := s.DB.WithContext(ctx).
		Joins("JOIN memberships ON memberships.family_id = families.id").
		Where("memberships.user_id = ?", userID).
		Order("families.name asc").
		Find(&out).Error
	return out, err
}

func (s *Service) Members(ctx context.Context, userID uint64, familyID uuid.UUID) ([]Membership, error) {
	db := s.DB.WithContext(ctx)
	if _, err := RequireMembership(db, userID, familyID); err != nil {
		return nil, err
	}
	var out []Membership
	err := db.Where("family_id = ?", familyID).Order("joined_at asc").Find(&out).Error
	return out, err
}

// AddMember grants a role in the family. Only owners manage membership.
func (s *Service) AddMember(ctx context.Context, actorID uint64, familyID uuid.UUID, userID uint64, role string) (*Membership, error) {
	if !ValidRole(role) {
		return nil, ErrInvalidRole
	}
	m := Membership{FamilyID: familyID, UserID: userID, Role: role}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := requireOwner(tx, actorID, familyID); err != nil {
			return err
		}
		return tx.Omit(clause.Associations).Create(&m).Error
	})
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Delete hard-deletes the family. Babies, events, details, memberships and
// idempotency records go with it via the foreign key cascades.
func (s *Service) Delete(ctx context.Context, actorID uint64, familyID uuid.UUID) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := requireOwner(tx, actorID, familyID); err != nil {
			return err
		}
		return tx.Delete(&Family{}, "id = ?", familyID).Error
	})
}
