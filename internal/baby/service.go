package baby

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/JG3233/babybuddy/internal/family"
)

var (
	ErrInvalidTimezone = errors.New("invalid timezone")
	ErrNameRequired    = errors.New("baby name is required")
)

type Service struct {
	DB *gorm.DB
}

type CreateInput struct {
	Name      string
	BirthDate *time.Time
	Timezone  string // defaults to UTC
}

func (s *Service) Create(ctx context.Context, userID uint64, familyID uuid.UUID, in CreateInput) (*Baby, error) {
	if in.Name == "" {
		return nil, ErrNameRequired
	}
	tz := in.Timezone
	if tz == "" {
		tz = "UTC"
	}
	if _, err := time.LoadLocation(tz); err != nil {
		return nil, ErrInvalidTimezone
	}

	b := Baby{
		FamilyID:    familyID,
		Name:        in.Name,
		BirthDate:   in.BirthDate,
		Timezone:    tz,
		CreatedByID: userID,
	}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := family.RequireWrite(tx, userID, familyID); err != nil {
			return err
		}
		return tx.Omit(clause.Associations).Create(&b).Error
	})
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *Service) ListForFamily(ctx context.Context, userID uint64, familyID uuid.UUID) ([]Baby, error) {
	db := s.DB.WithContext(ctx)
	if _, err := family.RequireMembership(db, userID, familyID); err != nil {
		return nil, err
	}
	var out []Baby
	err := db.Where("family_id = ?", familyID).Order("name asc").Find(&out).Error
	return out, err
}

// ForUser resolves a baby and enforces membership in its family. A missing
// baby and a baby in someone else's family look the same to the caller.
func (s *Service) ForUser(ctx context.Context, userID uint64, babyID uuid.UUID) (*Baby, error) {
	db := s.DB.WithContext(ctx)
	var b Baby
	err := db.Where("id = ?", babyID).First(&b).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, family.ErrAccessDenied
	}
	if err != nil {
		return nil, err
	}
	if _, err := family.RequireMembership(db, userID, b.FamilyID); err != nil {
		return nil, err
	}
	return &b, nil
}
