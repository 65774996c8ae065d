package baby

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/JG3233/babybuddy/internal/family"
)

// Baby belongs to exactly one family and carries the default timezone its
// events are displayed in.
type Baby struct {
	ID          uuid.UUID     `gorm:"type:uuid;primaryKey"`
	FamilyID    uuid.UUID     `gorm:"type:uuid;uniqueIndex:uq_babies_family_name_birth;index;not null"`
	Family      family.Family `gorm:"constraint:OnDelete:CASCADE"`
	Name        string        `gorm:"uniqueIndex:uq_babies_family_name_birth;not null"`
	BirthDate   *time.Time    `gorm:"type:date;uniqueIndex:uq_babies_family_name_birth"`
	Timezone    string        `gorm:"not null;default:'UTC'"`
	CreatedByID uint64        `gorm:"not null"`
	CreatedAt   time.Time     `gorm:"not null"`
}

func (b *Baby) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}
