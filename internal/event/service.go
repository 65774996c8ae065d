package event

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/JG3233/babybuddy/internal/baby"
	"github.com/JG3233/babybuddy/internal/family"
)

type Service struct {
	DB *gorm.DB
}

func withDetails(tx *gorm.DB) *gorm.DB {
	return tx.
		Preload("FeedingDetail").
		Preload("DiaperDetail").
		Preload("SleepDetail").
		Preload("PumpingDetail")
}

// Create logs an event for the baby inside one transaction: write
// authorization, occurrence normalization, idempotency reservation, core row,
// detail dispatch, ledger linkage. A failing detail rolls everything back.
// A replayed idempotency key returns the previously created event untouched.
func (s *Service) Create(ctx context.Context, userID uint64, b *baby.Baby, p Payload, idemKey *string) (*Event, error) {
	var out *Event
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := family.RequireWrite(tx, userID, b.FamilyID); err != nil {
			return err
		}
		if !ValidType(p.EventType) {
			return ErrInvalidEventType
		}
		occurredUTC, err := normalizeOccurrence(p.OccurredAtLocal, p.Timezone)
		if err != nil {
			return err
		}

		var rec *IdempotencyRecord
		if idemKey != nil && *idemKey != "" {
			rec, err = reserveIdempotency(tx, userID, *idemKey, b)
			if err != nil {
				return err
			}
			if rec.EventID != nil {
				var prior Event
				if err := withDetails(tx).Where("id = ?", *rec.EventID).First(&prior).Error; err != nil {
					return err
				}
				out = &prior
				return nil
			}
			if rec.FamilyID != b.FamilyID || rec.BabyID != b.ID {
				return ErrIdempotencyKeyReused
			}
		}

		ev := Event{
			FamilyID:      b.FamilyID,
			BabyID:        b.ID,
			EventType:     p.EventType,
			OccurredAtUTC: occurredUTC,
			Timezone:      p.Timezone,
			Notes:         p.Notes,
			CreatedByID:   userID,
		}
		if err := tx.Omit(clause.Associations).Create(&ev).Error; err != nil {
			return err
		}
		if err := applyDetail(tx, &ev, p.Details); err != nil {
			return err
		}
		if rec != nil {
			if err := tx.Model(rec).Update("event_id", ev.ID).Error; err != nil {
				return err
			}
		}
		out = &ev
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// reserveIdempotency locks the caller's ledger row for the key, creating it
// when absent. Concurrent creates racing on a new key serialize here: the
// loser's insert blocks on the winner's uncommitted unique-index entry, fails
// once the winner commits, rolls back to the savepoint and re-reads the
// committed row under lock.
func reserveIdempotency(tx *gorm.DB, userID uint64, key string, b *baby.Baby) (*IdempotencyRecord, error) {
	locked := func() (*IdempotencyRecord, error) {
		var rec IdempotencyRecord
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ? AND key = ?", userID, key).
			First(&rec).Error
		if err != nil {
			return nil, err
		}
		return &rec, nil
	}

	rec, err := locked()
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	// a failed insert poisons the surrounding transaction on Postgres, so the
	// retry has to re-read from a savepoint taken before it
	if err := tx.SavePoint("idem_reserve").Error; err != nil {
		return nil, err
	}
	fresh := IdempotencyRecord{UserID: userID, Key: key, FamilyID: b.FamilyID, BabyID: b.ID}
	if err := tx.Omit(clause.Associations).Create(&fresh).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			if err := tx.RollbackTo("idem_reserve").Error; err != nil {
				return nil, err
			}
			return locked()
		}
		return nil, err
	}
	return &fresh, nil
}

// Update re-authorizes against the event's current family, overwrites the
// core fields and replaces the detail row wholesale. Deleting all four
// possible detail rows first means a payload that switches event type leaves
// no orphan behind.
func (s *Service) Update(ctx context.Context, userID uint64, ev *Event, p Payload) (*Event, error) {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := family.RequireWrite(tx, userID, ev.FamilyID); err != nil {
			return err
		}
		if !ValidType(p.EventType) {
			return ErrInvalidEventType
		}
		occurredUTC, err := normalizeOccurrence(p.OccurredAtLocal, p.Timezone)
		if err != nil {
			return err
		}

		if err := tx.Model(&Event{}).Where("id = ?", ev.ID).Updates(map[string]any{
			"event_type":      p.EventType,
			"occurred_at_utc": occurredUTC,
			"timezone":        p.Timezone,
			"notes":           p.Notes,
			"updated_by_id":   userID,
		}).Error; err != nil {
			return err
		}

		ev.EventType = p.EventType
		ev.OccurredAtUTC = occurredUTC
		ev.Timezone = p.Timezone
		ev.Notes = p.Notes
		ev.UpdatedByID = &userID
		ev.FeedingDetail = nil
		ev.DiaperDetail = nil
		ev.SleepDetail = nil
		ev.PumpingDetail = nil

		if err := clearDetails(tx, ev.ID); err != nil {
			return err
		}
		return applyDetail(tx, ev, p.Details)
	})
	if err != nil {
		return nil, err
	}
	return ev, nil
}

// Delete hard-deletes the event; the detail row and any idempotency linkage
// go with it via the foreign key cascades.
func (s *Service) Delete(ctx context.Context, userID uint64, ev *Event) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := family.RequireWrite(tx, userID, ev.FamilyID); err != nil {
			return err
		}
		return tx.Delete(&Event{}, "id = ?", ev.ID).Error
	})
}

// ForUser resolves an event with its detail preloaded and enforces
// membership. Missing and foreign events are indistinguishable.
func (s *Service) ForUser(ctx context.Context, userID uint64, eventID uuid.UUID) (*Event, error) {
	db := s.DB.WithContext(ctx)
	var ev Event
	err := withDetails(db).Where("id = ?", eventID).First(&ev).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, family.ErrAccessDenied
	}
	if err != nil {
		return nil, err
	}
	if _, err := family.RequireMembership(db, userID, ev.FamilyID); err != nil {
		return nil, err
	}
	return &ev, nil
}

const (
	defaultPageSize = 25
	maxPageSize     = 100
)

type ListFilter struct {
	EventType string
	From, To  *string // RFC3339 bounds on the UTC instant
	Limit     int
	Offset    int
}

type Page struct {
	Events  []Event
	Total   int64
	Limit   int
	Offset  int
	HasMore bool
}

// List returns the baby's timeline, newest first, with offset pagination.
func (s *Service) List(ctx context.Context, userID uint64, b *baby.Baby, f ListFilter) (*Page, error) {
	db := s.DB.WithContext(ctx)
	if _, err := family.RequireMembership(db, userID, b.FamilyID); err != nil {
		return nil, err
	}

	limit := f.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}

	q := db.Model(&Event{}).Where("baby_id = ?", b.ID)
	if f.EventType != "" {
		q = q.Where("event_type = ?", f.EventType)
	}
	if f.From != nil {
		t, err := normalizeOccurrence(*f.From, "UTC")
		if err != nil {
			return nil, err
		}
		q = q.Where("occurred_at_utc >= ?", t)
	}
	if f.To != nil {
		t, err := normalizeOccurrence(*f.To, "UTC")
		if err != nil {
			return nil, err
		}
		q = q.Where("occurred_at_utc <= ?", t)
	}

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, err
	}

	var events []Event
	if err := withDetails(q.Session(&gorm.Session{})).
		Order("occurred_at_utc desc, created_at desc").
		Limit(limit).Offset(offset).
		Find(&events).Error; err != nil {
		return nil, err
	}

	return &Page{
		Events:  events,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		HasMore: int64(offset+limit) < total,
	}, nil
}

// applyDetail validates the type-specific fields and creates the matching
// detail row, attaching it to ev for serialization.
func applyDetail(tx *gorm.DB, ev *Event, d Details) error {
	switch ev.EventType {
	case TypeFeeding:
		if d.Method != "" && !validFeedingMethod(d.Method) {
			return ErrInvalidDetailValue
		}
		if d.Side != "" && !validSide(d.Side) {
			return ErrInvalidDetailValue
		}
		if err := checkNonNegative(d.AmountML, d.DurationMin); err != nil {
			return err
		}
		fd := &FeedingDetail{
			EventID:     ev.ID,
			Method:      d.Method,
			AmountML:    d.AmountML,
			Side:        d.Side,
			DurationMin: d.DurationMin,
		}
		if err := tx.Create(fd).Error; err != nil {
			return err
		}
		ev.FeedingDetail = fd

	case TypeDiaper:
		if d.DiaperType == "" {
			return ErrDiaperTypeRequired
		}
		if !validDiaperType(d.DiaperType) {
			return ErrInvalidDetailValue
		}
		dd := &DiaperDetail{
			EventID:     ev.ID,
			DiaperType:  d.DiaperType,
			Color:       d.Color,
			Consistency: d.Consistency,
		}
		if err := tx.Create(dd).Error; err != nil {
			return err
		}
		ev.DiaperDetail = dd

	case TypeSleep:
		quality := d.Quality
		if quality == "" {
			quality = "unknown"
		}
		if !validSleepQuality(quality) {
			return ErrInvalidDetailValue
		}
		sd := &SleepDetail{
			EventID:    ev.ID,
			StartAtUTC: ev.OccurredAtUTC,
			Quality:    quality,
		}
		if d.SleepEndLocal != "" {
			// sleep end is entered in the event's own zone
			end, err := normalizeOccurrence(d.SleepEndLocal, ev.Timezone)
			if err != nil {
				return err
			}
			if end.Before(sd.StartAtUTC) {
				return ErrSleepEndBeforeStart
			}
			sd.EndAtUTC = &end
		}
		if err := tx.Create(sd).Error; err != nil {
			return err
		}
		ev.SleepDetail = sd

	case TypePumping:
		if err := checkNonNegative(d.AmountML, d.DurationMin); err != nil {
			return err
		}
		// a zero yield or duration counts as absent
		if !present(d.AmountML) && !present(d.DurationMin) {
			return ErrPumpingDetailRequired
		}
		if d.Side != "" && !validSide(d.Side) {
			return ErrInvalidDetailValue
		}
		pd := &PumpingDetail{
			EventID:     ev.ID,
			AmountML:    d.AmountML,
			DurationMin: d.DurationMin,
			Side:        d.Side,
		}
		if err := tx.Create(pd).Error; err != nil {
			return err
		}
		ev.PumpingDetail = pd

	default:
		return ErrInvalidEventType
	}
	return nil
}

func clearDetails(tx *gorm.DB, eventID uuid.UUID) error {
	for _, model := range []any{
		&FeedingDetail{}, &DiaperDetail{}, &SleepDetail{}, &PumpingDetail{},
	} {
		if err := tx.Where("event_id = ?", eventID).Delete(model).Error; err != nil {
			return err
		}
	}
	return nil
}
