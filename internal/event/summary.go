package event

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/JG3233/babybuddy/internal/baby"
	"github.com/JG3233/babybuddy/internal/family"
)

// Summary is a windowed by-type count. Total always equals the sum of the
// per-type counts.
type Summary struct {
	Total  int64            `json:"total"`
	ByType map[string]int64 `json:"by_type"`
}

type typeCount struct {
	EventType string
	N         int64
}

func (s *Service) summarize(db *gorm.DB, babyID uuid.UUID, startUTC, endUTC time.Time) (*Summary, error) {
	var rows []typeCount
	err := db.Model(&Event{}).
		Select("event_type, count(*) as n").
		Where("baby_id = ? AND occurred_at_utc >= ? AND occurred_at_utc <= ?", babyID, startUTC, endUTC).
		Group("event_type").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := &Summary{ByType: map[string]int64{}}
	for _, r := range rows {
		out.ByType[r.EventType] = r.N
		out.Total += r.N
	}
	return out, nil
}

// DailySummary counts the baby's events falling on the local calendar day in
// the given zone.
func (s *Service) DailySummary(ctx context.Context, userID uint64, b *baby.Baby, day time.Time, tzName string) (*Summary, error) {
	loc, err := loadZone(tzName)
	if err != nil {
		return nil, err
	}
	db := s.DB.WithContext(ctx)
	if _, err := family.RequireMembership(db, userID, b.FamilyID); err != nil {
		return nil, err
	}
	start, end := localDayRange(day, loc)
	return s.summarize(db, b.ID, start, end)
}

// RangeSummary spans startDay's local midnight through endDay's local end of
// day, inclusive.
func (s *Service) RangeSummary(ctx context.Context, userID uint64, b *baby.Baby, startDay, endDay time.Time, tzName string) (*Summary, error) {
	if endDay.Before(startDay) {
		return nil, ErrRangeInverted
	}
	loc, err := loadZone(tzName)
	if err != nil {
		return nil, err
	}
	db := s.DB.WithContext(ctx)
	if _, err := family.RequireMembership(db, userID, b.FamilyID); err != nil {
		return nil, err
	}
	start, _ := localDayRange(startDay, loc)
	_, end := localDayRange(endDay, loc)
	return s.summarize(db, b.ID, start, end)
}

// RecentCounts groups the whole family's events of the trailing window by
// type. The dashboard uses the default 24h window.
func (s *Service) RecentCounts(ctx context.Context, userID uint64, familyID uuid.UUID, hours int) (map[string]int64, error) {
	if hours <= 0 {
		hours = 24
	}
	db := s.DB.WithContext(ctx)
	if _, err := family.RequireMembership(db, userID, familyID); err != nil {
		return nil, err
	}

	cutoff := time.Now().UTC().Add(-time.Duration(hours) * time.Hour)
	var rows []typeCount
	err := db.Model(&Event{}).
		Select("event_type, count(*) as n").
		Where("family_id = ? AND occurred_at_utc >= ?", familyID, cutoff).
		Group("event_type").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := map[string]int64{}
	for _, r := range rows {
		out[r.EventType] = r.N
	}
	return out, nil
}

// CalendarDay is one row of a month calendar: a local date and the events
// whose UTC instants land on it in the calendar's zone.
type CalendarDay struct {
	Date   string     `json:"date"`
	Events []EventDTO `json:"events"`
}

// CalendarMonth buckets the baby's events of a month by local day, one entry
// per day of the month.
func (s *Service) CalendarMonth(ctx context.Context, userID uint64, b *baby.Baby, year, month int, tzName string) ([]CalendarDay, error) {
	if month < 1 || month > 12 {
		return nil, ErrInvalidMonth
	}
	loc, err := loadZone(tzName)
	if err != nil {
		return nil, err
	}
	db := s.DB.WithContext(ctx)
	if _, err := family.RequireMembership(db, userID, b.FamilyID); err != nil {
		return nil, err
	}

	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, loc)
	end := start.AddDate(0, 1, 0).Add(-time.Nanosecond)

	var events []Event
	if err := withDetails(db).
		Where("baby_id = ? AND occurred_at_utc >= ? AND occurred_at_utc <= ?", b.ID, start.UTC(), end.UTC()).
		Order("occurred_at_utc asc").
		Find(&events).Error; err != nil {
		return nil, err
	}

	grouped := map[string][]EventDTO{}
	for i := range events {
		day := events[i].OccurredAtUTC.In(loc).Format("2006-01-02")
		grouped[day] = append(grouped[day], Serialize(&events[i]))
	}

	daysInMonth := time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, loc).Day()
	out := make([]CalendarDay, 0, daysInMonth)
	for d := 1; d <= daysInMonth; d++ {
		key := time.Date(year, time.Month(month), d, 0, 0, 0, 0, loc).Format("2006-01-02")
		row := CalendarDay{Date: key, Events: grouped[key]}
		if row.Events == nil {
			row.Events = []EventDTO{}
		}
		out = append(out, row)
	}
	return out, nil
}
