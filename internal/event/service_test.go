package event_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/JG3233/babybuddy/internal/auth"
	"github.com/JG3233/babybuddy/internal/baby"
	"github.com/JG3233/babybuddy/internal/db"
	"github.com/JG3233/babybuddy/internal/event"
	"github.com/JG3233/babybuddy/internal/family"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	// a single connection keeps the in-memory database alive and shared
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, gdb.Exec("PRAGMA foreign_keys = ON").Error)
	require.NoError(t, gdb.AutoMigrate(db.Models()...))
	return gdb
}

func seedUser(t *testing.T, gdb *gorm.DB, email string) *auth.User {
	t.Helper()
	u := auth.User{Email: email, PasswordHash: "x"}
	require.NoError(t, gdb.Create(&u).Error)
	return &u
}

type fixture struct {
	db       *gorm.DB
	events   *event.Service
	families *family.Service
	babies   *baby.Service
	owner    *auth.User
	fam      *family.Family
	kid      *baby.Baby
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gdb := newTestDB(t)
	f := &fixture{
		db:       gdb,
		events:   &event.Service{DB: gdb},
		families: &family.Service{DB: gdb},
		babies:   &baby.Service{DB: gdb},
		owner:    seedUser(t, gdb, "owner@example.com"),
	}

	ctx := context.Background()
	fam, err := f.families.Create(ctx, f.owner.ID, "Harper")
	require.NoError(t, err)
	f.fam = fam

	kid, err := f.babies.Create(ctx, f.owner.ID, fam.ID, baby.CreateInput{
		Name:     "Ada",
		Timezone: "America/New_York",
	})
	require.NoError(t, err)
	f.kid = kid
	return f
}

func (f *fixture) addMember(t *testing.T, email, role string) *auth.User {
	t.Helper()
	u := seedUser(t, f.db, email)
	_, err := f.families.AddMember(context.Background(), f.owner.ID, f.fam.ID, u.ID, role)
	require.NoError(t, err)
	return u
}

func diaperPayload(local string) event.Payload {
	return event.Payload{
		EventType:       event.TypeDiaper,
		OccurredAtLocal: local,
		Timezone:        "UTC",
		Details:         event.Details{DiaperType: "wet"},
	}
}

func TestCreateDiaperEvent(t *testing.T) {
	f := newFixture(t)
	p := event.Payload{
		EventType:       event.TypeDiaper,
		OccurredAtLocal: "2026-02-15T10:30",
		Timezone:        "UTC",
		Notes:           "after nap",
		Details:         event.Details{DiaperType: "wet", Color: "yellow"},
	}

	ev, err := f.events.Create(context.Background(), f.owner.ID, f.kid, p, nil)
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, ev.ID)
	assert.Equal(t, f.fam.ID, ev.FamilyID)
	assert.Equal(t, f.kid.ID, ev.BabyID)
	assert.Equal(t, event.TypeDiaper, ev.EventType)
	assert.True(t, ev.OccurredAtUTC.Equal(time.Date(2026, 2, 15, 10, 30, 0, 0, time.UTC)))
	assert.Equal(t, uint(1), ev.SchemaVersion)
	assert.Equal(t, f.owner.ID, ev.CreatedByID)
	require.NotNil(t, ev.DiaperDetail)
	assert.Equal(t, "wet", ev.DiaperDetail.DiaperType)
	assert.Equal(t, "yellow", ev.DiaperDetail.Color)
}

func TestCreateNormalizesZoneAwareInput(t *testing.T) {
	f := newFixture(t)
	p := event.Payload{
		EventType:       event.TypeFeeding,
		OccurredAtLocal: "2026-02-15T23:30:00-05:00",
		Timezone:        "America/New_York",
		Details:         event.Details{Method: "bottle"},
	}

	ev, err := f.events.Create(context.Background(), f.owner.ID, f.kid, p, nil)
	require.NoError(t, err)

	assert.True(t, ev.OccurredAtUTC.Equal(time.Date(2026, 2, 16, 4, 30, 0, 0, time.UTC)))
	assert.Equal(t, "America/New_York", ev.Timezone)
}

func TestCreateRejectsBadInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := []struct {
		name    string
		payload event.Payload
		want    error
	}{
		{
			name: "unknown type",
			payload: event.Payload{
				EventType: "bath", OccurredAtLocal: "2026-02-15T10:30", Timezone: "UTC",
			},
			want: event.ErrInvalidEventType,
		},
		{
			name: "bad timezone",
			payload: event.Payload{
				EventType: event.TypeDiaper, OccurredAtLocal: "2026-02-15T10:30", Timezone: "Mars/Phobos",
				Details: event.Details{DiaperType: "wet"},
			},
			want: event.ErrInvalidTimezone,
		},
		{
			name: "garbage occurrence",
			payload: event.Payload{
				EventType: event.TypeDiaper, OccurredAtLocal: "yesterday-ish", Timezone: "UTC",
				Details: event.Details{DiaperType: "wet"},
			},
			want: event.ErrInvalidOccurrence,
		},
		{
			name: "diaper without type",
			payload: event.Payload{
				EventType: event.TypeDiaper, OccurredAtLocal: "2026-02-15T10:30", Timezone: "UTC",
			},
			want: event.ErrDiaperTypeRequired,
		},
		{
			name: "diaper type outside enum",
			payload: event.Payload{
				EventType: event.TypeDiaper, OccurredAtLocal: "2026-02-15T10:30", Timezone: "UTC",
				Details: event.Details{DiaperType: "soggy"},
			},
			want: event.ErrInvalidDetailValue,
		},
		{
			name: "negative feeding amount",
			payload: event.Payload{
				EventType: event.TypeFeeding, OccurredAtLocal: "2026-02-15T10:30", Timezone: "UTC",
				Details: event.Details{AmountML: ptr(-10)},
			},
			want: event.ErrNegativeQuantity,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.events.Create(ctx, f.owner.ID, f.kid, tc.payload, nil)
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.want)
			assert.True(t, event.IsValidation(err))
		})
	}

	var n int64
	require.NoError(t, f.db.Model(&event.Event{}).Count(&n).Error)
	assert.Zero(t, n, "rejected payloads must not leave rows behind")
}

func ptr(v int) *int { return &v }

func TestFailedDetailRollsBackEverything(t *testing.T) {
	f := newFixture(t)
	key := "roll-1"
	p := event.Payload{
		EventType:       event.TypeDiaper,
		OccurredAtLocal: "2026-02-15T10:30",
		Timezone:        "UTC",
		// missing diaper_type fails after the core row insert
	}

	_, err := f.events.Create(context.Background(), f.owner.ID, f.kid, p, &key)
	require.ErrorIs(t, err, event.ErrDiaperTypeRequired)

	var events, records int64
	require.NoError(t, f.db.Model(&event.Event{}).Count(&events).Error)
	require.NoError(t, f.db.Model(&event.IdempotencyRecord{}).Count(&records).Error)
	assert.Zero(t, events)
	assert.Zero(t, records, "the reservation must roll back with the event")
}

func TestIdempotentReplayReturnsSameEvent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	key := "create-once"

	first, err := f.events.Create(ctx, f.owner.ID, f.kid, diaperPayload("2026-02-15T10:30"), &key)
	require.NoError(t, err)

	// replayed payload differences are ignored, the original wins
	second, err := f.events.Create(ctx, f.owner.ID, f.kid, diaperPayload("2026-02-16T09:00"), &key)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.True(t, second.OccurredAtUTC.Equal(first.OccurredAtUTC))
	require.NotNil(t, second.DiaperDetail, "replay must return the detail too")

	var events, records int64
	require.NoError(t, f.db.Model(&event.Event{}).Count(&events).Error)
	require.NoError(t, f.db.Model(&event.IdempotencyRecord{}).Count(&records).Error)
	assert.EqualValues(t, 1, events)
	assert.EqualValues(t, 1, records)
}

func TestIdempotencyInsertLoserReplaysCommittedEvent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	winner, err := f.events.Create(ctx, f.owner.ID, f.kid, diaperPayload("2026-02-15T10:30"), nil)
	require.NoError(t, err)

	// Slip a rival ledger row in between the empty locked read and the
	// insert, so the insert loses the unique-index race and has to recover.
	var once sync.Once
	f.db.Callback().Query().After("gorm:query").Register("rival_ledger_row", func(d *gorm.DB) {
		if d.Statement.Table != "idempotency_records" {
			return
		}
		once.Do(func() {
			rival := event.IdempotencyRecord{
				UserID:   f.owner.ID,
				Key:      "raced",
				FamilyID: f.fam.ID,
				BabyID:   f.kid.ID,
				EventID:  &winner.ID,
			}
			sess := d.Session(&gorm.Session{NewDB: true})
			// the session inherits the not-found error from the locked read
			sess.Error = nil
			require.NoError(t, sess.Omit(clause.Associations).Create(&rival).Error)
		})
	})

	key := "raced"
	got, err := f.events.Create(ctx, f.owner.ID, f.kid, diaperPayload("2026-02-15T11:00"), &key)
	require.NoError(t, err, "the losing insert must not poison the transaction")
	assert.Equal(t, winner.ID, got.ID, "the loser replays the committed event")
	require.NotNil(t, got.DiaperDetail)

	var events int64
	require.NoError(t, f.db.Model(&event.Event{}).Count(&events).Error)
	assert.EqualValues(t, 1, events)
}

func TestIdempotencyKeyScopedToBaby(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sibling, err := f.babies.Create(ctx, f.owner.ID, f.fam.ID, baby.CreateInput{Name: "Grace"})
	require.NoError(t, err)

	key := "shared-key"
	_, err = f.events.Create(ctx, f.owner.ID, f.kid, diaperPayload("2026-02-15T10:30"), &key)
	require.NoError(t, err)

	_, err = f.events.Create(ctx, f.owner.ID, sibling, diaperPayload("2026-02-15T10:30"), &key)
	assert.ErrorIs(t, err, event.ErrIdempotencyKeyReused)
}

func TestCreateRequiresMembership(t *testing.T) {
	f := newFixture(t)
	outsider := seedUser(t, f.db, "outsider@example.com")

	_, err := f.events.Create(context.Background(), outsider.ID, f.kid, diaperPayload("2026-02-15T10:30"), nil)
	assert.ErrorIs(t, err, family.ErrAccessDenied)
}

func TestViewerCanReadButNotWrite(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	viewer := f.addMember(t, "viewer@example.com", family.RoleViewer)

	_, err := f.events.Create(ctx, f.owner.ID, f.kid, diaperPayload("2026-02-15T10:30"), nil)
	require.NoError(t, err)

	_, err = f.events.Create(ctx, viewer.ID, f.kid, diaperPayload("2026-02-15T11:00"), nil)
	assert.ErrorIs(t, err, family.ErrAccessDenied)

	page, err := f.events.List(ctx, viewer.ID, f.kid, event.ListFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, page.Total)
}

func TestPumpingRequiresAmountOrDuration(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := event.Payload{
		EventType:       event.TypePumping,
		OccurredAtLocal: "2026-02-15T10:30",
		Timezone:        "UTC",
	}

	_, err := f.events.Create(ctx, f.owner.ID, f.kid, p, nil)
	assert.ErrorIs(t, err, event.ErrPumpingDetailRequired)

	// zero counts as absent
	p.Details.AmountML = ptr(0)
	p.Details.DurationMin = ptr(0)
	_, err = f.events.Create(ctx, f.owner.ID, f.kid, p, nil)
	assert.ErrorIs(t, err, event.ErrPumpingDetailRequired)

	p.Details.DurationMin = nil
	p.Details.AmountML = ptr(90)
	p.Details.Side = "left"
	ev, err := f.events.Create(ctx, f.owner.ID, f.kid, p, nil)
	require.NoError(t, err)
	require.NotNil(t, ev.PumpingDetail)
	assert.Equal(t, 90, *ev.PumpingDetail.AmountML)
	assert.Equal(t, "left", ev.PumpingDetail.Side)
}

func TestSleepEndValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := event.Payload{
		EventType:       event.TypeSleep,
		OccurredAtLocal: "2026-02-15T20:00",
		Timezone:        "America/New_York",
		Details:         event.Details{SleepEndLocal: "2026-02-15T19:00"},
	}

	_, err := f.events.Create(ctx, f.owner.ID, f.kid, p, nil)
	assert.ErrorIs(t, err, event.ErrSleepEndBeforeStart)

	p.Details.SleepEndLocal = "2026-02-15T22:30"
	ev, err := f.events.Create(ctx, f.owner.ID, f.kid, p, nil)
	require.NoError(t, err)
	require.NotNil(t, ev.SleepDetail)
	assert.Equal(t, "unknown", ev.SleepDetail.Quality)
	require.NotNil(t, ev.SleepDetail.EndAtUTC)
	assert.True(t, ev.SleepDetail.EndAtUTC.Equal(time.Date(2026, 2, 16, 3, 30, 0, 0, time.UTC)))
	assert.True(t, ev.SleepDetail.StartAtUTC.Equal(ev.OccurredAtUTC))
}

func TestUpdateSwapsDetailType(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ev, err := f.events.Create(ctx, f.owner.ID, f.kid, event.Payload{
		EventType:       event.TypeFeeding,
		OccurredAtLocal: "2026-02-15T10:30",
		Timezone:        "UTC",
		Details:         event.Details{Method: "breast", Side: "left"},
	}, nil)
	require.NoError(t, err)

	caregiver := f.addMember(t, "caregiver@example.com", family.RoleCaregiver)
	updated, err := f.events.Update(ctx, caregiver.ID, ev, event.Payload{
		EventType:       event.TypeDiaper,
		OccurredAtLocal: "2026-02-15T11:00",
		Timezone:        "UTC",
		Notes:           "actually a change",
		Details:         event.Details{DiaperType: "mixed"},
	})
	require.NoError(t, err)

	assert.Equal(t, event.TypeDiaper, updated.EventType)
	assert.Nil(t, updated.FeedingDetail)
	require.NotNil(t, updated.DiaperDetail)
	assert.Equal(t, "mixed", updated.DiaperDetail.DiaperType)
	require.NotNil(t, updated.UpdatedByID)
	assert.Equal(t, caregiver.ID, *updated.UpdatedByID)

	var feedings int64
	require.NoError(t, f.db.Model(&event.FeedingDetail{}).Count(&feedings).Error)
	assert.Zero(t, feedings, "type switch must not leave an orphaned detail")

	got, err := f.events.ForUser(ctx, f.owner.ID, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, event.TypeDiaper, got.EventType)
	assert.True(t, got.OccurredAtUTC.Equal(time.Date(2026, 2, 15, 11, 0, 0, 0, time.UTC)))
}

func TestDeleteCascadesDetailAndLedger(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	key := "del-1"

	ev, err := f.events.Create(ctx, f.owner.ID, f.kid, diaperPayload("2026-02-15T10:30"), &key)
	require.NoError(t, err)

	require.NoError(t, f.events.Delete(ctx, f.owner.ID, ev))

	var events, details, records int64
	require.NoError(t, f.db.Model(&event.Event{}).Count(&events).Error)
	require.NoError(t, f.db.Model(&event.DiaperDetail{}).Count(&details).Error)
	require.NoError(t, f.db.Model(&event.IdempotencyRecord{}).Count(&records).Error)
	assert.Zero(t, events)
	assert.Zero(t, details)
	assert.Zero(t, records)
}

func TestForUserHidesForeignAndMissingEvents(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ev, err := f.events.Create(ctx, f.owner.ID, f.kid, diaperPayload("2026-02-15T10:30"), nil)
	require.NoError(t, err)

	_, err = f.events.ForUser(ctx, f.owner.ID, uuid.New())
	assert.ErrorIs(t, err, family.ErrAccessDenied)

	outsider := seedUser(t, f.db, "outsider@example.com")
	_, err = f.events.ForUser(ctx, outsider.ID, ev.ID)
	assert.ErrorIs(t, err, family.ErrAccessDenied)
}

func TestListPaginationAndFilters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, local := range []string{"2026-02-15T08:00", "2026-02-15T12:00", "2026-02-15T16:00"} {
		_, err := f.events.Create(ctx, f.owner.ID, f.kid, diaperPayload(local), nil)
		require.NoError(t, err)
	}
	_, err := f.events.Create(ctx, f.owner.ID, f.kid, event.Payload{
		EventType:       event.TypeFeeding,
		OccurredAtLocal: "2026-02-15T14:00",
		Timezone:        "UTC",
	}, nil)
	require.NoError(t, err)

	page, err := f.events.List(ctx, f.owner.ID, f.kid, event.ListFilter{Limit: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 4, page.Total)
	assert.Len(t, page.Events, 2)
	assert.True(t, page.HasMore)
	assert.True(t, page.Events[0].OccurredAtUTC.Equal(time.Date(2026, 2, 15, 16, 0, 0, 0, time.UTC)), "newest first")

	page, err = f.events.List(ctx, f.owner.ID, f.kid, event.ListFilter{Limit: 2, Offset: 2})
	require.NoError(t, err)
	assert.Len(t, page.Events, 2)
	assert.False(t, page.HasMore)

	from := "2026-02-15T11:00:00Z"
	to := "2026-02-15T15:00:00Z"
	page, err = f.events.List(ctx, f.owner.ID, f.kid, event.ListFilter{From: &from, To: &to})
	require.NoError(t, err)
	assert.EqualValues(t, 2, page.Total)

	page, err = f.events.List(ctx, f.owner.ID, f.kid, event.ListFilter{EventType: event.TypeFeeding})
	require.NoError(t, err)
	assert.EqualValues(t, 1, page.Total)
	require.Len(t, page.Events, 1)
	require.NotNil(t, page.Events[0].FeedingDetail, "listing preloads details")
}
