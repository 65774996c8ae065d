package db

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/JG3233/babybuddy/internal/auth"
	"github.com/JG3233/babybuddy/internal/baby"
	"github.com/JG3233/babybuddy/internal/event"
	"github.com/JG3233/babybuddy/internal/family"
)

func Connect(dsn string) (*gorm.DB, error) {
	// TranslateError lets the idempotency ledger spot lost unique-index races
	// as gorm.ErrDuplicatedKey regardless of driver.
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, err
	}
	return gdb, nil
}

// Models is every persisted type, in dependency order.
func Models() []any {
	return []any{
		&auth.User{},
		&family.Family{},
		&family.Membership{},
		&baby.Baby{},
		&event.Event{},
		&event.FeedingDetail{},
		&event.DiaperDetail{},
		&event.SleepDetail{},
		&event.PumpingDetail{},
		&event.IdempotencyRecord{},
	}
}

func AutoMigrateAndIndexes(gdb *gorm.DB) error {
	if err := gdb.AutoMigrate(Models()...); err != nil {
		return err
	}

	// Hot paths: timeline and summary scans, membership lookups.
	stmts := []string{
		`create index if not exists idx_events_family_baby_occurred on events(family_id, baby_id, occurred_at_utc desc);`,
		`create index if not exists idx_events_type_occurred on events(event_type, occurred_at_utc desc);`,
		`create index if not exists idx_memberships_user_role on memberships(user_id, role);`,
	}
	for _, s := range stmts {
		if err := gdb.Exec(s).Error; err != nil {
			return fmt.Errorf("index exec failed: %w (sql=%s)", err, s)
		}
	}

	return nil
}
