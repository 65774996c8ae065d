package family_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/JG3233/babybuddy/internal/auth"
	"github.com/JG3233/babybuddy/internal/db"
	"github.com/JG3233/babybuddy/internal/family"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

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

func TestCreateGrantsOwnership(t *testing.T) {
	gdb := newTestDB(t)
	svc := &family.Service{DB: gdb}
	owner := seedUser(t, gdb, "owner@example.com")

	fam, err := svc.Create(context.Background(), owner.ID, "Harper")
	require.NoError(t, err)
	assert.Equal(t, "Harper", fam.Name)
	assert.Equal(t, owner.ID, fam.CreatedByID)

	members, err := svc.Members(context.Background(), owner.ID, fam.ID)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, owner.ID, members[0].UserID)
	assert.Equal(t, family.RoleOwner, members[0].Role)
}

func TestListForUserScopedToMemberships(t *testing.T) {
	gdb := newTestDB(t)
	svc := &family.Service{DB: gdb}
	ctx := context.Background()

	alice := seedUser(t, gdb, "alice@example.com")
	bob := seedUser(t, gdb, "bob@example.com")

	_, err := svc.Create(ctx, alice.ID, "Harper")
	require.NoError(t, err)
	_, err = svc.Create(ctx, bob.ID, "Nguyen")
	require.NoError(t, err)

	got, err := svc.ListForUser(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Harper", got[0].Name)
}

func TestAddMemberIsOwnerOnly(t *testing.T) {
	gdb := newTestDB(t)
	svc := &family.Service{DB: gdb}
	ctx := context.Background()

	owner := seedUser(t, gdb, "owner@example.com")
	carer := seedUser(t, gdb, "carer@example.com")
	viewer := seedUser(t, gdb, "viewer@example.com")

	fam, err := svc.Create(ctx, owner.ID, "Harper")
	require.NoError(t, err)

	m, err := svc.AddMember(ctx, owner.ID, fam.ID, carer.ID, family.RoleCaregiver)
	require.NoError(t, err)
	assert.Equal(t, family.RoleCaregiver, m.Role)

	// caregivers do not manage membership
	_, err = svc.AddMember(ctx, carer.ID, fam.ID, viewer.ID, family.RoleViewer)
	assert.ErrorIs(t, err, family.ErrAccessDenied)

	_, err = svc.AddMember(ctx, owner.ID, fam.ID, viewer.ID, "janitor")
	assert.ErrorIs(t, err, family.ErrInvalidRole)

	_, err = svc.AddMember(ctx, owner.ID, fam.ID, carer.ID, family.RoleViewer)
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey, "one membership per (family, user)")
}

func TestMembershipGate(t *testing.T) {
	gdb := newTestDB(t)
	svc := &family.Service{DB: gdb}
	ctx := context.Background()

	owner := seedUser(t, gdb, "owner@example.com")
	viewer := seedUser(t, gdb, "viewer@example.com")
	outsider := seedUser(t, gdb, "outsider@example.com")

	fam, err := svc.Create(ctx, owner.ID, "Harper")
	require.NoError(t, err)
	_, err = svc.AddMember(ctx, owner.ID, fam.ID, viewer.ID, family.RoleViewer)
	require.NoError(t, err)

	_, err = family.RequireMembership(gdb, outsider.ID, fam.ID)
	assert.ErrorIs(t, err, family.ErrAccessDenied)

	m, err := family.RequireMembership(gdb, viewer.ID, fam.ID)
	require.NoError(t, err)
	assert.Equal(t, family.RoleViewer, m.Role)

	_, err = family.RequireWrite(gdb, viewer.ID, fam.ID)
	assert.ErrorIs(t, err, family.ErrAccessDenied)

	_, err = family.RequireWrite(gdb, owner.ID, fam.ID)
	require.NoError(t, err)
}

func TestDeleteIsOwnerOnlyAndCascades(t *testing.T) {
	gdb := newTestDB(t)
	svc := &family.Service{DB: gdb}
	ctx := context.Background()

	owner := seedUser(t, gdb, "owner@example.com")
	carer := seedUser(t, gdb, "carer@example.com")

	fam, err := svc.Create(ctx, owner.ID, "Harper")
	require.NoError(t, err)
	_, err = svc.AddMember(ctx, owner.ID, fam.ID, carer.ID, family.RoleCaregiver)
	require.NoError(t, err)

	err = svc.Delete(ctx, carer.ID, fam.ID)
	assert.ErrorIs(t, err, family.ErrAccessDenied)

	require.NoError(t, svc.Delete(ctx, owner.ID, fam.ID))

	var families, memberships int64
	require.NoError(t, gdb.Model(&family.Family{}).Count(&families).Error)
	require.NoError(t, gdb.Model(&family.Membership{}).Count(&memberships).Error)
	assert.Zero(t, families)
	assert.Zero(t, memberships)
}
