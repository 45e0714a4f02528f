package member

import (
	"context"
	"fmt"
	"testing"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	snapshotdomain "github.com/AssetWorks-R-D/ai-spend-dashboard/internal/snapshot/domain"
)

func setupResolverTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&Member{}, &Identity{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func strptr(s string) *string { return &s }

func insertMember(t *testing.T, db *gorm.DB, id snowflake.ID, email string) {
	t.Helper()
	if err := db.Create(&Member{ID: id, TenantID: 1, Name: "m", Email: email}).Error; err != nil {
		t.Fatalf("insert member: %v", err)
	}
}

func insertIdentity(t *testing.T, db *gorm.DB, id, memberID snowflake.ID, vendor string, email, username *string) {
	t.Helper()
	if err := db.Create(&Identity{
		ID: id, MemberID: memberID, Vendor: vendor,
		VendorEmail: email, VendorUsername: username,
	}).Error; err != nil {
		t.Fatalf("insert identity: %v", err)
	}
}

func TestResolveByIdentityEmail(t *testing.T) {
	db := setupResolverTestDB(t)
	insertMember(t, db, 10, "alice@corp.com")
	insertIdentity(t, db, 100, 10, "cursor", strptr("Alice@Vendor.com"), nil)

	builder := NewBuilder(db, zap.NewNop())
	r, err := builder.BuildResolver(context.Background(), 1, snapshotdomain.VendorCursor)
	if err != nil {
		t.Fatalf("build resolver: %v", err)
	}

	got := r.Resolve(strptr("alice@vendor.com"), nil)
	if got == nil || *got != 10 {
		t.Fatalf("expected member 10, got %v", got)
	}
}

func TestResolveByIdentityUsername(t *testing.T) {
	db := setupResolverTestDB(t)
	insertMember(t, db, 11, "bob@corp.com")
	insertIdentity(t, db, 101, 11, "copilot", nil, strptr("BobDev"))

	builder := NewBuilder(db, zap.NewNop())
	r, err := builder.BuildResolver(context.Background(), 1, snapshotdomain.VendorCopilot)
	if err != nil {
		t.Fatalf("build resolver: %v", err)
	}

	got := r.Resolve(nil, strptr("bobdev"))
	if got == nil || *got != 11 {
		t.Fatalf("expected member 11, got %v", got)
	}
}

func TestResolveFallsBackToPrimaryEmail(t *testing.T) {
	db := setupResolverTestDB(t)
	insertMember(t, db, 12, "Carol@corp.com")

	builder := NewBuilder(db, zap.NewNop())
	r, err := builder.BuildResolver(context.Background(), 1, snapshotdomain.VendorCursor)
	if err != nil {
		t.Fatalf("build resolver: %v", err)
	}

	got := r.Resolve(strptr("carol@corp.com"), nil)
	if got == nil || *got != 12 {
		t.Fatalf("expected member 12 via primary email, got %v", got)
	}
}

func TestResolveIdentityBeatsPrimaryEmail(t *testing.T) {
	db := setupResolverTestDB(t)
	insertMember(t, db, 13, "shared@corp.com")
	insertMember(t, db, 14, "other@corp.com")
	// Identity explicitly maps the shared address to member 14.
	insertIdentity(t, db, 102, 14, "cursor", strptr("shared@corp.com"), nil)

	builder := NewBuilder(db, zap.NewNop())
	r, err := builder.BuildResolver(context.Background(), 1, snapshotdomain.VendorCursor)
	if err != nil {
		t.Fatalf("build resolver: %v", err)
	}

	got := r.Resolve(strptr("shared@corp.com"), nil)
	if got == nil || *got != 14 {
		t.Fatalf("expected identity mapping to win, got %v", got)
	}
}

func TestResolveUnknownIsNil(t *testing.T) {
	db := setupResolverTestDB(t)
	builder := NewBuilder(db, zap.NewNop())
	r, err := builder.BuildResolver(context.Background(), 1, snapshotdomain.VendorCursor)
	if err != nil {
		t.Fatalf("build resolver: %v", err)
	}

	if got := r.Resolve(strptr("nobody@x.com"), strptr("nobody")); got != nil {
		t.Fatalf("expected nil for unknown identity, got %v", *got)
	}
	if got := r.Resolve(nil, nil); got != nil {
		t.Fatalf("expected nil for empty identity, got %v", *got)
	}
}

func TestBuildResolverCaches(t *testing.T) {
	db := setupResolverTestDB(t)
	insertMember(t, db, 15, "dave@corp.com")

	builder := NewBuilder(db, zap.NewNop())
	ctx := context.Background()
	r1, err := builder.BuildResolver(ctx, 1, snapshotdomain.VendorCursor)
	if err != nil {
		t.Fatalf("first build: %v", err)
	}

	// A later insert is invisible until the cache entry expires.
	insertMember(t, db, 16, "erin@corp.com")
	r2, err := builder.BuildResolver(ctx, 1, snapshotdomain.VendorCursor)
	if err != nil {
		t.Fatalf("second build: %v", err)
	}
	if r1 != r2 {
		t.Fatalf("expected cached resolver instance")
	}
	if got := r2.Resolve(strptr("erin@corp.com"), nil); got != nil {
		t.Fatalf("expected cached resolver to miss the new member, got %v", *got)
	}
}
