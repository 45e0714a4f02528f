package vendorconfig

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	appconfig "github.com/AssetWorks-R-D/ai-spend-dashboard/internal/config"
	snapshotdomain "github.com/AssetWorks-R-D/ai-spend-dashboard/internal/snapshot/domain"
)

func setupServiceTest(t *testing.T) (*Service, *snowflake.Node) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&Config{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	svc, err := NewService(db, zap.NewNop(), appconfig.Config{
		CredentialEncryptionKey: testHexKey,
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	return svc, node
}

func TestStoreAndReadCredentials(t *testing.T) {
	svc, node := setupServiceTest(t)
	ctx := context.Background()
	now := time.Date(2026, time.March, 5, 12, 0, 0, 0, time.UTC)

	creds := map[string]string{"apiKey": "sk-test-123"}
	if err := svc.StoreCredentials(ctx, node, 1, snapshotdomain.VendorCursor, creds, now); err != nil {
		t.Fatalf("store: %v", err)
	}

	// Stored form is sealed, not plaintext.
	cfg, err := svc.Find(ctx, 1, snapshotdomain.VendorCursor)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if cfg == nil || cfg.EncryptedCredentials == nil {
		t.Fatalf("expected config with sealed credentials")
	}
	if *cfg.EncryptedCredentials == `{"apiKey":"sk-test-123"}` {
		t.Fatalf("credentials stored in plaintext")
	}

	got, err := svc.CredentialsFor(ctx, 1, snapshotdomain.VendorCursor)
	if err != nil {
		t.Fatalf("credentials for: %v", err)
	}
	if got["apiKey"] != "sk-test-123" {
		t.Fatalf("expected decrypted apiKey, got %v", got)
	}
}

func TestStoreCredentialsOverwrites(t *testing.T) {
	svc, node := setupServiceTest(t)
	ctx := context.Background()
	now := time.Date(2026, time.March, 5, 12, 0, 0, 0, time.UTC)

	if err := svc.StoreCredentials(ctx, node, 1, snapshotdomain.VendorCursor, map[string]string{"apiKey": "old"}, now); err != nil {
		t.Fatalf("first store: %v", err)
	}
	if err := svc.StoreCredentials(ctx, node, 1, snapshotdomain.VendorCursor, map[string]string{"apiKey": "new"}, now.Add(time.Hour)); err != nil {
		t.Fatalf("second store: %v", err)
	}

	got, err := svc.CredentialsFor(ctx, 1, snapshotdomain.VendorCursor)
	if err != nil {
		t.Fatalf("credentials for: %v", err)
	}
	if got["apiKey"] != "new" {
		t.Fatalf("expected rotated credentials, got %v", got)
	}

	configs, err := svc.List(ctx, 1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(configs) != 1 {
		t.Fatalf("expected a single config row, got %d", len(configs))
	}
}

func TestStoreCredentialsLogsMaskedValues(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&Config{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	svc, err := NewService(db, zap.New(core), appconfig.Config{
		CredentialEncryptionKey: testHexKey,
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}

	now := time.Date(2026, time.March, 5, 12, 0, 0, 0, time.UTC)
	err = svc.StoreCredentials(context.Background(), node, 1, snapshotdomain.VendorCursor,
		map[string]string{"apiKey": "sk-secret-1234"}, now)
	if err != nil {
		t.Fatalf("store: %v", err)
	}

	entries := logs.FilterMessage("storing vendor credentials").All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 store log entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	creds, ok := fields["credentials"].(map[string]string)
	if !ok {
		t.Fatalf("expected credentials field, got %T", fields["credentials"])
	}
	if creds["apiKey"] != "****1234" {
		t.Fatalf("expected masked credential value, got %q", creds["apiKey"])
	}
}

func TestFindRunsOnGivenConnection(t *testing.T) {
	svc, node := setupServiceTest(t)
	now := time.Date(2026, time.March, 5, 12, 0, 0, 0, time.UTC)

	tx := svc.db.Begin()
	if tx.Error != nil {
		t.Fatalf("begin: %v", tx.Error)
	}
	defer tx.Rollback()

	sealed := "pending"
	err := tx.Create(&Config{
		ID:                   node.Generate(),
		TenantID:             1,
		Vendor:               string(snapshotdomain.VendorCursor),
		EncryptedCredentials: &sealed,
		CreatedAt:            now,
		UpdatedAt:            now,
	}).Error
	if err != nil {
		t.Fatalf("create in tx: %v", err)
	}

	// The uncommitted row is visible through the transaction, so the
	// check-then-write in StoreCredentials sees its own connection's state.
	cfg, err := find(tx, 1, snapshotdomain.VendorCursor)
	if err != nil {
		t.Fatalf("find on tx: %v", err)
	}
	if cfg == nil {
		t.Fatalf("expected uncommitted row via the transaction connection")
	}
}

func TestCredentialsForMissingVendor(t *testing.T) {
	svc, _ := setupServiceTest(t)

	_, err := svc.CredentialsFor(context.Background(), 1, snapshotdomain.VendorOpenAI)
	if !errors.Is(err, ErrNoCredentials) {
		t.Fatalf("expected ErrNoCredentials, got %v", err)
	}
}

func TestMarkSyncResult(t *testing.T) {
	svc, node := setupServiceTest(t)
	ctx := context.Background()
	now := time.Date(2026, time.March, 5, 12, 0, 0, 0, time.UTC)

	if err := svc.StoreCredentials(ctx, node, 1, snapshotdomain.VendorCursor, map[string]string{"apiKey": "k"}, now); err != nil {
		t.Fatalf("store: %v", err)
	}

	if err := svc.MarkSyncResult(ctx, 1, snapshotdomain.VendorCursor, nil, now.Add(time.Hour)); err != nil {
		t.Fatalf("mark success: %v", err)
	}
	cfg, err := svc.Find(ctx, 1, snapshotdomain.VendorCursor)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if cfg.LastSyncStatus == nil || *cfg.LastSyncStatus != "success" {
		t.Fatalf("expected success status, got %v", cfg.LastSyncStatus)
	}
	if cfg.LastSyncAt == nil {
		t.Fatalf("expected last sync time to be set")
	}
	successAt := cfg.LastSyncAt.UTC()

	if err := svc.MarkSyncResult(ctx, 1, snapshotdomain.VendorCursor, errors.New("fetch timeout"), now.Add(2*time.Hour)); err != nil {
		t.Fatalf("mark failure: %v", err)
	}
	cfg, err = svc.Find(ctx, 1, snapshotdomain.VendorCursor)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if cfg.LastSyncStatus == nil || *cfg.LastSyncStatus != "fetch timeout" {
		t.Fatalf("expected failure message, got %v", cfg.LastSyncStatus)
	}
	// A failure must not advance the last successful sync time.
	if !cfg.LastSyncAt.UTC().Equal(successAt) {
		t.Fatalf("failure advanced last_sync_at: %v", cfg.LastSyncAt)
	}
}
