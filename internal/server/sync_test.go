package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/AssetWorks-R-D/ai-spend-dashboard/internal/clock"
	"github.com/AssetWorks-R-D/ai-spend-dashboard/internal/config"
	"github.com/AssetWorks-R-D/ai-spend-dashboard/internal/member"
	"github.com/AssetWorks-R-D/ai-spend-dashboard/internal/snapshot"
	snapshotdomain "github.com/AssetWorks-R-D/ai-spend-dashboard/internal/snapshot/domain"
	syncengine "github.com/AssetWorks-R-D/ai-spend-dashboard/internal/sync"
	"github.com/AssetWorks-R-D/ai-spend-dashboard/internal/tenant"
	"github.com/AssetWorks-R-D/ai-spend-dashboard/internal/usage"
	usagedomain "github.com/AssetWorks-R-D/ai-spend-dashboard/internal/usage/domain"
	"github.com/AssetWorks-R-D/ai-spend-dashboard/internal/vendorconfig"
)

const testHexKey = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func setupServerTest(t *testing.T) (*Server, *gin.Engine, *clock.Fixed) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	err = db.AutoMigrate(
		&tenant.Tenant{},
		&member.Member{},
		&member.Identity{},
		&usagedomain.Record{},
		&vendorconfig.Config{},
		&snapshot.Row{},
		&syncengine.Run{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := db.Create(&tenant.Tenant{ID: 1, Name: "Main", Slug: "main"}).Error; err != nil {
		t.Fatalf("seed tenant: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	log := zap.NewNop()
	cfg := config.Config{
		Environment:             "test",
		CredentialEncryptionKey: testHexKey,
		Sync: config.SyncConfig{
			MaxParallel:  1,
			FetchTimeout: time.Minute,
			RunTimeout:   time.Minute,
		},
	}
	svc, err := vendorconfig.NewService(db, log, cfg)
	if err != nil {
		t.Fatalf("vendorconfig service: %v", err)
	}
	fixed := &clock.Fixed{Instant: time.Date(2026, time.March, 5, 10, 0, 0, 0, time.UTC)}
	runLog := syncengine.NewRunLog(db, log, node)

	orch := syncengine.NewOrchestrator(syncengine.Params{
		DB:            db,
		Log:           log,
		Clock:         fixed,
		Config:        cfg,
		Store:         snapshot.NewStore(db, log),
		Writer:        usage.NewWriter(db, log, node, member.NewBuilder(db, log)),
		Registry:      syncengine.NewRegistry(),
		VendorConfigs: svc,
		RunLog:        runLog,
	})

	engine := gin.New()
	srv := NewServer(Params{
		Config:        cfg,
		DB:            db,
		Log:           log,
		Clock:         fixed,
		Node:          node,
		Orchestrator:  orch,
		RunLog:        runLog,
		VendorConfigs: svc,
	}, engine)
	srv.RegisterAPIRoutes()
	return srv, engine, fixed
}

func doJSON(t *testing.T, engine *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestTriggerSyncUnknownVendor(t *testing.T) {
	_, engine, _ := setupServerTest(t)

	w := doJSON(t, engine, http.MethodPost, "/api/sync/trigger", `{"vendor":"jetbrains"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
}

func TestCaptureSnapshotRunsPipeline(t *testing.T) {
	_, engine, _ := setupServerTest(t)

	body := `{"vendor":"claude","members":[{"vendorEmail":"a@x.com","vendorUsername":null,"spendCents":1000,"tokens":null}]}`
	w := doJSON(t, engine, http.MethodPost, "/api/sync/snapshot", body)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp vendorResultResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Vendor != "claude" {
		t.Fatalf("expected claude result, got %q", resp.Vendor)
	}
	if !resp.Baseline {
		t.Fatalf("expected first capture to seed the baseline")
	}
}

func TestCaptureSnapshotReturnsDeltaEntries(t *testing.T) {
	_, engine, fixed := setupServerTest(t)

	baseline := `{"vendor":"claude","members":[{"vendorEmail":"a@x.com","vendorUsername":null,"spendCents":500,"tokens":null}]}`
	if w := doJSON(t, engine, http.MethodPost, "/api/sync/snapshot", baseline); w.Code != http.StatusOK {
		t.Fatalf("baseline capture: %d: %s", w.Code, w.Body.String())
	}

	fixed.Set(fixed.Now().Add(24 * time.Hour))
	update := `{"vendor":"claude","members":[{"vendorEmail":"a@x.com","vendorUsername":null,"spendCents":800,"tokens":null},{"vendorEmail":"b@x.com","vendorUsername":null,"spendCents":250,"tokens":null}]}`
	w := doJSON(t, engine, http.MethodPost, "/api/sync/snapshot?dryRun=true", update)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp vendorResultResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.DryRun {
		t.Fatalf("expected dry-run result, got %+v", resp)
	}
	if len(resp.Deltas) != 1 {
		t.Fatalf("expected 1 delta entry in the body, got %+v", resp.Deltas)
	}
	d := resp.Deltas[0]
	if d.VendorEmail == nil || *d.VendorEmail != "a@x.com" || d.DeltaSpendCents != 300 || d.BillingReset {
		t.Fatalf("unexpected delta entry: %+v", d)
	}
	if len(resp.NewMembers) != 1 {
		t.Fatalf("expected 1 new member in the body, got %+v", resp.NewMembers)
	}
	nm := resp.NewMembers[0]
	if nm.VendorEmail == nil || *nm.VendorEmail != "b@x.com" || nm.SpendCents != 250 {
		t.Fatalf("unexpected new member entry: %+v", nm)
	}
}

func TestCaptureSnapshotRejectsEmpty(t *testing.T) {
	_, engine, _ := setupServerTest(t)

	w := doJSON(t, engine, http.MethodPost, "/api/sync/snapshot", `{"vendor":"claude","members":[]}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
}

func TestSyncStatusListsAllVendors(t *testing.T) {
	srv, engine, fixed := setupServerTest(t)

	// One configured vendor with a fresh sync; the rest are stale.
	err := srv.vendorConfigs.StoreCredentials(
		httptest.NewRequest(http.MethodGet, "/", nil).Context(),
		srv.node, 1, snapshotdomain.VendorCursor,
		map[string]string{"apiKey": "k"}, fixed.Now(),
	)
	if err != nil {
		t.Fatalf("store credentials: %v", err)
	}
	if err := srv.vendorConfigs.MarkSyncResult(httptest.NewRequest(http.MethodGet, "/", nil).Context(), 1, snapshotdomain.VendorCursor, nil, fixed.Now()); err != nil {
		t.Fatalf("mark sync: %v", err)
	}

	w := doJSON(t, engine, http.MethodGet, "/api/sync/status", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Vendors []vendorStatusResponse `json:"vendors"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Vendors) != len(snapshotdomain.AllVendors) {
		t.Fatalf("expected %d vendors, got %d", len(snapshotdomain.AllVendors), len(resp.Vendors))
	}
	for _, v := range resp.Vendors {
		switch v.Vendor {
		case "cursor":
			if v.Stale || !v.Configured {
				t.Fatalf("expected cursor fresh and configured, got %+v", v)
			}
		default:
			if !v.Stale {
				t.Fatalf("expected %s stale, got %+v", v.Vendor, v)
			}
		}
	}
}

func TestPutVendorCredentials(t *testing.T) {
	srv, engine, _ := setupServerTest(t)

	w := doJSON(t, engine, http.MethodPut, "/api/vendors/cursor/credentials", `{"credentials":{"apiKey":"sk-1"}}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	creds, err := srv.vendorConfigs.CredentialsFor(
		httptest.NewRequest(http.MethodGet, "/", nil).Context(), 1, snapshotdomain.VendorCursor)
	if err != nil {
		t.Fatalf("credentials for: %v", err)
	}
	if creds["apiKey"] != "sk-1" {
		t.Fatalf("expected stored credentials, got %v", creds)
	}

	w = doJSON(t, engine, http.MethodPut, "/api/vendors/nope/credentials", `{"credentials":{"apiKey":"x"}}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown vendor, got %d", w.Code)
	}
}

func TestHealthz(t *testing.T) {
	_, engine, _ := setupServerTest(t)

	w := doJSON(t, engine, http.MethodGet, "/healthz", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}
