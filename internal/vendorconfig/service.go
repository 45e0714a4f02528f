package vendorconfig

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
	"gorm.io/gorm"

	appconfig "github.com/AssetWorks-R-D/ai-spend-dashboard/internal/config"
	"github.com/AssetWorks-R-D/ai-spend-dashboard/internal/observability/logger"
	snapshotdomain "github.com/AssetWorks-R-D/ai-spend-dashboard/internal/snapshot/domain"
)

var (
	ErrNoCredentials = errors.New("no credentials configured for vendor")
)

// Service reads vendor configs and decrypts their credentials.
type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	keyring *Keyring
}

// NewService constructs the vendor config service. The keyring is optional;
// without one, credential reads fail with ErrMissingKey.
func NewService(db *gorm.DB, log *zap.Logger, cfg appconfig.Config) (*Service, error) {
	s := &Service{db: db, log: log.Named("vendorconfig")}
	if cfg.CredentialEncryptionKey != "" {
		keyring, err := NewKeyring(cfg.CredentialEncryptionKey)
		if err != nil {
			return nil, err
		}
		s.keyring = keyring
	}
	return s, nil
}

// Find returns the stored config for a tenant and vendor, or nil.
func (s *Service) Find(ctx context.Context, tenantID snowflake.ID, vendor snapshotdomain.Vendor) (*Config, error) {
	return find(s.db.WithContext(ctx), tenantID, vendor)
}

func find(db *gorm.DB, tenantID snowflake.ID, vendor snapshotdomain.Vendor) (*Config, error) {
	var cfg Config
	err := db.
		Where("tenant_id = ? AND vendor = ?", tenantID, string(vendor)).
		First(&cfg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &cfg, nil
}

// List returns all configs for a tenant.
func (s *Service) List(ctx context.Context, tenantID snowflake.ID) ([]Config, error) {
	var configs []Config
	err := s.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Find(&configs).Error
	return configs, err
}

// CredentialsFor decrypts a vendor's credentials into the fetcher's
// key/value form. Returns ErrNoCredentials when none are configured.
func (s *Service) CredentialsFor(ctx context.Context, tenantID snowflake.ID, vendor snapshotdomain.Vendor) (map[string]string, error) {
	cfg, err := s.Find(ctx, tenantID, vendor)
	if err != nil {
		return nil, err
	}
	if cfg == nil || cfg.EncryptedCredentials == nil || *cfg.EncryptedCredentials == "" {
		return nil, ErrNoCredentials
	}
	if s.keyring == nil {
		return nil, ErrMissingKey
	}

	plaintext, err := s.keyring.Open(*cfg.EncryptedCredentials)
	if err != nil {
		return nil, fmt.Errorf("open credentials for %s: %w", vendor, err)
	}

	var creds map[string]string
	if err := json.Unmarshal([]byte(plaintext), &creds); err != nil {
		return nil, fmt.Errorf("decode credentials for %s: %w", vendor, err)
	}
	return creds, nil
}

// StoreCredentials seals and saves credentials for a vendor, creating the
// config row when missing.
func (s *Service) StoreCredentials(ctx context.Context, genID *snowflake.Node, tenantID snowflake.ID, vendor snapshotdomain.Vendor, creds map[string]string, now time.Time) error {
	if s.keyring == nil {
		return ErrMissingKey
	}
	encoded, err := json.Marshal(creds)
	if err != nil {
		return err
	}
	sealed, err := s.keyring.Seal(string(encoded))
	if err != nil {
		return err
	}

	s.log.Info("storing vendor credentials",
		zap.String("vendor", string(vendor)),
		zap.Any("credentials", logger.MaskCredentials(creds)),
	)

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Lookup runs on tx so the check-then-write stays inside one
		// transaction.
		existing, err := find(tx, tenantID, vendor)
		if err != nil {
			return err
		}
		if existing == nil {
			return tx.WithContext(ctx).Create(&Config{
				ID:                   genID.Generate(),
				TenantID:             tenantID,
				Vendor:               string(vendor),
				EncryptedCredentials: &sealed,
				CreatedAt:            now.UTC(),
				UpdatedAt:            now.UTC(),
			}).Error
		}
		return tx.WithContext(ctx).
			Model(&Config{}).
			Where("id = ?", existing.ID).
			Updates(map[string]any{
				"encrypted_credentials": sealed,
				"updated_at":            now.UTC(),
			}).Error
	})
}

// MarkSyncResult records a sync outcome on the vendor's config row. A nil
// syncErr marks success; otherwise the error message is kept for the
// status surface.
func (s *Service) MarkSyncResult(ctx context.Context, tenantID snowflake.ID, vendor snapshotdomain.Vendor, syncErr error, now time.Time) error {
	status := "success"
	updates := map[string]any{
		"last_sync_status": status,
		"updated_at":       now.UTC(),
	}
	if syncErr != nil {
		status = syncErr.Error()
		updates["last_sync_status"] = status
	} else {
		updates["last_sync_at"] = now.UTC()
	}

	err := s.db.WithContext(ctx).
		Model(&Config{}).
		Where("tenant_id = ? AND vendor = ?", tenantID, string(vendor)).
		Updates(updates).Error
	if err != nil {
		s.log.Warn("failed to record sync status",
			zap.String("vendor", string(vendor)),
			zap.Error(err),
		)
	}
	return err
}
