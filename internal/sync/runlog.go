package sync

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Run statuses.
const (
	RunStatusRunning = "running"
	RunStatusSuccess = "success"
	RunStatusFailed  = "failed"
	RunStatusSkipped = "skipped"
)

// Run is the audit record of one vendor sync attempt.
type Run struct {
	ID       snowflake.ID `gorm:"primaryKey" json:"id"`
	TenantID snowflake.ID `gorm:"not null;index" json:"tenant_id"`
	Vendor   string       `gorm:"type:text;not null;index" json:"vendor"`

	Status         string  `gorm:"type:text;not null" json:"status"`
	RecordsWritten int     `gorm:"not null;default:0" json:"records_written"`
	DryRun         bool    `gorm:"not null;default:false" json:"dry_run"`
	Error          *string `gorm:"type:text" json:"error,omitempty"`

	StartedAt  time.Time  `gorm:"not null" json:"started_at"`
	FinishedAt *time.Time `gorm:"" json:"finished_at"`
}

// TableName sets the database table name.
func (Run) TableName() string { return "sync_runs" }

// RunLog records sync attempts for the operator status surface.
type RunLog struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
}

// NewRunLog constructs a run log.
func NewRunLog(db *gorm.DB, log *zap.Logger, genID *snowflake.Node) *RunLog {
	return &RunLog{db: db, log: log.Named("sync.runlog"), genID: genID}
}

// Begin inserts a running entry and returns its id. Logging failures are
// reported but never fail the sync itself.
func (l *RunLog) Begin(ctx context.Context, tenantID snowflake.ID, vendor string, dryRun bool, startedAt time.Time) snowflake.ID {
	id := l.genID.Generate()
	err := l.db.WithContext(ctx).Create(&Run{
		ID:        id,
		TenantID:  tenantID,
		Vendor:    vendor,
		Status:    RunStatusRunning,
		DryRun:    dryRun,
		StartedAt: startedAt.UTC(),
	}).Error
	if err != nil {
		l.log.Warn("failed to record sync run start", zap.String("vendor", vendor), zap.Error(err))
		return 0
	}
	return id
}

// Finish closes a run entry with its outcome.
func (l *RunLog) Finish(ctx context.Context, runID snowflake.ID, status string, recordsWritten int, runErr error, finishedAt time.Time) {
	if runID == 0 {
		return
	}
	updates := map[string]any{
		"status":          status,
		"records_written": recordsWritten,
		"finished_at":     finishedAt.UTC(),
	}
	if runErr != nil {
		updates["error"] = runErr.Error()
	}
	if err := l.db.WithContext(ctx).
		Model(&Run{}).
		Where("id = ?", runID).
		Updates(updates).Error; err != nil {
		l.log.Warn("failed to record sync run result", zap.Error(err))
	}
}

// Recent returns the latest runs, newest first.
func (l *RunLog) Recent(ctx context.Context, tenantID snowflake.ID, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	var runs []Run
	err := l.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("started_at DESC").
		Limit(limit).
		Find(&runs).Error
	return runs, err
}
