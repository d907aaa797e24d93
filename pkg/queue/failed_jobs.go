package queue

import (
	"context"
	"time"

	"github.com/shashiranjanraj/shopfront/pkg/logger"
	"gorm.io/gorm"
)

// FailedJobRecord is a row of failed_jobs, created by the migrations.
type FailedJobRecord struct {
	ID       uint      `gorm:"primaryKey;autoIncrement"`
	JobType  string    `gorm:"size:255;not null;index"`
	Payload  string    `gorm:"type:text;not null"`
	Error    string    `gorm:"type:text"`
	Attempts int       `gorm:"not null;default:0"`
	FailedAt time.Time `gorm:"not null;index"`
}

func (FailedJobRecord) TableName() string { return "failed_jobs" }

// FailedStore persists jobs that ran out of attempts.
type FailedStore interface {
	Save(ctx context.Context, rec *FailedJobRecord) error
}

// GormFailedStore writes failures to the failed_jobs table.
type GormFailedStore struct{ DB *gorm.DB }

func (s GormFailedStore) Save(ctx context.Context, rec *FailedJobRecord) error {
	return s.DB.WithContext(ctx).Create(rec).Error
}

// UseStore persists future failures through store. Without one, failures
// are only kept in memory.
func (m *Manager) UseStore(store FailedStore) *Manager {
	m.mu.Lock()
	m.store = store
	m.mu.Unlock()
	return m
}

func (m *Manager) recordFailed(ctx context.Context, env envelope, cause error) {
	now := time.Now()
	m.mu.Lock()
	m.failed = append(m.failed, FailedJob{
		Type: env.Type, Payload: env.Payload, Err: cause, FailedAt: now, Attempts: env.Attempt,
	})
	store := m.store
	m.mu.Unlock()

	if store == nil {
		return
	}
	rec := &FailedJobRecord{
		JobType:  env.Type,
		Payload:  string(env.Payload),
		Error:    cause.Error(),
		Attempts: env.Attempt,
		FailedAt: now,
	}
	if err := store.Save(context.WithoutCancel(ctx), rec); err != nil {
		logger.Error("queue: persist failed job", "type", env.Type, "error", err)
	}
}
