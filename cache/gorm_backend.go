package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// KVEntry is one persisted state value in SQL storage.
type KVEntry struct {
	Key       string `gorm:"primaryKey;size:191"`
	Value     string `gorm:"type:longtext"`
	UpdatedAt time.Time
}

// TableName pins the table name.
func (KVEntry) TableName() string {
	return "kv_entries"
}

// GormBackend stores state values in the kv_entries table.
type GormBackend struct {
	db *gorm.DB
}

// NewGormBackend wraps an open database. The kv_entries table must exist,
// see db.AutoMigrateModels.
func NewGormBackend(db *gorm.DB) *GormBackend {
	return &GormBackend{db: db}
}

func (b *GormBackend) Get(ctx context.Context, key string) (string, bool, error) {
	var entry KVEntry
	err := b.db.WithContext(ctx).Where("`key` = ?", key).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get %s: %w", key, err)
	}
	return entry.Value, true, nil
}

func (b *GormBackend) Set(ctx context.Context, key, value string) error {
	entry := KVEntry{Key: key, Value: value, UpdatedAt: time.Now()}
	err := b.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&entry).Error
	if err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

func (b *GormBackend) Delete(ctx context.Context, key string) error {
	if err := b.db.WithContext(ctx).Where("`key` = ?", key).Delete(&KVEntry{}).Error; err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}
