package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"hmsportal/internal/model"
)

// StoredValueRepository defines persistence of durable session keys.
type StoredValueRepository interface {
	FindByKey(ctx context.Context, key string) (*model.StoredValue, error)
	Upsert(ctx context.Context, key, value string) error
	DeleteKeys(ctx context.Context, keys []string) error
	// Transaction methods
	WithTransaction(ctx context.Context, fn func(ctx context.Context, repo StoredValueRepository) error) error
}

type storedValueRepository struct {
	db *gorm.DB
}

// NewStoredValueRepository creates a new stored value repository.
func NewStoredValueRepository(db *gorm.DB) StoredValueRepository {
	return &storedValueRepository{db: db}
}

// FindByKey finds a value by its storage key. A missing key is (nil, nil).
func (r *storedValueRepository) FindByKey(ctx context.Context, key string) (*model.StoredValue, error) {
	var v model.StoredValue
	res := r.db.WithContext(ctx).Where("storage_key = ?", key).Limit(1).Find(&v)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return &v, nil
}

// Upsert inserts the key or overwrites its value.
func (r *storedValueRepository) Upsert(ctx context.Context, key, value string) error {
	v := model.StoredValue{Key: key, Value: value, UpdatedAt: time.Now()}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "storage_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&v).Error
}

// DeleteKeys removes every row whose key is listed.
func (r *storedValueRepository) DeleteKeys(ctx context.Context, keys []string) error {
	return r.db.WithContext(ctx).Where("storage_key IN ?", keys).Delete(&model.StoredValue{}).Error
}

// WithTransaction executes a function within a database transaction.
func (r *storedValueRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context, repo StoredValueRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txRepo := &storedValueRepository{db: tx}
		return fn(ctx, txRepo)
	})
}
