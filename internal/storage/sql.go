package storage

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"hmsportal/internal/repository"
)

// SQL stores values in a relational table through GORM.
type SQL struct {
	repo repository.StoredValueRepository
}

var _ Storage = (*SQL)(nil)

// NewSQL creates a store on top of the stored value repository.
func NewSQL(repo repository.StoredValueRepository) *SQL {
	return &SQL{repo: repo}
}

// Get returns the value or ok=false if the row is missing.
func (s *SQL) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.repo.FindByKey(ctx, key)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("find %s: %w", key, err)
	}
	if v == nil {
		return "", false, nil
	}
	return v.Value, true, nil
}

// SetMany upserts all values in one transaction.
func (s *SQL) SetMany(ctx context.Context, values map[string]string) error {
	return s.repo.WithTransaction(ctx, func(ctx context.Context, repo repository.StoredValueRepository) error {
		for k, v := range values {
			if err := repo.Upsert(ctx, k, v); err != nil {
				return fmt.Errorf("upsert %s: %w", k, err)
			}
		}
		return nil
	})
}

// Delete removes rows.
func (s *SQL) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := s.repo.DeleteKeys(ctx, keys); err != nil {
		return fmt.Errorf("delete keys: %w", err)
	}
	return nil
}
