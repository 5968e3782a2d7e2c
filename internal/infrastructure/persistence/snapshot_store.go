package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/knwn/storefront/internal/domain/shared"
	"github.com/knwn/storefront/internal/infrastructure/persistence/models"
)

// SnapshotStore implements shared.KeyValueStore over the session_snapshots
// table
type SnapshotStore struct {
	db  *gorm.DB
	now func() time.Time
}

var _ shared.KeyValueStore = (*SnapshotStore)(nil)

// NewSnapshotStore creates a SnapshotStore
func NewSnapshotStore(db *gorm.DB) *SnapshotStore {
	return &SnapshotStore{db: db, now: time.Now}
}

// Load returns the value stored under key, or shared.ErrKeyNotFound
func (s *SnapshotStore) Load(ctx context.Context, key string) ([]byte, error) {
	var m models.SessionSnapshot
	err := s.db.WithContext(ctx).
		Where(keyIs(key)).
		Take(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, shared.ErrKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot %s: %w", key, err)
	}
	return m.Value, nil
}

// Save upserts value under key in a single statement
func (s *SnapshotStore) Save(ctx context.Context, key string, value []byte) error {
	m := models.SessionSnapshot{Key: key, Value: value, UpdatedAt: s.now().UTC()}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&m).Error
	if err != nil {
		return fmt.Errorf("save snapshot %s: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *SnapshotStore) Delete(ctx context.Context, key string) error {
	err := s.db.WithContext(ctx).
		Where(keyIs(key)).
		Delete(&models.SessionSnapshot{}).Error
	if err != nil {
		return fmt.Errorf("delete snapshot %s: %w", key, err)
	}
	return nil
}

func keyIs(key string) clause.Eq {
	return clause.Eq{Column: clause.Column{Name: "key"}, Value: key}
}

// PurgeBefore deletes snapshots not written since cutoff and reports how
// many were removed
func (s *SnapshotStore) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("updated_at < ?", cutoff.UTC()).
		Delete(&models.SessionSnapshot{})
	if res.Error != nil {
		return 0, fmt.Errorf("purge snapshots: %w", res.Error)
	}
	return res.RowsAffected, nil
}
