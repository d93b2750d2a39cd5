package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Rakhulsr/axen-cart/app/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	defaultPollInterval = time.Second
	defaultGapWait      = time.Minute
	changeRetention     = time.Hour
	changePruneEvery    = 10 * time.Minute
)

// GormStorage persists values in storage_entries and records every change
// in storage_changes. There is no push channel in MySQL, so Subscribe polls
// the change log.
type GormStorage struct {
	db           *gorm.DB
	logger       *zap.Logger
	pollInterval time.Duration
	// gapWait is how long a missing change id may stay missing before the
	// poller treats its transaction as rolled back.
	gapWait time.Duration
}

func NewGormStorage(db *gorm.DB, logger *zap.Logger, pollInterval time.Duration) *GormStorage {
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}
	return &GormStorage{db: db, logger: logger, pollInterval: pollInterval, gapWait: defaultGapWait}
}

func (s *GormStorage) Get(ctx context.Context, key string) ([]byte, error) {
	var entry models.StorageEntry
	err := s.db.WithContext(ctx).Where("`key` = ?", key).First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrKeyNotFound
		}
		return nil, fmt.Errorf("load storage entry %s: %w", key, err)
	}
	return entry.Value, nil
}

func (s *GormStorage) Set(ctx context.Context, origin, key string, value []byte) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		entry := models.StorageEntry{Key: key, Value: value, Origin: origin, UpdatedAt: time.Now()}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "origin", "updated_at"}),
		}).Create(&entry).Error; err != nil {
			return err
		}
		return recordChange(tx, origin, key)
	})
	if err != nil {
		return fmt.Errorf("save storage entry %s: %w", key, err)
	}
	return nil
}

func (s *GormStorage) Delete(ctx context.Context, origin, key string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("`key` = ?", key).Delete(&models.StorageEntry{})
		if result.Error != nil || result.RowsAffected == 0 {
			return result.Error
		}
		return recordChange(tx, origin, key)
	})
	if err != nil {
		return fmt.Errorf("delete storage entry %s: %w", key, err)
	}
	return nil
}

// Take locks the row before deleting it; a concurrent Take waits on the
// lock and then finds nothing.
func (s *GormStorage) Take(ctx context.Context, origin, key string) ([]byte, error) {
	var value []byte
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var entry models.StorageEntry
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("`key` = ?", key).
			First(&entry).Error; err != nil {
			return err
		}

		result := tx.Where("`key` = ?", key).Delete(&models.StorageEntry{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		value = entry.Value
		return recordChange(tx, origin, key)
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrKeyNotFound
		}
		return nil, fmt.Errorf("take storage entry %s: %w", key, err)
	}
	return value, nil
}

func recordChange(tx *gorm.DB, origin, key string) error {
	return tx.Create(&models.StorageChange{Key: key, Origin: origin}).Error
}

func (s *GormStorage) Subscribe(ctx context.Context, fn func(StorageEvent)) (func(), error) {
	var floor uint64
	if err := s.db.WithContext(ctx).
		Model(&models.StorageChange{}).
		Select("COALESCE(MAX(id), 0)").
		Scan(&floor).Error; err != nil {
		return nil, fmt.Errorf("read storage change high-water mark: %w", err)
	}
	cursor := newChangeCursor(floor, s.gapWait)

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		ticker := time.NewTicker(s.pollInterval)
		defer ticker.Stop()
		prune := time.NewTicker(changePruneEvery)
		defer prune.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.poll(ctx, cursor, fn)
			case <-prune.C:
				s.prune(ctx)
			}
		}
	}()

	return func() {
		cancel()
		<-done
	}, nil
}

// poll re-reads every change above the cursor floor, so a change whose id
// was allocated before a newer, already delivered one is still picked up
// once its transaction commits.
func (s *GormStorage) poll(ctx context.Context, cursor *changeCursor, fn func(StorageEvent)) {
	var changes []models.StorageChange
	err := s.db.WithContext(ctx).
		Where("id > ?", cursor.floor).
		Order("id").
		Find(&changes).Error
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Warn("polling storage changes failed", zap.Error(err))
		}
		return
	}

	for _, change := range changes {
		if cursor.accept(change.ID) {
			fn(StorageEvent{Key: change.Key, Origin: change.Origin})
		}
	}
	if skipped := cursor.settle(time.Now()); skipped > 0 {
		s.logger.Debug("skipped storage change ids that never committed", zap.Int("count", skipped))
	}
}

func (s *GormStorage) prune(ctx context.Context) {
	err := s.db.WithContext(ctx).
		Where("created_at < ?", time.Now().Add(-changeRetention)).
		Delete(&models.StorageChange{}).Error
	if err != nil && ctx.Err() == nil {
		s.logger.Warn("pruning storage changes failed", zap.Error(err))
	}
}

// changeCursor tracks which change ids have been delivered. Every id up to
// floor is done; ids above it are remembered individually until the gaps
// below them close.
type changeCursor struct {
	floor    uint64
	seen     map[uint64]struct{}
	gapWait  time.Duration
	gapFloor uint64
	gapSince time.Time
}

func newChangeCursor(floor uint64, gapWait time.Duration) *changeCursor {
	return &changeCursor{floor: floor, seen: make(map[uint64]struct{}), gapWait: gapWait}
}

// accept reports whether id is new and marks it delivered.
func (c *changeCursor) accept(id uint64) bool {
	if id <= c.floor {
		return false
	}
	if _, ok := c.seen[id]; ok {
		return false
	}
	c.seen[id] = struct{}{}
	return true
}

// settle moves floor over contiguous delivered ids. A gap that has stayed
// open for gapWait belongs to a rolled back insert and is skipped. It
// returns the number of ids skipped.
func (c *changeCursor) settle(now time.Time) int {
	skipped := 0
	for {
		for {
			if _, ok := c.seen[c.floor+1]; !ok {
				break
			}
			delete(c.seen, c.floor+1)
			c.floor++
		}

		if len(c.seen) == 0 {
			c.gapSince = time.Time{}
			return skipped
		}
		if c.gapSince.IsZero() || c.gapFloor != c.floor {
			c.gapFloor = c.floor
			c.gapSince = now
			return skipped
		}
		if now.Sub(c.gapSince) < c.gapWait {
			return skipped
		}

		next := c.lowestSeen()
		skipped += int(next - c.floor - 1)
		c.floor = next - 1
	}
}

func (c *changeCursor) lowestSeen() uint64 {
	var lowest uint64
	for id := range c.seen {
		if lowest == 0 || id < lowest {
			lowest = id
		}
	}
	return lowest
}
