package repository

import (
	"context"
	"dispatch-backend/dal"
	"dispatch-backend/models"
	"dispatch-backend/utils/logger"
	"errors"
	"fmt"
	"time"
)

const tableLocks = "technician_locks"

// LockRepository persists technician-day slot locks. A lock is free when its row is absent or expired.
type LockRepository struct {
	db     dal.DatabaseClientInterface
	config *models.Config
	logger logger.Logger
	now    func() time.Time
}

func NewLockRepository(db dal.DatabaseClientInterface, cfg *models.Config, log logger.Logger) *LockRepository {
	return &LockRepository{
		db:     db,
		config: cfg,
		logger: log,
		now:    time.Now,
	}
}

// LockKey identifies the slot of one technician on one date
func LockKey(technicianID, date string) string {
	return technicianID + "#" + date
}

// Acquire tries once to take the slot for owner. It reports false when another owner holds an unexpired lock.
func (r *LockRepository) Acquire(ctx context.Context, technicianID, date, owner string, ttl time.Duration) (bool, error) {
	now := r.now().UTC()
	lock := &models.TechnicianSlotLock{
		LockKey:      LockKey(technicianID, date),
		TechnicianID: technicianID,
		Date:         date,
		Owner:        owner,
		AcquiredAt:   now,
		ExpiresAt:    now.Add(ttl).Unix(),
	}

	err := r.db.PutItemIf(ctx, r.config.TableName(tableLocks), lock,
		"attribute_not_exists(lockKey) OR expiresAt < :now",
		nil,
		map[string]interface{}{":now": now.Unix()},
	)
	if errors.Is(err, dal.ErrConditionFailed) {
		r.logger.Debugf("Slot %s is held by another request", lock.LockKey)
		return false, nil
	}
	if err != nil {
		r.logger.Errorf("Failed to acquire slot %s: %v", lock.LockKey, err)
		return false, fmt.Errorf("failed to acquire slot lock: %w", err)
	}
	return true, nil
}

// Release deletes the lock only if owner still holds it
func (r *LockRepository) Release(ctx context.Context, technicianID, date, owner string) error {
	key := LockKey(technicianID, date)
	err := r.db.DeleteItemIf(ctx, models.QueryConfig{
		TableName: r.config.TableName(tableLocks),
		KeyName:   "lockKey",
		KeyValue:  key,
		KeyType:   models.StringType,
	}, "#owner = :owner", map[string]string{"#owner": "owner"}, map[string]interface{}{":owner": owner})
	if errors.Is(err, dal.ErrConditionFailed) {
		r.logger.Warnf("Slot %s was no longer held by %s at release", key, owner)
		return nil
	}
	if err != nil {
		r.logger.Errorf("Failed to release slot %s: %v", key, err)
		return fmt.Errorf("failed to release slot lock: %w", err)
	}
	return nil
}

// SweepExpired removes locks whose expiry has passed and returns how many were removed
func (r *LockRepository) SweepExpired(ctx context.Context) (int, error) {
	now := r.now().UTC().Unix()
	var expired []models.TechnicianSlotLock
	err := r.db.Scan(ctx, models.QueryConfig{
		TableName:        r.config.TableName(tableLocks),
		FilterExpression: "expiresAt < :now",
		FilterValues:     map[string]interface{}{":now": now},
	}, &expired)
	if err != nil {
		return 0, fmt.Errorf("failed to scan slot locks: %w", err)
	}

	removed := 0
	for _, lock := range expired {
		err := r.db.DeleteItemIf(ctx, models.QueryConfig{
			TableName: r.config.TableName(tableLocks),
			KeyName:   "lockKey",
			KeyValue:  lock.LockKey,
			KeyType:   models.StringType,
		}, "expiresAt < :now", nil, map[string]interface{}{":now": now})
		if errors.Is(err, dal.ErrConditionFailed) {
			// re-acquired since the scan
			continue
		}
		if err != nil {
			return removed, fmt.Errorf("failed to delete expired lock %s: %w", lock.LockKey, err)
		}
		removed++
	}

	if removed > 0 {
		r.logger.Infof("Swept %d expired slot locks", removed)
	}
	return removed, nil
}
