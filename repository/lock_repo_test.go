package repository

import (
	"context"
	"dispatch-backend/dal"
	"dispatch-backend/models"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestLockRepo(db *MockDatabaseClient, now time.Time) *LockRepository {
	repo := NewLockRepository(db, testConfig(), testLogger())
	repo.now = func() time.Time { return now }
	return repo
}

func TestLockKey(t *testing.T) {
	assert.Equal(t, "42#2025-03-10", LockKey("42", "2025-03-10"))
}

func TestAcquireWritesConditionalLock(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	db := &MockDatabaseClient{}
	repo := newTestLockRepo(db, now)

	var lock *models.TechnicianSlotLock
	db.On("PutItemIf", ctx, "test_technician_locks", mock.Anything,
		"attribute_not_exists(lockKey) OR expiresAt < :now", mock.Anything,
		map[string]interface{}{":now": now.Unix()},
	).Run(func(args mock.Arguments) {
		lock = args.Get(2).(*models.TechnicianSlotLock)
	}).Return(nil)

	ok, err := repo.Acquire(ctx, "42", "2025-03-10", "req-1", 30*time.Second)

	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "42#2025-03-10", lock.LockKey)
	assert.Equal(t, "req-1", lock.Owner)
	assert.Equal(t, now.Add(30*time.Second).Unix(), lock.ExpiresAt)
	db.AssertExpectations(t)
}

func TestAcquireHeldElsewhere(t *testing.T) {
	ctx := context.Background()
	db := &MockDatabaseClient{}
	repo := newTestLockRepo(db, time.Now())
	db.On("PutItemIf", ctx, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(dal.ErrConditionFailed)

	ok, err := repo.Acquire(ctx, "42", "2025-03-10", "req-2", time.Second)

	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAcquireStoreError(t *testing.T) {
	ctx := context.Background()
	db := &MockDatabaseClient{}
	repo := newTestLockRepo(db, time.Now())
	db.On("PutItemIf", ctx, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("unavailable"))

	ok, err := repo.Acquire(ctx, "42", "2025-03-10", "req-2", time.Second)

	assert.Error(t, err)
	assert.False(t, ok)
}

func TestReleaseIgnoresLostOwnership(t *testing.T) {
	ctx := context.Background()
	db := &MockDatabaseClient{}
	repo := newTestLockRepo(db, time.Now())
	db.On("DeleteItemIf", ctx, byTable("test_technician_locks"), "#owner = :owner",
		map[string]string{"#owner": "owner"}, map[string]interface{}{":owner": "req-1"},
	).Return(dal.ErrConditionFailed)

	assert.NoError(t, repo.Release(ctx, "42", "2025-03-10", "req-1"))
	db.AssertExpectations(t)
}

func TestSweepExpiredCountsDeletedRows(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	db := &MockDatabaseClient{}
	repo := newTestLockRepo(db, now)

	db.On("Scan", ctx, byTable("test_technician_locks"), mock.Anything).Run(func(args mock.Arguments) {
		*args.Get(2).(*[]models.TechnicianSlotLock) = []models.TechnicianSlotLock{
			{LockKey: "42#2025-03-10"},
			{LockKey: "43#2025-03-10"},
		}
	}).Return(nil)
	db.On("DeleteItemIf", ctx, mock.MatchedBy(func(cfg models.QueryConfig) bool { return cfg.KeyValue == "42#2025-03-10" }),
		"expiresAt < :now", mock.Anything, mock.Anything).Return(nil)
	db.On("DeleteItemIf", ctx, mock.MatchedBy(func(cfg models.QueryConfig) bool { return cfg.KeyValue == "43#2025-03-10" }),
		"expiresAt < :now", mock.Anything, mock.Anything).Return(dal.ErrConditionFailed)

	removed, err := repo.SweepExpired(ctx)

	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	db.AssertExpectations(t)
}
