package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/flotadata/flota_backend/config"
	"github.com/flotadata/flota_backend/utils"
	"gorm.io/gorm"
)

// AcquireBoxPostingLock serializes Apply/Reverse per box across instances
// using MySQL advisory locks. Different boxes proceed in parallel.
// NOTE: GET_LOCK is connection-scoped, so this must be called on the same
// *gorm.DB that will do the posting transaction.
func AcquireBoxPostingLock(tx *gorm.DB, boxId int) error {
	lockName := fmt.Sprintf("box:%d", boxId)
	var ok int
	if err := tx.Raw("SELECT GET_LOCK(?, 30)", lockName).Scan(&ok).Error; err != nil {
		return err
	}
	if ok != 1 {
		return postingLockContentionErr(boxId)
	}
	return nil
}

// postingLockContentionErr marks a lock timeout as a retryable conflict so
// the API surfaces it as 409 rather than a server error.
func postingLockContentionErr(boxId int) error {
	return fmt.Errorf("posting lock box_id=%d: %w", boxId, utils.ErrorConcurrentModification)
}

func ReleaseBoxPostingLock(tx *gorm.DB, boxId int) {
	lockName := fmt.Sprintf("box:%d", boxId)
	var _ok int
	_ = tx.Raw("SELECT RELEASE_LOCK(?)", lockName).Scan(&_ok).Error
}

// obtainBoxRedisLock is a best-effort cross-instance fence in front of the
// DB advisory lock. Redis being down never blocks posting; the advisory
// lock remains the real serializer.
func obtainBoxRedisLock(ctx context.Context, boxId int) *redislock.Lock {
	locker := config.GetRedisLock()
	if locker == nil {
		return nil
	}
	key := fmt.Sprintf("posting-box-%d", boxId)
	lock, err := locker.Obtain(ctx, key, 30*time.Second, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(200*time.Millisecond), 50),
	})
	if err != nil {
		return nil
	}
	return lock
}

func releaseBoxRedisLock(ctx context.Context, lock *redislock.Lock) {
	if lock != nil {
		_ = lock.Release(ctx)
	}
}
