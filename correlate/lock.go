package correlate

import (
	"context"
	"errors"
	"time"

	"github.com/bsm/redislock"

	"bitbucket.org/sgdatafocus/telemetry_backend/config"
	"bitbucket.org/sgdatafocus/telemetry_backend/utils"
)

const ticketLockTTL = 2 * time.Minute

// withTicketLock serializes correlation runs per ticket key. The diff is
// read-then-write against the document store, so two concurrent runs for
// the same ticket could undo each other's links. Without a redis
// connection (local runs, tests) the function runs unguarded.
func withTicketLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	locker := config.GetRedisLock()
	if locker == nil {
		return fn(ctx)
	}

	lock, err := locker.Obtain(ctx, "ticket-correlation:"+key, ticketLockTTL, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return utils.ErrTicketBusy
	}
	if err != nil {
		return err
	}
	defer lock.Release(ctx)

	return fn(ctx)
}
