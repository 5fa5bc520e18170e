package sourcemgr

import (
	"context"
	"fmt"
	"os"
	"time"
)

const (
	lockPollInterval = 100 * time.Millisecond
	// lockStaleAfter is how old a lock file must be before another
	// process may assume its owner died mid-fetch and take it over.
	lockStaleAfter = 30 * time.Minute
)

// acquireLock takes a cross-process advisory lock via exclusive file
// creation. Losers of the race poll until the winner releases (or the lock
// goes stale), so a handle is fetched once even across processes.
func acquireLock(ctx context.Context, path string) (func(), error) {
	for {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			fmt.Fprintf(f, "%d\n", os.Getpid())
			_ = f.Close()
			return func() { _ = os.Remove(path) }, nil
		}
		if !os.IsExist(err) {
			return nil, err
		}

		if info, statErr := os.Stat(path); statErr == nil {
			if time.Since(info.ModTime()) > lockStaleAfter {
				_ = os.Remove(path)
				continue
			}
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(lockPollInterval):
		}
	}
}
