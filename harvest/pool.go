package harvest

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/icaro1518/ml-discounts/table"
)

// fetchFunc produces the flat table for a single id.
type fetchFunc func(ctx context.Context, id string) (*table.Table, error)

// runBatch dispatches fetch across a bounded worker pool and concatenates
// the results in completion order after the pool drains. Under the default
// policy a failed id is logged and contributes zero rows; with FailFast the
// first error fails the whole batch (remaining ids are drained unfetched).
func (s *Session) runBatch(ctx context.Context, ids []string, kind string, fetch fetchFunc) (*table.Table, []string, error) {
	workers := s.Cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	if workers > len(ids) {
		workers = len(ids)
	}

	combined := table.New()
	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		failed   []string
		firstErr error
	)

	tripped := func() bool {
		mu.Lock()
		defer mu.Unlock()
		return firstErr != nil
	}

	idCh := make(chan string)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range idCh {
				if ctx.Err() != nil || (s.Cfg.FailFast && tripped()) {
					continue
				}

				t, err := fetch(ctx, id)
				if err != nil {
					if s.Cfg.FailFast {
						mu.Lock()
						if firstErr == nil {
							firstErr = fmt.Errorf("%s %s: %w", kind, id, err)
						}
						mu.Unlock()
						continue
					}
					s.Log.Error("fetch failed, skipping id",
						slog.String("kind", kind),
						slog.String("id", id),
						slog.Any("error", err),
					)
					s.Metrics.IncError("isolated")
					mu.Lock()
					failed = append(failed, id)
					mu.Unlock()
					continue
				}

				mu.Lock()
				combined.Concat(t)
				mu.Unlock()
			}
		}()
	}

	for _, id := range ids {
		idCh <- id
	}
	close(idCh)
	wg.Wait()

	if firstErr != nil {
		return nil, nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	return combined, failed, nil
}
