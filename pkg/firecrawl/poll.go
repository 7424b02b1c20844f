package firecrawl

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
)

// Job states reported by the status endpoint.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// Poller waits for an asynchronous crawl job. The wait between status checks
// starts at Interval and doubles up to MaxInterval.
type Poller struct {
	Interval    time.Duration
	MaxInterval time.Duration

	// Timeout bounds the wait when ctx carries no deadline of its own.
	Timeout time.Duration
}

// DefaultPoller checks after 1s, backs off to 8s and gives up after 2m.
func DefaultPoller() Poller {
	return Poller{Interval: time.Second, MaxInterval: 8 * time.Second, Timeout: 2 * time.Minute}
}

// finished reports whether r is terminal. A response with no status but with
// pages comes from a deployment that does not track jobs.
func (r *CrawlResponse) finished() (bool, error) {
	switch r.Status {
	case StatusCompleted:
		return true, nil
	case StatusFailed, StatusCancelled:
		return true, eris.Errorf("firecrawl: crawl %s %s", r.ID, r.Status)
	case "":
		return len(r.Pages) > 0, nil
	}
	return false, nil
}

// Wait polls job id until it finishes, fails or ctx ends.
func (p Poller) Wait(ctx context.Context, client Client, id string) (*CrawlResponse, error) {
	def := DefaultPoller()
	if p.Interval <= 0 {
		p.Interval = def.Interval
	}
	if p.MaxInterval < p.Interval {
		p.MaxInterval = max(def.MaxInterval, p.Interval)
	}
	if _, ok := ctx.Deadline(); !ok {
		timeout := p.Timeout
		if timeout <= 0 {
			timeout = def.Timeout
		}
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	wait := p.Interval
	timer := time.NewTimer(wait)
	timer.Stop()
	defer timer.Stop()

	for {
		status, err := client.GetCrawlStatus(ctx, id)
		if err != nil {
			return nil, eris.Wrapf(err, "firecrawl: status of crawl %s", id)
		}
		if status.ID == "" {
			status.ID = id
		}
		done, err := status.finished()
		if err != nil {
			return nil, err
		}
		if done {
			return status, nil
		}

		timer.Reset(wait)
		select {
		case <-ctx.Done():
			return nil, eris.Wrapf(ctx.Err(), "firecrawl: crawl %s timed out", id)
		case <-timer.C:
		}
		wait = min(wait*2, p.MaxInterval)
	}
}
