package firecrawl

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// statusClient answers status checks from a function.
type statusClient struct {
	status func(id string) (*CrawlResponse, error)
}

func (s *statusClient) Crawl(context.Context, CrawlRequest) (*CrawlResponse, error) {
	return nil, errors.New("not used")
}

func (s *statusClient) GetCrawlStatus(_ context.Context, id string) (*CrawlResponse, error) {
	return s.status(id)
}

func fastPoller() Poller {
	return Poller{Interval: time.Millisecond, MaxInterval: 2 * time.Millisecond, Timeout: time.Second}
}

func TestPoller_Wait_Completed(t *testing.T) {
	var calls atomic.Int32
	client := &statusClient{status: func(id string) (*CrawlResponse, error) {
		assert.Equal(t, "job-7", id)
		if calls.Add(1) < 3 {
			return &CrawlResponse{Status: "scraping"}, nil
		}
		return &CrawlResponse{Status: StatusCompleted, Pages: []PageData{{URL: "https://acme.com", Content: "# Acme"}}}, nil
	}}

	resp, err := fastPoller().Wait(context.Background(), client, "job-7")
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, "job-7", resp.ID)
	require.Len(t, resp.Pages, 1)
}

func TestPoller_Wait_UntrackedDeployment(t *testing.T) {
	client := &statusClient{status: func(string) (*CrawlResponse, error) {
		return &CrawlResponse{Pages: []PageData{{URL: "https://acme.com/about"}}}, nil
	}}
	resp, err := fastPoller().Wait(context.Background(), client, "job-1")
	require.NoError(t, err)
	assert.Len(t, resp.Pages, 1)
}

func TestPoller_Wait_Terminal(t *testing.T) {
	for _, st := range []string{StatusFailed, StatusCancelled} {
		t.Run(st, func(t *testing.T) {
			client := &statusClient{status: func(string) (*CrawlResponse, error) {
				return &CrawlResponse{Status: st}, nil
			}}
			_, err := fastPoller().Wait(context.Background(), client, "job-2")
			require.Error(t, err)
			assert.Contains(t, err.Error(), "crawl job-2 "+st)
		})
	}
}

func TestPoller_Wait_StatusError(t *testing.T) {
	client := &statusClient{status: func(string) (*CrawlResponse, error) {
		return nil, errors.New("connection reset by peer")
	}}
	_, err := fastPoller().Wait(context.Background(), client, "job-3")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status of crawl job-3")
}

func TestPoller_Wait_Timeout(t *testing.T) {
	client := &statusClient{status: func(string) (*CrawlResponse, error) {
		return &CrawlResponse{Status: "scraping"}, nil
	}}
	p := Poller{Interval: 5 * time.Millisecond, Timeout: 30 * time.Millisecond}
	_, err := p.Wait(context.Background(), client, "job-4")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out")
}

func TestDefaultPoller(t *testing.T) {
	p := DefaultPoller()
	assert.Equal(t, time.Second, p.Interval)
	assert.Equal(t, 8*time.Second, p.MaxInterval)
	assert.Equal(t, 2*time.Minute, p.Timeout)
}
