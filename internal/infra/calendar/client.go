// Package calendar fetches and parses users' iCalendar feeds.
//
// Requests are rate limited with a token bucket so a daily ingestion run over
// many users does not hammer a shared calendar host.
package calendar

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"quest_notifier/internal/domain/timetable"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const maxFeedBytes = 5 << 20

// Client implements timetable.Feed over HTTP.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	location   *time.Location
	logger     *logrus.Entry
}

// NewClient creates a feed client allowing requestsPerMinute fetches.
// Floating event times are read in location.
func NewClient(timeout time.Duration, requestsPerMinute int, location *time.Location, logger *logrus.Entry) *Client {
	rps := float64(requestsPerMinute) / 60.0
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
		location:   location,
		logger:     logger,
	}
}

// Events downloads the feed at url and returns its VEVENTs.
func (c *Client) Events(ctx context.Context, url string) ([]timetable.Event, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, normalizeURL(url), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "text/calendar")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch calendar: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		return nil, fmt.Errorf("calendar feed returned %d: %s", resp.StatusCode, string(body))
	}

	events, skipped, err := ParseEvents(io.LimitReader(resp.Body, maxFeedBytes), c.location)
	if err != nil {
		return nil, err
	}
	if skipped > 0 {
		c.logger.WithField("skipped", skipped).Debug("Ignored calendar events without a start time")
	}
	return events, nil
}

// normalizeURL maps the webcal scheme used by calendar apps onto https.
func normalizeURL(url string) string {
	if rest, ok := strings.CutPrefix(url, "webcal://"); ok {
		return "https://" + rest
	}
	return url
}
