package politeness

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/temoto/robotstxt"
	"golang.org/x/time/rate"

	"github.com/knowledge-engine/docsearch/internal/config"
)

// ErrDisallowed is returned when robots.txt forbids a URL for our user agent
var ErrDisallowed = errors.New("URL blocked by robots.txt")

// PolitenessManager gates outgoing requests: robots.txt first, then a
// per-host rate limit
type PolitenessManager struct {
	config      config.PolitenessConfig
	logger      *logrus.Entry
	client      *http.Client
	limiters    map[string]*rate.Limiter
	robotsCache map[string]*RobotsEntry
	mu          sync.Mutex

	stats Statistics
}

// RobotsEntry caches robots.txt data
type RobotsEntry struct {
	robots    *robotstxt.RobotsData
	fetchTime time.Time
}

// Statistics holds politeness manager statistics
type Statistics struct {
	TotalRequests    int64                        `json:"total_requests"`
	RejectedRequests int64                        `json:"rejected_requests"`
	RobotsFetches    int64                        `json:"robots_fetches"`
	DomainStats      map[string]*DomainStatistics `json:"domain_stats"`
}

// DomainStatistics holds per-domain statistics
type DomainStatistics struct {
	Domain          string    `json:"domain"`
	TotalRequests   int64     `json:"total_requests"`
	LastRequestTime time.Time `json:"last_request_time"`
}

// NewPolitenessManager creates a new politeness manager
func NewPolitenessManager(cfg config.PolitenessConfig, logger *logrus.Entry) *PolitenessManager {
	if logger == nil {
		logger = logrus.WithField("component", "politeness_manager")
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &PolitenessManager{
		config:      cfg,
		logger:      logger,
		client:      &http.Client{Timeout: timeout},
		limiters:    make(map[string]*rate.Limiter),
		robotsCache: make(map[string]*RobotsEntry),
		stats: Statistics{
			DomainStats: make(map[string]*DomainStatistics),
		},
	}
}

// Wait blocks until a request to rawURL is allowed. It returns ErrDisallowed
// when robots.txt forbids the URL and the context error when ctx ends first.
func (pm *PolitenessManager) Wait(ctx context.Context, rawURL string) error {
	parsedURL, err := parseHTTPURL(rawURL)
	if err != nil {
		return err
	}

	allowed, err := pm.IsURLAllowed(ctx, rawURL)
	if err != nil {
		return err
	}
	if !allowed {
		pm.logger.WithField("url", rawURL).Debug("URL blocked by robots.txt")
		pm.mu.Lock()
		pm.stats.RejectedRequests++
		pm.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrDisallowed, rawURL)
	}

	limiter := pm.limiter(parsedURL.Host)
	if limiter.Tokens() < 1 {
		pm.logger.WithField("domain", parsedURL.Host).Debug("Waiting for politeness delay")
	}
	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("politeness wait for %s: %w", parsedURL.Host, err)
	}

	pm.mu.Lock()
	pm.stats.TotalRequests++
	ds := pm.stats.DomainStats[parsedURL.Host]
	if ds == nil {
		ds = &DomainStatistics{Domain: parsedURL.Host}
		pm.stats.DomainStats[parsedURL.Host] = ds
	}
	ds.TotalRequests++
	ds.LastRequestTime = time.Now()
	pm.mu.Unlock()

	return nil
}

// IsURLAllowed checks if URL is allowed according to robots.txt
func (pm *PolitenessManager) IsURLAllowed(ctx context.Context, rawURL string) (bool, error) {
	parsedURL, err := parseHTTPURL(rawURL)
	if err != nil {
		return false, err
	}
	if !pm.config.EnableRobotsCheck {
		return true, nil
	}

	robotsData, err := pm.getRobotsData(ctx, parsedURL)
	if err != nil {
		pm.logger.WithError(err).WithField("domain", parsedURL.Host).Warn("Failed to get robots.txt, allowing request")
		return true, nil
	}
	if robotsData == nil {
		return true, nil
	}

	group := robotsData.FindGroup(pm.config.UserAgent)
	if group == nil {
		return true, nil
	}

	path := parsedURL.EscapedPath()
	if path == "" {
		path = "/"
	}
	return group.Test(path), nil
}

// GetStatistics returns a copy of the current statistics
func (pm *PolitenessManager) GetStatistics() Statistics {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	stats := Statistics{
		TotalRequests:    pm.stats.TotalRequests,
		RejectedRequests: pm.stats.RejectedRequests,
		RobotsFetches:    pm.stats.RobotsFetches,
		DomainStats:      make(map[string]*DomainStatistics, len(pm.stats.DomainStats)),
	}
	for domain, ds := range pm.stats.DomainStats {
		copied := *ds
		stats.DomainStats[domain] = &copied
	}
	return stats
}

func (pm *PolitenessManager) limiter(domain string) *rate.Limiter {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	if l, ok := pm.limiters[domain]; ok {
		return l
	}

	limit := rate.Inf
	if pm.config.MinDelay > 0 {
		limit = rate.Every(pm.config.MinDelay)
	}
	burst := pm.config.Burst
	if burst < 1 {
		burst = 1
	}
	l := rate.NewLimiter(limit, burst)
	pm.limiters[domain] = l
	pm.logger.WithField("domain", domain).Debug("Created new domain limiter")
	return l
}

// getRobotsData fetches and caches robots.txt data. A missing robots.txt is
// cached as nil.
func (pm *PolitenessManager) getRobotsData(ctx context.Context, target *url.URL) (*robotstxt.RobotsData, error) {
	domain := target.Host

	pm.mu.Lock()
	entry, exists := pm.robotsCache[domain]
	pm.mu.Unlock()

	if exists && time.Since(entry.fetchTime) < pm.config.RobotsCacheDuration {
		return entry.robots, nil
	}

	robotsURL := (&url.URL{Scheme: target.Scheme, Host: domain, Path: "/robots.txt"}).String()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create robots.txt request: %w", err)
	}
	req.Header.Set("User-Agent", pm.config.UserAgent)

	resp, err := pm.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch robots.txt: %w", err)
	}
	defer resp.Body.Close()

	var robotsData *robotstxt.RobotsData
	if resp.StatusCode != http.StatusNotFound {
		robotsData, err = robotstxt.FromResponse(resp)
		if err != nil {
			return nil, fmt.Errorf("failed to parse robots.txt: %w", err)
		}
	}

	pm.mu.Lock()
	pm.robotsCache[domain] = &RobotsEntry{robots: robotsData, fetchTime: time.Now()}
	pm.stats.RobotsFetches++
	pm.mu.Unlock()

	return robotsData, nil
}

func parseHTTPURL(rawURL string) (*url.URL, error) {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if parsedURL.Host == "" {
		return nil, fmt.Errorf("URL must have a host: %s", rawURL)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return nil, fmt.Errorf("only HTTP/HTTPS URLs are supported: %s", rawURL)
	}
	return parsedURL, nil
}
