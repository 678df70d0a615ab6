package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/html"
)

const maxBodySize = 10 << 20

// ErrStatus is returned for any non-200 response
var ErrStatus = errors.New("unexpected status code")

// Gate is consulted before every outgoing request
type Gate interface {
	Wait(ctx context.Context, rawURL string) error
}

// Options configures a Fetcher
type Options struct {
	Timeout       time.Duration
	UserAgent     string
	RedditBaseURL string
	ArxivBaseURL  string
	Gate          Gate
	Logger        *logrus.Entry
}

// Fetcher downloads documents from the supported remote sources
type Fetcher struct {
	client        *http.Client
	gate          Gate
	userAgent     string
	redditBaseURL string
	arxivBaseURL  string
	logger        *logrus.Entry
}

func NewFetcher(opts Options) *Fetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "docsearch/1.0"
	}
	if opts.RedditBaseURL == "" {
		opts.RedditBaseURL = "https://www.reddit.com"
	}
	if opts.ArxivBaseURL == "" {
		opts.ArxivBaseURL = "http://export.arxiv.org/api/query"
	}
	if opts.Logger == nil {
		opts.Logger = logrus.WithField("component", "fetcher")
	}

	return &Fetcher{
		client: &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		gate:          opts.Gate,
		userAgent:     opts.UserAgent,
		redditBaseURL: strings.TrimRight(opts.RedditBaseURL, "/"),
		arxivBaseURL:  opts.ArxivBaseURL,
		logger:        opts.Logger,
	}
}

// get waits on the gate, then downloads rawURL and returns its body
func (f *Fetcher) get(ctx context.Context, rawURL string) ([]byte, error) {
	if f.gate != nil {
		if err := f.gate.Wait(ctx, rawURL); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("network error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %d from %s", ErrStatus, resp.StatusCode, rawURL)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}

	f.logger.WithFields(logrus.Fields{
		"url":   rawURL,
		"bytes": len(body),
	}).Debug("Fetched")
	return body, nil
}

// extractText returns the visible text of an HTML fragment
func extractText(body io.Reader) (string, error) {
	tokenizer := html.NewTokenizer(body)
	var textBuilder strings.Builder
	inScript := false
	inStyle := false

	for {
		tokenType := tokenizer.Next()

		switch tokenType {
		case html.ErrorToken:
			if tokenizer.Err() == io.EOF {
				return cleanText(textBuilder.String()), nil
			}
			return "", tokenizer.Err()

		case html.StartTagToken:
			switch tokenizer.Token().Data {
			case "script":
				inScript = true
			case "style":
				inStyle = true
			}

		case html.EndTagToken:
			switch tokenizer.Token().Data {
			case "script":
				inScript = false
			case "style":
				inStyle = false
			}

		case html.TextToken:
			if !inScript && !inStyle {
				text := strings.TrimSpace(tokenizer.Token().Data)
				if text != "" {
					textBuilder.WriteString(text + " ")
				}
			}
		}
	}
}

// cleanText collapses whitespace runs, newlines included
func cleanText(input string) string {
	return strings.Join(strings.Fields(input), " ")
}
