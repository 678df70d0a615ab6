package fetcher

import (
	"context"

	"github.com/knowledge-engine/docsearch/internal/corpus"
)

// RedditSource harvests the hot listing of one subreddit
type RedditSource struct {
	Fetcher   *Fetcher
	Subreddit string
	Limit     int
}

func (s *RedditSource) Name() string {
	return "reddit"
}

func (s *RedditSource) Fetch(ctx context.Context) ([]corpus.Document, error) {
	return s.Fetcher.FetchReddit(ctx, s.Subreddit, s.Limit)
}

// ArxivSource harvests one page of an arXiv search
type ArxivSource struct {
	Fetcher    *Fetcher
	Query      string
	Start      int
	MaxResults int
}

func (s *ArxivSource) Name() string {
	return "arxiv"
}

func (s *ArxivSource) Fetch(ctx context.Context) ([]corpus.Document, error) {
	return s.Fetcher.FetchArxiv(ctx, s.Query, s.Start, s.MaxResults)
}
