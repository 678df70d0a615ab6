package fetcher

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/url"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/knowledge-engine/docsearch/internal/corpus"
)

type atomFeed struct {
	Entries []atomEntry `xml:"entry"`
}

type atomEntry struct {
	ID        string       `xml:"id"`
	Title     string       `xml:"title"`
	Summary   string       `xml:"summary"`
	Published string       `xml:"published"`
	Authors   []atomAuthor `xml:"author"`
}

type atomAuthor struct {
	Name string `xml:"name"`
}

// FetchArxiv runs a search against the arXiv query API
func (f *Fetcher) FetchArxiv(ctx context.Context, query string, start, maxResults int) ([]corpus.Document, error) {
	if query == "" {
		return nil, fmt.Errorf("arxiv query is required")
	}

	base, err := url.Parse(f.arxivBaseURL)
	if err != nil {
		return nil, fmt.Errorf("arxiv: invalid base URL: %w", err)
	}
	q := base.Query()
	q.Set("search_query", query)
	q.Set("start", strconv.Itoa(start))
	q.Set("max_results", strconv.Itoa(maxResults))
	base.RawQuery = q.Encode()

	body, err := f.get(ctx, base.String())
	if err != nil {
		return nil, fmt.Errorf("arxiv: %w", err)
	}

	var feed atomFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return nil, fmt.Errorf("arxiv: failed to decode feed: %w", err)
	}

	docs := make([]corpus.Document, 0, len(feed.Entries))
	for _, entry := range feed.Entries {
		docs = append(docs, f.arxivDocument(entry))
	}

	f.logger.WithFields(logrus.Fields{
		"query":     query,
		"documents": len(docs),
	}).Info("Fetched arxiv entries")
	return docs, nil
}

func (f *Fetcher) arxivDocument(entry atomEntry) corpus.Document {
	var coAuthors []string
	for _, a := range entry.Authors {
		if name := cleanText(a.Name); name != "" {
			coAuthors = append(coAuthors, name)
		}
	}
	author := "arxiv"
	if len(coAuthors) > 0 {
		author = coAuthors[0]
	}

	title := cleanText(entry.Title)
	if title == "" {
		title = "arXiv entry"
	}

	published, err := corpus.ParseDate(entry.Published)
	if err != nil && entry.Published != "" {
		f.logger.WithError(err).WithField("id", entry.ID).Debug("Unparseable publication date")
	}

	return corpus.NewDocument("arxiv", title, author, published, cleanText(entry.ID), cleanText(entry.Summary),
		corpus.Extra{CoAuthors: coAuthors})
}
