package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/knowledge-engine/docsearch/internal/corpus"
)

type redditListing struct {
	Data struct {
		Children []struct {
			Data redditPost `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type redditPost struct {
	Title        string  `json:"title"`
	Author       string  `json:"author"`
	Selftext     string  `json:"selftext"`
	SelftextHTML string  `json:"selftext_html"`
	URL          string  `json:"url"`
	Permalink    string  `json:"permalink"`
	NumComments  int     `json:"num_comments"`
	CreatedUTC   float64 `json:"created_utc"`
}

// FetchReddit returns the hot posts of a subreddit as documents
func (f *Fetcher) FetchReddit(ctx context.Context, subreddit string, limit int) ([]corpus.Document, error) {
	subreddit = strings.TrimSpace(strings.TrimPrefix(subreddit, "r/"))
	if subreddit == "" {
		return nil, fmt.Errorf("subreddit is required")
	}

	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	listingURL := fmt.Sprintf("%s/r/%s/hot.json", f.redditBaseURL, url.PathEscape(subreddit))
	if len(q) > 0 {
		listingURL += "?" + q.Encode()
	}

	body, err := f.get(ctx, listingURL)
	if err != nil {
		return nil, fmt.Errorf("reddit: %w", err)
	}

	var listing redditListing
	if err := json.Unmarshal(body, &listing); err != nil {
		return nil, fmt.Errorf("reddit: failed to decode listing: %w", err)
	}

	docs := make([]corpus.Document, 0, len(listing.Data.Children))
	for _, child := range listing.Data.Children {
		if limit > 0 && len(docs) >= limit {
			break
		}
		docs = append(docs, f.redditDocument(child.Data))
	}

	f.logger.WithFields(logrus.Fields{
		"subreddit": subreddit,
		"documents": len(docs),
	}).Info("Fetched reddit posts")
	return docs, nil
}

func (f *Fetcher) redditDocument(post redditPost) corpus.Document {
	text := cleanText(post.Selftext)
	if text == "" && post.SelftextHTML != "" {
		extracted, err := extractText(strings.NewReader(html.UnescapeString(post.SelftextHTML)))
		if err != nil {
			f.logger.WithError(err).WithField("title", post.Title).Debug("Failed to extract post body")
		}
		text = extracted
	}

	author := post.Author
	if author == "" {
		author = "unknown"
	}

	link := post.URL
	if link == "" && post.Permalink != "" {
		link = f.redditBaseURL + post.Permalink
	}

	var created time.Time
	if post.CreatedUTC > 0 {
		sec := int64(post.CreatedUTC)
		created = time.Unix(sec, 0).UTC()
	}

	return corpus.NewDocument("reddit", cleanText(post.Title), author, created, link, text,
		corpus.Extra{Comments: post.NumComments})
}
