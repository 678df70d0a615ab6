package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/knowledge-engine/docsearch/internal/config"
	"github.com/knowledge-engine/docsearch/internal/corpus"
	"github.com/knowledge-engine/docsearch/internal/fetcher"
	"github.com/knowledge-engine/docsearch/internal/politeness"
	"github.com/knowledge-engine/docsearch/internal/search"
	"github.com/knowledge-engine/docsearch/internal/storage"
)

// ErrAllSourcesFailed is returned by Harvest when no source produced documents
var ErrAllSourcesFailed = errors.New("every source failed")

// Source produces documents for the collection
type Source interface {
	Name() string
	Fetch(ctx context.Context) ([]corpus.Document, error)
}

// Engine orchestrates harvesting, persistence and search. Searches run
// against an immutable index that is swapped atomically on every rebuild.
type Engine struct {
	Config     *config.Config
	Logger     *logrus.Entry
	Storage    storage.CorpusStorage
	Politeness *politeness.PolitenessManager
	Fetcher    *fetcher.Fetcher
	Sources    []Source

	indexOpts search.Options

	harvestMu sync.Mutex
	mu        sync.Mutex
	corpus    *corpus.Corpus
	state     atomic.Pointer[indexState]

	statsMu sync.RWMutex
	stats   EngineStats
}

type indexState struct {
	snap  *corpus.Snapshot
	index *search.Index
}

// EngineStats summarizes the engine's activity
type EngineStats struct {
	Corpus      string                 `json:"corpus"`
	Documents   int                    `json:"documents"`
	Terms       int                    `json:"terms"`
	Authors     int                    `json:"authors"`
	UseTFIDF    bool                   `json:"use_tfidf"`
	IDFMode     string                 `json:"idf_mode"`
	Harvests    int64                  `json:"harvests"`
	LastHarvest time.Time              `json:"last_harvest,omitempty"`
	LastBuild   time.Time              `json:"last_build,omitempty"`
	LastError   string                 `json:"last_error,omitempty"`
	Sources     map[string]SourceStats `json:"sources"`
	StartTime   time.Time              `json:"start_time"`
}

// SourceStats records the outcome of the last fetch from one source
type SourceStats struct {
	Fetched   int    `json:"fetched"`
	Added     int    `json:"added"`
	Dropped   int    `json:"dropped"`
	LastError string `json:"last_error,omitempty"`
}

// NewEngine wires the politeness manager, fetcher and configured sources.
// The engine starts with an empty collection; call Bootstrap to load or
// harvest one.
func NewEngine(cfg *config.Config, logger *logrus.Entry, store storage.CorpusStorage) (*Engine, error) {
	if logger == nil {
		logger = logrus.WithField("component", "engine")
	}

	idf, err := search.ParseIDFMode(cfg.Index.IDFMode)
	if err != nil {
		return nil, err
	}

	pm := politeness.NewPolitenessManager(cfg.Politeness, logger.WithField("component", "politeness_manager"))
	ft := fetcher.NewFetcher(fetcher.Options{
		Timeout:       cfg.Politeness.RequestTimeout,
		UserAgent:     cfg.Politeness.UserAgent,
		RedditBaseURL: cfg.Sources.Reddit.BaseURL,
		ArxivBaseURL:  cfg.Sources.Arxiv.BaseURL,
		Gate:          pm,
		Logger:        logger.WithField("component", "fetcher"),
	})

	var sources []Source
	if cfg.Sources.Reddit.Enabled {
		sources = append(sources, &fetcher.RedditSource{
			Fetcher:   ft,
			Subreddit: cfg.Sources.Reddit.Subreddit,
			Limit:     cfg.Sources.Reddit.Limit,
		})
	}
	if cfg.Sources.Arxiv.Enabled {
		sources = append(sources, &fetcher.ArxivSource{
			Fetcher:    ft,
			Query:      cfg.Sources.Arxiv.Query,
			Start:      cfg.Sources.Arxiv.Start,
			MaxResults: cfg.Sources.Arxiv.MaxResults,
		})
	}

	e := &Engine{
		Config:     cfg,
		Logger:     logger,
		Storage:    store,
		Politeness: pm,
		Fetcher:    ft,
		Sources:    sources,
		indexOpts: search.Options{
			UseTFIDF: cfg.Index.UseTFIDF,
			IDF:      idf,
			Workers:  cfg.Index.Workers,
			Logger:   logger.WithField("component", "search_index"),
		},
		corpus: corpus.New(cfg.Corpus.Name),
		stats: EngineStats{
			Corpus:    cfg.Corpus.Name,
			UseTFIDF:  cfg.Index.UseTFIDF,
			IDFMode:   idf.String(),
			Sources:   make(map[string]SourceStats),
			StartTime: time.Now(),
		},
	}

	if err := e.Rebuild(); err != nil {
		return nil, err
	}
	return e, nil
}

// Bootstrap loads the stored collection when one exists and harvests a new
// one otherwise. Loading waits for a harvest in progress.
func (e *Engine) Bootstrap(ctx context.Context) error {
	loaded, err := e.loadStored()
	if err != nil || loaded {
		return err
	}

	e.Logger.Info("No stored corpus, harvesting")
	_, err = e.Harvest(ctx)
	return err
}

func (e *Engine) loadStored() (bool, error) {
	if e.Storage == nil {
		return false, nil
	}

	e.harvestMu.Lock()
	defer e.harvestMu.Unlock()

	exists, err := e.Storage.Exists()
	if err != nil || !exists {
		return false, err
	}
	snap, err := e.Storage.Load()
	if err != nil {
		return false, fmt.Errorf("failed to load corpus: %w", err)
	}
	e.replaceCorpus(snap)
	e.Logger.WithField("documents", snap.Len()).Info("Corpus loaded from storage, skipping harvest")
	return true, e.Rebuild()
}

func (e *Engine) replaceCorpus(snap *corpus.Snapshot) {
	name := snap.Name()
	if name == "" {
		name = e.Config.Corpus.Name
	}

	c := corpus.New(name)
	for _, doc := range snap.Documents() {
		c.Add(doc)
	}

	e.mu.Lock()
	e.corpus = c
	e.mu.Unlock()

	e.statsMu.Lock()
	e.stats.Corpus = name
	e.statsMu.Unlock()
}

// HarvestReport describes one harvest
type HarvestReport struct {
	Sources map[string]SourceStats `json:"sources"`
	Added   int                    `json:"added"`
	Total   int                    `json:"total"`
}

// Harvest fetches every source concurrently, adds the documents that pass
// the minimum text length and are not already present, saves the
// collection and rebuilds the index. A failing source is logged and
// skipped.
func (e *Engine) Harvest(ctx context.Context) (*HarvestReport, error) {
	e.harvestMu.Lock()
	defer e.harvestMu.Unlock()

	fetched := make([][]corpus.Document, len(e.Sources))
	errs := make([]error, len(e.Sources))

	var g errgroup.Group
	for i, src := range e.Sources {
		g.Go(func() error {
			docs, err := src.Fetch(ctx)
			if err != nil {
				errs[i] = fmt.Errorf("%s: %w", src.Name(), err)
				e.Logger.WithError(err).WithField("source", src.Name()).Warn("Source failed, continuing without it")
				return nil
			}
			fetched[i] = docs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	report := &HarvestReport{Sources: make(map[string]SourceStats, len(e.Sources))}
	failures := 0

	e.mu.Lock()
	seen := make(urlSet)
	for _, doc := range e.corpus.Snapshot().Documents() {
		seen.add(doc.URL)
	}
	for i, src := range e.Sources {
		st := SourceStats{Fetched: len(fetched[i])}
		if errs[i] != nil {
			st.LastError = errs[i].Error()
			failures++
		}
		for _, doc := range fetched[i] {
			if !e.keep(doc) || seen.has(doc.URL) {
				st.Dropped++
				continue
			}
			seen.add(doc.URL)
			doc.ID = 0
			e.corpus.Add(doc)
			st.Added++
		}
		report.Sources[src.Name()] = st
		report.Added += st.Added
	}
	report.Total = e.corpus.Len()
	snap := e.corpus.Snapshot()
	e.mu.Unlock()

	e.statsMu.Lock()
	e.stats.Harvests++
	e.stats.LastHarvest = time.Now()
	for name, st := range report.Sources {
		e.stats.Sources[name] = st
	}
	e.statsMu.Unlock()

	e.Logger.WithFields(logrus.Fields{
		"added": report.Added,
		"total": report.Total,
	}).Info("Harvest completed")

	if len(e.Sources) > 0 && failures == len(e.Sources) {
		err := fmt.Errorf("%w: %w", ErrAllSourcesFailed, errors.Join(errs...))
		e.setLastError(err)
		return report, err
	}

	if e.Storage != nil {
		if err := e.Storage.Save(snap); err != nil {
			e.setLastError(err)
			return report, fmt.Errorf("failed to save corpus: %w", err)
		}
	}

	if err := e.Rebuild(); err != nil {
		return report, err
	}
	return report, nil
}

// keep reports whether a document is long enough to be indexed
func (e *Engine) keep(doc corpus.Document) bool {
	return utf8.RuneCountInString(strings.TrimSpace(doc.Text)) >= e.Config.Corpus.MinTextLength
}

// Rebuild indexes the current collection and publishes the new index.
// Searches in flight keep using the index they started with.
func (e *Engine) Rebuild() error {
	e.mu.Lock()
	snap := e.corpus.Snapshot()
	authors := len(e.corpus.Authors())
	e.mu.Unlock()

	ix, err := search.NewIndex(snap, e.indexOpts)
	if err != nil {
		e.setLastError(err)
		return fmt.Errorf("failed to rebuild index: %w", err)
	}

	now := time.Now()
	e.state.Store(&indexState{snap: snap, index: ix})

	e.statsMu.Lock()
	e.stats.Documents = ix.Len()
	e.stats.Terms = ix.Vocabulary().Len()
	e.stats.Authors = authors
	e.stats.LastBuild = now
	e.statsMu.Unlock()

	e.Logger.WithFields(logrus.Fields{
		"documents": ix.Len(),
		"terms":     ix.Vocabulary().Len(),
	}).Info("Index published")
	return nil
}

func (e *Engine) setLastError(err error) {
	e.statsMu.Lock()
	e.stats.LastError = err.Error()
	e.statsMu.Unlock()
}

// Search ranks the collection against a free-text query. A snippet width of
// zero or less disables snippets.
func (e *Engine) Search(query string, maxResults, snippetWidth int) []search.SearchResult {
	return e.state.Load().index.Search(query, maxResults, snippetOpts(snippetWidth)...)
}

// SearchKeywords ranks the collection against a keyword list
func (e *Engine) SearchKeywords(keywords []string, maxResults, snippetWidth int) []search.SearchResult {
	return e.state.Load().index.SearchKeywords(keywords, maxResults, snippetOpts(snippetWidth)...)
}

func snippetOpts(width int) []search.SearchOption {
	if width <= 0 {
		return nil
	}
	return []search.SearchOption{search.WithSnippets(width)}
}

// Snapshot returns the collection the published index was built from
func (e *Engine) Snapshot() *corpus.Snapshot {
	return e.state.Load().snap
}

func (e *Engine) Document(id int) (corpus.Document, bool) {
	return e.Snapshot().Document(id)
}

func (e *Engine) Authors() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.corpus.Authors()
}

func (e *Engine) AuthorStats(name string, recent int) (corpus.AuthorStats, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.corpus.AuthorStats(name, recent)
}

func (e *Engine) Concordance(motif string, width int, opts corpus.ConcordanceOptions) ([]corpus.Match, error) {
	return e.Snapshot().Concordance(motif, width, opts)
}

func (e *Engine) TermStats(limit int) []search.TermStat {
	return e.state.Load().index.TermStats(limit)
}

// Stats returns a copy of the current statistics
func (e *Engine) Stats() EngineStats {
	e.statsMu.RLock()
	defer e.statsMu.RUnlock()

	stats := e.stats
	stats.Sources = make(map[string]SourceStats, len(e.stats.Sources))
	for name, st := range e.stats.Sources {
		stats.Sources[name] = st
	}
	return stats
}
