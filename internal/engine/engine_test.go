package engine_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/knowledge-engine/docsearch/internal/config"
	"github.com/knowledge-engine/docsearch/internal/corpus"
	"github.com/knowledge-engine/docsearch/internal/engine"
)

// Mocks

type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) Exists() (bool, error) {
	args := m.Called()
	return args.Bool(0), args.Error(1)
}

func (m *MockStorage) Load() (*corpus.Snapshot, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*corpus.Snapshot), args.Error(1)
}

func (m *MockStorage) Save(snap *corpus.Snapshot) error {
	args := m.Called(snap)
	return args.Error(0)
}

func (m *MockStorage) Close() error {
	args := m.Called()
	return args.Error(0)
}

type MockSource struct {
	mock.Mock
	name string
}

func (m *MockSource) Name() string {
	return m.name
}

func (m *MockSource) Fetch(ctx context.Context) ([]corpus.Document, error) {
	args := m.Called(ctx)
	docs, _ := args.Get(0).([]corpus.Document)
	return docs, args.Error(1)
}

func newEngine(t *testing.T, store *MockStorage, sources ...engine.Source) *engine.Engine {
	t.Helper()
	cfg := config.Default()
	logger := logrus.New().WithField("test", "engine")
	logger.Logger.SetLevel(logrus.WarnLevel)

	eng, err := engine.NewEngine(cfg, logger, store)
	require.NoError(t, err)
	eng.Sources = sources
	return eng
}

func redditDocs() []corpus.Document {
	when := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return []corpus.Document{
		corpus.NewDocument("reddit", "Finals", "hooper", when, "https://reddit.com/a", "The finals game went to overtime last night", corpus.Extra{Comments: 4}),
		corpus.NewDocument("reddit", "Short", "hooper", when, "https://reddit.com/b", "too short", corpus.Extra{}),
		corpus.NewDocument("reddit", "Drills", "coach", when.Add(time.Hour), "https://reddit.com/c", "Zone defense drills for youth teams", corpus.Extra{}),
	}
}

func arxivDocs() []corpus.Document {
	when := time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC)
	return []corpus.Document{
		corpus.NewDocument("arxiv", "Shot charts", "Ada", when, "http://arxiv.org/abs/1", "We model shot selection from tracking data in the finals",
			corpus.Extra{CoAuthors: []string{"Ada", "Alan"}}),
	}
}

func TestNewEngine(t *testing.T) {
	cfg := config.Default()
	eng, err := engine.NewEngine(cfg, nil, new(MockStorage))
	require.NoError(t, err)

	assert.NotNil(t, eng.Politeness)
	assert.NotNil(t, eng.Fetcher)
	assert.Len(t, eng.Sources, 2)
	assert.Empty(t, eng.Search("basketball", 10, 0))
	assert.Equal(t, 0, eng.Stats().Documents)

	cfg.Index.IDFMode = "bogus"
	_, err = engine.NewEngine(cfg, nil, nil)
	assert.Error(t, err)
}

func TestEngine_BootstrapFromStorage(t *testing.T) {
	store := new(MockStorage)
	source := &MockSource{name: "reddit"}
	stored := corpus.NewSnapshot("stored", append(redditDocs()[:1], corpus.Document{ID: 2, Text: "another stored document about zone defense"}))

	store.On("Exists").Return(true, nil)
	store.On("Load").Return(stored, nil)

	eng := newEngine(t, store, source)
	require.NoError(t, eng.Bootstrap(context.Background()))

	results := eng.Search("zone defense", 10, 0)
	require.Len(t, results, 1)
	assert.Equal(t, 2, results[0].DocumentID)

	stats := eng.Stats()
	assert.Equal(t, "stored", stats.Corpus)
	assert.Equal(t, 2, stats.Documents)

	store.AssertExpectations(t)
	source.AssertNotCalled(t, "Fetch", mock.Anything)
}

func TestEngine_BootstrapWaitsForRunningHarvest(t *testing.T) {
	store := new(MockStorage)
	reddit := &MockSource{name: "reddit"}

	fetching := make(chan struct{})
	release := make(chan struct{})
	var (
		orderMu sync.Mutex
		order   []string
	)
	record := func(step string) {
		orderMu.Lock()
		defer orderMu.Unlock()
		order = append(order, step)
	}

	reddit.On("Fetch", mock.Anything).Once().Run(func(mock.Arguments) {
		close(fetching)
		<-release
	}).Return(redditDocs(), nil)
	store.On("Save", mock.Anything).Run(func(mock.Arguments) { record("save") }).Return(nil)
	store.On("Exists").Return(true, nil)
	store.On("Load").Run(func(mock.Arguments) { record("load") }).Return(corpus.NewSnapshot("stored", arxivDocs()), nil)

	eng := newEngine(t, store, reddit)

	harvested := make(chan error, 1)
	go func() {
		_, err := eng.Harvest(context.Background())
		harvested <- err
	}()
	<-fetching

	booted := make(chan error, 1)
	go func() {
		booted <- eng.Bootstrap(context.Background())
	}()

	select {
	case <-booted:
		t.Fatal("bootstrap replaced the collection while a harvest was running")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	require.NoError(t, <-harvested)
	require.NoError(t, <-booted)

	assert.Equal(t, []string{"save", "load"}, order)
	assert.Equal(t, "stored", eng.Stats().Corpus)
	assert.Equal(t, 1, eng.Snapshot().Len())
}

func TestEngine_BootstrapHarvestsWhenNothingStored(t *testing.T) {
	store := new(MockStorage)
	reddit := &MockSource{name: "reddit"}
	arxiv := &MockSource{name: "arxiv"}

	store.On("Exists").Return(false, nil)
	store.On("Save", mock.AnythingOfType("*corpus.Snapshot")).Return(nil)
	reddit.On("Fetch", mock.Anything).Return(redditDocs(), nil)
	arxiv.On("Fetch", mock.Anything).Return(arxivDocs(), nil)

	eng := newEngine(t, store, reddit, arxiv)
	require.NoError(t, eng.Bootstrap(context.Background()))

	snap := eng.Snapshot()
	assert.Equal(t, 3, snap.Len())

	stats := eng.Stats()
	assert.Equal(t, int64(1), stats.Harvests)
	assert.Equal(t, engine.SourceStats{Fetched: 3, Added: 2, Dropped: 1}, stats.Sources["reddit"])
	assert.Equal(t, engine.SourceStats{Fetched: 1, Added: 1}, stats.Sources["arxiv"])

	saved := store.Calls[len(store.Calls)-1].Arguments.Get(0).(*corpus.Snapshot)
	assert.Equal(t, 3, saved.Len())

	results := eng.Search("finals", 10, 30)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.Contains(t, r.Snippet, "finals")
	}

	store.AssertExpectations(t)
	reddit.AssertExpectations(t)
	arxiv.AssertExpectations(t)
}

func TestEngine_HarvestToleratesFailingSource(t *testing.T) {
	store := new(MockStorage)
	reddit := &MockSource{name: "reddit"}
	arxiv := &MockSource{name: "arxiv"}

	store.On("Save", mock.Anything).Return(nil)
	reddit.On("Fetch", mock.Anything).Return(nil, errors.New("rate limited"))
	arxiv.On("Fetch", mock.Anything).Return(arxivDocs(), nil)

	eng := newEngine(t, store, reddit, arxiv)
	report, err := eng.Harvest(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.Added)
	assert.Equal(t, 1, report.Total)
	assert.Contains(t, report.Sources["reddit"].LastError, "rate limited")
	assert.Equal(t, 1, eng.Snapshot().Len())
}

func TestEngine_HarvestAllSourcesFailing(t *testing.T) {
	store := new(MockStorage)
	reddit := &MockSource{name: "reddit"}
	reddit.On("Fetch", mock.Anything).Return(nil, errors.New("down"))

	eng := newEngine(t, store, reddit)
	_, err := eng.Harvest(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, engine.ErrAllSourcesFailed)
	assert.NotEmpty(t, eng.Stats().LastError)

	store.AssertNotCalled(t, "Save", mock.Anything)
}

func TestEngine_HarvestSaveFailure(t *testing.T) {
	store := new(MockStorage)
	arxiv := &MockSource{name: "arxiv"}
	store.On("Save", mock.Anything).Return(errors.New("disk full"))
	arxiv.On("Fetch", mock.Anything).Return(arxivDocs(), nil)

	eng := newEngine(t, store, arxiv)
	_, err := eng.Harvest(context.Background())
	assert.Error(t, err)
}

func TestEngine_HarvestSkipsKnownURLs(t *testing.T) {
	store := new(MockStorage)
	reddit := &MockSource{name: "reddit"}
	store.On("Save", mock.Anything).Return(nil)
	reddit.On("Fetch", mock.Anything).Return(redditDocs(), nil)

	eng := newEngine(t, store, reddit)
	_, err := eng.Harvest(context.Background())
	require.NoError(t, err)

	report, err := eng.Harvest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, report.Added)
	assert.Equal(t, 2, report.Total)
}

func TestEngine_CollectionQueries(t *testing.T) {
	store := new(MockStorage)
	reddit := &MockSource{name: "reddit"}
	arxiv := &MockSource{name: "arxiv"}
	store.On("Save", mock.Anything).Return(nil)
	reddit.On("Fetch", mock.Anything).Return(redditDocs(), nil)
	arxiv.On("Fetch", mock.Anything).Return(arxivDocs(), nil)

	eng := newEngine(t, store, reddit, arxiv)
	_, err := eng.Harvest(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"Ada", "Alan", "coach", "hooper"}, eng.Authors())

	stats, err := eng.AuthorStats("hooper", 5)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Documents)

	_, err = eng.AuthorStats("nobody", 5)
	assert.ErrorIs(t, err, corpus.ErrUnknownAuthor)

	matches, err := eng.Concordance("finals", 5, corpus.ConcordanceOptions{CaseInsensitive: true})
	require.NoError(t, err)
	assert.Len(t, matches, 2)

	// "finals" and "the" both occur twice; ties are lexical
	terms := eng.TermStats(2)
	require.Len(t, terms, 2)
	assert.Equal(t, "finals", terms[0].Term)
	assert.Equal(t, "the", terms[1].Term)
	assert.Equal(t, 2, terms[1].TotalCount)

	doc, ok := eng.Document(1)
	require.True(t, ok)
	assert.Equal(t, "Finals", doc.Title)

	keyword := eng.SearchKeywords([]string{"Zone", "defense"}, 10, 0)
	require.Len(t, keyword, 1)
	assert.Equal(t, "Drills", keyword[0].Title)
}

func TestEngine_ConcurrentSearchDuringRebuild(t *testing.T) {
	store := new(MockStorage)
	reddit := &MockSource{name: "reddit"}
	store.On("Save", mock.Anything).Return(nil)
	reddit.On("Fetch", mock.Anything).Return(redditDocs(), nil)

	eng := newEngine(t, store, reddit)
	_, err := eng.Harvest(context.Background())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				res := eng.Search("zone defense drills", 10, 0)
				assert.Len(t, res, 1)
			}
		}()
	}
	for i := 0; i < 5; i++ {
		require.NoError(t, eng.Rebuild())
	}
	wg.Wait()
}
