package storage_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knowledge-engine/docsearch/internal/corpus"
	"github.com/knowledge-engine/docsearch/internal/storage"
)

func init() {
	logrus.SetLevel(logrus.WarnLevel)
}

func sampleSnapshot() *corpus.Snapshot {
	when := time.Date(2024, 3, 1, 10, 20, 30, 0, time.UTC)

	reddit := corpus.NewDocument("reddit", "Game night", "hooper", when, "https://reddit.com/1",
		"Great game\twith a tab and\na newline", corpus.Extra{Comments: 7})
	reddit.ID = 1
	arxiv := corpus.NewDocument("arxiv", "Shot \"selection\"", "Ada", when.Add(-24*time.Hour), "http://arxiv.org/abs/1",
		"We model shots.", corpus.Extra{CoAuthors: []string{"Ada", "Alan"}})
	arxiv.ID = 2
	plain := corpus.NewDocument("blog", "Undated", "alice|bob", time.Time{}, "", "No date on this one", corpus.Extra{})
	plain.ID = 5

	return corpus.NewSnapshot("hoops", []corpus.Document{reddit, arxiv, plain})
}

func TestFileStorage_JSONRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "corpus.json")
	fs, err := storage.NewFileStorage(path, nil)
	require.NoError(t, err)
	defer fs.Close()
	assert.Equal(t, storage.FormatJSON, fs.Format())

	exists, err := fs.Exists()
	require.NoError(t, err)
	assert.False(t, exists)

	want := sampleSnapshot()
	require.NoError(t, fs.Save(want))

	exists, err = fs.Exists()
	require.NoError(t, err)
	assert.True(t, exists)

	got, err := fs.Load()
	require.NoError(t, err)
	assert.Equal(t, "hoops", got.Name())
	assert.Equal(t, want.Documents(), got.Documents())
}

func TestFileStorage_TSVRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corpus.tsv")
	fs, err := storage.NewFileStorage(path, nil)
	require.NoError(t, err)
	assert.Equal(t, storage.FormatTSV, fs.Format())

	want := sampleSnapshot()
	require.NoError(t, fs.Save(want))

	got, err := fs.Load()
	require.NoError(t, err)
	assert.Equal(t, "corpus", got.Name())
	assert.Equal(t, want.Documents(), got.Documents())
}

func TestFileStorage_LoadMissing(t *testing.T) {
	fs, err := storage.NewFileStorage(filepath.Join(t.TempDir(), "absent.json"), nil)
	require.NoError(t, err)

	_, err = fs.Load()
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestFileStorage_LoadBareArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legacy.json")
	data := `[{"id": 3, "title": "t", "text": "hello there", "source": "reddit", "authors": "x", "url": "", "created": "2024-03-01 10:20:30"}]`
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	fs, err := storage.NewFileStorage(path, nil)
	require.NoError(t, err)
	snap, err := fs.Load()
	require.NoError(t, err)
	require.Equal(t, 1, snap.Len())

	doc, ok := snap.Document(3)
	require.True(t, ok)
	assert.Equal(t, corpus.KindReddit, doc.Kind)
	assert.True(t, time.Date(2024, 3, 1, 10, 20, 30, 0, time.UTC).Equal(doc.Date))
}

func TestFileStorage_TSVWithoutIDs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "export.tsv")
	data := "title\ttext\tsource\tauthors\turl\tcreated\n" +
		"a\tfirst text\tarxiv\tAda|Alan\t\t\n" +
		"b\tsecond text\treddit\tbob\t\t\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	fs, err := storage.NewFileStorage(path, nil)
	require.NoError(t, err)
	snap, err := fs.Load()
	require.NoError(t, err)
	require.Equal(t, 2, snap.Len())

	first, ok := snap.Document(1)
	require.True(t, ok)
	assert.Equal(t, "Ada", first.Author)
	assert.Equal(t, []string{"Ada", "Alan"}, first.Extra.CoAuthors)

	second, ok := snap.Document(2)
	require.True(t, ok)
	assert.Equal(t, "bob", second.Author)
}

func TestFileStorage_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corpus.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	fs, err := storage.NewFileStorage(path, nil)
	require.NoError(t, err)
	_, err = fs.Load()
	assert.Error(t, err)
	assert.NotErrorIs(t, err, storage.ErrNotFound)
}

func TestFileStorage_SaveNil(t *testing.T) {
	fs, err := storage.NewFileStorage(filepath.Join(t.TempDir(), "c.json"), nil)
	require.NoError(t, err)
	assert.Error(t, fs.Save(nil))
}
