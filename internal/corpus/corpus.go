package corpus

import (
	"errors"
	"fmt"
	"sort"
)

// ErrUnknownAuthor is returned when an author lookup finds nothing
var ErrUnknownAuthor = errors.New("unknown author")

// Author tracks the documents attributed to one name
type Author struct {
	Name       string
	Production map[int]Document
}

// NDoc returns the number of documents attributed to the author
func (a *Author) NDoc() int {
	return len(a.Production)
}

func (a *Author) add(doc Document) {
	a.Production[doc.ID] = doc
}

// AuthorStats summarizes an author's production
type AuthorStats struct {
	Name          string     `json:"name"`
	Documents     int        `json:"documents"`
	AverageLength float64    `json:"average_length"`
	Recent        []Document `json:"recent"`
}

// Corpus is a mutable collection of documents keyed by id.
// Search indexes never read a Corpus directly; they consume a Snapshot.
type Corpus struct {
	Name    string
	docs    map[int]Document
	authors map[string]*Author
}

// New creates an empty corpus
func New(name string) *Corpus {
	return &Corpus{
		Name:    name,
		docs:    make(map[int]Document),
		authors: make(map[string]*Author),
	}
}

// Add stores a document and returns its id. A zero or negative id is
// replaced with one greater than the current maximum; an existing id is
// overwritten.
func (c *Corpus) Add(doc Document) int {
	if doc.ID <= 0 {
		doc.ID = c.nextID()
	}
	if old, exists := c.docs[doc.ID]; exists {
		c.unlinkAuthors(old)
	}
	c.docs[doc.ID] = doc

	for _, name := range doc.Authors() {
		author, ok := c.authors[name]
		if !ok {
			author = &Author{Name: name, Production: make(map[int]Document)}
			c.authors[name] = author
		}
		author.add(doc)
	}
	return doc.ID
}

func (c *Corpus) unlinkAuthors(doc Document) {
	for _, name := range doc.Authors() {
		author, ok := c.authors[name]
		if !ok {
			continue
		}
		delete(author.Production, doc.ID)
		if author.NDoc() == 0 {
			delete(c.authors, name)
		}
	}
}

func (c *Corpus) nextID() int {
	max := 0
	for id := range c.docs {
		if id > max {
			max = id
		}
	}
	return max + 1
}

// Len returns the number of documents
func (c *Corpus) Len() int {
	return len(c.docs)
}

// Document looks a document up by id
func (c *Corpus) Document(id int) (Document, bool) {
	doc, ok := c.docs[id]
	return doc, ok
}

// Authors returns all author names in lexical order
func (c *Corpus) Authors() []string {
	names := make([]string, 0, len(c.authors))
	for name := range c.authors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Author returns the author record for name
func (c *Corpus) Author(name string) (*Author, bool) {
	a, ok := c.authors[name]
	return a, ok
}

// AuthorStats reports document count, mean text length and the most
// recent documents of an author. Documents without a date sort last.
func (c *Corpus) AuthorStats(name string, recent int) (AuthorStats, error) {
	author, ok := c.authors[name]
	if !ok {
		return AuthorStats{}, fmt.Errorf("%w: %s", ErrUnknownAuthor, name)
	}

	docs := make([]Document, 0, author.NDoc())
	total := 0
	for _, doc := range author.Production {
		docs = append(docs, doc)
		total += len([]rune(doc.Text))
	}
	sortByDateDesc(docs)
	if recent >= 0 && len(docs) > recent {
		docs = docs[:recent]
	}

	stats := AuthorStats{
		Name:      author.Name,
		Documents: author.NDoc(),
		Recent:    docs,
	}
	if author.NDoc() > 0 {
		stats.AverageLength = float64(total) / float64(author.NDoc())
	}
	return stats, nil
}

// Snapshot freezes the current contents into an immutable view ordered by
// ascending id. Later changes to the corpus do not affect the snapshot.
func (c *Corpus) Snapshot() *Snapshot {
	docs := make([]Document, 0, len(c.docs))
	for _, doc := range c.docs {
		docs = append(docs, doc)
	}
	return NewSnapshot(c.Name, docs)
}

func sortByDateDesc(docs []Document) {
	sort.SliceStable(docs, func(i, j int) bool {
		di, dj := docs[i].Date, docs[j].Date
		if di.Equal(dj) {
			return docs[i].ID < docs[j].ID
		}
		return di.After(dj)
	})
}
