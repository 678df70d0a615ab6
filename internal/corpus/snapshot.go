package corpus

import (
	"sort"
	"strings"
)

// Snapshot is an immutable, id-ordered view of a collection. It is the
// only input a search index is built from.
type Snapshot struct {
	name string
	docs []Document
	byID map[int]int
}

// NewSnapshot copies docs and orders them by ascending id. When ids
// repeat, the last occurrence wins.
func NewSnapshot(name string, docs []Document) *Snapshot {
	byID := make(map[int]int, len(docs))
	unique := make([]Document, 0, len(docs))
	for _, doc := range docs {
		doc.Extra.CoAuthors = append([]string(nil), doc.Extra.CoAuthors...)
		if i, ok := byID[doc.ID]; ok {
			unique[i] = doc
			continue
		}
		byID[doc.ID] = len(unique)
		unique = append(unique, doc)
	}

	sort.Slice(unique, func(i, j int) bool {
		return unique[i].ID < unique[j].ID
	})
	for i, doc := range unique {
		byID[doc.ID] = i
	}

	return &Snapshot{name: name, docs: unique, byID: byID}
}

// Name returns the name of the corpus the snapshot was taken from
func (s *Snapshot) Name() string {
	return s.name
}

// Len returns the number of documents
func (s *Snapshot) Len() int {
	return len(s.docs)
}

// Documents returns a copy of the documents in ascending id order
func (s *Snapshot) Documents() []Document {
	out := make([]Document, len(s.docs))
	copy(out, s.docs)
	return out
}

// Document looks a document up by id
func (s *Snapshot) Document(id int) (Document, bool) {
	i, ok := s.byID[id]
	if !ok {
		return Document{}, false
	}
	return s.docs[i], true
}

// SortedByDate returns up to n documents, most recent first.
// A negative n returns all of them.
func (s *Snapshot) SortedByDate(n int) []Document {
	docs := s.Documents()
	sortByDateDesc(docs)
	return head(docs, n)
}

// SortedByTitle returns up to n documents ordered by case-folded title
func (s *Snapshot) SortedByTitle(n int) []Document {
	docs := s.Documents()
	sort.SliceStable(docs, func(i, j int) bool {
		return strings.ToLower(docs[i].Title) < strings.ToLower(docs[j].Title)
	})
	return head(docs, n)
}

// BySource groups documents by kind, each group in id order
func (s *Snapshot) BySource() map[Kind][]Document {
	groups := make(map[Kind][]Document)
	for _, doc := range s.docs {
		groups[doc.Kind] = append(groups[doc.Kind], doc)
	}
	return groups
}

// TextStat holds simple size figures for one document
type TextStat struct {
	ID        int `json:"id"`
	Words     int `json:"words"`
	Sentences int `json:"sentences"`
}

// TextStats counts whitespace-separated words and '.'-separated sentences
// per document.
func (s *Snapshot) TextStats() []TextStat {
	stats := make([]TextStat, len(s.docs))
	for i, doc := range s.docs {
		stats[i] = TextStat{
			ID:        doc.ID,
			Words:     len(strings.Fields(doc.Text)),
			Sentences: len(strings.Split(doc.Text, ".")),
		}
	}
	return stats
}

func head(docs []Document, n int) []Document {
	if n >= 0 && len(docs) > n {
		return docs[:n]
	}
	return docs
}
