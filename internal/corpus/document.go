package corpus

import (
	"fmt"
	"strings"
	"time"
)

// Kind tags the source a document was harvested from
type Kind int

const (
	KindGeneric Kind = iota
	KindReddit
	KindArxiv
)

func (k Kind) String() string {
	switch k {
	case KindReddit:
		return "reddit"
	case KindArxiv:
		return "arxiv"
	default:
		return "generic"
	}
}

// ParseKind maps a source tag to a Kind. Unknown tags map to KindGeneric.
func ParseKind(source string) Kind {
	switch strings.ToLower(strings.TrimSpace(source)) {
	case "reddit":
		return KindReddit
	case "arxiv":
		return KindArxiv
	default:
		return KindGeneric
	}
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(text []byte) error {
	*k = ParseKind(string(text))
	return nil
}

// Extra carries the source-specific fields of a document
type Extra struct {
	Comments  int      `json:"comments,omitempty"`
	CoAuthors []string `json:"co_authors,omitempty"`
}

// Document is a single harvested text record
type Document struct {
	ID     int       `json:"id"`
	Title  string    `json:"title"`
	Author string    `json:"author"`
	Kind   Kind      `json:"source"`
	Date   time.Time `json:"created"`
	URL    string    `json:"url"`
	Text   string    `json:"text"`
	Extra  Extra     `json:"extra"`
}

// NewDocument builds a document whose kind is derived from the source tag.
// Extra fields that do not apply to the resulting kind are cleared.
func NewDocument(source, title, author string, date time.Time, url, text string, extra Extra) Document {
	doc := Document{
		Title:  title,
		Author: author,
		Kind:   ParseKind(source),
		Date:   date,
		URL:    url,
		Text:   text,
	}
	switch doc.Kind {
	case KindReddit:
		doc.Extra.Comments = extra.Comments
	case KindArxiv:
		doc.Extra.CoAuthors = append([]string(nil), extra.CoAuthors...)
	}
	return doc
}

// Authors returns every author name attached to the document.
// The author field may hold several names separated by '|'.
func (d Document) Authors() []string {
	seen := make(map[string]bool)
	var names []string
	add := func(name string) {
		name = strings.TrimSpace(name)
		if name == "" || seen[name] {
			return
		}
		seen[name] = true
		names = append(names, name)
	}
	for _, name := range strings.Split(d.Author, "|") {
		add(name)
	}
	for _, name := range d.Extra.CoAuthors {
		add(name)
	}
	return names
}

func (d Document) String() string {
	return fmt.Sprintf("[%d] %s (%s)", d.ID, d.Title, d.Kind)
}
