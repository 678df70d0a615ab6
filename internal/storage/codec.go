package storage

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/knowledge-engine/docsearch/internal/corpus"
)

// documentRecord is the persisted shape of a document. Dates are stored as
// RFC 3339 strings and the author field keeps its '|' separated form.
type documentRecord struct {
	ID        int      `json:"id"`
	Title     string   `json:"title"`
	Text      string   `json:"text"`
	Source    string   `json:"source"`
	Authors   string   `json:"authors"`
	URL       string   `json:"url"`
	Created   string   `json:"created"`
	Comments  int      `json:"comments,omitempty"`
	CoAuthors []string `json:"co_authors,omitempty"`
}

type corpusFile struct {
	Name      string           `json:"name"`
	Documents []documentRecord `json:"documents"`
}

var tsvColumns = []string{"id", "title", "text", "source", "authors", "url", "created", "comments"}

func toRecord(doc corpus.Document) documentRecord {
	return documentRecord{
		ID:        doc.ID,
		Title:     doc.Title,
		Text:      doc.Text,
		Source:    doc.Kind.String(),
		Authors:   doc.Author,
		URL:       doc.URL,
		Created:   corpus.FormatDate(doc.Date),
		Comments:  doc.Extra.Comments,
		CoAuthors: doc.Extra.CoAuthors,
	}
}

// fromRecord rebuilds a document. Unparseable dates load as the zero time.
func fromRecord(rec documentRecord) corpus.Document {
	created, _ := corpus.ParseDate(rec.Created)

	coAuthors := rec.CoAuthors
	author := rec.Authors
	if corpus.ParseKind(rec.Source) == corpus.KindArxiv && len(coAuthors) == 0 && strings.Contains(author, "|") {
		for _, name := range strings.Split(author, "|") {
			if name = strings.TrimSpace(name); name != "" {
				coAuthors = append(coAuthors, name)
			}
		}
		if len(coAuthors) > 0 {
			author = coAuthors[0]
		}
	}

	doc := corpus.NewDocument(rec.Source, rec.Title, author, created, rec.URL, rec.Text,
		corpus.Extra{Comments: rec.Comments, CoAuthors: coAuthors})
	doc.ID = rec.ID
	return doc
}

func encodeJSON(w io.Writer, snap *corpus.Snapshot) error {
	docs := snap.Documents()
	file := corpusFile{
		Name:      snap.Name(),
		Documents: make([]documentRecord, 0, len(docs)),
	}
	for _, doc := range docs {
		file.Documents = append(file.Documents, toRecord(doc))
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(file)
}

// decodeJSON accepts the {"name", "documents"} object or a bare array of
// documents.
func decodeJSON(r io.Reader) (*corpus.Snapshot, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var file corpusFile
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		err = json.Unmarshal(trimmed, &file.Documents)
	} else {
		err = json.Unmarshal(trimmed, &file)
	}
	if err != nil {
		return nil, err
	}

	docs := make([]corpus.Document, 0, len(file.Documents))
	for _, rec := range file.Documents {
		docs = append(docs, fromRecord(rec))
	}
	return corpus.NewSnapshot(file.Name, docs), nil
}

func encodeTSV(w io.Writer, snap *corpus.Snapshot) error {
	cw := csv.NewWriter(w)
	cw.Comma = '\t'

	if err := cw.Write(tsvColumns); err != nil {
		return err
	}
	for _, doc := range snap.Documents() {
		rec := toRecord(doc)
		authors := rec.Authors
		if len(rec.CoAuthors) > 0 {
			authors = strings.Join(doc.Authors(), "|")
		}
		row := []string{
			strconv.Itoa(rec.ID),
			rec.Title,
			rec.Text,
			rec.Source,
			authors,
			rec.URL,
			rec.Created,
			strconv.Itoa(rec.Comments),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// decodeTSV maps columns by header name, so files without the trailing
// comments column still load. Rows without an id are numbered by position.
func decodeTSV(r io.Reader, name string) (*corpus.Snapshot, error) {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return corpus.NewSnapshot(name, nil), nil
	}
	if err != nil {
		return nil, err
	}

	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	if _, ok := col["text"]; !ok {
		return nil, fmt.Errorf("missing text column")
	}

	field := func(row []string, key string) string {
		i, ok := col[key]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	var docs []corpus.Document
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		rec := documentRecord{
			ID:      line - 1,
			Title:   field(row, "title"),
			Text:    field(row, "text"),
			Source:  field(row, "source"),
			Authors: field(row, "authors"),
			URL:     field(row, "url"),
			Created: field(row, "created"),
		}
		if v := field(row, "id"); v != "" {
			if rec.ID, err = strconv.Atoi(v); err != nil {
				return nil, fmt.Errorf("line %d: invalid id %q", line, v)
			}
		}
		if v := field(row, "comments"); v != "" {
			rec.Comments, _ = strconv.Atoi(v)
		}
		docs = append(docs, fromRecord(rec))
	}

	return corpus.NewSnapshot(name, docs), nil
}
