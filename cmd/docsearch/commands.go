package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/knowledge-engine/docsearch/internal/corpus"
	"github.com/knowledge-engine/docsearch/internal/search"
)

func newSearchCmd(flags *globalFlags) *cobra.Command {
	var (
		k        int
		snippets int
		freeText bool
	)

	cmd := &cobra.Command{
		Use:   "search <keyword>...",
		Short: "Rank documents against keywords",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := open(cmd, flags)
			if err != nil {
				return err
			}
			defer a.store.Close()

			if !cmd.Flags().Changed("k") {
				k = a.cfg.Index.DefaultResults
			}
			if snippets < 0 {
				snippets = a.cfg.Index.SnippetWidth
			}

			var results []search.SearchResult
			if freeText {
				results = a.engine.Search(strings.Join(args, " "), k, snippets)
			} else {
				results = a.engine.SearchKeywords(args, k, snippets)
			}
			if a.json {
				return a.printJSON(results)
			}
			if len(results) == 0 {
				fmt.Fprintln(a.out, "No matching documents")
				return nil
			}

			w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tSCORE\tSOURCE\tTITLE")
			for _, r := range results {
				fmt.Fprintf(w, "%d\t%.4f\t%s\t%s\n", r.DocumentID, r.Score, r.Source, r.Title)
				if r.Snippet != "" {
					fmt.Fprintf(w, "\t\t\t  ...%s...\n", r.Snippet)
				}
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVar(&k, "k", 10, "Maximum number of results")
	cmd.Flags().IntVar(&snippets, "snippets", 0, "Snippet width in runes, -1 for the configured width")
	cmd.Flags().BoolVar(&freeText, "text", false, "Tokenize the arguments as one free-text query")
	return cmd
}

func newAuthorsCmd(flags *globalFlags) *cobra.Command {
	var recent int

	cmd := &cobra.Command{
		Use:   "authors [name]",
		Short: "List authors, or show statistics for one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := open(cmd, flags)
			if err != nil {
				return err
			}
			defer a.store.Close()

			if len(args) == 0 {
				authors := a.engine.Authors()
				if a.json {
					return a.printJSON(authors)
				}
				for _, name := range authors {
					fmt.Fprintln(a.out, name)
				}
				return nil
			}

			stats, err := a.engine.AuthorStats(args[0], recent)
			if err != nil {
				return err
			}
			if a.json {
				return a.printJSON(stats)
			}
			fmt.Fprintf(a.out, "%s: %d documents, %.1f characters on average\n", stats.Name, stats.Documents, stats.AverageLength)
			for _, doc := range stats.Recent {
				fmt.Fprintf(a.out, "  %s  %s\n", dateColumn(doc), doc.Title)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&recent, "recent", 5, "Number of most recent documents to show")
	return cmd
}

func newConcordanceCmd(flags *globalFlags) *cobra.Command {
	var (
		width int
		opts  corpus.ConcordanceOptions
	)

	cmd := &cobra.Command{
		Use:   "concordance <motif>",
		Short: "Show every occurrence of a motif with surrounding context",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := open(cmd, flags)
			if err != nil {
				return err
			}
			defer a.store.Close()

			matches, err := a.engine.Concordance(args[0], width, opts)
			if err != nil {
				return err
			}
			if a.json {
				return a.printJSON(matches)
			}
			w := tabwriter.NewWriter(a.out, 0, 4, 1, ' ', tabwriter.AlignRight)
			for _, m := range matches {
				fmt.Fprintf(w, "%d\t%s\t[%s]\t%s\t\n", m.DocumentID, flatten(m.Left), m.Match, flatten(m.Right))
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%d matches\n", len(matches))
			return nil
		},
	}
	cmd.Flags().IntVar(&width, "context", 30, "Runes of context on each side")
	cmd.Flags().BoolVar(&opts.Regex, "regex", false, "Treat the motif as a regular expression")
	cmd.Flags().BoolVar(&opts.CaseInsensitive, "ci", false, "Match case-insensitively")
	return cmd
}

func newTermsCmd(flags *globalFlags) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "terms",
		Short: "Show the most frequent vocabulary terms",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := open(cmd, flags)
			if err != nil {
				return err
			}
			defer a.store.Close()

			terms := a.engine.TermStats(limit)
			if a.json {
				return a.printJSON(terms)
			}
			w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TERM\tCOUNT\tDF\tIDF")
			for _, t := range terms {
				fmt.Fprintf(w, "%s\t%d\t%d\t%.4f\n", t.Term, t.TotalCount, t.DocFreq, t.IDF)
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Number of terms to show")
	return cmd
}

func newListCmd(flags *globalFlags) *cobra.Command {
	var (
		sortBy    string
		n         int
		source    string
		textStats bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the documents of the collection",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := open(cmd, flags)
			if err != nil {
				return err
			}
			defer a.store.Close()

			snap := a.engine.Snapshot()
			if textStats {
				stats := snap.TextStats()
				if a.json {
					return a.printJSON(stats)
				}
				w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tWORDS\tSENTENCES")
				for _, st := range stats {
					fmt.Fprintf(w, "%d\t%d\t%d\n", st.ID, st.Words, st.Sentences)
				}
				return w.Flush()
			}

			var docs []corpus.Document
			switch sortBy {
			case "id":
				docs = snap.Documents()
			case "date":
				docs = snap.SortedByDate(-1)
			case "title":
				docs = snap.SortedByTitle(-1)
			default:
				return fmt.Errorf("unknown sort order %q, want id, date or title", sortBy)
			}

			listed := make([]corpus.Document, 0, len(docs))
			for _, doc := range docs {
				if source != "" && doc.Kind != corpus.ParseKind(source) {
					continue
				}
				if n >= 0 && len(listed) == n {
					break
				}
				listed = append(listed, doc)
			}

			if a.json {
				return a.printJSON(listed)
			}
			w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tSOURCE\tDATE\tAUTHOR\tTITLE")
			for _, doc := range listed {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", doc.ID, doc.Kind, dateColumn(doc), doc.Author, doc.Title)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%d of %d documents\n", len(listed), snap.Len())
			return nil
		},
	}
	cmd.Flags().StringVar(&sortBy, "sort", "id", "Sort order: id, date or title")
	cmd.Flags().IntVar(&n, "n", -1, "Maximum number of documents, -1 for all")
	cmd.Flags().StringVar(&source, "source", "", "Only list documents from this source (reddit, arxiv)")
	cmd.Flags().BoolVar(&textStats, "text-stats", false, "Print word and sentence counts instead")
	return cmd
}

func dateColumn(doc corpus.Document) string {
	if doc.Date.IsZero() {
		return "-"
	}
	return doc.Date.Format("2006-01-02")
}

// flatten keeps concordance lines on one row
func flatten(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
