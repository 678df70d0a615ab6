package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/knowledge-engine/docsearch/internal/corpus"
	"github.com/knowledge-engine/docsearch/internal/engine"
	"github.com/knowledge-engine/docsearch/internal/search"
)

type Server struct {
	Engine *engine.Engine
	Logger *logrus.Entry
	Router *http.ServeMux

	httpServer *http.Server
}

func NewServer(eng *engine.Engine, logger *logrus.Entry) *Server {
	if logger == nil {
		logger = logrus.WithField("component", "api")
	}
	s := &Server{
		Engine: eng,
		Logger: logger,
		Router: http.NewServeMux(),
	}
	s.httpServer = &http.Server{
		Handler:           s.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.Router.HandleFunc("GET /api/v1/search", s.handleSearch)
	s.Router.HandleFunc("GET /api/v1/documents", s.handleListDocuments)
	s.Router.HandleFunc("GET /api/v1/documents/{id}", s.handleDocument)
	s.Router.HandleFunc("GET /api/v1/authors", s.handleAuthors)
	s.Router.HandleFunc("GET /api/v1/authors/{name}", s.handleAuthor)
	s.Router.HandleFunc("GET /api/v1/concordance", s.handleConcordance)
	s.Router.HandleFunc("GET /api/v1/terms", s.handleTerms)
	s.Router.HandleFunc("POST /api/v1/harvest", s.handleHarvest)
	s.Router.HandleFunc("GET /api/v1/status", s.handleStatus)
}

// Start serves the API until Shutdown is called
func (s *Server) Start(addr string) error {
	s.httpServer.Addr = addr
	s.Logger.Infof("Starting API Server on %s", addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Responses
type ErrorResponse struct {
	Error string `json:"error"`
}

type SearchResponse struct {
	Query   string             `json:"query"`
	Count   int                `json:"count"`
	Results []SearchResultView `json:"results"`
}

type SearchResultView struct {
	ID      int     `json:"id"`
	Title   string  `json:"title"`
	Source  string  `json:"source"`
	URL     string  `json:"url"`
	Score   float64 `json:"score"`
	Snippet string  `json:"snippet,omitempty"`
}

type DocumentView struct {
	ID        int      `json:"id"`
	Title     string   `json:"title"`
	Author    string   `json:"author"`
	Source    string   `json:"source"`
	Created   string   `json:"created,omitempty"`
	URL       string   `json:"url"`
	Text      string   `json:"text"`
	Comments  int      `json:"comments,omitempty"`
	CoAuthors []string `json:"co_authors,omitempty"`
}

type AuthorResponse struct {
	Name          string         `json:"name"`
	Documents     int            `json:"documents"`
	AverageLength float64        `json:"average_length"`
	Recent        []DocumentView `json:"recent"`
}

type ConcordanceResponse struct {
	Motif   string         `json:"motif"`
	Count   int            `json:"count"`
	Matches []corpus.Match `json:"matches"`
}

type TermsResponse struct {
	Terms []search.TermStat `json:"terms"`
}

type StatusResponse struct {
	engine.EngineStats
	Uptime string `json:"uptime"`
}

func documentView(doc corpus.Document) DocumentView {
	return DocumentView{
		ID:        doc.ID,
		Title:     doc.Title,
		Author:    doc.Author,
		Source:    doc.Kind.String(),
		Created:   corpus.FormatDate(doc.Date),
		URL:       doc.URL,
		Text:      doc.Text,
		Comments:  doc.Extra.Comments,
		CoAuthors: doc.Extra.CoAuthors,
	}
}

// Handlers

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := q.Get("q")
	if strings.TrimSpace(query) == "" {
		jsonResponse(w, http.StatusBadRequest, ErrorResponse{Error: "Query 'q' is required"})
		return
	}

	k, err := intParam(q.Get("k"), s.Engine.Config.Index.DefaultResults)
	if err != nil {
		jsonResponse(w, http.StatusBadRequest, ErrorResponse{Error: "'k' must be an integer"})
		return
	}
	width, err := s.snippetWidth(q.Get("snippets"))
	if err != nil {
		jsonResponse(w, http.StatusBadRequest, ErrorResponse{Error: "'snippets' must be a boolean or a width"})
		return
	}

	var hits []search.SearchResult
	if q.Get("mode") == "keywords" {
		hits = s.Engine.SearchKeywords(strings.Fields(query), k, width)
	} else {
		hits = s.Engine.Search(query, k, width)
	}

	response := SearchResponse{
		Query:   query,
		Count:   len(hits),
		Results: make([]SearchResultView, len(hits)),
	}
	for i, hit := range hits {
		response.Results[i] = SearchResultView{
			ID:      hit.DocumentID,
			Title:   hit.Title,
			Source:  hit.Source.String(),
			URL:     hit.URL,
			Score:   hit.Score,
			Snippet: hit.Snippet,
		}
	}

	s.Logger.WithFields(logrus.Fields{
		"query":   query,
		"results": len(hits),
	}).Debug("Search served")
	jsonResponse(w, http.StatusOK, response)
}

// snippetWidth accepts a boolean, which selects the configured width, or an
// explicit width
func (s *Server) snippetWidth(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	if on, err := strconv.ParseBool(raw); err == nil {
		if on {
			return s.Engine.Config.Index.SnippetWidth, nil
		}
		return 0, nil
	}
	return strconv.Atoi(raw)
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	n, err := intParam(q.Get("n"), -1)
	if err != nil {
		jsonResponse(w, http.StatusBadRequest, ErrorResponse{Error: "'n' must be an integer"})
		return
	}

	snap := s.Engine.Snapshot()
	var docs []corpus.Document
	switch q.Get("sort") {
	case "", "id":
		docs = snap.Documents()
	case "date":
		docs = snap.SortedByDate(-1)
	case "title":
		docs = snap.SortedByTitle(-1)
	default:
		jsonResponse(w, http.StatusBadRequest, ErrorResponse{Error: "'sort' must be id, date or title"})
		return
	}

	source := q.Get("source")
	views := make([]DocumentView, 0, len(docs))
	for _, doc := range docs {
		if source != "" && doc.Kind != corpus.ParseKind(source) {
			continue
		}
		if n >= 0 && len(views) == n {
			break
		}
		views = append(views, documentView(doc))
	}
	jsonResponse(w, http.StatusOK, views)
}

func (s *Server) handleDocument(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		jsonResponse(w, http.StatusBadRequest, ErrorResponse{Error: "Document id must be an integer"})
		return
	}

	doc, ok := s.Engine.Document(id)
	if !ok {
		jsonResponse(w, http.StatusNotFound, ErrorResponse{Error: "Document not found"})
		return
	}
	jsonResponse(w, http.StatusOK, documentView(doc))
}

func (s *Server) handleAuthors(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, map[string][]string{"authors": s.Engine.Authors()})
}

func (s *Server) handleAuthor(w http.ResponseWriter, r *http.Request) {
	recent, err := intParam(r.URL.Query().Get("recent"), 5)
	if err != nil {
		jsonResponse(w, http.StatusBadRequest, ErrorResponse{Error: "'recent' must be an integer"})
		return
	}

	stats, err := s.Engine.AuthorStats(r.PathValue("name"), recent)
	if errors.Is(err, corpus.ErrUnknownAuthor) {
		jsonResponse(w, http.StatusNotFound, ErrorResponse{Error: err.Error()})
		return
	}
	if err != nil {
		jsonResponse(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	resp := AuthorResponse{
		Name:          stats.Name,
		Documents:     stats.Documents,
		AverageLength: stats.AverageLength,
		Recent:        make([]DocumentView, 0, len(stats.Recent)),
	}
	for _, doc := range stats.Recent {
		resp.Recent = append(resp.Recent, documentView(doc))
	}
	jsonResponse(w, http.StatusOK, resp)
}

func (s *Server) handleConcordance(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	motif := q.Get("motif")
	if motif == "" {
		jsonResponse(w, http.StatusBadRequest, ErrorResponse{Error: "'motif' is required"})
		return
	}

	width, err := intParam(q.Get("context"), s.Engine.Config.Index.SnippetWidth)
	if err != nil || width < 0 {
		jsonResponse(w, http.StatusBadRequest, ErrorResponse{Error: "'context' must be a non-negative integer"})
		return
	}
	opts := corpus.ConcordanceOptions{
		Regex:           boolParam(q.Get("regex")),
		CaseInsensitive: boolParam(q.Get("ci")),
	}

	matches, err := s.Engine.Concordance(motif, width, opts)
	if errors.Is(err, corpus.ErrPattern) {
		jsonResponse(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	if err != nil {
		jsonResponse(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	if matches == nil {
		matches = []corpus.Match{}
	}

	jsonResponse(w, http.StatusOK, ConcordanceResponse{Motif: motif, Count: len(matches), Matches: matches})
}

func (s *Server) handleTerms(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r.URL.Query().Get("limit"), 20)
	if err != nil {
		jsonResponse(w, http.StatusBadRequest, ErrorResponse{Error: "'limit' must be an integer"})
		return
	}
	jsonResponse(w, http.StatusOK, TermsResponse{Terms: s.Engine.TermStats(limit)})
}

func (s *Server) handleHarvest(w http.ResponseWriter, r *http.Request) {
	report, err := s.Engine.Harvest(r.Context())
	if err != nil {
		s.Logger.WithError(err).Error("Harvest failed")
		jsonResponse(w, http.StatusBadGateway, ErrorResponse{Error: err.Error()})
		return
	}
	jsonResponse(w, http.StatusOK, report)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	stats := s.Engine.Stats()
	jsonResponse(w, http.StatusOK, StatusResponse{
		EngineStats: stats,
		Uptime:      time.Since(stats.StartTime).Round(time.Second).String(),
	})
}

func intParam(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

func boolParam(raw string) bool {
	v, err := strconv.ParseBool(raw)
	return err == nil && v
}

func jsonResponse(w http.ResponseWriter, code int, payload interface{}) {
	response, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
