package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/nickcecere/lrag/internal/embeddings"
	"github.com/nickcecere/lrag/internal/llm"
	"github.com/nickcecere/lrag/internal/search"
	"github.com/nickcecere/lrag/internal/store"
)

// snippetLength is how much of each source passage a chat reply echoes back.
const snippetLength = 200

type chatRequest struct {
	Question string `json:"question" validate:"max=8000"`
	TopK     int    `json:"top_k" validate:"gte=0,lte=50"` // 0 uses the server default
}

type chatSource struct {
	Text   string `json:"text"`
	Source string `json:"source"`
}

type chatResponse struct {
	Answer  string       `json:"answer"`
	Sources []chatSource `json:"sources"`
}

type searchRequest struct {
	Query    string   `json:"query" validate:"required,max=8000"`
	TopK     int      `json:"top_k" validate:"gte=0,lte=100"` // 0 uses the server default
	MinScore *float64 `json:"min_score" validate:"omitempty,gte=-1,lte=1"`
}

type searchHit struct {
	ID     string  `json:"id"`
	Text   string  `json:"text"`
	Source string  `json:"source"`
	Score  float64 `json:"score"`
}

type searchResponse struct {
	Results []searchHit `json:"results"`
	Count   int         `json:"count"`
}

type ingestRequest struct {
	Text   string `json:"text" validate:"required,max=100000"`
	Source string `json:"source" validate:"max=200"`
}

type ingestResponse struct {
	ID        string `json:"id"`
	Documents int    `json:"documents"`
}

type embeddingsRequest struct {
	Input json.RawMessage `json:"input" validate:"required"`
	Model string          `json:"model"`
}

type healthResponse struct {
	Status      string `json:"status"`
	Initialized bool   `json:"initialized"`
	Documents   int    `json:"documents"`
}

// handleChat answers a question from the retrieved passages.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if strings.TrimSpace(req.Question) == "" {
		writeError(w, http.StatusBadRequest, "Question is required")
		return
	}
	if !validateRequest(w, &req) {
		return
	}

	topK := req.TopK
	if topK == 0 {
		topK = s.opts.TopK
	}

	result, err := s.qa.Answer(r.Context(), req.Question, llm.QAOptions{TopK: topK})
	if err != nil {
		var genErr *llm.GenerationError
		if errors.As(err, &genErr) {
			log.Error("Chat generation failed", "sources", len(genErr.Sources), "error", genErr.Err)
		} else {
			log.Error("Chat retrieval failed", "error", err)
		}
		writeError(w, http.StatusInternalServerError, "Failed to process question")
		return
	}

	sources := make([]chatSource, len(result.Sources))
	for i, res := range result.Sources {
		sources[i] = chatSource{
			Text:   snippet(res.Document.Text, snippetLength),
			Source: res.Document.Source,
		}
	}

	writeJSON(w, http.StatusOK, chatResponse{
		Answer:  result.Answer,
		Sources: sources,
	})
}

// handleSearch returns ranked passages without generating an answer.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	opts := search.SearchOptions{
		TopK:     req.TopK,
		MinScore: s.opts.MinScore,
	}
	if opts.TopK == 0 {
		opts.TopK = s.opts.TopK
	}
	if req.MinScore != nil {
		opts.MinScore = *req.MinScore
	}

	results, err := s.searcher.Search(r.Context(), req.Query, opts)
	if err != nil {
		log.Error("Search failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Search failed")
		return
	}

	hits := make([]searchHit, len(results))
	for i, res := range results {
		hits[i] = searchHit{
			ID:     res.Document.ID,
			Text:   res.Document.Text,
			Source: res.Document.Source,
			Score:  res.Score,
		}
	}

	writeJSON(w, http.StatusOK, searchResponse{Results: hits, Count: len(hits)})
}

// handleIngest appends a single document to the store.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	id, err := s.searcher.Ingest(r.Context(), req.Text, req.Source)
	if err != nil {
		if errors.Is(err, store.ErrCapacityExceeded) {
			log.Warn("Rejected document, store is full", "documents", s.searcher.Store().Len())
			writeError(w, http.StatusInsufficientStorage, "Document store is full")
			return
		}
		log.Error("Ingest failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to ingest document")
		return
	}

	log.Debug("Ingested document", "id", id, "source", req.Source)
	writeJSON(w, http.StatusCreated, ingestResponse{
		ID:        id,
		Documents: s.searcher.Store().Len(),
	})
}

// handleEmbeddings serves embeddings in the OpenAI response shape.
func (s *Server) handleEmbeddings(w http.ResponseWriter, r *http.Request) {
	var req embeddingsRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	inputs, err := parseInput(req.Input)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if hs, ok := s.embedder.(*embeddings.HashService); ok {
		writeJSON(w, http.StatusOK, hs.EmbedEnvelope(inputs))
		return
	}

	vectors, err := s.embedder.EmbedBatch(r.Context(), inputs)
	if err != nil {
		log.Error("Embedding failed", "inputs", len(inputs), "error", err)
		writeError(w, http.StatusBadGateway, "Failed to generate embeddings")
		return
	}

	tokens := 0
	for _, in := range inputs {
		tokens += len(embeddings.Tokenize(in))
	}
	writeJSON(w, http.StatusOK, embeddings.NewEnvelope(s.embedder.ModelName(), vectors, tokens))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:      "ok",
		Initialized: s.searcher.Initialized(),
		Documents:   s.searcher.Store().Len(),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.searcher.Store().Stats())
}

// parseInput accepts either a single string or a list of strings.
func parseInput(raw json.RawMessage) ([]string, error) {
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		if single == "" {
			return nil, errors.New("input must not be empty")
		}
		return []string{single}, nil
	}

	var list []string
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, errors.New("input must be a string or an array of strings")
	}
	if len(list) == 0 {
		return nil, errors.New("input must not be empty")
	}
	return list, nil
}

// snippet returns the first n characters of text followed by an ellipsis.
func snippet(text string, n int) string {
	runes := []rune(text)
	if len(runes) > n {
		runes = runes[:n]
	}
	return string(runes) + "..."
}
