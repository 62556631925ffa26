package httpapi

import (
	"net/http"
	"strconv"

	json "github.com/goccy/go-json"

	"github.com/arqlane/suggestd/pkg/engine"
	"github.com/arqlane/suggestd/pkg/suggesterr"
)

// Handler adapts an *engine.Engine onto HTTP handler funcs.
type Handler struct {
	eng *engine.Engine
}

// NewHandler builds a Handler around eng.
func NewHandler(eng *engine.Engine) *Handler {
	return &Handler{eng: eng}
}

const (
	defaultSuggestLimit = 5
	maxSuggestLimit     = 20
	defaultListLimit    = 20
	maxListLimit        = 100
)

func clampLimit(raw string, def, max int) (int, error) {
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, suggesterr.New("httpapi.clampLimit", suggesterr.InvalidQuery, "limit must be a positive integer")
	}
	if n > max {
		n = max
	}
	return n, nil
}

type suggestionOut struct {
	Phrase string  `json:"phrase"`
	Score  float64 `json:"score"`
}

type suggestMeta struct {
	Count          int   `json:"count"`
	ResponseTimeMs int64 `json:"response_time_ms"`
}

type suggestResponse struct {
	Prefix      string          `json:"prefix"`
	Suggestions []suggestionOut `json:"suggestions"`
	Meta        suggestMeta     `json:"meta"`
}

// Suggest handles GET /suggest?prefix=&limit=&user_id=&fuzzy=.
func (h *Handler) Suggest(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	prefix := q.Get("prefix")
	limit, err := clampLimit(q.Get("limit"), defaultSuggestLimit, maxSuggestLimit)
	if err != nil {
		writeError(w, err)
		return
	}
	fuzzy := q.Get("fuzzy") == "true" || q.Get("fuzzy") == "1"
	userID := q.Get("user_id")

	results, elapsed, err := h.eng.Suggest(r.Context(), prefix, userID, limit, fuzzy)
	if err != nil {
		writeError(w, err)
		return
	}

	out := make([]suggestionOut, len(results))
	for i, s := range results {
		out[i] = suggestionOut{Phrase: s.Phrase, Score: s.Score}
	}
	writeJSON(w, http.StatusOK, suggestResponse{
		Prefix:      prefix,
		Suggestions: out,
		Meta: suggestMeta{
			Count:          len(out),
			ResponseTimeMs: elapsed.Milliseconds(),
		},
	})
}

type logCompletionRequest struct {
	Query     string `json:"query"`
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
}

type okResponse struct {
	OK bool `json:"ok"`
}

// LogCompletion handles POST /log_completion.
func (h *Handler) LogCompletion(w http.ResponseWriter, r *http.Request) {
	var req logCompletionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "malformed request body")
		return
	}
	if err := h.eng.LogCompletion(r.Context(), req.Query, req.UserID, req.SessionID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

type trendingOut struct {
	Phrase string  `json:"phrase"`
	Score  float64 `json:"score"`
}

// Trending handles GET /trending?limit=.
func (h *Handler) Trending(w http.ResponseWriter, r *http.Request) {
	limit, err := clampLimit(r.URL.Query().Get("limit"), defaultListLimit, maxListLimit)
	if err != nil {
		writeError(w, err)
		return
	}
	entries := h.eng.Trending(limit)
	out := make([]trendingOut, len(entries))
	for i, e := range entries {
		out[i] = trendingOut{Phrase: e.Phrase, Score: e.Score}
	}
	writeJSON(w, http.StatusOK, out)
}

type popularOut struct {
	Phrase string `json:"phrase"`
	Count  uint64 `json:"count"`
}

// Popular handles GET /popular?limit=.
func (h *Handler) Popular(w http.ResponseWriter, r *http.Request) {
	limit, err := clampLimit(r.URL.Query().Get("limit"), defaultListLimit, maxListLimit)
	if err != nil {
		writeError(w, err)
		return
	}
	counts, err := h.eng.Popular(limit)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]popularOut, len(counts))
	for i, c := range counts {
		out[i] = popularOut{Phrase: c.Phrase, Count: c.Count}
	}
	writeJSON(w, http.StatusOK, out)
}

// History handles GET /history?user_id=&limit=.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	userID := q.Get("user_id")
	if userID == "" {
		writeError(w, suggesterr.New("httpapi.History", suggesterr.InvalidQuery, "user_id is required"))
		return
	}
	limit, err := clampLimit(q.Get("limit"), defaultListLimit, maxListLimit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.eng.History(userID, limit))
}

// --- Admin API ---

type rebuildResponse struct {
	IndexSize int `json:"index_size"`
}

// Rebuild handles POST /admin/rebuild.
func (h *Handler) Rebuild(w http.ResponseWriter, r *http.Request) {
	size, err := h.eng.Rebuild(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rebuildResponse{IndexSize: size})
}

type upsertPhraseRequest struct {
	Phrase string `json:"phrase"`
	Count  uint64 `json:"count"`
}

// UpsertPhrase handles POST /admin/upsert_phrase.
func (h *Handler) UpsertPhrase(w http.ResponseWriter, r *http.Request) {
	var req upsertPhraseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "malformed request body")
		return
	}
	if err := h.eng.UpsertPhrase(req.Phrase, req.Count); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

type phraseRequest struct {
	Phrase string `json:"phrase"`
	Reason string `json:"reason"`
}

// DeletePhrase handles POST /admin/delete_phrase.
func (h *Handler) DeletePhrase(w http.ResponseWriter, r *http.Request) {
	var req phraseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "malformed request body")
		return
	}
	if err := h.eng.DeletePhrase(req.Phrase); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

// FilterAdd handles POST /admin/filter_add.
func (h *Handler) FilterAdd(w http.ResponseWriter, r *http.Request) {
	var req phraseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "malformed request body")
		return
	}
	if err := h.eng.FilterAdd(req.Phrase, req.Reason); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

// FilterRemove handles POST /admin/filter_remove.
func (h *Handler) FilterRemove(w http.ResponseWriter, r *http.Request) {
	var req phraseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "malformed request body")
		return
	}
	if err := h.eng.FilterRemove(req.Phrase); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

// CacheClear handles POST /admin/cache_clear.
func (h *Handler) CacheClear(w http.ResponseWriter, r *http.Request) {
	h.eng.CacheClear()
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

// Status handles GET /admin/status.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.eng.Status())
}
