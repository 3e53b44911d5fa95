package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/poiesic/wayfind/catalog"
	"github.com/poiesic/wayfind/core"
	"github.com/poiesic/wayfind/reporting"
	"github.com/poiesic/wayfind/storage"
)

// maxBodyBytes bounds request bodies; report notes are short.
const maxBodyBytes = 64 << 10

// UtilityResult is one search hit as drawn by a map client.
type UtilityResult struct {
	Utility core.Utility        `json:"utility"`
	Score   int                 `json:"score"`
	Color   catalog.Color       `json:"color"`
	Marker  catalog.MarkerStyle `json:"marker"`
}

// SearchResponse is the body of a utility search.
type SearchResponse struct {
	Query      string          `json:"query"`
	Categories []string        `json:"categories"`
	Results    []UtilityResult `json:"results"`
}

type reportRequest struct {
	Note string `json:"note"`
}

type toggleRequest struct {
	Selected []string `json:"selected"`
	Category string   `json:"category"`
}

type toggleResponse struct {
	Selected []string `json:"selected"`
}

type handler struct {
	finder   Finder
	reporter Reporter
	logger   *slog.Logger
}

func (h *handler) listCategories(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, catalog.Categories())
}

// searchUtilities handles ?categories=a,b&q=text&selected=id&limit=n.
func (h *handler) searchUtilities(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	selected := splitList(params.Get("categories"))
	query := params.Get("q")
	selectedID := params.Get("selected")

	limit := 0
	if limitStr := params.Get("limit"); limitStr != "" {
		n, err := strconv.Atoi(limitStr)
		if err != nil || n < 0 {
			respondWithError(w, http.StatusBadRequest, "Invalid limit", err)
			return
		}
		limit = n
	}

	results, err := h.finder.Find(r.Context(), selected, query, limit)
	if err != nil {
		h.respondWithFailure(w, "Failed to search utilities", err)
		return
	}

	out := make([]UtilityResult, len(results))
	for i, result := range results {
		out[i] = UtilityResult{
			Utility: result.Utility,
			Score:   result.Score,
			Color:   catalog.ColorForCategory(result.Utility.Type),
			Marker:  catalog.MarkerFor(result.Utility, selectedID),
		}
	}

	respondWithJSON(w, http.StatusOK, SearchResponse{
		Query:      query,
		Categories: selected,
		Results:    out,
	})
}

func (h *handler) getUtility(w http.ResponseWriter, r *http.Request) {
	utility, err := h.reporter.Utility(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondWithFailure(w, "Failed to load utility", err)
		return
	}

	etag := utilityETag(utility)
	w.Header().Set("ETag", etag)
	if etagMatches(r.Header.Get("If-None-Match"), etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	respondWithJSON(w, http.StatusOK, UtilityResult{
		Utility: *utility,
		Color:   catalog.ColorForCategory(utility.Type),
		Marker:  catalog.MarkerFor(*utility, r.URL.Query().Get("selected")),
	})
}

func (h *handler) listReports(w http.ResponseWriter, r *http.Request) {
	reports, err := h.reporter.Reports(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondWithFailure(w, "Failed to list reports", err)
		return
	}
	respondWithJSON(w, http.StatusOK, reports)
}

func (h *handler) submitReport(w http.ResponseWriter, r *http.Request) {
	var req reportRequest
	if err := decodeBody(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	report, err := h.reporter.Submit(r.Context(), chi.URLParam(r, "id"), req.Note)
	if err != nil {
		h.respondWithFailure(w, "Failed to file report", err)
		return
	}
	respondWithJSON(w, http.StatusCreated, report)
}

func (h *handler) toggleSelection(w http.ResponseWriter, r *http.Request) {
	var req toggleRequest
	if err := decodeBody(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Category == "" {
		respondWithError(w, http.StatusBadRequest, "Missing category", nil)
		return
	}
	respondWithJSON(w, http.StatusOK, toggleResponse{
		Selected: catalog.ToggleCategory(req.Selected, req.Category),
	})
}

// respondWithFailure maps service errors onto status codes.
func (h *handler) respondWithFailure(w http.ResponseWriter, message string, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound), errors.Is(err, reporting.ErrUnknownUtility):
		respondWithError(w, http.StatusNotFound, "Utility not found", err)
	case errors.Is(err, core.ErrInvalidReport):
		respondWithError(w, http.StatusBadRequest, err.Error(), err)
	default:
		h.logger.Error("HTTP error", "code", http.StatusInternalServerError, "message", message, "err", err)
		respondWithError(w, http.StatusInternalServerError, message, err)
	}
}

// utilityETag covers the descriptive fields plus the derived report state.
func utilityETag(u *core.Utility) string {
	return fmt.Sprintf(`"%s-%d-%s"`, u.Fingerprint(), u.Reports, u.Status)
}

// etagMatches reports whether an If-None-Match header lists etag, using the
// weak comparison GET requires.
func etagMatches(header, etag string) bool {
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" {
			return true
		}
		if strings.TrimPrefix(candidate, "W/") == strings.TrimPrefix(etag, "W/") {
			return true
		}
	}
	return false
}

func decodeBody(r *http.Request, v any) error {
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	return decoder.Decode(v)
}

// splitList parses a comma-separated query parameter, dropping blanks.
// The result is never nil so it encodes as [] rather than null.
func splitList(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("Failed to marshal response"))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func respondWithError(w http.ResponseWriter, code int, message string, _ error) {
	respondWithJSON(w, code, map[string]string{"error": message})
}
