package api

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/ansuz/internal/checksum"
	"github.com/starford/ansuz/internal/parser"
	"github.com/starford/ansuz/internal/vault"
)

// Handler holds API route handlers.
type Handler struct {
	svc *vault.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *vault.Service) *Handler {
	return &Handler{svc: svc}
}

// NoteResponse is the full representation of a note returned by GET /notes.
type NoteResponse struct {
	Path     string          `json:"path"`
	Content  string          `json:"content"`
	Checksum string          `json:"checksum"`
	Links    parser.LinkSet  `json:"links"`
	Metadata parser.Metadata `json:"metadata"`
}

// SearchResponse is the result of GET /search.
type SearchResponse struct {
	Results  []string `json:"results"`
	Overflow int      `json:"overflow,omitempty"`
}

// PathListResponse is the result of backlink and tag queries.
type PathListResponse struct {
	Count int      `json:"count"`
	Paths []string `json:"paths"`
}

// notePath extracts the note path from the URL (everything after /api/notes/).
// Supports encoded slashes from clients (e.g. topics%2Fnote.md).
func notePath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// GetNote handles GET /api/notes/*: content plus derived links and metadata.
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	path := notePath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("note path is required"))
		return
	}
	content, err := h.svc.ReadNote(path)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorBody(err.Error()))
		return
	}
	resp := NoteResponse{
		Path:     path,
		Content:  content,
		Checksum: checksum.Sum([]byte(content)),
		Links:    parser.ExtractLinks(content),
		Metadata: parser.ExtractMetadata(content),
	}
	w.Header().Set("ETag", `"`+resp.Checksum+`"`)
	writeJSON(w, http.StatusOK, resp)
}

// Search handles GET /api/search?q=.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter q is required"))
		return
	}
	outcome, err := h.svc.SearchNotes(r.Context(), query)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody(err.Error()))
		return
	}
	results := outcome.Paths
	if results == nil {
		results = []string{}
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results, Overflow: outcome.Overflow})
}

// Backlinks handles GET /api/backlinks?path=.
func (h *Handler) Backlinks(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter path is required"))
		return
	}
	paths, err := h.svc.FindBacklinks(r.Context(), path)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody(err.Error()))
		return
	}
	if paths == nil {
		paths = []string{}
	}
	writeJSON(w, http.StatusOK, PathListResponse{Count: len(paths), Paths: paths})
}

// Tags handles GET /api/tags?tags=a,b&all=true.
func (h *Handler) Tags(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("tags")
	if raw == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter tags is required"))
		return
	}
	matchAll := r.URL.Query().Get("all") == "true"

	paths, err := h.svc.SearchByTags(r.Context(), strings.Split(raw, ","), matchAll)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody(err.Error()))
		return
	}
	if paths == nil {
		paths = []string{}
	}
	writeJSON(w, http.StatusOK, PathListResponse{Count: len(paths), Paths: paths})
}
