package server

import (
	"encoding/json"
	stdErrors "errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/mux"
	"github.com/lepinkainen/posterratings/internal/errors"
	"github.com/lepinkainen/posterratings/internal/stremio"
)

func (s *Server) handleManifest(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.addon.Manifest())
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleNotFound(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusNotFound, "resource not found")
}

func (s *Server) incomplete(resource string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusBadRequest, "missing "+resource+" parameters")
	}
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	rawID, rawExtra := vars["id"], vars["extra"]
	if rawExtra == "" {
		rawID = trimJSONSuffix(rawID)
	} else {
		rawExtra = trimJSONSuffix(rawExtra)
	}

	contentType, err1 := url.PathUnescape(vars["type"])
	id, err2 := url.PathUnescape(rawID)
	extra, err3 := parseExtraSegments(rawExtra)
	if err := stdErrors.Join(err1, err2, err3); err != nil {
		writeError(w, http.StatusBadRequest, "malformed catalog path")
		return
	}

	// query parameters override path extras
	for key, values := range r.URL.Query() {
		extra[key] = values
	}

	resp, err := s.addon.Catalog(r.Context(), contentType, id, extra)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleMeta(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	contentType, err1 := url.PathUnescape(vars["type"])
	id, err2 := url.PathUnescape(trimJSONSuffix(vars["id"]))
	if stdErrors.Join(err1, err2) != nil {
		writeError(w, http.StatusBadRequest, "malformed meta path")
		return
	}

	resp, err := s.addon.Meta(r.Context(), contentType, id)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case stdErrors.Is(err, errors.ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, err.Error())
	case stdErrors.Is(err, errors.ErrNotFound):
		writeError(w, http.StatusNotFound, "content not found")
	default:
		s.logger.Error("Request failed", "path", r.URL.Path, "request_id", RequestIDFromContext(r.Context()), "error", err)
		writeError(w, http.StatusInternalServerError, "unexpected server error")
	}
}

// parseExtraSegments decodes "k=v" path segments such as
// "genre=Drama/skip=100". Segments without a key are skipped.
func parseExtraSegments(raw string) (url.Values, error) {
	extra := url.Values{}
	if raw == "" {
		return extra, nil
	}
	for _, segment := range strings.Split(raw, "/") {
		rawKey, rawValue, _ := strings.Cut(segment, "=")
		if rawKey == "" {
			continue
		}
		key, err := url.PathUnescape(rawKey)
		if err != nil {
			return nil, err
		}
		value, err := url.PathUnescape(rawValue)
		if err != nil {
			return nil, err
		}
		extra.Set(key, value)
	}
	return extra, nil
}

func trimJSONSuffix(segment string) string {
	if len(segment) >= 5 && strings.EqualFold(segment[len(segment)-5:], ".json") {
		return segment[:len(segment)-5]
	}
	return segment
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", cacheControl)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, stremio.ErrorResponse{Error: message})
}
