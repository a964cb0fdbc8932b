package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/dmitrijs2005/keybox/internal/common"
	"github.com/dmitrijs2005/keybox/internal/server/blobs"
	"github.com/gorilla/mux"
)

type watchResponse struct {
	Seq  uint64   `json:"seq"`
	Keys []string `json:"keys"`
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, common.ErrorNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, common.ErrorInvalidKey):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, common.ErrorBlobTooLarge):
		http.Error(w, err.Error(), http.StatusRequestEntityTooLarge)
	case errors.Is(err, common.ErrUnavailable):
		http.Error(w, "storage unavailable", http.StatusServiceUnavailable)
	default:
		h.logger.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func (h *Handler) ping(w http.ResponseWriter, r *http.Request) {
	if err := h.blobs.Ping(r.Context()); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) getBlob(w http.ResponseWriter, r *http.Request) {
	v, err := h.blobs.Get(r.Context(), namespaceFrom(r), mux.Vars(r)["key"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", strconv.Itoa(len(v)))
	_, _ = w.Write(v)
}

func (h *Handler) putBlob(w http.ResponseWriter, r *http.Request) {
	// one byte past the limit is enough for the service to reject it
	body, err := io.ReadAll(io.LimitReader(r.Body, blobs.MaxBlobSize+1))
	if err != nil {
		http.Error(w, "read body: "+err.Error(), http.StatusBadRequest)
		return
	}

	ns, key := namespaceFrom(r), mux.Vars(r)["key"]
	if err := h.blobs.Put(r.Context(), ns, key, body); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.logger.Info(r.Context(), "blob stored", "namespace", ns, "key", key, "size", len(body))
	w.WriteHeader(http.StatusNoContent)
}

// watch without ?after answers the current sequence at once; with it, it
// holds the request until the namespace changes or the poll times out.
func (h *Handler) watch(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("after")
	if raw == "" {
		writeJSON(w, watchResponse{Seq: h.blobs.Seq(), Keys: []string{}})
		return
	}
	after, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		http.Error(w, "invalid after: "+raw, http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.pollTimeout)
	defer cancel()

	keys, seq, err := h.blobs.Watch(ctx, namespaceFrom(r), after)
	switch {
	case err == nil, errors.Is(err, context.DeadlineExceeded) && r.Context().Err() == nil:
	case r.Context().Err() != nil:
		http.Error(w, "server shutting down", http.StatusServiceUnavailable)
		return
	default:
		h.writeError(w, r, err)
		return
	}

	if keys == nil {
		keys = []string{}
	}
	writeJSON(w, watchResponse{Seq: seq, Keys: keys})
}
