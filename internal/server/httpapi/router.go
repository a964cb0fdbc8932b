// Package httpapi is the REST gateway to the blob service for clients that
// cannot speak gRPC:
//
//	GET  /v1/ping               storage health, authenticates the token
//	GET  /v1/blobs/{key}        200 with the body, or 404
//	PUT  /v1/blobs/{key}        204
//	GET  /v1/watch[?after=N]    long poll: {"seq": N, "keys": [...]}
//
// Every route requires "Authorization: Bearer <jwt>"; the token subject is
// the vault namespace.
package httpapi

import (
	"net/http"
	"time"

	"github.com/dmitrijs2005/keybox/internal/logging"
	"github.com/dmitrijs2005/keybox/internal/server/blobs"
	"github.com/gorilla/mux"
)

// DefaultPollTimeout bounds one /v1/watch long poll.
const DefaultPollTimeout = 25 * time.Second

type Handler struct {
	blobs       *blobs.Service
	logger      logging.Logger
	jwtSecret   []byte
	pollTimeout time.Duration
}

func NewHandler(bs *blobs.Service, l logging.Logger, secretKey string) *Handler {
	return &Handler{
		blobs:       bs,
		logger:      l.With("module", "http_server"),
		jwtSecret:   []byte(secretKey),
		pollTimeout: DefaultPollTimeout,
	}
}

func (h *Handler) NewRouter() *mux.Router {
	r := mux.NewRouter()
	r.Use(h.logRequests, h.requireToken)

	v1 := r.PathPrefix("/v1").Subrouter()
	v1.HandleFunc("/ping", h.ping).Methods(http.MethodGet)
	v1.HandleFunc("/blobs/{key}", h.getBlob).Methods(http.MethodGet)
	v1.HandleFunc("/blobs/{key}", h.putBlob).Methods(http.MethodPut)
	v1.HandleFunc("/watch", h.watch).Methods(http.MethodGet)
	return r
}
