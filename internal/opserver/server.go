// Package opserver implements an in-memory operation service used by the
// example and by integration tests.
//
// The server simulates the common long-running-operation HTTP shape:
// creating an operation answers 202 Accepted with an Operation-Location
// header, and the status endpoint reports "running" for a configurable
// number of checks before turning terminal, optionally with Retry-After
// hints. Because the store counts every status check, tests can assert
// exactly how many polls a client performed.
package opserver

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// Server is the HTTP face of the simulator.
//
// Routes:
//
//	POST /operations        create an operation from a [Spec] body
//	GET  /operations        list all operations (no advancement)
//	GET  /operations/{id}   one status check; advances the operation
type Server struct {
	store  *Store
	logger *slog.Logger
	router chi.Router
}

// createRequest is the POST /operations body.
type createRequest struct {
	ID                string `json:"id,omitempty"`
	PollsUntilDone    int    `json:"polls_until_done"`
	FinalState        string `json:"final_state,omitempty"`
	RetryAfterSeconds int    `json:"retry_after_seconds,omitempty"`
}

// statusDocument is the JSON shape of every status response.
type statusDocument struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Polls  int    `json:"polls"`
}

// NewServer creates a simulator [Server] backed by a fresh [Store].
func NewServer(logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		store:  NewStore(),
		logger: logger,
	}

	r := chi.NewRouter()
	r.Post("/operations", s.handleCreate)
	r.Get("/operations", s.handleList)
	r.Get("/operations/{id}", s.handleStatus)
	s.router = r

	return s
}

// Store exposes the backing store so tests can inspect poll counts.
func (s *Server) Store() *Store {
	return s.store
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	op := s.store.Create(Spec{
		ID:                req.ID,
		PollsUntilDone:    req.PollsUntilDone,
		FinalState:        req.FinalState,
		RetryAfterSeconds: req.RetryAfterSeconds,
	})

	s.logger.Info("operation created",
		"id", op.ID,
		"polls_until_done", op.Spec.PollsUntilDone,
		"final_state", op.Spec.FinalState,
	)

	w.Header().Set("Operation-Location", locationURL(r, op.ID))
	s.writeStatus(w, op, http.StatusAccepted)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	op, ok := s.store.Observe(id)
	if !ok {
		http.Error(w, "operation not found", http.StatusNotFound)
		return
	}

	if op.Status == "running" && op.Spec.RetryAfterSeconds > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(op.Spec.RetryAfterSeconds))
	}
	s.writeStatus(w, op, http.StatusOK)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	ops := s.store.Snapshot()

	docs := make([]statusDocument, 0, len(ops))
	for _, op := range ops {
		docs = append(docs, statusDocument{ID: op.ID, Status: op.Status, Polls: op.Polls})
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(docs); err != nil {
		s.logger.Error("failed to write response", "error", err.Error())
	}
}

// locationURL builds the absolute status URL for an operation, so that
// clients can follow the Operation-Location header directly.
func locationURL(r *http.Request, id string) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host + "/operations/" + id
}

func (s *Server) writeStatus(w http.ResponseWriter, op Op, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	doc := statusDocument{ID: op.ID, Status: op.Status, Polls: op.Polls}
	if err := json.NewEncoder(w).Encode(doc); err != nil {
		s.logger.Error("failed to write response", "error", err.Error())
	}
}
