// Package api is the minimal read-only HTTP surface over the journal and
// job store: GET /variables, GET /sample, GET /jobs. Per the "no HTTP
// routing" non-goal this deliberately uses only net/http's ServeMux, not a
// router library from the pack.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"amcjournal/internal/jobstore"
	"amcjournal/internal/journal"
	"amcjournal/internal/logging"
)

// Journal is the subset of *journal.Controller the API needs.
type Journal interface {
	ComputeSample(name string, t uint64) (journal.Sample, error)
}

// Server serves the read-only JSON surface. It holds no state of its own
// beyond what Journal and Jobs already own.
type Server struct {
	journal Journal
	jobs    jobstore.Store
	logger  *slog.Logger
	names   func() []string
}

// New constructs a Server. namesFn lists the currently registered variable
// names for GET /variables; it is a function rather than a stored slice
// since the registry can still grow while Configuring.
func New(j Journal, jobs jobstore.Store, namesFn func() []string, logger *slog.Logger) *Server {
	logger = logging.Default(logger).With("component", "api")
	return &Server{journal: j, jobs: jobs, logger: logger, names: namesFn}
}

func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /variables", s.handleVariables)
	mux.HandleFunc("GET /sample", s.handleSample)
	mux.HandleFunc("GET /jobs", s.handleJobs)
	return mux
}

func (s *Server) handleVariables(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"variables": s.names()})
}

func (s *Server) handleSample(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	tStr := r.URL.Query().Get("t")
	if name == "" || tStr == "" {
		writeError(w, http.StatusBadRequest, "name and t query parameters are required")
		return
	}
	t, err := strconv.ParseUint(tStr, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "t must be an unsigned integer microsecond timestamp")
		return
	}

	sample, err := s.journal.ComputeSample(name, t)
	if err != nil {
		s.writeJournalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"name":  name,
		"t":     t,
		"kind":  sample.Kind.String(),
		"value": sample.Value,
	})
}

func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := s.jobs.List(r.Context())
	if err != nil {
		s.logger.Error("list jobs failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list jobs")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"jobs": jobs})
}

func (s *Server) writeJournalError(w http.ResponseWriter, err error) {
	kind, ok := journal.KindOf(err)
	if !ok {
		s.logger.Error("unrecognized journal error", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	switch kind {
	case journal.UnknownVariable, journal.UnknownAlias:
		writeError(w, http.StatusNotFound, err.Error())
	case journal.InvalidParam, journal.TimeOutOfRange, journal.NotNumeric:
		writeError(w, http.StatusBadRequest, err.Error())
	case journal.WrongLifecycle:
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
