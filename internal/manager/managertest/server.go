// Package managertest provides an in-process management service for tests.
package managertest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/go-chi/chi/v5"

	"github.com/stacklok/ontology-registry/internal/manager"
)

type request struct {
	Action string `json:"action"`
	Param  string `json:"param"`
}

type response struct {
	Code   int      `json:"code"`
	Values []string `json:"values,omitempty"`
}

// Server is a fake management service holding named instances in memory.
// It is ready by default.
type Server struct {
	*httptest.Server

	ready atomic.Bool

	mu        sync.Mutex
	instances map[string]struct{}
	calls     map[string]int
	failing   map[string]bool
	requestID []string
}

// NewServer starts a fake management service. Callers must Close it.
func NewServer() *Server {
	s := &Server{
		instances: make(map[string]struct{}),
		calls:     make(map[string]int),
		failing:   make(map[string]bool),
	}
	s.ready.Store(true)
	s.Server = httptest.NewUnstartedServer(s.Router())
	// keep-alives off so closing one server does not disturb clients shared across parallel tests
	s.Config.SetKeepAlivesEnabled(false)
	s.Start()
	return s
}

// Router returns the chi router serving the management API
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Get(manager.HealthPath, s.handleHealth)
	r.Post(manager.ManagePath, s.handleManage)
	return r
}

// SetReady controls whether the health endpoint reports ready
func (s *Server) SetReady(ready bool) {
	s.ready.Store(ready)
}

// Seed creates instances without counting calls
func (s *Server) Seed(names ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, name := range names {
		s.instances[name] = struct{}{}
	}
}

// FailAction forces every call of action to return CodeFailure
func (s *Server) FailAction(action string, fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failing[action] = fail
}

// Calls returns the number of management calls received for action
func (s *Server) Calls(action string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[action]
}

// TotalCalls returns the number of management calls received
func (s *Server) TotalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, n := range s.calls {
		total += n
	}
	return total
}

// RequestIDs returns the request identifiers seen so far
func (s *Server) RequestIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.requestID)
}

// Has reports whether the named instance exists
func (s *Server) Has(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.instances[name]
	return ok
}

// Instances returns the sorted instance names
func (s *Server) Instances() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sortedNames()
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	if !s.ready.Load() {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleManage(w http.ResponseWriter, r *http.Request) {
	var req request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeResponse(w, response{Code: manager.CodeRequestError})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls[req.Action]++
	s.requestID = append(s.requestID, r.Header.Get(manager.RequestIDHeader))
	if s.failing[req.Action] {
		writeResponse(w, response{Code: manager.CodeFailure})
		return
	}

	writeResponse(w, s.apply(req))
}

func (s *Server) apply(req request) response {
	switch req.Action {
	case manager.ActionAdd:
		if req.Param == "" {
			return response{Code: manager.CodeRequestError}
		}
		if _, ok := s.instances[req.Param]; ok {
			return response{Code: manager.CodeNoEffect}
		}
		s.instances[req.Param] = struct{}{}
	case manager.ActionCopy:
		dest, src, ok := strings.Cut(req.Param, "=")
		if !ok || dest == "" || src == "" {
			return response{Code: manager.CodeRequestError}
		}
		if _, exists := s.instances[src]; !exists {
			return response{Code: manager.CodeFailure}
		}
		if _, exists := s.instances[dest]; exists {
			return response{Code: manager.CodeNoEffect}
		}
		s.instances[dest] = struct{}{}
	case manager.ActionDelete:
		if _, ok := s.instances[req.Param]; !ok {
			return response{Code: manager.CodeNoEffect}
		}
		delete(s.instances, req.Param)
	case manager.ActionList:
		return response{Code: manager.CodeSuccess, Values: s.sortedNames()}
	default:
		return response{Code: manager.CodeUnknownAction}
	}
	return response{Code: manager.CodeSuccess}
}

func (s *Server) sortedNames() []string {
	names := make([]string, 0, len(s.instances))
	for name := range s.instances {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func writeResponse(w http.ResponseWriter, resp response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(resp)
}
