// Package kietest runs a fake kie.ai API for adapter tests.
package kietest

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"vidiai/internal/providers/kie"
)

// Request is one call captured by the fake server.
type Request struct {
	Method string
	Path   string
	Query  map[string]string
	Body   map[string]any
}

// Server serves canned JSON per path and records every request.
type Server struct {
	*httptest.Server

	mu        sync.Mutex
	responses map[string]response
	requests  []Request
}

type response struct {
	status int
	body   []byte
}

// New starts a server that is closed when t finishes.
func New(t testing.TB) *Server {
	t.Helper()
	s := &Server{responses: map[string]response{}}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Close)
	return s
}

// Client returns a kie client pointed at the server.
func (s *Server) Client(t testing.TB) *kie.Client {
	t.Helper()
	c, err := kie.NewClient(kie.Options{APIKey: "test-key", BaseURL: s.URL, CallbackURL: "https://cb.test/hook"})
	if err != nil {
		t.Fatalf("kie.NewClient: %v", err)
	}
	return c
}

// Respond sets the JSON payload returned for path.
func (s *Server) Respond(path string, status int, payload any) {
	body, _ := json.Marshal(payload)
	s.mu.Lock()
	s.responses[path] = response{status: status, body: body}
	s.mu.Unlock()
}

// Task is a successful createTask envelope.
func Task(id string) map[string]any {
	return map[string]any{"code": 200, "msg": "success", "data": map[string]any{"taskId": id}}
}

// Data wraps a record in a success envelope.
func Data(data any) map[string]any {
	return map[string]any{"code": 200, "msg": "success", "data": data}
}

// Requests returns a copy of the captured requests.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// Last returns the most recent request or the zero value.
func (s *Server) Last() Request {
	reqs := s.Requests()
	if len(reqs) == 0 {
		return Request{}
	}
	return reqs[len(reqs)-1]
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	raw, _ := io.ReadAll(r.Body)
	var body map[string]any
	_ = json.Unmarshal(raw, &body)
	query := map[string]string{}
	for k := range r.URL.Query() {
		query[k] = r.URL.Query().Get(k)
	}

	s.mu.Lock()
	s.requests = append(s.requests, Request{Method: r.Method, Path: r.URL.Path, Query: query, Body: body})
	resp, ok := s.responses[r.URL.Path]
	s.mu.Unlock()

	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.status)
	_, _ = w.Write(resp.body)
}
