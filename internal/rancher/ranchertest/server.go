// Package ranchertest provides an in-memory platform API for tests.
package ranchertest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/lbsync/internal/domain"
)

const (
	AccessKey = "access"
	SecretKey = "secret"
)

// Service is a fake platform service.
type Service struct {
	ID     string
	Name   string
	Type   string
	Labels map[string]string
}

// Stack is a fake platform stack with its services.
type Stack struct {
	ID       string
	Name     string
	State    string
	Services []Service
}

// Server is a fake platform API backed by httptest.
type Server struct {
	*httptest.Server

	mu           sync.Mutex
	stacks       []Stack
	certificates []string
	failures     map[string]int // "METHOD path" -> status
	pageSize     int

	requests     []string
	serviceLinks [][]domain.ServiceLinkEntry
	certUpdates  [][]string
}

// NewServer starts a fake platform API. It is closed with the test.
func NewServer(t *testing.T, stacks []Stack, certificates []string) *Server {
	t.Helper()

	s := &Server{
		stacks:       stacks,
		certificates: certificates,
		failures:     make(map[string]int),
	}

	r := chi.NewRouter()
	r.Use(s.record, s.auth, s.fail)
	r.Get("/v1/environments", s.listStacks)
	r.Get("/v1/environments/{id}", s.getStack)
	r.Get("/v1/environments/{id}/services", s.listServices)
	r.Get("/v1/certificate", s.listCertificates)
	r.Post("/v1/services/{id}", s.setServiceLinks)
	r.Put("/v1/services/{id}", s.setCertificates)

	s.Server = httptest.NewServer(r)
	t.Cleanup(s.Close)
	return s
}

// Endpoint is the API base URL to configure clients with.
func (s *Server) Endpoint() string { return s.URL + "/v1" }

// EnvironmentLink is the link carried by events about a stack.
func (s *Server) EnvironmentLink(stackID string) string {
	return s.Endpoint() + "/environments/" + stackID
}

// FailWith makes every "METHOD path" request answer status.
func (s *Server) FailWith(method, path string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method+" "+path] = status
}

// Paginate splits every collection into pages of n items.
func (s *Server) Paginate(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pageSize = n
}

// Requests returns every "METHOD path" received, in order.
func (s *Server) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requests...)
}

// ServiceLinks returns the bodies of every setservicelinks call.
func (s *Server) ServiceLinks() [][]domain.ServiceLinkEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]domain.ServiceLinkEntry(nil), s.serviceLinks...)
}

// CertificateUpdates returns the bodies of every certificate update.
func (s *Server) CertificateUpdates() [][]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]string(nil), s.certUpdates...)
}

// Writes counts the write calls received.
func (s *Server) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.serviceLinks) + len(s.certUpdates)
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, r.Method+" "+r.URL.Path)
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != AccessKey || pass != SecretKey {
			http.Error(w, `{"type":"error","status":401}`, http.StatusUnauthorized)
			return
		}
		if r.Header.Get("Accept") != "application/json" {
			http.Error(w, "accept must be application/json", http.StatusNotAcceptable)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) fail(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		status, ok := s.failures[r.Method+" "+r.URL.Path]
		s.mu.Unlock()
		if ok {
			http.Error(w, `{"type":"error","code":"injected"}`, status)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) stackJSON(st Stack) map[string]any {
	return map[string]any{
		"id":    st.ID,
		"type":  "environment",
		"name":  st.Name,
		"state": st.State,
		"links": map[string]string{
			"self":     s.Endpoint() + "/environments/" + st.ID,
			"services": s.Endpoint() + "/environments/" + st.ID + "/services",
		},
	}
}

func (s *Server) serviceJSON(svc Service) map[string]any {
	self := s.Endpoint() + "/services/" + svc.ID
	return map[string]any{
		"id":           svc.ID,
		"name":         svc.Name,
		"type":         svc.Type,
		"state":        "active",
		"launchConfig": map[string]any{"labels": svc.Labels},
		"links":        map[string]string{"self": self},
		"actions":      map[string]string{"setservicelinks": self + "?action=setservicelinks"},
	}
}

func (s *Server) listStacks(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	items := make([]any, 0, len(s.stacks))
	for _, st := range s.stacks {
		items = append(items, s.stackJSON(st))
	}
	s.mu.Unlock()
	s.writeCollection(w, r, items)
}

func (s *Server) findStack(id string) (Stack, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, st := range s.stacks {
		if st.ID == id {
			return st, true
		}
	}
	return Stack{}, false
}

func (s *Server) getStack(w http.ResponseWriter, r *http.Request) {
	st, ok := s.findStack(chi.URLParam(r, "id"))
	if !ok {
		http.Error(w, `{"type":"error","status":404}`, http.StatusNotFound)
		return
	}
	writeJSON(w, s.stackJSON(st))
}

func (s *Server) listServices(w http.ResponseWriter, r *http.Request) {
	st, ok := s.findStack(chi.URLParam(r, "id"))
	if !ok {
		http.Error(w, `{"type":"error","status":404}`, http.StatusNotFound)
		return
	}
	items := make([]any, 0, len(st.Services))
	for _, svc := range st.Services {
		items = append(items, s.serviceJSON(svc))
	}
	s.writeCollection(w, r, items)
}

func (s *Server) listCertificates(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	items := make([]any, 0, len(s.certificates))
	for _, id := range s.certificates {
		items = append(items, map[string]string{"id": id, "name": "cert-" + id})
	}
	s.mu.Unlock()
	s.writeCollection(w, r, items)
}

func (s *Server) setServiceLinks(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("action") != "setservicelinks" {
		http.Error(w, `{"type":"error","status":405}`, http.StatusMethodNotAllowed)
		return
	}
	var body struct {
		ServiceLinks []domain.ServiceLinkEntry `json:"serviceLinks"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	s.mu.Lock()
	s.serviceLinks = append(s.serviceLinks, body.ServiceLinks)
	s.mu.Unlock()
	writeJSON(w, map[string]string{"id": chi.URLParam(r, "id")})
}

func (s *Server) setCertificates(w http.ResponseWriter, r *http.Request) {
	var body struct {
		CertificateIDs []string `json:"certificateIds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	s.mu.Lock()
	s.certUpdates = append(s.certUpdates, body.CertificateIDs)
	s.mu.Unlock()
	writeJSON(w, map[string]string{"id": chi.URLParam(r, "id")})
}

// writeCollection answers with the {"data": [...]} envelope, paginated
// with ?page=N when a page size is set.
func (s *Server) writeCollection(w http.ResponseWriter, r *http.Request, items []any) {
	s.mu.Lock()
	size := s.pageSize
	s.mu.Unlock()

	out := map[string]any{"type": "collection", "data": items}
	if size > 0 {
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		start := page * size
		if start > len(items) {
			start = len(items)
		}
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		out["data"] = items[start:end]
		if end < len(items) {
			out["pagination"] = map[string]string{
				"next": s.URL + r.URL.Path + "?page=" + strconv.Itoa(page+1),
			}
		}
	}
	writeJSON(w, out)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// StandardFleet is a fleet with the load balancer and one linked app.
func StandardFleet() []Stack {
	return []Stack{
		{
			ID: "1e1", Name: "utility", State: "active",
			Services: []Service{
				{ID: "1s1", Name: "lb", Type: domain.TypeLoadBalancerService},
			},
		},
		{
			ID: "1e2", Name: "my-app", State: "active",
			Services: []Service{
				{ID: "1s2", Name: "web", Type: domain.TypeService, Labels: map[string]string{"lb.link": "true", "lb.port": "3000"}},
			},
		},
	}
}
