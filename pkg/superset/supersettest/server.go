// Package supersettest provides an in-memory Superset REST API for tests.
//
// The server implements the endpoints docsync uses with Superset's
// semantics: column lists sent in a dataset update replace the stored list
// and owners missing from an update are cleared.
package supersettest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Default credentials accepted by the server.
const (
	Username = "admin"
	Password = "admin"
)

// Database is a dataset's database reference.
type Database struct {
	ID   int    `json:"id"`
	Name string `json:"database_name"`
}

// Owner is a dataset owner reference.
type Owner struct {
	ID int `json:"id"`
}

// Column is a stored dataset column.
type Column struct {
	ID          int     `json:"id"`
	ColumnName  string  `json:"column_name"`
	Description *string `json:"description"`
	Expression  *string `json:"expression,omitempty"`
	Type        string  `json:"type,omitempty"`
}

// Dataset is a stored dataset.
type Dataset struct {
	ID          int      `json:"id"`
	Kind        string   `json:"kind"`
	TableName   string   `json:"table_name"`
	Schema      string   `json:"schema"`
	Description *string  `json:"description"`
	Database    Database `json:"database"`
	Columns     []Column `json:"columns,omitempty"`
	Owners      []Owner  `json:"owners,omitempty"`
}

// Update is a recorded PUT /dataset/{id} body.
type Update struct {
	DatasetID   int      `json:"-"`
	Description *string  `json:"description"`
	Columns     []Column `json:"columns"`
	Owners      []int    `json:"owners"`
}

// Stats counts requests by kind.
type Stats struct {
	Logins          int
	Refreshes       int
	CSRFTokens      int
	ListPages       int
	Gets            int
	Puts            int
	ColumnRefreshes int
}

// Server is a fake Superset instance.
type Server struct {
	*httptest.Server

	mu          sync.Mutex
	datasets    map[int]*Dataset
	access      string
	refresh     string
	seq         int
	ttl         time.Duration
	expireNext  bool
	requireCSRF bool
	csrfToken   string
	failures    map[string]int
	updates     []Update
	stats       Stats
}

// NewServer starts a server holding the given datasets.
func NewServer(datasets ...Dataset) *Server {
	s := &Server{
		datasets:  make(map[int]*Dataset),
		refresh:   "refresh-token",
		csrfToken: "csrf-token",
		failures:  make(map[string]int),
	}
	for _, d := range datasets {
		s.AddDataset(d)
	}
	s.access = s.issueLocked()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/security/login", s.handleLogin)
	mux.HandleFunc("POST /api/v1/security/refresh", s.handleRefresh)
	mux.HandleFunc("GET /api/v1/security/csrf_token/", s.authenticated(s.handleCSRF))
	mux.HandleFunc("GET /api/v1/dataset/{$}", s.authenticated(s.handleList))
	mux.HandleFunc("GET /api/v1/dataset/{id}", s.authenticated(s.handleGet))
	mux.HandleFunc("PUT /api/v1/dataset/{id}", s.authenticated(s.handlePut))
	mux.HandleFunc("PUT /api/v1/dataset/{id}/refresh", s.authenticated(s.handleColumnRefresh))
	s.Server = httptest.NewServer(mux)
	return s
}

// Str returns a pointer to s.
func Str(s string) *string { return &s }

// AddDataset stores or replaces a dataset.
func (s *Server) AddDataset(d Dataset) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d.Kind == "" {
		d.Kind = "physical"
	}
	d.Columns = slices.Clone(d.Columns)
	d.Owners = slices.Clone(d.Owners)
	s.datasets[d.ID] = &d
}

// Dataset returns a copy of a stored dataset.
func (s *Server) Dataset(id int) (Dataset, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.datasets[id]
	if !ok {
		return Dataset{}, false
	}
	cp := *d
	cp.Columns = slices.Clone(d.Columns)
	cp.Owners = slices.Clone(d.Owners)
	return cp, true
}

// ColumnDescription returns the stored description of a column.
func (s *Server) ColumnDescription(datasetID, columnID int) *string {
	d, ok := s.Dataset(datasetID)
	if !ok {
		return nil
	}
	for _, c := range d.Columns {
		if c.ID == columnID {
			return c.Description
		}
	}
	return nil
}

// SetTokenTTL makes the server issue JWT access tokens that expire after
// ttl. Zero issues opaque tokens.
func (s *Server) SetTokenTTL(ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ttl = ttl
}

// ExpireToken makes the next authenticated request fail with
// "Token has expired" until the client refreshes.
func (s *Server) ExpireToken() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expireNext = true
}

// RequireCSRF rejects writes lacking the CSRF token and session cookie.
func (s *Server) RequireCSRF() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requireCSRF = true
}

// Fail makes every request with the given method to a dataset respond
// with status. Status 0 clears the failure.
func (s *Server) Fail(method string, datasetID, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := failureKey(method, datasetID)
	if status == 0 {
		delete(s.failures, key)
		return
	}
	s.failures[key] = status
}

// Updates returns the recorded dataset updates in arrival order.
func (s *Server) Updates() []Update {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.updates)
}

// Stats returns request counters.
func (s *Server) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

func failureKey(method string, id int) string {
	return method + " " + strconv.Itoa(id)
}

func (s *Server) issueLocked() string {
	s.seq++
	if s.ttl <= 0 {
		return fmt.Sprintf("access-token-%d", s.seq)
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": Username,
		"jti": strconv.Itoa(s.seq),
		"exp": time.Now().Add(s.ttl).Unix(),
	})
	signed, err := token.SignedString([]byte("supersettest"))
	if err != nil {
		panic(err)
	}
	return signed
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) authenticated(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		switch {
		case s.expireNext:
			s.mu.Unlock()
			writeJSON(w, http.StatusUnauthorized, map[string]string{"msg": "Token has expired"})
			return
		case token != s.access:
			s.mu.Unlock()
			writeJSON(w, http.StatusUnauthorized, map[string]string{"msg": "Invalid token"})
			return
		}
		if s.requireCSRF && r.Method != http.MethodGet {
			_, cookieErr := r.Cookie("session")
			if r.Header.Get("X-CSRFToken") != s.csrfToken || cookieErr != nil {
				s.mu.Unlock()
				writeJSON(w, http.StatusBadRequest, map[string]string{"message": "The CSRF token is missing."})
				return
			}
		}
		s.mu.Unlock()
		next(w, r)
	}
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
		Provider string `json:"provider"`
		Refresh  bool   `json:"refresh"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": err.Error()})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats.Logins++
	if body.Username != Username || body.Password != Password || body.Provider != "db" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Not authorized"})
		return
	}
	s.access = s.issueLocked()
	s.expireNext = false
	resp := map[string]string{"access_token": s.access}
	if body.Refresh {
		resp["refresh_token"] = s.refresh
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats.Refreshes++
	if r.Header.Get("Authorization") != "Bearer "+s.refresh {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"msg": "Invalid refresh token"})
		return
	}
	s.access = s.issueLocked()
	s.expireNext = false
	writeJSON(w, http.StatusOK, map[string]string{"access_token": s.access})
}

func (s *Server) handleCSRF(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	s.stats.CSRFTokens++
	token := s.csrfToken
	s.mu.Unlock()
	http.SetCookie(w, &http.Cookie{Name: "session", Value: "fake-session", Path: "/"})
	writeJSON(w, http.StatusOK, map[string]string{"result": token})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	var q struct {
		Page     int `json:"page"`
		PageSize int `json:"page_size"`
		Filters  []struct {
			Col   string `json:"col"`
			Opr   string `json:"opr"`
			Value any    `json:"value"`
		} `json:"filters"`
	}
	if raw := r.URL.Query().Get("q"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &q); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"message": err.Error()})
			return
		}
	}
	if q.PageSize <= 0 {
		q.PageSize = 20
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats.ListPages++

	ids := make([]int, 0, len(s.datasets))
	for id := range s.datasets {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	var matched []Dataset
	for _, id := range ids {
		d := *s.datasets[id]
		keep := true
		for _, f := range q.Filters {
			switch f.Col {
			case "schema":
				keep = keep && compare(f.Opr, d.Schema, fmt.Sprint(f.Value))
			case "database":
				keep = keep && fmt.Sprint(d.Database.ID) == fmt.Sprint(f.Value)
			}
		}
		if keep {
			d.Columns, d.Owners = nil, nil
			matched = append(matched, d)
		}
	}

	start := min(q.Page*q.PageSize, len(matched))
	end := min(start+q.PageSize, len(matched))
	writeJSON(w, http.StatusOK, map[string]any{
		"count":  len(matched),
		"result": append([]Dataset{}, matched[start:end]...),
	})
}

func (s *Server) dataset(w http.ResponseWriter, r *http.Request) (*Dataset, bool) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid id"})
		return nil, false
	}
	if status, ok := s.failures[failureKey(r.Method, id)]; ok {
		writeJSON(w, status, map[string]string{"message": http.StatusText(status)})
		return nil, false
	}
	d, ok := s.datasets[id]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Not found"})
		return nil, false
	}
	return d, true
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats.Gets++
	d, ok := s.dataset(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": d.ID, "result": d})
}

func (s *Server) handlePut(w http.ResponseWriter, r *http.Request) {
	var u Update
	if err := json.NewDecoder(r.Body).Decode(&u); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": err.Error()})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats.Puts++
	d, ok := s.dataset(w, r)
	if !ok {
		return
	}
	u.DatasetID = d.ID
	s.updates = append(s.updates, u)

	if u.Description != nil {
		d.Description = u.Description
	}
	if u.Columns != nil {
		d.Columns = u.Columns
	}
	d.Owners = d.Owners[:0]
	for _, id := range u.Owners {
		d.Owners = append(d.Owners, Owner{ID: id})
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": d.ID, "result": map[string]any{}})
}

func (s *Server) handleColumnRefresh(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats.ColumnRefreshes++
	if _, ok := s.dataset(w, r); !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "OK"})
}

// compare evaluates a list filter operator the way Superset does: eq is
// case-sensitive, ct is ILIKE '%value%'.
func compare(opr, field, value string) bool {
	switch opr {
	case "ct":
		return strings.Contains(strings.ToLower(field), strings.ToLower(value))
	default:
		return field == value
	}
}
