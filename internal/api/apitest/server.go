// Package apitest runs an in-memory Bug Track API for tests.
package apitest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"

	"github.com/tgienger/bugtrack/internal/models"
)

// Test credentials accepted by the login endpoint.
const (
	UserEmail    = "ada@example.com"
	UserPassword = "hunter22"
	UserName     = "Ada"
	UserID       = 7
)

var signingKey = []byte("apitest-secret")

// Server is a fake Bug Track API backed by in-memory data.
type Server struct {
	*httptest.Server

	mu          sync.Mutex
	dbms        []models.Dbms
	bugs        []models.BugReport
	discussions []models.Discussion
	trend       []int
	summary     string

	users        map[string]user
	access       map[string]bool
	refresh      map[string]bool
	failRefresh  bool
	issued       int
	nextID       int64
	calls        map[string]int
	lastAuth     map[string]string
	requestPaths []string
}

type user struct {
	id       int64
	name     string
	password string
}

// New starts a server seeded with two DBMS tenants and a few bugs. It is
// closed when the test ends.
func New(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		users:    map[string]user{UserEmail: {id: UserID, name: UserName, password: UserPassword}},
		access:   map[string]bool{},
		refresh:  map[string]bool{},
		calls:    map[string]int{},
		lastAuth: map[string]string{},
		nextID:   1000,
		summary:  "Mostly **crashes** in the pager.",
		trend:    []int{0, 1, 0, 3, 2},
		dbms: []models.Dbms{
			{ID: 1, Name: "SQLite"},
			{ID: 2, Name: "DuckDB"},
		},
	}
	s.bugs = seedBugs()
	s.Server = httptest.NewServer(s.routes())
	t.Cleanup(s.Close)
	return s
}

func seedBugs() []models.BugReport {
	created := models.Time{Time: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	mk := func(id, dbms int64, cat int, title string) models.BugReport {
		c := cat
		desc := "Steps to reproduce for " + title
		return models.BugReport{
			ID:             id,
			DbmsID:         dbms,
			CategoryID:     &c,
			Title:          title,
			Description:    &desc,
			URL:            fmt.Sprintf("https://example.com/issues/%d", id),
			Priority:       models.PriorityUnassigned,
			IssueCreatedAt: created,
		}
	}
	return []models.BugReport{
		mk(1, 1, 0, "Segfault in pager"),
		mk(2, 1, 2, "Hang on vacuum"),
		mk(3, 1, 0, "Segfault in btree"),
		mk(4, 1, 8, "Deadlock on attach"),
		mk(5, 1, 0, "Segfault in json"),
		mk(6, 2, 3, "Wrong result for window function"),
	}
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.record)

	r.Post("/public/api/v1/auth/login", s.login)
	r.Post("/public/api/v1/auth/signup", s.signup)
	r.Post("/api/v1/auth/refresh", s.refreshTokens)

	r.Group(func(r chi.Router) {
		r.Use(s.requireAccess)

		r.Get("/api/v1/dbms/", s.listDbms)
		r.Get("/api/v1/dbms/{dbms_id}", s.getDbms)
		r.Get("/api/v1/dbms/{dbms_id}/ai_summary", s.dbmsSummary)
		r.Get("/api/v1/dbms/{dbms_id}/bug_search", s.bugSearch)
		r.Get("/api/v1/dbms/{dbms_id}/bug_search_category", s.bugSearchCategory)
		r.Get("/api/v1/dbms/{dbms_id}/bug_trend", s.bugTrend)

		r.Get("/api/v1/bug_reports/{bug_id}", s.getBug)
		r.Patch("/api/v1/bug_reports/{bug_id}/category", s.patchBug("category_id"))
		r.Patch("/api/v1/bug_reports/{bug_id}/priority", s.patchBug("priority_level"))
		r.Patch("/api/v1/bug_reports/{bug_id}/versions_affected", s.patchBug("updated_versions"))
		r.Get("/api/v1/bug_reports/{bug_id}/ai_summary", s.dbmsSummary)

		r.Get("/api/v1/categories/", s.listCategories)

		r.Get("/api/v1/discussions/", s.listDiscussions)
		r.Post("/api/v1/discussions/", s.addComment)
		r.Get("/api/v1/discussions/{id}", s.getDiscussion)
		r.Post("/api/v1/discussions/{id}/reply", s.addReply)
	})
	return r
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.calls[r.URL.Path]++
		s.lastAuth[r.URL.Path] = r.Header.Get("Authorization")
		s.requestPaths = append(s.requestPaths, r.URL.Path)
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requireAccess(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearer(r)
		s.mu.Lock()
		ok := s.access[token]
		s.mu.Unlock()
		if !ok {
			writeError(w, r, http.StatusUnauthorized, "Could not validate credentials")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Calls returns how many requests hit path
func (s *Server) Calls(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[path]
}

// TotalCalls returns the number of requests served
func (s *Server) TotalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requestPaths)
}

// LastAuthorization returns the Authorization header of the last request to path
func (s *Server) LastAuthorization(path string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastAuth[path]
}

// IssueTokens signs in the test user directly and returns the token pair
func (s *Server) IssueTokens() models.AuthResponse {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.issueLocked(UserID, UserName, UserEmail)
}

// ExpireAccessTokens invalidates every access token issued so far
func (s *Server) ExpireAccessTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.access = map[string]bool{}
}

// FailRefresh makes the refresh endpoint answer 401
func (s *Server) FailRefresh(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failRefresh = fail
}

// SetDbms replaces the tenant list
func (s *Server) SetDbms(list []models.Dbms) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dbms = list
}

// SetTrend replaces the trend series
func (s *Server) SetTrend(trend []int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trend = trend
}

func (s *Server) issueLocked(id int64, name, email string) models.AuthResponse {
	s.issued++
	sign := func(kind string, ttl time.Duration) string {
		tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"sub":        email,
			"id":         id,
			"name":       name,
			"token_type": kind,
			"exp":        time.Now().Add(ttl).Unix(),
			"jti":        strconv.Itoa(s.issued),
		})
		signed, err := tok.SignedString(signingKey)
		if err != nil {
			panic(err)
		}
		return signed
	}
	access := sign("access", 30*time.Minute)
	refresh := sign("refresh", 24*time.Hour)
	s.access[access] = true
	s.refresh[refresh] = true
	return models.AuthResponse{AccessToken: access, RefreshToken: refresh, TokenType: "bearer", UserID: id}
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var in models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid body")
		return
	}
	s.mu.Lock()
	u, ok := s.users[in.Email]
	if !ok || u.password != in.Password {
		s.mu.Unlock()
		writeError(w, r, http.StatusUnauthorized, "Incorrect email or password")
		return
	}
	out := s.issueLocked(u.id, u.name, in.Email)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) signup(w http.ResponseWriter, r *http.Request) {
	var in models.SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Email == "" {
		writeError(w, r, http.StatusBadRequest, "invalid body")
		return
	}
	s.mu.Lock()
	if _, exists := s.users[in.Email]; exists {
		s.mu.Unlock()
		writeError(w, r, http.StatusConflict, "User already exists")
		return
	}
	s.nextID++
	s.users[in.Email] = user{id: s.nextID, name: in.Name, password: in.Password}
	out := s.issueLocked(s.nextID, in.Name, in.Email)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) refreshTokens(w http.ResponseWriter, r *http.Request) {
	token := bearer(r)
	s.mu.Lock()
	if s.failRefresh || !s.refresh[token] {
		s.mu.Unlock()
		writeError(w, r, http.StatusUnauthorized, "Invalid refresh token")
		return
	}
	claims := jwt.MapClaims{}
	_, _, err := jwt.NewParser().ParseUnverified(token, claims)
	if err != nil {
		s.mu.Unlock()
		writeError(w, r, http.StatusUnauthorized, "Invalid refresh token")
		return
	}
	id, _ := claims["id"].(float64)
	name, _ := claims["name"].(string)
	sub, _ := claims["sub"].(string)
	out := s.issueLocked(int64(id), name, sub)
	// The API keeps the refresh token it was given.
	delete(s.refresh, out.RefreshToken)
	out.RefreshToken = token
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) listDbms(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, s.dbms)
}

func (s *Server) getDbms(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt(w, r, "dbms_id")
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.dbms {
		if d.ID != id {
			continue
		}
		detail := models.DbmsDetail{ID: d.ID, Name: d.Name}
		counts := map[int]int{}
		for _, b := range s.bugs {
			if b.DbmsID == id {
				detail.BugCount++
				if b.CategoryID != nil {
					counts[*b.CategoryID]++
				}
			}
		}
		for i, name := range categoryNames {
			detail.BugCategories = append(detail.BugCategories, models.BugCategory{ID: i, Name: name, Count: counts[i]})
		}
		writeJSON(w, http.StatusOK, detail)
		return
	}
	writeError(w, r, http.StatusNotFound, "DBMS not found")
}

func (s *Server) dbmsSummary(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, models.AiSummary{Summary: s.summary})
}

func (s *Server) bugSearch(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt(w, r, "dbms_id")
	if !ok {
		return
	}
	q := r.URL.Query()
	search := strings.ToLower(q.Get("search"))
	start, _ := strconv.Atoi(q.Get("start"))
	limit, err := strconv.Atoi(q.Get("limit"))
	if err != nil || limit <= 0 {
		limit = 10
	}
	var category *int
	if c, err := strconv.Atoi(q.Get("category_id")); err == nil {
		category = &c
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	matched := []models.BugReport{}
	for _, b := range s.bugs {
		if b.DbmsID != id || !strings.Contains(strings.ToLower(b.Title), search) {
			continue
		}
		if category != nil && (b.CategoryID == nil || *b.CategoryID != *category) {
			continue
		}
		matched = append(matched, b)
	}
	writeJSON(w, http.StatusOK, models.BugSearchResponse{BugReports: page(matched, start, limit)})
}

func (s *Server) bugSearchCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt(w, r, "dbms_id")
	if !ok {
		return
	}
	q := r.URL.Query()
	category, err := strconv.Atoi(q.Get("category_id"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "category_id is required")
		return
	}
	amount, err := strconv.Atoi(q.Get("amount"))
	if err != nil || amount <= 0 {
		amount = 5
	}
	distr := make([]int, len(categoryNames))
	if raw := q.Get("distribution"); raw != "" {
		for i, part := range strings.Split(raw, ",") {
			if i >= len(distr) {
				break
			}
			distr[i], _ = strconv.Atoi(part)
		}
	}
	if category < 0 || category >= len(distr) {
		writeError(w, r, http.StatusBadRequest, "unknown category")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	inCategory := []models.BugReport{}
	for _, b := range s.bugs {
		if b.DbmsID == id && b.CategoryID != nil && *b.CategoryID == category {
			inCategory = append(inCategory, b)
		}
	}
	delta := page(inCategory, distr[category], amount)
	distr[category] += len(delta)
	writeJSON(w, http.StatusOK, models.BugSearchCategoryResponse{NewBugDistr: distr, BugReportsDelta: delta})
}

func (s *Server) bugTrend(w http.ResponseWriter, r *http.Request) {
	days, err := strconv.Atoi(r.URL.Query().Get("days"))
	if err != nil || days <= 0 {
		days = 30
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]int, days)
	copy(out[max(0, days-len(s.trend)):], s.trend[max(0, len(s.trend)-days):])
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getBug(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt(w, r, "bug_id")
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if b := s.findBugLocked(id); b != nil {
		writeJSON(w, http.StatusOK, b)
		return
	}
	writeError(w, r, http.StatusNotFound, "Bug report not found")
}

func (s *Server) patchBug(field string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathInt(w, r, "bug_id")
		if !ok {
			return
		}
		var body map[string]json.RawMessage
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body[field] == nil {
			writeError(w, r, http.StatusBadRequest, field+" is required")
			return
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		b := s.findBugLocked(id)
		if b == nil {
			writeError(w, r, http.StatusNotFound, "Bug report not found")
			return
		}
		var err error
		switch field {
		case "category_id":
			var c int
			if err = json.Unmarshal(body[field], &c); err == nil {
				name := categoryNames[min(max(c, 0), len(categoryNames)-1)]
				b.CategoryID, b.Category = &c, &name
			}
		case "priority_level":
			err = json.Unmarshal(body[field], &b.Priority)
		case "updated_versions":
			err = json.Unmarshal(body[field], &b.VersionsAffected)
		}
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "invalid "+field)
			return
		}
		writeJSON(w, http.StatusOK, b)
	}
}

func (s *Server) findBugLocked(id int64) *models.BugReport {
	for i := range s.bugs {
		if s.bugs[i].ID == id {
			return &s.bugs[i]
		}
	}
	return nil
}

func (s *Server) listCategories(w http.ResponseWriter, r *http.Request) {
	out := make([]models.BugCategory, 0, len(categoryNames))
	for i, name := range categoryNames {
		out = append(out, models.BugCategory{ID: i, Name: name})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) listDiscussions(w http.ResponseWriter, r *http.Request) {
	bugID, err := strconv.ParseInt(r.URL.Query().Get("bug_report_id"), 10, 64)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "bug_report_id is required")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Discussion{}
	for _, d := range s.discussions {
		if d.ID/1000 == bugID {
			out = append(out, d)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getDiscussion(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt(w, r, "id")
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.discussions {
		if d.ID == id {
			writeJSON(w, http.StatusOK, d)
			return
		}
	}
	writeError(w, r, http.StatusNotFound, "Discussion not found")
}

func (s *Server) addComment(w http.ResponseWriter, r *http.Request) {
	var in struct {
		BugReportID int64  `json:"bug_report_id"`
		Content     string `json:"content"`
		AuthorID    int64  `json:"author_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Content == "" {
		writeError(w, r, http.StatusBadRequest, "content is required")
		return
	}
	now := models.Time{Time: time.Now().UTC()}
	s.mu.Lock()
	defer s.mu.Unlock()
	// Discussion ids encode their bug so listing needs no extra index.
	d := models.Discussion{
		ID:        in.BugReportID*1000 + int64(len(s.discussions)+1),
		IsThread:  true,
		Author:    s.authorLocked(in.AuthorID),
		Content:   in.Content,
		Replies:   []models.DiscussionReply{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.discussions = append(s.discussions, d)
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) addReply(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt(w, r, "id")
	if !ok {
		return
	}
	var in struct {
		Content  string `json:"content"`
		AuthorID int64  `json:"author_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Content == "" {
		writeError(w, r, http.StatusBadRequest, "content is required")
		return
	}
	now := models.Time{Time: time.Now().UTC()}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.discussions {
		d := &s.discussions[i]
		if d.ID != id {
			continue
		}
		d.Replies = append(d.Replies, models.DiscussionReply{
			ID:        id*100 + int64(len(d.Replies)+1),
			Author:    s.authorLocked(in.AuthorID),
			Content:   in.Content,
			CreatedAt: now,
			UpdatedAt: now,
		})
		writeJSON(w, http.StatusOK, d)
		return
	}
	writeError(w, r, http.StatusNotFound, "Discussion not found")
}

func (s *Server) authorLocked(id int64) models.UserSummary {
	for email, u := range s.users {
		if u.id == id {
			return models.UserSummary{ID: id, Name: u.name, Email: email}
		}
	}
	return models.UserSummary{ID: id}
}

var categoryNames = []string{
	"Crash / Segmentation Fault",
	"Assertion Failure",
	"Infinite Loop / Hang",
	"Incorrect Query Result",
	"Transaction Anomaly",
	"Constraint Violation",
	"Data Corruption",
	"Performance Degradation",
	"Deadlock",
	"Others",
}

func page(in []models.BugReport, start, limit int) []models.BugReport {
	if start >= len(in) {
		return []models.BugReport{}
	}
	end := min(start+limit, len(in))
	return append([]models.BugReport{}, in[start:end]...)
}

func bearer(r *http.Request) string {
	return strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
}

func pathInt(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	v, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, name+" must be an integer")
		return 0, false
	}
	return v, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, status, map[string]any{
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"path":      r.URL.Path,
		"status":    status,
		"error":     msg,
	})
}
