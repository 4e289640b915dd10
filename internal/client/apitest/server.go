// Package apitest provides an in-process fake of the user directory backend
// for tests. It speaks the same JSON envelopes as the real API, issues
// JWT-shaped tokens and records every call it receives.
package apitest

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/userconsole/internal/client/models"
	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
)

var signingKey = []byte("apitest-signing-key")

type account struct {
	user     models.User
	password string
}

// Server is a fake backend. The exported knobs may be changed between calls.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	accounts []*account
	nextID   int64
	access   map[string]int64
	refresh  map[string]int64
	calls    map[string]int
	seq      int

	// CSVContentType overrides the export Content-Type (default "text/csv; charset=utf-8").
	CSVContentType string
	// FailStatus forces "METHOD /path" to answer with the given status.
	FailStatus map[string]int
	// RotateRefresh makes the refresh endpoint also return a new refresh token.
	RotateRefresh bool
	// BeforeRefresh, when set, runs before the refresh endpoint answers.
	BeforeRefresh func()
}

// New starts a fake backend that is closed when the test ends.
func New(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		nextID:     1,
		access:     make(map[string]int64),
		refresh:    make(map[string]int64),
		calls:      make(map[string]int),
		FailStatus: make(map[string]int),
	}
	s.Server = httptest.NewServer(s.routes())
	t.Cleanup(s.Close)
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.record, s.forcedFailures)

	r.Post("/api/token/", s.handleLogin)
	r.Post("/api/token/refresh/", s.handleRefresh)

	r.Route("/api/v1/users", func(r chi.Router) {
		r.Use(s.authenticate)
		r.Get("/", s.handleList)
		r.Post("/", s.handleCreate)
		r.Get("/export/csv/", s.handleExport)
		r.Put("/{id:[0-9]+}/", s.handleUpdate)
		r.Delete("/{id:[0-9]+}/", s.handleDelete)
	})
	return r
}

// AddUser registers a directory user that can also log in with password.
func (s *Server) AddUser(u models.User, password string) models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addLocked(u, password)
}

func (s *Server) addLocked(u models.User, password string) models.User {
	u.ID = s.nextID
	s.nextID++
	joined := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(u.ID) * time.Hour)
	u.DateJoined = &joined
	s.accounts = append(s.accounts, &account{user: u, password: password})
	return u
}

// Users returns the current directory in server order.
func (s *Server) Users() []models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.User, 0, len(s.accounts))
	for _, a := range s.accounts {
		out = append(out, a.user)
	}
	return out
}

// Password returns the stored password of user id.
func (s *Server) Password(id int64) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a := s.findLocked(id); a != nil {
		return a.password
	}
	return ""
}

// IssueTokens mints a valid token pair for userID, as a login would.
func (s *Server) IssueTokens(userID int64) models.TokenPair {
	s.mu.Lock()
	defer s.mu.Unlock()
	return models.TokenPair{Access: s.mintLocked("access", userID), Refresh: s.mintLocked("refresh", userID)}
}

// ExpireAccessTokens invalidates every access token issued so far.
func (s *Server) ExpireAccessTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.access = make(map[string]int64)
}

// RevokeRefreshTokens invalidates every refresh token issued so far.
func (s *Server) RevokeRefreshTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refresh = make(map[string]int64)
}

// Calls reports how many times "METHOD /path" was requested.
func (s *Server) Calls(method, path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[method+" "+path]
}

// TotalCalls reports the number of requests of any kind.
func (s *Server) TotalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		n += c
	}
	return n
}

func (s *Server) mintLocked(kind string, userID int64) string {
	s.seq++
	claims := jwt.MapClaims{
		"token_type": kind,
		"user_id":    userID,
		"jti":        strconv.Itoa(s.seq),
		"exp":        time.Now().Add(time.Hour).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(signingKey)
	if err != nil {
		panic(err)
	}
	if kind == "access" {
		s.access[token] = userID
	} else {
		s.refresh[token] = userID
	}
	return token
}

func (s *Server) findLocked(id int64) *account {
	for _, a := range s.accounts {
		if a.user.ID == id {
			return a
		}
	}
	return nil
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.calls[r.Method+" "+r.URL.Path]++
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) forcedFailures(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		status, ok := s.FailStatus[r.Method+" "+r.URL.Path]
		s.mu.Unlock()
		if ok {
			writeJSON(w, status, map[string]any{"mensaje": "forced failure", "error": http.StatusText(status)})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		s.mu.Lock()
		_, valid := s.access[token]
		s.mu.Unlock()
		if !ok || !valid {
			writeJSON(w, http.StatusUnauthorized, map[string]any{
				"detail": "Given token not valid for any token type",
				"code":   "token_not_valid",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"detail": "malformed body"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if a.user.Email == in.Email && a.password == in.Password {
			writeJSON(w, http.StatusOK, map[string]any{
				"access":  s.mintLocked("access", a.user.ID),
				"refresh": s.mintLocked("refresh", a.user.ID),
				"user":    models.ProfileFromUser(a.user),
			})
			return
		}
	}
	writeJSON(w, http.StatusUnauthorized, map[string]any{"detail": "No active account found with the given credentials"})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Refresh string `json:"refresh"`
	}
	_ = json.NewDecoder(r.Body).Decode(&in)
	if s.BeforeRefresh != nil {
		s.BeforeRefresh()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	userID, ok := s.refresh[in.Refresh]
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"detail": "Token is invalid or expired", "code": "token_not_valid"})
		return
	}
	out := map[string]any{"access": s.mintLocked("access", userID)}
	if s.RotateRefresh {
		delete(s.refresh, in.Refresh)
		out["refresh"] = s.mintLocked("refresh", userID)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"data": s.Users()})
}

type userPayload struct {
	Email     *string `json:"email"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Phone     *string `json:"phone"`
	Password  *string `json:"password"`
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var in userPayload
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"mensaje": "Error al crear el usuario", "error": "malformed body"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	fields := map[string][]string{}
	for name, v := range map[string]*string{"email": in.Email, "first_name": in.FirstName, "last_name": in.LastName, "password": in.Password} {
		if v == nil || *v == "" {
			fields[name] = []string{"This field is required."}
		}
	}
	if in.Password != nil && *in.Password != "" && len(*in.Password) < 8 {
		fields["password"] = []string{"Ensure this field has at least 8 characters."}
	}
	if in.Email != nil && s.emailTakenLocked(*in.Email, 0) {
		fields["email"] = []string{"Error el correo ya existe"}
	}
	if len(fields) > 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{"mensaje": "Error al crear el usuario", "error": fields})
		return
	}

	u := models.User{Email: *in.Email, FirstName: *in.FirstName, LastName: *in.LastName}
	if in.Phone != nil {
		u.Phone = *in.Phone
	}
	u = s.addLocked(u, *in.Password)
	writeJSON(w, http.StatusCreated, map[string]any{"mensaje": "El usuario se creó correctamente", "data": u})
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)

	var in userPayload
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"mensaje": "Error al actualizar el usuario", "error": "malformed body"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	a := s.findLocked(id)
	if a == nil {
		writeJSON(w, http.StatusNotFound, map[string]any{"mensaje": "El usuario no existe"})
		return
	}
	if in.Email != nil && s.emailTakenLocked(*in.Email, id) {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"mensaje": "Error al actualizar el usuario",
			"error":   map[string][]string{"email": {"Error el correo ya existe"}},
		})
		return
	}
	if in.Password != nil && *in.Password != "" {
		if len(*in.Password) < 8 {
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"mensaje": "Error al actualizar el usuario",
				"error":   map[string][]string{"password": {"Ensure this field has at least 8 characters."}},
			})
			return
		}
		a.password = *in.Password
	}
	if in.Email != nil {
		a.user.Email = *in.Email
	}
	if in.FirstName != nil {
		a.user.FirstName = *in.FirstName
	}
	if in.LastName != nil {
		a.user.LastName = *in.LastName
	}
	if in.Phone != nil {
		a.user.Phone = *in.Phone
	}
	writeJSON(w, http.StatusOK, map[string]any{"mensaje": "El usuario se actualizó correctamente", "data": a.user})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)

	s.mu.Lock()
	defer s.mu.Unlock()

	for i, a := range s.accounts {
		if a.user.ID == id {
			s.accounts = append(s.accounts[:i], s.accounts[i+1:]...)
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]any{"mensaje": "El usuario no existe"})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	users := s.Users()
	sort.SliceStable(users, func(i, j int) bool { return users[i].ID < users[j].ID })

	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	_ = cw.Write([]string{"id", "email", "first_name", "last_name", "phone"})
	for _, u := range users {
		_ = cw.Write([]string{strconv.FormatInt(u.ID, 10), u.Email, u.FirstName, u.LastName, u.Phone})
	}
	cw.Flush()

	s.mu.Lock()
	ct := s.CSVContentType
	s.mu.Unlock()
	if ct == "" {
		ct = "text/csv; charset=utf-8"
	}
	w.Header().Set("Content-Type", ct)
	w.Header().Set("Content-Disposition", `attachment; filename="users.csv"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// ExportBody returns the bytes the export endpoint currently serves.
func (s *Server) ExportBody(t testing.TB) []byte {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, s.URL+"/api/v1/users/export/csv/", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	tokens := s.IssueTokens(0)
	req.Header.Set("Authorization", "Bearer "+tokens.Access)
	resp, err := s.Client().Do(req)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	defer resp.Body.Close()
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		t.Fatalf("read export: %v", err)
	}
	return buf.Bytes()
}

func (s *Server) emailTakenLocked(email string, exceptID int64) bool {
	for _, a := range s.accounts {
		if a.user.ID != exceptID && strings.EqualFold(a.user.Email, email) {
			return true
		}
	}
	return false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		panic(fmt.Sprintf("apitest: encode response: %v", err))
	}
}
