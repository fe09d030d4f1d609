package app

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"todoweb/internal/config"
	"todoweb/internal/repo"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	mr := miniredis.RunT(t)
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("REDIS_ADDR", mr.Addr())
	t.Setenv("SESSION_SECRET", "test-secret")
	t.Setenv("APP_ENV", "test")
	t.Setenv("VERSION", "1.2.3")
	cfg, err := config.Load()
	require.NoError(t, err)

	rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
	t.Cleanup(func() { _ = rdb.Close() })

	stores := Stores{Users: repo.NewMemoryUserRepo(), Todos: repo.NewMemoryTodoRepo()}
	r, err := newRouter(cfg, stores, rdb, zaptest.NewLogger(t))
	require.NoError(t, err)
	return r
}

type step struct {
	r      *gin.Engine
	cookie *http.Cookie
}

func (s *step) send(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.cookie != nil {
		req.AddCookie(s.cookie)
	}
	w := httptest.NewRecorder()
	s.r.ServeHTTP(w, req)
	for _, ck := range w.Result().Cookies() {
		if ck.Name == "session_id" {
			s.cookie = ck
		}
	}
	return w
}

type todoJSON struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Completed   bool   `json:"completed"`
	Owner       string `json:"owner"`
}

func TestEndToEnd(t *testing.T) {
	s := &step{r: newTestRouter(t)}

	w := s.send(t, http.MethodGet, "/todos", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.send(t, http.MethodPost, "/register", `{"username":"alice","password":"pw1"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var reg struct {
		User struct {
			ID string `json:"id"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &reg))

	w = s.send(t, http.MethodPost, "/login", `{"username":"alice","password":"pw1"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.send(t, http.MethodPost, "/todos", `{"description":"buy milk"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created todoJSON
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "buy milk", created.Description)
	assert.False(t, created.Completed)
	assert.Equal(t, reg.User.ID, created.Owner)

	w = s.send(t, http.MethodGet, "/todos", "")
	require.Equal(t, http.StatusOK, w.Code)
	var list []todoJSON
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, created.ID, list[0].ID)

	w = s.send(t, http.MethodPost, "/todos/toggle/"+created.ID, "")
	require.Equal(t, http.StatusOK, w.Code)
	var toggled todoJSON
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &toggled))
	assert.True(t, toggled.Completed)

	w = s.send(t, http.MethodDelete, "/todos/"+created.ID, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"Deleted successfully"}`, w.Body.String())

	w = s.send(t, http.MethodGet, "/todos", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestServiceEndpoints(t *testing.T) {
	r := newTestRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ok":true,"env":"test"}`, w.Body.String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/version", nil))
	assert.JSONEq(t, `{"version":"1.2.3"}`, w.Body.String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/swagger-doc.json", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
	paths, ok := doc["paths"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, paths, "/todos/toggle/{id}")
}

func TestRequestID(t *testing.T) {
	r := newTestRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(requestIDHeader, "req-42")
	r.ServeHTTP(w, req)
	assert.Equal(t, "req-42", w.Header().Get(requestIDHeader))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.NotEmpty(t, w.Header().Get(requestIDHeader))
}

func TestRecovery(t *testing.T) {
	r := gin.New()
	r.Use(requestLogger(zaptest.NewLogger(t)), recovery())
	r.GET("/boom", func(*gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"server error"}`, w.Body.String())
}
