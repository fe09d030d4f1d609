package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"todoweb/internal/auth"
	"todoweb/internal/cache"
	dom "todoweb/internal/domain"
	"todoweb/internal/dto"
	"todoweb/internal/repo"
	"todoweb/internal/service"
	"todoweb/internal/web"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var errStoreDown = errors.New("store down")

type brokenTodoRepo struct{ *repo.MemoryTodoRepo }

func (brokenTodoRepo) ListByOwner(context.Context, string) ([]dom.Todo, error) {
	return nil, errStoreDown
}

type brokenUserRepo struct{}

func (brokenUserRepo) GetByUsername(context.Context, string) (dom.User, error) {
	return dom.User{}, errStoreDown
}

func (brokenUserRepo) Create(context.Context, string, string) (dom.User, error) {
	return dom.User{}, errStoreDown
}

func newEngine(t *testing.T, users repo.UserRepo, todos repo.TodoRepo) *gin.Engine {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	sessions := auth.NewManager(auth.NewStore(rdb, time.Hour), auth.NewSigner("test-secret", time.Hour), false)
	todoSvc := service.NewTodoService(todos, cache.NewTodoCache(rdb, time.Minute))

	r := gin.New()
	tmpl, err := web.Templates()
	require.NoError(t, err)
	r.SetHTMLTemplate(tmpl)

	site := r.Group("", auth.LoadSession(sessions))
	pages := NewPageHandler(todoSvc)
	site.GET("/", pages.Home)
	site.GET("/login", pages.LoginPage)
	site.GET("/register", pages.RegisterPage)

	a := NewAuthHandler(sessions, service.NewUserService(users))
	site.POST("/register", a.Register)
	site.POST("/login", a.Login)
	site.GET("/logout", a.Logout)

	th := NewTodoHandler(todoSvc)
	protected := site.Group("", auth.RequireSession())
	protected.GET("/todos", th.List)
	protected.POST("/todos", th.Create)
	protected.POST("/todos/toggle/:id", th.Toggle)
	protected.DELETE("/todos/:id", th.Delete)
	return r
}

// client keeps the session cookie between requests like a browser would.
type client struct {
	t       *testing.T
	r       *gin.Engine
	cookies map[string]*http.Cookie
}

func newClient(t *testing.T, r *gin.Engine) *client {
	return &client{t: t, r: r, cookies: map[string]*http.Cookie{}}
}

func (c *client) do(method, path, contentType, body string) *httptest.ResponseRecorder {
	c.t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}
	w := httptest.NewRecorder()
	c.r.ServeHTTP(w, req)
	for _, ck := range w.Result().Cookies() {
		if ck.MaxAge < 0 {
			delete(c.cookies, ck.Name)
			continue
		}
		c.cookies[ck.Name] = ck
	}
	return w
}

func (c *client) json(method, path, body string) *httptest.ResponseRecorder {
	return c.do(method, path, "application/json", body)
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestRegister(t *testing.T) {
	users := repo.NewMemoryUserRepo()
	c := newClient(t, newEngine(t, users, repo.NewMemoryTodoRepo()))

	w := c.json(http.MethodPost, "/register", `{"username":"alice","password":"pw1"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	resp := decode[dto.AuthResponse](t, w)
	assert.Equal(t, "User registered successfully", resp.Message)
	assert.Equal(t, "alice", resp.User.Username)
	assert.NotEmpty(t, resp.User.ID)

	ck, ok := c.cookies["session_id"]
	require.True(t, ok)
	assert.True(t, ck.HttpOnly)

	w = c.json(http.MethodPost, "/register", `{"username":"alice","password":"other"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Username already taken", decode[dto.ErrorResponse](t, w).Error)
	assert.Equal(t, 1, users.Count())
}

func TestRegister_Form(t *testing.T) {
	c := newClient(t, newEngine(t, repo.NewMemoryUserRepo(), repo.NewMemoryTodoRepo()))

	form := url.Values{"username": {"bob"}, "password": {"pw"}}
	w := c.do(http.MethodPost, "/register", "application/x-www-form-urlencoded", form.Encode())
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "bob", decode[dto.AuthResponse](t, w).User.Username)
}

func TestRegister_BadInput(t *testing.T) {
	c := newClient(t, newEngine(t, repo.NewMemoryUserRepo(), repo.NewMemoryTodoRepo()))

	cases := map[string]string{
		"empty username": `{"username":"  ","password":"pw"}`,
		"empty password": `{"username":"alice","password":""}`,
		"malformed json": `{"username":`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			w := c.json(http.MethodPost, "/register", body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.NotEmpty(t, decode[dto.ErrorResponse](t, w).Error)
		})
	}
	assert.Empty(t, c.cookies)
}

func TestRegister_StoreError(t *testing.T) {
	c := newClient(t, newEngine(t, brokenUserRepo{}, repo.NewMemoryTodoRepo()))

	w := c.json(http.MethodPost, "/register", `{"username":"alice","password":"pw1"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "server error", decode[dto.ErrorResponse](t, w).Error)
}

func TestLogin(t *testing.T) {
	r := newEngine(t, repo.NewMemoryUserRepo(), repo.NewMemoryTodoRepo())
	require.Equal(t, http.StatusCreated,
		newClient(t, r).json(http.MethodPost, "/register", `{"username":"alice","password":"pw1"}`).Code)

	c := newClient(t, r)
	wrongPw := c.json(http.MethodPost, "/login", `{"username":"alice","password":"nope"}`)
	unknown := c.json(http.MethodPost, "/login", `{"username":"mallory","password":"pw1"}`)
	assert.Equal(t, http.StatusBadRequest, wrongPw.Code)
	assert.Equal(t, http.StatusBadRequest, unknown.Code)
	assert.Equal(t, wrongPw.Body.String(), unknown.Body.String())
	assert.Empty(t, c.cookies)

	w := c.json(http.MethodPost, "/login", `{"username":"alice","password":"pw1"}`)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[dto.AuthResponse](t, w)
	assert.Equal(t, "Login successful", resp.Message)
	assert.Equal(t, "alice", resp.User.Username)
	assert.Contains(t, c.cookies, "session_id")

	assert.Equal(t, http.StatusOK, c.do(http.MethodGet, "/todos", "", "").Code)
}

func TestTodos_RequireSession(t *testing.T) {
	c := newClient(t, newEngine(t, repo.NewMemoryUserRepo(), repo.NewMemoryTodoRepo()))

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/todos"},
		{http.MethodPost, "/todos"},
		{http.MethodPost, "/todos/toggle/x"},
		{http.MethodDelete, "/todos/x"},
	} {
		w := c.json(tc.method, tc.path, `{"description":"x"}`)
		assert.Equal(t, http.StatusUnauthorized, w.Code, tc.method+" "+tc.path)
	}
}

func TestTodos_TamperedCookie(t *testing.T) {
	c := newClient(t, newEngine(t, repo.NewMemoryUserRepo(), repo.NewMemoryTodoRepo()))
	c.cookies["session_id"] = &http.Cookie{Name: "session_id", Value: "not-a-token"}

	assert.Equal(t, http.StatusUnauthorized, c.do(http.MethodGet, "/todos", "", "").Code)
}

func TestTodos_CRUD(t *testing.T) {
	c := newClient(t, newEngine(t, repo.NewMemoryUserRepo(), repo.NewMemoryTodoRepo()))
	w := c.json(http.MethodPost, "/register", `{"username":"alice","password":"pw1"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	alice := decode[dto.AuthResponse](t, w).User

	w = c.json(http.MethodPost, "/todos", `{"description":"   "}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = c.do(http.MethodPost, "/todos", "application/x-www-form-urlencoded", "description=buy+milk")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[dto.TodoResponse](t, w)
	assert.Equal(t, "buy milk", created.Description)
	assert.Equal(t, alice.ID, created.Owner)
	assert.False(t, created.Completed)

	w = c.do(http.MethodPost, "/todos/toggle/"+created.ID, "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[dto.TodoResponse](t, w).Completed)

	w = c.do(http.MethodPost, "/todos/toggle/missing", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = c.do(http.MethodDelete, "/todos/"+created.ID, "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Deleted successfully", decode[dto.MessageResponse](t, w).Message)

	w = c.do(http.MethodDelete, "/todos/"+created.ID, "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = c.do(http.MethodGet, "/todos", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestTodos_OtherOwner(t *testing.T) {
	r := newEngine(t, repo.NewMemoryUserRepo(), repo.NewMemoryTodoRepo())
	alice, bob := newClient(t, r), newClient(t, r)
	require.Equal(t, http.StatusCreated, alice.json(http.MethodPost, "/register", `{"username":"alice","password":"pw1"}`).Code)
	require.Equal(t, http.StatusCreated, bob.json(http.MethodPost, "/register", `{"username":"bob","password":"pw2"}`).Code)

	w := alice.json(http.MethodPost, "/todos", `{"description":"alice's"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	td := decode[dto.TodoResponse](t, w)

	assert.Equal(t, http.StatusNotFound, bob.do(http.MethodPost, "/todos/toggle/"+td.ID, "", "").Code)
	assert.Equal(t, http.StatusNotFound, bob.do(http.MethodDelete, "/todos/"+td.ID, "", "").Code)
	assert.JSONEq(t, `[]`, bob.do(http.MethodGet, "/todos", "", "").Body.String())

	list := decode[[]dto.TodoResponse](t, alice.do(http.MethodGet, "/todos", "", ""))
	require.Len(t, list, 1)
	assert.False(t, list[0].Completed)
}

func TestTodos_ListStoreError(t *testing.T) {
	c := newClient(t, newEngine(t, repo.NewMemoryUserRepo(), brokenTodoRepo{repo.NewMemoryTodoRepo()}))
	require.Equal(t, http.StatusCreated, c.json(http.MethodPost, "/register", `{"username":"alice","password":"pw1"}`).Code)

	w := c.do(http.MethodGet, "/todos", "", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "server error", decode[dto.ErrorResponse](t, w).Error)
	assert.NotContains(t, w.Body.String(), errStoreDown.Error())
}

func TestLogout(t *testing.T) {
	c := newClient(t, newEngine(t, repo.NewMemoryUserRepo(), repo.NewMemoryTodoRepo()))
	require.Equal(t, http.StatusCreated, c.json(http.MethodPost, "/register", `{"username":"alice","password":"pw1"}`).Code)
	stale := *c.cookies["session_id"]

	w := c.do(http.MethodGet, "/logout", "", "")
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))
	assert.NotContains(t, c.cookies, "session_id")
	assert.Equal(t, http.StatusUnauthorized, c.do(http.MethodGet, "/todos", "", "").Code)

	// replaying the old cookie must not revive the session
	c.cookies["session_id"] = &stale
	assert.Equal(t, http.StatusUnauthorized, c.do(http.MethodGet, "/todos", "", "").Code)
}

func TestPages(t *testing.T) {
	c := newClient(t, newEngine(t, repo.NewMemoryUserRepo(), repo.NewMemoryTodoRepo()))

	w := c.do(http.MethodGet, "/", "", "")
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))

	w = c.do(http.MethodGet, "/login", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "<h1>Log in</h1>")

	w = c.do(http.MethodGet, "/register", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "<h1>Register</h1>")

	require.Equal(t, http.StatusCreated, c.json(http.MethodPost, "/register", `{"username":"alice","password":"pw1"}`).Code)
	require.Equal(t, http.StatusCreated, c.json(http.MethodPost, "/todos", `{"description":"buy milk"}`).Code)

	w = c.do(http.MethodGet, "/", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "buy milk")
}
