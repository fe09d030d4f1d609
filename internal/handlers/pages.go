package handlers

import (
	"net/http"

	"todoweb/internal/auth"
	"todoweb/internal/logger"
	"todoweb/internal/service"

	"github.com/gin-gonic/gin"
)

// PageHandler renders the HTML pages. Templates are registered on the engine.
type PageHandler struct {
	todos *service.TodoService
}

func NewPageHandler(todos *service.TodoService) *PageHandler {
	return &PageHandler{todos: todos}
}

// Home shows the current user's list, or sends anonymous visitors to /login.
func (h *PageHandler) Home(c *gin.Context) {
	userID := auth.UserIDFromContext(c)
	if userID == "" {
		c.Redirect(http.StatusFound, "/login")
		return
	}
	list, err := h.todos.List(c.Request.Context(), userID)
	if err != nil {
		logger.Errorf(c.Request.Context(), "home: list todos: %v", err)
		c.String(http.StatusInternalServerError, "server error")
		return
	}
	c.HTML(http.StatusOK, "index.html", gin.H{"Todos": todosToResponses(list)})
}

func (h *PageHandler) LoginPage(c *gin.Context) {
	c.HTML(http.StatusOK, "login.html", nil)
}

func (h *PageHandler) RegisterPage(c *gin.Context) {
	c.HTML(http.StatusOK, "register.html", nil)
}
