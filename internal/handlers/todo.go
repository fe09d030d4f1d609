package handlers

import (
	"errors"
	"net/http"

	"todoweb/internal/auth"
	dom "todoweb/internal/domain"
	"todoweb/internal/dto"
	"todoweb/internal/service"

	"github.com/gin-gonic/gin"
)

type TodoHandler struct {
	svc *service.TodoService
}

func NewTodoHandler(svc *service.TodoService) *TodoHandler {
	return &TodoHandler{svc: svc}
}

// Create godoc
// @Summary      Create a todo
// @Tags         todos
// @Accept       json,x-www-form-urlencoded
// @Produce      json
// @Security     CookieAuth
// @Param        body  body      dto.CreateTodoRequest  true  "Todo body"
// @Success      201   {object}  dto.TodoResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      401   {object}  dto.ErrorResponse
// @Failure      500   {object}  dto.ErrorResponse
// @Router       /todos [post]
func (h *TodoHandler) Create(c *gin.Context) {
	var req dto.CreateTodoRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	t, err := h.svc.Create(c.Request.Context(), auth.UserIDFromContext(c), req.Description)
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Description is required"})
			return
		}
		serverError(c, "create todo", err)
		return
	}

	c.JSON(http.StatusCreated, todoToResponse(t))
}

// List godoc
// @Summary      List the current user's todos
// @Tags         todos
// @Produce      json
// @Security     CookieAuth
// @Success      200  {array}   dto.TodoResponse
// @Failure      401  {object}  dto.ErrorResponse
// @Failure      500  {object}  dto.ErrorResponse
// @Router       /todos [get]
func (h *TodoHandler) List(c *gin.Context) {
	list, err := h.svc.List(c.Request.Context(), auth.UserIDFromContext(c))
	if err != nil {
		serverError(c, "list todos", err)
		return
	}
	c.JSON(http.StatusOK, todosToResponses(list))
}

// Toggle godoc
// @Summary      Flip a todo's completed flag
// @Tags         todos
// @Produce      json
// @Security     CookieAuth
// @Param        id   path      string  true  "Todo ID"
// @Success      200  {object}  dto.TodoResponse
// @Failure      401  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      500  {object}  dto.ErrorResponse
// @Router       /todos/toggle/{id} [post]
func (h *TodoHandler) Toggle(c *gin.Context) {
	t, err := h.svc.Toggle(c.Request.Context(), auth.UserIDFromContext(c), c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Todo not found"})
			return
		}
		serverError(c, "toggle todo", err)
		return
	}
	c.JSON(http.StatusOK, todoToResponse(t))
}

// Delete godoc
// @Summary      Delete a todo
// @Tags         todos
// @Produce      json
// @Security     CookieAuth
// @Param        id   path      string  true  "Todo ID"
// @Success      200  {object}  dto.MessageResponse
// @Failure      401  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      500  {object}  dto.ErrorResponse
// @Router       /todos/{id} [delete]
func (h *TodoHandler) Delete(c *gin.Context) {
	err := h.svc.Delete(c.Request.Context(), auth.UserIDFromContext(c), c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Todo not found"})
			return
		}
		serverError(c, "delete todo", err)
		return
	}
	c.JSON(http.StatusOK, dto.MessageResponse{Message: "Deleted successfully"})
}

func todoToResponse(t dom.Todo) dto.TodoResponse {
	return dto.TodoResponse{
		ID:          t.ID,
		Description: t.Description,
		Completed:   t.Completed,
		Owner:       t.Owner,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func todosToResponses(list []dom.Todo) []dto.TodoResponse {
	out := make([]dto.TodoResponse, 0, len(list))
	for _, t := range list {
		out = append(out, todoToResponse(t))
	}
	return out
}
