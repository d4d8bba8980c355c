package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"main/internal/database"
	"main/internal/middleware"
)

type todoCreateRequest struct {
	Title       string  `json:"title" binding:"required"`
	Description *string `json:"description"`
}

type todoUpdateRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Completed   *bool   `json:"completed"`
}

func (h *Handler) ListTodos(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "unauthorized"})
		return
	}

	todos, err := h.todos.ListTodos(c.Request.Context(), userID)
	if err != nil {
		h.internalError(c, "todos: list failed", err)
		return
	}

	c.JSON(http.StatusOK, todos)
}

func (h *Handler) CreateTodo(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "unauthorized"})
		return
	}

	var req todoCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "title is required"})
		return
	}

	todo, err := h.todos.CreateTodo(c.Request.Context(), userID, req.Title, req.Description)
	if err != nil {
		h.internalError(c, "todos: create failed", err)
		return
	}

	c.JSON(http.StatusCreated, todo)
}

func (h *Handler) GetTodo(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "unauthorized"})
		return
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "invalid id"})
		return
	}

	todo, err := h.todos.FindTodo(c.Request.Context(), id, userID)
	if err != nil {
		h.internalError(c, "todos: lookup failed", err)
		return
	}
	if todo == nil {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"message": "Not found"})
		return
	}

	c.JSON(http.StatusOK, todo)
}

func (h *Handler) UpdateTodo(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "unauthorized"})
		return
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "invalid id"})
		return
	}

	var req todoUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "malformed body"})
		return
	}

	todo, err := h.todos.UpdateTodo(c.Request.Context(), id, userID, database.TodoPatch{
		Title:       req.Title,
		Description: req.Description,
		Completed:   req.Completed,
	})
	if err != nil {
		h.internalError(c, "todos: update failed", err)
		return
	}
	if todo == nil {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"message": "Not found"})
		return
	}

	c.JSON(http.StatusOK, todo)
}

func (h *Handler) DeleteTodo(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "unauthorized"})
		return
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "invalid id"})
		return
	}

	todo, err := h.todos.DeleteTodo(c.Request.Context(), id, userID)
	if err != nil {
		h.internalError(c, "todos: delete failed", err)
		return
	}
	if todo == nil {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"message": "Not found"})
		return
	}

	c.JSON(http.StatusOK, todo)
}
