package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mediguide/backend/internal/service"
)

// TaskHandler serves the daily dashboard and intake marking.
type TaskHandler struct {
	taskService *service.TaskService
}

func NewTaskHandler(taskService *service.TaskService) *TaskHandler {
	return &TaskHandler{taskService: taskService}
}

func (h *TaskHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/dashboard", h.Dashboard)
	router.POST("/schedules/:id/taken", h.MarkTaken)
}

// Dashboard returns the caller's medication tasks for a calendar date,
// defaulting to today. The date must be YYYY-MM-DD; anything else
// simply matches no schedules.
func (h *TaskHandler) Dashboard(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var tasks []service.Task
	var date string
	var err error
	if date = c.Query("date"); date != "" {
		tasks, err = h.taskService.TasksForDate(c.Request.Context(), userID, date)
	} else {
		tasks, date, err = h.taskService.TasksForToday(c.Request.Context(), userID)
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load tasks"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"tasks": tasks, "date": date})
}

// MarkTaken records one taken dose for a schedule, now.
func (h *TaskHandler) MarkTaken(c *gin.Context) {
	if _, ok := currentUserID(c); !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	scheduleID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid schedule id"})
		return
	}

	log, err := h.taskService.MarkTaken(c.Request.Context(), scheduleID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record intake"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"date_str": log.DateStr,
	})
}
