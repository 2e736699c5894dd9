package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/artyomia/marketingganttai/internal/model"
	"github.com/artyomia/marketingganttai/internal/planner"
	"github.com/artyomia/marketingganttai/internal/store"
)

const maxDescriptionSize = 4 << 10 // 4KB

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleListTasks(c *gin.Context) {
	c.JSON(http.StatusOK, s.tracker.Tasks())
}

func (s *Server) handleGetTask(c *gin.Context) {
	task, ok := s.tracker.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
		return
	}
	c.JSON(http.StatusOK, task)
}

// handleCreateTask adds the default empty task, ready for editing.
func (s *Server) handleCreateTask(c *gin.Context) {
	task, err := s.tracker.AddEmpty(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to add task"})
		return
	}
	c.JSON(http.StatusCreated, task)
}

func (s *Server) handleUpdateTask(c *gin.Context) {
	var task model.Task
	if err := c.ShouldBindJSON(&task); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	// The path wins over any id in the body.
	task.ID = c.Param("id")

	saved, err := s.tracker.Save(c.Request.Context(), task)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, saved)
}

func (s *Server) handleDeleteTask(c *gin.Context) {
	if err := s.tracker.Delete(c.Request.Context(), c.Param("id")); err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

// handleTimeline lays out the current list. ?now= takes an RFC 3339
// timestamp for previews; the server clock is used otherwise.
func (s *Server) handleTimeline(c *gin.Context) {
	now := s.tracker.Now()
	if raw := c.Query("now"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "now must be an RFC 3339 timestamp"})
			return
		}
		now = parsed
	}
	c.JSON(http.StatusOK, s.tracker.Layout(now))
}

func (s *Server) handleStats(c *gin.Context) {
	c.JSON(http.StatusOK, s.tracker.Stats())
}

func (s *Server) handlePlan(c *gin.Context) {
	var req planner.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(req.Description) > maxDescriptionSize {
		c.JSON(http.StatusBadRequest, gin.H{"error": "description exceeds maximum size of 4KB"})
		return
	}
	if req.StartDate.IsZero() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "startDate is required"})
		return
	}

	tasks, err := s.tracker.ApplyPlan(c.Request.Context(), req)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": planner.GenerationFailedMessage})
		return
	}
	c.JSON(http.StatusOK, tasks)
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrInvalidTask):
		return http.StatusBadRequest
	default:
		return http.StatusBadGateway
	}
}
