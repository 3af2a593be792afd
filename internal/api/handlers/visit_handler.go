package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/educlove/educlove-backend/internal/services"
)

type VisitHandler struct {
	visits *services.VisitService
	log    *logrus.Logger
}

func NewVisitHandler(visits *services.VisitService, log *logrus.Logger) *VisitHandler {
	return &VisitHandler{visits: visits, log: log}
}

// Record marks a profile as seen and returns the visit record id.
func (h *VisitHandler) Record(c *gin.Context) {
	u, ok := requireUser(c)
	if !ok {
		return
	}

	id, err := h.visits.RecordVisit(c.Request.Context(), u.ID, c.Param("profile_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"visit_id": id})
}

func (h *VisitHandler) List(c *gin.Context) {
	u, ok := requireUser(c)
	if !ok {
		return
	}

	limit, _ := strconv.ParseInt(c.DefaultQuery("limit", "50"), 10, 64)
	skip, _ := strconv.ParseInt(c.DefaultQuery("skip", "0"), 10, 64)

	visits, err := h.visits.ListVisited(c.Request.Context(), u.ID, limit, skip)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"visits": visits, "count": len(visits)})
}

func (h *VisitHandler) Count(c *gin.Context) {
	u, ok := requireUser(c)
	if !ok {
		return
	}

	n, err := h.visits.Count(c.Request.Context(), u.ID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": n})
}

// Unsee drops one visit so the profile can come back in discovery.
func (h *VisitHandler) Unsee(c *gin.Context) {
	u, ok := requireUser(c)
	if !ok {
		return
	}

	if err := h.visits.Unsee(c.Request.Context(), u.ID, c.Param("profile_id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *VisitHandler) UnseeAll(c *gin.Context) {
	u, ok := requireUser(c)
	if !ok {
		return
	}

	n, err := h.visits.UnseeAll(c.Request.Context(), u.ID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": n})
}
