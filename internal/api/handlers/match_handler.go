package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/educlove/educlove-backend/internal/models"
	"github.com/educlove/educlove-backend/internal/services"
)

type MatchHandler struct {
	matches *services.MatchService
	log     *logrus.Logger
}

func NewMatchHandler(matches *services.MatchService, log *logrus.Logger) *MatchHandler {
	return &MatchHandler{matches: matches, log: log}
}

type likeRequest struct {
	TargetProfileID string `json:"target_profile_id" binding:"required"`
	Message         string `json:"message"`
}

// Like sends a like, possibly completing a mutual match.
func (h *MatchHandler) Like(c *gin.Context) {
	_, profileID, ok := requireProfile(c)
	if !ok {
		return
	}

	var req likeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeInvalid(c, "invalid request body: "+err.Error())
		return
	}

	res, err := h.matches.Like(c.Request.Context(), profileID, req.TargetProfileID, req.Message)
	if err != nil {
		writeError(c, err)
		return
	}

	status := http.StatusCreated
	if res.Action == models.ActionAlreadyLiked {
		status = http.StatusOK
	}
	c.JSON(status, res)
}

func (h *MatchHandler) List(c *gin.Context) {
	_, profileID, ok := requireProfile(c)
	if !ok {
		return
	}

	var status *models.MatchStatus
	if raw := c.Query("status"); raw != "" {
		st := models.MatchStatus(raw)
		if !st.Valid() {
			writeInvalid(c, "invalid status filter")
			return
		}
		status = &st
	}
	var direction *models.MatchDirection
	switch raw := c.Query("direction"); raw {
	case "":
	case string(models.DirectionSent), string(models.DirectionReceived):
		d := models.MatchDirection(raw)
		direction = &d
	default:
		writeInvalid(c, "direction must be sent or received")
		return
	}

	entries, err := h.matches.List(c.Request.Context(), profileID, status, direction)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"matches": entries, "total": len(entries)})
}

func (h *MatchHandler) Get(c *gin.Context) {
	_, profileID, ok := requireProfile(c)
	if !ok {
		return
	}

	m, err := h.matches.Get(c.Request.Context(), profileID, c.Param("match_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

type updateStatusRequest struct {
	Status models.MatchStatus `json:"status" binding:"required"`
}

func (h *MatchHandler) UpdateStatus(c *gin.Context) {
	_, profileID, ok := requireProfile(c)
	if !ok {
		return
	}

	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeInvalid(c, "invalid request body: "+err.Error())
		return
	}

	m, err := h.matches.UpdateStatus(c.Request.Context(), profileID, c.Param("match_id"), req.Status)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}
