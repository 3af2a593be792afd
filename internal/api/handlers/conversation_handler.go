package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/educlove/educlove-backend/internal/services"
)

type ConversationHandler struct {
	conversations *services.ConversationService
	profiles      *services.ProfileService
	log           *logrus.Logger
}

func NewConversationHandler(conversations *services.ConversationService, profiles *services.ProfileService, log *logrus.Logger) *ConversationHandler {
	return &ConversationHandler{conversations: conversations, profiles: profiles, log: log}
}

func (h *ConversationHandler) Get(c *gin.Context) {
	_, profileID, ok := requireProfile(c)
	if !ok {
		return
	}
	matchID := c.Param("match_id")

	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))

	messages, total, err := h.conversations.GetConversation(c.Request.Context(), profileID, matchID, offset, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"match_id": matchID,
		"messages": messages,
		"total":    total,
		"offset":   offset,
	})
}

type sendMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

func (h *ConversationHandler) Send(c *gin.Context) {
	u, profileID, ok := requireProfile(c)
	if !ok {
		return
	}

	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeInvalid(c, "invalid request body: "+err.Error())
		return
	}

	senderName := u.Name
	if p, err := h.profiles.GetByID(c.Request.Context(), profileID); err == nil {
		senderName = p.FirstName
	}

	msg, err := h.conversations.AddMessage(c.Request.Context(), c.Param("match_id"), profileID, senderName, req.Content)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

func (h *ConversationHandler) Latest(c *gin.Context) {
	_, profileID, ok := requireProfile(c)
	if !ok {
		return
	}

	count, _ := strconv.Atoi(c.DefaultQuery("count", "0"))
	messages, err := h.conversations.GetLatestMessages(c.Request.Context(), profileID, c.Param("match_id"), count)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages, "count": len(messages)})
}

func (h *ConversationHandler) Summary(c *gin.Context) {
	_, profileID, ok := requireProfile(c)
	if !ok {
		return
	}

	sum, err := h.conversations.Summary(c.Request.Context(), profileID, c.Param("match_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

// Unread counts the other side's messages sent after the given timestamp.
func (h *ConversationHandler) Unread(c *gin.Context) {
	_, profileID, ok := requireProfile(c)
	if !ok {
		return
	}

	since, err := time.Parse(time.RFC3339, c.Query("since"))
	if err != nil {
		writeInvalid(c, "since must be an RFC3339 timestamp")
		return
	}

	n, err := h.conversations.UnreadCount(c.Request.Context(), profileID, c.Param("match_id"), since)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread": n})
}
