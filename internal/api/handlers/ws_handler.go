package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/educlove/educlove-backend/internal/cache"
	"github.com/educlove/educlove-backend/internal/models"
	"github.com/educlove/educlove-backend/internal/services"
	"github.com/educlove/educlove-backend/internal/utils"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsPingInterval = 30 * time.Second
)

// WSHandler streams a conversation's new messages over a websocket. The
// payloads come straight off the Redis fan-out channel the conversation
// service publishes to.
type WSHandler struct {
	matches *services.MatchService
	cache   *cache.RedisCache
	log     *logrus.Logger

	upgrader websocket.Upgrader
}

func NewWSHandler(matches *services.MatchService, rc *cache.RedisCache, log *logrus.Logger) *WSHandler {
	return &WSHandler{
		matches: matches,
		cache:   rc,
		log:     log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

func (h *WSHandler) Stream(c *gin.Context) {
	_, profileID, ok := requireProfile(c)
	if !ok {
		return
	}
	matchID := c.Param("match_id")

	m, err := h.matches.Get(c.Request.Context(), profileID, matchID)
	if err != nil {
		writeError(c, err)
		return
	}
	if m.Status != models.MatchAccepted {
		writeError(c, utils.E(utils.CodeForbidden, "WSHandler.Stream", "conversation requires a mutual match", nil))
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.WithError(err).Warn("websocket upgrade failed")
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	sub := h.cache.Subscribe(ctx, cache.ConversationChannel(matchID))
	defer sub.Close()

	// drain the client side so close frames terminate the stream
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				cancel()
				return
			}
		}
	}()

	msgs := sub.Channel()
	ping := time.NewTicker(wsPingInterval)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, open := <-msgs:
			if !open {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg.Payload)); err != nil {
				return
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
