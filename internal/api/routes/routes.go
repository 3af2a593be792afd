package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/educlove/educlove-backend/internal/api/handlers"
)

type Handlers struct {
	Profiles      *handlers.ProfileHandler
	Matches       *handlers.MatchHandler
	Visits        *handlers.VisitHandler
	Conversations *handlers.ConversationHandler
	WS            *handlers.WSHandler
}

// Register wires the HTTP surface. Everything except /ping sits behind the
// auth middleware.
func Register(r *gin.Engine, auth gin.HandlerFunc, h Handlers) {
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	api := r.Group("/", auth)

	profiles := api.Group("/profiles")
	{
		profiles.GET("", h.Profiles.Discover)
		profiles.POST("/my-profile", h.Profiles.CreateMyProfile)
		profiles.GET("/my-profile", h.Profiles.GetMyProfile)
		profiles.PUT("/my-profile", h.Profiles.UpdateMyProfile)
		profiles.GET("/completion-status", h.Profiles.CompletionStatus)
		profiles.POST("/my-profile/photos", h.Profiles.UploadPhoto)
		profiles.PUT("/search-criteria", h.Profiles.UpsertCriteria)
		profiles.GET("/search-criteria", h.Profiles.GetCriteria)
		profiles.DELETE("/search-criteria", h.Profiles.DeleteCriteria)
		profiles.GET("/:profile_id", h.Profiles.GetProfile)
	}

	matches := api.Group("/matches")
	{
		matches.POST("", h.Matches.Like)
		matches.GET("", h.Matches.List)
		matches.GET("/:match_id", h.Matches.Get)
		matches.PATCH("/:match_id/status", h.Matches.UpdateStatus)
	}

	visits := api.Group("/visits")
	{
		visits.POST("/:profile_id", h.Visits.Record)
		visits.GET("", h.Visits.List)
		visits.GET("/count", h.Visits.Count)
		visits.DELETE("", h.Visits.UnseeAll)
		visits.DELETE("/:profile_id", h.Visits.Unsee)
	}

	conversations := api.Group("/conversations/match/:match_id")
	{
		conversations.GET("", h.Conversations.Get)
		conversations.POST("/send", h.Conversations.Send)
		conversations.GET("/latest", h.Conversations.Latest)
		conversations.GET("/summary", h.Conversations.Summary)
		conversations.GET("/unread", h.Conversations.Unread)
	}

	api.GET("/ws/conversations/:match_id", h.WS.Stream)
}
