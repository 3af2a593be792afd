package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/educlove/educlove-backend/internal/models"
	"github.com/educlove/educlove-backend/internal/services"
)

const dateLayout = "2006-01-02"

type ProfileHandler struct {
	discovery *services.DiscoveryService
	profiles  *services.ProfileService
	criteria  *services.CriteriaService
	visits    *services.VisitService
	log       *logrus.Logger
}

func NewProfileHandler(
	discovery *services.DiscoveryService,
	profiles *services.ProfileService,
	criteria *services.CriteriaService,
	visits *services.VisitService,
	log *logrus.Logger,
) *ProfileHandler {
	return &ProfileHandler{
		discovery: discovery,
		profiles:  profiles,
		criteria:  criteria,
		visits:    visits,
		log:       log,
	}
}

// Discover returns one random candidate matching the caller's preferences.
func (h *ProfileHandler) Discover(c *gin.Context) {
	u, ok := requireUser(c)
	if !ok {
		return
	}

	candidate, err := h.discovery.SelectCandidate(c.Request.Context(), u.ID)
	if err != nil {
		writeError(c, err)
		return
	}
	if candidate == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": gin.H{"code": "NOT_FOUND", "message": "no candidates available"},
		})
		return
	}
	c.JSON(http.StatusOK, profilePayload(candidate))
}

type createProfileRequest struct {
	FirstName        string              `json:"first_name" binding:"required"`
	DateOfBirth      string              `json:"date_of_birth" binding:"required"`
	Gender           models.Gender       `json:"gender" binding:"required"`
	Location         models.GeoPoint     `json:"location"`
	LookingFor       []models.LookingFor `json:"looking_for" binding:"required"`
	LookingForGender []models.Gender     `json:"looking_for_gender" binding:"required"`
	Subject          string              `json:"subject" binding:"required"`
	Description      string              `json:"description"`
	Goals            string              `json:"goals"`
}

func (h *ProfileHandler) CreateMyProfile(c *gin.Context) {
	u, ok := requireUser(c)
	if !ok {
		return
	}

	var req createProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeInvalid(c, "invalid request body: "+err.Error())
		return
	}
	dob, err := time.Parse(dateLayout, req.DateOfBirth)
	if err != nil {
		writeInvalid(c, "date_of_birth must be YYYY-MM-DD")
		return
	}

	p := &models.Profile{
		FirstName:        req.FirstName,
		DateOfBirth:      dob,
		Gender:           req.Gender,
		Location:         req.Location,
		LookingFor:       req.LookingFor,
		LookingForGender: req.LookingForGender,
		Subject:          req.Subject,
		Description:      req.Description,
		Goals:            req.Goals,
	}
	created, err := h.profiles.Create(c.Request.Context(), u.ID, p)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, profilePayload(created))
}

func (h *ProfileHandler) GetMyProfile(c *gin.Context) {
	u, ok := requireUser(c)
	if !ok {
		return
	}

	p, err := h.profiles.GetOwn(c.Request.Context(), u.ID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, profilePayload(p))
}

func (h *ProfileHandler) UpdateMyProfile(c *gin.Context) {
	u, ok := requireUser(c)
	if !ok {
		return
	}

	var upd models.ProfileUpdate
	if err := c.ShouldBindJSON(&upd); err != nil {
		writeInvalid(c, "invalid request body: "+err.Error())
		return
	}

	p, err := h.profiles.Update(c.Request.Context(), u.ID, &upd)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, profilePayload(p))
}

func (h *ProfileHandler) CompletionStatus(c *gin.Context) {
	u, ok := requireUser(c)
	if !ok {
		return
	}

	completed, profileID, err := h.profiles.CompletionStatus(c.Request.Context(), u.ID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"profile_completed": completed,
		"profile_id":        profileID,
	})
}

func (h *ProfileHandler) UploadPhoto(c *gin.Context) {
	u, ok := requireUser(c)
	if !ok {
		return
	}

	fh, err := c.FormFile("photo")
	if err != nil {
		writeInvalid(c, "multipart field 'photo' is required")
		return
	}
	f, err := fh.Open()
	if err != nil {
		writeInvalid(c, "unreadable upload")
		return
	}
	defer f.Close()

	url, err := h.profiles.AddPhoto(c.Request.Context(), u.ID, fh.Filename, fh.Header.Get("Content-Type"), f)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"url": url})
}

// GetProfile fetches another profile and records the visit.
func (h *ProfileHandler) GetProfile(c *gin.Context) {
	u, ok := requireUser(c)
	if !ok {
		return
	}
	profileID := c.Param("profile_id")

	p, err := h.profiles.GetByID(c.Request.Context(), profileID)
	if err != nil {
		writeError(c, err)
		return
	}

	// viewing your own profile is not a visit
	if u.ProfileID == nil || *u.ProfileID != profileID {
		if _, err := h.visits.RecordVisit(c.Request.Context(), u.ID, profileID); err != nil {
			h.log.WithError(err).WithFields(logrus.Fields{
				"user_id":    u.ID,
				"profile_id": profileID,
			}).Warn("visit not recorded")
		}
	}
	c.JSON(http.StatusOK, profilePayload(p))
}

type criteriaRequest struct {
	Locations []models.GeoPoint `json:"locations"`
	Radii     []int             `json:"radii"`
	AgeMin    *int              `json:"age_min"`
	AgeMax    *int              `json:"age_max"`
	Subjects  []string          `json:"subjects"`
}

func (h *ProfileHandler) UpsertCriteria(c *gin.Context) {
	u, ok := requireUser(c)
	if !ok {
		return
	}

	var req criteriaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeInvalid(c, "invalid request body: "+err.Error())
		return
	}

	saved, err := h.criteria.Upsert(c.Request.Context(), u.ID, &models.SearchCriteria{
		Locations: req.Locations,
		Radii:     req.Radii,
		AgeMin:    req.AgeMin,
		AgeMax:    req.AgeMax,
		Subjects:  req.Subjects,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, saved)
}

func (h *ProfileHandler) GetCriteria(c *gin.Context) {
	u, ok := requireUser(c)
	if !ok {
		return
	}

	crit, err := h.criteria.Get(c.Request.Context(), u.ID)
	if err != nil {
		writeError(c, err)
		return
	}
	if crit == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": gin.H{"code": "NOT_FOUND", "message": "no search criteria saved"},
		})
		return
	}
	c.JSON(http.StatusOK, crit)
}

func (h *ProfileHandler) DeleteCriteria(c *gin.Context) {
	u, ok := requireUser(c)
	if !ok {
		return
	}

	if err := h.criteria.Delete(c.Request.Context(), u.ID); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
