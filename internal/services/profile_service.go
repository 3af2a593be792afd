package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/educlove/educlove-backend/internal/cache"
	"github.com/educlove/educlove-backend/internal/models"
	mongorepo "github.com/educlove/educlove-backend/internal/repositories/mongo"
	"github.com/educlove/educlove-backend/internal/repositories/postgres"
	"github.com/educlove/educlove-backend/internal/services/geocoding"
	"github.com/educlove/educlove-backend/internal/storage"
	"github.com/educlove/educlove-backend/internal/utils"
)

// Geocoder resolves a city name to WGS84 coordinates. (nil, nil) means the
// city is unknown.
type Geocoder interface {
	Geocode(ctx context.Context, city, country string) (*geocoding.Coordinates, error)
}

const (
	geocodeCacheTTL = 30 * 24 * time.Hour
	defaultCountry  = "fr"
	minProfileAge   = 18
)

var errUnknownCity = errors.New("unknown city")

type ProfileService struct {
	profiles mongorepo.ProfileRepository
	users    postgres.UserRepository
	geocoder Geocoder
	cache    *cache.RedisCache
	uploader storage.Uploader
	log      *logrus.Logger
}

func NewProfileService(
	profiles mongorepo.ProfileRepository,
	users postgres.UserRepository,
	geocoder Geocoder,
	rc *cache.RedisCache,
	uploader storage.Uploader,
	log *logrus.Logger,
) *ProfileService {
	return &ProfileService{
		profiles: profiles,
		users:    users,
		geocoder: geocoder,
		cache:    rc,
		uploader: uploader,
		log:      log,
	}
}

// Create inserts the user's profile and links it to the identity mirror.
// When the location carries a city name but no usable coordinates, the city
// is geocoded first.
func (s *ProfileService) Create(ctx context.Context, userID string, p *models.Profile) (*models.Profile, error) {
	const op = "ProfileService.Create"

	if err := validateProfile(op, p); err != nil {
		return nil, err
	}

	u, err := s.users.GetByID(ctx, userID)
	if err == utils.ErrNotFound {
		return nil, utils.E(utils.CodeNotFound, op, "user not found", err)
	}
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "load user", err)
	}
	if u.ProfileID != nil {
		return nil, utils.E(utils.CodeConflict, op, "profile already exists", nil)
	}

	if err := s.resolveLocation(ctx, &p.Location); err != nil {
		if errors.Is(err, errUnknownCity) {
			return nil, utils.E(utils.CodeInvalidArgument, op, "city could not be located", err)
		}
		return nil, utils.E(utils.CodeUnavailable, op, "geocoding failed", err)
	}

	id, err := s.profiles.Insert(ctx, p)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "insert profile", err)
	}

	if err := s.users.LinkProfile(ctx, userID, id); err != nil {
		// keep user and profile consistent: undo the orphaned insert
		if _, delErr := s.profiles.Delete(ctx, id); delErr != nil {
			s.log.WithError(delErr).WithField("profile_id", id).
				Error("orphaned profile left behind after failed link")
		}
		return nil, utils.E(utils.CodeInternal, op, "link profile to user", err)
	}

	s.log.WithFields(logrus.Fields{"user_id": userID, "profile_id": id}).
		Info("profile created")
	return p, nil
}

// GetOwn returns the caller's profile, or NOT_FOUND when none is linked.
func (s *ProfileService) GetOwn(ctx context.Context, userID string) (*models.Profile, error) {
	const op = "ProfileService.GetOwn"

	profileID, err := s.ownProfileID(ctx, op, userID)
	if err != nil {
		return nil, err
	}
	return s.getByID(ctx, op, profileID)
}

func (s *ProfileService) GetByID(ctx context.Context, profileID string) (*models.Profile, error) {
	return s.getByID(ctx, "ProfileService.GetByID", profileID)
}

func (s *ProfileService) getByID(ctx context.Context, op, profileID string) (*models.Profile, error) {
	p, err := s.profiles.GetByID(ctx, profileID)
	if err == utils.ErrNotFound {
		return nil, utils.E(utils.CodeNotFound, op, "profile not found", err)
	}
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "load profile", err)
	}
	return p, nil
}

// Update applies the mutable field subset. Identity fields (first_name,
// date_of_birth, gender) have no update path.
func (s *ProfileService) Update(ctx context.Context, userID string, upd *models.ProfileUpdate) (*models.Profile, error) {
	const op = "ProfileService.Update"

	profileID, err := s.ownProfileID(ctx, op, userID)
	if err != nil {
		return nil, err
	}

	set := bson.M{}
	if upd.Location != nil {
		if err := s.resolveLocation(ctx, upd.Location); err != nil {
			if errors.Is(err, errUnknownCity) {
				return nil, utils.E(utils.CodeInvalidArgument, op, "city could not be located", err)
			}
			return nil, utils.E(utils.CodeUnavailable, op, "geocoding failed", err)
		}
		set["location"] = *upd.Location
	}
	if upd.LookingFor != nil {
		for _, lf := range *upd.LookingFor {
			if !lf.Valid() {
				return nil, utils.E(utils.CodeInvalidArgument, op, "invalid looking_for value", nil)
			}
		}
		set["looking_for"] = *upd.LookingFor
	}
	if upd.LookingForGender != nil {
		for _, g := range *upd.LookingForGender {
			if !g.Valid() {
				return nil, utils.E(utils.CodeInvalidArgument, op, "invalid looking_for_gender value", nil)
			}
		}
		set["looking_for_gender"] = *upd.LookingForGender
	}
	if upd.Subject != nil {
		set["subject"] = *upd.Subject
	}
	if upd.Description != nil {
		set["description"] = *upd.Description
	}
	if upd.Goals != nil {
		set["goals"] = *upd.Goals
	}
	if upd.Photos != nil {
		set["photos"] = *upd.Photos
	}
	if len(set) == 0 {
		return nil, utils.E(utils.CodeInvalidArgument, op, "no fields to update", nil)
	}

	matched, err := s.profiles.Update(ctx, profileID, set)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "update profile", err)
	}
	if !matched {
		return nil, utils.E(utils.CodeNotFound, op, "profile not found", nil)
	}
	return s.getByID(ctx, op, profileID)
}

// AddPhoto uploads one photo and appends its public URL to the profile.
func (s *ProfileService) AddPhoto(ctx context.Context, userID, filename, contentType string, r io.Reader) (string, error) {
	const op = "ProfileService.AddPhoto"

	if s.uploader == nil {
		return "", utils.E(utils.CodeUnavailable, op, "photo storage not configured", nil)
	}

	profileID, err := s.ownProfileID(ctx, op, userID)
	if err != nil {
		return "", err
	}

	objectName := fmt.Sprintf("profiles/%s/%s%s", profileID, uuid.NewString(), path.Ext(filename))
	url, err := s.uploader.Upload(ctx, objectName, contentType, r)
	if err != nil {
		return "", utils.E(utils.CodeUnavailable, op, "upload photo", err)
	}

	if err := s.profiles.PushPhoto(ctx, profileID, url); err != nil {
		if err == utils.ErrNotFound {
			return "", utils.E(utils.CodeNotFound, op, "profile not found", err)
		}
		return "", utils.E(utils.CodeInternal, op, "attach photo", err)
	}
	return url, nil
}

// CompletionStatus reports whether the user has a linked profile.
func (s *ProfileService) CompletionStatus(ctx context.Context, userID string) (bool, *string, error) {
	const op = "ProfileService.CompletionStatus"

	u, err := s.users.GetByID(ctx, userID)
	if err == utils.ErrNotFound {
		return false, nil, utils.E(utils.CodeNotFound, op, "user not found", err)
	}
	if err != nil {
		return false, nil, utils.E(utils.CodeInternal, op, "load user", err)
	}
	return u.ProfileCompleted, u.ProfileID, nil
}

func (s *ProfileService) ownProfileID(ctx context.Context, op, userID string) (string, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err == utils.ErrNotFound {
		return "", utils.E(utils.CodeNotFound, op, "user not found", err)
	}
	if err != nil {
		return "", utils.E(utils.CodeInternal, op, "load user", err)
	}
	if u.ProfileID == nil {
		return "", utils.E(utils.CodeNotFound, op, "no profile yet", nil)
	}
	return *u.ProfileID, nil
}

// resolveLocation fills in coordinates from the city name when the caller
// supplied none. Resolved cities are cached; coordinates do not move.
func (s *ProfileService) resolveLocation(ctx context.Context, gp *models.GeoPoint) error {
	return resolveGeoPoint(ctx, s.geocoder, s.cache, gp)
}

func resolveGeoPoint(ctx context.Context, geocoder Geocoder, rc *cache.RedisCache, gp *models.GeoPoint) error {
	if len(gp.Coordinates) == 2 && (gp.Coordinates[0] != 0 || gp.Coordinates[1] != 0) {
		gp.Type = "Point"
		return nil
	}
	if gp.CityName == "" {
		return errUnknownCity
	}

	key := cache.GeocodeKey(gp.CityName, defaultCountry)
	if rc != nil {
		var cached geocoding.Coordinates
		if hit, err := rc.GetJSON(ctx, key, &cached); err == nil && hit && cached.Valid() {
			*gp = models.NewGeoPoint(gp.CityName, cached.Lon, cached.Lat)
			return nil
		}
	}

	if geocoder == nil {
		return errUnknownCity
	}
	coords, err := geocoder.Geocode(ctx, gp.CityName, defaultCountry)
	if err != nil {
		return err
	}
	if coords == nil {
		return errUnknownCity
	}

	if rc != nil {
		_ = rc.SetJSON(ctx, key, coords, geocodeCacheTTL)
	}
	*gp = models.NewGeoPoint(gp.CityName, coords.Lon, coords.Lat)
	return nil
}

func validateProfile(op string, p *models.Profile) error {
	if p.FirstName == "" {
		return utils.E(utils.CodeInvalidArgument, op, "first_name is required", nil)
	}
	if p.DateOfBirth.IsZero() {
		return utils.E(utils.CodeInvalidArgument, op, "date_of_birth is required", nil)
	}
	if models.AgeAt(p.DateOfBirth, time.Now().UTC()) < minProfileAge {
		return utils.E(utils.CodeInvalidArgument, op, "must be at least 18", nil)
	}
	if !p.Gender.Valid() {
		return utils.E(utils.CodeInvalidArgument, op, "invalid gender", nil)
	}
	if len(p.LookingFor) == 0 || len(p.LookingForGender) == 0 {
		return utils.E(utils.CodeInvalidArgument, op, "looking_for and looking_for_gender are required", nil)
	}
	for _, lf := range p.LookingFor {
		if !lf.Valid() {
			return utils.E(utils.CodeInvalidArgument, op, "invalid looking_for value", nil)
		}
	}
	for _, g := range p.LookingForGender {
		if !g.Valid() {
			return utils.E(utils.CodeInvalidArgument, op, "invalid looking_for_gender value", nil)
		}
	}
	if p.Location.CityName == "" && len(p.Location.Coordinates) != 2 {
		return utils.E(utils.CodeInvalidArgument, op, "location is required", nil)
	}
	if p.Subject == "" {
		return utils.E(utils.CodeInvalidArgument, op, "subject is required", nil)
	}
	return nil
}
