package services

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/educlove/educlove-backend/internal/cache"
	"github.com/educlove/educlove-backend/internal/models"
	mongorepo "github.com/educlove/educlove-backend/internal/repositories/mongo"
	"github.com/educlove/educlove-backend/internal/utils"
)

type CriteriaService struct {
	criteria mongorepo.CriteriaRepository
	geocoder Geocoder
	cache    *cache.RedisCache
	log      *logrus.Logger
}

func NewCriteriaService(criteria mongorepo.CriteriaRepository, geocoder Geocoder, rc *cache.RedisCache, log *logrus.Logger) *CriteriaService {
	return &CriteriaService{criteria: criteria, geocoder: geocoder, cache: rc, log: log}
}

// Upsert saves the user's discovery filters, geocoding any location given
// by city name only.
func (s *CriteriaService) Upsert(ctx context.Context, userID string, c *models.SearchCriteria) (*models.SearchCriteria, error) {
	const op = "CriteriaService.Upsert"

	if len(c.Locations) != len(c.Radii) {
		return nil, utils.E(utils.CodeInvalidArgument, op, "locations and radii must pair up", nil)
	}
	if c.AgeMin != nil && *c.AgeMin < minProfileAge {
		return nil, utils.E(utils.CodeInvalidArgument, op, "age_min below minimum", nil)
	}
	if c.AgeMin != nil && c.AgeMax != nil && *c.AgeMax < *c.AgeMin {
		return nil, utils.E(utils.CodeInvalidArgument, op, "age_max below age_min", nil)
	}

	for i := range c.Locations {
		if err := resolveGeoPoint(ctx, s.geocoder, s.cache, &c.Locations[i]); err != nil {
			if errors.Is(err, errUnknownCity) {
				return nil, utils.E(utils.CodeInvalidArgument, op, "city could not be located", err)
			}
			return nil, utils.E(utils.CodeUnavailable, op, "geocoding failed", err)
		}
	}

	c.UserID = userID
	if err := s.criteria.Upsert(ctx, c); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "save search criteria", err)
	}

	saved, err := s.criteria.GetByUserID(ctx, userID)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "reload search criteria", err)
	}
	return saved, nil
}

// Get returns the user's saved criteria, or (nil, nil) when none exist.
func (s *CriteriaService) Get(ctx context.Context, userID string) (*models.SearchCriteria, error) {
	const op = "CriteriaService.Get"

	c, err := s.criteria.GetByUserID(ctx, userID)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "load search criteria", err)
	}
	return c, nil
}

func (s *CriteriaService) Delete(ctx context.Context, userID string) error {
	const op = "CriteriaService.Delete"

	deleted, err := s.criteria.Delete(ctx, userID)
	if err != nil {
		return utils.E(utils.CodeInternal, op, "delete search criteria", err)
	}
	if !deleted {
		return utils.E(utils.CodeNotFound, op, "no search criteria saved", nil)
	}
	return nil
}
