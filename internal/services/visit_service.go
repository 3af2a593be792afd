package services

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/educlove/educlove-backend/internal/cache"
	"github.com/educlove/educlove-backend/internal/models"
	mongorepo "github.com/educlove/educlove-backend/internal/repositories/mongo"
	"github.com/educlove/educlove-backend/internal/utils"
)

const visitCountTTL = time.Hour

// VisitService tracks which profiles a user has seen. Records expire after
// thirty days through the TTL index, at which point a profile becomes
// eligible for discovery again.
type VisitService struct {
	visits   mongorepo.VisitRepository
	profiles mongorepo.ProfileRepository
	cache    *cache.RedisCache
	log      *logrus.Logger
}

func NewVisitService(visits mongorepo.VisitRepository, profiles mongorepo.ProfileRepository, rc *cache.RedisCache, log *logrus.Logger) *VisitService {
	return &VisitService{visits: visits, profiles: profiles, cache: rc, log: log}
}

// RecordVisit upserts the (user, profile) pair and returns the visit
// record id. A repeat visit refreshes the timestamp and restarts the
// expiry clock.
func (s *VisitService) RecordVisit(ctx context.Context, userID, visitedProfileID string) (string, error) {
	const op = "VisitService.RecordVisit"

	exists, err := s.profiles.Exists(ctx, visitedProfileID)
	if err != nil {
		return "", utils.E(utils.CodeInternal, op, "check profile", err)
	}
	if !exists {
		return "", utils.E(utils.CodeNotFound, op, "profile not found", nil)
	}

	id, err := s.visits.Upsert(ctx, userID, visitedProfileID)
	if err != nil {
		return "", utils.E(utils.CodeInternal, op, "record visit", err)
	}
	s.invalidateCount(ctx, userID)
	return id, nil
}

func (s *VisitService) HasVisited(ctx context.Context, userID, visitedProfileID string) (bool, error) {
	const op = "VisitService.HasVisited"

	has, err := s.visits.Has(ctx, userID, visitedProfileID)
	if err != nil {
		return false, utils.E(utils.CodeInternal, op, "check visit", err)
	}
	return has, nil
}

func (s *VisitService) ListVisited(ctx context.Context, userID string, limit, skip int64) ([]models.ProfileVisit, error) {
	const op = "VisitService.ListVisited"

	out, err := s.visits.List(ctx, userID, limit, skip)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "list visits", err)
	}
	return out, nil
}

func (s *VisitService) VisitedIDs(ctx context.Context, userID string) ([]string, error) {
	const op = "VisitService.VisitedIDs"

	ids, err := s.visits.VisitedIDs(ctx, userID)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "list visited ids", err)
	}
	return ids, nil
}

// Count returns the number of live visit records, cached for an hour and
// invalidated whenever the set changes.
func (s *VisitService) Count(ctx context.Context, userID string) (int64, error) {
	const op = "VisitService.Count"

	key := cache.VisitCountKey(userID)
	if s.cache != nil {
		var cached int64
		if hit, err := s.cache.GetJSON(ctx, key, &cached); err == nil && hit {
			return cached, nil
		}
	}

	n, err := s.visits.Count(ctx, userID)
	if err != nil {
		return 0, utils.E(utils.CodeInternal, op, "count visits", err)
	}
	if s.cache != nil {
		_ = s.cache.SetJSON(ctx, key, n, visitCountTTL)
	}
	return n, nil
}

// Unsee removes one visit record so the profile can reappear in discovery.
func (s *VisitService) Unsee(ctx context.Context, userID, visitedProfileID string) error {
	const op = "VisitService.Unsee"

	deleted, err := s.visits.Delete(ctx, userID, visitedProfileID)
	if err != nil {
		return utils.E(utils.CodeInternal, op, "delete visit", err)
	}
	if !deleted {
		return utils.E(utils.CodeNotFound, op, "visit not found", nil)
	}
	s.invalidateCount(ctx, userID)
	return nil
}

func (s *VisitService) UnseeAll(ctx context.Context, userID string) (int64, error) {
	const op = "VisitService.UnseeAll"

	n, err := s.visits.DeleteAll(ctx, userID)
	if err != nil {
		return 0, utils.E(utils.CodeInternal, op, "delete visits", err)
	}
	s.invalidateCount(ctx, userID)
	return n, nil
}

func (s *VisitService) invalidateCount(ctx context.Context, userID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, cache.VisitCountKey(userID)); err != nil {
		s.log.WithError(err).WithField("user_id", userID).Warn("visit count cache invalidation failed")
	}
}
