package services

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/educlove/educlove-backend/internal/models"
	mongorepo "github.com/educlove/educlove-backend/internal/repositories/mongo"
	"github.com/educlove/educlove-backend/internal/repositories/postgres"
	"github.com/educlove/educlove-backend/internal/utils"
)

// DiscoveryService picks one candidate at a time: the requester's own
// preferences and saved criteria narrow the pool, visited profiles drop
// out, and the pick among the remainder is uniformly random.
type DiscoveryService struct {
	users    postgres.UserRepository
	profiles mongorepo.ProfileRepository
	criteria mongorepo.CriteriaRepository
	visits   mongorepo.VisitRepository
	log      *logrus.Logger
}

func NewDiscoveryService(
	users postgres.UserRepository,
	profiles mongorepo.ProfileRepository,
	criteria mongorepo.CriteriaRepository,
	visits mongorepo.VisitRepository,
	log *logrus.Logger,
) *DiscoveryService {
	return &DiscoveryService{
		users:    users,
		profiles: profiles,
		criteria: criteria,
		visits:   visits,
		log:      log,
	}
}

// SelectCandidate returns one eligible profile, or (nil, nil) when the pool
// is empty. An empty pool is a normal outcome, not an error.
func (s *DiscoveryService) SelectCandidate(ctx context.Context, userID string) (*models.Profile, error) {
	const op = "DiscoveryService.SelectCandidate"

	u, err := s.users.GetByID(ctx, userID)
	if err == utils.ErrNotFound {
		return nil, utils.E(utils.CodeNotFound, op, "user not found", err)
	}
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "load user", err)
	}
	if u.ProfileID == nil {
		return nil, utils.E(utils.CodeInvalidArgument, op, "complete your profile before browsing", nil)
	}

	requester, err := s.profiles.GetByID(ctx, *u.ProfileID)
	if err == utils.ErrNotFound {
		return nil, utils.E(utils.CodeNotFound, op, "profile not found", err)
	}
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "load profile", err)
	}

	crit, err := s.criteria.GetByUserID(ctx, userID)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "load search criteria", err)
	}

	visitedIDs, err := s.visits.VisitedIDs(ctx, userID)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "load visited ids", err)
	}

	query := mongorepo.BuildCandidateQuery(requester, crit, visitedIDs, time.Now().UTC())
	candidate, err := s.profiles.SampleOne(ctx, query)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "sample candidate", err)
	}
	if candidate == nil {
		s.log.WithField("user_id", userID).Debug("candidate pool empty")
	}
	return candidate, nil
}
