package services

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/educlove/educlove-backend/internal/models"
	mongorepo "github.com/educlove/educlove-backend/internal/repositories/mongo"
	"github.com/educlove/educlove-backend/internal/utils"
)

// conversationSeeder is the slice of the conversation store the reconciler
// needs to open a chat when a like lands and to complete it on mutual.
type conversationSeeder interface {
	Create(ctx context.Context, matchID, senderProfileID, senderName, content string) error
	AddMessage(ctx context.Context, matchID, senderProfileID, senderName, content string) (*models.Message, error)
	Exists(ctx context.Context, matchID string) (bool, error)
}

// MatchEntry pairs a match edge with the viewer's direction and the other
// participant's profile.
type MatchEntry struct {
	Match     models.Match          `json:"match"`
	Direction models.MatchDirection `json:"direction"`
	Other     *models.Profile       `json:"other_profile,omitempty"`
}

// MatchService reconciles likes into directed match edges. A like either
// creates a pending edge, accepts the opposite-direction pending edge
// (mutual match), or lands on an edge that already exists.
type MatchService struct {
	matches       mongorepo.MatchRepository
	profiles      mongorepo.ProfileRepository
	conversations conversationSeeder
	log           *logrus.Logger
}

func NewMatchService(
	matches mongorepo.MatchRepository,
	profiles mongorepo.ProfileRepository,
	conversations conversationSeeder,
	log *logrus.Logger,
) *MatchService {
	return &MatchService{
		matches:       matches,
		profiles:      profiles,
		conversations: conversations,
		log:           log,
	}
}

// Like records that initiator liked target and reports what that meant:
// like_sent, mutual_match, or already_liked. Races with the opposite like
// are resolved by conditional updates; a lost race is replayed once.
func (s *MatchService) Like(ctx context.Context, initiatorProfileID, targetProfileID, message string) (*models.LikeResult, error) {
	const op = "MatchService.Like"

	if initiatorProfileID == targetProfileID {
		return nil, utils.E(utils.CodeInvalidArgument, op, "cannot like your own profile", nil)
	}
	exists, err := s.profiles.Exists(ctx, targetProfileID)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "check target profile", err)
	}
	if !exists {
		return nil, utils.E(utils.CodeNotFound, op, "target profile not found", nil)
	}

	for attempt := 0; attempt < 2; attempt++ {
		res, retry, err := s.likeOnce(ctx, op, initiatorProfileID, targetProfileID, message)
		if err != nil {
			return nil, err
		}
		if !retry {
			return res, nil
		}
	}
	return nil, utils.E(utils.CodeUnavailable, op, "like raced with a concurrent update, try again", nil)
}

func (s *MatchService) likeOnce(ctx context.Context, op, initiatorProfileID, targetProfileID, message string) (*models.LikeResult, bool, error) {
	forward, err := s.matches.FindByPair(ctx, initiatorProfileID, targetProfileID)
	if err != nil {
		return nil, false, utils.E(utils.CodeInternal, op, "look up existing like", err)
	}
	if forward != nil {
		return &models.LikeResult{
			Action:  models.ActionAlreadyLiked,
			MatchID: forward.ID.Hex(),
			Status:  forward.Status,
		}, false, nil
	}

	reverse, err := s.matches.FindByPair(ctx, targetProfileID, initiatorProfileID)
	if err != nil {
		return nil, false, utils.E(utils.CodeInternal, op, "look up reverse like", err)
	}

	if reverse != nil {
		switch reverse.Status {
		case models.MatchPending:
			ok, err := s.matches.AcceptIfPending(ctx, reverse.ID.Hex())
			if err != nil {
				return nil, false, utils.E(utils.CodeInternal, op, "accept reverse like", err)
			}
			if !ok {
				// reverse flipped under us, replay from the top
				return nil, true, nil
			}
			s.seedConversation(ctx, reverse, initiatorProfileID, message)
			return &models.LikeResult{
				Action:         models.ActionMutualMatch,
				MatchID:        reverse.ID.Hex(),
				Status:         models.MatchAccepted,
				InitialMessage: reverse.Message,
			}, false, nil

		case models.MatchAccepted:
			// pair already mutual, nothing new to record
			return &models.LikeResult{
				Action:         models.ActionMutualMatch,
				MatchID:        reverse.ID.Hex(),
				Status:         models.MatchAccepted,
				InitialMessage: reverse.Message,
			}, false, nil
		}
		// rejected or blocked reverse edges do not stop a fresh like
	}

	m := &models.Match{
		InitiatorProfileID: initiatorProfileID,
		TargetProfileID:    targetProfileID,
		Status:             models.MatchPending,
		Message:            message,
	}
	id, err := s.matches.Insert(ctx, m)
	if errors.Is(err, utils.ErrConflict) {
		// concurrent duplicate like, replay to pick it up
		return nil, true, nil
	}
	if err != nil {
		return nil, false, utils.E(utils.CodeInternal, op, "insert like", err)
	}
	s.openConversation(ctx, id, initiatorProfileID, message)
	return &models.LikeResult{
		Action:  models.ActionLikeSent,
		MatchID: id,
		Status:  models.MatchPending,
	}, false, nil
}

// openConversation seeds the chat with the liker's opening message so they
// can see what they sent while the match is still pending. The like itself
// is already recorded, so failures here are logged rather than surfaced.
func (s *MatchService) openConversation(ctx context.Context, matchID, likerProfileID, message string) {
	if s.conversations == nil || message == "" {
		return
	}
	name := s.senderName(ctx, likerProfileID)
	if err := s.conversations.Create(ctx, matchID, likerProfileID, name, message); err != nil {
		s.log.WithError(err).WithField("match_id", matchID).Error("conversation creation failed")
	}
}

// seedConversation brings the chat up to date when a match turns mutual.
// The reverse like normally opened it with its own message already, so the
// common case is a plain append of the current liker's message; when the
// chat is missing it is rebuilt with the earlier message first. The match
// itself is already recorded, so failures are logged rather than surfaced.
func (s *MatchService) seedConversation(ctx context.Context, reverse *models.Match, likerProfileID, likerMessage string) {
	if s.conversations == nil {
		return
	}
	matchID := reverse.ID.Hex()

	exists, err := s.conversations.Exists(ctx, matchID)
	if err != nil {
		s.log.WithError(err).WithField("match_id", matchID).Error("conversation lookup failed")
		return
	}
	if !exists {
		name := s.senderName(ctx, reverse.InitiatorProfileID)
		if err := s.conversations.Create(ctx, matchID, reverse.InitiatorProfileID, name, reverse.Message); err != nil {
			s.log.WithError(err).WithField("match_id", matchID).Error("conversation creation failed")
			return
		}
	}
	if likerMessage != "" {
		name := s.senderName(ctx, likerProfileID)
		if _, err := s.conversations.AddMessage(ctx, matchID, likerProfileID, name, likerMessage); err != nil {
			s.log.WithError(err).WithField("match_id", matchID).Warn("seeding liker message failed")
		}
	}
}

func (s *MatchService) senderName(ctx context.Context, profileID string) string {
	p, err := s.profiles.GetByID(ctx, profileID)
	if err != nil {
		return ""
	}
	return p.FirstName
}

// Get returns a match to one of its participants.
func (s *MatchService) Get(ctx context.Context, viewerProfileID, matchID string) (*models.Match, error) {
	const op = "MatchService.Get"

	m, err := s.matches.GetByID(ctx, matchID)
	if err == utils.ErrNotFound {
		return nil, utils.E(utils.CodeNotFound, op, "match not found", err)
	}
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "load match", err)
	}
	if m.InitiatorProfileID != viewerProfileID && m.TargetProfileID != viewerProfileID {
		return nil, utils.E(utils.CodeForbidden, op, "not a participant", nil)
	}
	return m, nil
}

// List returns the viewer's matches, newest activity first, each tagged
// with the viewer's direction and the other party's profile.
func (s *MatchService) List(ctx context.Context, viewerProfileID string, status *models.MatchStatus, direction *models.MatchDirection) ([]MatchEntry, error) {
	const op = "MatchService.List"

	matches, err := s.matches.ListForProfile(ctx, viewerProfileID, status, direction)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "list matches", err)
	}

	out := make([]MatchEntry, 0, len(matches))
	for _, m := range matches {
		entry := MatchEntry{Match: m, Direction: models.DirectionReceived}
		otherID := m.InitiatorProfileID
		if m.InitiatorProfileID == viewerProfileID {
			entry.Direction = models.DirectionSent
			otherID = m.TargetProfileID
		}
		other, err := s.profiles.GetByID(ctx, otherID)
		if err != nil && err != utils.ErrNotFound {
			return nil, utils.E(utils.CodeInternal, op, "load counterpart profile", err)
		}
		entry.Other = other
		out = append(out, entry)
	}
	return out, nil
}

// UpdateStatus resolves a pending match. Accepting or rejecting is the
// target's call; blocking is open to either participant.
func (s *MatchService) UpdateStatus(ctx context.Context, viewerProfileID, matchID string, status models.MatchStatus) (*models.Match, error) {
	const op = "MatchService.UpdateStatus"

	if !status.Valid() || status == models.MatchPending {
		return nil, utils.E(utils.CodeInvalidArgument, op, "invalid status", nil)
	}

	m, err := s.matches.GetByID(ctx, matchID)
	if err == utils.ErrNotFound {
		return nil, utils.E(utils.CodeNotFound, op, "match not found", err)
	}
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "load match", err)
	}

	participant := m.InitiatorProfileID == viewerProfileID || m.TargetProfileID == viewerProfileID
	if !participant {
		return nil, utils.E(utils.CodeForbidden, op, "not a participant", nil)
	}

	switch status {
	case models.MatchBlocked:
		// either side may block, in any state

	case models.MatchAccepted:
		if m.TargetProfileID != viewerProfileID {
			return nil, utils.E(utils.CodeForbidden, op, "only the liked profile may accept", nil)
		}
		ok, err := s.matches.AcceptIfPending(ctx, matchID)
		if err != nil {
			return nil, utils.E(utils.CodeInternal, op, "accept match", err)
		}
		if !ok {
			return nil, utils.E(utils.CodeConflict, op, "match already resolved", nil)
		}
		return s.reload(ctx, op, matchID)

	case models.MatchRejected:
		if m.TargetProfileID != viewerProfileID {
			return nil, utils.E(utils.CodeForbidden, op, "only the liked profile may reject", nil)
		}
		if m.Status != models.MatchPending {
			return nil, utils.E(utils.CodeConflict, op, "match already resolved", nil)
		}
	}

	updated, err := s.matches.UpdateStatus(ctx, matchID, status)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "update match status", err)
	}
	if !updated {
		return nil, utils.E(utils.CodeNotFound, op, "match not found", nil)
	}
	return s.reload(ctx, op, matchID)
}

func (s *MatchService) reload(ctx context.Context, op, matchID string) (*models.Match, error) {
	m, err := s.matches.GetByID(ctx, matchID)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "reload match", err)
	}
	return m, nil
}
