package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/educlove/educlove-backend/internal/cache"
	"github.com/educlove/educlove-backend/internal/models"
	mongorepo "github.com/educlove/educlove-backend/internal/repositories/mongo"
	"github.com/educlove/educlove-backend/internal/utils"
)

const (
	messagesPerBucket = 100
	defaultPageSize   = 50
	maxPageSize       = 200
	maxMessageLength  = 2000
)

// ConversationService stores a match's chat as a chain of fixed-capacity
// buckets. Only the highest-numbered bucket accepts writes; once it fills,
// the next append opens the following bucket.
type ConversationService struct {
	buckets mongorepo.ConversationRepository
	matches mongorepo.MatchRepository
	cache   *cache.RedisCache
	log     *logrus.Logger
}

func NewConversationService(
	buckets mongorepo.ConversationRepository,
	matches mongorepo.MatchRepository,
	rc *cache.RedisCache,
	log *logrus.Logger,
) *ConversationService {
	return &ConversationService{buckets: buckets, matches: matches, cache: rc, log: log}
}

// Create opens the conversation for a match, seeding bucket one with the
// sender's first message. An empty content opens the conversation without
// a message. Calling it again for the same match is a no-op.
func (s *ConversationService) Create(ctx context.Context, matchID, senderProfileID, senderName, content string) error {
	const op = "ConversationService.Create"

	content = strings.TrimSpace(content)
	if len(content) > maxMessageLength {
		return utils.E(utils.CodeInvalidArgument, op, "message too long", nil)
	}

	msgs := []models.Message{}
	if content != "" {
		msgs = append(msgs, models.Message{
			SentAt:          time.Now().UTC(),
			SenderProfileID: senderProfileID,
			SenderName:      senderName,
			Content:         content,
		})
	}

	_, err := s.buckets.InsertBucket(ctx, &models.ConversationBucket{
		MatchID:      matchID,
		BucketNumber: 1,
		MessageCount: len(msgs),
		Messages:     msgs,
	})
	if errors.Is(err, utils.ErrConflict) {
		return nil
	}
	if err != nil {
		return utils.E(utils.CodeInternal, op, "create conversation", err)
	}
	return nil
}

// AddMessage appends to the active bucket, rolling over to a new bucket
// when the active one is full. A race on the rollover is replayed once.
// The stored message is also fanned out on the match's pub/sub channel.
func (s *ConversationService) AddMessage(ctx context.Context, matchID, senderProfileID, senderName, content string) (*models.Message, error) {
	const op = "ConversationService.AddMessage"

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "message is empty", nil)
	}
	if len(content) > maxMessageLength {
		return nil, utils.E(utils.CodeInvalidArgument, op, "message too long", nil)
	}

	if _, err := s.authorize(ctx, op, senderProfileID, matchID, true); err != nil {
		return nil, err
	}

	msg := models.Message{
		SentAt:          time.Now().UTC(),
		SenderProfileID: senderProfileID,
		SenderName:      senderName,
		Content:         content,
	}

	stored := false
	for attempt := 0; attempt < 2 && !stored; attempt++ {
		latest, err := s.buckets.LatestBucket(ctx, matchID)
		if err != nil {
			return nil, utils.E(utils.CodeInternal, op, "load active bucket", err)
		}

		if latest == nil {
			_, err := s.buckets.InsertBucket(ctx, &models.ConversationBucket{
				MatchID:      matchID,
				BucketNumber: 1,
				MessageCount: 1,
				Messages:     []models.Message{msg},
			})
			if errors.Is(err, utils.ErrConflict) {
				continue
			}
			if err != nil {
				return nil, utils.E(utils.CodeInternal, op, "create conversation", err)
			}
			stored = true
			break
		}

		ok, err := s.buckets.AppendIfBelowCapacity(ctx, latest.ID, messagesPerBucket, msg)
		if err != nil {
			return nil, utils.E(utils.CodeInternal, op, "append message", err)
		}
		if ok {
			stored = true
			break
		}

		// active bucket filled up, open the next one with this message
		_, err = s.buckets.InsertBucket(ctx, &models.ConversationBucket{
			MatchID:      matchID,
			BucketNumber: latest.BucketNumber + 1,
			MessageCount: 1,
			Messages:     []models.Message{msg},
		})
		if errors.Is(err, utils.ErrConflict) {
			continue
		}
		if err != nil {
			return nil, utils.E(utils.CodeInternal, op, "open next bucket", err)
		}
		stored = true
	}
	if !stored {
		return nil, utils.E(utils.CodeUnavailable, op, "message raced with concurrent writers, try again", nil)
	}

	if s.cache != nil {
		if err := s.cache.PublishJSON(ctx, cache.ConversationChannel(matchID), msg); err != nil {
			s.log.WithError(err).WithField("match_id", matchID).Warn("message fan-out failed")
		}
	}
	return &msg, nil
}

// GetConversation returns a page of messages in chronological order along
// with the total message count.
func (s *ConversationService) GetConversation(ctx context.Context, viewerProfileID, matchID string, offset, limit int) ([]models.Message, int, error) {
	const op = "ConversationService.GetConversation"

	if _, err := s.authorize(ctx, op, viewerProfileID, matchID, false); err != nil {
		return nil, 0, err
	}
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	buckets, err := s.buckets.BucketsAsc(ctx, matchID)
	if err != nil {
		return nil, 0, utils.E(utils.CodeInternal, op, "load conversation", err)
	}

	total := 0
	for _, b := range buckets {
		total += len(b.Messages)
	}

	all := make([]models.Message, 0, total)
	for _, b := range buckets {
		all = append(all, b.Messages...)
	}
	if offset >= len(all) {
		return []models.Message{}, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

// GetLatestMessages returns the newest count messages in chronological
// order, walking buckets from the tail so early buckets are never loaded
// into the result needlessly.
func (s *ConversationService) GetLatestMessages(ctx context.Context, viewerProfileID, matchID string, count int) ([]models.Message, error) {
	const op = "ConversationService.GetLatestMessages"

	if _, err := s.authorize(ctx, op, viewerProfileID, matchID, false); err != nil {
		return nil, err
	}
	if count <= 0 {
		count = defaultPageSize
	}
	if count > maxPageSize {
		count = maxPageSize
	}

	buckets, err := s.buckets.BucketsDesc(ctx, matchID)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "load conversation", err)
	}

	out := make([]models.Message, 0, count)
	for _, b := range buckets {
		msgs := b.Messages
		need := count - len(out)
		if need <= 0 {
			break
		}
		if len(msgs) > need {
			msgs = msgs[len(msgs)-need:]
		}
		out = append(msgs, out...)
	}
	return out, nil
}

// UnreadCount counts messages from the other participant sent after the
// given timestamp.
func (s *ConversationService) UnreadCount(ctx context.Context, viewerProfileID, matchID string, since time.Time) (int, error) {
	const op = "ConversationService.UnreadCount"

	if _, err := s.authorize(ctx, op, viewerProfileID, matchID, false); err != nil {
		return 0, err
	}

	buckets, err := s.buckets.BucketsDesc(ctx, matchID)
	if err != nil {
		return 0, utils.E(utils.CodeInternal, op, "load conversation", err)
	}

	n := 0
	for _, b := range buckets {
		// updated_at bounds every sent_at inside the bucket
		if b.UpdatedAt.Before(since) {
			break
		}
		for _, m := range b.Messages {
			if m.SenderProfileID != viewerProfileID && m.SentAt.After(since) {
				n++
			}
		}
	}
	return n, nil
}

// Summary reports aggregate counts plus the first and last message.
func (s *ConversationService) Summary(ctx context.Context, viewerProfileID, matchID string) (*models.ConversationSummary, error) {
	const op = "ConversationService.Summary"

	if _, err := s.authorize(ctx, op, viewerProfileID, matchID, false); err != nil {
		return nil, err
	}

	buckets, err := s.buckets.BucketsAsc(ctx, matchID)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "load conversation", err)
	}

	sum := &models.ConversationSummary{MatchID: matchID, TotalBuckets: len(buckets)}
	for _, b := range buckets {
		sum.TotalMessages += len(b.Messages)
	}
	if len(buckets) == 0 {
		return sum, nil
	}

	first := buckets[0]
	last := buckets[len(buckets)-1]
	sum.CreatedAt = &first.CreatedAt
	sum.UpdatedAt = &last.UpdatedAt
	if len(first.Messages) > 0 {
		sum.FirstMessage = &first.Messages[0]
	}
	// the newest message sits in the last non-empty bucket
	for i := len(buckets) - 1; i >= 0; i-- {
		if n := len(buckets[i].Messages); n > 0 {
			sum.LastMessage = &buckets[i].Messages[n-1]
			break
		}
	}
	return sum, nil
}

func (s *ConversationService) Exists(ctx context.Context, matchID string) (bool, error) {
	const op = "ConversationService.Exists"

	ok, err := s.buckets.Exists(ctx, matchID)
	if err != nil {
		return false, utils.E(utils.CodeInternal, op, "check conversation", err)
	}
	return ok, nil
}

// authorize verifies the profile belongs to the match. Reading is open
// while the match is still pending so a liker can see their own opening
// message; sending requires a mutual match.
func (s *ConversationService) authorize(ctx context.Context, op, profileID, matchID string, write bool) (*models.Match, error) {
	m, err := s.matches.GetByID(ctx, matchID)
	if err == utils.ErrNotFound {
		return nil, utils.E(utils.CodeNotFound, op, "match not found", err)
	}
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "load match", err)
	}
	if m.InitiatorProfileID != profileID && m.TargetProfileID != profileID {
		return nil, utils.E(utils.CodeForbidden, op, "not a participant", nil)
	}
	if write && m.Status != models.MatchAccepted {
		return nil, utils.E(utils.CodeForbidden, op, "messaging requires a mutual match", nil)
	}
	if !write && m.Status != models.MatchAccepted && m.Status != models.MatchPending {
		return nil, utils.E(utils.CodeForbidden, op, "conversation is closed", nil)
	}
	return m, nil
}
