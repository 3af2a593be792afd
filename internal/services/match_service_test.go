package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/educlove/educlove-backend/internal/models"
	"github.com/educlove/educlove-backend/internal/utils"
)

type matchFixture struct {
	svc           *MatchService
	conversations *ConversationService
	matches       *fakeMatchRepo
	profiles      *fakeProfileRepo
	convRepo      *fakeConversationRepo
	alice, bob    string
}

func newMatchFixture(t *testing.T) *matchFixture {
	t.Helper()

	profiles := newFakeProfileRepo()
	alice := profiles.add(&models.Profile{FirstName: "Alice"})
	bob := profiles.add(&models.Profile{FirstName: "Bob"})

	matches := newFakeMatchRepo()
	convRepo := newFakeConversationRepo()
	conversations := NewConversationService(convRepo, matches, nil, testLogger())

	return &matchFixture{
		svc:           NewMatchService(matches, profiles, conversations, testLogger()),
		conversations: conversations,
		matches:       matches,
		profiles:      profiles,
		convRepo:      convRepo,
		alice:         alice,
		bob:           bob,
	}
}

func TestLike_FirstLikeIsPending(t *testing.T) {
	f := newMatchFixture(t)

	res, err := f.svc.Like(context.Background(), f.alice, f.bob, "bonjour")
	require.NoError(t, err)

	assert.Equal(t, models.ActionLikeSent, res.Action)
	assert.Equal(t, models.MatchPending, res.Status)
	assert.NotEmpty(t, res.MatchID)

	m, err := f.matches.GetByID(context.Background(), res.MatchID)
	require.NoError(t, err)
	assert.Equal(t, f.alice, m.InitiatorProfileID)
	assert.Equal(t, f.bob, m.TargetProfileID)
	assert.Equal(t, "bonjour", m.Message)
}

func TestLike_SeedsConversationWithSenderMessage(t *testing.T) {
	f := newMatchFixture(t)
	ctx := context.Background()

	res, err := f.svc.Like(ctx, f.alice, f.bob, "bonjour")
	require.NoError(t, err)
	require.Equal(t, models.ActionLikeSent, res.Action)

	// the liker can read back their opening message before the match
	// is mutual
	exists, err := f.conversations.Exists(ctx, res.MatchID)
	require.NoError(t, err)
	assert.True(t, exists)

	msgs, total, err := f.conversations.GetConversation(ctx, f.alice, res.MatchID, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, msgs, 1)
	assert.Equal(t, "bonjour", msgs[0].Content)
	assert.Equal(t, f.alice, msgs[0].SenderProfileID)
	assert.Equal(t, "Alice", msgs[0].SenderName)
}

func TestLike_WithoutMessageOpensNoConversation(t *testing.T) {
	f := newMatchFixture(t)

	res, err := f.svc.Like(context.Background(), f.alice, f.bob, "")
	require.NoError(t, err)

	exists, err := f.conversations.Exists(context.Background(), res.MatchID)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestLike_RepeatIsIdempotent(t *testing.T) {
	f := newMatchFixture(t)
	ctx := context.Background()

	first, err := f.svc.Like(ctx, f.alice, f.bob, "hi")
	require.NoError(t, err)

	second, err := f.svc.Like(ctx, f.alice, f.bob, "hi again")
	require.NoError(t, err)

	assert.Equal(t, models.ActionAlreadyLiked, second.Action)
	assert.Equal(t, first.MatchID, second.MatchID)
	assert.Equal(t, models.MatchPending, second.Status)
}

func TestLike_MutualAcceptsReverseEdge(t *testing.T) {
	f := newMatchFixture(t)
	ctx := context.Background()

	bobLike, err := f.svc.Like(ctx, f.bob, f.alice, "salut Alice")
	require.NoError(t, err)

	res, err := f.svc.Like(ctx, f.alice, f.bob, "salut Bob")
	require.NoError(t, err)

	assert.Equal(t, models.ActionMutualMatch, res.Action)
	assert.Equal(t, bobLike.MatchID, res.MatchID)
	assert.Equal(t, models.MatchAccepted, res.Status)
	assert.Equal(t, "salut Alice", res.InitialMessage)

	m, err := f.matches.GetByID(ctx, res.MatchID)
	require.NoError(t, err)
	assert.Equal(t, models.MatchAccepted, m.Status)

	// the conversation opened at Bob's like gains Alice's reply
	msgs, total, err := f.conversations.GetConversation(ctx, f.alice, res.MatchID, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, msgs, 2)
	assert.Equal(t, "salut Alice", msgs[0].Content)
	assert.Equal(t, f.bob, msgs[0].SenderProfileID)
	assert.Equal(t, "Bob", msgs[0].SenderName)
	assert.Equal(t, "salut Bob", msgs[1].Content)
	assert.Equal(t, f.alice, msgs[1].SenderProfileID)
}

func TestLike_MutualRebuildsMissingConversation(t *testing.T) {
	f := newMatchFixture(t)
	ctx := context.Background()

	bobLike, err := f.svc.Like(ctx, f.bob, f.alice, "salut Alice")
	require.NoError(t, err)

	// wipe the chat so the mutual like has to reconstruct it
	_, err = f.convRepo.DeleteAll(ctx, bobLike.MatchID)
	require.NoError(t, err)

	res, err := f.svc.Like(ctx, f.alice, f.bob, "salut Bob")
	require.NoError(t, err)
	require.Equal(t, models.ActionMutualMatch, res.Action)

	msgs, total, err := f.conversations.GetConversation(ctx, f.alice, res.MatchID, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, msgs, 2)
	assert.Equal(t, "salut Alice", msgs[0].Content)
	assert.Equal(t, f.bob, msgs[0].SenderProfileID)
	assert.Equal(t, "salut Bob", msgs[1].Content)
}

func TestLike_MutualWithoutMessages(t *testing.T) {
	f := newMatchFixture(t)
	ctx := context.Background()

	_, err := f.svc.Like(ctx, f.bob, f.alice, "")
	require.NoError(t, err)
	res, err := f.svc.Like(ctx, f.alice, f.bob, "")
	require.NoError(t, err)

	assert.Equal(t, models.ActionMutualMatch, res.Action)
	assert.Empty(t, res.InitialMessage)

	// conversation exists but holds no seeded messages
	exists, err := f.conversations.Exists(ctx, res.MatchID)
	require.NoError(t, err)
	assert.True(t, exists)
	_, total, err := f.conversations.GetConversation(ctx, f.bob, res.MatchID, 0, 0)
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestLike_SelfRejected(t *testing.T) {
	f := newMatchFixture(t)

	_, err := f.svc.Like(context.Background(), f.alice, f.alice, "")
	assert.True(t, utils.IsCode(err, utils.CodeInvalidArgument))
}

func TestLike_UnknownTarget(t *testing.T) {
	f := newMatchFixture(t)

	_, err := f.svc.Like(context.Background(), f.alice, "65f000000000000000000099", "")
	assert.True(t, utils.IsCode(err, utils.CodeNotFound))
}

func TestLike_InsertRaceReplays(t *testing.T) {
	f := newMatchFixture(t)
	f.matches.insertConflicts = 1

	res, err := f.svc.Like(context.Background(), f.alice, f.bob, "hi")
	require.NoError(t, err)
	assert.Equal(t, models.ActionLikeSent, res.Action)
}

func TestLike_AcceptRaceReplays(t *testing.T) {
	f := newMatchFixture(t)
	ctx := context.Background()

	_, err := f.svc.Like(ctx, f.bob, f.alice, "hey")
	require.NoError(t, err)

	f.matches.acceptMisses = 1
	res, err := f.svc.Like(ctx, f.alice, f.bob, "")
	require.NoError(t, err)
	assert.Equal(t, models.ActionMutualMatch, res.Action)
}

func TestLike_AfterMutualStaysMutual(t *testing.T) {
	f := newMatchFixture(t)
	ctx := context.Background()

	_, err := f.svc.Like(ctx, f.bob, f.alice, "first")
	require.NoError(t, err)
	mutual, err := f.svc.Like(ctx, f.alice, f.bob, "second")
	require.NoError(t, err)

	again, err := f.svc.Like(ctx, f.alice, f.bob, "third")
	require.NoError(t, err)
	assert.Equal(t, models.ActionMutualMatch, again.Action)
	assert.Equal(t, mutual.MatchID, again.MatchID)
}

func TestUpdateStatus_OnlyTargetAccepts(t *testing.T) {
	f := newMatchFixture(t)
	ctx := context.Background()

	res, err := f.svc.Like(ctx, f.alice, f.bob, "")
	require.NoError(t, err)

	_, err = f.svc.UpdateStatus(ctx, f.alice, res.MatchID, models.MatchAccepted)
	assert.True(t, utils.IsCode(err, utils.CodeForbidden))

	m, err := f.svc.UpdateStatus(ctx, f.bob, res.MatchID, models.MatchAccepted)
	require.NoError(t, err)
	assert.Equal(t, models.MatchAccepted, m.Status)

	// a resolved match cannot be accepted again
	_, err = f.svc.UpdateStatus(ctx, f.bob, res.MatchID, models.MatchAccepted)
	assert.True(t, utils.IsCode(err, utils.CodeConflict))
}

func TestUpdateStatus_EitherSideBlocks(t *testing.T) {
	f := newMatchFixture(t)
	ctx := context.Background()

	res, err := f.svc.Like(ctx, f.alice, f.bob, "")
	require.NoError(t, err)

	m, err := f.svc.UpdateStatus(ctx, f.alice, res.MatchID, models.MatchBlocked)
	require.NoError(t, err)
	assert.Equal(t, models.MatchBlocked, m.Status)
}

func TestUpdateStatus_OutsiderForbidden(t *testing.T) {
	f := newMatchFixture(t)
	ctx := context.Background()
	carol := f.profiles.add(&models.Profile{FirstName: "Carol"})

	res, err := f.svc.Like(ctx, f.alice, f.bob, "")
	require.NoError(t, err)

	_, err = f.svc.UpdateStatus(ctx, carol, res.MatchID, models.MatchRejected)
	assert.True(t, utils.IsCode(err, utils.CodeForbidden))
}

func TestUpdateStatus_PendingNotSettable(t *testing.T) {
	f := newMatchFixture(t)
	ctx := context.Background()

	res, err := f.svc.Like(ctx, f.alice, f.bob, "")
	require.NoError(t, err)

	_, err = f.svc.UpdateStatus(ctx, f.bob, res.MatchID, models.MatchPending)
	assert.True(t, utils.IsCode(err, utils.CodeInvalidArgument))
}

func TestList_DirectionAndCounterpart(t *testing.T) {
	f := newMatchFixture(t)
	ctx := context.Background()
	carol := f.profiles.add(&models.Profile{FirstName: "Carol"})

	_, err := f.svc.Like(ctx, f.alice, f.bob, "")
	require.NoError(t, err)
	_, err = f.svc.Like(ctx, carol, f.alice, "")
	require.NoError(t, err)

	all, err := f.svc.List(ctx, f.alice, nil, nil)
	require.NoError(t, err)
	require.Len(t, all, 2)

	byOther := map[string]MatchEntry{}
	for _, e := range all {
		require.NotNil(t, e.Other)
		byOther[e.Other.FirstName] = e
	}
	assert.Equal(t, models.DirectionSent, byOther["Bob"].Direction)
	assert.Equal(t, models.DirectionReceived, byOther["Carol"].Direction)

	received := models.DirectionReceived
	got, err := f.svc.List(ctx, f.alice, nil, &received)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Carol", got[0].Other.FirstName)
}
