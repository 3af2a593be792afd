package services

import (
	"context"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/educlove/educlove-backend/internal/models"
	"github.com/educlove/educlove-backend/internal/services/geocoding"
	"github.com/educlove/educlove-backend/internal/utils"
)

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// In-memory stand-ins for the repository interfaces. They reproduce the
// conditional-update and unique-index behavior the services lean on, plus
// counters to force the races the retry paths handle.

type fakeProfileRepo struct {
	profiles  map[string]*models.Profile
	sampled   *models.Profile
	lastQuery bson.M
}

func newFakeProfileRepo() *fakeProfileRepo {
	return &fakeProfileRepo{profiles: map[string]*models.Profile{}}
}

func (f *fakeProfileRepo) add(p *models.Profile) string {
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	f.profiles[p.ID.Hex()] = p
	return p.ID.Hex()
}

func (f *fakeProfileRepo) Insert(_ context.Context, p *models.Profile) (string, error) {
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	return f.add(p), nil
}

func (f *fakeProfileRepo) GetByID(_ context.Context, id string) (*models.Profile, error) {
	p, ok := f.profiles[id]
	if !ok {
		return nil, utils.ErrNotFound
	}
	return p, nil
}

func (f *fakeProfileRepo) Update(_ context.Context, id string, set bson.M) (bool, error) {
	if _, ok := f.profiles[id]; !ok {
		return false, nil
	}
	if loc, ok := set["location"].(models.GeoPoint); ok {
		f.profiles[id].Location = loc
	}
	if subj, ok := set["subject"].(string); ok {
		f.profiles[id].Subject = subj
	}
	return true, nil
}

func (f *fakeProfileRepo) PushPhoto(_ context.Context, id, url string) error {
	p, ok := f.profiles[id]
	if !ok {
		return utils.ErrNotFound
	}
	p.Photos = append(p.Photos, url)
	return nil
}

func (f *fakeProfileRepo) Exists(_ context.Context, id string) (bool, error) {
	_, ok := f.profiles[id]
	return ok, nil
}

func (f *fakeProfileRepo) Delete(_ context.Context, id string) (bool, error) {
	if _, ok := f.profiles[id]; !ok {
		return false, nil
	}
	delete(f.profiles, id)
	return true, nil
}

func (f *fakeProfileRepo) SampleOne(_ context.Context, filter bson.M) (*models.Profile, error) {
	f.lastQuery = filter
	return f.sampled, nil
}

type fakeMatchRepo struct {
	mu              sync.Mutex
	matches         map[string]*models.Match
	insertConflicts int
	acceptMisses    int
}

func newFakeMatchRepo() *fakeMatchRepo {
	return &fakeMatchRepo{matches: map[string]*models.Match{}}
}

func (f *fakeMatchRepo) add(m *models.Match) string {
	if m.ID.IsZero() {
		m.ID = primitive.NewObjectID()
	}
	if m.UpdatedAt.IsZero() {
		m.UpdatedAt = time.Now().UTC()
	}
	f.matches[m.ID.Hex()] = m
	return m.ID.Hex()
}

func (f *fakeMatchRepo) Insert(_ context.Context, m *models.Match) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.insertConflicts > 0 {
		f.insertConflicts--
		return "", utils.ErrConflict
	}
	for _, existing := range f.matches {
		if existing.InitiatorProfileID == m.InitiatorProfileID &&
			existing.TargetProfileID == m.TargetProfileID {
			return "", utils.ErrConflict
		}
	}
	now := time.Now().UTC()
	m.CreatedAt, m.UpdatedAt = now, now
	return f.add(m), nil
}

func (f *fakeMatchRepo) GetByID(_ context.Context, id string) (*models.Match, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.matches[id]
	if !ok {
		return nil, utils.ErrNotFound
	}
	return m, nil
}

func (f *fakeMatchRepo) FindByPair(_ context.Context, initiator, target string) (*models.Match, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.matches {
		if m.InitiatorProfileID == initiator && m.TargetProfileID == target {
			return m, nil
		}
	}
	return nil, nil
}

func (f *fakeMatchRepo) AcceptIfPending(_ context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.acceptMisses > 0 {
		f.acceptMisses--
		return false, nil
	}
	m, ok := f.matches[id]
	if !ok || m.Status != models.MatchPending {
		return false, nil
	}
	m.Status = models.MatchAccepted
	m.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (f *fakeMatchRepo) UpdateStatus(_ context.Context, id string, status models.MatchStatus) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.matches[id]
	if !ok {
		return false, nil
	}
	m.Status = status
	m.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (f *fakeMatchRepo) ListForProfile(_ context.Context, profileID string, status *models.MatchStatus, direction *models.MatchDirection) ([]models.Match, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []models.Match
	for _, m := range f.matches {
		switch {
		case direction != nil && *direction == models.DirectionSent:
			if m.InitiatorProfileID != profileID {
				continue
			}
		case direction != nil && *direction == models.DirectionReceived:
			if m.TargetProfileID != profileID {
				continue
			}
		default:
			if m.InitiatorProfileID != profileID && m.TargetProfileID != profileID {
				continue
			}
		}
		if status != nil && m.Status != *status {
			continue
		}
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

type fakeConversationRepo struct {
	mu              sync.Mutex
	buckets         []*models.ConversationBucket
	insertConflicts int
	appendMisses    int
}

func newFakeConversationRepo() *fakeConversationRepo {
	return &fakeConversationRepo{}
}

func (f *fakeConversationRepo) InsertBucket(_ context.Context, b *models.ConversationBucket) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.insertConflicts > 0 {
		f.insertConflicts--
		return "", utils.ErrConflict
	}
	for _, existing := range f.buckets {
		if existing.MatchID == b.MatchID && existing.BucketNumber == b.BucketNumber {
			return "", utils.ErrConflict
		}
	}
	b.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	b.CreatedAt, b.UpdatedAt = now, now
	f.buckets = append(f.buckets, b)
	return b.ID.Hex(), nil
}

func (f *fakeConversationRepo) LatestBucket(_ context.Context, matchID string) (*models.ConversationBucket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var latest *models.ConversationBucket
	for _, b := range f.buckets {
		if b.MatchID != matchID {
			continue
		}
		if latest == nil || b.BucketNumber > latest.BucketNumber {
			latest = b
		}
	}
	return latest, nil
}

func (f *fakeConversationRepo) AppendIfBelowCapacity(_ context.Context, bucketID primitive.ObjectID, capacity int, msg models.Message) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.appendMisses > 0 {
		f.appendMisses--
		return false, nil
	}
	for _, b := range f.buckets {
		if b.ID != bucketID {
			continue
		}
		if b.MessageCount >= capacity {
			return false, nil
		}
		b.Messages = append(b.Messages, msg)
		b.MessageCount++
		b.UpdatedAt = time.Now().UTC()
		return true, nil
	}
	return false, nil
}

func (f *fakeConversationRepo) BucketsAsc(_ context.Context, matchID string) ([]models.ConversationBucket, error) {
	return f.bucketsSorted(matchID, true), nil
}

func (f *fakeConversationRepo) BucketsDesc(_ context.Context, matchID string) ([]models.ConversationBucket, error) {
	return f.bucketsSorted(matchID, false), nil
}

func (f *fakeConversationRepo) bucketsSorted(matchID string, asc bool) []models.ConversationBucket {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []models.ConversationBucket
	for _, b := range f.buckets {
		if b.MatchID == matchID {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if asc {
			return out[i].BucketNumber < out[j].BucketNumber
		}
		return out[i].BucketNumber > out[j].BucketNumber
	})
	return out
}

func (f *fakeConversationRepo) Exists(_ context.Context, matchID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, b := range f.buckets {
		if b.MatchID == matchID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeConversationRepo) DeleteAll(_ context.Context, matchID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var kept []*models.ConversationBucket
	var n int64
	for _, b := range f.buckets {
		if b.MatchID == matchID {
			n++
			continue
		}
		kept = append(kept, b)
	}
	f.buckets = kept
	return n, nil
}

type fakeVisitRepo struct {
	visits map[string]time.Time // key: userID + "|" + profileID
}

func newFakeVisitRepo() *fakeVisitRepo {
	return &fakeVisitRepo{visits: map[string]time.Time{}}
}

func visitKey(userID, profileID string) string { return userID + "|" + profileID }

func (f *fakeVisitRepo) Upsert(_ context.Context, userID, profileID string) (string, error) {
	f.visits[visitKey(userID, profileID)] = time.Now().UTC()
	return primitive.NewObjectID().Hex(), nil
}

func (f *fakeVisitRepo) Has(_ context.Context, userID, profileID string) (bool, error) {
	_, ok := f.visits[visitKey(userID, profileID)]
	return ok, nil
}

func (f *fakeVisitRepo) List(_ context.Context, userID string, limit, skip int64) ([]models.ProfileVisit, error) {
	var out []models.ProfileVisit
	for key, at := range f.visits {
		parts := strings.SplitN(key, "|", 2)
		if parts[0] != userID {
			continue
		}
		out = append(out, models.ProfileVisit{
			UserID:           userID,
			VisitedProfileID: parts[1],
			VisitedAt:        at,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VisitedAt.After(out[j].VisitedAt) })
	return out, nil
}

func (f *fakeVisitRepo) VisitedIDs(_ context.Context, userID string) ([]string, error) {
	var ids []string
	for key := range f.visits {
		parts := strings.SplitN(key, "|", 2)
		if parts[0] == userID {
			ids = append(ids, parts[1])
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (f *fakeVisitRepo) Count(_ context.Context, userID string) (int64, error) {
	ids, _ := f.VisitedIDs(context.Background(), userID)
	return int64(len(ids)), nil
}

func (f *fakeVisitRepo) Delete(_ context.Context, userID, profileID string) (bool, error) {
	key := visitKey(userID, profileID)
	if _, ok := f.visits[key]; !ok {
		return false, nil
	}
	delete(f.visits, key)
	return true, nil
}

func (f *fakeVisitRepo) DeleteAll(_ context.Context, userID string) (int64, error) {
	var n int64
	for key := range f.visits {
		if strings.HasPrefix(key, userID+"|") {
			delete(f.visits, key)
			n++
		}
	}
	return n, nil
}

type fakeUserRepo struct {
	users map[string]*models.User // keyed by id
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[string]*models.User{}}
}

func (f *fakeUserRepo) add(u *models.User) *models.User {
	f.users[u.ID] = u
	return u
}

func (f *fakeUserRepo) UpsertFromIdentity(_ context.Context, id models.Identity) (*models.User, error) {
	for _, u := range f.users {
		if u.Sub == id.Sub {
			u.Email, u.Name = id.Email, id.Name
			u.LastLogin = time.Now().UTC()
			return u, nil
		}
	}
	u := &models.User{
		ID:            primitive.NewObjectID().Hex(),
		Sub:           id.Sub,
		Email:         id.Email,
		Name:          id.Name,
		EmailVerified: id.EmailVerified,
		CreatedAt:     time.Now().UTC(),
		LastLogin:     time.Now().UTC(),
	}
	return f.add(u), nil
}

func (f *fakeUserRepo) GetBySub(_ context.Context, sub string) (*models.User, error) {
	for _, u := range f.users {
		if u.Sub == sub {
			return u, nil
		}
	}
	return nil, utils.ErrNotFound
}

func (f *fakeUserRepo) GetByID(_ context.Context, id string) (*models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, utils.ErrNotFound
	}
	return u, nil
}

func (f *fakeUserRepo) GetByProfileID(_ context.Context, profileID string) (*models.User, error) {
	for _, u := range f.users {
		if u.ProfileID != nil && *u.ProfileID == profileID {
			return u, nil
		}
	}
	return nil, utils.ErrNotFound
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	for _, u := range f.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return nil, utils.ErrNotFound
}

func (f *fakeUserRepo) LinkProfile(_ context.Context, userID, profileID string) error {
	u, ok := f.users[userID]
	if !ok {
		return utils.ErrNotFound
	}
	u.ProfileID = &profileID
	u.ProfileCompleted = true
	return nil
}

func (f *fakeUserRepo) SetEmailVerified(_ context.Context, userID string, verified bool) error {
	u, ok := f.users[userID]
	if !ok {
		return utils.ErrNotFound
	}
	u.EmailVerified = verified
	return nil
}

type fakeCriteriaRepo struct {
	byUser map[string]*models.SearchCriteria
}

func newFakeCriteriaRepo() *fakeCriteriaRepo {
	return &fakeCriteriaRepo{byUser: map[string]*models.SearchCriteria{}}
}

func (f *fakeCriteriaRepo) Upsert(_ context.Context, c *models.SearchCriteria) error {
	cp := *c
	cp.UpdatedAt = time.Now().UTC()
	if old, ok := f.byUser[c.UserID]; ok {
		cp.CreatedAt = old.CreatedAt
	} else {
		cp.CreatedAt = cp.UpdatedAt
	}
	f.byUser[c.UserID] = &cp
	return nil
}

func (f *fakeCriteriaRepo) GetByUserID(_ context.Context, userID string) (*models.SearchCriteria, error) {
	return f.byUser[userID], nil
}

func (f *fakeCriteriaRepo) Delete(_ context.Context, userID string) (bool, error) {
	if _, ok := f.byUser[userID]; !ok {
		return false, nil
	}
	delete(f.byUser, userID)
	return true, nil
}

// fakeGeocoder resolves from a static table.
type fakeGeocoder struct {
	known map[string]geocoding.Coordinates
	calls int
}

func (f *fakeGeocoder) Geocode(_ context.Context, city, _ string) (*geocoding.Coordinates, error) {
	f.calls++
	c, ok := f.known[strings.ToLower(city)]
	if !ok {
		return nil, nil
	}
	return &c, nil
}
