package webhook

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"

	"github.com/ManuelReschke/MemberGate/app/models"
	"github.com/ManuelReschke/MemberGate/app/repository"
	"github.com/ManuelReschke/MemberGate/internal/pkg/database/dbtest"
	"github.com/ManuelReschke/MemberGate/internal/pkg/whop"
)

const testSecret = "whsec_test"

type fixture struct {
	db      *gorm.DB
	repos   *repository.Repositories
	service *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := dbtest.Open(t)
	repos := repository.NewRepositories(db)
	verifier := whop.NewClient(whop.Options{WebhookSecret: testSecret})
	return &fixture{db: db, repos: repos, service: NewService(repos, verifier, zap.NewNop())}
}

func (f *fixture) ingest(t *testing.T, body string) (*models.WebhookEvent, error) {
	t.Helper()
	raw := []byte(body)
	return f.service.Ingest(context.Background(), raw, whop.SignWebhookPayload(raw, testSecret))
}

func (f *fixture) count(t *testing.T, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(model).Count(&n).Error)
	return n
}

const membershipCreated = `{
	"type": "membership.created",
	"data": {
		"id": "mem_1",
		"user_id": "user_1",
		"company_id": "biz_1",
		"plan": {"id": "plan_1"},
		"expires_at": "2030-01-02T03:04:05Z",
		"user": {"email": "alice@example.com", "username": "alice", "profile_picture_url": "https://cdn.example/a.png"}
	}
}`

func TestIngestMembershipCreated(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	event, err := f.ingest(t, membershipCreated)
	require.NoError(t, err)
	require.NotNil(t, event)
	assert.NotEmpty(t, event.ID)
	assert.Equal(t, "membership.created", event.EventType)
	require.NotNil(t, event.WhopUserID)
	assert.Equal(t, "user_1", *event.WhopUserID)
	assert.Nil(t, event.WhopMembershipID, "data.id is not a membership_id key")
	require.NotNil(t, event.CompanyID)
	assert.Equal(t, "biz_1", *event.CompanyID)
	assert.False(t, event.Processed)

	membership, err := f.repos.Memberships.GetByWhopMembershipID(ctx, "mem_1")
	require.NoError(t, err)
	assert.Equal(t, "user_1", membership.WhopUserID)
	assert.Equal(t, "biz_1", membership.CompanyID)
	assert.Equal(t, "plan_1", membership.PlanID)
	assert.Equal(t, models.MembershipStatusActive, membership.Status)
	require.NotNil(t, membership.ExpiresAt)
	assert.True(t, time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC).Equal(*membership.ExpiresAt))

	profile, err := f.repos.Profiles.GetByWhopUserID(ctx, "user_1")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", profile.Email)
	assert.Equal(t, "alice", profile.Username)
}

func TestIngestBadSignature(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	raw := []byte(membershipCreated)
	_, err := f.service.Ingest(context.Background(), raw, whop.SignWebhookPayload(raw, "wrong-secret"))
	assert.ErrorIs(t, err, ErrInvalidSignature)

	_, err = f.service.Ingest(context.Background(), raw, "")
	assert.ErrorIs(t, err, ErrInvalidSignature)

	assert.Zero(t, f.count(t, &models.WebhookEvent{}))
	assert.Zero(t, f.count(t, &models.Membership{}))
	assert.Zero(t, f.count(t, &models.UserProfile{}))
}

func TestIngestMissingSecret(t *testing.T) {
	t.Parallel()
	db := dbtest.Open(t)
	service := NewService(repository.NewRepositories(db), whop.NewClient(whop.Options{}), nil)

	_, err := service.Ingest(context.Background(), []byte(`{}`), "abcd")
	assert.ErrorIs(t, err, whop.ErrWebhookSecretMissing)
}

func TestIngestInvalidJSON(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	_, err := f.ingest(t, `{"type": "membership.created",`)
	assert.ErrorIs(t, err, ErrInvalidPayload)
	assert.Zero(t, f.count(t, &models.WebhookEvent{}))
}

func TestIngestIsIdempotent(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	for i := 0; i < 3; i++ {
		_, err := f.ingest(t, membershipCreated)
		require.NoError(t, err)
	}

	assert.Equal(t, int64(3), f.count(t, &models.WebhookEvent{}), "every delivery is logged")
	assert.Equal(t, int64(1), f.count(t, &models.Membership{}))
	assert.Equal(t, int64(1), f.count(t, &models.UserProfile{}))
}

func TestIngestFlatShape(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	event, err := f.ingest(t, `{"event_type":"membership.renewed","id":"mem_flat","user_id":"user_flat","membership_id":"mem_flat","company":{"id":"biz_9"},"plan_id":"plan_9","expires_at":1893553445}`)
	require.NoError(t, err)
	require.NotNil(t, event.WhopMembershipID)
	assert.Equal(t, "mem_flat", *event.WhopMembershipID)

	membership, err := f.repos.Memberships.GetByWhopMembershipID(context.Background(), "mem_flat")
	require.NoError(t, err)
	assert.Equal(t, "biz_9", membership.CompanyID)
	assert.Equal(t, "plan_9", membership.PlanID)
	require.NotNil(t, membership.ExpiresAt)

	profile, err := f.repos.Profiles.GetByWhopUserID(context.Background(), "user_flat")
	require.NoError(t, err)
	assert.Equal(t, models.UnknownEmail, profile.Email)
	assert.Equal(t, models.UnknownUsername, profile.Username)
}

func TestIngestCancelAfterCreate(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	_, err := f.ingest(t, membershipCreated)
	require.NoError(t, err)
	_, err = f.ingest(t, `{"type":"membership.cancelled","data":{"id":"mem_1","user_id":"user_1","company_id":"biz_1","plan_id":"plan_1"}}`)
	require.NoError(t, err)

	membership, err := f.repos.Memberships.GetByWhopMembershipID(context.Background(), "mem_1")
	require.NoError(t, err)
	assert.Equal(t, models.MembershipStatusCancelled, membership.Status)
	assert.Nil(t, membership.ExpiresAt)
	assert.Equal(t, int64(1), f.count(t, &models.Membership{}))
}

func TestIngestUnknownEventIsLoggedOnly(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	event, err := f.ingest(t, `{"type":"app.installed","data":{"id":"x","user_id":"user_1"}}`)
	require.NoError(t, err)
	assert.Equal(t, "app.installed", event.EventType)

	untyped, err := f.ingest(t, `{"data":{"id":"y"}}`)
	require.NoError(t, err)
	assert.Equal(t, models.UnknownEventType, untyped.EventType)

	assert.Equal(t, int64(2), f.count(t, &models.WebhookEvent{}))
	assert.Zero(t, f.count(t, &models.Membership{}))
	assert.Zero(t, f.count(t, &models.UserProfile{}))
}

func TestIngestMissingIdentifiersIsSkipped(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	for _, body := range []string{
		`{"type":"membership.created","data":{"user_id":"user_1"}}`,
		`{"type":"membership.created","data":{"id":"mem_1"}}`,
		`{"type":"user.updated","data":{"email":"x@example.com"}}`,
	} {
		_, err := f.ingest(t, body)
		require.NoError(t, err, body)
	}

	assert.Equal(t, int64(3), f.count(t, &models.WebhookEvent{}))
	assert.Zero(t, f.count(t, &models.Membership{}))
	assert.Zero(t, f.count(t, &models.UserProfile{}))
}

func TestIngestPaymentIsRecordOnly(t *testing.T) {
	t.Parallel()
	db := dbtest.Open(t)
	core, logs := observer.New(zapcore.InfoLevel)
	service := NewService(repository.NewRepositories(db), whop.NewClient(whop.Options{WebhookSecret: testSecret}), zap.New(core))

	raw := []byte(`{"type":"payment.succeeded","data":{"user_id":"user_1","membership_id":"mem_1","amount":1999,"currency":"usd"}}`)
	_, err := service.Ingest(context.Background(), raw, whop.SignWebhookPayload(raw, testSecret))
	require.NoError(t, err)

	entries := logs.FilterMessage("payment event received").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "user_1", fields["user_id"])
	assert.Equal(t, "1999", fields["amount"])
	assert.Equal(t, "usd", fields["currency"])

	var memberships int64
	require.NoError(t, db.Model(&models.Membership{}).Count(&memberships).Error)
	assert.Zero(t, memberships)
}

func TestUserEventMergesFields(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.ingest(t, `{"type":"user.created","data":{"id":"user_1","email":"a@example.com","username":"alice","profile_picture_url":"https://cdn.example/a.png"}}`)
	require.NoError(t, err)
	_, err = f.ingest(t, `{"type":"user.updated","data":{"id":"user_1","username":"alice_v2","email":""}}`)
	require.NoError(t, err)

	profile, err := f.repos.Profiles.GetByWhopUserID(ctx, "user_1")
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", profile.Email, "absent field keeps stored value")
	assert.Equal(t, "alice_v2", profile.Username)
	require.NotNil(t, profile.ProfilePictureURL)
	assert.Equal(t, "https://cdn.example/a.png", *profile.ProfilePictureURL)

	_, err = f.ingest(t, `{"type":"user.updated","data":{"id":"user_2","username":"bob"}}`)
	require.NoError(t, err)
	profile, err = f.repos.Profiles.GetByWhopUserID(ctx, "user_2")
	require.NoError(t, err)
	assert.Equal(t, models.UnknownEmail, profile.Email)
	assert.Equal(t, "bob", profile.Username)
}

func TestMembershipEventDoesNotOverwriteProfile(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	_, err := f.ingest(t, `{"type":"user.created","data":{"id":"user_1","email":"real@example.com","username":"real"}}`)
	require.NoError(t, err)
	_, err = f.ingest(t, `{"type":"membership.created","data":{"id":"mem_1","user_id":"user_1","user":{"email":"other@example.com"}}}`)
	require.NoError(t, err)

	profile, err := f.repos.Profiles.GetByWhopUserID(context.Background(), "user_1")
	require.NoError(t, err)
	assert.Equal(t, "real@example.com", profile.Email)
}

type failingEvents struct {
	repository.WebhookEventRepository
}

func (failingEvents) Create(context.Context, *models.WebhookEvent) error {
	return errors.New("disk full")
}

func TestLogFailureBlocksReconciliation(t *testing.T) {
	t.Parallel()
	db := dbtest.Open(t)
	repos := repository.NewRepositories(db)
	repos.Events = failingEvents{repos.Events}
	service := NewService(repos, whop.NewClient(whop.Options{WebhookSecret: testSecret}), zap.NewNop())

	raw := []byte(membershipCreated)
	_, err := service.Ingest(context.Background(), raw, whop.SignWebhookPayload(raw, testSecret))
	assert.ErrorIs(t, err, ErrLogEvent)

	var memberships int64
	require.NoError(t, db.Model(&models.Membership{}).Count(&memberships).Error)
	assert.Zero(t, memberships)
}

type failingMemberships struct {
	repository.MembershipRepository
}

func (failingMemberships) Upsert(context.Context, *models.Membership) (*models.Membership, error) {
	return nil, errors.New("deadlock")
}

func TestReconcileFailureDoesNotFailIngest(t *testing.T) {
	t.Parallel()
	db := dbtest.Open(t)
	repos := repository.NewRepositories(db)
	repos.Memberships = failingMemberships{repos.Memberships}
	service := NewService(repos, whop.NewClient(whop.Options{WebhookSecret: testSecret}), zap.NewNop())

	raw := []byte(membershipCreated)
	event, err := service.Ingest(context.Background(), raw, whop.SignWebhookPayload(raw, testSecret))
	require.NoError(t, err)
	assert.NotEmpty(t, event.ID)
}

func TestReplayRebuildsDerivedState(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.ingest(t, membershipCreated)
	require.NoError(t, err)
	_, err = f.ingest(t, `{"type":"membership.cancelled","data":{"id":"mem_1","user_id":"user_1"}}`)
	require.NoError(t, err)
	_, err = f.ingest(t, `{"type":"payment.failed","data":{"user_id":"user_1"}}`)
	require.NoError(t, err)

	require.NoError(t, f.db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.Membership{}).Error)
	require.NoError(t, f.db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.UserProfile{}).Error)

	result, err := f.service.Replay(ctx, repository.ReplayFilter{})
	require.NoError(t, err)
	assert.Equal(t, 3, result.Total)
	assert.Equal(t, 3, result.Replayed)
	assert.Equal(t, 1, result.Actions["activate_membership"])
	assert.Equal(t, 1, result.Actions["cancel_membership"])
	assert.Equal(t, 1, result.Actions["record_payment"])

	membership, err := f.repos.Memberships.GetByWhopMembershipID(ctx, "mem_1")
	require.NoError(t, err)
	assert.Equal(t, models.MembershipStatusCancelled, membership.Status, "oldest first, newest state wins")
	assert.Equal(t, int64(3), f.count(t, &models.WebhookEvent{}), "replay does not log")
}

type recordingCounter struct {
	actions []string
	err     error
}

func (r *recordingCounter) Add(_ context.Context, action string) error {
	r.actions = append(r.actions, action)
	return r.err
}

func TestDispatchCountsLiveDeliveriesOnly(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	counter := &recordingCounter{err: errors.New("cache down")}
	f.service.WithCounter(counter)

	_, err := f.ingest(t, membershipCreated)
	require.NoError(t, err, "counter errors never fail ingestion")
	_, err = f.ingest(t, `{"type":"app.installed","data":{}}`)
	require.NoError(t, err)
	assert.Equal(t, []string{"activate_membership", "ignore"}, counter.actions)

	_, err = f.service.Replay(context.Background(), repository.ReplayFilter{})
	require.NoError(t, err)
	assert.Len(t, counter.actions, 2)
}

func TestEnsureProfile(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	r := f.service.Reconciler()

	profile, err := r.EnsureProfile(ctx, whop.User{ID: "user_1", Email: "a@example.com", Username: "alice"})
	require.NoError(t, err)
	assert.Equal(t, "alice", profile.Username)

	again, err := r.EnsureProfile(ctx, whop.User{ID: "user_1", Email: "b@example.com", Username: "bob"})
	require.NoError(t, err)
	assert.Equal(t, profile.ID, again.ID)
	assert.Equal(t, "alice", again.Username, "existing profile is returned unchanged")

	_, err = r.EnsureProfile(ctx, whop.User{})
	assert.Error(t, err)
}

func TestSyncMembership(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	r := f.service.Reconciler()

	expires := &whop.Timestamp{Time: time.Date(2031, 5, 1, 0, 0, 0, 0, time.UTC)}
	m, err := r.SyncMembership(ctx, "user_1", whop.Membership{ID: "mem_1", CompanyID: "biz_1", PlanID: "plan_1", Status: "paused", ExpiresAt: expires})
	require.NoError(t, err)
	assert.Equal(t, models.MembershipStatusPaused, m.Status)
	require.NotNil(t, m.ExpiresAt)

	_, err = r.SyncMembership(ctx, "user_1", whop.Membership{ID: "mem_2", Status: "trialing"})
	assert.Error(t, err)
	_, err = r.SyncMembership(ctx, "user_1", whop.Membership{Status: "active"})
	assert.Error(t, err)
}
