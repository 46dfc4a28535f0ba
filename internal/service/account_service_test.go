package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/school-hub-api/internal/models"
	"github.com/noah-isme/school-hub-api/pkg/cache"
	appErrors "github.com/noah-isme/school-hub-api/pkg/errors"
)

var accountNow = time.Date(2024, 11, 4, 11, 0, 0, 0, time.UTC)

func newAccountServiceForTest(repo *fakeAccountRepo, plugin *fakePlugin, store *stubCacheRepo) *AccountService {
	cacheSvc := NewCacheService(store, nil, time.Minute, zap.NewNop(), true)
	svc := NewAccountService(repo, NewPluginRegistry(plugin), store, reverseSealer{}, cacheSvc, nil, zap.NewNop(), AccountConfig{
		TokenSecret: "secret",
		TokenExpiry: time.Hour,
		Issuer:      "school-hub-api",
	})
	svc.now = func() time.Time { return accountNow }
	return svc
}

func TestAccountServiceLinkIssuesToken(t *testing.T) {
	repo := newFakeAccountRepo()
	plugin := &fakePlugin{expiresAt: accountNow.Add(2 * time.Hour)}
	store := &stubCacheRepo{}
	svc := newAccountServiceForTest(repo, plugin, store)

	resp, err := svc.Link(context.Background(), models.LinkAccountRequest{
		Service:  models.ServiceSkolae,
		Username: "alice",
		Password: "hunter2",
	})
	require.NoError(t, err)

	assert.Equal(t, int64(3600), resp.ExpiresIn)
	assert.Equal(t, "alice", resp.Account.DisplayName)
	assert.Equal(t, "Skolae", resp.Account.ServiceName)
	assert.Contains(t, resp.Account.Capabilities, models.CapabilityGrades)

	stored := repo.accounts[resp.Account.ID]
	require.NotNil(t, stored)
	assert.Equal(t, "sealed:2retnuh", stored.SealedPassword)

	sessionTTL := store.ttls[cache.Key("session", resp.Account.ID)]
	assert.Equal(t, 2*time.Hour-time.Minute, sessionTTL)

	// The token is signed by the service and the real clock validates it.
	svc.now = time.Now
	resp, err = svc.Link(context.Background(), models.LinkAccountRequest{Service: models.ServiceSkolae, Username: "alice", Password: "hunter2"})
	require.NoError(t, err)
	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, resp.Account.ID, claims.AccountID)
	assert.Equal(t, models.ServiceSkolae, claims.Service)
	assert.Len(t, repo.accounts, 1, "relinking reuses the account id")
}

func TestAccountServiceLinkFailures(t *testing.T) {
	ctx := context.Background()

	svc := newAccountServiceForTest(newFakeAccountRepo(), &fakePlugin{}, &stubCacheRepo{})
	_, err := svc.Link(ctx, models.LinkAccountRequest{Service: models.ServiceSkolae, Username: "alice"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.Link(ctx, models.LinkAccountRequest{Service: "PRONOTE", Username: "alice", Password: "x"})
	assert.ErrorIs(t, err, appErrors.ErrUnsupportedService)

	repo := newFakeAccountRepo()
	svc = newAccountServiceForTest(repo, &fakePlugin{refreshErr: appErrors.ErrInvalidCredentials}, &stubCacheRepo{})
	_, err = svc.Link(ctx, models.LinkAccountRequest{Service: models.ServiceSkolae, Username: "alice", Password: "bad"})
	assert.ErrorIs(t, err, appErrors.ErrInvalidCredentials)
	assert.Empty(t, repo.accounts)
}

func TestAccountServiceSessionReusesCachedSession(t *testing.T) {
	account := &models.Account{ID: "acc-1", Service: models.ServiceSkolae, Username: "alice", SealedPassword: "sealed:2retnuh"}
	plugin := &fakePlugin{expiresAt: accountNow.Add(time.Hour)}
	store := &stubCacheRepo{}
	svc := newAccountServiceForTest(newFakeAccountRepo(account), plugin, store)

	sess, got, err := svc.Session(context.Background(), "acc-1")
	require.NoError(t, err)
	assert.Equal(t, "token-alice", sess.AccessToken)
	assert.Equal(t, "Skolae", got.DisplayName())
	assert.Equal(t, 1, plugin.refreshCalls)

	_, _, err = svc.Session(context.Background(), "acc-1")
	require.NoError(t, err)
	assert.Equal(t, 1, plugin.refreshCalls)

	svc.now = func() time.Time { return accountNow.Add(2 * time.Hour) }
	_, _, err = svc.Session(context.Background(), "acc-1")
	require.NoError(t, err)
	assert.Equal(t, 2, plugin.refreshCalls, "expired sessions are refreshed")
}

func TestAccountServiceSessionRejectedCredentials(t *testing.T) {
	account := &models.Account{ID: "acc-1", Service: models.ServiceSkolae, Username: "alice", SealedPassword: "sealed:dlo"}
	svc := newAccountServiceForTest(newFakeAccountRepo(account), &fakePlugin{refreshErr: appErrors.ErrInvalidCredentials}, &stubCacheRepo{})

	_, _, err := svc.Session(context.Background(), "acc-1")
	assert.ErrorIs(t, err, appErrors.ErrInvalidSession)

	_, _, err = svc.Session(context.Background(), "missing")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestAccountServiceUnlinkDropsSessionAndData(t *testing.T) {
	account := &models.Account{ID: "acc-1", Service: models.ServiceSkolae, Username: "alice"}
	store := &stubCacheRepo{}
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, cache.Key("session", "acc-1"), "s", time.Hour))
	require.NoError(t, store.Set(ctx, cache.Key("data", "acc-1", "periods"), "p", time.Hour))
	require.NoError(t, store.Set(ctx, cache.Key("data", "acc-2", "periods"), "p", time.Hour))

	repo := newFakeAccountRepo(account)
	svc := newAccountServiceForTest(repo, &fakePlugin{}, store)

	info, err := svc.Get(ctx, "acc-1")
	require.NoError(t, err)
	assert.Equal(t, "alice", info.Username)

	require.NoError(t, svc.Unlink(ctx, "acc-1"))
	assert.Empty(t, repo.accounts)
	assert.NotContains(t, store.store, cache.Key("session", "acc-1"))
	assert.NotContains(t, store.store, cache.Key("data", "acc-1", "periods"))
	assert.Contains(t, store.store, cache.Key("data", "acc-2", "periods"))

	assert.ErrorIs(t, svc.Unlink(ctx, "acc-1"), appErrors.ErrNotFound)
}

func TestAccountServiceValidateTokenRejectsForeignTokens(t *testing.T) {
	svc := newAccountServiceForTest(newFakeAccountRepo(), &fakePlugin{}, &stubCacheRepo{})
	_, err := svc.ValidateToken("not-a-token")
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)

	svc.now = time.Now
	resp, err := svc.Link(context.Background(), models.LinkAccountRequest{Service: models.ServiceSkolae, Username: "bob", Password: "pw"})
	require.NoError(t, err)

	other := newAccountServiceForTest(newFakeAccountRepo(), &fakePlugin{}, &stubCacheRepo{})
	other.config.TokenSecret = "another-secret"
	_, err = other.ValidateToken(resp.AccessToken)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}
