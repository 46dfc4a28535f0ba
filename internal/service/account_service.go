package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/school-hub-api/internal/models"
	"github.com/noah-isme/school-hub-api/internal/repository"
	"github.com/noah-isme/school-hub-api/pkg/cache"
	appErrors "github.com/noah-isme/school-hub-api/pkg/errors"
)

const (
	defaultSessionTTL = time.Hour
	sessionExpiryGap  = time.Minute
)

type accountRepository interface {
	FindByID(ctx context.Context, id string) (*models.Account, error)
	FindByServiceUsername(ctx context.Context, service models.ServiceKind, username string) (*models.Account, error)
	Upsert(ctx context.Context, account *models.Account) error
	Delete(ctx context.Context, id string) error
}

// SessionStore keeps vendor sessions between requests.
type SessionStore interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// CredentialSealer protects vendor passwords at rest.
type CredentialSealer interface {
	Seal(plaintext string) (string, error)
	Open(sealed string) (string, error)
}

// AccountConfig defines API token settings.
type AccountConfig struct {
	TokenSecret string
	TokenExpiry time.Duration
	Issuer      string
}

// AccountService links school accounts and hands out vendor sessions.
type AccountService struct {
	repo      accountRepository
	plugins   *PluginRegistry
	sessions  SessionStore
	sealer    CredentialSealer
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
	config    AccountConfig
	now       func() time.Time
}

// NewAccountService constructs an AccountService instance.
func NewAccountService(repo accountRepository, plugins *PluginRegistry, sessions SessionStore, sealer CredentialSealer, cacheSvc *CacheService, validate *validator.Validate, logger *zap.Logger, config AccountConfig) *AccountService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &AccountService{
		repo:      repo,
		plugins:   plugins,
		sessions:  sessions,
		sealer:    sealer,
		cache:     cacheSvc,
		validator: validate,
		logger:    logger,
		config:    config,
		now:       time.Now,
	}
}

// Link logs into the school service, stores the account and returns an API token.
func (s *AccountService) Link(ctx context.Context, req models.LinkAccountRequest) (*models.LinkAccountResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid link payload")
	}
	plugin, err := s.plugins.Get(req.Service)
	if err != nil {
		return nil, err
	}

	accountID := uuid.NewString()
	existing, err := s.repo.FindByServiceUsername(ctx, req.Service, req.Username)
	switch {
	case err == nil:
		accountID = existing.ID
	case !repository.IsNotFound(err):
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up account")
	}

	sess, err := plugin.Refresh(ctx, accountID, models.Credentials{Username: req.Username, Password: req.Password})
	if err != nil {
		return nil, err
	}

	sealed, err := s.sealer.Seal(req.Password)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to protect credentials")
	}

	displayName := req.DisplayName
	if displayName == "" {
		displayName = req.Username
	}
	account := &models.Account{
		ID:             accountID,
		Service:        req.Service,
		Username:       req.Username,
		SealedPassword: sealed,
		DisplayName:    displayName,
	}
	if existing != nil {
		account.CreatedAt = existing.CreatedAt
	}
	if err := s.repo.Upsert(ctx, account); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist account")
	}
	s.storeSession(ctx, sess)

	token, issuedAt, err := s.generateAccessToken(account)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create access token")
	}

	s.logger.Info("school account linked", zap.String("account_id", accountID), zap.String("service", string(req.Service)))
	return &models.LinkAccountResponse{
		AccessToken: token,
		ExpiresIn:   int64(s.config.TokenExpiry.Seconds()),
		IssuedAt:    issuedAt,
		Account:     s.info(account, plugin),
	}, nil
}

// Get describes a linked account.
func (s *AccountService) Get(ctx context.Context, accountID string) (*models.AccountInfo, error) {
	account, err := s.load(ctx, accountID)
	if err != nil {
		return nil, err
	}
	plugin, err := s.plugins.Get(account.Service)
	if err != nil {
		return nil, err
	}
	info := s.info(account, plugin)
	return &info, nil
}

// Unlink removes the account, its homework, its session and its cached data.
func (s *AccountService) Unlink(ctx context.Context, accountID string) error {
	if err := s.repo.Delete(ctx, accountID); err != nil {
		if repository.IsNotFound(err) {
			return appErrors.Clone(appErrors.ErrNotFound, "account not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete account")
	}
	s.Invalidate(ctx, accountID)
	_ = s.cache.Invalidate(ctx, accountCachePattern(accountID))
	s.logger.Info("school account unlinked", zap.String("account_id", accountID))
	return nil
}

// Invalidate drops the cached vendor session so the next Session call logs in
// again.
func (s *AccountService) Invalidate(ctx context.Context, accountID string) {
	if s.sessions == nil {
		return
	}
	if err := s.sessions.Delete(ctx, sessionKey(accountID)); err != nil {
		s.logger.Warn("failed to drop vendor session", zap.String("account_id", accountID), zap.Error(err))
	}
}

// Session returns a usable vendor session for the account, logging in again
// with the stored credentials when the cached one is missing or expired.
func (s *AccountService) Session(ctx context.Context, accountID string) (*models.Session, SchoolPlugin, error) {
	account, err := s.load(ctx, accountID)
	if err != nil {
		return nil, nil, err
	}
	plugin, err := s.plugins.Get(account.Service)
	if err != nil {
		return nil, nil, err
	}

	if s.sessions != nil {
		var cached models.Session
		err := s.sessions.Get(ctx, sessionKey(accountID), &cached)
		switch {
		case err == nil && cached.Valid(s.now()):
			return &cached, plugin, nil
		case err != nil && !errors.Is(err, appErrors.ErrCacheMiss):
			s.logger.Warn("session store read failed", zap.String("account_id", accountID), zap.Error(err))
		}
	}

	password, err := s.sealer.Open(account.SealedPassword)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read stored credentials")
	}
	sess, err := plugin.Refresh(ctx, accountID, models.Credentials{Username: account.Username, Password: password})
	if err != nil {
		if errors.Is(err, appErrors.ErrInvalidCredentials) {
			return nil, nil, appErrors.Wrap(err, appErrors.ErrInvalidSession.Code, appErrors.ErrInvalidSession.Status,
				"stored credentials were rejected, link the account again")
		}
		return nil, nil, err
	}
	s.storeSession(ctx, sess)
	return sess, plugin, nil
}

// ValidateToken parses and validates an access token returning the claims.
func (s *AccountService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.TokenSecret), nil
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid || claims.AccountID == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}

	return claims, nil
}

func (s *AccountService) load(ctx context.Context, accountID string) (*models.Account, error) {
	account, err := s.repo.FindByID(ctx, accountID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "account not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load account")
	}
	return account, nil
}

func (s *AccountService) storeSession(ctx context.Context, sess *models.Session) {
	if s.sessions == nil || sess == nil {
		return
	}
	ttl := defaultSessionTTL
	if !sess.ExpiresAt.IsZero() {
		ttl = sess.ExpiresAt.Sub(s.now()) - sessionExpiryGap
	}
	if ttl <= 0 {
		return
	}
	if err := s.sessions.Set(ctx, sessionKey(sess.AccountID), sess, ttl); err != nil {
		s.logger.Warn("failed to store vendor session", zap.String("account_id", sess.AccountID), zap.Error(err))
	}
}

func (s *AccountService) info(account *models.Account, plugin SchoolPlugin) models.AccountInfo {
	return models.AccountInfo{
		ID:           account.ID,
		Service:      account.Service,
		ServiceName:  plugin.DisplayName(),
		Username:     account.Username,
		DisplayName:  account.DisplayName,
		Capabilities: plugin.Capabilities(),
	}
}

func (s *AccountService) generateAccessToken(account *models.Account) (string, time.Time, error) {
	issuedAt := s.now().UTC()
	claims := &models.JWTClaims{
		AccountID:   account.ID,
		Service:     account.Service,
		DisplayName: account.DisplayName,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   account.ID,
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(s.config.TokenExpiry)),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.config.TokenSecret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, issuedAt, nil
}

func sessionKey(accountID string) string {
	return cache.Key("session", accountID)
}

func accountCachePattern(accountID string) string {
	return cache.Key("data", accountID) + ":*"
}
