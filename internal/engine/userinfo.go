package engine

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/raphaelvls/go-authserver/internal/autherr"
	"github.com/raphaelvls/go-authserver/internal/entity"
	"github.com/raphaelvls/go-authserver/internal/hashutil"
	"github.com/raphaelvls/go-authserver/internal/storage"
)

const profileCacheKeyPrefix = "sub:"

// Userinfo resolves an access token to the subject's public profile.
// Responses are cached per subject for a few minutes; a cache hit returns
// without touching the presented token.
func (e *Engine) Userinfo(ctx context.Context, accessToken, sub string) (entity.Profile, error) {
	if sub == "" {
		return entity.Profile{}, autherr.New(autherr.CodeInvalidRequest, "missing sub")
	}

	var cached entity.Profile
	err := e.cache.Get(ctx, profileCacheKeyPrefix+sub, &cached)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		// A broken cache only costs the optimization.
		e.log.Warn("profile cache read failed", zap.Error(err))
	}

	if accessToken == "" {
		return entity.Profile{}, autherr.New(autherr.CodeInvalidRequest, "missing access token")
	}

	row, err := e.tokens.ByAccessDigest(ctx, hashutil.Digest(accessToken))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return entity.Profile{}, autherr.New(autherr.CodeInvalidToken, "invalid access token")
		}
		return entity.Profile{}, autherr.Errorf(autherr.CodeInternalError,
			"could not look up the access token", err)
	}

	session, err := e.sessions.Session(ctx, row.SessionID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return entity.Profile{}, autherr.New(autherr.CodeInvalidToken, "invalid session")
		}
		return entity.Profile{}, autherr.Errorf(autherr.CodeInternalError,
			"could not load the session", err)
	}

	user, err := e.idp.UserByID(ctx, session.UserID)
	if err != nil {
		return entity.Profile{}, autherr.Errorf(autherr.CodeInternalError,
			"could not resolve the user profile", err)
	}

	profile := entity.Profile{
		Sub:        user.ID,
		GivenName:  user.Name,
		FamilyName: user.FamilyName,
		Gender:     user.Gender,
		Email:      user.Email,
		CreatedAt:  user.CreatedAt,
	}

	if err := e.cache.Set(ctx, profileCacheKeyPrefix+sub, profile, e.cfg.ProfileCacheTTL); err != nil {
		return entity.Profile{}, autherr.Errorf(autherr.CodeInternalError,
			"could not cache the user profile", err)
	}

	return profile, nil
}
