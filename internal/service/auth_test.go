package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"golang.org/x/crypto/bcrypt"

	"github.com/ferramentastecnologia/rosamexicano-reservas/config"
	"github.com/ferramentastecnologia/rosamexicano-reservas/internal/models"
	"github.com/ferramentastecnologia/rosamexicano-reservas/internal/util"
)

func testAuthConfig() config.AuthConfig {
	return config.AuthConfig{
		AccessSecret:  "test-access-secret",
		RefreshSecret: "test-refresh-secret",
		AccessTTL:     time.Hour,
		RefreshTTL:    7 * 24 * time.Hour,
		BcryptCost:    bcrypt.MinCost,
	}
}

func newAuthFixture(t *testing.T) (*AuthService, *fakeStore) {
	t.Helper()
	store := newFakeStore()
	return NewAuthService(store, testAuthConfig()), store
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _ := newAuthFixture(t)
	ctx := context.Background()

	admin, err := svc.Register(ctx, "gerente@rosamexicano.com", "s3nha-f0rte", "Ana Gerente", models.RoleManager)
	require.NoError(t, err)
	assert.NotEqual(t, "s3nha-f0rte", admin.Password, "password must be hashed")
	assert.True(t, admin.Permissions.Has(models.PermVouchersValidate))
	assert.False(t, admin.Permissions.Has(models.PermSweepRun), "managers cannot run the sweep")

	resp, err := svc.Login(ctx, "GERENTE@rosamexicano.com", "s3nha-f0rte")
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, int64(3600), resp.ExpiresIn)

	claims, err := svc.ValidateAccessToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, admin.ID, claims.UserID)
	assert.Equal(t, models.RoleManager, claims.Role)
	assert.True(t, claims.Permissions.Has(models.PermReservationsWrite))
}

func TestRegisterValidation(t *testing.T) {
	svc, _ := newAuthFixture(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "a@b.com", "short", "Ana", models.RoleStaff)
	require.Error(t, err)

	_, err = svc.Register(ctx, "a@b.com", "long-enough-pass", "Ana", "superuser")
	require.Error(t, err)

	_, err = svc.Register(ctx, "a@b.com", "long-enough-pass", "Ana", models.RoleStaff)
	require.NoError(t, err)

	// Duplicate email.
	_, err = svc.Register(ctx, "A@B.com", "long-enough-pass", "Outra Ana", models.RoleStaff)
	require.Error(t, err)
	assert.Equal(t, util.KindConflict, util.AsAppError(err).Kind)
}

func TestLoginFailures(t *testing.T) {
	svc, store := newAuthFixture(t)
	ctx := context.Background()

	admin, err := svc.Register(ctx, "staff@rosamexicano.com", "s3nha-f0rte", "Carlos", models.RoleStaff)
	require.NoError(t, err)

	_, err = svc.Login(ctx, "staff@rosamexicano.com", "wrong-password")
	require.Error(t, err)
	assert.Equal(t, util.KindAuth, util.AsAppError(err).Kind)

	_, err = svc.Login(ctx, "nobody@rosamexicano.com", "s3nha-f0rte")
	require.Error(t, err)
	assert.Equal(t, util.KindAuth, util.AsAppError(err).Kind)

	// Disabled accounts cannot log in.
	store.mu.Lock()
	store.admins[admin.ID].Active = false
	store.mu.Unlock()

	_, err = svc.Login(ctx, "staff@rosamexicano.com", "s3nha-f0rte")
	require.Error(t, err)
	assert.Equal(t, util.KindAuth, util.AsAppError(err).Kind)
}

func TestRefreshRotatesTokens(t *testing.T) {
	svc, _ := newAuthFixture(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "admin@rosamexicano.com", "s3nha-f0rte", "Dono", models.RoleAdmin)
	require.NoError(t, err)

	resp, err := svc.Login(ctx, "admin@rosamexicano.com", "s3nha-f0rte")
	require.NoError(t, err)

	pair, err := svc.Refresh(ctx, resp.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)

	_, err = svc.ValidateAccessToken(pair.AccessToken)
	require.NoError(t, err)

	// The secrets are independent: an access token is not a refresh token.
	_, err = svc.Refresh(ctx, resp.AccessToken)
	require.Error(t, err)
	assert.Equal(t, util.KindAuth, util.AsAppError(err).Kind)
}

func TestExpiredToken(t *testing.T) {
	svc, _ := newAuthFixture(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "admin@rosamexicano.com", "s3nha-f0rte", "Dono", models.RoleAdmin)
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	resp, err := svc.Login(ctx, "admin@rosamexicano.com", "s3nha-f0rte")
	require.NoError(t, err)

	_, err = svc.ValidateAccessToken(resp.AccessToken)
	require.Error(t, err)
	assert.Equal(t, "token expired", util.AsAppError(err).Message)
}

func TestMalformedToken(t *testing.T) {
	svc, _ := newAuthFixture(t)

	_, err := svc.ValidateAccessToken("not.a.jwt")
	require.Error(t, err)
	assert.Equal(t, "invalid token", util.AsAppError(err).Message)
}
