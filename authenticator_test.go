package sessionauth_test

import (
	"context"
	"testing"

	auth "github.com/helioslab/sessionauth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoinLoginRefreshFlow(t *testing.T) {
	ctx := context.Background()
	auther, _ := newTestAuther(t)

	joined := mustJoin(t, auther, auth.RolePatient, "ada@example.com", "s3cret-passw0rd")
	assert.Equal(t, auth.RolePatient, joined.User.Role)
	assert.Equal(t, "ada", joined.User.Username)
	assert.NotEmpty(t, joined.Tokens.Access)
	assert.NotEmpty(t, joined.Tokens.Refresh)

	loggedIn, err := auther.Login(ctx, auth.RolePatient, auth.LoginInput{
		ProviderKey: "ada@example.com",
		Secret:      "s3cret-passw0rd",
	})
	require.NoError(t, err)
	assert.Equal(t, joined.User.ID, loggedIn.User.ID)

	refreshed, err := auther.Refresh(ctx, auth.RolePatient, loggedIn.Tokens.Refresh)
	require.NoError(t, err)
	assert.NotEqual(t, loggedIn.Tokens.Refresh, refreshed.Tokens.Refresh)
	assert.Equal(t, loggedIn.Session.ID, refreshed.Session.ID)

	// the rotated-away token is single use: replaying it must fail
	_, err = auther.Refresh(ctx, auth.RolePatient, loggedIn.Tokens.Refresh)
	require.Error(t, err)
	assert.True(t, auth.IsSessionNotFound(err))

	// while the current token still refreshes
	_, err = auther.Refresh(ctx, auth.RolePatient, refreshed.Tokens.Refresh)
	require.NoError(t, err)
}

func TestJoinDuplicateIdentity(t *testing.T) {
	ctx := context.Background()
	auther, _ := newTestAuther(t)

	mustJoin(t, auther, auth.RoleMember, "grace@example.com", "s3cret-passw0rd")

	_, err := auther.Join(ctx, auth.RoleMember, auth.JoinInput{
		ProviderKey: "grace@example.com",
		Secret:      "another-passw0rd",
	})
	require.Error(t, err)
	assert.True(t, auth.IsDuplicateIdentity(err))

	// the same key under a different role is a different identity
	other := mustJoin(t, auther, auth.RoleAdmin, "grace@example.com", "admin-passw0rd")
	assert.Equal(t, auth.RoleAdmin, other.User.Role)
}

func TestJoinRejectsUnknownRole(t *testing.T) {
	auther, _ := newTestAuther(t)

	_, err := auther.Join(context.Background(), auth.Role("superuser"), auth.JoinInput{
		ProviderKey: "eve@example.com",
		Secret:      "s3cret-passw0rd",
	})
	require.Error(t, err)
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	ctx := context.Background()
	auther, _ := newTestAuther(t)

	mustJoin(t, auther, auth.RoleDeveloper, "alan@example.com", "s3cret-passw0rd")

	_, errWrongSecret := auther.Login(ctx, auth.RoleDeveloper, auth.LoginInput{
		ProviderKey: "alan@example.com",
		Secret:      "wrong-passw0rd",
	})
	require.Error(t, errWrongSecret)
	assert.True(t, auth.IsInvalidCredentials(errWrongSecret))

	_, errUnknown := auther.Login(ctx, auth.RoleDeveloper, auth.LoginInput{
		ProviderKey: "nobody@example.com",
		Secret:      "s3cret-passw0rd",
	})
	require.Error(t, errUnknown)
	assert.True(t, auth.IsInvalidCredentials(errUnknown))

	// same error value: the response never reveals which field was wrong
	assert.Equal(t, errWrongSecret.Error(), errUnknown.Error())
}

func TestLoginRoleIsolation(t *testing.T) {
	ctx := context.Background()
	auther, _ := newTestAuther(t)

	mustJoin(t, auther, auth.RolePatient, "sam@example.com", "patient-passw0rd")
	mustJoin(t, auther, auth.RoleTechnician, "sam@example.com", "tech-passw0rd")

	// each role's secret only works under its own role
	_, err := auther.Login(ctx, auth.RolePatient, auth.LoginInput{
		ProviderKey: "sam@example.com",
		Secret:      "tech-passw0rd",
	})
	require.Error(t, err)
	assert.True(t, auth.IsInvalidCredentials(err))

	_, err = auther.Login(ctx, auth.RoleTechnician, auth.LoginInput{
		ProviderKey: "sam@example.com",
		Secret:      "tech-passw0rd",
	})
	require.NoError(t, err)
}

func TestRefreshWrongRole(t *testing.T) {
	ctx := context.Background()
	auther, _ := newTestAuther(t)

	joined := mustJoin(t, auther, auth.RolePatient, "lin@example.com", "s3cret-passw0rd")

	_, err := auther.Refresh(ctx, auth.RoleTechnician, joined.Tokens.Refresh)
	require.Error(t, err)
	assert.True(t, auth.IsSessionNotFound(err))
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	ctx := context.Background()
	auther, _ := newTestAuther(t)

	joined := mustJoin(t, auther, auth.RolePatient, "kay@example.com", "s3cret-passw0rd")

	_, err := auther.Refresh(ctx, auth.RolePatient, joined.Tokens.Access)
	require.Error(t, err)
	assert.True(t, auth.IsTokenInvalid(err))
}

func TestLogoutIsIdempotent(t *testing.T) {
	ctx := context.Background()
	auther, _ := newTestAuther(t)

	joined := mustJoin(t, auther, auth.RoleMember, "ida@example.com", "s3cret-passw0rd")

	require.NoError(t, auther.Logout(ctx, auth.RoleMember, joined.Tokens.Refresh))

	_, err := auther.Refresh(ctx, auth.RoleMember, joined.Tokens.Refresh)
	require.Error(t, err)
	assert.True(t, auth.IsSessionNotFound(err))

	// logging out again, or with a token that never existed, is a no-op
	require.NoError(t, auther.Logout(ctx, auth.RoleMember, joined.Tokens.Refresh))
	require.NoError(t, auther.Logout(ctx, auth.RoleMember, "never-issued"))
}

func TestRefreshDeactivatedPrincipal(t *testing.T) {
	ctx := context.Background()
	auther, repo := newTestAuther(t)

	joined := mustJoin(t, auther, auth.RoleApplicant, "max@example.com", "s3cret-passw0rd")

	require.NoError(t, repo.Principals().Deactivate(ctx, joined.User.ID))

	_, err := auther.Refresh(ctx, auth.RoleApplicant, joined.Tokens.Refresh)
	require.Error(t, err)
	assert.True(t, auth.IsPrincipalDeactivated(err))

	// the session was terminated on the way out
	sess, err := repo.Sessions().FindActive(ctx, joined.Tokens.Refresh, auth.RoleApplicant)
	require.NoError(t, err)
	assert.Nil(t, sess)
}

func TestLoginDeactivatedPrincipal(t *testing.T) {
	ctx := context.Background()
	auther, repo := newTestAuther(t)

	joined := mustJoin(t, auther, auth.RoleMember, "deb@example.com", "s3cret-passw0rd")
	require.NoError(t, repo.Principals().Deactivate(ctx, joined.User.ID))

	_, err := auther.Login(ctx, auth.RoleMember, auth.LoginInput{
		ProviderKey: "deb@example.com",
		Secret:      "s3cret-passw0rd",
	})
	require.Error(t, err)
	assert.True(t, auth.IsPrincipalDeactivated(err))
}

func TestRevokeAllForPrincipal(t *testing.T) {
	ctx := context.Background()
	auther, _ := newTestAuther(t)

	joined := mustJoin(t, auther, auth.RoleDeveloper, "joe@example.com", "s3cret-passw0rd")
	second, err := auther.Login(ctx, auth.RoleDeveloper, auth.LoginInput{
		ProviderKey: "joe@example.com",
		Secret:      "s3cret-passw0rd",
	})
	require.NoError(t, err)

	require.NoError(t, auther.RevokeAll(ctx, joined.User.ID.String(), auth.RoleDeveloper))

	for _, refresh := range []string{joined.Tokens.Refresh, second.Tokens.Refresh} {
		_, err := auther.Refresh(ctx, auth.RoleDeveloper, refresh)
		require.Error(t, err)
		assert.True(t, auth.IsSessionNotFound(err))
	}
}

func TestRevokeAllLeavesOtherRolesAlone(t *testing.T) {
	ctx := context.Background()
	auther, _ := newTestAuther(t)

	patient := mustJoin(t, auther, auth.RolePatient, "pat@example.com", "s3cret-passw0rd")
	tech := mustJoin(t, auther, auth.RoleTechnician, "pat@example.com", "other-passw0rd")

	require.NoError(t, auther.RevokeAll(ctx, patient.User.ID.String(), auth.RolePatient))

	_, err := auther.Refresh(ctx, auth.RoleTechnician, tech.Tokens.Refresh)
	require.NoError(t, err)
}

func TestChangeSecretRevokesSessions(t *testing.T) {
	ctx := context.Background()
	auther, _ := newTestAuther(t)

	joined := mustJoin(t, auther, auth.RoleMember, "rae@example.com", "old-passw0rd")

	err := auther.ChangeSecret(ctx, auth.RoleMember, "rae@example.com", "old-passw0rd", "new-passw0rd")
	require.NoError(t, err)

	_, err = auther.Refresh(ctx, auth.RoleMember, joined.Tokens.Refresh)
	require.Error(t, err)
	assert.True(t, auth.IsSessionNotFound(err))

	_, err = auther.Login(ctx, auth.RoleMember, auth.LoginInput{
		ProviderKey: "rae@example.com",
		Secret:      "old-passw0rd",
	})
	require.Error(t, err)
	assert.True(t, auth.IsInvalidCredentials(err))

	_, err = auther.Login(ctx, auth.RoleMember, auth.LoginInput{
		ProviderKey: "rae@example.com",
		Secret:      "new-passw0rd",
	})
	require.NoError(t, err)
}

func TestChangeSecretRequiresCurrentSecret(t *testing.T) {
	ctx := context.Background()
	auther, _ := newTestAuther(t)

	mustJoin(t, auther, auth.RoleMember, "gil@example.com", "old-passw0rd")

	err := auther.ChangeSecret(ctx, auth.RoleMember, "gil@example.com", "wrong-passw0rd", "new-passw0rd")
	require.Error(t, err)
	assert.True(t, auth.IsInvalidCredentials(err))
}

func TestJoinFederatedCredential(t *testing.T) {
	ctx := context.Background()
	auther, _ := newTestAuther(t)

	joined, err := auther.Join(ctx, auth.RoleDeveloper, auth.JoinInput{
		Provider:    "github",
		ProviderKey: "octocat",
	})
	require.NoError(t, err)
	assert.Equal(t, "octocat", joined.User.Username)

	// federated logins carry no secret
	_, err = auther.Login(ctx, auth.RoleDeveloper, auth.LoginInput{
		Provider:    "github",
		ProviderKey: "octocat",
	})
	require.NoError(t, err)

	// presenting one anyway is rejected
	_, err = auther.Login(ctx, auth.RoleDeveloper, auth.LoginInput{
		Provider:    "github",
		ProviderKey: "octocat",
		Secret:      "s3cret-passw0rd",
	})
	require.Error(t, err)
	assert.True(t, auth.IsInvalidCredentials(err))
}

func TestJoinFederatedRejectsSecret(t *testing.T) {
	auther, _ := newTestAuther(t)

	_, err := auther.Join(context.Background(), auth.RoleDeveloper, auth.JoinInput{
		Provider:    "github",
		ProviderKey: "octocat",
		Secret:      "s3cret-passw0rd",
	})
	require.Error(t, err)
}

func TestJoinDeterministicID(t *testing.T) {
	ctx := context.Background()

	auther1, _ := newTestAuther(t)
	first, err := auther1.Join(ctx, auth.RoleMember, auth.JoinInput{
		ProviderKey:     "seed@example.com",
		Secret:          "s3cret-passw0rd",
		DeterministicID: true,
	})
	require.NoError(t, err)

	db := newTestDB(t)
	auther2 := auth.NewAuthenticator(auth.NewRepositoryManager(db), testConfig())
	second, err := auther2.Join(ctx, auth.RoleMember, auth.JoinInput{
		ProviderKey:     "seed@example.com",
		Secret:          "s3cret-passw0rd",
		DeterministicID: true,
	})
	require.NoError(t, err)

	assert.Equal(t, first.User.ID, second.User.ID)
}
