package sessionauth_test

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	auth "github.com/helioslab/sessionauth"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

var testDBSeq atomic.Int64

func newTestDB(t *testing.T) *bun.DB {
	t.Helper()

	name := strings.ReplaceAll(t.Name(), "/", "_")
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, testDBSeq.Add(1))
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	for _, model := range []any{
		(*auth.User)(nil),
		(*auth.Credential)(nil),
		(*auth.Session)(nil),
	} {
		_, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx)
		require.NoError(t, err)
	}

	return db
}

func testConfig() *auth.SimpleConfig {
	return &auth.SimpleConfig{
		SigningKey: "test-signing-key",
		Issuer:     "sessionauth-test",
	}
}

func newTestAuther(t *testing.T) (*auth.Auther, auth.RepositoryManager) {
	t.Helper()

	db := newTestDB(t)
	repo := auth.NewRepositoryManager(db)
	auther := auth.NewAuthenticator(repo, testConfig())

	return auther, repo
}

func mustJoin(t *testing.T, auther *auth.Auther, role auth.Role, providerKey, secret string) *auth.Authorized {
	t.Helper()

	authorized, err := auther.Join(context.Background(), role, auth.JoinInput{
		ProviderKey: providerKey,
		Secret:      secret,
		Email:       providerKey,
	})
	require.NoError(t, err)
	require.NotNil(t, authorized)
	require.NotNil(t, authorized.Tokens)
	require.NotNil(t, authorized.User)

	return authorized
}
