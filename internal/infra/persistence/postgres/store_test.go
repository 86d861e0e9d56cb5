package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tracecore/internal/infra/persistence/buckets"
	"tracecore/internal/infra/persistence/postgres/testutil"
	"tracecore/pkg/domain"
)

func stubStore(t *testing.T) (*Store, *testutil.StubConn) {
	t.Helper()
	db, conn := testutil.NewStubDB()
	restore := OverrideSQLOpen(func(driverName, _ string) (*sql.DB, error) {
		assert.Equal(t, defaultDriver, driverName)
		return db, nil
	})
	t.Cleanup(restore)
	store, err := NewStore(context.Background(), "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store, conn
}

func TestNewStoreEnsuresStateTable(t *testing.T) {
	_, conn := stubStore(t)
	var sawDDL bool
	for _, stmt := range conn.Execs {
		if strings.Contains(strings.ToUpper(stmt), "CREATE TABLE IF NOT EXISTS STATE") {
			sawDDL = true
		}
	}
	assert.True(t, sawDDL, "execs: %v", conn.Execs)
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, conn := stubStore(t)

	empty, err := store.Load(ctx)
	require.NoError(t, err)
	assert.True(t, empty.Empty())

	in := domain.Snapshot{
		Requirements: []domain.Requirement{{ID: "r1", Key: "REQ-0001", Title: "Login"}},
		CustomFields: []domain.CustomFieldDefinition{{ID: "cf1", Name: "asil", Kind: domain.FieldText}},
		Metadata:     domain.Metadata{KeyCounter: 1},
	}
	require.NoError(t, store.Save(ctx, in))
	in.Requirements[0].Title = "Login v2"
	require.NoError(t, store.Save(ctx, in))
	assert.Len(t, conn.Rows("state"), len(buckets.Names), "upsert must replace rows")

	out, err := store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, out.Requirements, 1)
	assert.Equal(t, "Login v2", out.Requirements[0].Title)
	assert.Equal(t, "asil", out.CustomFields[0].Name)
	assert.True(t, store.HasWorkspace())
}

func TestNewStoreErrors(t *testing.T) {
	ctx := context.Background()

	restore := OverrideSQLOpen(func(string, string) (*sql.DB, error) { return nil, errors.New("dial") })
	_, err := NewStore(ctx, "postgres://x")
	restore()
	require.ErrorContains(t, err, "open postgres")

	db, conn := testutil.NewStubDB()
	conn.FailPing = true
	restore = OverrideSQLOpen(func(string, string) (*sql.DB, error) { return db, nil })
	_, err = NewStore(ctx, "")
	restore()
	require.ErrorContains(t, err, "ping postgres")

	db, conn = testutil.NewStubDB()
	conn.FailExec = true
	restore = OverrideSQLOpen(func(string, string) (*sql.DB, error) { return db, nil })
	_, err = NewStore(ctx, "")
	restore()
	require.ErrorContains(t, err, "ensure state table")
}

func TestSaveFailures(t *testing.T) {
	ctx := context.Background()
	store, conn := stubStore(t)

	conn.FailBegin = true
	require.ErrorContains(t, store.Save(ctx, domain.Snapshot{}), "begin tx")
	conn.FailBegin = false

	conn.FailCommit = true
	require.ErrorContains(t, store.Save(ctx, domain.Snapshot{}), "commit")
	conn.FailCommit = false

	conn.FailExec = true
	require.ErrorContains(t, store.Save(ctx, domain.Snapshot{}), "upsert requirements")
}

func TestLoadFailures(t *testing.T) {
	ctx := context.Background()
	store, conn := stubStore(t)

	conn.FailQuery = true
	_, err := store.Load(ctx)
	require.ErrorContains(t, err, "select state")
	conn.FailQuery = false

	conn.Tables["state"] = []map[string]any{{"bucket": buckets.Documents, "payload": []byte("{")}}
	_, err = store.Load(ctx)
	require.ErrorContains(t, err, "decode documents")
}
