package testutil

import (
	"context"
	"database/sql/driver"
	"testing"
)

func TestStubConnUpsertsAndSelects(t *testing.T) {
	ctx := context.Background()
	_, conn := NewStubDB()

	if err := conn.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	insert := "INSERT INTO state(bucket,payload) VALUES($1,$2) ON CONFLICT(bucket) DO UPDATE SET payload=EXCLUDED.payload"
	for _, payload := range []string{"v1", "v2"} {
		if _, err := conn.ExecContext(ctx, insert, []driver.NamedValue{{Value: "metadata"}, {Value: payload}}); err != nil {
			t.Fatalf("ExecContext insert: %v", err)
		}
	}
	if rows := conn.Rows("state"); len(rows) != 1 || rows[0]["payload"] != "v2" {
		t.Fatalf("expected one upserted row, got %v", rows)
	}

	rows, err := conn.QueryContext(ctx, "SELECT bucket, payload FROM state", nil)
	if err != nil {
		t.Fatalf("QueryContext: %v", err)
	}
	defer func() { _ = rows.Close() }()
	dest := make([]driver.Value, 2)
	if err := rows.Next(dest); err != nil {
		t.Fatalf("Next: %v", err)
	}
	if dest[0] != "metadata" || dest[1] != "v2" {
		t.Fatalf("unexpected row values: %v", dest)
	}
}

func TestStubConnParseErrors(t *testing.T) {
	ctx := context.Background()
	_, conn := NewStubDB()
	if _, err := conn.ExecContext(ctx, "INSERT INTO broken", nil); err == nil {
		t.Fatalf("expected insert parse error")
	}
	if _, err := conn.QueryContext(ctx, "VACUUM", nil); err == nil {
		t.Fatalf("expected select parse error")
	}
	conn.FailQuery = true
	if _, err := conn.QueryContext(ctx, "SELECT a FROM b", nil); err == nil {
		t.Fatalf("expected injected query error")
	}
}
