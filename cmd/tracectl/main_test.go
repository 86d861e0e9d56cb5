package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"tracecore/internal/core"
	"tracecore/pkg/domain"
)

// workspace writes a config that stores the workspace as a JSON file under a
// temp dir and returns the config path.
func workspace(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	body := fmt.Sprintf(`storage:
  driver: file
  file:
    dir: %s
engine:
  actor: alice
  key_prefix: SYS
  flush_delay: 0s
log:
  level: error
`, filepath.Join(dir, "ws"))
	path := filepath.Join(dir, "tracecore.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func run(t *testing.T, cfg string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--config", cfg}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func mustRun[T any](t *testing.T, cfg string, args ...string) T {
	t.Helper()
	out, err := run(t, cfg, args...)
	require.NoError(t, err, "tracectl %s", strings.Join(args, " "))
	var v T
	require.NoError(t, json.Unmarshal([]byte(out), &v), "output: %s", out)
	return v
}

func TestRequirementLifecyclePersistsAcrossInvocations(t *testing.T) {
	cfg := workspace(t)

	created := mustRun[domain.Requirement](t, cfg, "req", "create", "--title", "Login", "--type", "functional", "--priority", "high", "--tag", "auth")
	assert.Equal(t, "SYS-0001", created.Key)
	assert.Equal(t, 1, created.Version)
	assert.Equal(t, "alice", created.CreatedBy)

	shown := mustRun[domain.Requirement](t, cfg, "req", "show", "SYS-0001")
	assert.Equal(t, created.ID, shown.ID, "a second process reads the saved workspace")
	assert.Equal(t, []string{"auth"}, shown.Tags)

	updated := mustRun[domain.Requirement](t, cfg, "--actor", "bob", "req", "update", created.ID, "--title", "Login with SSO", "--coverage", "50")
	assert.Equal(t, 2, updated.Version)
	assert.Equal(t, "Login with SSO", updated.Title)
	assert.Equal(t, 50, updated.TestCoverage)
	assert.Equal(t, domain.PriorityHigh, updated.Priority, "unset flags are left alone")

	history := mustRun[[]domain.ChangeRecord](t, cfg, "req", "history", "SYS-0001")
	require.NotEmpty(t, history)
	last := history[len(history)-1]
	assert.Equal(t, "bob", last.UserID)

	child := mustRun[domain.Requirement](t, cfg, "req", "create", "--title", "Password reset", "--parent", "SYS-0001")
	assert.Equal(t, created.ID, child.ParentID)
	assert.Equal(t, 1, child.Level)

	children := mustRun[[]reqSummary](t, cfg, "req", "children", "SYS-0001")
	require.Len(t, children, 1)
	assert.Equal(t, "SYS-0002", children[0].Key)

	roots := mustRun[[]reqSummary](t, cfg, "req", "list", "--roots")
	require.Len(t, roots, 1)

	_, err := run(t, cfg, "req", "delete", "SYS-0001")
	require.NoError(t, err)
	all := mustRun[[]reqSummary](t, cfg, "req", "list")
	assert.Empty(t, all, "deleting a parent removes its subtree")
}

func TestLinksMarkSuspectWhenTargetChanges(t *testing.T) {
	cfg := workspace(t)
	mustRun[domain.Requirement](t, cfg, "req", "create", "--title", "Stakeholder need", "--type", "user-need")
	mustRun[domain.Requirement](t, cfg, "req", "create", "--title", "System behaviour", "--type", "system")

	link := mustRun[domain.TraceLink](t, cfg, "link", "add", "SYS-0001", "SYS-0002", "--type", "derives-to")
	assert.Equal(t, domain.LinkDerivesTo, link.LinkType)

	inverse := mustRun[[]domain.TraceLink](t, cfg, "link", "list", "SYS-0002")
	require.Len(t, inverse, 1)
	assert.Equal(t, domain.LinkDerivesTo.Inverse(), inverse[0].LinkType)

	down := mustRun[[]reqSummary](t, cfg, "link", "downstream", "SYS-0001")
	require.Len(t, down, 1)
	assert.Equal(t, "SYS-0002", down[0].Key)

	mustRun[domain.Requirement](t, cfg, "req", "update", "SYS-0002", "--description", "now with more detail")
	suspects := mustRun[[]domain.TraceLink](t, cfg, "suspect", "list")
	require.Len(t, suspects, 1)
	assert.Equal(t, link.ID, suspects[0].ID)

	cleared := mustRun[domain.TraceLink](t, cfg, "suspect", "clear", "SYS-0001", link.ID)
	assert.False(t, cleared.IsSuspect)
	assert.Equal(t, "alice", cleared.VerifiedBy)
	assert.Empty(t, mustRun[[]domain.TraceLink](t, cfg, "suspect", "list"))

	impact := mustRun[[]core.ImpactNode](t, cfg, "impact", "SYS-0001", "--depth", "2")
	require.Len(t, impact, 1)
	assert.Equal(t, "SYS-0002", impact[0].Key)

	_, err := run(t, cfg, "link", "remove", "SYS-0001", link.ID)
	require.NoError(t, err)
	assert.Empty(t, mustRun[[]domain.TraceLink](t, cfg, "link", "list", "SYS-0002"))
}

func TestBaselineLockDiffAndExport(t *testing.T) {
	cfg := workspace(t)
	mustRun[domain.Requirement](t, cfg, "req", "create", "--title", "Brake within 2s", "--type", "safety")

	b := mustRun[baselineSummary](t, cfg, "baseline", "create", "--name", "R1")
	assert.Equal(t, 1, b.Records)
	assert.Equal(t, string(domain.BaselineDraft), b.Status)

	locked := mustRun[baselineSummary](t, cfg, "baseline", "lock", "R1")
	assert.Equal(t, string(domain.BaselineLocked), locked.Status)
	r := mustRun[domain.Requirement](t, cfg, "req", "show", "SYS-0001")
	assert.True(t, r.IsLocked)
	assert.Equal(t, b.ID, r.BaselineID)

	mustRun[domain.Requirement](t, cfg, "req", "update", "SYS-0001", "--title", "Brake within 1.5s")
	diff := mustRun[core.BaselineDiff](t, cfg, "baseline", "diff", "R1")
	require.Len(t, diff.Modified, 1)
	assert.Contains(t, diff.Modified[0].Fields, core.FieldNameTitle)

	_, err := run(t, cfg, "baseline", "delete", "R1")
	require.ErrorIs(t, err, domain.ErrBaselineLocked)

	exportPath := filepath.Join(t.TempDir(), "r1.yaml")
	_, err = run(t, cfg, "-o", "yaml", "baseline", "export", "R1", "--file", exportPath)
	require.NoError(t, err)
	raw, err := os.ReadFile(exportPath)
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, yaml.Unmarshal(raw, &doc))
	assert.Equal(t, "R1", doc["name"])
	snaps, ok := doc["snapshots"].([]any)
	require.True(t, ok)
	require.Len(t, snaps, 1)
}

func TestValidateReportsBlockingViolations(t *testing.T) {
	cfg := workspace(t)
	mustRun[domain.Requirement](t, cfg, "req", "create", "--title", "Audit log")

	out, err := run(t, cfg, "validate", "SYS-0001", "--status", "approved")
	require.ErrorIs(t, err, errBlocked)
	var res domain.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.True(t, res.HasBlocking())

	ok := mustRun[domain.Result](t, cfg, "validate", "SYS-0001", "--status", "in-review")
	assert.Empty(t, ok.Violations)
}

func TestCustomFieldsAndCoverage(t *testing.T) {
	cfg := workspace(t)
	mustRun[domain.CustomFieldDefinition](t, cfg, "field", "define", "effort", "--kind", "number")
	defs := mustRun[[]domain.CustomFieldDefinition](t, cfg, "field", "list")
	require.Len(t, defs, 1)

	r := mustRun[domain.Requirement](t, cfg, "req", "create", "--title", "Export CSV", "--coverage", "100", "--field", "effort=3.5")
	require.NotNil(t, r.CustomFields["effort"].Number)
	assert.InDelta(t, 3.5, *r.CustomFields["effort"].Number, 0.001)

	_, err := run(t, cfg, "req", "create", "--title", "Bad", "--field", "effort=lots")
	require.Error(t, err)

	report := mustRun[core.CoverageReport](t, cfg, "coverage")
	assert.Equal(t, 1, report.Overall.Total)
	assert.Equal(t, 100, report.Overall.Percentage)
}

func TestUnknownReferencesAndFormats(t *testing.T) {
	cfg := workspace(t)
	_, err := run(t, cfg, "req", "show", "SYS-404")
	require.ErrorContains(t, err, "not found")

	_, err = run(t, cfg, "-o", "xml", "req", "list")
	require.ErrorContains(t, err, "unsupported export format")

	_, err = run(t, cfg, "--storage", "tape", "req", "list")
	require.ErrorContains(t, err, "invalid config")
}

func TestWatchReturnsOnCancel(t *testing.T) {
	cfg := workspace(t)
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"--config", cfg, "--storage", "memory", "watch", "--metrics-addr", "127.0.0.1:0"})

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	err := cmd.ExecuteContext(ctx)
	require.True(t, err == nil || errors.Is(err, context.DeadlineExceeded), "unexpected error %v", err)
}

func TestParseFieldValue(t *testing.T) {
	tests := []struct {
		kind    domain.FieldKind
		raw     string
		wantErr bool
		check   func(domain.CustomFieldValue) bool
	}{
		{domain.FieldText, "hello", false, func(v domain.CustomFieldValue) bool { return v.Text == "hello" }},
		{domain.FieldBool, "true", false, func(v domain.CustomFieldValue) bool { return v.Bool != nil && *v.Bool }},
		{domain.FieldBool, "maybe", true, nil},
		{domain.FieldDate, "2026-03-01", false, func(v domain.CustomFieldValue) bool { return v.Date != nil && v.Date.Month() == time.March }},
		{domain.FieldDate, "yesterday", true, nil},
		{domain.FieldList, "a| b ||c", false, func(v domain.CustomFieldValue) bool { return len(v.List) == 3 && v.List[1] == "b" }},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind)+"/"+tt.raw, func(t *testing.T) {
			v, err := parseFieldValue(tt.kind, tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.kind, v.Kind)
			assert.True(t, tt.check(v), "unexpected value %+v", v)
		})
	}
}
