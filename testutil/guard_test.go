package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestPredicates(t *testing.T) {
	cases := []struct {
		name string
		pred func(string) bool
		in   string
		want bool
	}{
		{"internal", InternalImportForbidden, "tracecore/internal/core", true},
		{"internal", InternalImportForbidden, "tracecore/pkg/domain", false},
		{"infra", InfraImportForbidden, "tracecore/internal/infra/persistence/file", true},
		{"infra", InfraImportForbidden, "tracecore/internal/index", false},
		{"driver", DriverImportForbidden, "database/sql", true},
		{"driver", DriverImportForbidden, "database/sql/driver", true},
		{"driver", DriverImportForbidden, "github.com/dgraph-io/badger/v4", true},
		{"driver", DriverImportForbidden, "github.com/aws/aws-sdk-go-v2/service/s3", true},
		{"driver", DriverImportForbidden, "github.com/google/go-cmp/cmp", false},
		{"driver", DriverImportForbidden, "database/sqlx", false},
	}
	for _, c := range cases {
		if got := c.pred(c.in); got != c.want {
			t.Fatalf("%s(%q) = %v, want %v", c.name, c.in, got, c.want)
		}
	}
	combined := AnyOf(InfraImportForbidden, DriverImportForbidden)
	if !combined("modernc.org/sqlite") || combined("context") {
		t.Fatalf("AnyOf did not combine predicates")
	}
}

func TestDirectImportViolations(t *testing.T) {
	dir := t.TempDir()
	src := "package tmp\n\nimport (\n\t\"database/sql\"\n\t\"fmt\"\n)\n\nvar _ = sql.ErrNoRows\nvar _ = fmt.Sprint\n"
	if err := os.WriteFile(filepath.Join(dir, "x.go"), []byte(src), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	testSrc := "package tmp\n\nimport \"modernc.org/sqlite\"\n"
	if err := os.WriteFile(filepath.Join(dir, "x_test.go"), []byte(testSrc), 0o600); err != nil {
		t.Fatalf("write test: %v", err)
	}
	viols, err := directImportViolations(dir, DriverImportForbidden)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(viols) != 1 || viols[0] != "database/sql (in x.go)" {
		t.Fatalf("unexpected violations %v", viols)
	}
	AssertNoDirectImports(t, dir, InternalImportForbidden, "clean package")

	if _, err := directImportViolations(filepath.Join(dir, "missing"), DriverImportForbidden); err == nil {
		t.Fatalf("expected error for missing dir")
	}
}
