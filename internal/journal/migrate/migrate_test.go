package migrate

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"testing"
	"testing/fstest"

	_ "github.com/mattn/go-sqlite3"
)

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", "file::memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestRun_EmbeddedIsIdempotent(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()

	first, err := Run(ctx, db, quiet)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(first) != 2 || first[0].Version != "0001" || first[1].Version != "0002" {
		t.Fatalf("applied = %+v", first)
	}

	second, err := Run(ctx, db, quiet)
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if len(second) != 0 {
		t.Fatalf("re-applied %+v", second)
	}

	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("schema_migrations rows = %d", n)
	}
	if _, err := db.Exec("SELECT id, state, truncated FROM deliveries"); err != nil {
		t.Fatalf("deliveries table: %v", err)
	}
}

func TestRun_OrdersAndSkipsForeignFiles(t *testing.T) {
	db := openDB(t)
	fsys := fstest.MapFS{
		"sql/0002_b.sql":  {Data: []byte("ALTER TABLE t ADD COLUMN b TEXT;")},
		"sql/0001_a.sql":  {Data: []byte("CREATE TABLE t (a INTEGER);")},
		"sql/README.md":   {Data: []byte("not a migration")},
		"sql/1_short.sql": {Data: []byte("bogus")},
	}

	applied, err := run(context.Background(), db, fsys, quiet)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(applied) != 2 || applied[0].Name != "a" || applied[1].Name != "b" {
		t.Fatalf("applied = %+v", applied)
	}
}

func TestRun_FailedMigrationRollsBack(t *testing.T) {
	db := openDB(t)
	fsys := fstest.MapFS{
		"sql/0001_ok.sql":  {Data: []byte("CREATE TABLE t (a INTEGER);")},
		"sql/0002_bad.sql": {Data: []byte("CREATE TABLE u (a INTEGER); THIS IS NOT SQL;")},
	}

	if _, err := run(context.Background(), db, fsys, quiet); err == nil {
		t.Fatal("want error")
	}

	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("recorded %d migrations, want 1", n)
	}
	if _, err := db.Exec("SELECT a FROM u"); err == nil {
		t.Fatal("table from failed migration survived")
	}
}
