package database

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/iliyamo/smart-waste/internal/database/migrations"
)

const migrationTable = "schema_migrations"

// columnSpec is a column that older database files may be missing.  Each
// definition must be valid for ALTER TABLE ADD COLUMN, so NOT NULL columns
// carry a constant default.
type columnSpec struct {
	table string
	name  string
	def   string
}

// upgradeColumns lists every column added after the first released schema.
// Databases created by earlier builds get them added in place.
var upgradeColumns = []columnSpec{
	{"users", "zone_id", "INTEGER REFERENCES zones(id)"},
	{"users", "full_name", "TEXT"},
	{"users", "id_no", "TEXT"},
	{"users", "telephone", "TEXT"},
	{"users", "email", "TEXT"},
	{"users", "address", "TEXT"},
	{"users", "total_points", "INTEGER NOT NULL DEFAULT 0"},
	{"users", "failed_attempts", "INTEGER NOT NULL DEFAULT 0"},
	{"users", "locked_until", "INTEGER"},
	{"users", "is_active", "INTEGER NOT NULL DEFAULT 1"},
	{"users", "profile_completed", "INTEGER NOT NULL DEFAULT 0"},
	{"users", "created_at", "INTEGER NOT NULL DEFAULT 0"},
	{"users", "updated_at", "INTEGER NOT NULL DEFAULT 0"},
	{"zones", "is_active", "INTEGER NOT NULL DEFAULT 1"},
	{"zones", "service_hours", "TEXT"},
	{"zones", "created_at", "INTEGER NOT NULL DEFAULT 0"},
	{"pickup_requests", "zone_name", "TEXT NOT NULL DEFAULT ''"},
	{"pickup_requests", "collector_id", "TEXT REFERENCES users(login_id)"},
	{"pickup_requests", "points_awarded", "INTEGER NOT NULL DEFAULT 0"},
	{"pickup_requests", "updated_at", "INTEGER NOT NULL DEFAULT 0"},
	{"pickup_status_updates", "actor_id", "TEXT REFERENCES users(login_id)"},
	{"pickup_status_updates", "comment", "TEXT"},
	{"pickup_status_updates", "evidence_ref", "TEXT"},
	{"recycling_logs", "pickup_id", "INTEGER REFERENCES pickup_requests(id)"},
	{"recycling_logs", "image_ref", "TEXT"},
	{"notifications", "type", "TEXT NOT NULL DEFAULT 'general'"},
	{"notifications", "read_at", "INTEGER"},
}

// Migrate brings the database at db up to the current schema.  It is safe
// to run on every start: tables that already exist gain any missing
// columns first, then the embedded migration files run at most once each.
func Migrate(ctx context.Context, db *sql.DB, log *slog.Logger) error {
	if log == nil {
		log = slog.Default()
	}
	added, err := ensureColumns(ctx, db, upgradeColumns)
	if err != nil {
		return err
	}
	for _, c := range added {
		log.Info("schema upgraded", "component", "database", "column", c)
	}
	return ApplyMigrations(ctx, db, migrations.FS, ".")
}

// ApplyMigrations executes the *.sql files under root in lexical order, at
// most once per file, recording each in schema_migrations.  Only the
// "-- +migrate Up" section of a file is executed.
func ApplyMigrations(ctx context.Context, db *sql.DB, migrationFS fs.FS, root string) error {
	if db == nil {
		return fmt.Errorf("sql db is required")
	}
	root = strings.TrimSpace(root)
	if root == "" {
		root = "."
	}

	entries, err := fs.ReadDir(migrationFS, root)
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS `+migrationTable+` (
    name TEXT PRIMARY KEY,
    applied_at INTEGER NOT NULL
)`); err != nil {
		return fmt.Errorf("ensure migration table: %w", err)
	}

	for _, name := range files {
		applied, err := isApplied(ctx, db, name)
		if err != nil {
			return fmt.Errorf("check migration %s: %w", name, err)
		}
		if applied {
			continue
		}
		p := name
		if root != "." {
			p = root + "/" + name
		}
		content, err := fs.ReadFile(migrationFS, p)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		up := ExtractUpMigration(string(content))
		if strings.TrimSpace(up) == "" {
			continue
		}

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration %s: %w", name, err)
		}
		if _, err := tx.ExecContext(ctx, up); err != nil && !IsAlreadyExistsError(err) {
			_ = tx.Rollback()
			return fmt.Errorf("exec migration %s: %w", name, err)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT OR IGNORE INTO "+migrationTable+" (name, applied_at) VALUES (?, ?)",
			name, time.Now().UTC().UnixMilli(),
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %s: %w", name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %s: %w", name, err)
		}
	}
	return nil
}

// ExtractUpMigration returns the SQL in the -- +migrate Up section, or the
// whole content when the file has no markers.
func ExtractUpMigration(content string) string {
	const upMarker, downMarker = "-- +migrate Up", "-- +migrate Down"
	upIdx := strings.Index(content, upMarker)
	if upIdx == -1 {
		return content
	}
	body := content[upIdx+len(upMarker):]
	if downIdx := strings.Index(body, downMarker); downIdx != -1 {
		return body[:downIdx]
	}
	return body
}

// IsAlreadyExistsError reports whether err indicates the DDL had already
// been applied.
func IsAlreadyExistsError(err error) bool {
	v := strings.ToLower(err.Error())
	return strings.Contains(v, "already exists") || strings.Contains(v, "duplicate column name")
}

func isApplied(ctx context.Context, db *sql.DB, name string) (bool, error) {
	var found int
	err := db.QueryRowContext(ctx, "SELECT 1 FROM "+migrationTable+" WHERE name = ?", name).Scan(&found)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ensureColumns adds every spec whose table exists but lacks the column.
// Missing tables are left for the migration files to create.  It returns
// the added columns as "table.column".
func ensureColumns(ctx context.Context, db *sql.DB, specs []columnSpec) ([]string, error) {
	cache := map[string]map[string]bool{}
	var added []string
	for _, s := range specs {
		cols, ok := cache[s.table]
		if !ok {
			var err error
			cols, err = tableColumns(ctx, db, s.table)
			if err != nil {
				return added, fmt.Errorf("inspect %s: %w", s.table, err)
			}
			cache[s.table] = cols
		}
		if len(cols) == 0 || cols[s.name] {
			continue
		}
		stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", s.table, s.name, s.def)
		if _, err := db.ExecContext(ctx, stmt); err != nil && !IsAlreadyExistsError(err) {
			return added, fmt.Errorf("add column %s.%s: %w", s.table, s.name, err)
		}
		cols[s.name] = true
		added = append(added, s.table+"."+s.name)
	}
	return added, nil
}

// tableColumns returns the column set of table, empty when it does not exist.
func tableColumns(ctx context.Context, db *sql.DB, table string) (map[string]bool, error) {
	rows, err := db.QueryContext(ctx, "SELECT name FROM pragma_table_info(?)", table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	cols := map[string]bool{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		cols[name] = true
	}
	return cols, rows.Err()
}
