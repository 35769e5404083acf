package store

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// sqliteProvider stores records as rows of a single table. The table is
// created on first save with column types inferred from the first
// record's values (TEXT, INTEGER, REAL, NUMERIC for booleans). The
// column set is the schema snapshot for the handle's lifetime: a later
// record may omit columns (stored as NULL) but introducing a new field
// is a validation failure.
//
// Inserts for one SaveData call run in a single transaction, so a
// failed call leaves no partial rows. Reads are ordered by rowid, which
// for an insert-only table is insertion order.
type sqliteProvider struct {
	cfg     Config
	db      *sql.DB
	columns []string
}

func newSQLiteProvider(cfg Config) *sqliteProvider {
	return &sqliteProvider{cfg: cfg}
}

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// validIdent guards table and column names; they are interpolated into
// SQL text and must stay plain identifiers.
func validIdent(name string) bool {
	return identRe.MatchString(name)
}

func (p *sqliteProvider) Connect() error {
	if p.db != nil {
		return nil
	}
	if p.cfg.Location != ":memory:" {
		if dir := filepath.Dir(p.cfg.Location); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return errf(KindConnection, err, "cannot create directory for %s", p.cfg.Location)
			}
		}
	}
	db, err := sql.Open("sqlite3", p.cfg.Location)
	if err != nil {
		return errf(KindConnection, err, "cannot open database %s", p.cfg.Location)
	}
	if p.cfg.Location == ":memory:" {
		// Each pooled connection would get its own in-memory database.
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return errf(KindConnection, err, "cannot reach database %s", p.cfg.Location)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return errf(KindConnection, err, "cannot set journal mode on %s", p.cfg.Location)
	}

	// Existing table: its columns are the schema snapshot.
	cols, err := tableColumns(db, p.cfg.Table)
	if err != nil {
		db.Close()
		return errf(KindConnection, err, "cannot inspect table %s", p.cfg.Table)
	}
	p.db = db
	p.columns = cols
	return nil
}

func tableColumns(db *sql.DB, table string) ([]string, error) {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var cols []string
	for rows.Next() {
		var (
			cid     int
			name    string
			ctype   string
			notnull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return nil, err
		}
		cols = append(cols, name)
	}
	return cols, rows.Err()
}

func (p *sqliteProvider) Disconnect() error {
	if p.db == nil {
		return nil
	}
	if err := p.db.Close(); err != nil {
		log.Printf("sqlite: error closing %s: %v", p.cfg.Location, err)
	}
	p.db = nil
	p.columns = nil
	return nil
}

func (p *sqliteProvider) SaveData(records RecordSet) (int, error) {
	if p.db == nil {
		return 0, errNotConnected(BackendSQLite)
	}
	if len(records) == 0 {
		return 0, errEmptySet()
	}
	cols := p.columns
	if cols == nil {
		cols = recordFields(records[0], p.cfg.Fields)
	}
	known := make(map[string]bool, len(cols))
	for _, c := range cols {
		known[c] = true
	}
	for _, rec := range records {
		for f := range rec {
			if !known[f] {
				return 0, errf(KindValidation, nil, "field %q is not a column of table %s", f, p.cfg.Table)
			}
		}
	}
	// Create the table only for a set that validated in full; a
	// rejected call must not leave an empty table binding the schema.
	if p.columns == nil {
		if err := p.createTable(records[0], cols); err != nil {
			return 0, err
		}
	}

	tx, err := p.db.Begin()
	if err != nil {
		return 0, errf(KindWrite, err, "cannot begin transaction on %s", p.cfg.Location)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(p.columns)), ",")
	stmt, err := tx.Prepare(fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		p.cfg.Table, strings.Join(p.columns, ", "), placeholders,
	))
	if err != nil {
		tx.Rollback()
		return 0, errf(KindWrite, err, "cannot prepare insert into %s", p.cfg.Table)
	}
	defer stmt.Close()

	args := make([]any, len(p.columns))
	for _, rec := range records {
		for i, c := range p.columns {
			args[i] = rec[c] // missing fields insert as NULL
		}
		if _, err := stmt.Exec(args...); err != nil {
			tx.Rollback()
			return 0, errf(KindWrite, err, "cannot insert into %s", p.cfg.Table)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, errf(KindWrite, err, "cannot commit to %s", p.cfg.Table)
	}
	return len(records), nil
}

// createTable infers column types from the first record. The snapshot
// is taken once per handle; later calls validate against it instead of
// re-inferring.
func (p *sqliteProvider) createTable(first Record, cols []string) error {
	decls := make([]string, 0, len(cols))
	for _, c := range cols {
		if !validIdent(c) {
			return errf(KindValidation, nil, "invalid column name %q", c)
		}
		decls = append(decls, c+" "+columnType(first[c]))
	}
	_, err := p.db.Exec(fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (%s)",
		p.cfg.Table, strings.Join(decls, ", "),
	))
	if err != nil {
		return errf(KindWrite, err, "cannot create table %s", p.cfg.Table)
	}
	p.columns = cols
	return nil
}

func columnType(v any) string {
	switch v.(type) {
	case int, int64:
		return "INTEGER"
	case float64, float32:
		return "REAL"
	case bool:
		return "NUMERIC"
	default:
		return "TEXT"
	}
}

// GetData returns rows ordered by rowid. Values come back as the driver
// scans them: int64, float64, string, or nil; NUMERIC booleans come
// back as int64 0/1 (Rules.Types restores bool).
func (p *sqliteProvider) GetData(filter *Filter) (RecordSet, error) {
	if p.db == nil {
		return nil, errNotConnected(BackendSQLite)
	}
	if p.columns == nil {
		// Nothing saved yet and no table to read from.
		return RecordSet{}, nil
	}

	query := fmt.Sprintf(
		"SELECT %s FROM %s", strings.Join(p.columns, ", "), p.cfg.Table,
	)
	var args []any
	if filter != nil {
		if !contains(p.columns, filter.Field) {
			return nil, errf(KindValidation, nil, "filter field %q is not a column of table %s", filter.Field, p.cfg.Table)
		}
		query += fmt.Sprintf(" WHERE %s = ?", filter.Field)
		args = append(args, filter.Value)
	}
	query += " ORDER BY rowid"

	rows, err := p.db.Query(query, args...)
	if err != nil {
		return nil, errf(KindRead, err, "cannot query table %s", p.cfg.Table)
	}
	defer rows.Close()

	var out RecordSet
	for rows.Next() {
		vals := make([]any, len(p.columns))
		ptrs := make([]any, len(p.columns))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, errf(KindRead, err, "cannot scan row from %s", p.cfg.Table)
		}
		rec := make(Record, len(p.columns))
		for i, c := range p.columns {
			if b, ok := vals[i].([]byte); ok {
				rec[c] = string(b)
			} else {
				rec[c] = vals[i]
			}
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errf(KindRead, err, "cannot read table %s", p.cfg.Table)
	}
	if out == nil {
		out = RecordSet{}
	}
	return out, nil
}

func (p *sqliteProvider) TrimData(n int, oldest bool) (int, error) {
	if p.db == nil {
		return 0, errNotConnected(BackendSQLite)
	}
	if p.columns == nil {
		return 0, nil
	}
	order := "ASC"
	if !oldest {
		order = "DESC"
	}
	_, err := p.db.Exec(fmt.Sprintf(
		"DELETE FROM %s WHERE rowid IN (SELECT rowid FROM %s ORDER BY rowid %s LIMIT ?)",
		p.cfg.Table, p.cfg.Table, order,
	), n)
	if err != nil {
		return 0, errf(KindWrite, err, "cannot trim table %s", p.cfg.Table)
	}
	return p.countRows()
}

func (p *sqliteProvider) Describe() (Info, error) {
	if p.db == nil {
		return Info{}, errNotConnected(BackendSQLite)
	}
	info := Info{Backend: BackendSQLite, Location: p.cfg.Location}
	if p.columns == nil {
		return info, nil
	}
	n, err := p.countRows()
	if err != nil {
		return Info{}, err
	}
	info.Records = n
	return info, nil
}

func (p *sqliteProvider) countRows() (int, error) {
	var n int
	err := p.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", p.cfg.Table)).Scan(&n)
	if err != nil {
		return 0, errf(KindRead, err, "cannot count rows in %s", p.cfg.Table)
	}
	return n, nil
}

func contains(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}
