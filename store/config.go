package store

import "strings"

// Backend identifies a storage technology. The set is closed and
// resolved once, at New; there is no runtime plugin loading.
type Backend string

const (
	BackendCSV    Backend = "csv"
	BackendJSON   Backend = "json"
	BackendSQLite Backend = "sqlite"
	BackendMemory Backend = "memory" // ephemeral, for tests and demos
)

const defaultTable = "records"

// Config describes one backend target. It is read by the Store at
// construction and never mutated afterwards.
type Config struct {
	// Backend selects the storage technology.
	Backend Backend

	// Location is the file path (csv, json) or database path/DSN
	// (sqlite, ":memory:" included). Ignored by the memory backend.
	Location string

	// Table is the sqlite table name. Defaults to "records".
	Table string

	// Fields optionally declares the field layout. When set it fixes
	// column order for csv and sqlite; when absent the layout is
	// inferred from the first record written, sorted by name.
	Fields []string

	// Encoding of file-based backends. Only UTF-8 is supported; empty
	// means UTF-8.
	Encoding string

	// Process optionally configures the normalization stage applied
	// before writes and after reads. Nil means identity.
	Process *Rules
}

// withDefaults fills derivable zero values.
func (c Config) withDefaults() Config {
	if c.Table == "" {
		c.Table = defaultTable
	}
	if c.Encoding == "" {
		c.Encoding = "utf-8"
	}
	return c
}

// validate rejects configurations that cannot possibly work. Runs at
// New so bad setup surfaces immediately rather than on first use.
func (c Config) validate() error {
	switch c.Backend {
	case BackendCSV, BackendJSON, BackendSQLite:
		if c.Location == "" {
			return errf(KindConfiguration, nil, "%s backend requires a location", c.Backend)
		}
	case BackendMemory:
	case "":
		return errf(KindConfiguration, nil, "no backend configured (supported: csv, json, sqlite, memory)")
	default:
		return errf(KindConfiguration, nil, "unknown backend %q (supported: csv, json, sqlite, memory)", c.Backend)
	}

	switch strings.ToLower(c.Encoding) {
	case "utf-8", "utf8":
	default:
		return errf(KindConfiguration, nil, "unsupported encoding %q (only utf-8)", c.Encoding)
	}

	if c.Backend == BackendSQLite && !validIdent(c.Table) {
		return errf(KindConfiguration, nil, "invalid table name %q", c.Table)
	}

	seen := make(map[string]bool, len(c.Fields))
	for _, f := range c.Fields {
		if f == "" {
			return errf(KindConfiguration, nil, "empty field name in field list")
		}
		if seen[f] {
			return errf(KindConfiguration, nil, "duplicate field %q in field list", f)
		}
		seen[f] = true
	}
	return nil
}

// Targets is a multi-target configuration: several named backends (for
// example "primary" and "archive") of which one Store binds exactly one.
type Targets map[string]Config

// Resolve returns the named target's Config.
func (t Targets) Resolve(name string) (Config, error) {
	cfg, ok := t[name]
	if !ok {
		return Config{}, errf(KindConfiguration, nil, "no target named %q", name)
	}
	return cfg, nil
}
