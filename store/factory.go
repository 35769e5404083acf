package store

// newProvider resolves a validated Config to a concrete backend.
//
// Supported backends:
//
//	"csv"    - header + rows appended to a flat file
//	"json"   - JSON document array, atomic rewrite
//	"sqlite" - embedded SQLite database (file or :memory:)
//	"memory" - in-memory (ephemeral, for testing)
func newProvider(cfg Config) (Provider, error) {
	switch cfg.Backend {
	case BackendCSV:
		return newCSVProvider(cfg), nil
	case BackendJSON:
		return newJSONProvider(cfg), nil
	case BackendSQLite:
		return newSQLiteProvider(cfg), nil
	case BackendMemory:
		return newMemoryProvider(cfg), nil
	default:
		return nil, errf(KindConfiguration, nil, "unknown backend %q (supported: csv, json, sqlite, memory)", cfg.Backend)
	}
}
