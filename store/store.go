package store

import "sync"

// Store is the public facade. It binds exactly one provider, selected
// from its Config at construction, and translates every failure into
// the shared {kind, backend, message} vocabulary.
//
// Lifecycle: Unconnected -> Connected -> Closed. The provider handle is
// acquired lazily on first use and released exactly once by Close,
// which is idempotent and terminal. A Store serializes its own calls
// with a mutex; the provider handle underneath is never shared.
type Store struct {
	mu       sync.Mutex
	cfg      Config
	provider Provider
	proc     *Processor
	state    state
}

type state int

const (
	stateUnconnected state = iota
	stateConnected
	stateClosed
)

// New builds a Store from cfg. Configuration problems are fatal and
// reported here, never deferred to first use. No I/O happens until the
// first operation.
func New(cfg Config) (*Store, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	p, err := newProvider(cfg)
	if err != nil {
		return nil, err
	}
	return &Store{
		cfg:      cfg,
		provider: p,
		proc:     newProcessor(cfg.Process, cfg.Fields),
	}, nil
}

// Open resolves one named target out of a multi-target configuration
// and builds a Store bound to it.
func Open(targets Targets, name string) (*Store, error) {
	cfg, err := targets.Resolve(name)
	if err != nil {
		return nil, err
	}
	return New(cfg)
}

// Backend returns the backend kind this Store is bound to.
func (s *Store) Backend() Backend { return s.cfg.Backend }

// SaveData validates, normalizes, and writes records, returning the
// number written.
func (s *Store) SaveData(records RecordSet) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	// Validate before touching the medium: a doomed call performs no I/O.
	if s.state == stateClosed {
		return 0, s.annotate(errf(KindState, nil, "store is closed"))
	}
	if len(records) == 0 {
		return 0, s.annotate(errEmptySet())
	}
	if err := s.ensureConnected(); err != nil {
		return 0, err
	}
	if s.proc != nil {
		var err error
		if records, err = s.proc.Normalize(records); err != nil {
			return 0, s.fail(err)
		}
	}
	n, err := s.provider.SaveData(records)
	if err != nil {
		return 0, s.fail(err)
	}
	saveCounter(s.cfg.Backend).Inc()
	return n, nil
}

// GetData reads records, optionally filtered by field equality, and
// runs them through the processor's inverse transform.
func (s *Store) GetData(filter *Filter) (RecordSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureConnected(); err != nil {
		return nil, err
	}
	recs, err := s.provider.GetData(filter)
	if err != nil {
		return nil, s.fail(err)
	}
	if s.proc != nil {
		if recs, err = s.proc.Denormalize(recs); err != nil {
			return nil, s.fail(err)
		}
	}
	getCounter(s.cfg.Backend).Inc()
	return recs, nil
}

// TrimData drops the oldest (or newest) n records and returns how many
// remain.
func (s *Store) TrimData(n int, oldest bool) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureConnected(); err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, s.annotate(errf(KindValidation, nil, "negative trim count %d", n))
	}
	remaining, err := s.provider.TrimData(n, oldest)
	if err != nil {
		return 0, s.fail(err)
	}
	return remaining, nil
}

// Describe returns backend metadata for diagnostics.
func (s *Store) Describe() (Info, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureConnected(); err != nil {
		return Info{}, err
	}
	info, err := s.provider.Describe()
	if err != nil {
		return Info{}, s.fail(err)
	}
	return info, nil
}

// Close releases the provider handle. Safe to call any number of
// times; after the first the Store is terminally Closed and further
// SaveData/GetData calls fail with a state error.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == stateClosed {
		return nil
	}
	wasConnected := s.state == stateConnected
	s.state = stateClosed
	if wasConnected {
		// Disconnect swallows release failures internally.
		return s.provider.Disconnect()
	}
	return nil
}

// ensureConnected transparently connects on first use and rejects
// operations after Close.
func (s *Store) ensureConnected() error {
	switch s.state {
	case stateClosed:
		return s.annotate(errf(KindState, nil, "store is closed"))
	case stateUnconnected:
		if err := s.provider.Connect(); err != nil {
			return s.fail(err)
		}
		s.state = stateConnected
	}
	return nil
}

// annotate stamps the backend name onto a store error so callers
// handling several stores can tell which one failed. Kinds are never
// reclassified here.
func (s *Store) annotate(err error) error {
	if se, ok := err.(*Error); ok && se.Backend == "" {
		se.Backend = string(s.cfg.Backend)
	}
	return err
}

func (s *Store) fail(err error) error {
	errorCounter(s.cfg.Backend).Inc()
	return s.annotate(err)
}
