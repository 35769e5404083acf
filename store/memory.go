package store

// memoryProvider keeps records in a slice. Ephemeral by definition:
// Disconnect drops everything. Useful for tests and demos that want
// Store semantics without touching disk. Like JSON it is permissive
// about record shape.
type memoryProvider struct {
	cfg       Config
	recs      RecordSet
	connected bool
}

func newMemoryProvider(cfg Config) *memoryProvider {
	return &memoryProvider{cfg: cfg}
}

func (p *memoryProvider) Connect() error {
	p.connected = true
	return nil
}

func (p *memoryProvider) Disconnect() error {
	p.connected = false
	p.recs = nil
	return nil
}

func (p *memoryProvider) SaveData(records RecordSet) (int, error) {
	if !p.connected {
		return 0, errNotConnected(BackendMemory)
	}
	if len(records) == 0 {
		return 0, errEmptySet()
	}
	for _, rec := range records {
		p.recs = append(p.recs, copyRecord(rec))
	}
	return len(records), nil
}

func (p *memoryProvider) GetData(filter *Filter) (RecordSet, error) {
	if !p.connected {
		return nil, errNotConnected(BackendMemory)
	}
	out := make(RecordSet, 0, len(p.recs))
	for _, rec := range p.recs {
		if filter != nil && !filter.matches(rec) {
			continue
		}
		out = append(out, copyRecord(rec))
	}
	return out, nil
}

func (p *memoryProvider) TrimData(n int, oldest bool) (int, error) {
	if !p.connected {
		return 0, errNotConnected(BackendMemory)
	}
	if n > len(p.recs) {
		n = len(p.recs)
	}
	if oldest {
		p.recs = p.recs[n:]
	} else {
		p.recs = p.recs[:len(p.recs)-n]
	}
	return len(p.recs), nil
}

func (p *memoryProvider) Describe() (Info, error) {
	if !p.connected {
		return Info{}, errNotConnected(BackendMemory)
	}
	return Info{Backend: BackendMemory, Location: "memory", Records: len(p.recs)}, nil
}

// copyRecord keeps stored records isolated from later caller mutation.
func copyRecord(rec Record) Record {
	cp := make(Record, len(rec))
	for k, v := range rec {
		cp[k] = v
	}
	return cp
}
