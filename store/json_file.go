package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// jsonProvider stores records as a single top-level JSON array, one
// object per record, no envelope. Shapes may differ record to record;
// JSON is the permissive backend.
//
// Every save rewrites the whole document atomically: marshal to a
// temporary file in the same directory, then rename over the original.
// A crash between temp creation and rename leaves the committed
// document untouched.
type jsonProvider struct {
	cfg       Config
	connected bool
}

func newJSONProvider(cfg Config) *jsonProvider {
	return &jsonProvider{cfg: cfg}
}

func (p *jsonProvider) Connect() error {
	if p.connected {
		return nil
	}
	if dir := filepath.Dir(p.cfg.Location); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errf(KindConnection, err, "cannot create directory for %s", p.cfg.Location)
		}
	}
	p.connected = true
	return nil
}

func (p *jsonProvider) Disconnect() error {
	p.connected = false
	return nil
}

func (p *jsonProvider) SaveData(records RecordSet) (int, error) {
	if !p.connected {
		return 0, errNotConnected(BackendJSON)
	}
	if len(records) == 0 {
		return 0, errEmptySet()
	}
	existing, err := p.readDoc()
	if err != nil {
		return 0, err
	}
	if err := p.writeDoc(append(existing, records...)); err != nil {
		return 0, err
	}
	return len(records), nil
}

func (p *jsonProvider) GetData(filter *Filter) (RecordSet, error) {
	if !p.connected {
		return nil, errNotConnected(BackendJSON)
	}
	recs, err := p.readDoc()
	if err != nil {
		return nil, err
	}
	if filter == nil {
		return recs, nil
	}
	out := make(RecordSet, 0, len(recs))
	for _, rec := range recs {
		if filter.matches(rec) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (p *jsonProvider) TrimData(n int, oldest bool) (int, error) {
	if !p.connected {
		return 0, errNotConnected(BackendJSON)
	}
	recs, err := p.readDoc()
	if err != nil {
		return 0, err
	}
	if n > len(recs) {
		n = len(recs)
	}
	if oldest {
		recs = recs[n:]
	} else {
		recs = recs[:len(recs)-n]
	}
	if err := p.writeDoc(recs); err != nil {
		return 0, err
	}
	return len(recs), nil
}

func (p *jsonProvider) Describe() (Info, error) {
	if !p.connected {
		return Info{}, errNotConnected(BackendJSON)
	}
	recs, err := p.readDoc()
	if err != nil {
		return Info{}, err
	}
	return Info{Backend: BackendJSON, Location: p.cfg.Location, Records: len(recs)}, nil
}

// readDoc loads the document array. A missing file reads as an empty
// record set, which is the least surprising behavior for a backend
// nothing has written to yet.
func (p *jsonProvider) readDoc() (RecordSet, error) {
	data, err := os.ReadFile(p.cfg.Location)
	if err != nil {
		if os.IsNotExist(err) {
			return RecordSet{}, nil
		}
		return nil, errf(KindRead, err, "cannot read %s", p.cfg.Location)
	}
	var recs RecordSet
	if err := json.Unmarshal(data, &recs); err != nil {
		return nil, errf(KindRead, err, "%s is not a JSON record array", p.cfg.Location)
	}
	return recs, nil
}

// writeDoc performs the atomic rewrite. The temp file lives in the
// target directory so the rename never crosses filesystems, and is
// removed on every failure path.
func (p *jsonProvider) writeDoc(recs RecordSet) error {
	b, err := json.MarshalIndent(recs, "", "  ")
	if err != nil {
		return errf(KindWrite, err, "cannot marshal records for %s", p.cfg.Location)
	}
	dir, base := filepath.Split(p.cfg.Location)
	tmp := filepath.Join(dir, fmt.Sprintf(".%s.%s.tmp", base, uuid.NewString()))
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return errf(KindWrite, err, "cannot write temp file for %s", p.cfg.Location)
	}
	if err := os.Rename(tmp, p.cfg.Location); err != nil {
		os.Remove(tmp)
		return errf(KindWrite, err, "cannot replace %s", p.cfg.Location)
	}
	return nil
}
