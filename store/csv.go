package store

import (
	"encoding/csv"
	"io"
	"log"
	"os"
	"path/filepath"
)

// csvProvider appends rows to a single CSV file. The first line is a
// header row; the header is the schema snapshot for the handle's
// lifetime, taken from the existing file at Connect or from the first
// record written. Every record must match it exactly.
//
// Appends are not atomic: a crash mid-write can leave a truncated last
// row. That is an accepted limitation of the format, not something the
// provider tries to repair.
type csvProvider struct {
	cfg    Config
	file   *os.File // append handle, nil until Connect
	header []string
}

func newCSVProvider(cfg Config) *csvProvider {
	return &csvProvider{cfg: cfg}
}

func (p *csvProvider) Connect() error {
	if p.file != nil {
		return nil
	}
	if dir := filepath.Dir(p.cfg.Location); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errf(KindConnection, err, "cannot create directory for %s", p.cfg.Location)
		}
	}
	f, err := os.OpenFile(p.cfg.Location, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return errf(KindConnection, err, "cannot open %s", p.cfg.Location)
	}

	// Existing non-empty file: its header is the schema snapshot.
	header, err := readCSVHeader(f)
	if err != nil {
		f.Close()
		return errf(KindConnection, err, "cannot read header of %s", p.cfg.Location)
	}
	if _, err := f.Seek(0, io.SeekEnd); err != nil {
		f.Close()
		return errf(KindConnection, err, "cannot seek %s", p.cfg.Location)
	}
	p.file = f
	p.header = header
	return nil
}

func readCSVHeader(f *os.File) ([]string, error) {
	st, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if st.Size() == 0 {
		return nil, nil
	}
	header, err := csv.NewReader(f).Read()
	if err != nil {
		return nil, err
	}
	return header, nil
}

func (p *csvProvider) Disconnect() error {
	if p.file == nil {
		return nil
	}
	if err := p.file.Close(); err != nil {
		log.Printf("csv: error closing %s: %v", p.cfg.Location, err)
	}
	p.file = nil
	p.header = nil
	return nil
}

func (p *csvProvider) SaveData(records RecordSet) (int, error) {
	if p.file == nil {
		return 0, errNotConnected(BackendCSV)
	}
	if len(records) == 0 {
		return 0, errEmptySet()
	}
	header := p.header
	if header == nil {
		header = recordFields(records[0], p.cfg.Fields)
	}
	for _, rec := range records {
		if f, ok := sameFieldSet(header, rec); !ok {
			return 0, errf(KindValidation, nil, "record field set does not match header (field %q)", f)
		}
	}
	// The snapshot binds only once the whole set has validated; a
	// rejected call must not fix the schema for later ones.
	p.header = header

	st, err := p.file.Stat()
	if err != nil {
		return 0, errf(KindWrite, err, "cannot stat %s", p.cfg.Location)
	}
	w := csv.NewWriter(p.file)
	if st.Size() == 0 {
		if err := w.Write(p.header); err != nil {
			return 0, errf(KindWrite, err, "cannot write header to %s", p.cfg.Location)
		}
	}
	row := make([]string, len(p.header))
	for _, rec := range records {
		for i, f := range p.header {
			row[i] = formatScalar(rec[f])
		}
		if err := w.Write(row); err != nil {
			return 0, errf(KindWrite, err, "cannot write row to %s", p.cfg.Location)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return 0, errf(KindWrite, err, "cannot flush %s", p.cfg.Location)
	}
	return len(records), nil
}

// GetData returns all rows in file order, which for an append-only file
// is insertion order. Values come back as strings; use Rules.Types to
// coerce them.
func (p *csvProvider) GetData(filter *Filter) (RecordSet, error) {
	if p.file == nil {
		return nil, errNotConnected(BackendCSV)
	}
	header, rows, err := p.readAll()
	if err != nil {
		return nil, err
	}
	out := make(RecordSet, 0, len(rows))
	for _, row := range rows {
		rec := make(Record, len(header))
		for i, f := range header {
			if i < len(row) {
				rec[f] = row[i]
			}
		}
		if filter != nil && !filter.matches(rec) {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func (p *csvProvider) TrimData(n int, oldest bool) (int, error) {
	if p.file == nil {
		return 0, errNotConnected(BackendCSV)
	}
	header, rows, err := p.readAll()
	if err != nil {
		return 0, err
	}
	if n > len(rows) {
		n = len(rows)
	}
	if oldest {
		rows = rows[n:]
	} else {
		rows = rows[:len(rows)-n]
	}

	// Rewrite through the open handle so the snapshot stays bound to it.
	if err := p.file.Truncate(0); err != nil {
		return 0, errf(KindWrite, err, "cannot truncate %s", p.cfg.Location)
	}
	if _, err := p.file.Seek(0, io.SeekStart); err != nil {
		return 0, errf(KindWrite, err, "cannot seek %s", p.cfg.Location)
	}
	if header == nil {
		return 0, nil
	}
	w := csv.NewWriter(p.file)
	if err := w.Write(header); err != nil {
		return 0, errf(KindWrite, err, "cannot write header to %s", p.cfg.Location)
	}
	if err := w.WriteAll(rows); err != nil {
		return 0, errf(KindWrite, err, "cannot rewrite %s", p.cfg.Location)
	}
	return len(rows), nil
}

func (p *csvProvider) Describe() (Info, error) {
	if p.file == nil {
		return Info{}, errNotConnected(BackendCSV)
	}
	_, rows, err := p.readAll()
	if err != nil {
		return Info{}, err
	}
	return Info{Backend: BackendCSV, Location: p.cfg.Location, Records: len(rows)}, nil
}

// readAll reads header and rows through a fresh descriptor so the
// append handle's offset is left alone.
func (p *csvProvider) readAll() ([]string, [][]string, error) {
	f, err := os.Open(p.cfg.Location)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, nil
		}
		return nil, nil, errf(KindRead, err, "cannot open %s", p.cfg.Location)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	all, err := r.ReadAll()
	if err != nil {
		return nil, nil, errf(KindRead, err, "cannot read %s", p.cfg.Location)
	}
	if len(all) == 0 {
		return nil, nil, nil
	}
	return all[0], all[1:], nil
}
