package store

import (
	"strconv"
	"strings"
)

// FieldType names a declared scalar type for coercion.
type FieldType string

const (
	FieldString FieldType = "string"
	FieldInt    FieldType = "int"
	FieldFloat  FieldType = "float"
	FieldBool   FieldType = "bool"
)

// Rules configures the Processor. The zero value is the identity
// transform.
type Rules struct {
	// Types maps field names to the type their values are coerced to,
	// both before write and after read. CSV hands every value back as a
	// string and sqlite hands booleans back as 0/1; Types is how callers
	// get their types back.
	Types map[string]FieldType

	// Defaults fills missing fields before write.
	Defaults map[string]any

	// DropUnknown removes fields not declared in Config.Fields, Types,
	// or Defaults.
	DropUnknown bool
}

// Processor is the optional normalization stage between Store and
// provider. It never mutates its input; records are copied.
type Processor struct {
	rules    Rules
	declared []string
}

func newProcessor(rules *Rules, declared []string) *Processor {
	if rules == nil {
		return nil
	}
	return &Processor{rules: *rules, declared: declared}
}

// Normalize prepares records for writing: drop unknown fields, fill
// defaults, coerce declared types.
func (p *Processor) Normalize(in RecordSet) (RecordSet, error) {
	out := make(RecordSet, 0, len(in))
	for _, rec := range in {
		cp := p.copyKnown(rec)
		for f, v := range p.rules.Defaults {
			if _, ok := cp[f]; !ok {
				cp[f] = v
			}
		}
		if err := p.coerceRecord(cp); err != nil {
			return nil, err
		}
		out = append(out, cp)
	}
	return out, nil
}

// Denormalize post-processes records read from a backend: drop unknown
// fields and coerce declared types. Defaults are not filled on the way
// out; a backend that stored a record without a field hands it back
// without that field.
func (p *Processor) Denormalize(in RecordSet) (RecordSet, error) {
	out := make(RecordSet, 0, len(in))
	for _, rec := range in {
		cp := p.copyKnown(rec)
		if err := p.coerceRecord(cp); err != nil {
			return nil, err
		}
		out = append(out, cp)
	}
	return out, nil
}

func (p *Processor) copyKnown(rec Record) Record {
	cp := make(Record, len(rec))
	for f, v := range rec {
		if p.rules.DropUnknown && !p.known(f) {
			continue
		}
		cp[f] = v
	}
	return cp
}

func (p *Processor) known(field string) bool {
	for _, f := range p.declared {
		if f == field {
			return true
		}
	}
	if _, ok := p.rules.Types[field]; ok {
		return true
	}
	_, ok := p.rules.Defaults[field]
	return ok
}

func (p *Processor) coerceRecord(rec Record) error {
	for f, t := range p.rules.Types {
		v, ok := rec[f]
		if !ok || v == nil {
			continue
		}
		cv, err := coerce(v, t)
		if err != nil {
			return errf(KindValidation, err, "field %q: cannot coerce %v to %s", f, v, t)
		}
		rec[f] = cv
	}
	return nil
}

// coerce converts a scalar to the declared type. Numeric types land on
// int64/float64 to match what the sqlite driver hands back.
func coerce(v any, t FieldType) (any, error) {
	switch t {
	case FieldString:
		return formatScalar(v), nil
	case FieldInt:
		switch x := v.(type) {
		case int64:
			return x, nil
		case int:
			return int64(x), nil
		case float64:
			return int64(x), nil
		case bool:
			if x {
				return int64(1), nil
			}
			return int64(0), nil
		case string:
			return strconv.ParseInt(strings.TrimSpace(x), 10, 64)
		}
	case FieldFloat:
		switch x := v.(type) {
		case float64:
			return x, nil
		case int64:
			return float64(x), nil
		case int:
			return float64(x), nil
		case string:
			return strconv.ParseFloat(strings.TrimSpace(x), 64)
		}
	case FieldBool:
		switch x := v.(type) {
		case bool:
			return x, nil
		case int64:
			return x != 0, nil
		case int:
			return x != 0, nil
		case float64:
			return x != 0, nil
		case string:
			return strconv.ParseBool(strings.TrimSpace(x))
		}
	}
	return nil, errf(KindValidation, nil, "unsupported coercion from %T", v)
}
