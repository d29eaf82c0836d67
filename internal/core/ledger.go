package core

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Bucket is one category of a ledger with its records in insertion order.
type Bucket struct {
	Category string
	Records  []Record
}

// Ledger maps category names to records while remembering the order in which
// categories were created. The zero value is an empty ledger.
type Ledger struct {
	buckets []Bucket
}

// NewLedger builds a ledger from buckets, keeping their order.
func NewLedger(buckets ...Bucket) Ledger {
	l := Ledger{}
	for _, b := range buckets {
		l.Ensure(b.Category)
		i := l.index(b.Category)
		l.buckets[i].Records = append(l.buckets[i].Records, b.Records...)
	}
	return l
}

func (l *Ledger) index(category string) int {
	for i := range l.buckets {
		if l.buckets[i].Category == category {
			return i
		}
	}
	return -1
}

// Has reports whether the category exists, even when it holds no records.
func (l *Ledger) Has(category string) bool {
	return l.index(category) >= 0
}

// Ensure creates an empty category if it is missing and reports whether it did.
func (l *Ledger) Ensure(category string) bool {
	if l.Has(category) {
		return false
	}
	l.buckets = append(l.buckets, Bucket{Category: category})
	return true
}

// Append adds r at the end of its category. The category must already exist.
func (l *Ledger) Append(r Record) error {
	i := l.index(r.Category)
	if i < 0 {
		return fmt.Errorf("%w: %q", ErrCategoryNotFound, r.Category)
	}
	l.buckets[i].Records = append(l.buckets[i].Records, r)
	return nil
}

// Remove deletes the referenced record. A category left without records is
// removed as well. The remaining records keep their order.
func (l *Ledger) Remove(ref RecordRef) (Record, error) {
	i := l.index(ref.Category)
	if i < 0 {
		return Record{}, fmt.Errorf("%w: %q", ErrCategoryNotFound, ref.Category)
	}
	records := l.buckets[i].Records
	for j := range records {
		if records[j].ID != ref.ID {
			continue
		}
		removed := records[j]
		rest := make([]Record, 0, len(records)-1)
		rest = append(rest, records[:j]...)
		rest = append(rest, records[j+1:]...)
		if len(rest) == 0 {
			l.buckets = append(l.buckets[:i:i], l.buckets[i+1:]...)
		} else {
			l.buckets[i].Records = rest
		}
		return removed, nil
	}
	return Record{}, fmt.Errorf("%w: %s in %q", ErrRecordNotFound, ref.ID, ref.Category)
}

// Categories returns category names in creation order.
func (l *Ledger) Categories() []string {
	out := make([]string, len(l.buckets))
	for i, b := range l.buckets {
		out[i] = b.Category
	}
	return out
}

// Records returns a copy of the records of one category.
func (l *Ledger) Records(category string) []Record {
	i := l.index(category)
	if i < 0 {
		return nil
	}
	return append([]Record(nil), l.buckets[i].Records...)
}

// Buckets returns a copy of all buckets.
func (l *Ledger) Buckets() []Bucket {
	return l.Clone().buckets
}

// All flattens the ledger: categories in creation order, records in insertion order.
func (l *Ledger) All() []Record {
	out := make([]Record, 0, l.Len())
	for _, b := range l.buckets {
		out = append(out, b.Records...)
	}
	return out
}

// Len is the total number of records across categories.
func (l *Ledger) Len() int {
	n := 0
	for _, b := range l.buckets {
		n += len(b.Records)
	}
	return n
}

// Clone returns a deep copy.
func (l Ledger) Clone() Ledger {
	if l.buckets == nil {
		return Ledger{}
	}
	out := make([]Bucket, len(l.buckets))
	for i, b := range l.buckets {
		out[i] = Bucket{Category: b.Category, Records: append([]Record(nil), b.Records...)}
	}
	return Ledger{buckets: out}
}

// AssignMissingIDs gives every record without an identifier a new one and
// returns how many were assigned. Datasets written before records carried
// identifiers are upgraded this way on load.
func (l *Ledger) AssignMissingIDs() int {
	n := 0
	for i := range l.buckets {
		for j := range l.buckets[i].Records {
			if l.buckets[i].Records[j].ID == "" {
				l.buckets[i].Records[j].ID = NewRecordID()
				n++
			}
		}
	}
	return n
}

// MarshalJSON writes the ledger as an object whose keys keep category order.
func (l Ledger) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, b := range l.buckets {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(b.Category)
		if err != nil {
			return nil, err
		}
		records := b.Records
		if records == nil {
			records = []Record{}
		}
		val, err := json.Marshal(records)
		if err != nil {
			return nil, fmt.Errorf("ledger category %q: %w", b.Category, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a category object, preserving key order.
func (l *Ledger) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*l = Ledger{}
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("ledger must be a JSON object")
	}
	var out Ledger
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		category, ok := tok.(string)
		if !ok {
			return fmt.Errorf("ledger key must be a string")
		}
		var records []Record
		if err := dec.Decode(&records); err != nil {
			return fmt.Errorf("ledger category %q: %w", category, err)
		}
		out.Ensure(category)
		i := out.index(category)
		out.buckets[i].Records = append(out.buckets[i].Records, records...)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*l = out
	return nil
}
