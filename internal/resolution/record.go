package resolution

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"
)

// JSON keys of the modelled fields, in the order new records are written.
const (
	KeyCaseNumber       = "caseNumber"
	KeyTitle            = "title"
	KeyPreamble         = "preamble"
	KeyType             = "type"
	KeySubmittedBy      = "submittedBy"
	KeyDate             = "date"
	KeySignatories      = "signatories"
	KeyOperativeClauses = "operativeClauses"
	KeyConclusion       = "conclusion"
)

var canonicalKeys = []string{
	KeyCaseNumber,
	KeyTitle,
	KeyPreamble,
	KeyType,
	KeySubmittedBy,
	KeyDate,
	KeySignatories,
	KeyOperativeClauses,
	KeyConclusion,
}

// Record is a single resolution.
//
// Optional string fields are empty when absent. Use Has to tell an absent
// key from an empty one.
type Record struct {
	CaseNumber       string
	Title            string
	Preamble         string
	Type             string
	SubmittedBy      string
	Date             string
	Signatories      []string
	OperativeClauses []string
	Conclusion       string

	// keys is the key order the record was decoded with; nil means canonicalKeys.
	keys []string
	// extra holds raw values for unknown keys, and for known keys whose value
	// did not fit the typed field (null, wrong JSON type).
	extra map[string]json.RawMessage
}

// Has reports whether the record carries the given JSON key.
// Records that were not decoded from JSON carry every modelled key.
func (r Record) Has(key string) bool {
	if r.keys == nil {
		return slices.Contains(canonicalKeys, key)
	}
	return slices.Contains(r.keys, key)
}

// Keys returns the record's JSON keys in output order.
func (r Record) Keys() []string {
	if r.keys == nil {
		return slices.Clone(canonicalKeys)
	}
	return slices.Clone(r.keys)
}

// UnmarshalJSON decodes a resolution object, keeping key order and
// unknown keys for a faithful re-encode.
func (r *Record) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("resolution must be a JSON object, got %s", describeToken(tok))
	}

	out := Record{keys: []string{}}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected token %v in resolution object", tok)
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("decode %q: %w", key, err)
		}

		if !slices.Contains(out.keys, key) {
			out.keys = append(out.keys, key)
		}
		out.assign(key, raw)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}

	*r = out
	return nil
}

// assign stores raw into the typed field for key, or into extra when the
// key is unknown or the value does not fit.
func (r *Record) assign(key string, raw json.RawMessage) {
	if ptr := r.field(key); ptr != nil {
		if !bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
			if err := json.Unmarshal(raw, ptr); err == nil {
				delete(r.extra, key)
				return
			}
		}
		// A repeated key replaces whatever an earlier occurrence set.
		r.clearField(key)
	}
	if r.extra == nil {
		r.extra = make(map[string]json.RawMessage)
	}
	var compacted bytes.Buffer
	if err := json.Compact(&compacted, raw); err != nil {
		r.extra[key] = slices.Clone(raw)
		return
	}
	r.extra[key] = compacted.Bytes()
}

// MarshalJSON encodes the record with its original keys in their original order.
func (r Record) MarshalJSON() ([]byte, error) {
	keys := r.keys
	if keys == nil {
		keys = canonicalKeys
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := marshalUnescaped(key)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')

		vb, err := r.encodeValue(key)
		if err != nil {
			return nil, fmt.Errorf("encode %q: %w", key, err)
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (r Record) encodeValue(key string) ([]byte, error) {
	raw, hasRaw := r.extra[key]
	if hasRaw && r.fieldIsZero(key) {
		return raw, nil
	}
	switch key {
	case KeySignatories:
		return marshalUnescaped(nonNil(r.Signatories))
	case KeyOperativeClauses:
		return marshalUnescaped(nonNil(r.OperativeClauses))
	}
	if ptr := r.field(key); ptr != nil {
		return marshalUnescaped(ptr)
	}
	return []byte("null"), nil
}

// field returns a pointer to the typed field for a modelled key, or nil.
func (r *Record) field(key string) any {
	switch key {
	case KeyCaseNumber:
		return &r.CaseNumber
	case KeyTitle:
		return &r.Title
	case KeyPreamble:
		return &r.Preamble
	case KeyType:
		return &r.Type
	case KeySubmittedBy:
		return &r.SubmittedBy
	case KeyDate:
		return &r.Date
	case KeySignatories:
		return &r.Signatories
	case KeyOperativeClauses:
		return &r.OperativeClauses
	case KeyConclusion:
		return &r.Conclusion
	}
	return nil
}

func (r *Record) clearField(key string) {
	switch p := r.field(key).(type) {
	case *string:
		*p = ""
	case *[]string:
		*p = nil
	}
}

func (r Record) fieldIsZero(key string) bool {
	switch p := r.field(key).(type) {
	case *string:
		return *p == ""
	case *[]string:
		return len(*p) == 0
	}
	return true
}

// Clone returns a deep copy of r.
func (r Record) Clone() Record {
	out := r
	out.Signatories = slices.Clone(r.Signatories)
	out.OperativeClauses = slices.Clone(r.OperativeClauses)
	out.keys = slices.Clone(r.keys)
	if r.extra != nil {
		out.extra = maps.Clone(r.extra)
	}
	return out
}

// Draft holds the fields of a resolution as typed into a create command.
// Signatories and Clauses are comma-delimited lists.
type Draft struct {
	CaseNumber  string
	Title       string
	Preamble    string
	Type        string
	SubmittedBy string
	Date        string
	Signatories string
	Clauses     string
	Conclusion  string
}

// Record converts the draft into a Record, splitting the list fields.
func (d Draft) Record() Record {
	return Record{
		CaseNumber:       d.CaseNumber,
		Title:            d.Title,
		Preamble:         d.Preamble,
		Type:             d.Type,
		SubmittedBy:      d.SubmittedBy,
		Date:             d.Date,
		Signatories:      SplitList(d.Signatories),
		OperativeClauses: SplitList(d.Clauses),
		Conclusion:       d.Conclusion,
	}
}

// SplitList splits a comma-delimited string into trimmed, non-empty elements.
// The result is never nil.
func SplitList(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// marshalUnescaped encodes v without HTML escaping, so non-ASCII and <>&
// are written as-is.
func marshalUnescaped(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func describeToken(tok json.Token) string {
	switch v := tok.(type) {
	case json.Delim:
		return string(v)
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	default:
		return "number"
	}
}
