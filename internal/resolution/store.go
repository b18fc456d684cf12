package resolution

import (
	"bytes"
	"cmp"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"go.uber.org/zap"
)

// defaultFileMode is used when the backing file does not exist yet.
const defaultFileMode os.FileMode = 0o644

// Store owns the resolution collection and its backing file.
//
// Thread-safety: all methods are safe for concurrent use. Mutations are
// serialized by an internal write lock.
type Store struct {
	mu      sync.RWMutex
	path    string
	records []Record
	logger  *zap.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for load and persist events.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a Store for path with an empty collection. Nothing is read
// until Reload is called.
func New(path string, opts ...Option) *Store {
	s := &Store{
		path:    path,
		records: []Record{},
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open creates a Store for path and loads the file.
// Returns a *LoadError if the file is missing or malformed.
func Open(path string, opts ...Option) (*Store, error) {
	s := New(path, opts...)
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Len returns the number of records in the collection.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// All returns a copy of the collection in insertion order.
func (s *Store) All() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneRecords(s.records)
}

// Reload replaces the collection with the current contents of the backing
// file. On failure the previous collection is kept and a *LoadError is
// returned.
func (s *Store) Reload() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := readRecords(s.path)
	if err != nil {
		s.logger.Warn("reload failed; keeping previous collection",
			zap.String("path", s.path),
			zap.Int("kept", len(s.records)),
			zap.Error(err))
		return &LoadError{Path: s.path, Err: err}
	}

	s.records = records
	s.logger.Debug("resolutions loaded", zap.String("path", s.path), zap.Int("count", len(records)))
	return nil
}

// Find returns the first record whose case number equals caseNumber.
// The comparison is exact and case-sensitive.
func (s *Store) Find(caseNumber string) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.indexLocked(caseNumber)
	if i < 0 {
		return Record{}, false
	}
	return s.records[i].Clone(), true
}

// Lookup is Find with the miss reported as ErrNotFound.
func (s *Store) Lookup(caseNumber string) (Record, error) {
	rec, ok := s.Find(caseNumber)
	if !ok {
		return Record{}, fmt.Errorf("case %q: %w", caseNumber, ErrNotFound)
	}
	return rec, nil
}

// Latest returns up to limit records ordered by date, newest first.
//
// Dates compare as strings, which orders YYYY-MM-DD correctly. Missing or
// malformed dates sort as the empty string, after every real date. Records
// with equal sort keys keep their collection order.
func (s *Store) Latest(limit int) []Record {
	if limit <= 0 {
		return []Record{}
	}

	s.mu.RLock()
	sorted := cloneRecords(s.records)
	s.mu.RUnlock()

	slices.SortStableFunc(sorted, func(a, b Record) int {
		return cmp.Compare(dateKey(b.Date), dateKey(a.Date))
	})
	if len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted
}

// Create appends a new record built from d and rewrites the backing file.
//
// Returns *AlreadyExistsError, leaving everything untouched, when the case
// number is taken. Returns the created record together with a *PersistError
// when the write fails; the record stays in memory in that case.
func (s *Store) Create(d Draft) (Record, error) {
	if d.CaseNumber == "" {
		return Record{}, ErrEmptyCaseNumber
	}
	rec := d.Record()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexLocked(rec.CaseNumber) >= 0 {
		return Record{}, &AlreadyExistsError{CaseNumber: rec.CaseNumber}
	}

	s.records = append(s.records, rec)
	s.logger.Info("resolution created",
		zap.String("case_number", rec.CaseNumber),
		zap.Int("count", len(s.records)))

	if err := s.persistLocked(); err != nil {
		return rec.Clone(), err
	}
	return rec.Clone(), nil
}

// Persist writes the whole collection to the backing file, replacing it.
func (s *Store) Persist() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persistLocked()
}

func (s *Store) persistLocked() error {
	data, err := encodeRecords(s.records)
	if err != nil {
		return &PersistError{Path: s.path, Err: err}
	}
	if err := writeFileAtomic(s.path, data); err != nil {
		s.logger.Error("persist failed; memory and disk now differ",
			zap.String("path", s.path),
			zap.Error(err))
		return &PersistError{Path: s.path, Err: err}
	}
	s.logger.Debug("resolutions persisted", zap.String("path", s.path), zap.Int("count", len(s.records)))
	return nil
}

func (s *Store) indexLocked(caseNumber string) int {
	return slices.IndexFunc(s.records, func(r Record) bool {
		return r.CaseNumber == caseNumber
	})
}

// Problem is a field-presence issue found by Validate.
type Problem struct {
	Index      int    `json:"index"`
	CaseNumber string `json:"case_number,omitempty"`
	Message    string `json:"message"`
}

// Validate reports records without a case number and case numbers that
// occur more than once. Nothing else about the records is checked.
func (s *Store) Validate() []Problem {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var problems []Problem
	first := make(map[string]int, len(s.records))
	for i, r := range s.records {
		if !r.Has(KeyCaseNumber) || r.CaseNumber == "" {
			problems = append(problems, Problem{Index: i, Message: "missing caseNumber"})
			continue
		}
		if j, dup := first[r.CaseNumber]; dup {
			problems = append(problems, Problem{
				Index:      i,
				CaseNumber: r.CaseNumber,
				Message:    fmt.Sprintf("duplicate caseNumber (first at index %d)", j),
			})
			continue
		}
		first[r.CaseNumber] = i
	}
	return problems
}

// dateKey returns date if it has the YYYY-MM-DD shape, else "".
func dateKey(date string) string {
	if len(date) != 10 || date[4] != '-' || date[7] != '-' {
		return ""
	}
	for i := 0; i < len(date); i++ {
		if i == 4 || i == 7 {
			continue
		}
		if date[i] < '0' || date[i] > '9' {
			return ""
		}
	}
	return date
}

func cloneRecords(records []Record) []Record {
	out := make([]Record, len(records))
	for i, r := range records {
		out[i] = r.Clone()
	}
	return out
}

func readRecords(path string) ([]Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return decodeRecords(data)
}

func decodeRecords(data []byte) ([]Record, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, errors.New("resolutions file must contain a JSON array")
	}
	var records []Record
	if err := json.Unmarshal(trimmed, &records); err != nil {
		return nil, err
	}
	if records == nil {
		records = []Record{}
	}
	return records, nil
}

func encodeRecords(records []Record) ([]byte, error) {
	if records == nil {
		records = []Record{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(records); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// writeFileAtomic writes data to a temp file next to path and renames it
// over path, keeping the existing file mode.
func writeFileAtomic(path string, data []byte) (err error) {
	mode := defaultFileMode
	if info, statErr := os.Stat(path); statErr == nil {
		mode = info.Mode().Perm()
	} else if !errors.Is(statErr, fs.ErrNotExist) {
		return statErr
	}

	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	tmp, err := os.CreateTemp(dir, "."+base+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err = os.Chmod(tmp.Name(), mode); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
