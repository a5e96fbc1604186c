// File: internal/library/library.go
// Package library persists stimulus specs as content-addressed JSON records
// in a flat directory and reconstructs them tolerantly.
package library

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/stimulus-cli/internal/stimulus"
)

var (
	// ErrNotFound is returned by Load when no record matches the address.
	ErrNotFound = errors.New("stimulus record not found")
	// ErrAmbiguous is returned by Load when an address prefix matches more
	// than one record.
	ErrAmbiguous = errors.New("ambiguous stimulus address")
	// ErrMalformed is returned by Load when the record is not a JSON object.
	ErrMalformed = errors.New("malformed stimulus record")
	// ErrUnknownType is returned by Load when no decoder handles the record.
	ErrUnknownType = errors.New("unknown stimulus type")
)

// DiagnosticKind classifies a record skipped by LoadAll.
type DiagnosticKind string

const (
	MalformedRecord DiagnosticKind = "malformed_record"
	UnknownType     DiagnosticKind = "unknown_type"
	Unreadable      DiagnosticKind = "unreadable"
)

// Diagnostic describes a skipped record.
type Diagnostic struct {
	Path   string
	Kind   DiagnosticKind
	Detail string
}

// Entry is one reconstructed spec.
type Entry struct {
	Address Address
	Path    string
	Spec    stimulus.Spec
	// Issues lists the fields that fell back to their defaults.
	Issues []FieldIssue
}

// LoadResult is the outcome of LoadAll. Entries are in directory order.
type LoadResult struct {
	Entries []Entry
	Skipped []Diagnostic
}

// Library is a directory of spec records.
type Library struct {
	dir      string
	registry *Registry
	logger   *zap.Logger
}

// Option configures a Library.
type Option func(*Library)

// WithRegistry replaces the default decoder registry.
func WithRegistry(r *Registry) Option {
	return func(l *Library) {
		if r != nil {
			l.registry = r
		}
	}
}

// Open returns the library rooted at dir, creating the directory if needed.
func Open(dir string, logger *zap.Logger, opts ...Option) (*Library, error) {
	if dir == "" {
		return nil, errors.New("library directory is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create library directory %s: %w", dir, err)
	}
	l := &Library{
		dir:      dir,
		registry: DefaultRegistry(),
		logger:   logger.Named("library"),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Dir returns the library directory.
func (l *Library) Dir() string { return l.dir }

// Save writes spec under its content address. The write is skipped when a
// record with the same address already exists, in which case created is false.
func (l *Library) Save(spec stimulus.Spec) (addr Address, created bool, err error) {
	data, err := Encode(spec)
	if err != nil {
		return "", false, err
	}
	addr = AddressOf(data)
	path := filepath.Join(l.dir, addr.FileName())

	if _, err := os.Stat(path); err == nil {
		l.logger.Debug("Record already present", zap.String("address", addr.String()))
		return addr, false, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return "", false, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	tmp, err := os.CreateTemp(l.dir, ".tmp-*")
	if err != nil {
		return "", false, fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return "", false, fmt.Errorf("failed to write record: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return "", false, fmt.Errorf("failed to sync record: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", false, fmt.Errorf("failed to close record: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", false, fmt.Errorf("failed to move record into place: %w", err)
	}

	l.logger.Info("Record saved",
		zap.String("address", addr.String()),
		zap.String("type", string(spec.Kind())))
	return addr, true, nil
}

// recordNames lists the regular, non-hidden files in the directory.
func (l *Library) recordNames() ([]string, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list library directory %s: %w", l.dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".") || !e.Type().IsRegular() {
			continue
		}
		names = append(names, e.Name())
	}
	return names, nil
}

// LoadAll reconstructs every record in the directory. Records that cannot be
// decoded are skipped and reported in the result. The only error is failure to
// list the directory.
func (l *Library) LoadAll() (*LoadResult, error) {
	names, err := l.recordNames()
	if err != nil {
		return nil, err
	}

	result := &LoadResult{}
	for _, name := range names {
		path := filepath.Join(l.dir, name)
		entry, diag := l.loadFile(path)
		if diag != nil {
			l.logger.Warn("Skipping record",
				zap.String("path", diag.Path),
				zap.String("kind", string(diag.Kind)),
				zap.String("detail", diag.Detail))
			result.Skipped = append(result.Skipped, *diag)
			continue
		}
		result.Entries = append(result.Entries, *entry)
	}

	l.logger.Debug("Library loaded",
		zap.Int("entries", len(result.Entries)),
		zap.Int("skipped", len(result.Skipped)))
	return result, nil
}

// Load reconstructs the record whose address is ref or starts with ref.
func (l *Library) Load(ref string) (*Entry, error) {
	ref = strings.TrimSuffix(strings.TrimSpace(ref), ".json")
	if ref == "" {
		return nil, fmt.Errorf("%w: empty address", ErrNotFound)
	}
	names, err := l.recordNames()
	if err != nil {
		return nil, err
	}

	var matches []string
	for _, name := range names {
		stem := strings.TrimSuffix(name, filepath.Ext(name))
		if stem == ref {
			matches = []string{name}
			break
		}
		if strings.HasPrefix(stem, ref) {
			matches = append(matches, name)
		}
	}
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, ref)
	case 1:
	default:
		return nil, fmt.Errorf("%w: %s matches %d records", ErrAmbiguous, ref, len(matches))
	}

	entry, diag := l.loadFile(filepath.Join(l.dir, matches[0]))
	if diag != nil {
		switch diag.Kind {
		case MalformedRecord:
			return nil, fmt.Errorf("%w: %s", ErrMalformed, diag.Path)
		case UnknownType:
			return nil, fmt.Errorf("%w: %s", ErrUnknownType, diag.Detail)
		default:
			return nil, fmt.Errorf("failed to read %s: %s", diag.Path, diag.Detail)
		}
	}
	return entry, nil
}

func (l *Library) loadFile(path string) (*Entry, *Diagnostic) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &Diagnostic{Path: path, Kind: Unreadable, Detail: err.Error()}
	}
	spec, issues, diag := l.Decode(data)
	if diag != nil {
		diag.Path = path
		return nil, diag
	}

	name := filepath.Base(path)
	addr := Address(strings.TrimSuffix(name, filepath.Ext(name)))
	for _, issue := range issues {
		l.logger.Debug("Field defaulted",
			zap.String("address", addr.String()),
			zap.String("field", issue.Field),
			zap.String("reason", issue.Reason))
	}
	return &Entry{Address: addr, Path: path, Spec: spec, Issues: issues}, nil
}

// Decode reconstructs a spec from record bytes. A non-nil Diagnostic means the
// record was rejected; its Path is left empty.
func (l *Library) Decode(data []byte) (stimulus.Spec, []FieldIssue, *Diagnostic) {
	if !canonical.Valid(data) {
		return nil, nil, &Diagnostic{Kind: MalformedRecord, Detail: "not valid JSON"}
	}
	root := canonical.Get(data)
	if root.ValueType() != jsoniter.ObjectValue {
		return nil, nil, &Diagnostic{Kind: MalformedRecord, Detail: "not a JSON object"}
	}

	typ := root.Get(stimulus.FieldType)
	if typ.ValueType() != jsoniter.StringValue {
		return nil, nil, &Diagnostic{Kind: UnknownType, Detail: "missing type discriminator"}
	}
	kind := stimulus.Kind(typ.ToString())
	dec, ok := l.registry.Lookup(kind)
	if !ok {
		return nil, nil, &Diagnostic{Kind: UnknownType, Detail: fmt.Sprintf("no decoder for type %q", kind)}
	}

	f := newFields(root)
	spec := dec(f)
	return spec, f.Issues(), nil
}
