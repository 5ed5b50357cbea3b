// Package store persists captured requests as one file per request in a
// single directory, and reads them back.
//
// The directory is the only index. Files are created atomically: content is
// written to a hidden temporary file and then hard-linked to its final name,
// so readers never observe a partially written record and an existing record
// is never overwritten. On filesystems without hard links (some FUSE, SMB and
// shared-folder mounts) the record is instead created in place with
// O_EXCL: existing records are still never overwritten, but a reader may see
// a record while it is being written.
package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/gcalmettes/ctfsink/pkg/keycodec"
	"github.com/gcalmettes/ctfsink/pkg/logging"
	"github.com/gcalmettes/ctfsink/pkg/pathguard"
	"github.com/gcalmettes/ctfsink/pkg/record"
	"github.com/gcalmettes/ctfsink/pkg/requestinfo"
)

var (
	// ErrAlreadyExists is returned by Add when a record with the same name
	// was already written, typically a second identical request in the same
	// second.
	ErrAlreadyExists = errors.New("record already exists")
	// ErrNotFound is returned by lookups that address no readable record.
	ErrNotFound = errors.New("record not found")
)

const (
	dirPerm  = 0o755
	filePerm = 0o644

	tempPattern = ".ctfsink-*.tmp"
)

// Marshaler serializes the metadata section of a stored request.
type Marshaler func(v any) ([]byte, error)

// Store is a directory-backed repository of captured requests.
// It is safe for concurrent use; the filesystem provides all coordination.
type Store struct {
	dir     string
	logger  *slog.Logger
	clock   func() time.Time
	marshal Marshaler
	codec   record.Codec
	link    func(oldname, newname string) error
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = logging.OrNop(l) }
}

// WithClock overrides the capture time source.
func WithClock(clock func() time.Time) Option {
	return func(s *Store) { s.clock = clock }
}

// WithMarshaler overrides the metadata serializer.
func WithMarshaler(m Marshaler) Option {
	return func(s *Store) { s.marshal = m }
}

// WithCodec sets the codec, and so the time zone, used for record names.
func WithCodec(c record.Codec) Option {
	return func(s *Store) { s.codec = c }
}

// New returns a store rooted at dir. The directory is created on first write.
func New(dir string, opts ...Option) *Store {
	s := &Store{
		dir:     dir,
		logger:  logging.Nop(),
		clock:   time.Now,
		marshal: yaml.Marshal,
		link:    os.Link,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dir returns the records directory.
func (s *Store) Dir() string {
	return s.dir
}

// AddRequest is the captured request handed to Add.
type AddRequest struct {
	// Method is the HTTP method.
	Method string
	// Target is the full request target (path and query) as received.
	Target string
	// Path is the escaped request path encoded into the record name.
	Path string
	// Info is the metadata snapshot.
	Info requestinfo.Info
	// Body is the request body as text.
	Body string
}

// Add stores one captured request and returns the record it was stored as.
// When the metadata cannot be serialized the request is still stored, with
// a debug rendering of the metadata and record.KindRaw.
func (s *Store) Add(ctx context.Context, req AddRequest) (record.Record, error) {
	if err := ctx.Err(); err != nil {
		return record.Record{}, err
	}

	kind := record.KindStructured
	meta, err := s.marshal(storedMeta{URI: req.Target, Info: req.Info})
	if err != nil {
		s.logger.Warn("metadata serialization failed, storing raw", "error", err)
		kind = record.KindRaw
		meta = rawMeta(req)
	}

	rec, err := record.New(s.codec.In(s.clock()), req.Method, req.Path, kind)
	if err != nil {
		return record.Record{}, err
	}

	body, err := encodeBody(req.Body)
	if err != nil {
		return record.Record{}, fmt.Errorf("encode body: %w", err)
	}

	content := make([]byte, 0, len(meta)+len(body))
	content = append(content, meta...)
	content = append(content, body...)

	if err := s.create(ctx, rec.Name(), content); err != nil {
		return record.Record{}, err
	}
	s.logger.Debug("request stored", "name", rec.Name(), "kind", kind.String(), "bytes", len(content))
	return rec, nil
}

// create writes content to dir/name, failing with ErrAlreadyExists when the
// name is taken.
func (s *Store) create(ctx context.Context, name string, content []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, dirPerm); err != nil {
		return fmt.Errorf("create requests folder: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(s.dir, tempPattern)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", tmpPath, err)
	}
	if err := tmp.Chmod(filePerm); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod %s: %w", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmpPath, err)
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	final := filepath.Join(s.dir, name)
	err = s.link(tmpPath, final)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, fs.ErrExist):
		return fmt.Errorf("%w: %s", ErrAlreadyExists, name)
	}
	s.logger.Debug("hard link failed, writing in place", "name", name, "error", err)
	return writeExclusive(final, content)
}

// writeExclusive creates path, failing when it exists, and writes content.
// A failed write removes the partial file.
func writeExclusive(path string, content []byte) error {
	name := filepath.Base(path)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, filePerm)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%w: %s", ErrAlreadyExists, name)
		}
		return fmt.Errorf("create %s: %w", name, err)
	}
	if _, err := f.Write(content); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return fmt.Errorf("close %s: %w", name, err)
	}
	return nil
}

// All lists every record in the directory, in directory order.
// Directories, hidden files and names that are not record names are skipped.
// A missing directory yields an empty list.
func (s *Store) All(ctx context.Context) ([]record.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []record.Record{}, nil
		}
		return nil, fmt.Errorf("read requests folder: %w", err)
	}

	records := make([]record.Record, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		rec, err := s.codec.Parse(e.Name())
		if err != nil {
			s.logger.Debug("skipping entry", "name", e.Name(), "error", err)
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// Read resolves an opaque key and returns the stored sections.
// Any failure, including forged or malicious keys, yields NotFound.
func (s *Store) Read(ctx context.Context, key string) Detail {
	name, err := keycodec.Reveal(key)
	if err != nil {
		s.logger.Debug("rejecting key", "error", err)
		return NotFound()
	}
	return s.ReadName(ctx, name)
}

// ReadName is Read addressed by filename instead of key.
func (s *Store) ReadName(ctx context.Context, name string) Detail {
	d, err := s.readName(ctx, name)
	if err != nil {
		s.logger.Debug("record not readable", "name", name, "error", err)
		return NotFound()
	}
	return d
}

func (s *Store) readName(ctx context.Context, name string) (Detail, error) {
	if err := ctx.Err(); err != nil {
		return Detail{}, err
	}
	path, err := pathguard.Join(s.dir, name)
	if err != nil {
		return Detail{}, err
	}
	rec, err := s.codec.Parse(name)
	if err != nil {
		return Detail{}, err
	}

	fi, err := os.Stat(path)
	if err != nil {
		return Detail{}, err
	}
	if !fi.Mode().IsRegular() {
		return Detail{}, fmt.Errorf("%w: %s is not a regular file", ErrNotFound, name)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return Detail{}, err
	}
	return decodeDetail(rec, content)
}
