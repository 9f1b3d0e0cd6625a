// Package archive reads dictionary archives one entry at a time.
package archive

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/japaniel/lexicard/pkg/lexicon"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
)

// Entry is one file inside an archive.
type Entry struct {
	Name string
	// Size is the uncompressed size in bytes, or -1 when unknown.
	Size int64
	open func() (io.ReadCloser, error)
}

// Open returns the entry's byte stream. Callers must close it before
// requesting the next entry.
func (e *Entry) Open() (io.ReadCloser, error) {
	return e.open()
}

// Archive is a pull-based iterator over archive entries. Next returns
// io.EOF after the last entry.
type Archive interface {
	Len() int
	Next() (*Entry, error)
	Close() error
}

var (
	// An empty zip starts with its end of central directory record.
	zipMagics = [][]byte{[]byte("PK\x03\x04"), []byte("PK\x05\x06"), []byte("PK\x07\x08")}
	gzipMagic = []byte{0x1f, 0x8b}
)

// Open detects the container type of path and opens it. Zip archives and
// gzip files are recognized by their magic bytes; anything else is read as
// a single plain file.
func Open(path string) (Archive, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &lexicon.ArchiveError{Path: path, Err: err}
	}
	head := make([]byte, 4)
	n, err := io.ReadFull(f, head)
	f.Close()
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, &lexicon.ArchiveError{Path: path, Err: err}
	}
	head = head[:n]
	switch {
	case isZip(head):
		return OpenZip(path)
	case bytes.HasPrefix(head, gzipMagic):
		return OpenGzip(path)
	}
	return OpenFile(path)
}

func isZip(head []byte) bool {
	for _, m := range zipMagics {
		if bytes.HasPrefix(head, m) {
			return true
		}
	}
	return false
}

type zipArchive struct {
	path   string
	files  []*zip.File
	next   int
	closer io.Closer
}

// OpenZip opens a zip archive. Directory entries are skipped.
func OpenZip(path string) (Archive, error) {
	rc, err := zip.OpenReader(path)
	if err != nil {
		return nil, &lexicon.ArchiveError{Path: path, Err: err}
	}
	return newZip(path, &rc.Reader, rc), nil
}

// NewZip reads a zip archive from r. closer, when not nil, is closed by
// the archive's Close.
func NewZip(name string, r io.ReaderAt, size int64, closer io.Closer) (Archive, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, &lexicon.ArchiveError{Path: name, Err: err}
	}
	return newZip(name, zr, closer), nil
}

func newZip(path string, zr *zip.Reader, closer io.Closer) *zipArchive {
	a := &zipArchive{path: path, closer: closer}
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		a.files = append(a.files, f)
	}
	return a
}

func (a *zipArchive) Len() int { return len(a.files) }

func (a *zipArchive) Next() (*Entry, error) {
	if a.next >= len(a.files) {
		return nil, io.EOF
	}
	f := a.files[a.next]
	a.next++
	return &Entry{
		Name: f.Name,
		Size: int64(f.UncompressedSize64),
		open: func() (io.ReadCloser, error) {
			rc, err := f.Open()
			if err != nil {
				return nil, &lexicon.ArchiveError{Path: a.path + ":" + f.Name, Err: err}
			}
			return rc, nil
		},
	}, nil
}

func (a *zipArchive) Close() error {
	if a.closer == nil {
		return nil
	}
	err := a.closer.Close()
	a.closer = nil
	return err
}

// singleArchive is an archive with exactly one entry.
type singleArchive struct {
	entry *Entry
	done  bool
	file  *os.File
}

func (a *singleArchive) Len() int { return 1 }

func (a *singleArchive) Next() (*Entry, error) {
	if a.done {
		return nil, io.EOF
	}
	a.done = true
	return a.entry, nil
}

func (a *singleArchive) Close() error {
	if a.file == nil {
		return nil
	}
	err := a.file.Close()
	a.file = nil
	return err
}

// OpenFile opens an uncompressed file as a one-entry archive.
func OpenFile(path string) (Archive, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &lexicon.ArchiveError{Path: path, Err: err}
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, &lexicon.ArchiveError{Path: path, Err: err}
	}
	a := &singleArchive{file: f}
	a.entry = &Entry{
		Name: filepath.Base(path),
		Size: st.Size(),
		open: func() (io.ReadCloser, error) {
			if _, err := f.Seek(0, io.SeekStart); err != nil {
				return nil, &lexicon.ArchiveError{Path: path, Err: err}
			}
			return io.NopCloser(bufio.NewReader(f)), nil
		},
	}
	return a, nil
}

// OpenGzip opens a gzip compressed file as a one-entry archive. The entry
// is named after the gzip header, or the file name without ".gz".
func OpenGzip(path string) (Archive, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &lexicon.ArchiveError{Path: path, Err: err}
	}
	zr, err := gzip.NewReader(f)
	if err != nil {
		f.Close()
		return nil, &lexicon.ArchiveError{Path: path, Err: err}
	}
	name := zr.Name
	zr.Close()
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(path), ".gz")
	}

	a := &singleArchive{file: f}
	a.entry = &Entry{
		Name: name,
		Size: gzipSize(f),
		open: func() (io.ReadCloser, error) {
			if _, err := f.Seek(0, io.SeekStart); err != nil {
				return nil, &lexicon.ArchiveError{Path: path, Err: err}
			}
			zr, err := gzip.NewReader(bufio.NewReader(f))
			if err != nil {
				return nil, &lexicon.ArchiveError{Path: path, Err: err}
			}
			return zr, nil
		},
	}
	return a, nil
}

// gzipSize reads the ISIZE trailer, the uncompressed size modulo 2^32.
func gzipSize(f *os.File) int64 {
	st, err := f.Stat()
	if err != nil || st.Size() < 18 {
		return -1
	}
	var trailer [4]byte
	if _, err := f.ReadAt(trailer[:], st.Size()-4); err != nil {
		return -1
	}
	return int64(binary.LittleEndian.Uint32(trailer[:]))
}
