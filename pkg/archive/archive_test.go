package archive

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/japaniel/lexicard/pkg/lexicon"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
)

func writeZip(t *testing.T, files map[string]string, order []string) string {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range order {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
		if _, err := io.WriteString(w, files[name]); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	path := filepath.Join(t.TempDir(), "dict.zip")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write zip: %v", err)
	}
	return path
}

func readAll(t *testing.T, e *Entry) string {
	t.Helper()
	rc, err := e.Open()
	if err != nil {
		t.Fatalf("open %s: %v", e.Name, err)
	}
	defer rc.Close()
	b, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read %s: %v", e.Name, err)
	}
	return string(b)
}

func TestOpenZip(t *testing.T) {
	files := map[string]string{"index.json": `{"title":"x"}`, "term_bank_1.json": `[]`}
	path := writeZip(t, files, []string{"index.json", "term_bank_1.json"})

	a, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer a.Close()
	if a.Len() != 2 {
		t.Fatalf("Len = %d, want 2", a.Len())
	}
	var names []string
	for {
		e, err := a.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		names = append(names, e.Name)
		if got := readAll(t, e); got != files[e.Name] {
			t.Errorf("%s = %q, want %q", e.Name, got, files[e.Name])
		}
		if e.Size != int64(len(files[e.Name])) {
			t.Errorf("%s size = %d", e.Name, e.Size)
		}
	}
	if diff := cmp.Diff([]string{"index.json", "term_bank_1.json"}, names); diff != "" {
		t.Errorf("names mismatch (-want +got):\n%s", diff)
	}
}

func TestOpenEmptyZip(t *testing.T) {
	a, err := Open(writeZip(t, nil, nil))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer a.Close()
	if a.Len() != 0 {
		t.Fatalf("Len = %d; want 0", a.Len())
	}
	if _, err := a.Next(); !errors.Is(err, io.EOF) {
		t.Fatalf("Next = %v; want io.EOF", err)
	}
}

func TestOpenGzip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cedict_1_0_ts_utf-8_mdbg.txt.gz")
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	io.WriteString(zw, "# comment\n")
	zw.Close()
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	a, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer a.Close()
	e, err := a.Next()
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if e.Name != "cedict_1_0_ts_utf-8_mdbg.txt" {
		t.Errorf("name = %q", e.Name)
	}
	if e.Size != int64(len("# comment\n")) {
		t.Errorf("size = %d", e.Size)
	}
	if got := readAll(t, e); got != "# comment\n" {
		t.Errorf("content = %q", got)
	}
	if _, err := a.Next(); !errors.Is(err, io.EOF) {
		t.Errorf("expected EOF after single entry, got %v", err)
	}
}

func TestOpenPlainFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "de-en.txt")
	if err := os.WriteFile(path, []byte("Haus\thouse\tnoun\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	a, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer a.Close()
	e, err := a.Next()
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if e.Name != "de-en.txt" || e.Size != 16 {
		t.Errorf("entry = %s/%d", e.Name, e.Size)
	}
}

func TestOpenMissing(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing.zip"))
	var ae *lexicon.ArchiveError
	if !errors.As(err, &ae) {
		t.Fatalf("expected ArchiveError, got %v", err)
	}
}

func TestOpenCorruptZip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.zip")
	if err := os.WriteFile(path, []byte("PK\x03\x04garbage"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, err := Open(path)
	var ae *lexicon.ArchiveError
	if !errors.As(err, &ae) {
		t.Fatalf("expected ArchiveError, got %v", err)
	}
}

func collectLines(t *testing.T, chunks [][]byte) []string {
	t.Helper()
	var sp LineSplitter
	var out []string
	emit := func(l string) error {
		out = append(out, l)
		return nil
	}
	for _, c := range chunks {
		if err := sp.Feed(c, emit); err != nil {
			t.Fatalf("feed: %v", err)
		}
	}
	if err := sp.Flush(emit); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if err := sp.Flush(emit); err != nil {
		t.Fatalf("second flush: %v", err)
	}
	return out
}

func TestLineSplitterChunkBoundaryInvariance(t *testing.T) {
	src := []byte("# header\r\nHaus\thouse\tnoun\n\nüber\tover\tprep\nletzte Zeile ohne Umbruch")
	want := collectLines(t, [][]byte{src})
	if len(want) != 5 || want[0] != "# header" || want[4] != "letzte Zeile ohne Umbruch" {
		t.Fatalf("unexpected whole-buffer lines %q", want)
	}
	for size := 1; size <= len(src); size++ {
		var chunks [][]byte
		for i := 0; i < len(src); i += size {
			chunks = append(chunks, src[i:min(i+size, len(src))])
		}
		if diff := cmp.Diff(want, collectLines(t, chunks)); diff != "" {
			t.Fatalf("chunk size %d mismatch (-want +got):\n%s", size, diff)
		}
	}
}

func TestReadLines(t *testing.T) {
	var got []string
	var nums []int
	err := ReadLines(strings.NewReader("a\nb\r\nc"), 2, func(n int, l string) error {
		nums = append(nums, n)
		got = append(got, l)
		return nil
	})
	if err != nil {
		t.Fatalf("ReadLines: %v", err)
	}
	if diff := cmp.Diff([]string{"a", "b", "c"}, got); diff != "" {
		t.Errorf("lines mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{1, 2, 3}, nums); diff != "" {
		t.Errorf("numbers mismatch (-want +got):\n%s", diff)
	}
}

func TestReadLinesStopsOnError(t *testing.T) {
	stop := errors.New("stop")
	calls := 0
	err := ReadLines(strings.NewReader("a\nb\nc\n"), 0, func(int, string) error {
		calls++
		return stop
	})
	if !errors.Is(err, stop) || calls != 1 {
		t.Fatalf("err = %v, calls = %d", err, calls)
	}
}

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/dict.zip" {
			http.NotFound(w, r)
			return
		}
		io.WriteString(w, "payload")
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "dict.zip")
	if err := Fetch(context.Background(), srv.URL+"/dict.zip", dest); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	b, err := os.ReadFile(dest)
	if err != nil || string(b) != "payload" {
		t.Fatalf("content = %q, %v", b, err)
	}

	// An existing file is left alone.
	if err := Fetch(context.Background(), srv.URL+"/missing", dest); err != nil {
		t.Fatalf("fetch existing: %v", err)
	}

	err = Fetch(context.Background(), srv.URL+"/missing", filepath.Join(t.TempDir(), "x.zip"))
	if err == nil {
		t.Fatal("expected error for 404")
	}
}
