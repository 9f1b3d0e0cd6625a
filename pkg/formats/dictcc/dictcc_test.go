package dictcc

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/japaniel/lexicard/pkg/ingest"
	"github.com/japaniel/lexicard/pkg/lexicon"
	"github.com/japaniel/lexicard/pkg/lookup"
	"github.com/japaniel/lexicard/pkg/store"
	"github.com/japaniel/lexicard/pkg/store/memstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		line string
		want lexicon.Entry
		ok   bool
	}{
		{
			line: "Haus\thouse\tnoun",
			want: lexicon.Entry{Head: "Haus", Meanings: []string{"house"}, Tags: "noun", TokenCombos: []string{"hau|1"}, SearchTokensCount: 1},
			ok:   true,
		},
		{
			line: "ankommen\tto arrive\tverb\t[travel]",
			want: lexicon.Entry{
				Head:              "ankommen",
				Meanings:          []string{"to arrive"},
				Tags:              "verb [travel]",
				TokenCombos:       []string{"komm|1", "an komm|2"},
				SearchTokensCount: 1,
			},
			ok: true,
		},
		{
			line: "etw. [Akk.] aufgeben\tto give sth. up\t\t",
			want: lexicon.Entry{
				Head:              "etw. [Akk.] aufgeben",
				Meanings:          []string{"to give sth. up"},
				TokenCombos:       []string{"geb|1", "auf geb|2"},
				SearchTokensCount: 1,
			},
			ok: true,
		},
		{line: "only a head", ok: false},
		{line: "head\tmeaning", ok: false},
		{line: "a\tb\tc\td\te", ok: false},
	}
	for _, tt := range tests {
		got, ok := ParseLine(tt.line)
		if ok != tt.ok {
			t.Errorf("ParseLine(%q) ok = %v; want %v", tt.line, ok, tt.ok)
			continue
		}
		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Errorf("ParseLine(%q) mismatch (-want +got):\n%s", tt.line, diff)
		}
	}
}

func setup(t *testing.T, content string) (*memstore.Store, lexicon.Dictionary, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "de-en.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	st := memstore.New()
	d, err := st.CreateDictionary(context.Background(), lexicon.Dictionary{ID: "de-en", Format: lexicon.FormatDictCC})
	require.NoError(t, err)
	return st, d, path
}

func TestImport(t *testing.T) {
	st, d, path := setup(t, "# dict.cc export\n\nankommen\tto arrive\tverb\nHaus\thouse\tnoun\t[archi.]\n")

	var progress []float64
	p := ingest.NewPipeline(st)
	p.OnProgress = func(f float64) error {
		progress = append(progress, f)
		return nil
	}
	_, res, err := New().Import(context.Background(), p, d, path)
	require.NoError(t, err)
	assert.Equal(t, 2, res.EntryCount)
	require.NotEmpty(t, progress)
	assert.Equal(t, 1.0, progress[len(progress)-1])

	got, err := st.QueryEntries(context.Background(), store.TableDictCC, store.IndexHead, []string{"Haus"}, []int64{d.Key})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "noun [archi.]", got[0].Tags)
	assert.Equal(t, d.Key, got[0].DictionaryKey)
}

func TestImportMalformedLine(t *testing.T) {
	st, d, path := setup(t, "Haus\thouse\tnoun\n# fine\nbroken line\n")

	_, _, err := New().Import(context.Background(), ingest.NewPipeline(st), d, path)
	var pe *lexicon.ParseError
	require.True(t, errors.As(err, &pe), "got %v", err)
	assert.Equal(t, 3, pe.Line)
	assert.Equal(t, "de-en.txt", pe.File)

	got, err := st.QueryEntries(context.Background(), store.TableDictCC, store.IndexHead, []string{"Haus"}, []int64{d.Key})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func writeZip(t *testing.T, files ...[2]string) string {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, f := range files {
		w, err := zw.Create(f[0])
		require.NoError(t, err)
		_, err = io.WriteString(w, f[1])
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	path := filepath.Join(t.TempDir(), "dict.zip")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

func TestImportSkipsReadme(t *testing.T) {
	path := writeZip(t,
		[2]string{"README.txt", "This is the dict.cc export.\nSee the website for terms of use.\n"},
		[2]string{"de-en.txt", "# dict.cc\nHaus\thouse\tnoun\nankommen\tto arrive\tverb\n"},
	)
	st := memstore.New()
	d, err := st.CreateDictionary(context.Background(), lexicon.Dictionary{ID: "de-en", Format: lexicon.FormatDictCC})
	require.NoError(t, err)

	_, res, err := New().Import(context.Background(), ingest.NewPipeline(st), d, path)
	require.NoError(t, err)
	assert.Equal(t, 2, res.EntryCount)
}

func TestImportNoTextFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.md")
	require.NoError(t, os.WriteFile(path, []byte("nothing"), 0o644))
	st := memstore.New()

	_, _, err := New().Import(context.Background(), ingest.NewPipeline(st), lexicon.Dictionary{Key: 1}, path)
	var ee *lexicon.EmptyDictionaryError
	require.ErrorAs(t, err, &ee)
}

func TestLookup(t *testing.T) {
	st, d, path := setup(t, "ankommen\tto arrive\tverb\n")
	f := New()
	_, _, err := f.Import(context.Background(), ingest.NewPipeline(st), d, path)
	require.NoError(t, err)

	got, err := f.Lookup(context.Background(), st, lookup.DefaultOptions(), []int64{d.Key}, "Wann kommt der Zug an?")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "kommt an", got[0].TranslatedTokens[0].MatchedTokenText)
}
