package cedict

import (
	"archive/zip"
	"bytes"
	"context"
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

const sample = `# CC-CEDICT
# License: Creative Commons Attribution-ShareAlike 4.0 International License
中國 中国 [Zhong1 guo2] /China/Middle Kingdom/
漢字 汉字 [han4 zi4] /Chinese character/CL:個|个[ge4]/
`

func TestParseLine(t *testing.T) {
	got, ok := ParseLine("中國 中国 [Zhong1 guo2] /China/Middle Kingdom/")
	require.True(t, ok)
	want := lexicon.Entry{
		Head:          "中國",
		Variant:       "中国",
		Pronunciation: "Zhong1 guo2",
		Meanings:      []string{"China", "Middle Kingdom"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ParseLine mismatch (-want +got):\n%s", diff)
	}

	for _, bad := range []string{
		"中國 [Zhong1 guo2] /China/",
		"中國 中国 Zhong1 guo2 /China/",
		"中國 中国 [Zhong1 guo2] China",
		"中國 中国 [Zhong1 guo2] //",
	} {
		if _, ok := ParseLine(bad); ok {
			t.Errorf("ParseLine(%q) accepted a malformed line", bad)
		}
	}
}

func setup(t *testing.T, content string) (*memstore.Store, lexicon.Dictionary, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cedict_ts.u8")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	st := memstore.New()
	d, err := st.CreateDictionary(context.Background(), lexicon.Dictionary{ID: "cedict", Format: lexicon.FormatCEDict})
	require.NoError(t, err)
	return st, d, path
}

func TestImportAndLookup(t *testing.T) {
	st, d, path := setup(t, sample)
	f := New()

	_, res, err := f.Import(context.Background(), ingest.NewPipeline(st), d, path)
	require.NoError(t, err)
	assert.Equal(t, 2, res.EntryCount)

	got, err := f.Lookup(context.Background(), st, lookup.DefaultOptions(), []int64{d.Key}, "我学汉字")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 2, got[0].TextCharacterIndex)
	tok := got[0].TranslatedTokens[0]
	assert.Equal(t, "汉字", tok.MatchedTokenText)
	assert.Equal(t, []string{"Chinese character", "CL:個|个[ge4]"}, tok.Candidates[0].Entry.Meanings)
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
		[2]string{"README.txt", "CC-CEDICT download\nUnpack and import cedict_ts.u8.\n"},
		[2]string{"cedict_ts.u8", sample},
	)
	st := memstore.New()
	d, err := st.CreateDictionary(context.Background(), lexicon.Dictionary{ID: "cedict", Format: lexicon.FormatCEDict})
	require.NoError(t, err)

	_, res, err := New().Import(context.Background(), ingest.NewPipeline(st), d, path)
	require.NoError(t, err)
	assert.Equal(t, 2, res.EntryCount)
}

func TestImportMalformedLineWritesNothing(t *testing.T) {
	st, d, path := setup(t, sample+"not a cedict line\n")

	_, _, err := New().Import(context.Background(), ingest.NewPipeline(st), d, path)
	var pe *lexicon.ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 5, pe.Line)

	got, err := st.QueryEntries(context.Background(), store.TableCEDict, store.IndexHead, []string{"中國", "漢字"}, []int64{d.Key})
	require.NoError(t, err)
	assert.Empty(t, got)
}
