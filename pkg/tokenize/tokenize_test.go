package tokenize

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestCombinations(t *testing.T) {
	got := Combinations([]string{"a", "b", "c", "d", "e"})
	if len(got) != 16 {
		t.Fatalf("expected 16 combinations, got %d", len(got))
	}
	for i, c := range got {
		if c[0] != "a" {
			t.Errorf("combination %d does not start with a: %v", i, c)
		}
		if i > 0 && len(c) > len(got[i-1]) {
			t.Errorf("combination %d longer than previous: %v after %v", i, c, got[i-1])
		}
	}
	if diff := cmp.Diff([]string{"a", "b", "c", "d", "e"}, got[0]); diff != "" {
		t.Errorf("first combination mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"a"}, got[len(got)-1]); diff != "" {
		t.Errorf("last combination mismatch (-want +got):\n%s", diff)
	}
}

func TestCombinationsSmall(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want [][]string
	}{
		{name: "empty", in: nil, want: nil},
		{name: "single", in: []string{"x"}, want: [][]string{{"x"}}},
		{
			name: "three",
			in:   []string{"a", "b", "c"},
			want: [][]string{{"a", "b", "c"}, {"a", "b"}, {"a", "c"}, {"a"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, Combinations(tt.in)); diff != "" {
				t.Errorf("Combinations(%v) mismatch (-want +got):\n%s", tt.in, diff)
			}
		})
	}
}

func TestSplitSubstrings(t *testing.T) {
	s := SplitSubstrings("日本語", 8)
	want := map[int][]string{
		0: {"日本語", "日本", "日"},
		1: {"本語", "本"},
		2: {"語"},
	}
	if diff := cmp.Diff(want, s.ByPosition); diff != "" {
		t.Errorf("ByPosition mismatch (-want +got):\n%s", diff)
	}
	if len(s.Distinct) != 6 {
		t.Errorf("expected 6 distinct candidates, got %d: %v", len(s.Distinct), s.Distinct)
	}
	if diff := cmp.Diff([]int{0, 1, 2}, s.Positions()); diff != "" {
		t.Errorf("Positions mismatch (-want +got):\n%s", diff)
	}
}

func TestSplitSubstringsSegments(t *testing.T) {
	// Punctuation breaks segments and keeps rune offsets of the original text.
	s := SplitSubstrings("猫、犬だ", 2)
	want := map[int][]string{
		0: {"猫"},
		2: {"犬だ", "犬"},
		3: {"だ"},
	}
	if diff := cmp.Diff(want, s.ByPosition); diff != "" {
		t.Errorf("ByPosition mismatch (-want +got):\n%s", diff)
	}
}

func TestSplitSubstringsMaxLength(t *testing.T) {
	s := SplitSubstrings("あいうえおかきくけこさしす", 0)
	if got := len(s.ByPosition[0]); got != DefaultMaxLength {
		t.Errorf("expected %d candidates at 0, got %d", DefaultMaxLength, got)
	}
	s = SplitSubstrings("あいうえおかきくけこさしす", HighRecallLength)
	if got := len(s.ByPosition[0]); got != HighRecallLength {
		t.Errorf("expected %d candidates at 0, got %d", HighRecallLength, got)
	}
}

func TestEmptyInput(t *testing.T) {
	if s := SplitSubstrings("", 8); len(s.ByPosition) != 0 || len(s.Distinct) != 0 {
		t.Errorf("expected empty substrings, got %+v", s)
	}
	if w := Words(""); len(w) != 0 {
		t.Errorf("expected no words, got %v", w)
	}
}

func TestWords(t *testing.T) {
	got := Words("jdn. (vorher) ankommen [Ort], etw. <sth.> sehen")
	want := []Token{
		{Text: "ankommen", Index: 14},
		{Text: "sehen", Index: 42},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Words mismatch (-want +got):\n%s", diff)
	}
}

func TestWordStrings(t *testing.T) {
	got := WordStrings("Er kommt heute an.")
	want := []string{"Er", "kommt", "heute", "an"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("WordStrings mismatch (-want +got):\n%s", diff)
	}
}
