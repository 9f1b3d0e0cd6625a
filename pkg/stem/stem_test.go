package stem

import (
	"slices"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestGerman(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"einzugehen", "geh"},
		{"gehießen", "hiess"},
		{"kämst", "kam"},
		{"anzutun", "tun"},
		{"ankommen", "komm"},
		{"gehen", "geh"},
	}
	for _, tt := range tests {
		if got := German(tt.in); got != tt.want {
			t.Errorf("German(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCistemCapitalT(t *testing.T) {
	if got := Cistem("Welt", false); got != "welt" {
		t.Errorf("Cistem(Welt, false) = %q, want welt", got)
	}
	if got := Cistem("Welt", true); got != "wel" {
		t.Errorf("Cistem(Welt, true) = %q, want wel", got)
	}
}

func TestStripSeparablePrefix(t *testing.T) {
	tests := []struct {
		in, prefix, rest string
	}{
		{"ankommen", "an", "kommen"},
		{"Aufstehen", "auf", "stehen"},
		{"anzutun", "an", "tun"},
		{"an", "", "an"},
		{"haben", "", "haben"},
	}
	for _, tt := range tests {
		p, r := StripSeparablePrefix(tt.in)
		if p != tt.prefix || r != tt.rest {
			t.Errorf("StripSeparablePrefix(%q) = (%q, %q), want (%q, %q)", tt.in, p, r, tt.prefix, tt.rest)
		}
	}
}

func TestDifferingStems(t *testing.T) {
	got := DifferingStems("ankommen [Ort]")
	if diff := cmp.Diff([]string{"komm"}, got); diff != "" {
		t.Errorf("DifferingStems mismatch (-want +got):\n%s", diff)
	}
	if got := DifferingStems("komm"); len(got) != 0 {
		t.Errorf("DifferingStems(komm) = %v, want none", got)
	}
}

func TestPhraseKeys(t *testing.T) {
	keys, n := PhraseKeys("ankommen")
	if n != 1 {
		t.Fatalf("count = %d, want 1", n)
	}
	want := []string{"komm|1", "an komm|2"}
	if diff := cmp.Diff(want, keys); diff != "" {
		t.Errorf("PhraseKeys mismatch (-want +got):\n%s", diff)
	}

	// The split form found in running text must hit the second key.
	if got := PhraseKey([]string{"kommt", "an"}); got != "an komm|2" {
		t.Errorf("PhraseKey(kommt an) = %q", got)
	}
}

func TestPhraseKeyOrderIndependent(t *testing.T) {
	a := PhraseKey([]string{"jemanden", "etwas", "sehen"})
	b := PhraseKey([]string{"sehen", "etwas", "jemanden"})
	if a != b {
		t.Errorf("keys differ: %q vs %q", a, b)
	}
}

func lemmaTexts(rs []Reduction) []string {
	out := make([]string, 0, len(rs))
	for _, r := range rs {
		out = append(out, r.Text)
	}
	return out
}

func TestLemmatize(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"出来ます", []string{"出来る"}},
		{"表されます", []string{"表される", "表する", "表す", "表さる"}},
		{"食べた", []string{"食べる"}},
		{"書かない", []string{"書く"}},
		{"高くない", []string{"高い"}},
		{"読んでいる", []string{"読む"}},
	}
	for _, tt := range tests {
		got := lemmaTexts(Lemmatize(tt.in))
		for _, w := range tt.want {
			if !slices.Contains(got, w) {
				t.Errorf("Lemmatize(%q) = %v, missing %q", tt.in, got, w)
			}
		}
		if slices.Contains(got, tt.in) {
			t.Errorf("Lemmatize(%q) contains the input", tt.in)
		}
	}
}

func TestLemmatizeInflections(t *testing.T) {
	for _, r := range Lemmatize("表されます") {
		if r.Text == "表す" {
			if diff := cmp.Diff([]string{"masu", "passive"}, r.Inflections); diff != "" {
				t.Errorf("inflections mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff([]string{"v5"}, r.Rules); diff != "" {
				t.Errorf("rules mismatch (-want +got):\n%s", diff)
			}
			return
		}
	}
	t.Fatal("表す not produced")
}

func TestLemmatizeReturnsCopies(t *testing.T) {
	first := Lemmatize("出来ます")
	if len(first) == 0 {
		t.Fatal("no lemmas")
	}
	first[0].Text = "changed"
	first[0].Inflections[0] = "changed"
	second := Lemmatize("出来ます")
	if second[0].Text == "changed" || second[0].Inflections[0] == "changed" {
		t.Error("cached result was mutated through a returned slice")
	}
}

func TestLemmatizeConcurrent(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if got := lemmaTexts(Lemmatize("食べませんでした")); !slices.Contains(got, "食べる") {
				t.Errorf("Lemmatize = %v, missing 食べる", got)
			}
		}()
	}
	wg.Wait()
}

func TestRulesMatch(t *testing.T) {
	if !RulesMatch(nil, []string{"v5"}) {
		t.Error("empty reduction rules must match")
	}
	if !RulesMatch([]string{"v5"}, nil) {
		t.Error("empty entry rules must match")
	}
	if !RulesMatch([]string{"v5"}, []string{"v5k"}) {
		t.Error("v5 must match v5k")
	}
	if RulesMatch([]string{"v1"}, []string{"v5"}) {
		t.Error("v1 must not match v5")
	}
}

func TestReducers(t *testing.T) {
	var r Reducer = GermanReducer{}
	got := r.Reduce("ankommen", CaseSensitive)
	if len(got) != 1 || got[0].Text != "komm" {
		t.Fatalf("GermanReducer = %+v", got)
	}
	if diff := cmp.Diff([]string{"separable-prefix", "cistem"}, got[0].Inflections); diff != "" {
		t.Errorf("inflections mismatch (-want +got):\n%s", diff)
	}
	r = JapaneseReducer{}
	if got := lemmaTexts(r.Reduce("出来ます", CaseInsensitive)); !slices.Contains(got, "出来る") {
		t.Errorf("JapaneseReducer = %v", got)
	}
}
