package jsonrows

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/japaniel/lexicard/pkg/lexicon"
)

func TestEach(t *testing.T) {
	var rows []int
	var heads []string
	err := Each("term_bank_1.json", strings.NewReader(`[["猫"], ["犬"]]`), func(row int, raw json.RawMessage) error {
		arr, err := Array(raw)
		if err != nil {
			return err
		}
		s, err := String(arr[0])
		if err != nil {
			return err
		}
		rows = append(rows, row)
		heads = append(heads, s)
		return nil
	})
	if err != nil {
		t.Fatalf("Each: %v", err)
	}
	if diff := cmp.Diff([]int{1, 2}, rows); diff != "" {
		t.Errorf("rows (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"猫", "犬"}, heads); diff != "" {
		t.Errorf("heads (-want +got):\n%s", diff)
	}
}

func TestEachErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		line  int
	}{
		{"not an array", `{"a": 1}`, 0},
		{"broken row", `[[1], [2,]`, 2},
		{"empty", ``, 0},
	}
	for _, tt := range tests {
		err := Each("bank.json", strings.NewReader(tt.input), func(int, json.RawMessage) error { return nil })
		var pe *lexicon.ParseError
		if !errors.As(err, &pe) {
			t.Errorf("%s: expected ParseError, got %v", tt.name, err)
			continue
		}
		if pe.File != "bank.json" || pe.Line != tt.line {
			t.Errorf("%s: got file %q line %d; want line %d", tt.name, pe.File, pe.Line, tt.line)
		}
	}

	stop := errors.New("stop")
	err := Each("bank.json", strings.NewReader(`[1, 2]`), func(int, json.RawMessage) error { return stop })
	if err != stop {
		t.Errorf("callback error = %v; want it unchanged", err)
	}
}

func TestFieldDecoders(t *testing.T) {
	if _, err := String(json.RawMessage(`null`)); err == nil {
		t.Error("String(null) succeeded")
	}
	if s, err := OptionalString(json.RawMessage(`null`)); err != nil || s != "" {
		t.Errorf("OptionalString(null) = %q, %v", s, err)
	}
	if f, err := Number(json.RawMessage(`-3.5`)); err != nil || f != -3.5 {
		t.Errorf("Number = %v, %v", f, err)
	}
	if _, err := Number(json.RawMessage(`"3"`)); err == nil {
		t.Error(`Number("3") succeeded`)
	}
	if _, err := Array(json.RawMessage(`null`)); err == nil {
		t.Error("Array(null) succeeded")
	}
	if a, err := Array(json.RawMessage(`[]`)); err != nil || len(a) != 0 {
		t.Errorf("Array([]) = %v, %v", a, err)
	}
	err := Field(4, "score", errors.New("not a number"))
	if got := err.Error(); got != "element 4 (score): not a number" {
		t.Errorf("Field = %q", got)
	}
}
