package cars

import (
	_ "embed"
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
)

//go:embed test.json
var testJson []byte

func TestCarsJSON(t *testing.T) {
	var data Data
	err := json.Unmarshal(testJson, &data)
	if err != nil {
		t.Fatalf("unmarshal: %s", err)
	}
	if len(data.Kinds) != 3 {
		t.Fatalf("expected 3 kinds, got %d", len(data.Kinds))
	}
	err = json.Unmarshal([]byte(`{"kinds": {"Bad_R": {"length": 1}}}`), &data)
	if err == nil {
		t.Fatal("expected error for reversed alias")
	}
	err = json.Unmarshal([]byte(`{"kinds": {"Flat": {}}}`), &data)
	if err == nil {
		t.Fatal("expected error for zero length")
	}
}

func TestFind(t *testing.T) {
	data := Default()
	type testCase struct {
		alias   string
		ok      bool
		engine  bool
		reverse bool
	}
	for _, tc := range []testCase{
		{"Workcart", true, true, false},
		{"workcart", true, true, false},
		{"Workcart_R", true, true, true},
		{"wagona_r", true, false, true},
		{"Caboose", true, false, false},
		{"_R", false, false, false},
		{"Tram", false, false, false},
	} {
		spec, ok := data.Find(tc.alias)
		if ok != tc.ok {
			t.Fatalf("%s: expected ok=%t", tc.alias, tc.ok)
		}
		if !ok {
			continue
		}
		got := [2]bool{spec.Kind.Engine, spec.Reverse}
		if expected := [2]bool{tc.engine, tc.reverse}; !cmp.Equal(got, expected) {
			t.Fatalf("%s: diff: %s", tc.alias, cmp.Diff(got, expected))
		}
	}
}

func TestAliases(t *testing.T) {
	var data Data
	if err := json.Unmarshal(testJson, &data); err != nil {
		t.Fatalf("unmarshal: %s", err)
	}
	expected := []string{"Caboose", "Caboose_R", "WagonA", "WagonA_R", "Workcart", "Workcart_R"}
	if got := data.Aliases(); !cmp.Equal(got, expected) {
		t.Fatalf("diff: %s", cmp.Diff(got, expected))
	}
}
