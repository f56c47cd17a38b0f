package document

import (
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestTable_SetKeepsOrderAndComment(t *testing.T) {
	tbl := NewTable()
	tbl.SetWithComment("Retries", Int(3), "  how many times to retry  ")
	tbl.Set("Host", String("api.example.com"))
	tbl.Set("Retries", Int(5))

	if diff := cmp.Diff([]string{"Retries", "Host"}, tbl.Keys()); diff != "" {
		t.Errorf("Keys() mismatch (-want +got):\n%s", diff)
	}
	if got := tbl.Comment("Retries"); got != "how many times to retry" {
		t.Errorf("Comment = %q, want trimmed comment", got)
	}
	v, ok := tbl.Get("Retries")
	if !ok {
		t.Fatal("Retries missing")
	}
	if n, _ := v.AsInt(); n != 5 {
		t.Errorf("Retries = %d, want 5", n)
	}
}

func TestTable_KeysAreCaseSensitive(t *testing.T) {
	tbl := NewTable()
	tbl.Set("retries", Int(1))
	tbl.Set("Retries", Int(2))

	if tbl.Len() != 2 {
		t.Fatalf("Len = %d, want 2", tbl.Len())
	}
	if tbl.Has("RETRIES") {
		t.Error("Has(RETRIES) = true, want false")
	}
}

func TestTable_Delete(t *testing.T) {
	tbl := NewTable()
	tbl.Set("a", Int(1))
	tbl.Set("b", Int(2))
	tbl.Set("c", Int(3))

	if !tbl.Delete("b") {
		t.Fatal("Delete(b) = false")
	}
	if tbl.Delete("b") {
		t.Error("second Delete(b) = true")
	}
	if diff := cmp.Diff([]string{"a", "c"}, tbl.Keys()); diff != "" {
		t.Errorf("Keys() mismatch (-want +got):\n%s", diff)
	}
	v, _ := tbl.Get("c")
	if n, _ := v.AsInt(); n != 3 {
		t.Errorf("c = %d after delete, want 3", n)
	}
}

func TestTable_UpdateMergesNestedTables(t *testing.T) {
	labels := NewTable()
	labels.SetWithComment("zed", String("last"), "z note")
	labels.SetWithComment("amy", String("first"), "a note")
	tbl := NewTable()
	tbl.Set("labels", TableValue(labels))

	sorted := NewTable()
	sorted.Set("amy", String("first"))
	sorted.Set("zed", String("last"))
	if tbl.Update("labels", TableValue(sorted)) {
		t.Error("Update with the same entries in another order reported a change")
	}
	if diff := cmp.Diff([]string{"zed", "amy"}, labels.Keys()); diff != "" {
		t.Errorf("Keys() mismatch (-want +got):\n%s", diff)
	}

	next := NewTable()
	next.Set("bob", String("new"))
	next.Set("amy", String("second"))
	if !tbl.Update("labels", TableValue(next)) {
		t.Fatal("Update reported no change")
	}
	if diff := cmp.Diff([]string{"amy", "bob"}, labels.Keys()); diff != "" {
		t.Errorf("Keys() mismatch (-want +got):\n%s", diff)
	}
	if got := labels.Comment("amy"); got != "a note" {
		t.Errorf("Comment(amy) = %q, want %q", got, "a note")
	}
	v, _ := labels.Get("amy")
	if s, _ := v.AsString(); s != "second" {
		t.Errorf("amy = %q, want second", s)
	}
}

func TestTable_UpdateScalar(t *testing.T) {
	tbl := NewTable()
	tbl.SetWithComment("Retries", Int(3), "note")

	if tbl.Update("Retries", Int(3)) {
		t.Error("Update with an equal value reported a change")
	}
	if !tbl.Update("Retries", Int(4)) {
		t.Error("Update with a new value reported no change")
	}
	if !tbl.Update("Host", String("h")) {
		t.Error("Update of a missing key reported no change")
	}
	if got := tbl.Comment("Retries"); got != "note" {
		t.Errorf("Comment = %q, want note", got)
	}
	if !tbl.Update("Retries", TableValue(NewTable())) {
		t.Error("replacing a scalar with a table reported no change")
	}
}

func TestTable_SetCommentOnMissingKey(t *testing.T) {
	tbl := NewTable()
	tbl.SetComment("missing", "ignored")
	if tbl.Has("missing") {
		t.Error("SetComment created an entry")
	}
}

func TestTable_Subtable(t *testing.T) {
	root := NewTable()

	if _, ok := root.Subtable([]string{"api", "limits"}, false); ok {
		t.Fatal("Subtable without create found a missing table")
	}

	limits, ok := root.Subtable([]string{"api", "limits"}, true)
	if !ok {
		t.Fatal("Subtable with create failed")
	}
	limits.Set("burst", Int(10))

	again, ok := root.Subtable(SplitPath("api.limits"), false)
	if !ok || again != limits {
		t.Fatal("Subtable did not return the created table")
	}

	root.Set("flat", Int(1))
	if _, ok := root.Subtable([]string{"flat", "x"}, true); ok {
		t.Error("Subtable walked through a scalar")
	}
}

func TestTable_CloneIsDeep(t *testing.T) {
	orig := NewTable()
	orig.SetWithComment("users", List(String("ada")), "tracked")
	nested, _ := orig.Subtable([]string{"nested"}, true)
	nested.Set("x", Int(1))

	c := orig.Clone()
	nested.Set("x", Int(2))

	if !c.Has("nested") {
		t.Fatal("clone lost nested table")
	}
	sub, _ := c.Subtable([]string{"nested"}, false)
	v, _ := sub.Get("x")
	if n, _ := v.AsInt(); n != 1 {
		t.Errorf("clone shares nested table: x = %d", n)
	}
	if c.Comment("users") != "tracked" {
		t.Error("clone lost comment")
	}
}

func TestValue_Equal(t *testing.T) {
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		a, b Value
		want bool
	}{
		{"null", Null(), Value{}, true},
		{"string", String("a"), String("a"), true},
		{"string differs", String("a"), String("b"), false},
		{"int vs float", Int(1), Float(1), false},
		{"nan", Float(math.NaN()), Float(math.NaN()), true},
		{"time zones", Time(ts), Time(ts.In(time.FixedZone("x", 3600))), true},
		{"list", List(Int(1), Int(2)), List(Int(1), Int(2)), true},
		{"list order", List(Int(1), Int(2)), List(Int(2), Int(1)), false},
		{"empty list", List(), List(), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Equal(tt.b); got != tt.want {
				t.Errorf("Equal = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValue_TableEqualIgnoresComments(t *testing.T) {
	a := NewTable()
	a.SetWithComment("k", Int(1), "one")
	b := NewTable()
	b.Set("k", Int(1))

	if !TableValue(a).Equal(TableValue(b)) {
		t.Error("tables differing only in comments are not equal")
	}
}

func TestValue_AsFloatWidensInt(t *testing.T) {
	f, ok := Int(7).AsFloat()
	if !ok || f != 7 {
		t.Errorf("AsFloat = %v, %v", f, ok)
	}
	if _, ok := String("7").AsFloat(); ok {
		t.Error("string reported as float")
	}
}

func TestValue_String(t *testing.T) {
	tbl := NewTable()
	tbl.Set("a", List(Int(1), Bool(true)))
	if got, want := TableValue(tbl).String(), "{a = [1, true]}"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
