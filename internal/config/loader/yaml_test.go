package loader

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/dshills/graphsnap/internal/config/document"
)

func TestYAML_ParseComments(t *testing.T) {
	src := `retries: 3 # retry budget
host: api.example.com
tracked: # accounts to snapshot
  - ada
  - grace
limits:
  burst: 10 # tokens
at: 2024-05-01T12:30:00Z
`
	tbl, err := YAML{}.Parse([]byte(src))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if diff := cmp.Diff([]string{"retries", "host", "tracked", "limits", "at"}, tbl.Keys()); diff != "" {
		t.Errorf("keys mismatch (-want +got):\n%s", diff)
	}
	if got := tbl.Comment("retries"); got != "retry budget" {
		t.Errorf("retries comment = %q", got)
	}
	if got := tbl.Comment("tracked"); got != "accounts to snapshot" {
		t.Errorf("tracked comment = %q", got)
	}

	retries, _ := tbl.Get("retries")
	if n, ok := retries.AsInt(); !ok || n != 3 {
		t.Errorf("retries = %v", retries)
	}
	tracked, _ := tbl.Get("tracked")
	if elems, ok := tracked.AsList(); !ok || len(elems) != 2 {
		t.Errorf("tracked = %v", tracked)
	}
	at, _ := tbl.Get("at")
	if ts, ok := at.AsTime(); !ok || !ts.Equal(time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)) {
		t.Errorf("at = %v", at)
	}
	limits, _ := tbl.Subtable([]string{"limits"}, false)
	if got := limits.Comment("burst"); got != "tokens" {
		t.Errorf("burst comment = %q", got)
	}
}

func TestYAML_ParseNotMapping(t *testing.T) {
	_, err := YAML{}.Parse([]byte("- a\n- b\n"))
	if !errors.Is(err, ErrNotMapping) {
		t.Errorf("err = %v, want ErrNotMapping", err)
	}
}

func TestYAML_ParseEmpty(t *testing.T) {
	for _, src := range []string{"", "---\n", "~\n"} {
		tbl, err := YAML{}.Parse([]byte(src))
		if err != nil {
			t.Fatalf("Parse(%q) failed: %v", src, err)
		}
		if tbl.Len() != 0 {
			t.Errorf("Parse(%q) Len = %d, want 0", src, tbl.Len())
		}
	}
}

func TestYAML_RoundTrip(t *testing.T) {
	tbl := document.NewTable()
	tbl.SetWithComment("retries", document.Int(3), "retry budget")
	tbl.Set("numeric string", document.String("123"))
	tbl.SetWithComment("tracked", document.List(document.String("ada")), "accounts")
	tbl.Set("empty", document.List())
	tbl.Set("nothing", document.Null())
	sub, _ := tbl.Subtable([]string{"limits"}, true)
	sub.SetWithComment("rate", document.Float(2.5), "per second")

	out, err := YAML{}.Encode(tbl)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	again, err := YAML{}.Parse(out)
	if err != nil {
		t.Fatalf("Parse failed: %v\n%s", err, out)
	}
	if !tbl.Equal(again) {
		t.Errorf("round trip differs:\n%s", out)
	}
	for _, key := range []string{"retries", "tracked"} {
		if again.Comment(key) != tbl.Comment(key) {
			t.Errorf("%s comment = %q, want %q", key, again.Comment(key), tbl.Comment(key))
		}
	}
	limits, _ := again.Subtable([]string{"limits"}, false)
	if got := limits.Comment("rate"); got != "per second" {
		t.Errorf("rate comment = %q", got)
	}

	second, err := YAML{}.Encode(again)
	if err != nil {
		t.Fatalf("second Encode failed: %v", err)
	}
	if diff := cmp.Diff(string(out), string(second)); diff != "" {
		t.Errorf("encoding not stable (-first +second):\n%s", diff)
	}
}

func TestYAML_EncodeKeepsInlineCommentsOnly(t *testing.T) {
	src := `# head of retries
retries: 3 # retry budget
host: api.example.com
# foot of host
`
	tbl, err := YAML{}.Parse([]byte(src))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	out, err := YAML{}.Encode(tbl)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	got := string(out)
	if !strings.Contains(got, "retries: 3 # retry budget") {
		t.Errorf("line comment lost:\n%s", got)
	}
	for _, dropped := range []string{"head of retries", "foot of host"} {
		if strings.Contains(got, dropped) {
			t.Errorf("comment %q written back:\n%s", dropped, got)
		}
	}
}
