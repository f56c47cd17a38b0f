package loader

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/dshills/graphsnap/internal/config/document"
)

func TestTOML_ParseOrderAndComments(t *testing.T) {
	src := `
# leading comment is not attached to any key
Retries = 3 # how many times to retry
Host = "api.example.com"
Tracked = ["ada", "grace"]

[limits] # per-endpoint limits
burst = 10
rate = 2.5

[limits.window]
length = "1m" # sliding window
`
	tbl, err := TOML{}.Parse([]byte(src))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if diff := cmp.Diff([]string{"Retries", "Host", "Tracked", "limits"}, tbl.Keys()); diff != "" {
		t.Errorf("root keys mismatch (-want +got):\n%s", diff)
	}
	if got := tbl.Comment("Retries"); got != "how many times to retry" {
		t.Errorf("Retries comment = %q", got)
	}
	if got := tbl.Comment("Host"); got != "" {
		t.Errorf("Host comment = %q, want empty", got)
	}
	if got := tbl.Comment("limits"); got != "per-endpoint limits" {
		t.Errorf("limits comment = %q", got)
	}

	limits, ok := tbl.Subtable([]string{"limits"}, false)
	if !ok {
		t.Fatal("limits table missing")
	}
	if diff := cmp.Diff([]string{"burst", "rate", "window"}, limits.Keys()); diff != "" {
		t.Errorf("limits keys mismatch (-want +got):\n%s", diff)
	}
	rate, _ := limits.Get("rate")
	if f, ok := rate.AsFloat(); !ok || f != 2.5 {
		t.Errorf("rate = %v", rate)
	}

	window, ok := tbl.Subtable([]string{"limits", "window"}, false)
	if !ok {
		t.Fatal("limits.window missing")
	}
	if got := window.Comment("length"); got != "sliding window" {
		t.Errorf("length comment = %q", got)
	}
}

func TestTOML_ParseDottedAndInline(t *testing.T) {
	src := `
server.port = 8080
server.host = "localhost"
owner = { name = "ada", id = 7 }
`
	tbl, err := TOML{}.Parse([]byte(src))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	server, ok := tbl.Subtable([]string{"server"}, false)
	if !ok {
		t.Fatal("server table missing")
	}
	if diff := cmp.Diff([]string{"port", "host"}, server.Keys()); diff != "" {
		t.Errorf("server keys mismatch (-want +got):\n%s", diff)
	}
	owner, ok := tbl.Subtable([]string{"owner"}, false)
	if !ok {
		t.Fatal("owner table missing")
	}
	if diff := cmp.Diff([]string{"name", "id"}, owner.Keys()); diff != "" {
		t.Errorf("owner keys mismatch (-want +got):\n%s", diff)
	}
}

func TestTOML_ParseTimes(t *testing.T) {
	src := `
at = 2024-05-01T12:30:00Z
day = 2024-05-01
`
	tbl, err := TOML{}.Parse([]byte(src))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	at, _ := tbl.Get("at")
	ts, ok := at.AsTime()
	if !ok || !ts.Equal(time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)) {
		t.Errorf("at = %v", at)
	}
	day, _ := tbl.Get("day")
	if _, ok := day.AsTime(); !ok {
		t.Errorf("day kind = %s, want time", day.Kind())
	}
}

func TestTOML_ParseError(t *testing.T) {
	_, err := TOML{}.Parse([]byte("a = \n"))
	if err == nil {
		t.Fatal("expected parse error")
	}
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("error %T is not *ParseError", err)
	}
	if pe.Line < 1 {
		t.Errorf("Line = %d, want a position", pe.Line)
	}
}

func TestTOML_ParseEmpty(t *testing.T) {
	tbl, err := TOML{}.Parse(nil)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if tbl.Len() != 0 {
		t.Errorf("Len = %d, want 0", tbl.Len())
	}
}

func TestTOML_Encode(t *testing.T) {
	tbl := document.NewTable()
	tbl.SetWithComment("Retries", document.Int(3), "how many times to retry")
	tbl.Set("Ratio", document.Float(2))
	tbl.Set("Name", document.String("say \"hi\"\n"))
	tbl.Set("Users", document.List(document.String("ada"), document.String("grace")))
	sub, _ := tbl.Subtable([]string{"api keys"}, true)
	sub.SetWithComment("enabled", document.Bool(true), "toggle")

	got, err := TOML{}.Encode(tbl)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	want := `Retries = 3 # how many times to retry
Ratio = 2.0
Name = "say \"hi\"\n"
Users = ["ada", "grace"]

["api keys"]
enabled = true # toggle
`
	if diff := cmp.Diff(want, string(got)); diff != "" {
		t.Errorf("Encode mismatch (-want +got):\n%s", diff)
	}
}

func TestTOML_EncodeNull(t *testing.T) {
	tbl := document.NewTable()
	tbl.Set("nothing", document.Null())
	_, err := TOML{}.Encode(tbl)
	if !errors.Is(err, ErrNullValue) {
		t.Errorf("err = %v, want ErrNullValue", err)
	}
}

func TestTOML_RoundTrip(t *testing.T) {
	src := `Retries = 3 # retry budget
Started = 2024-05-01T12:30:00Z
Mixed = [1, 2, 3]

[limits]
burst = 10 # tokens

[limits.window]
length = "1m"
`
	tbl, err := TOML{}.Parse([]byte(src))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	out, err := TOML{}.Encode(tbl)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if diff := cmp.Diff(src, string(out)); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}

	again, err := TOML{}.Parse(out)
	if err != nil {
		t.Fatalf("re-Parse failed: %v", err)
	}
	if !tbl.Equal(again) {
		t.Error("re-parsed table differs")
	}
	if !strings.Contains(string(out), "# tokens") {
		t.Error("nested comment lost")
	}
}

func TestTOML_EncodeKeepsInlineCommentsOnly(t *testing.T) {
	src := `# standalone header comment
Retries = 3 # retry budget

# above the table
[limits] # per-endpoint limits
burst = 10

[[srv]] # servers
name = "a" # primary
`
	tbl, err := TOML{}.Parse([]byte(src))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	out, err := TOML{}.Encode(tbl)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	got := string(out)
	for _, kept := range []string{"# retry budget", "# per-endpoint limits", "# servers"} {
		if !strings.Contains(got, kept) {
			t.Errorf("comment %q lost:\n%s", kept, got)
		}
	}
	for _, dropped := range []string{"standalone header comment", "above the table", "primary"} {
		if strings.Contains(got, dropped) {
			t.Errorf("comment %q written back:\n%s", dropped, got)
		}
	}
	srv, _ := tbl.Get("srv")
	if elems, ok := srv.AsList(); !ok || len(elems) != 1 {
		t.Errorf("srv = %v", srv)
	}
}
