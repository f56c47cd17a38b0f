package loader

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/dshills/graphsnap/internal/config/document"
)

func TestJSONC_ParseComments(t *testing.T) {
	src := `{
	"retries": 3, // retry budget
	"host": "api.example.com",
	"ratio": 0.5,
	"limits": {
		"burst": 10 // tokens
	}, // per-endpoint
	"tracked": ["ada", "grace"] // accounts
}
`
	tbl, err := JSONC{}.Parse([]byte(src))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if diff := cmp.Diff([]string{"retries", "host", "ratio", "limits", "tracked"}, tbl.Keys()); diff != "" {
		t.Errorf("keys mismatch (-want +got):\n%s", diff)
	}

	comments := map[string]string{
		"retries": "retry budget",
		"host":    "",
		"limits":  "per-endpoint",
		"tracked": "accounts",
	}
	for key, want := range comments {
		if got := tbl.Comment(key); got != want {
			t.Errorf("%s comment = %q, want %q", key, got, want)
		}
	}

	retries, _ := tbl.Get("retries")
	if retries.Kind() != document.KindInt {
		t.Errorf("retries kind = %s, want integer", retries.Kind())
	}
	ratio, _ := tbl.Get("ratio")
	if ratio.Kind() != document.KindFloat {
		t.Errorf("ratio kind = %s, want float", ratio.Kind())
	}
	limits, _ := tbl.Subtable([]string{"limits"}, false)
	if got := limits.Comment("burst"); got != "tokens" {
		t.Errorf("burst comment = %q", got)
	}
}

func TestJSONC_ParseNotObject(t *testing.T) {
	_, err := JSONC{}.Parse([]byte(`[1, 2]`))
	if !errors.Is(err, ErrNotMapping) {
		t.Errorf("err = %v, want ErrNotMapping", err)
	}
}

func TestJSONC_ParseSyntaxError(t *testing.T) {
	_, err := JSONC{}.Parse([]byte(`{"a": }`))
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("err = %v, want *ParseError", err)
	}
}

func TestJSONC_RoundTrip(t *testing.T) {
	tbl := document.NewTable()
	tbl.SetWithComment("retries", document.Int(3), "retry budget")
	tbl.Set("ratio", document.Float(2))
	tbl.Set("nothing", document.Null())
	sub, _ := tbl.Subtable([]string{"limits"}, true)
	sub.SetWithComment("burst", document.Int(10), "tokens")
	tbl.SetComment("limits", "per-endpoint")
	tbl.SetWithComment("tracked", document.List(document.String("ada")), "accounts")

	out, err := JSONC{}.Encode(tbl)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	again, err := JSONC{}.Parse(out)
	if err != nil {
		t.Fatalf("Parse failed: %v\n%s", err, out)
	}
	if !tbl.Equal(again) {
		t.Errorf("round trip differs:\n%s", out)
	}
	for _, key := range []string{"retries", "ratio", "limits", "tracked"} {
		if again.Comment(key) != tbl.Comment(key) {
			t.Errorf("%s comment = %q, want %q\n%s", key, again.Comment(key), tbl.Comment(key), out)
		}
	}

	second, err := JSONC{}.Encode(again)
	if err != nil {
		t.Fatalf("second Encode failed: %v", err)
	}
	if diff := cmp.Diff(string(out), string(second)); diff != "" {
		t.Errorf("encoding not stable (-first +second):\n%s", diff)
	}
}
