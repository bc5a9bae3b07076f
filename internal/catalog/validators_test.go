package catalog

import (
	"strings"
	"testing"
)

func mustValidator(t *testing.T, spec string) func(string) (string, error) {
	t.Helper()
	fn, err := resolveValidator(spec)
	if err != nil {
		t.Fatalf("resolveValidator(%q) error = %v", spec, err)
	}
	return fn
}

func TestDateValidator(t *testing.T) {
	validate := mustValidator(t, "date")

	cases := []struct {
		raw     string
		want    string
		wantErr bool
	}{
		{raw: "2021-03-15", want: "2021-03-15"},
		{raw: `"2021-03-15"`, want: "2021-03-15"},
		{raw: "  2021-03-15\n", want: "2021-03-15"},
		{raw: "-", want: "-"},
		{raw: "March 15, 2021", wantErr: true},
		{raw: "2021-3-15", wantErr: true},
		{raw: "", wantErr: true},
	}
	for _, tc := range cases {
		got, err := validate(tc.raw)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("date(%q): expected error, got %q", tc.raw, got)
			}
			continue
		}
		if err != nil {
			t.Fatalf("date(%q) error = %v", tc.raw, err)
		}
		if got != tc.want {
			t.Fatalf("date(%q) = %q, want %q", tc.raw, got, tc.want)
		}
	}
}

func TestIntegerValidator(t *testing.T) {
	validate := mustValidator(t, "integer")

	for _, ok := range []string{"1000000", "-5", "0", "-"} {
		if _, err := validate(ok); err != nil {
			t.Fatalf("integer(%q) error = %v", ok, err)
		}
	}
	for _, bad := range []string{"1,000,000", "0.001", "about 5 million", ""} {
		if _, err := validate(bad); err == nil {
			t.Fatalf("integer(%q): expected error", bad)
		}
	}
}

func TestNumberValidator(t *testing.T) {
	validate := mustValidator(t, "number")

	for _, ok := range []string{"0.0001", "10", "-2.5", "-"} {
		if _, err := validate(ok); err != nil {
			t.Fatalf("number(%q) error = %v", ok, err)
		}
	}
	for _, bad := range []string{"$0.0001", "1e-4", "one tenth of a cent"} {
		if _, err := validate(bad); err == nil {
			t.Fatalf("number(%q): expected error", bad)
		}
	}
}

func TestNonEmptyValidator(t *testing.T) {
	validate := mustValidator(t, "nonempty")

	got, err := validate("  Delaware  ")
	if err != nil {
		t.Fatalf("nonempty error = %v", err)
	}
	if got != "Delaware" {
		t.Fatalf("expected trimmed value, got %q", got)
	}
	if _, err := validate("   \n"); err == nil {
		t.Fatalf("expected error for blank answer")
	}
}

func TestJSONKeysValidator(t *testing.T) {
	validate := mustValidator(t, "json_keys:accountIdLabel,accountIdColumnIdx")

	t.Run("canonicalizes prose-wrapped object", func(t *testing.T) {
		raw := "Here is the mapping you asked for:\n```json\n{\"accountIdLabel\": \"*Code\", \"accountIdColumnIdx\": 0}\n```\nLet me know if you need anything else."
		got, err := validate(raw)
		if err != nil {
			t.Fatalf("json_keys error = %v", err)
		}
		if !strings.HasPrefix(got, "{") || !strings.HasSuffix(got, "}") {
			t.Fatalf("expected bare object, got %q", got)
		}
		if !strings.Contains(got, `"accountIdLabel":"*Code"`) {
			t.Fatalf("expected canonical marshaling, got %q", got)
		}
	})

	t.Run("missing key", func(t *testing.T) {
		if _, err := validate(`{"accountIdLabel": "*Code"}`); err == nil || !strings.Contains(err.Error(), "missing key") {
			t.Fatalf("expected missing key error, got %v", err)
		}
	})

	t.Run("not json", func(t *testing.T) {
		if _, err := validate("I could not find those columns."); err == nil {
			t.Fatalf("expected parse error")
		}
	})
}

func TestJSONKeysRequiresArgs(t *testing.T) {
	if _, err := resolveValidator("json_keys"); err == nil {
		t.Fatalf("expected error for missing key list")
	}
	if _, err := resolveValidator("json_keys: , ,"); err == nil {
		t.Fatalf("expected error for blank key list")
	}
}

func TestHeadLinesPreprocessor(t *testing.T) {
	fn, err := resolvePreprocessor("head_lines:2")
	if err != nil {
		t.Fatalf("resolvePreprocessor error = %v", err)
	}
	content := "a,b,c\n1,2,3\n4,5,6\n7,8,9"
	if got := fn(content); got != "a,b,c\n1,2,3\n" {
		t.Fatalf("head_lines = %q", got)
	}
	// Shorter content passes through untouched.
	if got := fn("only one line"); got != "only one line" {
		t.Fatalf("head_lines passthrough = %q", got)
	}
}

func TestHeadChars(t *testing.T) {
	if got := HeadChars("привет мир", 6); got != "привет" {
		t.Fatalf("expected rune-safe prefix, got %q", got)
	}
	if got := HeadChars("short", 300); got != "short" {
		t.Fatalf("expected passthrough, got %q", got)
	}
}
