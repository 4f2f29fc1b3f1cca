package audit

import (
	"errors"
	"testing"
)

func TestValidateURL(t *testing.T) {
	t.Parallel()

	valid := []string{
		"https://example.com",
		"http://example.com/path?q=1",
		"  https://example.com  ",
		"https://localhost:8080",
	}
	for _, raw := range valid {
		if _, err := ValidateURL(raw); err != nil {
			t.Errorf("ValidateURL(%q) unexpected error: %v", raw, err)
		}
	}

	invalid := []string{
		"",
		"   ",
		"not-a-url",
		"example.com",
		"/relative/path",
		"https://",
		"http://%zz",
		"mailto:someone@example.com",
	}
	for _, raw := range invalid {
		_, err := ValidateURL(raw)
		if !errors.Is(err, ErrInvalidURL) {
			t.Errorf("ValidateURL(%q) error = %v, want ErrInvalidURL", raw, err)
		}
	}
}

func TestValidateURLTrims(t *testing.T) {
	t.Parallel()

	got, err := ValidateURL("\thttps://example.com \n")
	if err != nil {
		t.Fatalf("ValidateURL() error = %v", err)
	}
	if got != "https://example.com" {
		t.Fatalf("expected trimmed url, got %q", got)
	}
}

func FuzzValidateURL(f *testing.F) {
	for _, seed := range []string{"https://example.com", "not-a-url", "", "http://"} {
		f.Add(seed)
	}
	f.Fuzz(func(t *testing.T, raw string) {
		got, err := ValidateURL(raw)
		if err == nil && got == "" {
			t.Errorf("ValidateURL(%q) accepted an empty url", raw)
		}
	})
}
