package identity

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCategoryCodeKnownAndFallback(t *testing.T) {
	table := DefaultCodeTable()

	cases := []struct {
		category string
		want     string
	}{
		{"billing", "BIL"},
		{"Billing", "BIL"},
		{"  technical  ", "TEC"},
		{"returns", "RET"},
		{"kayaks", "GEN"},
		{"", "GEN"},
	}
	for _, tc := range cases {
		if got := table.CategoryCode(tc.category); got != tc.want {
			t.Fatalf("CategoryCode(%q) = %q, want %q", tc.category, got, tc.want)
		}
	}
}

func TestProductCodeNormalization(t *testing.T) {
	table := DefaultCodeTable()

	cases := []struct {
		model string
		want  string
	}{
		{"X-200", "X20"},
		{"hi-fi", "HIF"},
		{"AB", "AB"},
		{"!!!", "GEN"},
		{"", "GEN"},
	}
	for _, tc := range cases {
		if got := table.ProductCode(tc.model); got != tc.want {
			t.Fatalf("ProductCode(%q) = %q, want %q", tc.model, got, tc.want)
		}
	}
}

func TestLoadCodeTableOverridesAndPartialFiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "codes.yaml")
	content := `
categories:
  billing: "FIN"
  hardware: "HRD"
fallback_category: "UNK"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write codes file: %v", err)
	}

	table, err := LoadCodeTable(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := table.CategoryCode("billing"); got != "FIN" {
		t.Fatalf("expected override, got %q", got)
	}
	if got := table.CategoryCode("hardware"); got != "HRD" {
		t.Fatalf("expected new category, got %q", got)
	}
	if got := table.CategoryCode("unlisted"); got != "UNK" {
		t.Fatalf("expected configured fallback, got %q", got)
	}
	if got := table.ProductCode("???"); got != "GEN" {
		t.Fatalf("partial file must keep default product fallback, got %q", got)
	}
}

func TestLoadCodeTableEmptyPathUsesDefaults(t *testing.T) {
	table, err := LoadCodeTable("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := table.CategoryCode("sales"); got != "SAL" {
		t.Fatalf("expected default table, got %q", got)
	}
}
