package identity

import (
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// CodeTable maps conversation categories to the 2-3 letter codes embedded
// in customer keys. It is configuration data, not constants: new
// categories ship as a YAML file edit, not a redeploy.
type CodeTable struct {
	Categories       map[string]string `yaml:"categories"`
	FallbackCategory string            `yaml:"fallback_category"`
	FallbackProduct  string            `yaml:"fallback_product"`
}

// DefaultCodeTable returns the built-in table used when no file is
// configured.
func DefaultCodeTable() CodeTable {
	return CodeTable{
		Categories: map[string]string{
			"billing":   "BIL",
			"technical": "TEC",
			"sales":     "SAL",
			"shipping":  "SHP",
			"returns":   "RET",
			"account":   "ACC",
			"general":   "GEN",
		},
		FallbackCategory: "GEN",
		FallbackProduct:  "GEN",
	}
}

// LoadCodeTable reads a code table from a YAML file. Missing fields fall
// back to the defaults so partial files stay valid.
func LoadCodeTable(path string) (CodeTable, error) {
	table := DefaultCodeTable()
	if path == "" {
		return table, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return table, err
	}
	var loaded CodeTable
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return table, err
	}
	if len(loaded.Categories) > 0 {
		table.Categories = loaded.Categories
	}
	if loaded.FallbackCategory != "" {
		table.FallbackCategory = loaded.FallbackCategory
	}
	if loaded.FallbackProduct != "" {
		table.FallbackProduct = loaded.FallbackProduct
	}
	return table, nil
}

// CategoryCode resolves the code for a category, falling back for unknown
// or empty categories.
func (t CodeTable) CategoryCode(category string) string {
	code, ok := t.Categories[strings.ToLower(strings.TrimSpace(category))]
	if !ok || code == "" {
		return t.FallbackCategory
	}
	return strings.ToUpper(code)
}

// ProductCode derives a 3-letter code from a product model string by
// stripping non-alphanumerics, uppercasing and truncating.
func (t CodeTable) ProductCode(model string) string {
	var b strings.Builder
	for _, r := range model {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	cleaned := strings.ToUpper(b.String())
	if cleaned == "" {
		return t.FallbackProduct
	}
	if len(cleaned) > 3 {
		cleaned = cleaned[:3]
	}
	return cleaned
}
