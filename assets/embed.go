// assets/embed.go
//
// Files bundled into the binary:
//   - countries.json: default trade dataset (overridden by COUNTRIES_FILE).
//   - rules.yaml:     default game tuning (overridden by RULES_FILE).
//   - sql/*.sql:      best-score schema migrations, applied in lexical order.

package assets

import (
	"embed"
	"io/fs"
	"sort"
)

//go:embed countries.json rules.yaml sql/*.sql
var FS embed.FS

// CountriesJSON returns the embedded dataset.
func CountriesJSON() ([]byte, error) {
	return FS.ReadFile("countries.json")
}

// RulesYAML returns the embedded rules file.
func RulesYAML() ([]byte, error) {
	return FS.ReadFile("rules.yaml")
}

// Migrations lists the embedded migration files (e.g. "sql/001_best_scores.sql"), sorted.
func Migrations() ([]string, error) {
	names, err := fs.Glob(FS, "sql/*.sql")
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}
