// Package schema describes the column layout of a gene table and the facets
// that can be filtered on. A Schema is configuration: every column name the
// dataset loader and filter engine touch comes from here.
package schema

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Missing is the sentinel facet value matching records whose attribute is absent.
const Missing = "Missing"

// Kind is the value kind of a facet column.
type Kind string

const (
	// KindCategorical holds free-form string values (e.g. "AR", "Core").
	KindCategorical Kind = "categorical"
	// KindCoded holds small integer codes (e.g. severity 0-3). Cells such as
	// "3.0" are normalized to "3".
	KindCoded Kind = "coded"
)

// Option is one declared value of a facet with its display label.
type Option struct {
	Value string `yaml:"value"`
	Label string `yaml:"label,omitempty"`
}

// DisplayLabel returns the label, falling back to the value.
func (o Option) DisplayLabel() string {
	if o.Label != "" {
		return o.Label
	}
	return o.Value
}

// Facet describes one independently selectable attribute.
type Facet struct {
	Key          string   `yaml:"key"`
	Column       string   `yaml:"column"`
	Title        string   `yaml:"title,omitempty"`
	Kind         Kind     `yaml:"kind,omitempty"`
	Options      []Option `yaml:"options,omitempty"`
	MissingLabel string   `yaml:"missing_label,omitempty"`
	Required     bool     `yaml:"required,omitempty"`
}

// Programs describes how program membership columns are discovered.
type Programs struct {
	Prefix      string   `yaml:"prefix"`
	CountColumn string   `yaml:"count_column,omitempty"`
	Exclude     []string `yaml:"exclude,omitempty"`
}

// Schema is a versioned description of a gene table.
type Schema struct {
	Version    string   `yaml:"version"`
	GeneColumn string   `yaml:"gene_column"`
	Facets     []Facet  `yaml:"facets"`
	Programs   Programs `yaml:"programs"`
}

// Error reports an invalid schema definition.
type Error struct {
	Version string
	Message string
}

func (e *Error) Error() string {
	if e.Version == "" {
		return fmt.Sprintf("schema error: %s", e.Message)
	}
	return fmt.Sprintf("schema %s: %s", e.Version, e.Message)
}

// Validate checks the schema for structural problems and fills defaults.
func (s *Schema) Validate() error {
	if strings.TrimSpace(s.GeneColumn) == "" {
		return &Error{Version: s.Version, Message: "gene_column is required"}
	}
	if s.Programs.Prefix == "" {
		return &Error{Version: s.Version, Message: "programs.prefix is required"}
	}

	seen := make(map[string]bool, len(s.Facets))
	for i := range s.Facets {
		f := &s.Facets[i]
		if f.Key == "" {
			return &Error{Version: s.Version, Message: fmt.Sprintf("facet %d has no key", i)}
		}
		if seen[f.Key] {
			return &Error{Version: s.Version, Message: fmt.Sprintf("duplicate facet key %q", f.Key)}
		}
		seen[f.Key] = true

		if f.Column == "" {
			f.Column = f.Key
		}
		if f.Kind == "" {
			f.Kind = KindCategorical
		}
		switch f.Kind {
		case KindCategorical, KindCoded:
		default:
			return &Error{Version: s.Version, Message: fmt.Sprintf("facet %q: unknown kind %q", f.Key, f.Kind)}
		}

		for j := range f.Options {
			o := &f.Options[j]
			if f.Kind == KindCoded {
				v, ok := NormalizeCode(o.Value)
				if !ok {
					return &Error{Version: s.Version, Message: fmt.Sprintf("facet %q: option %q is not an integer code", f.Key, o.Value)}
				}
				o.Value = v
			}
			if o.Value == Missing {
				return &Error{Version: s.Version, Message: fmt.Sprintf("facet %q: %q is reserved", f.Key, Missing)}
			}
		}
	}
	return nil
}

// Facet returns the facet with the given key.
func (s *Schema) Facet(key string) (Facet, bool) {
	for _, f := range s.Facets {
		if f.Key == key {
			return f, true
		}
	}
	return Facet{}, false
}

// FacetKeys returns the facet keys in schema order.
func (s *Schema) FacetKeys() []string {
	keys := make([]string, len(s.Facets))
	for i, f := range s.Facets {
		keys[i] = f.Key
	}
	return keys
}

// IsProgramColumn reports whether a header column is a program membership
// flag. Column names compare case-insensitively.
func (s *Schema) IsProgramColumn(col string) bool {
	col = ColumnKey(col)
	prefix := ColumnKey(s.Programs.Prefix)
	if !strings.HasPrefix(col, prefix) || col == prefix {
		return false
	}
	if col == ColumnKey(s.Programs.CountColumn) {
		return false
	}
	for _, ex := range s.Programs.Exclude {
		if col == ColumnKey(ex) {
			return false
		}
	}
	// A facet column never doubles as a program (e.g. a prefixed RUSP column).
	for _, f := range s.Facets {
		if col == ColumnKey(f.Column) {
			return false
		}
	}
	return true
}

// ProgramName derives the display name of a program column: prefix removed,
// first letter upper-cased ("scr_guardian" -> "Guardian").
func (s *Schema) ProgramName(col string) string {
	name := strings.TrimPrefix(ColumnKey(col), ColumnKey(s.Programs.Prefix))
	if name == "" {
		return name
	}
	r, size := utf8.DecodeRuneInString(name)
	return string(unicode.ToUpper(r)) + name[size:]
}

// ColumnKey is the canonical form used to match header cells against schema
// column names.
func ColumnKey(col string) string {
	return strings.ToLower(strings.TrimSpace(strings.TrimPrefix(col, "\ufeff")))
}

// DisplayTitle returns the facet title, falling back to the key.
func (f Facet) DisplayTitle() string {
	if f.Title != "" {
		return f.Title
	}
	return f.Key
}

// DisplayMissing returns the label used for the Missing pseudo-value.
func (f Facet) DisplayMissing() string {
	if f.MissingLabel != "" {
		return f.MissingLabel
	}
	return Missing
}

// Label returns the display label of a stored value.
func (f Facet) Label(value string) string {
	if value == Missing {
		return f.DisplayMissing()
	}
	for _, o := range f.Options {
		if o.Value == value {
			return o.DisplayLabel()
		}
	}
	return value
}

// Normalize converts a raw source cell into a stored value. The boolean is
// false when the cell is absent. A cell reading "Missing" is absent, so no
// present value can collide with the sentinel.
func (f Facet) Normalize(raw string) (string, bool) {
	v := strings.TrimSpace(raw)
	if IsBlank(v) || strings.EqualFold(v, Missing) {
		return "", false
	}
	if f.Kind == KindCoded {
		if code, ok := NormalizeCode(v); ok {
			return code, true
		}
	}
	return v, true
}

// Resolve maps a user-supplied selection token to a stored value. Tokens are
// matched against Missing and its label, option values and option labels,
// ignoring case and treating "-", "_" and runs of spaces alike, so
// "Not-on-RUSP" selects Missing. Unmatched tokens are normalized and returned
// as-is so the caller can check them against the observed domain.
func (f Facet) Resolve(token string) string {
	t := strings.TrimSpace(token)
	k := labelKey(t)
	if k == labelKey(Missing) || k == labelKey(f.DisplayMissing()) {
		return Missing
	}
	for _, o := range f.Options {
		if strings.EqualFold(t, o.Value) {
			return o.Value
		}
	}
	for _, o := range f.Options {
		if o.Label != "" && labelKey(o.Label) == k {
			return o.Value
		}
	}
	if v, ok := f.Normalize(t); ok {
		return v
	}
	return t
}

// labelKey folds a label for loose matching: lower case, with "-", "_" and
// whitespace runs collapsed to a single space.
func labelKey(s string) string {
	s = strings.Map(func(r rune) rune {
		if r == '-' || r == '_' {
			return ' '
		}
		return unicode.ToLower(r)
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

// IsBlank reports whether a cell denotes a missing value.
func IsBlank(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "na", "nan", "n/a", "null", "none", "-":
		return true
	}
	return false
}

// NormalizeCode converts "3", "3.0" or " 3 " to "3".
func NormalizeCode(v string) (string, bool) {
	v = strings.TrimSpace(v)
	if n, err := strconv.Atoi(v); err == nil {
		return strconv.Itoa(n), true
	}
	fv, err := strconv.ParseFloat(v, 64)
	if err != nil || fv != float64(int64(fv)) {
		return "", false
	}
	return strconv.FormatInt(int64(fv), 10), true
}

// ParseFlag interprets a program membership cell.
func ParseFlag(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "1.0", "true", "t", "yes", "y", "x":
		return true
	}
	return false
}
