// Package rules holds the declarative, per-carrier extraction rules: URLs,
// selectors, keyword sets and text patterns. Extractors read every
// markup-dependent detail from here so that adjusting to new page wording is
// a data change.
package rules

import (
	_ "embed"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"iphone-price-catalog/models"
	"iphone-price-catalog/utils"
)

//go:embed rules.yaml
var defaultRules []byte

var carrierKeys = map[models.Carrier]string{
	models.Rakuten:  "rakuten",
	models.Ahamo:    "ahamo",
	models.UQMobile: "uq",
	models.AU:       "au",
	models.SoftBank: "softbank",
	models.Docomo:   "docomo",
}

// Mapping is one entry of an ordered key/value list.
type Mapping struct {
	Key   string `yaml:"key"`
	Value string `yaml:"value"`
}

// Ruleset is the extraction rules of one carrier.
type Ruleset struct {
	URLs        map[string]string    `yaml:"urls"`
	SettleMs    map[string]int       `yaml:"settle_ms"`
	Selectors   map[string]string    `yaml:"selectors"`
	Lists       map[string][]string  `yaml:"lists"`
	Keywords    map[string][]string  `yaml:"keywords"`
	RowRoles    []string             `yaml:"row_roles"`
	RowKeywords map[string][]string  `yaml:"row_keywords"`
	Patterns    map[string]string    `yaml:"patterns"`
	Limits      map[string]int       `yaml:"limits"`
	Slugs       []string             `yaml:"slugs"`
	Mappings    map[string][]Mapping `yaml:"mappings"`

	name     string
	compiled map[string]*regexp.Regexp
}

// Rules is the full rule document.
type Rules struct {
	Carriers map[string]*Ruleset `yaml:"carriers"`
}

// Requirements lists the roles an extractor reads.
type Requirements struct {
	URLs      []string
	Selectors []string
	Lists     []string
	Keywords  []string
	Patterns  []string
	Limits    []string
	Mappings  []string
}

// Load parses the embedded rules.
func Load() (*Rules, error) {
	return Parse(defaultRules)
}

// MustLoad is Load that panics on error. The embedded rules are covered by
// tests, so a failure here is a programming error.
func MustLoad() *Rules {
	r, err := Load()
	if err != nil {
		panic(err)
	}
	return r
}

// Parse decodes a rules document, folds keywords and compiles patterns.
func Parse(data []byte) (*Rules, error) {
	var r Rules
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("rules: decode: %w", err)
	}
	if len(r.Carriers) == 0 {
		return nil, fmt.Errorf("rules: no carriers defined")
	}

	for name, rs := range r.Carriers {
		if rs == nil {
			return nil, fmt.Errorf("rules: carrier %q is empty", name)
		}
		rs.name = name
		rs.Keywords = foldKeywords(rs.Keywords)
		rs.RowKeywords = foldKeywords(rs.RowKeywords)

		for _, role := range rs.RowRoles {
			if len(rs.RowKeywords[role]) == 0 {
				return nil, fmt.Errorf("rules: %s: row role %q has no keywords", name, role)
			}
		}

		rs.compiled = make(map[string]*regexp.Regexp, len(rs.Patterns))
		for role, src := range rs.Patterns {
			re, err := regexp.Compile(src)
			if err != nil {
				return nil, fmt.Errorf("rules: %s: pattern %q: %w", name, role, err)
			}
			rs.compiled[role] = re
		}
	}
	return &r, nil
}

// For returns the ruleset of a carrier.
func (r *Rules) For(c models.Carrier) (*Ruleset, error) {
	key, ok := carrierKeys[c]
	if !ok {
		return nil, fmt.Errorf("rules: unknown carrier %q", c)
	}
	rs, ok := r.Carriers[key]
	if !ok {
		return nil, fmt.Errorf("rules: no ruleset for %q", c)
	}
	return rs, nil
}

// Require reports every role in req that the ruleset does not define.
func (rs *Ruleset) Require(req Requirements) error {
	var missing []string
	check := func(kind string, roles []string, has func(string) bool) {
		for _, role := range roles {
			if !has(role) {
				missing = append(missing, kind+"."+role)
			}
		}
	}
	check("urls", req.URLs, func(k string) bool { _, ok := rs.URLs[k]; return ok })
	check("selectors", req.Selectors, func(k string) bool { _, ok := rs.Selectors[k]; return ok })
	check("lists", req.Lists, func(k string) bool { _, ok := rs.Lists[k]; return ok })
	check("keywords", req.Keywords, func(k string) bool { _, ok := rs.Keywords[k]; return ok })
	check("patterns", req.Patterns, func(k string) bool { _, ok := rs.compiled[k]; return ok })
	check("limits", req.Limits, func(k string) bool { _, ok := rs.Limits[k]; return ok })
	check("mappings", req.Mappings, func(k string) bool { _, ok := rs.Mappings[k]; return ok })

	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("rules: %s: missing %s", rs.name, strings.Join(missing, ", "))
	}
	return nil
}

func (rs *Ruleset) URL(role string) string {
	return mustGet(rs, "urls", rs.URLs, role)
}

// Settle returns the post-navigation wait for a page role; unset roles wait 0.
func (rs *Ruleset) Settle(role string) time.Duration {
	return time.Duration(rs.SettleMs[role]) * time.Millisecond
}

func (rs *Ruleset) Selector(role string) string {
	return mustGet(rs, "selectors", rs.Selectors, role)
}

func (rs *Ruleset) List(role string) []string {
	return mustGet(rs, "lists", rs.Lists, role)
}

func (rs *Ruleset) KeywordList(role string) []string {
	return mustGet(rs, "keywords", rs.Keywords, role)
}

func (rs *Ruleset) Pattern(role string) *regexp.Regexp {
	return mustGet(rs, "patterns", rs.compiled, role)
}

func (rs *Ruleset) Limit(role string) int {
	return mustGet(rs, "limits", rs.Limits, role)
}

func (rs *Ruleset) Mapping(role string) []Mapping {
	return mustGet(rs, "mappings", rs.Mappings, role)
}

// ContainsAny reports whether text, once folded, contains any keyword of role.
func (rs *Ruleset) ContainsAny(role, text string) bool {
	return containsAny(utils.Fold(text), rs.KeywordList(role))
}

// ContainsAll reports whether text, once folded, contains every keyword of role.
func (rs *Ruleset) ContainsAll(role, text string) bool {
	folded := utils.Fold(text)
	for _, kw := range rs.KeywordList(role) {
		if !strings.Contains(folded, kw) {
			return false
		}
	}
	return true
}

// ClassifyRow returns the first row role whose keywords occur in header, or
// "" when none does.
func (rs *Ruleset) ClassifyRow(header string) string {
	folded := utils.Fold(header)
	for _, role := range rs.RowRoles {
		if containsAny(folded, rs.RowKeywords[role]) {
			return role
		}
	}
	return ""
}

// Lookup returns the value of the first mapping whose key occurs in s.
func (rs *Ruleset) Lookup(role, s string) (string, bool) {
	for _, m := range rs.Mapping(role) {
		if strings.Contains(s, m.Key) {
			return m.Value, true
		}
	}
	return "", false
}

func containsAny(folded string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(folded, kw) {
			return true
		}
	}
	return false
}

func foldKeywords(in map[string][]string) map[string][]string {
	out := make(map[string][]string, len(in))
	for role, kws := range in {
		folded := make([]string, len(kws))
		for i, kw := range kws {
			folded[i] = utils.Fold(kw)
		}
		out[role] = folded
	}
	return out
}

func mustGet[V any](rs *Ruleset, kind string, m map[string]V, role string) V {
	v, ok := m[role]
	if !ok {
		panic(fmt.Sprintf("rules: %s: %s.%s is not defined", rs.name, kind, role))
	}
	return v
}
