package coursecode

import (
	"regexp"
	"sort"
)

// codePattern splits "COMP SCI 577" or "CS577" into department and number.
var codePattern = regexp.MustCompile(`^(\D+?)\s*(\d+)$`)

// Normalizer expands and converts codes against one DepartmentAliases table.
// It holds no mutable state and is safe for concurrent use.
type Normalizer struct {
	aliases *DepartmentAliases
}

func NewNormalizer(aliases *DepartmentAliases) *Normalizer {
	return &Normalizer{aliases: aliases}
}

// ExpandDepartment returns every spelling equivalent to token, sorted.
// Unknown tokens come back as a single normalized element.
func (n *Normalizer) ExpandDepartment(token string) []string {
	t := Normalize(token)

	if group, ok := n.aliases.lookup(t); ok {
		return append([]string(nil), group...)
	}
	if group, ok := n.aliases.lookupCompact(t); ok {
		return uniqueSorted(append(append([]string(nil), group...), t))
	}
	return []string{t}
}

// ExpandSearch expands a search phrase. "computer science 577" yields
// "CS 577", "COMP SCI 577" and the other spellings of the department, each
// with the course number re-appended. Phrases without a trailing number are
// expanded as a department. The normalized query is always included.
func (n *Normalizer) ExpandSearch(query string) []string {
	q := Normalize(query)

	dept, number, ok := splitCode(q)
	if !ok {
		return uniqueSorted(append(n.ExpandDepartment(q), q))
	}

	expanded := n.ExpandDepartment(dept)
	terms := make([]string, 0, len(expanded)+1)
	for _, d := range expanded {
		terms = append(terms, d+" "+number)
	}
	terms = append(terms, q)
	return uniqueSorted(terms)
}

// ToOfficialCode converts a stored short code ("CS 577") into the code shown
// to users ("COMP SCI 577"). Codes whose department has no official spelling
// are returned unchanged.
func (n *Normalizer) ToOfficialCode(storedCode string) string {
	return n.translate(storedCode, n.aliases.official)
}

// ToStoredCode is the inverse dictionary lookup of ToOfficialCode.
func (n *Normalizer) ToStoredCode(officialCode string) string {
	return n.translate(officialCode, n.aliases.stored)
}

func (n *Normalizer) translate(code string, dictionary map[string]string) string {
	dept, number, ok := splitCode(Normalize(code))
	if !ok {
		return code
	}
	mapped, ok := dictionary[dept]
	if !ok {
		return code
	}
	return mapped + " " + number
}

func splitCode(code string) (dept, number string, ok bool) {
	m := codePattern.FindStringSubmatch(code)
	if m == nil {
		return "", "", false
	}
	dept = Normalize(m[1])
	if dept == "" {
		return "", "", false
	}
	return dept, m[2], true
}

func uniqueSorted(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
