// Package coursecode normalizes course and department codes and expands
// department spellings into every equivalent form used across the catalog.
package coursecode

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed departments.yaml
var defaultDepartmentsYAML []byte

// ErrAmbiguousDepartment is returned when one spelling would belong to two groups.
var ErrAmbiguousDepartment = errors.New("department code belongs to more than one alias group")

// DepartmentFile is the on-disk shape of a department alias table.
type DepartmentFile struct {
	Groups   [][]string        `yaml:"groups"`
	Official map[string]string `yaml:"official"`
	Stored   map[string]string `yaml:"stored"`
}

// DepartmentAliases is an immutable table of interchangeable department
// spellings plus the short<->official code dictionaries. Build it once at
// startup and share it; nothing mutates it after construction.
type DepartmentAliases struct {
	groups    [][]string
	byCode    map[string]int
	byCompact map[string]int
	official  map[string]string
	stored    map[string]string
}

// NewDepartmentAliases validates and indexes the given groups. Groups must be
// disjoint, both by exact spelling and with whitespace removed.
func NewDepartmentAliases(groups [][]string, official, stored map[string]string) (*DepartmentAliases, error) {
	d := &DepartmentAliases{
		byCode:    make(map[string]int),
		byCompact: make(map[string]int),
		official:  normalizeDictionary(official),
		stored:    normalizeDictionary(stored),
	}

	for _, raw := range groups {
		idx := len(d.groups)
		members := make([]string, 0, len(raw))
		for _, code := range raw {
			n := Normalize(code)
			if n == "" {
				continue
			}
			if prev, ok := d.byCode[n]; ok {
				if prev == idx {
					continue
				}
				return nil, fmt.Errorf("%w: %q", ErrAmbiguousDepartment, n)
			}
			c := compact(n)
			if prev, ok := d.byCompact[c]; ok && prev != idx {
				return nil, fmt.Errorf("%w: %q (as %q)", ErrAmbiguousDepartment, n, c)
			}
			d.byCode[n] = idx
			d.byCompact[c] = idx
			members = append(members, n)
		}
		if len(members) == 0 {
			continue
		}
		sort.Strings(members)
		d.groups = append(d.groups, members)
	}

	return d, nil
}

// ParseDepartmentAliases builds a table from YAML.
func ParseDepartmentAliases(data []byte) (*DepartmentAliases, error) {
	var f DepartmentFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse department aliases: %w", err)
	}
	return NewDepartmentAliases(f.Groups, f.Official, f.Stored)
}

// LoadDepartmentAliases reads the table at path, or the built-in table when path is empty.
func LoadDepartmentAliases(path string) (*DepartmentAliases, error) {
	if path == "" {
		return DefaultDepartmentAliases()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read department aliases: %w", err)
	}
	return ParseDepartmentAliases(data)
}

// DefaultDepartmentAliases returns the built-in UW-Madison table.
func DefaultDepartmentAliases() (*DepartmentAliases, error) {
	return ParseDepartmentAliases(defaultDepartmentsYAML)
}

// GroupCount reports how many alias groups the table holds.
func (d *DepartmentAliases) GroupCount() int {
	return len(d.groups)
}

func (d *DepartmentAliases) lookup(code string) ([]string, bool) {
	if idx, ok := d.byCode[code]; ok {
		return d.groups[idx], true
	}
	return nil, false
}

func (d *DepartmentAliases) lookupCompact(code string) ([]string, bool) {
	if idx, ok := d.byCompact[compact(code)]; ok {
		return d.groups[idx], true
	}
	return nil, false
}

func normalizeDictionary(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[Normalize(k)] = Normalize(v)
	}
	return out
}

// Normalize uppercases s, trims it and collapses internal whitespace runs to one space.
func Normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToUpper(s)), " ")
}

func compact(s string) string {
	return strings.Join(strings.Fields(s), "")
}
