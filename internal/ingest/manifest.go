package ingest

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported catalog format")
	ErrBadHeader         = errors.New("catalog sheet is missing required columns")
)

// Manifest is one catalog export: cross-list groups plus extra alias rows.
// Courses are referenced by code, never by database id.
type Manifest struct {
	Source  string       `yaml:"source"`
	Groups  []GroupEntry `yaml:"groups"`
	Aliases []AliasEntry `yaml:"aliases"`
}

type GroupEntry struct {
	ID        string   `yaml:"id"`
	Canonical string   `yaml:"canonical"`
	Members   []string `yaml:"members"`
}

type AliasEntry struct {
	SourceCode  string `yaml:"source_code"`
	Canonical   string `yaml:"canonical"`
	SubjectCode string `yaml:"subject_code"`
	CourseUUID  string `yaml:"course_uuid"`
}

// Load reads a .yaml/.yml or .xlsx manifest from path.
func Load(path string) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseYAML(f)
	case ".xlsx":
		return ParseXLSX(f)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

func ParseYAML(r io.Reader) (*Manifest, error) {
	var m Manifest
	if err := yaml.NewDecoder(r).Decode(&m); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse catalog yaml: %w", err)
	}
	return &m, nil
}

// ─── XLSX ───────────────────────────────────────────────────────────
//
// Sheet "groups":  group_id | canonical | members   (members split on ";" or "/")
// Sheet "aliases": source_code | canonical | subject_code | course_uuid
// Header order is free; either sheet may be absent.

const (
	groupsSheet  = "groups"
	aliasesSheet = "aliases"
)

func ParseXLSX(r io.Reader) (*Manifest, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open catalog workbook: %w", err)
	}
	defer f.Close()

	m := &Manifest{}
	for _, sheet := range f.GetSheetList() {
		switch strings.ToLower(strings.TrimSpace(sheet)) {
		case groupsSheet:
			rows, err := f.GetRows(sheet)
			if err != nil {
				return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
			}
			if m.Groups, err = parseGroupRows(rows); err != nil {
				return nil, fmt.Errorf("sheet %q: %w", sheet, err)
			}
		case aliasesSheet:
			rows, err := f.GetRows(sheet)
			if err != nil {
				return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
			}
			if m.Aliases, err = parseAliasRows(rows); err != nil {
				return nil, fmt.Errorf("sheet %q: %w", sheet, err)
			}
		}
	}
	return m, nil
}

func parseGroupRows(rows [][]string) ([]GroupEntry, error) {
	if len(rows) == 0 {
		return nil, nil
	}
	col := headerIndex(rows[0])
	if col["group_id"] < 0 || col["canonical"] < 0 || col["members"] < 0 {
		return nil, ErrBadHeader
	}

	var out []GroupEntry
	for _, row := range rows[1:] {
		g := GroupEntry{
			ID:        cell(row, col["group_id"]),
			Canonical: cell(row, col["canonical"]),
			Members:   splitMembers(cell(row, col["members"])),
		}
		if g.ID == "" && g.Canonical == "" && len(g.Members) == 0 {
			continue
		}
		out = append(out, g)
	}
	return out, nil
}

func parseAliasRows(rows [][]string) ([]AliasEntry, error) {
	if len(rows) == 0 {
		return nil, nil
	}
	col := headerIndex(rows[0])
	if col["source_code"] < 0 || col["canonical"] < 0 {
		return nil, ErrBadHeader
	}

	var out []AliasEntry
	for _, row := range rows[1:] {
		a := AliasEntry{
			SourceCode:  cell(row, col["source_code"]),
			Canonical:   cell(row, col["canonical"]),
			SubjectCode: cell(row, col["subject_code"]),
			CourseUUID:  cell(row, col["course_uuid"]),
		}
		if a.SourceCode == "" && a.Canonical == "" {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

// headerIndex maps known column names to their position, -1 when absent.
func headerIndex(header []string) map[string]int {
	idx := map[string]int{
		"group_id": -1, "canonical": -1, "members": -1,
		"source_code": -1, "subject_code": -1, "course_uuid": -1,
	}
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(h))
		key = strings.ReplaceAll(key, " ", "_")
		if _, ok := idx[key]; ok {
			idx[key] = i
		}
	}
	return idx
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func splitMembers(s string) []string {
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == ';' || r == '/' || r == '\n' })
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
