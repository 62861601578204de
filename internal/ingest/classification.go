package ingest

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Sheet names expected in the classification workbook, matched
// case-insensitively by substring.
const (
	classificationSheet = "classification"
	rosterSheet         = "stateowned"
)

func findSheet(names []string, want string) string {
	for _, name := range names {
		if strings.Contains(strings.ToLower(name), want) {
			return name
		}
	}
	return ""
}

// ReadClassification parses the business-classification workbook: a
// classification sheet mapping product -> class and subclass, plus a
// state-owned-entity roster sheet listing customer names. The
// classification sheet is structurally required; the roster is optional.
func ReadClassification(r io.Reader) (Mapping, Roster, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("error opening classification workbook, %s", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()

	classSheet := findSheet(sheets, classificationSheet)
	if classSheet == "" {
		return nil, nil, fmt.Errorf("classification workbook has no classification sheet")
	}
	rows, err := f.GetRows(classSheet)
	if err != nil {
		return nil, nil, fmt.Errorf("error reading sheet %s, %s", classSheet, err)
	}

	mapping := make(Mapping)
	for i, row := range rows {
		if i == 0 {
			continue // header
		}
		if len(row) == 0 || strings.TrimSpace(row[0]) == "" {
			continue
		}
		tags := Classification{}
		if len(row) > 1 {
			tags.Class = strings.TrimSpace(row[1])
		}
		if len(row) > 2 {
			tags.Subclass = strings.TrimSpace(row[2])
		}
		mapping[strings.TrimSpace(row[0])] = tags
	}
	if len(mapping) == 0 {
		return nil, nil, fmt.Errorf("classification sheet %s is empty", classSheet)
	}

	roster := make(Roster)
	if sheet := findSheet(sheets, rosterSheet); sheet != "" {
		rosterRows, err := f.GetRows(sheet)
		if err != nil {
			return nil, nil, fmt.Errorf("error reading sheet %s, %s", sheet, err)
		}
		for i, row := range rosterRows {
			if i == 0 || len(row) == 0 {
				continue
			}
			name := strings.TrimSpace(row[0])
			if name != "" {
				roster[name] = struct{}{}
			}
		}
	}

	return mapping, roster, nil
}

// LoadClassification reads the classification workbook from a file path.
func LoadClassification(path string) (Mapping, Roster, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("error opening classification file %s, %s", path, err)
	}
	defer f.Close()

	mapping, roster, err := ReadClassification(f)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %s", path, err)
	}
	return mapping, roster, nil
}
