package tableio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// table is a CSV sheet whose first row is the header and whose first column
// holds the row keys
type table struct {
	header []string
	keys   []string
	rows   map[string]map[string]string
}

func newCSVReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	return cr
}

func readTable(r io.Reader) (*table, error) {
	cr := newCSVReader(r)
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("empty sheet")
	}
	if err != nil {
		return nil, err
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	t := &table{rows: make(map[string]map[string]string)}
	for _, h := range header[1:] {
		t.header = append(t.header, strings.TrimSpace(h))
	}

	for line := 2; ; line++ {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		key := strings.TrimSpace(record[0])
		if key == "" {
			continue
		}
		if _, dup := t.rows[key]; dup {
			return nil, fmt.Errorf("line %d: duplicate row %q", line, key)
		}
		row := make(map[string]string)
		for i, cell := range record[1:] {
			if i >= len(t.header) {
				return nil, fmt.Errorf("line %d: more cells than header columns", line)
			}
			// blank cells are missing entries, not "x"
			if cell = strings.TrimSpace(cell); cell != "" {
				row[t.header[i]] = cell
			}
		}
		t.keys = append(t.keys, key)
		t.rows[key] = row
	}
	return t, nil
}

// oxCell reads an "o"/"x" mark; anything but "o" is false
func oxCell(s string) bool {
	return strings.ToLower(strings.TrimSpace(s)) == "o"
}

func readOX(r io.Reader) (map[string]map[string]bool, []string, error) {
	t, err := readTable(r)
	if err != nil {
		return nil, nil, err
	}
	out := make(map[string]map[string]bool, len(t.rows))
	for key, row := range t.rows {
		out[key] = make(map[string]bool, len(row))
		for col, cell := range row {
			out[key][col] = oxCell(cell)
		}
	}
	return out, t.header, nil
}

// ReadAvailabilities reads the employee x day sheet and returns the day
// columns in sheet order
func ReadAvailabilities(r io.Reader) (map[string]map[string]bool, []string, error) {
	return readOX(r)
}

// ReadCapabilities reads the employee x role sheet and returns the role
// columns in sheet order
func ReadCapabilities(r io.Reader) (map[string]map[string]bool, []string, error) {
	return readOX(r)
}

// readPairs reads a headerless two-column sheet
func readPairs(r io.Reader) ([][2]string, error) {
	cr := newCSVReader(r)
	var out [][2]string
	for line := 1; ; line++ {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		if line == 1 && len(record) > 0 {
			record[0] = strings.TrimPrefix(record[0], "\ufeff")
		}
		key := strings.TrimSpace(record[0])
		if key == "" {
			continue
		}
		if len(record) < 2 {
			return nil, fmt.Errorf("line %d: want 2 columns, got %d", line, len(record))
		}
		out = append(out, [2]string{key, strings.TrimSpace(record[1])})
	}
}

// ReadFullTime reads the headerless "name, o/x" sheet
func ReadFullTime(r io.Reader) (map[string]bool, error) {
	pairs, err := readPairs(r)
	if err != nil {
		return nil, err
	}
	out := make(map[string]bool, len(pairs))
	for _, p := range pairs {
		out[p[0]] = oxCell(p[1])
	}
	return out, nil
}

// ReadWeights reads the headerless "name, weight" sheet
func ReadWeights(r io.Reader) (map[string]float64, error) {
	pairs, err := readPairs(r)
	if err != nil {
		return nil, err
	}
	out := make(map[string]float64, len(pairs))
	for _, p := range pairs {
		w, err := strconv.ParseFloat(p[1], 64)
		if err != nil {
			return nil, fmt.Errorf("weight of %q: %w", p[0], err)
		}
		out[p[0]] = w
	}
	return out, nil
}

// ReadHeadcount reads the weekday x role sheet of required headcounts
func ReadHeadcount(r io.Reader) (map[string]map[string]int, error) {
	t, err := readTable(r)
	if err != nil {
		return nil, err
	}
	out := make(map[string]map[string]int, len(t.rows))
	for day, row := range t.rows {
		out[day] = make(map[string]int, len(row))
		for role, cell := range row {
			f, err := strconv.ParseFloat(cell, 64)
			if err != nil || f != float64(int(f)) {
				return nil, fmt.Errorf("headcount %s/%s: %q is not a whole number", day, role, cell)
			}
			out[day][role] = int(f)
		}
	}
	return out, nil
}
