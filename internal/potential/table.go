package potential

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// WriteTable writes a tabulated potential in the three-column layout
// consumed by the engine's table-pair feature: radius, value, force.
func WriteTable(path string, r, v []float64) error {
	if len(r) != len(v) {
		return &SizeMismatchError{Op: "write table", Want: len(r), Got: len(v)}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	force := Force(r, v)
	for i := range r {
		fmt.Fprintf(w, "%.18e %.18e %.18e\n", r[i], v[i], force[i])
	}
	return w.Flush()
}

// ReadTable reads a whitespace-separated numeric table and returns its
// columns. Blank lines and lines starting with '#' are skipped.
func ReadTable(path string) ([][]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cols [][]float64
	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		if cols == nil {
			cols = make([][]float64, len(fields))
		}
		if len(fields) != len(cols) {
			return nil, fmt.Errorf("%s:%d: expected %d columns, got %d", path, line, len(cols), len(fields))
		}
		for i, field := range fields {
			x, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("%s:%d: %w", path, line, err)
			}
			cols[i] = append(cols[i], x)
		}
	}
	return cols, scanner.Err()
}
