package export

import "fmt"

// Dataset is a titled table with optional summary lines printed after it.
type Dataset struct {
	Title   string
	Headers []string
	Rows    [][]string
	Summary []string
}

func (d Dataset) validate() error {
	if len(d.Headers) == 0 {
		return fmt.Errorf("export requires at least one header")
	}
	for i, row := range d.Rows {
		if len(row) != len(d.Headers) {
			return fmt.Errorf("row %d has %d cells, want %d", i, len(row), len(d.Headers))
		}
	}
	return nil
}
