package macpp

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Columns names the CSV header fields holding coordinates and marks.
type Columns struct {
	X    string
	Y    string
	Mark string
}

// DefaultColumns is x, y, mark.
var DefaultColumns = Columns{X: "x", Y: "y", Mark: "mark"}

// DataContainer holds the raw marked points read from a file, before a
// window is attached.
type DataContainer struct {
	X     []float64
	Y     []float64
	Marks []string
	Size  int
}

// NewDataContainer reads a CSV file with a header row.
func NewDataContainer(filePath string, cols Columns) (*DataContainer, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("cannot open filePath (%v): %w", filePath, err)
	}
	defer f.Close()
	dataContainer, err := ReadDataContainer(f, cols)
	if err != nil {
		return nil, fmt.Errorf("read %v: %w", filePath, err)
	}
	return dataContainer, nil
}

// ReadDataContainer parses CSV from r. Marks are trimmed of surrounding
// whitespace but otherwise compared exactly.
func ReadDataContainer(r io.Reader, cols Columns) (*DataContainer, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: missing header: %v", ErrConfiguration, err)
	}
	ix, iy, im := -1, -1, -1
	for i, h := range header {
		switch strings.TrimSpace(h) {
		case cols.X:
			ix = i
		case cols.Y:
			iy = i
		case cols.Mark:
			im = i
		}
	}
	if ix < 0 || iy < 0 || im < 0 {
		return nil, fmt.Errorf("%w: header %v lacks one of %q, %q, %q", ErrConfiguration, header, cols.X, cols.Y, cols.Mark)
	}

	dataContainer := new(DataContainer)
	line := 1
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %v: %w", line, err)
		}
		x, err := strconv.ParseFloat(strings.TrimSpace(record[ix]), 64)
		if err != nil {
			return nil, fmt.Errorf("line %v: x: %w", line, err)
		}
		y, err := strconv.ParseFloat(strings.TrimSpace(record[iy]), 64)
		if err != nil {
			return nil, fmt.Errorf("line %v: y: %w", line, err)
		}
		dataContainer.X = append(dataContainer.X, x)
		dataContainer.Y = append(dataContainer.Y, y)
		dataContainer.Marks = append(dataContainer.Marks, strings.TrimSpace(record[im]))
	}
	dataContainer.Size = len(dataContainer.X)
	return dataContainer, nil
}

// Pattern attaches w to the loaded points.
func (dataContainer *DataContainer) Pattern(w *Window) (*Pattern, error) {
	return NewPattern(dataContainer.X, dataContainer.Y, dataContainer.Marks, w)
}
