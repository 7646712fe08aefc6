package dataset

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
)

// LoadCSV loads a corpus from a CSV file. labelCol is the index of the column
// holding the integer class label; all other columns are features, in order.
// hasHeader skips the first line if true. The number of classes is one more
// than the largest label seen.
func LoadCSV(filename string, labelCol int, hasHeader bool) (*Corpus, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}

	startRow := 0
	if hasHeader {
		startRow = 1
	}
	if len(records) <= startRow {
		return nil, fmt.Errorf("csv file has no data rows")
	}

	numCols := len(records[0])
	if labelCol < 0 || labelCol >= numCols {
		return nil, fmt.Errorf("label column %d out of range, file has %d columns", labelCol, numCols)
	}

	labels := make([]int, 0, len(records)-startRow)
	samples := make([][]float64, 0, len(records)-startRow)
	classes := 0
	for i := startRow; i < len(records); i++ {
		record := records[i]
		if len(record) != numCols {
			return nil, fmt.Errorf("inconsistent number of columns at row %d", i)
		}

		sample := make([]float64, 0, numCols-1)
		label := 0
		for j, s := range record {
			if j == labelCol {
				label, err = strconv.Atoi(s)
				if err != nil || label < 0 {
					return nil, fmt.Errorf("invalid label %q at row %d", s, i)
				}
				continue
			}
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, fmt.Errorf("failed to parse value at row %d, col %d: %w", i, j, err)
			}
			sample = append(sample, v)
		}
		labels = append(labels, label)
		samples = append(samples, sample)
		classes = max(classes, label+1)
	}

	c := NewCorpus(classes)
	for i, x := range samples {
		if err := c.Add(labels[i], x); err != nil {
			return nil, err
		}
	}
	return c, nil
}
