package train

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"
)

// CSVLogger writes one row per evaluation to a CSV file.
type CSVLogger struct {
	BaseCallback
	Filename string
	Append   bool

	file   *os.File
	writer *csv.Writer
	start  time.Time
	err    error
}

var csvHeader = []string{"run_id", "iteration", "lr", "total", "correct", "rate", "loss", "time_seconds"}

// NewCSVLogger creates a new CSVLogger.
func NewCSVLogger(filename string, append bool) *CSVLogger {
	return &CSVLogger{
		Filename: filename,
		Append:   append,
	}
}

// Err returns the first error opening or writing the file.
func (c *CSVLogger) Err() error {
	return c.err
}

func (c *CSVLogger) OnTrainBegin(t *Trainer) {
	mode := os.O_CREATE | os.O_WRONLY
	if c.Append {
		mode |= os.O_APPEND
	} else {
		mode |= os.O_TRUNC
	}

	file, err := os.OpenFile(c.Filename, mode, 0644)
	if err != nil {
		c.err = fmt.Errorf("CSVLogger: failed to open file %s: %w", c.Filename, err)
		return
	}
	c.file = file
	c.writer = csv.NewWriter(file)
	c.start = time.Now()

	info, err := file.Stat()
	if err == nil && (info.Size() == 0 || !c.Append) {
		c.write(csvHeader)
	}
}

func (c *CSVLogger) write(record []string) {
	if err := c.writer.Write(record); err != nil && c.err == nil {
		c.err = fmt.Errorf("CSVLogger: failed to write record: %w", err)
	}
	c.writer.Flush()
}

func (c *CSVLogger) record(i int, r Result, t *Trainer) {
	if c.writer == nil {
		return
	}
	c.write([]string{
		t.RunID().String(),
		strconv.Itoa(i),
		strconv.FormatFloat(t.LR(), 'g', -1, 64),
		strconv.Itoa(r.Total),
		strconv.Itoa(r.Correct),
		fmt.Sprintf("%.6f", r.Rate()),
		fmt.Sprintf("%.6f", r.Loss),
		fmt.Sprintf("%.2f", time.Since(c.start).Seconds()),
	})
}

func (c *CSVLogger) OnEvaluate(i int, r Result, t *Trainer) {
	c.record(i, r, t)
}

// OnTrainEnd writes the final evaluation and closes the file.
func (c *CSVLogger) OnTrainEnd(r Result, t *Trainer) {
	c.record(t.Iteration(), r, t)
	if c.file != nil {
		c.writer.Flush()
		if err := c.file.Close(); err != nil && c.err == nil {
			c.err = err
		}
		c.file = nil
		c.writer = nil
	}
}
