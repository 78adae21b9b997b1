package feedback

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/sentimentd/sentimentd/sentiment"
)

// ImportCSV reads labeled documents from text,label records. A first record
// whose label column does not parse as a category is treated as a header and
// skipped. Extra columns are ignored; blank texts and unknown labels fail
// with their record number.
func ImportCSV(r io.Reader) ([]sentiment.Document, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var docs []sentiment.Document
	for record := 1; ; record++ {
		fields, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return docs, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read csv record %d: %w", record, err)
		}
		if len(fields) < 2 {
			return nil, fmt.Errorf("csv record %d: want text,label columns, got %d", record, len(fields))
		}

		label, ok := sentiment.ParseCategory(strings.TrimSpace(fields[1]))
		if !ok {
			if record == 1 {
				continue
			}
			return nil, fmt.Errorf("csv record %d: %w: %q", record, ErrInvalidCategory, fields[1])
		}

		text := strings.TrimSpace(fields[0])
		if text == "" {
			return nil, fmt.Errorf("csv record %d: %w", record, ErrEmptyText)
		}
		docs = append(docs, sentiment.Document{Text: text, Label: label})
	}
}

// ImportLines reads one document per non-blank line, all under label.
func ImportLines(r io.Reader, label sentiment.Category) ([]sentiment.Document, error) {
	if _, ok := sentiment.ParseCategory(string(label)); !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCategory, label)
	}

	scanner := bufio.NewScanner(r)
	var docs []sentiment.Document
	for scanner.Scan() {
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		docs = append(docs, sentiment.Document{Text: text, Label: label})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan lines: %w", err)
	}
	return docs, nil
}
