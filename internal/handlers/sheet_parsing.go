package handlers

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/epeers/corpactions/internal/models"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ParseSheet decodes a delimited schedule file. The first metadataLines lines
// are kept verbatim, the next line is the header, and the remainder are data
// rows. Rows may be ragged. Any parse failure is fatal to the whole upload;
// no lookups start on a partially decoded sheet.
func ParseSheet(r io.Reader, metadataLines int) (*models.Sheet, error) {
	br := bufio.NewReader(r)

	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		if _, err := br.Discard(len(utf8BOM)); err != nil {
			return nil, fmt.Errorf("failed to skip BOM: %w", err)
		}
	}

	var meta []string
	for i := 0; i < metadataLines; i++ {
		line, err := br.ReadString('\n')
		if err == io.EOF && line == "" {
			return nil, fmt.Errorf("file ends before metadata line %d", i+1)
		}
		if err != nil && err != io.EOF {
			return nil, fmt.Errorf("failed to read metadata line %d: %w", i+1, err)
		}
		meta = append(meta, strings.TrimRight(line, "\r\n"))
	}

	reader := csv.NewReader(br)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("missing header row")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header row: %w", err)
	}

	var rows [][]string
	rowNum := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("row %d: failed to read record: %w", rowNum+1, err)
		}
		rowNum++
		rows = append(rows, record)
	}

	return &models.Sheet{
		MetadataLines: meta,
		Header:        header,
		Rows:          rows,
	}, nil
}
