// Package csvparser reads campaign recipient lists uploaded as CSV.
package csvparser

import (
	"encoding/csv"
	"errors"
	"io"
	"strings"
)

// DefaultMaxRows caps a recipient list when the caller gives no limit.
const DefaultMaxRows = 10000

var (
	ErrNoEmailColumn = errors.New("csv must contain an Email column")
	ErrNoRecipients  = errors.New("csv must contain at least one recipient")
	ErrTooManyRows   = errors.New("csv exceeds the recipient limit")
)

// ParseRecipients reads a CSV with a header row containing an "Email"
// column (case-insensitive) and returns the addresses in file order.
// Blank and repeated addresses are skipped. Other columns are ignored.
func ParseRecipients(r io.Reader, maxRows int) ([]string, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	headers, err := reader.Read()
	if err == io.EOF {
		return nil, ErrNoRecipients
	}
	if err != nil {
		return nil, err
	}

	emailIdx := -1
	for i, h := range headers {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if strings.EqualFold(h, "email") {
			emailIdx = i
			break
		}
	}
	if emailIdx == -1 {
		return nil, ErrNoEmailColumn
	}

	if maxRows <= 0 {
		maxRows = DefaultMaxRows
	}

	seen := make(map[string]struct{})
	emails := make([]string, 0)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if emailIdx >= len(record) {
			// skip short row
			continue
		}

		email := strings.TrimSpace(record[emailIdx])
		if email == "" {
			continue
		}
		key := strings.ToLower(email)
		if _, dup := seen[key]; dup {
			continue
		}
		if len(emails) == maxRows {
			return nil, ErrTooManyRows
		}
		seen[key] = struct{}{}
		emails = append(emails, email)
	}

	if len(emails) == 0 {
		return nil, ErrNoRecipients
	}

	return emails, nil
}
