package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

var ErrMissingColumns = errors.New("csv: name and phone columns are required")

var columnAliases = map[string]string{
	"imie":            "name",
	"imię":            "name",
	"imie i nazwisko": "name",
	"imię i nazwisko": "name",
	"name":            "name",
	"full name":       "name",
	"klientka":        "name",
	"telefon":         "phone",
	"tel":             "phone",
	"phone":           "phone",
	"phone number":    "phone",
	"numer":           "phone",
	"zabieg":          "service",
	"ostatni zabieg":  "service",
	"ostatni_zabieg":  "service",
	"service":         "service",
	"last service":    "service",
	"last_service":    "service",
}

// ParseCSV reads a header row and the data rows below it. Both ',' and ';'
// separated files are accepted.
func ParseCSV(r io.Reader) (Result, error) {
	text, err := readText(r)
	if err != nil {
		return Result{}, err
	}

	cr := csv.NewReader(strings.NewReader(text))
	cr.Comma = sniffDelimiter(text)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return Result{}, nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("csv header: %w", err)
	}

	cols := map[string]int{}
	for i, h := range header {
		if canon, ok := columnAliases[strings.ToLower(strings.TrimSpace(h))]; ok {
			if _, dup := cols[canon]; !dup {
				cols[canon] = i
			}
		}
	}
	if _, ok := cols["name"]; !ok {
		return Result{}, ErrMissingColumns
	}
	if _, ok := cols["phone"]; !ok {
		return Result{}, ErrMissingColumns
	}

	var res Result
	line := 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			res.skip("line %d: %v", line, err)
			continue
		}
		if blank(rec) {
			continue
		}

		c := normalizeContact(Contact{
			Name:        field(rec, cols, "name"),
			Phone:       field(rec, cols, "phone"),
			LastService: field(rec, cols, "service"),
		})
		switch {
		case c.Name == "":
			res.skip("line %d: missing name", line)
		case c.Phone == "":
			res.skip("line %d (%s): missing phone", line, c.Name)
		default:
			res.add(c)
		}
	}
	return res, nil
}

func field(rec []string, cols map[string]int, name string) string {
	i, ok := cols[name]
	if !ok || i >= len(rec) {
		return ""
	}
	return rec[i]
}

func blank(rec []string) bool {
	for _, f := range rec {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

func sniffDelimiter(text string) rune {
	first, _, _ := strings.Cut(text, "\n")
	if strings.Count(first, ";") > strings.Count(first, ",") {
		return ';'
	}
	return ','
}
