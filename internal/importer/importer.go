// Package importer decodes contact files (vCard from a phone export, CSV from
// a spreadsheet) into roster rows. Column and key spelling is normalized here
// and nowhere else.
package importer

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/jmehdipour/salon-campaigns/internal/model"
	"github.com/jmehdipour/salon-campaigns/internal/util"
	"golang.org/x/text/encoding/charmap"
)

// DefaultService is recorded as the last service of imported contacts.
const DefaultService = "Import"

var ErrUnsupportedFormat = errors.New("unsupported contact file format")

type Contact struct {
	Name        string `json:"name"`
	Phone       string `json:"phone"`
	LastService string `json:"last_service"`
}

func (c Contact) Recipient(tenantID string) model.Recipient {
	return model.Recipient{TenantID: tenantID, Name: c.Name, Phone: c.Phone, LastService: c.LastService}
}

type Result struct {
	Contacts []Contact `json:"contacts"`
	Total    int       `json:"total"`
	Imported int       `json:"imported"`
	Skipped  int       `json:"skipped"`
	Errors   []string  `json:"errors,omitempty"`
}

func (r *Result) add(c Contact) {
	r.Total++
	r.Imported++
	r.Contacts = append(r.Contacts, c)
}

func (r *Result) skip(format string, args ...any) {
	r.Total++
	r.Skipped++
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// Parse picks the decoder by file extension.
func Parse(filename string, r io.Reader) (Result, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".vcf", ".vcard":
		return ParseVCard(r)
	case ".csv", ".txt":
		return ParseCSV(r)
	default:
		return Result{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(filename))
	}
}

// readText returns the content as UTF-8, falling back to Latin-1 for legacy exports.
func readText(r io.Reader) (string, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	raw = bytes.TrimPrefix(raw, []byte("\xef\xbb\xbf"))
	if utf8.Valid(raw) {
		return string(raw), nil
	}
	dec, err := charmap.ISO8859_1.NewDecoder().Bytes(raw)
	if err != nil {
		return "", fmt.Errorf("decode latin-1: %w", err)
	}
	return string(dec), nil
}

func normalizeContact(c Contact) Contact {
	c.Name = strings.Join(strings.Fields(c.Name), " ")
	c.Phone = util.NormalizePhone(c.Phone)
	c.LastService = strings.TrimSpace(c.LastService)
	if c.LastService == "" {
		c.LastService = DefaultService
	}
	return c
}
