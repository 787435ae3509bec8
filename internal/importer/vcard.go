package importer

import (
	"io"
	"strings"
)

// ParseVCard reads every BEGIN:VCARD … END:VCARD block. The first FN or N
// line gives the name, the first TEL line the phone; cards missing either are skipped.
func ParseVCard(r io.Reader) (Result, error) {
	text, err := readText(r)
	if err != nil {
		return Result{}, err
	}

	var (
		res    Result
		cur    Contact
		inCard bool
		card   int
	)

	for _, line := range unfold(text) {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		prop := property(key)

		switch {
		case prop == "BEGIN" && strings.EqualFold(value, "VCARD"):
			cur, inCard = Contact{}, true
			card++
		case !inCard:
			continue
		case prop == "FN" || prop == "N":
			if cur.Name == "" {
				cur.Name = strings.TrimSpace(strings.ReplaceAll(value, ";", " "))
			}
		case prop == "TEL":
			if cur.Phone == "" {
				cur.Phone = value
			}
		case prop == "END" && strings.EqualFold(value, "VCARD"):
			inCard = false
			c := normalizeContact(cur)
			switch {
			case c.Name == "":
				res.skip("card %d: missing name", card)
			case c.Phone == "":
				res.skip("card %d (%s): missing phone", card, c.Name)
			default:
				res.add(c)
			}
		}
	}

	return res, nil
}

// property strips parameters and group prefixes: "item1.TEL;TYPE=CELL" -> "TEL".
func property(key string) string {
	key, _, _ = strings.Cut(key, ";")
	if i := strings.LastIndex(key, "."); i >= 0 {
		key = key[i+1:]
	}
	return strings.ToUpper(strings.TrimSpace(key))
}

// unfold joins RFC 6350 continuation lines (leading space or tab).
func unfold(text string) []string {
	raw := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		if (strings.HasPrefix(l, " ") || strings.HasPrefix(l, "\t")) && len(lines) > 0 {
			lines[len(lines)-1] += l[1:]
			continue
		}
		lines = append(lines, strings.TrimRight(l, "\r"))
	}
	return lines
}
