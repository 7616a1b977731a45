package export

import (
	"errors"
	"fmt"
	"iter"
	"strings"

	"canvas-finder/internal/domain"
)

// Delimiter separates the fields of a listing line. A literal '|' inside a
// field is always escaped, so an unescaped Delimiter can only be a separator.
const Delimiter = " || "

const fieldCount = 4

// FlatRecord is one module item with its course and module context.
type FlatRecord struct {
	CourseName string
	ModuleName string
	ItemTitle  string
	ItemURL    string
}

// Format flattens the successful courses into records ordered by course,
// then module position, then server item order. Sub headers are dropped;
// other items without a URL are kept with an empty URL field.
func Format(res domain.AggregateResult) []FlatRecord {
	var out []FlatRecord
	for _, c := range res.Successes {
		for _, m := range c.Modules {
			for _, it := range m.Items {
				if !it.Type.Navigable() {
					continue
				}
				out = append(out, FlatRecord{
					CourseName: c.Course.Name,
					ModuleName: m.Module.Name,
					ItemTitle:  it.Title,
					ItemURL:    it.URL,
				})
			}
		}
	}
	return out
}

var fieldEscaper = strings.NewReplacer(
	`\`, `\\`,
	`|`, `\|`,
	"\n", `\n`,
	"\r", `\r`,
	"\t", `\t`,
)

// EncodeLine renders r as a single line without a terminator.
func EncodeLine(r FlatRecord) string {
	return strings.Join([]string{
		fieldEscaper.Replace(r.CourseName),
		fieldEscaper.Replace(r.ModuleName),
		fieldEscaper.Replace(r.ItemTitle),
		fieldEscaper.Replace(r.ItemURL),
	}, Delimiter)
}

var errMalformed = errors.New("export: malformed line")

// ParseLine is the inverse of EncodeLine. A trailing line terminator is ignored.
func ParseLine(line string) (FlatRecord, error) {
	line = strings.TrimSuffix(line, "\n")
	line = strings.TrimSuffix(line, "\r")

	fields := make([]string, 0, fieldCount)
	var cur []byte
	for i := 0; i < len(line); i++ {
		switch b := line[i]; b {
		case '\\':
			if i+1 >= len(line) {
				return FlatRecord{}, fmt.Errorf("%w: dangling escape", errMalformed)
			}
			i++
			switch line[i] {
			case '\\':
				cur = append(cur, '\\')
			case '|':
				cur = append(cur, '|')
			case 'n':
				cur = append(cur, '\n')
			case 'r':
				cur = append(cur, '\r')
			case 't':
				cur = append(cur, '\t')
			default:
				return FlatRecord{}, fmt.Errorf("%w: unknown escape \\%c", errMalformed, line[i])
			}
		case '|':
			// the leading space of the delimiter was already copied into cur.
			// A bare "||" at the end is a delimiter whose trailing space was trimmed.
			atEnd := line[i:] == "||"
			if len(cur) == 0 || cur[len(cur)-1] != ' ' || !(atEnd || strings.HasPrefix(line[i:], "|| ")) {
				return FlatRecord{}, fmt.Errorf("%w: stray '|' at %d", errMalformed, i)
			}
			fields = append(fields, string(cur[:len(cur)-1]))
			cur = nil
			i += len("|| ") - 1
		default:
			cur = append(cur, b)
		}
	}
	fields = append(fields, string(cur))

	if len(fields) != fieldCount {
		return FlatRecord{}, fmt.Errorf("%w: expected %d fields, got %d", errMalformed, fieldCount, len(fields))
	}
	return FlatRecord{
		CourseName: fields[0],
		ModuleName: fields[1],
		ItemTitle:  fields[2],
		ItemURL:    fields[3],
	}, nil
}

// Lines yields the encoded form of each record.
func Lines(records []FlatRecord) iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, r := range records {
			if !yield(EncodeLine(r)) {
				return
			}
		}
	}
}
