// Package analytics turns stored responses into export tables, CSV text and
// per-question summaries.
package analytics

import (
	"encoding/json"
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"

	"formpulse/internal/apperr"
	"formpulse/internal/model"
)

// TimestampLayout renders SubmittedAt in export rows (UTC).
const TimestampLayout = "2006-01-02 15:04:05"

const missingIP = "N/A"

// FixedHeaders precede one column per question.
var FixedHeaders = []string{"Response ID", "Timestamp", "IP Address"}

// Table is a rectangular grid of strings: one header row and one row per
// response.
type Table struct {
	Headers []string
	Rows    [][]string
}

// BuildExportTable lays out responses against the survey's questions in
// question order. A response without an answer for a question gets an
// empty cell.
func BuildExportTable(questions []model.Question, responses []model.ResponseRecord) (Table, error) {
	if len(responses) == 0 {
		return Table{}, apperr.ErrNoResponses
	}

	headers := make([]string, 0, len(FixedHeaders)+len(questions))
	headers = append(headers, FixedHeaders...)
	for _, q := range questions {
		headers = append(headers, q.Label())
	}

	rows := make([][]string, 0, len(responses))
	for i := range responses {
		r := &responses[i]
		ip := r.IP
		if ip == "" {
			ip = missingIP
		}
		row := make([]string, 0, len(headers))
		row = append(row, r.ID, r.SubmittedAt.UTC().Format(TimestampLayout), ip)
		for _, q := range questions {
			a, ok := r.AnswerFor(q.ID)
			if !ok {
				row = append(row, "")
				continue
			}
			row = append(row, Cell(a.Value))
		}
		rows = append(rows, row)
	}
	return Table{Headers: headers, Rows: rows}, nil
}

// Cell renders one answer value: collections are joined with ", ",
// objects become JSON and scalars their plain text. nil renders empty.
func Cell(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case json.Number:
		return t.String()
	case time.Time:
		return t.UTC().Format(time.RFC3339)
	case fmt.Stringer:
		return t.String()
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		parts := make([]string, rv.Len())
		for i := range parts {
			parts[i] = Cell(rv.Index(i).Interface())
		}
		return strings.Join(parts, ", ")
	case reflect.Map, reflect.Struct:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(b)
	case reflect.Ptr:
		if rv.IsNil() {
			return ""
		}
		return Cell(rv.Elem().Interface())
	}
	return fmt.Sprint(v)
}

// SerializeCSV renders the table with every field quoted, embedded quotes
// doubled and rows separated by "\n".
func SerializeCSV(t Table) string {
	var b strings.Builder
	writeRow(&b, t.Headers)
	for _, row := range t.Rows {
		b.WriteByte('\n')
		writeRow(&b, row)
	}
	return b.String()
}

func writeRow(b *strings.Builder, fields []string) {
	for i, f := range fields {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('"')
		b.WriteString(strings.ReplaceAll(f, `"`, `""`))
		b.WriteByte('"')
	}
}

var nonAlnum = regexp.MustCompile(`[^A-Za-z0-9]`)

// ExportFilename derives the download name from a survey title.
func ExportFilename(title string) string {
	return nonAlnum.ReplaceAllString(title, "_") + "_responses.csv"
}

// ExportCSV builds the table and serializes it in one step.
func ExportCSV(questions []model.Question, responses []model.ResponseRecord) (string, error) {
	t, err := BuildExportTable(questions, responses)
	if err != nil {
		return "", err
	}
	return SerializeCSV(t), nil
}
