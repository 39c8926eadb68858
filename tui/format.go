// format.go renders execution results, generated SQL and errors as text
// for the workspace. The functions are pure so the CLI can reuse them.
package tui

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/DachengChen/askSQL/ai"
	"github.com/DachengChen/askSQL/db"
	"github.com/charmbracelet/x/ansi"
)

const maxCellWidth = 50

// FormatValue renders one cell.
func FormatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return "NULL"
	case string:
		return t
	case time.Time:
		if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
			return t.Format("2006-01-02")
		}
		return t.Format("2006-01-02 15:04:05")
	case bool:
		if t {
			return "1"
		}
		return "0"
	default:
		return fmt.Sprint(t)
	}
}

// FormatTable renders a read result as aligned text lines with a row count
// footer.
func FormatTable(r *db.TableResult) []string {
	if r == nil || len(r.Columns) == 0 {
		return []string{"(no columns)"}
	}

	cells := make([][]string, len(r.Rows))
	widths := make([]int, len(r.Columns))
	for i, col := range r.Columns {
		widths[i] = ansi.StringWidth(col)
	}
	for ri, row := range r.Rows {
		cells[ri] = make([]string, len(r.Columns))
		for i := range r.Columns {
			if i >= len(row) {
				continue
			}
			cell := cellBreaks.Replace(FormatValue(row[i]))
			cells[ri][i] = cell
			if w := ansi.StringWidth(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}
	for i := range widths {
		if widths[i] > maxCellWidth {
			widths[i] = maxCellWidth
		}
	}

	var lines []string
	header := ""
	for i, col := range r.Columns {
		header += " " + pad(clip(col, widths[i]), widths[i]) + " │"
	}
	seps := make([]string, len(widths))
	for i, w := range widths {
		seps[i] = strings.Repeat("─", w+2)
	}
	lines = append(lines, strings.TrimRight(header, "│"))
	lines = append(lines, strings.Join(seps, "┼"))
	for _, row := range cells {
		line := ""
		for i, cell := range row {
			line += " " + pad(clip(cell, widths[i]), widths[i]) + " │"
		}
		lines = append(lines, strings.TrimRight(line, "│"))
	}
	lines = append(lines, "", fmt.Sprintf("(%d %s)", len(r.Rows), plural(len(r.Rows), "row", "rows")))
	return lines
}

// cellBreaks flattens control whitespace that would split or misalign a row.
var cellBreaks = strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ", "\t", " ")

// clip shortens s to width terminal cells, marking the cut with an ellipsis.
func clip(s string, width int) string {
	if width < 1 {
		return s
	}
	return ansi.Truncate(s, width, "…")
}

// pad right-fills s with spaces to width terminal cells.
func pad(s string, width int) string {
	if n := width - ansi.StringWidth(s); n > 0 {
		return s + strings.Repeat(" ", n)
	}
	return s
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

// FormatAck renders a write acknowledgement.
func FormatAck(a *db.Ack) string {
	if a == nil {
		return ""
	}
	msg := a.Kind + " committed"
	if a.RowsAffected >= 0 {
		msg += fmt.Sprintf(" (%d %s affected)", a.RowsAffected, plural(int(a.RowsAffected), "row", "rows"))
	}
	if a.IdentityInsert != "" {
		msg += "; identity insert was enabled on " + a.IdentityInsert
	}
	return msg
}

// FormatResult renders either side of an ExecutionResult.
func FormatResult(res db.ExecutionResult) []string {
	if res.Table != nil {
		return FormatTable(res.Table)
	}
	return []string{"✓ " + FormatAck(res.Ack)}
}

// DescribeError turns a pipeline error into a user-facing message.
func DescribeError(err error) string {
	var (
		connErr   *db.ConnectionError
		schemaErr *db.SchemaError
		genErr    *ai.GenerationError
		execErr   *db.ExecutionError
	)
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ai.ErrEmptyRequest):
		return "Type a question first."
	case errors.As(err, &genErr):
		return "Could not generate SQL: " + genErr.Err.Error() + ". Try rephrasing the question."
	case errors.As(err, &connErr):
		return "Connection failed: " + connErr.Err.Error()
	case errors.As(err, &schemaErr):
		return "Could not " + schemaErr.Op + ": " + schemaErr.Err.Error()
	case errors.As(err, &execErr):
		return "Execution failed (" + execErr.Kind.String() + "): " + execErr.Err.Error()
	default:
		return err.Error()
	}
}

// ─── SQL highlighting ───────────────────────────────────────

type tokenKind int

const (
	tokPlain tokenKind = iota
	tokKeyword
	tokString
	tokNumber
)

type sqlToken struct {
	text string
	kind tokenKind
}

var sqlKeywords = map[string]bool{}

func init() {
	for _, k := range strings.Fields(`SELECT FROM WHERE AND OR NOT IN IS NULL LIKE BETWEEN
		INSERT INTO VALUES UPDATE SET DELETE MERGE USING MATCHED WHEN THEN ELSE END CASE
		JOIN INNER LEFT RIGHT FULL OUTER CROSS ON AS DISTINCT TOP LIMIT OFFSET FETCH NEXT ROWS ONLY
		GROUP BY ORDER HAVING ASC DESC UNION ALL EXCEPT INTERSECT WITH EXISTS
		COUNT SUM AVG MIN MAX CAST CONVERT COALESCE ISNULL
		CREATE ALTER DROP TABLE INDEX VIEW PRIMARY KEY FOREIGN REFERENCES DEFAULT RETURNING OUTPUT`) {
		sqlKeywords[k] = true
	}
}

// tokenizeSQL splits a statement into highlightable tokens. Concatenating
// the token texts yields the input unchanged.
func tokenizeSQL(q string) []sqlToken {
	var tokens []sqlToken
	runes := []rune(q)
	for i := 0; i < len(runes); {
		r := runes[i]
		switch {
		case r == '\'':
			j := i + 1
			for j < len(runes) {
				if runes[j] == '\'' {
					if j+1 < len(runes) && runes[j+1] == '\'' {
						j += 2
						continue
					}
					j++
					break
				}
				j++
			}
			tokens = append(tokens, sqlToken{string(runes[i:j]), tokString})
			i = j
		case unicode.IsLetter(r) || r == '_' || r == '@' || r == '#':
			j := i + 1
			for j < len(runes) && (unicode.IsLetter(runes[j]) || unicode.IsDigit(runes[j]) || runes[j] == '_' || runes[j] == '$' || runes[j] == '#') {
				j++
			}
			word := string(runes[i:j])
			kind := tokPlain
			if sqlKeywords[strings.ToUpper(word)] {
				kind = tokKeyword
			}
			tokens = append(tokens, sqlToken{word, kind})
			i = j
		case unicode.IsDigit(r):
			j := i + 1
			for j < len(runes) && (unicode.IsDigit(runes[j]) || runes[j] == '.') {
				j++
			}
			tokens = append(tokens, sqlToken{string(runes[i:j]), tokNumber})
			i = j
		default:
			tokens = append(tokens, sqlToken{string(r), tokPlain})
			i++
		}
	}
	return tokens
}

// HighlightSQL renders q with keywords, strings and numbers coloured.
func HighlightSQL(q string) string {
	var sb strings.Builder
	for _, t := range tokenizeSQL(q) {
		switch t.kind {
		case tokKeyword:
			sb.WriteString(StyleSQLKeyword.Render(t.text))
		case tokString:
			sb.WriteString(StyleSQLString.Render(t.text))
		case tokNumber:
			sb.WriteString(StyleSQLNumber.Render(t.text))
		default:
			sb.WriteString(t.text)
		}
	}
	return sb.String()
}

// renderKeyHelp joins key bindings for a help bar.
func renderKeyHelp(bindings []KeyBinding) string {
	var parts []string
	for _, h := range bindings {
		parts = append(parts, StyleHelpKey.Render(h.Key)+" "+StyleHelpDesc.Render(h.Desc))
	}
	return strings.Join(parts, StyleDimmed.Render("  │  "))
}
