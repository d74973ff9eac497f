// Package chart extracts numeric series from uploaded business data and
// draws them as horizontal bar charts for a terminal.
package chart

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// Series is one numeric column of a table, with a label per row.
type Series struct {
	Name   string
	Labels []string
	Values []float64
}

// MaxRows bounds the rows drawn per chart.
const MaxRows = 24

// Parse extracts the numeric columns of a CSV or JSON upload. Files it
// cannot read as a table yield no series.
func Parse(name string, data []byte) []Series {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return parseCSV(data)
	case ".json":
		return parseJSON(data)
	default:
		return nil
	}
}

func parseCSV(data []byte) []Series {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	rows, err := r.ReadAll()
	if err != nil || len(rows) < 2 {
		return nil
	}
	header, body := rows[0], rows[1:]

	cells := make([][]string, len(header))
	for c := range header {
		for _, row := range body {
			v := ""
			if c < len(row) {
				v = row[c]
			}
			cells[c] = append(cells[c], v)
		}
	}
	return tableSeries(header, cells)
}

func parseJSON(data []byte) []Series {
	var rows []map[string]any
	if err := json.Unmarshal(data, &rows); err != nil || len(rows) == 0 {
		return nil
	}

	seen := map[string]bool{}
	var header []string
	for _, row := range rows {
		keys := make([]string, 0, len(row))
		for k := range row {
			if !seen[k] {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		for _, k := range keys {
			seen[k] = true
			header = append(header, k)
		}
	}

	cells := make([][]string, len(header))
	for c, key := range header {
		for _, row := range rows {
			v := ""
			if raw, ok := row[key]; ok && raw != nil {
				v = fmt.Sprint(raw)
			}
			cells[c] = append(cells[c], v)
		}
	}
	return tableSeries(header, cells)
}

// tableSeries turns column-major cells into series. The first non-numeric
// column labels the rows; every fully numeric column becomes a series.
func tableSeries(header []string, cells [][]string) []Series {
	labelCol := -1
	numeric := make([][]float64, len(header))
	for c := range header {
		values, ok := parseColumn(cells[c])
		if ok {
			numeric[c] = values
		} else if labelCol < 0 {
			labelCol = c
		}
	}

	var out []Series
	for c, name := range header {
		if numeric[c] == nil {
			continue
		}
		s := Series{Name: strings.TrimSpace(name)}
		for i, v := range numeric[c] {
			label := strconv.Itoa(i + 1)
			if labelCol >= 0 {
				label = strings.TrimSpace(cells[labelCol][i])
			}
			s.Labels = append(s.Labels, label)
			s.Values = append(s.Values, v)
		}
		out = append(out, s)
	}
	return out
}

func parseColumn(cells []string) ([]float64, bool) {
	if len(cells) == 0 {
		return nil, false
	}
	values := make([]float64, 0, len(cells))
	for _, cell := range cells {
		v, err := parseNumber(cell)
		if err != nil {
			return nil, false
		}
		values = append(values, v)
	}
	return values, true
}

var numberCleaner = strings.NewReplacer("$", "", ",", "", "%", "", "€", "", "£", "", " ", "")

func parseNumber(s string) (float64, error) {
	s = numberCleaner.Replace(strings.TrimSpace(s))
	if s == "" {
		return 0, strconv.ErrSyntax
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	// ParseFloat accepts "inf" and "NaN"; neither can be drawn.
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, strconv.ErrSyntax
	}
	return v, nil
}

// Render draws s as horizontal bars no wider than width cells.
func Render(s Series, width int) string {
	if width < 10 {
		width = 10
	}
	n := len(s.Values)
	if n > MaxRows {
		n = MaxRows
	}

	labelWidth := 0
	maxValue := 0.0
	for i := 0; i < n; i++ {
		if w := len([]rune(s.Labels[i])); w > labelWidth {
			labelWidth = w
		}
		maxValue = math.Max(maxValue, s.Values[i])
	}

	var b strings.Builder
	for i := 0; i < n; i++ {
		bar := 0
		if maxValue > 0 && !math.IsInf(maxValue, 0) && s.Values[i] > 0 {
			bar = int(math.Round(s.Values[i] / maxValue * float64(width)))
		}
		fmt.Fprintf(&b, "%-*s │%s %s\n", labelWidth, s.Labels[i], strings.Repeat("█", bar), FormatValue(s.Values[i]))
	}
	if len(s.Values) > n {
		fmt.Fprintf(&b, "… %d more rows\n", len(s.Values)-n)
	}
	return b.String()
}

// FormatValue prints v with thousands separators and at most two decimals.
func FormatValue(v float64) string {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	neg := v < 0
	v = math.Abs(v)
	whole := math.Trunc(v)
	frac := math.Round((v-whole)*100) / 100
	if frac >= 1 {
		whole++
		frac = 0
	}

	digits := strconv.FormatFloat(whole, 'f', 0, 64)
	var b strings.Builder
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(d)
	}
	out := b.String()
	if frac > 0 {
		out += strings.TrimPrefix(strconv.FormatFloat(frac, 'f', 2, 64), "0")
		out = strings.TrimRight(out, "0")
	}
	if neg {
		out = "-" + out
	}
	return out
}
