package moex

import (
	"strconv"
	"time"
)

// issTable is the column-oriented block format every ISS endpoint returns.
type issTable struct {
	Columns []string        `json:"columns"`
	Data    [][]interface{} `json:"data"`
}

// rowMap zips one data row with the column names.
func (t issTable) rowMap(i int) map[string]interface{} {
	row := map[string]interface{}{}
	if i < 0 || i >= len(t.Data) {
		return row
	}
	for j, col := range t.Columns {
		if j < len(t.Data[i]) {
			row[col] = t.Data[i][j]
		}
	}
	return row
}

// numericFields flattens the first row of a table into name -> number,
// dropping nulls and non-numeric columns.
func numericFields(t issTable) map[string]float64 {
	fields := map[string]float64{}
	if len(t.Data) == 0 {
		return fields
	}
	row := t.rowMap(0)
	for name, v := range row {
		if f, ok := tryFloat(v); ok {
			fields[name] = f
		}
	}
	return fields
}

// toString renders an ISS cell as a string; null becomes "".
func toString(v interface{}) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	default:
		return ""
	}
}

// toFloat renders an ISS cell as a number; anything non-numeric becomes 0.
func toFloat(v interface{}) float64 {
	f, _ := tryFloat(v)
	return f
}

func tryFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// parseISSDate parses the "YYYY-MM-DD" dates ISS uses everywhere.
func parseISSDate(s string) (time.Time, error) {
	return time.Parse("2006-01-02", s)
}

// formatISSDate renders a date the way ISS query parameters expect.
func formatISSDate(t time.Time) string {
	return t.Format("2006-01-02")
}
