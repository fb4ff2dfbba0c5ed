package util

import (
	"fmt"
	"io"
	"strings"
)

// TableColumn represents a column in a table
type TableColumn struct {
	Header string
	Key    string // key to extract from data map
	Width  int    // calculated width
}

// RenderTable writes rows as a fixed-width table. Column widths fit the
// widest cell; ANSI colour codes do not count towards the width.
func RenderTable(w io.Writer, columns []TableColumn, data []map[string]interface{}) {
	if len(data) == 0 {
		fmt.Fprintln(w, "No data to display")
		return
	}

	for i := range columns {
		columns[i].Width = displayWidth(columns[i].Header)
		for _, row := range data {
			if v, ok := row[columns[i].Key]; ok {
				if n := displayWidth(fmt.Sprint(v)); n > columns[i].Width {
					columns[i].Width = n
				}
			}
		}
	}

	parts := make([]string, len(columns))
	for i, col := range columns {
		parts[i] = pad(col.Header, col.Width)
	}
	fmt.Fprintln(w, strings.TrimRight(strings.Join(parts, "  "), " "))

	for i, col := range columns {
		parts[i] = strings.Repeat("-", col.Width)
	}
	fmt.Fprintln(w, strings.Join(parts, "  "))

	for _, row := range data {
		for i, col := range columns {
			value := ""
			if v, ok := row[col.Key]; ok && v != nil {
				value = fmt.Sprint(v)
			}
			parts[i] = pad(value, col.Width)
		}
		fmt.Fprintln(w, strings.TrimRight(strings.Join(parts, "  "), " "))
	}
}

func stripANSI(s string) string {
	for {
		start := strings.Index(s, "\033[")
		if start == -1 {
			return s
		}
		end := strings.Index(s[start:], "m")
		if end == -1 {
			return s
		}
		s = s[:start] + s[start+end+1:]
	}
}

func displayWidth(s string) int {
	return len([]rune(stripANSI(s)))
}

func pad(s string, width int) string {
	n := displayWidth(s)
	if n >= width {
		return s
	}
	return s + strings.Repeat(" ", width-n)
}
