package cli

import (
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
)

const shortIDLen = 8

func newTable(w io.Writer, header table.Row) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(header)
	return t
}

// shortID is the prefix shown in tables; commands accept it back as a
// reference as long as it stays unique.
func shortID(id string) string {
	if len(id) <= shortIDLen {
		return id
	}
	return id[:shortIDLen]
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	return "********"
}
