package output

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// Table buffers rows and aligns them into columns on Render.
type Table struct {
	out    io.Writer
	header []string
	rows   [][]string
	hidden bool
}

func NewTableWriter(out io.Writer, header []string, hidden bool) *Table {
	return &Table{out: out, header: header, hidden: hidden}
}

func (t *Table) Append(row []string) { t.rows = append(t.rows, row) }

func (t *Table) Render() {
	if t.hidden {
		return
	}
	tw := tabwriter.NewWriter(t.out, 0, 0, 2, ' ', tabwriter.DiscardEmptyColumns)
	for _, row := range append([][]string{t.header}, t.rows...) {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	_ = tw.Flush()
}
