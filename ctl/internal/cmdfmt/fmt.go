// Package cmdfmt prints the structured output of the devctl commands as tables or JSON.
package cmdfmt

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/viper"
	"github.com/thinkparq/devctl/ctl/internal/config"
	"golang.org/x/term"
)

// Printf is like fmt.Printf except it prints to stderr instead of stdout. It is intended for
// messages next to structured output that may be parsed by scripts.
func Printf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format, a...)
}

// IsTerminal reports whether f is connected to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// Printer is a condensed version of table.Writer that allows implementing alternative ways besides
// tables to write out structured data.
type Printer interface {
	AppendRow(row table.Row, configs ...table.RowConfig)
	Render() string
	SetColumnConfigs(configs []table.ColumnConfig)
}

// Printomatic provides a standard way for printing structured data.
type Printomatic struct {
	out        io.Writer
	printer    Printer
	columns    []string
	printCols  []string
	pageSize   uint
	outputType config.OutputType
	rowCount   uint
}

// NewPrintomatic returns a Printomatic writing to stdout. See NewPrintomaticTo.
func NewPrintomatic(columns []string, defaultColumns []string) *Printomatic {
	return NewPrintomaticTo(os.Stdout, columns, defaultColumns)
}

// NewPrintomaticTo creates a printer for structured data in a tabular or JSON format. The
// ColumnsKey, PageSizeKey and OutputKey settings control what is printed and how. Rows passed to
// AddItem must have one value per column. Column names should be lowercase, as a special case
// "all" or --debug prints every column.
func NewPrintomaticTo(out io.Writer, columns []string, defaultColumns []string) *Printomatic {

	printCols := defaultColumns
	if viper.IsSet(config.ColumnsKey) && len(viper.GetStringSlice(config.ColumnsKey)) > 0 {
		printCols = viper.GetStringSlice(config.ColumnsKey)
	}
	if viper.GetBool(config.DebugKey) {
		printCols = []string{"all"}
	}

	pageSize := viper.GetUint(config.PageSizeKey)
	outputType := config.OutputType(viper.GetString(config.OutputKey))
	if outputType == "" {
		outputType = config.OutputTable
	}

	if outputType == config.OutputNDJSON {
		pageSize = 0
	} else if outputType == config.OutputJSON && pageSize == 0 {
		outputType = config.OutputNDJSON
	}

	p := &Printomatic{
		out:        out,
		columns:    underscored(columns),
		printCols:  underscored(printCols),
		pageSize:   pageSize,
		outputType: outputType,
	}
	p.replacePrinter()
	return p
}

func underscored(in []string) []string {
	out := make([]string, len(in))
	for i := range in {
		out[i] = strings.ReplaceAll(in[i], " ", "_")
	}
	return out
}

// replacePrinter prepares a new page of output.
func (p *Printomatic) replacePrinter() {

	switch p.outputType {
	case config.OutputJSON, config.OutputJSONPretty, config.OutputNDJSON:
		p.printer = newJSONPrinter(p.outputType == config.OutputJSONPretty, p.pageSize)
	default:
		// Only spaces as separators so the output is easy to parse with cut and awk.
		tbl := table.NewWriter()
		tbl.SetStyle(table.Style{
			Box: table.BoxStyle{
				PaddingRight:  "  ",
				PageSeparator: "\n",
			},
			Format: table.FormatOptions{
				Footer: text.FormatUpper,
				Header: text.FormatUpper,
			},
		})
		if p.pageSize > 0 {
			row := table.Row{}
			for _, h := range p.columns {
				row = append(row, strings.ToLower(h))
			}
			tbl.AppendHeader(row)
		}
		p.printer = tbl
	}

	colCfg := make([]table.ColumnConfig, 0, len(p.columns))
	for i, name := range p.columns {
		// Number is used because Name does not work without a header. Name is still needed for JSON.
		cfg := table.ColumnConfig{Number: i + 1, Hidden: true, Name: name, Align: text.AlignLeft, AlignHeader: text.AlignLeft}
		for _, cName := range p.printCols {
			if cName == name || cName == "all" {
				cfg.Hidden = false
				break
			}
		}
		colCfg = append(colCfg, cfg)
	}
	p.printer.SetColumnConfigs(colCfg)
}

// AddItem adds a row and prints the page once pageSize rows were added. If the page size is zero
// the row is printed immediately.
func (p *Printomatic) AddItem(fields ...any) {
	p.printer.AppendRow(fields)
	p.rowCount++
	if p.pageSize == 0 {
		fmt.Fprintln(p.out, p.printer.Render())
		p.replacePrinter()
	} else if p.rowCount%p.pageSize == 0 {
		fmt.Fprintln(p.out, p.printer.Render())
		fmt.Fprintln(p.out)
		p.replacePrinter()
	}
}

// PrintRemaining prints all rows not printed yet. It must always be called after the last AddItem.
func (p *Printomatic) PrintRemaining() {
	if p.pageSize != 0 && p.rowCount%p.pageSize != 0 {
		fmt.Fprintln(p.out, p.printer.Render())
		p.replacePrinter()
	}
}

// Dump writes data to out. Terminals get a hex dump, anything else the raw bytes so the output can
// be piped into other tools.
func Dump(out io.Writer, data []byte) error {
	if f, ok := out.(*os.File); ok && IsTerminal(f) {
		_, err := io.WriteString(out, hex.Dump(data))
		return err
	}
	_, err := out.Write(data)
	return err
}
