package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/koustreak/fkguard/internal/database"
	"github.com/koustreak/fkguard/internal/fkcheck"
	"github.com/koustreak/fkguard/internal/schema"
)

var (
	colorGreen = lipgloss.Color("#00FF87")
	colorRed   = lipgloss.Color("#FF5F5F")
	colorCyan  = lipgloss.Color("#00D7FF")
	colorGray  = lipgloss.Color("#626262")
)

// printer writes command output. Styles are bound to the writer's
// renderer, so output to a pipe or file comes out as plain text.
type printer struct {
	w    io.Writer
	ok   lipgloss.Style
	fail lipgloss.Style
	key  lipgloss.Style
	dim  lipgloss.Style
}

func newPrinter(w io.Writer) *printer {
	r := lipgloss.NewRenderer(w)
	return &printer{
		w:    w,
		ok:   r.NewStyle().Foreground(colorGreen).Bold(true),
		fail: r.NewStyle().Foreground(colorRed).Bold(true),
		key:  r.NewStyle().Foreground(colorCyan),
		dim:  r.NewStyle().Foreground(colorGray),
	}
}

func (p *printer) result(res database.Result) {
	fmt.Fprintf(p.w, "%s %d row(s) affected", p.ok.Render("✓"), res.RowsAffected)
	if res.LastInsertID != 0 {
		fmt.Fprintf(p.w, " %s", p.dim.Render(fmt.Sprintf("(last insert id %d)", res.LastInsertID)))
	}
	fmt.Fprintln(p.w)
}

// failure prints a rejected statement: what ran, then why it failed.
func (p *printer) failure(e *fkcheck.Error) {
	fmt.Fprintf(p.w, "%s %s\n", p.fail.Render("✗"), e.Statement)
	if e.Cause != nil {
		fmt.Fprintf(p.w, "  %s\n", p.dim.Render(e.Cause.Error()))
	}
	p.violations(e.Diagnosis)
}

func (p *printer) diagnosis(d *fkcheck.Diagnosis) {
	fmt.Fprintf(p.w, "%s %s\n", p.key.Render(d.Kind.String()), d.Statement)
	if len(d.Violations) == 0 && len(d.ForeignKeys) == 0 {
		fmt.Fprintf(p.w, "  %s\n", p.ok.Render("no foreign-key problems found"))
		return
	}
	p.violations(d)
}

func (p *printer) violations(d *fkcheck.Diagnosis) {
	if d == nil {
		return
	}
	if len(d.Violations) == 0 {
		if msg := d.Message(); msg != "" {
			fmt.Fprintf(p.w, "  %s\n", msg)
		}
		return
	}
	for _, v := range d.Violations {
		fmt.Fprintf(p.w, "  %s %s\n", p.fail.Render("•"), v.Message())
	}
}

func (p *printer) table(ti *schema.TableInfo) {
	fmt.Fprintln(p.w, p.key.Render(ti.Name))
	pk := ti.PrimaryKey
	if pk == "" {
		pk = p.dim.Render("(none)")
	}
	fmt.Fprintf(p.w, "  primary key:  %s\n", pk)
	p.keys("references", ti.ForeignKeys)
	p.keys("referenced by", ti.ReferencedBy)
}

func (p *printer) keys(label string, fks []database.ForeignKey) {
	if len(fks) == 0 {
		fmt.Fprintf(p.w, "  %s: %s\n", label, p.dim.Render("(none)"))
		return
	}
	fmt.Fprintf(p.w, "  %s:\n", label)
	for _, fk := range fks {
		fmt.Fprintf(p.w, "    %s\n", fk)
	}
}

func (p *printer) encode(v any) error {
	enc := json.NewEncoder(p.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
