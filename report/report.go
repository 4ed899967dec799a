// Package report renders the batch protocol: one PDF listing every input,
// its outcome and the BLAKE2b-256 digest of the written file.
package report

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/phpdave11/gofpdf"

	"archconv/contracts"
	"archconv/converter"
	"archconv/files_manager"
)

type Protocol struct {
	Generated time.Time
	Preset    contracts.Preset
	Input     string
	Output    string
	Summary   converter.Summary
}

const (
	lineHeight = 5.0
	colIndex   = 12.0
	colFile    = 70.0
	colStatus  = 20.0
	colDetail  = 88.0
)

// WritePDF renders p to path atomically.
func WritePDF(path string, p Protocol) error {
	if err := files_manager.EnsureParentDir(path); err != nil {
		return err
	}
	return files_manager.WriteAtomic(path, func(w io.Writer) error {
		return Render(w, p)
	})
}

// Render writes the protocol as an A4 portrait PDF.
func Render(w io.Writer, p Protocol) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 10, 10)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AliasNbPages("")
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.CellFormat(0, lineHeight, fmt.Sprintf("Page %d/{nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 8, "Conversion protocol", "", 1, "L", false, 0, "")

	s := p.Summary
	pdf.SetFont("Helvetica", "", 9)
	for _, kv := range [][2]string{
		{"Run", s.RunID.String()},
		{"Generated", p.Generated.Format(time.RFC3339)},
		{"Preset", string(p.Preset)},
		{"Input", p.Input},
		{"Output", p.Output},
		{"Files", fmt.Sprintf("%d total, %d converted, %d skipped, %d failed", s.Total, s.Converted, s.Skipped, s.Failed)},
		{"Elapsed", s.Elapsed.Round(time.Millisecond).String()},
	} {
		pdf.CellFormat(25, lineHeight, kv[0], "", 0, "L", false, 0, "")
		pdf.CellFormat(0, lineHeight, fit(pdf, tr(kv[1]), 165), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	header := func() {
		pdf.SetFont("Helvetica", "B", 8)
		pdf.SetFillColor(220, 220, 220)
		pdf.CellFormat(colIndex, lineHeight+1, "#", "1", 0, "R", true, 0, "")
		pdf.CellFormat(colFile, lineHeight+1, "File", "1", 0, "L", true, 0, "")
		pdf.CellFormat(colStatus, lineHeight+1, "Status", "1", 0, "L", true, 0, "")
		pdf.CellFormat(colDetail, lineHeight+1, "BLAKE2b-256 / error", "1", 1, "L", true, 0, "")
	}
	header()

	_, pageHeight := pdf.GetPageSize()
	_, _, _, bottom := pdf.GetMargins()
	for i, o := range s.Outcomes {
		if pdf.GetY()+lineHeight > pageHeight-bottom-5 {
			pdf.AddPage()
			header()
		}
		pdf.SetFont("Helvetica", "", 8)
		pdf.CellFormat(colIndex, lineHeight, fmt.Sprint(i+1), "1", 0, "R", false, 0, "")
		pdf.CellFormat(colFile, lineHeight, fit(pdf, tr(displayName(o.Job)), colFile-2), "1", 0, "L", false, 0, "")

		switch o.Status {
		case contracts.StatusFailed:
			pdf.SetTextColor(170, 0, 0)
		case contracts.StatusSkipped:
			pdf.SetTextColor(110, 110, 110)
		}
		pdf.CellFormat(colStatus, lineHeight, o.Status.String(), "1", 0, "L", false, 0, "")
		pdf.SetTextColor(0, 0, 0)

		detail := o.Checksum
		if o.Err != nil {
			detail = o.Err.Error()
		} else {
			pdf.SetFont("Courier", "", 6)
		}
		pdf.CellFormat(colDetail, lineHeight, fit(pdf, tr(detail), colDetail-2), "1", 1, "L", false, 0, "")
	}

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("render protocol: %w", err)
	}
	return pdf.Output(w)
}

func displayName(job contracts.BatchJob) string {
	if job.Relative != "" {
		return filepath.ToSlash(job.Relative)
	}
	return filepath.Base(job.Input)
}

// fit shortens s with a trailing ellipsis until it is at most width mm wide
// in the current font. s is already translated to the single byte code page.
func fit(pdf *gofpdf.Fpdf, s string, width float64) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if pdf.GetStringWidth(s) <= width {
		return s
	}
	n := len(s)
	for n > 0 && pdf.GetStringWidth(s[:n]+"...") > width {
		n--
	}
	return s[:n] + "..."
}
