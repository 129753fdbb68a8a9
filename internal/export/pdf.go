package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"chess_review/internal/domain/report"
)

// newReportPDF lays out a report summary followed by a move table.
func newReportPDF(rep report.Report) *gofpdf.Fpdf {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 14)
	pdf.Cell(0, 10, "Game review "+rep.ID)
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Created %s, depth %d, accuracy %.1f%%",
		rep.CreatedAt.Format("2006-01-02 15:04"), rep.Depth, rep.Accuracy))
	pdf.Ln(8)

	if rep.Aggregates != nil {
		writeBucket(pdf, "Overall", rep.Aggregates.Overall)
		for _, p := range report.Phases {
			if b, ok := rep.Aggregates.Phases[p]; ok {
				writeBucket(pdf, strings.ToUpper(string(p[:1]))+string(p[1:]), b)
			}
		}
		pdf.Ln(4)
	}

	pdf.SetFont("Courier", "B", 9)
	pdf.Cell(0, 5, fmt.Sprintf("%-5s %-8s %-8s %-8s %6s %-11s %s", "ply", "move", "played", "best", "cpl", "tag", "note"))
	pdf.Ln(5)
	pdf.SetFont("Courier", "", 9)
	for _, g := range rep.PerPly {
		move := ""
		if g.Ply-1 < len(rep.MoveTexts) {
			move = rep.MoveTexts[g.Ply-1]
		}
		line := fmt.Sprintf("%-5d %-8s %-8s %-8s %6d %-11s %s%s",
			g.Ply, move, g.PlayedMove, g.BestMove, g.CentipawnLoss, g.Tag, g.Symbol, noteSuffix(g.Note))
		pdf.MultiCell(0, 4.5, line, "", "L", false)
	}
	return pdf
}

func noteSuffix(note string) string {
	if note == "" {
		return ""
	}
	return " " + note
}

func writeBucket(pdf *gofpdf.Fpdf, title string, b report.BucketAggregate) {
	pdf.Cell(0, 5, fmt.Sprintf("%-11s white: %3d plies, acpl %6.1f, accuracy %5.1f%%   black: %3d plies, acpl %6.1f, accuracy %5.1f%%",
		title,
		b.White.Plies, b.White.AvgCentipawnLoss, b.White.AccuracyPercent,
		b.Black.Plies, b.Black.AvgCentipawnLoss, b.Black.AccuracyPercent))
	pdf.Ln(5)
}

// WritePDF renders rep as a PDF document into w.
func WritePDF(w io.Writer, rep report.Report) error {
	pdf := newReportPDF(rep)
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return nil
}

func WritePDFFile(path string, rep report.Report) error {
	return newReportPDF(rep).OutputFileAndClose(path)
}
