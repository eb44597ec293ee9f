package export

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"
)

const (
	pdfFont       = "Helvetica"
	pdfLineHeight = 5.5
)

type pdfRenderer struct {
	// compress the page streams; off in tests so text can be asserted
	compress bool
}

func (pdfRenderer) ContentType() string { return "application/pdf" }
func (pdfRenderer) Extension() string   { return ".pdf" }

type reportSection struct {
	Title string
	Lines []string
}

// reportSections is the text layout of a report, independent of the PDF drawing calls.
func reportSections(r Report) (header []string, sections []reportSection) {
	res := r.Result
	header = []string{"Session: " + r.SessionID}
	if r.PatientID != "" {
		header = append(header, "Patient: "+r.PatientID)
	}
	header = append(header, "Generated: "+r.GeneratedAt.Format("2006-01-02 15:04:05 UTC"))
	if res.FallbackUsed {
		header = append(header, "Note: automated reasoning was unavailable; generic guidance shown.")
	}

	var dx []string
	for i, c := range res.DifferentialDiagnosis {
		line := fmt.Sprintf("%d. %s (%.1f%%)", i+1, c.Condition, c.Confidence)
		if c.ICD10 != "" {
			line += " [" + c.ICD10 + "]"
		}
		if c.Description != "" {
			line += "\n" + c.Description
		}
		dx = append(dx, line)
	}
	sections = append(sections, reportSection{Title: "Differential Diagnosis", Lines: dx})

	if len(res.RecommendedActions) > 0 {
		var lines []string
		for _, a := range res.RecommendedActions {
			lines = append(lines, fmt.Sprintf("- [%s/%s] %s", a.Priority, a.Category, a.Text))
		}
		sections = append(sections, reportSection{Title: "Recommended Actions", Lines: lines})
	}

	if len(res.FollowUpQuestions) > 0 {
		var lines []string
		for _, q := range res.FollowUpQuestions {
			lines = append(lines, "- "+q.Text)
		}
		sections = append(sections, reportSection{Title: "Follow-up Questions", Lines: lines})
	}

	if len(res.SimilarCases) > 0 {
		var lines []string
		for _, c := range res.SimilarCases {
			lines = append(lines, fmt.Sprintf("%d. Case %s: %s (%.1f%%)", c.Rank, c.CaseID, c.Diagnosis, c.Similarity))
		}
		sections = append(sections, reportSection{Title: "Similar Cases", Lines: lines})
	}
	return header, sections
}

func (p pdfRenderer) Render(r Report) ([]byte, error) {
	header, sections := reportSections(r)

	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetCompression(p.compress)
	doc.SetTitle("Differential Diagnosis Report", true)
	doc.SetCreator("medrag-be", true)
	doc.SetCreationDate(r.GeneratedAt)
	doc.SetMargins(18, 18, 18)
	doc.SetAutoPageBreak(true, 18)
	doc.SetFooterFunc(func() {
		doc.SetY(-12)
		doc.SetFont(pdfFont, "I", 8)
		doc.CellFormat(0, 5, fmt.Sprintf("Page %d", doc.PageNo()), "", 0, "C", false, 0, "")
	})
	// core fonts are cp1252; accented names survive, other runes degrade
	tr := doc.UnicodeTranslatorFromDescriptor("")

	doc.AddPage()
	doc.SetFont(pdfFont, "B", 16)
	doc.CellFormat(0, 9, "Differential Diagnosis Report", "", 1, "L", false, 0, "")
	doc.SetFont(pdfFont, "", 9)
	for _, line := range header {
		doc.MultiCell(0, pdfLineHeight, tr(line), "", "L", false)
	}

	for _, s := range sections {
		doc.Ln(4)
		doc.SetFont(pdfFont, "B", 12)
		doc.CellFormat(0, 7, tr(s.Title), "B", 1, "L", false, 0, "")
		doc.Ln(1)
		doc.SetFont(pdfFont, "", 10)
		for _, line := range s.Lines {
			doc.MultiCell(0, pdfLineHeight, tr(line), "", "L", false)
		}
	}

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return buf.Bytes(), nil
}
