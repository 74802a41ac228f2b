// Package export renders build manifests to human-readable reports.
package export

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-pdf/fpdf"

	"github.com/piwi3910/SpriteSlab/internal/model"
)

// spriteColor represents an RGB color for a placed sprite outline.
type spriteColor struct {
	R, G, B int
}

var spriteColors = []spriteColor{
	{R: 76, G: 175, B: 80},  // green
	{R: 33, G: 150, B: 243}, // blue
	{R: 255, G: 152, B: 0},  // orange
	{R: 156, G: 39, B: 176}, // purple
	{R: 0, G: 188, B: 212},  // cyan
	{R: 244, G: 67, B: 54},  // red
	{R: 255, G: 235, B: 59}, // yellow
	{R: 121, G: 85, B: 72},  // brown
}

// Page layout constants (A4 landscape in mm).
const (
	pageWidth    = 297.0
	pageHeight   = 210.0
	marginLeft   = 15.0
	marginRight  = 15.0
	marginTop    = 15.0
	marginBottom = 15.0
	headerHeight = 12.0
	statsHeight  = 20.0
	drawAreaTop  = marginTop + headerHeight + 5.0
)

// ExportReport generates a PDF with one layout page per sheet, each carrying
// a QR card that identifies the sheet, followed by a summary page.
func ExportReport(path string, manifest model.Manifest) error {
	if len(manifest.Atlases) == 0 {
		return fmt.Errorf("no atlases to export")
	}

	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetAutoPageBreak(false, marginBottom)

	for _, card := range CollectSheetCards(manifest) {
		sheet := manifest.Atlases[card.AtlasIndex].Sheets[card.SheetIndex-1]
		pdf.AddPage()
		if err := renderSheetPage(pdf, sheet, card); err != nil {
			return err
		}
	}

	pdf.AddPage()
	renderSummaryPage(pdf, manifest)

	return pdf.OutputFileAndClose(path)
}

// renderSheetPage draws a single sheet on the current PDF page.
func renderSheetPage(pdf *fpdf.Fpdf, sheet model.SheetOutput, card SheetCard) error {
	pdf.SetFont("Helvetica", "B", 14)
	pdf.SetXY(marginLeft, marginTop)
	title := fmt.Sprintf("%s: sheet %d (%d x %d px)", atlasTitle(card.Atlas, card.AtlasIndex), card.SheetIndex, sheet.Width, sheet.Height)
	pdf.CellFormat(pageWidth-marginLeft-marginRight-qrCardWidth, headerHeight, title, "", 0, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetXY(marginLeft, marginTop+headerHeight)
	stats := fmt.Sprintf("Sprites: %d | Used area: %d px | Total area: %d px | Efficiency: %.1f%%",
		len(sheet.Sprites), sheet.UsedArea(), sheet.TotalArea(), sheet.Efficiency())
	pdf.CellFormat(pageWidth-marginLeft-marginRight-qrCardWidth, 5, stats, "", 0, "L", false, 0, "")

	if err := renderSheetCard(pdf, pageWidth-marginRight-qrCardWidth, marginTop, card); err != nil {
		return err
	}

	if sheet.Width == 0 || sheet.Height == 0 {
		return nil
	}

	drawWidth := pageWidth - marginLeft - marginRight
	drawHeight := pageHeight - drawAreaTop - marginBottom - statsHeight

	scale := math.Min(drawWidth/float64(sheet.Width), drawHeight/float64(sheet.Height))
	canvasW := float64(sheet.Width) * scale
	canvasH := float64(sheet.Height) * scale
	offsetX := marginLeft + (drawWidth-canvasW)/2
	offsetY := drawAreaTop

	pdf.SetFillColor(235, 235, 235)
	pdf.SetDrawColor(100, 100, 100)
	pdf.SetLineWidth(0.5)
	pdf.Rect(offsetX, offsetY, canvasW, canvasH, "FD")

	drawSheetImage(pdf, sheet.Path, offsetX, offsetY, canvasW, canvasH)

	for i, p := range sheet.Sprites {
		col := spriteColors[i%len(spriteColors)]
		pw := float64(p.PackedWidth()) * scale
		ph := float64(p.PackedHeight()) * scale
		px := offsetX + float64(p.Position.X)*scale
		py := offsetY + float64(p.Position.Y)*scale

		pdf.SetDrawColor(col.R, col.G, col.B)
		pdf.SetLineWidth(0.3)
		pdf.Rect(px, py, pw, ph, "D")

		if pw > 15 && ph > 8 {
			pdf.SetFont("Helvetica", "", labelFontSize(pw, ph))
			pdf.SetTextColor(0, 0, 0)
			label := filepath.Base(p.Path)
			labelW := pdf.GetStringWidth(label)
			if labelW < pw-2 {
				pdf.SetXY(px+(pw-labelW)/2, py+ph/2-2)
				pdf.CellFormat(labelW, 4, label, "", 0, "C", false, 0, "")
			}
		}
	}

	drawDimensionAnnotations(pdf, sheet, offsetX, offsetY, canvasW, canvasH)
	drawSpriteLegend(pdf, sheet, offsetY+canvasH+5)
	return nil
}

// drawSheetImage places the combined sheet under the outlines when fpdf can
// read its format.
func drawSheetImage(pdf *fpdf.Fpdf, path string, x, y, w, h float64) {
	var imageType string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		imageType = "PNG"
	case ".jpg", ".jpeg":
		imageType = "JPG"
	default:
		return
	}
	if _, err := os.Stat(path); err != nil {
		return
	}
	pdf.ImageOptions(path, x, y, w, h, false, fpdf.ImageOptions{ImageType: imageType}, 0, "")
}

// drawDimensionAnnotations adds width and height labels outside the sheet rectangle.
func drawDimensionAnnotations(pdf *fpdf.Fpdf, sheet model.SheetOutput, offsetX, offsetY, canvasW, canvasH float64) {
	pdf.SetFont("Helvetica", "", 8)
	pdf.SetTextColor(80, 80, 80)

	widthLabel := fmt.Sprintf("%d px", sheet.Width)
	wLabelW := pdf.GetStringWidth(widthLabel)
	pdf.SetXY(offsetX+(canvasW-wLabelW)/2, offsetY+canvasH+1)
	pdf.CellFormat(wLabelW, 4, widthLabel, "", 0, "C", false, 0, "")

	heightLabel := fmt.Sprintf("%d px", sheet.Height)
	pdf.TransformBegin()
	pdf.TransformRotate(90, offsetX-3, offsetY+canvasH/2)
	hLabelW := pdf.GetStringWidth(heightLabel)
	pdf.SetXY(offsetX-3-hLabelW/2, offsetY+canvasH/2-2)
	pdf.CellFormat(hLabelW, 4, heightLabel, "", 0, "C", false, 0, "")
	pdf.TransformEnd()

	pdf.SetTextColor(0, 0, 0)
}

// drawSpriteLegend renders a compact legend of placed sprites below the sheet.
func drawSpriteLegend(pdf *fpdf.Fpdf, sheet model.SheetOutput, startY float64) {
	if len(sheet.Sprites) == 0 {
		return
	}

	pdf.SetFont("Helvetica", "B", 8)
	pdf.SetTextColor(0, 0, 0)
	pdf.SetXY(marginLeft, startY)
	pdf.CellFormat(30, 4, "Sprites placed:", "", 0, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 7)
	xPos := marginLeft + 32
	maxX := pageWidth - marginRight

	for i, p := range sheet.Sprites {
		col := spriteColors[i%len(spriteColors)]
		label := fmt.Sprintf("%s (%dx%d @ %d,%d)", filepath.Base(p.Path), p.PackedWidth(), p.PackedHeight(), p.Position.X, p.Position.Y)
		if p.Trim != nil {
			label += " T"
		}
		labelW := pdf.GetStringWidth(label) + 6

		if xPos+labelW > maxX {
			startY += 5
			xPos = marginLeft
		}
		if startY > pageHeight-marginBottom {
			return
		}

		pdf.SetFillColor(col.R, col.G, col.B)
		pdf.Rect(xPos, startY+0.5, 3, 3, "F")

		pdf.SetXY(xPos+4, startY)
		pdf.CellFormat(labelW-4, 4, label, "", 0, "L", false, 0, "")

		xPos += labelW + 2
	}
}

// renderSummaryPage draws the final summary page with overall statistics.
func renderSummaryPage(pdf *fpdf.Fpdf, manifest model.Manifest) {
	pdf.SetFont("Helvetica", "B", 16)
	pdf.SetXY(marginLeft, marginTop)
	pdf.CellFormat(pageWidth-marginLeft-marginRight, 10, "Atlas Build Summary", "", 0, "L", false, 0, "")

	pdf.SetDrawColor(0, 0, 0)
	pdf.SetLineWidth(0.5)
	pdf.Line(marginLeft, marginTop+12, pageWidth-marginRight, marginTop+12)

	y := marginTop + 18

	pdf.SetFont("Helvetica", "B", 12)
	pdf.SetXY(marginLeft, y)
	pdf.CellFormat(100, 7, "Overall Statistics", "", 0, "L", false, 0, "")
	y += 9

	oversized, skipped := countProblems(manifest)
	summaryItems := []struct {
		label string
		value string
	}{
		{"Atlases", fmt.Sprintf("%d", len(manifest.Atlases))},
		{"Total Sheets", fmt.Sprintf("%d", manifest.SheetCount())},
		{"Sprites Placed", fmt.Sprintf("%d", countSprites(manifest))},
		{"Overall Efficiency", fmt.Sprintf("%.1f%%", totalEfficiency(manifest))},
		{"Oversized Sprites", fmt.Sprintf("%d", oversized)},
		{"Skipped References", fmt.Sprintf("%d", skipped)},
	}

	pdf.SetFont("Helvetica", "", 10)
	for _, item := range summaryItems {
		pdf.SetXY(marginLeft+5, y)
		pdf.CellFormat(60, 6, item.label+":", "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(40, 6, item.value, "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		y += 7
	}

	y += 5

	pdf.SetFont("Helvetica", "B", 12)
	pdf.SetXY(marginLeft, y)
	pdf.CellFormat(100, 7, "Sheet Breakdown", "", 0, "L", false, 0, "")
	y += 9

	colWidths := []float64{50, 20, 40, 25, 30, 50}
	headers := []string{"Atlas", "Sheet", "Dimensions", "Sprites", "Efficiency", "Hash"}

	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(230, 230, 230)
	xPos := marginLeft
	for i, header := range headers {
		pdf.SetXY(xPos, y)
		pdf.CellFormat(colWidths[i], 6, header, "1", 0, "C", true, 0, "")
		xPos += colWidths[i]
	}
	y += 6

	pdf.SetFont("Helvetica", "", 9)
	row := 0
	for ai, a := range manifest.Atlases {
		for si, sheet := range a.Sheets {
			if y > pageHeight-marginBottom-10 {
				break
			}
			xPos = marginLeft
			rowData := []string{
				atlasTitle(a.Name, ai),
				fmt.Sprintf("%d", si+1),
				fmt.Sprintf("%d x %d px", sheet.Width, sheet.Height),
				fmt.Sprintf("%d", len(sheet.Sprites)),
				fmt.Sprintf("%.1f%%", sheet.Efficiency()),
				shortHash(sheet.Hash),
			}

			if row%2 == 0 {
				pdf.SetFillColor(245, 245, 245)
			} else {
				pdf.SetFillColor(255, 255, 255)
			}
			for j, cell := range rowData {
				pdf.SetXY(xPos, y)
				pdf.CellFormat(colWidths[j], 6, cell, "1", 0, "C", true, 0, "")
				xPos += colWidths[j]
			}
			y += 6
			row++
		}
	}

	if oversized+skipped > 0 {
		y += 8
		pdf.SetFont("Helvetica", "B", 11)
		pdf.SetTextColor(200, 0, 0)
		pdf.SetXY(marginLeft, y)
		pdf.CellFormat(200, 7, "WARNING: Sprites not packed", "", 0, "L", false, 0, "")
		y += 8

		pdf.SetFont("Helvetica", "", 9)
		pdf.SetTextColor(0, 0, 0)
		for ai, a := range manifest.Atlases {
			for _, o := range a.Oversized {
				y = warningLine(pdf, y, fmt.Sprintf("- %s: %s is oversized (%d x %d px)", atlasTitle(a.Name, ai), o.Path, o.Width, o.Height))
			}
			for _, s := range a.Skipped {
				y = warningLine(pdf, y, fmt.Sprintf("- %s: %s matched no processed sprite", atlasTitle(a.Name, ai), s))
			}
		}
	}

	pdf.SetFont("Helvetica", "I", 8)
	pdf.SetTextColor(120, 120, 120)
	pdf.SetXY(marginLeft, pageHeight-marginBottom)
	pdf.CellFormat(pageWidth-marginLeft-marginRight, 4, "Generated by SpriteSlab, run "+manifest.RunID, "", 0, "C", false, 0, "")
}

func warningLine(pdf *fpdf.Fpdf, y float64, text string) float64 {
	if y > pageHeight-marginBottom-6 {
		return y
	}
	pdf.SetXY(marginLeft+5, y)
	pdf.CellFormat(250, 5, text, "", 0, "L", false, 0, "")
	return y + 5
}

// labelFontSize returns an appropriate font size based on the rectangle dimensions.
func labelFontSize(w, h float64) float64 {
	minDim := math.Min(w, h)
	switch {
	case minDim > 40:
		return 8
	case minDim > 20:
		return 7
	default:
		return 6
	}
}

func atlasTitle(name string, index int) string {
	if name == "" {
		return fmt.Sprintf("Atlas %d", index+1)
	}
	return name
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}

// countSprites returns the number of placed sprites across all sheets.
func countSprites(manifest model.Manifest) int {
	total := 0
	for _, a := range manifest.Atlases {
		for _, s := range a.Sheets {
			total += len(s.Sprites)
		}
	}
	return total
}

func countProblems(manifest model.Manifest) (oversized, skipped int) {
	for _, a := range manifest.Atlases {
		oversized += len(a.Oversized)
		skipped += len(a.Skipped)
	}
	return oversized, skipped
}

func totalEfficiency(manifest model.Manifest) float64 {
	var used, total int
	for _, a := range manifest.Atlases {
		for _, s := range a.Sheets {
			used += s.UsedArea()
			total += s.TotalArea()
		}
	}
	if total == 0 {
		return 0
	}
	return float64(used) / float64(total) * 100.0
}
