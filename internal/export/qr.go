package export

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/go-pdf/fpdf"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/piwi3910/SpriteSlab/internal/model"
)

// SheetCard holds the data encoded into a sheet's QR code.
type SheetCard struct {
	RunID      string `json:"run_id"`
	Atlas      string `json:"atlas"`
	AtlasIndex int    `json:"atlas_index"`
	SheetIndex int    `json:"sheet"`
	Hash       string `json:"hash"`
	Path       string `json:"path"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	Sprites    int    `json:"sprites"`
}

const (
	qrCardWidth = 60.0
	qrSize      = 24.0 // QR code size in mm
	qrPadding   = 2.0
)

// CollectSheetCards returns one card per sheet, in manifest order.
func CollectSheetCards(manifest model.Manifest) []SheetCard {
	var cards []SheetCard
	for ai, a := range manifest.Atlases {
		for si, s := range a.Sheets {
			cards = append(cards, SheetCard{
				RunID:      manifest.RunID,
				Atlas:      a.Name,
				AtlasIndex: ai,
				SheetIndex: si + 1,
				Hash:       s.Hash,
				Path:       s.Path,
				Width:      s.Width,
				Height:     s.Height,
				Sprites:    len(s.Sprites),
			})
		}
	}
	return cards
}

// renderSheetCard draws the QR code and a short caption at (x, y).
func renderSheetCard(pdf *fpdf.Fpdf, x, y float64, card SheetCard) error {
	qrData, err := json.Marshal(card)
	if err != nil {
		return fmt.Errorf("failed to marshal sheet card: %w", err)
	}

	qrPNG, err := qrcode.Encode(string(qrData), qrcode.Medium, 256)
	if err != nil {
		return fmt.Errorf("failed to generate QR code: %w", err)
	}

	imgName := fmt.Sprintf("qr_%d_%d_%s", card.AtlasIndex, card.SheetIndex, card.Hash)
	pdf.RegisterImageOptionsReader(imgName, fpdf.ImageOptions{ImageType: "PNG"}, bytes.NewReader(qrPNG))

	qrX := x + qrCardWidth - qrSize
	pdf.ImageOptions(imgName, qrX, y, qrSize, qrSize, false, fpdf.ImageOptions{ImageType: "PNG"}, 0, "")

	textW := qrCardWidth - qrSize - qrPadding
	pdf.SetFont("Helvetica", "B", 7)
	pdf.SetTextColor(0, 0, 0)
	pdf.SetXY(x, y+qrPadding)
	pdf.CellFormat(textW, 3.5, fmt.Sprintf("Sheet %d", card.SheetIndex), "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 6)
	pdf.SetTextColor(100, 100, 100)
	pdf.SetXY(x, y+qrPadding+4)
	pdf.CellFormat(textW, 3, shortHash(card.Hash), "", 1, "L", false, 0, "")
	pdf.SetXY(x, y+qrPadding+7.5)
	pdf.CellFormat(textW, 3, fmt.Sprintf("%d sprites", card.Sprites), "", 1, "L", false, 0, "")

	pdf.SetTextColor(0, 0, 0)
	return nil
}
