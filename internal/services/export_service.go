package services

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
	"github.com/roomify/backend/internal/config"
	"github.com/roomify/backend/internal/models"
	qrcode "github.com/skip2/go-qrcode"
)

type ExportService struct {
	cfg *config.Config
}

func NewExportService(cfg *config.Config) *ExportService { return &ExportService{cfg: cfg} }

// ShareURL is the public visualizer link for a project
func (s *ExportService) ShareURL(item *models.DesignItem) string {
	return fmt.Sprintf("%s/visualizer/%s", s.cfg.FrontendURL, item.ID)
}

// ShareQRPNG generates a QR code PNG pointing at the share link
func (s *ExportService) ShareQRPNG(item *models.DesignItem) ([]byte, error) {
	return qrcode.Encode(s.ShareURL(item), qrcode.Medium, 512)
}

// ProjectPDF generates a simple A4 summary sheet for a project with a
// QR code for the share link
func (s *ExportService) ProjectPDF(item *models.DesignItem) ([]byte, error) {
	shareURL := s.ShareURL(item)

	png, err := qrcode.Encode(shareURL, qrcode.Medium, 512)
	if err != nil {
		return nil, err
	}

	name := item.Name
	if name == "" {
		name = "Untitled Project"
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Arial", "B", 18)
	pdf.Cell(0, 10, name)
	pdf.Ln(12)
	pdf.SetFont("Arial", "", 12)
	pdf.MultiCell(0, 6, fmt.Sprintf("Project: %s\nLink: %s", item.ID, shareURL), "", "L", false)

	opt := gofpdf.ImageOptions{ImageType: "PNG", ReadDpi: true}
	pdf.RegisterImageOptionsReader("qr", opt, bytes.NewReader(png))

	// Center QR on the page (A4 width 210mm, QR size 100mm)
	x := (210.0 - 100.0) / 2.0
	y := pdf.GetY() + 10
	pdf.ImageOptions("qr", x, y, 100, 100, false, opt, 0, "")

	var out bytes.Buffer
	if err := pdf.Output(&out); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}
