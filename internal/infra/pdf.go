package infra

// pdf.go renders a case's hoja de ruta as an A4 PDF using go-pdf/fpdf:
//   - header with folder number, state and dates
//   - one row per entry (fecha, author, descripcion)
//
// The file is written to storagePath/hoja_ruta_{carpeta}.pdf.

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/TabareCasalas/SiGeST-sub000/internal/model"

	"github.com/go-pdf/fpdf"
)

// GenerarHojaRutaPDF writes the activity log of t and returns the file path.
func GenerarHojaRutaPDF(t *model.Tramite, entradas []model.EntradaHojaRuta, storagePath string) (string, error) {
	if err := os.MkdirAll(storagePath, 0755); err != nil {
		return "", fmt.Errorf("pdf: create storage dir: %w", err)
	}
	fileName := fmt.Sprintf("hoja_ruta_%s.pdf", strings.ReplaceAll(t.NumeroCarpeta, "/", "-"))
	filePath := filepath.Join(storagePath, fileName)

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 30

	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(contentW, 8, tr("Hoja de ruta - Carpeta "+t.NumeroCarpeta), "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 9)
	if t.Consultante != nil {
		pdf.CellFormat(contentW, 5, tr("Consultante: "+t.Consultante.Nombre), "", 1, "L", false, 0, "")
	}
	if t.Grupo != nil {
		pdf.CellFormat(contentW, 5, tr("Grupo: "+t.Grupo.Nombre), "", 1, "L", false, 0, "")
	}
	pdf.CellFormat(contentW, 5, tr("Estado: "+string(t.Estado)), "", 1, "L", false, 0, "")
	pdf.CellFormat(contentW, 5, "Inicio: "+t.FechaInicio.Format("02/01/2006"), "", 1, "L", false, 0, "")
	if t.FechaCierre != nil {
		pdf.CellFormat(contentW, 5, "Cierre: "+t.FechaCierre.Format("02/01/2006"), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	colFecha := contentW * 0.15
	colAutor := contentW * 0.25
	colDesc := contentW * 0.60

	pdf.SetFont("Helvetica", "B", 9)
	pdf.CellFormat(colFecha, 6, "Fecha", "B", 0, "L", false, 0, "")
	pdf.CellFormat(colAutor, 6, "Autor", "B", 0, "L", false, 0, "")
	pdf.CellFormat(colDesc, 6, tr("Descripción"), "B", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 9)
	if len(entradas) == 0 {
		pdf.CellFormat(contentW, 6, "Sin entradas registradas", "", 1, "L", false, 0, "")
	}
	for _, e := range entradas {
		autor := e.UsuarioID.String()[:8]
		if e.Usuario != nil {
			autor = e.Usuario.Nombre
		}
		x, y := pdf.GetXY()
		pdf.CellFormat(colFecha, 5, e.Fecha.Format("02/01/2006"), "", 0, "L", false, 0, "")
		pdf.CellFormat(colAutor, 5, tr(autor), "", 0, "L", false, 0, "")
		pdf.MultiCell(colDesc, 5, tr(e.Descripcion), "", "L", false)
		if pdf.GetY() < y+5 {
			pdf.SetXY(x, y+5)
		}
		pdf.Ln(1)
	}

	if err := pdf.OutputFileAndClose(filePath); err != nil {
		return "", fmt.Errorf("pdf: write %s: %w", filePath, err)
	}
	return filePath, nil
}
