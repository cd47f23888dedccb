package services

import (
	"bytes"
	"fmt"
	"time"

	"oficios_app_go/models"

	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

const exportSheet = "Oficios"

var exportHeaders = []string{
	"N° Oficio", "Tipo", "Denuncia", "Legajo", "Expte", "Carátula",
	"Estado", "Institución", "Juzgado", "Caso",
	"Emisión", "Plazo (hs)", "Vencimiento", "Envío", "Validado Coord.", "Validado Director",
}

// ExportOficiosXLSX writes every oficio matching the filter into an xlsx workbook
func ExportOficiosXLSX(db *gorm.DB, filter OficioFilter) (*bytes.Buffer, error) {
	var oficios []models.Oficio
	err := filterOficios(db, filter).
		Preload("Institucion").
		Preload("Juzgado").
		Preload("Caso").
		Order("fecha_emision DESC").
		Find(&oficios).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load oficios for export: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()
	f.SetSheetName("Sheet1", exportSheet)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"1F4E79"}, Pattern: 1},
	})
	for i, h := range exportHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(exportSheet, cell, h)
	}
	lastHeader, _ := excelize.CoordinatesToCellName(len(exportHeaders), 1)
	f.SetCellStyle(exportSheet, "A1", lastHeader, headerStyle)
	f.SetPanes(exportSheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})

	for r, o := range oficios {
		row := []interface{}{
			o.NroOficio,
			o.Tipo,
			o.Denuncia,
			o.Legajo,
			o.Expte,
			o.CaratulaOficio,
			models.OficioEstadoLabel(o.Estado),
			institucionNombre(o.Institucion),
			juzgadoNombre(o.Juzgado),
			casoLabel(o.Caso),
			o.FechaEmision.Format("02/01/2006 15:04"),
			intOrEmpty(o.PlazoHoras),
			FormatFecha(o.FechaVencimiento),
			FormatFecha(o.FechaEnvio),
			siNo(o.ValidadoCoord),
			siNo(o.ValidadoDirector),
		}
		cell, _ := excelize.CoordinatesToCellName(1, r+2)
		if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write export row: %w", err)
		}
	}

	f.SetColWidth(exportSheet, "A", "A", 14)
	f.SetColWidth(exportSheet, "F", "F", 40)
	f.SetColWidth(exportSheet, "H", "I", 30)
	f.SetColWidth(exportSheet, "K", "N", 18)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf, nil
}

// ExportFilename returns the download name for an export generated at now
func ExportFilename(now time.Time) string {
	return "oficios_" + now.Format("20060102_1504") + ".xlsx"
}

func institucionNombre(i *models.Institucion) string {
	if i == nil {
		return ""
	}
	return i.Nombre
}

func juzgadoNombre(j *models.Juzgado) string {
	if j == nil {
		return ""
	}
	return j.Nombre
}

func casoLabel(c *models.Caso) string {
	if c == nil {
		return ""
	}
	if c.Expte != nil && *c.Expte != "" {
		return *c.Expte
	}
	return c.ID
}

func intOrEmpty(v *int) interface{} {
	if v == nil {
		return ""
	}
	return *v
}

func siNo(b bool) string {
	if b {
		return "Sí"
	}
	return "No"
}
