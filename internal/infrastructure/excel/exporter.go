// Package excel genera los archivos de exportación (XLSX por streaming y
// ZIP estructurado de facturas).
package excel

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/logistica-sv/freight-backoffice/internal/domain/entity"
)

// fecha corta para celdas de exportación.
func cellDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}

// newSheet prepara un libro con una hoja única, encabezado congelado y
// autofiltro sobre las columnas dadas.
func newSheet(name string, headers []string) (*excelize.File, *excelize.StreamWriter, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", name); err != nil {
		return nil, nil, err
	}
	if err := f.SetPanes(name, &excelize.Panes{
		Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft",
	}); err != nil {
		return nil, nil, err
	}

	sw, err := f.NewStreamWriter(name)
	if err != nil {
		return nil, nil, err
	}
	if err := sw.SetColWidth(1, len(headers), 18); err != nil {
		return nil, nil, err
	}

	row := make([]any, len(headers))
	for i, h := range headers {
		row[i] = h
	}
	if err := sw.SetRow("A1", row); err != nil {
		return nil, nil, err
	}
	return f, sw, nil
}

func finishSheet(f *excelize.File, sw *excelize.StreamWriter, name string, cols, rows int) ([]byte, error) {
	if err := sw.Flush(); err != nil {
		return nil, err
	}
	lastCell, err := excelize.CoordinatesToCellName(cols, rows+1)
	if err != nil {
		return nil, err
	}
	if err := f.AutoFilter(name, "A1:"+lastCell, nil); err != nil {
		return nil, err
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ExportCostInvoices arma el XLSX de facturas de costo.
func ExportCostInvoices(invoices []*entity.CostInvoice) ([]byte, error) {
	const sheet = "Facturas"
	headers := []string{
		"Número", "Proveedor", "NIT", "Tipo de costo", "OT", "Fecha emisión", "Vencimiento",
		"Condición", "Días crédito", "Monto", "Monto aplicable", "Provisión", "Fecha provisión",
		"Facturación", "Revisión", "Método de match", "Confianza",
	}
	f, sw, err := newSheet(sheet, headers)
	if err != nil {
		return nil, fmt.Errorf("export facturas: %w", err)
	}

	for i, inv := range invoices {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		issue := inv.IssueDate
		row := []any{
			inv.Number, inv.ProviderName, inv.ProviderTaxID, inv.CostType, inv.OTNumberDenorm,
			cellDate(&issue), cellDate(inv.DueDate), inv.PaymentTerms, inv.CreditDays,
			inv.Amount.InexactFloat64(), inv.AmountApplicableEffective().InexactFloat64(),
			inv.ProvisionStatus, cellDate(inv.ProvisionDate), inv.BillingStatus,
			inv.NeedsReview, inv.MatchMethod, inv.MatchConfidence,
		}
		if err := sw.SetRow(cell, row); err != nil {
			return nil, fmt.Errorf("export facturas: %w", err)
		}
	}
	return finishSheet(f, sw, sheet, len(headers), len(invoices))
}

// ExportOTs arma el XLSX de órdenes de trabajo.
func ExportOTs(ots []*entity.OT, clientNames map[string]string) ([]byte, error) {
	const sheet = "OTs"
	headers := []string{
		"Número", "Cliente", "Naviera", "MBL", "Contenedores", "ETA", "ETD",
		"Puerto origen", "Puerto destino", "Operador", "Operación", "Buque",
		"Provisión", "Fecha provisión", "Facturación", "Estado",
	}
	f, sw, err := newSheet(sheet, headers)
	if err != nil {
		return nil, fmt.Errorf("export OTs: %w", err)
	}

	for i, ot := range ots {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		row := []any{
			ot.Number, clientNames[ot.ClientID], ot.ProviderName, ot.MasterBL, joinList(ot.Containers),
			cellDate(ot.ETA), cellDate(ot.ETD), ot.OriginPort, ot.DestinationPort,
			ot.Operator, ot.OperationType, ot.Vessel,
			ot.ProvisionStatus, cellDate(ot.ProvisionDate), ot.BillingStatus, ot.State,
		}
		if err := sw.SetRow(cell, row); err != nil {
			return nil, fmt.Errorf("export OTs: %w", err)
		}
	}
	return finishSheet(f, sw, sheet, len(headers), len(ots))
}

func joinList(items []string) string {
	out := ""
	for i, it := range items {
		if i > 0 {
			out += ", "
		}
		out += it
	}
	return out
}
