// Package report выгружает склад и журнал заказов в xlsx.
package report

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/Spok95/stockflow/internal/domain/materials"
	"github.com/Spok95/stockflow/internal/domain/production"
)

const (
	SheetInventory = "inventory"
	SheetOrders    = "orders"
	SheetLines     = "lines"
)

func Inventory(items []materials.Material) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), SheetInventory); err != nil {
		return nil, err
	}
	rows := [][]any{{"ID", "Kind", "Name", "Manufacturer", "Unit type", "Unit", "Stock", "Price"}}
	for _, m := range items {
		rows = append(rows, []any{
			m.ID.String(), string(m.Kind), m.Name, m.Manufacturer,
			string(m.UnitType), string(m.Unit),
			m.Stock.InexactFloat64(), m.Price.InexactFloat64(),
		})
	}
	if err := writeRows(f, SheetInventory, rows); err != nil {
		return nil, err
	}
	return finish(f)
}

// Orders собирает два листа: шапки заказов и строки снимков спецификации.
func Orders(orders []production.Order) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), SheetOrders); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(SheetLines); err != nil {
		return nil, err
	}

	head := [][]any{{"Order ID", "Date", "Product", "Quantity", "Notes"}}
	lines := [][]any{{"Order ID", "Material", "Unit", "Ideal qty/unit", "Ideal waste/unit", "Actual consumed", "Actual waste"}}
	for _, o := range orders {
		head = append(head, []any{
			o.ID.String(), o.ProductionDate.Format("02.01.2006 15:04"),
			o.FinishedProductName, o.QuantityProduced, o.Notes,
		})
		for _, l := range o.BOMSnapshot {
			lines = append(lines, []any{
				o.ID.String(), l.MaterialName, string(l.MaterialSize),
				l.IdealQuantityPerUnit.InexactFloat64(), l.IdealWastePerUnit.InexactFloat64(),
				l.ActualQuantityConsumed.InexactFloat64(), l.ActualWaste.InexactFloat64(),
			})
		}
	}
	if err := writeRows(f, SheetOrders, head); err != nil {
		return nil, err
	}
	if err := writeRows(f, SheetLines, lines); err != nil {
		return nil, err
	}
	return finish(f)
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("%s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

func finish(f *excelize.File) ([]byte, error) {
	f.SetActiveSheet(0)
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
