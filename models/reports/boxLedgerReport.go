package reports

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/flotadata/flota_backend/config"
	"github.com/flotadata/flota_backend/models"
	"github.com/flotadata/flota_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// BuildBoxLedgerWorkbook renders a box's audit trail as an Excel sheet,
// one row per balance change with a running balance column.
func BuildBoxLedgerWorkbook(box *models.OperatingBox, history []*models.BoxHistoryEntry) (*excelize.File, error) {

	f := excelize.NewFile()
	sheetName := "Sheet1"
	_, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, err
	}

	f.SetCellValue(sheetName, "A1", "Box")
	f.SetCellValue(sheetName, "B1", box.Name)
	f.SetCellValue(sheetName, "C1", "Balance")
	f.SetCellValue(sheetName, "D1", box.Balance.StringFixed(2))

	f.SetCellValue(sheetName, "A3", "Date")
	f.SetCellValue(sheetName, "B3", "Kind")
	f.SetCellValue(sheetName, "C3", "Reason")
	f.SetCellValue(sheetName, "D3", "Amount")
	f.SetCellValue(sheetName, "E3", "BalanceBefore")
	f.SetCellValue(sheetName, "F3", "BalanceAfter")

	for i, h := range history {
		row := fmt.Sprint(i + 4)
		f.SetCellValue(sheetName, "A"+row, h.OccurredAt.Format("2006-01-02 15:04:05"))
		f.SetCellValue(sheetName, "B"+row, string(h.Kind))
		f.SetCellValue(sheetName, "C"+row, h.Reason)
		f.SetCellValue(sheetName, "D"+row, h.Delta.StringFixed(2))
		f.SetCellValue(sheetName, "E"+row, h.BalanceBefore.StringFixed(2))
		f.SetCellValue(sheetName, "F"+row, h.BalanceAfter.StringFixed(2))
	}

	return f, nil
}

type BoxSummaryResponse struct {
	BoxId        int             `json:"box_id"`
	BoxName      string          `json:"box_name"`
	Balance      decimal.Decimal `json:"balance"`
	TotalIncome  decimal.Decimal `json:"total_income"`
	TotalExpense decimal.Decimal `json:"total_expense"`
	EntryCount   int             `json:"entry_count"`
}

// BoxSummaries aggregates movement totals per box for the dashboard.
func BoxSummaries(ctx context.Context, fromDate *time.Time, toDate *time.Time) ([]*BoxSummaryResponse, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	db := config.GetDB()

	query := `
SELECT
	boxes.id AS box_id,
	boxes.name AS box_name,
	boxes.balance,
	COALESCE(mv.total_income, 0) AS total_income,
	COALESCE(mv.total_expense, 0) AS total_expense,
	COALESCE(mv.entry_count, 0) AS entry_count
FROM
	operating_boxes AS boxes
	LEFT JOIN (
		SELECT
			box_id,
			SUM(CASE WHEN direction = 'Income' THEN amount ELSE 0 END) AS total_income,
			SUM(CASE WHEN direction = 'Expense' THEN amount ELSE 0 END) AS total_expense,
			COUNT(id) AS entry_count
		FROM box_movements
		WHERE business_id = ?
			AND (? IS NULL OR created_at >= ?)
			AND (? IS NULL OR created_at <= ?)
		GROUP BY box_id
	) AS mv ON mv.box_id = boxes.id
WHERE
	boxes.business_id = ?
ORDER BY boxes.name;
`

	var records []*BoxSummaryResponse
	err := db.WithContext(ctx).
		Raw(query, businessId, fromDate, fromDate, toDate, toDate, businessId).
		Scan(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}
