package repositories

import (
	"database/sql"
	"time"

	"production-budget-service/internal/models"
)

type ReceiptRepository interface {
	Insert(q DBTX, rc *models.Receipt) error
	GetByID(q DBTX, id int64) (*models.Receipt, error)
	ListByBudget(q DBTX, budgetID int64) ([]*models.Receipt, error)
	Update(q DBTX, rc *models.Receipt) error
	SumMappedByLineItem(q DBTX, lineItemID int64) (float64, error)
	SumMappedByDailyBudget(q DBTX, dailyBudgetID int64) (float64, error)
	UnmapByLineItem(q DBTX, lineItemID int64) ([]int64, error)
}

type receiptRepository struct{}

func NewReceiptRepository() ReceiptRepository {
	return &receiptRepository{}
}

const receiptColumns = `id, receipt_uid, budget_id, line_item_id, daily_budget_id,
	       vendor, amount, receipt_date, ocr_status, ocr_confidence,
	       is_mapped, is_verified, created_at, updated_at`

func (r *receiptRepository) Insert(q DBTX, rc *models.Receipt) error {
	now := time.Now().UTC()
	result, err := q.Exec(`
		INSERT INTO receipts (
			receipt_uid, budget_id, line_item_id, daily_budget_id,
			vendor, amount, receipt_date, ocr_status, ocr_confidence,
			is_mapped, is_verified, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rc.ReceiptUID,
		rc.BudgetID,
		rc.LineItemID,
		rc.DailyBudgetID,
		rc.Vendor,
		rc.Amount,
		rc.ReceiptDate,
		rc.OCRStatus,
		rc.OCRConfidence,
		rc.IsMapped,
		rc.IsVerified,
		now,
		now,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	rc.ID = id
	rc.CreatedAt = now
	rc.UpdatedAt = now
	return nil
}

func scanReceipt(scan func(dest ...any) error) (*models.Receipt, error) {
	rc := &models.Receipt{}
	err := scan(
		&rc.ID,
		&rc.ReceiptUID,
		&rc.BudgetID,
		&rc.LineItemID,
		&rc.DailyBudgetID,
		&rc.Vendor,
		&rc.Amount,
		&rc.ReceiptDate,
		&rc.OCRStatus,
		&rc.OCRConfidence,
		&rc.IsMapped,
		&rc.IsVerified,
		&rc.CreatedAt,
		&rc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return rc, nil
}

func (r *receiptRepository) GetByID(q DBTX, id int64) (*models.Receipt, error) {
	row := q.QueryRow(`
		SELECT `+receiptColumns+`
		FROM receipts
		WHERE id = ?
	`, id)
	rc, err := scanReceipt(row.Scan)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return rc, nil
}

func (r *receiptRepository) ListByBudget(q DBTX, budgetID int64) ([]*models.Receipt, error) {
	rows, err := q.Query(`
		SELECT `+receiptColumns+`
		FROM receipts
		WHERE budget_id = ?
		ORDER BY id
	`, budgetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var receipts []*models.Receipt
	for rows.Next() {
		rc, err := scanReceipt(rows.Scan)
		if err != nil {
			return nil, err
		}
		receipts = append(receipts, rc)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return receipts, nil
}

func (r *receiptRepository) Update(q DBTX, rc *models.Receipt) error {
	_, err := q.Exec(`
		UPDATE receipts
		SET line_item_id = ?,
			daily_budget_id = ?,
			vendor = ?,
			amount = ?,
			receipt_date = ?,
			ocr_status = ?,
			ocr_confidence = ?,
			is_mapped = ?,
			is_verified = ?,
			updated_at = ?
		WHERE id = ?
	`,
		rc.LineItemID,
		rc.DailyBudgetID,
		rc.Vendor,
		rc.Amount,
		rc.ReceiptDate,
		rc.OCRStatus,
		rc.OCRConfidence,
		rc.IsMapped,
		rc.IsVerified,
		time.Now().UTC(),
		rc.ID,
	)
	return err
}

// Only mapped receipts ever count toward an actual total.
func (r *receiptRepository) SumMappedByLineItem(q DBTX, lineItemID int64) (float64, error) {
	var total float64
	err := q.QueryRow(`
		SELECT COALESCE(SUM(amount), 0)
		FROM receipts
		WHERE line_item_id = ? AND is_mapped = ?
	`, lineItemID, true).Scan(&total)
	if err != nil {
		return 0, err
	}
	return total, nil
}

func (r *receiptRepository) SumMappedByDailyBudget(q DBTX, dailyBudgetID int64) (float64, error) {
	var total float64
	err := q.QueryRow(`
		SELECT COALESCE(SUM(amount), 0)
		FROM receipts
		WHERE daily_budget_id = ? AND is_mapped = ?
	`, dailyBudgetID, true).Scan(&total)
	if err != nil {
		return 0, err
	}
	return total, nil
}

// UnmapByLineItem detaches receipts from a line item being deleted. A
// receipt with no remaining target also loses its mapped flag. Returns the
// distinct daily budgets still referenced by the affected receipts so the
// caller can re-aggregate them.
func (r *receiptRepository) UnmapByLineItem(q DBTX, lineItemID int64) ([]int64, error) {
	dayIDs, err := collectIDs(q, `
		SELECT DISTINCT daily_budget_id
		FROM receipts
		WHERE line_item_id = ? AND daily_budget_id IS NOT NULL
	`, lineItemID)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	_, err = q.Exec(`
		UPDATE receipts
		SET is_mapped = ?, updated_at = ?
		WHERE line_item_id = ? AND daily_budget_id IS NULL
	`, false, now, lineItemID)
	if err != nil {
		return nil, err
	}
	_, err = q.Exec(`
		UPDATE receipts
		SET line_item_id = NULL, updated_at = ?
		WHERE line_item_id = ?
	`, now, lineItemID)
	if err != nil {
		return nil, err
	}
	return dayIDs, nil
}
