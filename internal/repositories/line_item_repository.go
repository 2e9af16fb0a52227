package repositories

import (
	"database/sql"
	"time"

	"production-budget-service/internal/models"
)

type LineItemRepository interface {
	Insert(q DBTX, li *models.LineItem) error
	GetByID(q DBTX, id int64) (*models.LineItem, error)
	ListByCategory(q DBTX, categoryID int64) ([]*models.LineItem, error)
	ListByBudget(q DBTX, budgetID int64) ([]*models.LineItem, error)
	ListFringeDependents(q DBTX, baseItemID int64) ([]*models.LineItem, error)
	CountByCategory(q DBTX, categoryID int64) (int64, error)
	Update(q DBTX, li *models.LineItem) error
	UpdateDerivedTotals(q DBTX, id int64, estimatedTotal, actualTotal float64) error
	Delete(q DBTX, id int64) error
}

type lineItemRepository struct{}

func NewLineItemRepository() LineItemRepository {
	return &lineItemRepository{}
}

const lineItemColumns = `id, budget_id, category_id, account_code, description,
	       rate_amount, quantity, days, weeks, episodes, calc_mode,
	       is_fringe, fringe_base_item_id, fringe_percent,
	       use_manual_total, manual_total_override, manual_actual_override,
	       estimated_total, actual_total, sort_order, created_at, updated_at`

func (r *lineItemRepository) Insert(q DBTX, li *models.LineItem) error {
	now := time.Now().UTC()
	query := `
		INSERT INTO line_items (
			budget_id, category_id, account_code, description,
			rate_amount, quantity, days, weeks, episodes, calc_mode,
			is_fringe, fringe_base_item_id, fringe_percent,
			use_manual_total, manual_total_override, manual_actual_override,
			estimated_total, actual_total, sort_order, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	result, err := q.Exec(query,
		li.BudgetID,
		li.CategoryID,
		li.AccountCode,
		li.Description,
		li.RateAmount,
		li.Quantity,
		li.Days,
		li.Weeks,
		li.Episodes,
		li.CalcMode,
		li.IsFringe,
		li.FringeBaseItemID,
		li.FringePercent,
		li.UseManualTotal,
		li.ManualTotalOverride,
		li.ManualActualOverride,
		li.EstimatedTotal,
		li.ActualTotal,
		li.SortOrder,
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
	li.ID = id
	li.CreatedAt = now
	li.UpdatedAt = now
	return nil
}

func scanLineItem(scan func(dest ...any) error) (*models.LineItem, error) {
	li := &models.LineItem{}
	err := scan(
		&li.ID,
		&li.BudgetID,
		&li.CategoryID,
		&li.AccountCode,
		&li.Description,
		&li.RateAmount,
		&li.Quantity,
		&li.Days,
		&li.Weeks,
		&li.Episodes,
		&li.CalcMode,
		&li.IsFringe,
		&li.FringeBaseItemID,
		&li.FringePercent,
		&li.UseManualTotal,
		&li.ManualTotalOverride,
		&li.ManualActualOverride,
		&li.EstimatedTotal,
		&li.ActualTotal,
		&li.SortOrder,
		&li.CreatedAt,
		&li.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return li, nil
}

func (r *lineItemRepository) GetByID(q DBTX, id int64) (*models.LineItem, error) {
	row := q.QueryRow(`
		SELECT `+lineItemColumns+`
		FROM line_items
		WHERE id = ?
	`, id)
	li, err := scanLineItem(row.Scan)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return li, nil
}

func (r *lineItemRepository) listWhere(q DBTX, where string, arg any) ([]*models.LineItem, error) {
	rows, err := q.Query(`
		SELECT `+lineItemColumns+`
		FROM line_items
		WHERE `+where+`
		ORDER BY sort_order, id
	`, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*models.LineItem
	for rows.Next() {
		li, err := scanLineItem(rows.Scan)
		if err != nil {
			return nil, err
		}
		items = append(items, li)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *lineItemRepository) ListByCategory(q DBTX, categoryID int64) ([]*models.LineItem, error) {
	return r.listWhere(q, "category_id = ?", categoryID)
}

func (r *lineItemRepository) ListByBudget(q DBTX, budgetID int64) ([]*models.LineItem, error) {
	return r.listWhere(q, "budget_id = ?", budgetID)
}

// ListFringeDependents returns the fringe items whose estimate is derived
// from the given base item.
func (r *lineItemRepository) ListFringeDependents(q DBTX, baseItemID int64) ([]*models.LineItem, error) {
	return r.listWhere(q, "fringe_base_item_id = ?", baseItemID)
}

func (r *lineItemRepository) CountByCategory(q DBTX, categoryID int64) (int64, error) {
	var count int64
	err := q.QueryRow(`SELECT COUNT(*) FROM line_items WHERE category_id = ?`, categoryID).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *lineItemRepository) Update(q DBTX, li *models.LineItem) error {
	_, err := q.Exec(`
		UPDATE line_items
		SET category_id = ?,
			account_code = ?,
			description = ?,
			rate_amount = ?,
			quantity = ?,
			days = ?,
			weeks = ?,
			episodes = ?,
			calc_mode = ?,
			is_fringe = ?,
			fringe_base_item_id = ?,
			fringe_percent = ?,
			use_manual_total = ?,
			manual_total_override = ?,
			manual_actual_override = ?,
			sort_order = ?,
			updated_at = ?
		WHERE id = ?
	`,
		li.CategoryID,
		li.AccountCode,
		li.Description,
		li.RateAmount,
		li.Quantity,
		li.Days,
		li.Weeks,
		li.Episodes,
		li.CalcMode,
		li.IsFringe,
		li.FringeBaseItemID,
		li.FringePercent,
		li.UseManualTotal,
		li.ManualTotalOverride,
		li.ManualActualOverride,
		li.SortOrder,
		time.Now().UTC(),
		li.ID,
	)
	return err
}

func (r *lineItemRepository) UpdateDerivedTotals(q DBTX, id int64, estimatedTotal, actualTotal float64) error {
	_, err := q.Exec(`
		UPDATE line_items
		SET estimated_total = ?, actual_total = ?, updated_at = ?
		WHERE id = ?
	`, estimatedTotal, actualTotal, time.Now().UTC(), id)
	return err
}

func (r *lineItemRepository) Delete(q DBTX, id int64) error {
	return execExpectingRow(q, `DELETE FROM line_items WHERE id = ?`, id)
}
