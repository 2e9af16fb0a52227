package repositories

import (
	"database/sql"

	"production-budget-service/internal/models"
)

type TopSheetRepository interface {
	GetByBudget(q DBTX, budgetID int64) (*models.TopSheetCache, error)
	Save(q DBTX, ts *models.TopSheetCache) error
	MarkStale(q DBTX, budgetID int64) error
}

type topSheetRepository struct{}

func NewTopSheetRepository() TopSheetRepository {
	return &topSheetRepository{}
}

func (r *topSheetRepository) GetByBudget(q DBTX, budgetID int64) (*models.TopSheetCache, error) {
	ts := &models.TopSheetCache{}
	err := q.QueryRow(`
		SELECT id, budget_id, above_the_line_total, production_total, post_total, other_total,
		       fringes_total, subtotal, contingency_amount, grand_total,
		       breakdown, computed_at, is_stale
		FROM top_sheet_caches
		WHERE budget_id = ?
	`, budgetID).Scan(
		&ts.ID,
		&ts.BudgetID,
		&ts.AboveTheLineTotal,
		&ts.ProductionTotal,
		&ts.PostTotal,
		&ts.OtherTotal,
		&ts.FringesTotal,
		&ts.Subtotal,
		&ts.ContingencyAmount,
		&ts.GrandTotal,
		&ts.Breakdown,
		&ts.ComputedAt,
		&ts.IsStale,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return ts, nil
}

// Save upserts the single cache row for a budget. The update-then-insert
// shape keeps the statement portable across backends.
func (r *topSheetRepository) Save(q DBTX, ts *models.TopSheetCache) error {
	result, err := q.Exec(`
		UPDATE top_sheet_caches
		SET above_the_line_total = ?,
			production_total = ?,
			post_total = ?,
			other_total = ?,
			fringes_total = ?,
			subtotal = ?,
			contingency_amount = ?,
			grand_total = ?,
			breakdown = ?,
			computed_at = ?,
			is_stale = ?
		WHERE budget_id = ?
	`,
		ts.AboveTheLineTotal,
		ts.ProductionTotal,
		ts.PostTotal,
		ts.OtherTotal,
		ts.FringesTotal,
		ts.Subtotal,
		ts.ContingencyAmount,
		ts.GrandTotal,
		[]byte(ts.Breakdown),
		ts.ComputedAt,
		ts.IsStale,
		ts.BudgetID,
	)
	if err != nil {
		return err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected > 0 {
		return nil
	}

	// No cache row yet; make sure one actually is missing before inserting,
	// since a no-op update also reports zero affected rows.
	var existing int64
	err = q.QueryRow(`SELECT id FROM top_sheet_caches WHERE budget_id = ?`, ts.BudgetID).Scan(&existing)
	if err == nil {
		ts.ID = existing
		return nil
	}
	if err != sql.ErrNoRows {
		return err
	}

	insert, err := q.Exec(`
		INSERT INTO top_sheet_caches (
			budget_id, above_the_line_total, production_total, post_total, other_total,
			fringes_total, subtotal, contingency_amount, grand_total,
			breakdown, computed_at, is_stale
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		ts.BudgetID,
		ts.AboveTheLineTotal,
		ts.ProductionTotal,
		ts.PostTotal,
		ts.OtherTotal,
		ts.FringesTotal,
		ts.Subtotal,
		ts.ContingencyAmount,
		ts.GrandTotal,
		[]byte(ts.Breakdown),
		ts.ComputedAt,
		ts.IsStale,
	)
	if err != nil {
		return err
	}
	id, err := insert.LastInsertId()
	if err != nil {
		return err
	}
	ts.ID = id
	return nil
}

// MarkStale is the only cache write mutation paths are allowed to make:
// staleness moves monotonically toward true between compiles. A missing
// cache row needs nothing, absent means stale.
func (r *topSheetRepository) MarkStale(q DBTX, budgetID int64) error {
	_, err := q.Exec(`
		UPDATE top_sheet_caches
		SET is_stale = ?
		WHERE budget_id = ?
	`, true, budgetID)
	return err
}
