package repositories

import (
	"database/sql"
	"time"

	"production-budget-service/internal/models"
)

type BudgetRepository interface {
	Insert(q DBTX, b *models.Budget) error
	GetByID(q DBTX, id int64) (*models.Budget, error)
	UpdateStatus(q DBTX, id int64, status string) error
	UpdateAggregates(q DBTX, id int64, estimatedTotal, actualTotal float64) error
	UpdateTopSheetMirror(q DBTX, id int64, fringesTotal, grandTotal float64) error
	UpdateContingency(q DBTX, id int64, contingencyPercent float64) error
}

type budgetRepository struct{}

func NewBudgetRepository() BudgetRepository {
	return &budgetRepository{}
}

func (r *budgetRepository) Insert(q DBTX, b *models.Budget) error {
	now := time.Now().UTC()
	query := `
		INSERT INTO budgets (
			project_id, name, project_type, status, contingency_percent,
			estimated_total, actual_total, fringes_total, grand_total,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	result, err := q.Exec(query,
		b.ProjectID,
		b.Name,
		b.ProjectType,
		b.Status,
		b.ContingencyPercent,
		b.EstimatedTotal,
		b.ActualTotal,
		b.FringesTotal,
		b.GrandTotal,
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
	b.ID = id
	b.CreatedAt = now
	b.UpdatedAt = now
	return nil
}

func (r *budgetRepository) GetByID(q DBTX, id int64) (*models.Budget, error) {
	b := &models.Budget{}
	query := `
		SELECT id, project_id, name, project_type, status, contingency_percent,
		       estimated_total, actual_total, fringes_total, grand_total,
		       created_at, updated_at
		FROM budgets
		WHERE id = ?
	`
	err := q.QueryRow(query, id).Scan(
		&b.ID,
		&b.ProjectID,
		&b.Name,
		&b.ProjectType,
		&b.Status,
		&b.ContingencyPercent,
		&b.EstimatedTotal,
		&b.ActualTotal,
		&b.FringesTotal,
		&b.GrandTotal,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (r *budgetRepository) UpdateStatus(q DBTX, id int64, status string) error {
	return execExpectingRow(q, `
		UPDATE budgets
		SET status = ?, updated_at = ?
		WHERE id = ?
	`, status, time.Now().UTC(), id)
}

// Derived-field writes skip the affected-row check: MySQL reports zero
// affected rows for a no-op update, and an idempotent recompute storing
// the same totals twice is not an error. Row existence is checked by the
// GetByID preceding every recompute pass.
func (r *budgetRepository) UpdateAggregates(q DBTX, id int64, estimatedTotal, actualTotal float64) error {
	_, err := q.Exec(`
		UPDATE budgets
		SET estimated_total = ?, actual_total = ?, updated_at = ?
		WHERE id = ?
	`, estimatedTotal, actualTotal, time.Now().UTC(), id)
	return err
}

func (r *budgetRepository) UpdateTopSheetMirror(q DBTX, id int64, fringesTotal, grandTotal float64) error {
	_, err := q.Exec(`
		UPDATE budgets
		SET fringes_total = ?, grand_total = ?, updated_at = ?
		WHERE id = ?
	`, fringesTotal, grandTotal, time.Now().UTC(), id)
	return err
}

func (r *budgetRepository) UpdateContingency(q DBTX, id int64, contingencyPercent float64) error {
	return execExpectingRow(q, `
		UPDATE budgets
		SET contingency_percent = ?, updated_at = ?
		WHERE id = ?
	`, contingencyPercent, time.Now().UTC(), id)
}

// execExpectingRow runs an UPDATE/DELETE that must touch exactly one
// existing row and maps zero affected rows to ErrNotFound.
func execExpectingRow(q DBTX, query string, args ...any) error {
	result, err := q.Exec(query, args...)
	if err != nil {
		return err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
