package repositories

import (
	"database/sql"
	"time"

	"production-budget-service/internal/models"
)

type CategoryRepository interface {
	Insert(q DBTX, c *models.Category) error
	GetByID(q DBTX, id int64) (*models.Category, error)
	ListByBudget(q DBTX, budgetID int64) ([]*models.Category, error)
	Update(q DBTX, c *models.Category) error
	UpdateSubtotals(q DBTX, id int64, estimatedSubtotal, actualSubtotal float64) error
	Delete(q DBTX, id int64) error
}

type categoryRepository struct{}

func NewCategoryRepository() CategoryRepository {
	return &categoryRepository{}
}

const categoryColumns = `id, budget_id, name, account_code, category_type, sort_order,
	       estimated_subtotal, actual_subtotal, created_at, updated_at`

func (r *categoryRepository) Insert(q DBTX, c *models.Category) error {
	now := time.Now().UTC()
	query := `
		INSERT INTO categories (
			budget_id, name, account_code, category_type, sort_order,
			estimated_subtotal, actual_subtotal, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	result, err := q.Exec(query,
		c.BudgetID,
		c.Name,
		c.AccountCode,
		c.CategoryType,
		c.SortOrder,
		c.EstimatedSubtotal,
		c.ActualSubtotal,
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
	c.ID = id
	c.CreatedAt = now
	c.UpdatedAt = now
	return nil
}

func (r *categoryRepository) GetByID(q DBTX, id int64) (*models.Category, error) {
	c := &models.Category{}
	err := q.QueryRow(`
		SELECT `+categoryColumns+`
		FROM categories
		WHERE id = ?
	`, id).Scan(
		&c.ID,
		&c.BudgetID,
		&c.Name,
		&c.AccountCode,
		&c.CategoryType,
		&c.SortOrder,
		&c.EstimatedSubtotal,
		&c.ActualSubtotal,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *categoryRepository) ListByBudget(q DBTX, budgetID int64) ([]*models.Category, error) {
	rows, err := q.Query(`
		SELECT `+categoryColumns+`
		FROM categories
		WHERE budget_id = ?
		ORDER BY sort_order, id
	`, budgetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []*models.Category
	for rows.Next() {
		c := &models.Category{}
		err := rows.Scan(
			&c.ID,
			&c.BudgetID,
			&c.Name,
			&c.AccountCode,
			&c.CategoryType,
			&c.SortOrder,
			&c.EstimatedSubtotal,
			&c.ActualSubtotal,
			&c.CreatedAt,
			&c.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return categories, nil
}

func (r *categoryRepository) Update(q DBTX, c *models.Category) error {
	_, err := q.Exec(`
		UPDATE categories
		SET name = ?, account_code = ?, category_type = ?, sort_order = ?, updated_at = ?
		WHERE id = ?
	`, c.Name, c.AccountCode, c.CategoryType, c.SortOrder, time.Now().UTC(), c.ID)
	return err
}

func (r *categoryRepository) UpdateSubtotals(q DBTX, id int64, estimatedSubtotal, actualSubtotal float64) error {
	_, err := q.Exec(`
		UPDATE categories
		SET estimated_subtotal = ?, actual_subtotal = ?, updated_at = ?
		WHERE id = ?
	`, estimatedSubtotal, actualSubtotal, time.Now().UTC(), id)
	return err
}

func (r *categoryRepository) Delete(q DBTX, id int64) error {
	return execExpectingRow(q, `DELETE FROM categories WHERE id = ?`, id)
}
