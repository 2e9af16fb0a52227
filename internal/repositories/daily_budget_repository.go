package repositories

import (
	"database/sql"
	"time"

	"production-budget-service/internal/models"
)

type DailyBudgetRepository interface {
	Insert(q DBTX, d *models.DailyBudget) error
	GetByID(q DBTX, id int64) (*models.DailyBudget, error)
	GetByBudgetAndDay(q DBTX, budgetID int64, dayID string) (*models.DailyBudget, error)
	ListByBudget(q DBTX, budgetID int64) ([]*models.DailyBudget, error)
	UpdateTotals(q DBTX, id int64, estimatedTotal, actualTotal float64) error
}

type dailyBudgetRepository struct{}

func NewDailyBudgetRepository() DailyBudgetRepository {
	return &dailyBudgetRepository{}
}

const dailyBudgetColumns = `id, budget_id, day_id, estimated_total, actual_total, created_at, updated_at`

func (r *dailyBudgetRepository) Insert(q DBTX, d *models.DailyBudget) error {
	now := time.Now().UTC()
	result, err := q.Exec(`
		INSERT INTO daily_budgets (
			budget_id, day_id, estimated_total, actual_total, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?)
	`, d.BudgetID, d.DayID, d.EstimatedTotal, d.ActualTotal, now, now)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	d.ID = id
	d.CreatedAt = now
	d.UpdatedAt = now
	return nil
}

func scanDailyBudget(scan func(dest ...any) error) (*models.DailyBudget, error) {
	d := &models.DailyBudget{}
	err := scan(
		&d.ID,
		&d.BudgetID,
		&d.DayID,
		&d.EstimatedTotal,
		&d.ActualTotal,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (r *dailyBudgetRepository) GetByID(q DBTX, id int64) (*models.DailyBudget, error) {
	row := q.QueryRow(`
		SELECT `+dailyBudgetColumns+`
		FROM daily_budgets
		WHERE id = ?
	`, id)
	d, err := scanDailyBudget(row.Scan)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (r *dailyBudgetRepository) GetByBudgetAndDay(q DBTX, budgetID int64, dayID string) (*models.DailyBudget, error) {
	row := q.QueryRow(`
		SELECT `+dailyBudgetColumns+`
		FROM daily_budgets
		WHERE budget_id = ? AND day_id = ?
	`, budgetID, dayID)
	d, err := scanDailyBudget(row.Scan)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (r *dailyBudgetRepository) ListByBudget(q DBTX, budgetID int64) ([]*models.DailyBudget, error) {
	rows, err := q.Query(`
		SELECT `+dailyBudgetColumns+`
		FROM daily_budgets
		WHERE budget_id = ?
		ORDER BY day_id, id
	`, budgetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var days []*models.DailyBudget
	for rows.Next() {
		d, err := scanDailyBudget(rows.Scan)
		if err != nil {
			return nil, err
		}
		days = append(days, d)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return days, nil
}

func (r *dailyBudgetRepository) UpdateTotals(q DBTX, id int64, estimatedTotal, actualTotal float64) error {
	_, err := q.Exec(`
		UPDATE daily_budgets
		SET estimated_total = ?, actual_total = ?, updated_at = ?
		WHERE id = ?
	`, estimatedTotal, actualTotal, time.Now().UTC(), id)
	return err
}

type DailyBudgetItemRepository interface {
	Insert(q DBTX, item *models.DailyBudgetItem) error
	GetByID(q DBTX, id int64) (*models.DailyBudgetItem, error)
	ListByDailyBudget(q DBTX, dailyBudgetID int64) ([]*models.DailyBudgetItem, error)
	Update(q DBTX, item *models.DailyBudgetItem) error
	Delete(q DBTX, id int64) error
	SumActualByLineItem(q DBTX, lineItemID int64) (float64, error)
	SumByDailyBudget(q DBTX, dailyBudgetID int64) (estimated, actual float64, err error)
	NullifyLineItemRefs(q DBTX, lineItemID int64) ([]int64, error)
}

type dailyBudgetItemRepository struct{}

func NewDailyBudgetItemRepository() DailyBudgetItemRepository {
	return &dailyBudgetItemRepository{}
}

const dailyBudgetItemColumns = `id, daily_budget_id, line_item_id, description,
	       estimated_amount, actual_amount, created_at, updated_at`

func (r *dailyBudgetItemRepository) Insert(q DBTX, item *models.DailyBudgetItem) error {
	now := time.Now().UTC()
	result, err := q.Exec(`
		INSERT INTO daily_budget_items (
			daily_budget_id, line_item_id, description,
			estimated_amount, actual_amount, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`, item.DailyBudgetID, item.LineItemID, item.Description, item.EstimatedAmount, item.ActualAmount, now, now)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	item.ID = id
	item.CreatedAt = now
	item.UpdatedAt = now
	return nil
}

func scanDailyBudgetItem(scan func(dest ...any) error) (*models.DailyBudgetItem, error) {
	item := &models.DailyBudgetItem{}
	err := scan(
		&item.ID,
		&item.DailyBudgetID,
		&item.LineItemID,
		&item.Description,
		&item.EstimatedAmount,
		&item.ActualAmount,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (r *dailyBudgetItemRepository) GetByID(q DBTX, id int64) (*models.DailyBudgetItem, error) {
	row := q.QueryRow(`
		SELECT `+dailyBudgetItemColumns+`
		FROM daily_budget_items
		WHERE id = ?
	`, id)
	item, err := scanDailyBudgetItem(row.Scan)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (r *dailyBudgetItemRepository) ListByDailyBudget(q DBTX, dailyBudgetID int64) ([]*models.DailyBudgetItem, error) {
	rows, err := q.Query(`
		SELECT `+dailyBudgetItemColumns+`
		FROM daily_budget_items
		WHERE daily_budget_id = ?
		ORDER BY id
	`, dailyBudgetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*models.DailyBudgetItem
	for rows.Next() {
		item, err := scanDailyBudgetItem(rows.Scan)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *dailyBudgetItemRepository) Update(q DBTX, item *models.DailyBudgetItem) error {
	_, err := q.Exec(`
		UPDATE daily_budget_items
		SET line_item_id = ?, description = ?, estimated_amount = ?, actual_amount = ?, updated_at = ?
		WHERE id = ?
	`, item.LineItemID, item.Description, item.EstimatedAmount, item.ActualAmount, time.Now().UTC(), item.ID)
	return err
}

func (r *dailyBudgetItemRepository) Delete(q DBTX, id int64) error {
	return execExpectingRow(q, `DELETE FROM daily_budget_items WHERE id = ?`, id)
}

func (r *dailyBudgetItemRepository) SumActualByLineItem(q DBTX, lineItemID int64) (float64, error) {
	var total float64
	err := q.QueryRow(`
		SELECT COALESCE(SUM(actual_amount), 0)
		FROM daily_budget_items
		WHERE line_item_id = ?
	`, lineItemID).Scan(&total)
	if err != nil {
		return 0, err
	}
	return total, nil
}

func (r *dailyBudgetItemRepository) SumByDailyBudget(q DBTX, dailyBudgetID int64) (float64, float64, error) {
	var estimated, actual float64
	err := q.QueryRow(`
		SELECT COALESCE(SUM(estimated_amount), 0), COALESCE(SUM(actual_amount), 0)
		FROM daily_budget_items
		WHERE daily_budget_id = ?
	`, dailyBudgetID).Scan(&estimated, &actual)
	if err != nil {
		return 0, 0, err
	}
	return estimated, actual, nil
}

// NullifyLineItemRefs detaches every day item pointing at the given line
// item and returns the distinct daily budgets that referenced it, so the
// caller can re-aggregate them.
func (r *dailyBudgetItemRepository) NullifyLineItemRefs(q DBTX, lineItemID int64) ([]int64, error) {
	dayIDs, err := collectIDs(q, `
		SELECT DISTINCT daily_budget_id
		FROM daily_budget_items
		WHERE line_item_id = ?
	`, lineItemID)
	if err != nil {
		return nil, err
	}
	if len(dayIDs) == 0 {
		return nil, nil
	}
	_, err = q.Exec(`
		UPDATE daily_budget_items
		SET line_item_id = NULL, updated_at = ?
		WHERE line_item_id = ?
	`, time.Now().UTC(), lineItemID)
	if err != nil {
		return nil, err
	}
	return dayIDs, nil
}

type BudgetDayLinkRepository interface {
	Insert(q DBTX, link *models.BudgetDayLink) error
	GetByID(q DBTX, id int64) (*models.BudgetDayLink, error)
	ListByLineItem(q DBTX, lineItemID int64) ([]*models.BudgetDayLink, error)
	ListByDailyBudget(q DBTX, dailyBudgetID int64) ([]*models.BudgetDayLink, error)
	Delete(q DBTX, id int64) error
	DeleteByLineItem(q DBTX, lineItemID int64) error
}

type budgetDayLinkRepository struct{}

func NewBudgetDayLinkRepository() BudgetDayLinkRepository {
	return &budgetDayLinkRepository{}
}

func (r *budgetDayLinkRepository) Insert(q DBTX, link *models.BudgetDayLink) error {
	now := time.Now().UTC()
	result, err := q.Exec(`
		INSERT INTO budget_day_links (line_item_id, daily_budget_id, estimated_share, created_at)
		VALUES (?, ?, ?, ?)
	`, link.LineItemID, link.DailyBudgetID, link.EstimatedShare, now)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	link.ID = id
	link.CreatedAt = now
	return nil
}

func (r *budgetDayLinkRepository) GetByID(q DBTX, id int64) (*models.BudgetDayLink, error) {
	link := &models.BudgetDayLink{}
	err := q.QueryRow(`
		SELECT id, line_item_id, daily_budget_id, estimated_share, created_at
		FROM budget_day_links
		WHERE id = ?
	`, id).Scan(&link.ID, &link.LineItemID, &link.DailyBudgetID, &link.EstimatedShare, &link.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return link, nil
}

func (r *budgetDayLinkRepository) listWhere(q DBTX, where string, arg any) ([]*models.BudgetDayLink, error) {
	rows, err := q.Query(`
		SELECT id, line_item_id, daily_budget_id, estimated_share, created_at
		FROM budget_day_links
		WHERE `+where+`
		ORDER BY id
	`, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var links []*models.BudgetDayLink
	for rows.Next() {
		link := &models.BudgetDayLink{}
		err := rows.Scan(&link.ID, &link.LineItemID, &link.DailyBudgetID, &link.EstimatedShare, &link.CreatedAt)
		if err != nil {
			return nil, err
		}
		links = append(links, link)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return links, nil
}

func (r *budgetDayLinkRepository) ListByLineItem(q DBTX, lineItemID int64) ([]*models.BudgetDayLink, error) {
	return r.listWhere(q, "line_item_id = ?", lineItemID)
}

func (r *budgetDayLinkRepository) ListByDailyBudget(q DBTX, dailyBudgetID int64) ([]*models.BudgetDayLink, error) {
	return r.listWhere(q, "daily_budget_id = ?", dailyBudgetID)
}

func (r *budgetDayLinkRepository) Delete(q DBTX, id int64) error {
	return execExpectingRow(q, `DELETE FROM budget_day_links WHERE id = ?`, id)
}

func (r *budgetDayLinkRepository) DeleteByLineItem(q DBTX, lineItemID int64) error {
	_, err := q.Exec(`DELETE FROM budget_day_links WHERE line_item_id = ?`, lineItemID)
	return err
}

func collectIDs(q DBTX, query string, args ...any) ([]int64, error) {
	rows, err := q.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}
