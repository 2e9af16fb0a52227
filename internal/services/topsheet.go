package services

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"production-budget-service/internal/database"
	"production-budget-service/internal/formula"
	"production-budget-service/internal/models"
	"production-budget-service/internal/repositories"
)

// TopSheetService serves the cached budget summary, recompiling it lazily:
// a fresh cache row is returned as-is, a stale or missing one is rebuilt
// from the stored aggregates inside the same transaction that saves it.
type TopSheetService struct {
	db         *sql.DB
	budgets    repositories.BudgetRepository
	categories repositories.CategoryRepository
	lineItems  repositories.LineItemRepository
	topSheets  repositories.TopSheetRepository
}

func NewTopSheetService(
	db *sql.DB,
	budgets repositories.BudgetRepository,
	categories repositories.CategoryRepository,
	lineItems repositories.LineItemRepository,
	topSheets repositories.TopSheetRepository,
) *TopSheetService {
	return &TopSheetService{
		db:         db,
		budgets:    budgets,
		categories: categories,
		lineItems:  lineItems,
		topSheets:  topSheets,
	}
}

func (s *TopSheetService) GetTopSheet(budgetID int64) (*models.TopSheetCache, error) {
	var result *models.TopSheetCache
	err := database.WithTx(s.db, func(tx *sql.Tx) error {
		cached, err := s.topSheets.GetByBudget(tx, budgetID)
		if err == nil && !cached.IsStale {
			result = cached
			return nil
		}
		if err != nil && !errors.Is(err, repositories.ErrNotFound) {
			return err
		}

		ts, err := s.compile(tx, budgetID)
		if err != nil {
			return err
		}
		result = ts
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// compile rebuilds the summary from the stored category and line item
// aggregates. It never recomputes those aggregates itself; the mutation
// path already kept them consistent, the compiler only groups and rolls
// them up into the presentation shape.
func (s *TopSheetService) compile(tx *sql.Tx, budgetID int64) (*models.TopSheetCache, error) {
	budget, err := s.budgets.GetByID(tx, budgetID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, notFoundErr("budget", budgetID)
	}
	if err != nil {
		return nil, err
	}

	cats, err := s.categories.ListByBudget(tx, budgetID)
	if err != nil {
		return nil, err
	}
	items, err := s.lineItems.ListByBudget(tx, budgetID)
	if err != nil {
		return nil, err
	}

	typeByCategory := make(map[int64]string, len(cats))
	for _, c := range cats {
		typeByCategory[c.ID] = c.CategoryType
	}

	ts := &models.TopSheetCache{BudgetID: budgetID}
	var fringes float64
	for _, li := range items {
		switch typeByCategory[li.CategoryID] {
		case models.CategoryTypeAboveTheLine:
			ts.AboveTheLineTotal += li.EstimatedTotal
		case models.CategoryTypeProduction:
			ts.ProductionTotal += li.EstimatedTotal
		case models.CategoryTypePost:
			ts.PostTotal += li.EstimatedTotal
		default:
			ts.OtherTotal += li.EstimatedTotal
		}
		if li.IsFringe {
			fringes += li.EstimatedTotal
		}
	}

	ts.AboveTheLineTotal = formula.RoundCents(ts.AboveTheLineTotal)
	ts.ProductionTotal = formula.RoundCents(ts.ProductionTotal)
	ts.PostTotal = formula.RoundCents(ts.PostTotal)
	ts.OtherTotal = formula.RoundCents(ts.OtherTotal)
	ts.FringesTotal = formula.RoundCents(fringes)
	ts.Subtotal = formula.RoundCents(ts.AboveTheLineTotal + ts.ProductionTotal + ts.PostTotal + ts.OtherTotal)
	ts.ContingencyAmount = formula.RoundCents(formula.Contingency(ts.Subtotal, budget.ContingencyPercent))
	ts.GrandTotal = formula.RoundCents(ts.Subtotal + ts.ContingencyAmount)

	// Categories arrive ordered by sort_order; the breakdown keeps that
	// presentation order.
	breakdown := make([]models.TopSheetCategoryRow, 0, len(cats))
	for _, c := range cats {
		breakdown = append(breakdown, models.TopSheetCategoryRow{
			CategoryID:     c.ID,
			Name:           c.Name,
			AccountCode:    c.AccountCode,
			CategoryType:   c.CategoryType,
			SortOrder:      c.SortOrder,
			EstimatedTotal: c.EstimatedSubtotal,
			ActualTotal:    c.ActualSubtotal,
		})
	}
	raw, err := json.Marshal(breakdown)
	if err != nil {
		return nil, err
	}
	ts.Breakdown = raw
	ts.ComputedAt = time.Now().UTC()
	ts.IsStale = false

	if err := s.topSheets.Save(tx, ts); err != nil {
		return nil, err
	}
	if err := s.budgets.UpdateTopSheetMirror(tx, budgetID, ts.FringesTotal, ts.GrandTotal); err != nil {
		return nil, err
	}
	return ts, nil
}
