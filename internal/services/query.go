package services

import (
	"database/sql"
	"errors"

	"production-budget-service/internal/models"
	"production-budget-service/internal/repositories"
)

// QueryService serves the read endpoints. Reads return the stored derived
// totals as-is: the mutation path keeps them consistent, so no read ever
// recomputes anything.
type QueryService struct {
	db           *sql.DB
	budgets      repositories.BudgetRepository
	categories   repositories.CategoryRepository
	lineItems    repositories.LineItemRepository
	dailyBudgets repositories.DailyBudgetRepository
	dayItems     repositories.DailyBudgetItemRepository
	dayLinks     repositories.BudgetDayLinkRepository
	receipts     repositories.ReceiptRepository
}

func NewQueryService(
	db *sql.DB,
	budgets repositories.BudgetRepository,
	categories repositories.CategoryRepository,
	lineItems repositories.LineItemRepository,
	dailyBudgets repositories.DailyBudgetRepository,
	dayItems repositories.DailyBudgetItemRepository,
	dayLinks repositories.BudgetDayLinkRepository,
	receipts repositories.ReceiptRepository,
) *QueryService {
	return &QueryService{
		db:           db,
		budgets:      budgets,
		categories:   categories,
		lineItems:    lineItems,
		dailyBudgets: dailyBudgets,
		dayItems:     dayItems,
		dayLinks:     dayLinks,
		receipts:     receipts,
	}
}

// CategoryDetail is a category with its line items.
type CategoryDetail struct {
	models.Category
	LineItems []*models.LineItem `json:"line_items"`
}

// BudgetDetail is the full budget tree served by the detail endpoint.
type BudgetDetail struct {
	models.Budget
	Categories []*CategoryDetail `json:"categories"`
}

func (s *QueryService) GetBudget(budgetID int64) (*BudgetDetail, error) {
	budget, err := s.budgets.GetByID(s.db, budgetID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, notFoundErr("budget", budgetID)
	}
	if err != nil {
		return nil, err
	}

	cats, err := s.categories.ListByBudget(s.db, budgetID)
	if err != nil {
		return nil, err
	}
	items, err := s.lineItems.ListByBudget(s.db, budgetID)
	if err != nil {
		return nil, err
	}

	detail := &BudgetDetail{Budget: *budget, Categories: make([]*CategoryDetail, 0, len(cats))}
	byCategory := make(map[int64]*CategoryDetail, len(cats))
	for _, c := range cats {
		cd := &CategoryDetail{Category: *c, LineItems: []*models.LineItem{}}
		byCategory[c.ID] = cd
		detail.Categories = append(detail.Categories, cd)
	}
	for _, li := range items {
		if cd, ok := byCategory[li.CategoryID]; ok {
			cd.LineItems = append(cd.LineItems, li)
		}
	}
	return detail, nil
}

func (s *QueryService) ListCategories(budgetID int64) ([]*models.Category, error) {
	if _, err := s.budgets.GetByID(s.db, budgetID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, notFoundErr("budget", budgetID)
		}
		return nil, err
	}
	return s.categories.ListByBudget(s.db, budgetID)
}

func (s *QueryService) ListLineItems(categoryID int64) ([]*models.LineItem, error) {
	if _, err := s.categories.GetByID(s.db, categoryID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, notFoundErr("category", categoryID)
		}
		return nil, err
	}
	return s.lineItems.ListByCategory(s.db, categoryID)
}

func (s *QueryService) GetLineItem(lineItemID int64) (*models.LineItem, error) {
	li, err := s.lineItems.GetByID(s.db, lineItemID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, notFoundErr("line item", lineItemID)
	}
	return li, err
}

func (s *QueryService) ListDailyBudgets(budgetID int64) ([]*models.DailyBudget, error) {
	if _, err := s.budgets.GetByID(s.db, budgetID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, notFoundErr("budget", budgetID)
		}
		return nil, err
	}
	return s.dailyBudgets.ListByBudget(s.db, budgetID)
}

// DailyBudgetDetail is a production day with its allocations and planning
// links.
type DailyBudgetDetail struct {
	models.DailyBudget
	Items []*models.DailyBudgetItem `json:"items"`
	Links []*models.BudgetDayLink   `json:"links"`
}

func (s *QueryService) GetDailyBudget(dailyBudgetID int64) (*DailyBudgetDetail, error) {
	day, err := s.dailyBudgets.GetByID(s.db, dailyBudgetID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, notFoundErr("daily budget", dailyBudgetID)
	}
	if err != nil {
		return nil, err
	}
	items, err := s.dayItems.ListByDailyBudget(s.db, dailyBudgetID)
	if err != nil {
		return nil, err
	}
	links, err := s.dayLinks.ListByDailyBudget(s.db, dailyBudgetID)
	if err != nil {
		return nil, err
	}
	return &DailyBudgetDetail{DailyBudget: *day, Items: items, Links: links}, nil
}

func (s *QueryService) ListReceipts(budgetID int64) ([]*models.Receipt, error) {
	if _, err := s.budgets.GetByID(s.db, budgetID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, notFoundErr("budget", budgetID)
		}
		return nil, err
	}
	return s.receipts.ListByBudget(s.db, budgetID)
}

func (s *QueryService) GetReceipt(receiptID int64) (*models.Receipt, error) {
	rc, err := s.receipts.GetByID(s.db, receiptID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, notFoundErr("receipt", receiptID)
	}
	return rc, err
}
