package services

import (
	"database/sql"
	"errors"
	"math"

	"production-budget-service/internal/auth"
	"production-budget-service/internal/database"
	"production-budget-service/internal/models"
	"production-budget-service/internal/repositories"
)

// MutationService is the only entry point for writes to budgets and their
// child entities. Every accepted mutation runs its full bottom-up
// recompute chain inside the same transaction and finishes by marking the
// top sheet stale, so the ancestor chain is never left inconsistent.
type MutationService struct {
	db           *sql.DB
	authz        auth.Authorizer
	budgets      repositories.BudgetRepository
	categories   repositories.CategoryRepository
	lineItems    repositories.LineItemRepository
	dailyBudgets repositories.DailyBudgetRepository
	dayItems     repositories.DailyBudgetItemRepository
	dayLinks     repositories.BudgetDayLinkRepository
	receipts     repositories.ReceiptRepository
	topSheets    repositories.TopSheetRepository
	templates    repositories.TemplateRepository
	recalc       *RecalcService
}

func NewMutationService(
	db *sql.DB,
	authz auth.Authorizer,
	budgets repositories.BudgetRepository,
	categories repositories.CategoryRepository,
	lineItems repositories.LineItemRepository,
	dailyBudgets repositories.DailyBudgetRepository,
	dayItems repositories.DailyBudgetItemRepository,
	dayLinks repositories.BudgetDayLinkRepository,
	receipts repositories.ReceiptRepository,
	topSheets repositories.TopSheetRepository,
	templates repositories.TemplateRepository,
	recalc *RecalcService,
) *MutationService {
	return &MutationService{
		db:           db,
		authz:        authz,
		budgets:      budgets,
		categories:   categories,
		lineItems:    lineItems,
		dailyBudgets: dailyBudgets,
		dayItems:     dayItems,
		dayLinks:     dayLinks,
		receipts:     receipts,
		topSheets:    topSheets,
		templates:    templates,
		recalc:       recalc,
	}
}

// run executes one mutation as a single transaction. A StaleReadError
// means a concurrent writer deleted a row mid-pass; the whole operation
// is retried once against fresh state, then surfaced.
func (s *MutationService) run(fn func(tx *sql.Tx) error) error {
	err := database.WithTx(s.db, fn)
	if err != nil && IsRetryable(err) {
		err = database.WithTx(s.db, fn)
	}
	return err
}

// mutableBudget loads the budget and applies the two gates every child
// mutation passes through: authorization, then the lock state.
func (s *MutationService) mutableBudget(tx *sql.Tx, user auth.User, budgetID int64) (*models.Budget, error) {
	budget, err := s.budgets.GetByID(tx, budgetID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, notFoundErr("budget", budgetID)
	}
	if err != nil {
		return nil, err
	}
	if !s.authz.CanMutate(user, budget) {
		return nil, ErrForbidden
	}
	if !budget.IsMutable() {
		return nil, &LockedBudgetError{BudgetID: budget.ID, Status: budget.Status}
	}
	return budget, nil
}

// --- Budget lifecycle ---

// Allowed status transitions. Lock and unlock bypass the mutable gate by
// design: they are the gate.
var statusTransitions = map[string][]string{
	models.BudgetStatusDraft:           {models.BudgetStatusPendingApproval, models.BudgetStatusLocked, models.BudgetStatusArchived},
	models.BudgetStatusPendingApproval: {models.BudgetStatusDraft, models.BudgetStatusApproved, models.BudgetStatusLocked, models.BudgetStatusArchived},
	models.BudgetStatusApproved:        {models.BudgetStatusLocked, models.BudgetStatusArchived},
	models.BudgetStatusLocked:          {models.BudgetStatusApproved, models.BudgetStatusArchived},
}

func (s *MutationService) changeStatus(user auth.User, budgetID int64, target string) (*models.Budget, error) {
	var result *models.Budget
	err := s.run(func(tx *sql.Tx) error {
		budget, err := s.budgets.GetByID(tx, budgetID)
		if errors.Is(err, repositories.ErrNotFound) {
			return notFoundErr("budget", budgetID)
		}
		if err != nil {
			return err
		}
		if !s.authz.CanMutate(user, budget) {
			return ErrForbidden
		}
		if budget.Status == models.BudgetStatusArchived {
			return &LockedBudgetError{BudgetID: budget.ID, Status: budget.Status}
		}
		allowed := false
		for _, next := range statusTransitions[budget.Status] {
			if next == target {
				allowed = true
				break
			}
		}
		if !allowed {
			return validationErr("status", "cannot transition from "+budget.Status+" to "+target)
		}
		if err := s.budgets.UpdateStatus(tx, budgetID, target); err != nil {
			return err
		}
		budget.Status = target
		result = budget
		return nil
	})
	return result, err
}

func (s *MutationService) SubmitBudget(user auth.User, budgetID int64) (*models.Budget, error) {
	return s.changeStatus(user, budgetID, models.BudgetStatusPendingApproval)
}

func (s *MutationService) ApproveBudget(user auth.User, budgetID int64) (*models.Budget, error) {
	return s.changeStatus(user, budgetID, models.BudgetStatusApproved)
}

func (s *MutationService) LockBudget(user auth.User, budgetID int64) (*models.Budget, error) {
	return s.changeStatus(user, budgetID, models.BudgetStatusLocked)
}

func (s *MutationService) UnlockBudget(user auth.User, budgetID int64) (*models.Budget, error) {
	return s.changeStatus(user, budgetID, models.BudgetStatusApproved)
}

func (s *MutationService) ArchiveBudget(user auth.User, budgetID int64) (*models.Budget, error) {
	return s.changeStatus(user, budgetID, models.BudgetStatusArchived)
}

// --- Categories ---

type CategoryInput struct {
	Name         string `json:"name"`
	AccountCode  string `json:"account_code"`
	CategoryType string `json:"category_type"`
	SortOrder    int    `json:"sort_order"`
}

func (in *CategoryInput) validate() error {
	if in.Name == "" {
		return validationErr("name", "required")
	}
	if !models.ValidCategoryType(in.CategoryType) {
		return validationErr("category_type", "unknown category type "+in.CategoryType)
	}
	return nil
}

func (s *MutationService) CreateCategory(user auth.User, budgetID int64, in CategoryInput) (*models.Category, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	var result *models.Category
	err := s.run(func(tx *sql.Tx) error {
		if _, err := s.mutableBudget(tx, user, budgetID); err != nil {
			return err
		}
		cat := &models.Category{
			BudgetID:     budgetID,
			Name:         in.Name,
			AccountCode:  in.AccountCode,
			CategoryType: in.CategoryType,
			SortOrder:    in.SortOrder,
		}
		if err := s.categories.Insert(tx, cat); err != nil {
			return err
		}
		if err := s.recalc.RecomputeCategory(tx, cat.ID); err != nil {
			return err
		}
		if err := s.recalc.RecomputeBudget(tx, budgetID); err != nil {
			return err
		}
		result = cat
		return nil
	})
	return result, err
}

func (s *MutationService) UpdateCategory(user auth.User, categoryID int64, in CategoryInput) (*models.Category, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	var result *models.Category
	err := s.run(func(tx *sql.Tx) error {
		cat, err := s.categories.GetByID(tx, categoryID)
		if errors.Is(err, repositories.ErrNotFound) {
			return notFoundErr("category", categoryID)
		}
		if err != nil {
			return err
		}
		if _, err := s.mutableBudget(tx, user, cat.BudgetID); err != nil {
			return err
		}
		cat.Name = in.Name
		cat.AccountCode = in.AccountCode
		cat.CategoryType = in.CategoryType
		cat.SortOrder = in.SortOrder
		if err := s.categories.Update(tx, cat); err != nil {
			return err
		}
		// category_type and sort_order feed the top sheet grouping.
		if err := s.recalc.RecomputeCategory(tx, categoryID); err != nil {
			return err
		}
		if err := s.recalc.RecomputeBudget(tx, cat.BudgetID); err != nil {
			return err
		}
		result = cat
		return nil
	})
	return result, err
}

func (s *MutationService) DeleteCategory(user auth.User, categoryID int64) error {
	return s.run(func(tx *sql.Tx) error {
		cat, err := s.categories.GetByID(tx, categoryID)
		if errors.Is(err, repositories.ErrNotFound) {
			return notFoundErr("category", categoryID)
		}
		if err != nil {
			return err
		}
		if _, err := s.mutableBudget(tx, user, cat.BudgetID); err != nil {
			return err
		}
		count, err := s.lineItems.CountByCategory(tx, categoryID)
		if err != nil {
			return err
		}
		if count > 0 {
			return validationErr("category", "cannot delete a category that still has line items")
		}
		if err := s.categories.Delete(tx, categoryID); err != nil {
			return err
		}
		return s.recalc.RecomputeBudget(tx, cat.BudgetID)
	})
}

// --- Line items ---

type LineItemInput struct {
	CategoryID           int64    `json:"category_id"`
	AccountCode          string   `json:"account_code"`
	Description          string   `json:"description"`
	RateAmount           float64  `json:"rate_amount"`
	Quantity             float64  `json:"quantity"`
	Days                 *float64 `json:"days"`
	Weeks                *float64 `json:"weeks"`
	Episodes             *float64 `json:"episodes"`
	CalcMode             string   `json:"calc_mode"`
	IsFringe             bool     `json:"is_fringe"`
	FringeBaseItemID     *int64   `json:"fringe_base_item_id"`
	FringePercent        *float64 `json:"fringe_percent"`
	UseManualTotal       bool     `json:"use_manual_total"`
	ManualTotalOverride  *float64 `json:"manual_total_override"`
	ManualActualOverride *float64 `json:"manual_actual_override"`
	SortOrder            int      `json:"sort_order"`
}

func (in *LineItemInput) validate() error {
	if !models.ValidCalcMode(in.CalcMode) {
		return validationErr("calc_mode", "unknown calc mode "+in.CalcMode)
	}
	for field, v := range map[string]float64{
		"rate_amount": in.RateAmount,
		"quantity":    in.Quantity,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return validationErr(field, "must be a finite number")
		}
		if v < 0 {
			return validationErr(field, "must not be negative")
		}
	}
	if in.FringeBaseItemID != nil && in.FringePercent == nil {
		return validationErr("fringe_percent", "required when fringe_base_item_id is set")
	}
	if in.FringePercent != nil && *in.FringePercent < 0 {
		return validationErr("fringe_percent", "must not be negative")
	}
	return nil
}

// validateFringeBase checks the declared dependency edge: the base must
// exist in the same budget and following base edges from it must never
// reach the item being written.
func (s *MutationService) validateFringeBase(tx *sql.Tx, budgetID, itemID, baseID int64) error {
	visited := map[int64]bool{}
	currentID := baseID
	for {
		if currentID == itemID {
			return &DependencyCycleError{LineItemID: itemID}
		}
		if visited[currentID] {
			return &DependencyCycleError{LineItemID: itemID}
		}
		visited[currentID] = true

		base, err := s.lineItems.GetByID(tx, currentID)
		if errors.Is(err, repositories.ErrNotFound) {
			return validationErr("fringe_base_item_id", "base line item does not exist")
		}
		if err != nil {
			return err
		}
		if base.BudgetID != budgetID {
			return validationErr("fringe_base_item_id", "base line item belongs to another budget")
		}
		if !base.FringeBaseItemID.Valid {
			return nil
		}
		currentID = base.FringeBaseItemID.Int64
	}
}

func (s *MutationService) CreateLineItem(user auth.User, budgetID int64, in LineItemInput) (*models.LineItem, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	var result *models.LineItem
	err := s.run(func(tx *sql.Tx) error {
		if _, err := s.mutableBudget(tx, user, budgetID); err != nil {
			return err
		}
		cat, err := s.categories.GetByID(tx, in.CategoryID)
		if errors.Is(err, repositories.ErrNotFound) {
			return validationErr("category_id", "category does not exist")
		}
		if err != nil {
			return err
		}
		if cat.BudgetID != budgetID {
			return validationErr("category_id", "category belongs to another budget")
		}
		if in.FringeBaseItemID != nil {
			if err := s.validateFringeBase(tx, budgetID, 0, *in.FringeBaseItemID); err != nil {
				return err
			}
		}

		li := &models.LineItem{
			BudgetID:             budgetID,
			CategoryID:           in.CategoryID,
			AccountCode:          in.AccountCode,
			Description:          in.Description,
			RateAmount:           in.RateAmount,
			Quantity:             in.Quantity,
			Days:                 nullFloat(in.Days),
			Weeks:                nullFloat(in.Weeks),
			Episodes:             nullFloat(in.Episodes),
			CalcMode:             in.CalcMode,
			IsFringe:             in.IsFringe,
			FringeBaseItemID:     nullInt(in.FringeBaseItemID),
			FringePercent:        nullFloat(in.FringePercent),
			UseManualTotal:       in.UseManualTotal,
			ManualTotalOverride:  nullFloat(in.ManualTotalOverride),
			ManualActualOverride: nullFloat(in.ManualActualOverride),
			SortOrder:            in.SortOrder,
		}
		if err := s.lineItems.Insert(tx, li); err != nil {
			return err
		}
		if err := s.recalc.RecomputeLineItemChain(tx, li); err != nil {
			return err
		}
		fresh, err := s.lineItems.GetByID(tx, li.ID)
		if err != nil {
			return err
		}
		result = fresh
		return nil
	})
	return result, err
}

func (s *MutationService) UpdateLineItem(user auth.User, lineItemID int64, in LineItemInput) (*models.LineItem, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	var result *models.LineItem
	err := s.run(func(tx *sql.Tx) error {
		li, err := s.lineItems.GetByID(tx, lineItemID)
		if errors.Is(err, repositories.ErrNotFound) {
			return notFoundErr("line item", lineItemID)
		}
		if err != nil {
			return err
		}
		if _, err := s.mutableBudget(tx, user, li.BudgetID); err != nil {
			return err
		}

		oldCategoryID := li.CategoryID
		if in.CategoryID != oldCategoryID {
			cat, err := s.categories.GetByID(tx, in.CategoryID)
			if errors.Is(err, repositories.ErrNotFound) {
				return validationErr("category_id", "category does not exist")
			}
			if err != nil {
				return err
			}
			if cat.BudgetID != li.BudgetID {
				return validationErr("category_id", "category belongs to another budget")
			}
		}
		if in.FringeBaseItemID != nil {
			if err := s.validateFringeBase(tx, li.BudgetID, li.ID, *in.FringeBaseItemID); err != nil {
				return err
			}
		}

		li.CategoryID = in.CategoryID
		li.AccountCode = in.AccountCode
		li.Description = in.Description
		li.RateAmount = in.RateAmount
		li.Quantity = in.Quantity
		li.Days = nullFloat(in.Days)
		li.Weeks = nullFloat(in.Weeks)
		li.Episodes = nullFloat(in.Episodes)
		li.CalcMode = in.CalcMode
		li.IsFringe = in.IsFringe
		li.FringeBaseItemID = nullInt(in.FringeBaseItemID)
		li.FringePercent = nullFloat(in.FringePercent)
		li.UseManualTotal = in.UseManualTotal
		li.ManualTotalOverride = nullFloat(in.ManualTotalOverride)
		li.ManualActualOverride = nullFloat(in.ManualActualOverride)
		li.SortOrder = in.SortOrder
		if err := s.lineItems.Update(tx, li); err != nil {
			return err
		}

		// A reassigned item leaves its old category's subtotals behind;
		// recompute the old side first, then the chain from the new side.
		if oldCategoryID != li.CategoryID {
			if err := s.recalc.RecomputeCategory(tx, oldCategoryID); err != nil {
				return err
			}
		}
		if err := s.recalc.RecomputeLineItemChain(tx, li); err != nil {
			return err
		}
		fresh, err := s.lineItems.GetByID(tx, li.ID)
		if err != nil {
			return err
		}
		result = fresh
		return nil
	})
	return result, err
}

func (s *MutationService) DeleteLineItem(user auth.User, lineItemID int64) error {
	return s.run(func(tx *sql.Tx) error {
		li, err := s.lineItems.GetByID(tx, lineItemID)
		if errors.Is(err, repositories.ErrNotFound) {
			return notFoundErr("line item", lineItemID)
		}
		if err != nil {
			return err
		}
		if _, err := s.mutableBudget(tx, user, li.BudgetID); err != nil {
			return err
		}

		dependents, err := s.lineItems.ListFringeDependents(tx, lineItemID)
		if err != nil {
			return err
		}
		if len(dependents) > 0 {
			return validationErr("line_item", "item is the fringe base of other items")
		}

		// Detach day allocations and receipts, remembering which days they
		// pointed at so those aggregates get refreshed too.
		affectedDays, err := s.dayItems.NullifyLineItemRefs(tx, lineItemID)
		if err != nil {
			return err
		}
		receiptDays, err := s.receipts.UnmapByLineItem(tx, lineItemID)
		if err != nil {
			return err
		}
		affectedDays = append(affectedDays, receiptDays...)
		if err := s.dayLinks.DeleteByLineItem(tx, lineItemID); err != nil {
			return err
		}

		if err := s.lineItems.Delete(tx, lineItemID); err != nil {
			return err
		}

		seen := map[int64]bool{}
		for _, dayID := range affectedDays {
			if seen[dayID] {
				continue
			}
			seen[dayID] = true
			if err := s.recalc.RecomputeDailyBudget(tx, dayID); err != nil {
				return err
			}
		}
		if err := s.recalc.RecomputeCategory(tx, li.CategoryID); err != nil {
			return err
		}
		return s.recalc.RecomputeBudget(tx, li.BudgetID)
	})
}

// --- Daily budgets and allocations ---

func (s *MutationService) CreateDailyBudget(user auth.User, budgetID int64, dayID string) (*models.DailyBudget, error) {
	if dayID == "" {
		return nil, validationErr("day_id", "required")
	}
	var result *models.DailyBudget
	err := s.run(func(tx *sql.Tx) error {
		if _, err := s.mutableBudget(tx, user, budgetID); err != nil {
			return err
		}
		_, err := s.dailyBudgets.GetByBudgetAndDay(tx, budgetID, dayID)
		if err == nil {
			return validationErr("day_id", "daily budget for this day already exists")
		}
		if !errors.Is(err, repositories.ErrNotFound) {
			return err
		}
		day := &models.DailyBudget{BudgetID: budgetID, DayID: dayID}
		if err := s.dailyBudgets.Insert(tx, day); err != nil {
			return err
		}
		result = day
		return nil
	})
	return result, err
}

type DailyBudgetItemInput struct {
	LineItemID      *int64  `json:"line_item_id"`
	Description     string  `json:"description"`
	EstimatedAmount float64 `json:"estimated_amount"`
	ActualAmount    float64 `json:"actual_amount"`
}

func (in *DailyBudgetItemInput) validate() error {
	for field, v := range map[string]float64{
		"estimated_amount": in.EstimatedAmount,
		"actual_amount":    in.ActualAmount,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return validationErr(field, "must be a finite number")
		}
		if v < 0 {
			return validationErr(field, "must not be negative")
		}
	}
	return nil
}

// dayItemChain re-aggregates the day, then fans out to the referenced
// line item's ancestor chain when one is set. This is the causally
// ordered pass: day item -> day, day item -> line item -> category ->
// budget, finishing stale.
func (s *MutationService) dayItemChain(tx *sql.Tx, dailyBudgetID int64, lineItemIDs ...sql.NullInt64) error {
	if err := s.recalc.RecomputeDailyBudget(tx, dailyBudgetID); err != nil {
		return err
	}
	seen := map[int64]bool{}
	for _, ref := range lineItemIDs {
		if !ref.Valid || seen[ref.Int64] {
			continue
		}
		seen[ref.Int64] = true
		li, err := s.lineItems.GetByID(tx, ref.Int64)
		if errors.Is(err, repositories.ErrNotFound) {
			continue // reference already detached by a concurrent delete
		}
		if err != nil {
			return err
		}
		if err := s.recalc.RecomputeLineItemChain(tx, li); err != nil {
			return err
		}
	}
	return nil
}

func (s *MutationService) resolveDayItemRef(tx *sql.Tx, budgetID int64, ref *int64) (sql.NullInt64, error) {
	if ref == nil {
		return sql.NullInt64{}, nil
	}
	li, err := s.lineItems.GetByID(tx, *ref)
	if errors.Is(err, repositories.ErrNotFound) {
		return sql.NullInt64{}, validationErr("line_item_id", "line item does not exist")
	}
	if err != nil {
		return sql.NullInt64{}, err
	}
	if li.BudgetID != budgetID {
		return sql.NullInt64{}, validationErr("line_item_id", "line item belongs to another budget")
	}
	return sql.NullInt64{Int64: *ref, Valid: true}, nil
}

func (s *MutationService) CreateDailyBudgetItem(user auth.User, dailyBudgetID int64, in DailyBudgetItemInput) (*models.DailyBudgetItem, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	var result *models.DailyBudgetItem
	err := s.run(func(tx *sql.Tx) error {
		day, err := s.dailyBudgets.GetByID(tx, dailyBudgetID)
		if errors.Is(err, repositories.ErrNotFound) {
			return notFoundErr("daily budget", dailyBudgetID)
		}
		if err != nil {
			return err
		}
		if _, err := s.mutableBudget(tx, user, day.BudgetID); err != nil {
			return err
		}
		ref, err := s.resolveDayItemRef(tx, day.BudgetID, in.LineItemID)
		if err != nil {
			return err
		}

		item := &models.DailyBudgetItem{
			DailyBudgetID:   dailyBudgetID,
			LineItemID:      ref,
			Description:     in.Description,
			EstimatedAmount: in.EstimatedAmount,
			ActualAmount:    in.ActualAmount,
		}
		if err := s.dayItems.Insert(tx, item); err != nil {
			return err
		}
		if err := s.dayItemChain(tx, dailyBudgetID, ref); err != nil {
			return err
		}
		result = item
		return nil
	})
	return result, err
}

func (s *MutationService) UpdateDailyBudgetItem(user auth.User, itemID int64, in DailyBudgetItemInput) (*models.DailyBudgetItem, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	var result *models.DailyBudgetItem
	err := s.run(func(tx *sql.Tx) error {
		item, err := s.dayItems.GetByID(tx, itemID)
		if errors.Is(err, repositories.ErrNotFound) {
			return notFoundErr("daily budget item", itemID)
		}
		if err != nil {
			return err
		}
		day, err := s.dailyBudgets.GetByID(tx, item.DailyBudgetID)
		if errors.Is(err, repositories.ErrNotFound) {
			return staleReadErr("daily budget", item.DailyBudgetID)
		}
		if err != nil {
			return err
		}
		if _, err := s.mutableBudget(tx, user, day.BudgetID); err != nil {
			return err
		}
		newRef, err := s.resolveDayItemRef(tx, day.BudgetID, in.LineItemID)
		if err != nil {
			return err
		}

		oldRef := item.LineItemID
		item.LineItemID = newRef
		item.Description = in.Description
		item.EstimatedAmount = in.EstimatedAmount
		item.ActualAmount = in.ActualAmount
		if err := s.dayItems.Update(tx, item); err != nil {
			return err
		}
		if err := s.dayItemChain(tx, item.DailyBudgetID, oldRef, newRef); err != nil {
			return err
		}
		result = item
		return nil
	})
	return result, err
}

func (s *MutationService) DeleteDailyBudgetItem(user auth.User, itemID int64) error {
	return s.run(func(tx *sql.Tx) error {
		item, err := s.dayItems.GetByID(tx, itemID)
		if errors.Is(err, repositories.ErrNotFound) {
			return notFoundErr("daily budget item", itemID)
		}
		if err != nil {
			return err
		}
		day, err := s.dailyBudgets.GetByID(tx, item.DailyBudgetID)
		if errors.Is(err, repositories.ErrNotFound) {
			return staleReadErr("daily budget", item.DailyBudgetID)
		}
		if err != nil {
			return err
		}
		if _, err := s.mutableBudget(tx, user, day.BudgetID); err != nil {
			return err
		}
		if err := s.dayItems.Delete(tx, itemID); err != nil {
			return err
		}
		return s.dayItemChain(tx, item.DailyBudgetID, item.LineItemID)
	})
}

// --- Day links ---

type BudgetDayLinkInput struct {
	LineItemID     int64   `json:"line_item_id"`
	DailyBudgetID  int64   `json:"daily_budget_id"`
	EstimatedShare float64 `json:"estimated_share"`
}

func (s *MutationService) CreateBudgetDayLink(user auth.User, in BudgetDayLinkInput) (*models.BudgetDayLink, error) {
	if math.IsNaN(in.EstimatedShare) || math.IsInf(in.EstimatedShare, 0) || in.EstimatedShare < 0 {
		return nil, validationErr("estimated_share", "must be a non-negative finite number")
	}
	var result *models.BudgetDayLink
	err := s.run(func(tx *sql.Tx) error {
		li, err := s.lineItems.GetByID(tx, in.LineItemID)
		if errors.Is(err, repositories.ErrNotFound) {
			return validationErr("line_item_id", "line item does not exist")
		}
		if err != nil {
			return err
		}
		if _, err := s.mutableBudget(tx, user, li.BudgetID); err != nil {
			return err
		}
		day, err := s.dailyBudgets.GetByID(tx, in.DailyBudgetID)
		if errors.Is(err, repositories.ErrNotFound) {
			return validationErr("daily_budget_id", "daily budget does not exist")
		}
		if err != nil {
			return err
		}
		if day.BudgetID != li.BudgetID {
			return validationErr("daily_budget_id", "daily budget belongs to another budget")
		}

		link := &models.BudgetDayLink{
			LineItemID:     in.LineItemID,
			DailyBudgetID:  in.DailyBudgetID,
			EstimatedShare: in.EstimatedShare,
		}
		if err := s.dayLinks.Insert(tx, link); err != nil {
			return err
		}
		// Links only redistribute an existing estimate across days; totals
		// are untouched but the day view on the top sheet changes.
		if err := s.topSheets.MarkStale(tx, li.BudgetID); err != nil {
			return err
		}
		result = link
		return nil
	})
	return result, err
}

func (s *MutationService) DeleteBudgetDayLink(user auth.User, linkID int64) error {
	return s.run(func(tx *sql.Tx) error {
		link, err := s.dayLinks.GetByID(tx, linkID)
		if errors.Is(err, repositories.ErrNotFound) {
			return notFoundErr("budget day link", linkID)
		}
		if err != nil {
			return err
		}
		li, err := s.lineItems.GetByID(tx, link.LineItemID)
		if errors.Is(err, repositories.ErrNotFound) {
			return staleReadErr("line item", link.LineItemID)
		}
		if err != nil {
			return err
		}
		if _, err := s.mutableBudget(tx, user, li.BudgetID); err != nil {
			return err
		}
		if err := s.dayLinks.Delete(tx, linkID); err != nil {
			return err
		}
		return s.topSheets.MarkStale(tx, li.BudgetID)
	})
}

func nullFloat(p *float64) sql.NullFloat64 {
	if p == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *p, Valid: true}
}

func nullInt(p *int64) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *p, Valid: true}
}
