package services

import (
	"errors"
	"fmt"

	"production-budget-service/internal/formula"
	"production-budget-service/internal/models"
	"production-budget-service/internal/repositories"
)

// RecalcService is the aggregation-consistency engine: attribution of
// actuals to line items, bottom-up recomputation of category and budget
// aggregates, and day-level aggregation. Every method recomputes the full
// affected subtree from source rows. Deltas against running counters are
// never applied: two writers racing on the same budget would each read a
// stale base, while a full recompute from current children is idempotent
// no matter how many times or in what order it runs.
//
// All reads and writes go through the caller-supplied DBTX so an entire
// mutation, including its recompute chain, shares one transaction.
type RecalcService struct {
	budgets      repositories.BudgetRepository
	categories   repositories.CategoryRepository
	lineItems    repositories.LineItemRepository
	dailyBudgets repositories.DailyBudgetRepository
	dayItems     repositories.DailyBudgetItemRepository
	receipts     repositories.ReceiptRepository
	topSheets    repositories.TopSheetRepository
}

func NewRecalcService(
	budgets repositories.BudgetRepository,
	categories repositories.CategoryRepository,
	lineItems repositories.LineItemRepository,
	dailyBudgets repositories.DailyBudgetRepository,
	dayItems repositories.DailyBudgetItemRepository,
	receipts repositories.ReceiptRepository,
	topSheets repositories.TopSheetRepository,
) *RecalcService {
	return &RecalcService{
		budgets:      budgets,
		categories:   categories,
		lineItems:    lineItems,
		dailyBudgets: dailyBudgets,
		dayItems:     dayItems,
		receipts:     receipts,
		topSheets:    topSheets,
	}
}

// ResolveLineItemActual implements attribution: an explicit manual actual
// wins; otherwise the actual is the sum of day allocations referencing the
// item plus mapped receipts referencing it. Unmapped receipts never count.
// Idempotent, no side effects.
func (s *RecalcService) ResolveLineItemActual(q repositories.DBTX, li *models.LineItem) (float64, error) {
	if li.ManualActualOverride.Valid {
		return li.ManualActualOverride.Float64, nil
	}

	daySum, err := s.dayItems.SumActualByLineItem(q, li.ID)
	if err != nil {
		return 0, fmt.Errorf("summing day allocations for line item %d: %w", li.ID, err)
	}
	receiptSum, err := s.receipts.SumMappedByLineItem(q, li.ID)
	if err != nil {
		return 0, fmt.Errorf("summing mapped receipts for line item %d: %w", li.ID, err)
	}
	return daySum + receiptSum, nil
}

// RecomputeCategory rewrites the derived totals of every line item in the
// category and the category subtotals, all from source values. Estimates
// are resolved over the whole budget's item set because fringe bases and
// percent-mode bases may live outside the category.
func (s *RecalcService) RecomputeCategory(q repositories.DBTX, categoryID int64) error {
	cat, err := s.categories.GetByID(q, categoryID)
	if errors.Is(err, repositories.ErrNotFound) {
		return staleReadErr("category", categoryID)
	}
	if err != nil {
		return err
	}

	items, err := s.lineItems.ListByBudget(q, cat.BudgetID)
	if err != nil {
		return err
	}
	estimates := computeEstimates(items)

	var estimatedSubtotal, actualSubtotal float64
	for _, li := range items {
		if li.CategoryID != categoryID {
			continue
		}
		estimated := formula.RoundCents(estimates[li.ID])
		actual, err := s.ResolveLineItemActual(q, li)
		if err != nil {
			return err
		}
		actual = formula.RoundCents(actual)

		if err := s.lineItems.UpdateDerivedTotals(q, li.ID, estimated, actual); err != nil {
			return err
		}
		estimatedSubtotal += estimated
		actualSubtotal += actual
	}

	err = s.categories.UpdateSubtotals(q, categoryID,
		formula.RoundCents(estimatedSubtotal), formula.RoundCents(actualSubtotal))
	if err != nil {
		return err
	}
	return s.topSheets.MarkStale(q, cat.BudgetID)
}

// RecomputeBudget sums the current category subtotals into the budget
// totals. Categories must already be fresh: callers always run category
// passes first (bottom-up ordering).
func (s *RecalcService) RecomputeBudget(q repositories.DBTX, budgetID int64) error {
	if _, err := s.budgets.GetByID(q, budgetID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return staleReadErr("budget", budgetID)
		}
		return err
	}

	cats, err := s.categories.ListByBudget(q, budgetID)
	if err != nil {
		return err
	}

	var estimatedTotal, actualTotal float64
	for _, c := range cats {
		estimatedTotal += c.EstimatedSubtotal
		actualTotal += c.ActualSubtotal
	}

	err = s.budgets.UpdateAggregates(q, budgetID,
		formula.RoundCents(estimatedTotal), formula.RoundCents(actualTotal))
	if err != nil {
		return err
	}
	return s.topSheets.MarkStale(q, budgetID)
}

// RecomputeDailyBudget recomputes one production day's totals: estimates
// from its allocation items, actuals from its allocation items plus
// receipts mapped directly to the day.
func (s *RecalcService) RecomputeDailyBudget(q repositories.DBTX, dailyBudgetID int64) error {
	day, err := s.dailyBudgets.GetByID(q, dailyBudgetID)
	if errors.Is(err, repositories.ErrNotFound) {
		return staleReadErr("daily budget", dailyBudgetID)
	}
	if err != nil {
		return err
	}

	estimated, actual, err := s.dayItems.SumByDailyBudget(q, dailyBudgetID)
	if err != nil {
		return err
	}
	receiptSum, err := s.receipts.SumMappedByDailyBudget(q, dailyBudgetID)
	if err != nil {
		return err
	}

	err = s.dailyBudgets.UpdateTotals(q, dailyBudgetID,
		formula.RoundCents(estimated), formula.RoundCents(actual+receiptSum))
	if err != nil {
		return err
	}
	return s.topSheets.MarkStale(q, day.BudgetID)
}

// RecomputeLineItemChain runs the bottom-up pass for one line item: its
// own category, the category of every item whose estimate derives from it,
// then the budget once. Derivation edges are the fringe base links plus
// the budget-wide percent base: a percent_of_total item anywhere in the
// budget moves whenever any direct item does, so those items (and their
// fringe dependents) always join the fan-out.
func (s *RecalcService) RecomputeLineItemChain(q repositories.DBTX, li *models.LineItem) error {
	items, err := s.lineItems.ListByBudget(q, li.BudgetID)
	if err != nil {
		return err
	}
	dependents := make(map[int64][]*models.LineItem)
	for _, it := range items {
		if it.FringeBaseItemID.Valid {
			dependents[it.FringeBaseItemID.Int64] = append(dependents[it.FringeBaseItemID.Int64], it)
		}
	}

	categoryIDs := []int64{li.CategoryID}
	seenCategory := map[int64]bool{li.CategoryID: true}
	addCategory := func(id int64) {
		if !seenCategory[id] {
			seenCategory[id] = true
			categoryIDs = append(categoryIDs, id)
		}
	}

	queue := []int64{li.ID}
	visited := map[int64]bool{li.ID: true}
	for _, it := range items {
		if it.CalcMode == models.CalcModePercentOfTotal && !visited[it.ID] {
			visited[it.ID] = true
			queue = append(queue, it.ID)
			addCategory(it.CategoryID)
		}
	}

	// Walk fringe dependents breadth-first; chains are short and acyclic
	// (validated at write time).
	for len(queue) > 0 {
		baseID := queue[0]
		queue = queue[1:]
		for _, dep := range dependents[baseID] {
			if visited[dep.ID] {
				continue
			}
			visited[dep.ID] = true
			queue = append(queue, dep.ID)
			addCategory(dep.CategoryID)
		}
	}

	for _, catID := range categoryIDs {
		if err := s.RecomputeCategory(q, catID); err != nil {
			return err
		}
	}
	return s.RecomputeBudget(q, li.BudgetID)
}

// computeEstimates resolves every line item's estimated total from stored
// fields in three ordered passes: direct formula items, percent-of items
// against their base, then fringe items along the dependency edges.
func computeEstimates(items []*models.LineItem) map[int64]float64 {
	byID := make(map[int64]*models.LineItem, len(items))
	estimates := make(map[int64]float64, len(items))

	for _, li := range items {
		byID[li.ID] = li
	}

	// Pass 1: plain formula items.
	for _, li := range items {
		if isPercentMode(li.CalcMode) || isFringeEdge(li) {
			continue
		}
		estimates[li.ID] = formula.Evaluate(formula.FromLineItem(li))
	}

	// Pass 2: percent items. percent_of_subtotal resolves against the sum
	// of its category's direct items, percent_of_total against the
	// budget-wide sum. Percent and fringe items are excluded from both
	// bases so no item feeds itself.
	categoryBase := make(map[int64]float64)
	var budgetBase float64
	for _, li := range items {
		if isPercentMode(li.CalcMode) || isFringeEdge(li) {
			continue
		}
		categoryBase[li.CategoryID] += estimates[li.ID]
		budgetBase += estimates[li.ID]
	}
	for _, li := range items {
		if !isPercentMode(li.CalcMode) {
			continue
		}
		base := budgetBase
		if li.CalcMode == models.CalcModePercentOfSubtotal {
			base = categoryBase[li.CategoryID]
		}
		estimates[li.ID] = formula.EvaluatePercent(formula.FromLineItem(li), base)
	}

	// Pass 3: fringe items, following base edges. Chains are acyclic; the
	// visited guard only protects against data predating cycle validation.
	var resolveFringe func(li *models.LineItem, visited map[int64]bool) float64
	resolveFringe = func(li *models.LineItem, visited map[int64]bool) float64 {
		if est, ok := estimates[li.ID]; ok {
			return est
		}
		if li.UseManualTotal && li.ManualTotalOverride.Valid {
			return li.ManualTotalOverride.Float64
		}
		if visited[li.ID] {
			return 0
		}
		visited[li.ID] = true

		base, ok := byID[li.FringeBaseItemID.Int64]
		if !ok {
			return 0
		}
		return formula.Fringe(resolveFringe(base, visited), li.FringePercent.Float64)
	}
	for _, li := range items {
		if !isFringeEdge(li) {
			continue
		}
		if _, ok := estimates[li.ID]; ok {
			continue
		}
		estimates[li.ID] = resolveFringe(li, map[int64]bool{})
	}

	return estimates
}

// isFringeEdge reports whether the item's estimate derives from another
// item. A fringe-flagged item without a complete edge falls back to its
// own formula.
func isFringeEdge(li *models.LineItem) bool {
	return li.IsFringe && li.FringeBaseItemID.Valid && li.FringePercent.Valid
}

func isPercentMode(mode string) bool {
	return mode == models.CalcModePercentOfTotal || mode == models.CalcModePercentOfSubtotal
}
