package services

import (
	"database/sql"
	"math"

	"production-budget-service/internal/auth"
	"production-budget-service/internal/models"
)

// Budget creation seeds the chart of accounts for the project type: one
// category per template department, one zeroed line item per template row.
// Producers then fill in rates instead of building the structure by hand.

type CreateBudgetInput struct {
	ProjectID          string  `json:"project_id"`
	Name               string  `json:"name"`
	ProjectType        string  `json:"project_type"`
	ContingencyPercent float64 `json:"contingency_percent"`
}

func (in *CreateBudgetInput) validate() error {
	if in.ProjectID == "" {
		return validationErr("project_id", "required")
	}
	if in.Name == "" {
		return validationErr("name", "required")
	}
	if !models.ValidProjectType(in.ProjectType) {
		return validationErr("project_type", "unknown project type "+in.ProjectType)
	}
	if math.IsNaN(in.ContingencyPercent) || in.ContingencyPercent < 0 || in.ContingencyPercent > 100 {
		return validationErr("contingency_percent", "must be between 0 and 100")
	}
	return nil
}

func (s *MutationService) CreateBudget(user auth.User, in CreateBudgetInput) (*models.Budget, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	budget := &models.Budget{
		ProjectID:          in.ProjectID,
		Name:               in.Name,
		ProjectType:        in.ProjectType,
		Status:             models.BudgetStatusDraft,
		ContingencyPercent: in.ContingencyPercent,
	}
	if !s.authz.CanMutate(user, budget) {
		return nil, ErrForbidden
	}
	err := s.run(func(tx *sql.Tx) error {
		if err := s.budgets.Insert(tx, budget); err != nil {
			return err
		}
		return s.seedFromTemplate(tx, budget)
	})
	if err != nil {
		return nil, err
	}
	return budget, nil
}

// seedFromTemplate materializes the template rows for the budget's project
// type. Rows arrive ordered by sort_order, so the first row of each
// department decides the category's position and rollup type. All amounts
// start at zero; a recompute still runs so the derived fields and
// subtotals exist from the first read.
func (s *MutationService) seedFromTemplate(tx *sql.Tx, budget *models.Budget) error {
	templates, err := s.templates.ListByProjectType(tx, budget.ProjectType)
	if err != nil {
		return err
	}

	catByDept := map[string]*models.Category{}
	for _, t := range templates {
		cat, ok := catByDept[t.Department]
		if !ok {
			cat = &models.Category{
				BudgetID:     budget.ID,
				Name:         t.Department,
				AccountCode:  t.AccountCode[:accountPrefixLen(t.AccountCode)],
				CategoryType: t.CategoryType,
				SortOrder:    t.SortOrder,
			}
			if err := s.categories.Insert(tx, cat); err != nil {
				return err
			}
			catByDept[t.Department] = cat
		}

		li := &models.LineItem{
			BudgetID:    budget.ID,
			CategoryID:  cat.ID,
			AccountCode: t.AccountCode,
			Description: t.Name,
			RateAmount:  0,
			Quantity:    1,
			CalcMode:    t.DefaultCalcMode,
			SortOrder:   t.SortOrder,
		}
		if err := s.lineItems.Insert(tx, li); err != nil {
			return err
		}
	}

	for _, cat := range catByDept {
		if err := s.recalc.RecomputeCategory(tx, cat.ID); err != nil {
			return err
		}
	}
	return s.recalc.RecomputeBudget(tx, budget.ID)
}

// accountPrefixLen picks the department prefix out of an account code like
// "1100" or "1100-01": the leading digits before any separator.
func accountPrefixLen(code string) int {
	for i, r := range code {
		if r < '0' || r > '9' {
			return i
		}
	}
	return len(code)
}

// UpdateBudgetContingency changes the contingency percent. The stored
// totals do not move, but the top sheet's contingency and grand total do.
func (s *MutationService) UpdateBudgetContingency(user auth.User, budgetID int64, percent float64) (*models.Budget, error) {
	if math.IsNaN(percent) || percent < 0 || percent > 100 {
		return nil, validationErr("contingency_percent", "must be between 0 and 100")
	}
	var result *models.Budget
	err := s.run(func(tx *sql.Tx) error {
		budget, err := s.mutableBudget(tx, user, budgetID)
		if err != nil {
			return err
		}
		if err := s.budgets.UpdateContingency(tx, budgetID, percent); err != nil {
			return err
		}
		if err := s.topSheets.MarkStale(tx, budgetID); err != nil {
			return err
		}
		budget.ContingencyPercent = percent
		result = budget
		return nil
	})
	return result, err
}
