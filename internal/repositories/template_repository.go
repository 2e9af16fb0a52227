package repositories

import (
	"production-budget-service/internal/models"
)

// TemplateRepository reads the seed chart of accounts. Templates are
// reference data, nothing in the engine writes them.
type TemplateRepository interface {
	ListByProjectType(q DBTX, projectType string) ([]*models.BudgetAccountTemplate, error)
}

type templateRepository struct{}

func NewTemplateRepository() TemplateRepository {
	return &templateRepository{}
}

func (r *templateRepository) ListByProjectType(q DBTX, projectType string) ([]*models.BudgetAccountTemplate, error) {
	rows, err := q.Query(`
		SELECT id, project_type, account_code, name, category_type, department, default_calc_mode, sort_order
		FROM budget_account_templates
		WHERE project_type = ?
		ORDER BY sort_order, id
	`, projectType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var templates []*models.BudgetAccountTemplate
	for rows.Next() {
		t := &models.BudgetAccountTemplate{}
		err := rows.Scan(
			&t.ID,
			&t.ProjectType,
			&t.AccountCode,
			&t.Name,
			&t.CategoryType,
			&t.Department,
			&t.DefaultCalcMode,
			&t.SortOrder,
		)
		if err != nil {
			return nil, err
		}
		templates = append(templates, t)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return templates, nil
}
