package services

import (
	"database/sql"
	"math"
	"testing"

	_ "modernc.org/sqlite"

	"production-budget-service/internal/auth"
	"production-budget-service/internal/models"
	"production-budget-service/internal/repositories"
)

const testSchema = `
CREATE TABLE budgets (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	project_id TEXT NOT NULL,
	name TEXT NOT NULL,
	project_type TEXT NOT NULL,
	status TEXT NOT NULL,
	contingency_percent REAL NOT NULL DEFAULT 0,
	estimated_total REAL NOT NULL DEFAULT 0,
	actual_total REAL NOT NULL DEFAULT 0,
	fringes_total REAL NOT NULL DEFAULT 0,
	grand_total REAL NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE TABLE categories (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	budget_id INTEGER NOT NULL,
	name TEXT NOT NULL,
	account_code TEXT NOT NULL DEFAULT '',
	category_type TEXT NOT NULL,
	sort_order INTEGER NOT NULL DEFAULT 0,
	estimated_subtotal REAL NOT NULL DEFAULT 0,
	actual_subtotal REAL NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE TABLE line_items (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	budget_id INTEGER NOT NULL,
	category_id INTEGER NOT NULL,
	account_code TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	rate_amount REAL NOT NULL DEFAULT 0,
	quantity REAL NOT NULL DEFAULT 0,
	days REAL,
	weeks REAL,
	episodes REAL,
	calc_mode TEXT NOT NULL,
	is_fringe BOOLEAN NOT NULL DEFAULT 0,
	fringe_base_item_id INTEGER,
	fringe_percent REAL,
	use_manual_total BOOLEAN NOT NULL DEFAULT 0,
	manual_total_override REAL,
	manual_actual_override REAL,
	estimated_total REAL NOT NULL DEFAULT 0,
	actual_total REAL NOT NULL DEFAULT 0,
	sort_order INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE TABLE daily_budgets (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	budget_id INTEGER NOT NULL,
	day_id TEXT NOT NULL,
	estimated_total REAL NOT NULL DEFAULT 0,
	actual_total REAL NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE TABLE daily_budget_items (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	daily_budget_id INTEGER NOT NULL,
	line_item_id INTEGER,
	description TEXT NOT NULL DEFAULT '',
	estimated_amount REAL NOT NULL DEFAULT 0,
	actual_amount REAL NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE TABLE budget_day_links (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	line_item_id INTEGER NOT NULL,
	daily_budget_id INTEGER NOT NULL,
	estimated_share REAL NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL
);

CREATE TABLE receipts (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	receipt_uid TEXT NOT NULL,
	budget_id INTEGER NOT NULL,
	line_item_id INTEGER,
	daily_budget_id INTEGER,
	vendor TEXT NOT NULL DEFAULT '',
	amount REAL NOT NULL DEFAULT 0,
	receipt_date TEXT NOT NULL DEFAULT '',
	ocr_status TEXT NOT NULL,
	ocr_confidence REAL NOT NULL DEFAULT 0,
	is_mapped BOOLEAN NOT NULL DEFAULT 0,
	is_verified BOOLEAN NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE TABLE top_sheet_caches (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	budget_id INTEGER NOT NULL UNIQUE,
	above_the_line_total REAL NOT NULL DEFAULT 0,
	production_total REAL NOT NULL DEFAULT 0,
	post_total REAL NOT NULL DEFAULT 0,
	other_total REAL NOT NULL DEFAULT 0,
	fringes_total REAL NOT NULL DEFAULT 0,
	subtotal REAL NOT NULL DEFAULT 0,
	contingency_amount REAL NOT NULL DEFAULT 0,
	grand_total REAL NOT NULL DEFAULT 0,
	breakdown BLOB,
	computed_at DATETIME NOT NULL,
	is_stale BOOLEAN NOT NULL DEFAULT 1
);

CREATE TABLE budget_account_templates (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	project_type TEXT NOT NULL,
	account_code TEXT NOT NULL,
	name TEXT NOT NULL,
	category_type TEXT NOT NULL,
	department TEXT NOT NULL,
	default_calc_mode TEXT NOT NULL,
	sort_order INTEGER NOT NULL DEFAULT 0
);
`

func testDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("opening sqlite: %v", err)
	}
	// One in-memory database per test; a second pool connection would see
	// an empty database.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(testSchema); err != nil {
		t.Fatalf("creating schema: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// testEnv wires the full service stack against an in-memory database.
type testEnv struct {
	db        *sql.DB
	budgets   repositories.BudgetRepository
	cats      repositories.CategoryRepository
	items     repositories.LineItemRepository
	days      repositories.DailyBudgetRepository
	dayItems  repositories.DailyBudgetItemRepository
	dayLinks  repositories.BudgetDayLinkRepository
	receipts  repositories.ReceiptRepository
	topSheets repositories.TopSheetRepository
	recalc    *RecalcService
	mutations *MutationService
	topsheet  *TopSheetService
	query     *QueryService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testDB(t)

	budgets := repositories.NewBudgetRepository()
	cats := repositories.NewCategoryRepository()
	items := repositories.NewLineItemRepository()
	days := repositories.NewDailyBudgetRepository()
	dayItems := repositories.NewDailyBudgetItemRepository()
	dayLinks := repositories.NewBudgetDayLinkRepository()
	receipts := repositories.NewReceiptRepository()
	topSheets := repositories.NewTopSheetRepository()
	templates := repositories.NewTemplateRepository()

	recalc := NewRecalcService(budgets, cats, items, days, dayItems, receipts, topSheets)
	mutations := NewMutationService(db, auth.NewRoleAuthorizer(),
		budgets, cats, items, days, dayItems, dayLinks, receipts, topSheets, templates, recalc)
	topsheet := NewTopSheetService(db, budgets, cats, items, topSheets)
	query := NewQueryService(db, budgets, cats, items, days, dayItems, dayLinks, receipts)

	return &testEnv{
		db:        db,
		budgets:   budgets,
		cats:      cats,
		items:     items,
		days:      days,
		dayItems:  dayItems,
		dayLinks:  dayLinks,
		receipts:  receipts,
		topSheets: topSheets,
		recalc:    recalc,
		mutations: mutations,
		topsheet:  topsheet,
		query:     query,
	}
}

var (
	producer = auth.User{ID: 1, Login: "producer", Role: auth.RoleProducer}
	viewer   = auth.User{ID: 2, Login: "viewer", Role: auth.RoleViewer}
)

func (e *testEnv) seedBudget(t *testing.T, contingencyPercent float64) *models.Budget {
	t.Helper()
	b := &models.Budget{
		ProjectID:          "proj-1",
		Name:               "Test Feature",
		ProjectType:        models.ProjectTypeFeature,
		Status:             models.BudgetStatusDraft,
		ContingencyPercent: contingencyPercent,
	}
	if err := e.budgets.Insert(e.db, b); err != nil {
		t.Fatalf("seeding budget: %v", err)
	}
	return b
}

func (e *testEnv) seedCategory(t *testing.T, budgetID int64, name, categoryType string, sortOrder int) *models.Category {
	t.Helper()
	c := &models.Category{
		BudgetID:     budgetID,
		Name:         name,
		CategoryType: categoryType,
		SortOrder:    sortOrder,
	}
	if err := e.cats.Insert(e.db, c); err != nil {
		t.Fatalf("seeding category: %v", err)
	}
	return c
}

func (e *testEnv) createItem(t *testing.T, budgetID int64, in LineItemInput) *models.LineItem {
	t.Helper()
	li, err := e.mutations.CreateLineItem(producer, budgetID, in)
	if err != nil {
		t.Fatalf("creating line item: %v", err)
	}
	return li
}

func (e *testEnv) getBudget(t *testing.T, id int64) *models.Budget {
	t.Helper()
	b, err := e.budgets.GetByID(e.db, id)
	if err != nil {
		t.Fatalf("reading budget %d: %v", id, err)
	}
	return b
}

func (e *testEnv) getItem(t *testing.T, id int64) *models.LineItem {
	t.Helper()
	li, err := e.items.GetByID(e.db, id)
	if err != nil {
		t.Fatalf("reading line item %d: %v", id, err)
	}
	return li
}

func (e *testEnv) getCategory(t *testing.T, id int64) *models.Category {
	t.Helper()
	c, err := e.cats.GetByID(e.db, id)
	if err != nil {
		t.Fatalf("reading category %d: %v", id, err)
	}
	return c
}

func (e *testEnv) cacheStale(t *testing.T, budgetID int64) bool {
	t.Helper()
	ts, err := e.topSheets.GetByBudget(e.db, budgetID)
	if err == repositories.ErrNotFound {
		return true // absent means stale
	}
	if err != nil {
		t.Fatalf("reading top sheet cache: %v", err)
	}
	return ts.IsStale
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

func f64(v float64) *float64 { return &v }

func i64(v int64) *int64 { return &v }
