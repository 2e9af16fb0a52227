package models

import (
	"database/sql"
	"encoding/json"
	"time"
)

// Budget is the root plan for one project. The four total fields are
// derived and owned by the recompute pipeline.
type Budget struct {
	ID                 int64     `db:"id" json:"id"`
	ProjectID          string    `db:"project_id" json:"project_id"`
	Name               string    `db:"name" json:"name"`
	ProjectType        string    `db:"project_type" json:"project_type"`
	Status             string    `db:"status" json:"status"`
	ContingencyPercent float64   `db:"contingency_percent" json:"contingency_percent"`
	EstimatedTotal     float64   `db:"estimated_total" json:"estimated_total"`
	ActualTotal        float64   `db:"actual_total" json:"actual_total"`
	FringesTotal       float64   `db:"fringes_total" json:"fringes_total"`
	GrandTotal         float64   `db:"grand_total" json:"grand_total"`
	CreatedAt          time.Time `db:"created_at" json:"-"`
	UpdatedAt          time.Time `db:"updated_at" json:"-"`
}

// Category groups line items and carries the category_type used for
// top sheet rollups.
type Category struct {
	ID                int64     `db:"id" json:"id"`
	BudgetID          int64     `db:"budget_id" json:"budget_id"`
	Name              string    `db:"name" json:"name"`
	AccountCode       string    `db:"account_code" json:"account_code"`
	CategoryType      string    `db:"category_type" json:"category_type"`
	SortOrder         int       `db:"sort_order" json:"sort_order"`
	EstimatedSubtotal float64   `db:"estimated_subtotal" json:"estimated_subtotal"`
	ActualSubtotal    float64   `db:"actual_subtotal" json:"actual_subtotal"`
	CreatedAt         time.Time `db:"created_at" json:"-"`
	UpdatedAt         time.Time `db:"updated_at" json:"-"`
}

// LineItem is the atomic budget row. EstimatedTotal and ActualTotal are
// derived; everything needed to recompute EstimatedTotal is stored on the
// row itself (plus the fringe base edge).
type LineItem struct {
	ID                   int64           `db:"id" json:"id"`
	BudgetID             int64           `db:"budget_id" json:"budget_id"`
	CategoryID           int64           `db:"category_id" json:"category_id"`
	AccountCode          string          `db:"account_code" json:"account_code"`
	Description          string          `db:"description" json:"description"`
	RateAmount           float64         `db:"rate_amount" json:"rate_amount"`
	Quantity             float64         `db:"quantity" json:"quantity"`
	Days                 sql.NullFloat64 `db:"days" json:"days"`
	Weeks                sql.NullFloat64 `db:"weeks" json:"weeks"`
	Episodes             sql.NullFloat64 `db:"episodes" json:"episodes"`
	CalcMode             string          `db:"calc_mode" json:"calc_mode"`
	IsFringe             bool            `db:"is_fringe" json:"is_fringe"`
	FringeBaseItemID     sql.NullInt64   `db:"fringe_base_item_id" json:"fringe_base_item_id"`
	FringePercent        sql.NullFloat64 `db:"fringe_percent" json:"fringe_percent"`
	UseManualTotal       bool            `db:"use_manual_total" json:"use_manual_total"`
	ManualTotalOverride  sql.NullFloat64 `db:"manual_total_override" json:"manual_total_override"`
	ManualActualOverride sql.NullFloat64 `db:"manual_actual_override" json:"manual_actual_override"`
	EstimatedTotal       float64         `db:"estimated_total" json:"estimated_total"`
	ActualTotal          float64         `db:"actual_total" json:"actual_total"`
	SortOrder            int             `db:"sort_order" json:"sort_order"`
	CreatedAt            time.Time       `db:"created_at" json:"-"`
	UpdatedAt            time.Time       `db:"updated_at" json:"-"`
}

// DailyBudget holds the totals for one production day. DayID is the opaque
// identifier supplied by the production-day registry.
type DailyBudget struct {
	ID             int64     `db:"id" json:"id"`
	BudgetID       int64     `db:"budget_id" json:"budget_id"`
	DayID          string    `db:"day_id" json:"day_id"`
	EstimatedTotal float64   `db:"estimated_total" json:"estimated_total"`
	ActualTotal    float64   `db:"actual_total" json:"actual_total"`
	CreatedAt      time.Time `db:"created_at" json:"-"`
	UpdatedAt      time.Time `db:"updated_at" json:"-"`
}

// DailyBudgetItem is a day-scoped allocation. When LineItemID is set its
// actual amount contributes both to the day total and to the referenced
// line item's actual total.
type DailyBudgetItem struct {
	ID              int64         `db:"id" json:"id"`
	DailyBudgetID   int64         `db:"daily_budget_id" json:"daily_budget_id"`
	LineItemID      sql.NullInt64 `db:"line_item_id" json:"line_item_id"`
	Description     string        `db:"description" json:"description"`
	EstimatedAmount float64       `db:"estimated_amount" json:"estimated_amount"`
	ActualAmount    float64       `db:"actual_amount" json:"actual_amount"`
	CreatedAt       time.Time     `db:"created_at" json:"-"`
	UpdatedAt       time.Time     `db:"updated_at" json:"-"`
}

// BudgetDayLink spreads a line item's lump-sum estimate across specific
// days on the planning side. It never feeds day-level actuals.
type BudgetDayLink struct {
	ID             int64     `db:"id" json:"id"`
	LineItemID     int64     `db:"line_item_id" json:"line_item_id"`
	DailyBudgetID  int64     `db:"daily_budget_id" json:"daily_budget_id"`
	EstimatedShare float64   `db:"estimated_share" json:"estimated_share"`
	CreatedAt      time.Time `db:"created_at" json:"-"`
}

// Receipt is an expense record produced by the ingestion/OCR pipeline.
// Only mapped receipts contribute to actual totals.
type Receipt struct {
	ID            int64         `db:"id" json:"id"`
	ReceiptUID    string        `db:"receipt_uid" json:"receipt_uid"`
	BudgetID      int64         `db:"budget_id" json:"budget_id"`
	LineItemID    sql.NullInt64 `db:"line_item_id" json:"line_item_id"`
	DailyBudgetID sql.NullInt64 `db:"daily_budget_id" json:"daily_budget_id"`
	Vendor        string        `db:"vendor" json:"vendor"`
	Amount        float64       `db:"amount" json:"amount"`
	ReceiptDate   string        `db:"receipt_date" json:"receipt_date"`
	OCRStatus     string        `db:"ocr_status" json:"ocr_status"`
	OCRConfidence float64       `db:"ocr_confidence" json:"ocr_confidence"`
	IsMapped      bool          `db:"is_mapped" json:"is_mapped"`
	IsVerified    bool          `db:"is_verified" json:"is_verified"`
	CreatedAt     time.Time     `db:"created_at" json:"-"`
	UpdatedAt     time.Time     `db:"updated_at" json:"-"`
}

// TopSheetCache is the cached category-type-grouped summary, one row per
// budget. Writers outside the compiler may only ever set IsStale to true.
type TopSheetCache struct {
	ID                int64           `db:"id" json:"id"`
	BudgetID          int64           `db:"budget_id" json:"budget_id"`
	AboveTheLineTotal float64         `db:"above_the_line_total" json:"above_the_line_total"`
	ProductionTotal   float64         `db:"production_total" json:"production_total"`
	PostTotal         float64         `db:"post_total" json:"post_total"`
	OtherTotal        float64         `db:"other_total" json:"other_total"`
	FringesTotal      float64         `db:"fringes_total" json:"fringes_total"`
	Subtotal          float64         `db:"subtotal" json:"subtotal"`
	ContingencyAmount float64         `db:"contingency_amount" json:"contingency_amount"`
	GrandTotal        float64         `db:"grand_total" json:"grand_total"`
	Breakdown         json.RawMessage `db:"breakdown" json:"breakdown"`
	ComputedAt        time.Time       `db:"computed_at" json:"computed_at"`
	IsStale           bool            `db:"is_stale" json:"is_stale"`
}

// TopSheetCategoryRow is one entry of the per-category breakdown stored on
// the top sheet cache.
type TopSheetCategoryRow struct {
	CategoryID     int64   `json:"category_id"`
	Name           string  `json:"name"`
	AccountCode    string  `json:"account_code"`
	CategoryType   string  `json:"category_type"`
	SortOrder      int     `json:"sort_order"`
	EstimatedTotal float64 `json:"estimated_total"`
	ActualTotal    float64 `json:"actual_total"`
}

// BudgetAccountTemplate is a read-only seed row for the chart of accounts
// of a given project type.
type BudgetAccountTemplate struct {
	ID              int64  `db:"id" json:"id"`
	ProjectType     string `db:"project_type" json:"project_type"`
	AccountCode     string `db:"account_code" json:"account_code"`
	Name            string `db:"name" json:"name"`
	CategoryType    string `db:"category_type" json:"category_type"`
	Department      string `db:"department" json:"department"`
	DefaultCalcMode string `db:"default_calc_mode" json:"default_calc_mode"`
	SortOrder       int    `db:"sort_order" json:"sort_order"`
}

// Budget status constants
const (
	BudgetStatusDraft           = "draft"
	BudgetStatusPendingApproval = "pending_approval"
	BudgetStatusApproved        = "approved"
	BudgetStatusLocked          = "locked"
	BudgetStatusArchived        = "archived"
)

// Category type constants
const (
	CategoryTypeAboveTheLine = "above_the_line"
	CategoryTypeProduction   = "production"
	CategoryTypePost         = "post"
	CategoryTypeOther        = "other"
)

// Calc mode constants
const (
	CalcModeFlat              = "flat"
	CalcModeRateXDays         = "rate_x_days"
	CalcModeRateXWeeks        = "rate_x_weeks"
	CalcModeRateXUnits        = "rate_x_units"
	CalcModeRateXEpisodes     = "rate_x_episodes"
	CalcModeRateXHours        = "rate_x_hours"
	CalcModePercentOfTotal    = "percent_of_total"
	CalcModePercentOfSubtotal = "percent_of_subtotal"
)

// OCR status constants
const (
	OCRStatusPending    = "pending"
	OCRStatusProcessing = "processing"
	OCRStatusSucceeded  = "succeeded"
	OCRStatusFailed     = "failed"
)

// Project type constants
const (
	ProjectTypeFeature     = "feature"
	ProjectTypeEpisodic    = "episodic"
	ProjectTypeDocumentary = "documentary"
	ProjectTypeMusicVideo  = "music_video"
	ProjectTypeCommercial  = "commercial"
	ProjectTypeShort       = "short"
)

// IsMutable reports whether child entities of the budget may still be
// written. Locked and archived budgets reject all child mutation.
func (b *Budget) IsMutable() bool {
	switch b.Status {
	case BudgetStatusDraft, BudgetStatusPendingApproval, BudgetStatusApproved:
		return true
	}
	return false
}

// ValidCalcMode reports whether mode is one of the supported calc modes.
func ValidCalcMode(mode string) bool {
	switch mode {
	case CalcModeFlat, CalcModeRateXDays, CalcModeRateXWeeks, CalcModeRateXUnits,
		CalcModeRateXEpisodes, CalcModeRateXHours, CalcModePercentOfTotal, CalcModePercentOfSubtotal:
		return true
	}
	return false
}

// ValidCategoryType reports whether t is one of the top sheet rollup types.
func ValidCategoryType(t string) bool {
	switch t {
	case CategoryTypeAboveTheLine, CategoryTypeProduction, CategoryTypePost, CategoryTypeOther:
		return true
	}
	return false
}

// ValidOCRStatus reports whether s is a known receipt OCR pipeline state.
func ValidOCRStatus(s string) bool {
	switch s {
	case OCRStatusPending, OCRStatusProcessing, OCRStatusSucceeded, OCRStatusFailed:
		return true
	}
	return false
}

// ValidProjectType reports whether t is a known template project type.
func ValidProjectType(t string) bool {
	switch t {
	case ProjectTypeFeature, ProjectTypeEpisodic, ProjectTypeDocumentary,
		ProjectTypeMusicVideo, ProjectTypeCommercial, ProjectTypeShort:
		return true
	}
	return false
}
