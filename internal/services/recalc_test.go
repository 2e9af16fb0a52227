package services

import (
	"testing"

	"production-budget-service/internal/models"
)

func TestEstimateAggregationBottomUp(t *testing.T) {
	env := newTestEnv(t)
	b := env.seedBudget(t, 0)
	cat := env.seedCategory(t, b.ID, "Camera", models.CategoryTypeProduction, 1)

	env.createItem(t, b.ID, LineItemInput{
		CategoryID:  cat.ID,
		Description: "DP",
		RateAmount:  500,
		Quantity:    1,
		Days:        f64(4),
		CalcMode:    models.CalcModeRateXDays,
	})
	env.createItem(t, b.ID, LineItemInput{
		CategoryID:  cat.ID,
		Description: "Camera package",
		RateAmount:  1000,
		Quantity:    1,
		CalcMode:    models.CalcModeFlat,
	})

	got := env.getCategory(t, cat.ID)
	if !almostEqual(got.EstimatedSubtotal, 3000) {
		t.Errorf("category estimated subtotal = %v, want 3000", got.EstimatedSubtotal)
	}
	budget := env.getBudget(t, b.ID)
	if !almostEqual(budget.EstimatedTotal, 3000) {
		t.Errorf("budget estimated total = %v, want 3000", budget.EstimatedTotal)
	}
}

func TestConservationAcrossCategories(t *testing.T) {
	env := newTestEnv(t)
	b := env.seedBudget(t, 0)
	catA := env.seedCategory(t, b.ID, "Cast", models.CategoryTypeAboveTheLine, 1)
	catB := env.seedCategory(t, b.ID, "Post", models.CategoryTypePost, 2)

	env.createItem(t, b.ID, LineItemInput{
		CategoryID: catA.ID, Description: "Lead", RateAmount: 10000, Quantity: 1,
		CalcMode: models.CalcModeFlat,
	})
	env.createItem(t, b.ID, LineItemInput{
		CategoryID: catB.ID, Description: "Edit suite", RateAmount: 800, Quantity: 1,
		Weeks: f64(6), CalcMode: models.CalcModeRateXWeeks,
	})

	gotA := env.getCategory(t, catA.ID)
	gotB := env.getCategory(t, catB.ID)
	budget := env.getBudget(t, b.ID)
	if !almostEqual(budget.EstimatedTotal, gotA.EstimatedSubtotal+gotB.EstimatedSubtotal) {
		t.Errorf("budget total %v != sum of subtotals %v + %v",
			budget.EstimatedTotal, gotA.EstimatedSubtotal, gotB.EstimatedSubtotal)
	}
	if !almostEqual(budget.EstimatedTotal, 14800) {
		t.Errorf("budget estimated total = %v, want 14800", budget.EstimatedTotal)
	}
}

func TestRecomputeIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	b := env.seedBudget(t, 10)
	cat := env.seedCategory(t, b.ID, "Grip", models.CategoryTypeProduction, 1)
	li := env.createItem(t, b.ID, LineItemInput{
		CategoryID: cat.ID, Description: "Key grip", RateAmount: 650, Quantity: 1,
		Days: f64(12), CalcMode: models.CalcModeRateXDays,
	})

	before := env.getBudget(t, b.ID)
	for i := 0; i < 3; i++ {
		if err := env.recalc.RecomputeCategory(env.db, cat.ID); err != nil {
			t.Fatalf("recompute %d: %v", i, err)
		}
		if err := env.recalc.RecomputeBudget(env.db, b.ID); err != nil {
			t.Fatalf("recompute budget %d: %v", i, err)
		}
	}
	after := env.getBudget(t, b.ID)
	if !almostEqual(before.EstimatedTotal, after.EstimatedTotal) ||
		!almostEqual(before.ActualTotal, after.ActualTotal) {
		t.Errorf("repeated recompute changed totals: before %+v after %+v", before, after)
	}
	item := env.getItem(t, li.ID)
	if !almostEqual(item.EstimatedTotal, 7800) {
		t.Errorf("line item estimated = %v, want 7800", item.EstimatedTotal)
	}
}

func TestManualActualOverrideWinsOverAttribution(t *testing.T) {
	env := newTestEnv(t)
	b := env.seedBudget(t, 0)
	cat := env.seedCategory(t, b.ID, "Locations", models.CategoryTypeProduction, 1)
	li := env.createItem(t, b.ID, LineItemInput{
		CategoryID: cat.ID, Description: "Permits", RateAmount: 300, Quantity: 1,
		CalcMode: models.CalcModeFlat,
	})

	day, err := env.mutations.CreateDailyBudget(producer, b.ID, "day-01")
	if err != nil {
		t.Fatalf("creating daily budget: %v", err)
	}
	_, err = env.mutations.CreateDailyBudgetItem(producer, day.ID, DailyBudgetItemInput{
		LineItemID: i64(li.ID), Description: "permit fee", ActualAmount: 100,
	})
	if err != nil {
		t.Fatalf("creating day item: %v", err)
	}
	_, err = env.mutations.CreateReceipt(producer, b.ID, ReceiptInput{
		LineItemID: i64(li.ID), Vendor: "City film office", Amount: 250,
		ReceiptDate: "2026-03-10", OCRStatus: models.OCRStatusSucceeded,
		OCRConfidence: 0.97, IsMapped: true, IsVerified: true,
	})
	if err != nil {
		t.Fatalf("creating receipt: %v", err)
	}

	if got := env.getItem(t, li.ID); !almostEqual(got.ActualTotal, 350) {
		t.Fatalf("attributed actual = %v, want 350", got.ActualTotal)
	}

	in := LineItemInput{
		CategoryID: cat.ID, Description: "Permits", RateAmount: 300, Quantity: 1,
		CalcMode: models.CalcModeFlat, ManualActualOverride: f64(400),
	}
	if _, err := env.mutations.UpdateLineItem(producer, li.ID, in); err != nil {
		t.Fatalf("setting override: %v", err)
	}
	if got := env.getItem(t, li.ID); !almostEqual(got.ActualTotal, 400) {
		t.Errorf("overridden actual = %v, want 400", got.ActualTotal)
	}

	in.ManualActualOverride = nil
	if _, err := env.mutations.UpdateLineItem(producer, li.ID, in); err != nil {
		t.Fatalf("clearing override: %v", err)
	}
	if got := env.getItem(t, li.ID); !almostEqual(got.ActualTotal, 350) {
		t.Errorf("actual after clearing override = %v, want 350", got.ActualTotal)
	}
}

func TestReceiptMappedToItemAndDayCountsOnceEach(t *testing.T) {
	env := newTestEnv(t)
	b := env.seedBudget(t, 0)
	cat := env.seedCategory(t, b.ID, "Art", models.CategoryTypeProduction, 1)
	li := env.createItem(t, b.ID, LineItemInput{
		CategoryID: cat.ID, Description: "Set dressing", RateAmount: 0, Quantity: 1,
		CalcMode: models.CalcModeFlat,
	})
	day, err := env.mutations.CreateDailyBudget(producer, b.ID, "day-03")
	if err != nil {
		t.Fatalf("creating daily budget: %v", err)
	}

	_, err = env.mutations.CreateReceipt(producer, b.ID, ReceiptInput{
		LineItemID: i64(li.ID), DailyBudgetID: i64(day.ID),
		Vendor: "Prop house", Amount: 250, ReceiptDate: "2026-03-12",
		OCRStatus: models.OCRStatusSucceeded, OCRConfidence: 0.91,
		IsMapped: true, IsVerified: true,
	})
	if err != nil {
		t.Fatalf("creating receipt: %v", err)
	}

	if got := env.getItem(t, li.ID); !almostEqual(got.ActualTotal, 250) {
		t.Errorf("line item actual = %v, want 250", got.ActualTotal)
	}
	gotDay, err := env.days.GetByID(env.db, day.ID)
	if err != nil {
		t.Fatalf("reading daily budget: %v", err)
	}
	if !almostEqual(gotDay.ActualTotal, 250) {
		t.Errorf("daily budget actual = %v, want 250", gotDay.ActualTotal)
	}
	// The budget actual flows through the line item attribution only, so
	// the amount is counted once at the top.
	if got := env.getBudget(t, b.ID); !almostEqual(got.ActualTotal, 250) {
		t.Errorf("budget actual = %v, want 250", got.ActualTotal)
	}
}

func TestUnmappedReceiptNeverCounts(t *testing.T) {
	env := newTestEnv(t)
	b := env.seedBudget(t, 0)
	cat := env.seedCategory(t, b.ID, "Transport", models.CategoryTypeProduction, 1)
	li := env.createItem(t, b.ID, LineItemInput{
		CategoryID: cat.ID, Description: "Fuel", RateAmount: 0, Quantity: 1,
		CalcMode: models.CalcModeFlat,
	})

	_, err := env.mutations.CreateReceipt(producer, b.ID, ReceiptInput{
		LineItemID: i64(li.ID), Vendor: "Gas station", Amount: 80,
		ReceiptDate: "2026-03-15", OCRStatus: models.OCRStatusSucceeded,
		OCRConfidence: 0.99, IsMapped: false, IsVerified: true,
	})
	if err != nil {
		t.Fatalf("creating receipt: %v", err)
	}
	if got := env.getItem(t, li.ID); !almostEqual(got.ActualTotal, 0) {
		t.Errorf("unmapped receipt leaked into actual: %v", got.ActualTotal)
	}
}

func TestFringeFollowsBaseChanges(t *testing.T) {
	env := newTestEnv(t)
	b := env.seedBudget(t, 0)
	cat := env.seedCategory(t, b.ID, "Crew", models.CategoryTypeProduction, 1)
	base := env.createItem(t, b.ID, LineItemInput{
		CategoryID: cat.ID, Description: "Gaffer", RateAmount: 1000, Quantity: 1,
		CalcMode: models.CalcModeFlat,
	})
	fringe := env.createItem(t, b.ID, LineItemInput{
		CategoryID: cat.ID, Description: "Gaffer fringes", CalcMode: models.CalcModeFlat,
		Quantity: 1, IsFringe: true, FringeBaseItemID: i64(base.ID), FringePercent: f64(20),
	})

	if got := env.getItem(t, fringe.ID); !almostEqual(got.EstimatedTotal, 200) {
		t.Fatalf("fringe estimated = %v, want 200", got.EstimatedTotal)
	}

	_, err := env.mutations.UpdateLineItem(producer, base.ID, LineItemInput{
		CategoryID: cat.ID, Description: "Gaffer", RateAmount: 2000, Quantity: 1,
		CalcMode: models.CalcModeFlat,
	})
	if err != nil {
		t.Fatalf("updating base: %v", err)
	}
	if got := env.getItem(t, fringe.ID); !almostEqual(got.EstimatedTotal, 400) {
		t.Errorf("fringe after base change = %v, want 400", got.EstimatedTotal)
	}
	if got := env.getBudget(t, b.ID); !almostEqual(got.EstimatedTotal, 2400) {
		t.Errorf("budget total = %v, want 2400", got.EstimatedTotal)
	}
}

func TestPercentOfSubtotalExcludesDerivedItems(t *testing.T) {
	env := newTestEnv(t)
	b := env.seedBudget(t, 0)
	cat := env.seedCategory(t, b.ID, "Production", models.CategoryTypeProduction, 1)
	env.createItem(t, b.ID, LineItemInput{
		CategoryID: cat.ID, Description: "Crew", RateAmount: 5000, Quantity: 1,
		CalcMode: models.CalcModeFlat,
	})
	pct := env.createItem(t, b.ID, LineItemInput{
		CategoryID: cat.ID, Description: "Insurance", RateAmount: 10, Quantity: 1,
		CalcMode: models.CalcModePercentOfSubtotal,
	})

	// Base is the direct items only, so the percent item does not feed
	// itself: 10% of 5000, not of 5500.
	if got := env.getItem(t, pct.ID); !almostEqual(got.EstimatedTotal, 500) {
		t.Errorf("percent item estimated = %v, want 500", got.EstimatedTotal)
	}
	if got := env.getCategory(t, cat.ID); !almostEqual(got.EstimatedSubtotal, 5500) {
		t.Errorf("category subtotal = %v, want 5500", got.EstimatedSubtotal)
	}
}

func TestPercentOfTotalFollowsCrossCategoryChanges(t *testing.T) {
	env := newTestEnv(t)
	b := env.seedBudget(t, 0)
	catA := env.seedCategory(t, b.ID, "Camera", models.CategoryTypeProduction, 1)
	catB := env.seedCategory(t, b.ID, "Insurance", models.CategoryTypeOther, 2)
	direct := env.createItem(t, b.ID, LineItemInput{
		CategoryID: catA.ID, Description: "Package", RateAmount: 1000, Quantity: 1,
		CalcMode: models.CalcModeFlat,
	})
	pct := env.createItem(t, b.ID, LineItemInput{
		CategoryID: catB.ID, Description: "Production insurance", RateAmount: 10, Quantity: 1,
		CalcMode: models.CalcModePercentOfTotal,
	})

	if got := env.getItem(t, pct.ID); !almostEqual(got.EstimatedTotal, 100) {
		t.Fatalf("percent item estimated = %v, want 100", got.EstimatedTotal)
	}

	// Editing a direct item in another category moves the budget-wide
	// base, so the percent item and its category must follow.
	_, err := env.mutations.UpdateLineItem(producer, direct.ID, LineItemInput{
		CategoryID: catA.ID, Description: "Package", RateAmount: 2000, Quantity: 1,
		CalcMode: models.CalcModeFlat,
	})
	if err != nil {
		t.Fatalf("updating direct item: %v", err)
	}
	if got := env.getItem(t, pct.ID); !almostEqual(got.EstimatedTotal, 200) {
		t.Errorf("percent item after base change = %v, want 200", got.EstimatedTotal)
	}
	if got := env.getCategory(t, catB.ID); !almostEqual(got.EstimatedSubtotal, 200) {
		t.Errorf("percent category subtotal = %v, want 200", got.EstimatedSubtotal)
	}
	if got := env.getBudget(t, b.ID); !almostEqual(got.EstimatedTotal, 2200) {
		t.Errorf("budget total = %v, want 2200", got.EstimatedTotal)
	}
}

func TestFringeOnPercentItemFollowsCrossCategoryChanges(t *testing.T) {
	env := newTestEnv(t)
	b := env.seedBudget(t, 0)
	catA := env.seedCategory(t, b.ID, "Crew", models.CategoryTypeProduction, 1)
	catB := env.seedCategory(t, b.ID, "General", models.CategoryTypeOther, 2)
	direct := env.createItem(t, b.ID, LineItemInput{
		CategoryID: catA.ID, Description: "Crew payroll", RateAmount: 1000, Quantity: 1,
		CalcMode: models.CalcModeFlat,
	})
	pct := env.createItem(t, b.ID, LineItemInput{
		CategoryID: catB.ID, Description: "Overhead", RateAmount: 10, Quantity: 1,
		CalcMode: models.CalcModePercentOfTotal,
	})
	fringe := env.createItem(t, b.ID, LineItemInput{
		CategoryID: catB.ID, Description: "Overhead fringes", CalcMode: models.CalcModeFlat, Quantity: 1,
		IsFringe: true, FringeBaseItemID: i64(pct.ID), FringePercent: f64(50),
	})

	_, err := env.mutations.UpdateLineItem(producer, direct.ID, LineItemInput{
		CategoryID: catA.ID, Description: "Crew payroll", RateAmount: 3000, Quantity: 1,
		CalcMode: models.CalcModeFlat,
	})
	if err != nil {
		t.Fatalf("updating direct item: %v", err)
	}
	if got := env.getItem(t, pct.ID); !almostEqual(got.EstimatedTotal, 300) {
		t.Errorf("percent item = %v, want 300", got.EstimatedTotal)
	}
	if got := env.getItem(t, fringe.ID); !almostEqual(got.EstimatedTotal, 150) {
		t.Errorf("fringe on percent item = %v, want 150", got.EstimatedTotal)
	}
}

func TestManualEstimateOverrideWins(t *testing.T) {
	env := newTestEnv(t)
	b := env.seedBudget(t, 0)
	cat := env.seedCategory(t, b.ID, "Camera", models.CategoryTypeProduction, 1)
	li := env.createItem(t, b.ID, LineItemInput{
		CategoryID: cat.ID, Description: "Negotiated package", RateAmount: 500, Quantity: 1,
		Days: f64(4), CalcMode: models.CalcModeRateXDays,
		UseManualTotal: true, ManualTotalOverride: f64(750),
	})
	if got := env.getItem(t, li.ID); !almostEqual(got.EstimatedTotal, 750) {
		t.Errorf("estimated = %v, want the 750 override over the 2000 formula result", got.EstimatedTotal)
	}
}
