package services

import (
	"database/sql"
	"errors"
	"math"

	"github.com/google/uuid"

	"production-budget-service/internal/auth"
	"production-budget-service/internal/models"
	"production-budget-service/internal/repositories"
)

// Receipt operations. A receipt is financial noise until it is mapped;
// only then does its amount flow into line item and day actuals. Mapping
// requires human verification first, regardless of OCR confidence.

type ReceiptInput struct {
	LineItemID    *int64  `json:"line_item_id"`
	DailyBudgetID *int64  `json:"daily_budget_id"`
	Vendor        string  `json:"vendor"`
	Amount        float64 `json:"amount"`
	ReceiptDate   string  `json:"receipt_date"`
	OCRStatus     string  `json:"ocr_status"`
	OCRConfidence float64 `json:"ocr_confidence"`
	IsMapped      bool    `json:"is_mapped"`
	IsVerified    bool    `json:"is_verified"`
}

func (in *ReceiptInput) validate() error {
	if math.IsNaN(in.Amount) || math.IsInf(in.Amount, 0) {
		return validationErr("amount", "must be a finite number")
	}
	if in.Amount < 0 {
		return validationErr("amount", "must not be negative")
	}
	if !models.ValidOCRStatus(in.OCRStatus) {
		return validationErr("ocr_status", "unknown OCR status "+in.OCRStatus)
	}
	if in.OCRConfidence < 0 || in.OCRConfidence > 1 {
		return validationErr("ocr_confidence", "must be between 0 and 1")
	}
	if in.IsMapped {
		if !in.IsVerified {
			return validationErr("is_mapped", "receipt must be verified before mapping")
		}
		if in.OCRStatus == models.OCRStatusFailed {
			return validationErr("is_mapped", "correct the receipt fields before mapping a failed OCR read")
		}
		if in.LineItemID == nil && in.DailyBudgetID == nil {
			return validationErr("is_mapped", "a mapped receipt needs a line item or daily budget target")
		}
	}
	return nil
}

// resolveReceiptRefs checks both optional targets against the budget and
// returns them as nullable columns.
func (s *MutationService) resolveReceiptRefs(tx *sql.Tx, budgetID int64, in *ReceiptInput) (sql.NullInt64, sql.NullInt64, error) {
	var lineRef, dayRef sql.NullInt64
	if in.LineItemID != nil {
		li, err := s.lineItems.GetByID(tx, *in.LineItemID)
		if errors.Is(err, repositories.ErrNotFound) {
			return lineRef, dayRef, validationErr("line_item_id", "line item does not exist")
		}
		if err != nil {
			return lineRef, dayRef, err
		}
		if li.BudgetID != budgetID {
			return lineRef, dayRef, validationErr("line_item_id", "line item belongs to another budget")
		}
		lineRef = sql.NullInt64{Int64: *in.LineItemID, Valid: true}
	}
	if in.DailyBudgetID != nil {
		day, err := s.dailyBudgets.GetByID(tx, *in.DailyBudgetID)
		if errors.Is(err, repositories.ErrNotFound) {
			return lineRef, dayRef, validationErr("daily_budget_id", "daily budget does not exist")
		}
		if err != nil {
			return lineRef, dayRef, err
		}
		if day.BudgetID != budgetID {
			return lineRef, dayRef, validationErr("daily_budget_id", "daily budget belongs to another budget")
		}
		dayRef = sql.NullInt64{Int64: *in.DailyBudgetID, Valid: true}
	}
	return lineRef, dayRef, nil
}

// receiptChain re-aggregates every target a receipt touched, old and new.
// Running the chain for unmapped targets too is harmless: the recompute
// reads current mapped sums, so it simply confirms the existing totals.
func (s *MutationService) receiptChain(tx *sql.Tx, budgetID int64, dayRefs []sql.NullInt64, lineRefs []sql.NullInt64) error {
	seenDays := map[int64]bool{}
	for _, ref := range dayRefs {
		if !ref.Valid || seenDays[ref.Int64] {
			continue
		}
		seenDays[ref.Int64] = true
		if err := s.recalc.RecomputeDailyBudget(tx, ref.Int64); err != nil {
			return err
		}
	}
	seenItems := map[int64]bool{}
	touchedItem := false
	for _, ref := range lineRefs {
		if !ref.Valid || seenItems[ref.Int64] {
			continue
		}
		seenItems[ref.Int64] = true
		li, err := s.lineItems.GetByID(tx, ref.Int64)
		if errors.Is(err, repositories.ErrNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		if err := s.recalc.RecomputeLineItemChain(tx, li); err != nil {
			return err
		}
		touchedItem = true
	}
	if touchedItem {
		return nil // chain already marked the cache stale
	}
	return s.topSheets.MarkStale(tx, budgetID)
}

func (s *MutationService) CreateReceipt(user auth.User, budgetID int64, in ReceiptInput) (*models.Receipt, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	var result *models.Receipt
	err := s.run(func(tx *sql.Tx) error {
		if _, err := s.mutableBudget(tx, user, budgetID); err != nil {
			return err
		}
		lineRef, dayRef, err := s.resolveReceiptRefs(tx, budgetID, &in)
		if err != nil {
			return err
		}

		rc := &models.Receipt{
			ReceiptUID:    uuid.NewString(),
			BudgetID:      budgetID,
			LineItemID:    lineRef,
			DailyBudgetID: dayRef,
			Vendor:        in.Vendor,
			Amount:        in.Amount,
			ReceiptDate:   in.ReceiptDate,
			OCRStatus:     in.OCRStatus,
			OCRConfidence: in.OCRConfidence,
			IsMapped:      in.IsMapped,
			IsVerified:    in.IsVerified,
		}
		if err := s.receipts.Insert(tx, rc); err != nil {
			return err
		}
		if err := s.receiptChain(tx, budgetID, []sql.NullInt64{dayRef}, []sql.NullInt64{lineRef}); err != nil {
			return err
		}
		result = rc
		return nil
	})
	return result, err
}

func (s *MutationService) UpdateReceipt(user auth.User, receiptID int64, in ReceiptInput) (*models.Receipt, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	var result *models.Receipt
	err := s.run(func(tx *sql.Tx) error {
		rc, err := s.receipts.GetByID(tx, receiptID)
		if errors.Is(err, repositories.ErrNotFound) {
			return notFoundErr("receipt", receiptID)
		}
		if err != nil {
			return err
		}
		if _, err := s.mutableBudget(tx, user, rc.BudgetID); err != nil {
			return err
		}
		lineRef, dayRef, err := s.resolveReceiptRefs(tx, rc.BudgetID, &in)
		if err != nil {
			return err
		}

		oldLineRef, oldDayRef := rc.LineItemID, rc.DailyBudgetID
		rc.LineItemID = lineRef
		rc.DailyBudgetID = dayRef
		rc.Vendor = in.Vendor
		rc.Amount = in.Amount
		rc.ReceiptDate = in.ReceiptDate
		rc.OCRStatus = in.OCRStatus
		rc.OCRConfidence = in.OCRConfidence
		rc.IsMapped = in.IsMapped
		rc.IsVerified = in.IsVerified
		if err := s.receipts.Update(tx, rc); err != nil {
			return err
		}

		err = s.receiptChain(tx, rc.BudgetID,
			[]sql.NullInt64{oldDayRef, dayRef},
			[]sql.NullInt64{oldLineRef, lineRef})
		if err != nil {
			return err
		}
		result = rc
		return nil
	})
	return result, err
}

// MapReceiptInput retargets an already-ingested receipt and flips it to
// mapped in one step.
type MapReceiptInput struct {
	LineItemID    *int64 `json:"line_item_id"`
	DailyBudgetID *int64 `json:"daily_budget_id"`
}

func (s *MutationService) MapReceipt(user auth.User, receiptID int64, in MapReceiptInput) (*models.Receipt, error) {
	if in.LineItemID == nil && in.DailyBudgetID == nil {
		return nil, validationErr("is_mapped", "a mapped receipt needs a line item or daily budget target")
	}
	var result *models.Receipt
	err := s.run(func(tx *sql.Tx) error {
		rc, err := s.receipts.GetByID(tx, receiptID)
		if errors.Is(err, repositories.ErrNotFound) {
			return notFoundErr("receipt", receiptID)
		}
		if err != nil {
			return err
		}
		if _, err := s.mutableBudget(tx, user, rc.BudgetID); err != nil {
			return err
		}
		if !rc.IsVerified {
			return validationErr("is_mapped", "receipt must be verified before mapping")
		}
		if rc.OCRStatus == models.OCRStatusFailed {
			return validationErr("is_mapped", "correct the receipt fields before mapping a failed OCR read")
		}
		refs := ReceiptInput{LineItemID: in.LineItemID, DailyBudgetID: in.DailyBudgetID}
		lineRef, dayRef, err := s.resolveReceiptRefs(tx, rc.BudgetID, &refs)
		if err != nil {
			return err
		}

		oldLineRef, oldDayRef := rc.LineItemID, rc.DailyBudgetID
		rc.LineItemID = lineRef
		rc.DailyBudgetID = dayRef
		rc.IsMapped = true
		if err := s.receipts.Update(tx, rc); err != nil {
			return err
		}

		err = s.receiptChain(tx, rc.BudgetID,
			[]sql.NullInt64{oldDayRef, dayRef},
			[]sql.NullInt64{oldLineRef, lineRef})
		if err != nil {
			return err
		}
		result = rc
		return nil
	})
	return result, err
}

// UnmapReceipt pulls a receipt's amount back out of the actuals without
// touching its targets, so it can be remapped later.
func (s *MutationService) UnmapReceipt(user auth.User, receiptID int64) (*models.Receipt, error) {
	var result *models.Receipt
	err := s.run(func(tx *sql.Tx) error {
		rc, err := s.receipts.GetByID(tx, receiptID)
		if errors.Is(err, repositories.ErrNotFound) {
			return notFoundErr("receipt", receiptID)
		}
		if err != nil {
			return err
		}
		if _, err := s.mutableBudget(tx, user, rc.BudgetID); err != nil {
			return err
		}
		rc.IsMapped = false
		if err := s.receipts.Update(tx, rc); err != nil {
			return err
		}
		err = s.receiptChain(tx, rc.BudgetID,
			[]sql.NullInt64{rc.DailyBudgetID}, []sql.NullInt64{rc.LineItemID})
		if err != nil {
			return err
		}
		result = rc
		return nil
	})
	return result, err
}

// VerifyReceipt records the human sign-off on the OCR-extracted fields.
func (s *MutationService) VerifyReceipt(user auth.User, receiptID int64) (*models.Receipt, error) {
	var result *models.Receipt
	err := s.run(func(tx *sql.Tx) error {
		rc, err := s.receipts.GetByID(tx, receiptID)
		if errors.Is(err, repositories.ErrNotFound) {
			return notFoundErr("receipt", receiptID)
		}
		if err != nil {
			return err
		}
		if _, err := s.mutableBudget(tx, user, rc.BudgetID); err != nil {
			return err
		}
		if rc.OCRStatus == models.OCRStatusFailed {
			return validationErr("is_verified", "correct the receipt fields before verifying a failed OCR read")
		}
		rc.IsVerified = true
		if err := s.receipts.Update(tx, rc); err != nil {
			return err
		}
		result = rc
		return nil
	})
	return result, err
}
