package handlers

import (
	"database/sql"
	"net/http"

	"github.com/gorilla/mux"

	"production-budget-service/internal/auth"
	"production-budget-service/internal/config"
	"production-budget-service/internal/repositories"
	"production-budget-service/internal/services"
)

func SetupRouter(db *sql.DB, cfg *config.Config) *mux.Router {
	budgets := repositories.NewBudgetRepository()
	categories := repositories.NewCategoryRepository()
	lineItems := repositories.NewLineItemRepository()
	dailyBudgets := repositories.NewDailyBudgetRepository()
	dayItems := repositories.NewDailyBudgetItemRepository()
	dayLinks := repositories.NewBudgetDayLinkRepository()
	receipts := repositories.NewReceiptRepository()
	topSheets := repositories.NewTopSheetRepository()
	templates := repositories.NewTemplateRepository()

	recalc := services.NewRecalcService(budgets, categories, lineItems, dailyBudgets, dayItems, receipts, topSheets)
	mutations := services.NewMutationService(db, auth.NewRoleAuthorizer(),
		budgets, categories, lineItems, dailyBudgets, dayItems, dayLinks, receipts, topSheets, templates, recalc)
	topsheet := services.NewTopSheetService(db, budgets, categories, lineItems, topSheets)
	query := services.NewQueryService(db, budgets, categories, lineItems, dailyBudgets, dayItems, dayLinks, receipts)

	budgetHandler := NewBudgetHandler(mutations, query)
	categoryHandler := NewCategoryHandler(mutations, query)
	lineItemHandler := NewLineItemHandler(mutations, query)
	dailyBudgetHandler := NewDailyBudgetHandler(mutations, query)
	receiptHandler := NewReceiptHandler(mutations, query)
	topSheetHandler := NewTopSheetHandler(topsheet)

	router := mux.NewRouter()

	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(loggingMiddleware)
	api.Use(jsonContentTypeMiddleware)
	api.Use(authMiddleware([]byte(cfg.JWTSecret)))

	// Budgets
	api.HandleFunc("/budgets", budgetHandler.CreateBudget).Methods(http.MethodPost)
	api.HandleFunc("/budgets/{id}", budgetHandler.GetBudget).Methods(http.MethodGet)
	api.HandleFunc("/budgets/{id}/contingency", budgetHandler.UpdateContingency).Methods(http.MethodPatch)
	api.HandleFunc("/budgets/{id}/submit", budgetHandler.SubmitBudget()).Methods(http.MethodPost)
	api.HandleFunc("/budgets/{id}/approve", budgetHandler.ApproveBudget()).Methods(http.MethodPost)
	api.HandleFunc("/budgets/{id}/lock", budgetHandler.LockBudget()).Methods(http.MethodPost)
	api.HandleFunc("/budgets/{id}/unlock", budgetHandler.UnlockBudget()).Methods(http.MethodPost)
	api.HandleFunc("/budgets/{id}/archive", budgetHandler.ArchiveBudget()).Methods(http.MethodPost)
	api.HandleFunc("/budgets/{id}/topsheet", topSheetHandler.GetTopSheet).Methods(http.MethodGet)

	// Categories
	api.HandleFunc("/budgets/{id}/categories", categoryHandler.ListCategories).Methods(http.MethodGet)
	api.HandleFunc("/budgets/{id}/categories", categoryHandler.CreateCategory).Methods(http.MethodPost)
	api.HandleFunc("/categories/{id}", categoryHandler.UpdateCategory).Methods(http.MethodPut)
	api.HandleFunc("/categories/{id}", categoryHandler.DeleteCategory).Methods(http.MethodDelete)
	api.HandleFunc("/categories/{id}/line-items", lineItemHandler.ListLineItems).Methods(http.MethodGet)

	// Line items
	api.HandleFunc("/budgets/{id}/line-items", lineItemHandler.CreateLineItem).Methods(http.MethodPost)
	api.HandleFunc("/line-items/{id}", lineItemHandler.GetLineItem).Methods(http.MethodGet)
	api.HandleFunc("/line-items/{id}", lineItemHandler.UpdateLineItem).Methods(http.MethodPut)
	api.HandleFunc("/line-items/{id}", lineItemHandler.DeleteLineItem).Methods(http.MethodDelete)

	// Daily budgets and allocations
	api.HandleFunc("/budgets/{id}/daily-budgets", dailyBudgetHandler.ListDailyBudgets).Methods(http.MethodGet)
	api.HandleFunc("/budgets/{id}/daily-budgets", dailyBudgetHandler.CreateDailyBudget).Methods(http.MethodPost)
	api.HandleFunc("/daily-budgets/{id}", dailyBudgetHandler.GetDailyBudget).Methods(http.MethodGet)
	api.HandleFunc("/daily-budgets/{id}/items", dailyBudgetHandler.CreateDailyBudgetItem).Methods(http.MethodPost)
	api.HandleFunc("/daily-budget-items/{id}", dailyBudgetHandler.UpdateDailyBudgetItem).Methods(http.MethodPut)
	api.HandleFunc("/daily-budget-items/{id}", dailyBudgetHandler.DeleteDailyBudgetItem).Methods(http.MethodDelete)
	api.HandleFunc("/budgets/{id}/day-links", dailyBudgetHandler.CreateDayLink).Methods(http.MethodPost)
	api.HandleFunc("/day-links/{id}", dailyBudgetHandler.DeleteDayLink).Methods(http.MethodDelete)

	// Receipts
	api.HandleFunc("/budgets/{id}/receipts", receiptHandler.ListReceipts).Methods(http.MethodGet)
	api.HandleFunc("/budgets/{id}/receipts", receiptHandler.CreateReceipt).Methods(http.MethodPost)
	api.HandleFunc("/receipts/{id}", receiptHandler.GetReceipt).Methods(http.MethodGet)
	api.HandleFunc("/receipts/{id}", receiptHandler.UpdateReceipt).Methods(http.MethodPut)
	api.HandleFunc("/receipts/{id}/map", receiptHandler.MapReceipt).Methods(http.MethodPost)
	api.HandleFunc("/receipts/{id}/unmap", receiptHandler.UnmapReceipt).Methods(http.MethodPost)
	api.HandleFunc("/receipts/{id}/verify", receiptHandler.VerifyReceipt).Methods(http.MethodPost)

	router.HandleFunc("/health", healthCheckHandler).Methods(http.MethodGet)

	return router
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]string{
		"status": "healthy",
	}
	respondWithJSON(w, http.StatusOK, response)
}
