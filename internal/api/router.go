/**
 * @description
 * HTTP router setup for the ledger service using go-chi/chi.
 */
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new Chi router and registers ledger routes.
func NewRouter(h *Handler, jwtSecret string, internalKey string) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token", "X-Internal-API-Key"},
		ExposedHeaders:   []string{"Link", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Ledger service is healthy"))
	})

	r.Route("/internal", func(r chi.Router) {
		r.Use(InternalAuthMiddleware(internalKey))
		r.Post("/accounts/{address}/credit", h.handleCreditWallet)
		r.Post("/jobs/schedules/run", h.handleRunDueSchedules)
		r.Post("/jobs/collections/run", h.handleExpireCollections)
	})

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(jwtSecret))

		r.Get("/balances", h.handleGetBalance)
		r.Post("/withdrawals", h.handleWithdraw)

		r.Route("/fees", func(r chi.Router) {
			r.Post("/quote", h.handleQuoteFee)
			r.Post("/process", h.handleProcessFee)
			r.Get("/transactions/{id}", h.handleGetFeeTransaction)
			r.Get("/spend", h.handleCumulativeSpend)
			r.Get("/profiles", h.handleListFeeProfiles)
			r.Put("/profiles", h.handleSetFeeProfile)
			r.Delete("/profiles/{feeType}", h.handleDeactivateFeeProfile)
			r.Put("/volume-tiers", h.handleSetVolumeTier)
		})

		r.Route("/treasury", func(r chi.Router) {
			r.Get("/funds", h.handleListFunds)
			r.Post("/funds", h.handleCreateFund)
			r.Get("/funds/{id}", h.handleGetFund)
			r.Get("/funds/{id}/deposits", h.handleFundDeposits)
			r.Get("/funds/{id}/expenses", h.handleFundExpenses)
			r.Get("/balance", h.handleTreasuryBalance)
			r.Put("/funds/{id}/allocation", h.handleUpdateFundAllocation)
			r.Put("/allocations", h.handleUpdateAllAllocations)
			r.Delete("/funds/{id}", h.handleDeactivateFund)
			r.Post("/deposits", h.handleTreasuryDeposit)
			r.Post("/fee-deposits", h.handleFeeCollectorDeposit)
			r.Post("/funds/{id}/withdrawals", h.handleWithdrawFromFund)
			r.Post("/withdrawals", h.handleWithdrawTreasuryFunds)
		})

		r.Route("/transfers", func(r chi.Router) {
			r.Post("/", h.handleTransfer)
			r.Post("/batch", h.handleBatchTransfer)
			r.Get("/daily-usage", h.handleDailyUsage)
		})
		r.Put("/members/{address}", h.handleSetMembership)

		r.Route("/schedules", func(r chi.Router) {
			r.Post("/", h.handleCreateSchedule)
			r.Get("/{id}", h.handleGetSchedule)
			r.Post("/{id}/execute", h.handleExecuteSchedule)
			r.Post("/{id}/topup", h.handleTopUpSchedule)
			r.Delete("/{id}", h.handleCancelSchedule)
		})

		r.Route("/collections", func(r chi.Router) {
			r.Post("/", h.handleCreateCollection)
			r.Get("/{id}", h.handleGetCollection)
			r.Post("/{id}/contributions", h.handleContribute)
			r.Post("/{id}/finalize", h.handleFinalizeCollection)
			r.Post("/{id}/payouts", h.handleAdminCollectionPayout)
		})

		r.Route("/stakes", func(r chi.Router) {
			r.Post("/", h.handleCreateStake)
			r.Get("/", h.handleListStakes)
			r.Get("/{id}/rewards", h.handlePendingRewards)
			r.Post("/{id}/claim", h.handleClaimRewards)
			r.Post("/{id}/increase", h.handleIncreaseStake)
			r.Post("/{id}/extend", h.handleExtendStake)
			r.Post("/{id}/unstake", h.handleUnstake)
		})
		r.Get("/governance/weight", h.handleGovernanceWeight)
		r.Post("/staking/rewards-pool", h.handleFundRewardsPool)
		r.Put("/staking/tiers", h.handleSetTierRequirement)
	})

	return r
}
