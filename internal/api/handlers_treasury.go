/**
 * @description
 * HTTP handlers for treasury fund management: creating funds, adjusting
 * allocations, deposits, and the two withdrawal paths (single-fund expense
 * and proportional profit sharing).
 */

package api

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/Pasifika-Web3-Tech-Hub/pasifika-evm-be-sub000/internal/domain"
)

type fundResponse struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	AllocationBps uint16    `json:"allocation_bps"`
	Balance       string    `json:"balance"`
	Active        bool      `json:"active"`
	Default       bool      `json:"default"`
	CreatedAt     time.Time `json:"created_at"`
}

func toFundResponse(f domain.Fund) fundResponse {
	return fundResponse{
		ID:            f.ID.String(),
		Name:          f.Name,
		AllocationBps: f.AllocationBps,
		Balance:       f.Balance.Dec(),
		Active:        f.Active,
		Default:       f.Default,
		CreatedAt:     f.CreatedAt,
	}
}

type createFundRequest struct {
	Name          string `json:"name"`
	AllocationBps uint16 `json:"allocation_bps"`
}

func (h *Handler) handleCreateFund(w http.ResponseWriter, r *http.Request) {
	auth, ok := AuthFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req createFundRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	fund, err := h.service.CreateFund(r.Context(), auth, req.Name, req.AllocationBps)
	if err != nil {
		respondWithLedgerError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, toFundResponse(fund))
}

func (h *Handler) handleListFunds(w http.ResponseWriter, r *http.Request) {
	funds := h.service.Funds()
	out := make([]fundResponse, 0, len(funds))
	for _, f := range funds {
		out = append(out, toFundResponse(f))
	}
	respondWithJSON(w, http.StatusOK, out)
}

func (h *Handler) handleGetFund(w http.ResponseWriter, r *http.Request) {
	fundID, err := parseUUIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid fund ID")
		return
	}
	fund, err := h.service.Fund(fundID)
	if err != nil {
		respondWithLedgerError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, toFundResponse(fund))
}

type depositResponse struct {
	ID          string    `json:"id"`
	FundID      string    `json:"fund_id"`
	Amount      string    `json:"amount"`
	Sender      string    `json:"sender"`
	Description string    `json:"description"`
	FeeDeposit  bool      `json:"fee_deposit"`
	CreatedAt   time.Time `json:"created_at"`
}

type expenseResponse struct {
	ID          string    `json:"id"`
	FundID      string    `json:"fund_id"`
	Amount      string    `json:"amount"`
	Recipient   string    `json:"recipient"`
	Approver    string    `json:"approver"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// auditLimit reads the optional ?limit= query parameter.
func auditLimit(r *http.Request) int {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil {
		return 0
	}
	return limit
}

func (h *Handler) handleFundDeposits(w http.ResponseWriter, r *http.Request) {
	fundID, err := parseUUIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid fund ID")
		return
	}
	deposits, err := h.service.FundDeposits(r.Context(), fundID, auditLimit(r))
	if err != nil {
		respondWithLedgerError(w, err)
		return
	}
	out := make([]depositResponse, 0, len(deposits))
	for _, d := range deposits {
		out = append(out, depositResponse{
			ID:          d.ID.String(),
			FundID:      d.FundID.String(),
			Amount:      d.Amount.Dec(),
			Sender:      string(d.Sender),
			Description: d.Description,
			FeeDeposit:  d.FeeDeposit,
			CreatedAt:   d.CreatedAt,
		})
	}
	respondWithJSON(w, http.StatusOK, out)
}

func (h *Handler) handleFundExpenses(w http.ResponseWriter, r *http.Request) {
	fundID, err := parseUUIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid fund ID")
		return
	}
	expenses, err := h.service.FundExpenses(r.Context(), fundID, auditLimit(r))
	if err != nil {
		respondWithLedgerError(w, err)
		return
	}
	out := make([]expenseResponse, 0, len(expenses))
	for _, e := range expenses {
		out = append(out, expenseResponse{
			ID:          e.ID.String(),
			FundID:      e.FundID.String(),
			Amount:      e.Amount.Dec(),
			Recipient:   string(e.Recipient),
			Approver:    string(e.Approver),
			Description: e.Description,
			CreatedAt:   e.CreatedAt,
		})
	}
	respondWithJSON(w, http.StatusOK, out)
}

func (h *Handler) handleTreasuryBalance(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{
		"balance": h.service.TreasuryBalance().Dec(),
	})
}

type updateAllocationRequest struct {
	AllocationBps uint16 `json:"allocation_bps"`
}

func (h *Handler) handleUpdateFundAllocation(w http.ResponseWriter, r *http.Request) {
	auth, ok := AuthFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	fundID, err := parseUUIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid fund ID")
		return
	}
	var req updateAllocationRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	fund, err := h.service.UpdateFundAllocation(r.Context(), auth, fundID, req.AllocationBps)
	if err != nil {
		respondWithLedgerError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, toFundResponse(fund))
}

type bulkAllocationRequest struct {
	Allocations []struct {
		FundID        string `json:"fund_id"`
		AllocationBps uint16 `json:"allocation_bps"`
	} `json:"allocations"`
}

func (h *Handler) handleUpdateAllAllocations(w http.ResponseWriter, r *http.Request) {
	auth, ok := AuthFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req bulkAllocationRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	allocations := make([]domain.FundAllocation, 0, len(req.Allocations))
	for _, a := range req.Allocations {
		fundID, err := uuid.Parse(a.FundID)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid fund ID: "+a.FundID)
			return
		}
		allocations = append(allocations, domain.FundAllocation{
			FundID:        fundID,
			AllocationBps: a.AllocationBps,
		})
	}

	if err := h.service.UpdateAllFundAllocations(r.Context(), auth, allocations); err != nil {
		respondWithLedgerError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (h *Handler) handleDeactivateFund(w http.ResponseWriter, r *http.Request) {
	auth, ok := AuthFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	fundID, err := parseUUIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid fund ID")
		return
	}

	fund, err := h.service.DeactivateFund(r.Context(), auth, fundID)
	if err != nil {
		respondWithLedgerError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, toFundResponse(fund))
}

type treasuryDepositRequest struct {
	Amount      string `json:"amount"`
	Description string `json:"description,omitempty"`
}

func (h *Handler) handleTreasuryDeposit(w http.ResponseWriter, r *http.Request) {
	auth, ok := AuthFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req treasuryDepositRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	amount, err := parseWei(req.Amount)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid amount")
		return
	}

	deposits, err := h.service.DepositFunds(r.Context(), auth.Caller, amount, req.Description)
	if err != nil {
		log.Printf("Error depositing treasury funds for %s: %v", auth.Caller, err)
		respondWithLedgerError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, map[string]interface{}{
		"legs": len(deposits),
	})
}

func (h *Handler) handleFeeCollectorDeposit(w http.ResponseWriter, r *http.Request) {
	auth, ok := AuthFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req treasuryDepositRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	amount, err := parseWei(req.Amount)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid amount")
		return
	}

	deposits, err := h.service.DepositFees(r.Context(), auth, amount, req.Description)
	if err != nil {
		respondWithLedgerError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, map[string]interface{}{
		"legs": len(deposits),
	})
}

type fundWithdrawalRequest struct {
	Recipient   string `json:"recipient"`
	Amount      string `json:"amount"`
	Description string `json:"description,omitempty"`
}

func (h *Handler) handleWithdrawFromFund(w http.ResponseWriter, r *http.Request) {
	auth, ok := AuthFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	fundID, err := parseUUIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid fund ID")
		return
	}
	var req fundWithdrawalRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	amount, err := parseWei(req.Amount)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid amount")
		return
	}

	expense, err := h.service.WithdrawFromFund(r.Context(), auth, fundID, domain.Address(req.Recipient), amount, req.Description)
	if err != nil {
		log.Printf("Error withdrawing from fund %s: %v", fundID, err)
		respondWithLedgerError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, map[string]string{
		"expense_id": expense.ID.String(),
		"fund_id":    expense.FundID.String(),
		"amount":     expense.Amount.Dec(),
	})
}

type profitSharingRequest struct {
	Recipient string `json:"recipient"`
	Amount    string `json:"amount"`
}

func (h *Handler) handleWithdrawTreasuryFunds(w http.ResponseWriter, r *http.Request) {
	auth, ok := AuthFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req profitSharingRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	amount, err := parseWei(req.Amount)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid amount")
		return
	}

	expenses, err := h.service.WithdrawTreasuryFunds(r.Context(), auth, domain.Address(req.Recipient), amount)
	if err != nil {
		log.Printf("Error withdrawing treasury funds: %v", err)
		respondWithLedgerError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, map[string]interface{}{
		"legs": len(expenses),
	})
}
