/**
 * @description
 * HTTP handlers for the transfer engine: single and batch transfers,
 * scheduled transfers, community collections, and the membership registry.
 */

package api

import (
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/Pasifika-Web3-Tech-Hub/pasifika-evm-be-sub000/internal/domain"
	"github.com/Pasifika-Web3-Tech-Hub/pasifika-evm-be-sub000/internal/ledger/transferengine"
)

type transferRequest struct {
	Recipient string `json:"recipient"`
	Amount    string `json:"amount"`
	Memo      string `json:"memo,omitempty"`
}

type transferResponse struct {
	ID        string    `json:"id"`
	Sender    string    `json:"sender"`
	Recipient string    `json:"recipient"`
	Amount    string    `json:"amount"`
	Fee       string    `json:"fee"`
	Tier      string    `json:"tier"`
	BatchID   string    `json:"batch_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func toTransferResponse(record domain.TransferRecord) transferResponse {
	out := transferResponse{
		ID:        record.ID.String(),
		Sender:    string(record.Sender),
		Recipient: string(record.Recipient),
		Amount:    record.Amount.Dec(),
		Fee:       record.Fee.Dec(),
		Tier:      string(record.Tier),
		CreatedAt: record.CreatedAt,
	}
	if record.BatchID != nil {
		out.BatchID = record.BatchID.String()
	}
	return out
}

func (h *Handler) handleTransfer(w http.ResponseWriter, r *http.Request) {
	auth, ok := AuthFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	if !h.consumeLimit(w, r, "transfer", auth.Caller, h.transferLimit) {
		return
	}

	var req transferRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	amount, err := parseWei(req.Amount)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid amount")
		return
	}

	record, err := h.service.Transfer(r.Context(), auth.Caller, domain.Address(req.Recipient), amount, req.Memo)
	if err != nil {
		log.Printf("Error transferring from %s to %s: %v", auth.Caller, req.Recipient, err)
		respondWithLedgerError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, toTransferResponse(record))
}

type batchTransferRequest struct {
	Items []transferRequest `json:"items"`
}

func (h *Handler) handleBatchTransfer(w http.ResponseWriter, r *http.Request) {
	auth, ok := AuthFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req batchTransferRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	items := make([]transferengine.BatchItem, 0, len(req.Items))
	for _, item := range req.Items {
		amount, err := parseWei(item.Amount)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid amount for recipient "+item.Recipient)
			return
		}
		items = append(items, transferengine.BatchItem{
			Recipient: domain.Address(item.Recipient),
			Amount:    amount,
			Memo:      item.Memo,
		})
	}

	records, batchID, err := h.service.BatchTransfer(r.Context(), auth.Caller, items)
	if err != nil {
		log.Printf("Error batch transferring from %s: %v", auth.Caller, err)
		respondWithLedgerError(w, err)
		return
	}

	out := make([]transferResponse, 0, len(records))
	for _, record := range records {
		out = append(out, toTransferResponse(record))
	}
	respondWithJSON(w, http.StatusCreated, map[string]interface{}{
		"batch_id":  batchID.String(),
		"transfers": out,
	})
}

func (h *Handler) handleDailyUsage(w http.ResponseWriter, r *http.Request) {
	auth, ok := AuthFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{
		"used": h.service.DailyUsage(auth.Caller).Dec(),
	})
}

type membershipRequest struct {
	Member bool `json:"member"`
}

func (h *Handler) handleSetMembership(w http.ResponseWriter, r *http.Request) {
	auth, ok := AuthFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	addr := domain.Address(chi.URLParam(r, "address"))
	var req membershipRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	if err := h.service.SetMember(r.Context(), auth, addr, req.Member); err != nil {
		respondWithLedgerError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"address": string(addr),
		"member":  req.Member,
	})
}

// ---- Scheduled transfers ----

type createScheduleRequest struct {
	Recipient        string `json:"recipient"`
	Amount           string `json:"amount"`
	IntervalSeconds  int64  `json:"interval_seconds"`
	Repetitions      uint64 `json:"repetitions"`
	FundedExecutions uint64 `json:"funded_executions,omitempty"`
}

type scheduleResponse struct {
	ID                 string    `json:"id"`
	Sender             string    `json:"sender"`
	Recipient          string    `json:"recipient"`
	NetAmount          string    `json:"net_amount"`
	FeePerExecution    string    `json:"fee_per_execution"`
	EscrowBalance      string    `json:"escrow_balance"`
	IntervalSeconds    int64     `json:"interval_seconds"`
	NextExecution      time.Time `json:"next_execution"`
	RemainingTransfers uint64    `json:"remaining_transfers"`
	Indefinite         bool      `json:"indefinite"`
	Active             bool      `json:"active"`
	CreatedAt          time.Time `json:"created_at"`
}

func toScheduleResponse(s domain.ScheduledTransfer) scheduleResponse {
	return scheduleResponse{
		ID:                 s.ID.String(),
		Sender:             string(s.Sender),
		Recipient:          string(s.Recipient),
		NetAmount:          s.NetAmount.Dec(),
		FeePerExecution:    s.FeePerExecution.Dec(),
		EscrowBalance:      s.EscrowBalance.Dec(),
		IntervalSeconds:    int64(s.Interval / time.Second),
		NextExecution:      s.NextExecution,
		RemainingTransfers: s.RemainingTransfers,
		Indefinite:         s.Indefinite,
		Active:             s.Active,
		CreatedAt:          s.CreatedAt,
	}
}

func (h *Handler) handleCreateSchedule(w http.ResponseWriter, r *http.Request) {
	auth, ok := AuthFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req createScheduleRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	amount, err := parseWei(req.Amount)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid amount")
		return
	}

	schedule, err := h.service.CreateScheduledTransfer(r.Context(), auth.Caller, domain.Address(req.Recipient), amount, time.Duration(req.IntervalSeconds)*time.Second, req.Repetitions, req.FundedExecutions)
	if err != nil {
		log.Printf("Error creating schedule for %s: %v", auth.Caller, err)
		respondWithLedgerError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, toScheduleResponse(schedule))
}

func (h *Handler) handleGetSchedule(w http.ResponseWriter, r *http.Request) {
	scheduleID, err := parseUUIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid schedule ID")
		return
	}

	schedule, err := h.service.ScheduledTransfer(scheduleID)
	if err != nil {
		respondWithLedgerError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, toScheduleResponse(schedule))
}

func (h *Handler) handleExecuteSchedule(w http.ResponseWriter, r *http.Request) {
	scheduleID, err := parseUUIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid schedule ID")
		return
	}

	schedule, err := h.service.ExecuteScheduledTransfer(r.Context(), scheduleID)
	if err != nil {
		respondWithLedgerError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, toScheduleResponse(schedule))
}

type topUpScheduleRequest struct {
	Executions uint64 `json:"executions"`
}

func (h *Handler) handleTopUpSchedule(w http.ResponseWriter, r *http.Request) {
	auth, ok := AuthFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	scheduleID, err := parseUUIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid schedule ID")
		return
	}
	var req topUpScheduleRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	schedule, err := h.service.TopUpScheduledTransfer(r.Context(), auth.Caller, scheduleID, req.Executions)
	if err != nil {
		respondWithLedgerError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, toScheduleResponse(schedule))
}

func (h *Handler) handleCancelSchedule(w http.ResponseWriter, r *http.Request) {
	auth, ok := AuthFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	scheduleID, err := parseUUIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid schedule ID")
		return
	}

	schedule, err := h.service.CancelScheduledTransfer(r.Context(), auth.Caller, scheduleID)
	if err != nil {
		respondWithLedgerError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, toScheduleResponse(schedule))
}

// ---- Community collections ----

type createCollectionRequest struct {
	Purpose  string    `json:"purpose"`
	Goal     string    `json:"goal,omitempty"`
	Deadline time.Time `json:"deadline"`
}

type collectionResponse struct {
	ID        string    `json:"id"`
	Creator   string    `json:"creator"`
	Purpose   string    `json:"purpose"`
	Goal      string    `json:"goal"`
	Collected string    `json:"collected"`
	Deadline  time.Time `json:"deadline"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

func toCollectionResponse(c domain.CommunityCollection) collectionResponse {
	return collectionResponse{
		ID:        c.ID.String(),
		Creator:   string(c.Creator),
		Purpose:   c.Purpose,
		Goal:      c.Goal.Dec(),
		Collected: c.Collected.Dec(),
		Deadline:  c.Deadline,
		Active:    c.Active,
		CreatedAt: c.CreatedAt,
	}
}

func (h *Handler) handleCreateCollection(w http.ResponseWriter, r *http.Request) {
	auth, ok := AuthFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req createCollectionRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	goal := "0"
	if req.Goal != "" {
		goal = req.Goal
	}
	goalAmount, err := parseWei(goal)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid goal")
		return
	}

	collection, err := h.service.CreateCommunityCollection(r.Context(), auth.Caller, req.Purpose, goalAmount, req.Deadline)
	if err != nil {
		respondWithLedgerError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, toCollectionResponse(collection))
}

func (h *Handler) handleGetCollection(w http.ResponseWriter, r *http.Request) {
	collectionID, err := parseUUIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid collection ID")
		return
	}

	collection, err := h.service.CommunityCollection(collectionID)
	if err != nil {
		respondWithLedgerError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, toCollectionResponse(collection))
}

type contributionRequest struct {
	Amount string `json:"amount"`
}

func (h *Handler) handleContribute(w http.ResponseWriter, r *http.Request) {
	auth, ok := AuthFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	if !h.consumeLimit(w, r, "contribution", auth.Caller, h.transferLimit) {
		return
	}

	collectionID, err := parseUUIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid collection ID")
		return
	}
	var req contributionRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	amount, err := parseWei(req.Amount)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid amount")
		return
	}

	contribution, err := h.service.ContributeToCollection(r.Context(), auth.Caller, collectionID, amount)
	if err != nil {
		respondWithLedgerError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, map[string]string{
		"contribution_id": contribution.ID.String(),
		"collection_id":   contribution.CollectionID.String(),
		"amount":          contribution.Amount.Dec(),
	})
}

func (h *Handler) handleFinalizeCollection(w http.ResponseWriter, r *http.Request) {
	auth, ok := AuthFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	collectionID, err := parseUUIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid collection ID")
		return
	}

	collection, err := h.service.FinalizeCommunityCollection(r.Context(), auth.Caller, collectionID)
	if err != nil {
		respondWithLedgerError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, toCollectionResponse(collection))
}

type adminPayoutRequest struct {
	Recipient string `json:"recipient"`
	Amount    string `json:"amount"`
}

func (h *Handler) handleAdminCollectionPayout(w http.ResponseWriter, r *http.Request) {
	auth, ok := AuthFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	collectionID, err := parseUUIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid collection ID")
		return
	}
	var req adminPayoutRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	amount, err := parseWei(req.Amount)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid amount")
		return
	}

	collection, err := h.service.AdminPayoutFromCollection(r.Context(), auth, collectionID, domain.Address(req.Recipient), amount)
	if err != nil {
		respondWithLedgerError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, toCollectionResponse(collection))
}
