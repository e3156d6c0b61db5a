/**
 * @description
 * HTTP handlers for the ledger service: shared response helpers, error-to-status
 * mapping, and the balance, withdrawal and fee endpoints. Amounts cross the wire
 * as decimal wei strings.
 *
 * @dependencies
 * - encoding/json, errors, log, net/http, time: Standard Go libraries.
 * - github.com/go-chi/chi/v5: URL parameter extraction.
 * - github.com/google/uuid, github.com/holiman/uint256: IDs and 256-bit amounts.
 */

package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/holiman/uint256"

	"github.com/Pasifika-Web3-Tech-Hub/pasifika-evm-be-sub000/internal/app"
	"github.com/Pasifika-Web3-Tech-Hub/pasifika-evm-be-sub000/internal/domain"
	"github.com/Pasifika-Web3-Tech-Hub/pasifika-evm-be-sub000/internal/ledger/feeengine"
	"github.com/Pasifika-Web3-Tech-Hub/pasifika-evm-be-sub000/internal/ledger/staking"
	"github.com/Pasifika-Web3-Tech-Hub/pasifika-evm-be-sub000/internal/ledger/transferengine"
	"github.com/Pasifika-Web3-Tech-Hub/pasifika-evm-be-sub000/internal/ledger/treasury"
	"github.com/Pasifika-Web3-Tech-Hub/pasifika-evm-be-sub000/internal/ledger/vault"
)

// Handler holds the application service that handlers will interact with.
type Handler struct {
	service *app.Service
	limiter *app.RedisRateLimiter

	transferLimit   int
	withdrawalLimit int
	rateLimitWindow time.Duration
}

// NewHandler creates a new Handler with the given service. The limiter may be
// nil, in which case request throttling is disabled.
func NewHandler(service *app.Service, limiter *app.RedisRateLimiter) *Handler {
	return &Handler{
		service:         service,
		limiter:         limiter,
		transferLimit:   60,
		withdrawalLimit: 5,
		rateLimitWindow: time.Minute,
	}
}

// consumeLimit applies the fixed-window limiter for one scope. It returns false
// after writing the 429 response when the caller is over the limit; an
// unreachable limiter degrades to allowing the request.
func (h *Handler) consumeLimit(w http.ResponseWriter, r *http.Request, scope string, subject domain.Address, limit int) bool {
	if h.limiter == nil {
		return true
	}
	count, retryAfter, err := h.limiter.ConsumeRateLimit(r.Context(), scope, string(subject), limit, h.rateLimitWindow)
	if err != nil {
		log.Printf("level=warn component=api msg=\"rate limiter unavailable\" scope=%s err=%v", scope, err)
		return true
	}
	if count > limit {
		w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
		respondWithError(w, http.StatusTooManyRequests, "rate limit exceeded for "+scope)
		return false
	}
	return true
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

// respondWithLedgerError maps engine sentinel errors to HTTP statuses.
func respondWithLedgerError(w http.ResponseWriter, err error) {
	respondWithError(w, statusForError(err), err.Error())
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, feeengine.ErrProfileNotFound),
		errors.Is(err, feeengine.ErrTransactionUnknown),
		errors.Is(err, treasury.ErrFundNotFound),
		errors.Is(err, transferengine.ErrScheduleNotFound),
		errors.Is(err, transferengine.ErrCollectionNotFound),
		errors.Is(err, staking.ErrStakeNotFound):
		return http.StatusNotFound
	case errors.Is(err, transferengine.ErrNotScheduleSender),
		errors.Is(err, transferengine.ErrNotCollectionOwner),
		errors.Is(err, staking.ErrNotStakeOwner):
		return http.StatusForbidden
	case errors.Is(err, vault.ErrInsufficientBalance),
		errors.Is(err, treasury.ErrInsufficientBalance),
		errors.Is(err, transferengine.ErrEscrowExhausted),
		errors.Is(err, transferengine.ErrPayoutExceedsPool):
		return http.StatusPaymentRequired
	case errors.Is(err, feeengine.ErrProfileInactive),
		errors.Is(err, treasury.ErrFundInactive),
		errors.Is(err, treasury.ErrFundExists),
		errors.Is(err, transferengine.ErrScheduleInactive),
		errors.Is(err, transferengine.ErrScheduleNotDue),
		errors.Is(err, transferengine.ErrCollectionClosed),
		errors.Is(err, transferengine.ErrCollectionExpired),
		errors.Is(err, staking.ErrStakeInactive),
		errors.Is(err, staking.ErrStakeLocked),
		errors.Is(err, staking.ErrRewardsPoolExhausted):
		return http.StatusConflict
	case errors.Is(err, transferengine.ErrDailyLimitExceeded):
		return http.StatusTooManyRequests
	case errors.Is(err, vault.ErrNothingToWithdraw):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrAmountOverflow):
		return http.StatusBadRequest
	}
	return http.StatusBadRequest
}

// decodeJSON parses the request body into dst, rejecting unknown fields.
func decodeJSON(r *http.Request, dst interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}

// parseWei parses a decimal wei string into a 256-bit amount.
func parseWei(raw string) (*uint256.Int, error) {
	return domain.ParseAmount(raw)
}

func parseUUIDParam(r *http.Request, name string) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, name))
}

// ---- Balances and withdrawals ----

type balanceResponse struct {
	Address string `json:"address"`
	Wallet  string `json:"wallet"`
	Pending string `json:"pending"`
}

func (h *Handler) handleGetBalance(w http.ResponseWriter, r *http.Request) {
	auth, ok := AuthFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	respondWithJSON(w, http.StatusOK, balanceResponse{
		Address: string(auth.Caller),
		Wallet:  h.service.WalletBalance(auth.Caller).Dec(),
		Pending: h.service.PendingBalance(auth.Caller).Dec(),
	})
}

type withdrawalResponse struct {
	Address string `json:"address"`
	Amount  string `json:"amount"`
}

func (h *Handler) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	auth, ok := AuthFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	if !h.consumeLimit(w, r, "withdrawal", auth.Caller, h.withdrawalLimit) {
		return
	}

	amount, err := h.service.WithdrawPending(r.Context(), auth.Caller)
	if err != nil {
		log.Printf("Error withdrawing pending balance for %s: %v", auth.Caller, err)
		respondWithLedgerError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, withdrawalResponse{
		Address: string(auth.Caller),
		Amount:  amount.Dec(),
	})
}

// ---- Fee engine ----

type feeQuoteRequest struct {
	Amount               string  `json:"amount"`
	FeeType              string  `json:"fee_type"`
	Payer                string  `json:"payer,omitempty"`
	CommunityOverrideBps *uint16 `json:"community_override_bps,omitempty"`
}

type feeBreakdownResponse struct {
	Fee           string `json:"fee"`
	Royalty       string `json:"royalty"`
	CommunityFund string `json:"community_fund"`
	PlatformFee   string `json:"platform_fee"`
	DiscountBps   uint16 `json:"discount_bps"`
}

func (h *Handler) handleQuoteFee(w http.ResponseWriter, r *http.Request) {
	auth, ok := AuthFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req feeQuoteRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	amount, err := parseWei(req.Amount)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid amount")
		return
	}
	payer := auth.Caller
	if req.Payer != "" {
		payer = domain.Address(req.Payer)
	}

	breakdown, err := h.service.CalculateFee(amount, domain.FeeType(req.FeeType), payer, req.CommunityOverrideBps)
	if err != nil {
		respondWithLedgerError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, feeBreakdownResponse{
		Fee:           breakdown.Fee.Dec(),
		Royalty:       breakdown.Royalty.Dec(),
		CommunityFund: breakdown.CommunityFund.Dec(),
		PlatformFee:   breakdown.PlatformFee.Dec(),
		DiscountBps:   breakdown.DiscountBps,
	})
}

type processFeeRequest struct {
	Amount               string  `json:"amount"`
	FeeType              string  `json:"fee_type"`
	Payer                string  `json:"payer"`
	Creator              string  `json:"creator,omitempty"`
	CommunityOverrideBps *uint16 `json:"community_override_bps,omitempty"`
}

type feeTransactionResponse struct {
	ID            string    `json:"id"`
	FeeType       string    `json:"fee_type"`
	Payer         string    `json:"payer"`
	Creator       string    `json:"creator,omitempty"`
	Amount        string    `json:"amount"`
	Fee           string    `json:"fee"`
	Royalty       string    `json:"royalty"`
	CommunityFund string    `json:"community_fund"`
	PlatformFee   string    `json:"platform_fee"`
	CreatedAt     time.Time `json:"created_at"`
}

func toFeeTransactionResponse(record domain.FeeTransactionRecord) feeTransactionResponse {
	return feeTransactionResponse{
		ID:            record.ID.String(),
		FeeType:       string(record.FeeType),
		Payer:         string(record.Payer),
		Creator:       string(record.Creator),
		Amount:        record.Amount.Dec(),
		Fee:           record.Fee.Dec(),
		Royalty:       record.Royalty.Dec(),
		CommunityFund: record.CommunityFund.Dec(),
		PlatformFee:   record.PlatformFee.Dec(),
		CreatedAt:     record.CreatedAt,
	}
}

func (h *Handler) handleProcessFee(w http.ResponseWriter, r *http.Request) {
	auth, ok := AuthFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req processFeeRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	amount, err := parseWei(req.Amount)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid amount")
		return
	}

	record, err := h.service.ProcessFee(r.Context(), auth, amount, domain.FeeType(req.FeeType), domain.Address(req.Payer), domain.Address(req.Creator), req.CommunityOverrideBps)
	if err != nil {
		log.Printf("Error processing fee for payer %s: %v", req.Payer, err)
		respondWithLedgerError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, toFeeTransactionResponse(*record))
}

func (h *Handler) handleGetFeeTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid transaction ID")
		return
	}
	record, err := h.service.FeeTransaction(id)
	if err != nil {
		respondWithLedgerError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, toFeeTransactionResponse(record))
}

type cumulativeSpendResponse struct {
	Payer           string `json:"payer"`
	CumulativeSpend string `json:"cumulative_spend"`
	DiscountBps     uint16 `json:"discount_bps"`
}

// handleCumulativeSpend reports the caller's lifetime fee-bearing volume and
// the volume discount it earns. Fee admins may query any payer.
func (h *Handler) handleCumulativeSpend(w http.ResponseWriter, r *http.Request) {
	auth, ok := AuthFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	payer := auth.Caller
	if p := r.URL.Query().Get("payer"); p != "" && domain.Address(strings.ToLower(p)) != auth.Caller {
		if err := auth.Require(domain.CapFeeAdmin); err != nil {
			respondWithLedgerError(w, err)
			return
		}
		payer = domain.Address(strings.ToLower(p))
	}

	spend := h.service.CumulativeSpend(payer)
	respondWithJSON(w, http.StatusOK, cumulativeSpendResponse{
		Payer:           string(payer),
		CumulativeSpend: spend.Dec(),
		DiscountBps:     h.service.VolumeDiscountBps(payer),
	})
}

type feeProfileRequest struct {
	FeeType          string `json:"fee_type"`
	BaseFeeBps       uint16 `json:"base_fee_bps"`
	RoyaltyShareBps  uint16 `json:"royalty_share_bps"`
	CommunityFundBps uint16 `json:"community_fund_bps"`
	PlatformShareBps uint16 `json:"platform_share_bps"`
}

func (h *Handler) handleSetFeeProfile(w http.ResponseWriter, r *http.Request) {
	auth, ok := AuthFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req feeProfileRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	profile := domain.FeeProfile{
		Type:         domain.FeeType(req.FeeType),
		BaseFeeBps:   req.BaseFeeBps,
		RoyaltyBps:   req.RoyaltyShareBps,
		CommunityBps: req.CommunityFundBps,
		PlatformBps:  req.PlatformShareBps,
		Active:       true,
	}
	if err := h.service.SetFeeProfile(r.Context(), auth, profile); err != nil {
		respondWithLedgerError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (h *Handler) handleDeactivateFeeProfile(w http.ResponseWriter, r *http.Request) {
	auth, ok := AuthFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	feeType := domain.FeeType(chi.URLParam(r, "feeType"))
	if err := h.service.DeactivateFeeProfile(r.Context(), auth, feeType); err != nil {
		respondWithLedgerError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "deactivated"})
}

type feeProfileResponse struct {
	FeeType          string `json:"fee_type"`
	BaseFeeBps       uint16 `json:"base_fee_bps"`
	RoyaltyShareBps  uint16 `json:"royalty_share_bps"`
	CommunityFundBps uint16 `json:"community_fund_bps"`
	PlatformShareBps uint16 `json:"platform_share_bps"`
	Active           bool   `json:"active"`
}

func (h *Handler) handleListFeeProfiles(w http.ResponseWriter, r *http.Request) {
	profiles := h.service.FeeProfiles()
	out := make([]feeProfileResponse, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, feeProfileResponse{
			FeeType:          string(p.Type),
			BaseFeeBps:       p.BaseFeeBps,
			RoyaltyShareBps:  p.RoyaltyBps,
			CommunityFundBps: p.CommunityBps,
			PlatformShareBps: p.PlatformBps,
			Active:           p.Active,
		})
	}
	respondWithJSON(w, http.StatusOK, out)
}

type volumeTierRequest struct {
	Threshold   string `json:"threshold"`
	DiscountBps uint16 `json:"discount_bps"`
}

func (h *Handler) handleSetVolumeTier(w http.ResponseWriter, r *http.Request) {
	auth, ok := AuthFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req volumeTierRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	threshold, err := parseWei(req.Threshold)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid threshold")
		return
	}

	if err := h.service.SetVolumeTier(r.Context(), auth, threshold, req.DiscountBps); err != nil {
		respondWithLedgerError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}
