/**
 * @description
 * HTTP handlers for the staking reward engine: stake lifecycle, reward claims,
 * governance weight, rewards pool funding, and tier administration.
 */

package api

import (
	"log"
	"net/http"
	"time"

	"github.com/Pasifika-Web3-Tech-Hub/pasifika-evm-be-sub000/internal/domain"
)

type createStakeRequest struct {
	Amount          string `json:"amount"`
	DurationSeconds int64  `json:"duration_seconds"`
}

type stakeResponse struct {
	ID            string    `json:"id"`
	Owner         string    `json:"owner"`
	Amount        string    `json:"amount"`
	Tier          string    `json:"tier"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
	LastClaimTime time.Time `json:"last_claim_time"`
	Active        bool      `json:"active"`
}

func toStakeResponse(s domain.Stake) stakeResponse {
	return stakeResponse{
		ID:            s.ID.String(),
		Owner:         string(s.Owner),
		Amount:        s.Amount.Dec(),
		Tier:          string(s.Tier),
		StartTime:     s.StartTime,
		EndTime:       s.EndTime,
		LastClaimTime: s.LastClaimTime,
		Active:        s.Active,
	}
}

func (h *Handler) handleCreateStake(w http.ResponseWriter, r *http.Request) {
	auth, ok := AuthFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req createStakeRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	amount, err := parseWei(req.Amount)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid amount")
		return
	}

	stake, err := h.service.CreateStake(r.Context(), auth.Caller, amount, time.Duration(req.DurationSeconds)*time.Second)
	if err != nil {
		log.Printf("Error creating stake for %s: %v", auth.Caller, err)
		respondWithLedgerError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, toStakeResponse(stake))
}

func (h *Handler) handleListStakes(w http.ResponseWriter, r *http.Request) {
	auth, ok := AuthFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	stakes := h.service.StakesByOwner(auth.Caller)
	out := make([]stakeResponse, 0, len(stakes))
	for _, s := range stakes {
		out = append(out, toStakeResponse(s))
	}
	respondWithJSON(w, http.StatusOK, out)
}

func (h *Handler) handlePendingRewards(w http.ResponseWriter, r *http.Request) {
	stakeID, err := parseUUIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid stake ID")
		return
	}

	rewards, err := h.service.PendingStakingRewards(stakeID)
	if err != nil {
		respondWithLedgerError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"rewards": rewards.Dec()})
}

func (h *Handler) handleClaimRewards(w http.ResponseWriter, r *http.Request) {
	auth, ok := AuthFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	stakeID, err := parseUUIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid stake ID")
		return
	}

	rewards, err := h.service.ClaimStakingRewards(r.Context(), auth.Caller, stakeID)
	if err != nil {
		log.Printf("Error claiming rewards for stake %s: %v", stakeID, err)
		respondWithLedgerError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"rewards": rewards.Dec()})
}

type increaseStakeRequest struct {
	Amount string `json:"amount"`
}

func (h *Handler) handleIncreaseStake(w http.ResponseWriter, r *http.Request) {
	auth, ok := AuthFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	stakeID, err := parseUUIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid stake ID")
		return
	}
	var req increaseStakeRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	amount, err := parseWei(req.Amount)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid amount")
		return
	}

	stake, err := h.service.IncreaseStake(r.Context(), auth.Caller, stakeID, amount)
	if err != nil {
		respondWithLedgerError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, toStakeResponse(stake))
}

type extendStakeRequest struct {
	AdditionalSeconds int64 `json:"additional_seconds"`
}

func (h *Handler) handleExtendStake(w http.ResponseWriter, r *http.Request) {
	auth, ok := AuthFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	stakeID, err := parseUUIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid stake ID")
		return
	}
	var req extendStakeRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	stake, err := h.service.ExtendStake(r.Context(), auth.Caller, stakeID, time.Duration(req.AdditionalSeconds)*time.Second)
	if err != nil {
		respondWithLedgerError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, toStakeResponse(stake))
}

func (h *Handler) handleUnstake(w http.ResponseWriter, r *http.Request) {
	auth, ok := AuthFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	stakeID, err := parseUUIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid stake ID")
		return
	}

	stake, rewards, err := h.service.Unstake(r.Context(), auth.Caller, stakeID)
	if err != nil {
		log.Printf("Error unstaking %s: %v", stakeID, err)
		respondWithLedgerError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"stake":   toStakeResponse(stake),
		"rewards": rewards.Dec(),
	})
}

func (h *Handler) handleGovernanceWeight(w http.ResponseWriter, r *http.Request) {
	auth, ok := AuthFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	weight, err := h.service.GovernanceWeight(auth.Caller)
	if err != nil {
		respondWithLedgerError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"weight": weight.Dec()})
}

type fundRewardsPoolRequest struct {
	Amount string `json:"amount"`
}

func (h *Handler) handleFundRewardsPool(w http.ResponseWriter, r *http.Request) {
	auth, ok := AuthFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req fundRewardsPoolRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	amount, err := parseWei(req.Amount)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid amount")
		return
	}

	if err := h.service.FundRewardsPool(r.Context(), auth, amount); err != nil {
		respondWithLedgerError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{
		"pool": h.service.RewardsPool().Dec(),
	})
}

type tierRequirementRequest struct {
	Tier                string `json:"tier"`
	MinAmount           string `json:"min_amount"`
	MinDurationSeconds  int64  `json:"min_duration_seconds"`
	RewardMultiplierBps uint16 `json:"reward_multiplier_bps"`
	GovWeightBps        uint16 `json:"gov_weight_bps"`
	Enabled             bool   `json:"enabled"`
}

func (h *Handler) handleSetTierRequirement(w http.ResponseWriter, r *http.Request) {
	auth, ok := AuthFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req tierRequirementRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	minAmount, err := parseWei(req.MinAmount)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid minimum amount")
		return
	}

	requirement := domain.TierRequirement{
		Tier:                domain.StakingTier(req.Tier),
		MinAmount:           minAmount,
		MinDuration:         time.Duration(req.MinDurationSeconds) * time.Second,
		RewardMultiplierBps: req.RewardMultiplierBps,
		GovWeightBps:        req.GovWeightBps,
		Enabled:             req.Enabled,
	}
	if err := h.service.SetTierRequirement(r.Context(), auth, requirement); err != nil {
		respondWithLedgerError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}
