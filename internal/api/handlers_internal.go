/**
 * @description
 * Internal server-to-server handlers, protected by the internal API key:
 * crediting wallets from the settlement rail and manually triggering the
 * background jobs the cron scheduler normally runs.
 */

package api

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Pasifika-Web3-Tech-Hub/pasifika-evm-be-sub000/internal/domain"
)

type creditWalletRequest struct {
	Amount string `json:"amount"`
}

func (h *Handler) handleCreditWallet(w http.ResponseWriter, r *http.Request) {
	addr := domain.Address(chi.URLParam(r, "address"))
	var req creditWalletRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	amount, err := parseWei(req.Amount)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid amount")
		return
	}

	if err := h.service.CreditWallet(r.Context(), addr, amount); err != nil {
		log.Printf("Error crediting wallet %s: %v", addr, err)
		respondWithLedgerError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, balanceResponse{
		Address: string(addr),
		Wallet:  h.service.WalletBalance(addr).Dec(),
		Pending: h.service.PendingBalance(addr).Dec(),
	})
}

func (h *Handler) handleRunDueSchedules(w http.ResponseWriter, r *http.Request) {
	executed := h.service.RunDueScheduledTransfers(r.Context())
	respondWithJSON(w, http.StatusOK, map[string]int{"executed": executed})
}

func (h *Handler) handleExpireCollections(w http.ResponseWriter, r *http.Request) {
	expired := h.service.ExpireDueCollections(r.Context())
	respondWithJSON(w, http.StatusOK, map[string]int{"expired": expired})
}
