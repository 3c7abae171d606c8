package handlers

import (
	"errors"
	"net/http"

	"github.com/CustomZone1/customzone/middleware"
	"github.com/CustomZone1/customzone/services"
)

type WalletHandler struct {
	walletService  *services.WalletService
	depositService *services.DepositService
}

func NewWalletHandler(walletService *services.WalletService, depositService *services.DepositService) *WalletHandler {
	return &WalletHandler{
		walletService:  walletService,
		depositService: depositService,
	}
}

func (h *WalletHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return
	}

	balance, err := h.walletService.GetBalance(r.Context(), userID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"balance": balance}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *WalletHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return
	}

	limit := queryInt(r, "limit", "50")
	offset := queryInt(r, "offset", "0")

	txns, err := h.walletService.ListTransactions(r.Context(), userID, limit, offset)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"transactions": txns}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

type claimDepositRequest struct {
	TxnID string `json:"txn_id"`
}

func (h *WalletHandler) ClaimDeposit(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return
	}
	username, err := middleware.GetUsernameFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return
	}

	var input claimDepositRequest
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.TxnID == "" {
		badRequestResponse(w, r, errors.New("txn_id is required"))
		return
	}

	result, err := h.depositService.Claim(r.Context(), userID, username, input.TxnID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"claim": result}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
