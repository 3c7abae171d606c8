package handlers

import (
	"net/http"

	"github.com/CustomZone1/customzone/models"
	"github.com/CustomZone1/customzone/services"
)

type AdminHandler struct {
	depositService    *services.DepositService
	withdrawalService *services.WithdrawalService
}

func NewAdminHandler(depositService *services.DepositService, withdrawalService *services.WithdrawalService) *AdminHandler {
	return &AdminHandler{
		depositService:    depositService,
		withdrawalService: withdrawalService,
	}
}

type registerDepositRequest struct {
	TxnID  string `json:"txn_id"`
	Amount int64  `json:"amount"`
	Note   string `json:"note"`
}

func (h *AdminHandler) RegisterDeposit(w http.ResponseWriter, r *http.Request) {
	var input registerDepositRequest
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	deposit, err := h.depositService.Register(r.Context(), input.TxnID, input.Amount, input.Note)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"deposit": deposit}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *AdminHandler) ListDeposits(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", "50")
	offset := queryInt(r, "offset", "0")

	deposits, err := h.depositService.List(r.Context(), limit, offset)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"deposits": deposits}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *AdminHandler) ListWithdrawals(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", "50")
	offset := queryInt(r, "offset", "0")

	var status *models.WithdrawalStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		s := models.WithdrawalStatus(raw)
		if s != models.WithdrawalPending && s != models.WithdrawalPaid {
			errorResponse(w, r, http.StatusBadRequest, "unknown withdrawal status")
			return
		}
		status = &s
	}

	withdrawals, err := h.withdrawalService.List(r.Context(), status, limit, offset)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"withdrawals": withdrawals}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *AdminHandler) MarkWithdrawalPaid(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	withdrawal, err := h.withdrawalService.MarkPaid(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"withdrawal": withdrawal}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
