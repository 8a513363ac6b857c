package router

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/schema"

	"github.com/jiaming2012/options-escrow/src/escrow-api/models"
	"github.com/jiaming2012/options-escrow/src/escrow-api/services"
	"github.com/jiaming2012/options-escrow/src/eventmodels"
)

var (
	apiService        *services.EscrowApiService
	governanceService *services.GovernanceService
	stream            *EscrowStream
	queryDecoder      = schema.NewDecoder()
)

type errorResponse struct {
	Type string `json:"type"`
	Msg  string `json:"message"`
}

func NewErrorResponse(errType string, message string) *errorResponse {
	return &errorResponse{
		Type: errType,
		Msg:  message,
	}
}

func setResponse(response interface{}, w http.ResponseWriter) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(200)

	if err := json.NewEncoder(w).Encode(response); err != nil {
		return fmt.Errorf("SetResponse: encode: %w", err)
	}

	return nil
}

func setErrorResponse(errType string, statusCode int, err error, w http.ResponseWriter) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	resp := NewErrorResponse(errType, err.Error())
	if encodeErr := json.NewEncoder(w).Encode(resp); encodeErr != nil {
		return encodeErr
	}

	return nil
}

// statusCodeFromError maps domain failures onto HTTP statuses: missing
// escrows 404, capability failures 403, malformed input 400, state and
// idempotency conflicts 409, custody failures 502.
func statusCodeFromError(err error) int {
	switch {
	case errors.Is(err, eventmodels.ErrEscrowNotFound):
		return 404
	case errors.Is(err, eventmodels.ErrUnauthorized):
		return 403
	case errors.Is(err, eventmodels.ErrInvalidParameters),
		errors.Is(err, eventmodels.ErrFeeRateOutOfBounds),
		errors.Is(err, eventmodels.ErrInsufficientCollateral),
		errors.Is(err, eventmodels.ErrArithmeticOverflow):
		return 400
	case errors.Is(err, eventmodels.ErrAlreadySettled),
		errors.Is(err, eventmodels.ErrInvalidState),
		errors.Is(err, eventmodels.ErrStaleGovernanceConfig),
		errors.Is(err, eventmodels.ErrNotExpired),
		errors.Is(err, eventmodels.ErrExpired),
		errors.Is(err, eventmodels.ErrNotITM),
		errors.Is(err, eventmodels.ErrNotAmerican):
		return 409
	case models.IsVaultError(err):
		return 502
	}

	return 500
}

// callerAccount reads the verified caller identity. Signature checks
// happen upstream; the API trusts the X-Account-ID header it is handed.
func callerAccount(r *http.Request) (eventmodels.AccountID, error) {
	caller := eventmodels.AccountID(r.Header.Get("X-Account-ID"))
	if err := caller.Validate(); err != nil {
		return "", fmt.Errorf("missing X-Account-ID header: %w", eventmodels.ErrInvalidParameters)
	}

	return caller, nil
}

func escrowIDFromRequest(r *http.Request) (uuid.UUID, error) {
	vars := mux.Vars(r)

	escrowID, err := uuid.Parse(vars["id"])
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid escrow id %q: %w", vars["id"], eventmodels.ErrInvalidParameters)
	}

	return escrowID, nil
}

type depositCollateralRequest struct {
	Amount int64 `json:"amount"`
}

type settleEscrowRequest struct {
	SpotPrice int64 `json:"spot_price"`
}

func handleEscrows(w http.ResponseWriter, r *http.Request) {
	if r.Method == "GET" {
		listEscrows(w, r)
	} else if r.Method == "POST" {
		createEscrow(w, r)
	} else {
		w.WriteHeader(404)
	}
}

func createEscrow(w http.ResponseWriter, r *http.Request) {
	var req models.CreateEscrowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		setErrorResponse("createEscrow: failed to decode request", 400, err, w)
		return
	}

	caller, err := callerAccount(r)
	if err != nil {
		setErrorResponse("createEscrow: missing caller", 400, err, w)
		return
	}

	if caller != req.Initializer {
		setErrorResponse("createEscrow: caller is not the initializer", 403, eventmodels.ErrUnauthorized, w)
		return
	}

	escrow, err := apiService.CreateEscrow(r.Context(), &req, time.Now().UTC())
	if err != nil {
		setErrorResponse("createEscrow: failed to create escrow", statusCodeFromError(err), err, w)
		return
	}

	if err := setResponse(escrow, w); err != nil {
		setErrorResponse("createEscrow: failed to set response", 500, err, w)
		return
	}
}

func listEscrows(w http.ResponseWriter, r *http.Request) {
	var filter models.EscrowFilter
	if err := queryDecoder.Decode(&filter, r.URL.Query()); err != nil {
		setErrorResponse("listEscrows: failed to decode query", 400, err, w)
		return
	}

	escrows, err := apiService.ListEscrows(&filter)
	if err != nil {
		setErrorResponse("listEscrows: failed to list escrows", statusCodeFromError(err), err, w)
		return
	}

	response := map[string]interface{}{
		"escrows": escrows,
	}

	if err := setResponse(response, w); err != nil {
		setErrorResponse("listEscrows: failed to set response", 500, err, w)
		return
	}
}

func handleEscrow(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		w.WriteHeader(404)
		return
	}

	escrowID, err := escrowIDFromRequest(r)
	if err != nil {
		setErrorResponse("handleEscrow: invalid escrow id", 400, err, w)
		return
	}

	escrow, err := apiService.GetEscrow(escrowID)
	if err != nil {
		setErrorResponse("handleEscrow: failed to fetch escrow", statusCodeFromError(err), err, w)
		return
	}

	if err := setResponse(escrow, w); err != nil {
		setErrorResponse("handleEscrow: failed to set response", 500, err, w)
		return
	}
}

func handleDeposit(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		w.WriteHeader(404)
		return
	}

	escrowID, err := escrowIDFromRequest(r)
	if err != nil {
		setErrorResponse("handleDeposit: invalid escrow id", 400, err, w)
		return
	}

	caller, err := callerAccount(r)
	if err != nil {
		setErrorResponse("handleDeposit: missing caller", 400, err, w)
		return
	}

	var req depositCollateralRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		setErrorResponse("handleDeposit: failed to decode request", 400, err, w)
		return
	}

	receipt, err := apiService.DepositCollateral(r.Context(), escrowID, caller, req.Amount)
	if err != nil {
		setErrorResponse("handleDeposit: failed to deposit collateral", statusCodeFromError(err), err, w)
		return
	}

	if err := setResponse(receipt, w); err != nil {
		setErrorResponse("handleDeposit: failed to set response", 500, err, w)
		return
	}
}

func handleExercise(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		w.WriteHeader(404)
		return
	}

	escrowID, err := escrowIDFromRequest(r)
	if err != nil {
		setErrorResponse("handleExercise: invalid escrow id", 400, err, w)
		return
	}

	caller, err := callerAccount(r)
	if err != nil {
		setErrorResponse("handleExercise: missing caller", 400, err, w)
		return
	}

	var req settleEscrowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		setErrorResponse("handleExercise: failed to decode request", 400, err, w)
		return
	}

	result, err := apiService.ExerciseEarly(r.Context(), escrowID, caller, req.SpotPrice, time.Now().UTC())
	if err != nil {
		setErrorResponse("handleExercise: failed to exercise escrow", statusCodeFromError(err), err, w)
		return
	}

	if err := setResponse(result, w); err != nil {
		setErrorResponse("handleExercise: failed to set response", 500, err, w)
		return
	}
}

func handleSettle(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		w.WriteHeader(404)
		return
	}

	escrowID, err := escrowIDFromRequest(r)
	if err != nil {
		setErrorResponse("handleSettle: invalid escrow id", 400, err, w)
		return
	}

	caller, err := callerAccount(r)
	if err != nil {
		setErrorResponse("handleSettle: missing caller", 400, err, w)
		return
	}

	var req settleEscrowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		setErrorResponse("handleSettle: failed to decode request", 400, err, w)
		return
	}

	result, err := apiService.SettleEscrow(r.Context(), escrowID, caller, req.SpotPrice, time.Now().UTC())
	if err != nil {
		setErrorResponse("handleSettle: failed to settle escrow", statusCodeFromError(err), err, w)
		return
	}

	if err := setResponse(result, w); err != nil {
		setErrorResponse("handleSettle: failed to set response", 500, err, w)
		return
	}
}

func handleCancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		w.WriteHeader(404)
		return
	}

	escrowID, err := escrowIDFromRequest(r)
	if err != nil {
		setErrorResponse("handleCancel: invalid escrow id", 400, err, w)
		return
	}

	caller, err := callerAccount(r)
	if err != nil {
		setErrorResponse("handleCancel: missing caller", 400, err, w)
		return
	}

	escrow, err := apiService.CancelEscrow(r.Context(), escrowID, caller)
	if err != nil {
		setErrorResponse("handleCancel: failed to cancel escrow", statusCodeFromError(err), err, w)
		return
	}

	if err := setResponse(escrow, w); err != nil {
		setErrorResponse("handleCancel: failed to set response", 500, err, w)
		return
	}
}

func handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		w.WriteHeader(404)
		return
	}

	stats, err := apiService.GetSettlementStats()
	if err != nil {
		setErrorResponse("handleStats: failed to compute stats", statusCodeFromError(err), err, w)
		return
	}

	if err := setResponse(stats, w); err != nil {
		setErrorResponse("handleStats: failed to set response", 500, err, w)
		return
	}
}

// SetupHandler registers the escrow API on the router. The stats and
// websocket routes are registered ahead of the id routes so mux never
// shadows them behind {id}.
func SetupHandler(router *mux.Router, api *services.EscrowApiService, governance *services.GovernanceService) {
	apiService = api
	governanceService = governance

	queryDecoder.IgnoreUnknownKeys(true)

	stream = NewEscrowStream()
	stream.Start()

	router.HandleFunc("", handleEscrows)
	router.HandleFunc("/stats", handleStats)
	router.HandleFunc("/ws", stream.handleConnection)
	router.HandleFunc("/{id}", handleEscrow)
	router.HandleFunc("/{id}/deposit", handleDeposit)
	router.HandleFunc("/{id}/exercise", handleExercise)
	router.HandleFunc("/{id}/settle", handleSettle)
	router.HandleFunc("/{id}/cancel", handleCancel)
}
