package router

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/jiaming2012/options-escrow/src/escrow-api/services"
	"github.com/jiaming2012/options-escrow/src/eventmodels"
)

type updateFeeRateRequest struct {
	FeeRateBps int64 `json:"fee_rate_bps"`
}

type updateFeeCollectorRequest struct {
	FeeCollector eventmodels.AccountID `json:"fee_collector"`
}

type updateFeePolicyRequest struct {
	FeePolicy eventmodels.FeePolicy `json:"fee_policy"`
}

type transferAuthorityRequest struct {
	NewAuthority eventmodels.AccountID `json:"new_authority"`
}

func handleGovernance(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		w.WriteHeader(404)
		return
	}

	if err := setResponse(governanceService.GetConfig(), w); err != nil {
		setErrorResponse("handleGovernance: failed to set response", 500, err, w)
		return
	}
}

func handleFeeRate(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		w.WriteHeader(404)
		return
	}

	caller, err := callerAccount(r)
	if err != nil {
		setErrorResponse("handleFeeRate: missing caller", 400, err, w)
		return
	}

	var req updateFeeRateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		setErrorResponse("handleFeeRate: failed to decode request", 400, err, w)
		return
	}

	config, err := governanceService.UpdateFeeRate(r.Context(), caller, req.FeeRateBps)
	if err != nil {
		setErrorResponse("handleFeeRate: failed to update fee rate", statusCodeFromError(err), err, w)
		return
	}

	if err := setResponse(config, w); err != nil {
		setErrorResponse("handleFeeRate: failed to set response", 500, err, w)
		return
	}
}

func handleFeeCollector(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		w.WriteHeader(404)
		return
	}

	caller, err := callerAccount(r)
	if err != nil {
		setErrorResponse("handleFeeCollector: missing caller", 400, err, w)
		return
	}

	var req updateFeeCollectorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		setErrorResponse("handleFeeCollector: failed to decode request", 400, err, w)
		return
	}

	config, err := governanceService.UpdateFeeCollector(r.Context(), caller, req.FeeCollector)
	if err != nil {
		setErrorResponse("handleFeeCollector: failed to update fee collector", statusCodeFromError(err), err, w)
		return
	}

	if err := setResponse(config, w); err != nil {
		setErrorResponse("handleFeeCollector: failed to set response", 500, err, w)
		return
	}
}

func handleFeePolicy(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		w.WriteHeader(404)
		return
	}

	caller, err := callerAccount(r)
	if err != nil {
		setErrorResponse("handleFeePolicy: missing caller", 400, err, w)
		return
	}

	var req updateFeePolicyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		setErrorResponse("handleFeePolicy: failed to decode request", 400, err, w)
		return
	}

	config, err := governanceService.UpdateFeePolicy(r.Context(), caller, req.FeePolicy)
	if err != nil {
		setErrorResponse("handleFeePolicy: failed to update fee policy", statusCodeFromError(err), err, w)
		return
	}

	if err := setResponse(config, w); err != nil {
		setErrorResponse("handleFeePolicy: failed to set response", 500, err, w)
		return
	}
}

func handleTransferAuthority(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		w.WriteHeader(404)
		return
	}

	caller, err := callerAccount(r)
	if err != nil {
		setErrorResponse("handleTransferAuthority: missing caller", 400, err, w)
		return
	}

	var req transferAuthorityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		setErrorResponse("handleTransferAuthority: failed to decode request", 400, err, w)
		return
	}

	config, err := governanceService.TransferAuthority(r.Context(), caller, req.NewAuthority)
	if err != nil {
		setErrorResponse("handleTransferAuthority: failed to transfer authority", statusCodeFromError(err), err, w)
		return
	}

	if err := setResponse(config, w); err != nil {
		setErrorResponse("handleTransferAuthority: failed to set response", 500, err, w)
		return
	}
}

func SetupGovernanceHandler(router *mux.Router, governance *services.GovernanceService) {
	governanceService = governance

	router.HandleFunc("", handleGovernance)
	router.HandleFunc("/fee-rate", handleFeeRate)
	router.HandleFunc("/fee-collector", handleFeeCollector)
	router.HandleFunc("/fee-policy", handleFeePolicy)
	router.HandleFunc("/transfer", handleTransferAuthority)
}
