// Package httpapi exposes the application services over REST.
package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/harshpreetweb3/insurance-dao/internal/app"
	"github.com/harshpreetweb3/insurance-dao/internal/app/domain/money"
	"github.com/harshpreetweb3/insurance-dao/internal/app/domain/org"
	"github.com/harshpreetweb3/insurance-dao/internal/app/domain/proposal"
	"github.com/harshpreetweb3/insurance-dao/internal/app/faults"
	annuitysvc "github.com/harshpreetweb3/insurance-dao/internal/app/services/annuity"
	"github.com/harshpreetweb3/insurance-dao/internal/app/services/governance"
	"github.com/harshpreetweb3/insurance-dao/internal/app/services/treasury"
)

// handler bundles HTTP endpoints for the application services.
type handler struct {
	app *app.Application
}

// NewHandler returns a router exposing the core REST API.
func NewHandler(application *app.Application) http.Handler {
	h := &handler{app: application}
	r := mux.NewRouter()

	r.HandleFunc("/organizations", h.createOrganization).Methods(http.MethodPost)
	r.HandleFunc("/organizations", h.listOrganizations).Methods(http.MethodGet)
	r.HandleFunc("/organizations/{org}", h.getOrganization).Methods(http.MethodGet)
	r.HandleFunc("/organizations/{org}/treasury", h.treasuryBalance).Methods(http.MethodGet)
	r.HandleFunc("/organizations/{org}/shares/buy", h.buyShares).Methods(http.MethodPost)
	r.HandleFunc("/organizations/{org}/shares/redeem", h.redeemShares).Methods(http.MethodPost)
	r.HandleFunc("/organizations/{org}/contributions", h.contribute).Methods(http.MethodPost)
	r.HandleFunc("/organizations/{org}/contributions", h.listContributions).Methods(http.MethodGet)
	r.HandleFunc("/organizations/{org}/proposals", h.createProposal).Methods(http.MethodPost)
	r.HandleFunc("/organizations/{org}/proposals", h.listProposals).Methods(http.MethodGet)
	r.HandleFunc("/organizations/{org}/proposals/{id}", h.getProposal).Methods(http.MethodGet)
	r.HandleFunc("/organizations/{org}/proposals/{id}/votes", h.vote).Methods(http.MethodPost)
	r.HandleFunc("/organizations/{org}/proposals/{id}/execute", h.executeProposal).Methods(http.MethodPost)

	r.HandleFunc("/annuities", h.issueAnnuity).Methods(http.MethodPost)
	r.HandleFunc("/annuities", h.listAnnuities).Methods(http.MethodGet)
	r.HandleFunc("/annuities/{annuity}", h.getAnnuity).Methods(http.MethodGet)
	r.HandleFunc("/annuities/{annuity}/next-payout", h.nextPayout).Methods(http.MethodGet)
	r.HandleFunc("/annuities/{annuity}/purchase", h.purchaseAnnuity).Methods(http.MethodPost)
	r.HandleFunc("/annuities/{annuity}/claims", h.claimPayout).Methods(http.MethodPost)
	r.HandleFunc("/annuities/{annuity}/repayments", h.repay).Methods(http.MethodPost)
	r.HandleFunc("/annuities/{annuity}/collateral/release", h.releaseCollateral).Methods(http.MethodPost)
	r.HandleFunc("/annuities/{annuity}/proceeds", h.withdrawProceeds).Methods(http.MethodPost)

	r.HandleFunc("/issuers/{issuer}/annuities", h.issuerAnnuities).Methods(http.MethodGet)
	r.HandleFunc("/members/{member}/deposits", h.deposit).Methods(http.MethodPost)
	r.HandleFunc("/members/{member}/holdings", h.memberHoldings).Methods(http.MethodGet)

	return r
}

func (h *handler) createOrganization(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Owner        string   `json:"owner"`
		Name         string   `json:"name"`
		Description  string   `json:"description"`
		IconURL      string   `json:"icon_url"`
		TokenImage   string   `json:"token_image"`
		Tags         []string `json:"tags"`
		Purpose      string   `json:"purpose"`
		TokenName    string   `json:"token_name"`
		TokenSymbol  string   `json:"token_symbol"`
		TokenSupply  float64  `json:"token_supply"`
		TokenPrice   float64  `json:"token_price"`
		BuyBackPrice float64  `json:"buy_back_price"`
		Policy       struct {
			Mode      string  `json:"mode"`
			Threshold float64 `json:"threshold"`
		} `json:"proposal_creation_policy"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	mode := org.PolicyMode(payload.Policy.Mode)
	if payload.Policy.Mode == "" {
		mode = org.PolicyOpen
	}
	o, err := h.app.Treasury.CreateOrganization(r.Context(), treasury.CreateOrganizationParams{
		Owner:        payload.Owner,
		Name:         payload.Name,
		Description:  payload.Description,
		IconURL:      payload.IconURL,
		TokenImage:   payload.TokenImage,
		Tags:         payload.Tags,
		Purpose:      payload.Purpose,
		TokenName:    payload.TokenName,
		TokenSymbol:  payload.TokenSymbol,
		TokenSupply:  money.FromFloat(payload.TokenSupply),
		TokenPrice:   money.FromFloat(payload.TokenPrice),
		BuyBackPrice: money.FromFloat(payload.BuyBackPrice),
		CreationPolicy: org.CreationPolicy{
			Mode:      mode,
			Threshold: money.FromFloat(payload.Policy.Threshold),
		},
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, o)
}

func (h *handler) listOrganizations(w http.ResponseWriter, r *http.Request) {
	orgs, err := h.app.Treasury.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, orgs)
}

func (h *handler) getOrganization(w http.ResponseWriter, r *http.Request) {
	o, err := h.app.Treasury.Get(r.Context(), mux.Vars(r)["org"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *handler) treasuryBalance(w http.ResponseWriter, r *http.Request) {
	bal, err := h.app.Treasury.TreasuryBalance(r.Context(), mux.Vars(r)["org"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"balance": bal.Float()})
}

func (h *handler) buyShares(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Buyer   string  `json:"buyer"`
		Payment float64 `json:"payment"`
		Amount  float64 `json:"amount"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	change, err := h.app.Treasury.BuyShares(r.Context(), mux.Vars(r)["org"], payload.Buyer,
		money.FromFloat(payload.Payment), money.FromFloat(payload.Amount))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"change": change.Float()})
}

func (h *handler) redeemShares(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Member string  `json:"member"`
		Amount float64 `json:"amount"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	refund, err := h.app.Treasury.RedeemShares(r.Context(), mux.Vars(r)["org"], payload.Member,
		money.FromFloat(payload.Amount))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"refund": refund.Float()})
}

func (h *handler) contribute(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Contributor string  `json:"contributor"`
		Amount      float64 `json:"amount"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	c, err := h.app.Treasury.Contribute(r.Context(), mux.Vars(r)["org"], payload.Contributor,
		money.FromFloat(payload.Amount))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *handler) listContributions(w http.ResponseWriter, r *http.Request) {
	list, err := h.app.Treasury.Contributions(r.Context(), mux.Vars(r)["org"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *handler) createProposal(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Proposer      string    `json:"proposer"`
		Kind          string    `json:"kind"`
		Title         string    `json:"title"`
		Summary       string    `json:"summary"`
		Weighting     string    `json:"voting_type"`
		TargetIssuer  string    `json:"target_issuer"`
		TargetAmount  float64   `json:"target_amount"`
		MintAmount    float64   `json:"mint_amount"`
		MinimumQuorum int64     `json:"minimum_quorum"`
		StartAt       time.Time `json:"start_time"`
		EndAt         time.Time `json:"end_time"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	kind := proposal.Kind(payload.Kind)
	if payload.Kind == "" {
		kind = proposal.KindSpendTreasury
	}
	weighting := proposal.Weighting(payload.Weighting)
	if payload.Weighting == "" {
		weighting = proposal.WeightedByHolding
	}
	pr, err := h.app.Governance.Create(r.Context(), governance.CreateProposalParams{
		OrgID:         mux.Vars(r)["org"],
		Proposer:      payload.Proposer,
		Kind:          kind,
		Title:         payload.Title,
		Summary:       payload.Summary,
		Weighting:     weighting,
		TargetIssuer:  payload.TargetIssuer,
		TargetAmount:  money.FromFloat(payload.TargetAmount),
		MintAmount:    money.FromFloat(payload.MintAmount),
		MinimumQuorum: payload.MinimumQuorum,
		StartAt:       payload.StartAt,
		EndAt:         payload.EndAt,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, pr)
}

func (h *handler) listProposals(w http.ResponseWriter, r *http.Request) {
	list, err := h.app.Governance.List(r.Context(), mux.Vars(r)["org"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func proposalID(r *http.Request) (int64, error) {
	return strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
}

func (h *handler) getProposal(w http.ResponseWriter, r *http.Request) {
	id, err := proposalID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	pr, err := h.app.Governance.Get(r.Context(), mux.Vars(r)["org"], id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pr)
}

func (h *handler) vote(w http.ResponseWriter, r *http.Request) {
	id, err := proposalID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var payload struct {
		Voter   string `json:"voter"`
		InFavor bool   `json:"in_favor"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	pr, err := h.app.Governance.Vote(r.Context(), mux.Vars(r)["org"], id, payload.Voter, payload.InFavor)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pr)
}

func (h *handler) executeProposal(w http.ResponseWriter, r *http.Request) {
	id, err := proposalID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var payload struct {
		Executor string `json:"executor"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	pr, err := h.app.Governance.Execute(r.Context(), mux.Vars(r)["org"], id, payload.Executor)
	if err != nil {
		// Quorum failure still transitions the proposal; report both.
		if errors.Is(err, faults.ErrQuorumNotMet) && pr != nil {
			writeJSON(w, http.StatusConflict, map[string]interface{}{
				"error":    err.Error(),
				"proposal": pr,
			})
			return
		}
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pr)
}

func (h *handler) issueAnnuity(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Issuer             string    `json:"issuer"`
		ContractType       string    `json:"contract_type"`
		ContractRole       string    `json:"contract_role"`
		ContractIdentifier string    `json:"contract_identifier"`
		Currency           string    `json:"currency"`
		Position           string    `json:"position"`
		Principal          float64   `json:"principal"`
		RatePercent        int64     `json:"rate_percent"`
		MaturityDate       time.Time `json:"maturity_date"`
		UnitPrice          float64   `json:"unit_price"`
		Supply             float64   `json:"supply"`
		CollateralAssetID  string    `json:"collateral_asset_id"`
		CollateralAmount   float64   `json:"collateral_amount"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	a, err := h.app.Annuities.Issue(r.Context(), annuitysvc.IssueParams{
		Issuer:             payload.Issuer,
		ContractType:       payload.ContractType,
		ContractRole:       payload.ContractRole,
		ContractIdentifier: payload.ContractIdentifier,
		Currency:           payload.Currency,
		Position:           payload.Position,
		Principal:          money.FromFloat(payload.Principal),
		RatePercent:        payload.RatePercent,
		MaturityDate:       payload.MaturityDate,
		UnitPrice:          money.FromFloat(payload.UnitPrice),
		Supply:             money.FromFloat(payload.Supply),
		CollateralAssetID:  payload.CollateralAssetID,
		CollateralAmount:   money.FromFloat(payload.CollateralAmount),
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (h *handler) listAnnuities(w http.ResponseWriter, r *http.Request) {
	list, err := h.app.Annuities.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *handler) getAnnuity(w http.ResponseWriter, r *http.Request) {
	a, err := h.app.Annuities.Get(r.Context(), mux.Vars(r)["annuity"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *handler) nextPayout(w http.ResponseWriter, r *http.Request) {
	wait, err := h.app.Annuities.TimeUntilNextPayout(r.Context(), mux.Vars(r)["annuity"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"seconds_remaining": int64(wait.Seconds()),
	})
}

func (h *handler) purchaseAnnuity(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Buyer   string  `json:"buyer"`
		Payment float64 `json:"payment"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	a, change, err := h.app.Annuities.Purchase(r.Context(), mux.Vars(r)["annuity"], payload.Buyer,
		money.FromFloat(payload.Payment))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"annuity": a,
		"change":  change.Float(),
	})
}

func (h *handler) claimPayout(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Claimant string `json:"claimant"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	result, err := h.app.Annuities.ClaimPayout(r.Context(), mux.Vars(r)["annuity"], payload.Claimant)
	if err != nil {
		// A premature claim is still a reportable outcome.
		if errors.Is(err, faults.ErrPrematureClaim) && result != nil {
			writeJSON(w, http.StatusOK, result)
			return
		}
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *handler) repay(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Issuer string  `json:"issuer"`
		Amount float64 `json:"amount"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	a, change, err := h.app.Annuities.Repay(r.Context(), mux.Vars(r)["annuity"], payload.Issuer,
		money.FromFloat(payload.Amount))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"annuity": a,
		"change":  change.Float(),
	})
}

func (h *handler) releaseCollateral(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Issuer string `json:"issuer"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	a, err := h.app.Annuities.ReleaseCollateral(r.Context(), mux.Vars(r)["annuity"], payload.Issuer)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *handler) withdrawProceeds(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Issuer string `json:"issuer"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	amount, err := h.app.Annuities.WithdrawProceeds(r.Context(), mux.Vars(r)["annuity"], payload.Issuer)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"amount": amount.Float()})
}

func (h *handler) issuerAnnuities(w http.ResponseWriter, r *http.Request) {
	list, err := h.app.Annuities.ListByIssuer(r.Context(), mux.Vars(r)["issuer"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *handler) deposit(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Amount float64 `json:"amount"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	member := mux.Vars(r)["member"]
	if err := h.app.Treasury.Deposit(r.Context(), member, money.FromFloat(payload.Amount)); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"member": member})
}

func (h *handler) memberHoldings(w http.ResponseWriter, r *http.Request) {
	holdings, err := h.app.Treasury.MemberHoldings(r.Context(), mux.Vars(r)["member"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, holdings)
}

// writeServiceError maps the fault taxonomy onto HTTP status codes.
func writeServiceError(w http.ResponseWriter, err error) {
	status := http.StatusBadRequest
	switch {
	case errors.Is(err, faults.ErrNotFound),
		errors.Is(err, faults.ErrNoSuchProposal),
		errors.Is(err, faults.ErrNoSuchIssuer):
		status = http.StatusNotFound
	case errors.Is(err, faults.ErrUnauthorized):
		status = http.StatusForbidden
	case errors.Is(err, faults.ErrAlreadyVoted),
		errors.Is(err, faults.ErrActiveProposalsExist),
		errors.Is(err, faults.ErrSoldOut),
		errors.Is(err, faults.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, faults.ErrTooEarly),
		errors.Is(err, faults.ErrPrematureClaim):
		status = http.StatusTooEarly
	case errors.Is(err, faults.ErrInsufficientPayment),
		errors.Is(err, faults.ErrInsufficientTreasury),
		errors.Is(err, faults.ErrInsufficientFunds),
		errors.Is(err, faults.ErrQuorumNotMet):
		status = http.StatusPaymentRequired
	case errors.Is(err, faults.ErrWrongAssetType),
		errors.Is(err, faults.ErrInvalidTerm):
		status = http.StatusUnprocessableEntity
	}
	writeError(w, status, err)
}

func decodeJSON(body io.ReadCloser, dst interface{}) error {
	defer body.Close()
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
