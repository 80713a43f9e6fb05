package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/harshpreetweb3/insurance-dao/internal/app"
	"github.com/harshpreetweb3/insurance-dao/internal/app/clock"
)

func newTestServer(t *testing.T, clk clock.Clock) *httptest.Server {
	t.Helper()
	application, err := app.New(app.Stores{}, app.Options{Clock: clk}, nil)
	require.NoError(t, err)
	srv := httptest.NewServer(NewHandler(application))
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var decoded map[string]interface{}
	dec := json.NewDecoder(resp.Body)
	if err := dec.Decode(&decoded); err != nil {
		return resp, nil
	}
	return resp, decoded
}

func doJSONList(t *testing.T, url string) (*http.Response, []interface{}) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	var decoded []interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

func createOrg(t *testing.T, srv *httptest.Server, owner string) string {
	t.Helper()
	resp, body := doJSON(t, http.MethodPost, srv.URL+"/organizations", map[string]interface{}{
		"owner":          owner,
		"name":           "Mutual Cover",
		"description":    "community cover pool",
		"purpose":        "insurance",
		"token_name":     "Cover Share",
		"token_symbol":   "CVR",
		"token_supply":   100.0,
		"token_price":    5.0,
		"buy_back_price": 4.0,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	id, _ := body["id"].(string)
	require.NotEmpty(t, id)
	return id
}

func TestOrganizationLifecycle(t *testing.T) {
	srv := newTestServer(t, nil)
	orgID := createOrg(t, srv, "alice")

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/organizations/"+orgID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "Mutual Cover", body["name"])

	resp, _ = doJSONList(t, srv.URL+"/organizations")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodGet, srv.URL+"/organizations/nope", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestShareTradingOverHTTP(t *testing.T) {
	srv := newTestServer(t, nil)
	orgID := createOrg(t, srv, "alice")

	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/members/bob/deposits", map[string]interface{}{
		"amount": 100.0,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/organizations/"+orgID+"/shares/buy", map[string]interface{}{
		"buyer":   "bob",
		"payment": 60.0,
		"amount":  10.0,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.InDelta(t, 10.0, body["change"], 1e-9)

	// Paying below price is rejected without touching balances.
	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/organizations/"+orgID+"/shares/buy", map[string]interface{}{
		"buyer":   "bob",
		"payment": 1.0,
		"amount":  10.0,
	})
	require.Equal(t, http.StatusPaymentRequired, resp.StatusCode)

	resp, body = doJSON(t, http.MethodPost, srv.URL+"/organizations/"+orgID+"/shares/redeem", map[string]interface{}{
		"member": "bob",
		"amount": 2.0,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.InDelta(t, 8.0, body["refund"], 1e-9)

	resp, body = doJSON(t, http.MethodGet, srv.URL+"/organizations/"+orgID+"/treasury", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.InDelta(t, 42.0, body["balance"], 1e-9)
}

func TestProposalVotingOverHTTP(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clk := clock.NewFake(start)
	srv := newTestServer(t, clk)
	orgID := createOrg(t, srv, "alice")

	doJSON(t, http.MethodPost, srv.URL+"/members/bob/deposits", map[string]interface{}{"amount": 100.0})
	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/organizations/"+orgID+"/shares/buy", map[string]interface{}{
		"buyer": "bob", "payment": 50.0, "amount": 10.0,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/organizations/"+orgID+"/proposals", map[string]interface{}{
		"proposer":       "bob",
		"kind":           "mint_shares",
		"title":          "expand supply",
		"mint_amount":    50.0,
		"minimum_quorum": 1,
		"start_time":     start.Format(time.RFC3339),
		"end_time":       start.Add(24 * time.Hour).Format(time.RFC3339),
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	proposalID := int64(body["id"].(float64))
	propURL := fmt.Sprintf("%s/organizations/%s/proposals/%d", srv.URL, orgID, proposalID)

	resp, _ = doJSON(t, http.MethodPost, propURL+"/votes", map[string]interface{}{
		"voter": "bob", "in_favor": true,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodPost, propURL+"/votes", map[string]interface{}{
		"voter": "bob", "in_favor": true,
	})
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	// Voting has not closed yet.
	resp, _ = doJSON(t, http.MethodPost, propURL+"/execute", map[string]interface{}{"executor": "bob"})
	require.Equal(t, http.StatusTooEarly, resp.StatusCode)

	clk.Advance(25 * time.Hour)
	resp, body = doJSON(t, http.MethodPost, propURL+"/execute", map[string]interface{}{"executor": "bob"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "executed", body["status"])
}

func TestAnnuityLifecycleOverHTTP(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clk := clock.NewFake(start)
	srv := newTestServer(t, clk)

	doJSON(t, http.MethodPost, srv.URL+"/members/issuer/deposits", map[string]interface{}{"amount": 1000.0})
	doJSON(t, http.MethodPost, srv.URL+"/members/buyer/deposits", map[string]interface{}{"amount": 2000.0})

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/annuities", map[string]interface{}{
		"issuer":        "issuer",
		"contract_type": "ANN",
		"currency":      "xrd",
		"principal":     1000.0,
		"rate_percent":  5,
		"maturity_date": start.AddDate(5, 0, 0).Format(time.RFC3339),
		"unit_price":    1050.0,
		"supply":        1.0,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	annuityID, _ := body["id"].(string)
	require.NotEmpty(t, annuityID)
	annURL := srv.URL + "/annuities/" + annuityID

	resp, _ = doJSON(t, http.MethodPost, annURL+"/purchase", map[string]interface{}{
		"buyer": "buyer", "payment": 1050.0,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Claiming before a year has accrued is a premature claim.
	resp, body = doJSON(t, http.MethodPost, annURL+"/claims", map[string]interface{}{"claimant": "buyer"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "premature_claim", body["outcome"])

	clk.Advance(clock.SecondsPerYear * time.Second)
	resp, body = doJSON(t, http.MethodPost, annURL+"/claims", map[string]interface{}{"claimant": "buyer"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "paid", body["outcome"])
	require.InDelta(t, 250.0, body["amount"].(float64)/1e8, 1e-9)

	resp, _ = doJSON(t, http.MethodGet, annURL+"/next-payout", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodPost, annURL+"/repayments", map[string]interface{}{
		"issuer": "issuer", "amount": 300.0,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doJSONList(t, srv.URL+"/issuers/issuer/annuities")
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestUnknownFieldsRejected(t *testing.T) {
	srv := newTestServer(t, nil)
	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/organizations", map[string]interface{}{
		"owner":       "alice",
		"name":        "x",
		"mystery":     true,
		"token_price": 1.0,
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
