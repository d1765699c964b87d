package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"server/internal/adapter/memrepo"
	"server/internal/escrow"
	"server/internal/http/handlers"
	"server/internal/infra"
	"server/internal/middleware"
	"server/internal/notify"
)

const (
	testSecret     = "router-test-secret"
	testSweepToken = "router-test-sweep"
	testAdminID    = "admin-1"
)

type api struct {
	t      *testing.T
	srv    *httptest.Server
	store  *memrepo.Store
	client *http.Client
}

func newAPI(t *testing.T) *api {
	t.Helper()
	store := memrepo.NewStore()
	logger := zerolog.Nop()
	formatter := notify.NewFormatter("en", "USD")

	aggregator := escrow.NewAggregator(store.Campaigns, store.Milestones, store.Donations)
	lifecycle := escrow.NewLifecycle(store.Campaigns, store.Milestones, aggregator, store.Dispatcher, formatter, logger)
	reviewer := escrow.NewReviewer(store.Campaigns, store.Milestones, lifecycle, store.Dispatcher, formatter, logger, testAdminID)
	sweeper := escrow.NewSweeper(store.Campaigns, store.Milestones, store.Organizations, store.Dispatcher, formatter, logger)

	app := &handlers.App{
		Logger:        logger,
		Service:       "escrow-api",
		Campaigns:     store.Campaigns,
		Milestones:    store.Milestones,
		Donations:     store.Donations,
		Organizations: store.Organizations,
		Aggregator:    aggregator,
		Lifecycle:     lifecycle,
		Reviewer:      reviewer,
		Sweeper:       sweeper,
	}
	cfg := &infra.Config{
		JWTSecret:       testSecret,
		AdminUserID:     testAdminID,
		SweepToken:      testSweepToken,
		RateLimitPerMin: 1000,
	}

	srv := httptest.NewServer(NewRouter(app, cfg, logger))
	t.Cleanup(srv.Close)
	return &api{t: t, srv: srv, store: store, client: srv.Client()}
}

// do issues a JSON request. token is a raw bearer token or empty.
func (a *api) do(method, path, token, body string) (*http.Response, map[string]any) {
	a.t.Helper()
	req, err := http.NewRequest(method, a.srv.URL+path, strings.NewReader(body))
	if err != nil {
		a.t.Fatalf("build request: %v", err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := a.client.Do(req)
	if err != nil {
		a.t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	var payload map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&payload)
	return resp, payload
}

func (a *api) token(subject, role string) string {
	a.t.Helper()
	token, err := middleware.SignToken(testSecret, subject, role)
	if err != nil {
		a.t.Fatalf("sign token: %v", err)
	}
	return token
}

func TestCampaignRoutesRequireOrganizationRole(t *testing.T) {
	a := newAPI(t)

	resp, _ := a.do(http.MethodPost, "/v1/campaigns", "", `{"title":"Clean Water","goal_amount":30000}`)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("anonymous create: status = %d, want 401", resp.StatusCode)
	}

	resp, _ = a.do(http.MethodPost, "/v1/campaigns", a.token("donor-1", middleware.RoleDonor), `{"title":"Clean Water","goal_amount":30000}`)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("donor create: status = %d, want 401", resp.StatusCode)
	}

	resp, body := a.do(http.MethodPost, "/v1/campaigns", a.token("org-1", middleware.RoleOrganization), `{"title":"Clean Water","goal_amount":30000}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("org create: status = %d, want 201 (%v)", resp.StatusCode, body)
	}
	if body["id"] == "" {
		t.Error("create response has no id")
	}
}

func TestDonationFlowThroughRouter(t *testing.T) {
	a := newAPI(t)
	orgToken := a.token("org-1", middleware.RoleOrganization)

	_, created := a.do(http.MethodPost, "/v1/campaigns", orgToken, `{"title":"Clean Water","goal_amount":10000}`)
	campaignID := created["id"].(string)

	resp, _ := a.do(http.MethodPost, "/v1/campaigns/"+campaignID+"/publish", orgToken,
		`{"milestones":[{"title":"Stage 1","target_amount":10000,"funds_percent":100}]}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("publish: status = %d", resp.StatusCode)
	}

	resp, donation := a.do(http.MethodPost, "/v1/donations", a.token("donor-1", middleware.RoleDonor),
		`{"campaign_id":"`+campaignID+`","milestone_index":0,"amount":10000}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("donate: status = %d", resp.StatusCode)
	}
	donationID := donation["id"].(string)

	// Capture callback needs the internal token.
	resp, _ = a.do(http.MethodPost, "/v1/donations/"+donationID+"/complete", "", `{"tx_ref":"pay-1"}`)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("unauthenticated complete: status = %d, want 401", resp.StatusCode)
	}
	resp, _ = a.do(http.MethodPost, "/v1/donations/"+donationID+"/complete", testSweepToken, `{"tx_ref":"pay-1"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("complete: status = %d", resp.StatusCode)
	}

	// Replaying the capture callback is a state conflict, not a success.
	resp, body := a.do(http.MethodPost, "/v1/donations/"+donationID+"/complete", testSweepToken, `{"tx_ref":"pay-1"}`)
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("double complete: status = %d, want 409 (%v)", resp.StatusCode, body)
	}

	// The funded milestone now awaits proof, visible without any token.
	resp, progress := a.do(http.MethodGet, "/v1/campaigns/"+campaignID+"/progress", "", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("progress: status = %d", resp.StatusCode)
	}
	milestones := progress["milestones"].([]any)
	row := milestones[0].(map[string]any)
	if row["status"] != "pending_proof" {
		t.Errorf("milestone status = %v, want pending_proof", row["status"])
	}
	if row["display_status"] != "completed" {
		t.Errorf("display status = %v, want completed", row["display_status"])
	}
}

func TestDonationFailCallbackThroughRouter(t *testing.T) {
	a := newAPI(t)
	orgToken := a.token("org-1", middleware.RoleOrganization)

	_, created := a.do(http.MethodPost, "/v1/campaigns", orgToken, `{"title":"Clean Water","goal_amount":10000}`)
	campaignID := created["id"].(string)
	a.do(http.MethodPost, "/v1/campaigns/"+campaignID+"/publish", orgToken,
		`{"milestones":[{"title":"Stage 1","target_amount":10000,"funds_percent":100}]}`)

	_, donation := a.do(http.MethodPost, "/v1/donations", "",
		`{"campaign_id":"`+campaignID+`","milestone_index":0,"amount":10000}`)
	donationID := donation["id"].(string)

	// The failure callback needs the internal token too.
	resp, _ := a.do(http.MethodPost, "/v1/donations/"+donationID+"/fail", "", "")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("unauthenticated fail: status = %d, want 401", resp.StatusCode)
	}

	resp, body := a.do(http.MethodPost, "/v1/donations/"+donationID+"/fail", testSweepToken, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("fail: status = %d (%v)", resp.StatusCode, body)
	}
	if body["status"] != "failed" {
		t.Errorf("status = %v, want failed", body["status"])
	}

	// The failed donation is finished: neither callback can move it again.
	resp, _ = a.do(http.MethodPost, "/v1/donations/"+donationID+"/fail", testSweepToken, "")
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("double fail: status = %d, want 409", resp.StatusCode)
	}
	resp, _ = a.do(http.MethodPost, "/v1/donations/"+donationID+"/complete", testSweepToken, `{"tx_ref":"pay-1"}`)
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("complete after fail: status = %d, want 409", resp.StatusCode)
	}

	// Nothing reached the ledger, so the milestone stays active.
	_, progress := a.do(http.MethodGet, "/v1/campaigns/"+campaignID+"/progress", "", "")
	row := progress["milestones"].([]any)[0].(map[string]any)
	if row["status"] != "active" {
		t.Errorf("milestone status = %v, want active", row["status"])
	}
}

func TestDecisionRouteIsPinnedToDesignatedAdmin(t *testing.T) {
	a := newAPI(t)
	orgToken := a.token("org-1", middleware.RoleOrganization)

	_, created := a.do(http.MethodPost, "/v1/campaigns", orgToken, `{"title":"Clean Water","goal_amount":10000}`)
	campaignID := created["id"].(string)
	a.do(http.MethodPost, "/v1/campaigns/"+campaignID+"/publish", orgToken,
		`{"milestones":[{"title":"Stage 1","target_amount":10000,"funds_percent":100}]}`)

	_, donation := a.do(http.MethodPost, "/v1/donations", "", `{"campaign_id":"`+campaignID+`","milestone_index":0,"amount":10000}`)
	a.do(http.MethodPost, "/v1/donations/"+donation["id"].(string)+"/complete", testSweepToken, `{"tx_ref":"pay-1"}`)

	_, progress := a.do(http.MethodGet, "/v1/campaigns/"+campaignID+"/progress", "", "")
	milestoneID := progress["milestones"].([]any)[0].(map[string]any)["id"].(string)

	resp, _ := a.do(http.MethodPost, "/v1/milestones/"+milestoneID+"/proof", orgToken, `{"description":"drilled the well"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("proof: status = %d", resp.StatusCode)
	}

	// A second admin-role principal is not the designated reviewer.
	resp, _ = a.do(http.MethodPost, "/v1/milestones/"+milestoneID+"/decision",
		a.token("admin-2", middleware.RoleAdmin), `{"decision":"approve"}`)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("impostor admin: status = %d, want 401", resp.StatusCode)
	}

	resp, _ = a.do(http.MethodPost, "/v1/milestones/"+milestoneID+"/decision",
		a.token(testAdminID, middleware.RoleAdmin), `{"decision":"reject"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("reject without remarks: status = %d, want 400", resp.StatusCode)
	}

	resp, _ = a.do(http.MethodPost, "/v1/milestones/"+milestoneID+"/decision",
		a.token(testAdminID, middleware.RoleAdmin), `{"decision":"approve"}`)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("approve: status = %d, want 200", resp.StatusCode)
	}
}

func TestProofRouteRejectsForeignOrganization(t *testing.T) {
	a := newAPI(t)
	orgToken := a.token("org-1", middleware.RoleOrganization)

	_, created := a.do(http.MethodPost, "/v1/campaigns", orgToken, `{"title":"Clean Water","goal_amount":10000}`)
	campaignID := created["id"].(string)
	a.do(http.MethodPost, "/v1/campaigns/"+campaignID+"/publish", orgToken,
		`{"milestones":[{"title":"Stage 1","target_amount":10000,"funds_percent":100}]}`)

	_, donation := a.do(http.MethodPost, "/v1/donations", "", `{"campaign_id":"`+campaignID+`","milestone_index":0,"amount":10000}`)
	a.do(http.MethodPost, "/v1/donations/"+donation["id"].(string)+"/complete", testSweepToken, `{"tx_ref":"pay-1"}`)

	_, progress := a.do(http.MethodGet, "/v1/campaigns/"+campaignID+"/progress", "", "")
	milestoneID := progress["milestones"].([]any)[0].(map[string]any)["id"].(string)

	resp, _ := a.do(http.MethodPost, "/v1/milestones/"+milestoneID+"/proof",
		a.token("org-2", middleware.RoleOrganization), `{"description":"not mine"}`)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("foreign org proof: status = %d, want 401", resp.StatusCode)
	}
}

func TestSweepTriggerRequiresInternalToken(t *testing.T) {
	a := newAPI(t)

	resp, _ := a.do(http.MethodPost, "/v1/internal/sweep", "", "")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("anonymous sweep: status = %d, want 401", resp.StatusCode)
	}

	resp, body := a.do(http.MethodPost, "/v1/internal/sweep", testSweepToken, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("sweep: status = %d", resp.StatusCode)
	}
	if body["blocked"] != float64(0) {
		t.Errorf("blocked = %v, want 0", body["blocked"])
	}
}
