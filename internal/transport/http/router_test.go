package httptransport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	applicationhandler "regportal/internal/application/handler"
	applicationservice "regportal/internal/application/service"
	"regportal/internal/audit"
	intakehandler "regportal/internal/intake/handler"
	intakeservice "regportal/internal/intake/service"
	"regportal/internal/jwttoken"
	"regportal/internal/notify"
	officerhandler "regportal/internal/officerauth/handler"
	officerservice "regportal/internal/officerauth/service"
	"regportal/internal/officerauth/store/otp"
	"regportal/internal/outbound"
	regstore "regportal/internal/registry/store"
)

const testAdminToken = "test-admin-token"

// spyCodes exposes the last issued code so the login flow can be driven
// without a delivery channel.
type spyCodes struct {
	otp.Store
	last otp.Record
}

func (s *spyCodes) Put(ctx context.Context, record otp.Record) error {
	s.last = record
	return s.Store.Put(ctx, record)
}

type portalFixture struct {
	router   http.Handler
	codes    *spyCodes
	store    *regstore.InMemoryStore
	acts     *audit.InMemoryStore
	recorder *audit.Recorder
}

func newPortal(t *testing.T) *portalFixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := regstore.NewInMemoryStore()
	tx := regstore.NewInMemoryTx()
	acts := audit.NewInMemoryStore()
	codes := &spyCodes{Store: otp.NewInMemoryStore()}

	registry := notify.NewInMemoryRegistry(logger)
	fanout := notify.NewFanout(registry, nil, nil, logger)
	queue := outbound.NewQueue(logger)
	recorder := audit.NewRecorder(logger)
	jwtService := jwttoken.NewJWTService("test-key", "regportal", "regportal-officers")

	intakeSvc := intakeservice.New(store, tx, fanout, queue, recorder, nil, logger, "CPC")
	officerSvc := officerservice.New(store, codes, jwtService, queue, recorder, nil, logger, "07")
	appSvc := applicationservice.New(store, tx, fanout, queue, recorder, nil, logger)

	router := NewRouter(Deps{
		Intake:     intakehandler.New(intakeSvc, logger),
		Officers:   officerhandler.New(officerSvc, appSvc, jwtService, logger),
		Admin:      applicationhandler.New(appSvc, acts, testAdminToken, logger),
		Events:     notify.NewSSEHandler(registry, logger),
		Registry:   registry,
		AdminToken: testAdminToken,
		Checkers:   nil,
		Logger:     logger,
	})
	return &portalFixture{
		router:   router,
		codes:    codes,
		store:    store,
		acts:     acts,
		recorder: recorder,
	}
}

func (f *portalFixture) do(t *testing.T, method, path string, body any, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func adminHeaders(adminID uuid.UUID) map[string]string {
	return map[string]string{
		"Authorization": "Bearer " + testAdminToken,
		"X-Admin-ID":    adminID.String(),
	}
}

func submitBody(company string) map[string]any {
	return map[string]any{
		"company": map[string]string{
			"companyName": company,
			"country":     "LK",
		},
		"nomination": map[string]string{
			"fullName": "Nimal Perera",
			"email":    "nimal@" + company + ".example",
			"phone":    "0712345678",
		},
	}
}

func (f *portalFixture) submit(t *testing.T, company string) (appID, regNum string) {
	t.Helper()
	w := f.do(t, http.MethodPost, "/registration/submit", submitBody(company), nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp["applicationID"].(string), resp["registrationNumber"].(string)
}

func TestSubmitRegistration(t *testing.T) {
	f := newPortal(t)

	_, regNum := f.submit(t, "Acme Oil")
	assert.Regexp(t, `^CPC/COM/REG/\d{4}/0001$`, regNum)

	// Duplicate name, different casing.
	w := f.do(t, http.MethodPost, "/registration/submit", submitBody("ACME OIL"), nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	// Malformed body.
	req := httptest.NewRequest(http.MethodPost, "/registration/submit", bytes.NewBufferString("{"))
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOfficerLoginFlow(t *testing.T) {
	f := newPortal(t)
	_, regNum := f.submit(t, "Lanka Fuels")

	w := f.do(t, http.MethodPost, "/officers/request-otp",
		map[string]string{"registrationNumber": regNum}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// Wrong code first.
	w = f.do(t, http.MethodPost, "/officers/verify-otp",
		map[string]string{"registrationNumber": regNum, "otp": "000000"}, nil)
	if w.Code == http.StatusOK {
		t.Fatal("wrong code accepted")
	}

	w = f.do(t, http.MethodPost, "/officers/verify-otp",
		map[string]string{"registrationNumber": regNum, "otp": f.codes.last.Code}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var session struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &session))
	require.NotEmpty(t, session.Token)

	// The token unlocks the officer's own application view.
	w = f.do(t, http.MethodGet, "/officers/application", nil,
		map[string]string{"Authorization": "Bearer " + session.Token})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var view map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.Equal(t, "Lanka Fuels", view["companyName"])
	assert.Equal(t, "Application Received", view["currentStatus"])

	// No token, no view.
	w = f.do(t, http.MethodGet, "/officers/application", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestOfficerRequestOTPUnknownNumber(t *testing.T) {
	f := newPortal(t)

	w := f.do(t, http.MethodPost, "/officers/request-otp",
		map[string]string{"registrationNumber": "CPC/COM/REG/2026/9999"}, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminStatusTransition(t *testing.T) {
	f := newPortal(t)
	appID, _ := f.submit(t, "Acme Oil")
	adminID := uuid.New()

	// No token.
	w := f.do(t, http.MethodPut, "/admin/applications/"+appID+"/status",
		map[string]string{"newStatus": "Approved"}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Token but no admin identity.
	w = f.do(t, http.MethodPut, "/admin/applications/"+appID+"/status",
		map[string]string{"newStatus": "Approved"},
		map[string]string{"Authorization": "Bearer " + testAdminToken})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Unknown status name.
	w = f.do(t, http.MethodPut, "/admin/applications/"+appID+"/status",
		map[string]string{"newStatus": "Escalated"}, adminHeaders(adminID))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Real transition.
	w = f.do(t, http.MethodPut, "/admin/applications/"+appID+"/status",
		map[string]string{"newStatus": "Under Preliminary Review", "remarks": "checking"},
		adminHeaders(adminID))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// Detail reflects the change and the cleared unseen flag.
	w = f.do(t, http.MethodGet, "/admin/applications/"+appID, nil, adminHeaders(adminID))
	require.Equal(t, http.StatusOK, w.Code)
	var view map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.Equal(t, "Under Preliminary Review", view["currentStatus"])
	assert.Equal(t, false, view["isNew"])

	// History carries the transition.
	w = f.do(t, http.MethodGet, "/admin/applications/"+appID+"/history", nil, adminHeaders(adminID))
	require.Equal(t, http.StatusOK, w.Code)
	var hist struct {
		History []map[string]any `json:"history"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &hist))
	require.Len(t, hist.History, 1)
	assert.Equal(t, "Application Received", hist.History[0]["previousStatus"])
	assert.Equal(t, "Under Preliminary Review", hist.History[0]["newStatus"])
}

func TestAdminUnknownApplication(t *testing.T) {
	f := newPortal(t)
	headers := adminHeaders(uuid.New())

	w := f.do(t, http.MethodGet, "/admin/applications/"+uuid.NewString(), nil, headers)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(t, http.MethodGet, "/admin/applications/not-a-uuid", nil, headers)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminOfficerToggle(t *testing.T) {
	f := newPortal(t)
	_, regNum := f.submit(t, "Ceylon Shipping")
	headers := adminHeaders(uuid.New())

	// Drain activity entries so the toggle's entry is observable.
	workerCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	worker := audit.NewWorker(f.acts, nil, f.recorder, slog.New(slog.NewTextHandler(io.Discard, nil)))
	go func() { _ = worker.Run(workerCtx) }()

	oc, err := f.store.FindOfficerContext(context.Background(), regNum)
	require.NoError(t, err)

	w := f.do(t, http.MethodPut, "/admin/officers/"+oc.OfficerID.String()+"/active",
		map[string]bool{"isActive": false}, headers)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// A deactivated officer can no longer start the login flow.
	w = f.do(t, http.MethodPost, "/officers/request-otp",
		map[string]string{"registrationNumber": regNum}, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// Reactivation restores it.
	w = f.do(t, http.MethodPut, "/admin/officers/"+oc.OfficerID.String()+"/active",
		map[string]bool{"isActive": true}, headers)
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodPost, "/officers/request-otp",
		map[string]string{"registrationNumber": regNum}, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// The toggle leaves an activity trail.
	require.Eventually(t, func() bool {
		events, err := f.acts.ListRecent(context.Background(), 50)
		if err != nil {
			return false
		}
		for _, event := range events {
			if event.Type == audit.TypeOfficerStatus {
				return true
			}
		}
		return false
	}, time.Second, 10*time.Millisecond)

	// Missing body field and unknown officer are rejected.
	w = f.do(t, http.MethodPut, "/admin/officers/"+oc.OfficerID.String()+"/active",
		map[string]string{}, headers)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPut, "/admin/officers/"+uuid.NewString()+"/active",
		map[string]bool{"isActive": false}, headers)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHealthz(t *testing.T) {
	f := newPortal(t)

	w := f.do(t, http.MethodGet, "/healthz", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp["status"])
	assert.Equal(t, float64(0), resp["admins_online"])
}

func TestSubmitSequenceVisibleOverHTTP(t *testing.T) {
	f := newPortal(t)

	for i := 1; i <= 3; i++ {
		_, regNum := f.submit(t, fmt.Sprintf("seq-co-%d", i))
		assert.Regexp(t, fmt.Sprintf(`/%04d$`, i), regNum)
	}
}
