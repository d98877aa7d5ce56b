package api

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lambda-platform/lambda-api/internal/anomaly"
	"github.com/lambda-platform/lambda-api/internal/domain"
	"github.com/lambda-platform/lambda-api/internal/metrics"
	"github.com/lambda-platform/lambda-api/internal/service"
)

func newAdminHandler(tiers *mockTierService, audits *mockAuditService) *AdminHandler {
	return NewAdminHandler(tiers, audits, metrics.NewCollector(),
		anomaly.NewRegistry(anomaly.DefaultConfig()), testLogger())
}

func TestAdminChangeTierDowngrades(t *testing.T) {
	t.Parallel()

	adminID := uuid.New()
	targetID := uuid.New()
	tiers := &mockTierService{
		changeTierFn: func(ctx context.Context, actorID uuid.UUID, actorRole domain.Role, userID uuid.UUID, next domain.Tier) (*domain.User, error) {
			assert.Equal(t, adminID, actorID)
			assert.Equal(t, domain.RoleAdmin, actorRole)
			assert.Equal(t, targetID, userID)
			assert.Equal(t, domain.TierFree, next)
			return &domain.User{ID: userID, Email: "t@example.com", HashedPassword: "h", Tier: next, Role: domain.RoleUser}, nil
		},
	}
	handler := newAdminHandler(tiers, &mockAuditService{})

	req := withClaims(
		newJSONRequest(t, http.MethodPut, "/admin/users/"+targetID.String()+"/tier", TierChangeRequest{Tier: "free"}),
		adminClaims(adminID))
	req = withURLParam(req, "userID", targetID.String())
	rec := httptest.NewRecorder()
	handler.ChangeTier(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp ProfileResponse
	decodeBody(t, rec, &resp)
	assert.Equal(t, domain.TierFree, resp.Tier)
}

func TestAdminChangeTierRejectsBadUserID(t *testing.T) {
	t.Parallel()

	handler := newAdminHandler(&mockTierService{}, &mockAuditService{})

	req := withClaims(
		newJSONRequest(t, http.MethodPut, "/admin/users/not-a-uuid/tier", TierChangeRequest{Tier: "free"}),
		adminClaims(uuid.New()))
	req = withURLParam(req, "userID", "not-a-uuid")
	rec := httptest.NewRecorder()
	handler.ChangeTier(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListAuditReturnsRecords(t *testing.T) {
	t.Parallel()

	audits := &mockAuditService{
		listFn: func(ctx context.Context, from, to time.Time, limit int) ([]*domain.AuditRecord, error) {
			assert.Equal(t, 10, limit)
			return []*domain.AuditRecord{
				{ID: uuid.New(), Actor: "a", Action: domain.AuditActionTierChanged},
				{ID: uuid.New(), Actor: "b", Action: domain.AuditActionUserRegistered},
			}, nil
		},
	}
	handler := newAdminHandler(&mockTierService{}, audits)

	req := withClaims(
		newJSONRequest(t, http.MethodGet, "/admin/audit?limit=10", nil),
		adminClaims(uuid.New()))
	rec := httptest.NewRecorder()
	handler.ListAudit(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp AuditListResponse
	decodeBody(t, rec, &resp)
	assert.Equal(t, 2, resp.Count)
	require.Len(t, resp.Records, 2)
}

func TestListAuditRejectsInvertedWindow(t *testing.T) {
	t.Parallel()

	handler := newAdminHandler(&mockTierService{}, &mockAuditService{})

	target := "/admin/audit?from=2026-08-02T00:00:00Z&to=2026-08-01T00:00:00Z"
	req := withClaims(newJSONRequest(t, http.MethodGet, target, nil), adminClaims(uuid.New()))
	rec := httptest.NewRecorder()
	handler.ListAudit(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestVerifyAuditIntactRecord(t *testing.T) {
	t.Parallel()

	recordID := uuid.New()
	audits := &mockAuditService{
		verifyFn: func(ctx context.Context, id uuid.UUID) (*domain.AuditRecord, error) {
			require.Equal(t, recordID, id)
			return &domain.AuditRecord{ID: id, Actor: "system", Action: domain.AuditActionBudgetReset}, nil
		},
	}
	handler := newAdminHandler(&mockTierService{}, audits)

	req := withClaims(
		newJSONRequest(t, http.MethodGet, "/admin/audit/"+recordID.String()+"/verify", nil),
		adminClaims(uuid.New()))
	req = withURLParam(req, "recordID", recordID.String())
	rec := httptest.NewRecorder()
	handler.VerifyAudit(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp AuditVerifyResponse
	decodeBody(t, rec, &resp)
	assert.True(t, resp.Verified)
	require.NotNil(t, resp.Record)
	assert.Equal(t, recordID, resp.Record.ID)
}

func TestVerifyAuditTamperedRecord(t *testing.T) {
	t.Parallel()

	recordID := uuid.New()
	audits := &mockAuditService{
		verifyFn: func(ctx context.Context, id uuid.UUID) (*domain.AuditRecord, error) {
			return nil, fmt.Errorf("%w: record %s", service.ErrAuditVerificationFailed, id)
		},
	}
	handler := newAdminHandler(&mockTierService{}, audits)

	req := withClaims(
		newJSONRequest(t, http.MethodGet, "/admin/audit/"+recordID.String()+"/verify", nil),
		adminClaims(uuid.New()))
	req = withURLParam(req, "recordID", recordID.String())
	rec := httptest.NewRecorder()
	handler.VerifyAudit(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp AuditVerifyResponse
	decodeBody(t, rec, &resp)
	assert.False(t, resp.Verified)
}

func TestMetricsReturnsSnapshot(t *testing.T) {
	t.Parallel()

	collector := metrics.NewCollector()
	collector.ObserveRequest("GET /usage", http.StatusOK, 5*time.Millisecond)
	handler := NewAdminHandler(&mockTierService{}, &mockAuditService{}, collector,
		anomaly.NewRegistry(anomaly.DefaultConfig()), testLogger())

	req := withClaims(newJSONRequest(t, http.MethodGet, "/admin/metrics", nil), adminClaims(uuid.New()))
	rec := httptest.NewRecorder()
	handler.Metrics(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var snap metrics.Snapshot
	decodeBody(t, rec, &snap)
	assert.Equal(t, int64(1), snap.TotalRequests)
}

func TestAnomaliesReturnsDetectorStats(t *testing.T) {
	t.Parallel()

	detectors := anomaly.NewRegistry(anomaly.DefaultConfig())
	detectors.Observe("requests_per_minute", 12)
	detectors.Observe("requests_per_minute", 14)
	handler := NewAdminHandler(&mockTierService{}, &mockAuditService{},
		metrics.NewCollector(), detectors, testLogger())

	req := withClaims(newJSONRequest(t, http.MethodGet, "/admin/anomalies", nil), adminClaims(uuid.New()))
	rec := httptest.NewRecorder()
	handler.Anomalies(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp AnomalyListResponse
	decodeBody(t, rec, &resp)
	require.Equal(t, 1, resp.Count)
	assert.Equal(t, "requests_per_minute", resp.Detectors[0].Metric)
	assert.Equal(t, 2, resp.Detectors[0].Samples)
}
