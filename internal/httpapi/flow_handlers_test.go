package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Sagara39/canteen-kiosk/internal/checkout"
	"github.com/Sagara39/canteen-kiosk/internal/domain"
	"github.com/Sagara39/canteen-kiosk/internal/register"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockCheckoutFlow struct {
	snap      checkout.Snapshot
	beginErr  error
	stateErr  error
	retryErr  error
	cancelled bool
}

func (m *mockCheckoutFlow) Begin(context.Context, string) (checkout.Snapshot, error) {
	return m.snap, m.beginErr
}

func (m *mockCheckoutFlow) State(string) (checkout.Snapshot, error) {
	return m.snap, m.stateErr
}

func (m *mockCheckoutFlow) Retry(string) (checkout.Snapshot, error) {
	return m.snap, m.retryErr
}

func (m *mockCheckoutFlow) Cancel(string) { m.cancelled = true }

func TestCheckoutBegin_Created(t *testing.T) {
	flow := &mockCheckoutFlow{snap: checkout.Snapshot{State: domain.CheckoutPendingTap}}
	h := NewCheckoutHandler(flow)

	req := withSession(httptest.NewRequest(http.MethodPost, "/checkout", nil), "s1")
	rec := httptest.NewRecorder()
	h.Begin(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	var snap checkout.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, domain.CheckoutPendingTap, snap.State)
}

func TestCheckoutBegin_EmptyCartConflict(t *testing.T) {
	flow := &mockCheckoutFlow{beginErr: checkout.ErrEmptyCart}
	h := NewCheckoutHandler(flow)

	req := withSession(httptest.NewRequest(http.MethodPost, "/checkout", nil), "s1")
	rec := httptest.NewRecorder()
	h.Begin(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "empty_cart", resp.Code)
}

func TestCheckoutState_NotFound(t *testing.T) {
	flow := &mockCheckoutFlow{stateErr: checkout.ErrFlowMissing}
	h := NewCheckoutHandler(flow)

	req := withSession(httptest.NewRequest(http.MethodGet, "/checkout", nil), "s1")
	rec := httptest.NewRecorder()
	h.State(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCheckoutRetry_NotRetryable(t *testing.T) {
	flow := &mockCheckoutFlow{retryErr: checkout.ErrNotRetryable}
	h := NewCheckoutHandler(flow)

	req := withSession(httptest.NewRequest(http.MethodPost, "/checkout/retry", nil), "s1")
	rec := httptest.NewRecorder()
	h.Retry(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCheckoutCancel(t *testing.T) {
	flow := &mockCheckoutFlow{}
	h := NewCheckoutHandler(flow)

	req := withSession(httptest.NewRequest(http.MethodDelete, "/checkout", nil), "s1")
	rec := httptest.NewRecorder()
	h.Cancel(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, flow.cancelled)
}

type mockRegisterFlow struct {
	snap      register.Snapshot
	submitErr error
}

func (m *mockRegisterFlow) Submit(context.Context, string, string, string) (register.Snapshot, error) {
	return m.snap, m.submitErr
}

func (m *mockRegisterFlow) State(string) register.Snapshot { return m.snap }

func (m *mockRegisterFlow) Retry(context.Context, string) (register.Snapshot, error) {
	return m.snap, nil
}

func (m *mockRegisterFlow) Finish(context.Context, string) {}

func TestRegisterSubmit_Accepted(t *testing.T) {
	flow := &mockRegisterFlow{snap: register.Snapshot{State: domain.RegisterTapping}}
	h := NewRegisterHandler(flow)

	body := bytes.NewBufferString(`{"name":"Amal Perera","phone_number":"0771234567"}`)
	req := withSession(httptest.NewRequest(http.MethodPost, "/register", body), "s1")
	rec := httptest.NewRecorder()
	h.Submit(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)

	var snap register.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, domain.RegisterTapping, snap.State)
}

func TestRegisterSubmit_ValidationErrorCarriesField(t *testing.T) {
	flow := &mockRegisterFlow{submitErr: &register.ValidationError{
		Field:   "phone_number",
		Message: "Please enter a valid 10-digit phone number.",
	}}
	h := NewRegisterHandler(flow)

	body := bytes.NewBufferString(`{"name":"Amal Perera","phone_number":"123"}`)
	req := withSession(httptest.NewRequest(http.MethodPost, "/register", body), "s1")
	rec := httptest.NewRecorder()
	h.Submit(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "validation_error", resp["code"])
	assert.Equal(t, "phone_number", resp["field"])
	assert.Equal(t, "Please enter a valid 10-digit phone number.", resp["error"])
}

func TestRegisterSubmit_BadJSON(t *testing.T) {
	h := NewRegisterHandler(&mockRegisterFlow{})

	body := bytes.NewBufferString(`{not json`)
	req := withSession(httptest.NewRequest(http.MethodPost, "/register", body), "s1")
	rec := httptest.NewRecorder()
	h.Submit(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
