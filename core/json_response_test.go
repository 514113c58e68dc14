package core_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platemind/entitlements/core"
)

func render(t *testing.T, resp core.Response) (*httptest.ResponseRecorder, core.JSONResponse) {
	t.Helper()
	rec := httptest.NewRecorder()
	core.Render(rec, httptest.NewRequest(http.MethodGet, "/", nil), resp)

	var envelope core.JSONResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	return rec, envelope
}

func TestJSON(t *testing.T) {
	rec, envelope := render(t, core.JSON(map[string]any{"ok": true}))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, true, envelope.Data.(map[string]any)["ok"])
	assert.Nil(t, envelope.Error)
}

func TestJSONWithStatus(t *testing.T) {
	rec, _ := render(t, core.JSONWithStatus(http.StatusCreated, "created"))
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestJSONErrorDetail(t *testing.T) {
	rec, envelope := render(t, core.JSONErrorDetail(http.StatusPaymentRequired, "upgrade_required", "trial expired", map[string]any{
		"trial_days_left": 0,
	}))

	assert.Equal(t, http.StatusPaymentRequired, rec.Code)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "upgrade_required", envelope.Error.Code)
	assert.Equal(t, "trial expired", envelope.Error.Message)
	assert.Equal(t, float64(0), envelope.Error.Meta["trial_days_left"])
}

func TestJSONError(t *testing.T) {
	t.Run("http error keeps status and key", func(t *testing.T) {
		rec, envelope := render(t, core.JSONError(core.ErrConflict))
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "conflict", envelope.Error.Code)
	})

	t.Run("arbitrary error is opaque 500", func(t *testing.T) {
		rec, envelope := render(t, core.JSONError(errors.New("mongo: connection reset")))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "internal_error", envelope.Error.Code)
		assert.NotContains(t, rec.Body.String(), "mongo")
	})
}

func TestNewHTTPError(t *testing.T) {
	err := core.NewHTTPError(http.StatusTeapot, "teapot")
	assert.Equal(t, "teapot", err.Error())
	assert.Equal(t, http.StatusTeapot, err.Code)
}
