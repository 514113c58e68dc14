package recipes_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platemind/entitlements/core"
	"github.com/platemind/entitlements/modules/recipes"
	"github.com/platemind/entitlements/pkg/entitlement"
)

type stubGate struct {
	err error
}

func (g stubGate) CheckAccess(context.Context, uuid.UUID) error { return g.err }

type stubGenerator struct {
	recipe *recipes.Recipe
	err    error
}

func (g stubGenerator) Generate(_ context.Context, userID uuid.UUID, _ string) (*recipes.Recipe, error) {
	if g.err != nil {
		return nil, g.err
	}
	out := *g.recipe
	out.UserID = userID
	return &out, nil
}

type stubHistory struct {
	items []recipes.Recipe
	err   error
}

func (h stubHistory) History(context.Context, uuid.UUID, int) ([]recipes.Recipe, error) {
	return h.items, h.err
}

func newRouter(gate recipes.AccessGate, gen recipes.Generator, hist recipes.HistoryReader) http.Handler {
	return recipes.Router(recipes.RouterOptions{Gate: gate, Generator: gen, History: hist})
}

func TestGenerate(t *testing.T) {
	userID := uuid.New()
	sample := &recipes.Recipe{
		ID:          "rcp_01",
		Title:       "Garlic butter pasta",
		Ingredients: []string{"pasta", "garlic", "butter"},
		Steps:       []string{"boil", "saute", "toss"},
		CreatedAt:   time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
	}

	t.Run("allowed user gets recipe", func(t *testing.T) {
		router := newRouter(stubGate{}, stubGenerator{recipe: sample}, stubHistory{})

		body, _ := json.Marshal(map[string]any{"user_id": userID, "prompt": "pasta dinner"})
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/generate", bytes.NewReader(body)))

		require.Equal(t, http.StatusOK, rec.Code)

		var envelope core.JSONResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
		data := envelope.Data.(map[string]any)
		assert.Equal(t, "Garlic butter pasta", data["title"])
		assert.Equal(t, userID.String(), data["user_id"])
	})

	t.Run("expired trial answers 402 upgrade_required", func(t *testing.T) {
		gate := stubGate{err: &entitlement.UpgradeRequiredError{TrialDaysLeft: 0}}
		router := newRouter(gate, stubGenerator{recipe: sample}, stubHistory{})

		body, _ := json.Marshal(map[string]any{"user_id": userID, "prompt": "pasta dinner"})
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/generate", bytes.NewReader(body)))

		require.Equal(t, http.StatusPaymentRequired, rec.Code)

		var envelope core.JSONResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
		require.NotNil(t, envelope.Error)
		assert.Equal(t, "upgrade_required", envelope.Error.Code)
		assert.Equal(t, float64(0), envelope.Error.Meta["trial_days_left"])
		assert.Equal(t, true, envelope.Error.Meta["history_accessible"])
	})

	t.Run("unregistered user answers 404", func(t *testing.T) {
		gate := stubGate{err: entitlement.ErrRecordNotFound}
		router := newRouter(gate, stubGenerator{recipe: sample}, stubHistory{})

		body, _ := json.Marshal(map[string]any{"user_id": userID, "prompt": "pasta dinner"})
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/generate", bytes.NewReader(body)))

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("missing prompt rejected", func(t *testing.T) {
		router := newRouter(stubGate{}, stubGenerator{recipe: sample}, stubHistory{})

		body, _ := json.Marshal(map[string]any{"user_id": userID})
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/generate", bytes.NewReader(body)))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("generator failure is opaque 500", func(t *testing.T) {
		router := newRouter(stubGate{}, stubGenerator{err: errors.New("upstream boom")}, stubHistory{})

		body, _ := json.Marshal(map[string]any{"user_id": userID, "prompt": "pasta dinner"})
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/generate", bytes.NewReader(body)))

		require.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.NotContains(t, rec.Body.String(), "upstream boom")
	})
}

func TestHistory(t *testing.T) {
	userID := uuid.New()

	t.Run("history stays accessible without entitlement", func(t *testing.T) {
		// The gate would reject this user, but history is never gated.
		gate := stubGate{err: &entitlement.UpgradeRequiredError{}}
		router := newRouter(gate, stubGenerator{recipe: &recipes.Recipe{}}, stubHistory{
			items: []recipes.Recipe{{ID: "rcp_01", UserID: userID, Title: "Garlic butter pasta"}},
		})

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/history/"+userID.String(), nil))

		require.Equal(t, http.StatusOK, rec.Code)

		var envelope core.JSONResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
		items := envelope.Data.([]any)
		require.Len(t, items, 1)
		assert.Equal(t, "Garlic butter pasta", items[0].(map[string]any)["title"])
	})

	t.Run("bad user id", func(t *testing.T) {
		router := newRouter(stubGate{}, stubGenerator{recipe: &recipes.Recipe{}}, stubHistory{})

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/history/nope", nil))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
