package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"luminexus/internal/catalog"
	"luminexus/internal/logger"
	"luminexus/internal/repository"
	"luminexus/internal/security"
	"luminexus/internal/service"
)

type apiFixture struct {
	handler http.Handler
	startup *StartupStatus
}

func newAPIFixture(t *testing.T, registrationsPerWindow int) *apiFixture {
	t.Helper()

	cat, err := catalog.Default()
	require.NoError(t, err)

	log := logger.NewNop()
	kv := repository.NewMemoryKeyValueStore()
	players := service.NewPlayerService(repository.NewPlayerRepository(kv), security.NewTokenIssuer("test-secret", time.Hour), nil, log)
	progress := service.NewProgressService(repository.NewProgressRepository(kv), players, cat, nil, log)

	limiter := security.NewRateLimiter(registrationsPerWindow, time.Minute)
	t.Cleanup(limiter.Stop)
	clientIP, err := security.NewClientIPResolver(nil)
	require.NoError(t, err)

	startup := NewStartupStatus(StepStorage, StepServices)
	startup.CompleteStep(StepStorage)
	startup.CompleteStep(StepServices)
	startup.MarkReady()

	handler := NewRouter(RouterDeps{
		Players:    players,
		Progress:   progress,
		Middleware: NewMiddleware(players, limiter, clientIP, log),
		Startup:    startup,
		Log:        log,
	})
	return &apiFixture{handler: handler, startup: startup}
}

func (f *apiFixture) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func (f *apiFixture) register(t *testing.T, body interface{}) string {
	t.Helper()
	rec := f.do(t, http.MethodPost, "/api/players", "", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

type outcomeBody struct {
	Grant struct {
		Applied bool `json:"applied"`
	} `json:"grant"`
	Achievements []struct {
		ID string `json:"id"`
	} `json:"achievements"`
	Progress struct {
		Coins          int      `json:"coins"`
		XP             int      `json:"xp"`
		Level          int      `json:"level"`
		XPForNextLevel int      `json:"xpForNextLevel"`
		OwnedItems     []string `json:"ownedItems"`
		ActiveTheme    string   `json:"activeTheme"`
	} `json:"progress"`
}

func decodeOutcome(t *testing.T, rec *httptest.ResponseRecorder) outcomeBody {
	t.Helper()
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var body outcomeBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestRegisterReturnsPlayerTokenAndProgress(t *testing.T) {
	f := newAPIFixture(t, 10)

	rec := f.do(t, http.MethodPost, "/api/players", "", map[string]string{"displayName": "Ada"})
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		Player struct {
			ID          string `json:"id"`
			DisplayName string `json:"displayName"`
		} `json:"player"`
		Token    string `json:"token"`
		Progress struct {
			Level          int    `json:"level"`
			ActiveTheme    string `json:"activeTheme"`
			XPForNextLevel int    `json:"xpForNextLevel"`
		} `json:"progress"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Ada", resp.Player.DisplayName)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, 1, resp.Progress.Level)
	assert.Equal(t, "default", resp.Progress.ActiveTheme)
	assert.Equal(t, 500, resp.Progress.XPForNextLevel)
	assert.NotContains(t, rec.Body.String(), "parentPinHash")
}

func TestRegisterWithoutBody(t *testing.T) {
	f := newAPIFixture(t, 10)
	rec := f.do(t, http.MethodPost, "/api/players", "", nil)
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestRegisterValidationError(t *testing.T) {
	f := newAPIFixture(t, 10)
	rec := f.do(t, http.MethodPost, "/api/players", "", map[string]string{"parentPin": "12"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "pin")
}

func TestProgressRequiresToken(t *testing.T) {
	f := newAPIFixture(t, 10)

	assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodGet, "/api/progress", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodGet, "/api/progress", "garbage", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodGet, "/api/shop", "", nil).Code)
}

func TestStoryQuizAndGameFlow(t *testing.T) {
	f := newAPIFixture(t, 10)
	token := f.register(t, nil)

	body := decodeOutcome(t, f.do(t, http.MethodPost, "/api/progress/stories/solar-wind/complete", token, nil))
	assert.True(t, body.Grant.Applied)
	require.Len(t, body.Achievements, 1)
	assert.Equal(t, "first-story", body.Achievements[0].ID)
	assert.Equal(t, 75, body.Progress.Coins)

	body = decodeOutcome(t, f.do(t, http.MethodPost, "/api/progress/stories/solar-wind/complete", token, nil))
	assert.False(t, body.Grant.Applied)
	assert.Equal(t, 75, body.Progress.Coins)

	rec := f.do(t, http.MethodPost, "/api/progress/quizzes/q1/complete", token, map[string]int{"score": 150})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = f.do(t, http.MethodPost, "/api/progress/quizzes/q1/complete", token, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	body = decodeOutcome(t, f.do(t, http.MethodPost, "/api/progress/quizzes/q1/complete", token, map[string]int{"score": 80}))
	assert.True(t, body.Grant.Applied)

	body = decodeOutcome(t, f.do(t, http.MethodPost, "/api/progress/games", token, map[string]bool{"won": true}))
	assert.True(t, body.Grant.Applied)

	rec = f.do(t, http.MethodGet, "/api/progress", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var progress struct {
		GamesPlayed int            `json:"gamesPlayed"`
		GamesWon    int            `json:"gamesWon"`
		QuizScores  map[string]int `json:"quizScores"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &progress))
	assert.Equal(t, 1, progress.GamesPlayed)
	assert.Equal(t, 1, progress.GamesWon)
	assert.Equal(t, 80, progress.QuizScores["q1"])
}

func TestCoinsAndXPEndpoints(t *testing.T) {
	f := newAPIFixture(t, 10)
	token := f.register(t, nil)

	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/api/progress/coins", token, map[string]int{"amount": 0}).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/api/progress/coins", token, "not an object").Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/api/progress/coins", token, map[string]int{"amount": math.MaxInt}).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/api/progress/xp", token, map[string]int{"amount": service.MaxGrant + 1}).Code)

	body := decodeOutcome(t, f.do(t, http.MethodPost, "/api/progress/coins", token, map[string]int{"amount": 40}))
	assert.Equal(t, 40, body.Progress.Coins)

	rec := f.do(t, http.MethodPost, "/api/progress/coins/spend", token, map[string]int{"amount": 41})
	assert.Equal(t, http.StatusPaymentRequired, rec.Code)

	body = decodeOutcome(t, f.do(t, http.MethodPost, "/api/progress/coins/spend", token, map[string]int{"amount": 15}))
	assert.Equal(t, 25, body.Progress.Coins)

	body = decodeOutcome(t, f.do(t, http.MethodPost, "/api/progress/xp", token, map[string]int{"amount": 500}))
	assert.Equal(t, 2, body.Progress.Level)
	assert.Equal(t, 125, body.Progress.Coins, "level-up bonus")
	assert.Equal(t, 1000, body.Progress.XPForNextLevel)
}

func TestShopFlow(t *testing.T) {
	f := newAPIFixture(t, 10)
	token := f.register(t, nil)

	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodPost, "/api/shop/rocket-boots/purchase", token, nil).Code)
	assert.Equal(t, http.StatusPaymentRequired, f.do(t, http.MethodPost, "/api/shop/theme-aurora/purchase", token, nil).Code)
	assert.Equal(t, http.StatusConflict, f.do(t, http.MethodPost, "/api/progress/theme", token, map[string]string{"itemId": "theme-aurora"}).Code)

	decodeOutcome(t, f.do(t, http.MethodPost, "/api/progress/coins", token, map[string]int{"amount": 1000}))

	body := decodeOutcome(t, f.do(t, http.MethodPost, "/api/shop/theme-aurora/purchase", token, nil))
	assert.Equal(t, []string{"theme-aurora"}, body.Progress.OwnedItems)
	assert.Equal(t, 850, body.Progress.Coins)

	assert.Equal(t, http.StatusConflict, f.do(t, http.MethodPost, "/api/shop/theme-aurora/purchase", token, nil).Code)

	body = decodeOutcome(t, f.do(t, http.MethodPost, "/api/progress/theme", token, map[string]string{"itemId": "theme-aurora"}))
	assert.Equal(t, "theme-aurora", body.Progress.ActiveTheme)

	rec := f.do(t, http.MethodGet, "/api/shop", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var shop struct {
		Coins int `json:"coins"`
		Items []struct {
			ID     string `json:"id"`
			Cost   int    `json:"cost"`
			Owned  bool   `json:"owned"`
			Active bool   `json:"active"`
		} `json:"items"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &shop))
	assert.Equal(t, 850, shop.Coins)
	require.NotEmpty(t, shop.Items)
	for _, item := range shop.Items {
		assert.Equal(t, item.ID == "theme-aurora", item.Owned, item.ID)
		assert.Equal(t, item.ID == "theme-aurora", item.Active, item.ID)
	}
}

func TestBoostEndpoints(t *testing.T) {
	f := newAPIFixture(t, 10)
	token := f.register(t, nil)

	assert.Equal(t, http.StatusConflict, f.do(t, http.MethodPost, "/api/progress/boosts/boost-extra-time", token, nil).Code)

	decodeOutcome(t, f.do(t, http.MethodPost, "/api/progress/coins", token, map[string]int{"amount": 200}))
	decodeOutcome(t, f.do(t, http.MethodPost, "/api/shop/boost-extra-time/purchase", token, nil))
	decodeOutcome(t, f.do(t, http.MethodPost, "/api/progress/boosts/boost-extra-time", token, nil))

	rec := f.do(t, http.MethodGet, "/api/progress", token, nil)
	assert.Contains(t, rec.Body.String(), `"activeBoosts":["boost-extra-time"]`)

	decodeOutcome(t, f.do(t, http.MethodDelete, "/api/progress/boosts/boost-extra-time", token, nil))
	rec = f.do(t, http.MethodGet, "/api/progress", token, nil)
	assert.Contains(t, rec.Body.String(), `"activeBoosts":[]`)
}

func TestAchievementsEndpoints(t *testing.T) {
	f := newAPIFixture(t, 10)
	token := f.register(t, nil)

	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodPost, "/api/progress/achievements/moonwalk/unlock", token, nil).Code)
	decodeOutcome(t, f.do(t, http.MethodPost, "/api/progress/achievements/champion/unlock", token, nil))

	rec := f.do(t, http.MethodGet, "/api/achievements", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Achievements []struct {
			ID       string `json:"id"`
			Unlocked bool   `json:"unlocked"`
		} `json:"achievements"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	for _, ach := range resp.Achievements {
		assert.Equal(t, ach.ID == "champion", ach.Unlocked, ach.ID)
	}
}

func TestResetRequiresParentPIN(t *testing.T) {
	f := newAPIFixture(t, 10)
	token := f.register(t, map[string]string{"parentPin": "4321"})

	decodeOutcome(t, f.do(t, http.MethodPost, "/api/progress/coins", token, map[string]int{"amount": 90}))

	assert.Equal(t, http.StatusForbidden, f.do(t, http.MethodPost, "/api/progress/reset", token, map[string]string{"pin": "0000"}).Code)
	assert.Equal(t, http.StatusForbidden, f.do(t, http.MethodPost, "/api/progress/reset", token, nil).Code)

	body := decodeOutcome(t, f.do(t, http.MethodPost, "/api/progress/reset", token, map[string]string{"pin": "4321"}))
	assert.Equal(t, 0, body.Progress.Coins)
}

func TestRegistrationIsRateLimited(t *testing.T) {
	f := newAPIFixture(t, 2)

	f.register(t, nil)
	f.register(t, nil)
	rec := f.do(t, http.MethodPost, "/api/players", "", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestRegistrationLimitIgnoresForwardedHeaders(t *testing.T) {
	f := newAPIFixture(t, 2)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/players", bytes.NewBufferString("{}"))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("203.0.113.%d", i))
		rec := httptest.NewRecorder()
		f.handler.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusCreated, http.StatusCreated, http.StatusTooManyRequests}, codes)
}

func TestHealthAndReadiness(t *testing.T) {
	startup := NewStartupStatus(StepStorage, StepCatalog)
	handler := startup.RequireReady(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/healthz" {
			startup.Health(w, r)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))

	serve := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil).WithContext(context.Background()))
		return rec
	}

	assert.Equal(t, http.StatusServiceUnavailable, serve("/api/progress").Code)
	rec := serve("/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	startup.CompleteStep(StepStorage)
	rec = serve("/healthz")
	assert.Contains(t, rec.Body.String(), `"progress":50`)

	startup.CompleteStep(StepCatalog)
	startup.MarkReady()
	assert.Equal(t, http.StatusOK, serve("/healthz").Code)
	assert.Equal(t, http.StatusNoContent, serve("/api/progress").Code)
}

func TestPlayerMe(t *testing.T) {
	f := newAPIFixture(t, 10)
	token := f.register(t, map[string]string{"displayName": "Nova", "parentEmail": "p@example.com"})

	rec := f.do(t, http.MethodGet, "/api/players/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"displayName":"Nova"`)
	assert.Contains(t, rec.Body.String(), `"hasParentEmail":true`)
	assert.NotContains(t, rec.Body.String(), "p@example.com")
}
