package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/MJE43/gridiron-dice/internal/config"
	"github.com/MJE43/gridiron-dice/internal/match"
	"github.com/MJE43/gridiron-dice/internal/play"
	"github.com/MJE43/gridiron-dice/internal/rules"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func testConfig() config.Config {
	return config.Config{
		Addr:           "127.0.0.1:0",
		RequestTimeout: 5 * time.Second,
		MaxSessions:    4,
		UserTeamName:   "Chefs",
		NPCTeamName:    "NPC",
	}
}

func newTestServer(t *testing.T) (*Server, http.Handler) {
	t.Helper()
	s := NewServer(testConfig(), zap.NewNop())
	return s, s.Routes()
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(w.Body).Decode(&v))
	return v
}

func createMatch(t *testing.T, h http.Handler) MatchResponse {
	t.Helper()
	w := do(t, h, http.MethodPost, "/api/v1/matches", nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[MatchResponse](t, w)
}

func TestHealthEndpoint(t *testing.T) {
	_, h := newTestServer(t)

	w := do(t, h, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode[HealthCheckResponse](t, w)
	assert.Equal(t, HealthStatusHealthy, resp.Status)
	assert.Contains(t, resp.Checks, "rules")
	assert.Contains(t, resp.Checks, "sessions")
	assert.Equal(t, match.Version, resp.Version.StateVersion)
}

func TestHealthWithZeroConfig(t *testing.T) {
	s := NewServer(config.Config{}, zap.NewNop())
	h := s.Routes()
	createMatch(t, h)

	w := do(t, h, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[HealthCheckResponse](t, w)
	assert.Equal(t, HealthStatusHealthy, resp.Status)
	assert.Equal(t, HealthStatusHealthy, resp.Checks["sessions"].Status)
	assert.Equal(t, defaultMaxSessions, s.cfg.MaxSessions)
}

func TestLivenessEndpoint(t *testing.T) {
	_, h := newTestServer(t)

	w := do(t, h, http.MethodGet, "/health/live", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, EngineVersion, w.Header().Get("X-Engine-Version"))
}

func TestRulesEndpoint(t *testing.T) {
	_, h := newTestServer(t)

	w := do(t, h, http.MethodGet, "/api/v1/rules", nil)
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode[RulesResponse](t, w)
	assert.Len(t, resp.Outcomes, 6)
	assert.Len(t, resp.Chaos, len(rules.ChaosTable()))
	assert.NotEmpty(t, resp.EngineVersion)
}

func TestCreateMatch(t *testing.T) {
	_, h := newTestServer(t)

	w := do(t, h, http.MethodPost, "/api/v1/matches", CreateMatchRequest{UserTeam: "Bolts"})
	require.Equal(t, http.StatusCreated, w.Code)

	resp := decode[MatchResponse](t, w)
	assert.NotEmpty(t, resp.ID)
	assert.Equal(t, play.PhaseResolved, resp.Phase)
	assert.Equal(t, "Bolts", resp.State.Teams[match.User].Name)
	assert.Equal(t, "NPC", resp.State.Teams[match.NPC].Name)
	assert.Equal(t, 25, resp.State.Game.BallOn)
	assert.Zero(t, resp.Plays)
}

func TestCreateMatchRejectsLongName(t *testing.T) {
	_, h := newTestServer(t)

	w := do(t, h, http.MethodPost, "/api/v1/matches", CreateMatchRequest{NPCTeam: string(bytes.Repeat([]byte("x"), 40))})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, ErrTypeValidation, w.Header().Get("X-Error-Type"))
}

func TestSessionLimit(t *testing.T) {
	_, h := newTestServer(t)

	for range testConfig().MaxSessions {
		createMatch(t, h)
	}
	w := do(t, h, http.MethodPost, "/api/v1/matches", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, ErrTypeSessionLimit, w.Header().Get("X-Error-Type"))
}

func TestPlayTouchdown(t *testing.T) {
	_, h := newTestServer(t)
	m := createMatch(t, h)

	w := do(t, h, http.MethodPost, "/api/v1/matches/"+m.ID+"/plays", PlayRequest{D6: play.Die(6)})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := decode[PlayResponse](t, w)
	assert.Equal(t, play.PhaseResolved, resp.Phase)
	require.NotNil(t, resp.Highlight)
	assert.Equal(t, play.EventTouchdown, resp.Highlight.Type)
	assert.Equal(t, 6, resp.State.Teams[match.User].Score)
	assert.Equal(t, match.NPC, resp.State.Game.Possession)

	got := decode[MatchResponse](t, do(t, h, http.MethodGet, "/api/v1/matches/"+m.ID, nil))
	assert.Equal(t, 6, got.State.Teams[match.User].Score)
	assert.Equal(t, 1, got.Plays)
}

func TestPlayChaosTwoStep(t *testing.T) {
	_, h := newTestServer(t)
	m := createMatch(t, h)
	base := "/api/v1/matches/" + m.ID

	// A sack always asks for chaos.
	w := do(t, h, http.MethodPost, base+"/plays", PlayRequest{D6: play.Die(1)})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	provisional := decode[PlayResponse](t, w)
	assert.Equal(t, play.PhaseAwaitingChaos, provisional.Phase)
	assert.Equal(t, 20, provisional.State.Game.BallOn)
	assert.Equal(t, play.EventChaosRequired, provisional.Events[len(provisional.Events)-1].Type)

	// Nothing is committed while the d20 is outstanding.
	got := decode[MatchResponse](t, do(t, h, http.MethodGet, base, nil))
	assert.Equal(t, 25, got.State.Game.BallOn)
	assert.Equal(t, play.PhaseAwaitingChaos, got.Phase)
	require.NotNil(t, got.Pending)
	assert.Equal(t, 1, got.Pending.D6)
	assert.Zero(t, got.Plays)

	w = do(t, h, http.MethodPost, base+"/plays", PlayRequest{D6: play.Die(2)})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, ErrTypeChaosPending, w.Header().Get("X-Error-Type"))

	w = do(t, h, http.MethodPost, base+"/chaos", ChaosRequest{D20: play.Die(12)})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	done := decode[PlayResponse](t, w)
	assert.Equal(t, play.PhaseResolved, done.Phase)
	assert.Equal(t, 20, done.State.Game.BallOn)
	assert.Equal(t, 2, done.State.Game.Down)
	assert.Equal(t, 15, done.State.Game.ToGo)
	assert.Equal(t, 1, done.State.Memory.SackStreak)

	got = decode[MatchResponse](t, do(t, h, http.MethodGet, base, nil))
	assert.Equal(t, play.PhaseResolved, got.Phase)
	assert.Nil(t, got.Pending)
	assert.Equal(t, 1, got.Plays)
	assert.Equal(t, 20, got.State.Game.BallOn)
}

func TestChaosWithoutPendingPlay(t *testing.T) {
	_, h := newTestServer(t)
	m := createMatch(t, h)

	w := do(t, h, http.MethodPost, "/api/v1/matches/"+m.ID+"/chaos", ChaosRequest{D20: play.Die(5)})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, ErrTypeNoChaosPending, w.Header().Get("X-Error-Type"))
}

func TestPlayValidation(t *testing.T) {
	_, h := newTestServer(t)
	m := createMatch(t, h)
	path := "/api/v1/matches/" + m.ID + "/plays"

	tests := []struct {
		name    string
		body    any
		errType string
	}{
		{"missing d6", PlayRequest{}, ErrTypeValidation},
		{"d6 out of range", PlayRequest{D6: play.Die(7)}, ErrTypeInvalidDice},
		{"d10 missing", PlayRequest{D6: play.Die(4)}, ErrTypeMissingDice},
		{"d10 out of range", PlayRequest{D6: play.Die(3), D10: play.Die(11)}, ErrTypeInvalidDice},
		{"d20 out of range", PlayRequest{D6: play.Die(2), D20: play.Die(0)}, ErrTypeInvalidDice},
		{"not json", "{", ErrTypeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, h, http.MethodPost, path, tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tt.errType, w.Header().Get("X-Error-Type"))
		})
	}

	got := decode[MatchResponse](t, do(t, h, http.MethodGet, "/api/v1/matches/"+m.ID, nil))
	assert.Zero(t, got.Plays)
	assert.Empty(t, got.State.Log)
}

func TestUnknownMatch(t *testing.T) {
	_, h := newTestServer(t)

	w := do(t, h, http.MethodGet, "/api/v1/matches/6f1c2c4e-8e0a-4b4c-9a57-0f0d9f3f1b11", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, h, http.MethodGet, "/api/v1/matches/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteMatch(t *testing.T) {
	s, h := newTestServer(t)
	m := createMatch(t, h)

	w := do(t, h, http.MethodDelete, "/api/v1/matches/"+m.ID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Zero(t, s.sessions.Len())

	w = do(t, h, http.MethodDelete, "/api/v1/matches/"+m.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListMatches(t *testing.T) {
	_, h := newTestServer(t)
	createMatch(t, h)
	createMatch(t, h)

	w := do(t, h, http.MethodGet, "/api/v1/matches", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[struct {
		Matches []MatchResponse `json:"matches"`
		Count   int             `json:"count"`
	}](t, w)
	assert.Equal(t, 2, resp.Count)
	assert.Len(t, resp.Matches, 2)
}

func TestMetricsCountPlays(t *testing.T) {
	_, h := newTestServer(t)
	m := createMatch(t, h)
	do(t, h, http.MethodPost, "/api/v1/matches/"+m.ID+"/plays", PlayRequest{D6: play.Die(2)})
	do(t, h, http.MethodPost, "/api/v1/matches/"+m.ID+"/plays", PlayRequest{D6: play.Die(9)})

	w := do(t, h, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[MetricsResponse](t, w)
	assert.Equal(t, 1, resp.ActiveMatches)
	assert.EqualValues(t, 2, resp.Operations["play"].TotalRequests)
	assert.EqualValues(t, 1, resp.Operations["play"].ErrorRequests)
}

func TestCORSPreflight(t *testing.T) {
	_, h := newTestServer(t)

	w := do(t, h, http.MethodOptions, "/api/v1/matches", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestServeShutsDown(t *testing.T) {
	s := NewServer(testConfig(), zap.NewNop())
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}
	resp, err := client.Get("http://" + ln.Addr().String() + "/health/live")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
