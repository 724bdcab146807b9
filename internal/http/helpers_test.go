package http

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/example/room-scheduler/internal/application"
	"github.com/example/room-scheduler/internal/cache"
	"github.com/example/room-scheduler/internal/persistence"
	"github.com/example/room-scheduler/internal/scheduler"
	"github.com/example/room-scheduler/internal/testfixtures"
)

const testPassword = "correct-horse"

var testArgon2Params = application.Argon2idParams{
	Memory:      1024,
	Iterations:  1,
	Parallelism: 1,
	SaltLength:  8,
	KeyLength:   16,
}

func init() {
	gin.SetMode(gin.TestMode)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type apiEnv struct {
	t       *testing.T
	harness *testfixtures.SQLiteHarness
	clock   *testfixtures.Clock
	router  *gin.Engine
	manager testfixtures.UserFixture
	student testfixtures.UserFixture
	other   testfixtures.UserFixture
	room    testfixtures.RoomFixture
}

func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()

	harness := testfixtures.NewSQLiteHarness(t)
	clock := testfixtures.NewClock(time.Time{})
	loc := testfixtures.Location()
	logger := discardLogger()
	scheduleCache := cache.NewMemory(time.Minute, 64, clock.NowFunc())

	hash := func(password string) (string, error) {
		return application.CreatePasswordHash(password, testArgon2Params)
	}
	stored, err := hash(testPassword)
	require.NoError(t, err)

	auth := application.NewAuthService(harness.Store, application.VerifyPassword,
		testfixtures.NewIDGenerator("token").NextFunc(), clock.NowFunc(), time.Hour, logger)
	directory := application.NewDirectoryService(harness.Store, hash, clock.NowFunc(), logger)
	bookings := application.NewBookingService(harness.Store, scheduler.DefaultRules(clock.NowFunc()), scheduleCache,
		testfixtures.NewIDGenerator("booking").NextFunc(), logger)
	invitations := application.NewInvitationService(harness.Store, scheduleCache, clock.NowFunc(), logger)
	weekly := application.NewWeeklyQueryService(harness.Store, scheduleCache, loc, logger)
	stats := application.NewStatsService(harness.Store, logger)

	env := &apiEnv{t: t, harness: harness, clock: clock}
	env.router = NewRouter(RouterConfig{
		Auth:     NewAuthHandler(auth, logger),
		Users:    NewUserHandler(directory, weekly, loc, clock.NowFunc(), logger),
		Rooms:    NewRoomHandler(directory, weekly, loc, clock.NowFunc(), logger),
		Bookings: NewBookingHandler(bookings, invitations, loc, logger),
		Stats:    NewStatsHandler(stats, logger),
		Sessions: auth,
		Health:   harness.Store.Ping,
		Logger:   logger,
	})

	env.manager = harness.SeedUser(t, testfixtures.NewUserFixture(
		testfixtures.WithUserRole(persistence.RoleManager),
		testfixtures.WithUserName("Maria", "Rossi"),
		testfixtures.WithUserPasswordHash(stored),
	))
	env.student = harness.SeedUser(t, testfixtures.NewUserFixture(testfixtures.WithUserPasswordHash(stored)))
	env.other = harness.SeedUser(t, testfixtures.NewUserFixture(testfixtures.WithUserPasswordHash(stored)))
	env.room = harness.SeedRoom(t, testfixtures.NewRoomFixture(
		testfixtures.WithRoomName("SalaA"),
		testfixtures.WithRoomSector("Musica"),
		testfixtures.WithRoomCapacity(3),
		testfixtures.WithRoomEquipment("piano"),
	))
	return env
}

type requestOption func(*http.Request)

func withToken(token string) requestOption {
	return func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+token)
	}
}

func withCookie(token string) requestOption {
	return func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: sessionCookieName, Value: token})
	}
}

func (e *apiEnv) do(method, path string, body any, opts ...requestOption) *httptest.ResponseRecorder {
	e.t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		payload, err := json.Marshal(b)
		require.NoError(e.t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, opt := range opts {
		opt(req)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *apiEnv) login(email string) string {
	e.t.Helper()
	rec := e.do(http.MethodPost, "/api/v1/sessions", map[string]string{"email": email, "password": testPassword})
	require.Equal(e.t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp loginResponse
	decodeBody(e.t, rec, &resp)
	require.NotEmpty(e.t, resp.Token)
	return resp.Token
}

func (e *apiEnv) createBooking(token string, payload map[string]any) createBookingResponse {
	e.t.Helper()
	rec := e.do(http.MethodPost, "/api/v1/bookings", payload, withToken(token))
	require.Equal(e.t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp createBookingResponse
	decodeBody(e.t, rec, &resp)
	return resp
}

func (e *apiEnv) bookingPayload(start string, hours int, invitees ...string) map[string]any {
	return map[string]any{
		"start":    start,
		"duration": hours,
		"sector":   e.room.Sector,
		"room":     e.room.Name,
		"activity": "Prove coro",
		"invitees": invitees,
	}
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dst), rec.Body.String())
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var resp errorResponse
	decodeBody(t, rec, &resp)
	return resp
}

func ginContextFor(req *http.Request) (*gin.Context, *httptest.ResponseRecorder) {
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = req
	return c, rec
}
