package services

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mathpal-app/mathpal_api/dto"
	"github.com/mathpal-app/mathpal_api/shared"
)

// stubLedger is an in-memory QuotaLedger. With unavailable set it mimics a
// down ledger: reads report zero usage and increments are lost.
type stubLedger struct {
	used        map[string]int
	unavailable bool

	getCalls  int
	incrCalls int
}

func newStubLedger() *stubLedger {
	return &stubLedger{used: make(map[string]int)}
}

func (s *stubLedger) DayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

func (s *stubLedger) GetUsed(_ context.Context, identifier, day string) int {
	s.getCalls++
	if s.unavailable {
		return 0
	}
	return s.used[identifier+":"+day]
}

func (s *stubLedger) Increment(_ context.Context, identifier, day string) bool {
	s.incrCalls++
	if !s.unavailable {
		s.used[identifier+":"+day]++
	}
	return true
}

func newTestAdmission(ledger QuotaLedger, clock *time.Time) *AdmissionService {
	return &AdmissionService{
		limiter:    newTestLimiter(clock),
		ledger:     ledger,
		dailyLimit: shared.DailyMessageLimit,
	}
}

func TestAdmissionAllowsAndCommits(t *testing.T) {
	clock := time.Now()
	ledger := newStubLedger()
	svc := newTestAdmission(ledger, &clock)

	result := svc.CheckAndReserve(context.Background(), "1.2.3.4")

	assert.True(t, result.Success)
	assert.Equal(t, shared.BurstMaxRequests-1, result.Remaining)
	require.NotNil(t, result.DailyRemaining)
	assert.Equal(t, shared.DailyMessageLimit-1, *result.DailyRemaining)
	assert.Equal(t, 1, ledger.incrCalls)

	result = svc.CheckAndReserve(context.Background(), "1.2.3.4")
	require.NotNil(t, result.DailyRemaining)
	assert.Equal(t, shared.DailyMessageLimit-2, *result.DailyRemaining)
}

func TestAdmissionBurstGateRunsFirst(t *testing.T) {
	clock := time.Now()
	ledger := newStubLedger()
	svc := newTestAdmission(ledger, &clock)

	for i := 0; i < shared.BurstMaxRequests; i++ {
		svc.CheckAndReserve(context.Background(), "1.2.3.4")
	}
	getCalls := ledger.getCalls

	result := svc.CheckAndReserve(context.Background(), "1.2.3.4")

	assert.False(t, result.Success)
	assert.Equal(t, 0, result.Remaining)
	require.NotNil(t, result.RetryAfterSeconds)
	assert.GreaterOrEqual(t, *result.RetryAfterSeconds, 1)
	assert.LessOrEqual(t, *result.RetryAfterSeconds, 60)
	assert.Nil(t, result.QuotaStatus)

	// The ledger is never consulted for a burst rejection.
	assert.Equal(t, getCalls, ledger.getCalls)
	assert.Equal(t, shared.BurstMaxRequests, ledger.incrCalls)
}

func TestAdmissionQuotaExhausted(t *testing.T) {
	clock := time.Now()
	ledger := newStubLedger()
	svc := newTestAdmission(ledger, &clock)

	day := ledger.DayKey(time.Now())
	ledger.used["1.2.3.4:"+day] = shared.DailyMessageLimit

	result := svc.CheckAndReserve(context.Background(), "1.2.3.4")

	assert.False(t, result.Success)
	assert.Nil(t, result.RetryAfterSeconds)
	require.NotNil(t, result.QuotaStatus)
	assert.Equal(t, shared.DailyMessageLimit, result.QuotaStatus.Used)
	assert.Equal(t, 0, result.QuotaStatus.Remaining)
	assert.Equal(t, shared.DailyMessageLimit, result.QuotaStatus.Limit)
	assert.True(t, result.QuotaStatus.ResetsAt.After(time.Now()))

	// A rejected request must not burn quota.
	assert.Equal(t, 0, ledger.incrCalls)
}

func TestAdmissionFailsOpenOnLedgerOutage(t *testing.T) {
	clock := time.Now()
	ledger := newStubLedger()
	ledger.unavailable = true
	svc := newTestAdmission(ledger, &clock)

	for i := 0; i < 3; i++ {
		result := svc.CheckAndReserve(context.Background(), "1.2.3.4")
		assert.True(t, result.Success)
		require.NotNil(t, result.DailyRemaining)
		assert.Equal(t, shared.DailyMessageLimit-1, *result.DailyRemaining)
	}
}

func TestPeekQuotaStatusIsReadOnly(t *testing.T) {
	clock := time.Now()
	ledger := newStubLedger()
	svc := newTestAdmission(ledger, &clock)

	status := svc.PeekQuotaStatus(context.Background(), "1.2.3.4")

	assert.Equal(t, 0, status.Used)
	assert.Equal(t, shared.DailyMessageLimit, status.Remaining)
	assert.Equal(t, 0, ledger.incrCalls)

	// Peeking must not consume a window slot either.
	decision := svc.limiter.Admit("1.2.3.4")
	assert.True(t, decision.Allowed)
	assert.Equal(t, shared.BurstMaxRequests-1, decision.Remaining)
}

func TestChatAdmissionMiddleware(t *testing.T) {
	clock := time.Now()
	ledger := newStubLedger()
	svc := newTestAdmission(ledger, &clock)

	app := fiber.New(fiber.Config{ErrorHandler: (&HttpService{}).handleError})
	var captured dto.AdmissionResult
	app.Post("/chat", svc.ChatAdmission(), func(c *fiber.Ctx) error {
		captured = c.Locals(shared.AdmissionResultKey).(dto.AdmissionResult)
		return c.SendString("ok")
	})

	send := func() *http.Response {
		t.Helper()
		req := httptest.NewRequest("POST", "/chat", nil)
		req.Header.Set("X-Forwarded-For", "203.0.113.7")
		resp, err := app.Test(req)
		require.NoError(t, err)
		resp.Body.Close()
		return resp
	}

	resp := send()
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "20", resp.Header.Get("X-RateLimit-Limit"))
	assert.Equal(t, "19", resp.Header.Get("X-RateLimit-Remaining"))
	assert.True(t, captured.Success)
	require.NotNil(t, captured.DailyRemaining)
	assert.Equal(t, shared.DailyMessageLimit-1, *captured.DailyRemaining)

	for i := 0; i < shared.BurstMaxRequests-1; i++ {
		send()
	}

	resp = send()
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "0", resp.Header.Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))
}

func TestChatAdmissionMiddlewareQuotaRejection(t *testing.T) {
	clock := time.Now()
	ledger := newStubLedger()
	svc := newTestAdmission(ledger, &clock)

	day := ledger.DayKey(time.Now())
	ledger.used["203.0.113.7:"+day] = shared.DailyMessageLimit

	app := fiber.New(fiber.Config{ErrorHandler: (&HttpService{}).handleError})
	app.Post("/chat", svc.ChatAdmission(), func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})

	req := httptest.NewRequest("POST", "/chat", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.7")
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
	// Quota exhaustion is terminal for the day, not retryable.
	assert.Empty(t, resp.Header.Get("Retry-After"))

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var envelope shared.Response
	require.NoError(t, shared.JSONUnmarshal(body, &envelope))
	assert.Equal(t, fiber.StatusTooManyRequests, envelope.Code)
	assert.Equal(t, "Daily message limit reached.", envelope.Message)

	data, ok := envelope.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "quota_exhausted", data["error"])
}

func TestNextUTCMidnight(t *testing.T) {
	at := time.Date(2026, 8, 28, 15, 30, 45, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC), nextUTCMidnight(at))

	// Local zones bucket by their UTC day.
	late := time.Date(2026, 8, 28, 23, 30, 0, 0, time.FixedZone("UTC-5", -5*3600))
	assert.Equal(t, time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC), nextUTCMidnight(late))
}
