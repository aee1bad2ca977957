package services

import (
	"context"
	"strconv"
	"time"

	appContext "github.com/alphabatem/common/context"
	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"

	"github.com/mathpal-app/mathpal_api/dto"
	"github.com/mathpal-app/mathpal_api/shared"
)

// QuotaLedger is the admission controller's view of the daily counter store.
type QuotaLedger interface {
	DayKey(t time.Time) string
	GetUsed(ctx context.Context, identifier, day string) int
	Increment(ctx context.Context, identifier, day string) bool
}

// AdmissionService composes the burst limiter and the daily quota ledger
// into one check-and-commit decision. The limiter gate runs first and sheds
// load before the remote ledger is ever consulted.
type AdmissionService struct {
	appContext.DefaultService

	limiter *SlidingWindowService
	ledger  QuotaLedger

	dailyLimit int
}

const ADMISSION_SVC = "admission_svc"

func (svc AdmissionService) Id() string {
	return ADMISSION_SVC
}

func (svc *AdmissionService) Configure(ctx *appContext.Context) error {
	svc.dailyLimit = shared.DailyMessageLimit
	return svc.DefaultService.Configure(ctx)
}

func (svc *AdmissionService) Start() error {
	svc.limiter = svc.Service(RATE_LIMIT_SVC).(*SlidingWindowService)
	svc.ledger = svc.Service(QUOTA_LEDGER_SVC).(*QuotaLedgerService)
	return nil
}

// CheckAndReserve runs the two gates in order and commits the quota
// increment on success. The reported daily remaining anticipates the
// increment just performed and is advisory only.
func (svc *AdmissionService) CheckAndReserve(ctx context.Context, identifier string) dto.AdmissionResult {
	decision := svc.limiter.Admit(identifier)
	if !decision.Allowed {
		admissionRejectedTotal.WithLabelValues("burst").Inc()
		retryAfter := decision.RetryAfterSeconds
		return dto.AdmissionResult{
			Success:           false,
			Remaining:         0,
			RetryAfterSeconds: &retryAfter,
		}
	}

	now := time.Now()
	day := svc.ledger.DayKey(now)

	used := svc.ledger.GetUsed(ctx, identifier, day)
	if used >= svc.dailyLimit {
		admissionRejectedTotal.WithLabelValues("quota").Inc()
		status := svc.quotaStatus(used, now)
		return dto.AdmissionResult{
			Success:     false,
			Remaining:   decision.Remaining,
			QuotaStatus: &status,
		}
	}

	svc.ledger.Increment(ctx, identifier, day)

	admissionAllowedTotal.Inc()
	dailyRemaining := svc.dailyLimit - used - 1
	return dto.AdmissionResult{
		Success:        true,
		Remaining:      decision.Remaining,
		DailyRemaining: &dailyRemaining,
	}
}

// PeekQuotaStatus is the read-only snapshot for UI display; it never
// touches the limiter window or the ledger counter.
func (svc *AdmissionService) PeekQuotaStatus(ctx context.Context, identifier string) dto.QuotaStatus {
	now := time.Now()
	used := svc.ledger.GetUsed(ctx, identifier, svc.ledger.DayKey(now))
	return svc.quotaStatus(used, now)
}

func (svc *AdmissionService) quotaStatus(used int, now time.Time) dto.QuotaStatus {
	remaining := svc.dailyLimit - used
	if remaining < 0 {
		remaining = 0
	}
	return dto.QuotaStatus{
		Used:      used,
		Remaining: remaining,
		Limit:     svc.dailyLimit,
		ResetsAt:  nextUTCMidnight(now),
	}
}

func nextUTCMidnight(now time.Time) time.Time {
	utc := now.UTC()
	return time.Date(utc.Year(), utc.Month(), utc.Day(), 0, 0, 0, 0, time.UTC).Add(24 * time.Hour)
}

// ==================== MIDDLEWARE ====================

// ChatAdmission gates the chat endpoint. The admission result is stashed in
// the request locals so the handler can echo the remaining budgets.
func (svc *AdmissionService) ChatAdmission() fiber.Handler {
	return func(c *fiber.Ctx) error {
		identifier := shared.ClientIP(c)

		result := svc.CheckAndReserve(c.Context(), identifier)

		c.Set("X-RateLimit-Limit", strconv.Itoa(shared.BurstMaxRequests))
		c.Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))

		if !result.Success {
			return svc.handleRejected(c, identifier, result)
		}

		c.Locals(shared.AdmissionResultKey, result)
		return c.Next()
	}
}

func (svc *AdmissionService) handleRejected(c *fiber.Ctx, identifier string, result dto.AdmissionResult) error {
	if result.RetryAfterSeconds != nil {
		c.Set("Retry-After", strconv.Itoa(*result.RetryAfterSeconds))

		log.WithField("identifier", identifier).Debug("Burst limit rejection")
		return shared.NewTooManyRequestsError("Too many messages. Please slow down.", fiber.Map{
			"error":       "rate_limited",
			"retry_after": *result.RetryAfterSeconds,
		})
	}

	log.WithField("identifier", identifier).Debug("Daily quota rejection")
	return shared.NewTooManyRequestsError("Daily message limit reached.", fiber.Map{
		"error":        "quota_exhausted",
		"quota_status": result.QuotaStatus,
		"resets_at":    result.QuotaStatus.ResetsAt.Unix(),
	})
}
