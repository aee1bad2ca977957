package services

import (
	"context"
	"time"

	appContext "github.com/alphabatem/common/context"
	log "github.com/sirupsen/logrus"

	"github.com/mathpal-app/mathpal_api/model"
	"github.com/mathpal-app/mathpal_api/shared"
)

// QuotaLedgerService tracks per-identifier daily message counts in redis.
// Strict accounting is deliberately traded for availability: any ledger
// failure (down, unconfigured, timed out) reads as "no usage" and increments
// succeed trivially, so admission degrades to always-allow instead of
// blocking traffic.
type QuotaLedgerService struct {
	appContext.DefaultService

	redisSvc *RedisService
}

const QUOTA_LEDGER_SVC = "quota_ledger_svc"

const (
	ledgerCallTimeout = 2 * time.Second

	// Records expire naturally as days roll over; the TTL just keeps dead
	// keys from accumulating.
	ledgerRecordTTL = 48 * time.Hour
)

func (svc QuotaLedgerService) Id() string {
	return QUOTA_LEDGER_SVC
}

func (svc *QuotaLedgerService) Configure(ctx *appContext.Context) error {
	return svc.DefaultService.Configure(ctx)
}

func (svc *QuotaLedgerService) Start() error {
	svc.redisSvc = svc.Service(REDIS_SVC).(*RedisService)
	return nil
}

// DayKey buckets a moment into its UTC calendar day. The key space
// partitions by day, so no reset job is needed.
func (svc *QuotaLedgerService) DayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// GetUsed reports the count recorded for (identifier, day), failing open to
// zero when the ledger cannot answer.
func (svc *QuotaLedgerService) GetUsed(ctx context.Context, identifier, day string) int {
	record, ok := svc.fetchRecord(ctx, identifier, day)
	if !ok {
		return 0
	}
	return record.Count
}

// Increment bumps the counter via read-current → write-current+1. Two
// concurrent increments for the same key can race and under-count; the
// admission path accepts that in exchange for not needing ledger-side
// atomic operations.
func (svc *QuotaLedgerService) Increment(ctx context.Context, identifier, day string) bool {
	if !svc.redisSvc.Available() {
		return true
	}

	record, _ := svc.fetchRecord(ctx, identifier, day)
	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.Count++
	record.LastWrite = now

	data, err := shared.JSONMarshal(record)
	if err != nil {
		log.WithError(err).Warn("Quota ledger record marshal failed")
		return true
	}

	callCtx, cancel := context.WithTimeout(ctx, ledgerCallTimeout)
	defer cancel()

	if err := svc.redisSvc.Set(callCtx, svc.recordKey(identifier, day), data, ledgerRecordTTL); err != nil {
		log.WithError(err).WithField("identifier", identifier).Warn("Quota ledger write failed, failing open")
		return true
	}

	return true
}

func (svc *QuotaLedgerService) fetchRecord(ctx context.Context, identifier, day string) (model.QuotaRecord, bool) {
	var record model.QuotaRecord

	if !svc.redisSvc.Available() {
		return record, false
	}

	callCtx, cancel := context.WithTimeout(ctx, ledgerCallTimeout)
	defer cancel()

	raw, found, err := svc.redisSvc.Get(callCtx, svc.recordKey(identifier, day))
	if err != nil {
		log.WithError(err).WithField("identifier", identifier).Warn("Quota ledger read failed, failing open")
		return record, false
	}
	if !found {
		return record, false
	}

	if err := shared.JSONUnmarshal([]byte(raw), &record); err != nil {
		log.WithError(err).WithField("identifier", identifier).Warn("Quota ledger record corrupt, treating as empty")
		return model.QuotaRecord{}, false
	}

	return record, true
}

func (svc *QuotaLedgerService) recordKey(identifier, day string) string {
	return "quota:" + identifier + ":" + day
}
