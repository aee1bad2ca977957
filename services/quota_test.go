package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDayKeyBucketsByUTCDay(t *testing.T) {
	svc := &QuotaLedgerService{}

	assert.Equal(t, "2026-08-28", svc.DayKey(time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2026-08-28", svc.DayKey(time.Date(2026, 8, 28, 23, 59, 59, 0, time.UTC)))

	// Local time past local midnight still belongs to its UTC day.
	hanoi := time.FixedZone("UTC+7", 7*3600)
	assert.Equal(t, "2026-08-27", svc.DayKey(time.Date(2026, 8, 28, 6, 30, 0, 0, hanoi)))
}

func TestLedgerFailsOpenWithoutRedis(t *testing.T) {
	svc := &QuotaLedgerService{redisSvc: &RedisService{}}

	assert.Equal(t, 0, svc.GetUsed(context.Background(), "1.2.3.4", "2026-08-28"))
	assert.True(t, svc.Increment(context.Background(), "1.2.3.4", "2026-08-28"))
}

func TestLedgerRecordKey(t *testing.T) {
	svc := &QuotaLedgerService{}
	assert.Equal(t, "quota:1.2.3.4:2026-08-28", svc.recordKey("1.2.3.4", "2026-08-28"))
}
