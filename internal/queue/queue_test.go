package queue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCronSpec(t *testing.T) {
	spec, err := CronSpec("0 9 * * *", "Africa/Lusaka")
	require.NoError(t, err)
	assert.Equal(t, "CRON_TZ=Africa/Lusaka 0 9 * * *", spec)

	spec, err = CronSpec("0 18 * * *", "")
	require.NoError(t, err)
	assert.Equal(t, "0 18 * * *", spec)

	_, err = CronSpec("0 9 * * *", "Mars/Olympus")
	assert.Error(t, err)
}

func TestNewScheduler_RejectsBadJobs(t *testing.T) {
	_, err := NewScheduler(RedisOpt(""), []Job{{TaskType: TaskDailyDigest, Cron: "not a cron"}})
	assert.Error(t, err)

	_, err = NewScheduler(RedisOpt(""), []Job{{TaskType: TaskPremiumExpiry, Cron: "0 9 * * *", TimeZone: "Nowhere/Place"}})
	assert.Error(t, err)
}

func TestWelcomeTaskID(t *testing.T) {
	assert.Equal(t, "welcome:u1", WelcomeTaskID("u1"))
}

func TestRedisOpt(t *testing.T) {
	assert.Equal(t, "localhost:6379", RedisOpt("").Addr)
	assert.Equal(t, "redis:6380", RedisOpt("redis:6380").Addr)
}

func TestBroadcastTaskID(t *testing.T) {
	assert.Equal(t, "broadcast:l1:", BroadcastTaskID("l1", ""))
	assert.Equal(t, "broadcast:l1:u500", BroadcastTaskID("l1", "u500"))
}

func TestBroadcastPageTimeout(t *testing.T) {
	assert.Equal(t, 160*time.Second, BroadcastPageTimeout(500, 10, 100))
	assert.Equal(t, 260*time.Second, BroadcastPageTimeout(100, 1, 1))
	assert.Equal(t, DefaultBroadcastTimeout, BroadcastPageTimeout(500, 10, 0))
	assert.Equal(t, DefaultBroadcastTimeout, BroadcastPageTimeout(0, 10, 100))
}
