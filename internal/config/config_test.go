package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_DefaultsAndEnv(t *testing.T) {
	t.Setenv("ENV", "test")
	t.Setenv("PIPELINE_SUMMARY_BATCH_SIZE", "6")
	t.Setenv("OPENROUTER_API_KEY", "sk-or-test")
	t.Setenv("REDIS_HOST", "redis.internal")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 6, cfg.Pipeline.SummaryBatchSize)
	assert.Equal(t, "sk-or-test", cfg.LLM.APIKey)
	assert.Equal(t, "redis.internal:6379", cfg.Redis.Address)
	assert.Equal(t, 5*time.Minute, cfg.Queue.LockDuration)
	assert.Equal(t, int64(32<<20), cfg.Upload.MaxFileSizeBytes())
	assert.Equal(t, "\n\n", cfg.Pipeline.ChunkSeparator)
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Pipeline: PipelineConfig{ChunkMaxChars: 1000, ChunkOverlapChars: 100, SummaryBatchSize: 12},
			Retry:    RetryConfig{MaxAttempts: 5},
			Upload:   UploadConfig{MaxFileSizeMB: 32},
			Credits:  CreditsConfig{QuestionsPerCredit: 10, ChargeDivisor: 10},
			Queue:    QueueConfig{LockDuration: time.Minute},
		}
	}

	assert.NoError(t, valid().Validate())

	c := valid()
	c.Pipeline.ChunkOverlapChars = 1000
	assert.Error(t, c.Validate())

	c = valid()
	c.Retry.MaxAttempts = 0
	assert.Error(t, c.Validate())

	c = valid()
	c.Credits.ChargeDivisor = 0
	assert.Error(t, c.Validate())
}

func TestGetDSN(t *testing.T) {
	cfg := &Config{DB: DBConfig{Host: "db", Port: 1521, User: "glauk", Password: "pw", DBName: "FREEPDB1"}}
	assert.Equal(t, "oracle://glauk:pw@db:1521/FREEPDB1", cfg.GetDSN())
}
