// Package queue implements domain.JobQueue on Redis.
//
// Layout under glauk:queue:{name}:
//
//	wait          list of job ids, pushed left and leased from the right
//	active        list of job ids currently leased
//	leases        sorted set of leased ids scored by lease expiry (unix ms)
//	job:{id}      hash with name, owner, payload, state, progress, attempts,
//	              result, error, created_at, finished_at
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"glauk-api/internal/cache"
	"glauk-api/internal/domain"
	"glauk-api/internal/util"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	defaultLockDuration = 5 * time.Minute
	defaultResultTTL    = 24 * time.Hour
	defaultMaxAttempts  = 3
)

// leaseScript records the lease of an id BLMOVE just put on the active list.
// KEYS: job hash, leases, active. ARGV: id, lease expiry ms, now ms.
// A missing hash is cleaned off the active list and returns nil.
var leaseScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  redis.call('LREM', KEYS[3], 0, ARGV[1])
  redis.call('ZREM', KEYS[2], ARGV[1])
  return false
end
redis.call('ZADD', KEYS[2], ARGV[2], ARGV[1])
redis.call('HSET', KEYS[1], 'state', 'active', 'started_at', ARGV[3])
redis.call('HINCRBY', KEYS[1], 'attempts', 1)
return redis.call('HMGET', KEYS[1], 'name', 'owner', 'payload', 'attempts')
`)

// adoptScript gives an active id with no lease one, so a worker that died
// between BLMOVE and leaseScript cannot strand the job.
// KEYS: active, leases. ARGV: id, lease expiry ms.
var adoptScript = redis.NewScript(`
if redis.call('ZSCORE', KEYS[2], ARGV[1]) then
  return 0
end
if not redis.call('LPOS', KEYS[1], ARGV[1]) then
  return 0
end
redis.call('ZADD', KEYS[2], ARGV[2], ARGV[1])
return 1
`)

// Options tunes lease and retention behaviour.
type Options struct {
	LockDuration time.Duration
	ResultTTL    time.Duration
	MaxAttempts  int
}

type RedisQueue struct {
	client redis.UniversalClient
	name   string
	opts   Options
	logger *zap.Logger

	now   func() time.Time
	newID func() string
}

var _ domain.JobQueue = (*RedisQueue)(nil)

func NewRedisQueue(client redis.UniversalClient, name string, opts Options, logger *zap.Logger) *RedisQueue {
	if opts.LockDuration <= 0 {
		opts.LockDuration = defaultLockDuration
	}
	if opts.ResultTTL <= 0 {
		opts.ResultTTL = defaultResultTTL
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = defaultMaxAttempts
	}
	if name == "" {
		name = domain.QuizQueueName
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisQueue{
		client: client,
		name:   name,
		opts:   opts,
		logger: logger.With(zap.String("queue", name)),
		now:    time.Now,
		newID:  util.NewULID,
	}
}

func (q *RedisQueue) waitKey() string           { return cache.QueueKey(q.name, "wait") }
func (q *RedisQueue) activeKey() string         { return cache.QueueKey(q.name, "active") }
func (q *RedisQueue) leasesKey() string         { return cache.QueueKey(q.name, "leases") }
func (q *RedisQueue) jobKey(id string) string   { return cache.QueueKey(q.name, "job", id) }
func (q *RedisQueue) millis(t time.Time) string { return strconv.FormatInt(t.UnixMilli(), 10) }

func (q *RedisQueue) Enqueue(ctx context.Context, jobName, owner string, payload interface{}) (*domain.JobHandle, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, domain.NewInternalError("failed to encode job payload", err)
	}

	id := q.newID()
	_, err = q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, q.jobKey(id),
			"name", jobName,
			"owner", owner,
			"payload", string(body),
			"state", string(domain.JobStateQueued),
			"progress", "0",
			"attempts", "0",
			"created_at", q.millis(q.now()),
		)
		pipe.LPush(ctx, q.waitKey(), id)
		return nil
	})
	if err != nil {
		return nil, domain.NewInternalError("failed to enqueue job", err)
	}

	q.logger.Info("Job enqueued", zap.String("job_id", id), zap.String("job_name", jobName))
	return &domain.JobHandle{ID: id, State: domain.JobStateQueued}, nil
}

// Lease blocks up to wait for a job. It returns nil, nil when nothing arrived.
func (q *RedisQueue) Lease(ctx context.Context, wait time.Duration) (*domain.Job, error) {
	id, err := q.client.BLMove(ctx, q.waitKey(), q.activeKey(), "RIGHT", "LEFT", wait).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lease: %w", err)
	}

	now := q.now()
	vals, err := leaseScript.Run(ctx, q.client,
		[]string{q.jobKey(id), q.leasesKey(), q.activeKey()},
		id, q.millis(now.Add(q.opts.LockDuration)), q.millis(now),
	).Slice()
	if errors.Is(err, redis.Nil) {
		// hash expired or was removed while the id sat in the wait list
		q.logger.Warn("Dropping job without data", zap.String("job_id", id))
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lease %s: %w", id, err)
	}
	if len(vals) != 4 {
		return nil, fmt.Errorf("lease %s: unexpected reply %v", id, vals)
	}

	attempts, _ := strconv.Atoi(asString(vals[3]))
	return &domain.Job{
		ID:       id,
		Name:     asString(vals[0]),
		Owner:    asString(vals[1]),
		Payload:  json.RawMessage(asString(vals[2])),
		Attempts: attempts,
	}, nil
}

// Extend pushes the lease expiry forward. ErrLeaseLost means the job was reclaimed.
func (q *RedisQueue) Extend(ctx context.Context, jobID string) error {
	changed, err := q.client.ZAddArgs(ctx, q.leasesKey(), redis.ZAddArgs{
		XX: true,
		Ch: true,
		Members: []redis.Z{{
			Score:  float64(q.now().Add(q.opts.LockDuration).UnixMilli()),
			Member: jobID,
		}},
	}).Result()
	if err != nil {
		return fmt.Errorf("extend %s: %w", jobID, err)
	}
	if changed == 0 {
		return domain.ErrLeaseLost
	}
	return nil
}

func (q *RedisQueue) Progress(ctx context.Context, jobID string, pct int) error {
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	return q.client.HSet(ctx, q.jobKey(jobID), "progress", strconv.Itoa(pct)).Err()
}

func (q *RedisQueue) Complete(ctx context.Context, jobID string, result interface{}) error {
	body, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode result for %s: %w", jobID, err)
	}
	return q.finish(ctx, jobID, "state", string(domain.JobStateCompleted), "progress", "100", "result", string(body))
}

func (q *RedisQueue) Fail(ctx context.Context, jobID string, cause error) error {
	msg := "unknown error"
	if cause != nil {
		msg = cause.Error()
	}
	return q.finish(ctx, jobID, "state", string(domain.JobStateFailed), "error", msg)
}

func (q *RedisQueue) finish(ctx context.Context, jobID string, values ...interface{}) error {
	values = append(values, "finished_at", q.millis(q.now()))
	_, err := q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, q.jobKey(jobID), values...)
		pipe.Expire(ctx, q.jobKey(jobID), q.opts.ResultTTL)
		pipe.LRem(ctx, q.activeKey(), 0, jobID)
		pipe.ZRem(ctx, q.leasesKey(), jobID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("finish %s: %w", jobID, err)
	}
	return nil
}

// ReclaimExpired returns jobs with expired leases to the front of the wait
// list, or fails them once they have used up their attempts. Only the caller
// whose ZREM succeeds acts on a given job. Active jobs without a lease are
// given one first, so they come back once it expires.
func (q *RedisQueue) ReclaimExpired(ctx context.Context) (int, error) {
	if err := q.adoptUnleased(ctx); err != nil {
		return 0, err
	}

	ids, err := q.client.ZRangeByScore(ctx, q.leasesKey(), &redis.ZRangeBy{
		Min: "-inf",
		Max: q.millis(q.now()),
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("scan leases: %w", err)
	}

	reclaimed := 0
	for _, id := range ids {
		removed, err := q.client.ZRem(ctx, q.leasesKey(), id).Result()
		if err != nil {
			return reclaimed, fmt.Errorf("claim expired lease %s: %w", id, err)
		}
		if removed == 0 {
			continue
		}

		attempts, err := q.client.HGet(ctx, q.jobKey(id), "attempts").Int()
		if err != nil && !errors.Is(err, redis.Nil) {
			return reclaimed, fmt.Errorf("read attempts for %s: %w", id, err)
		}
		if attempts >= q.opts.MaxAttempts {
			q.logger.Warn("Job exhausted its attempts", zap.String("job_id", id), zap.Int("attempts", attempts))
			if err := q.Fail(ctx, id, fmt.Errorf("lease expired after %d attempts", attempts)); err != nil {
				return reclaimed, err
			}
			continue
		}

		_, err = q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.LRem(ctx, q.activeKey(), 0, id)
			pipe.HSet(ctx, q.jobKey(id), "state", string(domain.JobStateQueued))
			pipe.RPush(ctx, q.waitKey(), id)
			return nil
		})
		if err != nil {
			return reclaimed, fmt.Errorf("requeue %s: %w", id, err)
		}
		q.logger.Info("Reclaimed expired lease", zap.String("job_id", id), zap.Int("attempts", attempts))
		reclaimed++
	}
	return reclaimed, nil
}

func (q *RedisQueue) adoptUnleased(ctx context.Context) error {
	ids, err := q.client.LRange(ctx, q.activeKey(), 0, -1).Result()
	if err != nil {
		return fmt.Errorf("scan active: %w", err)
	}
	expiry := q.millis(q.now().Add(q.opts.LockDuration))
	for _, id := range ids {
		adopted, err := adoptScript.Run(ctx, q.client, []string{q.activeKey(), q.leasesKey()}, id, expiry).Int()
		if err != nil {
			return fmt.Errorf("adopt %s: %w", id, err)
		}
		if adopted == 1 {
			q.logger.Warn("Active job had no lease, leasing it for reclaim", zap.String("job_id", id))
		}
	}
	return nil
}

func (q *RedisQueue) Status(ctx context.Context, jobID string) (*domain.JobStatus, error) {
	fields, err := q.client.HGetAll(ctx, q.jobKey(jobID)).Result()
	if err != nil {
		return nil, domain.NewInternalError("failed to read job status", err)
	}
	if len(fields) == 0 {
		return nil, domain.NewNotFoundError("job not found").WithContext("jobId", jobID)
	}

	status := &domain.JobStatus{
		ID:    jobID,
		Name:  fields["name"],
		State: domain.JobState(fields["state"]),
		Error: fields["error"],
		Owner: fields["owner"],
	}
	status.Progress, _ = strconv.Atoi(fields["progress"])
	status.Attempts, _ = strconv.Atoi(fields["attempts"])
	if r := fields["result"]; r != "" {
		status.Result = json.RawMessage(r)
	}
	if ms, err := strconv.ParseInt(fields["created_at"], 10, 64); err == nil {
		status.CreatedAt = time.UnixMilli(ms).UTC()
	}
	if ms, err := strconv.ParseInt(fields["finished_at"], 10, 64); err == nil {
		finished := time.UnixMilli(ms).UTC()
		status.FinishedAt = &finished
	}
	return status, nil
}

func asString(v interface{}) string {
	switch s := v.(type) {
	case string:
		return s
	case nil:
		return ""
	default:
		return fmt.Sprint(s)
	}
}
