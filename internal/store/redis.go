package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/efreitasn/pottycalc/internal/domain"
	"github.com/efreitasn/pottycalc/internal/numeric"
)

const (
	updateAttempts = 8
	retryBaseDelay = 5 * time.Millisecond
	retryMaxDelay  = 200 * time.Millisecond
)

// ErrUpdateConflict is returned when an optimistic update keeps losing the
// race against concurrent writers.
var ErrUpdateConflict = errors.New("quote update conflict, retries exhausted")

// RedisQuoteStore keeps quotes as JSON strings under "<prefix>quote:<id>" and
// orders them in the sorted set "<prefix>quotes:by_created", scored by
// creation time in microseconds.
type RedisQuoteStore struct {
	client *redis.Client
	prefix string
	logger *slog.Logger
}

// NewRedisQuoteStore creates a store on an already connected client. prefix
// namespaces every key and may be empty.
func NewRedisQuoteStore(client *redis.Client, prefix string, logger *slog.Logger) *RedisQuoteStore {
	return &RedisQuoteStore{
		client: client,
		prefix: prefix,
		logger: logger.With("component", "quote_store"),
	}
}

// DialRedis connects to addr and pings it, backing off between attempts.
func DialRedis(ctx context.Context, addr string, attempts int, logger *slog.Logger) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if err = client.Ping(ctx).Err(); err == nil {
			return client, nil
		}
		if attempt == attempts-1 {
			break
		}
		delay, _ := numeric.ExponentialBackoff(attempt, 100*time.Millisecond, 5*time.Second)
		logger.Warn("redis ping failed", "addr", addr, "attempt", attempt+1, "retry_in", delay, "error", err)
		if err := sleep(ctx, delay); err != nil {
			client.Close()
			return nil, err
		}
	}
	client.Close()
	return nil, fmt.Errorf("connecting to redis at %s: %w", addr, err)
}

func (s *RedisQuoteStore) quoteKey(id string) string {
	return s.prefix + "quote:" + id
}

func (s *RedisQuoteStore) indexKey() string {
	return s.prefix + "quotes:by_created"
}

// Create writes the quote body and its index entry in one MULTI/EXEC, under
// a WATCH on the body key so two creates of the same ID cannot both succeed.
func (s *RedisQuoteStore) Create(ctx context.Context, q *domain.Quote) error {
	b, err := json.Marshal(q)
	if err != nil {
		return fmt.Errorf("encoding quote %s: %w", q.QuoteID, err)
	}

	key := s.quoteKey(q.QuoteID)
	txf := func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return fmt.Errorf("checking quote %s: %w", q.QuoteID, err)
		}
		if n > 0 {
			return domain.Invalidf("quote %s already exists", q.QuoteID)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, b, 0)
			pipe.ZAdd(ctx, s.indexKey(), redis.Z{
				Score:  float64(q.CreatedAt.UnixMicro()),
				Member: q.QuoteID,
			})
			return nil
		})
		return err
	}
	return s.watchWithRetry(ctx, "creating", q.QuoteID, key, txf)
}

func (s *RedisQuoteStore) Get(ctx context.Context, id string) (*domain.Quote, error) {
	b, err := s.client.Get(ctx, s.quoteKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrQuoteNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading quote %s: %w", id, err)
	}
	return decodeQuote(id, b)
}

// Update runs fn inside WATCH/MULTI, retrying when another writer touches
// the quote first.
func (s *RedisQuoteStore) Update(ctx context.Context, id string, fn func(*domain.Quote) error) (*domain.Quote, error) {
	key := s.quoteKey(id)

	var updated *domain.Quote
	txf := func(tx *redis.Tx) error {
		b, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return domain.ErrQuoteNotFound
		}
		if err != nil {
			return fmt.Errorf("loading quote %s: %w", id, err)
		}

		q, err := decodeQuote(id, b)
		if err != nil {
			return err
		}
		createdAt := q.CreatedAt
		if err := fn(q); err != nil {
			return err
		}
		q.QuoteID = id
		q.CreatedAt = createdAt

		out, err := json.Marshal(q)
		if err != nil {
			return fmt.Errorf("encoding quote %s: %w", id, err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, out, 0)
			return nil
		})
		if err != nil {
			return err
		}
		updated = q
		return nil
	}

	if err := s.watchWithRetry(ctx, "updating", id, key, txf); err != nil {
		return nil, err
	}
	return updated, nil
}

// watchWithRetry runs txf under WATCH on key. When another writer touches
// the key first, the transaction is retried with exponential backoff.
func (s *RedisQuoteStore) watchWithRetry(ctx context.Context, op, id, key string, txf func(*redis.Tx) error) error {
	for attempt := 0; attempt < updateAttempts; attempt++ {
		err := s.client.Watch(ctx, txf, key)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}

		delay, _ := numeric.ExponentialBackoff(attempt, retryBaseDelay, retryMaxDelay)
		s.logger.Warn("quote transaction conflict", "op", op, "quote_id", id, "attempt", attempt+1, "retry_in", delay)
		if err := sleep(ctx, delay); err != nil {
			return err
		}
	}
	return fmt.Errorf("%s quote %s: %w", op, id, ErrUpdateConflict)
}

func (s *RedisQuoteStore) List(ctx context.Context, skip, limit int) ([]*domain.Quote, int, error) {
	if err := checkWindow(skip, limit); err != nil {
		return nil, 0, err
	}

	total, err := s.client.ZCard(ctx, s.indexKey()).Result()
	if err != nil {
		return nil, 0, fmt.Errorf("counting quotes: %w", err)
	}
	ids, err := s.client.ZRevRange(ctx, s.indexKey(), int64(skip), int64(skip+limit-1)).Result()
	if err != nil {
		return nil, 0, fmt.Errorf("listing quotes: %w", err)
	}
	if len(ids) == 0 {
		return []*domain.Quote{}, int(total), nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.quoteKey(id)
	}
	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, 0, fmt.Errorf("loading quotes: %w", err)
	}

	out := make([]*domain.Quote, 0, len(vals))
	for i, v := range vals {
		str, ok := v.(string)
		if !ok {
			// Index entry without a body; skip it rather than fail the page.
			continue
		}
		q, err := decodeQuote(ids[i], []byte(str))
		if err != nil {
			return nil, 0, err
		}
		out = append(out, q)
	}
	return out, int(total), nil
}

func decodeQuote(id string, b []byte) (*domain.Quote, error) {
	var q domain.Quote
	if err := json.Unmarshal(b, &q); err != nil {
		return nil, fmt.Errorf("decoding quote %s: %w", id, err)
	}
	return &q, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
