// Package stats serves the read-only earnings and dashboard aggregates.
// Reads run concurrently with commits without coordination; slightly stale
// figures are acceptable, so results sit behind a short-TTL Redis cache with
// singleflight guarding the misses. Read errors degrade to zero values
// instead of propagating.
package stats

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"github.com/techstore/pos/internal/store"
)

const (
	keyEarnings = "stats:earnings"
	keyOverview = "stats:overview"
)

// Earnings are revenue sums over the trailing day, week, month, and all time.
type Earnings struct {
	Daily   decimal.Decimal `json:"daily"`
	Weekly  decimal.Decimal `json:"weekly"`
	Monthly decimal.Decimal `json:"monthly"`
	Total   decimal.Decimal `json:"total"`
}

// Overview backs the dashboard cards.
type Overview struct {
	TodaySales       decimal.Decimal `json:"today_sales"`
	MonthlySales     decimal.Decimal `json:"monthly_sales"`
	ProductCount     int64           `json:"product_count"`
	TransactionCount int64           `json:"transaction_count"`
}

// Service computes aggregates against the shared store. The cache client is
// optional; without it every read goes straight to the database.
type Service struct {
	db      *sql.DB
	cache   *redis.Client
	baseTTL time.Duration
	sfg     singleflight.Group
	now     func() time.Time
}

func NewService(st *store.Store, cache *redis.Client) *Service {
	return &Service{
		db:      st.DB(),
		cache:   cache,
		baseTTL: 30 * time.Second,
		now:     time.Now,
	}
}

func (s *Service) Earnings(ctx context.Context) Earnings {
	v, _, _ := s.sfg.Do(keyEarnings, func() (interface{}, error) {
		var e Earnings
		if s.cacheGet(ctx, keyEarnings, &e) {
			return e, nil
		}
		e = s.queryEarnings(ctx)
		s.cacheSet(keyEarnings, e)
		return e, nil
	})
	return v.(Earnings)
}

func (s *Service) Overview(ctx context.Context) Overview {
	v, _, _ := s.sfg.Do(keyOverview, func() (interface{}, error) {
		var o Overview
		if s.cacheGet(ctx, keyOverview, &o) {
			return o, nil
		}
		o = s.queryOverview(ctx)
		s.cacheSet(keyOverview, o)
		return o, nil
	})
	return v.(Overview)
}

func (s *Service) queryEarnings(ctx context.Context) Earnings {
	now := s.now().UTC()
	dayStart := now.Truncate(24 * time.Hour)
	return Earnings{
		Daily:   s.sumSince(ctx, dayStart),
		Weekly:  s.sumSince(ctx, now.AddDate(0, 0, -7)),
		Monthly: s.sumSince(ctx, now.AddDate(0, -1, 0)),
		Total:   s.sumSince(ctx, time.Time{}),
	}
}

func (s *Service) queryOverview(ctx context.Context) Overview {
	now := s.now().UTC()
	return Overview{
		TodaySales:       s.sumSince(ctx, now.Truncate(24*time.Hour)),
		MonthlySales:     s.sumSince(ctx, now.AddDate(0, -1, 0)),
		ProductCount:     s.count(ctx, `SELECT COUNT(*) FROM products`),
		TransactionCount: s.count(ctx, `SELECT COUNT(*) FROM transactions`),
	}
}

// sumSince totals committed sales from a point in time; the zero time sums
// everything.
func (s *Service) sumSince(ctx context.Context, from time.Time) decimal.Decimal {
	var (
		raw sql.NullString
		err error
	)
	if from.IsZero() {
		err = s.db.QueryRowContext(ctx,
			`SELECT SUM(total_amount) FROM transactions`).Scan(&raw)
	} else {
		err = s.db.QueryRowContext(ctx,
			`SELECT SUM(total_amount) FROM transactions WHERE transaction_date >= $1`, from).Scan(&raw)
	}
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		log.Printf("stats: revenue sum failed: %v", err)
		return decimal.Zero
	}
	if !raw.Valid {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(raw.String)
	if err != nil {
		log.Printf("stats: bad revenue sum %q: %v", raw.String, err)
		return decimal.Zero
	}
	return d
}

func (s *Service) count(ctx context.Context, query string) int64 {
	var n int64
	if err := s.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		log.Printf("stats: count failed: %v", err)
		return 0
	}
	return n
}

func (s *Service) cacheGet(ctx context.Context, key string, dst any) bool {
	if s.cache == nil {
		return false
	}
	data, err := s.cache.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false
	}
	if err != nil {
		log.Printf("stats: cache get error: %v", err)
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		log.Printf("stats: cache unmarshal error: %v", err)
		return false
	}
	return true
}

func (s *Service) cacheSet(key string, value any) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		log.Printf("stats: cache marshal error: %v", err)
		return
	}
	// Jitter spreads expiry so both keys do not refill at once.
	ttl := s.baseTTL + time.Duration(rand.Intn(5))*time.Second
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Set(ctx, key, data, ttl).Err(); err != nil {
		log.Printf("stats: cache set error: %v", err)
	}
}
