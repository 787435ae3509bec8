package campaign

import (
	"context"
	"strconv"
	"time"

	"github.com/jmehdipour/salon-campaigns/internal/dispatcher"
	"github.com/redis/go-redis/v9"
)

// Progress is the live view of a running campaign.
type Progress struct {
	Done       int     `json:"done"`
	Total      int     `json:"total"`
	Fraction   float64 `json:"fraction"`
	LastPhone  string  `json:"last_phone,omitempty"`
	LastStatus string  `json:"last_status,omitempty"`
}

func progressFrom(p dispatcher.Progress) Progress {
	return Progress{
		Done:       p.Done,
		Total:      p.Total,
		Fraction:   p.Fraction,
		LastPhone:  p.Last.Recipient.Phone,
		LastStatus: p.Last.Status.String(),
	}
}

type ProgressStore interface {
	Save(ctx context.Context, campaignID string, p Progress) error
	// Load reports false when nothing was recorded (or it expired).
	Load(ctx context.Context, campaignID string) (Progress, bool, error)
}

// RedisProgress keeps progress in a hash per campaign.
type RedisProgress struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisProgress(rdb *redis.Client, ttl time.Duration) *RedisProgress {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisProgress{rdb: rdb, ttl: ttl}
}

func progressKey(id string) string { return "campaign:" + id + ":progress" }

func (s *RedisProgress) Save(ctx context.Context, campaignID string, p Progress) error {
	key := progressKey(campaignID)
	pipe := s.rdb.TxPipeline()
	pipe.HSet(ctx, key,
		"done", p.Done,
		"total", p.Total,
		"fraction", strconv.FormatFloat(p.Fraction, 'f', 4, 64),
		"last_phone", p.LastPhone,
		"last_status", p.LastStatus,
	)
	pipe.Expire(ctx, key, s.ttl)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *RedisProgress) Load(ctx context.Context, campaignID string) (Progress, bool, error) {
	m, err := s.rdb.HGetAll(ctx, progressKey(campaignID)).Result()
	if err != nil {
		return Progress{}, false, err
	}
	if len(m) == 0 {
		return Progress{}, false, nil
	}

	p := Progress{LastPhone: m["last_phone"], LastStatus: m["last_status"]}
	p.Done, _ = strconv.Atoi(m["done"])
	p.Total, _ = strconv.Atoi(m["total"])
	p.Fraction, _ = strconv.ParseFloat(m["fraction"], 64)
	return p, true, nil
}
