package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mailops/console-backend/internal/model"
	"github.com/mailops/console-backend/internal/progress"
)

// Record is the latest reconciled view of one campaign, as shared between
// console replicas. Whichever replica owns the monitor writes it; any
// replica can serve it.
type Record struct {
	Status          model.CampaignStatus `json:"status"`
	Progress        progress.Snapshot    `json:"progress"`
	CurrentSequence int                  `json:"current_sequence"`
	UpdatedAt       time.Time            `json:"updated_at"`
}

// Connect initializes a Redis client from URL or host:port input.
func Connect(redisURL string) (*redis.Client, error) {
	if strings.HasPrefix(redisURL, "redis://") {
		opt, err := redis.ParseURL(redisURL)
		if err != nil {
			return nil, err
		}
		return redis.NewClient(opt), nil
	}
	return redis.NewClient(&redis.Options{Addr: redisURL}), nil
}

// Store keeps per-campaign progress records in Redis. A nil *Store (or a
// Store around a nil client) is a no-op, so the snapshot layer stays
// optional for single-replica runs.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

func NewStore(client *redis.Client) *Store {
	return &Store{client: client, ttl: 24 * time.Hour}
}

func key(campaignID string) string {
	return "console:progress:" + campaignID
}

func (s *Store) Put(ctx context.Context, campaignID string, rec Record) error {
	if s == nil || s.client == nil {
		return nil
	}
	rec.UpdatedAt = time.Now().UTC()
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key(campaignID), data, s.ttl).Err()
}

func (s *Store) Get(ctx context.Context, campaignID string) (Record, bool, error) {
	if s == nil || s.client == nil {
		return Record{}, false, nil
	}
	data, err := s.client.Get(ctx, key(campaignID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Record{}, false, nil
		}
		return Record{}, false, err
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, false, err
	}
	return rec, true, nil
}

func (s *Store) Delete(ctx context.Context, campaignID string) error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Del(ctx, key(campaignID)).Err()
}
