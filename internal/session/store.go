// Package session holds conversational bot state between messages. Sessions
// live in Redis with an idle TTL and a per-provider cap, so an abandoned
// conversation can never pin memory or storage indefinitely.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ErrSessionNotFound = errors.New("session not found")

// Session is the bot's per-conversation state: where the customer is in the
// booking flow and what they have picked so far.
type Session struct {
	ProviderID uuid.UUID  `json:"provider_id"`
	Phone      string     `json:"phone"`
	Step       string     `json:"step"`
	ServiceID  *uuid.UUID `json:"service_id,omitempty"`
	CustomerID *uuid.UUID `json:"customer_id,omitempty"`
	SlotStart  *time.Time `json:"slot_start,omitempty"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

type Store struct {
	client *redis.Client
	ttl    time.Duration
	cap    int64
}

// NewStore creates a session store with the given idle TTL and per-provider
// capacity.
func NewStore(client *redis.Client, ttl time.Duration, capacity int) *Store {
	return &Store{
		client: client,
		ttl:    ttl,
		cap:    int64(capacity),
	}
}

func sessionKey(providerID uuid.UUID, phone string) string {
	return fmt.Sprintf("session:%s:%s", providerID.String(), phone)
}

func indexKey(providerID uuid.UUID) string {
	return fmt.Sprintf("session-index:%s", providerID.String())
}

// Get loads a session and refreshes its idle TTL.
func (s *Store) Get(ctx context.Context, providerID uuid.UUID, phone string) (*Session, error) {
	key := sessionKey(providerID, phone)

	data, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		// A corrupt session is dropped rather than surfaced; the bot simply
		// starts the conversation over.
		_ = s.Delete(ctx, providerID, phone)
		return nil, ErrSessionNotFound
	}

	_ = s.client.Expire(ctx, key, s.ttl).Err()
	_ = s.client.ZAdd(ctx, indexKey(providerID), redis.Z{
		Score:  float64(time.Now().Unix()),
		Member: phone,
	}).Err()

	return &sess, nil
}

// Put writes a session, refreshes its TTL, and evicts the provider's oldest
// sessions when the cap is exceeded.
func (s *Store) Put(ctx context.Context, sess *Session) error {
	sess.UpdatedAt = time.Now()

	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	key := sessionKey(sess.ProviderID, sess.Phone)
	idx := indexKey(sess.ProviderID)

	if err := s.client.Set(ctx, key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	if err := s.client.ZAdd(ctx, idx, redis.Z{
		Score:  float64(sess.UpdatedAt.Unix()),
		Member: sess.Phone,
	}).Err(); err != nil {
		return fmt.Errorf("index session: %w", err)
	}

	return s.evictOverflow(ctx, sess.ProviderID)
}

func (s *Store) Delete(ctx context.Context, providerID uuid.UUID, phone string) error {
	if err := s.client.Del(ctx, sessionKey(providerID, phone)).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return s.client.ZRem(ctx, indexKey(providerID), phone).Err()
}

// evictOverflow drops index entries whose sessions have already expired, then
// removes the oldest live sessions past the cap.
func (s *Store) evictOverflow(ctx context.Context, providerID uuid.UUID) error {
	idx := indexKey(providerID)

	stale := time.Now().Add(-s.ttl).Unix()
	_ = s.client.ZRemRangeByScore(ctx, idx, "-inf", fmt.Sprintf("%d", stale)).Err()

	size, err := s.client.ZCard(ctx, idx).Result()
	if err != nil || size <= s.cap {
		return err
	}

	oldest, err := s.client.ZRange(ctx, idx, 0, size-s.cap-1).Result()
	if err != nil {
		return fmt.Errorf("list overflow sessions: %w", err)
	}

	for _, phone := range oldest {
		_ = s.client.Del(ctx, sessionKey(providerID, phone)).Err()
	}
	return s.client.ZRem(ctx, idx, toMembers(oldest)...).Err()
}

func toMembers(phones []string) []interface{} {
	members := make([]interface{}, len(phones))
	for i, p := range phones {
		members[i] = p
	}
	return members
}
