package relay

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"
)

// claimStore is the slice of a JetStream KeyValue bucket the authority claim needs
type claimStore interface {
	create(ctx context.Context, key string, value []byte) error
	get(ctx context.Context, key string) ([]byte, error)
	delete(ctx context.Context, key string) error
}

var errClaimExists = errors.New("claim exists")

type kvClaimStore struct {
	kv jetstream.KeyValue
}

func (s kvClaimStore) create(ctx context.Context, key string, value []byte) error {
	if _, err := s.kv.Create(ctx, key, value); err != nil {
		if errors.Is(err, jetstream.ErrKeyExists) {
			return errClaimExists
		}
		return err
	}
	return nil
}

func (s kvClaimStore) get(ctx context.Context, key string) ([]byte, error) {
	entry, err := s.kv.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	return entry.Value(), nil
}

func (s kvClaimStore) delete(ctx context.Context, key string) error {
	return s.kv.Delete(ctx, key)
}

// KVAuthority designates the first peer to claim a match as its authority.
// The claim lives in a JetStream KV bucket so every peer agrees on the winner.
type KVAuthority struct {
	store     claimStore
	matchID   uuid.UUID
	peerID    string
	authority atomic.Bool
}

func NewKVAuthority(ctx context.Context, js jetstream.JetStream, cfg Config, matchID uuid.UUID, peerID string) (*KVAuthority, error) {
	kv, err := js.CreateOrUpdateKeyValue(ctx, authorityBucketConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("create authority bucket: %w", err)
	}
	return &KVAuthority{
		store:   kvClaimStore{kv: kv},
		matchID: matchID,
		peerID:  peerID,
	}, nil
}

func (a *KVAuthority) key() string {
	return "match." + a.matchID.String()
}

// authorityBucketConfig keeps claims no longer than AuthorityTTL so a match whose
// authority crashed without releasing can be claimed again
func authorityBucketConfig(cfg Config) jetstream.KeyValueConfig {
	return jetstream.KeyValueConfig{
		Bucket:      cfg.AuthorityBucket,
		Description: "Authority peer per match",
		TTL:         cfg.AuthorityTTL,
	}
}

// Claim tries to become the authority. A peer that already holds the claim keeps it.
func (a *KVAuthority) Claim(ctx context.Context) (bool, error) {
	err := a.store.create(ctx, a.key(), []byte(a.peerID))
	switch {
	case err == nil:
		a.authority.Store(true)
	case errors.Is(err, errClaimExists):
		holder, getErr := a.store.get(ctx, a.key())
		if getErr != nil {
			return false, fmt.Errorf("read authority claim: %w", getErr)
		}
		a.authority.Store(string(holder) == a.peerID)
	default:
		return false, fmt.Errorf("claim authority: %w", err)
	}

	log.Info().
		Str("match_id", a.matchID.String()).
		Str("peer_id", a.peerID).
		Bool("authority", a.authority.Load()).
		Msg("authority claim resolved")

	return a.authority.Load(), nil
}

// Release drops the claim if this peer holds it
func (a *KVAuthority) Release(ctx context.Context) error {
	if !a.authority.Load() {
		return nil
	}
	if err := a.store.delete(ctx, a.key()); err != nil {
		return fmt.Errorf("release authority: %w", err)
	}
	a.authority.Store(false)
	return nil
}

// IsAuthority implements match.Authority
func (a *KVAuthority) IsAuthority() bool {
	return a.authority.Load()
}
