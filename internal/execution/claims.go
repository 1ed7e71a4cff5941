package execution

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	id "vaultkeeper/pkg/domain"
)

// ClaimStore is the lease that makes instruction execution single-owner
// across workers and processes. Acquire returns false when another live
// owner holds the claim; an expired claim is up for grabs.
type ClaimStore interface {
	Acquire(ctx context.Context, instructionID id.InstructionID, owner string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, instructionID id.InstructionID, owner string) error
}

// InMemoryClaims is the single-process claim store.
type InMemoryClaims struct {
	mu     sync.Mutex
	claims map[id.InstructionID]claim
	now    func() time.Time
}

type claim struct {
	owner     string
	expiresAt time.Time
}

func NewInMemoryClaims() *InMemoryClaims {
	return &InMemoryClaims{claims: make(map[id.InstructionID]claim), now: time.Now}
}

func (c *InMemoryClaims) Acquire(_ context.Context, instructionID id.InstructionID, owner string, ttl time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	if existing, ok := c.claims[instructionID]; ok && existing.expiresAt.After(now) && existing.owner != owner {
		return false, nil
	}
	c.claims[instructionID] = claim{owner: owner, expiresAt: now.Add(ttl)}
	return true, nil
}

func (c *InMemoryClaims) Release(_ context.Context, instructionID id.InstructionID, owner string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.claims[instructionID]; ok && existing.owner == owner {
		delete(c.claims, instructionID)
	}
	return nil
}

// RedisClaims backs claims with Redis SET NX and a TTL, so workers in
// separate processes contend on the same lease.
type RedisClaims struct {
	client *redis.Client
	prefix string
}

func NewRedisClaims(client *redis.Client) *RedisClaims {
	return &RedisClaims{client: client, prefix: "vaultkeeper:claim:"}
}

func (c *RedisClaims) Acquire(ctx context.Context, instructionID id.InstructionID, owner string, ttl time.Duration) (bool, error) {
	return c.client.SetNX(ctx, c.prefix+instructionID.String(), owner, ttl).Result()
}

// Release deletes the claim only when this owner still holds it; a lease
// that expired and was re-acquired belongs to someone else.
func (c *RedisClaims) Release(ctx context.Context, instructionID id.InstructionID, owner string) error {
	const script = `
		if redis.call("GET", KEYS[1]) == ARGV[1] then
			return redis.call("DEL", KEYS[1])
		end
		return 0
	`
	return c.client.Eval(ctx, script, []string{c.prefix + instructionID.String()}, owner).Err()
}
