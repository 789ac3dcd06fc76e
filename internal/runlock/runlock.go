// Package runlock provides a best-effort Redis advisory lock so that a
// slow settlement run and a freshly triggered one do not usually
// overlap. It is not a correctness guard: the conditional referral
// write stays the only protection that matters under overlap.
package runlock

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ErrNotHeld = errors.New("run lock not held by this runner")

type Options struct {
	Addr     string
	Password string
	DB       int
	Key      string
	TTL      time.Duration
}

type Lock struct {
	client *redis.Client
	key    string
	ttl    time.Duration
	token  string
}

func New(opts Options) *Lock {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	key := opts.Key
	if key == "" {
		key = "settlement:run-lock"
	}

	return &Lock{
		client: client,
		key:    key,
		ttl:    opts.TTL,
	}
}

// TryAcquire attempts to take the lock without blocking. The TTL caps
// how long a crashed runner can hold it.
func (l *Lock) TryAcquire(ctx context.Context) (bool, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		return false, err
	}
	if ok {
		l.token = token
	}
	return ok, nil
}

// Release drops the lock if this runner still holds it. A lock that
// expired and was re-acquired elsewhere is left alone.
func (l *Lock) Release(ctx context.Context) error {
	if l.token == "" {
		return ErrNotHeld
	}

	current, err := l.client.Get(ctx, l.key).Result()
	if err == redis.Nil {
		l.token = ""
		return nil
	}
	if err != nil {
		return err
	}
	if current != l.token {
		l.token = ""
		return ErrNotHeld
	}

	err = l.client.Del(ctx, l.key).Err()
	l.token = ""
	return err
}

func (l *Lock) Close() error {
	return l.client.Close()
}
