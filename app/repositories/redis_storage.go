package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const (
	defaultRedisPrefix  = "axen:"
	defaultRedisChannel = "axen:storage"
)

// RedisStorage shares cart state between processes. Every change is
// announced on a pub/sub channel so views served by other instances can
// re-read.
type RedisStorage struct {
	rdb     *redis.Client
	prefix  string
	channel string
	logger  *zap.Logger
}

func NewRedisStorage(rdb *redis.Client, logger *zap.Logger) *RedisStorage {
	return &RedisStorage{
		rdb:     rdb,
		prefix:  defaultRedisPrefix,
		channel: defaultRedisChannel,
		logger:  logger,
	}
}

func (s *RedisStorage) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := s.rdb.Get(ctx, s.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrKeyNotFound
		}
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return value, nil
}

func (s *RedisStorage) Set(ctx context.Context, origin, key string, value []byte) error {
	msg, err := json.Marshal(StorageEvent{Key: key, Origin: origin})
	if err != nil {
		return err
	}

	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.prefix+key, value, 0)
		pipe.Publish(ctx, s.channel, msg)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (s *RedisStorage) Delete(ctx context.Context, origin, key string) error {
	removed, err := s.rdb.Del(ctx, s.prefix+key).Result()
	if err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	if removed == 0 {
		return nil
	}

	msg, err := json.Marshal(StorageEvent{Key: key, Origin: origin})
	if err != nil {
		return err
	}
	if err := s.rdb.Publish(ctx, s.channel, msg).Err(); err != nil {
		return fmt.Errorf("redis publish %s: %w", key, err)
	}
	return nil
}

// Take relies on GETDEL, so only one client ever receives the value.
func (s *RedisStorage) Take(ctx context.Context, origin, key string) ([]byte, error) {
	value, err := s.rdb.GetDel(ctx, s.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrKeyNotFound
		}
		return nil, fmt.Errorf("redis getdel %s: %w", key, err)
	}

	msg, err := json.Marshal(StorageEvent{Key: key, Origin: origin})
	if err != nil {
		return nil, err
	}
	if err := s.rdb.Publish(ctx, s.channel, msg).Err(); err != nil {
		s.logger.Warn("announcing take failed", zap.String("key", key), zap.Error(err))
	}
	return value, nil
}

// Subscribe blocks until the channel subscription is confirmed, then
// delivers events on a background goroutine until cancel is called or ctx
// ends.
func (s *RedisStorage) Subscribe(ctx context.Context, fn func(StorageEvent)) (func(), error) {
	pubsub := s.rdb.Subscribe(ctx, s.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("redis subscribe %s: %w", s.channel, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var ev StorageEvent
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					s.logger.Warn("ignoring malformed storage event", zap.String("payload", msg.Payload), zap.Error(err))
					continue
				}
				fn(ev)
			}
		}
	}()

	return func() {
		cancel()
		_ = pubsub.Close()
		<-done
	}, nil
}
