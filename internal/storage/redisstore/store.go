// Package redisstore is the document/key-value storage engine. Records are
// JSON documents; secondary indexes are plain keys, sets and sorted sets.
package redisstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"dishdash-be/internal/account"
	"dishdash-be/internal/catalog"
	"dishdash-be/internal/order"

	"github.com/go-redis/redis/v8"
)

type Store struct {
	rdb    *redis.Client
	prefix string
}

var _ account.Repository = (*Store)(nil)
var _ catalog.Repository = (*Store)(nil)
var _ order.Repository = (*Store)(nil)

func New(rdb *redis.Client, prefix string) *Store {
	if prefix == "" {
		prefix = "dishdash"
	}
	return &Store{rdb: rdb, prefix: prefix}
}

func (s *Store) Engine() string { return "redis" }

func (s *Store) Ping(ctx context.Context) error {
	if err := s.rdb.Ping(ctx).Err(); err != nil {
		return translate(err, "ping")
	}
	return nil
}

func (s *Store) Close() error {
	return s.rdb.Close()
}

func (s *Store) key(parts ...string) string {
	return s.prefix + ":" + strings.Join(parts, ":")
}

func (s *Store) accountKey(id string) string       { return s.key("account", id) }
func (s *Store) emailKey(email string) string      { return s.key("email", email) }
func (s *Store) itemKey(id string) string          { return s.key("item", id) }
func (s *Store) orderKey(id string) string         { return s.key("order", id) }
func (s *Store) accountOrdersKey(id string) string { return s.key("orders", "account", id) }
func (s *Store) idemKey(accountID, key string) string {
	return s.key("idem", accountID, key)
}

// getter is satisfied by both the client and a WATCH transaction.
type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

// getJSON loads one document. found is false when the key does not exist.
func (s *Store) getJSON(ctx context.Context, cmd getter, key string, dst any) (bool, error) {
	raw, err := cmd.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

// mgetJSON loads many documents in one round trip and calls fn for each
// key that exists, in key order.
func (s *Store) mgetJSON(ctx context.Context, keys []string, fn func(i int, raw []byte) error) error {
	if len(keys) == 0 {
		return nil
	}
	vals, err := s.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return err
	}
	for i, v := range vals {
		str, ok := v.(string)
		if !ok {
			continue
		}
		if err := fn(i, []byte(str)); err != nil {
			return fmt.Errorf("decode %s: %w", keys[i], err)
		}
	}
	return nil
}
