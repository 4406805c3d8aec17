package redisstore

import (
	"context"
	"encoding/json"
	"time"

	"dishdash-be/internal/account"
	"dishdash-be/internal/apperr"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

func (s *Store) CreateAccount(ctx context.Context, a account.Account) (*account.Account, error) {
	now := time.Now().UTC()
	a.ID = uuid.NewString()
	a.Email = account.NormalizeEmail(a.Email)
	a.CreatedAt, a.UpdatedAt = now, now

	raw, err := json.Marshal(toAccountDoc(a))
	if err != nil {
		return nil, err
	}
	seq, err := s.rdb.Incr(ctx, s.key("accounts", "seq")).Result()
	if err != nil {
		return nil, translate(err, "create account")
	}

	emailKey := s.emailKey(a.Email)
	err = s.rdb.Watch(ctx, func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, emailKey).Result()
		if err != nil {
			return err
		}
		if n > 0 {
			return apperr.Conflict("email already registered")
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.SetNX(ctx, emailKey, a.ID, 0)
			pipe.Set(ctx, s.accountKey(a.ID), raw, 0)
			pipe.ZAdd(ctx, s.key("accounts", "all"), &redis.Z{Score: float64(seq), Member: a.ID})
			return nil
		})
		return err
	}, emailKey)
	if err == redis.TxFailedErr {
		return nil, apperr.Conflict("email already registered")
	}
	if err != nil {
		return nil, translate(err, "create account")
	}

	return &a, nil
}

func (s *Store) FindAccountByEmail(ctx context.Context, email string) (*account.Account, error) {
	id, err := s.rdb.Get(ctx, s.emailKey(account.NormalizeEmail(email))).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, translate(err, "find account by email")
	}
	return s.FindAccountByID(ctx, id)
}

func (s *Store) FindAccountByID(ctx context.Context, id string) (*account.Account, error) {
	var d accountDoc
	found, err := s.getJSON(ctx, s.rdb, s.accountKey(id), &d)
	if err != nil {
		return nil, translate(err, "find account")
	}
	if !found {
		return nil, nil
	}
	a := d.account()
	return &a, nil
}

// UpdateAccount rewrites the document and moves the email index when the
// address changes.
func (s *Store) UpdateAccount(ctx context.Context, a account.Account) (*account.Account, error) {
	a.Email = account.NormalizeEmail(a.Email)
	a.UpdatedAt = time.Now().UTC()
	docKey := s.accountKey(a.ID)
	newEmailKey := s.emailKey(a.Email)

	err := s.rdb.Watch(ctx, func(tx *redis.Tx) error {
		var existing accountDoc
		found, err := s.getJSON(ctx, tx, docKey, &existing)
		if err != nil {
			return err
		}
		if !found {
			return apperr.NotFound("user not found")
		}
		a.CreatedAt = existing.CreatedAt

		emailChanged := existing.Email != a.Email
		if emailChanged {
			owner, err := tx.Get(ctx, newEmailKey).Result()
			if err != nil && err != redis.Nil {
				return err
			}
			if err == nil && owner != a.ID {
				return apperr.Conflict("email already registered")
			}
		}

		raw, err := json.Marshal(toAccountDoc(a))
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, docKey, raw, 0)
			if emailChanged {
				pipe.Del(ctx, s.emailKey(existing.Email))
				pipe.Set(ctx, newEmailKey, a.ID, 0)
			}
			return nil
		})
		return err
	}, docKey, newEmailKey)
	if err != nil {
		return nil, translate(err, "update account")
	}

	return &a, nil
}

func (s *Store) ListAccounts(ctx context.Context, filter account.Filter) ([]account.Account, error) {
	ids, err := s.rdb.ZRevRange(ctx, s.key("accounts", "all"), 0, -1).Result()
	if err != nil {
		return nil, translate(err, "list accounts")
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.accountKey(id)
	}

	out := []account.Account{}
	err = s.mgetJSON(ctx, keys, func(_ int, raw []byte) error {
		var d accountDoc
		if err := json.Unmarshal(raw, &d); err != nil {
			return err
		}
		if filter.Role != nil && account.Role(d.Role) != *filter.Role {
			return nil
		}
		out = append(out, d.account())
		return nil
	})
	if err != nil {
		return nil, translate(err, "list accounts")
	}
	return out, nil
}
