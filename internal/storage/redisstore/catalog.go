package redisstore

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"dishdash-be/internal/apperr"
	"dishdash-be/internal/catalog"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

func (s *Store) CreateCatalogItem(ctx context.Context, it catalog.Item) (*catalog.Item, error) {
	now := time.Now().UTC()
	it.ID = uuid.NewString()
	it.CreatedAt, it.UpdatedAt = now, now

	raw, err := json.Marshal(it)
	if err != nil {
		return nil, err
	}

	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.itemKey(it.ID), raw, 0)
		pipe.SAdd(ctx, s.key("items", "all"), it.ID)
		return nil
	})
	if err != nil {
		return nil, translate(err, "create menu item")
	}
	return &it, nil
}

func (s *Store) FindCatalogItemByID(ctx context.Context, id string) (*catalog.Item, error) {
	var it catalog.Item
	found, err := s.getJSON(ctx, s.rdb, s.itemKey(id), &it)
	if err != nil {
		return nil, translate(err, "find menu item")
	}
	if !found {
		return nil, nil
	}
	return &it, nil
}

// ListCatalogItems filters in process; the catalog is small and has no
// secondary index per category.
func (s *Store) ListCatalogItems(ctx context.Context, filter catalog.Filter) ([]catalog.Item, error) {
	ids, err := s.rdb.SMembers(ctx, s.key("items", "all")).Result()
	if err != nil {
		return nil, translate(err, "list menu items")
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.itemKey(id)
	}

	out := []catalog.Item{}
	err = s.mgetJSON(ctx, keys, func(_ int, raw []byte) error {
		var it catalog.Item
		if err := json.Unmarshal(raw, &it); err != nil {
			return err
		}
		if filter.Match(it) {
			out = append(out, it)
		}
		return nil
	})
	if err != nil {
		return nil, translate(err, "list menu items")
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) UpdateCatalogItem(ctx context.Context, it catalog.Item) (*catalog.Item, error) {
	existing, err := s.FindCatalogItemByID(ctx, it.ID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, apperr.NotFound("menu item not found")
	}
	it.CreatedAt = existing.CreatedAt
	it.UpdatedAt = time.Now().UTC()

	raw, err := json.Marshal(it)
	if err != nil {
		return nil, err
	}
	ok, err := s.rdb.SetXX(ctx, s.itemKey(it.ID), raw, 0).Result()
	if err != nil {
		return nil, translate(err, "update menu item")
	}
	if !ok {
		return nil, apperr.NotFound("menu item not found")
	}
	return &it, nil
}
