package redisstore

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"dishdash-be/internal/account"
	"dishdash-be/internal/apperr"
	"dishdash-be/internal/catalog"
	"dishdash-be/internal/order"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// CreateOrder writes the order document, both listing indexes and the
// idempotency pointer in one MULTI/EXEC. The owner and every catalog item
// must exist.
func (s *Store) CreateOrder(ctx context.Context, o order.Order) (*order.Order, error) {
	now := time.Now().UTC()
	o.ID = uuid.NewString()
	o.CreatedAt, o.UpdatedAt = now, now
	o.Items = append([]order.LineItem(nil), o.Items...)
	for i := range o.Items {
		o.Items[i].ID = o.ID + "-" + strconv.Itoa(i+1)
	}

	seq, err := s.rdb.Incr(ctx, s.key("orders", "seq")).Result()
	if err != nil {
		return nil, translate(err, "create order")
	}
	d := toOrderDoc(o)
	d.Seq = seq
	raw, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}

	write := func(pipe redis.Pipeliner) error {
		z := &redis.Z{Score: float64(seq), Member: o.ID}
		pipe.Set(ctx, s.orderKey(o.ID), raw, 0)
		pipe.ZAdd(ctx, s.key("orders", "all"), z)
		pipe.ZAdd(ctx, s.accountOrdersKey(o.AccountID), z)
		if o.IdempotencyKey != "" {
			pipe.SetNX(ctx, s.idemKey(o.AccountID, o.IdempotencyKey), o.ID, 0)
		}
		return nil
	}

	// Referenced records are watched so a concurrent change aborts the write.
	refKeys := []string{s.accountKey(o.AccountID)}
	seen := map[string]bool{}
	for _, li := range o.Items {
		if !seen[li.CatalogItemID] {
			seen[li.CatalogItemID] = true
			refKeys = append(refKeys, s.itemKey(li.CatalogItemID))
		}
	}
	var idemKey string
	if o.IdempotencyKey != "" {
		idemKey = s.idemKey(o.AccountID, o.IdempotencyKey)
		refKeys = append(refKeys, idemKey)
	}

	err = s.rdb.Watch(ctx, func(tx *redis.Tx) error {
		if err := s.checkOrderRefs(ctx, tx, o); err != nil {
			return err
		}
		if idemKey != "" {
			n, err := tx.Exists(ctx, idemKey).Result()
			if err != nil {
				return err
			}
			if n > 0 {
				return apperr.Conflict("duplicate idempotency key")
			}
		}
		_, err := tx.TxPipelined(ctx, write)
		return err
	}, refKeys...)
	if err == redis.TxFailedErr && idemKey != "" {
		n, existsErr := s.rdb.Exists(ctx, idemKey).Result()
		if existsErr == nil && n > 0 {
			err = apperr.Conflict("duplicate idempotency key")
		}
	}
	if err != nil {
		return nil, translate(err, "create order")
	}

	out := d.order()
	if err := s.enrich(ctx, []*order.Order{&out}); err != nil {
		return nil, err
	}
	return &out, nil
}

// checkOrderRefs rejects orders whose owner or catalog items do not exist,
// matching the foreign keys of the relational engine.
func (s *Store) checkOrderRefs(ctx context.Context, tx *redis.Tx, o order.Order) error {
	n, err := tx.Exists(ctx, s.accountKey(o.AccountID)).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.Invalid("referenced record does not exist")
	}

	for _, li := range o.Items {
		n, err := tx.Exists(ctx, s.itemKey(li.CatalogItemID)).Result()
		if err != nil {
			return err
		}
		if n == 0 {
			return apperr.Invalid("unknown_item: menu item %s does not exist", li.CatalogItemID)
		}
	}
	return nil
}

// enrich joins catalog and owner display fields onto orders with one MGET
// per record type.
func (s *Store) enrich(ctx context.Context, orders []*order.Order) error {
	var itemKeys, accountKeys []string
	seenItem := map[string]bool{}
	seenAccount := map[string]bool{}
	for _, o := range orders {
		if !seenAccount[o.AccountID] {
			seenAccount[o.AccountID] = true
			accountKeys = append(accountKeys, s.accountKey(o.AccountID))
		}
		for _, li := range o.Items {
			if !seenItem[li.CatalogItemID] {
				seenItem[li.CatalogItemID] = true
				itemKeys = append(itemKeys, s.itemKey(li.CatalogItemID))
			}
		}
	}

	items := map[string]*catalog.Summary{}
	err := s.mgetJSON(ctx, itemKeys, func(_ int, raw []byte) error {
		var it catalog.Item
		if err := json.Unmarshal(raw, &it); err != nil {
			return err
		}
		items[it.ID] = it.Summary()
		return nil
	})
	if err != nil {
		return translate(err, "enrich order items")
	}

	owners := map[string]*account.Summary{}
	err = s.mgetJSON(ctx, accountKeys, func(_ int, raw []byte) error {
		var d accountDoc
		if err := json.Unmarshal(raw, &d); err != nil {
			return err
		}
		a := d.account()
		owners[a.ID] = a.Summary()
		return nil
	})
	if err != nil {
		return translate(err, "enrich order owners")
	}

	for _, o := range orders {
		o.Customer = owners[o.AccountID]
		for i := range o.Items {
			o.Items[i].Item = items[o.Items[i].CatalogItemID]
		}
	}
	return nil
}

func (s *Store) loadOrders(ctx context.Context, op string, ids []string) ([]order.Order, error) {
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.orderKey(id)
	}

	out := make([]order.Order, 0, len(ids))
	err := s.mgetJSON(ctx, keys, func(_ int, raw []byte) error {
		var d orderDoc
		if err := json.Unmarshal(raw, &d); err != nil {
			return err
		}
		out = append(out, d.order())
		return nil
	})
	if err != nil {
		return nil, translate(err, op)
	}

	ptrs := make([]*order.Order, len(out))
	for i := range out {
		ptrs[i] = &out[i]
	}
	if err := s.enrich(ctx, ptrs); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) FindOrderByID(ctx context.Context, id string) (*order.Order, error) {
	orders, err := s.loadOrders(ctx, "find order", []string{id})
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, nil
	}
	return &orders[0], nil
}

func (s *Store) FindOrderByIdempotencyKey(ctx context.Context, accountID, key string) (*order.Order, error) {
	if key == "" {
		return nil, nil
	}
	id, err := s.rdb.Get(ctx, s.idemKey(accountID, key)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, translate(err, "find order by idempotency key")
	}
	return s.FindOrderByID(ctx, id)
}

func (s *Store) ListOrdersByAccount(ctx context.Context, accountID string) ([]order.Order, error) {
	ids, err := s.rdb.ZRevRange(ctx, s.accountOrdersKey(accountID), 0, -1).Result()
	if err != nil {
		return nil, translate(err, "list account orders")
	}
	return s.loadOrders(ctx, "list account orders", ids)
}

func (s *Store) ListAllOrders(ctx context.Context) ([]order.Order, error) {
	ids, err := s.rdb.ZRevRange(ctx, s.key("orders", "all"), 0, -1).Result()
	if err != nil {
		return nil, translate(err, "list orders")
	}
	return s.loadOrders(ctx, "list orders", ids)
}

// SetOrderStatus is a WATCH based compare-and-set on the order document.
func (s *Store) SetOrderStatus(ctx context.Context, id string, from, to order.Status) (*order.Order, error) {
	docKey := s.orderKey(id)
	var d orderDoc

	err := s.rdb.Watch(ctx, func(tx *redis.Tx) error {
		found, err := s.getJSON(ctx, tx, docKey, &d)
		if err != nil {
			return err
		}
		if !found {
			return apperr.NotFound("order not found")
		}
		if d.Status != string(from) {
			return apperr.Conflict("order status is no longer %s", from)
		}

		d.Status = string(to)
		d.UpdatedAt = time.Now().UTC()
		raw, err := json.Marshal(d)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, docKey, raw, 0)
			return nil
		})
		return err
	}, docKey)
	if err != nil {
		return nil, translate(err, "set order status")
	}

	out := d.order()
	if err := s.enrich(ctx, []*order.Order{&out}); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Store) OrderStatistics(ctx context.Context) (*order.Statistics, error) {
	ids, err := s.rdb.ZRange(ctx, s.key("orders", "all"), 0, -1).Result()
	if err != nil {
		return nil, translate(err, "order statistics")
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.orderKey(id)
	}

	st := order.NewStatistics()
	err = s.mgetJSON(ctx, keys, func(_ int, raw []byte) error {
		var d orderDoc
		if err := json.Unmarshal(raw, &d); err != nil {
			return err
		}
		st.Add(order.Status(d.Status), d.TotalPrice)
		return nil
	})
	if err != nil {
		return nil, translate(err, "order statistics")
	}
	return st, nil
}
