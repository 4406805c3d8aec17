package order

import (
	"context"
	"errors"
	"strings"
	"time"

	"dishdash-be/internal/account"
	"dishdash-be/internal/apperr"
	"dishdash-be/internal/logger"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Service interface {
	Create(ctx context.Context, caller account.Principal, input CreateInput) (*Order, error)
	Get(ctx context.Context, caller account.Principal, id string) (*Order, error)
	List(ctx context.Context, caller account.Principal) ([]Order, error)
	UpdateStatus(ctx context.Context, caller account.Principal, id string, next Status) (*Order, error)
	Cancel(ctx context.Context, caller account.Principal, id string) (*Order, error)
	Statistics(ctx context.Context, caller account.Principal) (*Statistics, error)
}

type Options struct {
	DeliveryFee decimal.Decimal
	Policy      TransitionPolicy
	// CheckPrices rejects lines whose price differs from the catalog.
	CheckPrices bool
	Metrics     Metrics
}

type service struct {
	repo    Repository
	catalog CatalogReader
	opts    Options
}

func NewService(repo Repository, catalog CatalogReader, opts Options) Service {
	if opts.Policy == nil {
		opts.Policy = StrictPolicy
	}
	return &service{repo: repo, catalog: catalog, opts: opts}
}

// pickupLayouts are tried in order; the second is what browser
// datetime-local inputs send.
var pickupLayouts = []string{time.RFC3339, "2006-01-02T15:04"}

func parsePickup(v string) (*time.Time, error) {
	for _, layout := range pickupLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, apperr.Invalid("pickup date and time must look like 2006-01-02T15:04")
}

// validate checks input fail-fast, in the order clients are told about
// problems, and returns the normalized order to persist.
func (s *service) validate(input CreateInput) (*Order, error) {
	o := &Order{FulfillmentMode: input.FulfillmentMode}

	if !input.FulfillmentMode.Valid() {
		return nil, apperr.Invalid(`invalid delivery type, must be "pickup" or "delivery"`)
	}
	switch input.FulfillmentMode {
	case ModeDelivery:
		addr := strings.TrimSpace(input.DeliveryAddress)
		if addr == "" {
			return nil, apperr.Invalid("delivery address is required for delivery orders")
		}
		o.DeliveryAddress = addr
	case ModePickup:
		v := strings.TrimSpace(input.PickupDateTime)
		if v == "" {
			return nil, apperr.Invalid("pickup date and time are required for pickup orders")
		}
		t, err := parsePickup(v)
		if err != nil {
			return nil, err
		}
		o.PickupDateTime = t
	}

	if len(input.Items) == 0 {
		return nil, apperr.Invalid("order must contain at least one item")
	}
	o.Items = make([]LineItem, 0, len(input.Items))
	for i, line := range input.Items {
		if strings.TrimSpace(line.CatalogItemID) == "" {
			return nil, apperr.Invalid("item %d: menu item is required", i+1)
		}
		if line.Quantity < 1 {
			return nil, apperr.Invalid("item %d: quantity must be at least 1", i+1)
		}
		if line.Quantity > MaxQuantity {
			return nil, apperr.Invalid("item %d: quantity must be at most %d", i+1, MaxQuantity)
		}
		if line.UnitPrice.IsNegative() {
			return nil, apperr.Invalid("item %d: price must not be negative", i+1)
		}
		if line.UnitPrice.GreaterThan(MaxTotal) {
			return nil, apperr.Invalid("item %d: price is too large", i+1)
		}
		o.Items = append(o.Items, LineItem{
			CatalogItemID: strings.TrimSpace(line.CatalogItemID),
			Quantity:      line.Quantity,
			UnitPrice:     line.UnitPrice.Round(2),
		})
	}

	phone := strings.TrimSpace(input.Phone)
	if phone == "" {
		return nil, apperr.Invalid("contact phone is required")
	}
	o.Phone = phone
	o.Notes = strings.TrimSpace(input.Notes)

	o.DeliveryFee = FeeFor(o.FulfillmentMode, s.opts.DeliveryFee)
	o.TotalPrice = Total(o.Items, o.FulfillmentMode, s.opts.DeliveryFee)
	if o.TotalPrice.GreaterThan(MaxTotal) {
		return nil, apperr.Invalid("order total must not exceed %s", MaxTotal.StringFixed(2))
	}

	return o, nil
}

func (s *service) checkPrices(ctx context.Context, lines []LineItem) error {
	for _, line := range lines {
		it, err := s.catalog.FindCatalogItemByID(ctx, line.CatalogItemID)
		if err != nil {
			return err
		}
		if it == nil {
			return errUnknownItem(line.CatalogItemID)
		}
		if !it.Available {
			return errItemUnavailable(it.Name)
		}
		if !it.Price.Equal(line.UnitPrice) {
			return errPriceMismatch(it.Name)
		}
	}
	return nil
}

func (s *service) Create(ctx context.Context, caller account.Principal, input CreateInput) (*Order, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "CreateOrder"),
	)

	if err := requireCustomer(caller); err != nil {
		return nil, err
	}

	o, err := s.validate(input)
	if err != nil {
		log.Warn("order rejected", zap.Error(err))
		return nil, err
	}

	key := strings.TrimSpace(input.IdempotencyKey)
	if key != "" {
		existing, err := s.repo.FindOrderByIdempotencyKey(ctx, caller.AccountID, key)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			log.Info("idempotent replay", zap.String("order_id", existing.ID))
			return present(caller, existing), nil
		}
	}

	if s.opts.CheckPrices {
		if err := s.checkPrices(ctx, o.Items); err != nil {
			log.Warn("order rejected", zap.Error(err))
			return nil, err
		}
	}

	o.AccountID = caller.AccountID
	o.Status = StatusPending
	o.IdempotencyKey = key

	created, err := s.repo.CreateOrder(ctx, *o)
	if err != nil {
		if key != "" && errors.Is(err, apperr.ErrConflict) {
			// A concurrent request with the same key won the race.
			existing, findErr := s.repo.FindOrderByIdempotencyKey(ctx, caller.AccountID, key)
			if findErr == nil && existing != nil {
				return present(caller, existing), nil
			}
		}
		log.Error("failed to create order", zap.Error(err))
		return nil, err
	}

	if s.opts.Metrics != nil {
		s.opts.Metrics.OrderCreated(string(created.FulfillmentMode))
	}
	log.Info("order created",
		zap.String("order_id", created.ID),
		zap.String("total", created.TotalPrice.StringFixed(2)),
		zap.Int("items", len(created.Items)),
	)
	return present(caller, created), nil
}

func (s *service) Get(ctx context.Context, caller account.Principal, id string) (*Order, error) {
	if err := requireAuthenticated(caller); err != nil {
		return nil, err
	}

	o, err := s.repo.FindOrderByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, errOrderNotFound()
	}
	if !caller.IsStaff() && o.AccountID != caller.AccountID {
		return nil, errAccessDenied()
	}
	return present(caller, o), nil
}

func (s *service) List(ctx context.Context, caller account.Principal) ([]Order, error) {
	if err := requireAuthenticated(caller); err != nil {
		return nil, err
	}

	var (
		orders []Order
		err    error
	)
	if caller.IsStaff() {
		orders, err = s.repo.ListAllOrders(ctx)
	} else {
		orders, err = s.repo.ListOrdersByAccount(ctx, caller.AccountID)
	}
	if err != nil {
		logger.FromCtx(ctx).Error("failed to list orders",
			zap.String("layer", "service"),
			zap.Error(err),
		)
		return nil, err
	}

	for i := range orders {
		present(caller, &orders[i])
	}
	return orders, nil
}

func (s *service) UpdateStatus(ctx context.Context, caller account.Principal, id string, next Status) (*Order, error) {
	if err := requireStaff(caller); err != nil {
		return nil, err
	}
	if !next.Valid() {
		return nil, apperr.Invalid("invalid status %q", next)
	}

	return s.transition(ctx, caller, id, next, func(o *Order) error {
		if o.Status == next {
			return nil
		}
		if !s.opts.Policy.Allow(o.Status, next) {
			return apperr.Invalid("cannot change status from %s to %s", o.Status, next)
		}
		return nil
	})
}

func (s *service) Cancel(ctx context.Context, caller account.Principal, id string) (*Order, error) {
	if err := requireAuthenticated(caller); err != nil {
		return nil, err
	}

	return s.transition(ctx, caller, id, StatusCancelled, func(o *Order) error {
		if !caller.IsStaff() && o.AccountID != caller.AccountID {
			return errAccessDenied()
		}
		if o.Status != StatusPending {
			return apperr.Invalid("only pending orders can be cancelled")
		}
		return nil
	})
}

// transition applies next through the store's compare-and-set. A conflict
// means another writer moved the order first, so the order is re-read and
// checked once more.
func (s *service) transition(ctx context.Context, caller account.Principal, id string, next Status, check func(*Order) error) (*Order, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "UpdateStatus"),
		zap.String("order_id", id),
	)

	const attempts = 2
	for attempt := 1; ; attempt++ {
		o, err := s.repo.FindOrderByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if o == nil {
			return nil, errOrderNotFound()
		}
		if err := check(o); err != nil {
			return nil, err
		}
		if o.Status == next {
			return present(caller, o), nil
		}

		updated, err := s.repo.SetOrderStatus(ctx, id, o.Status, next)
		if errors.Is(err, apperr.ErrConflict) && attempt < attempts {
			log.Warn("status changed concurrently, retrying", zap.Int("attempt", attempt))
			continue
		}
		if err != nil {
			log.Error("failed to update order status", zap.Error(err))
			return nil, err
		}

		if s.opts.Metrics != nil {
			s.opts.Metrics.StatusChanged(string(o.Status), string(next))
		}
		log.Info("order status updated",
			zap.String("from", string(o.Status)),
			zap.String("to", string(next)),
		)
		return present(caller, updated), nil
	}
}

func (s *service) Statistics(ctx context.Context, caller account.Principal) (*Statistics, error) {
	if err := requireStaff(caller); err != nil {
		return nil, err
	}
	return s.repo.OrderStatistics(ctx)
}

// present drops the owner block when the caller owns the order.
func present(caller account.Principal, o *Order) *Order {
	if o.AccountID == caller.AccountID {
		o.Customer = nil
	}
	return o
}

func requireAuthenticated(caller account.Principal) error {
	if caller.AccountID == "" {
		return apperr.Unauthenticated("authentication required")
	}
	return nil
}

func requireCustomer(caller account.Principal) error {
	if err := requireAuthenticated(caller); err != nil {
		return err
	}
	if !caller.HasRole(account.RoleCustomer) {
		return apperr.Forbidden("only customers can place orders")
	}
	return nil
}

func requireStaff(caller account.Principal) error {
	if err := requireAuthenticated(caller); err != nil {
		return err
	}
	if !caller.IsStaff() {
		return apperr.Forbidden("insufficient permissions")
	}
	return nil
}
