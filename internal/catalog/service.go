package catalog

import (
	"context"
	"sort"
	"strings"

	"dishdash-be/internal/apperr"
	"dishdash-be/internal/logger"

	"go.uber.org/zap"
)

type Service interface {
	Create(ctx context.Context, input CreateInput) (*Item, error)
	Get(ctx context.Context, id string) (*Item, error)
	List(ctx context.Context, filter Filter) ([]Item, error)
	Update(ctx context.Context, id string, patch Patch) (*Item, error)
	Categories(ctx context.Context) ([]string, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) Create(ctx context.Context, input CreateInput) (*Item, error) {
	it := Item{
		Name:        strings.TrimSpace(input.Name),
		Description: strings.TrimSpace(input.Description),
		Price:       input.Price.Round(2),
		Category:    normalizeCategory(input.Category),
		Image:       strings.TrimSpace(input.Image),
		Available:   true,
	}
	if input.Available != nil {
		it.Available = *input.Available
	}
	if it.Image == "" {
		it.Image = DefaultImage
	}
	if err := validate(it); err != nil {
		return nil, err
	}

	created, err := s.repo.CreateCatalogItem(ctx, it)
	if err != nil {
		logger.FromCtx(ctx).Error("failed to create menu item",
			zap.String("layer", "service"),
			zap.String("name", it.Name),
			zap.Error(err),
		)
		return nil, err
	}
	return created, nil
}

func (s *service) Get(ctx context.Context, id string) (*Item, error) {
	it, err := s.repo.FindCatalogItemByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if it == nil {
		return nil, apperr.NotFound("menu item not found")
	}
	return it, nil
}

func (s *service) List(ctx context.Context, filter Filter) ([]Item, error) {
	if filter.Category != nil {
		c := strings.TrimSpace(*filter.Category)
		if c == "" {
			filter.Category = nil
		} else {
			filter.Category = &c
		}
	}
	return s.repo.ListCatalogItems(ctx, filter)
}

func (s *service) Update(ctx context.Context, id string, patch Patch) (*Item, error) {
	it, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.Name != nil {
		it.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Description != nil {
		it.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.Price != nil {
		it.Price = patch.Price.Round(2)
	}
	if patch.Category != nil {
		it.Category = normalizeCategory(*patch.Category)
	}
	if patch.Image != nil {
		it.Image = strings.TrimSpace(*patch.Image)
	}
	if patch.Available != nil {
		it.Available = *patch.Available
	}
	if err := validate(*it); err != nil {
		return nil, err
	}

	return s.repo.UpdateCatalogItem(ctx, *it)
}

// Categories lists distinct categories of every item, available or not,
// with CategoryNone first and the rest alphabetical.
func (s *service) Categories(ctx context.Context) ([]string, error) {
	items, err := s.repo.ListCatalogItems(ctx, Filter{})
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(items))
	categories := make([]string, 0, len(items))
	for _, it := range items {
		if _, ok := seen[it.Category]; ok {
			continue
		}
		seen[it.Category] = struct{}{}
		categories = append(categories, it.Category)
	}

	sort.Slice(categories, func(i, j int) bool {
		if categories[i] == CategoryNone {
			return categories[j] != CategoryNone
		}
		if categories[j] == CategoryNone {
			return false
		}
		return categories[i] < categories[j]
	})
	return categories, nil
}

func validate(it Item) error {
	if it.Name == "" {
		return apperr.Invalid("name is required")
	}
	if it.Price.IsNegative() {
		return apperr.Invalid("price must not be negative")
	}
	return nil
}

func normalizeCategory(c string) string {
	c = strings.TrimSpace(c)
	if c == "" {
		return CategoryNone
	}
	return c
}
