package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/dvalchev/storefront/internal/cache"
	"github.com/google/uuid"
)

const (
	listCachePrefix = "products:"
	listCacheTTL    = 5 * time.Minute
)

// Service wraps the repository with read-side caching for listings.
type Service struct {
	repo   Repository
	cache  cache.Cache
	logger *slog.Logger
}

func NewService(repo Repository, c cache.Cache, logger *slog.Logger) *Service {
	return &Service{repo: repo, cache: c, logger: logger}
}

// ListResult is a page of products plus the total match count.
type ListResult struct {
	Products []Product `json:"products"`
	Total    int       `json:"total"`
	Page     int       `json:"page"`
	PerPage  int       `json:"per_page"`
}

func (s *Service) GetByID(ctx context.Context, id string) (*Product, error) {
	return s.repo.GetByID(ctx, id)
}

// List serves paginated catalog pages, caching serialized results.
func (s *Service) List(ctx context.Context, filter ListFilter) (*ListResult, error) {
	filter = filter.Normalize()
	key := fmt.Sprintf("%s%s:%d:%d", listCachePrefix, filter.Category, filter.Page, filter.PageSize)

	if cached, ok := s.cache.Get(ctx, key); ok {
		var result ListResult
		if err := json.Unmarshal(cached, &result); err == nil {
			return &result, nil
		}
		// Unreadable entries fall through to a fresh read.
		s.cache.Invalidate(ctx, key)
	}

	products, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	total, err := s.repo.Count(ctx, filter.Category)
	if err != nil {
		return nil, err
	}

	result := &ListResult{
		Products: products,
		Total:    total,
		Page:     filter.Page,
		PerPage:  filter.PageSize,
	}

	if encoded, err := json.Marshal(result); err == nil {
		s.cache.Set(ctx, key, encoded, listCacheTTL)
	}

	return result, nil
}

func (s *Service) Create(ctx context.Context, product Product) (*Product, error) {
	if err := product.Validate(); err != nil {
		return nil, err
	}

	product.ID = uuid.NewString()
	product.CreatedAt = time.Now().UTC()
	product.UpdatedAt = product.CreatedAt

	if err := s.repo.Create(ctx, product); err != nil {
		return nil, err
	}

	s.cache.Invalidate(ctx, listCachePrefix)
	return &product, nil
}

func (s *Service) Update(ctx context.Context, product Product) (*Product, error) {
	if err := product.Validate(); err != nil {
		return nil, err
	}

	product.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, product); err != nil {
		return nil, err
	}

	s.cache.Invalidate(ctx, listCachePrefix)
	return &product, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.cache.Invalidate(ctx, listCachePrefix)
	return nil
}
