package coupon

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Service bundles coupon management and validation quotes.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Create(ctx context.Context, c Coupon) (*Coupon, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	c.ID = uuid.NewString()
	c.Code = NormalizeCode(c.Code)
	if c.StartDate.IsZero() {
		c.StartDate = time.Now().UTC()
	}
	c.UsageCount = 0
	c.IsActive = true
	c.CreatedAt = time.Now().UTC()
	c.UpdatedAt = c.CreatedAt

	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Service) GetByCode(ctx context.Context, code string) (*Coupon, error) {
	return s.repo.GetByCode(ctx, code)
}

type ListResult struct {
	Coupons []Coupon `json:"coupons"`
	Total   int      `json:"total"`
	Page    int      `json:"page"`
	PerPage int      `json:"per_page"`
}

func (s *Service) List(ctx context.Context, page, pageSize int) (*ListResult, error) {
	coupons, err := s.repo.List(ctx, page, pageSize)
	if err != nil {
		return nil, err
	}
	total, err := s.repo.Count(ctx)
	if err != nil {
		return nil, err
	}
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 10
	}
	return &ListResult{Coupons: coupons, Total: total, Page: page, PerPage: pageSize}, nil
}

func (s *Service) Update(ctx context.Context, c Coupon) (*Coupon, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, c); err != nil {
		return nil, err
	}
	return s.repo.GetByCode(ctx, c.Code)
}

func (s *Service) Delete(ctx context.Context, code string) error {
	return s.repo.Delete(ctx, code)
}

// Quote validates a coupon against a proposed total and returns the
// discount it would grant. Nothing is redeemed.
func (s *Service) Quote(ctx context.Context, code string, total decimal.Decimal) (decimal.Decimal, error) {
	c, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		return decimal.Zero, err
	}
	if err := c.Redeemable(total); err != nil {
		return decimal.Zero, err
	}
	return c.Discount(total), nil
}
