package service

import (
	"context"
	"fmt"

	"github.com/gosimple/slug"
	"github.com/rs/zerolog/log"

	"github.com/aurorallabs/referral-portal/internal/model"
)

// DefaultCatalog is seeded by TemplateService.SeedDefaults.
var DefaultCatalog = []model.CatalogTemplate{
	{Name: "Coffee Gift Card", Description: "A $5 gift card for your favorite coffee shop", PointsRequired: 100},
	{Name: "Movie Ticket", Description: "A free movie ticket at your local cinema", PointsRequired: 250},
	{Name: "Food Delivery Voucher", Description: "A $15 voucher for your next food delivery order", PointsRequired: 400},
	{Name: "Premium Subscription", Description: "One month of premium subscription to our service", PointsRequired: 500},
	{Name: "Tech Gadget", Description: "A cool tech gadget of your choice under $50", PointsRequired: 1000},
}

// TemplateService manages the seeded reward catalog.
type TemplateService struct {
	catalog CatalogRepositoryInterface
}

// NewTemplateService creates a new TemplateService.
func NewTemplateService(catalog CatalogRepositoryInterface) *TemplateService {
	return &TemplateService{catalog: catalog}
}

// List returns the catalog ordered by cost.
func (s *TemplateService) List(ctx context.Context) ([]model.CatalogTemplate, error) {
	templates, err := s.catalog.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list catalog: %w", err)
	}
	return templates, nil
}

// SeedDefaults inserts the default catalog entries whose slug is not present yet
// and returns the ones it added. Running it twice adds nothing the second time.
func (s *TemplateService) SeedDefaults(ctx context.Context) ([]model.CatalogTemplate, error) {
	added := []model.CatalogTemplate{}
	for _, def := range DefaultCatalog {
		tmpl := def
		tmpl.ID = newID()
		tmpl.Slug = slug.Make(def.Name)
		tmpl.Status = model.TemplateStatusActive

		inserted, err := s.catalog.InsertIfAbsent(ctx, &tmpl)
		if err != nil {
			return nil, fmt.Errorf("seed %s: %w", tmpl.Slug, err)
		}
		if inserted {
			added = append(added, tmpl)
		}
	}

	log.Info().Int("added", len(added)).Msg("reward catalog seeded")
	return added, nil
}
