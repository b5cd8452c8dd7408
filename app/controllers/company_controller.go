package controllers

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/ManuelReschke/MemberGate/internal/pkg/cache"
	"github.com/ManuelReschke/MemberGate/internal/pkg/whop"
)

const companyCacheTTL = 10 * time.Minute

// CompanyFetcher loads company details from the provider, see whop.Client.
type CompanyFetcher interface {
	GetCompany(ctx context.Context, companyID string) (*whop.Company, error)
}

type CompanyController struct {
	fetcher CompanyFetcher
	store   fiber.Storage
	log     *zap.Logger
}

// NewCompanyController builds the controller. store may be nil to disable caching.
func NewCompanyController(fetcher CompanyFetcher, store fiber.Storage, log *zap.Logger) *CompanyController {
	if log == nil {
		log = zap.NewNop()
	}
	return &CompanyController{fetcher: fetcher, store: store, log: log.Named("company")}
}

func companyCacheKey(companyID string) string {
	return "company:" + companyID
}

// HandleGet returns company details, served from cache when possible.
func (cc *CompanyController) HandleGet(c *fiber.Ctx) error {
	companyID := c.Params("companyId")
	if companyID == "" {
		return errorJSON(c, fiber.StatusBadRequest, "companyId is required")
	}

	key := companyCacheKey(companyID)
	if cc.store != nil {
		var cached whop.Company
		hit, err := cache.GetJSON(cc.store, key, &cached)
		if err != nil {
			cc.log.Warn("company cache read failed", zap.String("company_id", companyID), zap.Error(err))
		}
		if hit {
			return c.JSON(cached)
		}
	}

	ctx, cancel := requestContext()
	defer cancel()

	company, err := cc.fetcher.GetCompany(ctx, companyID)
	switch {
	case err == nil:
	case whop.IsNotFound(err):
		return errorJSON(c, fiber.StatusNotFound, "Company not found")
	case errors.Is(err, whop.ErrCircuitOpen):
		return errorJSON(c, fiber.StatusServiceUnavailable, "Whop API unavailable")
	default:
		cc.log.Error("failed to fetch company", zap.String("company_id", companyID), zap.Error(err))
		return errorJSON(c, fiber.StatusBadGateway, "Failed to fetch company information")
	}

	if cc.store != nil {
		if err := cache.SetJSON(cc.store, key, company, companyCacheTTL); err != nil {
			cc.log.Warn("company cache write failed", zap.String("company_id", companyID), zap.Error(err))
		}
	}
	return c.JSON(company)
}
