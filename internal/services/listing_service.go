package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/Alexjoshwa/agri-1.0/internal/config"
	"github.com/Alexjoshwa/agri-1.0/internal/db"
	"github.com/Alexjoshwa/agri-1.0/internal/models"
	"github.com/Alexjoshwa/agri-1.0/internal/store"
	"github.com/Alexjoshwa/agri-1.0/internal/utils"
)

// CropFilterAll disables the crop facet in searches.
const CropFilterAll = "all"

// DefaultUnit is used when neither the form nor the configuration names a unit.
const DefaultUnit = "kg"

// UnknownOwner names a listing published without any owner name.
const UnknownOwner = "Unknown"

// PublishListingInput is the publish form. Empty owner fields fall back to the actor.
type PublishListingInput struct {
	OwnerName     string      `json:"name"`
	OwnerRole     models.Role `json:"role"`
	Crop          string      `json:"crop"`
	Grade         string      `json:"grade"`
	Quantity      float64     `json:"qty"`
	Unit          string      `json:"unit"`
	Price         *float64    `json:"price"`
	AvailableFrom string      `json:"available_from"`
	Location      string      `json:"location"`
	Notes         string      `json:"notes"`
}

// IListingService defines the interface for listing catalog operations.
type IListingService interface {
	Publish(ctx context.Context, actor *models.SessionIdentity, input PublishListingInput) (*models.Listing, error)
	List(ctx context.Context) []models.Listing
	FindByID(ctx context.Context, listingID string) (*models.Listing, error)
	SearchListings(ctx context.Context, query, cropFilter string) []models.Listing
	ListCrops(ctx context.Context) []string
}

// listingService implements IListingService.
type listingService struct {
	st  *store.EntityStore
	cfg *config.Config
	log *zap.SugaredLogger
}

// NewListingService creates a new ListingService.
func NewListingService(st *store.EntityStore, cfg *config.Config, log *zap.SugaredLogger) IListingService {
	return &listingService{st: st, cfg: cfg, log: log}
}

// Publish validates the input, fills defaults and inserts the listing at the
// front of the catalog.
func (s *listingService) Publish(ctx context.Context, actor *models.SessionIdentity, input PublishListingInput) (*models.Listing, error) {
	crop := strings.TrimSpace(input.Crop)
	if crop == "" {
		return nil, validationError("crop is required")
	}
	if !validQuantity(input.Quantity) {
		return nil, validationError("quantity must be a positive number")
	}
	if input.Price != nil && (math.IsNaN(*input.Price) || math.IsInf(*input.Price, 0) || *input.Price < 0) {
		return nil, validationError("price must be zero or more")
	}

	ownerName := strings.TrimSpace(input.OwnerName)
	if ownerName == "" && actor != nil {
		ownerName = actor.Name
	}
	if ownerName == "" {
		ownerName = UnknownOwner
	}
	ownerRole := input.OwnerRole
	if ownerRole == "" {
		ownerRole = models.RoleFarmer
		if actor != nil && actor.Role.CanOwnListing() {
			ownerRole = actor.Role
		}
	}
	if !ownerRole.CanOwnListing() {
		return nil, validationError("listing role must be farmer or buyer, got %q", ownerRole)
	}

	unit := strings.TrimSpace(input.Unit)
	if unit == "" {
		unit = s.cfg.DefaultUnit
	}
	if unit == "" {
		unit = DefaultUnit
	}
	now := timeNow()
	availableFrom := strings.TrimSpace(input.AvailableFrom)
	if availableFrom == "" {
		availableFrom = models.DateOf(now)
	}

	var listing models.Listing
	err := db.Try(func() error {
		listing = models.Listing{
			ID:            utils.NewEntityID(models.PrefixListing),
			OwnerName:     ownerName,
			OwnerRole:     ownerRole,
			Crop:          crop,
			Grade:         strings.TrimSpace(input.Grade),
			Quantity:      input.Quantity,
			Unit:          unit,
			Price:         input.Price,
			AvailableFrom: availableFrom,
			Location:      strings.TrimSpace(input.Location),
			Notes:         strings.TrimSpace(input.Notes),
			CreatedAt:     models.Millis(now),
		}
		return s.st.Listings.Insert(ctx, listing, true)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to publish listing: %w", err)
	}

	s.log.Infow("Listing published", "listingID", listing.ID, "owner", listing.OwnerName, "crop", listing.Crop)
	return &listing, nil
}

func (s *listingService) List(ctx context.Context) []models.Listing {
	return s.st.Listings.Load(ctx)
}

func (s *listingService) FindByID(ctx context.Context, listingID string) (*models.Listing, error) {
	listing, err := s.st.Listings.FindByID(ctx, listingID)
	if err != nil {
		return nil, notFound(err, "listing", listingID)
	}
	return &listing, nil
}

func (s *listingService) SearchListings(ctx context.Context, query, cropFilter string) []models.Listing {
	return Search(s.st.Listings.Load(ctx), query, cropFilter)
}

func (s *listingService) ListCrops(ctx context.Context) []string {
	return DistinctCrops(s.st.Listings.Load(ctx))
}

// Search returns the listings whose crop, location or owner name contains
// query (case-insensitive) and whose crop equals cropFilter. An empty query
// and an empty or "all" filter match everything. Relative order is preserved.
func Search(all []models.Listing, query, cropFilter string) []models.Listing {
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]models.Listing, 0, len(all))
	for _, l := range all {
		if cropFilter != "" && cropFilter != CropFilterAll && l.Crop != cropFilter {
			continue
		}
		if q != "" &&
			!strings.Contains(strings.ToLower(l.Crop), q) &&
			!strings.Contains(strings.ToLower(l.Location), q) &&
			!strings.Contains(strings.ToLower(l.OwnerName), q) {
			continue
		}
		out = append(out, l)
	}
	return out
}

// DistinctCrops returns the lexicographically sorted set of crop names.
func DistinctCrops(all []models.Listing) []string {
	seen := make(map[string]struct{}, len(all))
	crops := make([]string, 0, len(all))
	for _, l := range all {
		if _, ok := seen[l.Crop]; ok {
			continue
		}
		seen[l.Crop] = struct{}{}
		crops = append(crops, l.Crop)
	}
	sort.Strings(crops)
	return crops
}

// CanAccept reports whether actor may accept orders on behalf of the listing:
// a declared farmer whose name is the listing owner.
func CanAccept(listing models.Listing, actor *models.SessionIdentity) bool {
	return actor != nil && actor.Role == models.RoleFarmer && actor.Name != "" && actor.Name == listing.OwnerName
}

func validQuantity(q float64) bool {
	return !math.IsNaN(q) && !math.IsInf(q, 0) && q > 0
}
