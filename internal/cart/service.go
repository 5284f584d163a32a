package cart

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lacasita-io/storefront-backend/internal/catalog"
	"github.com/lacasita-io/storefront-backend/pkg/db/models"
	pkgerrors "github.com/lacasita-io/storefront-backend/pkg/errors"
)

// ServiceParams groups dependencies for the cart service.
type ServiceParams struct {
	CartRepo    *Repository
	CatalogRepo *catalog.Repository
}

// Service exposes cart management and the snapshot consumed by checkout.
type Service interface {
	GetCart(ctx context.Context, userID uuid.UUID) (CartDTO, error)
	AddItem(ctx context.Context, userID, variantID uuid.UUID, quantity int) (CartDTO, error)
	UpdateItem(ctx context.Context, userID, itemID uuid.UUID, quantity int) (CartDTO, error)
	RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (CartDTO, error)
	Clear(ctx context.Context, userID uuid.UUID) error
	Snapshot(ctx context.Context, userID uuid.UUID) (Snapshot, error)
}

type service struct {
	cartRepo    *Repository
	catalogRepo *catalog.Repository
}

// NewService builds a cart service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.CartRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart repo is required")
	}
	if params.CatalogRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "catalog repo is required")
	}
	return &service{
		cartRepo:    params.CartRepo,
		catalogRepo: params.CatalogRepo,
	}, nil
}

// GetCart returns the user's cart, creating an empty one on first access.
func (s *service) GetCart(ctx context.Context, userID uuid.UUID) (CartDTO, error) {
	cart, err := s.loadCart(ctx, userID)
	if err != nil {
		return CartDTO{}, err
	}
	return toDTO(cart), nil
}

// AddItem appends a variant to the cart, merging quantities when the variant
// is already present. The unit price is recorded from the catalog at add time.
func (s *service) AddItem(ctx context.Context, userID, variantID uuid.UUID, quantity int) (CartDTO, error) {
	if quantity <= 0 {
		return CartDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	cart, err := s.loadCart(ctx, userID)
	if err != nil {
		return CartDTO{}, err
	}

	variant, err := s.catalogRepo.FindVariantByID(ctx, variantID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return CartDTO{}, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "variant not found")
		}
		return CartDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load variant")
	}
	if variant.Product == nil || !variant.Product.IsPublished {
		return CartDTO{}, pkgerrors.New(pkgerrors.CodeNotFound, "variant not found")
	}

	existing, err := s.cartRepo.FindItemByVariant(ctx, cart.ID, variantID)
	switch {
	case err == nil:
		merged := existing.Quantity + quantity
		if merged > variant.Stock {
			return CartDTO{}, insufficientStock(variantID, variant.Stock)
		}
		if err := s.cartRepo.UpdateItemQuantity(ctx, existing.ID, merged); err != nil {
			return CartDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart item")
		}

	case errors.Is(err, gorm.ErrRecordNotFound):
		if quantity > variant.Stock {
			return CartDTO{}, insufficientStock(variantID, variant.Stock)
		}
		item := models.CartItem{
			CartID:    cart.ID,
			VariantID: variantID,
			Quantity:  quantity,
			Price:     variant.Price,
		}
		if err := s.cartRepo.CreateItem(ctx, &item); err != nil {
			return CartDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create cart item")
		}

	default:
		return CartDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart item")
	}

	return s.GetCart(ctx, userID)
}

// UpdateItem changes the quantity on an existing line. Quantity zero removes it.
func (s *service) UpdateItem(ctx context.Context, userID, itemID uuid.UUID, quantity int) (CartDTO, error) {
	if quantity < 0 {
		return CartDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "quantity must not be negative")
	}

	cart, err := s.loadCart(ctx, userID)
	if err != nil {
		return CartDTO{}, err
	}

	item, err := s.cartRepo.FindItem(ctx, cart.ID, itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return CartDTO{}, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "cart item not found")
		}
		return CartDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart item")
	}

	if quantity == 0 {
		if err := s.cartRepo.DeleteItem(ctx, cart.ID, item.ID); err != nil {
			return CartDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove cart item")
		}
		return s.GetCart(ctx, userID)
	}

	variant, err := s.catalogRepo.FindVariantByID(ctx, item.VariantID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return CartDTO{}, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "variant not found")
		}
		return CartDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load variant")
	}
	if quantity > variant.Stock {
		return CartDTO{}, insufficientStock(item.VariantID, variant.Stock)
	}

	if err := s.cartRepo.UpdateItemQuantity(ctx, item.ID, quantity); err != nil {
		return CartDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart item")
	}
	return s.GetCart(ctx, userID)
}

// RemoveItem drops one line from the cart.
func (s *service) RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (CartDTO, error) {
	cart, err := s.loadCart(ctx, userID)
	if err != nil {
		return CartDTO{}, err
	}
	if _, err := s.cartRepo.FindItem(ctx, cart.ID, itemID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return CartDTO{}, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "cart item not found")
		}
		return CartDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart item")
	}
	if err := s.cartRepo.DeleteItem(ctx, cart.ID, itemID); err != nil {
		return CartDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove cart item")
	}
	return s.GetCart(ctx, userID)
}

// Clear empties the cart.
func (s *service) Clear(ctx context.Context, userID uuid.UUID) error {
	cart, err := s.loadCart(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.cartRepo.Clear(ctx, cart.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
	}
	return nil
}

// Snapshot validates the cart and returns the priced, immutable view order
// placement consumes. Variants are re-read from the catalog in one batch so
// the checks reflect current stock and published state, not the cart preload.
// The cart-recorded unit price is authoritative even when the catalog price
// has moved since. The stock check here is advisory; the inventory ledger
// re-checks under the placement transaction.
func (s *service) Snapshot(ctx context.Context, userID uuid.UUID) (Snapshot, error) {
	cart, err := s.loadCart(ctx, userID)
	if err != nil {
		return Snapshot{}, err
	}
	if len(cart.Items) == 0 {
		return Snapshot{}, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	variantIDs := make([]uuid.UUID, 0, len(cart.Items))
	for _, item := range cart.Items {
		variantIDs = append(variantIDs, item.VariantID)
	}
	variants, err := s.catalogRepo.FindVariantsByIDs(ctx, variantIDs)
	if err != nil {
		return Snapshot{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load variants")
	}
	byID := make(map[uuid.UUID]models.ProductVariant, len(variants))
	for _, variant := range variants {
		byID[variant.ID] = variant
	}

	lines := make([]SnapshotLine, 0, len(cart.Items))
	var subtotal int64
	for _, item := range cart.Items {
		variant, ok := byID[item.VariantID]
		if !ok || variant.Product == nil || !variant.Product.IsPublished {
			return Snapshot{}, pkgerrors.New(pkgerrors.CodeNotFound, "variant not found").
				WithDetails(map[string]any{"variant_id": item.VariantID.String()})
		}
		if item.Quantity > variant.Stock {
			return Snapshot{}, insufficientStock(item.VariantID, variant.Stock)
		}
		lines = append(lines, SnapshotLine{
			VariantID:   item.VariantID,
			ProductName: variant.Product.Name,
			Quantity:    item.Quantity,
			UnitPrice:   item.Price,
		})
		subtotal += item.Price * int64(item.Quantity)
	}

	return Snapshot{
		CartID:   cart.ID,
		Lines:    lines,
		Subtotal: subtotal,
	}, nil
}

func (s *service) loadCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	cart, err := s.cartRepo.FindOrCreateByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	return cart, nil
}

func insufficientStock(variantID uuid.UUID, available int) error {
	return pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock").
		WithDetails(map[string]any{
			"variant_id": variantID.String(),
			"available":  available,
		})
}

func toDTO(cart *models.Cart) CartDTO {
	items := make([]CartItemDTO, 0, len(cart.Items))
	var subtotal int64
	for _, item := range cart.Items {
		dto := CartItemDTO{
			ID:        item.ID,
			VariantID: item.VariantID,
			Quantity:  item.Quantity,
			UnitPrice: item.Price,
			LineTotal: item.Price * int64(item.Quantity),
		}
		if item.Variant != nil {
			dto.SKU = item.Variant.SKU
			dto.Color = item.Variant.Color
			dto.Size = item.Variant.Size
			if item.Variant.Product != nil {
				dto.ProductName = item.Variant.Product.Name
			}
		}
		subtotal += dto.LineTotal
		items = append(items, dto)
	}
	return CartDTO{
		ID:        cart.ID,
		Items:     items,
		Subtotal:  subtotal,
		UpdatedAt: cart.UpdatedAt,
	}
}
