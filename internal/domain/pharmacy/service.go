package pharmacy

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/appointease/appointease/internal/domain/notification"
	"github.com/appointease/appointease/internal/platform/apierror"
	"github.com/appointease/appointease/internal/platform/auth"
	"github.com/appointease/appointease/internal/platform/db"
	"github.com/appointease/appointease/internal/platform/search"
)

const (
	maxOrderItems   = 50
	maxItemQuantity = 100
	maxAddressLen   = 500
	// totalTolerance is how far a client total may drift from the computed one.
	totalTolerance = 0.01
)

var ErrForbidden = errors.New("not allowed to view these orders")

type Notifier interface {
	Notify(ctx context.Context, n *notification.Notification) error
}

// StatsInvalidator drops cached dashboard stats of users whose counts a
// committed write changed.
type StatsInvalidator interface {
	Invalidate(ctx context.Context, userIDs ...uuid.UUID)
}

type Service struct {
	repo     Repository
	tx       db.Transactor
	notifier Notifier
	stats    StatsInvalidator
}

func NewService(repo Repository, tx db.Transactor, notifier Notifier) *Service {
	return &Service{repo: repo, tx: tx, notifier: notifier}
}

// SetStatsInvalidator registers the dashboard cache to clear after an order
// is placed.
func (s *Service) SetStatsInvalidator(inv StatsInvalidator) { s.stats = inv }

// ListMedicines returns in-stock medicines ordered by name.
func (s *Service) ListMedicines(ctx context.Context, f ListFilter, limit, offset int) ([]*Medicine, int, error) {
	if err := search.ValidateTerm(f.Search); err != nil {
		return nil, 0, apierror.Validation(err.Error())
	}
	return s.repo.ListMedicines(ctx, f, limit, offset)
}

type cartLine struct {
	medicineID uuid.UUID
	quantity   int
}

// PlaceOrder checks and reserves stock, then writes the order, its items and
// a notification in one transaction. Nothing is persisted unless every step
// succeeds.
func (s *Service) PlaceOrder(ctx context.Context, userID uuid.UUID, in OrderInput) (*Order, error) {
	lines, err := validateOrder(&in)
	if err != nil {
		return nil, err
	}

	// Rows are locked in id order so two carts sharing medicines cannot
	// deadlock.
	lockOrder := make([]int, len(lines))
	for i := range lockOrder {
		lockOrder[i] = i
	}
	sort.SliceStable(lockOrder, func(a, b int) bool {
		return lines[lockOrder[a]].medicineID.String() < lines[lockOrder[b]].medicineID.String()
	})

	order := &Order{
		UserID:          userID,
		OrderType:       in.OrderType,
		DeliveryAddress: in.DeliveryAddress,
		Status:          OrderStatusProcessing,
	}

	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		items := make([]*OrderItem, len(lines))
		var totalCents int64
		for _, i := range lockOrder {
			line := lines[i]
			m, err := s.repo.LockMedicine(ctx, line.medicineID)
			if err != nil {
				return err
			}
			if m.StockQuantity < line.quantity {
				return &StockError{Medicine: m.Name, Available: m.StockQuantity, Requested: line.quantity}
			}
			if err := s.repo.DecrementStock(ctx, m.ID, line.quantity); err != nil {
				return err
			}
			cents := toCents(m.Price)
			totalCents += cents * int64(line.quantity)
			items[i] = &OrderItem{
				MedicineID:   m.ID,
				MedicineName: m.Name,
				Quantity:     line.quantity,
				Price:        fromCents(cents),
			}
		}

		order.TotalAmount = fromCents(totalCents)
		if in.TotalAmount != nil && math.Abs(*in.TotalAmount-order.TotalAmount) > totalTolerance {
			return apierror.Validationf("totalAmount %.2f does not match the order total %.2f",
				*in.TotalAmount, order.TotalAmount)
		}

		if err := s.repo.CreateOrder(ctx, order); err != nil {
			return err
		}
		for _, it := range items {
			it.OrderID = order.ID
			if err := s.repo.CreateItem(ctx, it); err != nil {
				return err
			}
		}
		order.Items = items

		ref := order.ID
		return s.notifier.Notify(ctx, &notification.Notification{
			UserID:      userID,
			Title:       "Order placed",
			Message:     fmt.Sprintf("Your order of %d item(s) totalling %.2f is being processed.", len(items), order.TotalAmount),
			Type:        notification.TypeOrder,
			ReferenceID: &ref,
		})
	})
	if err != nil {
		return nil, err
	}
	if s.stats != nil {
		s.stats.Invalidate(ctx, userID)
	}
	return order, nil
}

func validateOrder(in *OrderInput) ([]cartLine, error) {
	if len(in.Items) == 0 {
		return nil, apierror.Validation("order must contain at least one item")
	}
	if len(in.Items) > maxOrderItems {
		return nil, apierror.Validationf("order may contain at most %d items", maxOrderItems)
	}
	in.DeliveryAddress = strings.TrimSpace(in.DeliveryAddress)
	if in.DeliveryAddress == "" {
		return nil, apierror.Validation("deliveryAddress is required")
	}
	if len(in.DeliveryAddress) > maxAddressLen {
		return nil, apierror.Validationf("deliveryAddress must be at most %d characters", maxAddressLen)
	}
	if in.OrderType != OrderTypePrescription && in.OrderType != OrderTypeDirect {
		return nil, apierror.Validation("orderType must be prescription or direct")
	}
	if in.TotalAmount != nil && *in.TotalAmount < 0 {
		return nil, apierror.Validation("totalAmount must not be negative")
	}

	lines := make([]cartLine, len(in.Items))
	for i, it := range in.Items {
		id, err := uuid.Parse(strings.TrimSpace(it.MedicineID))
		if err != nil {
			return nil, apierror.Validationf("items[%d].medicineId must be a valid id", i)
		}
		if it.Quantity < 1 || it.Quantity > maxItemQuantity {
			return nil, apierror.Validationf("items[%d].quantity must be between 1 and %d", i, maxItemQuantity)
		}
		lines[i] = cartLine{medicineID: id, quantity: it.Quantity}
	}
	return lines, nil
}

// ListOrders returns userID's orders with their items, newest first.
func (s *Service) ListOrders(ctx context.Context, caller *auth.Principal, userID uuid.UUID, limit, offset int) ([]*Order, int, error) {
	if !caller.CanAccessUser(userID) {
		return nil, 0, ErrForbidden
	}
	return s.repo.ListOrders(ctx, userID, limit, offset)
}

func toCents(v float64) int64 { return int64(math.Round(v * 100)) }

func fromCents(c int64) float64 { return float64(c) / 100 }
