package fulfillment

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrOrderNotFound is returned when a requested order does not exist.
var ErrOrderNotFound = errors.New("order not found")

// ErrConcurrentModification is returned when a status transition lost a race:
// another administrative action moved the order out of the expected source
// status first.
var ErrConcurrentModification = errors.New("order was modified concurrently")

// Item is one immutable snapshot line of an order, copied from the cart at
// checkout time.
type Item struct {
	ProductID int64           `json:"product_id"`
	Code      string          `json:"code"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	Canceled  bool            `json:"canceled"`
}

// ExtraRow is a fee row snapshotted from the cart, e.g. shipping costs.
type ExtraRow struct {
	Modifier string          `json:"modifier"`
	Label    string          `json:"label"`
	Amount   decimal.Decimal `json:"amount"`
}

// Order is a finalized cart with a fulfillment status. Once created, only the
// status ever changes, and only through the workflow's transitions.
type Order struct {
	ID        string
	Status    Status
	Items     []Item
	ExtraRows []ExtraRow
	Subtotal  decimal.Decimal
	Total     decimal.Decimal
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Repository defines persistence operations for orders.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	Get(ctx context.Context, id string) (*Order, error)

	// UpdateStatus moves the order from one status to another as a single
	// compare-and-set. It returns ErrOrderNotFound when no such order
	// exists and ErrConcurrentModification when the order is no longer in
	// the from status.
	UpdateStatus(ctx context.Context, id string, from, to Status) error
}

// Service drives orders through the fulfillment workflow on behalf of the
// administrative surface.
type Service struct {
	orders Repository
}

// NewService creates a fulfillment Service over the given repository.
func NewService(orders Repository) *Service {
	return &Service{orders: orders}
}

// Get returns a single order.
func (s *Service) Get(ctx context.Context, orderID string) (*Order, error) {
	return s.orders.Get(ctx, orderID)
}

// Actions returns the transitions currently legal for the order, for
// rendering as administrative buttons.
func (s *Service) Actions(ctx context.Context, orderID string) ([]Transition, error) {
	o, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return Available(o.Status), nil
}

// Apply fires the named transition on the order. The guard and the mutation
// are a single atomic compare-and-set against the store, so two concurrent
// administrative actions can never both succeed from the same source status;
// the loser receives ErrConcurrentModification. Both that and
// InvalidTransitionError propagate to the caller untouched.
func (s *Service) Apply(ctx context.Context, orderID, transition string) (*Order, error) {
	o, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}

	target, err := Next(o.Status, transition)
	if err != nil {
		return nil, err
	}

	if err := s.orders.UpdateStatus(ctx, o.ID, o.Status, target); err != nil {
		return nil, errors.Wrapf(err, "apply %s to order %s", transition, o.ID)
	}

	o.Status = target
	return o, nil
}
