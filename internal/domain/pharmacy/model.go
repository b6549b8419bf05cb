package pharmacy

import (
	"time"

	"github.com/google/uuid"
)

// AllCategories is the catalogue filter value meaning "no category filter".
const AllCategories = "All Categories"

const (
	OrderTypePrescription = "prescription"
	OrderTypeDirect       = "direct"
	// OrderTypeDiagnostic orders are created for diagnostic bookings and are
	// not placed through the pharmacy checkout.
	OrderTypeDiagnostic = "diagnostic"
)

// OrderStatusProcessing is the status of a newly placed order. Later
// statuses (delivered, cancelled) are set by fulfilment outside this API.
const OrderStatusProcessing = "processing"

type Medicine struct {
	ID                   uuid.UUID `json:"medicine_id"`
	Name                 string    `json:"name"`
	Category             string    `json:"category"`
	Description          *string   `json:"description,omitempty"`
	Price                float64   `json:"price"`
	StockQuantity        int       `json:"stock_quantity"`
	RequiresPrescription bool      `json:"requires_prescription"`
	CreatedAt            time.Time `json:"created_at"`
}

type ListFilter struct {
	Search   string
	Category string
}

type Order struct {
	ID              uuid.UUID    `json:"order_id"`
	UserID          uuid.UUID    `json:"user_id"`
	OrderType       string       `json:"order_type"`
	TotalAmount     float64      `json:"total_amount"`
	DeliveryAddress string       `json:"delivery_address"`
	Status          string       `json:"status"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
	Items           []*OrderItem `json:"items"`
}

type OrderItem struct {
	ID           uuid.UUID `json:"item_id"`
	OrderID      uuid.UUID `json:"order_id"`
	MedicineID   uuid.UUID `json:"medicine_id"`
	MedicineName string    `json:"medicine_name,omitempty"`
	Quantity     int       `json:"quantity"`
	Price        float64   `json:"price"`
}

type OrderInput struct {
	Items           []OrderItemInput `json:"items"`
	TotalAmount     *float64         `json:"totalAmount"`
	DeliveryAddress string           `json:"deliveryAddress"`
	OrderType       string           `json:"orderType"`
}

// OrderItemInput carries the client's view of a cart line. Price is
// informational; the catalogue price is charged.
type OrderItemInput struct {
	MedicineID string  `json:"medicineId"`
	Quantity   int     `json:"quantity"`
	Price      float64 `json:"price"`
}
