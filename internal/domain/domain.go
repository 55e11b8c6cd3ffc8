package domain

import (
	"fmt"
	"strings"
)

// Role identifies which party may push a card out of its current status.
// Wire values follow the customer_supplier column: 1=supplier, 2=customer.
type Role int

const (
	RoleSupplier Role = 1
	RoleCustomer Role = 2
)

func (r Role) String() string {
	switch r {
	case RoleSupplier:
		return "supplier"
	case RoleCustomer:
		return "customer"
	default:
		return fmt.Sprintf("role(%d)", int(r))
	}
}

func (r Role) Valid() bool {
	return r == RoleSupplier || r == RoleCustomer
}

// ParseRole accepts role names and wire codes.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "supplier", "1":
		return RoleSupplier, nil
	case "customer", "2":
		return RoleCustomer, nil
	default:
		return 0, fmt.Errorf("unknown role %q (want supplier or customer)", s)
	}
}

type Account struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	VATNumber string `json:"vat_number,omitempty"`
	Address   string `json:"address,omitempty"`
}

type Product struct {
	ID   string `json:"product_id"`
	Name string `json:"name"`
}

type Status struct {
	ID    int64  `json:"status_id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

type StatusChain struct {
	ID   int64  `json:"status_chain_id"`
	Name string `json:"name"`
}

// StatusChainEntry is one step of a chain. Position orders the steps; ActorRole
// is the party allowed to move a card out of this step. StatusName/StatusColor
// are joined from statuses on read.
type StatusChainEntry struct {
	StatusChainID int64  `json:"status_chain_id"`
	StatusID      int64  `json:"status_id"`
	Position      int64  `json:"order"`
	ActorRole     Role   `json:"customer_supplier" enum:"1,2"`
	StatusName    string `json:"status_name,omitempty"`
	StatusColor   string `json:"status_color,omitempty"`
}

// KanbanChain is the customer/supplier/product agreement. Customer, supplier,
// product and status chain are fixed at creation; the rest is mutable.
type KanbanChain struct {
	ID            int64   `json:"id"`
	CustomerID    int64   `json:"customer_id"`
	SupplierID    int64   `json:"supplier_id"`
	ProductID     string  `json:"product_id"`
	StatusChainID int64   `json:"status_chain_id"`
	LeadTimeDays  int64   `json:"leadtime_days"`
	Quantity      float64 `json:"quantity"`
	ContainerType string  `json:"container_type"`
	ActiveKanbans int64   `json:"no_of_active_kanbans"`
	CustomerName  string  `json:"customer_name,omitempty"`
	SupplierName  string  `json:"supplier_name,omitempty"`
	ProductName   string  `json:"product_name,omitempty"`
}

// Kanban is one physical card. Lead time, container type and quantity are
// mirrored from the chain. Retired cards keep their row for history.
type Kanban struct {
	ID            int64   `json:"id"`
	KanbanChainID int64   `json:"kanban_chain_id"`
	StatusChainID int64   `json:"status_chain_id"`
	StatusCurrent int64   `json:"status_current"`
	LeadTimeDays  int64   `json:"leadtime_days"`
	ContainerType string  `json:"tipo_contenitore"`
	Quantity      float64 `json:"quantity"`
	UpdatedAt     string  `json:"data_aggiornamento" format:"date-time"`
	IsActive      bool    `json:"is_active"`
}

// KanbanHistory records one status transition of a card.
type KanbanHistory struct {
	ID             int64  `json:"id"`
	KanbanID       int64  `json:"kanban_id"`
	PreviousStatus int64  `json:"previous_status"`
	NextStatus     int64  `json:"next_status"`
	ActorRole      Role   `json:"actor_role" enum:"1,2"`
	ActorID        string `json:"actor_id,omitempty"`
	RecordedAt     string `json:"recorded_at" format:"date-time"`
}

// CardView is the dashboard/advance projection of a card. Field names are the
// stable wire contract; tipo_contenitore and data_aggiornamento are kept from
// the legacy schema.
type CardView struct {
	KanbanID      int64   `json:"kanban_id"`
	ProductID     string  `json:"product_id"`
	ProductName   string  `json:"product_name"`
	ContainerType string  `json:"tipo_contenitore"`
	Quantity      float64 `json:"quantity"`
	StatusCurrent int64   `json:"status_current"`
	StatusName    string  `json:"status_name"`
	StatusColor   string  `json:"status_color"`
	ActorRole     Role    `json:"customer_supplier" enum:"1,2"`
	UpdatedAt     string  `json:"data_aggiornamento" format:"date-time"`
	SupplierName  string  `json:"supplier_name"`
	CustomerName  string  `json:"customer_name"`
}

type APIKey struct {
	ID        string `json:"id"`
	ActorID   string `json:"actor_id"`
	Name      string `json:"name,omitempty"`
	KeyHash   string `json:"key_hash"`
	CreatedAt string `json:"created_at" format:"date-time"`
}
