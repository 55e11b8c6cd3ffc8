package server

import (
	"ekanban/internal/domain"
)

// Request payloads

type CreateAccountRequest struct {
	Name      string `json:"name"`
	VATNumber string `json:"vat_number,omitempty"`
	Address   string `json:"address,omitempty"`
}

type UpdateAccountRequest struct {
	Name      *string `json:"name,omitempty"`
	VATNumber *string `json:"vat_number,omitempty"`
	Address   *string `json:"address,omitempty"`
}

type CreateProductRequest struct {
	ID   string `json:"product_id"`
	Name string `json:"name"`
}

type UpdateProductRequest struct {
	Name string `json:"name"`
}

type CreateStatusRequest struct {
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

type UpdateStatusRequest struct {
	Name  *string `json:"name,omitempty"`
	Color *string `json:"color,omitempty"`
}

type CreateStatusChainRequest struct {
	Name string `json:"name"`
}

type AddChainEntryRequest struct {
	StatusID int64 `json:"status_id"`
	Position int64 `json:"order"`
	Role     int   `json:"customer_supplier" enum:"1,2"`
}

type ReplaceChainEntriesRequest struct {
	Entries []AddChainEntryRequest `json:"entries"`
}

type ReorderChainEntryRequest struct {
	Position int64 `json:"order"`
}

type CreateKanbanChainRequest struct {
	CustomerID    int64   `json:"customer_id"`
	SupplierID    int64   `json:"supplier_id"`
	ProductID     string  `json:"product_id"`
	StatusChainID int64   `json:"status_chain_id"`
	LeadTimeDays  *int64  `json:"leadtime_days,omitempty"`
	Quantity      float64 `json:"quantity"`
	ContainerType string  `json:"container_type"`
	ActiveKanbans int64   `json:"no_of_active_kanbans"`
}

type UpdateKanbanChainRequest struct {
	LeadTimeDays  *int64   `json:"leadtime_days,omitempty"`
	Quantity      *float64 `json:"quantity,omitempty"`
	ContainerType *string  `json:"container_type,omitempty"`
	ActiveKanbans *int64   `json:"no_of_active_kanbans,omitempty"`
}

type AdvanceKanbanRequest struct {
	Role int `json:"customer_supplier" enum:"1,2"`
}

// Response payloads

// DashboardResponse groups active cards by product name.
type DashboardResponse struct {
	KanbansByProduct map[string][]domain.CardView `json:"kanbans_by_product"`
}

func entriesFromRequest(chainID int64, reqs []AddChainEntryRequest) []domain.StatusChainEntry {
	entries := make([]domain.StatusChainEntry, 0, len(reqs))
	for _, r := range reqs {
		entries = append(entries, domain.StatusChainEntry{
			StatusChainID: chainID,
			StatusID:      r.StatusID,
			Position:      r.Position,
			ActorRole:     domain.Role(r.Role),
		})
	}
	return entries
}
