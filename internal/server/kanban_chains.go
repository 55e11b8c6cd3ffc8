package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"ekanban/internal/domain"
	"ekanban/internal/engine"
)

func registerKanbanChains(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-kanban-chain",
		Method:        http.MethodPost,
		Path:          "/kanban-chains",
		Summary:       "Create kanban chain",
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusBadRequest,
			http.StatusNotFound,
			http.StatusInternalServerError,
		},
	}, func(ctx context.Context, input *struct {
		Body CreateKanbanChainRequest `json:"body"`
	}) (*struct {
		Body domain.KanbanChain `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		opts := engine.ChainCreateOptions{
			CustomerID:           input.Body.CustomerID,
			SupplierID:           input.Body.SupplierID,
			ProductID:            input.Body.ProductID,
			StatusChainID:        input.Body.StatusChainID,
			Quantity:             input.Body.Quantity,
			ContainerType:        input.Body.ContainerType,
			InitialActiveKanbans: input.Body.ActiveKanbans,
		}
		if input.Body.LeadTimeDays != nil {
			opts.LeadTimeDays = *input.Body.LeadTimeDays
		} else if e.Config != nil {
			opts.LeadTimeDays = e.Config.Defaults.LeadTimeDays
		}
		kc, err := e.CreateKanbanChain(ctx, opts)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.KanbanChain `json:"body"`
		}{Body: kc}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-kanban-chains",
		Method:      http.MethodGet,
		Path:        "/kanban-chains",
		Summary:     "List kanban chains",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []domain.KanbanChain `json:"body"`
	}, error) {
		items, err := e.Repo.ListKanbanChains(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.KanbanChain `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-kanban-chain",
		Method:      http.MethodGet,
		Path:        "/kanban-chains/{id}",
		Summary:     "Get kanban chain",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID int64 `path:"id"`
	}) (*struct {
		Body domain.KanbanChain `json:"body"`
	}, error) {
		kc, err := e.Repo.GetKanbanChain(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.KanbanChain `json:"body"`
		}{Body: kc}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-kanban-chain",
		Method:      http.MethodPatch,
		Path:        "/kanban-chains/{id}",
		Summary:     "Update kanban chain",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusNotFound,
			http.StatusConflict,
			http.StatusInternalServerError,
		},
	}, func(ctx context.Context, input *struct {
		ID   int64                    `path:"id"`
		Body UpdateKanbanChainRequest `json:"body"`
	}) (*struct {
		Body domain.KanbanChain `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		kc, err := e.UpdateKanbanChain(ctx, engine.ChainUpdateOptions{
			ID:            input.ID,
			LeadTimeDays:  input.Body.LeadTimeDays,
			Quantity:      input.Body.Quantity,
			ContainerType: input.Body.ContainerType,
			ActiveKanbans: input.Body.ActiveKanbans,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.KanbanChain `json:"body"`
		}{Body: kc}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-kanban-chain",
		Method:      http.MethodDelete,
		Path:        "/kanban-chains/{id}",
		Summary:     "Delete kanban chain",
		Errors:      []int{http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		ID int64 `path:"id"`
	}) (*struct{}, error) {
		if err := e.DeleteKanbanChain(ctx, input.ID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}
