package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"ekanban/internal/domain"
	"ekanban/internal/engine"
)

func registerStatusChains(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-status-chain",
		Method:        http.MethodPost,
		Path:          "/status-chains",
		Summary:       "Create status chain",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Body CreateStatusChainRequest `json:"body"`
	}) (*struct {
		Body domain.StatusChain `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		c, err := e.CreateStatusChain(ctx, input.Body.Name)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.StatusChain `json:"body"`
		}{Body: c}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-status-chains",
		Method:      http.MethodGet,
		Path:        "/status-chains",
		Summary:     "List status chains",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []domain.StatusChain `json:"body"`
	}, error) {
		items, err := e.Repo.ListStatusChains(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.StatusChain `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-status-chain",
		Method:      http.MethodGet,
		Path:        "/status-chains/{id}",
		Summary:     "Get status chain",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID int64 `path:"id"`
	}) (*struct {
		Body domain.StatusChain `json:"body"`
	}, error) {
		c, err := e.Repo.GetStatusChain(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.StatusChain `json:"body"`
		}{Body: c}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "rename-status-chain",
		Method:      http.MethodPatch,
		Path:        "/status-chains/{id}",
		Summary:     "Rename status chain",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID   int64                    `path:"id"`
		Body CreateStatusChainRequest `json:"body"`
	}) (*struct {
		Body domain.StatusChain `json:"body"`
	}, error) {
		c, err := e.RenameStatusChain(ctx, input.ID, input.Body.Name)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.StatusChain `json:"body"`
		}{Body: c}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-status-chain",
		Method:      http.MethodDelete,
		Path:        "/status-chains/{id}",
		Summary:     "Delete status chain",
		Errors:      []int{http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		ID int64 `path:"id"`
	}) (*struct{}, error) {
		if err := e.DeleteStatusChain(ctx, input.ID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-status-chain-entries",
		Method:      http.MethodGet,
		Path:        "/status-chains/{id}/entries",
		Summary:     "List status chain entries",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID int64 `path:"id"`
	}) (*struct {
		Body []domain.StatusChainEntry `json:"body"`
	}, error) {
		entries, err := e.ListChainEntries(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.StatusChainEntry `json:"body"`
		}{Body: entries}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "add-status-chain-entry",
		Method:        http.MethodPost,
		Path:          "/status-chains/{id}/entries",
		Summary:       "Add status chain entry",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		ID   int64                `path:"id"`
		Body AddChainEntryRequest `json:"body"`
	}) (*struct {
		Body domain.StatusChainEntry `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		entry, err := e.AddChainEntry(ctx, input.ID, input.Body.StatusID, input.Body.Position, domain.Role(input.Body.Role))
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.StatusChainEntry `json:"body"`
		}{Body: entry}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "replace-status-chain-entries",
		Method:      http.MethodPut,
		Path:        "/status-chains/{id}/entries",
		Summary:     "Replace status chain entries",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		ID   int64                      `path:"id"`
		Body ReplaceChainEntriesRequest `json:"body"`
	}) (*struct {
		Body []domain.StatusChainEntry `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		entries, err := e.ReplaceChainEntries(ctx, input.ID, entriesFromRequest(input.ID, input.Body.Entries))
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.StatusChainEntry `json:"body"`
		}{Body: entries}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "reorder-status-chain-entry",
		Method:      http.MethodPatch,
		Path:        "/status-chains/{id}/entries/{status_id}",
		Summary:     "Move status chain entry",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		ID       int64                    `path:"id"`
		StatusID int64                    `path:"status_id"`
		Body     ReorderChainEntryRequest `json:"body"`
	}) (*struct {
		Body []domain.StatusChainEntry `json:"body"`
	}, error) {
		entries, err := e.ReorderChainEntry(ctx, input.ID, input.StatusID, input.Body.Position)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.StatusChainEntry `json:"body"`
		}{Body: entries}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "remove-status-chain-entry",
		Method:      http.MethodDelete,
		Path:        "/status-chains/{id}/entries/{status_id}",
		Summary:     "Remove status chain entry",
		Errors:      []int{http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		ID       int64 `path:"id"`
		StatusID int64 `path:"status_id"`
	}) (*struct{}, error) {
		if err := e.RemoveChainEntry(ctx, input.ID, input.StatusID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}
