package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"ekanban/internal/domain"
	"ekanban/internal/engine"
)

func registerKanbans(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-kanbans",
		Method:      http.MethodGet,
		Path:        "/kanbans",
		Summary:     "List kanbans",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		KanbanChainID int64 `query:"kanban_chain_id"`
		Active        bool  `query:"active"`
	}) (*struct {
		Body []domain.Kanban `json:"body"`
	}, error) {
		items, err := e.Repo.ListKanbans(ctx, input.KanbanChainID, input.Active)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Kanban `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-kanban",
		Method:      http.MethodGet,
		Path:        "/kanbans/{id}",
		Summary:     "Get kanban",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID int64 `path:"id"`
	}) (*struct {
		Body domain.Kanban `json:"body"`
	}, error) {
		k, err := e.Repo.GetKanban(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Kanban `json:"body"`
		}{Body: k}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "advance-kanban",
		Method:      http.MethodPost,
		Path:        "/kanbans/{id}/advance",
		Summary:     "Advance kanban to its next status",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusForbidden,
			http.StatusNotFound,
			http.StatusConflict,
			http.StatusInternalServerError,
		},
	}, func(ctx context.Context, input *struct {
		ID   int64                `path:"id"`
		Body AdvanceKanbanRequest `json:"body"`
	}) (*struct {
		Body domain.CardView `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		view, err := e.AdvanceKanban(ctx, input.ID, domain.Role(input.Body.Role), actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.CardView `json:"body"`
		}{Body: view}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "retire-kanban",
		Method:      http.MethodPost,
		Path:        "/kanbans/{id}/retire",
		Summary:     "Retire kanban",
		Errors: []int{
			http.StatusNotFound,
			http.StatusConflict,
			http.StatusInternalServerError,
		},
	}, func(ctx context.Context, input *struct {
		ID int64 `path:"id"`
	}) (*struct {
		Body domain.Kanban `json:"body"`
	}, error) {
		if _, authErr := actorIDFromContext(ctx); authErr != nil {
			return nil, authErr
		}
		k, err := e.RetireKanban(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Kanban `json:"body"`
		}{Body: k}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "kanban-history",
		Method:      http.MethodGet,
		Path:        "/kanbans/{id}/history",
		Summary:     "Kanban transition history",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID int64 `path:"id"`
	}) (*struct {
		Body []domain.KanbanHistory `json:"body"`
	}, error) {
		items, err := e.KanbanHistory(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.KanbanHistory `json:"body"`
		}{Body: items}, nil
	})
}
