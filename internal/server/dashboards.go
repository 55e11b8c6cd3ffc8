package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"ekanban/internal/engine"
)

func registerDashboards(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "customer-dashboard",
		Method:      http.MethodGet,
		Path:        "/dashboards/customer/{account_id}",
		Summary:     "Customer dashboard",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		AccountID int64 `path:"account_id"`
	}) (*struct {
		Body DashboardResponse `json:"body"`
	}, error) {
		groups, err := e.DashboardForCustomer(ctx, input.AccountID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body DashboardResponse `json:"body"`
		}{Body: DashboardResponse{KanbansByProduct: groups}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "supplier-dashboard",
		Method:      http.MethodGet,
		Path:        "/dashboards/supplier/{account_id}",
		Summary:     "Supplier dashboard",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		AccountID int64 `path:"account_id"`
	}) (*struct {
		Body DashboardResponse `json:"body"`
	}, error) {
		groups, err := e.DashboardForSupplier(ctx, input.AccountID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body DashboardResponse `json:"body"`
		}{Body: DashboardResponse{KanbansByProduct: groups}}, nil
	})
}
