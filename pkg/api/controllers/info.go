package controllers

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

// ServiceInfo describes the running service
type ServiceInfo struct {
	Name        string `json:"name" doc:"Service name" example:"webapp"`
	Version     string `json:"version" doc:"Build version" example:"1.4.0"`
	BuildTime   string `json:"buildTime" doc:"Build timestamp"`
	Environment string `json:"environment" doc:"Deployment environment" example:"Production"`
}

// InfoOutput wraps ServiceInfo for huma
type InfoOutput struct {
	Body ServiceInfo
}

// InfoController serves build and environment information
type InfoController struct {
	info ServiceInfo
}

// NewInfoController creates an InfoController
func NewInfoController(info ServiceInfo) *InfoController {
	return &InfoController{info: info}
}

// RegisterRoutes sets up the info endpoint.
func (ctrl *InfoController) RegisterRoutes(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "get-info",
		Method:      http.MethodGet,
		Path:        "/api/info",
		Summary:     "Service information",
		Description: "Returns the service name, version and deployment environment.",
		Tags:        []string{"System"},
	}, ctrl.getInfo)
}

func (ctrl *InfoController) getInfo(ctx context.Context, _ *struct{}) (*InfoOutput, error) {
	return &InfoOutput{Body: ctrl.info}, nil
}
