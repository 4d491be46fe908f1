package server

import (
	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"

	v1 "github.com/gosuda/taskflow/internal/api/v1"
	"github.com/gosuda/taskflow/internal/api/ws"
	"github.com/gosuda/taskflow/internal/workflow"
)

func registerAPIRoutes(api huma.API, coordinator *workflow.Coordinator) {
	v1.RegisterDependencyRoutes(api, coordinator)
	v1.RegisterTaskRoutes(api, coordinator)
}

func registerWSRoutes(r chi.Router, hub *ws.Hub) {
	r.Get("/tasks/{taskID}", hub.ServeTask)
	r.Get("/events", hub.ServeEvents)
}
