package web

import (
	"listpad/web/api"
	"listpad/web/pages"

	"github.com/rohanthewiz/rweb"
)

// setupRoutes configures all application routes
func setupRoutes(s *rweb.Server) {
	// Page routes - HTML responses
	s.Get("/", func(ctx rweb.Context) error {
		ctx.Response().SetHeader("Content-Type", "text/html; charset=utf-8")
		return ctx.WriteHTML(pages.NewStatusPage().Render())
	})

	// Lists CRUD
	s.Get("/api/v1/lists", api.ListLists)
	s.Post("/api/v1/lists", api.CreateList)
	s.Get("/api/v1/lists/:id", api.GetList)
	s.Put("/api/v1/lists/:id", api.UpdateList)
	s.Delete("/api/v1/lists/:id", api.DeleteList)
	s.Post("/api/v1/lists/:id/archive", api.ArchiveList)
	s.Post("/api/v1/lists/:id/category", api.AssignListCategory)
	s.Post("/api/v1/lists/:id/share", api.ShareList)

	// To-do items within a list
	s.Post("/api/v1/lists/:id/todos", api.AddItem)
	s.Put("/api/v1/lists/:id/todos/:todo_id", api.UpdateItem)
	s.Post("/api/v1/lists/:id/todos/:todo_id/toggle", api.ToggleItem)
	s.Delete("/api/v1/lists/:id/todos/:todo_id", api.DeleteItem)

	// Categories CRUD
	s.Get("/api/v1/categories", api.ListCategories)
	s.Post("/api/v1/categories", api.CreateCategory)
	s.Put("/api/v1/categories/:id", api.UpdateCategory)
	s.Delete("/api/v1/categories/:id", api.DeleteCategory)

	// Sync controls and connectivity signals from the shell
	s.Get("/api/v1/sync/status", api.SyncStatus)
	s.Post("/api/v1/sync/toggle", api.SyncToggle)
	s.Post("/api/v1/sync/now", api.SyncNow)
	s.Post("/api/v1/connectivity", api.ConnectivitySignal)

	// Session boundary
	s.Post("/api/v1/session/token", api.SetToken)
	s.Post("/api/v1/session/logout", api.Logout)
}
