// README: HTTP router registration.
package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"courier/internal/http/handlers"
	"courier/internal/http/middleware"
)

type RouterDeps struct {
	Orders  handlers.OrderService
	Drivers handlers.DriverService
	Routes  handlers.RouteService
	Users   handlers.UserService
	Session handlers.SessionService
	Cache   Cache
	Fixes   handlers.FixFeeder
	Perm    handlers.PermissionSetter
	Waker   handlers.Waker
	Nearby  handlers.NearbyFinder
	Metrics http.Handler
	APIKey  string
	Logger  *slog.Logger
}

// Cache is what the handlers read from the root store.
type Cache interface {
	handlers.StateReader
	handlers.OrderReader
}

func NewRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(middleware.Recovery(deps.Logger), middleware.Logging(deps.Logger))

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})
	if deps.Metrics != nil {
		r.GET("/metrics", gin.WrapH(deps.Metrics))
	}

	api := r.Group("/api", middleware.Auth(deps.APIKey))

	stateHandler := handlers.NewStateHandler(deps.Cache)
	api.GET("/state", stateHandler.Summary)
	api.GET("/state/validate", stateHandler.Validate)

	sessionHandler := handlers.NewSessionHandler(deps.Session)
	api.POST("/session/login", sessionHandler.Login)
	api.POST("/session/app-token", sessionHandler.AppToken)
	api.POST("/session/logout", sessionHandler.Logout)

	driverHandler := handlers.NewDriverHandler(deps.Drivers, deps.Cache)
	api.GET("/drivers/:id", driverHandler.Get)
	api.POST("/drivers/:id/select", driverHandler.Select)
	api.POST("/drivers/:id/oncall/toggle", driverHandler.ToggleOnCall)
	api.POST("/drivers/:id/active/toggle", driverHandler.ToggleActive)
	api.POST("/drivers/:id/info", driverHandler.UpdateInformation)
	api.GET("/dsprs/:id/drivers", driverHandler.ListForDSPR)
	api.POST("/dsprs/:id/drivers", driverHandler.Assign)

	orderLocks := handlers.NewOrderLocks()
	routeHandler := handlers.NewRouteHandler(deps.Routes, orderLocks)
	api.POST("/routes", routeHandler.Create)
	api.POST("/routes/:id/progress", routeHandler.Progress)
	api.POST("/routes/:id/deactivate", routeHandler.Deactivate)
	api.DELETE("/routes/:id/orders/:order_id", routeHandler.RemoveOrder)
	api.GET("/drivers/:id/advance", routeHandler.Decision)
	api.POST("/drivers/:id/advance", routeHandler.Advance)
	api.GET("/drivers/:id/eta", routeHandler.Estimate)

	orderHandler := handlers.NewOrderHandler(deps.Orders, deps.Cache, orderLocks)
	api.GET("/orders/:id", orderHandler.Get)
	api.POST("/orders/:id/process", orderHandler.MarkInProcess)
	api.POST("/orders/:id/complete", orderHandler.Complete)
	api.POST("/orders/:id/cancel", orderHandler.Cancel)

	userHandler := handlers.NewUserHandler(deps.Users, deps.Cache)
	api.GET("/users/:id", userHandler.Get)
	api.GET("/users/:id/notes", userHandler.Notes)
	api.POST("/users/:id/notes", userHandler.CreateNote)
	api.POST("/notes/:note_id/hide", userHandler.HideNote)
	api.POST("/notes/:note_id/unhide", userHandler.UnhideNote)
	api.POST("/users/:id/id-documents/refresh", userHandler.IDDocuments)
	api.POST("/users/:id/medical-recommendations/refresh", userHandler.MedicalRecommendations)
	api.POST("/push-token", userHandler.RegisterPushToken)

	locationHandler := handlers.NewLocationHandler(deps.Fixes, deps.Perm, deps.Waker, deps.Nearby)
	api.POST("/location/fixes", locationHandler.Feed)
	api.POST("/location/errors", locationHandler.ReportError)
	api.PUT("/location/permission", locationHandler.SetPermission)
	api.GET("/dsprs/:id/drivers/nearby", locationHandler.Nearby)

	return r
}
