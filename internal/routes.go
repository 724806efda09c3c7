package internal

import (
	"net/http"

	"iotdash/internal/controllers"
	"iotdash/internal/providers"
)

func InitRoutes(feedsController *controllers.FeedsController) providers.RouterProviderInterface {
	routers := providers.NewRouterProvider()

	// Utility endpoints. Registered before the {feedKey} routes so the
	// literal segments never shadow a key.
	routers.Get("/api/feeds/connection", http.HandlerFunc(feedsController.CheckConnection))
	routers.Post("/api/feeds/initialize", http.HandlerFunc(feedsController.InitializeFeeds))
	routers.Get("/api/feeds/status", http.HandlerFunc(feedsController.GetStatus))
	routers.Get("/api/feeds/data/last-all", http.HandlerFunc(feedsController.GetAllLastData))

	routers.Get("/api/feeds", http.HandlerFunc(feedsController.GetAllFeeds))
	routers.Post("/api/feeds", http.HandlerFunc(feedsController.CreateFeed))
	routers.Get("/api/feeds/{feedKey}", http.HandlerFunc(feedsController.GetFeed))
	routers.Put("/api/feeds/{feedKey}", http.HandlerFunc(feedsController.UpdateFeed))
	routers.Delete("/api/feeds/{feedKey}", http.HandlerFunc(feedsController.DeleteFeed))

	routers.Get("/api/feeds/{feedKey}/data", http.HandlerFunc(feedsController.GetFeedData))
	routers.Post("/api/feeds/{feedKey}/data", http.HandlerFunc(feedsController.CreateData))
	routers.Get("/api/feeds/{feedKey}/data/last", http.HandlerFunc(feedsController.GetLastData))
	routers.Get("/api/feeds/{feedKey}/chart", http.HandlerFunc(feedsController.GetChart))
	routers.Put("/api/feeds/{feedKey}/data/{dataID}", http.HandlerFunc(feedsController.UpdateData))
	routers.Delete("/api/feeds/{feedKey}/data/{dataID}", http.HandlerFunc(feedsController.DeleteData))

	return routers
}
