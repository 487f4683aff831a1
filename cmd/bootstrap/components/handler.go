package components

import (
	"library-lending-api/internal/handler"
	"library-lending-api/internal/handler/api"
	"library-lending-api/internal/handler/middleware"

	"go.uber.org/fx"
)

var HandlerModule = fx.Module("handler",
	fx.Provide(
		api.NewCatalogHandler,
		api.NewLendingHandler,
		api.NewProfileHandler,
		api.NewNotificationHandler,
		middleware.NewIdentityMiddleware,
	),
	fx.Invoke(handler.NewRouter),
)
