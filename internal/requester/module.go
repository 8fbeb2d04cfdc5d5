package requester

import (
	"go.uber.org/fx"
)

// Module provides the requester module dependencies
var Module = fx.Options(
	fx.Provide(
		NewHTTPRequester,
		func(r *HTTPRequester) Executor { return r },
		fx.Annotate(
			NewBearerAuthManager,
			fx.As(new(AuthManager)),
		),
		NewHTTPRequestBuilder,
	),
)
