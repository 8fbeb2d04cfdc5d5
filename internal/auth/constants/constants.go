package constants

const (
	// AuthorizePath is appended to unsplash.auth_url for the consent page
	AuthorizePath = "/oauth/authorize"

	// TokenPath is appended to unsplash.auth_url for the code exchange
	TokenPath = "/oauth/token"

	// NativeRedirectPath is where Unsplash sends the code for out-of-band redirect URIs
	NativeRedirectPath = "/oauth/authorize/native"

	// CodeQueryParam carries the authorization code in the redirect
	CodeQueryParam = "code"

	// TokenType for Bearer authentication
	TokenType = "Bearer"

	// ScopeSeparator joins scopes in Unsplash's scope parameter
	ScopeSeparator = "+"
)
