package models

// OAuthToken is the body of a successful POST /oauth/token
type OAuthToken struct {
	AccessToken string `json:"access_token" yaml:"access_token"`
	TokenType   string `json:"token_type" yaml:"token_type"`
	Scope       string `json:"scope" yaml:"scope"`
	CreatedAt   int64  `json:"created_at" yaml:"created_at"`
}
