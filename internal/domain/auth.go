package domain

import "time"

// Scope is a permission granted to an API client token.
type Scope string

const (
	ScopeAnalyze       Scope = "analyses:write"
	ScopeReadAnalyses  Scope = "analyses:read"
	ScopeReadKnowledge Scope = "kb:read"
)

// AllScopes is granted to the configured API client.
var AllScopes = []Scope{ScopeAnalyze, ScopeReadAnalyses, ScopeReadKnowledge}

// Token represents an issued access token.
type Token struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ClientID    string    `json:"client_id"`
	Scopes      []Scope   `json:"scopes"`
	IssuedAt    time.Time `json:"issued_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}
