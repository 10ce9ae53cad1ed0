package models

// AuthState is the authentication status reported by the auth collaborator.
// IsResolving stays true until a stored credential is validated or found absent.
type AuthState struct {
	IsAuthenticated bool `json:"is_authenticated"`
	IsResolving     bool `json:"is_resolving"`
}

// ResolvingAuth is the state of a tab before its credential has been checked
var ResolvingAuth = AuthState{IsResolving: true}
