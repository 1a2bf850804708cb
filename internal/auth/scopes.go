package auth

// Known OAuth scopes used by the pact service.
const (
	ScopeContractsWrite = "contracts:write"
	ScopeContractsRead  = "contracts:read"
)
