package handler

type ContextKey string

var (
	IdentityCtx         ContextKey = "identity"
	RecurringPatternCtx ContextKey = "recurringPattern"
)
