package domain

// Role names carried in application bearer tokens.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)
