package domain

// User is an operator account held by the external users table. It exists
// only to authenticate logins; after that the signed token is the sole
// source of identity.
type User struct {
	Username     string
	FullName     string
	PasswordHash string
	Role         Role
	AreaCode     *string
	Active       bool
}
