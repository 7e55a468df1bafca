package model

// User is the ticket holder.  Authentication lives elsewhere; booking only
// needs to know the account exists and is active.
type User struct {
	ID     uint64 `json:"id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	Active bool   `json:"active"`
}
