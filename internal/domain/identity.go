package domain

// User is a verified identity returned by the authentication collaborator.
type User struct {
	ID    UserID `json:"id"`
	Email string `json:"email"`
}
