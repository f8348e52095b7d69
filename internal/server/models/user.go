package models

// User is a credential record as stored in the user_auth table.
// PasswordHash is algorithm-tagged (e.g. "$2b$12$..." or "$argon2id$...").
type User struct {
	Username     string
	Email        string
	FullName     string
	PasswordHash string
	Disabled     bool
}

// Principal is the identity handed to protected handlers. It never
// carries the password hash.
type Principal struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
}

// Principal projects the public profile fields of u.
func (u *User) Principal() *Principal {
	return &Principal{Username: u.Username, Email: u.Email, FullName: u.FullName}
}
