package models

// UserResponse is the public view of an identity.
type UserResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// AuthResponse is returned by register and login.
type AuthResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

// MeResponse echoes the identity asserted by the caller's token.
type MeResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

// ToUserResponse converts a User for the wire; the password hash is never exposed.
func ToUserResponse(u *User) UserResponse {
	return UserResponse{
		ID:    u.ID.String(),
		Name:  u.Name,
		Email: u.Email,
		Role:  u.Role.String(),
	}
}

// ToAuthResponse converts a Session for the wire.
func ToAuthResponse(s *Session) AuthResponse {
	return AuthResponse{Token: s.Token, User: ToUserResponse(s.User)}
}
