package models

// AuthUser est l'utilisateur authentifié extrait du JWT
type AuthUser struct {
	ID    string `json:"user_id"`
	Email string `json:"email"`
}
