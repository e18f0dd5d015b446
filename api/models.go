package api

import "github.com/dverhagen/doorman"

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Remember bool   `json:"remember"`
}

// AccountResponse describes the authenticated account. The password
// hash deliberately never leaves the server.
type AccountResponse struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
}

// CSRFTokenResponse carries a freshly issued CSRF token; its proof is
// set as a cookie on the same response.
type CSRFTokenResponse struct {
	Token string `json:"csrf_token"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error string `json:"error"`
}

func accountResponse(a *doorman.Account) AccountResponse {
	return AccountResponse{
		ID:          a.ID,
		Email:       a.Email,
		DisplayName: a.DisplayName,
		Role:        a.Role.String(),
	}
}
