package model

// AdminLoginRequest is the payload for administrator authentication.
type AdminLoginRequest struct {
	Username string `json:"username" binding:"required,max=100"`
	Password string `json:"password" binding:"required,max=128"`
}

// AdminLoginResponse is returned after successful admin login.
type AdminLoginResponse struct {
	Token    string `json:"token"`
	Username string `json:"username"`
}
