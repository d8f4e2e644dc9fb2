package transport

// LoginRequest accepts a username or an email in Login.
type LoginRequest struct {
	Login    string `json:"login" validate:"required,notblank,max=254"`
	Password string `json:"password" validate:"required,max=72"`
}

type AuthResponse struct {
	AccessToken string `json:"accessToken"`
	ExpiresAt   string `json:"expiresAt"`
	UserID      int64  `json:"userId"`
	RoleID      int64  `json:"roleId"`
}
