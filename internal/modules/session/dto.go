package session

type SignupRequest struct {
	Username string `json:"username" binding:"required,min=3,max=32,username"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

type LoginRequest struct {
	Ident    string `json:"ident" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type MeRequest struct {
	Email string `json:"email" binding:"omitempty,email"`
}

type AccountPublic struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// TokenPair is what signup/login/refresh hand back: a bearer access token
// for the Authorization header and a raw refresh token bound for the cookie.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}
