package domain

// User é o registro persistido de um usuário da plataforma.
type User struct {
	ID         string
	Email      string
	Role       string
	IsVerified bool
}

// DecodedIdentity guarda as claims de um bearer token já verificado.
type DecodedIdentity struct {
	ID   string
	Role string
}

// AuthenticatedUser é montado a cada requisição a partir das claims do token e do
// registro atual do usuário. Role vem do token; Email e IsVerified do registro.
type AuthenticatedUser struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	Role       string `json:"role"`
	IsVerified bool   `json:"isVerified"`
}

func NewAuthenticatedUser(identity DecodedIdentity, user User) AuthenticatedUser {
	return AuthenticatedUser{
		ID:         user.ID,
		Email:      user.Email,
		Role:       identity.Role,
		IsVerified: user.IsVerified,
	}
}
