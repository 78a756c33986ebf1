package auth

import (
	"errors"
	"fmt"

	"github.com/angelmondragon/quotemarket-backend/pkg/enums"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID uuid.UUID
	Role   enums.ActorRole
	JTI    string
}

// AccessTokenClaims is the JWT body. Only buyers, sellers and providers hold
// tokens; the system role is reserved for in-process jobs.
type AccessTokenClaims struct {
	UserID uuid.UUID       `json:"user_id"`
	Role   enums.ActorRole `json:"role"`
	jwt.RegisteredClaims
}

var _ jwt.ClaimsValidator = (*AccessTokenClaims)(nil)

// Validate runs after the registered claims checks in ParseAccessToken.
func (c *AccessTokenClaims) Validate() error {
	if c.UserID == uuid.Nil {
		return errors.New("token has no user id")
	}
	if !tokenRole(c.Role) {
		return fmt.Errorf("token role %q not allowed", c.Role)
	}
	if c.ID == "" {
		return errors.New("token has no session id")
	}
	return nil
}

func tokenRole(role enums.ActorRole) bool {
	return role.IsValid() && role != enums.ActorRoleSystem
}
