package jwt

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// proposalAudience separa los tokens de propuesta de los de sesión: uno no sirve por el otro.
const proposalAudience = "movement-proposal"

// ProposalClaims token de propuesta: el servidor no guarda propuestas pendientes, el cliente
// devuelve este token al confirmar. ID (jti) es el ID de la propuesta.
type ProposalClaims struct {
	jwt.RegisteredClaims
	Actor    string          `json:"actor"`
	Proposal json.RawMessage `json:"proposal"`
}

// SignProposal firma payload (serializado a JSON) como token de propuesta del actor.
func SignProposal(secret, issuer, proposalID, actor string, expMinutes int, payload any) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("jwt: secret vacío")
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("jwt: serializar propuesta: %w", err)
	}
	now := time.Now()
	claims := ProposalClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        proposalID,
			Issuer:    issuer,
			Subject:   actor,
			Audience:  jwt.ClaimStrings{proposalAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(expMinutes) * time.Minute)),
		},
		Actor:    actor,
		Proposal: raw,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ParseProposal valida el token y decodifica la propuesta en into. Devuelve el ID y el actor.
func ParseProposal(secret, tokenString string, into any) (proposalID, actor string, err error) {
	claims := &ProposalClaims{}
	if err := parse(secret, tokenString, claims); err != nil {
		return "", "", err
	}
	aud, _ := claims.GetAudience()
	if len(aud) != 1 || aud[0] != proposalAudience {
		return "", "", fmt.Errorf("jwt: no es un token de propuesta")
	}
	if err := json.Unmarshal(claims.Proposal, into); err != nil {
		return "", "", fmt.Errorf("jwt: propuesta corrupta: %w", err)
	}
	return claims.ID, claims.Actor, nil
}
