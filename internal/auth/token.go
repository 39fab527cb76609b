package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

var ErrInvalidToken = errors.New("invalid resume token")

// ResumeClaims bind a signed token to one seat in one room.
type ResumeClaims struct {
	RoomCode   string `json:"roomCode"`
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
	Slot       string `json:"slot"`
	jwt.RegisteredClaims
}

// TokenService signs and verifies resume tokens. A client that drops its
// connection presents the token on the next upgrade to reclaim its slot.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenService(secret string, ttl time.Duration) *TokenService {
	return &TokenService{secret: []byte(secret), ttl: ttl}
}

// Issue signs a resume token for one seat.
func (t *TokenService) Issue(code, playerID, playerName, slot string) (string, error) {
	now := time.Now()
	claims := ResumeClaims{
		RoomCode:   code,
		PlayerID:   playerID,
		PlayerName: playerName,
		Slot:       slot,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

// Verify parses and validates a resume token, returning its claims.
func (t *TokenService) Verify(tokenString string) (*ResumeClaims, error) {
	claims := &ResumeClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(tok *jwt.Token) (interface{}, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return t.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.RoomCode == "" || claims.PlayerID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
