package livekit

import (
	"time"

	"github.com/golang-jwt/jwt"
)

// VideoGrant: подмножество livekit grants, нужное админским вызовам.
type VideoGrant struct {
	RoomCreate bool   `json:"roomCreate,omitempty"`
	RoomList   bool   `json:"roomList,omitempty"`
	RoomAdmin  bool   `json:"roomAdmin,omitempty"`
	Room       string `json:"room,omitempty"`
}

type accessClaims struct {
	jwt.StandardClaims
	Video VideoGrant `json:"video"`
}

// короткоживущий токен: подписываем на каждый вызов
const tokenTTL = time.Minute

// SignAdminToken подписывает HS256 токен с issuer = API key.
func SignAdminToken(apiKey, apiSecret string, grant VideoGrant, now time.Time) (string, error) {
	claims := accessClaims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    apiKey,
			NotBefore: now.Add(-5 * time.Second).Unix(),
			ExpiresAt: now.Add(tokenTTL).Unix(),
		},
		Video: grant,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(apiSecret))
}
