package authentication

import (
	"errors"
	"net/http"
	"os"
	"strings"

	"pulse-cms-backend/config"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
)

var JwtKey = []byte(os.Getenv("JWT_SECRET"))

const sessionName = "pulse-session"

type Claims struct {
	Email  string `json:"email"`
	Role   string `json:"role"`
	UserID uint   `json:"userId"`
	jwt.StandardClaims
}

// ValidateToken разбирает Bearer-токен из заголовка Authorization
func ValidateToken(r *http.Request) (*Claims, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return nil, errors.New("authorization header required")
	}

	tokenString := strings.TrimPrefix(authHeader, "Bearer ")
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return JwtKey, nil
	})
	if err != nil || !token.Valid {
		return nil, errors.New("invalid or expired token")
	}

	return claims, nil
}

// OptionalIdentity returns claims when a valid token is present and nil
// otherwise. Recommendation endpoints serve public pages, so a missing or
// broken token means an anonymous caller, not a 401.
func OptionalIdentity(r *http.Request) *Claims {
	claims, err := ValidateToken(r)
	if err != nil {
		return nil
	}
	return claims
}

// EnsureSessionID returns the caller's session id, creating and saving the
// cookie when absent, so anonymous interactions can still be attributed.
func EnsureSessionID(w http.ResponseWriter, r *http.Request) string {
	session, _ := config.Store.Get(r, sessionName)

	if id, ok := session.Values["id"].(string); ok && id != "" {
		return id
	}

	id := uuid.NewString()
	session.Values["id"] = id
	if err := session.Save(r, w); err != nil {
		// Без cookie событие останется анонимным, это допустимо
		return ""
	}
	return id
}
