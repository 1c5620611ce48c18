package jwt

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/threed-dev/threed/shared/domain"
	internal_errors "github.com/threed-dev/threed/shared/errors"
	"github.com/threed-dev/threed/shared/logger"
)

type JwtService interface {
	NewToken(user domain.User) (string, error)
	DecodeToken(jwtStr string) (domain.Identity, error)
	FromHeader(authorization string) domain.Viewer
}

type Jwt struct {
	secretKey string
	ttl       time.Duration // zero means tokens never expire
}

func New(secretKey string, ttl time.Duration) *Jwt {
	return &Jwt{secretKey, ttl}
}

func (j *Jwt) NewToken(user domain.User) (string, error) {
	claims := jwt.MapClaims{}
	claims["id"] = user.Id
	claims["username"] = user.Username
	claims["iat"] = time.Now().Unix()
	if j.ttl > 0 {
		claims["exp"] = time.Now().Add(j.ttl).Unix()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(j.secretKey))
	if err != nil {
		logger.Log.Error("failed to sign token", "error", err)
		return "", fmt.Errorf("can't create token: %w", err)
	}

	return tokenString, nil
}

func (j *Jwt) DecodeToken(jwtStr string) (domain.Identity, error) {
	token, err := jwt.Parse(jwtStr, func(token *jwt.Token) (interface{}, error) {
		// Verify signing algorithm
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, &internal_errors.ErrorWithStatusCode{Message: fmt.Sprintf("Unexpected signing method: %v", token.Header["alg"]), StatusCode: http.StatusUnauthorized}
		}
		return []byte(j.secretKey), nil
	})
	if err != nil {
		logger.Log.Debug("token rejected", "error", err)
		return domain.Identity{}, &internal_errors.ErrorWithStatusCode{Message: "Invalid token signature", StatusCode: http.StatusUnauthorized, Code: internal_errors.CodeUnauthenticated}
	}
	if !token.Valid {
		return domain.Identity{}, &internal_errors.ErrorWithStatusCode{Message: "Invalid access token", StatusCode: http.StatusUnauthorized, Code: internal_errors.CodeUnauthenticated}
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return domain.Identity{}, &internal_errors.ErrorWithStatusCode{Message: "Invalid token claims", StatusCode: http.StatusUnauthorized, Code: internal_errors.CodeUnauthenticated}
	}
	id, _ := claims["id"].(string)
	username, _ := claims["username"].(string)
	if id == "" {
		return domain.Identity{}, &internal_errors.ErrorWithStatusCode{Message: "Invalid token claims", StatusCode: http.StatusUnauthorized, Code: internal_errors.CodeUnauthenticated}
	}

	return domain.Identity{Id: id, Username: username}, nil
}

// FromHeader never fails: anything but a valid "Bearer <token>" is anonymous.
func (j *Jwt) FromHeader(authorization string) domain.Viewer {
	tokenStr, ok := strings.CutPrefix(authorization, "Bearer ")
	if !ok || tokenStr == "" {
		return domain.Anonymous()
	}
	identity, err := j.DecodeToken(tokenStr)
	if err != nil {
		return domain.Anonymous()
	}
	return domain.Authenticated(identity)
}
