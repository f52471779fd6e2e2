package echoapi

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"

	"github.com/minuum/qr-prayer-check/core"
)

const (
	AdminCookieName = "admin_auth"
	adminUsername   = "admin"
	claimsKey       = "adminToken"
)

// Claims represents the authorization claims transmitted via the admin cookie.
type Claims struct {
	jwt.StandardClaims
	IsAdmin bool `json:"is_admin"`
}

func newJWTConfig(conf *core.Config) middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey:    []byte(conf.SecretKey),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    claimsKey,
		Claims:        new(Claims),
		TokenLookup:   "cookie:" + AdminCookieName,
	}
}

// NewAdminClaims returns claims valid for conf.AdminSessionTTL from now.
func NewAdminClaims(conf *core.Config) *Claims {
	now := time.Now()
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    conf.AppName,
			Subject:   adminUsername,
			ExpiresAt: now.Add(conf.AdminSessionTTL).Unix(),
			IssuedAt:  now.Unix(),
		},
		IsAdmin: true,
	}
}

// GenerateToken generates a signed JWT token string representing the admin Claims.
func GenerateToken(conf *core.Config, claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	ss, err := token.SignedString([]byte(conf.SecretKey))
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

func parseToken(conf *core.Config, tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, new(Claims), func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != middleware.AlgorithmHS256 {
			return nil, errors.Errorf("unexpected jwt signing method=%v", t.Header["alg"])
		}
		return []byte(conf.SecretKey), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(claimsKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errors.New("no claims in context")
}

// checkPassword prefers the bcrypt hash when one is configured.
func checkPassword(conf *core.Config, pwd string) bool {
	if conf.AdminPasswordHash != "" {
		return bcrypt.CompareHashAndPassword([]byte(conf.AdminPasswordHash), []byte(pwd)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(conf.AdminPassword), []byte(pwd)) == 1
}

type authApi struct {
	conf *core.Config
}

func registerAuthAPI(g *echo.Group, limit echo.MiddlewareFunc, conf *core.Config) {
	api := authApi{conf: conf}

	g.POST("/login", api.login, limit)
	g.POST("/logout", api.logout)
	g.GET("/session", api.session)
}

func (api *authApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := core.Validate.Struct(data); err != nil {
		return err
	}
	if !checkPassword(api.conf, data.Password) {
		return errAuthenticationFailed
	}

	claims := NewAdminClaims(api.conf)
	token, err := GenerateToken(api.conf, claims)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	ctx.SetCookie(&http.Cookie{
		Name:     AdminCookieName,
		Value:    token,
		Path:     "/",
		Expires:  time.Unix(claims.ExpiresAt, 0),
		MaxAge:   int(api.conf.AdminSessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   api.conf.Server.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	return ctx.JSON(http.StatusOK, SessionResponse{IsAdmin: true})
}

func (api *authApi) logout(ctx echo.Context) error {
	ctx.SetCookie(&http.Cookie{
		Name:     AdminCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   api.conf.Server.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	return ctx.JSON(http.StatusOK, SessionResponse{IsAdmin: false})
}

func (api *authApi) session(ctx echo.Context) error {
	cookie, err := ctx.Cookie(AdminCookieName)
	if err != nil || cookie.Value == "" {
		return ctx.JSON(http.StatusOK, SessionResponse{IsAdmin: false})
	}
	claims, err := parseToken(api.conf, cookie.Value)
	return ctx.JSON(http.StatusOK, SessionResponse{IsAdmin: err == nil && claims.IsAdmin})
}

type (
	LoginRequest struct {
		Password string `json:"password" validate:"required"`
	}

	SessionResponse struct {
		IsAdmin bool `json:"is_admin"`
	}
)
