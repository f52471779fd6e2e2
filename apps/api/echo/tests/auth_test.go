package tests

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	. "github.com/minuum/qr-prayer-check/apps/api/echo"
)

func Test_authApi(t *testing.T) {
	app := setup(t)
	token := app.adminToken(t)

	expired := NewAdminClaims(app.env.Conf)
	expired.ExpiresAt = time.Now().Add(-time.Minute).Unix()
	expiredToken, err := GenerateToken(app.env.Conf, expired)
	require.NoError(t, err)

	notAdmin := NewAdminClaims(app.env.Conf)
	notAdmin.IsAdmin = false
	notAdminToken, err := GenerateToken(app.env.Conf, notAdmin)
	require.NoError(t, err)

	otherKey, err := jwt.NewWithClaims(jwt.SigningMethodHS256, NewAdminClaims(app.env.Conf)).SignedString([]byte("other"))
	require.NoError(t, err)

	tests := []httpTest{
		{
			name: "login: missing password", method: http.MethodPost, path: "/api/admin/login", body: []byte(`{}`),
			wantCode: http.StatusBadRequest, wantData: []byte(`{"password": "this field is required"}`),
		},
		{
			name: "login: wrong password", method: http.MethodPost, path: "/api/admin/login", body: []byte(`{"password": "nope"}`),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "비밀번호가 올바르지 않습니다."}),
		},
		{name: "session: anonymous", path: "/api/admin/session", wantData: []byte(`{"is_admin": false}`)},
		{name: "session: admin", path: "/api/admin/session", token: token, wantData: []byte(`{"is_admin": true}`)},
		{name: "session: expired", path: "/api/admin/session", token: expiredToken, wantData: []byte(`{"is_admin": false}`)},
		{name: "session: forged", path: "/api/admin/session", token: otherKey, wantData: []byte(`{"is_admin": false}`)},
		{name: "admin: no cookie", path: "/api/admin/settings", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "admin: expired cookie", path: "/api/admin/settings", token: expiredToken,
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, httpErr{Error: "invalid or expired jwt"}),
		},
		{
			name: "admin: forged cookie", path: "/api/admin/settings", token: otherKey,
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, httpErr{Error: "invalid or expired jwt"}),
		},
		{
			name: "admin: not an admin", path: "/api/admin/settings", token: notAdminToken,
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkCodeAndData(t, tt, app.run(t, tt))
		})
	}
}

func Test_authApi_loginLogout(t *testing.T) {
	app := setup(t)

	req, rec := newRequest(http.MethodPost, "/api/admin/login", []byte(`{"password": "2026prayer"}`))
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"is_admin": true}`, rec.Body.String())

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	cookie := cookies[0]
	assert.Equal(t, AdminCookieName, cookie.Name)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, int(app.env.Conf.AdminSessionTTL.Seconds()), cookie.MaxAge)

	// the cookie opens the admin API
	checkCodeAndData(t, httpTest{wantCode: http.StatusOK}, app.run(t, httpTest{path: "/api/admin/settings", token: cookie.Value}))

	req, rec = newAuthRequest(http.MethodPost, "/api/admin/logout", cookie.Value)
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"is_admin": false}`, rec.Body.String())
	cookies = rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "", cookies[0].Value)
	assert.True(t, cookies[0].MaxAge < 0)
}

func Test_authApi_passwordHash(t *testing.T) {
	app := setup(t)
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret!"), bcrypt.MinCost)
	require.NoError(t, err)
	app.env.Conf.AdminPasswordHash = string(hash)

	tests := []httpTest{
		{
			name: "plain password ignored", method: http.MethodPost, path: "/api/admin/login", body: []byte(`{"password": "2026prayer"}`),
			wantCode: http.StatusBadRequest,
		},
		{
			name: "hashed password", method: http.MethodPost, path: "/api/admin/login", body: []byte(`{"password": "s3cret!"}`),
			wantData: []byte(`{"is_admin": true}`),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkCodeAndData(t, tt, app.run(t, tt))
		})
	}
}

func Test_rateLimit(t *testing.T) {
	env := setup(t).env
	env.Conf.RateLimit.LoginPerSecond = 0.001
	env.Conf.RateLimit.LoginBurst = 2
	app := &testApp{Server: NewServer(Options{
		Conf:           env.Conf,
		Logger:         env.Logger,
		AttendeeSvc:    env.AttendeeSvc,
		AttendanceSvc:  env.AttendanceSvc,
		SettingSvc:     env.SettingSvc,
		DisableReqLogs: true,
	}), env: env}

	login := httpTest{method: http.MethodPost, path: "/api/admin/login", body: []byte(`{"password": "nope"}`)}
	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusBadRequest, app.run(t, login).Code)
	}
	rec := app.run(t, login)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	// other routes are not limited by the login bucket
	assert.Equal(t, http.StatusOK, app.run(t, httpTest{path: "/api/settings/public"}).Code)
}

func Test_rateLimit_forwardedFor(t *testing.T) {
	newApp := func(trustProxy bool) *testApp {
		env := setup(t).env
		env.Conf.RateLimit.LoginPerSecond = 0.001
		env.Conf.RateLimit.LoginBurst = 2
		env.Conf.Server.TrustProxy = trustProxy
		return &testApp{Server: NewServer(Options{
			Conf:           env.Conf,
			Logger:         env.Logger,
			AttendeeSvc:    env.AttendeeSvc,
			AttendanceSvc:  env.AttendanceSvc,
			SettingSvc:     env.SettingSvc,
			DisableReqLogs: true,
		}), env: env}
	}
	// every attempt comes from the same peer but claims a new client address
	loginFrom := func(app *testApp, i int) int {
		req, rec := newRequest(http.MethodPost, "/api/admin/login", []byte(`{"password": "nope"}`))
		req.Header.Set(echo.HeaderXForwardedFor, fmt.Sprintf("10.0.0.%d", i))
		app.ServeHTTP(rec, req)
		return rec.Code
	}

	t.Run("header ignored", func(t *testing.T) {
		app := newApp(false)
		codes := make(map[int]int)
		for i := 0; i < 20; i++ {
			codes[loginFrom(app, i)]++
		}
		assert.Equal(t, map[int]int{http.StatusBadRequest: 2, http.StatusTooManyRequests: 18}, codes)
	})

	t.Run("trusted proxy", func(t *testing.T) {
		app := newApp(true)
		for i := 0; i < 5; i++ {
			assert.Equal(t, http.StatusBadRequest, loginFrom(app, i))
		}
	})
}

func Test_home(t *testing.T) {
	app := setup(t)
	rec := app.run(t, httpTest{path: "/"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Welcome")
}
