package tests

import (
	"bytes"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minuum/qr-prayer-check/core/setting"
)

func Test_settingApi(t *testing.T) {
	app := setup(t)
	token := app.adminToken(t)

	tests := []httpTest{
		{name: "public", path: "/api/settings/public", wantData: []byte(`{"session_active": true, "geofence_enabled": false}`)},
		{name: "admin only", path: "/api/admin/settings", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "enable geofence without coordinates", method: http.MethodPut, path: "/api/admin/settings", token: token,
			body: []byte(`{"geofence_enabled": true}`), wantCode: http.StatusBadRequest,
			wantData: []byte(`{"latitude": "church coordinates are required to enable the geofence"}`),
		},
		{
			name: "bad latitude", method: http.MethodPut, path: "/api/admin/settings", token: token,
			body: []byte(`{"latitude": 123}`), wantCode: http.StatusBadRequest,
			wantData: []byte(`{"latitude": "latitude must contain valid latitude coordinates"}`),
		},
		{
			name: "zero radius", method: http.MethodPut, path: "/api/admin/settings", token: token,
			body: []byte(`{"radius_m": 0}`), wantCode: http.StatusBadRequest,
			wantData: []byte(`{"radius_m": "radius_m must be 10 or greater"}`),
		},
		{
			name: "session without active", method: http.MethodPost, path: "/api/admin/settings/session", token: token,
			body: []byte(`{}`), wantCode: http.StatusBadRequest,
			wantData: []byte(`{"active": "this field is required"}`),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkCodeAndData(t, tt, app.run(t, tt))
		})
	}

	t.Run("update", func(t *testing.T) {
		rec := app.run(t, httpTest{
			method: http.MethodPut, path: "/api/admin/settings", token: token,
			body: []byte(`{"geofence_enabled": true, "latitude": 37.5546, "longitude": 126.9706, "radius_m": 300}`),
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var st setting.Settings
		decode(t, rec, &st)
		assert.True(t, st.SessionActive)
		assert.Equal(t, setting.Geofence{Enabled: true, Latitude: 37.5546, Longitude: 126.9706, RadiusM: 300}, st.Geofence)

		checkCodeAndData(t,
			httpTest{wantData: []byte(`{"session_active": true, "geofence_enabled": true}`)},
			app.run(t, httpTest{path: "/api/settings/public"}),
		)
	})

	t.Run("session", func(t *testing.T) {
		rec := app.run(t, httpTest{method: http.MethodPost, path: "/api/admin/settings/session", token: token, body: []byte(`{"active": false}`)})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var st setting.Settings
		decode(t, rec, &st)
		assert.False(t, st.SessionActive)

		rec = app.run(t, httpTest{method: http.MethodPost, path: "/api/check-in", body: []byte(`{"name": "홍길동", "phone": "1234"}`)})
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func Test_settingApi_entryQR(t *testing.T) {
	app := setup(t)
	token := app.adminToken(t)

	for _, path := range []string{
		"/api/admin/qr",
		"/api/admin/qr?size=128",
		"/api/admin/qr?url=https://prayer.example.org/",
	} {
		rec := app.run(t, httpTest{path: path, token: token})
		require.Equal(t, http.StatusOK, rec.Code, path)
		assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
		assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), pngMagic), path)
	}

	tests := []httpTest{
		{
			name: "bad url", path: "/api/admin/qr?url=ftp://example.org", token: token,
			wantCode: http.StatusBadRequest, wantData: []byte(`{"url": "url must be an http(s) URL"}`),
		},
		{
			name: "bad size", path: "/api/admin/qr?size=big", token: token,
			wantCode: http.StatusBadRequest, wantData: []byte(`{"size": "size must be a positive integer"}`),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkCodeAndData(t, tt, app.run(t, tt))
		})
	}
}
