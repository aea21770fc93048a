package echoapi_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/trezcool/masomo-portal/apps/api/echo"
	"github.com/trezcool/masomo-portal/core/user"
	"github.com/trezcool/masomo-portal/testutil"
)

func Test_userApi_login(t *testing.T) {
	f := setup(t)
	testutil.CreateUser(t, f.usrRepo, "Gone", "gone_user", "gone@masomo.test", testutil.Password, []string{user.RoleTeacher}, false)

	tests := []httpTest{
		{
			name: "missing fields", body: []byte(`{}`), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"username": "this field is required", "password": "this field is required"}),
		},
		{
			name: "wrong password", body: marchallObj(t, LoginRequest{Username: "mwalimu", Password: "nope"}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "invalid credentials"}),
		},
		{
			name: "unknown user", body: marchallObj(t, LoginRequest{Username: "nobody", Password: testutil.Password}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "invalid credentials"}),
		},
		{
			name: "deactivated", body: marchallObj(t, LoginRequest{Username: "gone_user", Password: testutil.Password}),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
		{name: "by username", body: marchallObj(t, LoginRequest{Username: " MWALIMU ", Password: testutil.Password}), wantCode: http.StatusOK},
		{name: "by email", body: marchallObj(t, LoginRequest{Username: "juma@masomo.test", Password: testutil.Password}), wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.method = http.MethodPost
			tt.path = "/v1/users/login"
			rec := f.serve(tt)
			checkCodeAndData(t, tt, rec)

			if tt.wantCode == http.StatusOK {
				var res LoginResponse
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
				assert.NotEmpty(t, res.Token)
			}
		})
	}
}

func Test_userApi_me(t *testing.T) {
	f := setup(t)
	teacher, err := f.usrRepo.GetUserByID(context.Background(), f.Teacher.ID)
	require.NoError(t, err)

	tests := []httpTest{
		{name: "auth required", path: "/v1/users/me", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "garbage token", path: "/v1/users/me", token: "abc", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, httpErr{Error: "invalid or expired jwt"})},
		{name: "ok", path: "/v1/users/me", token: getToken(t, f.conf, f.Teacher), wantCode: http.StatusOK, wantData: marchallObj(t, teacher)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkCodeAndData(t, tt, f.serve(tt))
		})
	}
}

func Test_userApi_refreshToken(t *testing.T) {
	f := setup(t)
	expired := time.Now().Add(-f.conf.Server.JWTRefreshExpirationDelta - time.Minute).Unix()

	tests := []httpTest{
		{name: "auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "refresh expired", token: getToken(t, f.conf, f.Teacher, expired), wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "refresh has expired"})},
		{name: "ok", token: getToken(t, f.conf, f.Teacher), wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.method = http.MethodPost
			tt.path = "/v1/users/token-refresh"
			checkCodeAndData(t, tt, f.serve(tt))
		})
	}
}

func Test_userApi_create(t *testing.T) {
	f := setup(t)
	nu := user.NewUser{
		Name:            "Zawadi Ali",
		Username:        "zawadi",
		Email:           "zawadi@masomo.test",
		Password:        "Gr@d1ngT1me",
		PasswordConfirm: "Gr@d1ngT1me",
		Roles:           []string{user.RoleTeacher},
	}

	tests := []httpTest{
		{name: "admin required", token: getToken(t, f.conf, f.Teacher), body: marchallObj(t, nu), wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"})},
		{
			name: "username taken", token: getToken(t, f.conf, f.Admin),
			body:     marchallObj(t, user.NewUser{Name: "X", Username: "mwalimu", Password: nu.Password, PasswordConfirm: nu.Password}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"username": user.ErrUsernameExists.Error()}),
		},
		{
			name: "role above own", token: getToken(t, f.conf, f.Admin),
			body:     marchallObj(t, user.NewUser{Name: "Boss", Username: "the_boss", Password: nu.Password, PasswordConfirm: nu.Password, Roles: []string{user.RoleAdminOwner}}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"roles": "not enough rights to set these roles"}),
		},
		{name: "ok", token: getToken(t, f.conf, f.Admin), body: marchallObj(t, nu), wantCode: http.StatusCreated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.method = http.MethodPost
			tt.path = "/v1/users"
			checkCodeAndData(t, tt, f.serve(tt))
		})
	}
}
