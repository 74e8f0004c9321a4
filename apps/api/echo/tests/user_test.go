package tests

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"testing"
	"time"

	echoapi "github.com/trezcool/darasa/apps/api/echo"
	"github.com/trezcool/darasa/core/user"
	emailsvc "github.com/trezcool/darasa/services/email"
	testutil "github.com/trezcool/darasa/tests"
)

func Test_userApi_login(t *testing.T) {
	resetDB()

	student := testutil.CreateUser(t, usrRepo, "Hero", "heroic", "hero@test.cd", "LolC@t123", false, false, true)
	naughty := testutil.CreateUser(t, usrRepo, "N Dog", "ndog00", "ndog@test.cd", "LolC@t123", false, false, false) // 😂

	reqMsg := "this field is required"
	tests := []httpTest{
		{
			name: "required fields", wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"username": reqMsg, "password": reqMsg}),
		},
		{
			name: "unknown user", wantCode: http.StatusBadRequest,
			body:     marchallObj(t, echoapi.LoginRequest{Username: "who", Password: "dis"}),
			wantData: marchallObj(t, httpErr{Error: "invalid credentials"}),
		},
		{
			name: "wrong password", wantCode: http.StatusBadRequest,
			body:     marchallObj(t, echoapi.LoginRequest{Username: student.Username, Password: "lol"}),
			wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "deactivated account", wantCode: http.StatusForbidden,
			body:     marchallObj(t, echoapi.LoginRequest{Username: naughty.Username, Password: "LolC@t123"}),
			wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
		{
			name: "login with username", wantCode: http.StatusOK,
			body: marchallObj(t, echoapi.LoginRequest{Username: student.Username, Password: "LolC@t123"}),
		},
		{
			name: "login with email", wantCode: http.StatusOK,
			body: marchallObj(t, echoapi.LoginRequest{Username: student.Email, Password: "LolC@t123"}),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/users/login"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(tt.method, tt.path, tt.body)
			app.ServeHTTP(rec, req)

			// cannot guess the token.. just check that it is not empty
			if tt.wantCode == http.StatusOK {
				if rec.Code != tt.wantCode {
					t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
				}
				var respData echoapi.LoginResponse
				if err := json.Unmarshal(rec.Body.Bytes(), &respData); err != nil {
					t.Errorf("json.Unmarshal() failed! err %v", err)
				}
				if respData.Token == "" {
					t.Error("failed! empty token")
				}

				refreshed, err := usrRepo.GetUser(context.Background(), user.GetFilter{ID: student.ID})
				if err != nil {
					t.Fatalf("GetUser(): %v", err)
				}
				if refreshed.LastLogin.IsZero() {
					t.Error("failed! LastLogin not set")
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_userQuery(t *testing.T) {
	resetDB()

	path := func(search, ordering string, isActive *bool) string {
		v := make(url.Values)
		if search != "" {
			v.Add("search", search)
		}
		if ordering != "" {
			v.Add("ordering", ordering)
		}
		if isActive != nil {
			v.Add("is_active", strconv.FormatBool(*isActive))
		}
		return "/v1/users?" + v.Encode()
	}
	bPtr := func(b bool) *bool { return &b }

	now := time.Now()
	t1 := now.Add(1 * time.Hour)
	t2 := now.Add(2 * time.Hour)
	t3 := now.Add(3 * time.Hour)

	student := testutil.CreateUser(t, usrRepo, "Hero", "heroic", "hero@test.cd", "", false, false, true, now)
	teacher := testutil.CreateUser(t, usrRepo, "Teacher", "teach01", "teacher@test.cd", "", false, false, true, t1)
	staff := testutil.CreateUser(t, usrRepo, "Staff", "staff01", "staff@test.cd", "", true, false, true, t2)
	naughty := testutil.CreateUser(t, usrRepo, "N Dog", "ndog00", "ndog@test.cd", "", false, false, false, t3) // 😂

	staffToken := getToken(t, staff)
	empty := marchallList(t, []interface{}{}...)

	tests := []httpTest{
		{name: "Auth required", path: "/v1/users", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Staff required", path: "/v1/users", token: getToken(t, student),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "Get all", path: "/v1/users", token: staffToken,
			wantData: marchallList(t, student, teacher, staff, naughty),
		},
		// filtering
		{name: "search (unknown)", path: path("lol", "", nil), token: staffToken, wantData: empty},
		{name: "search=tea", path: path("tea", "", nil), token: staffToken, wantData: marchallList(t, teacher)},
		{name: "is_active=false", path: path("", "", bPtr(false)), token: staffToken, wantData: marchallList(t, naughty)},
		{
			name: "is_active=true", path: path("", "", bPtr(true)),
			token: staffToken, wantData: marchallList(t, student, teacher, staff),
		},
		// ordering
		{
			name: "order by created_at", path: path("", "created_at", nil), token: staffToken,
			wantData: marchallList(t, student, teacher, staff, naughty),
		},
		{
			name: "order by -created_at", path: path("", "-created_at", nil), token: staffToken,
			wantData: marchallList(t, naughty, staff, teacher, student),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet
		if tt.wantCode == 0 {
			tt.wantCode = http.StatusOK
		}

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_userCreate(t *testing.T) {
	resetDB()

	student := testutil.CreateUser(t, usrRepo, "Hero", "heroic", "hero@test.cd", "", false, false, true)
	staff := testutil.CreateUser(t, usrRepo, "Staff", "staff01", "staff@test.cd", "", true, false, true)
	superuser := testutil.CreateUser(t, usrRepo, "Root", "root01", "root@test.cd", "", true, true, true)

	newUsr := func(uname, email string, isStaff, isSuper bool) []byte {
		return marchallObj(t, user.NewUser{
			Name:            "New Guy",
			Username:        uname,
			Email:           email,
			Password:        "LolC@t123",
			PasswordConfirm: "LolC@t123",
			IsStaff:         isStaff,
			IsSuperuser:     isSuper,
		})
	}

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Staff required", token: getToken(t, student), body: newUsr("newguy", "new@test.cd", false, false),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "Staff cannot mint superuser", token: getToken(t, staff), body: newUsr("newguy", "new@test.cd", false, true),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "username taken", token: getToken(t, staff), body: newUsr(student.Username, "new@test.cd", false, false),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"username": "a user with this username already exists"}),
		},
		{
			name: "email taken", token: getToken(t, staff), body: newUsr("newguy", student.Email, false, false),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"email": "a user with this email already exists"}),
		},
		{name: "Staff creates user", token: getToken(t, staff), body: newUsr("newguy", "new@test.cd", false, false), wantCode: http.StatusCreated},
		{name: "Superuser mints superuser", token: getToken(t, superuser), body: newUsr("newroot", "newroot@test.cd", true, true), wantCode: http.StatusCreated},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/users/register"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)

			if tt.wantCode == http.StatusCreated {
				if rec.Code != tt.wantCode {
					t.Fatalf("failed! code = %v; wantCode %v; body %v", rec.Code, tt.wantCode, rec.Body.String())
				}
				var respData user.User
				if err := json.Unmarshal(rec.Body.Bytes(), &respData); err != nil {
					t.Errorf("json.Unmarshal() failed! err %v", err)
				}
				if respData.ID == "" {
					t.Error("failed! empty user ID")
				}
				if respData.Profile == nil {
					t.Error("failed! user created without a profile")
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_userRetrieveUpdate(t *testing.T) {
	resetDB()

	student := testutil.CreateUser(t, usrRepo, "Hero", "heroic", "hero@test.cd", "", false, false, true)
	other := testutil.CreateUser(t, usrRepo, "Other", "other01", "other@test.cd", "", false, false, true)
	staff := testutil.CreateUser(t, usrRepo, "Staff", "staff01", "staff@test.cd", "", true, false, true)

	studentToken := getToken(t, student)

	tests := []httpTest{
		{
			name: "Auth required", method: http.MethodGet, path: "/v1/users/" + student.ID,
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken),
		},
		{
			name: "Own account visible", method: http.MethodGet, path: "/v1/users/" + student.ID, token: studentToken,
			wantCode: http.StatusOK, wantData: marchallObj(t, student),
		},
		{
			name: "Other accounts hidden", method: http.MethodGet, path: "/v1/users/" + other.ID, token: studentToken,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound),
		},
		{
			name: "Staff sees any account", method: http.MethodGet, path: "/v1/users/" + other.ID, token: getToken(t, staff),
			wantCode: http.StatusOK, wantData: marchallObj(t, other),
		},
		{
			name: "Non-staff cannot change username", method: http.MethodPut, path: "/v1/users/" + student.ID, token: studentToken,
			body:     marchallObj(t, user.UpdateUser{Username: "newname"}),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "Name updated", method: http.MethodPut, path: "/v1/users/" + student.ID, token: studentToken,
			body: marchallObj(t, user.UpdateUser{Name: "Renamed Hero"}), wantCode: http.StatusOK,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)

			if tt.name == "Name updated" {
				if rec.Code != tt.wantCode {
					t.Fatalf("failed! code = %v; wantCode %v; body %v", rec.Code, tt.wantCode, rec.Body.String())
				}
				var respData user.User
				if err := json.Unmarshal(rec.Body.Bytes(), &respData); err != nil {
					t.Errorf("json.Unmarshal() failed! err %v", err)
				}
				if respData.Name != "Renamed Hero" {
					t.Errorf("failed! Name = %q; want %q", respData.Name, "Renamed Hero")
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_userDestroy(t *testing.T) {
	resetDB()

	student := testutil.CreateUser(t, usrRepo, "Hero", "heroic", "hero@test.cd", "", false, false, true)
	staff := testutil.CreateUser(t, usrRepo, "Staff", "staff01", "staff@test.cd", "", true, false, true)

	staffToken := getToken(t, staff)

	t.Run("Staff cannot delete themselves", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/v1/users/"+staff.ID, staffToken)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Errorf("failed! code = %v; wantCode %v", rec.Code, http.StatusForbidden)
		}
	})

	t.Run("Staff deletes user", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/v1/users/"+student.ID, staffToken)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("failed! code = %v; wantCode %v", rec.Code, http.StatusNoContent)
		}
		if _, err := usrRepo.GetUser(context.Background(), user.GetFilter{ID: student.ID}); err == nil {
			t.Error("failed! user still exists")
		}
	})
}

func Test_userApi_userResetPassword(t *testing.T) {
	resetDB()

	student := testutil.CreateUser(t, usrRepo, "Hero", "heroic", "hero@test.cd", "OldC@t123", false, false, true)
	successData := marchallObj(t, echoapi.SuccessResponse{Success: "If the email address supplied is associated with an active account on this system, " +
		"an email will arrive in your inbox shortly with instructions to reset your password."})

	linkRegex, err := regexp.Compile(`/password-reset/(\S+)/(\S+)`)
	if err != nil {
		t.Fatalf("regexp.Compile(): %v", err)
	}

	type extraTest struct {
		emailSent bool
	}
	tests := []httpTest{
		{
			name: "required fields", wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"email": "this field is required"}),
		},
		{
			name: "invalid email", wantCode: http.StatusBadRequest, body: marchallObj(t, echoapi.PasswordResetRequest{Email: "lol"}),
			wantData: marchallObj(t, map[string]string{"email": "email must be a valid email address"}),
		},
		{
			name: "unknown email", wantCode: http.StatusOK, body: marchallObj(t, echoapi.PasswordResetRequest{Email: "lol@test.com"}),
			wantData: successData, extra: extraTest{emailSent: false},
		},
		{
			name: "known email", wantCode: http.StatusOK, body: marchallObj(t, echoapi.PasswordResetRequest{Email: student.Email}),
			wantData: successData, extra: extraTest{emailSent: true},
		},
	}

	var uid, token string
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/users/password-reset"

		t.Run(tt.name, func(t *testing.T) {
			emailsvc.ClearSentMessages()

			req, rec := newRequest(tt.method, tt.path, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)

			if extra, ok := tt.extra.(extraTest); ok {
				sent := emailsvc.GetSentMessages()
				if !extra.emailSent {
					if len(sent) > 0 {
						t.Errorf("failed! len(SentMessages) = %d; want 0", len(sent))
					}
					return
				}
				if len(sent) != 1 {
					t.Fatalf("failed! len(SentMessages) = %d; want 1", len(sent))
				}
				msg := sent[0]
				if msg.To[0].Address != student.Email {
					t.Errorf("failed! To = %v; want %v", msg.To[0].Address, student.Email)
				}
				m := linkRegex.FindStringSubmatch(msg.TextContent)
				if m == nil {
					t.Fatalf("failed! text content does not contain a reset link")
				}
				uid, token = m[1], m[2]
			}
		})
	}

	// complete the loop: confirm the reset with the mailed credentials
	t.Run("confirm reset", func(t *testing.T) {
		tt := httpTest{
			method: http.MethodPost, path: "/v1/users/password-reset-confirm", wantCode: http.StatusOK,
			body:     marchallObj(t, user.ResetUserPassword{Token: token, UID: uid, Password: "LolC@t123", PasswordConfirm: "LolC@t123"}),
			wantData: marchallObj(t, echoapi.SuccessResponse{Success: "Password has been reset with the new password."}),
		}
		req, rec := newRequest(tt.method, tt.path, tt.body)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)

		refreshed, err := usrRepo.GetUser(context.Background(), user.GetFilter{ID: student.ID})
		if err != nil {
			t.Fatalf("GetUser(): %v", err)
		}
		if err = refreshed.CheckPassword("LolC@t123"); err != nil {
			t.Error("failed! new password not set")
		}
	})
}

func Test_userApi_userConfirmPasswordReset_invalid(t *testing.T) {
	resetDB()

	student := testutil.CreateUser(t, usrRepo, "Hero", "heroic", "hero@test.cd", "OldC@t123", false, false, true)
	validUID := user.EncodeUID(student)

	reqMsg := "this field is required"
	tests := []httpTest{
		{
			name: "required fields", wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"token": reqMsg, "uid": reqMsg, "password": reqMsg, "password_confirm": reqMsg}),
		},
		{
			name: "PasswordConfirm must = Password", wantCode: http.StatusBadRequest,
			body:     marchallObj(t, user.ResetUserPassword{Token: "lol", UID: "lol", Password: "LolC@t123", PasswordConfirm: "lol"}),
			wantData: marchallObj(t, map[string]string{"password_confirm": "password_confirm must be equal to Password"}),
		},
		{
			name: "invalid uid", wantCode: http.StatusBadRequest,
			body:     marchallObj(t, user.ResetUserPassword{Token: "lol", UID: "???", Password: "LolC@t123", PasswordConfirm: "LolC@t123"}),
			wantData: marchallObj(t, map[string]string{"uid": "invalid uid"}),
		},
		{
			name: "invalid token", wantCode: http.StatusBadRequest,
			body:     marchallObj(t, user.ResetUserPassword{Token: "HE4TS-sigsig-sig", UID: validUID, Password: "LolC@t123", PasswordConfirm: "LolC@t123"}),
			wantData: marchallObj(t, map[string]string{"token": "invalid token"}),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/users/password-reset-confirm"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(tt.method, tt.path, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_userRefreshToken(t *testing.T) {
	resetDB()

	student := testutil.CreateUser(t, usrRepo, "Hero", "heroic", "hero@test.cd", "", false, false, true)
	naughty := testutil.CreateUser(t, usrRepo, "N Dog", "ndog00", "ndog@test.cd", "", false, false, false) // 😂

	// a token whose refresh window has passed
	claims := echoapi.GetUserClaims(student, time.Now().Add(-365*24*time.Hour).Unix())
	unrefreshableToken, err := echoapi.GenerateToken(claims)
	if err != nil {
		t.Fatalf("GenerateToken(): %v", err)
	}

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Inactive user not allowed", token: getToken(t, naughty),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
		{
			name: "Refresh period expired", token: unrefreshableToken,
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "refresh has expired"}),
		},
		{name: "Token refreshed", token: getToken(t, student), wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/users/token-refresh"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)

			// cannot guess the new token.. just check that it is not empty
			if tt.wantCode == http.StatusOK {
				if rec.Code != tt.wantCode {
					t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
				}
				var respData echoapi.LoginResponse
				if err := json.Unmarshal(rec.Body.Bytes(), &respData); err != nil {
					t.Errorf("json.Unmarshal() failed! err %v", err)
				}
				if respData.Token == "" {
					t.Error("failed! empty token")
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}
