package app

import (
	"net/http"
	"strings"
	"testing"

	"ipurpose/api/internal/auth"
)

func TestSignUpVerifySignInFlow(t *testing.T) {
	fs := newFakeStore()
	server := NewHTTPServer(newTestService(fs), "*")

	rr := serve(t, server, http.MethodPost, "/api/auth/signup", `{"email":" Ada@Example.com ","password":"correct horse","displayName":"Ada"}`, "")
	if rr.Code != http.StatusCreated {
		t.Fatalf("signup: expected 201, got %d %s", rr.Code, rr.Body.String())
	}
	verifyToken, _ := decodeResponse(t, rr)["devVerificationToken"].(string)
	if verifyToken == "" {
		t.Fatal("expected a dev verification token when SMTP is not configured")
	}

	rr = serve(t, server, http.MethodPost, "/api/auth/signup", `{"email":"ada@example.com","password":"correct horse","displayName":"Ada"}`, "")
	if rr.Code != http.StatusConflict || decodeResponse(t, rr)["code"] != "EMAIL_EXISTS" {
		t.Fatalf("expected EMAIL_EXISTS, got %d %s", rr.Code, rr.Body.String())
	}

	signIn := `{"email":"ada@example.com","password":"correct horse"}`
	rr = serve(t, server, http.MethodPost, "/api/auth/signin", signIn, "")
	if rr.Code != http.StatusForbidden || decodeResponse(t, rr)["code"] != "EMAIL_NOT_VERIFIED" {
		t.Fatalf("expected EMAIL_NOT_VERIFIED, got %d %s", rr.Code, rr.Body.String())
	}

	rr = serve(t, server, http.MethodPost, "/api/auth/verify-email", `{"token":"`+verifyToken+`"}`, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("verify: expected 200, got %d %s", rr.Code, rr.Body.String())
	}

	rr = serve(t, server, http.MethodPost, "/api/auth/signin", signIn, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("signin: expected 200, got %d %s", rr.Code, rr.Body.String())
	}
	payload := decodeResponse(t, rr)
	accessToken, _ := payload["accessToken"].(string)
	if accessToken == "" || payload["refreshToken"] == "" || payload["tier"] != "free" {
		t.Fatalf("unexpected signin payload %+v", payload)
	}
	var cookie *http.Cookie
	for _, c := range rr.Result().Cookies() {
		if c.Name == auth.CookieName {
			cookie = c
		}
	}
	if cookie == nil || cookie.Value != accessToken || !cookie.HttpOnly {
		t.Fatalf("expected http-only session cookie, got %+v", cookie)
	}

	rr = serve(t, server, http.MethodGet, "/api/session", "", accessToken)
	session := decodeResponse(t, rr)
	if session["authenticated"] != true || session["email"] != "ada@example.com" {
		t.Fatalf("unexpected session %+v", session)
	}
}

func TestSignInRejectsWrongPassword(t *testing.T) {
	fs := newFakeStore()
	server := NewHTTPServer(newTestService(fs), "*")
	rr := serve(t, server, http.MethodPost, "/api/auth/signup", `{"email":"ada@example.com","password":"correct horse","displayName":"Ada"}`, "")
	if rr.Code != http.StatusCreated {
		t.Fatalf("signup: %d", rr.Code)
	}

	rr = serve(t, server, http.MethodPost, "/api/auth/signin", `{"email":"ada@example.com","password":"battery staple"}`, "")
	if rr.Code != http.StatusUnauthorized || decodeResponse(t, rr)["code"] != "INVALID_CREDENTIALS" {
		t.Fatalf("expected INVALID_CREDENTIALS, got %d %s", rr.Code, rr.Body.String())
	}
	rr = serve(t, server, http.MethodPost, "/api/auth/signin", `{"email":"nobody@example.com","password":"battery staple"}`, "")
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("unknown email must look like a wrong password, got %d", rr.Code)
	}
}

func TestSignUpValidation(t *testing.T) {
	server := NewHTTPServer(newTestService(newFakeStore()), "*")

	for _, body := range []string{
		`{"email":"ada@example.com","password":"short","displayName":"Ada"}`,
		`{"email":"not-an-email","password":"correct horse","displayName":"Ada"}`,
		`{"email":"ada@example.com","password":"correct horse","displayName":"  "}`,
	} {
		rr := serve(t, server, http.MethodPost, "/api/auth/signup", body, "")
		if rr.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422 for %s, got %d", body, rr.Code)
		}
	}

	rr := serve(t, server, http.MethodPost, "/api/auth/signup", `{"email":`, "")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed JSON, got %d", rr.Code)
	}
}

func TestSignUpSendsVerificationEmail(t *testing.T) {
	svc := newTestService(newFakeStore())
	mail := &fakeMailer{}
	svc.mailer = mail
	server := NewHTTPServer(svc, "*")

	rr := serve(t, server, http.MethodPost, "/api/auth/signup", `{"email":"ada@example.com","password":"correct horse","displayName":"Ada"}`, "")
	if rr.Code != http.StatusCreated {
		t.Fatalf("signup: %d", rr.Code)
	}
	if _, leaked := decodeResponse(t, rr)["devVerificationToken"]; leaked {
		t.Fatal("token must not be returned when email is configured")
	}
	if len(mail.verification) != 1 || !strings.Contains(mail.verification[0], "http://app.test/verify-email?token=") {
		t.Fatalf("unexpected verification mail %v", mail.verification)
	}
}

func TestPasswordResetFlow(t *testing.T) {
	user := testUser("free")
	fs := newFakeStore(user)
	svc := newTestService(fs)
	server := NewHTTPServer(svc, "*")

	rr := serve(t, server, http.MethodPost, "/api/auth/reset-password/request", `{"email":"missing@example.com"}`, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 for unknown email, got %d", rr.Code)
	}
	if _, ok := decodeResponse(t, rr)["devResetToken"]; ok {
		t.Fatal("unknown email must not produce a token")
	}

	rr = serve(t, server, http.MethodPost, "/api/auth/reset-password/request", `{"email":"ada@example.com"}`, "")
	resetToken, _ := decodeResponse(t, rr)["devResetToken"].(string)
	if resetToken == "" {
		t.Fatalf("expected a dev reset token, body=%s", rr.Body.String())
	}

	rr = serve(t, server, http.MethodPost, "/api/auth/reset-password", `{"token":"`+resetToken+`","newPassword":"brand new secret"}`, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("reset: expected 200, got %d %s", rr.Code, rr.Body.String())
	}

	rr = serve(t, server, http.MethodPost, "/api/auth/reset-password", `{"token":"`+resetToken+`","newPassword":"another secret"}`, "")
	if rr.Code != http.StatusBadRequest || decodeResponse(t, rr)["code"] != "INVALID_TOKEN" {
		t.Fatalf("expected used token to be rejected, got %d %s", rr.Code, rr.Body.String())
	}

	rr = serve(t, server, http.MethodPost, "/api/auth/signin", `{"email":"ada@example.com","password":"brand new secret"}`, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("signin with new password: %d %s", rr.Code, rr.Body.String())
	}
}

func TestRefreshRotatesToken(t *testing.T) {
	fs := newFakeStore(testUser("free"))
	svc := newTestService(fs)
	server := NewHTTPServer(svc, "*")
	session, err := svc.issueSession(t.Context(), testUser("free"))
	if err != nil {
		t.Fatalf("issue session: %v", err)
	}

	body := `{"refreshToken":"` + session.RefreshToken + `"}`
	rr := serve(t, server, http.MethodPost, "/api/session/refresh", body, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("refresh: expected 200, got %d %s", rr.Code, rr.Body.String())
	}
	if decodeResponse(t, rr)["refreshToken"] == session.RefreshToken {
		t.Fatal("expected a rotated refresh token")
	}

	rr = serve(t, server, http.MethodPost, "/api/session/refresh", body, "")
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected reused refresh token to fail, got %d", rr.Code)
	}
}

func TestSessionWithoutToken(t *testing.T) {
	server := NewHTTPServer(newTestService(newFakeStore()), "*")
	rr := serve(t, server, http.MethodGet, "/api/session", "", "")
	if rr.Code != http.StatusOK || decodeResponse(t, rr)["authenticated"] != false {
		t.Fatalf("unexpected session response %d %s", rr.Code, rr.Body.String())
	}
}
