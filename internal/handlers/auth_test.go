package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"firebase.google.com/go/v4/auth"
	"github.com/anonto42/nano-midea/campus/internal/models"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const testSecret = "test-secret"

type fakeVerifier struct {
	token *auth.Token
	err   error
}

func (f fakeVerifier) VerifyIDToken(context.Context, string) (*auth.Token, error) {
	return f.token, f.err
}

func parseToken(t *testing.T, body []byte) *models.JwtCustomClaims {
	t.Helper()
	var resp models.TokenResponse
	require.NoError(t, json.Unmarshal(body, &resp))
	claims := &models.JwtCustomClaims{}
	_, err := jwt.ParseWithClaims(resp.Token, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(testSecret), nil
	})
	require.NoError(t, err)
	return claims
}

func TestAuthHandler_Signup(t *testing.T) {
	users := &mockUserRepo{}
	h := NewAuthHandler(users, nil, testSecret, time.Hour)

	users.On("GetUserByEmail", "ada@campus.edu").Return(nil, gorm.ErrRecordNotFound)
	users.On("CreateUser", mock.MatchedBy(func(u *models.User) bool {
		return u.Email == "ada@campus.edu" && bcrypt.CompareHashAndPassword([]byte(u.Password), []byte("correct horse")) == nil
	})).
		Run(func(args mock.Arguments) { args.Get(0).(*models.User).ID = 7 }).
		Return(nil)

	c, rec := newContext(t, http.MethodPost, "/auth/signup", `{"name":"Ada","email":"Ada@campus.edu","password":"correct horse"}`, 0)

	require.NoError(t, h.Signup(c))
	assert.Equal(t, http.StatusCreated, rec.Code)
	claims := parseToken(t, rec.Body.Bytes())
	assert.Equal(t, uint(7), claims.UserID)
	assert.Equal(t, "ada@campus.edu", claims.Email)
}

func TestAuthHandler_SignupDuplicateEmail(t *testing.T) {
	users := &mockUserRepo{}
	h := NewAuthHandler(users, nil, testSecret, time.Hour)
	users.On("GetUserByEmail", "ada@campus.edu").Return(&models.User{ID: 7}, nil)

	c, _ := newContext(t, http.MethodPost, "/auth/signup", `{"name":"Ada","email":"ada@campus.edu","password":"correct horse"}`, 0)

	requireHTTPError(t, h.Signup(c), http.StatusConflict)
	users.AssertNotCalled(t, "CreateUser", mock.Anything)
}

func TestAuthHandler_SignIn(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("correct horse"), bcrypt.MinCost)
	require.NoError(t, err)

	tests := []struct {
		name     string
		user     *models.User
		err      error
		password string
		code     int
	}{
		{name: "valid", user: &models.User{ID: 7, Email: "ada@campus.edu", Password: string(hash)}, password: "correct horse", code: http.StatusOK},
		{name: "wrong password", user: &models.User{ID: 7, Password: string(hash)}, password: "battery staple", code: http.StatusUnauthorized},
		{name: "firebase only account", user: &models.User{ID: 7}, password: "correct horse", code: http.StatusUnauthorized},
		{name: "unknown email", err: gorm.ErrRecordNotFound, password: "correct horse", code: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := &mockUserRepo{}
			h := NewAuthHandler(users, nil, testSecret, time.Hour)
			users.On("GetUserByEmail", "ada@campus.edu").Return(tt.user, tt.err)

			body := `{"email":"ada@campus.edu","password":"` + tt.password + `"}`
			c, rec := newContext(t, http.MethodPost, "/auth/signin", body, 0)

			err := h.SignIn(c)
			if tt.code != http.StatusOK {
				requireHTTPError(t, err, tt.code)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, uint(7), parseToken(t, rec.Body.Bytes()).UserID)
		})
	}
}

func TestAuthHandler_FirebaseLoginNotConfigured(t *testing.T) {
	h := NewAuthHandler(&mockUserRepo{}, nil, testSecret, time.Hour)
	c, _ := newContext(t, http.MethodPost, "/auth/firebase-login", `{"idToken":"abc"}`, 0)

	requireHTTPError(t, h.FirebaseLogin(c), http.StatusServiceUnavailable)
}

func TestAuthHandler_FirebaseLoginLinksExistingEmail(t *testing.T) {
	users := &mockUserRepo{}
	verifier := fakeVerifier{token: &auth.Token{
		UID:    "fb-1",
		Claims: map[string]interface{}{"email": "Ada@campus.edu", "name": "Ada"},
	}}
	h := NewAuthHandler(users, verifier, testSecret, time.Hour)

	users.On("GetUserByFirebaseUID", "fb-1").Return(nil, gorm.ErrRecordNotFound)
	users.On("GetUserByEmail", "ada@campus.edu").Return(&models.User{ID: 7, Email: "ada@campus.edu"}, nil)
	users.On("UpdateUser", mock.MatchedBy(func(u *models.User) bool { return u.FirebaseUID == "fb-1" })).Return(nil)

	c, rec := newContext(t, http.MethodPost, "/auth/firebase-login", `{"idToken":"abc"}`, 0)

	require.NoError(t, h.FirebaseLogin(c))
	assert.Equal(t, uint(7), parseToken(t, rec.Body.Bytes()).UserID)
	users.AssertNotCalled(t, "CreateUser", mock.Anything)
}

func TestAuthHandler_FirebaseLoginRejectsBadToken(t *testing.T) {
	h := NewAuthHandler(&mockUserRepo{}, fakeVerifier{err: errors.New("expired")}, testSecret, time.Hour)
	c, _ := newContext(t, http.MethodPost, "/auth/firebase-login", `{"idToken":"abc"}`, 0)

	requireHTTPError(t, h.FirebaseLogin(c), http.StatusUnauthorized)
}
