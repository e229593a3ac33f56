package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"firebase.google.com/go/v4/auth"
	"github.com/anonto42/nano-midea/campus/internal/models"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubVerifier struct{ uid string }

func (s stubVerifier) VerifyIDToken(_ context.Context, idToken string) (*auth.Token, error) {
	if idToken != "good" {
		return nil, errors.New("invalid token")
	}
	return &auth.Token{UID: s.uid}, nil
}

type stubUsers map[string]uint

func (s stubUsers) GetUserByFirebaseUID(uid string) (*models.User, error) {
	id, ok := s[uid]
	if !ok {
		return nil, errors.New("record not found")
	}
	return &models.User{ID: id}, nil
}

func TestFirebaseAuthMiddleware(t *testing.T) {
	tests := []struct {
		name  string
		token string
		uid   string
		want  uint
		code  int
	}{
		{name: "linked account", token: "good", uid: "fb-1", want: 7},
		{name: "unlinked account", token: "good", uid: "fb-2", code: http.StatusUnauthorized},
		{name: "bad token", token: "bad", uid: "fb-1", code: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodGet, "/api/v1/posts", nil)
			req.Header.Set("Authorization", "Bearer "+tt.token)
			c := e.NewContext(req, httptest.NewRecorder())

			var got uint
			mw := FirebaseAuthMiddleware(stubVerifier{uid: tt.uid}, stubUsers{"fb-1": 7})
			err := mw(func(c echo.Context) error {
				got, _ = c.Get(UserIDKey).(uint)
				return nil
			})(c)

			if tt.code != 0 {
				var he *echo.HTTPError
				require.ErrorAs(t, err, &he)
				assert.Equal(t, tt.code, he.Code)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
