package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediguide/backend/internal/types"
)

type stubValidator struct {
	claims *types.TokenClaims
	err    error
}

func (s *stubValidator) ValidateToken(token string) (*types.TokenClaims, error) {
	return s.claims, s.err
}

func newAuthRouter(validator TokenValidator) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/protected", AuthMiddleware(validator), func(c *gin.Context) {
		userID, _ := c.Get("user_id")
		nickname, _ := c.Get("nickname")
		c.JSON(http.StatusOK, gin.H{
			"user_id":  userID.(uuid.UUID).String(),
			"nickname": nickname,
		})
	})
	return router
}

func doAuthRequest(router *gin.Engine, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	userID := uuid.New()
	valid := &stubValidator{claims: &types.TokenClaims{UserID: userID, Nickname: "小明"}}

	t.Run("valid token sets identity", func(t *testing.T) {
		w := doAuthRequest(newAuthRouter(valid), "Bearer good-token")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), userID.String())
		assert.Contains(t, w.Body.String(), "小明")
	})

	t.Run("missing header", func(t *testing.T) {
		w := doAuthRequest(newAuthRouter(valid), "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("wrong scheme", func(t *testing.T) {
		w := doAuthRequest(newAuthRouter(valid), "Basic dXNlcjpwYXNz")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("malformed header", func(t *testing.T) {
		w := doAuthRequest(newAuthRouter(valid), "Bearer")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("validator rejection", func(t *testing.T) {
		invalid := &stubValidator{err: errors.New("token expired")}
		w := doAuthRequest(newAuthRouter(invalid), "Bearer expired-token")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "token expired")
	})
}
