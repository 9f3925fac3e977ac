package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apperrors "github.com/yashrajoria/grocery-backend/common/errors"
	"github.com/yashrajoria/grocery-backend/services"
)

type MockVerifier struct {
	mock.Mock
}

func (m *MockVerifier) Verify(ctx context.Context, token string) (*services.Principal, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.Principal), args.Error(1)
}

func newRouter(v TokenVerifier) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(apperrors.ErrorMiddleware(zap.NewNop(), false))
	r.GET("/private", AuthMiddleware(v), func(c *gin.Context) {
		uid, err := GetUserID(c)
		if err != nil {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.JSON(http.StatusOK, gin.H{"user": uid, "device": c.GetString(DeviceContextKey)})
	})
	return r
}

func call(r *gin.Engine, token string) (*httptest.ResponseRecorder, map[string]interface{}) {
	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	if token != "" {
		req.Header.Set(TokenHeader, token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var body map[string]interface{}
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return w, body
}

func TestAuthMiddlewareMissingToken(t *testing.T) {
	v := new(MockVerifier)

	w, body := call(newRouter(v), "")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "No token, authorization denied", body["message"])
	v.AssertNotCalled(t, "Verify", mock.Anything, mock.Anything)
}

func TestAuthMiddlewareRejectsInvalid(t *testing.T) {
	v := new(MockVerifier)
	v.On("Verify", mock.Anything, "revoked").Return(nil, apperrors.TokenInvalid("Session is not valid or has expired"))

	w, body := call(newRouter(v), "revoked")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Session is not valid or has expired", body["message"])
}

func TestAuthMiddlewareSetsPrincipal(t *testing.T) {
	v := new(MockVerifier)
	v.On("Verify", mock.Anything, "good").Return(&services.Principal{UserID: "u-1", DeviceID: "phone", Token: "good"}, nil)

	w, body := call(newRouter(v), "good")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "u-1", body["user"])
	assert.Equal(t, "phone", body["device"])
	v.AssertExpectations(t)
}

func TestGetPrincipalMissing(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	_, err := GetPrincipal(c)
	assert.Error(t, err)
}
