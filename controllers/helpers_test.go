package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apperrors "github.com/yashrajoria/grocery-backend/common/errors"
	"github.com/yashrajoria/grocery-backend/middleware"
	"github.com/yashrajoria/grocery-backend/services"
)

const testToken = "test-token"

// staticVerifier accepts testToken as user u-1 on device "phone".
type staticVerifier struct{}

func (staticVerifier) Verify(_ context.Context, token string) (*services.Principal, error) {
	if token != testToken {
		return nil, apperrors.TokenInvalid("Token is not valid")
	}
	return &services.Principal{UserID: "u-1", DeviceID: "phone", Token: token}, nil
}

func newTestRouter() (*gin.Engine, *gin.RouterGroup) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(apperrors.ErrorMiddleware(zap.NewNop(), false))
	protected := router.Group("/", middleware.AuthMiddleware(staticVerifier{}))
	return router, protected
}

func doJSON(t *testing.T, router *gin.Engine, method, path, body string, authed bool) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	var reader *bytes.Buffer
	if body != "" {
		reader = bytes.NewBufferString(body)
	} else {
		reader = &bytes.Buffer{}
	}
	req, err := http.NewRequest(method, path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if authed {
		req.Header.Set(middleware.TokenHeader, testToken)
	}

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)

	var decoded map[string]interface{}
	_ = json.Unmarshal(recorder.Body.Bytes(), &decoded)
	return recorder, decoded
}
