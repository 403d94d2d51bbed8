package admin

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func TestHashAndVerify(t *testing.T) {
	hashed, err := HashKey("hunter2")
	require.NoError(t, err)

	require.True(t, VerifyKey(hashed, "hunter2"))
	require.False(t, VerifyKey(hashed, "hunter3"))
	require.False(t, VerifyKey("", "hunter2"))
	require.False(t, VerifyKey(hashed, ""))
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hashed, err := HashKey("hunter2")
	require.NoError(t, err)

	serve := func(hash, key string) int {
		r := gin.New()
		r.GET("/x", Middleware(hash), func(c *gin.Context) { c.Status(http.StatusNoContent) })
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		if key != "" {
			req.Header.Set(KeyHeader, key)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	require.Equal(t, http.StatusNoContent, serve(hashed, "hunter2"))
	require.Equal(t, http.StatusUnauthorized, serve(hashed, "wrong"))
	require.Equal(t, http.StatusUnauthorized, serve(hashed, ""))
	require.Equal(t, http.StatusForbidden, serve("", "hunter2"))
}
