package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gettruefans/truefans-api/internal/pkg/jwthelper"
)

const testSigningKey = "0123456789abcdef0123456789abcdef"

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(NewAuthenticator(testSigningKey).VerifyJWT())
	router.GET("/test", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"user_id": ctx.GetUint(ContextKeyUserID)})
	})

	return router
}

func TestVerifyJWT(t *testing.T) {
	token, err := jwthelper.GenerateToken([]byte(testSigningKey), 42, "truefans-test")
	require.NoError(t, err)

	otherKey, err := jwthelper.GenerateToken([]byte("another-signing-key-entirely"), 42, "truefans-test")
	require.NoError(t, err)

	tests := []struct {
		name       string
		header     string
		userAgent  string
		wantStatus int
	}{
		{name: "missing header", wantStatus: http.StatusUnauthorized},
		{name: "not bearer", header: "Token " + token, userAgent: "truefans-test", wantStatus: http.StatusUnauthorized},
		{name: "garbage token", header: "Bearer invalid_token_xyz", userAgent: "truefans-test", wantStatus: http.StatusUnauthorized},
		{name: "wrong key", header: "Bearer " + otherKey, userAgent: "truefans-test", wantStatus: http.StatusUnauthorized},
		{name: "other user agent", header: "Bearer " + token, userAgent: "curl/8.0", wantStatus: http.StatusUnauthorized},
		{name: "valid", header: "Bearer " + token, userAgent: "truefans-test", wantStatus: http.StatusOK},
	}

	router := newTestRouter()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			req.Header.Set("User-Agent", tt.userAgent)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == http.StatusOK {
				assert.JSONEq(t, `{"user_id":42}`, w.Body.String())
			} else {
				assert.JSONEq(t, `{"error":"invalid or missing token"}`, w.Body.String())
			}
		})
	}
}
