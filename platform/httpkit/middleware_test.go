package httpkit

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"agenda_portal_backend/platform/logger"
)

func TestCallerRateLimiterSharesBucketPerKey(t *testing.T) {
	l := NewCallerRateLimiter(10, logger.New("development"))

	a := l.getLimiter("caller-a")
	if l.getLimiter("caller-a") != a {
		t.Error("same caller should reuse one bucket")
	}
	if l.getLimiter("caller-b") == a {
		t.Error("different callers must not share a bucket")
	}
}

func TestRateLimitExhaustsBurst(t *testing.T) {
	gin.SetMode(gin.TestMode)

	l := NewCallerRateLimiter(2, logger.New("development"))
	router := gin.New()
	router.GET("/x", l.RateLimit(), func(c *gin.Context) { c.Status(http.StatusOK) })

	statuses := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		router.ServeHTTP(w, req)
		statuses = append(statuses, w.Code)
	}

	if statuses[0] != http.StatusOK || statuses[1] != http.StatusOK {
		t.Errorf("first two requests should pass, got %v", statuses)
	}
	if statuses[2] != http.StatusTooManyRequests {
		t.Errorf("third request should be limited, got %d", statuses[2])
	}
}

func TestGetIdentityAnonymous(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	id := GetIdentity(c)
	if id.IsAuthenticated() {
		t.Error("a context without user info is anonymous")
	}
	if id.CompanyID() != nil {
		t.Error("anonymous identity has no company")
	}
}

func TestGetIdentityAuthenticated(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	userID := uuid.New()
	companyID := uuid.New()
	c.Set(ContextUserIDKey, userID)
	c.Set(ContextCompanyIDKey, companyID)
	c.Set(ContextRolesKey, []string{"admin"})

	id := GetIdentity(c)
	if !id.IsAuthenticated() {
		t.Fatal("identity should be authenticated")
	}
	if id.UserID() != userID {
		t.Errorf("UserID() = %v, want %v", id.UserID(), userID)
	}
	if got := id.CompanyID(); got == nil || *got != companyID {
		t.Errorf("CompanyID() = %v, want %v", got, companyID)
	}
	if !id.HasRole("admin") || id.HasRole("viewer") {
		t.Error("role membership mismatch")
	}
}
