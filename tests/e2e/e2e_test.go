package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"huddle/internal/database"
	"huddle/internal/domain"
	"huddle/internal/middleware"
	"huddle/internal/modules/friend"
	"huddle/internal/modules/realtime"
	"huddle/internal/modules/session"
	jwtsvc "huddle/internal/pkg/jwt"
	"huddle/internal/pkg/validator"
	"huddle/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type E2ETestSuite struct {
	router     *gin.Engine
	db         *gorm.DB
	jwtService *jwtsvc.Service
}

type TestResponse struct {
	Success bool                   `json:"success"`
	Data    map[string]interface{} `json:"data,omitempty"`
	Error   *ErrorDetail           `json:"error,omitempty"`
}

type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func setupTestSuite(t *testing.T) *E2ETestSuite {
	db, err := database.Connect(filepath.Join(t.TempDir(), "e2e.db"))
	require.NoError(t, err, "Failed to connect to test database")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	models := []interface{}{
		&domain.Account{},
		&domain.RefreshToken{},
		&domain.FriendRequest{},
	}
	for _, model := range models {
		err := db.AutoMigrate(model)
		require.NoError(t, err, fmt.Sprintf("Failed to migrate %T", model))
	}

	accountRepo := repository.NewAccountRepository(db)
	refreshRepo := repository.NewRefreshTokenRepository(db)
	friendRepo := repository.NewFriendRepository(db)

	jwtService := jwtsvc.New("test_secret_key_32_characters_min", "huddle-e2e", 15*time.Minute)

	tokenStore := session.NewTokenStore(refreshRepo, "e2e-pepper", 720*time.Hour)
	sessionService := session.NewService(accountRepo, tokenStore, jwtService)
	sessionHandler := session.NewHandler(sessionService, false, "lax", "/api/v1", 720*time.Hour)

	registry := realtime.NewRegistry()
	dispatcher := realtime.NewDispatcher(registry)

	friendService := friend.NewService(friendRepo, accountRepo, dispatcher)
	friendHandler := friend.NewHandler(friendService)

	r := gin.New()
	r.Use(gin.Recovery())

	v1 := r.Group("/api/v1")
	sessionHandler.RegisterPublicRoutes(v1)

	protected := v1.Group("")
	protected.Use(middleware.JWTAuth(jwtService))
	{
		sessionHandler.RegisterProtectedRoutes(protected)
		friendHandler.RegisterRoutes(protected)
	}

	return &E2ETestSuite{
		router:     r,
		db:         db,
		jwtService: jwtService,
	}
}

func (s *E2ETestSuite) makeRequest(method, path string, body interface{}, token string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	var bodyBytes []byte
	if body != nil {
		bodyBytes, _ = json.Marshal(body)
	}

	req := httptest.NewRequest(method, path, bytes.NewBuffer(bodyBytes))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func parseResponse(t *testing.T, w *httptest.ResponseRecorder) *TestResponse {
	t.Helper()
	var resp TestResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp),
		"Failed to parse response. Status: %d, Body: %s", w.Code, w.Body.String())
	return &resp
}

// refreshCookie pulls the refresh_token cookie out of a response, nil if
// none was set.
func refreshCookie(w *httptest.ResponseRecorder) *http.Cookie {
	resp := http.Response{Header: w.Header()}
	for _, c := range resp.Cookies() {
		if c.Name == "refresh_token" {
			return c
		}
	}
	return nil
}

func (s *E2ETestSuite) signup(t *testing.T, username, email, password string) (string, *http.Cookie, int64) {
	t.Helper()
	w := s.makeRequest("POST", "/api/v1/signup", map[string]interface{}{
		"username": username,
		"email":    email,
		"password": password,
	}, "")
	require.Equal(t, http.StatusOK, w.Code, "signup failed: %s", w.Body.String())

	resp := parseResponse(t, w)
	require.True(t, resp.Success)
	access := resp.Data["access_token"].(string)
	cookie := refreshCookie(w)
	require.NotNil(t, cookie, "signup must set the refresh cookie")

	account := resp.Data["account"].(map[string]interface{})
	return access, cookie, int64(account["id"].(float64))
}

// =============================================================================
// Flow 1: Signup, login and identity
// =============================================================================

func TestFlow1_SignupAndLogin(t *testing.T) {
	suite := setupTestSuite(t)

	t.Run("POST /signup", func(t *testing.T) {
		w := suite.makeRequest("POST", "/api/v1/signup", map[string]interface{}{
			"username": "alice",
			"email":    "alice@test.com",
			"password": "hello123",
		}, "")

		assert.Equal(t, http.StatusOK, w.Code)

		resp := parseResponse(t, w)
		assert.True(t, resp.Success)
		assert.NotEmpty(t, resp.Data["access_token"])

		account := resp.Data["account"].(map[string]interface{})
		assert.Equal(t, "alice", account["username"])
		assert.Equal(t, "alice@test.com", account["email"])
		assert.NotContains(t, account, "password_hash")

		cookie := refreshCookie(w)
		require.NotNil(t, cookie)
		assert.True(t, cookie.HttpOnly)
		assert.Equal(t, "/api/v1", cookie.Path)
	})

	t.Run("POST /signup duplicate identifier", func(t *testing.T) {
		w := suite.makeRequest("POST", "/api/v1/signup", map[string]interface{}{
			"username": "alice",
			"email":    "other@test.com",
			"password": "hello123",
		}, "")

		assert.Equal(t, http.StatusConflict, w.Code)
		resp := parseResponse(t, w)
		assert.Equal(t, "IDENTIFIER_TAKEN", resp.Error.Code)
	})

	t.Run("POST /login by username and by email", func(t *testing.T) {
		for _, ident := range []string{"alice", "alice@test.com"} {
			w := suite.makeRequest("POST", "/api/v1/login", map[string]interface{}{
				"ident":    ident,
				"password": "hello123",
			}, "")

			assert.Equal(t, http.StatusOK, w.Code, "login by %q", ident)
			resp := parseResponse(t, w)
			assert.True(t, resp.Success)
			assert.NotEmpty(t, resp.Data["access_token"])
			assert.NotNil(t, refreshCookie(w))
		}
	})

	t.Run("POST /login credential opacity", func(t *testing.T) {
		unknown := suite.makeRequest("POST", "/api/v1/login", map[string]interface{}{
			"ident":    "nobody",
			"password": "whatever1",
		}, "")
		wrongPw := suite.makeRequest("POST", "/api/v1/login", map[string]interface{}{
			"ident":    "alice",
			"password": "wrong-password",
		}, "")

		// Same status, same code: no account existence oracle.
		assert.Equal(t, http.StatusUnauthorized, unknown.Code)
		assert.Equal(t, http.StatusUnauthorized, wrongPw.Code)
		assert.Equal(t, parseResponse(t, unknown).Error.Code, parseResponse(t, wrongPw).Error.Code)
	})

	t.Run("POST /me", func(t *testing.T) {
		access, _, _ := suite.signup(t, "bob", "bob@test.com", "hello123")

		w := suite.makeRequest("POST", "/api/v1/me", nil, access)
		assert.Equal(t, http.StatusOK, w.Code)

		resp := parseResponse(t, w)
		account := resp.Data["account"].(map[string]interface{})
		assert.Equal(t, "bob", account["username"])

		// Optional email cross-check: a mismatch is rejected.
		w = suite.makeRequest("POST", "/api/v1/me", map[string]interface{}{
			"email": "someone-else@test.com",
		}, access)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("POST /me without token", func(t *testing.T) {
		w := suite.makeRequest("POST", "/api/v1/me", nil, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

// =============================================================================
// Flow 2: Refresh rotation and reuse detection
// =============================================================================

func TestFlow2_RefreshRotation(t *testing.T) {
	suite := setupTestSuite(t)

	_, cookie1, _ := suite.signup(t, "carol", "carol@test.com", "hello123")

	var cookie2 *http.Cookie

	t.Run("POST /refresh rotates the cookie", func(t *testing.T) {
		w := suite.makeRequest("POST", "/api/v1/refresh", nil, "", cookie1)
		assert.Equal(t, http.StatusOK, w.Code)

		resp := parseResponse(t, w)
		assert.NotEmpty(t, resp.Data["access_token"])

		cookie2 = refreshCookie(w)
		require.NotNil(t, cookie2)
		assert.NotEqual(t, cookie1.Value, cookie2.Value, "rotation must issue a new token")
	})

	t.Run("POST /refresh with the spent token is rejected", func(t *testing.T) {
		w := suite.makeRequest("POST", "/api/v1/refresh", nil, "", cookie1)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "INVALID_REFRESH_TOKEN", parseResponse(t, w).Error.Code)
	})

	t.Run("reuse kills the whole family", func(t *testing.T) {
		// The replay above was a theft signal; the rotated successor is
		// dead too.
		w := suite.makeRequest("POST", "/api/v1/refresh", nil, "", cookie2)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("POST /refresh without cookie", func(t *testing.T) {
		w := suite.makeRequest("POST", "/api/v1/refresh", nil, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

// =============================================================================
// Flow 3: Logout
// =============================================================================

func TestFlow3_Logout(t *testing.T) {
	suite := setupTestSuite(t)

	_, cookie, _ := suite.signup(t, "dave", "dave@test.com", "hello123")

	t.Run("POST /logout revokes and clears", func(t *testing.T) {
		w := suite.makeRequest("POST", "/api/v1/logout", nil, "", cookie)
		assert.Equal(t, http.StatusOK, w.Code)

		cleared := refreshCookie(w)
		require.NotNil(t, cleared)
		assert.Empty(t, cleared.Value)
		assert.Less(t, cleared.MaxAge, 0)
	})

	t.Run("POST /refresh after logout", func(t *testing.T) {
		w := suite.makeRequest("POST", "/api/v1/refresh", nil, "", cookie)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("POST /logout without cookie is a no-op", func(t *testing.T) {
		w := suite.makeRequest("POST", "/api/v1/logout", nil, "")
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("POST /logout with a bogus cookie", func(t *testing.T) {
		w := suite.makeRequest("POST", "/api/v1/logout", nil, "",
			&http.Cookie{Name: "refresh_token", Value: "bogus"})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		// The cookie is still cleared so the client drops the dead session.
		assert.NotNil(t, refreshCookie(w))
	})
}

// =============================================================================
// Flow 4: Friend requests over the authenticated surface
// =============================================================================

func TestFlow4_FriendRequests(t *testing.T) {
	suite := setupTestSuite(t)

	aliceToken, _, aliceID := suite.signup(t, "alice", "alice@test.com", "hello123")
	bobToken, _, bobID := suite.signup(t, "bob", "bob@test.com", "hello123")

	var requestID string

	t.Run("POST /friends/requests", func(t *testing.T) {
		w := suite.makeRequest("POST", "/api/v1/friends/requests", map[string]interface{}{
			"user_id": bobID,
		}, aliceToken)

		assert.Equal(t, http.StatusCreated, w.Code)
		resp := parseResponse(t, w)
		request := resp.Data["request"].(map[string]interface{})
		requestID = request["id"].(string)
		assert.Equal(t, "pending", request["status"])
	})

	t.Run("POST /friends/requests to self", func(t *testing.T) {
		w := suite.makeRequest("POST", "/api/v1/friends/requests", map[string]interface{}{
			"user_id": aliceID,
		}, aliceToken)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("POST /friends/requests duplicate", func(t *testing.T) {
		w := suite.makeRequest("POST", "/api/v1/friends/requests", map[string]interface{}{
			"user_id": bobID,
		}, aliceToken)
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("GET /friends/requests as recipient", func(t *testing.T) {
		w := suite.makeRequest("GET", "/api/v1/friends/requests", nil, bobToken)
		assert.Equal(t, http.StatusOK, w.Code)

		resp := parseResponse(t, w)
		requests := resp.Data["requests"].([]interface{})
		require.Len(t, requests, 1)
		assert.Equal(t, float64(aliceID), requests[0].(map[string]interface{})["from_id"])
	})

	t.Run("accept requires the recipient", func(t *testing.T) {
		w := suite.makeRequest("POST", "/api/v1/friends/requests/"+requestID+"/accept", nil, aliceToken)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("POST /friends/requests/:id/accept", func(t *testing.T) {
		w := suite.makeRequest("POST", "/api/v1/friends/requests/"+requestID+"/accept", nil, bobToken)
		assert.Equal(t, http.StatusOK, w.Code)

		// Answering twice is a conflict.
		w = suite.makeRequest("POST", "/api/v1/friends/requests/"+requestID+"/decline", nil, bobToken)
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("GET /friends on both sides", func(t *testing.T) {
		w := suite.makeRequest("GET", "/api/v1/friends", nil, aliceToken)
		assert.Equal(t, http.StatusOK, w.Code)
		friends := parseResponse(t, w).Data["friends"].([]interface{})
		require.Len(t, friends, 1)
		assert.Equal(t, float64(bobID), friends[0])

		w = suite.makeRequest("GET", "/api/v1/friends", nil, bobToken)
		friends = parseResponse(t, w).Data["friends"].([]interface{})
		require.Len(t, friends, 1)
		assert.Equal(t, float64(aliceID), friends[0])
	})
}

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	validator.RegisterCustom()
	os.Exit(m.Run())
}
