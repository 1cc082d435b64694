package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/magickw/ShopSmartly-sub000/internal/database"
	"github.com/magickw/ShopSmartly-sub000/internal/models"
)

// AuthServiceTestSuite contains auth service tests
type AuthServiceTestSuite struct {
	suite.Suite
	db          *gorm.DB
	authService *Service
}

func (suite *AuthServiceTestSuite) SetupTest() {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(suite.T(), err)

	err = db.Exec(`CREATE TABLE users (
		id TEXT PRIMARY KEY,
		created_at DATETIME,
		updated_at DATETIME,
		deleted_at DATETIME,
		email TEXT,
		username TEXT,
		display_name TEXT,
		password_hash TEXT,
		google_id TEXT,
		apple_id TEXT,
		avatar_url TEXT,
		subscription_tier TEXT,
		subscription_expires_at DATETIME,
		last_active_at DATETIME
	)`).Error
	require.NoError(suite.T(), err)

	database.DB = db
	suite.db = db

	suite.authService = NewService(
		[]byte("test_jwt_secret_key"),
		nil, // Redis not needed for unit tests
		"test_google_client_id",
		"test_google_client_secret",
		"test_apple_client_id",
		"test_apple_client_secret",
	)
}

func (suite *AuthServiceTestSuite) TestRegisterNativeUser() {
	t := suite.T()

	req := RegisterRequest{
		Email:    "test@shopper.com",
		Username: "testshopper",
		Password: "password123",
	}

	authResp, err := suite.authService.RegisterNativeUser(req)
	require.NoError(t, err)
	require.NotNil(t, authResp)

	assert.NotEmpty(t, authResp.Token)
	assert.Equal(t, req.Email, authResp.User.Email)
	assert.Equal(t, req.Username, authResp.User.Username)
	assert.NotNil(t, authResp.User.PasswordHash)
	assert.Equal(t, models.TierFree, authResp.User.SubscriptionTier)

	// Duplicate email
	_, err = suite.authService.RegisterNativeUser(req)
	assert.Equal(t, ErrUserExists, err)

	// Duplicate username, different email
	req2 := RegisterRequest{
		Email:    "other@shopper.com",
		Username: "testshopper",
		Password: "password123",
	}
	_, err = suite.authService.RegisterNativeUser(req2)
	assert.Equal(t, ErrUsernameExists, err)
}

func (suite *AuthServiceTestSuite) TestLoginNativeUser() {
	t := suite.T()

	_, err := suite.authService.RegisterNativeUser(RegisterRequest{
		Email:    "login@shopper.com",
		Username: "loginuser",
		Password: "password123",
	})
	require.NoError(t, err)

	authResp, err := suite.authService.LoginNativeUser(LoginRequest{
		Email:    "login@shopper.com",
		Password: "password123",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, authResp.Token)
	assert.NotNil(t, authResp.User.LastActiveAt)

	// Wrong password
	_, err = suite.authService.LoginNativeUser(LoginRequest{
		Email:    "login@shopper.com",
		Password: "wrongpassword",
	})
	assert.Equal(t, ErrInvalidCredentials, err)

	// Unknown email
	_, err = suite.authService.LoginNativeUser(LoginRequest{
		Email:    "nobody@shopper.com",
		Password: "password123",
	})
	assert.Equal(t, ErrUserNotFound, err)
}

func (suite *AuthServiceTestSuite) TestValidateTokenRoundTrip() {
	t := suite.T()

	authResp, err := suite.authService.RegisterNativeUser(RegisterRequest{
		Email:    "token@shopper.com",
		Username: "tokenuser",
		Password: "password123",
	})
	require.NoError(t, err)

	user, err := suite.authService.ValidateToken(authResp.Token)
	require.NoError(t, err)
	assert.Equal(t, authResp.User.ID, user.ID)
	assert.Equal(t, "token@shopper.com", user.Email)
}

func (suite *AuthServiceTestSuite) TestValidateTokenRejectsGarbage() {
	_, err := suite.authService.ValidateToken("not.a.token")
	assert.Error(suite.T(), err)
}

func (suite *AuthServiceTestSuite) TestValidateTokenRejectsExpired() {
	t := suite.T()

	authResp, err := suite.authService.RegisterNativeUser(RegisterRequest{
		Email:    "expired@shopper.com",
		Username: "expireduser",
		Password: "password123",
	})
	require.NoError(t, err)

	claims := jwt.MapClaims{
		"user_id": authResp.User.ID,
		"exp":     time.Now().Add(-time.Hour).Unix(),
		"iat":     time.Now().Add(-2 * time.Hour).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	expired, err := token.SignedString([]byte("test_jwt_secret_key"))
	require.NoError(t, err)

	_, err = suite.authService.ValidateToken(expired)
	assert.Error(t, err)
}

func (suite *AuthServiceTestSuite) TestValidateTokenRejectsWrongSecret() {
	t := suite.T()

	claims := jwt.MapClaims{
		"user_id": "some-user",
		"exp":     time.Now().Add(time.Hour).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	forged, err := token.SignedString([]byte("attacker_secret"))
	require.NoError(t, err)

	_, err = suite.authService.ValidateToken(forged)
	assert.Error(t, err)
}

func (suite *AuthServiceTestSuite) TestOAuthUserCanAddPassword() {
	t := suite.T()

	googleID := "google-sub-123"
	oauthUser := models.User{
		Email:    "oauth@shopper.com",
		Username: "oauthuser",
		GoogleID: &googleID,
	}
	require.NoError(t, suite.db.Create(&oauthUser).Error)

	authResp, err := suite.authService.RegisterNativeUser(RegisterRequest{
		Email:    "oauth@shopper.com",
		Username: "oauthuser",
		Password: "newpassword1",
	})
	require.NoError(t, err)
	assert.Equal(t, oauthUser.ID, authResp.User.ID)
	assert.NotNil(t, authResp.User.PasswordHash)
}

func (suite *AuthServiceTestSuite) TestFindOrCreateLinksExistingEmail() {
	t := suite.T()

	_, err := suite.authService.RegisterNativeUser(RegisterRequest{
		Email:    "link@shopper.com",
		Username: "linkuser",
		Password: "password123",
	})
	require.NoError(t, err)

	authResp, err := suite.authService.findOrCreateUserFromOAuth("google", &OAuthUserInfo{
		ID:    "google-sub-999",
		Email: "link@shopper.com",
		Name:  "Link User",
	})
	require.NoError(t, err)
	assert.Equal(t, "linkuser", authResp.User.Username)

	var stored models.User
	require.NoError(t, suite.db.Where("email = ?", "link@shopper.com").First(&stored).Error)
	require.NotNil(t, stored.GoogleID)
	assert.Equal(t, "google-sub-999", *stored.GoogleID)
}

func (suite *AuthServiceTestSuite) TestFindOrCreateNewAppleUser() {
	t := suite.T()

	authResp, err := suite.authService.findOrCreateUserFromOAuth("apple", &OAuthUserInfo{
		ID:    "apple-sub-1",
		Email: "fresh@icloud.com",
		Name:  "",
	})
	require.NoError(t, err)
	require.NotNil(t, authResp.User.AppleID)
	assert.Equal(t, "apple-sub-1", *authResp.User.AppleID)
	assert.NotEmpty(t, authResp.User.Username)

	// Same Apple ID again returns the same account
	again, err := suite.authService.findOrCreateUserFromOAuth("apple", &OAuthUserInfo{
		ID:    "apple-sub-1",
		Email: "fresh@icloud.com",
	})
	require.NoError(t, err)
	assert.Equal(t, authResp.User.ID, again.User.ID)
}

func TestAuthServiceTestSuite(t *testing.T) {
	suite.Run(t, new(AuthServiceTestSuite))
}

func TestGenerateUsernameFromName(t *testing.T) {
	assert.Equal(t, "janedoe", generateUsernameFromName("Jane Doe", ""))
	assert.Equal(t, "shopper42", generateUsernameFromName("", "Shopper42@example.com"))
	assert.Equal(t, "shopper", generateUsernameFromName("!!!", "!!!@example.com"))
}
