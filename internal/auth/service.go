package auth

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"gorm.io/gorm"

	"github.com/magickw/ShopSmartly-sub000/internal/cache"
	"github.com/magickw/ShopSmartly-sub000/internal/database"
	"github.com/magickw/ShopSmartly-sub000/internal/models"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("user already exists")
	ErrUsernameExists     = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidState       = errors.New("invalid or expired oauth state")
)

const tokenTTL = 24 * time.Hour

// Service handles all authentication operations
type Service struct {
	jwtSecret    []byte
	redis        *cache.RedisClient
	googleConfig *oauth2.Config
	appleConfig  *oauth2.Config
}

// NewService creates a new authentication service
func NewService(jwtSecret []byte, redisClient *cache.RedisClient, googleClientID, googleClientSecret, appleClientID, appleClientSecret string) *Service {
	googleRedirectURL := "http://localhost:8080/api/v1/auth/google/callback"
	appleRedirectURL := "http://localhost:8080/api/v1/auth/apple/callback"

	if apiBaseURL := os.Getenv("API_BASE_URL"); apiBaseURL != "" {
		googleRedirectURL = apiBaseURL + "/api/v1/auth/google/callback"
		appleRedirectURL = apiBaseURL + "/api/v1/auth/apple/callback"
	}

	return &Service{
		jwtSecret: jwtSecret,
		redis:     redisClient,
		googleConfig: &oauth2.Config{
			ClientID:     googleClientID,
			ClientSecret: googleClientSecret,
			RedirectURL:  googleRedirectURL,
			Scopes:       []string{"openid", "profile", "email"},
			Endpoint:     google.Endpoint,
		},
		appleConfig: &oauth2.Config{
			ClientID:     appleClientID,
			ClientSecret: appleClientSecret,
			RedirectURL:  appleRedirectURL,
			Scopes:       []string{"name", "email"},
			Endpoint: oauth2.Endpoint{
				AuthURL:  "https://appleid.apple.com/auth/authorize",
				TokenURL: "https://appleid.apple.com/auth/token",
			},
		},
	}
}

// AuthResponse represents authentication response
type AuthResponse struct {
	Token     string      `json:"token"`
	User      models.User `json:"user"`
	ExpiresAt time.Time   `json:"expires_at"`
}

// RegisterRequest represents native registration request
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Username string `json:"username" binding:"required,min=3,max=30"`
	Password string `json:"password" binding:"required,min=8"`
}

// LoginRequest represents native login request
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// RegisterNativeUser creates a new user with email/password
func (s *Service) RegisterNativeUser(req RegisterRequest) (*AuthResponse, error) {
	var existingUser models.User
	err := database.DB.Where("LOWER(email) = LOWER(?)", req.Email).First(&existingUser).Error

	if err == nil {
		if existingUser.PasswordHash == nil {
			// OAuth-only user adding a password
			return s.addPasswordToOAuthUser(&existingUser, req.Password)
		}
		return nil, ErrUserExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("database error: %w", err)
	}

	var usernameCheck models.User
	err = database.DB.Where("LOWER(username) = LOWER(?)", req.Username).First(&usernameCheck).Error
	if err == nil {
		return nil, ErrUsernameExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("database error: %w", err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	hashedPasswordStr := string(hashedPassword)
	user := models.User{
		Email:            req.Email,
		Username:         req.Username,
		PasswordHash:     &hashedPasswordStr,
		SubscriptionTier: models.TierFree,
	}

	if err := database.DB.Create(&user).Error; err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return s.generateAuthResponse(&user)
}

// LoginNativeUser authenticates with email/password
func (s *Service) LoginNativeUser(req LoginRequest) (*AuthResponse, error) {
	var user models.User
	err := database.DB.Where("LOWER(email) = LOWER(?)", req.Email).First(&user).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	} else if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}

	if user.PasswordHash == nil {
		return nil, errors.New("account exists but no password set - try OAuth login")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	now := time.Now()
	user.LastActiveAt = &now
	database.DB.Save(&user)

	return s.generateAuthResponse(&user)
}

// FindUserByEmail finds user by email (case-insensitive)
func (s *Service) FindUserByEmail(email string) (*models.User, error) {
	var user models.User
	err := database.DB.Where("LOWER(email) = LOWER(?)", email).First(&user).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	} else if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}

	return &user, nil
}

// addPasswordToOAuthUser adds password to OAuth-only account
func (s *Service) addPasswordToOAuthUser(user *models.User, password string) (*AuthResponse, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	hashedPasswordStr := string(hashedPassword)
	user.PasswordHash = &hashedPasswordStr

	if err := database.DB.Save(user).Error; err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	return s.generateAuthResponse(user)
}

// GenerateTokenForUser creates JWT token and auth response for a user
func (s *Service) GenerateTokenForUser(user *models.User) (*AuthResponse, error) {
	return s.generateAuthResponse(user)
}

// generateAuthResponse creates JWT token and auth response
func (s *Service) generateAuthResponse(user *models.User) (*AuthResponse, error) {
	expiresAt := time.Now().Add(tokenTTL)

	claims := jwt.MapClaims{
		"user_id": user.ID,
		"email":   user.Email,
		"tier":    user.SubscriptionTier,
		"exp":     expiresAt.Unix(),
		"iat":     time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return &AuthResponse{
		Token:     tokenString,
		User:      *user,
		ExpiresAt: expiresAt,
	}, nil
}

// ValidateToken validates a JWT token and returns fresh user data
func (s *Service) ValidateToken(tokenString string) (*models.User, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}

	userID, ok := claims["user_id"].(string)
	if !ok {
		return nil, errors.New("invalid user_id in token")
	}

	var user models.User
	if err := database.DB.Where("id = ?", userID).First(&user).Error; err != nil {
		return nil, fmt.Errorf("user not found: %w", err)
	}

	return &user, nil
}

// GetGoogleOAuthURL returns Google OAuth authorization URL
func (s *Service) GetGoogleOAuthURL(state string) string {
	return s.googleConfig.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// GetAppleOAuthURL returns Apple OAuth authorization URL
func (s *Service) GetAppleOAuthURL(state string) string {
	return s.appleConfig.AuthCodeURL(state, oauth2.SetAuthURLParam("response_mode", "form_post"))
}

func oauthStateKey(state string) string {
	return "oauth:state:" + state
}

// StoreState persists an OAuth state nonce so the callback can prove the
// flow started here. States live for 10 minutes.
func (s *Service) StoreState(ctx context.Context, state string) error {
	if s.redis == nil {
		return nil
	}
	return s.redis.SetEx(ctx, oauthStateKey(state), "1", 10*time.Minute)
}

// ConsumeState validates and burns an OAuth state nonce
func (s *Service) ConsumeState(ctx context.Context, state string) error {
	if s.redis == nil {
		return nil
	}
	if state == "" {
		return ErrInvalidState
	}
	key := oauthStateKey(state)
	if _, err := s.redis.Get(ctx, key); err != nil {
		if cache.IsNil(err) {
			return ErrInvalidState
		}
		return fmt.Errorf("failed to check oauth state: %w", err)
	}
	if err := s.redis.Del(ctx, key); err != nil {
		return fmt.Errorf("failed to consume oauth state: %w", err)
	}
	return nil
}
