package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"

	"github.com/magickw/ShopSmartly-sub000/internal/database"
	"github.com/magickw/ShopSmartly-sub000/internal/logger"
	"github.com/magickw/ShopSmartly-sub000/internal/models"
)

// OAuthUserInfo represents user info from OAuth providers
type OAuthUserInfo struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// GoogleUserInfo represents Google OAuth user response
type GoogleUserInfo struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// HandleGoogleCallback processes Google OAuth callback
func (s *Service) HandleGoogleCallback(ctx context.Context, code string) (*AuthResponse, error) {
	userInfo, err := s.getGoogleUserInfo(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to get Google user info: %w", err)
	}
	return s.findOrCreateUserFromOAuth("google", userInfo)
}

// HandleAppleCallback processes Sign in with Apple callback
func (s *Service) HandleAppleCallback(ctx context.Context, code string) (*AuthResponse, error) {
	userInfo, err := s.getAppleUserInfo(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to get Apple user info: %w", err)
	}
	return s.findOrCreateUserFromOAuth("apple", userInfo)
}

// findOrCreateUserFromOAuth implements email-based account unification
func (s *Service) findOrCreateUserFromOAuth(provider string, userInfo *OAuthUserInfo) (*AuthResponse, error) {
	column := "google_id"
	if provider == "apple" {
		column = "apple_id"
	}

	// Already linked account
	var linked models.User
	err := database.DB.Where(column+" = ?", userInfo.ID).First(&linked).Error
	if err == nil {
		return s.generateAuthResponse(&linked)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("database error checking OAuth link: %w", err)
	}

	// Existing user with the same email - link the provider
	existing, err := s.FindUserByEmail(userInfo.Email)
	if err == nil {
		if provider == "apple" {
			existing.AppleID = &userInfo.ID
		} else {
			existing.GoogleID = &userInfo.ID
		}
		if err := database.DB.Save(existing).Error; err != nil {
			return nil, fmt.Errorf("failed to link OAuth provider: %w", err)
		}
		return s.generateAuthResponse(existing)
	} else if !errors.Is(err, ErrUserNotFound) {
		return nil, fmt.Errorf("database error finding user: %w", err)
	}

	return s.createUserWithOAuth(provider, userInfo)
}

// createUserWithOAuth creates new user account from OAuth info
func (s *Service) createUserWithOAuth(provider string, userInfo *OAuthUserInfo) (*AuthResponse, error) {
	username, err := s.ensureUniqueUsername(generateUsernameFromName(userInfo.Name, userInfo.Email))
	if err != nil {
		return nil, fmt.Errorf("failed to generate unique username: %w", err)
	}

	user := models.User{
		Email:            userInfo.Email,
		Username:         username,
		SubscriptionTier: models.TierFree,
	}
	if provider == "apple" {
		user.AppleID = &userInfo.ID
	} else {
		user.GoogleID = &userInfo.ID
	}

	if err := database.DB.Create(&user).Error; err != nil {
		return nil, fmt.Errorf("failed to create user with OAuth: %w", err)
	}

	logger.Infof("Created user %s via %s OAuth", user.Username, provider)
	return s.generateAuthResponse(&user)
}

// getGoogleUserInfo fetches user info from Google OAuth
func (s *Service) getGoogleUserInfo(ctx context.Context, code string) (*OAuthUserInfo, error) {
	token, err := s.googleConfig.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code: %w", err)
	}

	client := s.googleConfig.Client(ctx, token)
	resp, err := client.Get("https://www.googleapis.com/oauth2/v3/userinfo")
	if err != nil {
		return nil, fmt.Errorf("failed to get user info: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var googleUser GoogleUserInfo
	if err := json.Unmarshal(body, &googleUser); err != nil {
		return nil, fmt.Errorf("failed to parse user info: %w", err)
	}
	if googleUser.Sub == "" || googleUser.Email == "" {
		return nil, errors.New("google user info missing sub or email")
	}

	return &OAuthUserInfo{
		ID:    googleUser.Sub,
		Email: googleUser.Email,
		Name:  googleUser.Name,
	}, nil
}

// getAppleUserInfo exchanges the code and reads identity claims from the
// id_token. Apple has no userinfo endpoint; the identity token is already
// authenticated by the TLS code exchange, so claims are read without a
// second signature check.
func (s *Service) getAppleUserInfo(ctx context.Context, code string) (*OAuthUserInfo, error) {
	token, err := s.appleConfig.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code: %w", err)
	}

	idToken, ok := token.Extra("id_token").(string)
	if !ok || idToken == "" {
		return nil, errors.New("apple token response missing id_token")
	}

	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(idToken, claims); err != nil {
		return nil, fmt.Errorf("failed to parse identity token: %w", err)
	}

	sub, _ := claims["sub"].(string)
	email, _ := claims["email"].(string)
	if sub == "" || email == "" {
		return nil, errors.New("apple identity token missing sub or email")
	}

	return &OAuthUserInfo{
		ID:    sub,
		Email: email,
		Name:  strings.Split(email, "@")[0],
	}, nil
}

// ensureUniqueUsername generates a unique username
func (s *Service) ensureUniqueUsername(baseUsername string) (string, error) {
	username := baseUsername
	counter := 1

	for {
		var existingUser models.User
		err := database.DB.Where("LOWER(username) = LOWER(?)", username).First(&existingUser).Error

		if errors.Is(err, gorm.ErrRecordNotFound) {
			return username, nil
		} else if err != nil {
			return "", fmt.Errorf("database error: %w", err)
		}

		username = fmt.Sprintf("%s%d", baseUsername, counter)
		counter++

		if counter > 999 {
			return "", errors.New("unable to generate unique username")
		}
	}
}

// generateUsernameFromName creates a username from display name or email
func generateUsernameFromName(name, email string) string {
	base := name
	if base == "" {
		base = strings.Split(email, "@")[0]
	}
	base = strings.ToLower(strings.ReplaceAll(base, " ", ""))

	cleaned := ""
	for _, char := range base {
		if (char >= 'a' && char <= 'z') || (char >= '0' && char <= '9') {
			cleaned += string(char)
		}
	}
	if cleaned == "" {
		cleaned = "shopper"
	}
	if len(cleaned) > 20 {
		cleaned = cleaned[:20]
	}
	return cleaned
}
