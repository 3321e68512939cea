package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/scholar-spark/auth-service/internal/domain"
	"github.com/scholar-spark/auth-service/internal/dto"
	"github.com/scholar-spark/auth-service/internal/repository"
	"github.com/scholar-spark/auth-service/internal/utils"
)

// issueTokenPair assembles the claim set for a user and signs an access
// and refresh token. Roles and permissions come straight from the store,
// so every issued access token reflects the current assignments.
func (s *authService) issueTokenPair(ctx context.Context, user *domain.User) (*dto.AuthResponse, error) {
	roles, err := s.userRepo.GetRoles(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user roles: %w", err)
	}

	permissions, err := s.userRepo.GetPermissions(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user permissions: %w", err)
	}

	profile, err := s.userRepo.GetProfile(ctx, user.ID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	metadata := map[string]any{
		"profile_complete": profile.IsComplete(),
	}
	if s.cfg.TenantID != "" {
		metadata["tenant_id"] = s.cfg.TenantID
	}
	if user.LastLoginAt != nil {
		metadata["last_login"] = user.LastLoginAt.UTC().Format(time.RFC3339)
	}

	input := utils.AccessTokenInput{
		UserID:      user.ID,
		Email:       user.Email,
		Roles:       roles,
		Permissions: permissions,
		IsActive:    user.IsActive,
		Metadata:    metadata,
	}
	if profile != nil {
		input.Name = profile.DisplayName
		input.GivenName = profile.FirstName
		input.FamilyName = profile.LastName
	}

	accessToken, err := s.jwtManager.GenerateAccessToken(input)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}
	s.metrics.RecordTokenIssued(ctx, "access")

	refreshToken, err := s.jwtManager.GenerateRefreshToken(user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}
	s.metrics.RecordTokenIssued(ctx, "refresh")

	return &dto.AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    s.jwtManager.AccessTokenExpirySeconds(),
	}, nil
}

// toUserResponse maps a user and an optional profile to the API shape
func toUserResponse(user *domain.User, profile *domain.Profile) *dto.UserResponse {
	resp := &dto.UserResponse{
		ID:        user.ID,
		Email:     user.Email,
		IsActive:  user.IsActive,
		CreatedAt: user.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: user.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if user.LastLoginAt != nil {
		lastLogin := user.LastLoginAt.UTC().Format(time.RFC3339)
		resp.LastLoginAt = &lastLogin
	}
	if profile != nil {
		resp.FirstName = profile.FirstName
		resp.LastName = profile.LastName
		resp.DisplayName = profile.DisplayName
	}
	return resp
}
