package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/safedeal/backend/internal/auth"
	"github.com/safedeal/backend/internal/config"
	"github.com/safedeal/backend/internal/http/dto"
	"github.com/safedeal/backend/internal/repositories"
)

type AuthHandler struct {
	userRepo *repositories.UserRepo
	accounts *repositories.AccountRepo
	cfg      *config.Config
	log      *zap.Logger
}

func NewAuthHandler(userRepo *repositories.UserRepo, accounts *repositories.AccountRepo, cfg *config.Config, log *zap.Logger) *AuthHandler {
	return &AuthHandler{userRepo: userRepo, accounts: accounts, cfg: cfg, log: log}
}

// Register creates a user plus its zero-balance account and returns the API
// key. The key is only ever shown here; we store its hash.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}

	handle := strings.TrimSpace(req.Handle)
	if handle == "" || len(handle) > 64 {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "handle is required (max 64 chars)"})
	}

	apiKey := auth.GenerateAPIKey()
	user, err := h.userRepo.Create(c.Context(), handle, auth.HashAPIKey(apiKey))
	if err != nil {
		h.log.Debug("register failed", zap.String("handle", handle), zap.Error(err))
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Error: "handle already taken"})
	}

	if err := h.accounts.EnsureAccount(c.Context(), user.ID); err != nil {
		h.log.Error("failed to create account", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal server error"})
	}

	return c.Status(fiber.StatusCreated).JSON(dto.RegisterResponse{User: user, APIKey: apiKey})
}

// Token exchanges handle + API key for a JWT.
func (h *AuthHandler) Token(c *fiber.Ctx) error {
	var req dto.TokenRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}
	if req.Handle == "" || req.APIKey == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "handle and api_key are required"})
	}

	user, err := h.userRepo.GetByHandle(c.Context(), req.Handle)
	if err != nil || !auth.VerifyAPIKey(req.APIKey, user.APIKeyHash) {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: "invalid credentials"})
	}

	token, err := auth.GenerateJWT(h.cfg.JWTSecret, user.ID, user.Handle, h.cfg.JWTExpiration)
	if err != nil {
		h.log.Error("failed to generate jwt", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal server error"})
	}

	_ = h.userRepo.UpdateLastActive(c.Context(), user.ID)

	return c.JSON(dto.TokenResponse{Token: token, User: user})
}
