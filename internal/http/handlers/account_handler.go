package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/safedeal/backend/internal/http/dto"
	"github.com/safedeal/backend/internal/middleware"
	"github.com/safedeal/backend/internal/repositories"
	"github.com/safedeal/backend/internal/services"
)

type AccountHandler struct {
	svc      *services.EscrowService
	userRepo *repositories.UserRepo
	log      *zap.Logger
}

func NewAccountHandler(svc *services.EscrowService, userRepo *repositories.UserRepo, log *zap.Logger) *AccountHandler {
	return &AccountHandler{svc: svc, userRepo: userRepo, log: log}
}

func (h *AccountHandler) GetMe(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	user, err := h.userRepo.GetByID(c.Context(), userID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: "user not found"})
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: user})
}

func (h *AccountHandler) GetBalance(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	bal, err := h.svc.Balance(c.Context(), userID)
	if err != nil {
		h.log.Error("balance query failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal error"})
	}
	return c.JSON(dto.BalanceResponse{AccountID: userID.String(), BalanceNano: bal})
}

func (h *AccountHandler) Deposit(c *fiber.Ctx) error {
	var req dto.DepositRequest
	if err := c.BodyParser(&req); err != nil || req.AmountNano == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "amount_nano must be positive"})
	}

	userID := middleware.GetUserID(c)
	bal, err := h.svc.Deposit(c.Context(), userID, req.AmountNano)
	if err != nil {
		h.log.Error("deposit failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal error"})
	}
	return c.JSON(dto.BalanceResponse{AccountID: userID.String(), BalanceNano: bal})
}
