package handlers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/safedeal/backend/internal/config"
	"github.com/safedeal/backend/internal/http/dto"
	"github.com/safedeal/backend/internal/ledger"
	"github.com/safedeal/backend/internal/middleware"
	"github.com/safedeal/backend/internal/services"
)

type OrderHandler struct {
	svc *services.EscrowService
	cfg *config.Config
	log *zap.Logger
}

func NewOrderHandler(svc *services.EscrowService, cfg *config.Config, log *zap.Logger) *OrderHandler {
	return &OrderHandler{svc: svc, cfg: cfg, log: log}
}

// tenant resolves the ledger the request addresses. Multi-tenant callers set
// X-Tenant; everyone else gets the deployment default.
func (h *OrderHandler) tenant(c *fiber.Ctx) string {
	if t := c.Get("X-Tenant"); t != "" {
		return t
	}
	return h.cfg.DefaultTenant
}

func statusForLedgerError(err error) int {
	switch {
	case errors.Is(err, ledger.ErrOrderNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, ledger.ErrNotBuyer):
		return fiber.StatusForbidden
	case errors.Is(err, ledger.ErrInvalidStatus), errors.Is(err, ledger.ErrTimelineNotExpired):
		return fiber.StatusConflict
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return fiber.StatusPaymentRequired
	case errors.Is(err, ledger.ErrNotInitialized):
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusBadRequest
	}
}

func (h *OrderHandler) ledgerError(c *fiber.Ctx, err error) error {
	reqID, _ := c.Locals(middleware.CtxRequestID).(string)
	return c.Status(statusForLedgerError(err)).JSON(dto.ErrorResponse{Error: err.Error(), RequestID: reqID})
}

func (h *OrderHandler) CreateOrder(c *fiber.Ctx) error {
	var req dto.CreateOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}

	seller, err := uuid.Parse(req.Seller)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid seller id"})
	}
	if req.ProductName == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "product_name is required"})
	}

	buyer := middleware.GetUserID(c)
	order, err := h.svc.CreateOrder(c.Context(), h.tenant(c), buyer, seller, req.ProductName, req.AmountNano, req.TimelineHours)
	if err != nil {
		return h.ledgerError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(dto.SuccessResponse{OK: true, Data: order})
}

func (h *OrderHandler) GetOrder(c *fiber.Ctx) error {
	orderID, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid order id"})
	}

	order, err := h.svc.GetOrder(c.Context(), h.tenant(c), orderID)
	if err != nil {
		return h.ledgerError(c, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: order})
}

// ListOrders returns the caller's orders by default; scope=all returns the
// whole ledger snapshot in creation order.
func (h *OrderHandler) ListOrders(c *fiber.Ctx) error {
	tenant := h.tenant(c)

	var (
		orders []ledger.Order
		err    error
	)
	if c.Query("scope") == "all" {
		orders, err = h.svc.ListOrders(c.Context(), tenant)
	} else {
		orders, err = h.svc.UserOrders(c.Context(), tenant, middleware.GetUserID(c))
	}
	if err != nil {
		return h.ledgerError(c, err)
	}
	if orders == nil {
		orders = []ledger.Order{}
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: orders})
}

func (h *OrderHandler) ConfirmReceived(c *fiber.Ctx) error {
	orderID, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid order id"})
	}

	caller := middleware.GetUserID(c)
	order, err := h.svc.ConfirmReceived(c.Context(), h.tenant(c), caller, orderID)
	if err != nil {
		return h.ledgerError(c, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: order})
}

func (h *OrderHandler) RefundOrder(c *fiber.Ctx) error {
	orderID, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid order id"})
	}

	caller := middleware.GetUserID(c)
	order, err := h.svc.RefundOrder(c.Context(), h.tenant(c), &caller, orderID)
	if err != nil {
		return h.ledgerError(c, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: order})
}

func (h *OrderHandler) GetOrderEvents(c *fiber.Ctx) error {
	orderID, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid order id"})
	}

	logs, err := h.svc.OrderEvents(c.Context(), h.tenant(c), orderID)
	if err != nil {
		h.log.Error("order events query failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal error"})
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: logs})
}

func (h *OrderHandler) GetEscrowBalance(c *fiber.Ctx) error {
	tenant := h.tenant(c)
	pool, err := h.svc.EscrowBalance(c.Context(), tenant)
	if err != nil {
		return h.ledgerError(c, err)
	}
	return c.JSON(dto.EscrowBalanceResponse{Tenant: tenant, PoolNano: pool})
}
