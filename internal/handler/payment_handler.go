package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"backoffice/internal/domain/model"
	"backoffice/internal/usecase"

	"github.com/labstack/echo/v4"
)

type PaymentService interface {
	CreatePayment(ctx context.Context, actor model.Identity, orderID int64, in usecase.CreatePaymentInput) (usecase.PaymentOutput, error)
	TransitionStatus(ctx context.Context, actor model.Identity, paymentID int64, in usecase.TransitionPaymentInput) (usecase.PaymentOutput, error)
	DeletePayment(ctx context.Context, actor model.Identity, paymentID int64) error
	GetPayment(ctx context.Context, actor model.Identity, paymentID int64) (usecase.PaymentOutput, error)
	ListPayments(ctx context.Context, actor model.Identity, in usecase.ListPaymentsInput) (usecase.PaymentListOutput, error)
}

type PaymentHandler struct {
	uc PaymentService
}

func NewPaymentHandler(uc PaymentService) *PaymentHandler {
	return &PaymentHandler{uc: uc}
}

type PaymentStatusUpdateRequest struct {
	Status string `json:"status"`
}

func (h *PaymentHandler) RegisterRoutes(g *echo.Group, idem echo.MiddlewareFunc) {
	g.POST("/orders/:id/payment", h.create, idem)
	g.GET("/payments", h.list)
	g.GET("/payments/:id", h.detail)
	g.POST("/payments/:id/status", h.updateStatus)
	g.DELETE("/payments/:id", h.delete)
}

func optionalForm(c echo.Context, name string) *string {
	v := strings.TrimSpace(c.FormValue(name))
	if v == "" {
		return nil
	}
	return &v
}

// multipart/form-data。proofは任意。
func (h *PaymentHandler) create(c echo.Context) error {
	actor, ok := identity(c)
	if !ok {
		return unauthorized(c)
	}
	orderID, err := pathID(c, "id")
	if err != nil {
		return badRequest(c, "invalid id")
	}

	ptID, err := strconv.ParseInt(c.FormValue("payment_type_id"), 10, 64)
	if err != nil {
		return badRequest(c, "invalid payment_type_id")
	}

	in := usecase.CreatePaymentInput{
		PaymentTypeID: ptID,
		Amount:        c.FormValue("amount"),
		TransactionID: optionalForm(c, "transaction_id"),
		Notes:         optionalForm(c, "notes"),
	}

	fh, err := c.FormFile("proof")
	switch {
	case err == nil:
		f, err := fh.Open()
		if err != nil {
			return badRequest(c, "invalid proof")
		}
		defer f.Close()
		in.Proof = &usecase.ProofFile{Name: fh.Filename, Body: f}
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
	default:
		return badRequest(c, "invalid proof")
	}

	out, err := h.uc.CreatePayment(c.Request().Context(), actor, orderID, in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *PaymentHandler) list(c echo.Context) error {
	actor, ok := identity(c)
	if !ok {
		return unauthorized(c)
	}

	page, err := queryInt(c, "page", 1)
	if err != nil {
		return badRequest(c, "invalid page")
	}
	limit, err := queryInt(c, "limit", 20)
	if err != nil {
		return badRequest(c, "invalid limit")
	}
	orderID, err := queryInt64Ptr(c, "order_id")
	if err != nil {
		return badRequest(c, "invalid order_id")
	}

	paymentTypeID, err := queryInt64Ptr(c, "payment_type_id")
	if err != nil {
		return badRequest(c, "invalid payment_type_id")
	}

	out, err := h.uc.ListPayments(c.Request().Context(), actor, usecase.ListPaymentsInput{
		Page:          page,
		Limit:         limit,
		Status:        c.QueryParam("status"),
		OrderID:       orderID,
		PaymentTypeID: paymentTypeID,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *PaymentHandler) detail(c echo.Context) error {
	actor, ok := identity(c)
	if !ok {
		return unauthorized(c)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return badRequest(c, "invalid id")
	}

	out, err := h.uc.GetPayment(c.Request().Context(), actor, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *PaymentHandler) updateStatus(c echo.Context) error {
	actor, ok := identity(c)
	if !ok {
		return unauthorized(c)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return badRequest(c, "invalid id")
	}

	var req PaymentStatusUpdateRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	out, err := h.uc.TransitionStatus(c.Request().Context(), actor, id, usecase.TransitionPaymentInput{Status: req.Status})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *PaymentHandler) delete(c echo.Context) error {
	actor, ok := identity(c)
	if !ok {
		return unauthorized(c)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return badRequest(c, "invalid id")
	}

	if err := h.uc.DeletePayment(c.Request().Context(), actor, id); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, SuccessResponse{Message: "deleted"})
}
