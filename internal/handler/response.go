package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"backoffice/internal/domain/apperr"
	"backoffice/internal/domain/model"
	"backoffice/internal/middleware"

	"github.com/labstack/echo/v4"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

type SuccessResponse struct {
	Message string `json:"message"`
}

var errBadParam = errors.New("bad param")

// apperrの種類をHTTPステータスに変換
func statusOf(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation, apperr.KindMissingTrackingNumber:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindInvalidTransition, apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindUnauthorized:
		return http.StatusForbidden
	case apperr.KindExternalFailure:
		return http.StatusBadGateway
	case apperr.KindMissingPayment:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c echo.Context, err error) error {
	if err == nil {
		return nil
	}
	ae, ok := apperr.As(err)
	if !ok || ae.Kind == apperr.KindInternal {
		//500
		c.Logger().Error(err)
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}
	return c.JSON(statusOf(ae.Kind), ErrorResponse{Error: ae.Message})
}

func identity(c echo.Context) (model.Identity, bool) {
	return middleware.IdentityFrom(c)
}

func pathID(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, errBadParam
	}
	return id, nil
}

func queryInt(c echo.Context, name string, def int) (int, error) {
	v := c.QueryParam(name)
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}

func queryInt64Ptr(c echo.Context, name string) (*int64, error) {
	v := c.QueryParam(name)
	if v == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// RFC3339の日時
func queryTimePtr(c echo.Context, name string) (*time.Time, error) {
	v := c.QueryParam(name)
	if v == "" {
		return nil, nil
	}
	tm, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return nil, err
	}
	return &tm, nil
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg})
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
}
