package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/inventario-ledger/internal/application/dto"
	"github.com/jhoicas/inventario-ledger/internal/application/ledger"
	"github.com/jhoicas/inventario-ledger/internal/domain"
)

// writeError traduce errores de dominio a la respuesta HTTP. notFoundMsg personaliza el 404.
func writeError(c *fiber.Ctx, err error, notFoundMsg string) error {
	code := ledger.ErrorCode(err)
	switch code {
	case ledger.CodeInsufficientStock:
		resp := dto.ErrorResponse{Code: code, Message: "stock insuficiente"}
		var ise *domain.InsufficientStockError
		if errors.As(err, &ise) {
			resp.Message = ise.Error()
			resp.Details = map[string]any{
				"product_id": ise.ProductID,
				"current":    ise.Current,
				"requested":  ise.Requested,
			}
		}
		return c.Status(fiber.StatusConflict).JSON(resp)
	case ledger.CodeInvalidQuantity, ledger.CodeInvalidOperation, ledger.CodeEmptyBatch, ledger.CodeValidation:
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: code, Message: err.Error()})
	case ledger.CodeNotFound:
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: code, Message: notFoundMsg})
	case ledger.CodeForbidden:
		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Code: code, Message: "acceso denegado al recurso"})
	case ledger.CodeDuplicate:
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: code, Message: "SKU ya existe para este owner"})
	case ledger.CodeTimeout:
		return c.Status(fiber.StatusGatewayTimeout).JSON(dto.ErrorResponse{Code: code, Message: "la operación excedió el tiempo límite"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: code, Message: err.Error()})
	}
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
}

func invalidBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
}
