package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/inventario-ledger/internal/application/ledger"
	"github.com/jhoicas/inventario-ledger/internal/application/usecase"
)

// RoleAdmin único rol autorizado a borrar productos.
const RoleAdmin = "admin"

// RouterDeps dependencias para el router.
type RouterDeps struct {
	ProductUC   *usecase.ProductUseCase
	ApplyChange *ledger.ApplyChangeUseCase
	Batch       *ledger.BatchProcessor
	Query       *ledger.QueryUseCase
	JWTSecret   string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")

	// Rutas protegidas (requieren Bearer Token)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))

	// Products
	products := protected.Group("/products")
	productHandler := NewProductHandler(deps.ProductUC)
	products.Post("/", productHandler.Create)
	products.Get("/", productHandler.List)
	products.Get("/:id", productHandler.GetByID)
	products.Put("/:id", productHandler.Update)
	products.Delete("/:id", RequireRole(RoleAdmin), productHandler.Delete)

	// Inventory ledger
	invGroup := protected.Group("/inventory")
	inventoryHandler := NewInventoryHandler(deps.ApplyChange, deps.Batch, deps.Query, deps.ProductUC)
	invGroup.Post("/movements", inventoryHandler.RegisterMovement)
	invGroup.Post("/batch", inventoryHandler.ProcessBatch)
	invGroup.Get("/logs", inventoryHandler.ListLogs)
	invGroup.Get("/low-stock", inventoryHandler.LowStock)
	invGroup.Get("/products/:id/reconciliation", inventoryHandler.Reconcile)
}
