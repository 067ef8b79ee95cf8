package handlers

import (
	"storefront-order-service/internal/auth"
	"storefront-order-service/internal/cart"
	"storefront-order-service/internal/catalog"
	"storefront-order-service/internal/checkout"
	"storefront-order-service/internal/config"
	"storefront-order-service/internal/inventory"
	"storefront-order-service/internal/order"
	"storefront-order-service/internal/stats"
	"storefront-order-service/internal/voucher"

	"go.uber.org/zap"
)

type Handler struct {
	Logger    *zap.Logger
	Config    config.Config
	Auth      *auth.Service
	Catalog   *catalog.Service
	Carts     *cart.Service
	Checkout  *checkout.Service
	Orders    *order.Service
	Stats     *stats.Aggregator
	Inventory inventory.Store
	Vouchers  *voucher.Service
}
