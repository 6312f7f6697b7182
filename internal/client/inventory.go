package client

import (
	"context"
	"net/http"

	"rental-order-backend/internal/domain"
	"rental-order-backend/internal/logger"
)

// InventoryClient issues stock commands to the catalog/inventory service.
// Every command carries the order number as its reference so the inventory
// side can deduplicate retries.
type InventoryClient struct {
	http *httpClient
}

func NewInventoryClient(cfg Config) *InventoryClient {
	return &InventoryClient{http: newHTTPClient("inventory", cfg)}
}

type inventoryCommand struct {
	ReferenceID string                 `json:"reference_id"`
	Items       []domain.InventoryLine `json:"items"`
}

func (c *InventoryClient) Reserve(ctx context.Context, referenceID string, lines []domain.InventoryLine) error {
	return c.send(ctx, "reserve", referenceID, lines)
}

func (c *InventoryClient) Release(ctx context.Context, referenceID string, lines []domain.InventoryLine) error {
	return c.send(ctx, "release", referenceID, lines)
}

func (c *InventoryClient) Outbound(ctx context.Context, referenceID string, lines []domain.InventoryLine) error {
	return c.send(ctx, "outbound", referenceID, lines)
}

func (c *InventoryClient) Inbound(ctx context.Context, referenceID string, lines []domain.InventoryLine) error {
	return c.send(ctx, "inbound", referenceID, lines)
}

func (c *InventoryClient) send(ctx context.Context, op, referenceID string, lines []domain.InventoryLine) error {
	if len(lines) == 0 {
		return nil
	}
	if !c.http.configured() {
		logger.Warn("Inventory service not configured, command dropped", "operation", op, "reference_id", referenceID, "lines", len(lines))
		return nil
	}
	return c.http.do(ctx, http.MethodPost, op, "/api/v1/internal/inventory/"+op, inventoryCommand{ReferenceID: referenceID, Items: lines}, nil)
}
