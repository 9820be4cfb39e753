package services

import (
	"context"
	"fmt"

	"github.com/stwalsh4118/farmboard/internal/farmapi"
	"github.com/stwalsh4118/farmboard/internal/inventory"
	"github.com/stwalsh4118/farmboard/internal/logger"
)

// StockItem is an input with its low-stock flag.
type StockItem struct {
	farmapi.Input
	LowStock bool `json:"low_stock"`
}

// InventoryService lists inputs with the low-stock rule applied.
type InventoryService interface {
	// ListInputs returns all inputs, or only those low on stock when lowOnly is set
	// (largest shortfall first).
	ListInputs(ctx context.Context, sess *farmapi.Session, lowOnly bool) ([]StockItem, error)
}

type inventoryService struct {
	client FarmClient
	log    *logger.Logger
}

// NewInventoryService creates a new instance of InventoryService.
func NewInventoryService(client FarmClient, log *logger.Logger) InventoryService {
	return &inventoryService{client: client, log: log.Component("inventory")}
}

func (s *inventoryService) ListInputs(ctx context.Context, sess *farmapi.Session, lowOnly bool) ([]StockItem, error) {
	inputs, err := s.client.ListInputs(ctx, sess)
	if err != nil {
		return nil, fmt.Errorf("failed to list inputs: %w", err)
	}
	if lowOnly {
		inputs = inventory.LowStock(inputs)
	}

	items := make([]StockItem, 0, len(inputs))
	for _, in := range inputs {
		items = append(items, StockItem{Input: in, LowStock: inventory.IsLowStock(in)})
	}

	s.log.Debug("Inputs listed", map[string]interface{}{
		"count":     len(items),
		"low_stock": inventory.CountLow(inputs),
		"low_only":  lowOnly,
	})
	return items, nil
}
