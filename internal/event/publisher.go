// Package event publishes inventory domain events onto Kafka using the
// shared event envelope and producer from pkg/kafka, so downstream
// consumers (order workflow, notification service) can react to stock
// mutations without calling back into this module synchronously.
package event

import (
	"context"
	"log/slog"

	"github.com/navneet-singh26/inventory-sync/internal/domain"
	"github.com/navneet-singh26/inventory-sync/pkg/kafka"
)

// Source identifies this service in every published event envelope.
const Source = "inventory-sync"

// Event types published by the inventory core.
const (
	TypeStockReserved = "inventory.stock.reserved"
	TypeStockReleased = "inventory.stock.released"
	TypeStockAdjusted = "inventory.stock.adjusted"
	TypeStockSynced   = "inventory.stock.synced"
	TypeLowStockAlert = "inventory.stock.low_stock_alert"
)

// Topics, namespaced under the shared ecommerce prefix.
var (
	TopicStockMutations = kafka.Topic("inventory", "stock_mutations")
	TopicStockAlerts    = kafka.Topic("inventory", "stock_alerts")
)

// StockMutationPayload is the data carried by reserved/released/adjusted/
// synced events.
type StockMutationPayload struct {
	ProductID   string                 `json:"product_id"`
	WarehouseID string                 `json:"warehouse_id"`
	Kind        domain.TransactionKind `json:"kind"`
	Quantity    int                    `json:"quantity"`
	Reserved    int                    `json:"reserved"`
	Available   int                    `json:"available"`
	ReferenceID string                 `json:"reference_id,omitempty"`
}

// LowStockAlertPayload is the data carried by low-stock alert events.
type LowStockAlertPayload struct {
	ProductID   string            `json:"product_id"`
	SKU         string            `json:"sku"`
	WarehouseID string            `json:"warehouse_id"`
	Available   int               `json:"available"`
	AlertLevel  domain.AlertLevel `json:"alert_level"`
}

// Publisher wraps the shared Kafka producer with inventory-specific event
// construction. A nil Publisher (no brokers configured) is a legal,
// inert value: every method becomes a silent no-op, so the
// sync pipeline never fails solely because eventing is unconfigured.
type Publisher struct {
	producer *kafka.Producer
	logger   *slog.Logger
}

// New wraps a producer. producer may be nil.
func New(producer *kafka.Producer, logger *slog.Logger) *Publisher {
	return &Publisher{producer: producer, logger: logger}
}

func (p *Publisher) publish(ctx context.Context, topic, eventType, aggregateID string, data any) {
	if p == nil || p.producer == nil {
		return
	}

	evt, err := kafka.NewEvent(eventType, aggregateID, "stock_row", Source, data)
	if err != nil {
		p.logger.ErrorContext(ctx, "failed to build inventory event",
			slog.String("event_type", eventType),
			slog.String("error", err.Error()),
		)
		return
	}

	if err := p.producer.Publish(ctx, topic, evt); err != nil {
		p.logger.ErrorContext(ctx, "failed to publish inventory event",
			slog.String("event_type", eventType),
			slog.String("aggregate_id", aggregateID),
			slog.String("error", err.Error()),
		)
	}
}

// StockMutated publishes a reserved/released/adjusted/synced event keyed by
// the product-warehouse pair.
func (p *Publisher) StockMutated(ctx context.Context, row *domain.StockRow, kind domain.TransactionKind, ref string) {
	eventType := map[domain.TransactionKind]string{
		domain.TxnReserve: TypeStockReserved,
		domain.TxnRelease: TypeStockReleased,
		domain.TxnAdjust:  TypeStockAdjusted,
		domain.TxnSync:    TypeStockSynced,
	}[kind]
	if eventType == "" {
		eventType = TypeStockAdjusted
	}

	p.publish(ctx, TopicStockMutations, eventType, row.ProductID, StockMutationPayload{
		ProductID:   row.ProductID,
		WarehouseID: row.WarehouseID,
		Kind:        kind,
		Quantity:    row.Quantity,
		Reserved:    row.Reserved,
		Available:   row.Available,
		ReferenceID: ref,
	})
}

// LowStockAlert publishes a low-stock alert event.
func (p *Publisher) LowStockAlert(ctx context.Context, alert domain.LowStockAlertView) {
	p.publish(ctx, TopicStockAlerts, TypeLowStockAlert, alert.ProductID, LowStockAlertPayload{
		ProductID:   alert.ProductID,
		SKU:         alert.SKU,
		WarehouseID: alert.WarehouseID,
		Available:   alert.Available,
		AlertLevel:  alert.AlertLevel,
	})
}
