package listener

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"time"

	"github.com/fekuna/omnipos-variant-service/internal/logger"
	"github.com/fekuna/omnipos-variant-service/internal/model"
	"github.com/fekuna/omnipos-variant-service/internal/variant"
	"github.com/fekuna/omnipos-variant-service/internal/variant/dto"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const (
	adjustAttempts   = 4
	adjustRetryDelay = 200 * time.Millisecond
)

type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

type OrderListener struct {
	consumer MessageReader
	uc         variant.UseCase
	logger     logger.ZapLogger
	retryDelay time.Duration
}

func NewOrderListener(consumer MessageReader, uc variant.UseCase, logger logger.ZapLogger) *OrderListener {
	return &OrderListener{
		consumer:   consumer,
		uc:         uc,
		logger:     logger,
		retryDelay: adjustRetryDelay,
	}
}

func (l *OrderListener) Start(ctx context.Context) {
	l.logger.Info("Starting Variant Order Listener")
	for {
		select {
		case <-ctx.Done():
			l.logger.Info("Stopping Variant Order Listener")
			return
		default:
			msg, err := l.consumer.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				l.logger.Error("Failed to read kafka message", zap.Error(err))
				time.Sleep(1 * time.Second)
				continue
			}
			l.processMessage(ctx, msg.Value)
		}
	}
}

type OrderCreatedEvent struct {
	EventID   string       `json:"event_id"`
	EventType string       `json:"event_type"`
	Payload   OrderPayload `json:"payload"`
	Timestamp time.Time    `json:"timestamp"`
}

type OrderPayload struct {
	ID         string             `json:"id"`
	MerchantID string             `json:"merchant_id"`
	Items      []OrderItemPayload `json:"items"`
}

type OrderItemPayload struct {
	ProductID string  `json:"product_id"`
	VariantID *string `json:"variant_id"`
	Quantity  float64 `json:"quantity"`
}

func (l *OrderListener) processMessage(ctx context.Context, value []byte) {
	var event OrderCreatedEvent
	if err := json.Unmarshal(value, &event); err != nil {
		l.logger.Error("Failed to unmarshal event", zap.Error(err))
		return
	}

	if event.EventType != "OrderCreated" {
		return
	}

	l.logger.Info("Processing OrderCreated event", zap.String("order_id", event.Payload.ID))

	for _, item := range event.Payload.Items {
		// Products without variants keep their stock in the catalog.
		if item.VariantID == nil || *item.VariantID == "" || item.Quantity <= 0 {
			continue
		}
		if item.Quantity != math.Trunc(item.Quantity) {
			l.logger.Warn("Skipping order item with fractional quantity",
				zap.String("order_id", event.Payload.ID),
				zap.String("variant_id", *item.VariantID),
				zap.Float64("quantity", item.Quantity),
			)
			continue
		}

		err := l.adjust(ctx, &dto.AdjustOptionStockInput{
			MerchantID:     event.Payload.MerchantID,
			ProductID:      item.ProductID,
			OptionID:       *item.VariantID,
			QuantityChange: -int(item.Quantity),
			MovementType:   model.MovementTypeSale,
			Reason:         "Order Sale",
			ReferenceID:    event.Payload.ID,
		})
		if err != nil {
			l.logger.Error("Failed to adjust variant stock for order item",
				zap.String("order_id", event.Payload.ID),
				zap.String("product_id", item.ProductID),
				zap.String("variant_id", *item.VariantID),
				zap.Error(err),
			)
		}
	}
}

// adjust retries lock contention and concurrent writes with a doubling
// delay. The message offset is already committed, so giving up loses the sale.
func (l *OrderListener) adjust(ctx context.Context, input *dto.AdjustOptionStockInput) error {
	delay := l.retryDelay
	for attempt := 1; ; attempt++ {
		_, err := l.uc.AdjustOptionStock(ctx, input)
		if err == nil || !retryable(err) || attempt == adjustAttempts {
			return err
		}
		l.logger.Warn("Retrying variant stock adjustment",
			zap.String("variant_id", input.OptionID),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
			return err
		case <-time.After(delay):
		}
		delay *= 2
	}
}

func retryable(err error) bool {
	return errors.Is(err, variant.ErrBusy) || errors.Is(err, variant.ErrConcurrentUpdate)
}
