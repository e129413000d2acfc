package listener

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/fekuna/omnipos-variant-service/internal/logger"
	"github.com/fekuna/omnipos-variant-service/internal/model"
	"github.com/fekuna/omnipos-variant-service/internal/variant"
	"github.com/fekuna/omnipos-variant-service/internal/variant/dto"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type recordingUseCase struct {
	variant.UseCase // only AdjustOptionStock is exercised

	mu       sync.Mutex
	calls    []dto.AdjustOptionStockInput
	failures []error // Returned by the first calls, in order
	err      error
}

func (u *recordingUseCase) AdjustOptionStock(_ context.Context, input *dto.AdjustOptionStockInput) (*model.VariantOption, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.calls = append(u.calls, *input)
	if len(u.failures) > 0 {
		err := u.failures[0]
		u.failures = u.failures[1:]
		return nil, err
	}
	if u.err != nil {
		return nil, u.err
	}
	return &model.VariantOption{ID: input.OptionID}, nil
}

const orderEvent = `{
	"event_id": "evt-1",
	"event_type": "OrderCreated",
	"payload": {
		"id": "order-9",
		"merchant_id": "m-1",
		"items": [
			{"product_id": "prod-1", "variant_id": "opt-3", "quantity": 2},
			{"product_id": "prod-2", "variant_id": null, "quantity": 1},
			{"product_id": "prod-1", "variant_id": "opt-4", "quantity": 0}
		]
	}
}`

func TestProcessOrderCreated(t *testing.T) {
	uc := &recordingUseCase{}
	l := NewOrderListener(nil, uc, logger.Wrap(zap.NewNop()))

	l.processMessage(context.Background(), []byte(orderEvent))

	if len(uc.calls) != 1 {
		t.Fatalf("got %d adjustments, want 1", len(uc.calls))
	}
	got := uc.calls[0]
	want := dto.AdjustOptionStockInput{
		MerchantID:     "m-1",
		ProductID:      "prod-1",
		OptionID:       "opt-3",
		QuantityChange: -2,
		MovementType:   model.MovementTypeSale,
		Reason:         "Order Sale",
		ReferenceID:    "order-9",
	}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestProcessIgnoresOtherEvents(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	uc := &recordingUseCase{}
	l := NewOrderListener(nil, uc, logger.Wrap(zap.New(core)))

	l.processMessage(context.Background(), []byte(`{"event_type":"OrderCancelled","payload":{"items":[{"product_id":"p","variant_id":"v","quantity":1}]}}`))
	l.processMessage(context.Background(), []byte(`not json`))

	if len(uc.calls) != 0 {
		t.Fatalf("unexpected adjustments: %+v", uc.calls)
	}
	if logs.FilterMessage("Failed to unmarshal event").Len() != 1 {
		t.Fatal("expected the malformed message to be logged")
	}
}

func TestProcessLogsAdjustFailures(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	uc := &recordingUseCase{err: variant.ErrInsufficientStock}
	l := NewOrderListener(nil, uc, logger.Wrap(zap.New(core)))

	l.processMessage(context.Background(), []byte(orderEvent))

	entries := logs.FilterMessage("Failed to adjust variant stock for order item").All()
	if len(entries) != 1 {
		t.Fatalf("got %d error logs", len(entries))
	}
	if entries[0].ContextMap()["variant_id"] != "opt-3" {
		t.Fatalf("unexpected fields: %v", entries[0].ContextMap())
	}
}

func TestProcessRetriesTransientFailures(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	uc := &recordingUseCase{failures: []error{
		variant.ErrBusy,
		fmt.Errorf("save stock adjustment: %w", variant.ErrConcurrentUpdate),
	}}
	l := NewOrderListener(nil, uc, logger.Wrap(zap.New(core)))
	l.retryDelay = time.Millisecond

	l.processMessage(context.Background(), []byte(orderEvent))

	if len(uc.calls) != 3 {
		t.Fatalf("got %d attempts, want 3", len(uc.calls))
	}
	if uc.calls[2].OptionID != "opt-3" || uc.calls[2].QuantityChange != -2 {
		t.Fatalf("unexpected final attempt: %+v", uc.calls[2])
	}
	if logs.FilterMessage("Retrying variant stock adjustment").Len() != 2 {
		t.Fatal("expected a warning per retry")
	}
	if logs.FilterMessage("Failed to adjust variant stock for order item").Len() != 0 {
		t.Fatal("the decrement should have landed")
	}
}

func TestProcessGivesUpAfterRetries(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	uc := &recordingUseCase{err: variant.ErrBusy}
	l := NewOrderListener(nil, uc, logger.Wrap(zap.New(core)))
	l.retryDelay = time.Millisecond

	l.processMessage(context.Background(), []byte(orderEvent))

	if len(uc.calls) != adjustAttempts {
		t.Fatalf("got %d attempts, want %d", len(uc.calls), adjustAttempts)
	}
	if logs.FilterMessage("Failed to adjust variant stock for order item").Len() != 1 {
		t.Fatal("expected the lost decrement to be logged")
	}
}

func TestProcessSkipsFractionalQuantityOnly(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	uc := &recordingUseCase{}
	l := NewOrderListener(nil, uc, logger.Wrap(zap.New(core)))

	l.processMessage(context.Background(), []byte(`{
		"event_type": "OrderCreated",
		"payload": {
			"id": "order-10",
			"merchant_id": "m-1",
			"items": [
				{"product_id": "prod-1", "variant_id": "opt-3", "quantity": 1.5},
				{"product_id": "prod-1", "variant_id": "opt-5", "quantity": 2.0}
			]
		}
	}`))

	if len(uc.calls) != 1 || uc.calls[0].OptionID != "opt-5" || uc.calls[0].QuantityChange != -2 {
		t.Fatalf("unexpected adjustments: %+v", uc.calls)
	}
	if logs.FilterMessage("Skipping order item with fractional quantity").Len() != 1 {
		t.Fatal("expected the fractional item to be logged")
	}
}

type scriptedReader struct {
	mu       sync.Mutex
	messages [][]byte
	cancel   context.CancelFunc
}

func (r *scriptedReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.messages) == 0 {
		r.cancel()
		return kafka.Message{}, errors.New("closed")
	}
	msg := r.messages[0]
	r.messages = r.messages[1:]
	return kafka.Message{Value: msg}, nil
}

func TestStartStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	reader := &scriptedReader{messages: [][]byte{[]byte(orderEvent)}, cancel: cancel}
	uc := &recordingUseCase{}
	l := NewOrderListener(reader, uc, logger.Wrap(zap.NewNop()))

	done := make(chan struct{})
	go func() {
		l.Start(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("listener did not stop after cancel")
	}
	if len(uc.calls) != 1 {
		t.Fatalf("got %d adjustments, want 1", len(uc.calls))
	}
}
