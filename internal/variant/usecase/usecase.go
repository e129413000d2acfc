package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fekuna/omnipos-variant-service/internal/logger"
	"github.com/fekuna/omnipos-variant-service/internal/model"
	"github.com/fekuna/omnipos-variant-service/internal/product"
	"github.com/fekuna/omnipos-variant-service/internal/variant"
	"github.com/fekuna/omnipos-variant-service/internal/variant/dto"
	"github.com/fekuna/omnipos-variant-service/internal/variant/engine"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	lockAttempts   = 3
	lockRetryDelay = 100 * time.Millisecond

	maxMovementPage = 100
)

type Options struct {
	MaxCombinations int
	SnapshotTTL     time.Duration
	LockTTL         time.Duration
}

type variantUseCase struct {
	repo      variant.Repository
	products  product.Repository
	cache     variant.Cache
	events    variant.EventPublisher // Optional
	generator *engine.Generator
	opts      Options
	logger    logger.ZapLogger
	now       func() time.Time
}

func NewVariantUseCase(
	repo variant.Repository,
	products product.Repository,
	cache variant.Cache,
	events variant.EventPublisher,
	opts Options,
	log logger.ZapLogger,
) variant.UseCase {
	if opts.SnapshotTTL <= 0 {
		opts.SnapshotTTL = 5 * time.Minute
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = 5 * time.Second
	}
	return &variantUseCase{
		repo:      repo,
		products:  products,
		cache:     cache,
		events:    events,
		generator: engine.NewGenerator(opts.MaxCombinations),
		opts:      opts,
		logger:    log,
		now:       time.Now,
	}
}

func (uc *variantUseCase) ListDimensions(ctx context.Context, merchantID, productID string) ([]model.VariantDimension, error) {
	if _, err := uc.loadProduct(ctx, merchantID, productID); err != nil {
		return nil, err
	}
	return uc.repo.ListDimensions(ctx, productID)
}

func (uc *variantUseCase) AddDimension(ctx context.Context, input *dto.AddDimensionInput) (*dto.VariantMatrix, error) {
	return uc.regenerate(ctx, input.MerchantID, input.ProductID, input.PreserveOverrides,
		func(dims []model.VariantDimension) ([]model.VariantDimension, error) {
			return engine.AddDimension(dims, engine.DimensionInput{
				ProductID:  input.ProductID,
				Name:       input.Name,
				IsRequired: input.IsRequired,
				Values:     input.Values,
			})
		})
}

func (uc *variantUseCase) RemoveDimension(ctx context.Context, input *dto.RemoveDimensionInput) (*dto.VariantMatrix, error) {
	return uc.regenerate(ctx, input.MerchantID, input.ProductID, input.PreserveOverrides,
		func(dims []model.VariantDimension) ([]model.VariantDimension, error) {
			return engine.RemoveDimension(dims, input.DimensionID)
		})
}

func (uc *variantUseCase) EditDimensionValues(ctx context.Context, input *dto.EditDimensionInput) (*dto.VariantMatrix, error) {
	return uc.regenerate(ctx, input.MerchantID, input.ProductID, input.PreserveOverrides,
		func(dims []model.VariantDimension) ([]model.VariantDimension, error) {
			return engine.EditDimensionValues(dims, input.DimensionID, engine.DimensionInput{
				ProductID:  input.ProductID,
				Name:       input.Name,
				IsRequired: input.IsRequired,
				Values:     input.Values,
			})
		})
}

// regenerate runs a structural edit under the product lock and replaces the
// whole option matrix with a fresh one.
func (uc *variantUseCase) regenerate(
	ctx context.Context,
	merchantID, productID string,
	preserve bool,
	mutate func([]model.VariantDimension) ([]model.VariantDimension, error),
) (*dto.VariantMatrix, error) {
	var matrix *dto.VariantMatrix
	err := uc.withLock(ctx, productID, func() error {
		p, err := uc.loadProduct(ctx, merchantID, productID)
		if err != nil {
			return err
		}
		current, err := uc.repo.ListDimensions(ctx, productID)
		if err != nil {
			return err
		}

		dims, err := mutate(current)
		if err != nil {
			return err
		}

		options, err := uc.generator.Generate(dims, p.BasePrice)
		if err != nil {
			return err
		}
		if preserve {
			previous, err := uc.repo.ListOptions(ctx, productID)
			if err != nil {
				return err
			}
			options = engine.MergeOverrides(previous, options)
		}

		now := uc.now()
		for i := range dims {
			dims[i].ProductID = p.ID
			if dims[i].CreatedAt.IsZero() {
				dims[i].CreatedAt = now
			}
			dims[i].UpdatedAt = now
		}
		for i := range options {
			options[i].ProductID = p.ID
			if options[i].CreatedAt.IsZero() {
				options[i].CreatedAt = now
			}
			options[i].UpdatedAt = now
		}

		p.HasVariants = len(dims) > 0
		engine.MirrorStock(p, options)
		p.UpdatedAt = now

		if err := uc.repo.SaveMatrix(ctx, p, dims, options); err != nil {
			return fmt.Errorf("save variant matrix: %w", err)
		}

		uc.invalidateSnapshot(ctx, productID)
		uc.publishRegenerated(ctx, p, options)

		uc.logger.Info("variant matrix regenerated",
			zap.String("product_id", p.ID),
			zap.Int("dimensions", len(dims)),
			zap.Int("options", len(options)),
			zap.Int("stock_quantity", p.StockQuantity),
			zap.Bool("preserve_overrides", preserve),
		)

		matrix = &dto.VariantMatrix{Product: *p, Dimensions: dims, Options: options}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return matrix, nil
}

func (uc *variantUseCase) ListOptions(ctx context.Context, productID string) ([]model.VariantOption, error) {
	if _, err := uc.loadProduct(ctx, "", productID); err != nil {
		return nil, err
	}
	snap, err := uc.snapshot(ctx, productID)
	if err != nil {
		return nil, err
	}
	return snap.Options, nil
}

func (uc *variantUseCase) BulkEdit(ctx context.Context, input *dto.BulkEditInput) (*dto.BulkEditResult, error) {
	var result *dto.BulkEditResult
	err := uc.withLock(ctx, input.ProductID, func() error {
		p, err := uc.loadProduct(ctx, input.MerchantID, input.ProductID)
		if err != nil {
			return err
		}
		options, err := uc.repo.ListOptions(ctx, input.ProductID)
		if err != nil {
			return err
		}

		edited, touched, err := engine.ApplyBulk(options, engine.NewSelection(input.SelectedIDs...), engine.BulkField(input.Field), input.Value)
		if err != nil {
			return err
		}

		now := uc.now()
		changed := make([]model.VariantOption, 0, touched)
		for i := range edited {
			for _, id := range input.SelectedIDs {
				if edited[i].ID == id {
					edited[i].UpdatedAt = now
					changed = append(changed, edited[i])
					break
				}
			}
		}

		engine.MirrorStock(p, edited)
		p.UpdatedAt = now
		if err := uc.repo.SaveOptions(ctx, p, changed); err != nil {
			return fmt.Errorf("save bulk edit: %w", err)
		}
		uc.invalidateSnapshot(ctx, input.ProductID)

		dims, err := uc.repo.ListDimensions(ctx, input.ProductID)
		if err != nil {
			return err
		}

		uc.logger.Info("bulk edit applied",
			zap.String("product_id", p.ID),
			zap.String("field", input.Field),
			zap.Int("updated", touched),
		)
		result = &dto.BulkEditResult{
			Matrix:  &dto.VariantMatrix{Product: *p, Dimensions: dims, Options: edited},
			Updated: touched,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (uc *variantUseCase) ResolveOption(ctx context.Context, input *dto.ResolveOptionInput) (*model.VariantOption, error) {
	if _, err := uc.loadProduct(ctx, "", input.ProductID); err != nil {
		return nil, err
	}
	snap, err := uc.snapshot(ctx, input.ProductID)
	if err != nil {
		return nil, err
	}

	opt, err := engine.Resolve(snap.Options, snap.Dimensions, input.Selection)
	if err == nil {
		opt, err = uc.confirmResolved(ctx, input.ProductID, opt, input.Selection)
	}
	if err != nil {
		var merr *engine.MatchError
		if errors.As(err, &merr) {
			uc.logger.Debug("option not resolved",
				zap.String("product_id", input.ProductID),
				zap.String("reason", string(merr.Kind)),
			)
		}
		return nil, err
	}
	return &opt, nil
}

// confirmResolved checks a snapshot match against stored stock. A cached
// snapshot can lag a stock write, so on any difference the snapshot is dropped
// and the selection is resolved again from the repository.
func (uc *variantUseCase) confirmResolved(ctx context.Context, productID string, opt model.VariantOption, selection map[string]string) (model.VariantOption, error) {
	options, err := uc.repo.ListOptions(ctx, productID)
	if err != nil {
		return model.VariantOption{}, err
	}
	for _, o := range options {
		if o.ID == opt.ID && o.StockQuantity == opt.StockQuantity {
			return opt, nil
		}
	}

	uc.logger.Debug("stale variant snapshot", zap.String("product_id", productID), zap.String("option_id", opt.ID))
	uc.invalidateSnapshot(ctx, productID)

	dims, err := uc.repo.ListDimensions(ctx, productID)
	if err != nil {
		return model.VariantOption{}, err
	}
	return engine.Resolve(options, dims, selection)
}

func (uc *variantUseCase) AdjustOptionStock(ctx context.Context, input *dto.AdjustOptionStockInput) (*model.VariantOption, error) {
	var adjusted *model.VariantOption
	err := uc.withLock(ctx, input.ProductID, func() error {
		p, err := uc.loadProduct(ctx, input.MerchantID, input.ProductID)
		if err != nil {
			return err
		}
		options, err := uc.repo.ListOptions(ctx, input.ProductID)
		if err != nil {
			return err
		}

		idx := -1
		for i, o := range options {
			if o.ID == input.OptionID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return variant.ErrOptionNotFound
		}

		before := options[idx].StockQuantity
		after := before + input.QuantityChange
		if after < 0 {
			return variant.ErrInsufficientStock
		}

		now := uc.now()
		options[idx].StockQuantity = after
		options[idx].UpdatedAt = now
		engine.MirrorStock(p, options)
		p.UpdatedAt = now

		movementType := input.MovementType
		if movementType == "" {
			movementType = model.MovementTypeAdjustment
		}
		movement := &model.StockMovement{
			ID:             uuid.New().String(),
			MerchantID:     p.MerchantID,
			ProductID:      p.ID,
			OptionID:       input.OptionID,
			MovementType:   movementType,
			QuantityChange: input.QuantityChange,
			QuantityBefore: before,
			QuantityAfter:  after,
			Notes:          input.Reason,
			CreatedAt:      now,
		}
		if input.ReferenceID != "" {
			ref := input.ReferenceID
			movement.ReferenceID = &ref
		}

		if err := uc.repo.AdjustStockWithMovement(ctx, p, &options[idx], movement); err != nil {
			return fmt.Errorf("save stock adjustment: %w", err)
		}
		uc.invalidateSnapshot(ctx, input.ProductID)

		uc.logger.Info("variant stock adjusted",
			zap.String("product_id", p.ID),
			zap.String("option_id", input.OptionID),
			zap.Int("before", before),
			zap.Int("after", after),
			zap.String("reason", input.Reason),
			zap.String("reference_id", input.ReferenceID),
		)
		o := options[idx]
		adjusted = &o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return adjusted, nil
}

func (uc *variantUseCase) SetProductStock(ctx context.Context, input *dto.SetProductStockInput) (*model.Product, error) {
	p, err := uc.loadProduct(ctx, input.MerchantID, input.ProductID)
	if err != nil {
		return nil, err
	}
	if err := engine.CheckManualStockWrite(*p); err != nil {
		return nil, err
	}
	if input.StockQuantity < 0 {
		return nil, &engine.ValidationError{Field: "stock_quantity", Message: "stock cannot be negative"}
	}
	if err := uc.products.UpdateStock(ctx, p.ID, input.StockQuantity); err != nil {
		return nil, err
	}
	p.StockQuantity = input.StockQuantity
	p.UpdatedAt = uc.now()
	return p, nil
}

func (uc *variantUseCase) ListStockMovements(ctx context.Context, input *dto.ListMovementsInput) ([]model.StockMovement, error) {
	if _, err := uc.loadProduct(ctx, input.MerchantID, input.ProductID); err != nil {
		return nil, err
	}
	limit := input.Limit
	if limit <= 0 || limit > maxMovementPage {
		limit = maxMovementPage
	}
	return uc.repo.ListMovements(ctx, input.ProductID, input.OptionID, limit)
}

func (uc *variantUseCase) loadProduct(ctx context.Context, merchantID, productID string) (*model.Product, error) {
	p, err := uc.products.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if p == nil || (merchantID != "" && p.MerchantID != merchantID) {
		return nil, variant.ErrProductNotFound
	}
	return p, nil
}

func (uc *variantUseCase) withLock(ctx context.Context, productID string, fn func() error) error {
	lockKey := fmt.Sprintf("lock:variants:%s", productID)
	lockValue := uuid.New().String()

	acquired := false
	for i := 0; i < lockAttempts; i++ {
		ok, err := uc.cache.AcquireLock(ctx, lockKey, lockValue, uc.opts.LockTTL)
		if err != nil {
			uc.logger.Error("failed to acquire lock redis error", zap.Error(err))
		}
		if ok {
			acquired = true
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(lockRetryDelay):
		}
	}
	if !acquired {
		return variant.ErrBusy
	}
	defer func() {
		if err := uc.cache.ReleaseLock(context.WithoutCancel(ctx), lockKey, lockValue); err != nil {
			uc.logger.Warn("failed to release variant lock", zap.String("product_id", productID), zap.Error(err))
		}
	}()

	return fn()
}

func snapshotKey(productID string) string {
	return fmt.Sprintf("variants:snapshot:%s", productID)
}

func (uc *variantUseCase) snapshot(ctx context.Context, productID string) (*dto.Snapshot, error) {
	key := snapshotKey(productID)
	if data, ok, err := uc.cache.Get(ctx, key); err == nil && ok {
		var snap dto.Snapshot
		if err := json.Unmarshal(data, &snap); err == nil {
			return &snap, nil
		}
	} else if err != nil {
		uc.logger.Warn("snapshot cache read failed, falling back to DB", zap.String("product_id", productID), zap.Error(err))
	}

	dims, err := uc.repo.ListDimensions(ctx, productID)
	if err != nil {
		return nil, err
	}
	options, err := uc.repo.ListOptions(ctx, productID)
	if err != nil {
		return nil, err
	}
	snap := &dto.Snapshot{Dimensions: dims, Options: options}

	if data, err := json.Marshal(snap); err == nil {
		if err := uc.cache.Set(ctx, key, data, uc.opts.SnapshotTTL); err != nil {
			uc.logger.Warn("snapshot cache write failed", zap.String("product_id", productID), zap.Error(err))
		}
	}
	return snap, nil
}

func (uc *variantUseCase) invalidateSnapshot(ctx context.Context, productID string) {
	if err := uc.cache.Delete(ctx, snapshotKey(productID)); err != nil {
		uc.logger.Warn("failed to invalidate variant snapshot", zap.String("product_id", productID), zap.Error(err))
	}
}

func (uc *variantUseCase) publishRegenerated(ctx context.Context, p *model.Product, options []model.VariantOption) {
	if uc.events == nil {
		return
	}
	event := variant.RegeneratedEvent{
		EventID:     uuid.New().String(),
		EventType:   variant.EventVariantsRegenerated,
		ProductID:   p.ID,
		MerchantID:  p.MerchantID,
		OptionCount: len(options),
		TotalStock:  engine.TotalStock(options),
		Timestamp:   uc.now(),
	}
	data, err := json.Marshal(event)
	if err != nil {
		uc.logger.Error("failed to encode regenerated event", zap.Error(err))
		return
	}
	if err := uc.events.Publish(ctx, p.ID, data); err != nil {
		uc.logger.Error("failed to publish regenerated event", zap.String("product_id", p.ID), zap.Error(err))
	}
}
