package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/aju-clearance-api/internal/models"
	appErrors "github.com/noah-isme/aju-clearance-api/pkg/errors"
)

type feeRepository interface {
	List(ctx context.Context, filter models.FeeFilter) ([]models.Fee, error)
	FindByID(ctx context.Context, id string) (*models.Fee, error)
	Create(ctx context.Context, fee *models.Fee) error
	Update(ctx context.Context, fee *models.Fee) error
	Delete(ctx context.Context, id string) error
	CountReceipts(ctx context.Context, id string) (int, error)
}

type unitLookup interface {
	FindByID(ctx context.Context, id models.UnitID) (*models.Unit, error)
}

// FeeService exposes the fee catalog.
type FeeService struct {
	repo      feeRepository
	units     unitLookup
	audit     auditWriter
	cache     *FeeCache
	validator *validator.Validate
	logger    *zap.Logger
}

// NewFeeService constructs a FeeService. cache may be nil.
func NewFeeService(repo feeRepository, units unitLookup, audit auditWriter, cache *FeeCache, validate *validator.Validate, logger *zap.Logger) *FeeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &FeeService{repo: repo, units: units, audit: audit, cache: cache, validator: validate, logger: logger}
}

// CanEditFee reports whether reviewer may create or edit fees owned by unit.
// Bursary staff manage every fee; accounts staff manage accounts and bursary
// fees.
func CanEditFee(reviewer models.Reviewer, unit models.UnitID) bool {
	switch {
	case reviewer.Role == models.RoleAdmin:
		return true
	case reviewer.Role != models.RoleStaff:
		return false
	case reviewer.Unit == models.UnitBursary:
		return true
	case reviewer.Unit == models.UnitAccounts:
		return unit == models.UnitAccounts || unit == models.UnitBursary
	}
	return false
}

// List returns catalog entries matching filter, served from cache when
// possible. The boolean reports a cache hit.
func (s *FeeService) List(ctx context.Context, filter models.FeeFilter) ([]models.Fee, bool, error) {
	if cached, hit := s.cache.Lookup(ctx, filter); hit {
		return cached, true, nil
	}

	fees, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, false, appErrors.Backend(err, "failed to list fees")
	}
	if fees == nil {
		fees = []models.Fee{}
	}
	s.cache.Store(ctx, filter, fees)
	return fees, false, nil
}

// Get returns a fee by id.
func (s *FeeService) Get(ctx context.Context, id string) (*models.Fee, error) {
	fee, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "fee not found")
		}
		return nil, appErrors.Backend(err, "failed to load fee")
	}
	return fee, nil
}

// Create adds a catalog entry.
func (s *FeeService) Create(ctx context.Context, reviewer models.Reviewer, req models.CreateFeeRequest) (*models.Fee, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid fee payload")
	}
	if !CanEditFee(reviewer, req.UnitID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not allowed to manage fees for this unit")
	}
	if err := s.ensureUnit(ctx, req.UnitID); err != nil {
		return nil, err
	}

	fee := &models.Fee{
		Name:          strings.TrimSpace(req.Name),
		Amount:        req.Amount,
		UnitID:        req.UnitID,
		Department:    normalizeOptional(req.Department),
		AccountNumber: req.AccountNumber,
		Description:   normalizeOptional(req.Description),
	}
	if err := s.repo.Create(ctx, fee); err != nil {
		return nil, appErrors.Backend(err, "failed to create fee")
	}
	s.afterWrite(ctx, reviewer, models.AuditActionFeeCreate, fee.ID, nil, fee)
	return fee, nil
}

// Update patches a catalog entry. Receipts keep the amount copied at
// submission time.
func (s *FeeService) Update(ctx context.Context, reviewer models.Reviewer, id string, req models.UpdateFeeRequest) (*models.Fee, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid fee payload")
	}
	fee, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanEditFee(reviewer, fee.UnitID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not allowed to manage fees for this unit")
	}
	before := *fee

	if req.Name != nil {
		fee.Name = strings.TrimSpace(*req.Name)
	}
	if req.Amount != nil {
		fee.Amount = *req.Amount
	}
	if req.UnitID != nil && *req.UnitID != fee.UnitID {
		if !CanEditFee(reviewer, *req.UnitID) {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "not allowed to move fees to this unit")
		}
		if err := s.ensureUnit(ctx, *req.UnitID); err != nil {
			return nil, err
		}
		fee.UnitID = *req.UnitID
	}
	if req.Department != nil {
		fee.Department = normalizeOptional(req.Department)
	}
	if req.AccountNumber != nil {
		fee.AccountNumber = *req.AccountNumber
	}
	if req.Description != nil {
		fee.Description = normalizeOptional(req.Description)
	}

	if err := s.repo.Update(ctx, fee); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "fee not found")
		}
		return nil, appErrors.Backend(err, "failed to update fee")
	}
	s.afterWrite(ctx, reviewer, models.AuditActionFeeUpdate, fee.ID, &before, fee)
	return fee, nil
}

// Delete removes a fee that no receipt references.
func (s *FeeService) Delete(ctx context.Context, reviewer models.Reviewer, id string) error {
	fee, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !CanEditFee(reviewer, fee.UnitID) {
		return appErrors.Clone(appErrors.ErrForbidden, "not allowed to manage fees for this unit")
	}
	count, err := s.repo.CountReceipts(ctx, id)
	if err != nil {
		return appErrors.Backend(err, "failed to check fee usage")
	}
	if count > 0 {
		return appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("fee is referenced by %d receipt(s)", count))
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Backend(err, "failed to delete fee")
	}
	s.afterWrite(ctx, reviewer, models.AuditActionFeeDelete, id, fee, nil)
	return nil
}

func (s *FeeService) ensureUnit(ctx context.Context, id models.UnitID) error {
	if _, err := s.units.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrValidation, "unknown unit "+string(id))
		}
		return appErrors.Backend(err, "failed to load unit")
	}
	return nil
}

func (s *FeeService) afterWrite(ctx context.Context, reviewer models.Reviewer, action, feeID string, before, after *models.Fee) {
	if err := s.cache.Invalidate(ctx); err != nil {
		s.logger.Warn("failed to invalidate fee cache", zap.String("action", action), zap.Error(err))
	}
	entry := &models.AuditLog{Action: action, Resource: "fee", ResourceID: &feeID}
	if reviewer.UserID != "" {
		entry.UserID = &reviewer.UserID
	}
	if before != nil {
		entry.OldValues, _ = json.Marshal(before)
	}
	if after != nil {
		entry.NewValues, _ = json.Marshal(after)
	}
	if err := s.audit.CreateAuditLog(ctx, entry); err != nil {
		s.logger.Warn("failed to record fee audit log", zap.String("action", action), zap.Error(err))
	}
}

func normalizeOptional(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
