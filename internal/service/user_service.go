package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/aju-clearance-api/internal/models"
	appErrors "github.com/noah-isme/aju-clearance-api/pkg/errors"
)

type userRepository interface {
	EmailExists(ctx context.Context, email string) (bool, error)
	Create(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id string) error
	CreateProfile(ctx context.Context, profile *models.Profile) error
	ListProfiles(ctx context.Context) ([]models.Profile, error)
	DeleteProfile(ctx context.Context, userID string) error
}

type studentRegistry interface {
	Create(ctx context.Context, student *models.Student) error
	TrackNoExists(ctx context.Context, trackNo string) (bool, error)
	DeleteByUserID(ctx context.Context, userID string) error
}

// UserService handles account administration: listing profiles and
// provisioning or removing accounts.
type UserService struct {
	repo      userRepository
	students  studentRegistry
	units     unitLookup
	audit     auditWriter
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUserService creates an instance of UserService.
func NewUserService(repo userRepository, students studentRegistry, units unitLookup, audit auditWriter, validate *validator.Validate, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &UserService{repo: repo, students: students, units: units, audit: audit, validator: validate, logger: logger}
}

// AuthorizeAdmin rejects callers that are neither admin nor staff.
func AuthorizeAdmin(actor models.Reviewer) error {
	if actor.Role != models.RoleAdmin && actor.Role != models.RoleStaff {
		return appErrors.Clone(appErrors.ErrForbidden, "Insufficient permissions")
	}
	return nil
}

// List returns every profile, newest first.
func (s *UserService) List(ctx context.Context, actor models.Reviewer) ([]models.Profile, error) {
	if err := AuthorizeAdmin(actor); err != nil {
		return nil, err
	}
	profiles, err := s.repo.ListProfiles(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list users")
	}
	if profiles == nil {
		profiles = []models.Profile{}
	}
	return profiles, nil
}

// Create provisions an account with its profile and, for students, the
// student record. The account is deleted again if the later inserts fail.
func (s *UserService) Create(ctx context.Context, actor models.Reviewer, req models.CreateUserRequest, meta models.LoginRequest) (string, error) {
	if err := AuthorizeAdmin(actor); err != nil {
		return "", err
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validator.Struct(req); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid create user payload")
	}

	profile := &models.Profile{Name: req.Name, Email: req.Email, Role: req.Role}
	switch req.Role {
	case models.RoleStudent:
		profile.TrackNo = normalizeOptional(req.TrackNo)
		if profile.TrackNo == nil {
			return "", appErrors.Clone(appErrors.ErrValidation, "trackNo is required for students")
		}
		profile.Department = normalizeOptional(req.Department)
	default:
		profile.StaffID = normalizeOptional(req.StaffID)
		profile.Department = normalizeOptional(req.Department)
		if req.Unit != nil && *req.Unit != "" {
			if err := s.requireUnit(ctx, *req.Unit); err != nil {
				return "", err
			}
			unit := *req.Unit
			profile.Unit = &unit
		}
		if req.Role == models.RoleStaff && profile.Unit == nil {
			return "", appErrors.Clone(appErrors.ErrValidation, "unit is required for staff")
		}
	}

	exists, err := s.repo.EmailExists(ctx, req.Email)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email uniqueness")
	}
	if exists {
		return "", appErrors.Clone(appErrors.ErrValidation, "A user with this email address has already been registered")
	}
	if profile.TrackNo != nil {
		taken, err := s.students.TrackNoExists(ctx, *profile.TrackNo)
		if err != nil {
			return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check track number")
		}
		if taken {
			return "", appErrors.Clone(appErrors.ErrValidation, "track number is already registered")
		}
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}
	user := &models.User{
		Email:        req.Email,
		FullName:     req.Name,
		Role:         req.Role,
		Active:       true,
		PasswordHash: string(passwordHash),
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "Failed to create user in Auth")
	}

	profile.UserID = user.ID
	if err := s.repo.CreateProfile(ctx, profile); err != nil {
		s.compensate(ctx, user.ID, false)
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "Failed to save user profile")
	}
	if req.Role == models.RoleStudent {
		student := &models.Student{
			UserID:     user.ID,
			Name:       req.Name,
			TrackNo:    *profile.TrackNo,
			Email:      req.Email,
			Department: profile.Department,
		}
		if err := s.students.Create(ctx, student); err != nil {
			s.compensate(ctx, user.ID, true)
			return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "Failed to save student record")
		}
	}

	s.record(ctx, actor, models.AuditActionUserCreate, user.ID, meta, map[string]interface{}{
		"id": user.ID, "email": user.Email, "role": user.Role, "unit": profile.Unit,
	})
	s.logger.Info("user created", zap.String("user_id", user.ID), zap.String("role", string(user.Role)))
	return user.ID, nil
}

// Delete removes the profile, the student record and finally the account.
// A failure on the account itself is logged; the directory entries are gone.
func (s *UserService) Delete(ctx context.Context, actor models.Reviewer, req models.DeleteUserRequest, meta models.LoginRequest) error {
	if err := AuthorizeAdmin(actor); err != nil {
		return err
	}
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "userId is required")
	}
	if req.UserID == actor.UserID {
		return appErrors.Clone(appErrors.ErrValidation, "Cannot delete your own account")
	}

	if err := s.repo.DeleteProfile(ctx, req.UserID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete profile")
	}
	if err := s.students.DeleteByUserID(ctx, req.UserID); err != nil {
		s.logger.Warn("failed to delete student record", zap.String("user_id", req.UserID), zap.Error(err))
	}
	if err := s.repo.Delete(ctx, req.UserID); err != nil && !errors.Is(err, sql.ErrNoRows) {
		s.logger.Warn("could not delete auth account", zap.String("user_id", req.UserID), zap.Error(err))
	}

	s.record(ctx, actor, models.AuditActionUserDelete, req.UserID, meta, nil)
	return nil
}

func (s *UserService) requireUnit(ctx context.Context, unit models.UnitID) error {
	if _, err := s.units.FindByID(ctx, unit); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrValidation, "unknown unit "+string(unit))
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load unit")
	}
	return nil
}

func (s *UserService) compensate(ctx context.Context, userID string, profileCreated bool) {
	ctx = context.WithoutCancel(ctx)
	if profileCreated {
		if err := s.repo.DeleteProfile(ctx, userID); err != nil {
			s.logger.Error("failed to remove profile after failed user creation", zap.String("user_id", userID), zap.Error(err))
		}
	}
	if err := s.repo.Delete(ctx, userID); err != nil {
		s.logger.Error("failed to remove orphaned auth account", zap.String("user_id", userID), zap.Error(err))
	}
}

func (s *UserService) record(ctx context.Context, actor models.Reviewer, action, userID string, meta models.LoginRequest, values interface{}) {
	if s.audit == nil {
		return
	}
	entry := &models.AuditLog{
		UserID:     &actor.UserID,
		Action:     action,
		Resource:   "users",
		ResourceID: &userID,
		NewValues:  marshalAudit(values),
		IPAddress:  meta.IP,
		UserAgent:  meta.UserAgent,
	}
	if err := s.audit.CreateAuditLog(ctx, entry); err != nil {
		s.logger.Warn("failed to record user audit log", zap.String("action", action), zap.Error(err))
	}
}
