// Package registration signs up new organizations.
package registration

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/eventhub-saas/eventhub/internal/db"
	"github.com/eventhub-saas/eventhub/internal/domain"
	"github.com/eventhub-saas/eventhub/internal/models"
	"github.com/go-playground/validator/v10"
	log "github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var validate = validator.New()

// Input is the signup payload.
type Input struct {
	AuthID   string `json:"auth_id" validate:"required,max=255"`
	Email    string `json:"email" validate:"required,email"`
	FullName string `json:"full_name" validate:"max=200"`
	OrgName  string `json:"org_name" validate:"required,min=2,max=200"`
}

// Result is the created tenant and its owner.
type Result struct {
	Tenant models.Tenant `json:"tenant"`
	User   models.User   `json:"user"`
}

// Service registers tenants.
type Service struct {
	db         *gorm.DB
	createUser func(ctx context.Context, user *models.User) error
}

// NewService constructs a Service.
func NewService(conn *gorm.DB) *Service {
	s := &Service{db: conn}
	s.createUser = func(ctx context.Context, user *models.User) error {
		return s.db.WithContext(ctx).Create(user).Error
	}
	return s
}

// Register creates a tenant on the free plan and its owning user. When the user
// cannot be created the tenant is deleted again.
func (s *Service) Register(ctx context.Context, in Input) (*Result, error) {
	in.AuthID = strings.TrimSpace(in.AuthID)
	in.Email = strings.TrimSpace(strings.ToLower(in.Email))
	in.FullName = strings.TrimSpace(in.FullName)
	in.OrgName = strings.TrimSpace(in.OrgName)
	if errValidate := validate.Struct(in); errValidate != nil {
		return nil, fieldErrors(errValidate)
	}

	var existing int64
	if errCount := s.db.WithContext(ctx).Model(&models.User{}).
		Where("auth_id = ?", in.AuthID).Count(&existing).Error; errCount != nil {
		return nil, fmt.Errorf("registration: check user: %w", errCount)
	}
	if existing > 0 {
		return nil, domain.Conflictf("account already registered")
	}

	plan, errPlan := db.PlanBySlug(s.db.WithContext(ctx), models.PlanSlugFree)
	if errPlan != nil {
		return nil, fmt.Errorf("registration: load free plan: %w", errPlan)
	}

	tenant := models.Tenant{Name: in.OrgName, PlanID: &plan.ID, SubscriptionStatus: models.SubscriptionActive}
	if errCreate := s.db.WithContext(ctx).Create(&tenant).Error; errCreate != nil {
		return nil, fmt.Errorf("registration: create tenant: %w", errCreate)
	}

	user := models.User{
		AuthID:      in.AuthID,
		TenantID:    tenant.ID,
		Email:       in.Email,
		FullName:    in.FullName,
		Role:        models.RoleTenantOwner,
		Permissions: datatypes.JSON("[]"),
	}
	if errUser := s.createUser(ctx, &user); errUser != nil {
		if errDelete := s.db.WithContext(context.WithoutCancel(ctx)).Delete(&models.Tenant{}, tenant.ID).Error; errDelete != nil {
			log.WithError(errDelete).WithField("tenant_id", tenant.ID).Error("registration: compensating tenant delete failed")
		}
		if db.IsUniqueViolation(errUser) {
			return nil, domain.Conflictf("account already registered")
		}
		return nil, fmt.Errorf("registration: create user: %w", errUser)
	}

	tenant.Plan = plan
	log.WithFields(log.Fields{"tenant_id": tenant.ID, "user_id": user.ID}).Info("registration: tenant created")
	return &Result{Tenant: tenant, User: user}, nil
}

func fieldErrors(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return domain.Invalid("body", err.Error())
	}
	fields := domain.FieldErrors{}
	for _, fe := range verrs {
		name := strings.ToLower(fe.Field())
		switch fe.Field() {
		case "AuthID":
			name = "auth_id"
		case "FullName":
			name = "full_name"
		case "OrgName":
			name = "org_name"
		}
		switch fe.Tag() {
		case "required":
			fields.Add(name, "is required")
		case "email":
			fields.Add(name, "invalid email")
		default:
			fields.Add(name, "invalid value")
		}
	}
	return fields.OrNil()
}
