package entitlement

import (
	"context"
	"errors"
	"fmt"

	"github.com/eventhub-saas/eventhub/internal/models"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ErrTenantNotFound is returned when the tenant does not exist.
var ErrTenantNotFound = errors.New("tenant not found")

// Resource identifies a quota-limited resource.
type Resource string

// Quota-limited resources.
const (
	ResourceEvents  Resource = "events"
	ResourceGuests  Resource = "guests"
	ResourceStorage Resource = "storage"
)

// Resolution is a tenant together with its current plan.
type Resolution struct {
	Tenant   models.Tenant
	Plan     *models.SubscriptionPlan
	Features FeatureSet
}

// PlanName returns the plan display name or a placeholder when unset.
func (r *Resolution) PlanName() string {
	if r == nil || r.Plan == nil {
		return "current"
	}
	return r.Plan.Name
}

// Denial is a user-facing refusal produced by a feature or quota check.
type Denial struct {
	Feature  Feature
	Resource Resource
	PlanName string
	Limit    int
	Message  string
}

// Error implements error.
func (d *Denial) Error() string { return d.Message }

// IsDenial reports whether err is, or wraps, a *Denial.
func IsDenial(err error) (*Denial, bool) {
	var d *Denial
	if errors.As(err, &d) {
		return d, true
	}
	return nil, false
}

// Decision is the outcome of a quota check.
type Decision struct {
	Allowed bool
	Message string
	denial  *Denial
}

// Err returns the denial as an error, or nil when allowed.
func (d Decision) Err() error {
	if d.Allowed || d.denial == nil {
		return nil
	}
	return d.denial
}

func allow() Decision { return Decision{Allowed: true} }

func deny(d *Denial) Decision {
	return Decision{Allowed: false, Message: d.Message, denial: d}
}

// QuotaRequest describes a quota check. EventID is required for guests.
type QuotaRequest struct {
	Resource Resource
	EventID  uint64
	Delta    int
}

// Resolver evaluates plan features and quotas for tenants.
// Checks are advisory and run before mutations; concurrent requests may overshoot a limit.
type Resolver struct {
	db *gorm.DB
}

// NewResolver constructs a Resolver.
func NewResolver(db *gorm.DB) *Resolver {
	return &Resolver{db: db}
}

// ResolvePlan loads a tenant and its plan.
func (r *Resolver) ResolvePlan(ctx context.Context, tenantID uint64) (*Resolution, error) {
	var tenant models.Tenant
	if errFind := r.db.WithContext(ctx).Preload("Plan").First(&tenant, tenantID).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, ErrTenantNotFound
		}
		return nil, fmt.Errorf("entitlement: load tenant: %w", errFind)
	}
	res := &Resolution{Tenant: tenant, Plan: tenant.Plan, Features: NewFeatureSet()}
	if tenant.Plan != nil {
		res.Features = DecodeFeatures(tenant.Plan.Features)
	}
	return res, nil
}

// HasFeature reports whether the tenant's plan enables f. Missing plans deny.
func (r *Resolver) HasFeature(ctx context.Context, tenantID uint64, f Feature) (bool, error) {
	res, errResolve := r.ResolvePlan(ctx, tenantID)
	if errResolve != nil {
		return false, errResolve
	}
	return res.Features.Has(f), nil
}

// RequireFeature returns a *Denial when the tenant's plan does not enable f.
func (r *Resolver) RequireFeature(ctx context.Context, tenantID uint64, f Feature) error {
	res, errResolve := r.ResolvePlan(ctx, tenantID)
	if errResolve != nil {
		return errResolve
	}
	if res.Features.Has(f) {
		return nil
	}
	return &Denial{
		Feature:  f,
		PlanName: res.PlanName(),
		Message:  fmt.Sprintf("%s is not included in the %s plan. Upgrade your plan to unlock it.", f.Label(), res.PlanName()),
	}
}

// CheckQuota dispatches to the resource specific check.
func (r *Resolver) CheckQuota(ctx context.Context, tenantID uint64, req QuotaRequest) (Decision, error) {
	switch req.Resource {
	case ResourceEvents:
		return r.CheckEventQuota(ctx, tenantID)
	case ResourceGuests:
		return r.CheckGuestQuota(ctx, tenantID, req.EventID, req.Delta)
	case ResourceStorage:
		return r.CheckStorageQuota(ctx, tenantID, req.Delta)
	default:
		return Decision{}, fmt.Errorf("entitlement: unknown resource %q", req.Resource)
	}
}

// CheckEventQuota counts the tenant's non-archived events against max_events.
func (r *Resolver) CheckEventQuota(ctx context.Context, tenantID uint64) (Decision, error) {
	res, errResolve := r.ResolvePlan(ctx, tenantID)
	if errResolve != nil {
		return Decision{}, errResolve
	}
	if res.Plan == nil {
		return deny(noPlanDenial(ResourceEvents)), nil
	}
	var count int64
	if errCount := r.db.WithContext(ctx).Model(&models.Event{}).
		Where("tenant_id = ? AND status <> ?", tenantID, models.EventStatusArchived).
		Count(&count).Error; errCount != nil {
		return Decision{}, fmt.Errorf("entitlement: count events: %w", errCount)
	}
	limit := res.Plan.MaxEvents
	if count >= int64(limit) {
		log.WithFields(log.Fields{"tenant_id": tenantID, "limit": limit, "count": count}).Info("entitlement: event quota reached")
		return deny(&Denial{
			Resource: ResourceEvents,
			PlanName: res.Plan.Name,
			Limit:    limit,
			Message:  fmt.Sprintf("You have reached the limit of %d active event(s) on the %s plan. Archive old events or upgrade your plan.", limit, res.Plan.Name),
		}), nil
	}
	return allow(), nil
}

// CheckGuestQuota evaluates the per-event guest limit for a batch of delta guests.
func (r *Resolver) CheckGuestQuota(ctx context.Context, tenantID, eventID uint64, delta int) (Decision, error) {
	res, errResolve := r.ResolvePlan(ctx, tenantID)
	if errResolve != nil {
		return Decision{}, errResolve
	}
	if res.Plan == nil {
		return deny(noPlanDenial(ResourceGuests)), nil
	}
	if delta < 0 {
		delta = 0
	}
	var count int64
	if errCount := r.db.WithContext(ctx).Model(&models.Guest{}).
		Where("event_id = ?", eventID).
		Count(&count).Error; errCount != nil {
		return Decision{}, fmt.Errorf("entitlement: count guests: %w", errCount)
	}
	limit := res.Plan.MaxGuests
	if count+int64(delta) > int64(limit) {
		return deny(&Denial{
			Resource: ResourceGuests,
			PlanName: res.Plan.Name,
			Limit:    limit,
			Message:  fmt.Sprintf("The %s plan allows up to %d guests per event.", res.Plan.Name, limit),
		}), nil
	}
	return allow(), nil
}

// CheckStorageQuota compares the tenant's cumulative storage usage to its plan quota.
func (r *Resolver) CheckStorageQuota(ctx context.Context, tenantID uint64, deltaMB int) (Decision, error) {
	res, errResolve := r.ResolvePlan(ctx, tenantID)
	if errResolve != nil {
		return Decision{}, errResolve
	}
	if res.Plan == nil {
		return deny(noPlanDenial(ResourceStorage)), nil
	}
	if deltaMB < 0 {
		deltaMB = 0
	}
	used := res.Tenant.StorageUsedMB
	limit := res.Plan.StorageQuotaMB
	if used >= limit || used+deltaMB > limit {
		return deny(&Denial{
			Resource: ResourceStorage,
			PlanName: res.Plan.Name,
			Limit:    limit,
			Message:  fmt.Sprintf("You have reached the %d MB storage limit of the %s plan. Upgrade your plan to upload more photos.", limit, res.Plan.Name),
		}), nil
	}
	return allow(), nil
}

func noPlanDenial(resource Resource) *Denial {
	return &Denial{Resource: resource, Message: "No subscription plan found for this organization."}
}
