package app

import (
	"errors"
	"fmt"

	"github.com/eventhub-saas/eventhub/internal/db"
	"github.com/eventhub-saas/eventhub/internal/models"
	"gorm.io/gorm"
)

// InitState is what a database already holds before first-run setup.
type InitState struct {
	Admins   int64 `json:"admins"`
	Plans    int64 `json:"plans"`
	Tenants  int64 `json:"tenants"`
	FreePlan bool  `json:"free_plan"`
}

// Ready reports whether tenants can register: an admin exists and the default plan is present.
func (s InitState) Ready() bool {
	return s.Admins > 0 && s.FreePlan
}

// LoadInitState counts admins, plans and tenants. Missing tables count as empty.
func LoadInitState(conn *gorm.DB) (InitState, error) {
	var state InitState
	if conn == nil {
		return state, fmt.Errorf("nil db")
	}
	migrator := conn.Migrator()
	if migrator.HasTable(&models.Admin{}) {
		if errCount := conn.Model(&models.Admin{}).Count(&state.Admins).Error; errCount != nil {
			return state, fmt.Errorf("count admins: %w", errCount)
		}
	}
	if migrator.HasTable(&models.SubscriptionPlan{}) {
		if errCount := conn.Model(&models.SubscriptionPlan{}).Count(&state.Plans).Error; errCount != nil {
			return state, fmt.Errorf("count plans: %w", errCount)
		}
		_, errPlan := db.PlanBySlug(conn, models.PlanSlugFree)
		switch {
		case errPlan == nil:
			state.FreePlan = true
		case !errors.Is(errPlan, gorm.ErrRecordNotFound):
			return state, fmt.Errorf("load free plan: %w", errPlan)
		}
	}
	if migrator.HasTable(&models.Tenant{}) {
		if errCount := conn.Model(&models.Tenant{}).Count(&state.Tenants).Error; errCount != nil {
			return state, fmt.Errorf("count tenants: %w", errCount)
		}
	}
	return state, nil
}

// HasAdminInitialized reports whether setup is complete: an admin account
// exists and the free plan new tenants are placed on is seeded.
func HasAdminInitialized(conn *gorm.DB) (bool, error) {
	state, err := LoadInitState(conn)
	if err != nil {
		return false, err
	}
	return state.Ready(), nil
}
