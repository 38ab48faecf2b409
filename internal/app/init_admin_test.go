package app

import (
	"encoding/json"
	"testing"

	"github.com/eventhub-saas/eventhub/internal/dbtest"
	"github.com/eventhub-saas/eventhub/internal/models"
	"github.com/eventhub-saas/eventhub/internal/security"
	internalsettings "github.com/eventhub-saas/eventhub/internal/settings"
	"gorm.io/gorm"
)

func storedSiteName(t *testing.T, conn *gorm.DB) string {
	t.Helper()
	var setting models.Setting
	if errFind := conn.Where("key = ?", internalsettings.SiteNameKey).First(&setting).Error; errFind != nil {
		t.Fatalf("find site name: %v", errFind)
	}
	var name string
	if errDecode := json.Unmarshal(setting.Value, &name); errDecode != nil {
		t.Fatalf("decode site name: %v", errDecode)
	}
	return name
}

func TestFirstAdminIsSuperAdminWithHashedPassword(t *testing.T) {
	conn := dbtest.Open(t)

	if errCreate := CreateAdminUserWithConn(conn, "root", "correct-horse", "  Parties Inc "); errCreate != nil {
		t.Fatalf("CreateAdminUserWithConn: %v", errCreate)
	}

	var admin models.Admin
	if errFind := conn.Where("username = ?", "root").First(&admin).Error; errFind != nil {
		t.Fatalf("find admin: %v", errFind)
	}
	if !admin.IsSuperAdmin || !admin.Active {
		t.Fatalf("expected active super admin, got %+v", admin)
	}
	if admin.Password == "correct-horse" || !security.CheckPassword(admin.Password, "correct-horse") {
		t.Fatalf("expected bcrypt hash of the setup password")
	}
	if got := storedSiteName(t, conn); got != "Parties Inc" {
		t.Fatalf("expected trimmed site name, got %q", got)
	}
}

func TestFirstAdminBlankSiteNameFallsBack(t *testing.T) {
	conn := dbtest.Open(t)
	if errCreate := CreateAdminUserWithConn(conn, "root", "correct-horse", " "); errCreate != nil {
		t.Fatalf("CreateAdminUserWithConn: %v", errCreate)
	}
	if got := storedSiteName(t, conn); got != internalsettings.DefaultSiteName {
		t.Fatalf("expected default site name, got %q", got)
	}
	if errNil := CreateAdminUserWithConn(nil, "root", "correct-horse", ""); errNil == nil {
		t.Fatalf("expected error for nil connection")
	}
}
