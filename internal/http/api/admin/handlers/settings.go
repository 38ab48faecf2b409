package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/eventhub-saas/eventhub/internal/http/response"
	"github.com/eventhub-saas/eventhub/internal/models"
	internalsettings "github.com/eventhub-saas/eventhub/internal/settings"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// SettingHandler manages admin CRUD for settings values.
type SettingHandler struct {
	db *gorm.DB // Database handle for settings.
}

// NewSettingHandler constructs a settings handler.
func NewSettingHandler(db *gorm.DB) *SettingHandler {
	return &SettingHandler{db: db}
}

// createSettingRequest captures the payload for creating a setting.
type createSettingRequest struct {
	Key   string          `json:"key"`   // Setting key.
	Value json.RawMessage `json:"value"` // JSON value payload.
}

var nonNegativeIntSettingKeys = map[string]struct{}{
	internalsettings.PublicRateLimitKey:      {},
	internalsettings.TenantRateLimitKey:      {},
	internalsettings.RateLimitRedisDBKey:     {},
	internalsettings.BulkEmailDelayMillisKey: {},
}

var errNonNegativeIntegerValue = errors.New("value must be a non-negative integer")
var errInvalidJSONValue = errors.New("value must be valid json")

// Create validates and inserts a setting, then refreshes the snapshot.
func (h *SettingHandler) Create(c *gin.Context) {
	var body createSettingRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		response.BindError(c, errBind)
		return
	}

	key := strings.TrimSpace(body.Key)
	if key == "" {
		response.Fail(c, http.StatusBadRequest, "key is required")
		return
	}
	if errValidate := validateSettingValue(key, body.Value); errValidate != nil {
		response.Fail(c, http.StatusBadRequest, errValidate.Error())
		return
	}

	var existing models.Setting
	if errFind := h.db.WithContext(c.Request.Context()).Where("key = ?", key).First(&existing).Error; errFind == nil {
		response.Fail(c, http.StatusConflict, "key already exists")
		return
	}

	setting := models.Setting{Key: key, Value: body.Value}
	if errCreate := h.db.WithContext(c.Request.Context()).Create(&setting).Error; errCreate != nil {
		response.Error(c, errCreate, "create setting failed")
		return
	}
	h.refresh(c)
	response.OK(c, http.StatusCreated, formatSetting(&setting))
}

// List returns all settings sorted by key.
func (h *SettingHandler) List(c *gin.Context) {
	var rows []models.Setting
	if errFind := h.db.WithContext(c.Request.Context()).Order("key ASC").Find(&rows).Error; errFind != nil {
		response.Error(c, errFind, "list settings failed")
		return
	}
	out := make([]gin.H, 0, len(rows))
	for i := range rows {
		out = append(out, formatSetting(&rows[i]))
	}
	response.OK(c, http.StatusOK, out)
}

// Get returns a setting by key.
func (h *SettingHandler) Get(c *gin.Context) {
	key := strings.TrimSpace(c.Param("key"))
	if key == "" {
		response.Fail(c, http.StatusBadRequest, "invalid key")
		return
	}
	var setting models.Setting
	if errFind := h.db.WithContext(c.Request.Context()).Where("key = ?", key).First(&setting).Error; errFind != nil {
		response.Error(c, errFind, "query setting failed")
		return
	}
	response.OK(c, http.StatusOK, formatSetting(&setting))
}

// updateSettingRequest captures the payload for updating a setting.
type updateSettingRequest struct {
	Value json.RawMessage `json:"value"` // New JSON value.
}

// Update updates a setting value and refreshes the snapshot.
func (h *SettingHandler) Update(c *gin.Context) {
	key := strings.TrimSpace(c.Param("key"))
	if key == "" {
		response.Fail(c, http.StatusBadRequest, "invalid key")
		return
	}
	var body updateSettingRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		response.BindError(c, errBind)
		return
	}
	if errValidate := validateSettingValue(key, body.Value); errValidate != nil {
		response.Fail(c, http.StatusBadRequest, errValidate.Error())
		return
	}

	res := h.db.WithContext(c.Request.Context()).Model(&models.Setting{}).Where("key = ?", key).
		Update("value", body.Value)
	if res.Error != nil {
		response.Error(c, res.Error, "update setting failed")
		return
	}
	if res.RowsAffected == 0 {
		response.Fail(c, http.StatusNotFound, "not found")
		return
	}
	h.refresh(c)
	response.OK(c, http.StatusOK, gin.H{"key": key, "value": body.Value})
}

// Delete removes a setting and refreshes the snapshot.
func (h *SettingHandler) Delete(c *gin.Context) {
	key := strings.TrimSpace(c.Param("key"))
	if key == "" {
		response.Fail(c, http.StatusBadRequest, "invalid key")
		return
	}
	res := h.db.WithContext(c.Request.Context()).Where("key = ?", key).Delete(&models.Setting{})
	if res.Error != nil {
		response.Error(c, res.Error, "delete setting failed")
		return
	}
	if res.RowsAffected == 0 {
		response.Fail(c, http.StatusNotFound, "not found")
		return
	}
	h.refresh(c)
	response.OK(c, http.StatusOK, gin.H{"key": key})
}

// refresh rebuilds the in-memory snapshot. A failure leaves the previous snapshot
// in place until the periodic refresh catches up.
func (h *SettingHandler) refresh(c *gin.Context) {
	if errRefresh := internalsettings.Refresh(c.Request.Context(), h.db); errRefresh != nil {
		log.WithError(errRefresh).Warn("refresh settings snapshot failed")
	}
}

func validateSettingValue(key string, value json.RawMessage) error {
	if len(bytes.TrimSpace(value)) == 0 || !json.Valid(value) {
		return errInvalidJSONValue
	}
	if _, ok := nonNegativeIntSettingKeys[key]; !ok {
		return nil
	}
	if _, ok := parseNonNegativeInt(value); !ok {
		return errNonNegativeIntegerValue
	}
	return nil
}

func parseNonNegativeInt(raw json.RawMessage) (int, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return 0, false
	}
	var parsedInt int
	if errUnmarshalInt := json.Unmarshal(raw, &parsedInt); errUnmarshalInt == nil {
		return parsedInt, parsedInt >= 0
	}
	var parsedString string
	if errUnmarshalString := json.Unmarshal(raw, &parsedString); errUnmarshalString == nil {
		parsed, errParse := strconv.Atoi(strings.TrimSpace(parsedString))
		if errParse != nil {
			return 0, false
		}
		return parsed, parsed >= 0
	}
	var parsedFloat float64
	if errUnmarshalFloat := json.Unmarshal(raw, &parsedFloat); errUnmarshalFloat == nil {
		if math.IsNaN(parsedFloat) || math.IsInf(parsedFloat, 0) {
			return 0, false
		}
		if parsedFloat < 0 || parsedFloat != math.Trunc(parsedFloat) {
			return 0, false
		}
		return int(parsedFloat), true
	}
	return 0, false
}

func formatSetting(s *models.Setting) gin.H {
	return gin.H{
		"key":        s.Key,
		"value":      json.RawMessage(s.Value),
		"updated_at": s.UpdatedAt,
	}
}
