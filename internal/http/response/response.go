package response

import (
	"errors"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/eventhub-saas/eventhub/internal/domain"
	"github.com/eventhub-saas/eventhub/internal/entitlement"
	internalsettings "github.com/eventhub-saas/eventhub/internal/settings"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Envelope is the uniform result returned by every API operation.
type Envelope struct {
	Success    bool              `json:"success"`
	Data       any               `json:"data,omitempty"`
	Error      string            `json:"error,omitempty"`
	Fields     map[string]string `json:"fields,omitempty"`
	UpgradeURL string            `json:"upgrade_url,omitempty"`
	Meta       *Meta             `json:"meta,omitempty"`
}

// Meta carries pagination details.
type Meta struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
}

// OK writes a success envelope.
func OK(c *gin.Context, status int, data any) {
	c.JSON(status, Envelope{Success: true, Data: data})
}

// Paged writes a success envelope with pagination metadata.
func Paged(c *gin.Context, data any, meta Meta) {
	c.JSON(http.StatusOK, Envelope{Success: true, Data: data, Meta: &meta})
}

// Fail writes an error envelope.
func Fail(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, Envelope{Success: false, Error: msg})
}

// BindError reports a request decoding or validation failure field by field.
func BindError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[jsonFieldName(fe)] = describe(fe)
		}
		c.AbortWithStatusJSON(http.StatusBadRequest, Envelope{Success: false, Error: "validation failed", Fields: fields})
		return
	}
	Fail(c, http.StatusBadRequest, "invalid json")
}

// Error maps a domain error to a status code and writes it.
// Unrecognized errors are logged and reported with fallback.
func Error(c *gin.Context, err error, fallback string) {
	if denial, ok := entitlement.IsDenial(err); ok {
		c.AbortWithStatusJSON(http.StatusForbidden, Envelope{
			Success:    false,
			Error:      denial.Message,
			UpgradeURL: internalsettings.String(internalsettings.UpgradeURLKey, internalsettings.DefaultUpgradeURL),
		})
		return
	}
	var fields domain.FieldErrors
	if errors.As(err, &fields) {
		c.AbortWithStatusJSON(http.StatusBadRequest, Envelope{Success: false, Error: "validation failed", Fields: fields})
		return
	}
	switch {
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, gorm.ErrRecordNotFound):
		Fail(c, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrForbidden):
		Fail(c, http.StatusForbidden, domain.Message(err))
	case errors.Is(err, domain.ErrConflict):
		Fail(c, http.StatusConflict, domain.Message(err))
	case errors.Is(err, domain.ErrValidation):
		Fail(c, http.StatusBadRequest, strings.TrimPrefix(err.Error(), domain.ErrValidation.Error()+": "))
	default:
		log.WithError(err).WithField("path", c.FullPath()).Error(fallback)
		Fail(c, http.StatusInternalServerError, fallback+", please try again")
	}
}

func jsonFieldName(fe validator.FieldError) string {
	name := fe.Field()
	if name == "" {
		return strings.ToLower(fe.StructField())
	}
	return name
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "oneof":
		return "must be one of " + fe.Param()
	case "gte":
		return "must be greater than or equal to " + fe.Param()
	case "lte":
		return "must be less than or equal to " + fe.Param()
	default:
		return "is invalid"
	}
}

var registerOnce sync.Once

// RegisterJSONTagNames makes validation errors report JSON field names.
func RegisterJSONTagNames() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			switch name {
			case "-":
				return ""
			case "":
				return f.Name
			default:
				return name
			}
		})
	})
}
