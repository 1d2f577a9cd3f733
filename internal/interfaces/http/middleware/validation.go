package middleware

import (
	"errors"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/nivaasi/backend/internal/domain/finance"
	"github.com/nivaasi/backend/internal/domain/tenant"
	"github.com/nivaasi/backend/internal/interfaces/http/dto"
	"github.com/shopspring/decimal"
)

var setupOnce sync.Once

// SetupValidator configures gin's validator engine once per process:
// JSON field names in errors, decimal.Decimal compared as a number, and the
// enum tags paymentmode, paymentstatus, txtype, txstatus, txmode and gender.
func SetupValidator() {
	setupOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				name = strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
			}
			return name
		})
		v.RegisterCustomTypeFunc(func(field reflect.Value) any {
			if d, ok := field.Interface().(decimal.Decimal); ok {
				f, _ := d.Float64()
				return f
			}
			return nil
		}, decimal.Decimal{})

		enum := func(valid func(string) bool) validator.Func {
			return func(fl validator.FieldLevel) bool { return valid(fl.Field().String()) }
		}
		_ = v.RegisterValidation("paymentmode", enum(func(s string) bool { return tenant.PaymentMode(s).IsValid() }))
		_ = v.RegisterValidation("paymentstatus", enum(func(s string) bool { return tenant.PaymentStatus(s).IsValid() }))
		_ = v.RegisterValidation("txtype", enum(func(s string) bool { return finance.TransactionType(s).IsValid() }))
		_ = v.RegisterValidation("txstatus", enum(func(s string) bool { return finance.TransactionStatus(s).IsValid() }))
		_ = v.RegisterValidation("txmode", enum(func(s string) bool { return finance.TransactionMode(s).IsValid() }))
		_ = v.RegisterValidation("gender", enum(func(s string) bool {
			switch tenant.Gender(s) {
			case tenant.GenderMale, tenant.GenderFemale, tenant.GenderOther:
				return true
			}
			return false
		}))
	})
}

// FormatValidationErrors turns binding errors into the validation envelope
func FormatValidationErrors(err error, requestID string) dto.Response {
	var details []dto.ValidationDetail

	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		for _, e := range validationErrors {
			details = append(details, dto.ValidationDetail{
				Field:   e.Field(),
				Message: getValidationMessage(e),
			})
		}
	}

	return dto.NewValidationErrorResponse("Request validation failed", requestID, details)
}

// HandleValidationError answers 400. Body decoding failures become INVALID_JSON,
// bodies cut off by BodyLimit become 413.
func HandleValidationError(c *gin.Context, err error) {
	requestID := GetRequestID(c)

	var maxBytes *http.MaxBytesError
	if errors.As(err, &maxBytes) {
		c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, dto.NewErrorResponseWithRequestID(
			dto.ErrCodeRequestTooLarge, "Request body exceeds maximum allowed size", requestID))
		return
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		c.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponseWithRequestID(
			dto.ErrCodeInvalidJSON, "Malformed request: "+err.Error(), requestID))
		return
	}
	c.AbortWithStatusJSON(http.StatusBadRequest, FormatValidationErrors(err, requestID))
}

func getValidationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "This field is required"
	case "email":
		return "Invalid email format"
	case "min":
		if e.Kind() == reflect.String {
			return "Must be at least " + e.Param() + " characters"
		}
		return "Must be at least " + e.Param()
	case "max":
		if e.Kind() == reflect.String {
			return "Must be at most " + e.Param() + " characters"
		}
		return "Must be at most " + e.Param()
	case "uuid":
		return "Invalid UUID format"
	case "oneof":
		return "Must be one of: " + e.Param()
	case "gte":
		return "Must be greater than or equal to " + e.Param()
	case "gt":
		return "Must be greater than " + e.Param()
	case "url":
		return "Invalid URL format"
	case "datetime":
		return "Must be a date formatted as " + e.Param()
	case "e164", "numeric":
		return "Must be a phone number"
	case "paymentmode":
		return "Must be one of: Cash, UPI, Bank Transfer, Card"
	case "txmode":
		return "Must be one of: Cash, UPI, Bank Transfer, Card, N/A"
	case "paymentstatus", "txstatus":
		return "Must be one of: Collected, Pending"
	case "txtype":
		return "Must be one of: Rent, Deposit, Expense"
	case "gender":
		return "Must be one of: Male, Female, Other"
	default:
		return "Invalid value"
	}
}
