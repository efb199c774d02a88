package handler

import (
	"errors"
	"net/http"
	"reflect"
	"strconv"

	"pvflow/internal/apierror"
	"pvflow/internal/loader"
	"pvflow/internal/repository"
	"pvflow/internal/service"
	"pvflow/internal/store"
	"pvflow/internal/workflow"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var validate = validator.New()

func init() {
	// lets min/gt/required work on decimal fields
	validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if v, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := v.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
}

// bindAndValidate binds the JSON body and runs go-playground/validator tags.
// On false the response is already written and the caller must return.
func bindAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("JSON invalido: "+err.Error()))
		return false
	}
	if err := validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
			return false
		}
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Tag()
		}
		c.JSON(http.StatusUnprocessableEntity, apierror.NewValidation(fields))
		return false
	}
	return true
}

func bindQuery(c *gin.Context, q interface{}) bool {
	if err := c.ShouldBindQuery(q); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
		return false
	}
	return true
}

// respondError maps domain errors to status codes. Anything unknown is
// handed to middleware.ErrorHandler as a 500.
func respondError(c *gin.Context, err error) {
	var verr *workflow.ValidationError
	if errors.As(err, &verr) {
		c.JSON(http.StatusUnprocessableEntity, apierror.NewRule(verr.Error(), verr.Violations))
		return
	}

	switch {
	case errors.Is(err, workflow.ErrRecordLocked),
		errors.Is(err, workflow.ErrReadOnlyUser),
		errors.Is(err, workflow.ErrViewNotAllowed),
		errors.Is(err, workflow.ErrNotPrivileged),
		errors.Is(err, workflow.ErrWrongView):
		c.JSON(http.StatusForbidden, apierror.New(err.Error()))

	case errors.Is(err, workflow.ErrReasonRequired),
		errors.Is(err, workflow.ErrConfirmationMismatch),
		errors.Is(err, workflow.ErrStageNotReached),
		errors.Is(err, workflow.ErrInvalidStage),
		errors.Is(err, service.ErrInvalidDate),
		errors.Is(err, service.ErrInvalidSLATarget),
		errors.Is(err, service.ErrEmptyCSV),
		errors.Is(err, loader.ErrMalformed):
		c.JSON(http.StatusBadRequest, apierror.New(err.Error()))

	case errors.Is(err, store.ErrRecordNotFound),
		errors.Is(err, repository.ErrNotFound),
		errors.Is(err, workflow.ErrItemNotFound),
		errors.Is(err, service.ErrHolidayNotFound),
		errors.Is(err, service.ErrUserNotFound),
		errors.Is(err, service.ErrNoSLA):
		c.JSON(http.StatusNotFound, apierror.New(err.Error()))

	case errors.Is(err, store.ErrVersionConflict):
		c.JSON(http.StatusConflict, apierror.New(err.Error()))

	case errors.Is(err, store.ErrRecordBusy):
		c.Header("Retry-After", "1")
		c.JSON(http.StatusLocked, apierror.New(err.Error()))

	case errors.Is(err, store.ErrPersistence):
		_ = c.Error(err)
		c.JSON(http.StatusServiceUnavailable, apierror.New(store.ErrPersistence.Error()))

	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, apierror.New("Erro interno do servidor"))
	}
}

func queryBool(c *gin.Context, key string) bool {
	b, _ := strconv.ParseBool(c.Query(key))
	return b
}
