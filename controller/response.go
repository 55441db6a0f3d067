package controller

import (
	"dispatch-backend/models"
	"dispatch-backend/utils/logger"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// claimsKey is where the auth middleware stores *models.JWTClaims
const claimsKey = "jwt_claims"

// newValidator returns a validator with the "clock" tag registered. clock accepts HH:MM and 24:00.
func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("clock", func(fl validator.FieldLevel) bool {
		_, err := models.ParseClock(fl.Field().String())
		return err == nil
	})
	return v
}

func respond(c *gin.Context, status int, message string, data interface{}) {
	c.JSON(status, models.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

func respondFailure(c *gin.Context, status int, apiErr *models.APIError) {
	c.JSON(status, models.APIResponse{
		Success: false,
		Error:   apiErr,
	})
}

// respondError logs the failed operation and maps the error onto a status code and error code.
// Unclassified errors never leak their text to the client.
func respondError(c *gin.Context, log logger.Logger, operation, id string, err error) {
	status, apiErr := classify(err)
	fields := map[string]interface{}{
		"operation": operation,
		"id":        id,
		"code":      apiErr.Code,
	}
	if status >= http.StatusInternalServerError {
		log.WithFields(fields).Errorf("%s failed: %v", operation, err)
	} else {
		log.WithFields(fields).Warnf("%s rejected: %v", operation, err)
	}
	respondFailure(c, status, apiErr)
}

func classify(err error) (int, *models.APIError) {
	var (
		conflict   *models.ConflictError
		validation *models.ValidationError
	)
	switch {
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound, &models.APIError{Code: models.ErrorCodeNotFound, Message: err.Error()}
	case errors.As(err, &conflict):
		return http.StatusBadRequest, &models.APIError{
			Code:      models.ErrorCodeAssignmentConflict,
			Message:   err.Error(),
			Conflicts: conflict.Conflicts,
		}
	case errors.Is(err, models.ErrInvalidTransition):
		return http.StatusBadRequest, &models.APIError{Code: models.ErrorCodeInvalidTransition, Message: err.Error()}
	case errors.Is(err, models.ErrInvalidState):
		return http.StatusBadRequest, &models.APIError{Code: models.ErrorCodeInvalidState, Message: err.Error()}
	case errors.As(err, &validation):
		return http.StatusBadRequest, &models.APIError{
			Code:    models.ErrorCodeValidation,
			Message: validation.Message,
			Field:   validation.Field,
		}
	case errors.Is(err, models.ErrValidation):
		return http.StatusBadRequest, &models.APIError{Code: models.ErrorCodeValidation, Message: err.Error()}
	default:
		return http.StatusInternalServerError, &models.APIError{
			Code:    models.ErrorCodeInternal,
			Message: "An unexpected error occurred",
		}
	}
}

// bindJSON decodes and validates a request body, writing the 400 itself on failure
func bindJSON(c *gin.Context, log logger.Logger, v *validator.Validate, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		log.Warnf("Failed to bind JSON for %s: %v", c.FullPath(), err)
		respondFailure(c, http.StatusBadRequest, &models.APIError{
			Code:    models.ErrorCodeValidation,
			Message: "Invalid request body: " + err.Error(),
		})
		return false
	}
	if err := v.Struct(req); err != nil {
		field, message := formatValidationErrors(err)
		log.Warnf("Validation failed for %s: %s", c.FullPath(), message)
		respondFailure(c, http.StatusBadRequest, &models.APIError{
			Code:    models.ErrorCodeValidation,
			Message: message,
			Field:   field,
		})
		return false
	}
	return true
}

// formatValidationErrors returns the first failing field and a message covering all of them
func formatValidationErrors(err error) (string, string) {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return "", err.Error()
	}

	var messages []string
	for _, fieldError := range validationErrors {
		name := fieldError.Field()
		switch fieldError.Tag() {
		case "required":
			messages = append(messages, name+" is required")
		case "min":
			messages = append(messages, name+" must be at least "+fieldError.Param())
		case "max":
			messages = append(messages, name+" must be at most "+fieldError.Param())
		case "gt":
			messages = append(messages, name+" must be greater than "+fieldError.Param())
		case "gtfield":
			messages = append(messages, name+" must be after "+fieldError.Param())
		case "len":
			messages = append(messages, name+" must have length "+fieldError.Param())
		case "oneof":
			messages = append(messages, name+" must be one of: "+strings.ReplaceAll(fieldError.Param(), " ", ", "))
		case "datetime":
			messages = append(messages, name+" must match the format "+fieldError.Param())
		case "clock":
			messages = append(messages, name+" must be a time of day in HH:MM format")
		default:
			messages = append(messages, name+" is invalid")
		}
	}
	return validationErrors[0].Field(), strings.Join(messages, "; ")
}

// actor returns the authenticated user id, writing a 401 when the claims are missing
func actor(c *gin.Context, log logger.Logger) (string, bool) {
	value, exists := c.Get(claimsKey)
	claims, ok := value.(*models.JWTClaims)
	if !exists || !ok || claims.UserID == "" {
		log.Error("JWT claims not found in context")
		respondFailure(c, http.StatusUnauthorized, &models.APIError{
			Code:    models.ErrorCodeUnauthorized,
			Message: "Authentication required",
		})
		return "", false
	}
	return claims.UserID, true
}
