// Package validation checks inbound request documents against JSON schemas
// before they enter the pipeline.
package validation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// ChatRequestSchema describes the body accepted by the chat endpoint.
var ChatRequestSchema = map[string]interface{}{
	"type": "object",
	"properties": map[string]interface{}{
		"message": map[string]interface{}{
			"type":      "string",
			"minLength": 0,
			"maxLength": 4000,
		},
		"user_id": map[string]interface{}{
			"type":    "integer",
			"minimum": 1,
		},
		"user_role": map[string]interface{}{
			"type":      "string",
			"maxLength": 32,
		},
		"conversation_id": map[string]interface{}{
			"type":      "string",
			"maxLength": 64,
		},
		"context": map[string]interface{}{
			"type": "object",
		},
	},
	"required":             []interface{}{"message"},
	"additionalProperties": true,
}

// ValidateDocument validates a document against a schema map with detailed errors.
func ValidateDocument(document map[string]interface{}, schema map[string]interface{}) *ValidationResult {
	schemaLoader := gojsonschema.NewGoLoader(schema)
	documentLoader := gojsonschema.NewGoLoader(document)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return &ValidationResult{
			Valid: false,
			Errors: []ValidationError{{
				Field:   "(document)",
				Message: err.Error(),
				Code:    "SCHEMA_ERROR",
			}},
		}
	}

	if result.Valid() {
		return &ValidationResult{Valid: true}
	}

	errors := make([]ValidationError, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		errors = append(errors, ValidationError{
			Field:   desc.Field(),
			Message: desc.Description(),
			Code:    strings.ToUpper(desc.Type()),
		})
	}

	return &ValidationResult{Valid: false, Errors: errors}
}

// ValidateChatRequest validates a chat request body.
func ValidateChatRequest(document map[string]interface{}) *ValidationResult {
	return ValidateDocument(document, ChatRequestSchema)
}

// GetErrorMessages returns a simple list of error messages
func (vr *ValidationResult) GetErrorMessages() []string {
	messages := make([]string, len(vr.Errors))
	for i, err := range vr.Errors {
		messages[i] = fmt.Sprintf("%s: %s", err.Field, err.Message)
	}
	return messages
}

// HasErrors checks if validation has errors for specific field
func (vr *ValidationResult) HasErrors(field string) bool {
	for _, err := range vr.Errors {
		if err.Field == field {
			return true
		}
	}
	return false
}

// ValidateEmail validates email format
func ValidateEmail(email string) bool {
	emailPattern := regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	return emailPattern.MatchString(email)
}

// ValidatePhone validates basic phone number format
func ValidatePhone(phone string) bool {
	phonePattern := regexp.MustCompile(`^\+?[\d\s\-\(\)]{10,}$`)
	return phonePattern.MatchString(phone)
}
