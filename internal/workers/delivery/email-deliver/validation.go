// internal/workers/delivery/email-deliver/validation.go
package emaildeliver

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

var jobSchema = map[string]interface{}{
	"type":     "object",
	"required": []string{"notification_id", "user_id", "template_code"},
	"properties": map[string]interface{}{
		"notification_id": map[string]interface{}{
			"type":      "string",
			"minLength": 1,
		},
		"user_id": map[string]interface{}{
			"type":      "string",
			"minLength": 1,
		},
		"template_code": map[string]interface{}{
			"type":      "string",
			"minLength": 1,
		},
		"variables": map[string]interface{}{
			"type": "object",
			"additionalProperties": map[string]interface{}{
				"type": "string",
			},
		},
	},
}

func validateJobPayload(raw string) error {
	schemaLoader := gojsonschema.NewGoLoader(jobSchema)
	documentLoader := gojsonschema.NewStringLoader(raw)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("schema validation: %w", err)
	}

	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			msgs = append(msgs, desc.String())
		}
		return fmt.Errorf("invalid job payload: %s", strings.Join(msgs, "; "))
	}

	return nil
}
