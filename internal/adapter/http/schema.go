package adapthttp

import (
	"encoding/json"
	"errors"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"mindtrack/internal/domain"
)

const checkInSchemaURL = "schema://checkin.json"

const checkInSchemaDoc = `{
	"type": "object",
	"properties": {
		"date": {"type": "string", "pattern": "^[0-9]{4}-[0-9]{2}-[0-9]{2}$"},
		"mood": {"$ref": "#/$defs/rating"},
		"stressManagement": {"$ref": "#/$defs/rating"},
		"energy": {"$ref": "#/$defs/rating"},
		"motivation": {"$ref": "#/$defs/rating"},
		"confidence": {"$ref": "#/$defs/rating"},
		"focus": {"$ref": "#/$defs/rating"},
		"recovery": {"$ref": "#/$defs/rating"},
		"sleepQuality": {"$ref": "#/$defs/rating"},
		"sleepHours": {"type": ["number", "null"], "minimum": 0, "maximum": 24},
		"note": {"type": "string"},
		"trainingLoad": {"enum": ["none", "light", "moderate", "hard"]},
		"preCompetition": {"type": "boolean"}
	},
	"required": ["mood", "stressManagement", "energy", "motivation", "confidence", "focus", "recovery", "sleepQuality"],
	"additionalProperties": false,
	"$defs": {
		"rating": {"type": "integer", "minimum": 1, "maximum": 10}
	}
}`

var (
	checkInSchemaOnce sync.Once
	checkInSchema     *jsonschema.Schema
	checkInSchemaErr  error
)

func compiledCheckInSchema() (*jsonschema.Schema, error) {
	checkInSchemaOnce.Do(func() {
		var doc any
		if err := json.Unmarshal([]byte(checkInSchemaDoc), &doc); err != nil {
			checkInSchemaErr = err
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource(checkInSchemaURL, doc); err != nil {
			checkInSchemaErr = err
			return
		}
		checkInSchema, checkInSchemaErr = c.Compile(checkInSchemaURL)
	})
	return checkInSchema, checkInSchemaErr
}

// validateCheckInPayload checks the raw request body against the check-in
// schema and reports the first failing field as a validation error.
func validateCheckInPayload(raw []byte) error {
	sch, err := compiledCheckInSchema()
	if err != nil {
		return err
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return domain.Invalid("body", "invalid json: %v", err)
	}
	err = sch.Validate(doc)
	if err == nil {
		return nil
	}
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return err
	}
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	field := strings.Join(ve.InstanceLocation, ".")
	if field == "" {
		field = "body"
	}
	return domain.Invalid(field, "does not match the check-in schema")
}
