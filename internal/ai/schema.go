package ai

import (
	"sync"

	"github.com/invopop/jsonschema"
)

// schemaPlan mirrors planner.Plan without the diagnostic fields. Strict
// structured output requires every property to be required, so no omitempty.
type schemaPlan struct {
	PlannedTasks      []schemaTask `json:"plannedTasks" jsonschema_description:"The user's tasks, each assigned to a time slot"`
	Recommendations   []string     `json:"recommendations" jsonschema_description:"Two or three specific productivity tips"`
	EstimatedDuration string       `json:"estimatedDuration" jsonschema_description:"Total time estimate for all tasks, e.g. 3 hours"`
}

type schemaTask struct {
	Task     string `json:"task" jsonschema_description:"Exact wording of the user's task"`
	TimeSlot string `json:"timeSlot" jsonschema_description:"Start time, e.g. 2:30 PM"`
	Duration string `json:"duration" jsonschema_description:"Duration, e.g. 45 minutes"`
}

var (
	planSchemaOnce sync.Once
	planSchema     *jsonschema.Schema
)

// PlanSchema returns the JSON schema sent with structured-output requests.
func PlanSchema() *jsonschema.Schema {
	planSchemaOnce.Do(func() {
		r := jsonschema.Reflector{
			AllowAdditionalProperties: false,
			DoNotReference:            true,
		}
		planSchema = r.Reflect(&schemaPlan{})
	})
	return planSchema
}
