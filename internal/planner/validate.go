package planner

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
)

// RequiredFields are the fields every planning request must carry.
var RequiredFields = []string{"incompleteTasks", "currentDate", "currentTime"}

// ValidationError is returned when a planning request is malformed. It maps
// to a client error at the HTTP layer.
type ValidationError struct {
	Message       string
	MissingFields []string
}

func (e *ValidationError) Error() string {
	if len(e.MissingFields) > 0 {
		return fmt.Sprintf("%s: %v", e.Message, e.MissingFields)
	}
	return e.Message
}

// Details returns the payload for the error envelope, or nil.
func (e *ValidationError) Details() map[string]any {
	if len(e.MissingFields) == 0 {
		return nil
	}
	return map[string]any{"missingFields": e.MissingFields}
}

// ValidateRequired returns the subset of required that is absent from fields
// or holds an empty value. null, "", false, 0 and [] all count as empty.
// The result preserves the order of required.
func ValidateRequired(fields map[string]json.RawMessage, required []string) []string {
	missing := []string{}
	for _, name := range required {
		raw, ok := fields[name]
		if !ok || isEmptyValue(raw) {
			missing = append(missing, name)
		}
	}
	return missing
}

func isEmptyValue(raw json.RawMessage) bool {
	v := bytes.TrimSpace(raw)
	switch string(v) {
	case "", "null", `""`, "false", "0":
		return true
	}
	return isEmptyArray(v)
}

func isEmptyArray(raw json.RawMessage) bool {
	v := bytes.TrimSpace(raw)
	if len(v) == 0 || v[0] != '[' {
		return false
	}
	var items []json.RawMessage
	if err := json.Unmarshal(v, &items); err != nil {
		return false
	}
	return len(items) == 0
}

// DecodeRequest parses and validates a planning request body. With
// allowEmptyTasks set, an empty incompleteTasks array is accepted so the
// no-tasks prompt can be requested.
func DecodeRequest(body []byte, allowEmptyTasks bool) (*Request, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, &ValidationError{Message: "Request body must be a JSON object"}
	}
	if fields == nil {
		fields = map[string]json.RawMessage{}
	}

	missing := ValidateRequired(fields, RequiredFields)
	if allowEmptyTasks && isEmptyArray(fields["incompleteTasks"]) {
		missing = slices.DeleteFunc(missing, func(f string) bool { return f == "incompleteTasks" })
	}
	if len(missing) > 0 {
		return nil, &ValidationError{Message: "Missing required fields", MissingFields: missing}
	}

	tasksRaw := bytes.TrimSpace(fields["incompleteTasks"])
	if len(tasksRaw) == 0 || tasksRaw[0] != '[' {
		return nil, &ValidationError{Message: "incompleteTasks must be an array"}
	}

	var req Request
	if err := json.Unmarshal(tasksRaw, &req.IncompleteTasks); err != nil {
		return nil, &ValidationError{Message: "incompleteTasks must contain only strings"}
	}
	if req.IncompleteTasks == nil {
		req.IncompleteTasks = []string{}
	}

	stringFields := []struct {
		name     string
		dst      *string
		optional bool
	}{
		{"currentDate", &req.CurrentDate, false},
		{"currentTime", &req.CurrentTime, false},
		{"userContext", &req.UserContext, true},
		{"customSystemPrompt", &req.CustomSystemPrompt, true},
	}
	for _, f := range stringFields {
		raw, ok := fields[f.name]
		if !ok || (f.optional && string(bytes.TrimSpace(raw)) == "null") {
			continue
		}
		if err := json.Unmarshal(raw, f.dst); err != nil {
			return nil, &ValidationError{Message: f.name + " must be a string"}
		}
	}

	return &req, nil
}
