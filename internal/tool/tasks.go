package tool

import (
	"context"
	"fmt"
	"log"

	"propdesk/internal/schema"
	"propdesk/internal/store"
)

// AddBusinessTask captures a business task and acknowledges it, quoting the
// description verbatim in the confirmation.
func AddBusinessTask(st store.Store) Tool {
	return Tool{
		Name:        "addBusinessTask",
		Description: "Record a business task or reminder, e.g. a call to make or a visit to schedule.",
		Input: schema.Schema{Fields: map[string]schema.Field{
			"taskDescription": {
				Kind:        schema.String,
				Required:    true,
				MinLength:   1,
				Description: "What needs to be done, in the user's words",
			},
		}},
		Output: schema.Schema{Fields: map[string]schema.Field{
			"taskId":  {Kind: schema.String, Required: true},
			"message": {Kind: schema.String, Required: true, MinLength: 1},
		}},
		Handler: func(ctx context.Context, args map[string]any) (map[string]any, error) {
			description, _ := args["taskDescription"].(string)
			log.Printf("[tool] business task captured: %s", description)

			task, err := st.CreateTask(ctx, description)
			if err != nil {
				return nil, fmt.Errorf("create task: %w", err)
			}

			return map[string]any{
				"taskId":  task.ID,
				"message": fmt.Sprintf("Task recorded: %q", task.Description),
			}, nil
		},
	}
}

// Defaults returns the standard tool set wired to the given store.
func Defaults(st store.Store) []Tool {
	return []Tool{
		ListProperties(st),
		AddProperty(st),
		GetPropertyDetails(st),
		UpdatePropertyDetails(st),
		AddBusinessTask(st),
	}
}
