package store

import (
	"context"
	"time"

	"propdesk/internal/llm"
)

// Property is a managed real-estate record.
type Property struct {
	ID                  string    `json:"id"`
	Name                string    `json:"name"`
	Address             string    `json:"address"`
	PropertyType        string    `json:"propertyType,omitempty"`
	IsSoldOnInstallment bool      `json:"isSoldOnInstallment"`
	IsRented            bool      `json:"isRented"`
	Plots               []string  `json:"plots"`
	CreatedAt           time.Time `json:"createdAt"`
}

// PropertyPatch is a partial update. Nil fields are left untouched.
type PropertyPatch struct {
	Name                *string
	Address             *string
	PropertyType        *string
	IsSoldOnInstallment *bool
	IsRented            *bool
}

// Empty reports whether the patch changes nothing.
func (p PropertyPatch) Empty() bool {
	return p.Name == nil && p.Address == nil && p.PropertyType == nil &&
		p.IsSoldOnInstallment == nil && p.IsRented == nil
}

// Task is a captured business task.
type Task struct {
	ID          string    `json:"id"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Store is the persistence layer for business entities and conversation
// history. Lookups that miss return nil, not an error.
type Store interface {
	ListProperties(ctx context.Context) ([]Property, error)
	GetPropertyByID(ctx context.Context, id string) (*Property, error)
	GetPropertyByName(ctx context.Context, name string) (*Property, error)
	CreateProperty(ctx context.Context, p Property) (*Property, error)
	UpdateProperty(ctx context.Context, id string, patch PropertyPatch) (*Property, error)

	CreateTask(ctx context.Context, description string) (*Task, error)

	SaveMessage(ctx context.Context, chatID string, msg llm.Message) error
	History(ctx context.Context, chatID string, limit int) ([]llm.Message, error)

	Close() error
}
