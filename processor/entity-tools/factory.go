package entitytools

import (
	"fmt"

	"github.com/c360studio/semstreams/component"
)

// RegistryInterface defines the minimal interface needed for registration
type RegistryInterface interface {
	RegisterWithConfig(component.RegistrationConfig) error
}

// Register registers the entity-tools processor component with the given registry
func Register(registry RegistryInterface) error {
	if registry == nil {
		return fmt.Errorf("registry cannot be nil")
	}
	return registry.RegisterWithConfig(component.RegistrationConfig{
		Name:        "entity-tools",
		Factory:     NewComponent,
		Schema:      entityToolsSchema,
		Type:        "processor",
		Protocol:    "tools",
		Domain:      "semantic",
		Description: "Taxonomy query and entity resolution tool executor",
		Version:     "0.1.0",
	})
}
