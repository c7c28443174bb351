package adapter

import (
	"context"
	"fmt"

	"github.com/zen-systems/chainflow/pkg/catalog"
)

// Mux dispatches calls to provider assistants by looking the model up
// in a catalog.
type Mux struct {
	catalog    *catalog.Catalog
	byProvider map[string]Assistant
}

// NewMux creates a dispatching assistant over the given providers.
func NewMux(cat *catalog.Catalog, providers map[string]Assistant) *Mux {
	return &Mux{catalog: cat, byProvider: providers}
}

// Name returns the assistant identifier.
func (m *Mux) Name() string {
	return "mux"
}

// Models returns every catalog model whose provider is available.
func (m *Mux) Models() []string {
	var out []string
	for _, model := range m.catalog.Models() {
		if _, ok := m.byProvider[model.Provider]; ok {
			out = append(out, model.ID)
		}
	}
	return out
}

// Providers returns the configured provider names.
func (m *Mux) Providers() []string {
	out := make([]string, 0, len(m.byProvider))
	for name := range m.byProvider {
		out = append(out, name)
	}
	return out
}

// GetResponse routes the call to the provider owning the model. When
// the provider has no assistant, a "mock" provider serves the call if
// one is registered.
func (m *Mux) GetResponse(ctx context.Context, message string, history []Message, model string) (*Response, error) {
	entry, ok := m.catalog.Get(model)
	if !ok {
		return nil, fmt.Errorf("model %q not in catalog", model)
	}
	assistant, ok := m.byProvider[entry.Provider]
	if !ok {
		if mock, hasMock := m.byProvider["mock"]; hasMock {
			return mock.GetResponse(ctx, message, history, model)
		}
		return nil, fmt.Errorf("no assistant configured for provider %q", entry.Provider)
	}
	return assistant.GetResponse(ctx, message, history, model)
}
