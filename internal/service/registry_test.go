package service

import (
	"context"
	"testing"

	"github.com/GriffinCanCode/memstore/internal/types"
)

type mockProvider struct {
	id string
}

func (m *mockProvider) Definition() types.Service {
	return types.Service{
		ID:          m.id,
		Name:        "Mock Service",
		Description: "A mock service for testing",
		Category:    types.CategoryMemory,
		Tools: []types.Tool{
			{ID: m.id + ".test", Name: "Test Tool", Returns: "string"},
		},
	}
}

func (m *mockProvider) Execute(ctx context.Context, toolID string, params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	return &types.Result{
		Success: true,
		Data:    map[string]interface{}{"tool": toolID},
	}, nil
}

func TestRegister(t *testing.T) {
	r := NewRegistry()

	if err := r.Register(&mockProvider{id: "memory"}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	if _, ok := r.Get("memory"); !ok {
		t.Error("Service should be registered")
	}
}

func TestRegisterRejectsEmptyID(t *testing.T) {
	r := NewRegistry()

	if err := r.Register(&mockProvider{id: ""}); err == nil {
		t.Error("Register should reject an empty service ID")
	}
}

func TestListSorted(t *testing.T) {
	r := NewRegistry()
	r.Register(&mockProvider{id: "zeta"})
	r.Register(&mockProvider{id: "alpha"})

	services := r.List()
	if len(services) != 2 {
		t.Fatalf("Expected 2 services, got %d", len(services))
	}
	if services[0].ID != "alpha" || services[1].ID != "zeta" {
		t.Errorf("Services should be sorted by ID: %v", services)
	}
}

func TestExecute(t *testing.T) {
	r := NewRegistry()
	r.Register(&mockProvider{id: "memory"})

	result, err := r.Execute(context.Background(), "memory.test", map[string]interface{}{}, nil)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !result.Success {
		t.Error("Expected successful execution")
	}
	if result.Data["tool"] != "memory.test" {
		t.Errorf("Provider should receive the full tool ID, got %v", result.Data["tool"])
	}
}

func TestExecuteUnknownService(t *testing.T) {
	r := NewRegistry()

	if _, err := r.Execute(context.Background(), "ghost.test", nil, nil); err == nil {
		t.Error("Execute should fail for an unknown service")
	}
}

func TestExecuteMalformedToolID(t *testing.T) {
	r := NewRegistry()
	r.Register(&mockProvider{id: "memory"})

	if _, err := r.Execute(context.Background(), "noseparator", nil, nil); err == nil {
		t.Error("Execute should fail for a malformed tool ID")
	}
}
