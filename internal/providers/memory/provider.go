package memory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/GriffinCanCode/memstore/internal/diagnostics"
	"github.com/GriffinCanCode/memstore/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/memstore/internal/lock"
	"github.com/GriffinCanCode/memstore/internal/shared/paths"
	"github.com/GriffinCanCode/memstore/internal/types"
)

// Provider implements the memory file store operations.
type Provider struct {
	root    string
	coord   *lock.Coordinator
	sink    *diagnostics.Sink
	metrics *monitoring.Metrics
}

// NewProvider creates a memory provider rooted at the given physical
// directory. The sink and metrics are optional.
func NewProvider(root string, coord *lock.Coordinator, sink *diagnostics.Sink, metrics *monitoring.Metrics) *Provider {
	return &Provider{
		root:    root,
		coord:   coord,
		sink:    sink,
		metrics: metrics,
	}
}

// Definition returns service metadata
func (p *Provider) Definition() types.Service {
	return types.Service{
		ID:          "memory",
		Name:        "Memory Service",
		Description: "Persistent file-based memory under the /memories namespace",
		Category:    types.CategoryMemory,
		Capabilities: []string{
			"view",
			"create",
			"str_replace",
			"insert",
			"delete",
			"rename",
		},
		Tools: []types.Tool{
			{
				ID:          "memory.view",
				Name:        "View",
				Description: "List a directory or show file content with line numbers",
				Parameters: []types.Parameter{
					{Name: "path", Type: "string", Description: "Virtual path under /memories", Required: true},
					{Name: "start_line", Type: "number", Description: "First line to show (1-based)", Required: false},
					{Name: "end_line", Type: "number", Description: "Last line to show, -1 for end of file", Required: false},
				},
				Returns: "string",
			},
			{
				ID:          "memory.create",
				Name:        "Create File",
				Description: "Create or overwrite a file, creating parent directories as needed",
				Parameters: []types.Parameter{
					{Name: "path", Type: "string", Description: "Virtual path under /memories", Required: true},
					{Name: "file_text", Type: "string", Description: "File content", Required: true},
				},
				Returns: "string",
			},
			{
				ID:          "memory.str_replace",
				Name:        "Replace Text",
				Description: "Replace a string that occurs exactly once in a file",
				Parameters: []types.Parameter{
					{Name: "path", Type: "string", Description: "Virtual path under /memories", Required: true},
					{Name: "old_str", Type: "string", Description: "Text to replace (must be unique)", Required: true},
					{Name: "new_str", Type: "string", Description: "Replacement text", Required: true},
				},
				Returns: "string",
			},
			{
				ID:          "memory.insert",
				Name:        "Insert Line",
				Description: "Insert text as a new line at a 0-based position",
				Parameters: []types.Parameter{
					{Name: "path", Type: "string", Description: "Virtual path under /memories", Required: true},
					{Name: "insert_line", Type: "number", Description: "0-based insertion position", Required: true},
					{Name: "insert_text", Type: "string", Description: "Text to insert", Required: true},
				},
				Returns: "string",
			},
			{
				ID:          "memory.delete",
				Name:        "Delete",
				Description: "Delete a file or a directory with all its contents",
				Parameters: []types.Parameter{
					{Name: "path", Type: "string", Description: "Virtual path under /memories", Required: true},
				},
				Returns: "string",
			},
			{
				ID:          "memory.rename",
				Name:        "Rename",
				Description: "Move a file or directory to a new virtual path",
				Parameters: []types.Parameter{
					{Name: "old_path", Type: "string", Description: "Current virtual path", Required: true},
					{Name: "new_path", Type: "string", Description: "New virtual path", Required: true},
				},
				Returns: "string",
			},
		},
	}
}

// Execute runs a memory operation
func (p *Provider) Execute(ctx context.Context, toolID string, params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	start := time.Now()

	message, err := p.dispatch(ctx, toolID, params)
	if err != nil {
		err = p.virtualizeLockErr(err)
	}
	p.record(toolID, pathParamForRecord(params), err, time.Since(start))

	if err != nil {
		return failure(err.Error())
	}
	return success(map[string]interface{}{"message": message})
}

func (p *Provider) dispatch(ctx context.Context, toolID string, params map[string]interface{}) (string, error) {
	switch toolID {
	case "memory.view":
		return p.view(ctx, params)
	case "memory.create":
		return p.create(ctx, params)
	case "memory.str_replace":
		return p.strReplace(ctx, params)
	case "memory.insert":
		return p.insert(ctx, params)
	case "memory.delete":
		return p.delete(ctx, params)
	case "memory.rename":
		return p.rename(ctx, params)
	default:
		return "", fmt.Errorf("unknown tool: %s", toolID)
	}
}

// record pushes the outcome to diagnostics and metrics; both are
// best-effort and never affect the operation result.
func (p *Provider) record(toolID, path string, err error, duration time.Duration) {
	if p.sink != nil {
		ev := diagnostics.Event{
			Operation: toolID,
			Path:      path,
			Success:   err == nil,
			Duration:  duration,
		}
		if err != nil {
			ev.Error = err.Error()
		}
		p.sink.Record(ev)
	}

	if p.metrics != nil {
		p.metrics.RecordOperation(toolID, err == nil, duration)
		var conflict *lock.ConflictError
		var timeout *lock.LockTimeoutError
		if errors.As(err, &conflict) {
			p.metrics.ConflictsTotal.Inc()
		}
		if errors.As(err, &timeout) {
			p.metrics.LockTimeoutsTotal.Inc()
		}
		if p.sink != nil {
			p.metrics.DiagnosticsDropped.Set(float64(p.sink.Dropped()))
		}
	}
}

// virtualizeLockErr rewrites coordination-layer paths into namespace paths.
// Lock errors carry physical paths; callers only ever see /memories names.
func (p *Provider) virtualizeLockErr(err error) error {
	var conflict *lock.ConflictError
	if errors.As(err, &conflict) {
		if virtual, verr := paths.ToVirtual(conflict.Path, p.root); verr == nil {
			return &lock.ConflictError{Path: virtual}
		}
		return err
	}

	var timeout *lock.LockTimeoutError
	if errors.As(err, &timeout) {
		if virtual, verr := paths.ToVirtual(timeout.Target, p.root); verr == nil {
			return &lock.LockTimeoutError{Target: virtual, Waited: timeout.Waited}
		}
	}
	return err
}

// resolve maps a virtual path parameter onto the storage root.
func (p *Provider) resolve(params map[string]interface{}, key string) (physical, virtual string, err error) {
	virtual, ok := params[key].(string)
	if !ok || virtual == "" {
		return "", "", fmt.Errorf("%s parameter required", key)
	}
	physical, err = paths.Resolve(virtual, p.root)
	if err != nil {
		return "", "", err
	}
	return physical, virtual, nil
}

func stringParam(params map[string]interface{}, key string) (string, error) {
	value, ok := params[key].(string)
	if !ok {
		return "", fmt.Errorf("%s parameter required", key)
	}
	return value, nil
}

// intParam accepts both float64 (JSON numbers) and int.
func intParam(params map[string]interface{}, key string) (int, bool) {
	switch v := params[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	default:
		return 0, false
	}
}

func pathParamForRecord(params map[string]interface{}) string {
	if path, ok := params["path"].(string); ok {
		return path
	}
	if path, ok := params["old_path"].(string); ok {
		return path
	}
	return ""
}

func success(data map[string]interface{}) (*types.Result, error) {
	return &types.Result{Success: true, Data: data}, nil
}

func failure(message string) (*types.Result, error) {
	return &types.Result{Success: false, Error: &message}, nil
}
