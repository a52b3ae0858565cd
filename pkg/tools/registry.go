package tools

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/scholarag/scholarag/pkg/observability"
	"github.com/scholarag/scholarag/pkg/registry"
)

// ToolRegistry holds the tools available to the agent.
type ToolRegistry struct {
	*registry.BaseRegistry[Tool]
}

func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{
		BaseRegistry: registry.NewBaseRegistry[Tool](),
	}
}

func (r *ToolRegistry) RegisterTool(tool Tool) error {
	return r.Register(tool.GetInfo().Name, tool)
}

// Infos returns tool metadata in stable name order for router prompting.
func (r *ToolRegistry) Infos() []ToolInfo {
	names := r.Names()
	infos := make([]ToolInfo, 0, len(names))
	for _, name := range names {
		if tool, ok := r.Get(name); ok {
			infos = append(infos, tool.GetInfo())
		}
	}
	return infos
}

// ExecuteTool validates args against the tool's schema and runs it. Unknown
// tools and schema violations come back as failed results, not errors.
func (r *ToolRegistry) ExecuteTool(ctx context.Context, name string, args map[string]interface{}) ToolResult {
	startTime := time.Now()

	tracer := observability.GetTracer("scholarag.tools")
	ctx, span := tracer.Start(ctx, observability.SpanToolExecution,
		trace.WithAttributes(attribute.String(observability.AttrToolName, name)),
	)
	defer span.End()

	result := r.executeTool(ctx, name, args)
	result.ToolName = name
	result.ExecutionTime = time.Since(startTime)

	var metricErr error
	if !result.Success {
		metricErr = fmt.Errorf("%s", result.Error)
		span.RecordError(metricErr)
		span.SetStatus(codes.Error, result.Error)
	} else {
		span.SetStatus(codes.Ok, "success")
	}
	if metrics := observability.GetGlobalMetrics(); metrics != nil {
		metrics.RecordToolExecution(ctx, name, result.ExecutionTime, metricErr)
	}

	return result
}

func (r *ToolRegistry) executeTool(ctx context.Context, name string, args map[string]interface{}) ToolResult {
	tool, ok := r.Get(name)
	if !ok {
		return failure(name, fmt.Sprintf("unknown tool: %s", name))
	}

	if err := validateArgs(tool.GetInfo(), args); err != nil {
		return failure(name, err.Error())
	}

	return tool.Execute(ctx, args)
}

func validateArgs(info ToolInfo, args map[string]interface{}) error {
	for _, param := range info.Parameters {
		value, present := args[param.Name]
		if !present {
			if param.Required {
				return fmt.Errorf("missing required argument: %s", param.Name)
			}
			continue
		}

		switch param.Type {
		case "string":
			if _, ok := value.(string); !ok {
				return fmt.Errorf("argument %s must be a string", param.Name)
			}
		case "integer", "number":
			switch value.(type) {
			case int, int64, float64:
			default:
				return fmt.Errorf("argument %s must be a number", param.Name)
			}
		case "array":
			if _, ok := value.([]interface{}); !ok {
				return fmt.Errorf("argument %s must be an array", param.Name)
			}
		case "boolean":
			if _, ok := value.(bool); !ok {
				return fmt.Errorf("argument %s must be a boolean", param.Name)
			}
		}

		if len(param.Enum) > 0 {
			s, _ := value.(string)
			valid := false
			for _, allowed := range param.Enum {
				if s == allowed {
					valid = true
					break
				}
			}
			if !valid {
				return fmt.Errorf("argument %s must be one of %v", param.Name, param.Enum)
			}
		}
	}
	return nil
}
