package tool

import (
	"context"
	"fmt"
)

// NewCalculator returns a basic arithmetic tool. It exists so general
// purpose agents have a deterministic local capability alongside remote
// ones.
func NewCalculator() *FunctionTool {
	return NewFunctionTool(
		"calculator",
		"Perform basic arithmetic. Supports add, subtract, multiply and divide on two numbers.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"operation": map[string]any{
					"type":        "string",
					"description": "One of add, subtract, multiply, divide",
				},
				"a": map[string]any{"type": "number"},
				"b": map[string]any{"type": "number"},
			},
			"required": []string{"operation", "a", "b"},
		},
		func(ctx context.Context, args map[string]any) (any, error) {
			op, _ := args["operation"].(string)
			a, aok := args["a"].(float64)
			b, bok := args["b"].(float64)
			if !aok || !bok {
				return nil, NewToolError("calculator", "a and b must be numbers", "VALIDATION_ERROR")
			}

			switch op {
			case "add":
				return a + b, nil
			case "subtract":
				return a - b, nil
			case "multiply":
				return a * b, nil
			case "divide":
				if b == 0 {
					return nil, NewToolError("calculator", "division by zero", "EXECUTION_ERROR")
				}
				return a / b, nil
			default:
				return nil, NewToolError("calculator", fmt.Sprintf("unsupported operation %q", op), "VALIDATION_ERROR")
			}
		},
	)
}
