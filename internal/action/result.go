// Package action holds the uniform result returned by every orchestrated
// transition.
package action

type Result[T any] struct {
	Success  bool           `json:"success"`
	Entity   T              `json:"entity"`
	Message  string         `json:"message"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

func OK[T any](entity T, message string, metadata map[string]any) Result[T] {
	if metadata == nil {
		metadata = map[string]any{}
	}
	return Result[T]{Success: true, Entity: entity, Message: message, Metadata: metadata}
}
