package models

// LoadState is the state of a remote fetch as seen by the page layer.
type LoadState string

const (
	StateIdle    LoadState = "idle"
	StateLoading LoadState = "loading"
	StateError   LoadState = "error"
	StateReady   LoadState = "ready"
)

// Resource is the tri-state result every remote fetch is rendered through.
type Resource[T any] struct {
	State LoadState `json:"state"`
	Data  T         `json:"data"`
	Error string    `json:"error,omitempty"`
}

// Loading returns a resource whose fetch is in flight.
func Loading[T any]() Resource[T] {
	return Resource[T]{State: StateLoading}
}

// Ready wraps fetched data.
func Ready[T any](data T) Resource[T] {
	return Resource[T]{State: StateReady, Data: data}
}

// Failed records a fetch error as a displayable message.
func Failed[T any](err error) Resource[T] {
	return Resource[T]{State: StateError, Error: err.Error()}
}
