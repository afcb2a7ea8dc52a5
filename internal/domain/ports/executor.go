package ports

// Executor marshals work onto the application's UI context. Implementations
// run posted functions serially in submission order; reload callbacks are
// only ever invoked through an Executor.
type Executor interface {
	// Post schedules fn to run on the executor's context. It must not block
	// waiting for fn to complete.
	Post(fn func())
}
