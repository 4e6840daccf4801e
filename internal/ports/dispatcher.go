package ports

// Dispatcher runs work off the caller's goroutine.
// Submit returns false if the job was not accepted (pool closed or saturated).
type Dispatcher interface {
	Submit(job func()) bool
}
