package output

// RunGuard provides single-flight execution across processes
type RunGuard interface {
	// Acquire reports false when another live run holds the guard
	Acquire() (bool, error)
	// Release drops the guard unconditionally
	Release() error
}
