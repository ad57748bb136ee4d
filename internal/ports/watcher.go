package ports

// Watcher monitors dictionary source files and reports when one changes.
// Only one Watch call should be active at a time.
type Watcher interface {
	// Watch starts monitoring the given files. onChange is called with the
	// path (as given) of each changed file, debounced. The callback may be
	// invoked from any goroutine. Files that do not exist yet are watched
	// through their parent directory; a missing parent is an error.
	Watch(paths []string, onChange func(path string)) error

	// Stop ends monitoring and releases all resources. After Stop returns,
	// no further onChange calls will fire. Safe to call multiple times.
	Stop() error
}
