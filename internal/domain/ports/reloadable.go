package ports

// Reloadable is a live component backed by a view markup file. The engine
// calls Reload on the UI executor when the component's markup, one of its
// includes, or its conventional stylesheet changes on disk.
type Reloadable interface {
	// ResourcePath returns the toolkit resource path of the component's
	// markup, forward-slash form without a leading slash, for example
	// "app/Main.view".
	ResourcePath() string

	// Location returns the runtime location the markup was loaded from.
	// May be a plain file path, a file: URL, or an archive location of the
	// form scheme:path!/inner.
	Location() string

	// Reload rebuilds the component from its markup.
	Reload() error
}

// StyleRefresher is an optional capability for components that can re-apply
// stylesheets in place, preserving component state. Components without it
// fall back to a full Reload on stylesheet changes.
type StyleRefresher interface {
	// RefreshStyles re-applies the component's stylesheets.
	RefreshStyles() error
}
