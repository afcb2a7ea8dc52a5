// Package hotview reloads live UI components when their declarative view
// markup or stylesheets change on disk.
//
// Components register with an Engine under their resource path. The engine
// resolves the runtime location back to the source file, analyzes the
// include graph of the markup, and watches every file the component
// transitively depends on. When a watched file settles after a change, the
// engine recomputes the affected roots through the reverse include graph
// and calls Reload on each live component, serialized on a single executor.
// Stylesheet changes refresh styles in place for components that support it
// and fall back to a full reload for those that do not.
//
// Basic use:
//
//	engine := hotview.New()
//	if err := engine.Start(ctx); err != nil {
//		return err
//	}
//	defer engine.Stop()
//
//	reg, err := engine.Register(component)
//	if err != nil {
//		return err
//	}
//	defer reg.Release()
//
// Components implement Reloadable; those that can re-apply stylesheets
// without rebuilding implement StyleRefresher as well. Reload callbacks run
// on the engine's run loop unless WithExecutor supplies the application's
// own UI executor.
package hotview
