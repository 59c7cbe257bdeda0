// Package view is the headless map-view engine. It turns store data and
// viewport movement into declarative marker and layer operations that a
// mapping client applies verbatim. The engine never talks to a concrete map
// library; it depends on the MapHandle and RenderSink interfaces and all
// rendering errors are logged and skipped rather than propagated.
package view
