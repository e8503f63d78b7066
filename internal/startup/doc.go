// Package startup handles application initialization: environment-driven
// configuration, directory validation, build information, and the structured
// startup and shutdown log output.
package startup
