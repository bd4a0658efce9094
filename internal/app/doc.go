// Package app wires an experiment together: it loads the experiment file,
// registers the artifacts, builds the run descriptors for the selected
// sweep points, and executes them on the scheduler while records flow to the
// configured sinks. It is decoupled from any specific entrypoint like a CLI.
package app
