// Package run models one fully resolved simulator execution: the
// Descriptor built by the experiment factory, its execution against a
// process runner, and the JSON record handed to sinks afterwards.
package run
