// Package artifact is the provenance layer of bootsweep. An Artifact records
// how a reusable build product (a binary, a repository checkout, a disk image,
// a simulator build or a kernel image) was produced: the command, the working
// directory, the output path and the artifacts it was built from.
//
// Artifacts are registered once at startup through a Registry, which assigns
// each one an id, verifies that its inputs form a DAG, and appends a JSON
// provenance record to a sink. After registration an Artifact is read-only
// and may be shared freely between goroutines.
package artifact
