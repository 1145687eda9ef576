// Package executor runs machine-generated data-transformation code inside
// one-shot isolated sandboxes and normalizes the outcome into a tagged
// result.
//
// Each execution is an independent unit of work: the request's input files
// are bound read-only into the sandbox, the code is materialized to a
// transient file and mounted alongside them, the sandbox runs under fixed
// memory and CPU limits, and both the sandbox instance and the transient
// file are destroyed before Execute returns, on every path.
//
// The isolation backend is abstracted behind the Runtime interface so the
// orchestration logic can be tested against a fake; the Docker
// implementation lives in the docker subpackage.
package executor
