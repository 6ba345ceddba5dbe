// Package odx reads and writes the ODX diagnostic layer container format (a
// subset of ISO 22901-1) and converts it to and from the canonical ir model.
//
// Parsing happens in four passes, mirroring the reference resolver this
// package is grounded on: the document is walked into a per-ID lookup table
// (index.go), diagnostic layers are ordered and their inheritable content is
// folded along the PARENT-REFS DAG (inherit.go), then every layer is
// materialised into ir types by dereferencing ID-REFs to short-names
// (parse.go). The writer (writer.go) runs the inverse: one ir.DiagDatabase
// becomes one DIAG-LAYER-CONTAINER with deterministically regenerated IDs.
package odx
