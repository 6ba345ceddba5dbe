// Package yamlcfg implements the YAML diagnostic-description format: a
// human-authored alternative to ODX that declares sessions, security
// levels, access patterns, DIDs, routines, and DTCs, and expands them into
// the same canonical IR every other format produces.
//
// A document is checked in two independent passes before it is ever
// expanded: schema validation against an embedded JSON Schema (structural
// shape), and semantic validation (cross-field rules the schema cannot
// express, such as uniqueness and reference integrity). Both passes
// collect every issue rather than stopping at the first one.
package yamlcfg
