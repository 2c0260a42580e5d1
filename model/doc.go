// Package model contains the in-memory representation of workflow
// definitions: states, transitions, assignment rules and named business
// rules, plus the YAML decoding of definition documents.
//
// A definition is typically loaded from a YAML document or assembled with
// the builder methods on Definition.  The `condition` sub-package evaluates
// the JSON guard expressions carried by transitions and rules; the
// `template` sub-package handles duration literals and placeholder
// interpolation used by task templates.
package model
