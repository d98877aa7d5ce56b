// Package policy evaluates request content against a configurable rule set.
// Rules are loaded from YAML and compiled once; evaluation is a pure
// function over the compiled set, safe for concurrent use.
package policy
