// Package config defines the format-agnostic configuration model shared by
// the loader, the graph builder, and the plan machinery. Nothing in this
// package knows about HCL syntax beyond carrying unevaluated expressions.
package config
