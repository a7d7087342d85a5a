// Package hcl implements the HCL-backed configuration loader. It discovers
// .hcl files, decodes resource/data/variable blocks, and translates them
// into the format-agnostic config model. Argument expressions are kept
// unevaluated; evaluation happens later against a run scope.
package hcl
