// Package dag builds the dependency graph over declared resources and data
// sources. Implicit edges come from expression traversals (a reference to
// resource.a.b.id makes the referencing node depend on resource.a.b);
// explicit edges come from depends_on. Both feed one unified edge set, which
// is cycle-checked and topologically ordered with declaration order as the
// tie-break.
package dag
