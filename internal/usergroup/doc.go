// Package usergroup manages persisted user groups: named sets of member
// emails and the device ids those members may touch.
//
// A principal belongs to at most one group (first match by exact email
// wins). Owner and admin callers bypass groups entirely; the permission
// package consumes groups when evaluating everyone else.
package usergroup
