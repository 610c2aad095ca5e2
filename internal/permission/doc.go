// Package permission decides whether a user group may run a command and
// filters list responses down to the devices the group can see.
//
// The engine is pure: it owns no state beyond a lookup interface for
// camera media metadata. Callers resolve the group first (see
// usergroup.Registry.FindByMember); owner and admin levels never reach
// this package.
package permission
