// Package security controls what a dashboard script may reach.
//
// Every bridging module names the Capability it needs; a PermissionChecker
// decides which modules are injected into a script state. Capabilities are
// hierarchical: granting "io" grants "io.http" and every other child.
//
// ResourceLimits bound script execution time and the rate of outbound
// network and serial calls.
package security
