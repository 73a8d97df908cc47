// Package orchestrator coordinates the bring-up of named modules on the two
// sides of a network boundary.
//
// # Sides
//
// The Authority owns the canonical services. The Dependent mirrors them:
// it waits until the authority's readiness flag is set, discovers the
// services' published remote surfaces and only then brings up its own
// controllers. Both sides run the same protocol, implemented once by the
// generic runner.
//
// # Protocol
//
//  1. Register: a batch of modules is staged, once per orchestrator.
//  2. Init: every staged module is initialized on its own goroutine. The
//     phase waits for all of them; a failing module is logged and recorded
//     but never blocks or aborts the others. On the authority side each
//     service's remote surface is published as part of its init.
//  3. Readiness: the side's readiness flag is set, exactly once.
//  4. Start: every ready module's Start hook is dispatched on a detached
//     goroutine. Start returns without waiting for them.
//
// No ordering exists between modules within a phase. Across phases it is
// strict: every init finishes before the flag flips, and the flag flips
// before any Start hook is dispatched.
//
// # Usage Example
//
//	authority := orchestrator.NewAuthority(orchestrator.AuthorityConfig{})
//	_ = authority.RegisterServices(&module.Service{
//	    Name:   "Clock",
//	    Remote: map[string]transport.Member{"now": now},
//	})
//
//	dependent, _ := orchestrator.NewDependent(orchestrator.DependentConfig{
//	    AuthorityGate: authority.Gate(),
//	    Directory:     authority.Directory(),
//	})
//	_ = dependent.RegisterControllers(&module.Controller{Name: "HUD"})
//
//	go authority.Start(ctx)
//	_, err := dependent.Start(ctx) // waits for the authority first
//
// # Errors
//
// Calling the API out of order (starting twice, registering twice or after
// start, looking a module up before start or by an unknown name) returns a
// *UsageError, which matches ErrUsage with errors.Is.
package orchestrator
