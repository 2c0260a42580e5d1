// Package trackflow provides a versioned, multi-step approval workflow
// engine.
//
// Workflow definitions are declarative graphs of states, transitions,
// assignment rules and named rules; transitions carry JSON guard
// expressions evaluated against the instance data.  The engine runs one
// finite-state instance per request, creating task groups for the
// assignees of each state and completing them according to the rule's
// completion strategy.
//
// Trackflow is designed to be embedded in host applications.  End-users
// typically interact with the engine via the high-level Service façade
// exposed by the root package:
//
//	srv := trackflow.New()
//	rt := srv.Runtime()
//	_ = rt.EnsureDefaultWorkflow(ctx)
//	started, _ := rt.StartWorkflow(ctx, "Tracker-core-workflow", "U1000", data)
//	_, _ = rt.FireEvent(ctx, started.ID, "PLANNING_BUSINESS_SUBMIT", "U1001", "", nil)
//
// For more details see the README and individual sub-packages.
package trackflow
