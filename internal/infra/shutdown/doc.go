// Package shutdown coordinates graceful process termination.
//
// Hooks registered with OnShutdown run in reverse registration order once
// SIGINT or SIGTERM arrives or Trigger is called, all under one deadline.
//
//	h := shutdown.NewHandler(10 * time.Second)
//	h.OnShutdown(srv.Shutdown)
//	if err := h.Wait(); err != nil { ... }
package shutdown
