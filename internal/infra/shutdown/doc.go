// Package shutdown coordinates process termination for long-running
// cfgclient commands such as check --watch and fetch --serve-metrics.
//
// A Handler waits for SIGINT, SIGTERM or context cancellation and then runs
// its hooks in reverse registration order under a timeout:
//
//	h := shutdown.NewHandler(5 * time.Second)
//	h.OnShutdown(srv.Shutdown)
//	err := h.WaitContext(ctx)
package shutdown
