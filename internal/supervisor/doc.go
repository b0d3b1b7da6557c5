// Cobasket - Frequently Bought Together Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cobasket

/*
Package supervisor provides process supervision using suture v4.

The tree separates background data work from request serving:

	RootSupervisor ("cobasket")
	├── DataSupervisor ("data-layer")
	│   └── RebuildService (if rebuild.enabled)
	└── APISupervisor ("api-layer")
	    └── HTTPServerService

Crashed services restart with suture's backoff. Failures in one layer do
not count against the other, so a rebuild source that keeps failing does
not take the HTTP server down with it.

Supervisor events are logged through sutureslog, which takes a *slog.Logger.
Build one from the zerolog logger with logging.NewSlogHandler:

	tree, err := supervisor.NewSupervisorTree(
	    slog.New(logging.NewSlogHandler()),
	    supervisor.DefaultTreeConfig(),
	)
	tree.AddDataService(services.NewRebuildService(engine, cfg.Rebuild, logger))
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout, logger))
	errCh := tree.ServeBackground(ctx)

On shutdown, UnstoppedServiceReport names any service that ignored
cancellation past the timeout.
*/
package supervisor
