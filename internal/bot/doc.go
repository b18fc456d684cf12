// Package bot answers Discord slash commands from a resolution Store.
//
// Four commands are registered: /resolution, /latestresolutions,
// /reloadresolutions and /createresolution. The last two require the
// Administrator permission, both as a registration default and when
// handled. Every invocation is logged, counted in Prometheus, and, when a
// Journal is configured, appended to the audit journal.
//
// HandleInteraction takes its Responder as an interface so handlers can be
// exercised without a gateway connection.
package bot
