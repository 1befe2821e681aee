// Package command exposes go-command compatible command handlers implementing
// go-portfolio business logic (create with quota, mutation-based updates,
// publish transitions, archive export). Commands are wired by the service
// layer and can be invoked by any transport.
package command
