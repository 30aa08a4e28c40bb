// Package main hosts the kiritan CLI entrypoint and command graph.
//
// "kiritan run" drives the numbered data-preparation stages through the
// workflow package. The remaining commands inspect what a run would do
// (stages), what it produced (status), what happened before (history) and
// whether the host is ready (check). Configuration is resolved once per
// invocation and shared by every subcommand.
package main
