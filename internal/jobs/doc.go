// Package jobs runs data-parallel build work as dependent waves.
//
// A wave is N independent closures; Run joins each wave before starting the
// next, which is the only ordering the tree builder relies on. Schedule moves
// the whole chain to a background goroutine and hands back a Handle so the
// caller decides whether to block or chain further work.
//
// Concurrency inside a wave is bounded by errgroup.SetLimit and, when a
// resource.Controller is attached, by its shared worker semaphore.
package jobs
