// Package testutil provides testing utilities for spheretree.
//
// This package is intended for use in tests and benchmarks only.
// It provides helpers for generating random point clouds and computing
// exact range and nearest-neighbour results by linear scan.
//
// # Random Point Generation
//
//	rng := testutil.NewRNG(seed)
//	points := rng.UniformPoints(500)           // unit cube
//	points = rng.ClusteredPoints(500, 4, 0.05) // Gaussian blobs
//
// # Ground Truth
//
//	ids := testutil.BruteForceWithin(points, query, 0.1, -1)
//	top := testutil.BruteForceNearest(points, query, 5, -1)
package testutil
