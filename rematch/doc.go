// Package rematch re-runs matching for every open report of one or both
// kinds against the current pool of open reports of the opposite kind.
//
// A sweep is useful after bulk imports or after changing matcher settings:
// submission only matches a report once, at the moment it is created, so
// reports that arrived later never show up in an older report's results.
//
// Reports are processed in batches on a worker pool; results are delivered
// to the caller's sink in ID order regardless of which worker finished
// first.
package rematch
