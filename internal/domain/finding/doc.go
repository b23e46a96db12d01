// Package finding holds the value types produced by the privacy checkers:
// cookie issues, tracking issues (a tagged union of resource and request
// findings), cross-page trackers, unauthorized storage entries and encryption
// probe outcomes.
package finding
