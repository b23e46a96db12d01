package finding

// CrossPageTracker is a tracker URL observed on at least two distinct pages.
type CrossPageTracker struct {
	TrackerURL string
	PageCount  int
	Pages      []string
}

// CrossPageAnalysis is the correlator output for one session.
type CrossPageAnalysis struct {
	Trackers             []CrossPageTracker
	HasCrossPageTracking bool
}

// UnauthorizedEntry is a browser storage key missing from the allow-list.
type UnauthorizedEntry struct {
	PageURL string
	Key     string
	Value   string
}
