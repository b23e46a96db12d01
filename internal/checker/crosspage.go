package checker

import "github.com/khanhnv2901/privscan/internal/domain/finding"

// Correlate finds tracking pixels that follow the visitor across pages. It needs
// the complete issue list for a session. Trackers are ordered by first sighting
// and each page list keeps insertion order without duplicates.
func Correlate(issues []finding.Issue) finding.CrossPageAnalysis {
	var order []string
	pages := make(map[string][]string)
	seen := make(map[string]map[string]struct{})

	for _, issue := range issues {
		if issue.Kind != finding.KindTrackingPixel || issue.Resource == nil {
			continue
		}
		tracker := issue.Resource.URL
		if tracker == "" || issue.PageURL == "" {
			continue
		}

		if _, ok := seen[tracker]; !ok {
			seen[tracker] = make(map[string]struct{})
			order = append(order, tracker)
		}
		if _, dup := seen[tracker][issue.PageURL]; dup {
			continue
		}
		seen[tracker][issue.PageURL] = struct{}{}
		pages[tracker] = append(pages[tracker], issue.PageURL)
	}

	analysis := finding.CrossPageAnalysis{Trackers: []finding.CrossPageTracker{}}
	for _, tracker := range order {
		if len(pages[tracker]) < 2 {
			continue
		}
		analysis.Trackers = append(analysis.Trackers, finding.CrossPageTracker{
			TrackerURL: tracker,
			PageCount:  len(pages[tracker]),
			Pages:      pages[tracker],
		})
	}
	analysis.HasCrossPageTracking = len(analysis.Trackers) > 0
	return analysis
}
