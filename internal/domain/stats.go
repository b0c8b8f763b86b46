package domain

import "time"

// IngestStats holds statistics about one ingestion run.
type IngestStats struct {
	RunID       string
	Feeds       int
	FailedFeeds int
	Fetched     int
	Dropped     int
	Existing    int
	EarlyStops  int
	Inserted    int
	Published   int
	Errors      int
	Duration    time.Duration
}

// FeedStats holds the outcome of processing a single feed.
type FeedStats struct {
	Fetched       int
	Dropped       int
	Existing      int
	Staged        int
	Inserted      int
	Published     int
	PublishFailed int
	EarlyStop     bool
	// Unresolved counts articles stored without a publisher because the
	// lookup failed.
	Unresolved int
}

// GeocodeStats holds statistics about one geocoding backfill run.
type GeocodeStats struct {
	RunID     string
	Pending   int
	Geocoded  int
	NoMatch   int
	Exhausted int
	Failed    int
	Duration  time.Duration
}

// DiscoveryStats holds statistics about one feed discovery run.
type DiscoveryStats struct {
	TopicID    int64
	Countries  int
	Created    int
	Duplicates int
	Failed     int
}
