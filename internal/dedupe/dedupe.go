package dedupe

// Package dedupe provides shared singleflight groups used to deduplicate
// concurrent authoritative calls. Using a centralized singleflight.Group
// ensures that only one match-initialization job runs for a given player
// pair while other callers wait for the result.

import "golang.org/x/sync/singleflight"

// InitGroup deduplicates match-initialization requests keyed by the
// canonical pair key (see keys.PairKey). Two peers that both believe they
// are host (stale presence data) collapse into a single init call.
var InitGroup singleflight.Group
