package scrape

import "errors"

var ErrNoFetcher = errors.New("scrape orchestrator has no fetcher")
