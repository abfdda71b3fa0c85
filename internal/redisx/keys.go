package redisx

import "time"

const (
	// Cached product read model: product:{id} -> ProductRead JSON
	KeyProduct = "product:%d"

	// Write counter guarding product:{id}: product:gen:{id}
	KeyProductGeneration = "product:gen:%d"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLProduct    = 5 * time.Minute
	TTLGeneration = 24 * time.Hour
	TTLDedup      = 48 * time.Hour
)
