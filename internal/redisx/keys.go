package redisx

import "time"

const (
	// Listing generation, bumped after every product or stock write
	KeyInventoryGen = "inventory:list:gen"

	// Cached GET /products response: inventory:list:{gen} -> JSON array
	KeyInventoryList = "inventory:list:%d"

	// Cached order with its lines: order:{order_id} -> JSON
	KeyOrder = "order:%s"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLInventoryList = 30 * time.Second
	TTLOrder         = 10 * time.Minute // orders are immutable
	TTLDedup         = 48 * time.Hour
)
