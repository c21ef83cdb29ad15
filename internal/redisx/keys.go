package redisx

import (
	"fmt"
	"time"
)

const (
	// Cache status: status:{kind}:{id} -> {"status": "...", "updated_at": "..."}
	KeyStatus = "status:%s:%s"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

const (
	KindOrder       = "order"
	KindReservation = "reservation"
)

var (
	TTLStatusCache = 24 * time.Hour
	TTLDedup       = 48 * time.Hour
)

func StatusKey(kind, id string) string { return fmt.Sprintf(KeyStatus, kind, id) }

func DedupKey(service, eventID string) string { return fmt.Sprintf(KeyDedup, service, eventID) }
