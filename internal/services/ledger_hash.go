// internal/services/ledger_hash.go
package services

import (
	"fmt"
	"time"

	"github.com/kumawatjayant/shree-anna-connect-sub000/internal/models"
	"github.com/kumawatjayant/shree-anna-connect-sub000/internal/utils"
)

// timelineHash links an entry to its predecessor. The hash covers every field of
// the entry except the hash itself.
func timelineHash(previousHash string, e models.TimelineEvent) string {
	payload := fmt.Sprintf("%s|%d|%s|%s|%s|%s|%s",
		previousHash,
		e.Sequence,
		e.Event,
		e.Description,
		e.Location,
		e.ActorID,
		e.Date.UTC().Format(time.RFC3339Nano),
	)
	return utils.HashString(payload)
}

// appendTimeline stamps the sequence number and chain hash onto e and appends it.
func appendTimeline(record *models.Traceability, e models.TimelineEvent) models.TimelineEvent {
	e.Sequence = len(record.Timeline) + 1
	e.Hash = timelineHash(record.LastHash(), e)
	record.Timeline = append(record.Timeline, e)
	return e
}

// VerifyTimeline recomputes the chain and reports whether every entry is intact
// and in sequence.
func VerifyTimeline(timeline []models.TimelineEvent) bool {
	previous := ""
	for i, e := range timeline {
		if e.Sequence != i+1 || e.Hash != timelineHash(previous, e) {
			return false
		}
		previous = e.Hash
	}
	return true
}
