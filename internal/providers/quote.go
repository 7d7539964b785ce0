package providers

import (
	"math"

	"github.com/ternarybob/peritus/internal/models"
)

// changeTolerance bounds how far a provider-reported change field may
// drift from the prices it derives from before it is recomputed.
const changeTolerance = 0.01

// ReconcileChange recomputes a snapshot's change fields from its own
// prices when the provider omitted them or they disagree. Keeps
// Change equal to CurrentPrice minus PreviousClose regardless of what
// the wire carried.
func ReconcileChange(q *models.QuoteSnapshot) {
	change := q.CurrentPrice - q.PreviousClose
	if math.Abs(q.Change-change) > changeTolerance {
		q.Change = change
	}

	if q.PreviousClose != 0 {
		pct := change / q.PreviousClose * 100
		if math.Abs(q.ChangePercent-pct) > changeTolerance {
			q.ChangePercent = pct
		}
	}
}
