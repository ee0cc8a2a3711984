package drill

import "time"

// HTTP status code constants.
const (
	StatusOK         = 200
	StatusCreated    = 201
	StatusBadRequest = 400
	StatusForbidden  = 403
	StatusConflict   = 409
)

// Worker configuration constants.
const (
	WorkerChannelMultiplier = 2
)

// Runner configuration constants.
const (
	ProcessingDelay      = 3 * time.Second
	PercentageMultiplier = 100
)

// Scoring constants mirroring the service defaults. The drill derives
// expected stats with the same thresholds the service applies.
const (
	gracePeriod = 5 * time.Minute
	lateWeight  = 0.5

	latenessMinSample     = 3
	latenessWarnRatio     = 0.3
	latenessCriticalCount = 5
	noShowWarnCount       = 2
	noShowCriticalCount   = 3
)
