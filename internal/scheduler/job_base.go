package scheduler

import (
	"time"

	"github.com/rs/zerolog"
)

// defaultJobTimeout bounds a single job run
const defaultJobTimeout = 2 * time.Minute

// JobBase carries the logger every job shares.
// Jobs start with a no-op logger until SetLogger is called.
type JobBase struct {
	log zerolog.Logger
}

func newJobBase() JobBase {
	return JobBase{log: zerolog.Nop()}
}

// SetLogger sets the logger for the job
func (j *JobBase) SetLogger(log zerolog.Logger) {
	j.log = log
}
