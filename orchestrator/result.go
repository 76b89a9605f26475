package orchestrator

import (
	"encoding/json"
	"errors"

	"github.com/nanoncore/nano-onusync/drivers/cli"
)

// ErrNoRecords is returned when a device reports no ONUs; the job rolls
// back instead of committing an empty sync.
var ErrNoRecords = errors.New("no ONU records returned")

// Result is the payload of a job-boundary call. Exactly one of Message
// and Error is set.
type Result struct {
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	Count   int    `json:"count,omitempty"`
}

// OK reports whether the job succeeded.
func (r Result) OK() bool {
	return r.Error == ""
}

// JSON renders the payload.
func (r Result) JSON() string {
	data, _ := json.Marshal(r)
	return string(data)
}

func failure(err error) Result {
	var se *cli.SessionError
	if errors.As(err, &se) && se.Human != "" {
		return Result{Error: se.Human + ": " + err.Error()}
	}
	return Result{Error: err.Error()}
}
