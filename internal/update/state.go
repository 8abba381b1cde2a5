package update

import (
	"context"
	"errors"

	"github.com/fastattackv/apy-launcher/internal/changelog"
	"github.com/fastattackv/apy-launcher/internal/remote"
)

// State is a phase of an update
type State int

const (
	Idle State = iota
	Downloading
	Staging
	Applying
	CleaningUp
	Done
	ConnectionError
	ApplyError
	UpToDate
)

var stateNames = [...]string{
	Idle:            "idle",
	Downloading:     "downloading",
	Staging:         "staging",
	Applying:        "applying",
	CleaningUp:      "cleaning up",
	Done:            "done",
	ConnectionError: "connection error",
	ApplyError:      "apply error",
	UpToDate:        "up to date",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Failed reports whether s is a failure outcome
func (s State) Failed() bool {
	return s == ConnectionError || s == ApplyError
}

// classify maps an error raised before or while applying to its outcome
func classify(err error) State {
	if errors.Is(err, remote.ErrConnection) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ConnectionError
	}
	return ApplyError
}

// Event reports progress of a running update
type Event struct {
	State   State
	Message string
	// Percent is the progress inside State, or -1 when unknown
	Percent int
}

// Outcome is the result of a finished update
type Outcome struct {
	State     State
	Branch    string
	From      string
	To        string
	Patches   []remote.PatchPackage
	Applied   int
	Languages []string
	Err       error
}

// Report converts the outcome into a changelog report
func (o Outcome) Report() changelog.Report {
	r := changelog.Report{Branch: o.Branch, From: o.From, To: o.To, Languages: o.Languages}
	for _, p := range o.Patches {
		r.Patches = append(r.Patches, changelog.Patch{Version: p.Version, Commands: p.Commands})
	}
	return r
}

// Result converts the outcome into the machine-readable update result
func (o Outcome) Result() changelog.Result {
	r := changelog.Result{Result: o.State.String(), From: o.From, Commands: o.Applied}
	if o.State == Done {
		r.Result = "success"
		r.Version = o.To
	}
	if o.Err != nil {
		r.Message = o.Err.Error()
	}
	return r
}
