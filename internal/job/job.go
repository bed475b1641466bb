// Package job turns input events into self contained job descriptors and
// executes them one by one.
//
// A job goes through Created -> ScratchAcquired -> Invoked -> ScratchReleased
// -> Reported. Execute always reaches the last state: every failure,
// panics included, ends up in the returned Outcome.
package job

import (
	"fmt"

	"github.com/paragraph-tools/multigrm/internal/model"
)

// Descriptor is one unit of work. It is consumed exactly once by Execute.
type Descriptor struct {
	Index  int
	Event  model.Event
	Config *model.RunConfig
}

// ID is unique within a run.
func (d Descriptor) ID() string {
	return fmt.Sprintf("%06d", d.Index)
}

// Build pairs an event with the shared configuration. Malformed events
// are not rejected here, Execute reports them as job failures.
func Build(index int, event model.Event, rc *model.RunConfig) Descriptor {
	return Descriptor{Index: index, Event: event, Config: rc}
}

// BuildAll builds descriptors keeping the order of events.
func BuildAll(events []model.Event, rc *model.RunConfig) []Descriptor {
	ret := make([]Descriptor, len(events))
	for i, e := range events {
		ret[i] = Build(i, e, rc)
	}
	return ret
}
