package stream

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/weiche-dev/weiche/pkg/api"
)

// Sequencer stamps events with monotonic identifiers. Counters
// saturate instead of wrapping; the zero value is ready to use.
type Sequencer struct {
	nextEventID  uint64
	nextSequence uint32
}

// Prepare assigns the next event id and sequence number, stamps the
// event, and serializes it. A serialization failure burns the taken
// slot; the caller drops the event and ordering still holds across
// the gap.
func (s *Sequencer) Prepare(event *api.StreamEvent, responseID string) (string, uint32, error) {
	if s.nextEventID < math.MaxUint64 {
		s.nextEventID++
	}
	if s.nextSequence < math.MaxUint32 {
		s.nextSequence++
	}

	event.EventID = fmt.Sprintf("evt_%s_%016x", responseID, s.nextEventID)
	event.ResponseID = responseID
	event.SequenceNumber = int(s.nextSequence)

	payload, err := json.Marshal(event)
	if err != nil {
		return "", s.nextSequence, err
	}
	return string(payload), s.nextSequence, nil
}
