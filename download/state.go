package download

import "log"

// TrackState is a step of the per-track pipeline.
type TrackState string

const (
	StatePending        TrackState = "pending"
	StateMatchingStream TrackState = "matching_stream"
	StateMatchFailed    TrackState = "match_failed"
	StateAssembling     TrackState = "assembling"
	StateDownloading    TrackState = "downloading"
	StateTranscoding    TrackState = "transcoding"
	StateEmbedding      TrackState = "embedding"
	StateRenaming       TrackState = "renaming"
	StateDone           TrackState = "done"
	StateFailed         TrackState = "failed"
)

// trackRun records the state of one DownloadTrack call.
type trackRun struct {
	query string
	state TrackState
	trail []TrackState
}

func newTrackRun(query string) *trackRun {
	return &trackRun{query: query, state: StatePending, trail: []TrackState{StatePending}}
}

func (r *trackRun) set(state TrackState) {
	log.Printf("INFO: track_state query=%q from=%s to=%s", r.query, r.state, state)
	r.state = state
	r.trail = append(r.trail, state)
}

// fail wraps err with the state the track was in and moves it to StateFailed.
// MatchFailed is already terminal and is kept.
func (r *trackRun) fail(err error) error {
	failed := &TrackError{Query: r.query, State: r.state, Original: err}
	if r.state != StateMatchFailed {
		r.set(StateFailed)
	}
	return failed
}
