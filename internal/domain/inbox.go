package domain

// InboxState is the two-cursor read state persisted at
// _state/inbox.json: readCursors advance on acknowledgement, seenCursors
// advance on delivery, independently, per the two-phase seen-then-acked
// model.
type InboxState struct {
	ReadCursors map[string]string `json:"readCursors"`
	SeenCursors map[string]string `json:"seenCursors"`
}

// NewInboxState returns an empty, initialized InboxState.
func NewInboxState() *InboxState {
	return &InboxState{
		ReadCursors: make(map[string]string),
		SeenCursors: make(map[string]string),
	}
}
