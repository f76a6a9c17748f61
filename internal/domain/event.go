package domain

const (
	EventNameSessionStarted  = "session.started"
	EventNameSessionResolved = "session.resolved"
	EventNameQueueConflict   = "queue.conflict"
)

type EventSessionStarted struct {
	Session Session
}

func (EventSessionStarted) Name() string { return EventNameSessionStarted }

type EventSessionResolved struct {
	Result Result
}

func (EventSessionResolved) Name() string { return EventNameSessionResolved }

type EventQueueConflict struct {
	SubjectID string
	Quiz      QuizType
}

func (EventQueueConflict) Name() string { return EventNameQueueConflict }
