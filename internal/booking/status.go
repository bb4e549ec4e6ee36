package booking

type Status string

const (
	StatusPending        Status = "pending"
	StatusAccepted       Status = "accepted"
	StatusDeclined       Status = "declined"
	StatusCompleted      Status = "completed"
	StatusCancelled      Status = "cancelled"
	StatusCounterOffered Status = "counter_offered"
)

// BlockingStatuses are the statuses that take part in conflict detection.
var BlockingStatuses = []Status{StatusPending, StatusAccepted, StatusCounterOffered}

var transitions = map[Status][]Status{
	StatusPending:        {StatusAccepted, StatusDeclined, StatusCounterOffered, StatusCancelled},
	StatusAccepted:       {StatusCancelled, StatusCompleted},
	StatusCounterOffered: {StatusAccepted, StatusDeclined, StatusCancelled},
}

func (s Status) Blocking() bool {
	for _, b := range BlockingStatuses {
		if s == b {
			return true
		}
	}
	return false
}

func (s Status) Terminal() bool {
	return len(transitions[s]) == 0
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusDeclined, StatusCompleted, StatusCancelled, StatusCounterOffered:
		return true
	}
	return false
}

func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
