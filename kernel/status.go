package kernel

// Status is the result of a kernel service call.
type Status uint8

const (
	StatusSuccess Status = iota
	StatusTimeout
	StatusDeleted
	StatusWaitAborted
	StatusNotOwned
	StatusNoMemory
	StatusCeilingExceeded
	StatusCallerError
	StatusPriorityError
	StatusThreadError
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusTimeout:
		return "timeout"
	case StatusDeleted:
		return "object deleted"
	case StatusWaitAborted:
		return "wait aborted"
	case StatusNotOwned:
		return "not owned by caller"
	case StatusNoMemory:
		return "out of kernel memory"
	case StatusCeilingExceeded:
		return "ceiling exceeded"
	case StatusCallerError:
		return "invalid caller context"
	case StatusPriorityError:
		return "invalid priority"
	case StatusThreadError:
		return "invalid thread"
	default:
		return "unknown"
	}
}

// OK reports whether the call succeeded.
func (s Status) OK() bool { return s == StatusSuccess }
