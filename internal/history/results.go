package history

// StreamResetStartResult is the closed result set for StartStreamedReset.
type StreamResetStartResult int

const (
	StreamResetStartOk StreamResetStartResult = iota
	StreamResetStartAlreadyActive
	StreamResetStartOutOfSpace
	StreamResetStartWriteError
)

func (r StreamResetStartResult) String() string {
	switch r {
	case StreamResetStartOk:
		return "Ok"
	case StreamResetStartAlreadyActive:
		return "AlreadyActive"
	case StreamResetStartOutOfSpace:
		return "OutOfSpace"
	case StreamResetStartWriteError:
		return "WriteError"
	default:
		return "Unknown"
	}
}

// StreamResetAddResult is the closed result set for AddStreamResetMessage.
type StreamResetAddResult int

const (
	StreamResetAddOk StreamResetAddResult = iota
	StreamResetAddNotActive
	StreamResetAddInvalidUser
	StreamResetAddBadType
	StreamResetAddDisallowedType
	StreamResetAddOutOfSpace
	StreamResetAddConsumerError
)

func (r StreamResetAddResult) String() string {
	switch r {
	case StreamResetAddOk:
		return "Ok"
	case StreamResetAddNotActive:
		return "NotActive"
	case StreamResetAddInvalidUser:
		return "InvalidUser"
	case StreamResetAddBadType:
		return "BadType"
	case StreamResetAddDisallowedType:
		return "DisallowedType"
	case StreamResetAddOutOfSpace:
		return "OutOfSpace"
	case StreamResetAddConsumerError:
		return "ConsumerError"
	default:
		return "Unknown"
	}
}

// StreamResetPrepareResult is the closed result set for PrepareStreamedReset.
type StreamResetPrepareResult int

const (
	StreamResetPrepareOk StreamResetPrepareResult = iota
	StreamResetPrepareNotActive
	StreamResetPrepareInvalidUser
	StreamResetPrepareOutOfSpace
	StreamResetPrepareInvalidMessageCount
	StreamResetPrepareConsumerError
)

func (r StreamResetPrepareResult) String() string {
	switch r {
	case StreamResetPrepareOk:
		return "Ok"
	case StreamResetPrepareNotActive:
		return "NotActive"
	case StreamResetPrepareInvalidUser:
		return "InvalidUser"
	case StreamResetPrepareOutOfSpace:
		return "OutOfSpace"
	case StreamResetPrepareInvalidMessageCount:
		return "InvalidMessageCount"
	case StreamResetPrepareConsumerError:
		return "ConsumerError"
	default:
		return "Unknown"
	}
}

// StreamResetAbortResult is the closed result set for AbortStreamedReset.
type StreamResetAbortResult int

const (
	StreamResetAbortOk StreamResetAbortResult = iota
	StreamResetAbortNotActive
	StreamResetAbortInvalidUser
)

func (r StreamResetAbortResult) String() string {
	switch r {
	case StreamResetAbortOk:
		return "Ok"
	case StreamResetAbortNotActive:
		return "NotActive"
	case StreamResetAbortInvalidUser:
		return "InvalidUser"
	default:
		return "Unknown"
	}
}

// ThumbnailStartResult is the closed result set for StartThumbnailGeneration.
type ThumbnailStartResult int

const (
	ThumbnailStartOk ThumbnailStartResult = iota
	ThumbnailStartInvalidUser
	ThumbnailStartAlreadyGenerating
)

func (r ThumbnailStartResult) String() string {
	switch r {
	case ThumbnailStartOk:
		return "Ok"
	case ThumbnailStartInvalidUser:
		return "InvalidUser"
	case ThumbnailStartAlreadyGenerating:
		return "AlreadyGenerating"
	default:
		return "Unknown"
	}
}

// ThumbnailFinishResult is the closed result set for FinishThumbnailGeneration.
type ThumbnailFinishResult int

const (
	ThumbnailFinishOk ThumbnailFinishResult = iota
	ThumbnailFinishInvalidUser
	ThumbnailFinishInvalidCorrelator
	ThumbnailFinishNoData
	ThumbnailFinishWriteError
)

func (r ThumbnailFinishResult) String() string {
	switch r {
	case ThumbnailFinishOk:
		return "Ok"
	case ThumbnailFinishInvalidUser:
		return "InvalidUser"
	case ThumbnailFinishInvalidCorrelator:
		return "InvalidCorrelator"
	case ThumbnailFinishNoData:
		return "NoData"
	case ThumbnailFinishWriteError:
		return "WriteError"
	default:
		return "Unknown"
	}
}

// CheckInviteResult is the closed result set for CheckInvite.
type CheckInviteResult int

const (
	CheckInviteNoClientKey CheckInviteResult = iota
	CheckInviteNotFound
	CheckInviteAlreadyInvited
	CheckInviteAlreadyInvitedNameChanged
	CheckInviteOk
	CheckInviteUsed
	CheckInviteMaxUsesReached
)

func (r CheckInviteResult) String() string {
	switch r {
	case CheckInviteNoClientKey:
		return "NoClientKey"
	case CheckInviteNotFound:
		return "NotFound"
	case CheckInviteAlreadyInvited:
		return "AlreadyInvited"
	case CheckInviteAlreadyInvitedNameChanged:
		return "AlreadyInvitedNameChanged"
	case CheckInviteOk:
		return "InviteOk"
	case CheckInviteUsed:
		return "InviteUsed"
	case CheckInviteMaxUsesReached:
		return "MaxUsesReached"
	default:
		return "Unknown"
	}
}
