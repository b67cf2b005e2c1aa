package toolkit

import (
	"github.com/golang/glog"
)

// Logging convention in the `toolkit` package:
// Info:
//     essential events for abnormal behavior. This level should be silent on normal operation,
//     with the exception of one time (infrequent) initialization data that is useful for monitoring
//     this includes:
//     - transport send and receive errors
//     - malformed envelopes from viewers
//     - handler errors for fire-and-forget messages
// Warning:
//     unexpected panics even if handled and suppressed for partial operation
// V(LogLevelEvent):
//     key events with ids that can be used to filter
//     - connect, disconnect, root changes
// V(LogLevelTrace):
//     frequent events - e.g. sync passes, sends, routed messages and calls

const LogLevelEvent glog.Level = 1
const LogLevelTrace glog.Level = 2
