package transcript

import "botchat/activity"

// IsBotThinking reports whether the typing dots should show: the bot has an
// outstanding typing signal and no stream is open. A typing signal stays
// outstanding until a bot message arrives after it. Late delta chunks of an
// already finalized stream are not typing signals. With a typing timeout in
// opts, signals older than the timeout no longer count.
func IsBotThinking(activities []activity.Activity, streamOpen bool, opts Options) bool {
	if streamOpen {
		return false
	}

	finalized := make(map[string]bool)
	for _, a := range activities {
		if a.IsFinalStream() && a.StreamID() != "" {
			finalized[a.StreamID()] = true
		}
	}

	outstanding := -1
	for i, a := range activities {
		if !a.IsBot() {
			continue
		}
		switch {
		case a.IsDeltaChunk() && finalized[a.StreamID()]:
		case a.IsTyping():
			outstanding = i
		case a.IsMessage():
			outstanding = -1
		}
	}
	if outstanding < 0 {
		return false
	}

	if opts.TypingTimeout > 0 && !opts.Now.IsZero() {
		ts := activities[outstanding].Timestamp
		if !ts.IsZero() && opts.Now.Sub(ts) > opts.TypingTimeout {
			return false
		}
	}
	return true
}
