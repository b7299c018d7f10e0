package session

// requestRate sums the one minute request rate of every channel in the
// set. It is a point in time reading and does not lock out concurrent
// joins or leaves.
func requestRate(set *channelSet) int {
	var sum float64
	for _, ch := range set.snapshot() {
		if meter, ok := ch.(RateMeter); ok {
			sum += meter.OneMinuteRate()
		}
	}
	return int(sum)
}

func (s *Session) AppRequestRate() int      { return requestRate(s.apps) }
func (s *Session) HardwareRequestRate() int { return requestRate(s.hardware) }
