package retry

// SetSleep replaces the cooldown sleep in tests.
func (r *RateLimiter) SetSleep(s SleepFunc) {
	r.sleep = s
}
