package observability

// Recorder receives operation counts and timings. The query bus metrics
// middleware and the session service report through it.
type Recorder interface {
	// StartTimer starts timing an operation; calling the returned func records it
	StartTimer(metric, label string) func()
	Increment(metric, label string)
}

// MultiRecorder fans out to several recorders
type MultiRecorder []Recorder

// StartTimer implements Recorder
func (m MultiRecorder) StartTimer(metric, label string) func() {
	stops := make([]func(), 0, len(m))
	for _, r := range m {
		stops = append(stops, r.StartTimer(metric, label))
	}
	return func() {
		for _, stop := range stops {
			stop()
		}
	}
}

// Increment implements Recorder
func (m MultiRecorder) Increment(metric, label string) {
	for _, r := range m {
		r.Increment(metric, label)
	}
}

// NopRecorder discards everything
type NopRecorder struct{}

// StartTimer implements Recorder
func (NopRecorder) StartTimer(string, string) func() { return func() {} }

// Increment implements Recorder
func (NopRecorder) Increment(string, string) {}
