package ledger

// Logger receives the observational lines a transition emits.
type Logger interface {
	Logf(format string, v ...any)
}

// Env is what a transition may read besides its record: the clock and
// evaluator parameters. Transitions hold no other state.
type Env struct {
	Now    int64
	Params Params
	Log    Logger
}

func (e Env) logf(format string, v ...any) {
	if e.Log != nil {
		e.Log.Logf(format, v...)
	}
}
