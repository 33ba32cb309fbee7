package session

const feedSize = 15

var (
	bootFeed = []string{"SYSTEM_READY", "HANDSHAKE_COMPLETE", "CORE_V1_STABLE_LOADED"}

	ambientFeed = []string{
		"TRACE_ATTEMPT_BLOCKED",
		"ENCRYPTING_NODE_DATA",
		"BYPASSING_WATCHDOG",
		"UPLOADING_SHELLCODE_V1",
		"BYPASSING_HANDSHAKE",
	}
)

const (
	feedBreachSuccess = "BREACH_SUCCESSFUL_//_NODE_TAKEN"
	feedBreachFailed  = "BREACH_FAILED_//_TRACE_DUMP_DETECTION"

	// ambientChance is the per-tick probability of an ambient feed line.
	ambientChance = 0.05
)

// feed keeps the most recent lines, newest first.
type feed struct {
	lines []string
}

func newFeed() feed {
	f := feed{}
	for i := len(bootFeed) - 1; i >= 0; i-- {
		f.push(bootFeed[i])
	}
	return f
}

func (f *feed) push(line string) {
	f.lines = append([]string{line}, f.lines...)
	if len(f.lines) > feedSize {
		f.lines = f.lines[:feedSize]
	}
}

func (f *feed) snapshot() []string {
	out := make([]string, len(f.lines))
	copy(out, f.lines)
	return out
}
