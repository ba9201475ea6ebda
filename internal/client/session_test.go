package client

import "testing"

func TestReduceStartOnlyFromIdle(t *testing.T) {
	s := Reduce(NewState(), EventStart{})
	if s.Phase != PhasePolling {
		t.Fatalf("phase = %s, want polling", s.Phase)
	}
	if s.SecondsLeft != CountdownSeconds {
		t.Fatalf("seconds = %d, want %d", s.SecondsLeft, CountdownSeconds)
	}

	again := Reduce(s, EventStart{})
	if again != s {
		t.Fatal("start while polling should be a no-op")
	}
}

func TestReduceCountdownStrictlyDecreasesAndStopsAtZero(t *testing.T) {
	s := Reduce(NewState(), EventStart{})
	for want := CountdownSeconds - 1; want >= 0; want-- {
		s = Reduce(s, EventTick{})
		if s.SecondsLeft != want {
			t.Fatalf("seconds = %d, want %d", s.SecondsLeft, want)
		}
	}

	s = Reduce(s, EventTick{})
	if s.SecondsLeft != 0 {
		t.Fatalf("seconds went negative: %d", s.SecondsLeft)
	}
	if s.Phase != PhasePolling {
		t.Fatalf("countdown expiry changed phase to %s", s.Phase)
	}
}

func TestReduceResultCompletesSession(t *testing.T) {
	s := Reduce(NewState(), EventStart{})
	s = Reduce(s, EventResult{Result: Classification{Label: "HC", Probability: 0.12}})
	if s.Phase != PhaseComplete {
		t.Fatalf("phase = %s, want complete", s.Phase)
	}
	if s.Result.Label != "HC" {
		t.Fatalf("result label = %s, want HC", s.Result.Label)
	}

	// Terminal state absorbs everything.
	after := Reduce(s, EventCancel{})
	if after.Phase != PhaseComplete {
		t.Fatalf("cancel after complete changed phase to %s", after.Phase)
	}
}

func TestReduceCancelSuppressesLateResult(t *testing.T) {
	s := Reduce(NewState(), EventStart{})
	s = Reduce(s, EventCancel{})
	if s.Phase != PhaseCancelled {
		t.Fatalf("phase = %s, want cancelled", s.Phase)
	}

	// A response arriving after cancel must not resurrect the session.
	late := Reduce(s, EventResult{Result: Classification{Label: "AD"}})
	if late.Phase != PhaseCancelled {
		t.Fatalf("late result moved phase to %s", late.Phase)
	}
	if late.Result.Label != "" {
		t.Fatalf("late result was recorded: %q", late.Result.Label)
	}

	tick := Reduce(late, EventTick{})
	if tick != late {
		t.Fatal("ticks after cancel should be no-ops")
	}
}

func TestReduceFetchBusyFlagSuppressesReentry(t *testing.T) {
	s := Reduce(NewState(), EventStart{})
	s = Reduce(s, EventFetchStarted{})
	if !s.Fetching {
		t.Fatal("fetching flag not set")
	}

	again := Reduce(s, EventFetchStarted{})
	if again != s {
		t.Fatal("second fetch while busy should not change state")
	}

	s = Reduce(s, EventFetchFinished{})
	if s.Fetching {
		t.Fatal("fetching flag not cleared")
	}
}

func TestReduceFailureIsTerminal(t *testing.T) {
	s := Reduce(NewState(), EventStart{})
	s = Reduce(s, EventFailure{Message: "backend unreachable"})
	if s.Phase != PhaseFailed {
		t.Fatalf("phase = %s, want failed", s.Phase)
	}
	if s.FailureMsg == "" {
		t.Fatal("failure message not recorded")
	}

	late := Reduce(s, EventResult{Result: Classification{Label: "HC"}})
	if late.Phase != PhaseFailed {
		t.Fatalf("result after failure moved phase to %s", late.Phase)
	}
}
