package queue_test

import (
	"testing"

	"github.com/a11ykit/announce"
	"github.com/a11ykit/announce/queue"
)

// scenarioUtterance builds the utterances used by the interrupt scenarios:
// zero stable delay, priority 1, and no same-priority cancellation.
func scenarioUtterance(text string) *announce.Utterance {
	return announce.New(announce.Text(text),
		announce.WithStableDelay(0),
		announce.WithPriority(1),
		announce.WithCancelSelf(false),
		announce.WithCancelOther(false),
	)
}

// scenarioSetup returns a queue over a speech-like announcer (priority
// changes interrupt in-flight speech) plus the recorded completion order.
func scenarioSetup() (*queue.Queue, *mockAnnouncer, *[]string) {
	m := newMockAnnouncer()
	m.interruptOnPriorityChange = true
	cfg := queue.DefaultConfig()
	cfg.StableDelay = 0
	q := queue.New(m, queue.WithConfig(cfg))

	completions := &[]string{}
	m.completion.Listen(func(_ *announce.Utterance, text string) {
		*completions = append(*completions, text)
	})
	return q, m, completions
}

// drain ticks until the queue and announcer are idle.
func drain(t *testing.T, q *queue.Queue, m *mockAnnouncer) {
	t.Helper()
	for i := 0; i < 100; i++ {
		if q.Length() == 0 && m.current == nil {
			return
		}
		q.Step(tick)
		m.finish()
	}
	t.Fatal("queue did not drain")
}

func assertOrder(t *testing.T, got []string, want ...string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("completions = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("completions = %v, want %v", got, want)
		}
	}
}

func TestScenarioFIFOBaseline(t *testing.T) {
	q, m, completions := scenarioSetup()

	q.AddToBack(scenarioUtterance("first"))
	q.AddToBack(scenarioUtterance("second"))
	q.AddToBack(scenarioUtterance("third"))

	drain(t, q, m)
	assertOrder(t, *completions, "first", "second", "third")
	if q.Length() != 0 {
		t.Fatalf("length = %d after draining", q.Length())
	}
}

func TestScenarioInterruptByBackQueuePriorityRaise(t *testing.T) {
	q, m, completions := scenarioSetup()

	u1 := scenarioUtterance("first")
	u2 := scenarioUtterance("second")
	u3 := scenarioUtterance("third")
	q.AddToBack(u1)
	q.AddToBack(u2)
	q.AddToBack(u3)

	q.Step(tick)
	if m.current != u1 {
		t.Fatal("first utterance not speaking")
	}

	// Raising a queued utterance's priority interrupts the one speaking.
	u2.Priority.Set(2)
	if m.current != nil {
		t.Fatal("first utterance not interrupted")
	}

	drain(t, q, m)
	assertOrder(t, *completions, "first", "second", "third")
}

func TestScenarioBackQueueHigherPriorityRemovesEarlier(t *testing.T) {
	q, m, completions := scenarioSetup()

	u3 := scenarioUtterance("third")
	q.AddToBack(scenarioUtterance("first"))
	q.AddToBack(scenarioUtterance("second"))
	q.AddToBack(u3)

	u3.Priority.Set(2)
	if q.Length() != 1 {
		t.Fatalf("length = %d, want 1 (earlier entries removed)", q.Length())
	}

	drain(t, q, m)
	assertOrder(t, *completions, "third")
}

func TestScenarioSelfPriorityDropWithQueuedSuccessor(t *testing.T) {
	q, m, completions := scenarioSetup()

	u1 := scenarioUtterance("first")
	u1.Priority.Set(10)
	q.AddToBack(u1)
	u1.Priority.Set(0)

	u3 := scenarioUtterance("third")
	q.AddToBack(u3)

	drain(t, q, m)
	assertOrder(t, *completions, "third")
	if len(m.announced) != 1 || m.announced[0] != u3 {
		t.Fatal("the out-ranked utterance was announced")
	}
}

func TestScenarioAnnounceImmediatelyRespectsFrontPriority(t *testing.T) {
	q, m, _ := scenarioSetup()

	u1 := scenarioUtterance("first")
	u1.Priority.Set(2)
	u2 := scenarioUtterance("second")
	q.AddToBack(u1)
	q.AddToBack(u2)

	u3 := scenarioUtterance("third")
	q.AnnounceImmediately(u3)

	if q.HasUtterance(u3) {
		t.Fatal("lower-priority immediate utterance survived the front entry")
	}
	if q.Length() != 2 {
		t.Fatalf("length = %d, want the original 2", q.Length())
	}
	if len(m.announced) != 0 {
		t.Fatal("the immediate utterance was spoken")
	}

	q.Step(tick)
	if m.current != u1 {
		t.Fatal("front utterance is not the one speaking")
	}
}

func TestScenarioEqualPriorityImmediateDoesNotInterrupt(t *testing.T) {
	q, m, completions := scenarioSetup()

	u1 := scenarioUtterance("first")
	u2 := scenarioUtterance("second")
	q.AddToBack(u1)
	q.AddToBack(u2)

	q.Step(tick)
	if m.current != u1 {
		t.Fatal("first utterance not speaking")
	}

	u3 := scenarioUtterance("third")
	q.AnnounceImmediately(u3)

	if m.current != u1 {
		t.Fatal("equal-priority immediate interrupted the speaking utterance")
	}
	entries := q.Entries()
	if len(entries) != 2 || entries[0].Utterance != u3 || entries[1].Utterance != u2 {
		t.Fatal("post-announce queue is not [third, second]")
	}

	m.finish()
	q.Step(tick)
	if m.current != u3 {
		t.Fatal("immediate utterance not announced after the first completed")
	}

	drain(t, q, m)
	assertOrder(t, *completions, "first", "third", "second")
}

func TestPrioritySubscriptionSurvivesReentrantMutation(t *testing.T) {
	q, m, _ := scenarioSetup()

	u1 := scenarioUtterance("first")
	u2 := scenarioUtterance("second")
	q.AddToBack(u1)
	q.AddToBack(u2)

	// A priority listener that re-enters the queue mid-prioritisation.
	u2.Priority.Listen(func(_, _ float64) {
		q.AddToBack(scenarioUtterance("reentrant"))
	})

	u2.Priority.Set(2)
	if q.Length() != 2 {
		t.Fatalf("length = %d, want 2 (second + reentrant)", q.Length())
	}

	drain(t, q, m)
	if m.current != nil {
		t.Fatal("announcer left speaking")
	}
}
