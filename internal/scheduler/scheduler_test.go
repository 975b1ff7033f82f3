// internal/scheduler/scheduler_test.go
package scheduler

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/user/vendbot/internal/types"
)

func TestSchedulerFiresJob(t *testing.T) {
	var fires atomic.Int32
	sched := New(Job{
		Name:     "every-second",
		Schedule: "* * * * * *",
		Run: func(context.Context) error {
			fires.Add(1)
			return nil
		},
	})
	if n := sched.Start(context.Background()); n != 1 {
		t.Fatalf("expected 1 registered job, got %d", n)
	}
	defer sched.Stop()

	// Wait up to 2.5 seconds for at least one fire
	deadline := time.After(2500 * time.Millisecond)
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-deadline:
			t.Fatalf("job did not fire within 2.5s, fires=%d", fires.Load())
		case <-ticker.C:
			if fires.Load() > 0 {
				return
			}
		}
	}
}

func TestSchedulerSkipsInvalidAndEmpty(t *testing.T) {
	run := func(context.Context) error { return nil }
	sched := New(
		Job{Name: "bad", Schedule: "not a cron", Run: run},
		Job{Name: "disabled", Schedule: "", Run: run},
		Job{Name: "ok", Schedule: "@daily", Run: run},
	)
	if n := sched.Start(context.Background()); n != 1 {
		t.Errorf("expected only the valid job to register, got %d", n)
	}
	sched.Stop()
}

func TestSchedulerReload(t *testing.T) {
	sched := New(Job{Name: "ok", Schedule: "0 21 * * *", Run: func(context.Context) error { return nil }})
	sched.Start(context.Background())
	if n := sched.Reload(context.Background()); n != 1 {
		t.Errorf("expected 1 job after reload, got %d", n)
	}
	sched.Stop()
}

type fakeLedger struct {
	summary   types.SalesSummary
	since     time.Time
	pruneCut  time.Time
	pruneHits int
}

func (l *fakeLedger) Claim(context.Context, *types.Sale) (bool, error) { return true, nil }
func (l *fakeLedger) Release(context.Context, types.LinkID) error      { return nil }
func (l *fakeLedger) List(context.Context, int) ([]*types.Sale, error) { return nil, nil }
func (l *fakeLedger) Summarize(_ context.Context, since time.Time) (types.SalesSummary, error) {
	l.since = since
	return l.summary, nil
}
func (l *fakeLedger) Prune(_ context.Context, before time.Time) (int64, error) {
	l.pruneHits++
	l.pruneCut = before
	return 3, nil
}

type textNotifier struct {
	to   types.ActorID
	text string
}

func (n *textNotifier) SendText(_ context.Context, to types.ActorID, text string) error {
	n.to, n.text = to, text
	return nil
}
func (n *textNotifier) SendVideo(context.Context, types.ActorID, string, string) error { return nil }
func (n *textNotifier) SendPhoto(context.Context, types.ActorID, *types.VisualCode, string) error {
	return nil
}

func TestDigestJob(t *testing.T) {
	ledger := &fakeLedger{summary: types.SalesSummary{Count: 3, TotalMinor: 89700}}
	notifier := &textNotifier{}

	job := DigestJob("0 21 * * *", ledger, notifier, 42)
	if err := job.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if notifier.to != 42 {
		t.Errorf("expected digest to operator, got %d", notifier.to)
	}
	if !strings.Contains(notifier.text, "Orders: 3") || !strings.Contains(notifier.text, "₹897") {
		t.Errorf("unexpected digest %q", notifier.text)
	}
	if d := time.Since(ledger.since); d < 23*time.Hour || d > 25*time.Hour {
		t.Errorf("expected a 24h window, got %v", d)
	}
}

func TestPruneJob(t *testing.T) {
	ledger := &fakeLedger{}
	job := PruneJob("@daily", ledger, 90)
	if job.Schedule != "@daily" {
		t.Errorf("expected schedule kept, got %q", job.Schedule)
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if d := time.Since(ledger.pruneCut); d < 89*24*time.Hour || d > 91*24*time.Hour {
		t.Errorf("expected 90 day cutoff, got %v", d)
	}
}

func TestPruneJobDisabled(t *testing.T) {
	job := PruneJob("@daily", &fakeLedger{}, 0)
	if job.Schedule != "" {
		t.Errorf("expected zero retention to disable the job, got %q", job.Schedule)
	}
}
