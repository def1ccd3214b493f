package event

import (
	"testing"
	"time"

	"github.com/appdex/appdex/internal/catalog/app"
	"github.com/appdex/appdex/internal/catalog/errs"
)

func TestClassifyNetwork(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Severity
	}{
		{"no network degrades", errs.New(errs.CodeNoNetwork, "offline"), SeverityWarning},
		{"download failure degrades", errs.New(errs.CodeDownloadFailed, "dl"), SeverityWarning},
		{"invalid format escalates", errs.New(errs.CodeInvalidFormat, "corrupt"), SeverityFatal},
		{"write failure escalates", errs.New(errs.CodeWriteFailed, "disk"), SeverityFatal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyNetwork(tt.err); got != tt.want {
				t.Errorf("ClassifyNetwork() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestReporterAccumulates(t *testing.T) {
	r := NewReporter()
	if r.HasFatal() {
		t.Fatal("empty reporter must not report fatal")
	}

	r.Report(Failure{Backend: "a", Severity: SeverityWarning, Err: errs.New(errs.CodeNoNetwork, "x")})
	r.Report(Failure{Backend: "b", Severity: SeverityFatal, Err: errs.New(errs.CodeInvalidFormat, "y")})

	failures := r.Failures()
	if len(failures) != 2 {
		t.Fatalf("expected 2 failures, got %d", len(failures))
	}
	if !r.HasFatal() {
		t.Error("fatal event not detected")
	}

	// the returned slice is a snapshot
	failures[0].Backend = "mutated"
	if r.Failures()[0].Backend != "a" {
		t.Error("Failures must return a copy")
	}
}

func TestPendingBusNotifiesAllSubscribers(t *testing.T) {
	bus := NewPendingBus()

	got := make(chan int, 2)
	for i := 0; i < 2; i++ {
		bus.Subscribe(func(pending *app.List) {
			got <- pending.Len()
		})
	}

	pending := app.NewList()
	pending.Add(app.New(app.ID{Name: "vim"}))
	bus.Publish(pending)

	for i := 0; i < 2; i++ {
		select {
		case n := <-got:
			if n != 1 {
				t.Errorf("listener saw %d pending apps, want 1", n)
			}
		case <-time.After(5 * time.Second):
			t.Fatal("listener never notified")
		}
	}
}

func TestPendingBusNilListenerIgnored(t *testing.T) {
	bus := NewPendingBus()
	bus.Subscribe(nil)
	bus.Publish(app.NewList()) // must not panic
}
