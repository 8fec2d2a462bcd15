package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/nao1215/listingscan/internal/model"
)

// mockStep is a test helper that implements the Step interface.
type mockStep struct {
	name      string
	doFunc    func(ctx context.Context, run *model.Run) error
	callCount int
}

// Do implements Step.Do.
func (m *mockStep) Do(ctx context.Context, run *model.Run) error {
	m.callCount++
	if m.doFunc != nil {
		return m.doFunc(ctx, run)
	}
	return nil
}

// Name implements Step.Name.
func (m *mockStep) Name() string {
	return m.name
}

func newTestRun() *model.Run {
	return model.NewRun(model.SiteEarth911, "https://search.earth911.com/")
}

// TestPipelineNew tests the Pipeline constructor.
func TestPipelineNew(t *testing.T) {
	t.Parallel()

	t.Run("creates pipeline with default settings", func(t *testing.T) {
		t.Parallel()

		p := New()
		if got := len(p.StepNames()); got != 0 {
			t.Errorf("expected 0 steps, got %d", got)
		}
		if p.continueOnError {
			t.Error("expected continueOnError to be false")
		}
	})

	t.Run("applies WithContinueOnError option", func(t *testing.T) {
		t.Parallel()

		p := New(WithContinueOnError(true))
		if !p.continueOnError {
			t.Error("expected continueOnError to be true")
		}
	})

	t.Run("maintains step order", func(t *testing.T) {
		t.Parallel()

		p := New()
		p.AddStep(&mockStep{name: "first"})
		p.AddSteps(&mockStep{name: "second"}, &mockStep{name: "third"})

		if diff := cmp.Diff([]string{"first", "second", "third"}, p.StepNames()); diff != "" {
			t.Errorf("step names mismatch (-want +got):\n%s", diff)
		}
	})
}

// TestPipelineExecute tests pipeline execution.
func TestPipelineExecute(t *testing.T) {
	t.Parallel()

	t.Run("executes all steps in order", func(t *testing.T) {
		t.Parallel()

		order := make([]string, 0)
		p := New()
		for _, name := range []string{"discover", "detail"} {
			p.AddStep(&mockStep{name: name, doFunc: func(context.Context, *model.Run) error {
				order = append(order, name)
				return nil
			}})
		}

		run := newTestRun()
		if err := p.Execute(context.Background(), run); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if diff := cmp.Diff([]string{"discover", "detail"}, order); diff != "" {
			t.Errorf("order mismatch (-want +got):\n%s", diff)
		}
		if diff := cmp.Diff([]string{"discover", "detail"}, run.PerformedSteps); diff != "" {
			t.Errorf("performed steps mismatch (-want +got):\n%s", diff)
		}
		if run.FinishedAt.IsZero() {
			t.Error("expected finish time to be set")
		}
	})

	t.Run("stops on first error", func(t *testing.T) {
		t.Parallel()

		stepErr := errors.New("search input not found")
		second := &mockStep{name: "second"}
		p := New()
		p.AddSteps(&mockStep{name: "first", doFunc: func(context.Context, *model.Run) error {
			return stepErr
		}}, second)

		run := newTestRun()
		err := p.Execute(context.Background(), run)
		if !errors.Is(err, stepErr) {
			t.Errorf("expected step error, got %v", err)
		}
		if second.callCount != 0 {
			t.Errorf("expected second step to be skipped, called %d times", second.callCount)
		}
		if run.ErrorMessage != "search input not found" {
			t.Errorf("expected error on run, got %q", run.ErrorMessage)
		}
		if run.Cancelled {
			t.Error("expected run not to be marked cancelled")
		}
	})

	t.Run("continues on error when configured", func(t *testing.T) {
		t.Parallel()

		second := &mockStep{name: "second"}
		p := New(WithContinueOnError(true))
		p.AddSteps(&mockStep{name: "first", doFunc: func(context.Context, *model.Run) error {
			return errors.New("boom")
		}}, second)

		run := newTestRun()
		if err := p.Execute(context.Background(), run); err != nil {
			t.Errorf("expected nil error, got %v", err)
		}
		if second.callCount != 1 {
			t.Errorf("expected second step to run once, got %d", second.callCount)
		}
		if !run.Failed() {
			t.Error("expected run to keep the failure")
		}
	})

	t.Run("cancelled context skips remaining steps", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		second := &mockStep{name: "second"}
		p := New()
		p.AddSteps(&mockStep{name: "first", doFunc: func(context.Context, *model.Run) error {
			cancel()
			return nil
		}}, second)

		run := newTestRun()
		err := p.Execute(ctx, run)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if second.callCount != 0 {
			t.Error("expected second step not to run")
		}
		if !run.Cancelled {
			t.Error("expected run to be marked cancelled")
		}
		if run.Failed() {
			t.Error("expected cancellation not to be recorded as a failure")
		}
	})

	t.Run("step interrupted by cancellation marks the run", func(t *testing.T) {
		t.Parallel()

		p := New(WithContinueOnError(true))
		p.AddStep(&mockStep{name: "detail", doFunc: func(context.Context, *model.Run) error {
			return context.DeadlineExceeded
		}})

		run := newTestRun()
		if err := p.Execute(context.Background(), run); !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("expected deadline error, got %v", err)
		}
		if !run.Cancelled {
			t.Error("expected run to be marked cancelled")
		}
	})
}
