package component

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/kbukum/phrame/observability"
)

// mockComponent implements Component for testing.
type mockComponent struct {
	name     string
	startErr error
	stopErr  error
	order    *[]string
}

func (m *mockComponent) Name() string { return m.name }

func (m *mockComponent) Start(context.Context) error {
	if m.order != nil {
		*m.order = append(*m.order, "start:"+m.name)
	}
	return m.startErr
}

func (m *mockComponent) Stop(context.Context) error {
	if m.order != nil {
		*m.order = append(*m.order, "stop:"+m.name)
	}
	return m.stopErr
}

type checkedComponent struct {
	mockComponent
	status observability.HealthStatus
}

func (c *checkedComponent) CheckHealth(context.Context) observability.Health {
	return observability.Health{Name: c.name, Status: c.status}
}

func TestRegisterDuplicate(t *testing.T) {
	r := NewRegistry(nil)
	if err := r.Register(&mockComponent{name: "db"}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if err := r.Register(&mockComponent{name: "db"}); err == nil {
		t.Error("expected error for duplicate registration")
	}
	if got := r.Get("db"); got == nil || got.Name() != "db" {
		t.Errorf("expected registered component, got %v", got)
	}
	if r.Get("missing") != nil {
		t.Error("expected nil for unregistered component")
	}
}

func TestStartStopOrder(t *testing.T) {
	r := NewRegistry(nil)
	var order []string
	_ = r.Register(&mockComponent{name: "db", order: &order})
	_ = r.Register(&mockComponent{name: "redis", order: &order})
	_ = r.Register(&mockComponent{name: "server", order: &order})

	if err := r.StartAll(context.Background()); err != nil {
		t.Fatalf("StartAll failed: %v", err)
	}
	if err := r.StopAll(context.Background()); err != nil {
		t.Fatalf("StopAll failed: %v", err)
	}

	want := "start:db start:redis start:server stop:server stop:redis stop:db"
	if got := strings.Join(order, " "); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestStartAllStopsAtFailure(t *testing.T) {
	r := NewRegistry(nil)
	var order []string
	_ = r.Register(&mockComponent{name: "db", order: &order})
	_ = r.Register(&mockComponent{name: "redis", order: &order, startErr: errors.New("connection refused")})
	_ = r.Register(&mockComponent{name: "server", order: &order})

	err := r.StartAll(context.Background())
	if err == nil || !strings.Contains(err.Error(), "redis") {
		t.Fatalf("expected redis start error, got %v", err)
	}
	_ = r.StopAll(context.Background())

	want := "start:db start:redis stop:db"
	if got := strings.Join(order, " "); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestStopAllJoinsErrors(t *testing.T) {
	r := NewRegistry(nil)
	_ = r.Register(&mockComponent{name: "db", stopErr: errors.New("db busy")})
	_ = r.Register(&mockComponent{name: "server", stopErr: errors.New("server busy")})
	_ = r.StartAll(context.Background())

	err := r.StopAll(context.Background())
	if err == nil {
		t.Fatal("expected error from StopAll")
	}
	for _, want := range []string{"db busy", "server busy"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected %q in %q", want, err.Error())
		}
	}
}

func TestCheckersAndDescriptions(t *testing.T) {
	r := NewRegistry(nil)
	_ = r.Register(&mockComponent{name: "plain"})
	_ = r.Register(&checkedComponent{mockComponent: mockComponent{name: "db"}, status: observability.HealthStatusUp})
	_ = r.Register(&Func{ComponentName: "hub", Info: Description{Type: "sse", Details: "events"}})

	checkers := r.Checkers()
	if len(checkers) != 1 {
		t.Fatalf("expected 1 checker, got %d", len(checkers))
	}
	if h := checkers[0].CheckHealth(context.Background()); h.Name != "db" {
		t.Errorf("expected db checker, got %q", h.Name)
	}

	descs := r.Descriptions()
	if len(descs) != 3 {
		t.Fatalf("expected 3 descriptions, got %d", len(descs))
	}
	if descs[0].Name != "plain" || descs[0].Type != "component" {
		t.Errorf("unexpected default description: %+v", descs[0])
	}
	if descs[2].Name != "hub" || descs[2].Details != "events" {
		t.Errorf("unexpected func description: %+v", descs[2])
	}
}

func TestRunner(t *testing.T) {
	started := make(chan struct{})
	r := NewRunner("trigger", "every 30m", func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	})

	if h := r.CheckHealth(context.Background()); h.Status != observability.HealthStatusDown {
		t.Errorf("expected down before start, got %s", h.Status)
	}

	ctx, cancel := context.WithCancel(context.Background())
	if err := r.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	// Canceling the start context must not end the loop.
	cancel()
	<-started
	if h := r.CheckHealth(context.Background()); h.Status != observability.HealthStatusUp {
		t.Errorf("expected up while running, got %s (%s)", h.Status, h.Message)
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), time.Second)
	defer stopCancel()
	if err := r.Stop(stopCtx); err != nil {
		t.Errorf("expected clean stop, got %v", err)
	}
}

func TestRunnerFailure(t *testing.T) {
	r := NewRunner("inbox", "", func(context.Context) error {
		return errors.New("watch failed")
	})
	_ = r.Start(context.Background())

	if err := r.Stop(context.Background()); err == nil || err.Error() != "watch failed" {
		t.Errorf("expected loop error from Stop, got %v", err)
	}
	h := r.CheckHealth(context.Background())
	if h.Status != observability.HealthStatusDown || h.Message != "watch failed" {
		t.Errorf("unexpected health: %+v", h)
	}
}

func TestStartAllSkipsStarted(t *testing.T) {
	r := NewRegistry(nil)
	var order []string
	_ = r.Register(&mockComponent{name: "db", order: &order})
	_ = r.StartAll(context.Background())
	_ = r.Register(&mockComponent{name: "server", order: &order})
	_ = r.StartAll(context.Background())

	want := "start:db start:server"
	if got := strings.Join(order, " "); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}
