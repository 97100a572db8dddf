package lifecycle

import (
	"context"
	"errors"
	"testing"
)

type fakeService struct {
	name     string
	startErr error
	stopErr  error
	log      *[]string
}

func (f *fakeService) Name() string { return f.name }

func (f *fakeService) Start(context.Context) error {
	*f.log = append(*f.log, "start:"+f.name)
	return f.startErr
}

func (f *fakeService) Stop(context.Context) error {
	*f.log = append(*f.log, "stop:"+f.name)
	return f.stopErr
}

func TestManager_StartStopOrder(t *testing.T) {
	var log []string
	m := New()
	m.Add(&fakeService{name: "a", log: &log})
	m.Add(&fakeService{name: "b", log: &log})
	if err := m.StartAll(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := m.StopAll(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}
	want := []string{"start:a", "start:b", "stop:b", "stop:a"}
	if len(log) != len(want) {
		t.Fatalf("log %v", log)
	}
	for i := range want {
		if log[i] != want[i] {
			t.Fatalf("log %v, want %v", log, want)
		}
	}
}

func TestManager_StartFailureStopsStarted(t *testing.T) {
	var log []string
	boom := errors.New("boom")
	m := New()
	m.Add(&fakeService{name: "a", log: &log})
	m.Add(&fakeService{name: "b", startErr: boom, log: &log})
	m.Add(&fakeService{name: "c", log: &log})
	if err := m.StartAll(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("got %v", err)
	}
	for _, entry := range log {
		if entry == "start:c" {
			t.Fatal("service after the failure was started")
		}
	}
	found := false
	for _, entry := range log {
		if entry == "stop:a" {
			found = true
		}
	}
	if !found {
		t.Fatal("started service was not stopped after failure")
	}
}

func TestManager_StopCollectsErrors(t *testing.T) {
	var log []string
	m := New()
	m.Add(&fakeService{name: "a", stopErr: errors.New("a failed"), log: &log})
	m.Add(&fakeService{name: "b", stopErr: errors.New("b failed"), log: &log})
	if err := m.StartAll(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	err := m.StopAll(context.Background())
	if err == nil {
		t.Fatal("stop errors swallowed")
	}
}
