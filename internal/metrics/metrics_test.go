package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestRecorderNoOpsWithoutRegister(t *testing.T) {
	regOK.Store(false)
	r := Recorder{}
	r.IncStart("a")
	r.IncStop("a")
	r.IncRecycle("a", "memory")
	r.IncRestart("a")
	r.IncSpawnFailure("a")
	r.SetLiveCount(3)
	r.ObserveMemoryMB("a", 12.5)
	r.ObserveUptimeSeconds("a", 1.0)
}

func TestRegisterIsIdempotent(t *testing.T) {
	regOK.Store(false)
	reg := prometheus.NewRegistry()
	if err := Register(reg); err != nil {
		t.Fatalf("first Register: %v", err)
	}
	if err := Register(reg); err != nil {
		t.Fatalf("second Register: %v", err)
	}
}

func TestRecorderRecordsAfterRegister(t *testing.T) {
	regOK.Store(false)
	reg := prometheus.NewRegistry()
	if err := Register(reg); err != nil {
		t.Fatalf("Register: %v", err)
	}
	r := Recorder{}
	r.IncStart("web")
	r.SetLiveCount(1)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	if len(mfs) == 0 {
		t.Fatal("expected at least one metric family after recording")
	}
}
