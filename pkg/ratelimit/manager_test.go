package ratelimit

import (
	"testing"

	"github.com/wisbric/ghingest/internal/telemetry"
	"github.com/wisbric/ghingest/pkg/kv"
)

func TestManagerForDefaultsToCore(t *testing.T) {
	m := NewManager(kv.NewMemory(), telemetry.NewLogger("text", "debug"))

	c1 := m.For("")
	c2 := m.For("core")
	if c1 != c2 {
		t.Error("expected empty resource to alias \"core\"")
	}
}

func TestManagerForCachesPerResource(t *testing.T) {
	m := NewManager(kv.NewMemory(), telemetry.NewLogger("text", "debug"))

	core1 := m.For("core")
	core2 := m.For("core")
	search := m.For("search")

	if core1 != core2 {
		t.Error("expected repeated For(\"core\") to return the same Coordinator")
	}
	if core1 == search {
		t.Error("expected distinct resource classes to get distinct Coordinators")
	}
}
