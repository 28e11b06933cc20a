package library

import "testing"

func TestPluginRegistryVersion(t *testing.T) {
	registry := NewPluginRegistry(
		RegisteredPlugin{Name: "analyzer", Version: "1.0.0"},
		RegisteredPlugin{Name: "classifier", Version: "0.3.1", Capabilities: Capabilities{CapabilityVector}},
	)

	v, ok := registry.Version("analyzer")
	if !ok || v != "1.0.0" {
		t.Errorf("Version(analyzer) = %q, %v", v, ok)
	}
	if _, ok := registry.Version("unknown"); ok {
		t.Error("unknown plugin resolved to a version")
	}

	p, ok := registry.Lookup("classifier")
	if !ok || !p.Capabilities.Contains(CapabilityVector) {
		t.Errorf("Lookup(classifier) = %+v, %v", p, ok)
	}
}

func TestPluginRegistryLastEntryWins(t *testing.T) {
	registry := NewPluginRegistry(
		RegisteredPlugin{Name: "analyzer", Version: "1.0.0"},
		RegisteredPlugin{Name: "analyzer", Version: "2.0.0"},
	)
	if v, _ := registry.Version("analyzer"); v != "2.0.0" {
		t.Errorf("Version = %q, want the later registration", v)
	}
}

func TestCapabilitiesContains(t *testing.T) {
	caps := Capabilities{CapabilityFilter, CapabilityStream}
	if !caps.Contains(CapabilityFilter) {
		t.Error("Contains missed a present capability")
	}
	if caps.Contains(CapabilityVector) {
		t.Error("Contains reported an absent capability")
	}
}
