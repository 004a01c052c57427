package discovery

import (
	"testing"

	"github.com/kickai/kickai/internal/config"
)

func TestClassifyCore(t *testing.T) {
	for _, name := range []string{"document_store", "db_factory", "service_container"} {
		if got := Classify(name); got != config.ServiceTypeCore {
			t.Fatalf("Classify(%q) = %q, want core", name, got)
		}
	}
}

func TestClassifyExternal(t *testing.T) {
	if got := Classify("telegram_client"); got != config.ServiceTypeExternal {
		t.Fatalf("Classify(telegram_client) = %q, want external", got)
	}
}

func TestClassifyFeature(t *testing.T) {
	if got := Classify("player_service"); got != config.ServiceTypeFeature {
		t.Fatalf("Classify(player_service) = %q, want feature", got)
	}
}

func TestClassifyUtilityFallback(t *testing.T) {
	if got := Classify("housekeeping_task"); got != config.ServiceTypeUtility {
		t.Fatalf("Classify(housekeeping_task) = %q, want utility", got)
	}
}

func TestModuleScanFiltersBySuffixAndPrefix(t *testing.T) {
	factories := []ModuleFactory{
		{TypeName: "PlayerService", Build: func() any { return "player" }},
		{TypeName: "AbstractRepository", Build: func() any { return "abstract" }},
		{TypeName: "MockClient", Build: func() any { return "mock" }},
		{TypeName: "TestHandler", Build: func() any { return "test" }},
		{TypeName: "TelegramClient", Build: func() any { return "telegram" }},
		{TypeName: "PlainStruct", Build: func() any { return "plain" }},
	}

	discovered := ModuleScan(factories)
	if len(discovered) != 2 {
		t.Fatalf("expected 2 candidates (PlayerService, TelegramClient), got %d: %+v", len(discovered), discovered)
	}
	names := map[string]bool{}
	for _, d := range discovered {
		names[d.Definition.Name] = true
	}
	if !names["PlayerService"] || !names["TelegramClient"] {
		t.Fatalf("unexpected candidates: %+v", discovered)
	}
}

type fakeRegistrar struct {
	registered []config.ServiceDefinition
}

func (f *fakeRegistrar) Register(def config.ServiceDefinition, instance any) error {
	f.registered = append(f.registered, def)
	return nil
}

func TestAutoRegisterDeduplicatesContainerOverModule(t *testing.T) {
	reg := &fakeRegistrar{}
	container := []ContainerEntry{{Name: "PlayerService", Instance: "from-container"}}
	modules := []ModuleFactory{
		{TypeName: "PlayerService", Build: func() any { return "from-module" }},
		{TypeName: "TelegramClient", Build: func() any { return "telegram" }},
	}

	if err := AutoRegister(reg, nil, container, modules); err != nil {
		t.Fatalf("AutoRegister() error = %v", err)
	}
	if len(reg.registered) != 2 {
		t.Fatalf("expected 2 registrations, got %d: %+v", len(reg.registered), reg.registered)
	}
}
