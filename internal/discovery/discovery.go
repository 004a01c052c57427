// Package discovery implements §4.D: composite service discovery over two
// strategies, deduplicated by name, feeding auto-registration into the
// registry. Go has no runtime package introspection, so "module scan" is
// rendered as a static table of constructor factories registered at process
// init time (the nearest idiomatic equivalent to "import a configured
// package tree and collect concrete classes") rather than reflection over
// an import path. Grounded on the teacher's keyword-dispatch idiom in
// internal/doctor/doctor.go (checkExternalTools/checkNetwork dispatch by
// string match) and internal/agent/registry.go's "classify by name".
package discovery

import (
	"log/slog"
	"strings"

	"github.com/kickai/kickai/internal/config"
)

var (
	coreKeywords    = []string{"store", "database", "container", "factory"}
	externalKeywords = []string{"telegram", "firebase", "llm", "client", "provider"}
	featureKeywords = []string{"player", "team", "match", "attendance", "payment"}

	// moduleScanSuffixes names the concrete-type suffixes a Module scan
	// factory must carry to be considered a service (§4.D).
	moduleScanSuffixes = []string{"Service", "Repository", "Manager", "Handler", "Controller", "Provider", "Client", "Gateway", "Adapter"}
	moduleScanExcludedPrefixes = []string{"Abstract", "Test", "Mock"}
)

// Classify maps a service name to a ServiceType using the shared keyword
// heuristic (§4.D, reused identically by both strategies).
func Classify(name string) config.ServiceType {
	n := strings.ToLower(name)
	for _, kw := range coreKeywords {
		if strings.Contains(n, kw) {
			return config.ServiceTypeCore
		}
	}
	for _, kw := range externalKeywords {
		if strings.Contains(n, kw) {
			return config.ServiceTypeExternal
		}
	}
	for _, kw := range featureKeywords {
		if strings.Contains(n, kw) {
			return config.ServiceTypeFeature
		}
	}
	return config.ServiceTypeUtility
}

// Discovered is one candidate found by a strategy, pending deduplication
// and auto-registration.
type Discovered struct {
	Definition config.ServiceDefinition
	Instance   any
}

// ContainerEntry is one service already known to the in-process container
// (e.g. constructed in main and handed to discovery for classification).
type ContainerEntry struct {
	Name     string
	Instance any
}

// ContainerScan classifies services already constructed in-process.
func ContainerScan(entries []ContainerEntry) []Discovered {
	out := make([]Discovered, 0, len(entries))
	for _, e := range entries {
		out = append(out, Discovered{
			Definition: config.ServiceDefinition{Name: e.Name, ServiceType: Classify(e.Name)},
			Instance:   e.Instance,
		})
	}
	return out
}

// ModuleFactory is one statically registered constructor candidate for the
// module scan strategy: a named, concrete factory that module scan filters
// by suffix/prefix before instantiating.
type ModuleFactory struct {
	TypeName string // e.g. "PlayerService", "TelegramClient"
	Build    func() any
}

func isModuleCandidate(typeName string) bool {
	for _, prefix := range moduleScanExcludedPrefixes {
		if strings.HasPrefix(typeName, prefix) {
			return false
		}
	}
	for _, suffix := range moduleScanSuffixes {
		if strings.HasSuffix(typeName, suffix) {
			return true
		}
	}
	return false
}

// ModuleScan filters the supplied factories down to concrete candidates
// (suffix allow-list, prefix deny-list) and builds each one, classifying
// the result by the same keyword heuristic as ContainerScan.
func ModuleScan(factories []ModuleFactory) []Discovered {
	out := make([]Discovered, 0, len(factories))
	for _, f := range factories {
		if !isModuleCandidate(f.TypeName) {
			continue
		}
		out = append(out, Discovered{
			Definition: config.ServiceDefinition{Name: f.TypeName, ServiceType: Classify(f.TypeName)},
			Instance:   f.Build(),
		})
	}
	return out
}

// Registrar is the subset of the registry's contract discovery needs. It is
// defined here (rather than importing *registry.Registry directly) so the
// registry package never has to import discovery back.
type Registrar interface {
	Register(def config.ServiceDefinition, instance any) error
}

// AutoRegister runs both strategies, deduplicates by name (container scan
// wins ties, since in-process instances are considered authoritative over
// statically-discovered ones), and registers the result. Duplicates are
// logged at debug level and otherwise ignored, matching §4.D.
func AutoRegister(reg Registrar, logger *slog.Logger, containerEntries []ContainerEntry, moduleFactories []ModuleFactory) error {
	if logger == nil {
		logger = slog.Default()
	}

	seen := make(map[string]bool)
	var ordered []Discovered

	for _, d := range ContainerScan(containerEntries) {
		if seen[d.Definition.Name] {
			logger.Debug("discovery: duplicate service ignored", "name", d.Definition.Name, "strategy", "container")
			continue
		}
		seen[d.Definition.Name] = true
		ordered = append(ordered, d)
	}
	for _, d := range ModuleScan(moduleFactories) {
		if seen[d.Definition.Name] {
			logger.Debug("discovery: duplicate service ignored", "name", d.Definition.Name, "strategy", "module")
			continue
		}
		seen[d.Definition.Name] = true
		ordered = append(ordered, d)
	}

	for _, d := range ordered {
		if err := reg.Register(d.Definition, d.Instance); err != nil {
			return err
		}
	}
	return nil
}
