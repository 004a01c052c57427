// Package validator implements §4.G: the seven-phase, fail-fast startup
// validator. No teacher file runs a named multi-phase validation sequence;
// this is grounded on the teacher's general "phase function returning a
// result, aggregated by a runner" shape (internal/doctor/doctor.go's
// []func(...) CheckResult loop), generalized from six flat checks to seven
// named, order-dependent, fail-fast phases.
package validator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// PhaseStatus is the outcome of one validation phase.
type PhaseStatus string

const (
	StatusOK      PhaseStatus = "ok"
	StatusWarning PhaseStatus = "warning"
	StatusFailed  PhaseStatus = "failed"
)

// PhaseResult is what one phase function returns.
type PhaseResult struct {
	Phase   string
	Status  PhaseStatus
	Message string
	Details map[string]string
}

// Report is the aggregated result of running every phase up to and
// including the first failure.
type Report struct {
	Results []PhaseResult
	Ready   bool
}

// Phase is one named validation step. Startup halts at the first phase
// returning StatusFailed.
type Phase struct {
	Name string
	Run  func(ctx context.Context) PhaseResult
}

// Run executes phases in order, stopping at the first StatusFailed. The
// returned Report's Ready field is true only if every phase ran and none
// failed.
func Run(ctx context.Context, phases []Phase) Report {
	var report Report
	for _, p := range phases {
		res := p.Run(ctx)
		res.Phase = p.Name
		report.Results = append(report.Results, res)
		if res.Status == StatusFailed {
			report.Ready = false
			return report
		}
	}
	report.Ready = true
	return report
}

// PreInitPhase checks required environment variables, a sane home
// directory, and that a temp file can actually be written — §4.G phase 1.
func PreInitPhase(requiredEnv []string, homeDir string) Phase {
	return Phase{
		Name: "pre_init",
		Run: func(ctx context.Context) PhaseResult {
			details := map[string]string{}
			var missing []string
			for _, key := range requiredEnv {
				if os.Getenv(key) == "" {
					missing = append(missing, key)
				}
			}
			if len(missing) > 0 {
				return PhaseResult{Status: StatusFailed, Message: fmt.Sprintf("missing required environment variables: %v", missing), Details: details}
			}

			if homeDir == "" {
				return PhaseResult{Status: StatusFailed, Message: "home directory is empty"}
			}
			if err := os.MkdirAll(homeDir, 0o755); err != nil {
				return PhaseResult{Status: StatusFailed, Message: fmt.Sprintf("cannot create home directory: %v", err)}
			}

			probe := filepath.Join(homeDir, ".startup_probe")
			if err := os.WriteFile(probe, []byte("ok"), 0o644); err != nil {
				return PhaseResult{Status: StatusFailed, Message: fmt.Sprintf("home directory is not writable: %v", err)}
			}
			os.Remove(probe)

			return PhaseResult{Status: StatusOK, Message: "pre-init checks passed", Details: details}
		},
	}
}

// ConfigurationPhase wraps an already-attempted config load: settings load,
// logging init, and any domain-constant validation the caller performed
// before constructing this phase — §4.G phase 2.
func ConfigurationPhase(loadErr error) Phase {
	return Phase{
		Name: "configuration",
		Run: func(ctx context.Context) PhaseResult {
			if loadErr != nil {
				return PhaseResult{Status: StatusFailed, Message: fmt.Sprintf("configuration invalid: %v", loadErr)}
			}
			return PhaseResult{Status: StatusOK, Message: "configuration loaded and validated"}
		},
	}
}

// CoreDependenciesPhase checks the store client and any other mandatory
// constructed dependency — §4.G phase 3.
func CoreDependenciesPhase(storePing func(ctx context.Context) error) Phase {
	return Phase{
		Name: "core_dependencies",
		Run: func(ctx context.Context) PhaseResult {
			if storePing == nil {
				return PhaseResult{Status: StatusFailed, Message: "store client was never constructed"}
			}
			if err := storePing(ctx); err != nil {
				return PhaseResult{Status: StatusFailed, Message: fmt.Sprintf("store unreachable: %v", err)}
			}
			return PhaseResult{Status: StatusOK, Message: "store client initialized and reachable"}
		},
	}
}

// RegistriesPhase confirms the command/tool registries and agent factory
// exist — §4.G phase 4. Callers pass in the counts they already computed
// when constructing these components.
func RegistriesPhase(commandCount, toolCount int, agentFactoryReady bool) Phase {
	return Phase{
		Name: "registries",
		Run: func(ctx context.Context) PhaseResult {
			if commandCount == 0 {
				return PhaseResult{Status: StatusFailed, Message: "command registry is empty"}
			}
			if toolCount == 0 {
				return PhaseResult{Status: StatusFailed, Message: "tool registry is empty"}
			}
			if !agentFactoryReady {
				return PhaseResult{Status: StatusFailed, Message: "agent factory could not be constructed"}
			}
			return PhaseResult{
				Status:  StatusOK,
				Message: "registries populated",
				Details: map[string]string{"commands": fmt.Sprint(commandCount), "tools": fmt.Sprint(toolCount)},
			}
		},
	}
}

// ServiceHealthSummary is the bulk-check result this phase consumes.
type ServiceHealthSummary struct {
	Healthy          int
	Unhealthy        int
	UnhealthyCoreNames []string
}

// ServicesPhase tolerates transient failures in non-core services but
// hard-fails when any core service is unhealthy — §4.G phase 5.
func ServicesPhase(summary ServiceHealthSummary) Phase {
	return Phase{
		Name: "services",
		Run: func(ctx context.Context) PhaseResult {
			if len(summary.UnhealthyCoreNames) > 0 {
				return PhaseResult{Status: StatusFailed, Message: fmt.Sprintf("unhealthy core service(s): %v", summary.UnhealthyCoreNames)}
			}
			status := StatusOK
			msg := fmt.Sprintf("services discovered and checked: %d healthy, %d unhealthy", summary.Healthy, summary.Unhealthy)
			if summary.Unhealthy > 0 {
				status = StatusWarning
			}
			return PhaseResult{Status: status, Message: msg}
		},
	}
}

// AgentsPhase confirms a sample agent can be created and the message
// router constructed — §4.G phase 6.
func AgentsPhase(sampleAgentErr, routerErr error) Phase {
	return Phase{
		Name: "agents",
		Run: func(ctx context.Context) PhaseResult {
			if sampleAgentErr != nil {
				return PhaseResult{Status: StatusFailed, Message: fmt.Sprintf("sample agent creation failed: %v", sampleAgentErr)}
			}
			if routerErr != nil {
				return PhaseResult{Status: StatusFailed, Message: fmt.Sprintf("message router construction failed: %v", routerErr)}
			}
			return PhaseResult{Status: StatusOK, Message: "agents and router constructed"}
		},
	}
}

// PostInitPhase checks the readiness flag, soft memory/CPU thresholds, and
// an integration smoke test (looking up /help) — §4.G phase 7. Threshold
// breaches are warnings, never failures.
func PostInitPhase(helpCommandFound bool, memoryMB, memorySoftLimitMB float64) Phase {
	return Phase{
		Name: "post_init",
		Run: func(ctx context.Context) PhaseResult {
			if !helpCommandFound {
				return PhaseResult{Status: StatusFailed, Message: "integration smoke test failed: /help command not found"}
			}
			if memorySoftLimitMB > 0 && memoryMB > memorySoftLimitMB {
				return PhaseResult{Status: StatusWarning, Message: fmt.Sprintf("memory usage %.1fMB exceeds soft limit %.1fMB", memoryMB, memorySoftLimitMB)}
			}
			return PhaseResult{Status: StatusOK, Message: "post-init checks passed", Details: map[string]string{"checked_at": time.Now().UTC().Format(time.RFC3339)}}
		},
	}
}
