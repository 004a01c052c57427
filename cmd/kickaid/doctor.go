package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/kickai/kickai/internal/config"
	"github.com/kickai/kickai/internal/store/sqlitestore"
	"github.com/kickai/kickai/internal/validator"
)

// doctorReport is the JSON/text shape for `kickaid doctor`, grounded on the
// teacher's cmd/goclaw/doctor.go diagnostic report. It reuses the startup
// validator's own phases rather than a parallel set of checks, so "doctor"
// and "does the daemon actually start" can never silently drift apart.
type doctorReport struct {
	Timestamp time.Time               `json:"timestamp"`
	Results   []validator.PhaseResult `json:"results"`
	Ready     bool                    `json:"ready"`
}

func runDoctorCommand(ctx context.Context, args []string) int {
	jsonOutput := false
	for _, a := range args {
		if a == "-json" || a == "--json" {
			jsonOutput = true
		}
	}

	cfg, cfgErr := config.Load()

	var storePing func(context.Context) error
	if cfgErr == nil {
		if st, err := sqlitestore.Open(cfg.HomeDir + "/kickai.db"); err == nil {
			defer st.Close()
			storePing = st.Ping
		}
	}

	homeDir := cfg.HomeDir
	if homeDir == "" {
		homeDir = config.HomeDir()
	}

	report := validator.Run(ctx, []validator.Phase{
		validator.PreInitPhase([]string{"FIREBASE_PROJECT_ID", "KICKAI_INVITE_SECRET_KEY"}, homeDir),
		validator.ConfigurationPhase(cfgErr),
		validator.CoreDependenciesPhase(storePing),
	})

	diag := doctorReport{Timestamp: time.Now().UTC(), Results: report.Results, Ready: report.Ready}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(diag); err != nil {
			fmt.Fprintf(os.Stderr, "error encoding json: %v\n", err)
			return 1
		}
		if !diag.Ready {
			return 1
		}
		return 0
	}

	fmt.Printf("kickaid doctor (%s)\n", diag.Timestamp.Format(time.RFC3339))
	fmt.Println("---")
	for _, res := range diag.Results {
		icon := "✅"
		switch res.Status {
		case validator.StatusFailed:
			icon = "❌"
		case validator.StatusWarning:
			icon = "⚠️ "
		}
		fmt.Printf("%s %-20s: %s\n", icon, res.Phase, res.Message)
	}

	if !diag.Ready {
		return 1
	}
	return 0
}
