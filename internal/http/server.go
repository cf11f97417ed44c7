package http

import (
	"fmt"
	"net/http"
	"time"

	"github.com/KevinLopezPastor/qmc-agent/internal/log"
	"github.com/KevinLopezPastor/qmc-agent/pkg/storage"
)

func StartServer(port string, store storage.Store) error {
	http.HandleFunc("/health", HealthHandler)
	http.HandleFunc("/runs", RunsHandler(store))
	http.HandleFunc("/report", ReportHandler(store))

	log.GetLogger().Infof("Starting qmc-agent server on :%s", port)
	return http.ListenAndServe(":"+port, nil)
}

func HealthHandler(w http.ResponseWriter, r *http.Request) {
	fmt.Fprintf(w, "qmc-agent server is running")
}

func RunsHandler(store storage.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		listRunsHTTP(w, r, store)
	}
}

func listRunsHTTP(w http.ResponseWriter, r *http.Request, store storage.Store) {
	_ = r
	runs, err := store.ListRuns(20)
	if err != nil {
		log.GetLogger().Errorf("Failed to list runs: %v", err)
		http.Error(w, fmt.Sprintf("Failed to list runs: %v", err), http.StatusInternalServerError)
		return
	}
	if len(runs) == 0 {
		fmt.Fprintf(w, "No runs recorded.\n")
		return
	}
	for _, run := range runs {
		finished := "-"
		if run.FinishedAt != nil {
			finished = run.FinishedAt.Format(time.RFC3339)
		}
		fmt.Fprintf(w, "- ID: %s, Status: %s, Started: %s, Finished: %s, Report: %s\n",
			run.ID, run.OverallStatus, run.StartedAt.Format(time.RFC3339), finished, run.ReportPath)
	}
}

// reportHandler serves the latest combined report as JSON, so dashboards can
// poll without touching the database.
func ReportHandler(store storage.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		run, err := store.GetLatestRun()
		if err != nil {
			log.GetLogger().Errorf("Failed to load latest run: %v", err)
			http.Error(w, "No report available", http.StatusNotFound)
			return
		}
		if len(run.CombinedReport) == 0 {
			http.Error(w, "Latest run has no combined report", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if _, err := w.Write(run.CombinedReport); err != nil {
			log.GetLogger().Errorf("Failed to write report response: %v", err)
		}
	}
}
