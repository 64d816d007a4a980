// SPDX-License-Identifier: AGPL-3.0-only
package model

import (
	"encoding/json"

	"github.com/aegirops/formation-langgraph/internal/logging"
)

// PersistAndLogRun saves a run to the store (best-effort) and debug-logs it.
// A nil store only logs.
func PersistAndLogRun(store RunStore, run *Run, logger *logging.Logger) {
	if store != nil {
		if err := store.SaveRun(run); err != nil {
			logger.Warnf("Failed to persist run %s of workflow %s: %v", run.ID, run.Workflow, err)
		}
	}

	jsonData, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		logger.Warnf("Failed to marshal run %s: %v", run.ID, err)
		return
	}
	logger.Debugf("Workflow %s run %s: %s", run.Workflow, run.ID, string(jsonData))
}
