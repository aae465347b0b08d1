package processing

import (
	"encoding/json"

	customlog "github.com/open-teleop/joyteleop/pkg/log"
)

// ResultRecorder receives every processed result, e.g. for an API history view.
type ResultRecorder interface {
	Record(result *ProcessResult)
}

// LoggingResultHandler logs processing results and forwards them to a recorder
type LoggingResultHandler struct {
	logger   customlog.Logger
	recorder ResultRecorder
}

// NewLoggingResultHandler creates a new logging result handler. recorder may be nil.
func NewLoggingResultHandler(logger customlog.Logger, recorder ResultRecorder) *LoggingResultHandler {
	return &LoggingResultHandler{
		logger:   logger,
		recorder: recorder,
	}
}

// HandleResult handles a processed task result
func (h *LoggingResultHandler) HandleResult(result *ProcessResult) {
	if h.recorder != nil {
		h.recorder.Record(result)
	}

	if result.Error != nil {
		h.logger.Errorf("Task '%s' failed after %v: %v", result.Name, result.Duration, result.Error)
		return
	}

	h.logger.Debugf("Task '%s' finished in %v", result.Name, result.Duration)

	if result.Data != nil {
		jsonData, err := json.Marshal(result.Data)
		if err != nil {
			h.logger.Warnf("Task '%s' result is not JSON serialisable: %v", result.Name, err)
			return
		}
		if len(jsonData) > 200 {
			h.logger.Infof("%s response: %s...", result.Name, string(jsonData[:200]))
		} else {
			h.logger.Infof("%s response: %s", result.Name, string(jsonData))
		}
	}
}

// CreateHandlerFunc creates a ResultHandler function for the ProcessingPool
func (h *LoggingResultHandler) CreateHandlerFunc() ResultHandler {
	return func(processResult *ProcessResult) {
		if processResult == nil {
			h.logger.Errorf("Received nil ProcessResult")
			return
		}
		h.HandleResult(processResult)
	}
}
