package tools

import "log/slog"

// endInquiry is the model's signal that the needs-inquiry phase collected
// enough information. It performs no side effects; the orchestrator reacts to
// the InquiryComplete flag.
func (e *Executor) endInquiry(params map[string]any) Result {
	summary := stringParam(params, "summary")

	preview := summary
	if len(preview) > 100 {
		preview = preview[:100]
	}
	slog.Info("inquiry phase completed by model", "summary", preview)

	return Result{
		Success:         true,
		Message:         "inquiry finished, the study plan can be generated",
		Summary:         summary,
		InquiryComplete: true,
	}
}
