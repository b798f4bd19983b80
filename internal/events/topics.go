package events

const (
	// TopicLogLine carries logging.Line values for the UI console.
	TopicLogLine = "log.line"

	// TopicRunStarted carries the automation name and run id of a run that began.
	TopicRunStarted = "run.started"

	// TopicRunFinished carries a finished automation report.
	TopicRunFinished = "run.finished"
)
