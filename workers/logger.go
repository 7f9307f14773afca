package workers

import "propsignal/models"

// LogFunc mirrors a worker log line into the activity log
type LogFunc func(level models.LogLevel, source, message string)

// NoOpLogger does nothing (default)
var NoOpLogger LogFunc = func(level models.LogLevel, source, message string) {}
