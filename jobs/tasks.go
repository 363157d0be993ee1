package jobs

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// QueueActivity carries audit-line writes and retention.
	QueueActivity = "activity"
)

// Queues lists the queues the worker serves with their priorities.
var Queues = map[string]int{
	QueueActivity: 3,
	QueueDefault:  1,
}
