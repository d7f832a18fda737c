package metrics

import "testing"

func TestPackageHelpersDoNotPanic(t *testing.T) {
	RecordEventIngested()
	RecordPaidEvent()
	RecordEventDuplicate()
	RecordClassification("direct_intent")
	RecordAwardCommitted()
	RecordPointsAwarded(10)
	RecordPooledEvent()
	UpdatePoolBalance(2.5)
	RecordPageFetched()
	RecordPageFetchLatency(12.3)
	RecordPollError("quota_exceeded")
	RecordPollBackoff()
	UpdateCredentialsActive(3)
	RecordCredentialDeactivated("invalid_key")
	RecordCredentialReactivated()
	UpdateQueueSize(1)
	UpdateQueueCapacity(100)
	UpdateQueueUtilization(0.01)
	RecordQueueEnqueue()
	RecordQueueDequeue()
	RecordQueueEnqueueError()
	UpdateWorkerCount(4)
	RecordWorkerProcessingLatency(1.0)
	RecordWorkerError()
	RecordAwardCommitRetry()
	RecordSummaryPublished()
	RecordSummaryDropped()
	RecordObservationStored()
	UpdateSystemMemoryUsage(1024)
	UpdateSystemGoroutineCount(10)
	RecordSystemGCPauseTime(0.5)

	if GetRegistry() == nil {
		t.Fatal("registry is nil")
	}
}

func TestNewManagerWithOptions(t *testing.T) {
	m := NewManager(
		WithNamespace("test"),
		WithSubsystem("unit"),
		WithHistogramBuckets([]float64{1, 2, 3}),
	)
	if m == nil {
		t.Fatal("manager is nil")
	}
}
