package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveStage(t *testing.T) {
	initialRuns := testutil.ToFloat64(StageRunsTotal.WithLabelValues("transform", "succeeded"))
	initialDropped := testutil.ToFloat64(RecordsTotal.WithLabelValues("transform", "dropped"))

	ObserveStage("transform", "succeeded", 0.25, 10, 8, 2)

	if got := testutil.ToFloat64(StageRunsTotal.WithLabelValues("transform", "succeeded")); got != initialRuns+1 {
		t.Errorf("Expected stage runs %v, got %v", initialRuns+1, got)
	}
	if got := testutil.ToFloat64(RecordsTotal.WithLabelValues("transform", "dropped")); got != initialDropped+2 {
		t.Errorf("Expected dropped %v, got %v", initialDropped+2, got)
	}
	if count := testutil.CollectAndCount(StageDuration); count < 1 {
		t.Errorf("Expected StageDuration observations, got %d series", count)
	}
}

func TestStartEndRun(t *testing.T) {
	initial := testutil.ToFloat64(RunsInProgress)

	StartRun()
	if got := testutil.ToFloat64(RunsInProgress); got != initial+1 {
		t.Errorf("Expected in-progress %v after StartRun, got %v", initial+1, got)
	}

	EndRun("manual", "succeeded", true)
	if got := testutil.ToFloat64(RunsInProgress); got != initial {
		t.Errorf("Expected in-progress %v after EndRun, got %v", initial, got)
	}
	if got := testutil.ToFloat64(LastSuccessTimestamp); got <= 0 {
		t.Errorf("Expected last success timestamp to be set, got %v", got)
	}
}

func TestObserveAPIPage(t *testing.T) {
	pages := testutil.ToFloat64(APIPagesTotal)
	items := testutil.ToFloat64(APIItemsTotal)

	ObserveAPIPage(100)
	ObserveAPIPage(0)

	if got := testutil.ToFloat64(APIPagesTotal); got != pages+2 {
		t.Errorf("Expected %v pages, got %v", pages+2, got)
	}
	if got := testutil.ToFloat64(APIItemsTotal); got != items+100 {
		t.Errorf("Expected %v items, got %v", items+100, got)
	}
}
