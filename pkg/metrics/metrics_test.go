package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestManager(t *testing.T) {
	Convey("Given a manager on its own registry", t, func() {
		reg := prometheus.NewRegistry()
		m := NewManager(
			WithPrometheusRegistry(reg),
			WithNamespace("test"),
			WithSubsystem("league"),
			WithLatencyBuckets([]float64{1, 10, 100}),
			WithConstLabels(map[string]string{"env": "test"}),
		)

		Convey("When a recompute is recorded", func() {
			m.RecordRecompute(12)
			m.RecordSquadScored()
			m.RecordSquadScored()
			m.RecordSquadFailure("persist")
			m.RecordScoreEvent("MysteryBoxPodium")
			m.RecordEliminationsFlagged(2)
			m.RecordEliminationsFlagged(0)

			Convey("Then the counters reflect it", func() {
				So(testutil.ToFloat64(m.recomputes), ShouldEqual, 1)
				So(testutil.ToFloat64(m.squadsScored), ShouldEqual, 2)
				So(testutil.ToFloat64(m.squadFailures.WithLabelValues("persist")), ShouldEqual, 1)
				So(testutil.ToFloat64(m.squadFailures.WithLabelValues("eliminate")), ShouldEqual, 0)
				So(testutil.ToFloat64(m.scoreEvents.WithLabelValues("MysteryBoxPodium")), ShouldEqual, 1)
				So(testutil.ToFloat64(m.eliminationsFlagged), ShouldEqual, 2)
			})
		})

		Convey("When queue and worker gauges change", func() {
			m.UpdateQueueCapacity(64)
			m.UpdateQueueSize(3)
			m.UpdateWorkerActive(4)
			m.RecordQueueRejected("full")
			m.RecordJobCoalesced()

			Convey("Then the gauges hold the last value", func() {
				So(testutil.ToFloat64(m.queueCapacity), ShouldEqual, 64)
				So(testutil.ToFloat64(m.queueSize), ShouldEqual, 3)
				So(testutil.ToFloat64(m.workerActive), ShouldEqual, 4)
				So(testutil.ToFloat64(m.queueRejected.WithLabelValues("full")), ShouldEqual, 1)
				So(testutil.ToFloat64(m.jobsCoalesced), ShouldEqual, 1)
			})
		})

		Convey("When store and http calls are recorded", func() {
			m.RecordStoreOperation("save_result", 2, nil)
			m.RecordStoreOperation("save_result", 3, errors.New("locked"))
			m.RecordHTTPRequest("/leaderboard", "GET", "200", 4)

			Convey("Then results are split by label", func() {
				So(testutil.ToFloat64(m.storeOps.WithLabelValues("save_result", "ok")), ShouldEqual, 1)
				So(testutil.ToFloat64(m.storeOps.WithLabelValues("save_result", "error")), ShouldEqual, 1)
				So(testutil.ToFloat64(m.httpRequests.WithLabelValues("/leaderboard", "GET", "200")), ShouldEqual, 1)
			})
		})

		Convey("Then every collector is registered once", func() {
			So(testutil.CollectAndCount(m.recomputeDuration), ShouldEqual, 1)
			So(func() { NewManager(WithPrometheusRegistry(reg), WithNamespace("test")) }, ShouldPanic)
		})
	})
}

func TestGlobalHelpers(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("Then the package helpers never panic", func() {
			So(func() {
				RecordRecompute(1)
				RecordSquadScored()
				RecordSquadFailure("eliminate")
				RecordScoreEvent("Eliminated")
				RecordEliminationsFlagged(1)
				RecordJobCoalesced()
				UpdateQueueSize(1)
				UpdateQueueCapacity(8)
				RecordQueueEnqueue()
				RecordQueueDequeue()
				RecordQueueRejected("closed")
				UpdateWorkerActive(1)
				RecordWorkerJob(5)
				RecordWorkerError()
				RecordError("api", "bad_request")
				RecordStoreOperation("standings", 1, nil)
				RecordHTTPRequest("/healthz", "GET", "200", 1)
			}, ShouldNotPanic)
		})

		Convey("Then the registry exposes the recorded families", func() {
			families, err := GetRegistry().Gather()
			So(err, ShouldBeNil)
			names := map[string]bool{}
			for _, f := range families {
				names[f.GetName()] = true
			}
			So(names["fantabrigade_league_recomputes_total"], ShouldBeTrue)
			So(names["fantabrigade_league_queue_size"], ShouldBeTrue)
		})
	})
}
