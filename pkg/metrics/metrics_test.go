package metrics

import (
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with a fresh registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then it should be created successfully", func() {
				So(manager, ShouldNotBeNil)
				So(manager.namespace, ShouldEqual, "portfolio")
				So(manager.subsystem, ShouldEqual, "api")
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("site"),
				WithSubsystem("web"),
				WithHistogramBuckets([]float64{1, 10, 100}),
				WithConstLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)
			manager.activityFetches.WithLabelValues("ok").Inc()

			Convey("Then names and labels should follow the options", func() {
				families, err := registry.Gather()
				So(err, ShouldBeNil)

				var found bool
				for _, mf := range families {
					if mf.GetName() == "site_web_activity_fetches_total" {
						found = true
						labels := mf.GetMetric()[0].GetLabel()
						var env string
						for _, l := range labels {
							if l.GetName() == "env" {
								env = l.GetValue()
							}
						}
						So(env, ShouldEqual, "test")
					}
				}
				So(found, ShouldBeTrue)
			})
		})

		Convey("When empty options are supplied", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace(""),
				WithSubsystem(""),
				WithHistogramBuckets(nil),
				WithConstLabels(nil),
				WithPrometheusRegistry(registry),
			)

			Convey("Then defaults should be kept", func() {
				So(manager.namespace, ShouldEqual, "portfolio")
				So(manager.subsystem, ShouldEqual, "api")
				So(manager.histogramBuckets, ShouldResemble, prometheus.DefBuckets)
				So(manager.constLabels, ShouldNotBeNil)
			})
		})
	})
}

func TestInit(t *testing.T) {
	Convey("Given the global metrics rebuilt with configured names", t, func() {
		Init(
			WithNamespace("site"),
			WithConstLabels(map[string]string{"service": "portfolio"}),
		)
		Reset(func() { Init() })

		RecordContactSubmission("delivered")

		Convey("Then the registry should expose the configured names and labels", func() {
			families, err := GetRegistry().Gather()
			So(err, ShouldBeNil)

			var service string
			for _, mf := range families {
				if mf.GetName() == "site_api_contact_submissions_total" {
					for _, l := range mf.GetMetric()[0].GetLabel() {
						if l.GetName() == "service" {
							service = l.GetValue()
						}
					}
				}
			}
			So(service, ShouldEqual, "portfolio")
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global metrics manager", t, func() {
		Convey("When recording activity fetches", func() {
			before := testutil.ToFloat64(globalManager.activityFetches.WithLabelValues("upstream_unavailable"))
			RecordActivityFetch("upstream_unavailable")
			RecordActivityFetch("upstream_unavailable")

			Convey("Then the outcome counter should grow", func() {
				after := testutil.ToFloat64(globalManager.activityFetches.WithLabelValues("upstream_unavailable"))
				So(after-before, ShouldEqual, 2)
			})
		})

		Convey("When recording cache lookups", func() {
			hits := testutil.ToFloat64(globalManager.cacheLookups.WithLabelValues("hit"))
			misses := testutil.ToFloat64(globalManager.cacheLookups.WithLabelValues("miss"))
			RecordCacheHit()
			RecordCacheMiss()
			RecordCacheMiss()

			Convey("Then hits and misses should be counted separately", func() {
				So(testutil.ToFloat64(globalManager.cacheLookups.WithLabelValues("hit"))-hits, ShouldEqual, 1)
				So(testutil.ToFloat64(globalManager.cacheLookups.WithLabelValues("miss"))-misses, ShouldEqual, 2)
			})
		})

		Convey("When recording the last success time", func() {
			UpdateActivityLastSuccess(1_700_000_000)

			Convey("Then the gauge should hold it", func() {
				So(testutil.ToFloat64(globalManager.activityLastSuccess), ShouldEqual, 1_700_000_000)
			})
		})

		Convey("When recording histograms and HTTP metrics", func() {
			So(func() {
				RecordUpstreamLatency(120)
				RecordActivityItems(5)
				RecordActivityItems(0)
				RecordContactSubmission("delivered")
				RecordHTTPRequest("activity", "GET", "200")
				RecordHTTPRequestDuration("activity", "GET", "200", 12.5)
				RecordErrorByType("server_error", "high")
				RecordErrorByEndpoint("activity", "GET", "server_error")
			}, ShouldNotPanic)
		})

		Convey("When exposing the registry", func() {
			RecordHTTPRequest("healthz", "GET", "200")
			families, err := GetRegistry().Gather()

			Convey("Then it should contain portfolio metrics only", func() {
				So(err, ShouldBeNil)
				So(families, ShouldNotBeEmpty)
				for _, mf := range families {
					So(strings.HasPrefix(mf.GetName(), "portfolio_api_"), ShouldBeTrue)
				}
			})
		})
	})
}

func TestMetricsConcurrency(t *testing.T) {
	Convey("Given concurrent recorders", t, func() {
		before := testutil.ToFloat64(globalManager.contactSubmissions.WithLabelValues("invalid"))

		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				RecordContactSubmission("invalid")
			}()
		}
		wg.Wait()

		So(testutil.ToFloat64(globalManager.contactSubmissions.WithLabelValues("invalid"))-before, ShouldEqual, 50)
	})
}
