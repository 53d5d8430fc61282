package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestCounters(t *testing.T) {
	Convey("Given the process-wide metrics", t, func() {
		Convey("Prediction outcomes partition by origin", func() {
			before := testutil.ToFloat64(predictionsGenerated.WithLabelValues("fallback"))
			RecordPrediction("fallback")
			So(testutil.ToFloat64(predictionsGenerated.WithLabelValues("fallback")), ShouldEqual, before+1)
		})

		Convey("Quota rejections accumulate", func() {
			before := testutil.ToFloat64(quotaRejections)
			RecordQuotaRejection()
			RecordQuotaRejection()
			So(testutil.ToFloat64(quotaRejections), ShouldEqual, before+2)
		})

		Convey("Provider results partition by provider and result", func() {
			before := testutil.ToFloat64(providerResults.WithLabelValues("odds", "success"))
			RecordProviderResult("odds", "success")
			So(testutil.ToFloat64(providerResults.WithLabelValues("odds", "success")), ShouldEqual, before+1)
		})

		Convey("Cache lookups partition by outcome", func() {
			before := testutil.ToFloat64(predictionCache.WithLabelValues("hit"))
			RecordPredictionCache("hit")
			So(testutil.ToFloat64(predictionCache.WithLabelValues("hit")), ShouldEqual, before+1)
		})

		Convey("HTTP requests partition by endpoint and status", func() {
			before := testutil.ToFloat64(httpRequests.WithLabelValues("predictions", "200"))
			RecordHTTPRequest("predictions", "200")
			So(testutil.ToFloat64(httpRequests.WithLabelValues("predictions", "200")), ShouldEqual, before+1)
		})
	})
}

func TestGauges(t *testing.T) {
	Convey("Given the gauge metrics", t, func() {
		Convey("Queue size tracks the latest value", func() {
			UpdateNoticeQueueSize(7)
			So(testutil.ToFloat64(queueSize), ShouldEqual, 7)
			UpdateNoticeQueueSize(0)
			So(testutil.ToFloat64(queueSize), ShouldEqual, 0)
		})

		Convey("Profile totals track the latest value", func() {
			UpdateProfilesTotal(3)
			So(testutil.ToFloat64(profilesTotal), ShouldEqual, 3)
		})
	})
}
