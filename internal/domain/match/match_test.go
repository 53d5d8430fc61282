package match_test

import (
	"testing"

	"github.com/tipio/tipio/internal/domain/match"
	. "github.com/smartystreets/goconvey/convey"
)

func TestSplitTitle(t *testing.T) {
	Convey("Given fixture titles in common formats", t, func() {
		Convey("When the title uses ' vs '", func() {
			a, b, ok := match.SplitTitle("Arsenal vs Chelsea")
			So(ok, ShouldBeTrue)
			So(a, ShouldEqual, "Arsenal")
			So(b, ShouldEqual, "Chelsea")
		})

		Convey("When the title uses a dash separator", func() {
			a, b, ok := match.SplitTitle("Real Madrid - Barcelona")
			So(ok, ShouldBeTrue)
			So(a, ShouldEqual, "Real Madrid")
			So(b, ShouldEqual, "Barcelona")
		})

		Convey("When the separator is uppercase", func() {
			a, b, ok := match.SplitTitle("Milan VS Inter")
			So(ok, ShouldBeTrue)
			So(a, ShouldEqual, "Milan")
			So(b, ShouldEqual, "Inter")
		})

		Convey("When no separator exists", func() {
			_, _, ok := match.SplitTitle("Arsenal")
			So(ok, ShouldBeFalse)
		})
	})
}

func TestNames(t *testing.T) {
	Convey("Given provider team names that differ in form", t, func() {
		Convey("Substring matches succeed either direction", func() {
			So(match.Names("Arsenal", "Arsenal FC"), ShouldBeTrue)
			So(match.Names("FC Bayern München", "Bayern"), ShouldBeTrue)
		})

		Convey("Token overlap matches succeed", func() {
			So(match.Names("Manchester United", "Man United FC"), ShouldBeTrue)
		})

		Convey("Unrelated names do not match", func() {
			So(match.Names("Arsenal", "Chelsea"), ShouldBeFalse)
		})

		Convey("Case is ignored", func() {
			So(match.Names("LIVERPOOL", "liverpool fc"), ShouldBeTrue)
		})
	})
}

func TestFixture(t *testing.T) {
	Convey("Given a requested fixture and a provider candidate", t, func() {
		Convey("A same-order candidate matches", func() {
			So(match.Fixture("Arsenal", "Chelsea", "Arsenal FC", "Chelsea FC"), ShouldBeTrue)
		})

		Convey("A swapped-order candidate matches", func() {
			So(match.Fixture("Arsenal", "Chelsea", "Chelsea FC", "Arsenal FC"), ShouldBeTrue)
		})

		Convey("A half-matching candidate does not match", func() {
			So(match.Fixture("Arsenal", "Chelsea", "Arsenal FC", "Tottenham"), ShouldBeFalse)
		})
	})
}
