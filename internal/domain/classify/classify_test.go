package classify_test

import (
	"testing"

	"github.com/okian/fanscore/internal/domain/classify"
	"github.com/okian/fanscore/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func testRoster() []model.Participant {
	return []model.Participant{
		{ID: 1, Name: "ALICE", Keywords: []string{"alice", "team alice", "#teamalice"}, Active: true},
		{ID: 2, Name: "BOB", Keywords: []string{"bob", "team bob", "bobby"}, Active: true},
		{ID: 3, Name: "CARLA", Keywords: []string{"carla", "team carla"}, Active: false},
		{ID: 4, Name: "JIMENEZ", Keywords: []string{"jiménez", "team jimenez"}, Active: true},
	}
}

func TestClassifyDirectIntent(t *testing.T) {
	Convey("Given a classifier over the test roster", t, func() {
		c := classify.New(testRoster())

		Convey("When the message is an explicit point assignment", func() {
			res := c.Classify("Puntos para Alice")

			Convey("Then it resolves at full confidence", func() {
				So(res.Method, ShouldEqual, classify.MethodDirectIntent)
				So(res.Confidence, ShouldEqual, 100)
				So(res.Participants, ShouldResemble, []string{"ALICE"})
			})
		})

		Convey("When the message names a team with two participants", func() {
			res := c.Classify("team Alice y Bob!!!")

			Convey("Then both participants share the winning tier", func() {
				So(res.Method, ShouldEqual, classify.MethodDirectIntent)
				So(res.Participants, ShouldHaveLength, 2)
				So(res.Participants, ShouldContain, "ALICE")
				So(res.Participants, ShouldContain, "BOB")
			})
		})

		Convey("When the message uses the English connector", func() {
			res := c.Classify("team Alice and Bob")
			So(res.Participants, ShouldHaveLength, 2)
		})

		Convey("When the message names a single team", func() {
			res := c.Classify("team alice")
			So(res.Participants, ShouldResemble, []string{"ALICE"})
			So(res.Confidence, ShouldEqual, 80)
		})

		Convey("When a later assertion carries higher confidence", func() {
			res := c.Classify("vamos alice... puntos para bob")

			Convey("Then only the strongest assertion wins", func() {
				So(res.Participants, ShouldResemble, []string{"BOB"})
				So(res.Confidence, ShouldEqual, 100)
			})
		})

		Convey("When a hashtag names a participant", func() {
			res := c.Classify("#alice vamos!!")
			So(res.Method, ShouldEqual, classify.MethodDirectIntent)
			So(res.Participants, ShouldResemble, []string{"ALICE"})
		})

		Convey("When the captured name has accents", func() {
			res := c.Classify("vamos Jiménez")
			So(res.Participants, ShouldResemble, []string{"JIMENEZ"})
		})

		Convey("When the captured name resolves through a keyword", func() {
			res := c.Classify("voy con bobby")
			So(res.Participants, ShouldResemble, []string{"BOB"})
		})

		Convey("When two names appear with an affection symbol", func() {
			res := c.Classify("alice y bob 💕")
			So(res.Method, ShouldEqual, classify.MethodDirectIntent)
			So(res.Participants, ShouldHaveLength, 2)
		})

		Convey("When two names appear without an affection symbol", func() {
			res := c.Classify("alice y bob estan en la casa")

			Convey("Then the implicit rule does not fire and the mention is ambiguous", func() {
				So(res.Method, ShouldEqual, classify.MethodUnresolved)
				So(res.Participants, ShouldBeEmpty)
			})
		})

		Convey("When the named participant is inactive", func() {
			res := c.Classify("puntos para carla")

			Convey("Then the roster ignores them entirely", func() {
				So(res.Participants, ShouldBeEmpty)
				So(res.Method, ShouldEqual, classify.MethodUnresolved)
			})
		})
	})
}

func TestClassifySentiment(t *testing.T) {
	Convey("Given a classifier over the test roster", t, func() {
		c := classify.New(testRoster())

		Convey("When a negative message mentions one participant", func() {
			res := c.Classify("alice is terrible")

			Convey("Then nobody earns points, not even the pool", func() {
				So(res.Participants, ShouldBeEmpty)
				So(res.Method, ShouldEqual, classify.MethodUnresolved)
				So(res.Suppressed, ShouldBeTrue)
			})
		})

		Convey("When the same message carries a positive override", func() {
			res := c.Classify("alice is terrible but I still vote for alice")

			Convey("Then the participant is awarded", func() {
				So(res.Suppressed, ShouldBeFalse)
				So(res.Participants, ShouldResemble, []string{"ALICE"})
			})
		})

		Convey("When a negative Spanish message names a participant", func() {
			res := c.Classify("bob es lo peor, me tiene harto")
			So(res.Suppressed, ShouldBeTrue)
			So(res.Participants, ShouldBeEmpty)
		})

		Convey("When a direct template appears in a negative message", func() {
			res := c.Classify("alice hizo trampa, pero alice si")

			Convey("Then the negative context discards the match", func() {
				So(res.Participants, ShouldBeEmpty)
				So(res.Suppressed, ShouldBeTrue)
			})
		})
	})
}

func TestClassifyKeywordTiers(t *testing.T) {
	Convey("Given a classifier over the test roster", t, func() {
		c := classify.New(testRoster())

		Convey("When a message casually mentions one participant", func() {
			res := c.Classify("me gusta como canta alice")

			Convey("Then the contextual tier resolves it at moderate confidence", func() {
				So(res.Method, ShouldEqual, classify.MethodContextualKeyword)
				So(res.Confidence, ShouldEqual, 60)
				So(res.Participants, ShouldResemble, []string{"ALICE"})
			})
		})

		Convey("When a message mentions two participants without intent", func() {
			res := c.Classify("hoy cocinaron alice con bob")

			Convey("Then the mention is ambiguous and unresolved", func() {
				So(res.Method, ShouldEqual, classify.MethodUnresolved)
				So(res.Participants, ShouldBeEmpty)
			})
		})

		Convey("When nothing matches at all", func() {
			res := c.Classify("saludos desde santiago")
			So(res.Method, ShouldEqual, classify.MethodUnresolved)
			So(res.Participants, ShouldBeEmpty)
		})

		Convey("When the text is empty", func() {
			res := c.Classify("   ")
			So(res.Method, ShouldEqual, classify.MethodUnresolved)
		})
	})

	Convey("Given a participant whose keywords omit the bare name", t, func() {
		roster := []model.Participant{
			{ID: 1, Name: "EDU", Keywords: []string{"equipo edu"}, Active: true},
		}
		c := classify.New(roster)

		Convey("When a message mentions only the bare name", func() {
			res := c.Classify("aqui esta edu")

			Convey("Then the casual tier resolves it at low confidence", func() {
				So(res.Method, ShouldEqual, classify.MethodCasualMention)
				So(res.Confidence, ShouldEqual, 40)
				So(res.Participants, ShouldResemble, []string{"EDU"})
			})
		})
	})
}

func TestNormalize(t *testing.T) {
	Convey("Normalize folds case and accents", t, func() {
		So(classify.Normalize("  JIMÉNEZ  "), ShouldEqual, "jimenez")
		So(classify.Normalize("Ñaño"), ShouldEqual, "nano")
		So(classify.Normalize("café"), ShouldEqual, "cafe")
	})
}
