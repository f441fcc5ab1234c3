package protocols

import (
	"github.com/manas360/stepwise/pkg/domain"
	"github.com/manas360/stepwise/pkg/dsl"
)

// Distortions lists the thinking traps offered in step 5 of cognitive restructuring.
var Distortions = []domain.Option{
	dsl.Opt("all-or-nothing", "All-or-Nothing Thinking", "Seeing things in black-and-white categories"),
	dsl.Opt("overgeneralization", "Overgeneralization", "Seeing a single negative event as a never-ending pattern"),
	dsl.Opt("mental-filter", "Mental Filter", "Focusing only on negative details"),
	dsl.Opt("discounting", "Discounting the Positive", `Insisting positive experiences "don't count"`),
	dsl.Opt("jumping", "Jumping to Conclusions", "Making negative interpretations without facts"),
	dsl.Opt("catastrophizing", "Catastrophizing", "Expecting disaster"),
	dsl.Opt("emotional", "Emotional Reasoning", `"I feel it, therefore it must be true"`),
	dsl.Opt("shoulds", "Should Statements", `Using "should," "must," or "ought"`),
	dsl.Opt("labeling", "Labeling", "Attaching a negative label to yourself or others"),
	dsl.Opt("personalization", "Personalization", "Blaming yourself for something you weren't responsible for"),
}

func emotionKeys() []domain.GroupKey {
	return []domain.GroupKey{
		dsl.Key("anxiety", "Anxiety"),
		dsl.Key("sadness", "Sadness"),
		dsl.Key("anger", "Anger"),
		dsl.Key("shame", "Shame"),
	}
}

func cognitiveRestructuring() *domain.StepSchema {
	p := dsl.New(CognitiveRestructuring).
		Title("Cognitive Restructuring").
		Describe("Identify, challenge and replace unhelpful automatic thoughts with balanced alternatives.").
		Meta("45-60 min", "Intermediate", "Thought Patterns")

	p.Step("situation", "Identify the Triggering Situation").
		Describe("Think of a recent situation where you felt distressed, anxious, or upset. Be specific about what happened, when, where, and who was involved.").
		Text("situation", "Your situation").
		Help(`e.g. "My boss criticized my presentation in front of the team during yesterday's meeting."`)

	p.Step("thoughts", "Identify Automatic Thoughts").
		Describe("What thoughts went through your mind during or immediately after this situation? Write down everything that came to mind, even if it seems irrational.").
		Text("thoughts", "Automatic thoughts").
		Help(`Automatic thoughts are often in "shorthand": brief statements or images that flash through your mind.`)

	p.Step("emotions", "Identify Emotions & Rate Intensity").
		Describe("What emotions did you feel? Rate the intensity of each emotion from 0 (not at all) to 10 (extremely intense).").
		Group("emotions", "Emotion intensity (0-10)", emotionKeys()...).
		Other("other", "otherName")

	p.Step("evidence", "Examine the Evidence").
		Describe("Look at your automatic thoughts objectively. What evidence supports them? What evidence contradicts them?").
		Text("evidenceFor", "Evidence FOR your thought (facts only)").
		Text("evidenceAgainst", "Evidence AGAINST your thought (facts only)")

	p.Step("distortions", "Identify Cognitive Distortions").
		Describe("Which thinking traps might you be falling into? Check all that apply.").
		Choices("distortions", "Cognitive distortions", Distortions...)

	p.Step("alternative", "Generate Alternative, Balanced Thoughts").
		Describe("Based on the evidence and recognizing your cognitive distortions, what would be a more balanced, realistic way of thinking about this situation?").
		Text("alternativeThought", "Your alternative, balanced thought").
		Help(`Instead of "I'm terrible at my job", try "I made a mistake in this presentation, but I've successfully completed many projects."`)

	p.Step("rerate", "Re-rate Your Emotions").
		Describe("Now that you've worked through the process, how intense are your emotions? Rate them again from 0-10.").
		Group("emotionsAfter", "New intensity (0-10)", emotionKeys()...).
		OtherLabelledBy("other", "emotions.otherName")

	p.Step("complete", "Session Complete").
		Describe("Great work! You've challenged and restructured your thought patterns. Review your responses and keep practicing this technique with other situations.")

	return p.MustBuild()
}
