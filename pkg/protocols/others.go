package protocols

import (
	"github.com/manas360/stepwise/pkg/domain"
	"github.com/manas360/stepwise/pkg/dsl"
)

func behavioralActivation() *domain.StepSchema {
	p := dsl.New(BehavioralActivation).
		Title("Behavioral Activation").
		Describe("Reconnect with rewarding activities to lift mood through planned action.").
		Meta("30-45 min", "Beginner", "Depression")

	p.Step("mood", "Rate Your Current Mood").
		Describe("Rate how you feel right now from 0 (very low) to 10 (very good).").
		Scale("moodBefore", "Current mood", 0, 10)

	p.Step("activities", "Review Recent Activities").
		Describe("List what you did over the past few days and rate each for pleasure and mastery.").
		Text("recentActivities", "Recent activities").
		Group("activityRatings", "Pleasure and mastery (0-10)",
			dsl.Key("pleasure", "Pleasure"),
			dsl.Key("mastery", "Mastery"))

	p.Step("values", "Identify Valued Activities").
		Describe("Which life areas matter most to you right now?").
		Choices("valueAreas", "Life areas",
			dsl.Opt("relationships", "Relationships", "Family, friends and partners"),
			dsl.Opt("work", "Work & Study", "Career, education and skills"),
			dsl.Opt("health", "Health", "Exercise, sleep and nutrition"),
			dsl.Opt("leisure", "Leisure", "Hobbies and play"),
			dsl.Opt("community", "Community", "Volunteering and belonging"),
			dsl.Opt("spirituality", "Spirituality", "Meaning and purpose")).
		Text("plannedActivities", "Activities that reflect these values")

	p.Step("schedule", "Schedule Activities").
		Describe("Pick specific days and times for each planned activity. Start small.").
		Text("schedule", "Your activity schedule").
		Text("barriers", "Possible barriers and how you will handle them")

	p.Step("commit", "Commit and Predict").
		Describe("How confident are you that you will follow through, and how do you expect to feel afterwards?").
		Scale("confidence", "Confidence", 0, 10).
		Scale("moodPredicted", "Predicted mood after activities", 0, 10)

	p.Step("complete", "Session Complete").
		Describe("Your activity plan is ready. Track your mood after each activity.")

	return p.MustBuild()
}

func exposureTherapy() *domain.StepSchema {
	p := dsl.New(ExposureTherapy).
		Title("Exposure Therapy").
		Describe("Face feared situations gradually using a hierarchy and rate distress as it changes.").
		Meta("60 min", "Advanced", "Phobias & Avoidance")

	p.Step("fear", "Describe the Fear").
		Describe("What situation, object or sensation do you avoid? What do you fear will happen?").
		Text("fear", "Feared situation").
		Text("fearedOutcome", "Feared outcome")

	p.Step("hierarchy", "Build the Fear Hierarchy").
		Describe("List related situations from least to most distressing and rate each one in SUDS (0-100).").
		Text("hierarchy", "Fear hierarchy").
		Help("One situation per line with its SUDS rating.")

	p.Step("target", "Choose an Exposure Target").
		Describe("Pick a step that is challenging but manageable.").
		Text("target", "Exposure target").
		Scale("sudsExpected", "Expected distress (SUDS)", 0, 100)

	p.Step("exposure", "Practice the Exposure").
		Describe("Stay with the situation until distress drops. Avoid safety behaviors. Record your distress over time.").
		Group("suds", "Distress during exposure (SUDS)",
			dsl.Key("start", "Start"),
			dsl.Key("peak", "Peak"),
			dsl.Key("end", "End")).Bounds(0, 100).
		Choices("safetyBehaviors", "Safety behaviors noticed",
			dsl.Opt("avoidance", "Avoidance", "Leaving or not entering the situation"),
			dsl.Opt("distraction", "Distraction", "Mentally checking out"),
			dsl.Opt("reassurance", "Reassurance Seeking", "Asking others that everything is fine"),
			dsl.Opt("checking", "Checking", "Repeatedly verifying for danger"),
			dsl.Opt("escape", "Escape", "Ending the exposure early"))

	p.Step("reflect", "Reflect on the Outcome").
		Describe("Did the feared outcome happen? What did you learn?").
		Text("learning", "What you learned").
		Text("nextTarget", "Next exposure target")

	p.Step("complete", "Session Complete").
		Describe("Repeat this exposure until distress stays low, then move up the hierarchy.")

	return p.MustBuild()
}

func anxietyManagement() *domain.StepSchema {
	p := dsl.New(AnxietyManagement).
		Title("Anxiety Management").
		Describe("Recognize anxiety signals and practice calming skills for body and mind.").
		Meta("30 min", "Beginner", "Anxiety")

	p.Step("check_in", "Anxiety Check-in").
		Describe("Where do you notice anxiety right now? Rate how strong it is.").
		Scale("anxietyBefore", "Anxiety level", 0, 10).
		Group("bodySignals", "Body signals (0-10)",
			dsl.Key("heart", "Racing heart"),
			dsl.Key("breathing", "Short breath"),
			dsl.Key("tension", "Muscle tension"),
			dsl.Key("stomach", "Upset stomach")).
		Other("other", "otherName")

	p.Step("triggers", "Identify Triggers").
		Describe("What set off the anxiety? What worries are on your mind?").
		Text("triggers", "Triggers").
		Text("worries", "Worries")

	p.Step("breathing", "Paced Breathing").
		Describe("Breathe in for 4 counts, hold for 4, out for 6. Repeat for two minutes.").
		Text("breathingNotes", "What you noticed")

	p.Step("skills", "Choose Coping Skills").
		Describe("Which skills will you use when anxiety rises?").
		Choices("copingSkills", "Coping skills",
			dsl.Opt("breathing", "Paced Breathing", "Slow exhale-focused breathing"),
			dsl.Opt("pmr", "Progressive Muscle Relaxation", "Tense and release muscle groups"),
			dsl.Opt("grounding", "5-4-3-2-1 Grounding", "Use the senses to anchor in the present"),
			dsl.Opt("worry-time", "Scheduled Worry Time", "Postpone worries to a set time"),
			dsl.Opt("movement", "Movement", "A short walk or stretch"))

	p.Step("rerate", "Re-rate Your Anxiety").
		Describe("How strong is the anxiety now?").
		Scale("anxietyAfter", "Anxiety level", 0, 10)

	p.Step("complete", "Session Complete").
		Describe("Practice your chosen skills daily, not only when anxious.")

	return p.MustBuild()
}

func depressionAssessment() *domain.StepSchema {
	p := dsl.New(DepressionAssessment).
		Title("Depression Assessment").
		Describe("Screen depressive symptoms over the last two weeks and plan next steps.").
		Meta("20 min", "Beginner", "Assessment")

	const scaleHelp = "0 = not at all, 1 = several days, 2 = more than half the days, 3 = nearly every day"

	p.Step("mood", "Mood and Interest").
		Describe("Over the last two weeks, how often have you been bothered by the following?").
		Group("moodSymptoms", "Frequency (0-3)",
			dsl.Key("interest", "Little interest or pleasure in doing things"),
			dsl.Key("hopeless", "Feeling down, depressed or hopeless")).Bounds(0, 3).Help(scaleHelp)

	p.Step("body", "Sleep, Energy and Appetite").
		Group("physicalSymptoms", "Frequency (0-3)",
			dsl.Key("sleep", "Trouble sleeping or sleeping too much"),
			dsl.Key("energy", "Feeling tired or having little energy"),
			dsl.Key("appetite", "Poor appetite or overeating")).Bounds(0, 3).Help(scaleHelp)

	p.Step("thinking", "Thinking and Self-view").
		Group("cognitiveSymptoms", "Frequency (0-3)",
			dsl.Key("selfWorth", "Feeling bad about yourself"),
			dsl.Key("concentration", "Trouble concentrating"),
			dsl.Key("psychomotor", "Moving or speaking slowly, or being restless"),
			dsl.Key("selfHarm", "Thoughts that you would be better off dead")).Bounds(0, 3).Help(scaleHelp)

	p.Step("impact", "Daily Impact").
		Describe("How difficult have these problems made work, home or relationships?").
		Scale("impact", "Difficulty", 0, 3).
		Text("notes", "Clinician notes")

	p.Step("plan", "Plan Next Steps").
		Choices("plan", "Follow-up plan",
			dsl.Opt("monitor", "Monitor", "Repeat the assessment in two weeks"),
			dsl.Opt("therapy", "Start Therapy", "Begin a structured protocol"),
			dsl.Opt("referral", "Psychiatric Referral", "Refer for medication review"),
			dsl.Opt("safety-plan", "Safety Plan", "Create a crisis safety plan")).
		Text("planNotes", "Plan details")

	p.Step("complete", "Assessment Complete").
		Describe("Review the responses with the patient and agree on the follow-up plan.")

	return p.MustBuild()
}
