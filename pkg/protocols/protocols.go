// Package protocols declares the built-in therapy protocols.
package protocols

import "github.com/manas360/stepwise/pkg/domain"

// Built-in protocol IDs.
const (
	CognitiveRestructuring = "cognitive_restructuring"
	BehavioralActivation   = "behavioral_activation"
	ExposureTherapy        = "exposure_therapy"
	AnxietyManagement      = "anxiety_management"
	DepressionAssessment   = "depression_assessment"
)

// All returns fresh copies of every built-in protocol, in catalog order.
func All() []*domain.StepSchema {
	return []*domain.StepSchema{
		cognitiveRestructuring(),
		behavioralActivation(),
		exposureTherapy(),
		anxietyManagement(),
		depressionAssessment(),
	}
}
