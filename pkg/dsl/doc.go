/*
Package dsl provides a fluent builder for protocol definitions.

Protocols can be loaded from documents (see pkg/adapters/loam) or declared in
Go. The builder assigns step indices, marks the last step terminal and
validates the result, so a protocol declared in code obeys the same rules as
one loaded from disk.

Example usage:

	p := dsl.New("grounding").
		Title("5-4-3-2-1 Grounding").
		Meta("10 min", "Beginner", "Anxiety")

	p.Step("notice", "Notice Your Surroundings").
		Text("see", "Five things you can see").
		Scale("distress", "Distress right now", 0, 10)

	p.Step("close", "Reflect").
		Text("reflection", "What changed?")

	schema, err := p.Build()
*/
package dsl
