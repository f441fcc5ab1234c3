/*
Package stepwise runs standardized therapy protocols as sequences of steps and
turns each completed session into an immutable record.

One engine serves every protocol: a protocol is data (a StepSchema), and a
session is a value (a SessionState) threaded explicitly through each call.
Operations never mutate the state they receive.

# Usage

	eng, err := stepwise.New(stepwise.WithStore(memory.NewStore()))
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	state, err := eng.Start(ctx, protocols.CognitiveRestructuring, stepwise.Patient{Name: "Jane Doe"})
	if err != nil {
		log.Fatal(err)
	}

	state, _ = eng.SetField(state, "situation", "Boss criticized me")
	state, _ = eng.SetField(state, "emotions.anxiety", "6")
	state, _ = eng.JumpTo(ctx, state, 8)

	record, err := eng.Finish(ctx, state)

Protocols come from the built-in catalog by default, or from a directory of
Markdown/YAML/JSON documents (WithProtocolsDir). Finished sessions go to any
ports.RecordStore: memory, file, Redis or SQLite adapters are provided.

# Packages

  - pkg/domain: schemas, session state, records and sentinel errors.
  - pkg/protocols and pkg/dsl: built-in protocols and the builder behind them.
  - pkg/report: text, Markdown and terminal renditions of records.
  - pkg/recorder: per-patient serialized persistence.
  - pkg/adapters: catalogs, stores and the HTTP API.
*/
package stepwise
