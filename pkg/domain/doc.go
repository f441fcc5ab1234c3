/*
Package domain contains the core models of the stepwise session engine.

It describes therapeutic protocols as ordered step sequences, the mutable
in-progress session they drive and the immutable record a finished session
produces. The package is pure: no I/O, no persistence, no clock.

# Key Entities

  - StepSchema: a protocol definition (ordered StepDefinitions with FieldDescriptors).
  - SessionState: the cursor and collected answers of one active session.
  - Values: an insertion-ordered, path-addressable store of answers.
  - FinalizedRecord: the snapshot handed to the recorder on completion.
*/
package domain
