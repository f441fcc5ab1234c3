/*
Package recorder persists finalized session records.

A Recorder sits between the engine and a ports.RecordStore. Appends for the
same patient are serialized with a local reference-counted lock and, when
configured, a distributed lock shared by every replica.
*/
package recorder
