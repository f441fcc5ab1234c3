// Package schema checks captured answers against the shape a protocol declares.
//
// A Schema maps field names to Types. Types are small validators: free text,
// bounded numeric scales, option sets and keyed groups. FromProtocol derives a
// Schema from a domain.StepSchema so callers never build one by hand:
//
//	s := schema.FromProtocol(protocol)
//	if err := schema.Check(s, state.Fields.ToMap()); err != nil {
//	    for _, e := range schema.ValidationErrors(err) {
//	        fmt.Println(e)
//	    }
//	}
//
// Checks are advisory. Only values that are present are inspected and an
// empty answer is always acceptable, so a partially filled session passes.
package schema
