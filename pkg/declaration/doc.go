// Package declaration holds the customs declaration model, the Ghana
// reference tables and the Source port that loads declarations for an audit.
//
// # Model
//
// A Declaration is one import, export or transit entry as lodged with the
// Ghana Revenue Authority. Optional data that the agents must distinguish from
// a zero value is carried as pointers: Volume, ATGApplicable, ATGReadings,
// Taxes and Payment. Float and Bool build those pointers in literals:
//
//	d := &declaration.Declaration{
//	    ID:     "GH-2024-000123",
//	    HSCode: "27101990",
//	    Value:  100000,
//	    Volume: declaration.Float(5882),
//	}
//
// # Reference Data
//
// IsECOWAS reports membership of the ECOWAS preference area and IsPetroleum
// matches the petroleum HS prefixes. Both normalise their input, so
// " ng " and "NG" are the same country. HasPrefix matches an HS code against
// a list of chapter or heading prefixes.
//
// # Sources
//
// Source is the port an audit reads its batch from:
//
//   - FileSource: a JSON or YAML file holding either a bare list or an
//     object with a "declarations" key, chosen by file extension
//   - MemorySource: a fixed slice, for tests and embedding
//
// Load honours context cancellation before doing any work.
package declaration
