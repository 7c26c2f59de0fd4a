// Package manifest normalizes widget port declarations.
//
// Widget definitions declare their ports in one of two formats. The current
// format lists ports under io.inputs and io.outputs, either as bare names or
// as objects:
//
//	id: weather
//	io:
//	  inputs: [location]
//	  outputs:
//	    - id: temperature
//	      payloadType: number
//
// The legacy format maps port names to schema objects at the top level:
//
//	id: thermometer
//	inputs:
//	  temperature: {type: number}
//	outputs:
//	  reading: null
//
// Normalize turns either format into ordered []pipeline.Port. A port's name
// comes from id, then name, then the mapping key; its type from type, then
// payloadType, defaulting to "any". A definition with no declaration at all
// gets a single "input" and a single "output" port of type any.
//
// Registry is a thread-safe Provider that loads definitions from a
// directory and describes widget instances for the graph layer.
package manifest
