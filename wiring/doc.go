// Package wiring turns interactive canvas edits into stored pipeline
// changes.
//
// An authoring surface calls Editor when the user drags an output port onto
// an input port, deletes a connection or node, or when widgets appear on the
// canvas. Each operation:
//
//  1. loads the first pipeline of the canvas from the pipelinestore.Gateway,
//     creating one named DefaultPipelineName when the canvas has none
//  2. edits a private copy through the pipeline package primitives
//  3. saves it with the loaded version, so concurrent editors are detected
//     as errors.ErrVersionConflict
//  4. publishes pipeline:saved or pipeline:deleted on the eventbus.Bus
//
// Missing widgets, self connections, duplicates and unknown IDs are not
// errors. They are logged and reported through Result.Outcome with the
// stored pipeline left unchanged. Errors are reserved for the gateway, and a
// failed save is never retried.
package wiring
