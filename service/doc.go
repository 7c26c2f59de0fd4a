// Package service exposes pipelines over HTTP.
//
// PipelineService registers its routes on a Go 1.22 ServeMux under a
// prefix:
//
//	GET    canvases/{canvas}/pipelines          list, oldest first
//	GET    canvases/{canvas}/pipelines/{id}     fetch one
//	PUT    pipelines/{id}                       save with version check
//	DELETE canvases/{canvas}/pipelines/{id}     delete and announce
//	POST   pipelines/validate                   structural problems
//	POST   pipelines/merge                      merge addition into base
//	POST   pipelines/route                      targets of an output port
//	POST   suggestions                          port-name suggestions
//	POST   canvases/{canvas}/connections        interactive connect
//	DELETE canvases/{canvas}/connections/{id}   remove a connection
//	DELETE canvases/{canvas}/nodes/{id}         remove a node, cascading
//	POST   canvases/{canvas}/widgets/sync       ensure nodes for widgets
//	POST   canvases/{canvas}/autowire           connect suggestions
//	GET    widgets                              catalog definition IDs
//	GET    widgets/{id}/ports                   normalized ports
//	GET    events                               websocket event stream
//
// Version conflicts answer 409, unknown pipelines 404 and invalid input 400.
// Wiring requests that the editor rejects (self connections, missing
// widgets) answer 422 with the outcome in the body. Widgets sent without
// ports are resolved through the catalog.
package service
