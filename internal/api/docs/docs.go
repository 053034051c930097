// Package docs registers the OpenAPI description of the status API with
// swag so http-swagger can serve it.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/jobs": {
            "get": {
                "description": "Live state and counters of every job in the current run",
                "produces": ["application/json"],
                "tags": ["jobs"],
                "summary": "List jobs",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.RunStatus"}}
                }
            }
        },
        "/jobs/{id}": {
            "get": {
                "description": "Live state, counters and recorded errors of one job",
                "produces": ["application/json"],
                "tags": ["jobs"],
                "summary": "Get job",
                "parameters": [
                    {"type": "string", "description": "Job ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/model.JobSnapshot"}},
                    "400": {"description": "Job ID is required", "schema": {"type": "string"}},
                    "404": {"description": "Job not found", "schema": {"type": "string"}}
                }
            }
        },
        "/jobs/{id}/errors": {
            "get": {
                "description": "Errors recorded for one job of the current run, oldest first",
                "produces": ["application/json"],
                "tags": ["jobs"],
                "summary": "Get job errors",
                "parameters": [
                    {"type": "string", "description": "Job ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": true}},
                    "404": {"description": "Job not found", "schema": {"type": "string"}}
                }
            }
        },
        "/history": {
            "get": {
                "description": "Jobs recorded in the run ledger, newest first",
                "produces": ["application/json"],
                "tags": ["history"],
                "summary": "List job history",
                "parameters": [
                    {"type": "integer", "default": 100, "description": "Maximum number of jobs", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/store.Job"}}},
                    "404": {"description": "No ledger configured", "schema": {"type": "string"}},
                    "500": {"description": "Failed to read ledger", "schema": {"type": "string"}}
                }
            }
        },
        "/history/{id}": {
            "get": {
                "description": "One job from the run ledger with its errors",
                "produces": ["application/json"],
                "tags": ["history"],
                "summary": "Get recorded job",
                "parameters": [
                    {"type": "string", "description": "Ledger job ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/store.Job"}},
                    "404": {"description": "Job not found", "schema": {"type": "string"}}
                }
            }
        }
    },
    "definitions": {
        "handler.RunStatus": {
            "type": "object",
            "properties": {
                "run_id": {"type": "string"},
                "count": {"type": "integer"},
                "jobs": {"type": "array", "items": {"$ref": "#/definitions/model.JobSnapshot"}}
            }
        },
        "model.ErrorDetail": {
            "type": "object",
            "properties": {
                "timestamp": {"type": "string"},
                "kind": {"type": "string"},
                "message": {"type": "string"},
                "row_seq": {"type": "integer"}
            }
        },
        "model.JobSnapshot": {
            "type": "object",
            "properties": {
                "job_id": {"type": "string"},
                "target": {"type": "string"},
                "state": {"type": "string", "enum": ["init", "connected", "session_configured", "streaming", "finalizing", "done", "failed"]},
                "start_time": {"type": "string"},
                "end_time": {"type": "string"},
                "duration": {"type": "integer"},
                "rows_dispatched": {"type": "integer"},
                "row_errors": {"type": "integer"},
                "rows_per_second": {"type": "number"},
                "errors": {"type": "array", "items": {"$ref": "#/definitions/model.ErrorDetail"}}
            }
        },
        "store.Job": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "run_id": {"type": "string"},
                "job_id": {"type": "string"},
                "target": {"type": "string"},
                "status": {"type": "string"},
                "rows_dispatched": {"type": "integer"},
                "row_errors": {"type": "integer"},
                "bytes_written": {"type": "integer"},
                "output_path": {"type": "string"},
                "created_at": {"type": "string"},
                "updated_at": {"type": "string"},
                "errors": {"type": "array", "items": {"type": "string"}}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "pgcopy-export status API",
	Description:      "Live progress of a running export and the history recorded in its ledger.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
