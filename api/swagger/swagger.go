package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "DL Homework Garden API",
        "description": "Link classification and gallery-dl dispatch service",
        "version": "0.1.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "security": [
        {"BearerAuth": []}
    ],
    "tags": [
        {"name": "Auth", "description": "Operator login & session"},
        {"name": "Links", "description": "Classified link catalog"},
        {"name": "Filters", "description": "Ordered classification filters"},
        {"name": "Ingest", "description": "Link file & clipboard intake"},
        {"name": "Batches", "description": "Processed intake history"},
        {"name": "Downloads", "description": "Download queue control & limit decisions"},
        {"name": "Exports", "description": "Catalog export files"},
        {"name": "System", "description": "Runtime metrics"}
    ],
    "paths": {
        "/health": {
            "get": {
                "summary": "Health check",
                "security": [],
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ready": {
            "get": {
                "summary": "Readiness check",
                "security": [],
                "responses": {
                    "200": {"description": "Ready"}
                }
            }
        },
        "/api/v1/auth/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Operator login",
                "security": [],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/auth/me": {
            "get": {
                "tags": ["Auth"],
                "summary": "Current operator",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/links": {
            "get": {
                "tags": ["Links"],
                "summary": "List links",
                "parameters": [
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "deleted", "in": "query", "type": "boolean"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/links/detail": {
            "get": {
                "tags": ["Links"],
                "summary": "Get one link",
                "parameters": [
                    {"name": "url", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/links/stats": {
            "get": {
                "tags": ["Links"],
                "summary": "Link counts by status",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/links/status": {
            "put": {
                "tags": ["Links"],
                "summary": "Set link status",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SetLinkStatusRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "patch": {
                "tags": ["Links"],
                "summary": "Set link status in bulk",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SetLinkStatusBulkRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/links/review": {
            "get": {
                "tags": ["Links"],
                "summary": "Links parked by a limit decision",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/filters": {
            "get": {
                "tags": ["Filters"],
                "summary": "List filters in priority order",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Filters"],
                "summary": "Create filter",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/FilterPayload"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/filters/reprocess": {
            "post": {
                "tags": ["Filters"],
                "summary": "Reprocess unmatched links",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/filters/authoring": {
            "get": {
                "tags": ["Filters"],
                "summary": "Pending filter requests",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/filters/authoring/{id}": {
            "post": {
                "tags": ["Filters"],
                "summary": "Resolve a filter request",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ResolveAuthoringRequest"}}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/filters/{id}": {
            "get": {
                "tags": ["Filters"],
                "summary": "Get filter",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Filters"],
                "summary": "Update filter",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/FilterPayload"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Filters"],
                "summary": "Delete filter and reprocess its links",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/filters/{id}/move": {
            "post": {
                "tags": ["Filters"],
                "summary": "Move filter within the priority order",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/MoveFilterRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/filters/{id}/links": {
            "get": {
                "tags": ["Filters"],
                "summary": "Links matched by a filter",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/ingest/files": {
            "post": {
                "tags": ["Ingest"],
                "summary": "Queue a link file",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/IngestFileRequest"}}
                ],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/ingest/clipboard": {
            "post": {
                "tags": ["Ingest"],
                "summary": "Ingest clipboard content",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ClipboardRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/ingest/scan": {
            "post": {
                "tags": ["Ingest"],
                "summary": "Scan the link files directory",
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/ingest/resume": {
            "post": {
                "tags": ["Ingest"],
                "summary": "Resume halted batches",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/batches": {
            "get": {
                "tags": ["Batches"],
                "summary": "List processed batches",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/batches/detail": {
            "get": {
                "tags": ["Batches"],
                "summary": "Get one batch",
                "parameters": [
                    {"name": "path", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/downloads/start": {
            "post": {
                "tags": ["Downloads"],
                "summary": "Start the download run",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/downloads/pause": {
            "post": {
                "tags": ["Downloads"],
                "summary": "Pause after in-flight downloads finish",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/downloads/resume": {
            "post": {
                "tags": ["Downloads"],
                "summary": "Resume a paused run",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/downloads/stop": {
            "post": {
                "tags": ["Downloads"],
                "summary": "Stop the run and park in-flight links",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/downloads/skip": {
            "post": {
                "tags": ["Downloads"],
                "summary": "Skip an in-flight download",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SkipRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/downloads/status": {
            "get": {
                "tags": ["Downloads"],
                "summary": "Queue status",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/downloads/decisions": {
            "get": {
                "tags": ["Downloads"],
                "summary": "Pending limit decisions",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/downloads/decisions/{id}": {
            "post": {
                "tags": ["Downloads"],
                "summary": "Resolve a limit decision",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ResolveDecisionRequest"}}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/downloads/override": {
            "post": {
                "tags": ["Downloads"],
                "summary": "Force a retry",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/OverrideRequest"}}
                ],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/exports": {
            "post": {
                "tags": ["Exports"],
                "summary": "Generate an export file",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ExportRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/exports/download/{token}": {
            "get": {
                "tags": ["Exports"],
                "summary": "Download an export",
                "security": [],
                "produces": ["application/octet-stream"],
                "parameters": [
                    {"name": "token", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "File stream"},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/system/metrics": {
            "get": {
                "tags": ["System"],
                "summary": "Runtime counters",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "Link": {
            "type": "object",
            "properties": {
                "url": {"type": "string"},
                "status": {"type": "string"},
                "filter_matched_id": {"type": "integer"},
                "deleted": {"type": "boolean"},
                "limit_reason": {"type": "string"},
                "source": {"type": "string"},
                "source_file": {"type": "string"},
                "error_message": {"type": "string"},
                "items_count": {"type": "integer"},
                "size_mb": {"type": "number"},
                "created_at": {"type": "string"},
                "updated_at": {"type": "string"}
            }
        },
        "Rule": {
            "type": "object",
            "properties": {
                "position": {"type": "integer"},
                "mode": {"type": "string"},
                "expression": {"type": "string"}
            }
        },
        "Filter": {
            "type": "object",
            "properties": {
                "numeric_id": {"type": "integer"},
                "name": {"type": "string"},
                "rules": {
                    "type": "array",
                    "items": {"$ref": "#/definitions/Rule"}
                },
                "action": {"type": "string"},
                "priority_rank": {"type": "integer"},
                "created_at": {"type": "string"},
                "updated_at": {"type": "string"}
            }
        },
        "Batch": {
            "type": "object",
            "properties": {
                "path": {"type": "string"},
                "source": {"type": "string"},
                "status": {"type": "string"},
                "size_bytes": {"type": "integer"},
                "links_found": {"type": "integer"},
                "processed_at": {"type": "string"}
            }
        },
        "LoginRequest": {
            "type": "object",
            "properties": {
                "username": {"type": "string"},
                "password": {"type": "string"}
            },
            "required": ["username", "password"]
        },
        "SetLinkStatusRequest": {
            "type": "object",
            "properties": {
                "url": {"type": "string"},
                "status": {"type": "string"}
            },
            "required": ["url", "status"]
        },
        "SetLinkStatusBulkRequest": {
            "type": "object",
            "properties": {
                "urls": {
                    "type": "array",
                    "items": {"type": "string"}
                },
                "status": {"type": "string"}
            },
            "required": ["urls", "status"]
        },
        "RulePayload": {
            "type": "object",
            "properties": {
                "position": {"type": "integer"},
                "mode": {"type": "string"},
                "expression": {"type": "string"}
            },
            "required": ["mode"]
        },
        "FilterPayload": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "action": {"type": "string"},
                "rules": {
                    "type": "array",
                    "items": {"$ref": "#/definitions/RulePayload"}
                }
            },
            "required": ["action", "rules"]
        },
        "MoveFilterRequest": {
            "type": "object",
            "properties": {
                "delta": {"type": "integer"}
            },
            "required": ["delta"]
        },
        "ResolveAuthoringRequest": {
            "type": "object",
            "properties": {
                "cancel": {"type": "boolean"},
                "filter": {"$ref": "#/definitions/FilterPayload"}
            }
        },
        "IngestFileRequest": {
            "type": "object",
            "properties": {
                "path": {"type": "string"},
                "force": {"type": "boolean"}
            },
            "required": ["path"]
        },
        "ClipboardRequest": {
            "type": "object",
            "properties": {
                "content": {"type": "string"}
            },
            "required": ["content"]
        },
        "SkipRequest": {
            "type": "object",
            "properties": {
                "url": {"type": "string"}
            }
        },
        "ResolveDecisionRequest": {
            "type": "object",
            "properties": {
                "decision": {"type": "string"}
            },
            "required": ["decision"]
        },
        "OverrideRequest": {
            "type": "object",
            "properties": {
                "url": {"type": "string"}
            },
            "required": ["url"]
        },
        "ExportRequest": {
            "type": "object",
            "properties": {
                "kind": {"type": "string"},
                "format": {"type": "string"}
            },
            "required": ["kind", "format"]
        },
        "QueueStatus": {
            "type": "object",
            "properties": {
                "state": {"type": "string"},
                "active": {
                    "type": "array",
                    "items": {"$ref": "#/definitions/ActiveDownload"}
                },
                "totals": {"$ref": "#/definitions/RunTotals"},
                "to_download": {"type": "integer"},
                "to_skip": {"type": "integer"},
                "limit_parked": {"type": "integer"},
                "failed": {"type": "integer"},
                "downloaded": {"type": "integer"},
                "pending_decisions": {"type": "integer"},
                "override_depth": {"type": "integer"}
            }
        },
        "ActiveDownload": {
            "type": "object",
            "properties": {
                "url": {"type": "string"},
                "items": {"type": "integer"},
                "size_mb": {"type": "number"},
                "elapsed_seconds": {"type": "number"}
            }
        },
        "RunTotals": {
            "type": "object",
            "properties": {
                "completed": {"type": "integer"},
                "failed": {"type": "integer"},
                "skipped": {"type": "integer"},
                "limit_skipped": {"type": "integer"}
            }
        },
        "PendingDecision": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "url": {"type": "string"},
                "kind": {"type": "string"},
                "items": {"type": "integer"},
                "elapsed_seconds": {"type": "number"},
                "size_mb": {"type": "number"},
                "threshold": {"type": "number"},
                "created_at": {"type": "string"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
