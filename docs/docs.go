// Package docs holds the swagger spec served at /swagger/*any.
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
        "/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["system"],
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/api/v1/watering": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["watering"],
                "summary": "List watering requests",
                "parameters": [
                    {"type": "integer", "description": "Planting position", "name": "position", "in": "query"},
                    {"enum": ["PENDING", "RUNNING", "SUCCEEDED", "FAILED"], "type": "string", "description": "Request status", "name": "status", "in": "query"},
                    {"type": "string", "description": "Created at or after (RFC3339, 'YYYY-MM-DD HH:MM:SS', or 'YYYY-MM-DD')", "name": "from", "in": "query"},
                    {"type": "string", "description": "Created at or before. Date-only treated as end of day.", "name": "to", "in": "query"},
                    {"type": "integer", "default": 100, "description": "Maximum rows", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "count, requests", "schema": {"type": "object", "additionalProperties": true}},
                    "400": {"description": "Bad Request", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "401": {"description": "Unauthorized", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "500": {"description": "Internal Server Error", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "Returns once the request is recorded as PENDING. The outcome is reported asynchronously.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["watering"],
                "summary": "Start watering",
                "parameters": [
                    {"description": "Watering order", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.WateringRequest"}}
                ],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/service.TriggerResult"}},
                    "400": {"description": "Bad Request", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "401": {"description": "Unauthorized", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "409": {"description": "Conflict", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "500": {"description": "Internal Server Error", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/api/v1/watering/{id}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["watering"],
                "summary": "Get watering request",
                "parameters": [
                    {"type": "string", "description": "Request id", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.WateringRecord"}},
                    "401": {"description": "Unauthorized", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "404": {"description": "Not Found", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "500": {"description": "Internal Server Error", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/api/v1/telemetry": {
            "get": {
                "security": [{"BearerAuth": []}],
                "description": "Live readings with cached fallback. Without 'channel' every configured channel is read.",
                "produces": ["application/json"],
                "tags": ["telemetry"],
                "summary": "Read sensors",
                "parameters": [
                    {"type": "string", "description": "Channel, e.g. moisture:5 or temperature", "name": "channel", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "count, readings", "schema": {"type": "object", "additionalProperties": true}},
                    "400": {"description": "Bad Request", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "401": {"description": "Unauthorized", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/api/v1/logs": {
            "get": {
                "security": [{"BearerAuth": []}],
                "description": "Filter events by date (RFC3339, 'YYYY-MM-DD HH:MM:SS', or 'YYYY-MM-DD'). If 'to' is date-only, it is treated as end-of-day inclusive.",
                "produces": ["application/json"],
                "tags": ["logs"],
                "summary": "List watering events",
                "parameters": [
                    {"type": "string", "example": "2025-08-01", "description": "Start of range", "name": "from", "in": "query"},
                    {"type": "string", "example": "2025-08-31", "description": "End of range. Date-only treated as end of day.", "name": "to", "in": "query"},
                    {"enum": ["PENDING", "RUNNING", "SUCCEEDED", "FAILED", "TIMEOUT", "RECOVERED"], "type": "string", "description": "Event type", "name": "type", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "count, events", "schema": {"type": "object", "additionalProperties": true}},
                    "400": {"description": "Bad Request", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "401": {"description": "Unauthorized", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "500": {"description": "Internal Server Error", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/internal/watering/status": {
            "post": {
                "description": "Completion callback for out-of-process workers. Loopback callers only.",
                "produces": ["application/json"],
                "tags": ["internal"],
                "summary": "Report a watering outcome",
                "parameters": [
                    {"type": "string", "description": "Request id", "name": "request_id", "in": "query", "required": true},
                    {"type": "boolean", "description": "Whether the run succeeded", "name": "success", "in": "query", "required": true},
                    {"type": "string", "description": "Failure reason", "name": "error", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "400": {"description": "Bad Request", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "403": {"description": "Forbidden", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "500": {"description": "Internal Server Error", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/ws": {
            "get": {
                "description": "WebSocket pushing {\"type\":\"readings\"} envelopes. Optional 'channel', 'interval' (e.g. 2s) or 'interval_ms'.",
                "tags": ["telemetry"],
                "summary": "Telemetry stream",
                "parameters": [
                    {"type": "string", "description": "Channel, e.g. moisture:5", "name": "channel", "in": "query"},
                    {"type": "string", "description": "Push interval, Go duration", "name": "interval", "in": "query"},
                    {"type": "integer", "description": "Push interval in milliseconds", "name": "interval_ms", "in": "query"}
                ],
                "responses": {}
            }
        }
    },
    "definitions": {
        "handlers.WateringRequest": {
            "type": "object",
            "properties": {
                "duration": {"description": "Watering time in configured duration units", "type": "integer", "example": 2},
                "position": {"description": "Planting position, 1..12 with the default wiring", "type": "integer", "example": 5}
            }
        },
        "service.TriggerResult": {
            "type": "object",
            "properties": {
                "accepted": {"type": "boolean"},
                "request_id": {"type": "string"}
            }
        },
        "models.WateringRecord": {
            "type": "object",
            "properties": {
                "created_at": {"type": "string"},
                "deadline_at": {"type": "string"},
                "duration": {"type": "integer"},
                "error": {"type": "string"},
                "finished_at": {"type": "string"},
                "line": {"type": "integer"},
                "position": {"type": "integer"},
                "request_id": {"type": "string"},
                "started_at": {"type": "string"},
                "status": {"type": "string"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "e-garden irrigation API",
	Description:      "Valve and pump orchestration with soil telemetry.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
