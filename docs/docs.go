// Package docs registers the pipeline-api OpenAPI document with swag so
// http-swagger can serve it. Keep it in step with the handler annotations.
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
        "/api/v1/events": {
            "post": {
                "description": "Dispatch each record to the stage owning its storage path. Any failure answers 500 so the sender redelivers.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["events"],
                "summary": "Receive object-created notifications",
                "responses": {
                    "200": {"description": "All records handled", "schema": {"type": "object", "additionalProperties": true}},
                    "400": {"description": "Malformed notification", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}},
                    "500": {"description": "A stage failed", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}}
                }
            }
        },
        "/api/v1/requests/{uuid}": {
            "get": {
                "description": "Diagnostic view of a generation request: requested, swapping, restoring or completed",
                "produces": ["application/json"],
                "tags": ["requests"],
                "summary": "Get request status",
                "parameters": [
                    {"type": "string", "description": "Request ID", "name": "uuid", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/model.StatusResponse"}},
                    "404": {"description": "Unknown request", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}},
                    "500": {"description": "Internal server error", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}}
                }
            }
        },
        "/apis/images/upload": {
            "post": {
                "description": "Pick a base portrait for the theme, gender and skin tone, record the request and return a five-minute upload URL for the face photo",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["images"],
                "summary": "Submit a generation request",
                "parameters": [
                    {"description": "Generation request", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/model.SubmitRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/model.SubmitResponse"}},
                    "400": {"description": "Missing or invalid field", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}},
                    "404": {"description": "No base portrait for the combination", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}},
                    "500": {"description": "Internal server error", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}}
                }
            }
        },
        "/apis/images/{userId}": {
            "get": {
                "description": "Return a five-minute download URL for the user's latest portrait with its story and attributes",
                "produces": ["application/json"],
                "tags": ["images"],
                "summary": "Fetch the latest result",
                "parameters": [
                    {"type": "string", "description": "User ID", "name": "userId", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/model.ResultResponse"}},
                    "400": {"description": "Missing user ID", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}},
                    "404": {"description": "User not found", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}},
                    "500": {"description": "Internal server error", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "handler.ErrorResponse": {
            "type": "object",
            "properties": {"error": {"type": "string"}}
        },
        "model.RequestStatus": {
            "type": "string",
            "enum": ["requested", "swapping", "restoring", "completed"],
            "x-enum-varnames": ["StatusRequested", "StatusSwapping", "StatusRestoring", "StatusCompleted"]
        },
        "model.ResultResponse": {
            "type": "object",
            "properties": {
                "gender": {"type": "string"},
                "imageUrl": {"type": "string"},
                "skin": {"type": "string"},
                "story": {"type": "string"},
                "theme": {"type": "string"},
                "userId": {"type": "string"},
                "uuid": {"type": "string"}
            }
        },
        "model.StatusResponse": {
            "type": "object",
            "properties": {
                "createdAt": {"type": "string"},
                "status": {"$ref": "#/definitions/model.RequestStatus"},
                "updatedAt": {"type": "string"},
                "userId": {"type": "string"},
                "uuid": {"type": "string"}
            }
        },
        "model.SubmitRequest": {
            "type": "object",
            "properties": {
                "gender": {"type": "string"},
                "skin": {"type": "string"},
                "theme": {"type": "string"},
                "userId": {"type": "string"}
            }
        },
        "model.SubmitResponse": {
            "type": "object",
            "properties": {
                "uploadUrl": {"type": "string"},
                "uuid": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Portrait Pipeline API",
	Description:      "Submit face photos for stylized portraits and fetch the latest result.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
