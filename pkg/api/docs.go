package api

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "securityDefinitions": {
        "ApiKeyAuth": {"type": "apiKey", "name": "X-API-Key", "in": "header"}
    },
    "security": [{"ApiKeyAuth": []}],
    "paths": {
        "/health": {
            "get": {"tags": ["health"], "summary": "Health check", "produces": ["application/json"],
                "responses": {"200": {"description": "OK"}}}
        },
        "/fields": {
            "get": {"tags": ["fields"], "summary": "List fields", "produces": ["application/json"],
                "responses": {"200": {"description": "OK"}}},
            "post": {"tags": ["fields"], "summary": "Store a field",
                "consumes": ["application/octet-stream", "image/x-exr"], "produces": ["application/json"],
                "parameters": [
                    {"name": "body", "in": "body", "required": true, "schema": {"type": "string", "format": "binary"}},
                    {"name": "channel", "in": "query", "type": "string"}
                ],
                "responses": {"201": {"description": "Created"}, "400": {"description": "Invalid container"}, "413": {"description": "Body too large"}}}
        },
        "/fields/{id}": {
            "get": {"tags": ["fields"], "summary": "Fetch a field",
                "produces": ["application/octet-stream", "image/x-exr", "application/json"],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["sf", "exr", "json"]},
                    {"name": "channel", "in": "query", "type": "string"}
                ],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Invalid id"}, "404": {"description": "Not found"}}},
            "put": {"tags": ["fields"], "summary": "Replace a field",
                "consumes": ["application/octet-stream", "image/x-exr"], "produces": ["application/json"],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "body", "in": "body", "required": true, "schema": {"type": "string", "format": "binary"}}
                ],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Invalid container"}, "404": {"description": "Not found"}}},
            "delete": {"tags": ["fields"], "summary": "Delete a field", "produces": ["application/json"],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not found"}}}
        },
        "/convert": {
            "post": {"tags": ["fields"], "summary": "Convert a field between SF01 and OpenEXR",
                "consumes": ["application/octet-stream", "image/x-exr"],
                "produces": ["application/octet-stream", "image/x-exr"],
                "parameters": [
                    {"name": "to", "in": "query", "required": true, "type": "string", "enum": ["sf", "exr"]},
                    {"name": "channel", "in": "query", "type": "string"},
                    {"name": "body", "in": "body", "required": true, "schema": {"type": "string", "format": "binary"}}
                ],
                "responses": {"200": {"description": "Converted field"}, "400": {"description": "Invalid input"}}}
        },
        "/stats": {
            "get": {"tags": ["diagnostics"], "summary": "Repository statistics", "produces": ["application/json"],
                "responses": {"200": {"description": "OK"}}}
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0.0",
	Host:             "localhost:8080",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "sfield REST API",
	Description:      "Stores and converts 2-D float32 scalar fields.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
