// Package docs registers the OpenAPI document served under /swagger/.
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
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    },
    "security": [{"BearerAuth": []}],
    "paths": {
        "/v1/auth/signup": {
            "post": {
                "tags": ["auth"],
                "summary": "Register an account",
                "security": [],
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/SignupRequest"}}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/Session"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/Error"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/Error"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/Error"}}
                }
            }
        },
        "/v1/auth/login": {
            "post": {
                "tags": ["auth"],
                "summary": "Sign in with email and password",
                "security": [],
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/Session"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/Error"}},
                    "429": {"description": "Too Many Requests", "schema": {"$ref": "#/definitions/Error"}}
                }
            }
        },
        "/v1/auth/google": {
            "post": {
                "tags": ["auth"],
                "summary": "Sign in with a Google ID token",
                "security": [],
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"type": "object", "properties": {"id_token": {"type": "string"}}}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/Session"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/Error"}}
                }
            }
        },
        "/v1/auth/me": {
            "get": {
                "tags": ["auth"],
                "summary": "Current user",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/User"}}}
            },
            "patch": {
                "tags": ["auth"],
                "summary": "Update name or avatar",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/User"}}}
            }
        },
        "/v1/courses": {
            "get": {
                "tags": ["courses"],
                "summary": "List courses visible to the caller",
                "parameters": [
                    {"in": "query", "name": "lifecycle", "type": "string", "enum": ["DRAFT", "PENDING_REVIEW", "PUBLISHED", "ARCHIVED"]},
                    {"in": "query", "name": "lecturer_id", "type": "integer"},
                    {"in": "query", "name": "search", "type": "string"}
                ],
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "tags": ["courses"],
                "summary": "Create a draft course",
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/Course"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/Error"}}
                }
            }
        },
        "/v1/courses/{id}/transition": {
            "post": {
                "tags": ["courses"],
                "summary": "Move a course through its lifecycle",
                "description": "Actions: submitForReview, publish, archive, saveDraft.",
                "parameters": [
                    {"in": "path", "name": "id", "type": "integer", "required": true},
                    {"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/TransitionRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/Course"}},
                    "400": {"description": "Invalid action or transition", "schema": {"$ref": "#/definitions/Error"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/Error"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/Error"}},
                    "409": {"description": "Concurrent transition", "schema": {"$ref": "#/definitions/Error"}}
                }
            }
        },
        "/v1/enrollments": {
            "get": {"tags": ["enrollments"], "summary": "List enrollments visible to the caller", "responses": {"200": {"description": "OK"}}},
            "post": {
                "tags": ["enrollments"],
                "summary": "Enroll in a published course",
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"type": "object", "properties": {"course_id": {"type": "integer"}}}}],
                "responses": {
                    "201": {"description": "Created"},
                    "409": {"description": "Already enrolled or course not open", "schema": {"$ref": "#/definitions/Error"}}
                }
            }
        },
        "/v1/assignments": {
            "get": {"tags": ["coursework"], "summary": "List assignments visible to the caller", "responses": {"200": {"description": "OK"}}},
            "post": {"tags": ["coursework"], "summary": "Create an assignment", "responses": {"201": {"description": "Created"}}}
        },
        "/v1/assignments/{id}/submissions": {
            "post": {
                "tags": ["coursework"],
                "summary": "Submit work for an assignment",
                "parameters": [{"in": "path", "name": "id", "type": "integer", "required": true}],
                "responses": {"201": {"description": "Created"}, "409": {"description": "Already submitted"}}
            }
        },
        "/v1/submissions/{id}/grade": {
            "post": {
                "tags": ["coursework"],
                "summary": "Grade a submission",
                "parameters": [{"in": "path", "name": "id", "type": "integer", "required": true}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/v1/stats/overview": {
            "get": {"tags": ["stats"], "summary": "Platform overview (admin)", "responses": {"200": {"description": "OK"}}}
        },
        "/v1/events": {
            "get": {"tags": ["events"], "summary": "Server-sent domain events (admin)", "produces": ["text/event-stream"], "responses": {"200": {"description": "Event stream"}}}
        }
    },
    "definitions": {
        "Error": {
            "type": "object",
            "properties": {
                "error": {"type": "string"},
                "code": {"type": "string"},
                "fields": {"type": "object", "additionalProperties": {"type": "string"}},
                "request_id": {"type": "string"}
            }
        },
        "SignupRequest": {
            "type": "object",
            "required": ["name", "email", "password"],
            "properties": {
                "name": {"type": "string"},
                "email": {"type": "string"},
                "password": {"type": "string"},
                "role": {"type": "string", "enum": ["student", "lecturer", "admin"]},
                "admin_code": {"type": "string"}
            }
        },
        "LoginRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "TransitionRequest": {
            "type": "object",
            "required": ["action"],
            "properties": {
                "action": {"type": "string", "enum": ["submitForReview", "publish", "archive", "saveDraft"]}
            }
        },
        "User": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "email": {"type": "string"},
                "name": {"type": "string"},
                "role": {"type": "string"},
                "is_active": {"type": "boolean"},
                "auth_provider": {"type": "string"}
            }
        },
        "Session": {
            "type": "object",
            "properties": {
                "user": {"$ref": "#/definitions/User"},
                "token": {"type": "string"},
                "expires_at": {"type": "string", "format": "date-time"}
            }
        },
        "Course": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "code": {"type": "string"},
                "title": {"type": "string"},
                "description": {"type": "string"},
                "lecturer_id": {"type": "integer"},
                "credits": {"type": "integer"},
                "lifecycle": {"type": "string", "enum": ["DRAFT", "PENDING_REVIEW", "PUBLISHED", "ARCHIVED"]}
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
	Title:            "AcademiHub API",
	Description:      "University course management backend.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
