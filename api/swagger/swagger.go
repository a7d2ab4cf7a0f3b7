package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Timetable Back Office API",
        "description": "Binding and schedule-constraint management for school timetabling",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Auth", "description": "Token issuance"},
        {"name": "Bindings", "description": "Teacher-subject-target assignments"},
        {"name": "Availability", "description": "Teacher availability windows"},
        {"name": "Exports", "description": "Teacher roster exports"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Exchange credentials for a JWT",
                "parameters": [
                    {"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "Token issued", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/bindings": {
            "post": {
                "tags": ["Bindings"],
                "summary": "Create a binding",
                "parameters": [
                    {"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateBindingRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error"},
                    "409": {"description": "Duplicate binding"},
                    "422": {"description": "Workload exceeded"}
                }
            }
        },
        "/bindings/{id}": {
            "get": {
                "tags": ["Bindings"],
                "summary": "Fetch a binding",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found"}
                }
            },
            "put": {
                "tags": ["Bindings"],
                "summary": "Update a binding; omitted fields keep their values",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateBindingRequest"}}
                ],
                "responses": {
                    "200": {"description": "Updated", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found"},
                    "409": {"description": "Duplicate binding"},
                    "422": {"description": "Workload exceeded"}
                }
            },
            "delete": {
                "tags": ["Bindings"],
                "summary": "Soft-delete a binding",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "Deleted"},
                    "404": {"description": "Not found"}
                }
            }
        },
        "/bindings/replace": {
            "post": {
                "tags": ["Bindings"],
                "summary": "Search-and-replace a referenced teacher, subject, or room across bindings",
                "parameters": [
                    {"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ReplaceBindingFieldRequest"}}
                ],
                "responses": {
                    "200": {"description": "Per-binding outcomes", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error"}
                }
            }
        },
        "/bindings/{id}/rules/{ruleId}": {
            "post": {
                "tags": ["Bindings"],
                "summary": "Attach a rule to a binding",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "ruleId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "Attached"},
                    "404": {"description": "Not found"}
                }
            },
            "delete": {
                "tags": ["Bindings"],
                "summary": "Detach a rule from a binding",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "ruleId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "Detached"},
                    "404": {"description": "Not found"}
                }
            }
        },
        "/teachers/{id}/bindings": {
            "get": {
                "tags": ["Bindings"],
                "summary": "List a teacher's active bindings",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Teacher not found"}
                }
            }
        },
        "/teachers/{id}/availability": {
            "get": {
                "tags": ["Availability"],
                "summary": "List a teacher's availability windows",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Teacher not found"}
                }
            },
            "post": {
                "tags": ["Availability"],
                "summary": "Add an availability window",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AvailabilityWindowRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Overlap conflict"},
                    "422": {"description": "Daily quota exceeded"}
                }
            }
        },
        "/availability/{id}": {
            "put": {
                "tags": ["Availability"],
                "summary": "Update an availability window",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AvailabilityWindowRequest"}}
                ],
                "responses": {
                    "200": {"description": "Updated", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Overlap conflict"},
                    "422": {"description": "Daily quota exceeded"}
                }
            },
            "delete": {
                "tags": ["Availability"],
                "summary": "Soft-delete an availability window",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "Deleted"},
                    "404": {"description": "Not found"}
                }
            }
        },
        "/teachers/{id}/bindings/export.csv": {
            "get": {
                "tags": ["Exports"],
                "summary": "Download a teacher's roster as CSV",
                "produces": ["text/csv"],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "CSV payload"},
                    "404": {"description": "Teacher not found"}
                }
            }
        },
        "/teachers/{id}/bindings/export.pdf": {
            "get": {
                "tags": ["Exports"],
                "summary": "Download a teacher's roster as PDF",
                "produces": ["application/pdf"],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "PDF payload"},
                    "404": {"description": "Teacher not found"}
                }
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "CreateBindingRequest": {
            "type": "object",
            "required": ["organization_id", "teacher_id", "subject_id", "periods_per_week"],
            "properties": {
                "organization_id": {"type": "string"},
                "teacher_id": {"type": "string"},
                "subject_id": {"type": "string"},
                "class_id": {"type": "string"},
                "class_band_id": {"type": "string"},
                "room_id": {"type": "string"},
                "plan_setting_id": {"type": "string"},
                "periods_per_week": {"type": "integer"},
                "is_fixed": {"type": "boolean"},
                "priority": {"type": "integer"},
                "status": {"type": "string"},
                "rule_ids": {"type": "array", "items": {"type": "string"}}
            }
        },
        "UpdateBindingRequest": {
            "type": "object",
            "properties": {
                "teacher_id": {"type": "string"},
                "subject_id": {"type": "string"},
                "class_id": {"type": "string"},
                "class_band_id": {"type": "string"},
                "room_id": {"type": "string"},
                "plan_setting_id": {"type": "string"},
                "periods_per_week": {"type": "integer"},
                "is_fixed": {"type": "boolean"},
                "priority": {"type": "integer"},
                "status": {"type": "string"}
            }
        },
        "ReplaceBindingFieldRequest": {
            "type": "object",
            "required": ["field_type", "search_id", "replace_id", "mode"],
            "properties": {
                "field_type": {"type": "string", "enum": ["teacher", "subject", "room"]},
                "search_id": {"type": "string"},
                "replace_id": {"type": "string"},
                "mode": {"type": "string", "enum": ["all", "single", "selected"]},
                "selected_ids": {"type": "array", "items": {"type": "string"}},
                "organization_id": {"type": "string"}
            }
        },
        "AvailabilityWindowRequest": {
            "type": "object",
            "required": ["day_of_week", "start_minutes", "end_minutes"],
            "properties": {
                "day_of_week": {"type": "integer", "minimum": 1, "maximum": 7},
                "start_minutes": {"type": "integer"},
                "end_minutes": {"type": "integer"}
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
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "per_page": {"type": "integer"},
                "total": {"type": "integer"},
                "total_pages": {"type": "integer"}
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
