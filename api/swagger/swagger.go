package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "AJU Clearance API",
        "description": "Fee receipt intake, unit review and clearance ledger for students and bursary staff",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http",
        "https"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Auth", "description": "Login, token refresh and password flows"},
        {"name": "Fees", "description": "Fee catalog per clearing unit"},
        {"name": "Receipts", "description": "Payment receipt uploads"},
        {"name": "Review", "description": "Unit review queue, decisions and overrides"},
        {"name": "Clearance", "description": "Clearance ledger, slips and exports"},
        {"name": "Semesters", "description": "Academic calendar and rollover"},
        {"name": "Notifications", "description": "Student notification inbox"},
        {"name": "Events", "description": "Live clearance updates over server-sent events"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Authenticate with email and password",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/auth/refresh": {
            "post": {
                "tags": ["Auth"],
                "summary": "Rotate a refresh token",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RefreshTokenRequest"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/auth/forgot-password": {
            "post": {
                "tags": ["Auth"],
                "summary": "Send a password reset link",
                "responses": {"202": {"description": "Accepted"}}
            }
        },
        "/auth/me": {
            "get": {
                "tags": ["Auth"],
                "summary": "Current user profile",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/fees": {
            "get": {
                "tags": ["Fees"],
                "summary": "List catalog fees",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "unit", "in": "query", "type": "string"},
                    {"name": "department", "in": "query", "type": "string"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "post": {
                "tags": ["Fees"],
                "summary": "Create a catalog fee",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateFeeRequest"}}
                ],
                "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/fees/{id}": {
            "get": {
                "tags": ["Fees"],
                "summary": "Get a catalog fee",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "patch": {
                "tags": ["Fees"],
                "summary": "Update a catalog fee",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "delete": {
                "tags": ["Fees"],
                "summary": "Delete a catalog fee",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"204": {"description": "No Content"}}
            }
        },
        "/receipts": {
            "post": {
                "tags": ["Receipts"],
                "summary": "Upload a payment receipt",
                "security": [{"BearerAuth": []}],
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"name": "receipt", "in": "formData", "required": true, "type": "file"},
                    {"name": "fee_id", "in": "formData", "required": true, "type": "string"},
                    {"name": "academic_year", "in": "formData", "required": true, "type": "integer"},
                    {"name": "semester", "in": "formData", "required": true, "type": "string", "enum": ["first", "second"]}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Unit already cleared or receipt pending"},
                    "412": {"description": "Prerequisite unit not cleared or semester not current"}
                }
            }
        },
        "/receipts/mine": {
            "get": {
                "tags": ["Receipts"],
                "summary": "List the caller's receipts",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/receipts/{id}/url": {
            "get": {
                "tags": ["Receipts"],
                "summary": "Issue a signed download URL",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/receipts/file": {
            "get": {
                "tags": ["Receipts"],
                "summary": "Download a receipt image through a signed URL",
                "parameters": [
                    {"name": "token", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {"200": {"description": "Receipt image"}, "403": {"description": "Invalid or expired signature"}}
            }
        },
        "/review/queue": {
            "get": {
                "tags": ["Review"],
                "summary": "Pending receipts for the reviewer's unit",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "unit", "in": "query", "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/review/receipts/{id}/decision": {
            "post": {
                "tags": ["Review"],
                "summary": "Approve or reject a receipt",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/DecideReceiptRequest"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/review/units/{unitId}/override": {
            "post": {
                "tags": ["Review"],
                "summary": "Manually clear a unit for a student",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "unitId", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/OverrideRequest"}}
                ],
                "responses": {"204": {"description": "No Content"}}
            }
        },
        "/clearance/me": {
            "get": {
                "tags": ["Clearance"],
                "summary": "Clearance summary for the calling student",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/clearance/lookup": {
            "get": {
                "tags": ["Clearance"],
                "summary": "Look up a student's clearance by track number",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "trackNo", "in": "query", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/clearance/students/{studentId}": {
            "get": {
                "tags": ["Clearance"],
                "summary": "Clearance summary for a student",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "studentId", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/clearance/units/{unitId}": {
            "get": {
                "tags": ["Clearance"],
                "summary": "Ledger rows for a unit",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "unitId", "in": "path", "required": true, "type": "string"},
                    {"name": "status", "in": "query", "type": "string"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/clearance/units/{unitId}/export": {
            "get": {
                "tags": ["Clearance"],
                "summary": "Export a unit ledger as CSV",
                "security": [{"BearerAuth": []}],
                "produces": ["text/csv"],
                "parameters": [{"name": "unitId", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "CSV file"}}
            }
        },
        "/clearance/slip": {
            "get": {
                "tags": ["Clearance"],
                "summary": "Issue a clearance slip for a fully cleared student",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/clearance/slip/pdf": {
            "get": {
                "tags": ["Clearance"],
                "summary": "Download the clearance slip as PDF",
                "security": [{"BearerAuth": []}],
                "produces": ["application/pdf"],
                "responses": {"200": {"description": "PDF file"}, "412": {"description": "Not fully cleared"}}
            }
        },
        "/clearance/slip/verify": {
            "get": {
                "tags": ["Clearance"],
                "summary": "Verify a clearance slip token",
                "parameters": [{"name": "token", "in": "query", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/semesters": {
            "get": {
                "tags": ["Semesters"],
                "summary": "List semesters",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/semesters/current": {
            "get": {
                "tags": ["Semesters"],
                "summary": "Current semester",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/semesters/rollover": {
            "post": {
                "tags": ["Semesters"],
                "summary": "Open a new semester and reset clearance state",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RolloverRequest"}}
                ],
                "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/notifications": {
            "get": {
                "tags": ["Notifications"],
                "summary": "List notifications",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "unread", "in": "query", "type": "boolean"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/notifications/{id}/read": {
            "post": {
                "tags": ["Notifications"],
                "summary": "Mark a notification read",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"204": {"description": "No Content"}}
            }
        },
        "/notifications/{id}/dismiss": {
            "post": {
                "tags": ["Notifications"],
                "summary": "Dismiss a notification",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"204": {"description": "No Content"}}
            }
        },
        "/events/stream": {
            "get": {
                "tags": ["Events"],
                "summary": "Subscribe to clearance events",
                "produces": ["text/event-stream"],
                "parameters": [{"name": "access_token", "in": "query", "type": "string"}],
                "responses": {"200": {"description": "Event stream"}}
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
        "RefreshTokenRequest": {
            "type": "object",
            "required": ["refresh_token"],
            "properties": {"refresh_token": {"type": "string"}}
        },
        "CreateFeeRequest": {
            "type": "object",
            "required": ["name", "amount", "unit_id", "account_number"],
            "properties": {
                "name": {"type": "string"},
                "amount": {"type": "integer"},
                "unit_id": {"type": "string"},
                "department": {"type": "string"},
                "account_number": {"type": "string"},
                "description": {"type": "string"}
            }
        },
        "DecideReceiptRequest": {
            "type": "object",
            "required": ["action"],
            "properties": {
                "action": {"type": "string", "enum": ["approve", "reject"]},
                "reason": {"type": "string"}
            }
        },
        "OverrideRequest": {
            "type": "object",
            "required": ["student_id"],
            "properties": {
                "student_id": {"type": "string"},
                "note": {"type": "string"}
            }
        },
        "RolloverRequest": {
            "type": "object",
            "required": ["session", "semester"],
            "properties": {
                "session": {"type": "string"},
                "semester": {"type": "string", "enum": ["First", "Second"]},
                "confirm": {"type": "boolean"}
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
