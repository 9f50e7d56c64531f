package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "School Results API",
        "description": "Multi-tenant result publication and PIN verification service",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "results", "description": "Result upload and approval workflow"},
        {"name": "pins", "description": "PIN issuance"},
        {"name": "pin-requests", "description": "PIN request review workflow"},
        {"name": "students", "description": "Student registration"},
        {"name": "public", "description": "Public result verification"}
    ],
    "paths": {
        "/health": {
            "get": {
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ready": {
            "get": {
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "Ready"},
                    "503": {"description": "Database unavailable"}
                }
            }
        },
        "/verify-result": {
            "post": {
                "tags": ["public"],
                "summary": "Verify a result with a PIN",
                "parameters": [
                    {"name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/VerifyResultRequest"}}
                ],
                "responses": {
                    "200": {"description": "Approved result", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "PIN or result not found"},
                    "409": {"description": "PIN already used"},
                    "410": {"description": "PIN expired"},
                    "429": {"description": "Attempts exhausted or rate limited"}
                }
            }
        },
        "/results": {
            "get": {
                "tags": ["results"],
                "summary": "List results",
                "responses": {
                    "200": {"description": "Results page", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["results"],
                "summary": "Create a draft result",
                "responses": {
                    "201": {"description": "Created"},
                    "409": {"description": "Duplicate result"}
                }
            }
        },
        "/results/{id}": {
            "get": {
                "tags": ["results"],
                "summary": "Get a result",
                "responses": {
                    "200": {"description": "Result"},
                    "404": {"description": "Not found"}
                }
            },
            "put": {
                "tags": ["results"],
                "summary": "Update an unapproved result",
                "responses": {
                    "200": {"description": "Updated"},
                    "409": {"description": "Not editable in current status"}
                }
            },
            "delete": {
                "tags": ["results"],
                "summary": "Delete an unapproved result",
                "responses": {
                    "204": {"description": "Deleted"},
                    "409": {"description": "Approved results cannot be deleted"}
                }
            }
        },
        "/results/{id}/submit": {
            "post": {
                "tags": ["results"],
                "summary": "Submit a draft result for review",
                "responses": {
                    "200": {"description": "Submitted"},
                    "409": {"description": "Invalid transition"}
                }
            }
        },
        "/results/{id}/approve": {
            "post": {
                "tags": ["results"],
                "summary": "Approve a submitted result",
                "responses": {
                    "200": {"description": "Approved"},
                    "409": {"description": "Invalid transition"}
                }
            }
        },
        "/results/{id}/reject": {
            "post": {
                "tags": ["results"],
                "summary": "Reject a submitted result",
                "responses": {
                    "200": {"description": "Rejected"},
                    "409": {"description": "Invalid transition"}
                }
            }
        },
        "/results/{id}/reopen": {
            "post": {
                "tags": ["results"],
                "summary": "Reopen a rejected result as a draft",
                "responses": {
                    "200": {"description": "Reopened"},
                    "409": {"description": "Invalid transition"}
                }
            }
        },
        "/pins": {
            "get": {
                "tags": ["pins"],
                "summary": "List PINs for a school scope",
                "responses": {
                    "200": {"description": "PINs"}
                }
            }
        },
        "/pins/generate": {
            "post": {
                "tags": ["pins"],
                "summary": "Generate a PIN batch directly",
                "responses": {
                    "201": {"description": "Generated"}
                }
            }
        },
        "/pin-requests": {
            "get": {
                "tags": ["pin-requests"],
                "summary": "List PIN requests",
                "responses": {
                    "200": {"description": "Requests"}
                }
            },
            "post": {
                "tags": ["pin-requests"],
                "summary": "Open a PIN request",
                "responses": {
                    "201": {"description": "Created"},
                    "409": {"description": "Pending request already exists"}
                }
            }
        },
        "/pin-requests/{id}": {
            "get": {
                "tags": ["pin-requests"],
                "summary": "Get a PIN request",
                "responses": {
                    "200": {"description": "Request"},
                    "404": {"description": "Not found"}
                }
            }
        },
        "/pin-requests/{id}/approve": {
            "post": {
                "tags": ["pin-requests"],
                "summary": "Approve a pending PIN request",
                "responses": {
                    "200": {"description": "Approved with generated PINs"},
                    "409": {"description": "Already processed"}
                }
            }
        },
        "/pin-requests/{id}/reject": {
            "post": {
                "tags": ["pin-requests"],
                "summary": "Reject a pending PIN request",
                "responses": {
                    "200": {"description": "Rejected"},
                    "400": {"description": "Reason required"}
                }
            }
        },
        "/pin-requests/{id}/export": {
            "post": {
                "tags": ["pin-requests"],
                "summary": "Export an approved PIN batch as CSV",
                "responses": {
                    "200": {"description": "Signed download link"},
                    "409": {"description": "Request not approved"}
                }
            }
        },
        "/downloads": {
            "get": {
                "tags": ["pin-requests"],
                "summary": "Download an exported PIN batch",
                "responses": {
                    "200": {"description": "CSV attachment"},
                    "403": {"description": "Invalid or expired link"}
                }
            }
        },
        "/students": {
            "post": {
                "tags": ["students"],
                "summary": "Register a student",
                "responses": {
                    "201": {"description": "Registered"},
                    "409": {"description": "Admission number taken"}
                }
            }
        },
        "/students/{id}": {
            "get": {
                "tags": ["students"],
                "summary": "Get a student",
                "responses": {
                    "200": {"description": "Student"},
                    "404": {"description": "Not found"}
                }
            }
        }
    },
    "definitions": {
        "VerifyResultRequest": {
            "type": "object",
            "required": ["school_code", "admission_number", "session", "term", "pin_code"],
            "properties": {
                "school_code": {"type": "string"},
                "admission_number": {"type": "string"},
                "session": {"type": "string"},
                "term": {"type": "string", "enum": ["First", "Second", "Third"]},
                "pin_code": {"type": "string"}
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
                "status": {"type": "integer"},
                "details": {"type": "object"}
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
