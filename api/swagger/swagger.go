package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "LMS Report API",
        "description": "Cached student, course and instructor analytics reports",
        "version": "1.0.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    },
    "tags": [
        {
            "name": "Reports",
            "description": "Report generation, lookup and export"
        },
        {
            "name": "Ops",
            "description": "Health and metrics"
        }
    ],
    "paths": {
        "/health": {
            "get": {
                "tags": [
                    "Ops"
                ],
                "summary": "Liveness check",
                "responses": {
                    "200": {
                        "description": "OK"
                    }
                }
            }
        },
        "/ready": {
            "get": {
                "tags": [
                    "Ops"
                ],
                "summary": "Readiness check",
                "responses": {
                    "200": {
                        "description": "Ready"
                    },
                    "503": {
                        "description": "Database unavailable"
                    }
                }
            }
        },
        "/metrics": {
            "get": {
                "tags": [
                    "Ops"
                ],
                "summary": "Prometheus metrics",
                "produces": [
                    "text/plain"
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    }
                }
            }
        },
        "/api/report/student/general": {
            "get": {
                "tags": [
                    "Reports"
                ],
                "summary": "Student snapshot report",
                "parameters": [
                    {
                        "name": "admin_id",
                        "in": "query",
                        "type": "string",
                        "required": true,
                        "description": "Requesting admin ID (max 8 characters)"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/Envelope"
                        }
                    },
                    "400": {
                        "description": "Invalid query",
                        "schema": {
                            "$ref": "#/definitions/ErrorEnvelope"
                        }
                    },
                    "429": {
                        "description": "Rate limited",
                        "schema": {
                            "$ref": "#/definitions/ErrorEnvelope"
                        }
                    },
                    "500": {
                        "description": "Assembly failed",
                        "schema": {
                            "$ref": "#/definitions/ErrorEnvelope"
                        }
                    }
                }
            }
        },
        "/api/report/student/ranged": {
            "get": {
                "tags": [
                    "Reports"
                ],
                "summary": "Student monthly report over a range",
                "parameters": [
                    {
                        "name": "admin_id",
                        "in": "query",
                        "type": "string",
                        "required": true,
                        "description": "Requesting admin ID (max 8 characters)"
                    },
                    {
                        "name": "start",
                        "in": "query",
                        "type": "string",
                        "required": true,
                        "description": "First month, YYYY-MM"
                    },
                    {
                        "name": "end",
                        "in": "query",
                        "type": "string",
                        "required": false,
                        "description": "Last month, YYYY-MM; defaults to start"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/Envelope"
                        }
                    },
                    "400": {
                        "description": "Invalid query",
                        "schema": {
                            "$ref": "#/definitions/ErrorEnvelope"
                        }
                    },
                    "429": {
                        "description": "Rate limited",
                        "schema": {
                            "$ref": "#/definitions/ErrorEnvelope"
                        }
                    },
                    "500": {
                        "description": "Assembly failed",
                        "schema": {
                            "$ref": "#/definitions/ErrorEnvelope"
                        }
                    }
                }
            }
        },
        "/api/report/student/{rid}": {
            "get": {
                "tags": [
                    "Reports"
                ],
                "summary": "Stored student report by ID",
                "parameters": [
                    {
                        "name": "rid",
                        "in": "path",
                        "type": "string",
                        "required": true,
                        "description": "Report ID"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/Envelope"
                        }
                    },
                    "404": {
                        "description": "Unknown report",
                        "schema": {
                            "$ref": "#/definitions/ErrorEnvelope"
                        }
                    },
                    "500": {
                        "description": "Lookup failed",
                        "schema": {
                            "$ref": "#/definitions/ErrorEnvelope"
                        }
                    }
                }
            }
        },
        "/api/report/student/{rid}/export": {
            "get": {
                "tags": [
                    "Reports"
                ],
                "summary": "Download a stored student report",
                "produces": [
                    "text/csv",
                    "application/pdf"
                ],
                "parameters": [
                    {
                        "name": "rid",
                        "in": "path",
                        "type": "string",
                        "required": true,
                        "description": "Report ID"
                    },
                    {
                        "name": "format",
                        "in": "query",
                        "type": "string",
                        "enum": [
                            "csv",
                            "pdf"
                        ],
                        "description": "Defaults to csv"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "Attachment",
                        "schema": {
                            "type": "file"
                        }
                    },
                    "400": {
                        "description": "Unknown format",
                        "schema": {
                            "$ref": "#/definitions/ErrorEnvelope"
                        }
                    },
                    "404": {
                        "description": "Unknown report",
                        "schema": {
                            "$ref": "#/definitions/ErrorEnvelope"
                        }
                    }
                }
            }
        },
        "/api/report/course/general": {
            "get": {
                "tags": [
                    "Reports"
                ],
                "summary": "Course snapshot report",
                "parameters": [
                    {
                        "name": "admin_id",
                        "in": "query",
                        "type": "string",
                        "required": true,
                        "description": "Requesting admin ID (max 8 characters)"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/Envelope"
                        }
                    },
                    "400": {
                        "description": "Invalid query",
                        "schema": {
                            "$ref": "#/definitions/ErrorEnvelope"
                        }
                    },
                    "429": {
                        "description": "Rate limited",
                        "schema": {
                            "$ref": "#/definitions/ErrorEnvelope"
                        }
                    },
                    "500": {
                        "description": "Assembly failed",
                        "schema": {
                            "$ref": "#/definitions/ErrorEnvelope"
                        }
                    }
                }
            }
        },
        "/api/report/course/ranged": {
            "get": {
                "tags": [
                    "Reports"
                ],
                "summary": "Course monthly report over a range",
                "parameters": [
                    {
                        "name": "admin_id",
                        "in": "query",
                        "type": "string",
                        "required": true,
                        "description": "Requesting admin ID (max 8 characters)"
                    },
                    {
                        "name": "start",
                        "in": "query",
                        "type": "string",
                        "required": true,
                        "description": "First month, YYYY-MM"
                    },
                    {
                        "name": "end",
                        "in": "query",
                        "type": "string",
                        "required": false,
                        "description": "Last month, YYYY-MM; defaults to start"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/Envelope"
                        }
                    },
                    "400": {
                        "description": "Invalid query",
                        "schema": {
                            "$ref": "#/definitions/ErrorEnvelope"
                        }
                    },
                    "429": {
                        "description": "Rate limited",
                        "schema": {
                            "$ref": "#/definitions/ErrorEnvelope"
                        }
                    },
                    "500": {
                        "description": "Assembly failed",
                        "schema": {
                            "$ref": "#/definitions/ErrorEnvelope"
                        }
                    }
                }
            }
        },
        "/api/report/course/{rid}": {
            "get": {
                "tags": [
                    "Reports"
                ],
                "summary": "Stored course report by ID",
                "parameters": [
                    {
                        "name": "rid",
                        "in": "path",
                        "type": "string",
                        "required": true,
                        "description": "Report ID"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/Envelope"
                        }
                    },
                    "404": {
                        "description": "Unknown report",
                        "schema": {
                            "$ref": "#/definitions/ErrorEnvelope"
                        }
                    },
                    "500": {
                        "description": "Lookup failed",
                        "schema": {
                            "$ref": "#/definitions/ErrorEnvelope"
                        }
                    }
                }
            }
        },
        "/api/report/course/{rid}/export": {
            "get": {
                "tags": [
                    "Reports"
                ],
                "summary": "Download a stored course report",
                "produces": [
                    "text/csv",
                    "application/pdf"
                ],
                "parameters": [
                    {
                        "name": "rid",
                        "in": "path",
                        "type": "string",
                        "required": true,
                        "description": "Report ID"
                    },
                    {
                        "name": "format",
                        "in": "query",
                        "type": "string",
                        "enum": [
                            "csv",
                            "pdf"
                        ],
                        "description": "Defaults to csv"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "Attachment",
                        "schema": {
                            "type": "file"
                        }
                    },
                    "400": {
                        "description": "Unknown format",
                        "schema": {
                            "$ref": "#/definitions/ErrorEnvelope"
                        }
                    },
                    "404": {
                        "description": "Unknown report",
                        "schema": {
                            "$ref": "#/definitions/ErrorEnvelope"
                        }
                    }
                }
            }
        },
        "/api/report/instructor/general": {
            "get": {
                "tags": [
                    "Reports"
                ],
                "summary": "Instructor snapshot report",
                "parameters": [
                    {
                        "name": "admin_id",
                        "in": "query",
                        "type": "string",
                        "required": true,
                        "description": "Requesting admin ID (max 8 characters)"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/Envelope"
                        }
                    },
                    "400": {
                        "description": "Invalid query",
                        "schema": {
                            "$ref": "#/definitions/ErrorEnvelope"
                        }
                    },
                    "429": {
                        "description": "Rate limited",
                        "schema": {
                            "$ref": "#/definitions/ErrorEnvelope"
                        }
                    },
                    "500": {
                        "description": "Assembly failed",
                        "schema": {
                            "$ref": "#/definitions/ErrorEnvelope"
                        }
                    }
                }
            }
        },
        "/api/report/instructor/ranged": {
            "get": {
                "tags": [
                    "Reports"
                ],
                "summary": "Instructor monthly report over a range",
                "parameters": [
                    {
                        "name": "admin_id",
                        "in": "query",
                        "type": "string",
                        "required": true,
                        "description": "Requesting admin ID (max 8 characters)"
                    },
                    {
                        "name": "start",
                        "in": "query",
                        "type": "string",
                        "required": true,
                        "description": "First month, YYYY-MM"
                    },
                    {
                        "name": "end",
                        "in": "query",
                        "type": "string",
                        "required": false,
                        "description": "Last month, YYYY-MM; defaults to start"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/Envelope"
                        }
                    },
                    "400": {
                        "description": "Invalid query",
                        "schema": {
                            "$ref": "#/definitions/ErrorEnvelope"
                        }
                    },
                    "429": {
                        "description": "Rate limited",
                        "schema": {
                            "$ref": "#/definitions/ErrorEnvelope"
                        }
                    },
                    "500": {
                        "description": "Assembly failed",
                        "schema": {
                            "$ref": "#/definitions/ErrorEnvelope"
                        }
                    }
                }
            }
        },
        "/api/report/instructor/{rid}": {
            "get": {
                "tags": [
                    "Reports"
                ],
                "summary": "Stored instructor report by ID",
                "parameters": [
                    {
                        "name": "rid",
                        "in": "path",
                        "type": "string",
                        "required": true,
                        "description": "Report ID"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/Envelope"
                        }
                    },
                    "404": {
                        "description": "Unknown report",
                        "schema": {
                            "$ref": "#/definitions/ErrorEnvelope"
                        }
                    },
                    "500": {
                        "description": "Lookup failed",
                        "schema": {
                            "$ref": "#/definitions/ErrorEnvelope"
                        }
                    }
                }
            }
        },
        "/api/report/instructor/{rid}/export": {
            "get": {
                "tags": [
                    "Reports"
                ],
                "summary": "Download a stored instructor report",
                "produces": [
                    "text/csv",
                    "application/pdf"
                ],
                "parameters": [
                    {
                        "name": "rid",
                        "in": "path",
                        "type": "string",
                        "required": true,
                        "description": "Report ID"
                    },
                    {
                        "name": "format",
                        "in": "query",
                        "type": "string",
                        "enum": [
                            "csv",
                            "pdf"
                        ],
                        "description": "Defaults to csv"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "Attachment",
                        "schema": {
                            "type": "file"
                        }
                    },
                    "400": {
                        "description": "Unknown format",
                        "schema": {
                            "$ref": "#/definitions/ErrorEnvelope"
                        }
                    },
                    "404": {
                        "description": "Unknown report",
                        "schema": {
                            "$ref": "#/definitions/ErrorEnvelope"
                        }
                    }
                }
            }
        },
        "/api/report/list": {
            "get": {
                "tags": [
                    "Reports"
                ],
                "summary": "Reports generated by an admin",
                "parameters": [
                    {
                        "name": "admin_id",
                        "in": "query",
                        "type": "string",
                        "required": true,
                        "description": "Requesting admin ID (max 8 characters)"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ReportListEnvelope"
                        }
                    },
                    "400": {
                        "description": "Invalid query",
                        "schema": {
                            "$ref": "#/definitions/ErrorEnvelope"
                        }
                    }
                }
            }
        }
    },
    "definitions": {
        "Envelope": {
            "type": "object",
            "properties": {
                "success": {
                    "type": "boolean"
                },
                "report_type": {
                    "type": "string"
                },
                "report_id": {
                    "type": "string"
                },
                "data": {
                    "type": "object"
                }
            }
        },
        "ErrorEnvelope": {
            "type": "object",
            "properties": {
                "success": {
                    "type": "boolean"
                },
                "message": {
                    "type": "string"
                }
            }
        },
        "ReportSummary": {
            "type": "object",
            "properties": {
                "report_id": {
                    "type": "string"
                },
                "report_type": {
                    "type": "string"
                },
                "time_range_start": {
                    "type": "string",
                    "format": "date"
                },
                "time_range_end": {
                    "type": "string",
                    "format": "date"
                },
                "generated_at": {
                    "type": "string",
                    "format": "date-time"
                }
            }
        },
        "ReportListEnvelope": {
            "type": "object",
            "properties": {
                "success": {
                    "type": "boolean"
                },
                "data": {
                    "type": "object",
                    "properties": {
                        "reports": {
                            "type": "array",
                            "items": {
                                "$ref": "#/definitions/ReportSummary"
                            }
                        }
                    }
                }
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
