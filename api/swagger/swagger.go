package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Codam Web Greeter API",
        "description": "Schedule and exam-mode data for campus login screens",
        "version": "1.0.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Greeter", "description": "Endpoints polled by greeter clients"},
        {"name": "Observability", "description": "Health and metrics"}
    ],
    "paths": {
        "/": {
            "get": {
                "tags": ["Greeter"],
                "summary": "Liveness probe",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/StatusResponse"}}
                }
            }
        },
        "/health": {
            "get": {
                "tags": ["Observability"],
                "summary": "Readiness of the schedule backend",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/HealthResponse"}}
                }
            }
        },
        "/metrics": {
            "get": {
                "tags": ["Observability"],
                "summary": "Prometheus metrics",
                "produces": ["text/plain"],
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/api/config": {
            "get": {
                "tags": ["Greeter"],
                "summary": "Schedule snapshot for the calling workstation",
                "description": "The workstation is derived from X-Forwarded-For or the peer address.",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ScheduleSnapshot"}},
                    "503": {"description": "No data yet", "schema": {"$ref": "#/definitions/ErrorBody"}}
                }
            }
        },
        "/api/config/{hostname}": {
            "get": {
                "tags": ["Greeter"],
                "summary": "Schedule snapshot for a workstation",
                "parameters": [
                    {"name": "hostname", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ScheduleSnapshot"}},
                    "503": {"description": "No data yet", "schema": {"$ref": "#/definitions/ErrorBody"}}
                }
            }
        },
        "/api/exam_mode_hosts": {
            "get": {
                "tags": ["Greeter"],
                "summary": "Workstations currently in exam mode",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ExamModeHostsResponse"}},
                    "503": {"description": "No data yet", "schema": {"$ref": "#/definitions/ErrorBody"}}
                }
            }
        },
        "/api/user/{login}/.face": {
            "get": {
                "tags": ["Greeter"],
                "summary": "Redirect to a user's profile picture",
                "parameters": [
                    {"name": "login", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "302": {"description": "Redirect to the image"},
                    "400": {"description": "Missing login", "schema": {"$ref": "#/definitions/ErrorBody"}},
                    "404": {"description": "No image", "schema": {"$ref": "#/definitions/ErrorBody"}},
                    "503": {"description": "Data source not configured", "schema": {"$ref": "#/definitions/ErrorBody"}}
                }
            }
        }
    },
    "definitions": {
        "Event": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "name": {"type": "string"},
                "description": {"type": "string"},
                "location": {"type": "string", "x-nullable": true},
                "kind": {"type": "string", "enum": ["standup", "rush", "piscine", "partnership", "conference", "meet_up", "event", "association", "hackathon", "workshop", "challenge", "extern", "exam"]},
                "max_people": {"type": "integer", "x-nullable": true},
                "nbr_subscribers": {"type": "integer"},
                "begin_at": {"type": "string", "format": "date-time"},
                "end_at": {"type": "string", "format": "date-time"},
                "campus_ids": {"type": "array", "items": {"type": "integer"}},
                "cursus_ids": {"type": "array", "items": {"type": "integer"}},
                "created_at": {"type": "string", "format": "date-time"},
                "updated_at": {"type": "string", "format": "date-time"}
            }
        },
        "Exam": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "name": {"type": "string"},
                "ip_range": {"type": "array", "items": {"type": "string"}},
                "begin_at": {"type": "string", "format": "date-time"},
                "end_at": {"type": "string", "format": "date-time"},
                "location": {"type": "string", "x-nullable": true},
                "max_people": {"type": "integer", "x-nullable": true},
                "nbr_subscribers": {"type": "integer"},
                "cursus": {"type": "array", "items": {"$ref": "#/definitions/NamedRef"}},
                "projects": {"type": "array", "items": {"$ref": "#/definitions/NamedRef"}},
                "created_at": {"type": "string", "format": "date-time"},
                "updated_at": {"type": "string", "format": "date-time"}
            }
        },
        "NamedRef": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "name": {"type": "string"},
                "slug": {"type": "string"}
            }
        },
        "ExamForHost": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "name": {"type": "string"},
                "begin_at": {"type": "string", "format": "date-time"},
                "end_at": {"type": "string", "format": "date-time"}
            }
        },
        "ScheduleSnapshot": {
            "type": "object",
            "properties": {
                "hostname": {"type": "string"},
                "events": {"type": "array", "items": {"$ref": "#/definitions/Event"}},
                "exams": {"type": "array", "items": {"$ref": "#/definitions/Exam"}},
                "exams_for_host": {"type": "array", "items": {"$ref": "#/definitions/ExamForHost"}},
                "fetch_time": {"type": "string", "format": "date-time"},
                "message": {"type": "string"}
            }
        },
        "ExamModeHostsResponse": {
            "type": "object",
            "properties": {
                "exam_mode_hosts": {"type": "array", "items": {"type": "string"}},
                "message": {"type": "string"},
                "status": {"type": "string"}
            }
        },
        "StatusResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string"}
            }
        },
        "HealthResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string"},
                "data_source": {"type": "boolean"},
                "known_hosts": {"type": "integer"},
                "last_cache_change": {"type": "string", "format": "date-time"}
            }
        },
        "ErrorBody": {
            "type": "object",
            "properties": {
                "error": {"type": "string"},
                "status": {"type": "string"}
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
