package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterSwagger registers minimal Swagger/OpenAPI endpoints for the document service.
// - GET /swagger/index.html  -> a small HTML page that loads the OpenAPI JSON
// - GET /swagger/doc.json    -> machine-readable OpenAPI JSON
func RegisterSwagger(rg *gin.Engine) {
	rg.GET("/swagger/index.html", func(c *gin.Context) {
		c.Header("Content-Type", "text/html; charset=utf-8")
		c.String(http.StatusOK, swaggerHTML)
	})

	rg.GET("/swagger/doc.json", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(swaggerJSON))
	})
}

const swaggerHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>gogotex-documents — Swagger</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@4/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@4/swagger-ui-bundle.js"></script>
    <script>
      window.ui = SwaggerUIBundle({
        url: '/swagger/doc.json',
        dom_id: '#swagger-ui',
      })
    </script>
  </body>
</html>`

const swaggerJSON = `{
  "openapi": "3.0.0",
  "info": { "title": "gogotex-documents", "version": "v0.2.0" },
  "components": {
    "securitySchemes": { "bearer": { "type": "http", "scheme": "bearer" } },
    "schemas": {
      "Document": { "type": "object", "properties": {
        "id": {"type":"string"}, "title": {"type":"string"}, "content": {"type":"string"}, "type": {"type":"string"},
        "userId": {"type":"string"}, "status": {"type":"string","enum":["draft","published"]},
        "access": {"type":"string","enum":["private","public","shared"]}, "currentVersion": {"type":"integer"},
        "createdAt": {"type":"string","format":"date-time"}, "updatedAt": {"type":"string","format":"date-time"} } },
      "DocumentInput": { "type": "object", "properties": {
        "title": {"type":"string"}, "content": {"type":"string"}, "type": {"type":"string"},
        "status": {"type":"string"}, "access": {"type":"string"}, "changeDescription": {"type":"string"} } },
      "Version": { "type": "object", "properties": {
        "id": {"type":"string"}, "documentId": {"type":"string"}, "versionNumber": {"type":"integer"},
        "title": {"type":"string"}, "content": {"type":"string"}, "type": {"type":"string"},
        "modifiedBy": {"type":"string"}, "changeDescription": {"type":"string"},
        "createdAt": {"type":"string","format":"date-time"} } },
      "VersionPage": { "type": "object", "properties": {
        "data": {"type":"array","items":{"$ref":"#/components/schemas/Version"}}, "total": {"type":"integer"} } },
      "Error": { "type": "object", "properties": { "error": {"type":"string"}, "fields": {"type":"object"} } }
    }
  },
  "security": [ { "bearer": [] } ],
  "paths": {
    "/api/v1/documents": {
      "get": { "summary": "List the caller's documents, most recently updated first", "responses": { "200": { "description": "documents" } } },
      "post": { "summary": "Create a document and its first version",
        "requestBody": { "content": { "application/json": { "schema": {"$ref":"#/components/schemas/DocumentInput"} } } },
        "responses": { "201": { "description": "created" }, "400": { "description": "validation failed" } } }
    },
    "/api/v1/documents/{id}": {
      "get": { "summary": "Get a document", "responses": { "200": { "description": "document" }, "403": { "description": "forbidden" }, "404": { "description": "not found" } } },
      "put": { "summary": "Update a document; content changes snapshot the previous state",
        "requestBody": { "content": { "application/json": { "schema": {"$ref":"#/components/schemas/DocumentInput"} } } },
        "responses": { "200": { "description": "updated" }, "400": { "description": "validation failed" }, "403": { "description": "forbidden" }, "404": { "description": "not found" } } },
      "delete": { "summary": "Delete a document and its history", "responses": { "200": { "description": "{\"deleted\":true}" }, "403": { "description": "forbidden" }, "404": { "description": "not found" } } }
    },
    "/api/v1/documents/{id}/versions": {
      "get": { "summary": "Page through version summaries, newest first",
        "parameters": [
          {"name":"page","in":"query","schema":{"type":"integer","default":1}},
          {"name":"pageSize","in":"query","schema":{"type":"integer","default":10,"maximum":100}},
          {"name":"modifiedBy","in":"query","schema":{"type":"string"}} ],
        "responses": { "200": { "description": "page", "content": { "application/json": { "schema": {"$ref":"#/components/schemas/VersionPage"} } } } } }
    },
    "/api/v1/documents/{id}/versions/{versionNumber}": {
      "get": { "summary": "Get one version with content", "responses": { "200": { "description": "version" }, "404": { "description": "not found" } } }
    },
    "/api/v1/documents/{id}/restore": {
      "put": { "summary": "Restore a document to a version; the live state is kept as a new version",
        "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"versionNumber":{"type":"integer"},"changeDescription":{"type":"string"}},"required":["versionNumber"]} } } },
        "responses": { "200": { "description": "restored document" }, "403": { "description": "forbidden" }, "404": { "description": "not found" } } }
    },
    "/api/v1/me": {
      "get": { "summary": "Get the caller's user record", "responses": { "200": { "description": "user" } } }
    },
    "/api/v1/auth/logout": {
      "post": { "summary": "Revoke the presented access token", "responses": { "200": { "description": "logged out" }, "404": { "description": "user not found" } } }
    },
    "/health": { "get": { "summary": "Liveness check", "security": [], "responses": { "200": { "description": "healthy" } } } },
    "/ready": { "get": { "summary": "Readiness check", "security": [], "responses": { "200": { "description": "ready" }, "503": { "description": "not ready" } } } },
    "/metrics": { "get": { "summary": "Prometheus metrics", "security": [], "responses": { "200": { "description": "metrics" } } } }
  }
}`
