package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterSwagger registers minimal Swagger/OpenAPI endpoints for the journal API.
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
    <title>daybook API</title>
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

// Minimal OpenAPI document for the journal routes.
const swaggerJSON = `{
  "openapi": "3.0.0",
  "info": { "title": "daybook", "version": "v0.1.0" },
  "components": {
    "securitySchemes": { "bearer": { "type": "http", "scheme": "bearer" } },
    "schemas": {
      "Entry": {"type":"object","properties":{"id":{"type":"string"},"ownerId":{"type":"string"},"title":{"type":"string","nullable":true},"content":{"type":"string"},"template":{"type":"string","enum":["free","five-minute"]},"mood":{"type":"integer","minimum":1,"maximum":5},"createdAt":{"type":"string","format":"date-time"},"updatedAt":{"type":"string","format":"date-time"},"preview":{"type":"string"}}},
      "EntryInput": {"type":"object","properties":{"title":{"type":"string"},"content":{"type":"string"},"mood":{"type":"integer"},"template":{"type":"string"},"fiveMinute":{"type":"object"}}},
      "Error": {"type":"object","properties":{"error":{"type":"string"}}}
    }
  },
  "security": [ { "bearer": [] } ],
  "paths": {
    "/api/entry": {
      "get": { "summary": "List entries, newest first", "parameters": [{"name":"limit","in":"query","schema":{"type":"integer","default":50}},{"name":"offset","in":"query","schema":{"type":"integer","default":0}}], "responses": { "200": { "description": "entries" }, "401": { "description": "unauthorized" } } },
      "post": { "summary": "Create an entry", "requestBody": { "content": { "application/json": { "schema": {"$ref":"#/components/schemas/EntryInput"}}}}, "responses": { "201": { "description": "created entry" }, "400": { "description": "validation error" } } }
    },
    "/api/entry/today": {
      "get": { "summary": "Today's entry or null", "parameters": [{"name":"tz","in":"query","schema":{"type":"string"}}], "responses": { "200": { "description": "entry or null" } } },
      "put": { "summary": "Create or update today's entry", "requestBody": { "content": { "application/json": { "schema": {"$ref":"#/components/schemas/EntryInput"}}}}, "responses": { "200": { "description": "updated" }, "201": { "description": "created" } } }
    },
    "/api/entry/past": {
      "get": { "summary": "Past entries (default limit 100)", "responses": { "200": { "description": "entries" } } }
    },
    "/api/entry/search": {
      "get": { "summary": "Case-insensitive search over content and title", "parameters": [{"name":"q","in":"query","schema":{"type":"string"}}], "responses": { "200": { "description": "up to 20 entries" } } }
    },
    "/api/entry/insights": {
      "get": { "summary": "Mood insights over a trailing window", "parameters": [{"name":"days","in":"query","schema":{"type":"integer","enum":[7,30,90],"default":30}},{"name":"tz","in":"query","schema":{"type":"string"}}], "responses": { "200": { "description": "summary" }, "400": { "description": "unsupported window" } } }
    },
    "/api/entry/export": {
      "post": { "summary": "Export all entries to object storage", "responses": { "200": { "description": "key, presigned url and count" } } }
    },
    "/api/entry/{id}": {
      "get": { "summary": "Get an entry", "responses": { "200": { "description": "entry" }, "404": { "description": "not found" } } },
      "put": { "summary": "Replace an entry's mutable fields", "responses": { "200": { "description": "entry" }, "404": { "description": "not found" } } },
      "delete": { "summary": "Delete an entry (idempotent)", "responses": { "200": { "description": "deleted" } } }
    },
    "/api/user/me": { "get": { "summary": "Current user", "responses": { "200": { "description": "user or claims" } } } },
    "/api/user/template": {
      "get": { "summary": "Default template preference", "responses": { "200": { "description": "template" } } },
      "put": { "summary": "Set default template preference", "responses": { "200": { "description": "saved" }, "400": { "description": "unknown template" } } }
    },
    "/health": { "get": { "summary": "Liveness check", "responses": { "200": { "description": "healthy" } } } },
    "/ready": { "get": { "summary": "Readiness check", "responses": { "200": { "description": "ready" }, "503": { "description": "not ready" } } } }
  }
}`
