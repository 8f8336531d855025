// Package docs holds the OpenAPI document served at /swagger. Regenerate it
// with `swag init -g cmd/api/main.go -o internal/docs` after changing handler
// annotations.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "termsOfService": "http://swagger.io/terms/",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/auth/register": {"post": {"tags": ["auth"], "summary": "Register a new user", "responses": {"201": {"description": "Created"}, "409": {"description": "Email already exists"}}}},
        "/auth/login": {"post": {"tags": ["auth"], "summary": "Login", "responses": {"200": {"description": "OK"}, "401": {"description": "Invalid credentials"}}}},
        "/auth/logout": {"post": {"security": [{"BearerAuth": []}], "tags": ["auth"], "summary": "Logout and revoke the token", "responses": {"204": {"description": "No Content"}}}},
        "/profile": {"get": {"security": [{"BearerAuth": []}], "tags": ["users"], "summary": "Get user profile", "responses": {"200": {"description": "OK"}}}},
        "/profile/settings": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["users"], "summary": "Get user settings", "responses": {"200": {"description": "OK"}}},
            "put": {"security": [{"BearerAuth": []}], "tags": ["users"], "summary": "Update user settings", "responses": {"200": {"description": "OK"}}}
        },
        "/transactions": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["transactions"], "summary": "List transactions", "responses": {"200": {"description": "OK"}}},
            "post": {"security": [{"BearerAuth": []}], "tags": ["transactions"], "summary": "Create a transaction", "responses": {"201": {"description": "Created"}}}
        },
        "/transactions/{id}": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["transactions"], "summary": "Get a transaction", "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}},
            "put": {"security": [{"BearerAuth": []}], "tags": ["transactions"], "summary": "Update a transaction", "responses": {"200": {"description": "OK"}}},
            "delete": {"security": [{"BearerAuth": []}], "tags": ["transactions"], "summary": "Delete a transaction", "responses": {"200": {"description": "OK"}}}
        },
        "/budgets": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["budgets"], "summary": "Get the caller's budget", "responses": {"200": {"description": "OK"}}},
            "post": {"security": [{"BearerAuth": []}], "tags": ["budgets"], "summary": "Create a budget", "responses": {"201": {"description": "Created"}}}
        },
        "/budgets/progress": {"get": {"security": [{"BearerAuth": []}], "tags": ["budgets"], "summary": "Budget progress", "responses": {"200": {"description": "OK"}}}},
        "/budgets/{id}": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["budgets"], "summary": "Get a budget", "responses": {"200": {"description": "OK"}}},
            "put": {"security": [{"BearerAuth": []}], "tags": ["budgets"], "summary": "Update a budget", "responses": {"200": {"description": "OK"}}},
            "delete": {"security": [{"BearerAuth": []}], "tags": ["budgets"], "summary": "Delete a budget", "responses": {"200": {"description": "OK"}}}
        },
        "/goals": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["goals"], "summary": "List goals", "responses": {"200": {"description": "OK"}}},
            "post": {"security": [{"BearerAuth": []}], "tags": ["goals"], "summary": "Create a goal", "responses": {"201": {"description": "Created"}}}
        },
        "/goals/{id}": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["goals"], "summary": "Get a goal", "responses": {"200": {"description": "OK"}}},
            "put": {"security": [{"BearerAuth": []}], "tags": ["goals"], "summary": "Update a goal", "responses": {"200": {"description": "OK"}}},
            "delete": {"security": [{"BearerAuth": []}], "tags": ["goals"], "summary": "Delete a goal", "responses": {"200": {"description": "OK"}}}
        },
        "/goals/{id}/progress": {"get": {"security": [{"BearerAuth": []}], "tags": ["goals"], "summary": "Goal progress", "responses": {"200": {"description": "OK"}}}},
        "/goals/{id}/contributions": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["goals"], "summary": "List contributions", "responses": {"200": {"description": "OK"}}},
            "post": {"security": [{"BearerAuth": []}], "tags": ["goals"], "summary": "Add a contribution", "responses": {"201": {"description": "Created"}}}
        },
        "/notifications": {"get": {"security": [{"BearerAuth": []}], "tags": ["notifications"], "summary": "All notifications", "responses": {"200": {"description": "OK"}}}},
        "/notifications/count": {"get": {"security": [{"BearerAuth": []}], "tags": ["notifications"], "summary": "Count notifications", "responses": {"200": {"description": "OK"}}}},
        "/notifications/budget": {"get": {"security": [{"BearerAuth": []}], "tags": ["notifications"], "summary": "Budget notifications", "responses": {"200": {"description": "OK"}}}},
        "/notifications/recurring": {"get": {"security": [{"BearerAuth": []}], "tags": ["notifications"], "summary": "Recurring transaction notifications", "responses": {"200": {"description": "OK"}}}},
        "/notifications/goals": {"get": {"security": [{"BearerAuth": []}], "tags": ["notifications"], "summary": "Goal notifications", "responses": {"200": {"description": "OK"}}}},
        "/reports": {"post": {"security": [{"BearerAuth": []}], "tags": ["reports"], "summary": "Generate a report", "responses": {"200": {"description": "OK"}}}},
        "/dashboard": {"get": {"security": [{"BearerAuth": []}], "tags": ["dashboard"], "summary": "User dashboard", "responses": {"200": {"description": "OK"}}}},
        "/currency/convert": {"get": {"security": [{"BearerAuth": []}], "tags": ["currency"], "summary": "Convert an amount", "responses": {"200": {"description": "OK"}, "502": {"description": "Rate provider failed"}}}},
        "/admin/dashboard": {"get": {"security": [{"BearerAuth": []}], "tags": ["admin"], "summary": "Admin dashboard", "responses": {"200": {"description": "OK"}}}},
        "/admin/settings": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["admin"], "summary": "Get system settings", "responses": {"200": {"description": "OK"}}},
            "put": {"security": [{"BearerAuth": []}], "tags": ["admin"], "summary": "Update system settings", "responses": {"200": {"description": "OK"}}}
        },
        "/admin/users": {"get": {"security": [{"BearerAuth": []}], "tags": ["admin"], "summary": "List users", "responses": {"200": {"description": "OK"}}}},
        "/admin/transactions": {"get": {"security": [{"BearerAuth": []}], "tags": ["admin"], "summary": "List all transactions", "responses": {"200": {"description": "OK"}, "403": {"description": "Not an administrator"}}}},
        "/admin/transactions/user/{uid}": {"get": {"security": [{"BearerAuth": []}], "tags": ["admin"], "summary": "List a user's transactions", "parameters": [{"type": "string", "name": "uid", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "400": {"description": "Invalid user ID"}}}},
        "/admin/budgets": {"get": {"security": [{"BearerAuth": []}], "tags": ["admin"], "summary": "List all budgets", "responses": {"200": {"description": "OK"}}}},
        "/admin/budgets/{id}": {"get": {"security": [{"BearerAuth": []}], "tags": ["admin"], "summary": "Get any budget by ID", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "404": {"description": "Budget not found"}}}},
        "/admin/goals": {"get": {"security": [{"BearerAuth": []}], "tags": ["admin"], "summary": "List all goals", "responses": {"200": {"description": "OK"}}}},
        "/admin/goals/user/{uid}": {"get": {"security": [{"BearerAuth": []}], "tags": ["admin"], "summary": "List a user's goals", "parameters": [{"type": "string", "name": "uid", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "400": {"description": "Invalid user ID"}}}},
        "/admin/reconcile": {"post": {"security": [{"BearerAuth": []}], "tags": ["admin"], "summary": "Run reconciliation", "responses": {"200": {"description": "OK"}, "409": {"description": "A run is already in progress"}}}},
        "/internal/reconcile": {"post": {"security": [{"ReconcileKey": []}], "tags": ["admin"], "summary": "Run reconciliation from an external scheduler", "responses": {"200": {"description": "OK"}, "401": {"description": "Invalid API key"}}}}
    },
    "securityDefinitions": {
        "BearerAuth": {
            "description": "Type \"Bearer\" followed by a space and JWT token.",
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        },
        "ReconcileKey": {
            "type": "apiKey",
            "name": "X-API-Key",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "PFT System API",
	Description:      "Personal finance tracker: transactions, recurring payments, budgets and savings goals with a nightly reconciliation run.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
