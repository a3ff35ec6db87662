package api

// OpenAPIDocument describes the public API surface. The apigen binary
// prints it for client generation.
func OpenAPIDocument() map[string]any {
	jsonBody := func(schema map[string]any) map[string]any {
		return map[string]any{
			"required": true,
			"content": map[string]any{
				"application/json": map[string]any{"schema": schema},
			},
		}
	}
	jsonResponse := func(description string, schema map[string]any) map[string]any {
		return map[string]any{
			"description": description,
			"content": map[string]any{
				"application/json": map[string]any{"schema": schema},
			},
		}
	}
	ref := func(name string) map[string]any {
		return map[string]any{"$ref": "#/components/schemas/" + name}
	}
	object := func(properties map[string]any, required ...string) map[string]any {
		schema := map[string]any{"type": "object", "properties": properties}
		if len(required) > 0 {
			schema["required"] = required
		}
		return schema
	}
	str := map[string]any{"type": "string"}
	u64 := map[string]any{"type": "integer", "format": "int64", "minimum": 0}

	return map[string]any{
		"openapi": "3.0.3",
		"info": map[string]any{
			"title":   "moonzip backend",
			"version": "1.0.0",
		},
		"paths": map[string]any{
			"/api/auth": map[string]any{
				"post": map[string]any{
					"tags":        []string{"auth"},
					"requestBody": jsonBody(ref("AuthRequest")),
					"responses": map[string]any{
						"200": jsonResponse("Successfully authenticated and received token", ref("AuthPropose")),
						"4XX": map[string]any{"description": "Logical error due to user input"},
					},
				},
			},
			"/api/project/create": map[string]any{
				"post": map[string]any{
					"tags":        []string{"project"},
					"requestBody": jsonBody(ref("CreateProjectRequest")),
					"responses": map[string]any{
						"200": jsonResponse("Project created", ref("CreateProjectResponse")),
						"401": map[string]any{"description": "Unauthorized"},
					},
				},
			},
			"/api/project": map[string]any{
				"get": map[string]any{
					"tags": []string{"project"},
					"parameters": []any{map[string]any{
						"name": "project_id", "in": "query", "required": true, "schema": str,
					}},
					"responses": map[string]any{
						"200": jsonResponse("Project view", ref("GetProjectResponse")),
					},
				},
			},
			"/api/project/buy": map[string]any{
				"post": map[string]any{
					"tags":        []string{"project"},
					"requestBody": jsonBody(ref("BuyRequest")),
					"responses": map[string]any{
						"200": jsonResponse("Unsigned buy transaction", ref("TradeResponse")),
					},
				},
			},
			"/api/project/sell": map[string]any{
				"post": map[string]any{
					"tags":        []string{"project"},
					"requestBody": jsonBody(ref("SellRequest")),
					"responses": map[string]any{
						"200": jsonResponse("Unsigned sell transaction", ref("TradeResponse")),
					},
				},
			},
		},
		"components": map[string]any{
			"schemas": map[string]any{
				"AuthRequest":  object(map[string]any{"user": str}, "user"),
				"AuthPropose":  object(map[string]any{"token": str, "expiresAt": u64}, "token", "expiresAt"),
				"TradeResponse": object(map[string]any{"transaction": str}, "transaction"),
				"CreateProjectRequest": object(map[string]any{
					"owner":        str,
					"meta":         ref("CreateTokenMeta"),
					"deploySchema": ref("DeploySchema"),
					"imageContent": map[string]any{"type": "string", "format": "byte"},
				}, "owner", "meta", "deploySchema", "imageContent"),
				"CreateTokenMeta": object(map[string]any{
					"name": str, "symbol": str, "description": str,
					"website": str, "twitter": str, "telegram": str,
				}, "name", "symbol"),
				"DeploySchema": object(map[string]any{
					"staticPool":  object(map[string]any{"launchPeriod": u64}),
					"curvePool":   map[string]any{"type": "string", "enum": []string{"mzip", "pumpfun"}},
					"devPurchase": object(map[string]any{"amount": u64, "lockPeriod": u64}),
				}, "curvePool"),
				"CreateProjectResponse": object(map[string]any{
					"projectId": str, "transaction": str,
				}, "projectId", "transaction"),
				"BuyRequest": object(map[string]any{
					"user": str, "projectId": str, "sols": u64, "minTokenOutput": u64,
				}, "user", "projectId", "sols"),
				"SellRequest": object(map[string]any{
					"user": str, "projectId": str, "tokens": u64, "minSolOutput": u64,
				}, "user", "projectId", "tokens"),
				"GetProjectResponse": object(map[string]any{"project": ref("PublicProject")}),
				"PublicProject": object(map[string]any{
					"id": str, "owner": str, "name": str, "description": str,
					"createdAt": str, "stage": str,
					"staticPoolMint": str, "curvePoolMint": str,
				}),
			},
		},
	}
}
