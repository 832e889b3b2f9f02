package client

// Per-endpoint response schemas. Payloads are validated against these before
// decoding; anything that does not match is classified ErrKindMalformed
// instead of surfacing as zero-valued struct fields downstream.

func obj(props map[string]interface{}, required ...string) map[string]interface{} {
	s := map[string]interface{}{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

func arr(items map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{"type": "array", "items": items}
}

func str() map[string]interface{}  { return map[string]interface{}{"type": "string"} }
func num() map[string]interface{}  { return map[string]interface{}{"type": "number"} }
func boolean() map[string]interface{} { return map[string]interface{}{"type": "boolean"} }

func nullable(s map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{"anyOf": []interface{}{s, map[string]interface{}{"type": "null"}}}
}

var helpRequestSchema = obj(map[string]interface{}{
	"id": str(),
	"type": map[string]interface{}{
		"type": "string",
		"enum": []interface{}{"cancel", "return", "refund", "exchange"},
	},
	"status": map[string]interface{}{
		"type": "string",
		"enum": []interface{}{"pending", "in_progress", "approved", "completed", "rejected"},
	},
	"customer_name":    str(),
	"customer_email":   str(),
	"customer_phone":   nullable(str()),
	"order_number":     str(),
	"reason":           nullable(str()),
	"admin_notes":      nullable(str()),
	"shopify_order_id": nullable(str()),
	"shopify_shop":     nullable(str()),
	"created_at":       str(),
	"attachments": arr(obj(map[string]interface{}{
		"id":       str(),
		"read_url": str(),
	}, "id", "read_url")),
}, "id", "type", "status", "customer_email", "order_number", "created_at")

var chatMessageSchema = obj(map[string]interface{}{
	"id": str(),
	"sender": map[string]interface{}{
		"type": "string",
		"enum": []interface{}{"customer", "admin"},
	},
	"request_id": str(),
	"body":       nullable(str()),
	"created_at": str(),
}, "id", "sender")

var responseSchemas = map[string]map[string]interface{}{
	"check_order": obj(map[string]interface{}{
		"order_number":     str(),
		"has_open_request": boolean(),
	}, "order_number", "has_open_request"),

	"help_request":      helpRequestSchema,
	"help_request_list": arr(helpRequestSchema),

	"status_summary": obj(map[string]interface{}{
		"id":           str(),
		"reference":    str(),
		"type":         str(),
		"status":       str(),
		"order_number": str(),
	}, "id", "reference", "type", "status", "order_number"),

	"upload_ticket": obj(map[string]interface{}{
		"attachment_id":      str(),
		"upload_url":         str(),
		"blob_path":          str(),
		"expires_in_minutes": num(),
	}, "attachment_id", "upload_url"),

	"chat_message":      chatMessageSchema,
	"chat_message_list": arr(chatMessageSchema),

	"platform_order": obj(map[string]interface{}{
		"order_id":   num(),
		"order_name": str(),
		"currency":   str(),
		"line_items": arr(obj(map[string]interface{}{
			"id":       num(),
			"title":    str(),
			"quantity": num(),
			"price":    str(),
		}, "id", "title", "quantity", "price")),
		"admin_url": str(),
	}, "order_id", "currency", "line_items"),

	"shopify_envelope": obj(map[string]interface{}{
		"shopify": obj(map[string]interface{}{
			"admin_url": str(),
		}),
	}),

	"token_pair": obj(map[string]interface{}{
		"access_token":  str(),
		"refresh_token": str(),
	}, "access_token"),
}
