package engine

import "github.com/slotbot/slotbot/internal/nlu/contract"

func objectSchema(props map[string]interface{}, required ...string) map[string]interface{} {
	schema := map[string]interface{}{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// guestTools is the fixed schema offered in guest conversations.
var guestTools = []contract.ToolDef{
	{
		Name:        "get_available_slots",
		Description: "List open time slots for booking. Optionally restrict to one date.",
		Parameters: objectSchema(map[string]interface{}{
			"date": map[string]interface{}{
				"type":        "string",
				"description": "Restrict to a single day, YYYY-MM-DD.",
			},
		}),
	},
	{
		Name:        "collect_guest_info",
		Description: "Save the guest's name, email and optional topic once they have been provided.",
		Parameters: objectSchema(map[string]interface{}{
			"name":  map[string]interface{}{"type": "string"},
			"email": map[string]interface{}{"type": "string"},
			"topic": map[string]interface{}{"type": "string"},
			"city": map[string]interface{}{
				"type":        "string",
				"description": "Guest's city, used to show slots in their local time.",
			},
		}, "name", "email"),
	},
	{
		Name:        "book_consultation",
		Description: "Book the slot the guest confirmed. Requires collect_guest_info first.",
		Parameters: objectSchema(map[string]interface{}{
			"slot_number": map[string]interface{}{
				"type":        "integer",
				"description": "1-based index into the last offered slot list.",
			},
			"attendee_emails": map[string]interface{}{
				"type":        "array",
				"items":       map[string]interface{}{"type": "string"},
				"description": "Extra attendees to invite, max 2.",
			},
		}, "slot_number"),
	},
	{
		Name:        "cancel_booking",
		Description: "Cancel an existing booking by its id.",
		Parameters: objectSchema(map[string]interface{}{
			"booking_id": map[string]interface{}{"type": "string"},
		}, "booking_id"),
	},
	{
		Name:        "get_services",
		Description: "List the consultation services on offer with duration and price.",
		Parameters:  objectSchema(map[string]interface{}{}),
	},
	{
		Name:        "get_pricing",
		Description: "Detailed pricing for every consultation service.",
		Parameters:  objectSchema(map[string]interface{}{}),
	},
}

// ownerTools drive schedule management.
var ownerTools = []contract.ToolDef{
	{
		Name:        "add_rule",
		Description: "Add an availability rule, either recurring (day) or one-off (date).",
		Parameters: objectSchema(map[string]interface{}{
			"day": map[string]interface{}{
				"type":        "string",
				"description": "Weekday name for a recurring rule, e.g. monday.",
			},
			"date": map[string]interface{}{
				"type":        "string",
				"description": "Specific date YYYY-MM-DD for a one-off rule.",
			},
			"start": map[string]interface{}{"type": "string", "description": "Start time HH:MM."},
			"end":   map[string]interface{}{"type": "string", "description": "End time HH:MM."},
		}, "start", "end"),
	},
	{
		Name:        "block_range",
		Description: "Block out time so it is never offered, same shape as add_rule.",
		Parameters: objectSchema(map[string]interface{}{
			"day":   map[string]interface{}{"type": "string"},
			"date":  map[string]interface{}{"type": "string"},
			"start": map[string]interface{}{"type": "string"},
			"end":   map[string]interface{}{"type": "string"},
		}, "start", "end"),
	},
	{
		Name:        "clear_rules",
		Description: "Remove rules for one day or date, or every rule when neither is given.",
		Parameters: objectSchema(map[string]interface{}{
			"day":  map[string]interface{}{"type": "string"},
			"date": map[string]interface{}{"type": "string"},
		}),
	},
	{
		Name:        "show_rules",
		Description: "Show the current availability rules.",
		Parameters:  objectSchema(map[string]interface{}{}),
	},
	{
		Name:        "list_bookings",
		Description: "List recent bookings, newest first.",
		Parameters: objectSchema(map[string]interface{}{
			"limit": map[string]interface{}{"type": "integer"},
		}),
	},
	{
		Name:        "cancel_booking",
		Description: "Cancel a booking by its id.",
		Parameters: objectSchema(map[string]interface{}{
			"booking_id": map[string]interface{}{"type": "string"},
		}, "booking_id"),
	},
}
