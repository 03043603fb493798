package validators

import "go.mongodb.org/mongo-driver/bson"

var ReservationValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"room_id",
			"guest_id",
			"check_in",
			"check_out",
			"occupancy",
			"total_amount",
			"currency",
			"status",
			"payment_status",
			"version",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},

			"room_id": bson.M{
				"bsonType":  "string",
				"minLength": 24,
				"maxLength": 24,
			},

			"guest_id": bson.M{
				"bsonType":  "string",
				"minLength": 24,
				"maxLength": 24,
			},

			"check_in": bson.M{
				"bsonType": "date",
			},

			"check_out": bson.M{
				"bsonType": "date",
			},

			"occupancy": bson.M{
				"bsonType": "int",
				"minimum":  1,
				"maximum":  20,
			},

			"total_amount": bson.M{
				"bsonType": "long",
				"minimum":  1,
			},

			"currency": bson.M{
				"bsonType":  "string",
				"minLength": 3,
				"maxLength": 3,
			},

			"status": bson.M{
				"bsonType": "string",
				"enum": []string{
					"pending",
					"awaiting_payment",
					"confirmed",
					"cancelled",
					"completed",
				},
			},

			"payment_status": bson.M{
				"bsonType": "string",
				"enum": []string{
					"not_started",
					"pending",
					"paid",
					"failed",
					"cancelled",
					"expired",
				},
			},

			"checkout_session_id": bson.M{
				"bsonType": "string",
			},

			"payment_intent_id": bson.M{
				"bsonType": "string",
			},

			"payment_method": bson.M{
				"bsonType": "string",
			},

			"payment_approved_at": bson.M{
				"bsonType": "date",
			},

			"notes": bson.M{
				"bsonType":  "string",
				"maxLength": 2000,
			},

			"version": bson.M{
				"bsonType": "long",
				"minimum":  0,
			},

			"created_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
