package validators

import "go.mongodb.org/mongo-driver/bson"

var RoomValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"name",
			"active",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},

			"name": bson.M{
				"bsonType":  "string",
				"minLength": 2,
				"maxLength": 120,
			},

			"active": bson.M{
				"bsonType": "bool",
			},

			"display_order": bson.M{
				"bsonType": "int",
			},

			"max_occupancy": bson.M{
				"bsonType": "int",
				"minimum":  1,
				"maximum":  20,
			},

			"created_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
