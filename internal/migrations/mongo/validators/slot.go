package validators

import "go.mongodb.org/mongo-driver/bson"

// SlotValidator rejects documents whose lock fields disagree with the status.
var SlotValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"_id",
			"doctor_id",
			"start_time",
			"status",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "string",
			},

			"doctor_id": bson.M{
				"bsonType":  "string",
				"minLength": 36,
				"maxLength": 36,
			},

			"start_time": bson.M{
				"bsonType": "date",
			},

			"status": bson.M{
				"enum": []string{"AVAILABLE", "LOCKED", "BOOKED"},
			},

			"locked_at": bson.M{
				"bsonType": "date",
			},

			"lock_token": bson.M{
				"bsonType": "string",
			},

			"created_at": bson.M{
				"bsonType": "date",
			},
		},

		"oneOf": bson.A{
			bson.M{
				"properties": bson.M{"status": bson.M{"enum": []string{"LOCKED"}}},
				"required":   []string{"locked_at", "lock_token"},
			},
			bson.M{
				"properties": bson.M{"status": bson.M{"enum": []string{"AVAILABLE", "BOOKED"}}},
				"not": bson.M{
					"anyOf": bson.A{
						bson.M{"required": []string{"locked_at"}},
						bson.M{"required": []string{"lock_token"}},
					},
				},
			},
		},
	},
}
