package validators

import "go.mongodb.org/mongo-driver/bson"

var BookingValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"_id",
			"slot_id",
			"patient_name",
			"status",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "string",
			},

			"slot_id": bson.M{
				"bsonType":  "string",
				"minLength": 36,
				"maxLength": 36,
			},

			"patient_name": bson.M{
				"bsonType":  "string",
				"minLength": 2,
				"maxLength": 100,
			},

			"patient_email": bson.M{
				"bsonType":  "string",
				"maxLength": 254,
			},

			"status": bson.M{
				"enum": []string{"CONFIRMED"},
			},

			"created_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
