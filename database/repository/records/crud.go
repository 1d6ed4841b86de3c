package recordsRepo

import (
	"context"
	"errors"

	"bookio/models"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
)

// Create inserts a completed booking record and returns its ID.
func (r *mongoRecordRepo) Create(ctx context.Context, rec models.BookingRecord) (string, error) {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}

	_, err := r.coll.InsertOne(ctx, rec)
	if err != nil {
		return "", err
	}
	return rec.ID, nil
}

// GetByID returns a booking record by its ID.
func (r *mongoRecordRepo) GetByID(ctx context.Context, id string) (*models.BookingRecord, error) {
	var rec models.BookingRecord
	err := r.coll.FindOne(ctx, bson.M{"id": id}).Decode(&rec)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// GetByConversationID fetches all records booked from a specific conversation.
func (r *mongoRecordRepo) GetByConversationID(ctx context.Context, conversationID string) ([]models.BookingRecord, error) {
	cursor, err := r.coll.Find(ctx, bson.M{"conversationId": conversationID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var recs []models.BookingRecord
	if err := cursor.All(ctx, &recs); err != nil {
		return nil, err
	}
	return recs, nil
}

// DeleteByID removes a booking record by ID.
func (r *mongoRecordRepo) DeleteByID(ctx context.Context, id string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return errors.New("record not found")
	}
	return nil
}
