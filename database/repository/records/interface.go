package recordsRepo

import (
	"context"

	"bookio/database"
	"bookio/models"

	"go.mongodb.org/mongo-driver/mongo"
)

// BookingRecordRepository archives completed booking records. Archiving is
// best-effort history; a write failure never invalidates the emitted record.
type BookingRecordRepository interface {
	Create(ctx context.Context, rec models.BookingRecord) (string, error)
	GetByID(ctx context.Context, id string) (*models.BookingRecord, error)
	GetByConversationID(ctx context.Context, conversationID string) ([]models.BookingRecord, error)
	DeleteByID(ctx context.Context, id string) error
}

type mongoRecordRepo struct {
	coll *mongo.Collection
}

// NewMongoRecordRepo returns a new BookingRecordRepository instance using MongoDB.
func NewMongoRecordRepo() BookingRecordRepository {
	db := database.MongoClient.Database("bookio")
	return &mongoRecordRepo{
		coll: db.Collection("booking_records"),
	}
}
