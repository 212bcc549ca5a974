package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"wa-relay-server/internal/models"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	chatMessagesCollection   = "chat_messages"
	chatPartitionsCollection = "chat_partitions"
	registrationsCollection  = "registrations"
	bulkHistoryCollection    = "bulk_message_history"
)

// MongoStore is the document database backed Store.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
}

// NewMongoStore connects to uri, verifies the connection and ensures indexes
func NewMongoStore(ctx context.Context, uri, database string) (*MongoStore, error) {
	if uri == "" {
		return nil, errors.New("mongo URI is required")
	}
	if database == "" {
		return nil, errors.New("mongo database name is required")
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, wrapMongoError("ping", err)
	}

	s := &MongoStore{client: client, db: client.Database(database)}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	_, err := s.db.Collection(chatMessagesCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "class", Value: 1}, {Key: "phoneKey", Value: 1}, {Key: "timestamp", Value: 1}},
	})
	if err != nil {
		return wrapMongoError("create chat index", err)
	}

	_, err = s.db.Collection(registrationsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "phoneKey", Value: 1}},
	})
	if err != nil {
		return wrapMongoError("create registration index", err)
	}
	return nil
}

func (s *MongoStore) Chats() ChatRepository {
	return &mongoChatRepository{
		messages:   s.db.Collection(chatMessagesCollection),
		partitions: s.db.Collection(chatPartitionsCollection),
	}
}

func (s *MongoStore) Registrations() RegistrationRepository {
	return &mongoRegistrationRepository{coll: s.db.Collection(registrationsCollection)}
}

func (s *MongoStore) BulkHistory() BulkHistoryRepository {
	return &mongoBulkHistoryRepository{coll: s.db.Collection(bulkHistoryCollection)}
}

func (s *MongoStore) Ping(ctx context.Context) error {
	return wrapMongoError("ping", s.client.Ping(ctx, nil))
}

func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func wrapMongoError(op string, err error) error {
	if err == nil {
		return nil
	}

	code := models.StoreInternal
	var cmdErr mongo.CommandError
	switch {
	case mongo.IsTimeout(err), mongo.IsNetworkError(err), errors.Is(err, mongo.ErrClientDisconnected):
		code = models.StoreUnavailable
	case errors.As(err, &cmdErr) && (cmdErr.Code == 13 || cmdErr.Code == 18):
		// 13 Unauthorized, 18 AuthenticationFailed
		code = models.StorePermissionDenied
	}
	return &models.StoreError{Op: op, Code: code, Err: err}
}

type mongoChatMessage struct {
	ID        primitive.ObjectID    `bson:"_id,omitempty"`
	Class     models.PartitionClass `bson:"class"`
	PhoneKey  string                `bson:"phoneKey"`
	From      models.Sender         `bson:"from"`
	Text      string                `bson:"text"`
	Timestamp time.Time             `bson:"timestamp"`
	Read      bool                  `bson:"read"`
	Type      models.MessageType    `bson:"type"`
}

type mongoChatRepository struct {
	messages   *mongo.Collection
	partitions *mongo.Collection
}

func partitionFilter(ref models.PartitionRef) bson.M {
	return bson.M{"class": ref.Class, "phoneKey": ref.Key}
}

func (r *mongoChatRepository) AppendMessage(ctx context.Context, ref models.PartitionRef, msg *models.ChatMessage) error {
	if err := validateRef(ref); err != nil {
		return err
	}
	if msg == nil {
		return fmt.Errorf("message cannot be nil")
	}

	doc := mongoChatMessage{
		Class:     ref.Class,
		PhoneKey:  ref.Key,
		From:      msg.From,
		Text:      msg.Text,
		Timestamp: msg.Timestamp,
		Read:      msg.Read,
		Type:      msg.Type,
	}
	res, err := r.messages.InsertOne(ctx, doc)
	if err != nil {
		return wrapMongoError("append message", err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		msg.ID = oid.Hex()
	}

	_, err = r.partitions.UpdateByID(ctx, ref.String(), bson.M{
		"$set": bson.M{"class": ref.Class, "phoneKey": ref.Key, "lastUpdated": msg.Timestamp},
	}, options.Update().SetUpsert(true))
	if err != nil {
		return wrapMongoError("update partition", err)
	}
	return nil
}

func (r *mongoChatRepository) CountMessages(ctx context.Context, ref models.PartitionRef) (int, error) {
	if err := validateRef(ref); err != nil {
		return 0, err
	}
	n, err := r.messages.CountDocuments(ctx, partitionFilter(ref))
	if err != nil {
		return 0, wrapMongoError("count messages", err)
	}
	return int(n), nil
}

func (r *mongoChatRepository) DeleteOldest(ctx context.Context, ref models.PartitionRef, n int) (int, error) {
	if err := validateRef(ref); err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, nil
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: 1}, {Key: "_id", Value: 1}}).
		SetLimit(int64(n)).
		SetProjection(bson.M{"_id": 1})
	cursor, err := r.messages.Find(ctx, partitionFilter(ref), opts)
	if err != nil {
		return 0, wrapMongoError("select oldest", err)
	}

	var victims []struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	if err := cursor.All(ctx, &victims); err != nil {
		return 0, wrapMongoError("select oldest", err)
	}
	if len(victims) == 0 {
		return 0, nil
	}

	ids := make([]primitive.ObjectID, 0, len(victims))
	for _, v := range victims {
		ids = append(ids, v.ID)
	}

	res, err := r.messages.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return 0, wrapMongoError("delete oldest", err)
	}
	return int(res.DeletedCount), nil
}

func (r *mongoChatRepository) RecentMessages(ctx context.Context, ref models.PartitionRef, limit int) ([]*models.ChatMessage, error) {
	if err := validateRef(ref); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = models.MaxChatMessages
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(limit))
	cursor, err := r.messages.Find(ctx, partitionFilter(ref), opts)
	if err != nil {
		return nil, wrapMongoError("recent messages", err)
	}

	var docs []mongoChatMessage
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, wrapMongoError("recent messages", err)
	}

	messages := make([]*models.ChatMessage, len(docs))
	for i, doc := range docs {
		messages[len(docs)-1-i] = &models.ChatMessage{
			ID:        doc.ID.Hex(),
			From:      doc.From,
			Text:      doc.Text,
			Timestamp: doc.Timestamp.UTC(),
			Read:      doc.Read,
			Type:      doc.Type,
		}
	}
	return messages, nil
}

func (r *mongoChatRepository) GetPartition(ctx context.Context, ref models.PartitionRef) (*models.ChatPartition, error) {
	if err := validateRef(ref); err != nil {
		return nil, err
	}

	var partition models.ChatPartition
	err := r.partitions.FindOne(ctx, bson.M{"_id": ref.String()}).Decode(&partition)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapMongoError("get partition", err)
	}
	return &partition, nil
}

type mongoRegistrationRepository struct {
	coll *mongo.Collection
}

func (r *mongoRegistrationRepository) Create(ctx context.Context, reg *models.Registration) error {
	if reg == nil {
		return fmt.Errorf("registration cannot be nil")
	}
	if reg.PhoneKey == "" {
		return fmt.Errorf("registration phone key cannot be empty")
	}
	if reg.ID == "" {
		reg.ID = uuid.New().String()
	}
	if reg.Images == nil {
		// $push needs an array, not null
		reg.Images = []models.RegistrationImage{}
	}
	now := time.Now().UTC()
	reg.CreatedAt = now
	reg.UpdatedAt = now

	if _, err := r.coll.InsertOne(ctx, reg); err != nil {
		return wrapMongoError("create registration", err)
	}
	return nil
}

func (r *mongoRegistrationRepository) FindByPhoneKey(ctx context.Context, phoneKey string) (*models.Registration, error) {
	if phoneKey == "" {
		return nil, fmt.Errorf("phone key cannot be empty")
	}

	var reg models.Registration
	opts := options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	err := r.coll.FindOne(ctx, bson.M{"phoneKey": phoneKey}, opts).Decode(&reg)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapMongoError("find registration", err)
	}
	return &reg, nil
}

func (r *mongoRegistrationRepository) ExistsByPhoneKey(ctx context.Context, phoneKey string) (bool, error) {
	if phoneKey == "" {
		return false, fmt.Errorf("phone key cannot be empty")
	}
	n, err := r.coll.CountDocuments(ctx, bson.M{"phoneKey": phoneKey}, options.Count().SetLimit(1))
	if err != nil {
		return false, wrapMongoError("registration lookup", err)
	}
	return n > 0, nil
}

func (r *mongoRegistrationRepository) AttachImage(ctx context.Context, id string, img models.RegistrationImage, status models.ImageStatus) error {
	if id == "" {
		return fmt.Errorf("registration ID cannot be empty")
	}
	if img.URL == "" {
		return fmt.Errorf("image URL cannot be empty")
	}
	if img.ReceivedAt.IsZero() {
		img.ReceivedAt = time.Now().UTC()
	}

	res, err := r.coll.UpdateByID(ctx, id, bson.M{
		"$push": bson.M{"images": img},
		"$set":  bson.M{"imageStatus": status, "updatedAt": time.Now().UTC()},
	})
	if err != nil {
		return wrapMongoError("attach image", err)
	}
	if res.MatchedCount == 0 {
		return &models.StoreError{Op: "attach image", Code: models.StoreNotFound, Err: fmt.Errorf("registration %s not found", id)}
	}
	return nil
}

type mongoBulkHistoryRepository struct {
	coll *mongo.Collection
}

func (r *mongoBulkHistoryRepository) Create(ctx context.Context, rec *models.BulkHistoryRecord) error {
	if rec == nil {
		return fmt.Errorf("history record cannot be nil")
	}
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	if _, err := r.coll.InsertOne(ctx, rec); err != nil {
		return wrapMongoError("create bulk history", err)
	}
	return nil
}

func (r *mongoBulkHistoryRepository) GetByID(ctx context.Context, id string) (*models.BulkHistoryRecord, error) {
	if id == "" {
		return nil, fmt.Errorf("history ID cannot be empty")
	}

	var rec models.BulkHistoryRecord
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapMongoError("get bulk history", err)
	}
	return &rec, nil
}

func (r *mongoBulkHistoryRepository) List(ctx context.Context, limit, offset int) ([]*models.BulkHistoryRecord, int, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	total, err := r.coll.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, 0, wrapMongoError("count bulk history", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))
	cursor, err := r.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, 0, wrapMongoError("list bulk history", err)
	}

	records := []*models.BulkHistoryRecord{}
	if err := cursor.All(ctx, &records); err != nil {
		return nil, 0, wrapMongoError("list bulk history", err)
	}
	return records, int(total), nil
}

func (r *mongoBulkHistoryRepository) Delete(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("history ID cannot be empty")
	}

	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return wrapMongoError("delete bulk history", err)
	}
	if res.DeletedCount == 0 {
		return &models.StoreError{Op: "delete bulk history", Code: models.StoreNotFound, Err: fmt.Errorf("history record %s not found", id)}
	}
	return nil
}
