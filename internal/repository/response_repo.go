package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"formpulse/internal/model"
)

// ResponseRepo stores submitted answer sets
type ResponseRepo interface {
	Create(ctx context.Context, rec *model.ResponseRecord) error
	ListBySurvey(ctx context.Context, surveyID string) ([]model.ResponseRecord, error)
	CountBySurvey(ctx context.Context, surveyID string) (int64, error)
	ExistsForRespondent(ctx context.Context, surveyID, ip, userID string) (bool, error)
	DeleteBySurvey(ctx context.Context, surveyID string) error
}

type responseRepo struct {
	collection *mongo.Collection
}

// NewResponseRepo creates a new response repository
func NewResponseRepo(db *mongo.Database) ResponseRepo {
	return &responseRepo{
		collection: db.Collection("responses"),
	}
}

func (r *responseRepo) Create(ctx context.Context, rec *model.ResponseRecord) error {
	if rec.ID == "" {
		rec.ID = primitive.NewObjectID().Hex()
	}
	if rec.SubmittedAt.IsZero() {
		rec.SubmittedAt = time.Now().UTC()
	}
	_, err := r.collection.InsertOne(ctx, rec)
	return err
}

// ListBySurvey returns responses oldest first.
func (r *responseRepo) ListBySurvey(ctx context.Context, surveyID string) ([]model.ResponseRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "submittedAt", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{"surveyId": surveyID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	records := []model.ResponseRecord{}
	if err := cursor.All(ctx, &records); err != nil {
		return nil, err
	}
	for i := range records {
		for j := range records[i].Answers {
			records[i].Answers[j].Value = plainValue(records[i].Answers[j].Value)
		}
	}
	return records, nil
}

func (r *responseRepo) CountBySurvey(ctx context.Context, surveyID string) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{"surveyId": surveyID})
}

// ExistsForRespondent reports whether the survey already holds a response
// from the same user, or from the same IP when the respondent is anonymous.
func (r *responseRepo) ExistsForRespondent(ctx context.Context, surveyID, ip, userID string) (bool, error) {
	filter := bson.M{"surveyId": surveyID}
	switch {
	case userID != "":
		filter["userId"] = userID
	case ip != "":
		filter["ip"] = ip
	default:
		return false, nil
	}
	n, err := r.collection.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	return n > 0, err
}

func (r *responseRepo) DeleteBySurvey(ctx context.Context, surveyID string) error {
	_, err := r.collection.DeleteMany(ctx, bson.M{"surveyId": surveyID})
	return err
}

// plainValue turns the driver's generic decodings of an interface field
// back into the shapes encoding/json produces.
func plainValue(v any) any {
	switch t := v.(type) {
	case primitive.A:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = plainValue(e)
		}
		return out
	case primitive.D:
		out := make(map[string]any, len(t))
		for _, e := range t {
			out[e.Key] = plainValue(e.Value)
		}
		return out
	case primitive.M:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = plainValue(e)
		}
		return out
	case int32:
		return float64(t)
	case int64:
		return float64(t)
	}
	return v
}
