package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/ukydev/fleet-operations/internal/models"
)

var activeStatuses = bson.A{models.DeploymentStatusScheduled, models.DeploymentStatusInProgress}

// MongoDeploymentCollection implements DeploymentCollection for MongoDB.
type MongoDeploymentCollection struct {
	Collection *mongo.Collection
}

// InsertDeployment inserts a deployment record into the collection.
func (c *MongoDeploymentCollection) InsertDeployment(ctx context.Context, deployment models.Deployment) error {
	if c.Collection == nil {
		return fmt.Errorf("mongo collection is nil")
	}
	deployment.CreatedAt = time.Now()
	deployment.UpdatedAt = time.Now()
	_, err := c.Collection.InsertOne(ctx, deployment)
	return err
}

// FindDeploymentByID finds a deployment by its ID.
func (c *MongoDeploymentCollection) FindDeploymentByID(ctx context.Context, id string) (*models.Deployment, error) {
	if c.Collection == nil {
		return nil, fmt.Errorf("mongo collection is nil")
	}
	var deployment models.Deployment
	err := c.Collection.FindOne(ctx, bson.M{"_id": id}).Decode(&deployment)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &deployment, nil
}

// UpdateDeployment replaces a deployment record by its ID.
func (c *MongoDeploymentCollection) UpdateDeployment(ctx context.Context, id string, deployment models.Deployment) error {
	if c.Collection == nil {
		return fmt.Errorf("mongo collection is nil")
	}
	deployment.ID = id
	deployment.UpdatedAt = time.Now()
	result, err := c.Collection.ReplaceOne(ctx, bson.M{"_id": id}, deployment)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// FindActiveDeploymentByVehicle returns the scheduled or in_progress
// deployment holding the vehicle, or ErrNotFound.
func (c *MongoDeploymentCollection) FindActiveDeploymentByVehicle(ctx context.Context, vehicleID string) (*models.Deployment, error) {
	return c.findOneActive(ctx, bson.M{"vehicle_id": vehicleID})
}

// FindActiveDeploymentByOperator returns the scheduled or in_progress
// deployment held by the operator, or ErrNotFound.
func (c *MongoDeploymentCollection) FindActiveDeploymentByOperator(ctx context.Context, operatorID string) (*models.Deployment, error) {
	return c.findOneActive(ctx, bson.M{"operator_id": operatorID})
}

func (c *MongoDeploymentCollection) findOneActive(ctx context.Context, filter bson.M) (*models.Deployment, error) {
	if c.Collection == nil {
		return nil, fmt.Errorf("mongo collection is nil")
	}
	filter["status"] = bson.M{"$in": activeStatuses}
	var deployment models.Deployment
	err := c.Collection.FindOne(ctx, filter).Decode(&deployment)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &deployment, nil
}

// FindDeploymentsByStatus returns all deployments with the given status.
func (c *MongoDeploymentCollection) FindDeploymentsByStatus(ctx context.Context, status models.DeploymentStatus) ([]models.Deployment, error) {
	return c.findDeployments(ctx, bson.M{"status": status})
}

// FindDeploymentsInWindow returns deployments whose start time falls in
// [from, to), optionally narrowed to one vehicle and/or operator.
func (c *MongoDeploymentCollection) FindDeploymentsInWindow(ctx context.Context, from, to time.Time, filters models.AnalyticsFilters) ([]models.Deployment, error) {
	filter := bson.M{"start_time": bson.M{"$gte": from, "$lt": to}}
	if filters.VehicleID != "" {
		filter["vehicle_id"] = filters.VehicleID
	}
	if filters.OperatorID != "" {
		filter["operator_id"] = filters.OperatorID
	}
	return c.findDeployments(ctx, filter)
}

func (c *MongoDeploymentCollection) findDeployments(ctx context.Context, filter bson.M) ([]models.Deployment, error) {
	if c.Collection == nil {
		return nil, fmt.Errorf("mongo collection is nil")
	}
	cursor, err := c.Collection.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	var deployments []models.Deployment
	if err := cursor.All(ctx, &deployments); err != nil {
		return nil, err
	}
	return deployments, nil
}

// MongoHistoryCollection implements HistoryCollection for MongoDB.
type MongoHistoryCollection struct {
	Collection *mongo.Collection
}

// InsertHistory inserts a deployment history record into the collection.
func (c *MongoHistoryCollection) InsertHistory(ctx context.Context, history models.DeploymentHistory) error {
	if c.Collection == nil {
		return fmt.Errorf("mongo collection is nil")
	}
	history.CreatedAt = time.Now()
	history.UpdatedAt = time.Now()
	_, err := c.Collection.InsertOne(ctx, history)
	return err
}

// FindHistoryByDeployment finds the history record for a deployment.
func (c *MongoHistoryCollection) FindHistoryByDeployment(ctx context.Context, deploymentID string) (*models.DeploymentHistory, error) {
	if c.Collection == nil {
		return nil, fmt.Errorf("mongo collection is nil")
	}
	var history models.DeploymentHistory
	err := c.Collection.FindOne(ctx, bson.M{"_id": deploymentID}).Decode(&history)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &history, nil
}

// AppendStatusChange appends one entry to the status-change log.
func (c *MongoHistoryCollection) AppendStatusChange(ctx context.Context, deploymentID string, change models.StatusChange) error {
	if c.Collection == nil {
		return fmt.Errorf("mongo collection is nil")
	}
	result, err := c.Collection.UpdateOne(ctx, bson.M{"_id": deploymentID}, bson.M{
		"$push": bson.M{"status_changes": change},
		"$set":  bson.M{"updated_at": time.Now()},
	})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// AppendLocationSample appends a location sample unless one with the same
// timestamp is already recorded. Returns whether the sample was appended.
func (c *MongoHistoryCollection) AppendLocationSample(ctx context.Context, deploymentID string, sample models.TrackedLocation) (bool, error) {
	return c.appendOnce(ctx, deploymentID, "locations", sample, sample.Timestamp)
}

// AppendTelemetrySample appends a telemetry sample unless one with the same
// timestamp is already recorded. Returns whether the sample was appended.
func (c *MongoHistoryCollection) AppendTelemetrySample(ctx context.Context, deploymentID string, sample models.TelemetrySample) (bool, error) {
	return c.appendOnce(ctx, deploymentID, "telemetry", sample, sample.Timestamp)
}

// appendOnce pushes into an array field only when no element carries the
// same timestamp, which makes resubmission of a sample a no-op.
func (c *MongoHistoryCollection) appendOnce(ctx context.Context, deploymentID, field string, sample interface{}, ts time.Time) (bool, error) {
	if c.Collection == nil {
		return false, fmt.Errorf("mongo collection is nil")
	}
	filter := bson.M{
		"_id":                deploymentID,
		field + ".timestamp": bson.M{"$ne": ts},
	}
	result, err := c.Collection.UpdateOne(ctx, filter, bson.M{
		"$push": bson.M{field: sample},
		"$set":  bson.M{"updated_at": time.Now()},
	})
	if err != nil {
		return false, err
	}
	if result.MatchedCount > 0 {
		return result.ModifiedCount > 0, nil
	}
	// Nothing matched: either the timestamp is a duplicate or the history
	// document does not exist at all.
	n, err := c.Collection.CountDocuments(ctx, bson.M{"_id": deploymentID})
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, ErrNotFound
	}
	return false, nil
}

// SetMetrics stores the derived performance metrics computed on completion.
func (c *MongoHistoryCollection) SetMetrics(ctx context.Context, deploymentID string, metrics models.PerformanceMetrics) error {
	if c.Collection == nil {
		return fmt.Errorf("mongo collection is nil")
	}
	result, err := c.Collection.UpdateOne(ctx, bson.M{"_id": deploymentID}, bson.M{
		"$set": bson.M{"metrics": metrics, "updated_at": time.Now()},
	})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
