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

// MongoMaintenanceCollection implements MaintenanceCollection for MongoDB.
type MongoMaintenanceCollection struct {
	Collection *mongo.Collection
}

// InsertMaintenance inserts a maintenance record into the collection.
func (c *MongoMaintenanceCollection) InsertMaintenance(ctx context.Context, log models.MaintenanceLog) error {
	if c.Collection == nil {
		return fmt.Errorf("mongo collection is nil")
	}
	log.CreatedAt = time.Now()
	log.UpdatedAt = time.Now()
	_, err := c.Collection.InsertOne(ctx, log)
	return err
}

// FindMaintenanceByID finds a maintenance record by its ID.
func (c *MongoMaintenanceCollection) FindMaintenanceByID(ctx context.Context, id string) (*models.MaintenanceLog, error) {
	if c.Collection == nil {
		return nil, fmt.Errorf("mongo collection is nil")
	}
	var log models.MaintenanceLog
	err := c.Collection.FindOne(ctx, bson.M{"_id": id}).Decode(&log)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &log, nil
}

// FindActiveMaintenance returns the scheduled or in_progress record of the
// given type for the vehicle, or ErrNotFound.
func (c *MongoMaintenanceCollection) FindActiveMaintenance(ctx context.Context, vehicleID string, mtype models.MaintenanceType) (*models.MaintenanceLog, error) {
	if c.Collection == nil {
		return nil, fmt.Errorf("mongo collection is nil")
	}
	filter := bson.M{
		"vehicle_id": vehicleID,
		"type":       mtype,
		"status":     bson.M{"$in": bson.A{models.MaintenanceStatusScheduled, models.MaintenanceStatusInProgress}},
	}
	var log models.MaintenanceLog
	err := c.Collection.FindOne(ctx, filter).Decode(&log)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &log, nil
}

// FindScheduledMaintenanceDueBefore returns scheduled records due before cutoff.
func (c *MongoMaintenanceCollection) FindScheduledMaintenanceDueBefore(ctx context.Context, cutoff time.Time) ([]models.MaintenanceLog, error) {
	if c.Collection == nil {
		return nil, fmt.Errorf("mongo collection is nil")
	}
	filter := bson.M{
		"status":         models.MaintenanceStatusScheduled,
		"scheduled_date": bson.M{"$lt": cutoff},
	}
	cursor, err := c.Collection.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	var logs []models.MaintenanceLog
	if err := cursor.All(ctx, &logs); err != nil {
		return nil, err
	}
	return logs, nil
}

// UpdateMaintenance replaces a maintenance record by its ID.
func (c *MongoMaintenanceCollection) UpdateMaintenance(ctx context.Context, id string, log models.MaintenanceLog) error {
	if c.Collection == nil {
		return fmt.Errorf("mongo collection is nil")
	}
	log.ID = id
	log.UpdatedAt = time.Now()
	result, err := c.Collection.ReplaceOne(ctx, bson.M{"_id": id}, log)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// MongoRolePermissionCollection implements RolePermissionCollection for MongoDB.
type MongoRolePermissionCollection struct {
	Collection *mongo.Collection
}

// FindRolePermissions loads the full role/module permission matrix.
func (c *MongoRolePermissionCollection) FindRolePermissions(ctx context.Context) ([]models.RolePermission, error) {
	if c.Collection == nil {
		return nil, fmt.Errorf("mongo collection is nil")
	}
	cursor, err := c.Collection.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	var perms []models.RolePermission
	if err := cursor.All(ctx, &perms); err != nil {
		return nil, err
	}
	return perms, nil
}
