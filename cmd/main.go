package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/ukydev/fleet-operations/internal/auth"
	"github.com/ukydev/fleet-operations/internal/db"
	"github.com/ukydev/fleet-operations/internal/fleet"
	"github.com/ukydev/fleet-operations/internal/handlers"
	"github.com/ukydev/fleet-operations/internal/middleware"
	"github.com/ukydev/fleet-operations/internal/mqtt"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Debug("no .env file found, using process environment")
	}
	log.SetFormatter(&log.JSONFormatter{})

	client, err := db.ConnectMongo()
	if err != nil {
		log.WithError(err).Fatal("failed to connect to MongoDB")
	}
	defer client.Disconnect(context.Background())
	log.Info("connected to MongoDB")

	dbName := os.Getenv("MONGO_DATABASE")
	if dbName == "" {
		dbName = "fleet_operations"
	}
	database := client.Database(dbName)

	vehicles := &db.MongoVehicleCollection{Collection: database.Collection("vehicles")}
	deployments := &db.MongoDeploymentCollection{Collection: database.Collection("deployments")}
	history := &db.MongoHistoryCollection{Collection: database.Collection("deployment_history")}
	maintenance := &db.MongoMaintenanceCollection{Collection: database.Collection("maintenance_logs")}
	rolePerms := &db.MongoRolePermissionCollection{Collection: database.Collection("role_permissions")}
	users := &db.MongoUserCollection{Collection: database.Collection("users")}

	perms, err := rolePerms.FindRolePermissions(context.Background())
	if err != nil {
		log.WithError(err).Warn("failed to load role permissions, using defaults")
	}
	authorizer := auth.NewAuthorizer(perms)

	authService, err := auth.NewService()
	if err != nil {
		log.WithError(err).Fatal("failed to create auth service")
	}

	engine := fleet.NewService(fleet.ConfigFromEnv(), vehicles, deployments, history, maintenance, authorizer)

	authHandler := handlers.NewAuthHandler(authService, users)
	deploymentHandler := handlers.NewDeploymentHandler(engine)
	vehicleHandler := handlers.NewVehicleHandler(engine)
	maintenanceHandler := handlers.NewMaintenanceHandler(engine)
	analyticsHandler := handlers.NewAnalyticsHandler(engine)
	notificationHandler := handlers.NewNotificationHandler(engine)

	authMW := middleware.NewAuthMiddleware(authService, authorizer)
	rateMW := middleware.NewRateLimitMiddleware()

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/api/auth/login", authHandler.Login)
	mux.HandleFunc("/api/auth/register", authHandler.Register)

	deploymentRoutes := authMW.RequireAccess(handlers.DeploymentAccess)(http.HandlerFunc(deploymentHandler.Handle))
	mux.Handle("/api/deployments", deploymentRoutes)
	mux.Handle("/api/deployments/", deploymentRoutes)
	mux.Handle("/api/vehicles/optimal", authMW.RequireModule(auth.ModuleVehicles)(http.HandlerFunc(vehicleHandler.Optimal)))
	mux.Handle("/api/maintenance/auto-schedule", authMW.RequireModule(auth.ModuleMaintenance)(http.HandlerFunc(maintenanceHandler.AutoSchedule)))
	mux.Handle("/api/maintenance/due", authMW.RequireModule(auth.ModuleMaintenance)(http.HandlerFunc(maintenanceHandler.Due)))
	mux.Handle("/api/analytics/deployments", authMW.RequireModule(auth.ModuleAnalytics)(http.HandlerFunc(analyticsHandler.Deployments)))
	mux.Handle("/api/notifications", authMW.RequireModule(auth.ModuleNotifications)(http.HandlerFunc(notificationHandler.Feed)))

	// Tracking cadence contract: callers submit at most every 30s per
	// deployment, enforced here at the boundary rather than in the engine.
	handler := rateMW.RateLimit(120, 60)(authMW.Authenticate(mux))

	if broker := os.Getenv("MQTT_BROKER"); broker != "" {
		mqttClient := mqtt.NewClient(mqtt.ConfigFromEnv(), engine)
		if err := mqttClient.Connect(); err != nil {
			log.WithError(err).Fatal("failed to connect to MQTT broker")
		}
		defer mqttClient.Disconnect()
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	log.WithField("port", port).Info("fleet operations server listening")
	if err := http.ListenAndServe(":"+port, handler); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
}
