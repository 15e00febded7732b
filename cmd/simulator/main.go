package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"net/http"
	"os"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"
)

// Location matches the API's location payload.
type Location struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Depot locations the simulated fleet operates around.
var depots = []Location{
	{Lat: 12.9716, Lon: 77.5946}, // Bengaluru
	{Lat: 51.5074, Lon: -0.1278}, // London
	{Lat: 52.5200, Lon: 13.4050}, // Berlin
	{Lat: 1.3521, Lon: 103.8198}, // Singapore
	{Lat: 40.7128, Lon: -74.006}, // New York
}

func jitterLocation(base Location, meters float64) Location {
	latMetersPerDeg := 111320.0
	lonMetersPerDeg := 111320.0 * math.Cos(base.Lat*math.Pi/180)
	dLat := (rand.Float64()*2 - 1) * (meters / latMetersPerDeg)
	dLon := (rand.Float64()*2 - 1) * (meters / lonMetersPerDeg)
	return Location{Lat: base.Lat + dLat, Lon: base.Lon + dLon}
}

var authToken string

func apiPost(url string, payload interface{}) (*http.Response, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewBuffer(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if authToken != "" {
		req.Header.Set("Authorization", "Bearer "+authToken)
	}
	client := &http.Client{Timeout: 10 * time.Second}
	return client.Do(req)
}

// bookDeployment requests a deployment with no specific vehicle so the
// engine picks the optimal one near the depot.
func bookDeployment(apiURL string, operatorID string, start Location) (string, error) {
	now := time.Now()
	payload := map[string]interface{}{
		"operator_id":        operatorID,
		"start_time":         now.Add(35 * time.Minute).Format(time.RFC3339),
		"estimated_end_time": now.Add(4 * time.Hour).Format(time.RFC3339),
		"start_location":     start,
		"purpose":            "delivery",
	}
	resp, err := apiPost(apiURL+"/deployments", payload)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("booking failed with status %d", resp.StatusCode)
	}
	var result map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}
	id, ok := result["id"].(string)
	if !ok {
		return "", fmt.Errorf("missing deployment id in response")
	}
	return id, nil
}

// deploymentState is the simulated vehicle while on a deployment.
type deploymentState struct {
	DeploymentID string
	Position     Location
	SpeedKmh     float64
	BatteryPct   float64
	OdometerKm   float64
}

func (s *deploymentState) step(tickSec float64) {
	s.SpeedKmh += (rand.Float64()*2 - 1) * 2
	if s.SpeedKmh < 10 {
		s.SpeedKmh = 10
	}
	if s.SpeedKmh > 80 {
		s.SpeedKmh = 80
	}
	km := s.SpeedKmh * (tickSec / 3600.0)
	s.Position = jitterLocation(s.Position, km*1000)
	s.OdometerKm += km
	s.BatteryPct -= km * 0.5
	if s.BatteryPct < 5 {
		s.BatteryPct = 5
	}
}

func sendTracking(apiURL string, s *deploymentState) {
	payload := map[string]interface{}{
		"location":      s.Position,
		"battery_level": s.BatteryPct,
		"speed_kmh":     s.SpeedKmh,
		"odometer_km":   s.OdometerKm,
		"timestamp":     time.Now().Format(time.RFC3339),
	}
	resp, err := apiPost(fmt.Sprintf("%s/deployments/%s/tracking", apiURL, s.DeploymentID), payload)
	if err != nil {
		log.WithError(err).Error("failed to send tracking sample")
		return
	}
	defer resp.Body.Close()
	log.WithFields(log.Fields{
		"deployment_id": s.DeploymentID,
		"status":        resp.Status,
		"battery":       fmt.Sprintf("%.1f", s.BatteryPct),
	}).Info("sent tracking sample")
}

func completeDeployment(apiURL string, deploymentID string) {
	payload := map[string]interface{}{"status": "completed"}
	req, err := http.NewRequest(http.MethodPatch,
		fmt.Sprintf("%s/deployments/%s/status", apiURL, deploymentID),
		bytes.NewBuffer(mustJSON(payload)))
	if err != nil {
		log.WithError(err).Error("failed to build completion request")
		return
	}
	req.Header.Set("Content-Type", "application/json")
	if authToken != "" {
		req.Header.Set("Authorization", "Bearer "+authToken)
	}
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		log.WithError(err).Error("failed to complete deployment")
		return
	}
	defer resp.Body.Close()
	log.WithFields(log.Fields{"deployment_id": deploymentID, "status": resp.Status}).Info("deployment completed")
}

func mustJSON(v interface{}) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return data
}

func simulateDeployment(apiURL string, operatorID string, interval time.Duration, samples int) {
	depot := depots[rand.Intn(len(depots))]
	deploymentID, err := bookDeployment(apiURL, operatorID, depot)
	if err != nil {
		log.WithError(err).WithField("operator_id", operatorID).Error("failed to book deployment")
		return
	}
	log.WithFields(log.Fields{"deployment_id": deploymentID, "operator_id": operatorID}).Info("deployment booked")

	state := &deploymentState{
		DeploymentID: deploymentID,
		Position:     jitterLocation(depot, 500),
		SpeedKmh:     25 + rand.Float64()*25,
		BatteryPct:   60 + rand.Float64()*40,
		OdometerKm:   5000 + rand.Float64()*15000,
	}

	tick := time.NewTicker(interval)
	defer tick.Stop()
	sent := 0
	for range tick.C {
		state.step(interval.Seconds())
		sendTracking(apiURL, state)
		sent++
		if sent >= samples {
			break
		}
	}
	completeDeployment(apiURL, deploymentID)
}

func main() {
	authToken = os.Getenv("SIM_AUTH_TOKEN")

	apiURL := os.Getenv("API_BASE_URL")
	if apiURL == "" {
		apiURL = "http://localhost:8080/api"
	}

	operators := 3
	if v := os.Getenv("SIM_OPERATORS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			operators = n
		}
	}

	interval := 30 * time.Second // supported tracking cadence
	if v := os.Getenv("SIM_TICK_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 1 {
			interval = time.Duration(n) * time.Second
		}
	}

	samples := 20
	if v := os.Getenv("SIM_SAMPLES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			samples = n
		}
	}

	log.WithFields(log.Fields{
		"operators": operators,
		"api_url":   apiURL,
		"interval":  interval,
	}).Info("starting deployment simulation")

	done := make(chan struct{})
	for i := 0; i < operators; i++ {
		operatorID := fmt.Sprintf("OPR_sim_%d", i+1)
		go func() {
			simulateDeployment(apiURL, operatorID, interval, samples)
			done <- struct{}{}
		}()
	}
	for i := 0; i < operators; i++ {
		<-done
	}
	log.Info("simulation finished")
}
